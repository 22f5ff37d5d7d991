package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

const (
	msgGeneric      = "Something went wrong. Please try again."
	msgInsufficient = "Insufficient balance."
	errorPopupTTL   = 3 * time.Second
)

// Game owns the session and bonus state and runs rounds end to end.
type Game struct {
	session  *biz.RoundSessionState
	bonus    *biz.BonusState
	rounds   biz.RoundRepo
	reels    *ReelAnimator
	dispatch *Dispatcher
	orch     *BonusOrchestrator
	journal  *Journal
	render   biz.Renderer
	clock    biz.Clock
	timing   *conf.Timing
	logger   log.Logger
	log      *log.Helper

	endMu sync.Mutex // end-round is never sent twice at once
	auto  *Autoplay
}

// NewGame wires the sequencing components around one session.
func NewGame(rounds biz.RoundRepo, render biz.Renderer, audio biz.Audio, clock biz.Clock, c *conf.Game, logger log.Logger) *Game {
	session := new(biz.RoundSessionState)
	session.SetTurbo(c.Turbo)
	bonus := new(biz.BonusState)
	journal := new(Journal)

	reels := NewReelAnimator(session, render, audio, clock, c, logger)
	wins := NewWinSequencer(session, render, audio, clock, c, logger)
	orch := NewBonusOrchestrator(session, bonus, reels, render, audio, clock, c, journal, logger)
	g := &Game{
		session:  session,
		bonus:    bonus,
		rounds:   rounds,
		reels:    reels,
		dispatch: NewDispatcher(session, bonus, reels, wins, orch, render, journal, logger),
		orch:     orch,
		journal:  journal,
		render:   render,
		clock:    clock,
		timing:   c.Timing,
		logger:   logger,
		log:      log.NewHelper(log.With(logger, "module", "service/game")),
	}
	g.auto = newAutoplay(g, c.StopOnBonus)
	return g
}

func (g *Game) Session() *biz.RoundSessionState { return g.session }
func (g *Game) Reels() *ReelAnimator           { return g.reels }
func (g *Game) BonusState() string             { return g.orch.State() }

// Journal returns the audit trail of the last round.
func (g *Game) Journal() []JournalEntry { return g.journal.Entries() }

// Open authenticates the session, or loads the recorded round in replay mode.
// A round left active by a previous session is shown and closed.
func (g *Game) Open(ctx context.Context) error {
	s, err := g.rounds.Authenticate(ctx)
	if err != nil {
		g.render.ShowPopup(biz.Popup{Kind: biz.PopupError, Message: msgGeneric})
		return fmt.Errorf("open session: %w", err)
	}
	g.session.SetBalance(s.Balance)
	g.session.SetBetConfig(s.Config)
	g.session.SetBet(s.Config.DefaultStake())
	g.render.SetBalance(s.Balance)
	g.log.WithContext(ctx).Infow("msg", "game opened",
		"replay", g.rounds.IsReplay(),
		"balance", s.Balance.Amount,
		"bet", g.session.Bet())
	if s.Round != nil {
		return g.resume(ctx, s.Round)
	}
	g.render.SetControls(true)
	return nil
}

func (g *Game) resume(ctx context.Context, r *biz.RoundResult) error {
	if !g.session.TryAcquire() {
		return biz.ErrRoundInFlight
	}
	defer g.session.Release()
	defer g.render.SetControls(true)

	if reveal, ok := biz.FirstReveal(r.Events); ok {
		g.reels.ShowBoard(biz.TaggedBoard{Board: reveal.Board, Mode: reveal.GameType})
	}
	wait := g.timing.ActiveRoundEmpty.Std()
	if r.Payout > 0 {
		amount := decimal.NewFromInt(r.Payout)
		g.session.SetLastWin(amount)
		g.render.SetWin(amount)
		wait = g.timing.ActiveRoundPayout.Std()
	}
	g.log.WithContext(ctx).Infof("resuming active round, payout %d", r.Payout)
	if err := g.clock.Sleep(ctx, wait); err != nil {
		return err
	}
	g.endRound(ctx)
	return nil
}

// SetTurbo switches timings; waits already started keep their length.
func (g *Game) SetTurbo(on bool) { g.session.SetTurbo(on) }

// SetBet changes the stake between rounds.
func (g *Game) SetBet(stake int64) error {
	if g.session.IsBusy() {
		return biz.ErrRoundInFlight
	}
	if g.rounds.IsReplay() {
		return biz.ErrReplayOnly
	}
	if !g.session.BetConfig().Allows(stake) {
		return fmt.Errorf("stake %d is not an offered bet level", stake)
	}
	g.session.SetBet(stake)
	return nil
}

// Spin plays one round. It is rejected, without any state change or network
// call, while another round is in flight or when funds do not cover the cost.
func (g *Game) Spin(ctx context.Context, mode biz.RoundMode) error {
	if g.session.IsBusy() {
		return biz.ErrRoundInFlight
	}
	req := &biz.RoundRequest{Amount: g.session.Bet(), Mode: mode}
	if g.session.Balance().Amount < req.Cost() {
		g.render.ShowPopup(biz.Popup{Kind: biz.PopupError, Message: msgInsufficient, TTL: errorPopupTTL})
		return biz.ErrInsufficientFunds
	}
	if !g.session.TryAcquire() {
		return biz.ErrRoundInFlight
	}

	rlog := log.NewHelper(log.With(g.logger, "module", "service/game", "round", uuid.NewString(), "mode", string(mode)))
	defer func() {
		if g.bonus.Active || g.orch.State() != BonusIdle {
			rlog.Warn("round ended inside a bonus, resetting")
			g.orch.Reset(ctx)
		}
		g.session.Release()
		g.render.SetControls(true)
	}()

	err := g.run(ctx, req, rlog)
	if err != nil {
		rlog.Errorf("round failed: %v", err)
		if ctx.Err() == nil {
			msg := msgGeneric
			if errors.Is(err, biz.ErrInsufficientFunds) {
				msg = msgInsufficient
			}
			g.render.ShowPopup(biz.Popup{Kind: biz.PopupError, Message: msg, TTL: errorPopupTTL})
		}
	}
	return err
}

func (g *Game) run(ctx context.Context, req *biz.RoundRequest, rlog *log.Helper) error {
	g.journal.reset()
	g.session.ResetLastWin()
	g.render.SetWin(decimal.Zero)
	g.render.SetControls(false)

	req.Available = g.session.Balance().Amount
	req.Turbo = g.session.Turbo()

	g.reels.StartSpin(ctx)
	res, err := g.rounds.Play(ctx, req)
	if err != nil {
		g.reels.Halt()
		return err
	}
	g.session.SetBalance(res.Balance)
	g.render.SetBalance(res.Balance)
	rlog.Infow("msg", "round received",
		"events", len(res.Events),
		"payout", res.Payout,
		"active", res.Active,
		"replay", res.Replay)

	reveal, ok := biz.FirstReveal(res.Events)
	if !ok {
		rlog.Warn("round has no reveal")
		g.reels.Halt()
	} else if err := g.reels.StopSpin(ctx, reveal.Board, reveal.GameType, reveal.Anticipation); err != nil {
		return err
	}
	if res.Replay {
		if err := g.clock.Sleep(ctx, g.timing.ReplayPause.Pick(g.session.Turbo())); err != nil {
			return err
		}
	}

	if err := g.process(ctx, res.Events); err != nil {
		return err
	}
	if !res.Replay && (res.Payout > 0 || res.Active) {
		g.endRound(ctx)
	}
	return nil
}

// process classifies the events and runs the base round, then the bonus.
func (g *Game) process(ctx context.Context, events []biz.Event) error {
	c := biz.Classify(events)
	lead, trailing := c.Split()
	if err := g.dispatch.Run(ctx, lead); err != nil {
		return err
	}
	if len(lead) == 0 || lead[len(lead)-1].Kind() != biz.KindFreeSpinTrigger {
		return nil
	}
	if err := g.orch.PlaySpins(ctx, c.BonusSpins, g.dispatch.Run); err != nil {
		return err
	}
	return g.orch.Finish(ctx, trailing, g.dispatch.Run)
}

func (g *Game) endRound(ctx context.Context) {
	g.endMu.Lock()
	defer g.endMu.Unlock()
	bal, err := g.rounds.EndRound(ctx)
	if err != nil {
		g.log.WithContext(ctx).Errorf("end round: %v", err)
		return
	}
	g.session.SetBalance(bal)
	g.render.SetBalance(bal)
}
