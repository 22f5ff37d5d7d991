package service

import (
	"context"
	"errors"
	"time"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/looplab/fsm"
	"github.com/yola1107/kratos/v2/log"
)

// Bonus lifecycle states and events.
const (
	BonusIdle      = "idle"
	BonusTriggered = "triggered"
	BonusPlaying   = "playing_spin"
	BonusEnding    = "ending"

	evTrigger = "trigger"
	evSpin    = "spin"
	evEnd     = "end"
	evReset   = "reset"
)

// RunFunc runs the dispatcher over one event group.
type RunFunc func(ctx context.Context, events []biz.Event) error

// BonusOrchestrator sequences the bonus from trigger popup to summary popup.
type BonusOrchestrator struct {
	session *biz.RoundSessionState
	bonus   *biz.BonusState
	reels   *ReelAnimator
	render  biz.Renderer
	audio   biz.Audio
	clock   biz.Clock
	timing  *conf.Timing
	journal *Journal
	fsm     *fsm.FSM
	log     *log.Helper
}

// NewBonusOrchestrator .
func NewBonusOrchestrator(session *biz.RoundSessionState, bonus *biz.BonusState, reels *ReelAnimator, render biz.Renderer, audio biz.Audio, clock biz.Clock, c *conf.Game, journal *Journal, logger log.Logger) *BonusOrchestrator {
	o := &BonusOrchestrator{
		session: session,
		bonus:   bonus,
		reels:   reels,
		render:  render,
		audio:   audio,
		clock:   clock,
		timing:  c.Timing,
		journal: journal,
		log:     log.NewHelper(log.With(logger, "module", "service/bonus")),
	}
	o.fsm = fsm.NewFSM(
		BonusIdle,
		fsm.Events{
			{Name: evTrigger, Src: []string{BonusIdle}, Dst: BonusTriggered},
			{Name: evSpin, Src: []string{BonusTriggered, BonusPlaying}, Dst: BonusPlaying},
			{Name: evEnd, Src: []string{BonusTriggered, BonusPlaying}, Dst: BonusEnding},
			{Name: evReset, Src: []string{BonusTriggered, BonusPlaying, BonusEnding}, Dst: BonusIdle},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				o.log.Debugw("msg", "bonus state", "from", e.Src, "to", e.Dst)
			},
		},
	)
	return o
}

// State is the current lifecycle state.
func (o *BonusOrchestrator) State() string { return o.fsm.Current() }

// fire moves the machine. Staying in playing_spin is not an error. A cancelled
// transition would leave the machine stuck in transition, so cancellation of
// ctx is not passed on.
func (o *BonusOrchestrator) fire(ctx context.Context, event string) error {
	err := o.fsm.Event(context.WithoutCancel(ctx), event)
	var same fsm.NoTransitionError
	if err != nil && !errors.As(err, &same) {
		return err
	}
	return nil
}

// Trigger starts the bonus and blocks until the player dismisses the trigger popup.
func (o *BonusOrchestrator) Trigger(ctx context.Context, e biz.FreeSpinTrigger) error {
	if o.bonus.Active {
		o.log.Warnf("trigger while bonus active, ignored, total %d", e.TotalFs)
		o.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteIgnored, Spins: e.TotalFs})
		return nil
	}
	if err := o.fire(ctx, evTrigger); err != nil {
		return err
	}
	*o.bonus = biz.BonusState{
		Active:           true,
		SpinsTotal:       e.TotalFs,
		TriggerPositions: e.Positions,
	}
	o.render.SetControls(false)
	if o.session.Autoplay.StopOnBonus() {
		o.log.Info("autoplay stopped by bonus trigger")
	}
	o.render.SetFreeSpins(0, e.TotalFs)

	if valid, _ := biz.GridPositions(e.Positions); len(valid) > 0 {
		shown := o.session.Displayed()
		turbo := o.session.Turbo()
		var animation time.Duration
		for _, pos := range valid {
			code := shown.Board.At(pos).Code
			o.render.Highlight(pos, biz.ClassWinning)
			o.render.AnimateSymbol(pos, code)
			animation = max(animation, symbolAnimation(o.timing, code, turbo))
		}
		if err := o.clock.Sleep(ctx, animation); err != nil {
			return err
		}
		if err := o.clock.Sleep(ctx, o.timing.ScatterPause.Std()); err != nil {
			return err
		}
		o.render.ClearHighlights()
	}

	o.audio.Play(biz.SoundTrigger)
	o.render.ShowPopup(biz.Popup{Kind: biz.PopupTrigger, Spins: e.TotalFs})
	if err := o.render.AwaitDismiss(ctx, biz.PopupTrigger); err != nil {
		return err
	}
	o.render.HidePopup(biz.PopupTrigger)
	o.audio.Music(biz.MusicBonus)
	o.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteTriggered, Spins: e.TotalFs})
	return nil
}

// Update advances the spin count. A larger total is a retrigger.
func (o *BonusOrchestrator) Update(ctx context.Context, e biz.UpdateFreeSpin) error {
	if !o.bonus.Active {
		o.log.Warnw("msg", "free spin update outside a bonus", "amount", e.Amount, "total", e.Total)
		o.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteIgnored})
		return nil
	}
	if e.Total > o.bonus.SpinsTotal {
		extra := e.Total - o.bonus.SpinsTotal
		o.bonus.SpinsTotal = e.Total
		o.audio.Play(biz.SoundRetrigger)
		o.render.ShowPopup(biz.Popup{Kind: biz.PopupRetrigger, Spins: extra})
		err := firstOf(ctx,
			func(ctx context.Context) error { return o.render.AwaitDismiss(ctx, biz.PopupRetrigger) },
			func(ctx context.Context) error { return o.clock.Sleep(ctx, o.timing.RetriggerDismiss.Std()) },
		)
		if err != nil {
			return err
		}
		o.render.HidePopup(biz.PopupRetrigger)
		o.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteRetrigger, Spins: extra})
	}
	o.bonus.SpinsCompleted++
	o.render.SetFreeSpins(o.bonus.SpinsCompleted, o.bonus.SpinsTotal)
	o.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteAdvanced, Spins: o.bonus.SpinsCompleted})
	return nil
}

// MarkEnded records that the server closed the spin phase.
func (o *BonusOrchestrator) MarkEnded(e biz.FreeSpinEnd) {
	o.bonus.Ended = true
	o.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteEnded})
}

// PlaySpins runs one reel cycle per spin group that carries a reveal. Groups
// without a reveal (the lone FreeSpinEnd) are dispatched without spinning.
func (o *BonusOrchestrator) PlaySpins(ctx context.Context, spins [][]biz.Event, run RunFunc) error {
	for i, group := range spins {
		reveal, ok := biz.FirstReveal(group)
		if !ok {
			if err := run(ctx, group); err != nil {
				return err
			}
			continue
		}
		if err := o.fire(ctx, evSpin); err != nil {
			return err
		}
		o.bonus.PlayedSpins++
		o.journal.add(JournalEntry{Kind: biz.KindReveal, Note: NoteSpin, Spins: o.bonus.PlayedSpins})

		o.reels.StartSpin(ctx)
		if err := o.clock.Sleep(ctx, o.timing.BonusSpinLead.Pick(o.session.Turbo())); err != nil {
			return err
		}
		if err := o.reels.StopSpin(ctx, reveal.Board, reveal.GameType, reveal.Anticipation); err != nil {
			return err
		}
		if err := run(ctx, group); err != nil {
			return err
		}

		pause := o.timing.SpinPauseNoWin.Std()
		if hasWin(group) {
			pause = o.timing.SpinPauseWin.Std()
		}
		o.log.Debugw("msg", "bonus spin done", "group", i, "played", o.bonus.PlayedSpins,
			"completed", o.bonus.SpinsCompleted, "total", o.bonus.SpinsTotal)
		if err := o.clock.Sleep(ctx, pause); err != nil {
			return err
		}
	}
	return nil
}

// Finish processes the trailing base events, shows the summary and always
// leaves the bonus reset with controls enabled.
func (o *BonusOrchestrator) Finish(ctx context.Context, trailing []biz.Event, run RunFunc) error {
	defer o.Reset(ctx)
	if err := o.fire(ctx, evEnd); err != nil {
		o.log.Warnw("msg", "bonus end out of order", "state", o.State(), "err", err)
	}

	var final *biz.FinalWin
	for _, ev := range trailing {
		if f, ok := ev.(biz.FinalWin); ok {
			final = &f
			break
		}
	}
	if err := run(ctx, trailing); err != nil {
		return err
	}
	if final == nil {
		o.log.Warnw("msg", "bonus finished without finalWin", "played", o.bonus.PlayedSpins, "ended", o.bonus.Ended)
		o.journal.add(JournalEntry{Kind: biz.KindFinalWin, Note: NoteNoFinalWin})
		return nil
	}

	amount := biz.DisplayAmount(final.Amount, o.session.Bet())
	o.audio.Play(biz.SoundSummary)
	o.render.ShowPopup(biz.Popup{
		Kind:         biz.PopupSummary,
		Amount:       amount,
		ServerAmount: final.Amount,
		Spins:        o.bonus.SpinsTotal,
	})
	if err := o.render.AwaitDismiss(ctx, biz.PopupSummary); err != nil {
		return err
	}
	o.render.HidePopup(biz.PopupSummary)
	o.journal.add(JournalEntry{Kind: biz.KindFinalWin, Note: NoteSummary, Amount: amount, Spins: o.bonus.SpinsTotal})
	return nil
}

// Reset drops the bonus state and gives the player the controls back.
func (o *BonusOrchestrator) Reset(ctx context.Context) {
	wasActive := o.bonus.Active
	o.bonus.Reset()
	if o.State() != BonusIdle {
		if err := o.fire(ctx, evReset); err != nil {
			o.log.Errorf("bonus reset: %v", err)
			o.fsm.SetState(BonusIdle)
		}
	}
	o.render.SetFreeSpins(0, 0)
	o.render.SetControls(true)
	if wasActive {
		o.audio.Music(biz.MusicBase)
	}
}

func hasWin(group []biz.Event) bool {
	for _, ev := range group {
		if w, ok := ev.(biz.WinInfo); ok && w.TotalWin > 0 {
			return true
		}
	}
	return false
}

// firstOf returns the result of whichever function finishes first and cancels the rest.
func firstOf(ctx context.Context, fns ...func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan error, len(fns))
	for _, fn := range fns {
		go func() { done <- fn(ctx) }()
	}
	return <-done
}
