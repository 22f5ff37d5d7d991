package service

import (
	"context"
	"errors"
	"sync"

	"reelsync/internal/biz"

	"github.com/yola1107/kratos/v2/log"
)

// Autoplay repeats base rounds until its count runs out, funds run short,
// a round fails or a bonus triggers (when configured).
type Autoplay struct {
	game        *Game
	stopOnBonus bool
	log         *log.Helper

	mu   sync.Mutex
	done chan struct{}
}

func newAutoplay(g *Game, stopOnBonus bool) *Autoplay {
	return &Autoplay{game: g, stopOnBonus: stopOnBonus, log: log.NewHelper(log.With(g.logger, "module", "service/autoplay"))}
}

// Run loops in the calling goroutine until autoplay stops or ctx is done.
func (a *Autoplay) Run(ctx context.Context) error {
	g := a.game
	state := &g.session.Autoplay
	if err := g.clock.Sleep(ctx, g.timing.AutoplayFirst.Std()); err != nil {
		state.Stop()
		return err
	}
	for state.Active() {
		bet := g.session.Bet()
		if g.session.Balance().Amount < bet {
			a.log.Infof("autoplay stopped, insufficient funds for bet %d", bet)
			state.Stop()
			return biz.ErrInsufficientFunds
		}
		err := g.Spin(ctx, biz.RoundBase)
		switch {
		case errors.Is(err, biz.ErrRoundInFlight):
			a.log.Debug("round in flight, autoplay tick skipped")
		case err != nil:
			a.log.Warnf("autoplay stopped by round error: %v", err)
			state.Stop()
			return err
		default:
			if !state.Consume() {
				a.log.Info("autoplay finished")
				return nil
			}
		}
		if err := g.clock.Sleep(ctx, g.timing.AutoplayNext.Pick(g.session.Turbo())); err != nil {
			state.Stop()
			return err
		}
	}
	return nil
}

// StartAutoplay arms autoplay for count rounds (0 for no limit) and runs it in
// the background. While a loop is already running only its count is re-armed.
func (g *Game) StartAutoplay(ctx context.Context, count int) error {
	if g.rounds.IsReplay() {
		return biz.ErrReplayOnly
	}
	a := g.auto
	a.mu.Lock()
	defer a.mu.Unlock()
	g.session.Autoplay.Start(count, a.stopOnBonus)
	g.log.Infow("msg", "autoplay started", "count", count, "stopOnBonus", a.stopOnBonus)
	if a.done != nil {
		select {
		case <-a.done:
		default:
			return nil
		}
	}
	done := make(chan struct{})
	a.done = done
	go func() {
		for {
			err := a.Run(ctx)
			a.mu.Lock()
			// re-armed while the loop was on its way out
			if err == nil && g.session.Autoplay.Active() {
				a.mu.Unlock()
				continue
			}
			close(done)
			a.mu.Unlock()
			if err != nil {
				g.log.Debugf("autoplay ended: %v", err)
			}
			return
		}
	}()
	return nil
}

// StopAutoplay stops autoplay once the round in flight, if any, has finished.
// The round itself is never interrupted.
func (g *Game) StopAutoplay() {
	g.session.Autoplay.Stop()
	g.log.Info("autoplay stopped")
}

// AutoplayDone is closed when the current autoplay loop exits; nil when none ran.
func (g *Game) AutoplayDone() <-chan struct{} {
	g.auto.mu.Lock()
	defer g.auto.mu.Unlock()
	return g.auto.done
}
