package service

import (
	"context"
	"sync"
	"time"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/yola1107/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// ColumnState is the lifecycle of one reel column.
type ColumnState int

const (
	ColumnIdle ColumnState = iota
	ColumnSpinning
	ColumnStopping
	ColumnSettled
)

func (s ColumnState) String() string {
	return [...]string{"idle", "spinning", "stopping", "settled"}[s]
}

// ReelAnimator drives the spin start and staggered stop of the five columns.
// It is the only place multiplier overlays are attached.
type ReelAnimator struct {
	session  *biz.RoundSessionState
	render   biz.Renderer
	audio    biz.Audio
	clock    biz.Clock
	timing   *conf.Timing
	skip     bool
	observer biz.OverlayObserver
	log      *log.Helper

	mu       sync.Mutex
	states   [biz.Reels]ColumnState
	overlays int
	starting *errgroup.Group
}

// NewReelAnimator .
func NewReelAnimator(session *biz.RoundSessionState, render biz.Renderer, audio biz.Audio, clock biz.Clock, c *conf.Game, logger log.Logger) *ReelAnimator {
	return &ReelAnimator{
		session: session,
		render:  render,
		audio:   audio,
		clock:   clock,
		timing:  c.Timing,
		skip:    c.SkipAnimations,
		log:     log.NewHelper(log.With(logger, "module", "service/reels")),
	}
}

// SetObserver registers an overlay observer. nil removes it.
func (a *ReelAnimator) SetObserver(o biz.OverlayObserver) {
	a.mu.Lock()
	a.observer = o
	a.mu.Unlock()
}

// States returns a snapshot of every column state.
func (a *ReelAnimator) States() [biz.Reels]ColumnState {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.states
}

func (a *ReelAnimator) setState(col int, s ColumnState) {
	a.mu.Lock()
	a.states[col] = s
	a.mu.Unlock()
}

// StartSpin puts every column into Spinning. Columns begin moving on screen
// with a small stagger; StopSpin waits for all of them first.
func (a *ReelAnimator) StartSpin(ctx context.Context) {
	a.render.ClearHighlights()
	a.clearOverlays()

	g := new(errgroup.Group)
	for col := 0; col < biz.Reels; col++ {
		a.setState(col, ColumnSpinning)
		if a.skip {
			a.render.SpinReel(col)
			continue
		}
		offset := time.Duration(col) * a.timing.ReelStagger.Std()
		g.Go(func() error {
			if err := a.clock.Sleep(ctx, offset); err != nil {
				return err
			}
			a.render.SpinReel(col)
			return nil
		})
	}
	a.mu.Lock()
	a.starting = g
	a.mu.Unlock()
}

// StopSpin stops the columns left to right. Column i stops after
// baseDelay*i + anticipation[i]*anticipationUnit from the call, then the
// whole operation waits the settle delay.
func (a *ReelAnimator) StopSpin(ctx context.Context, board biz.Board, mode biz.GameMode, anticipation [biz.Reels]int) error {
	a.mu.Lock()
	g := a.starting
	a.starting = nil
	a.mu.Unlock()
	if g != nil {
		if err := g.Wait(); err != nil {
			return err
		}
	}

	if a.skip {
		for col := 0; col < biz.Reels; col++ {
			a.settle(col, board)
		}
		a.session.SetDisplayed(biz.TaggedBoard{Board: board, Mode: mode, Set: true})
		return nil
	}

	turbo := a.session.Turbo()
	base, unit := a.timing.ReelBaseDelay.Pick(turbo), a.timing.AnticipationUnit.Pick(turbo)
	var elapsed time.Duration
	for col := 0; col < biz.Reels; col++ {
		delay := base*time.Duration(col) + unit*time.Duration(anticipation[col])
		if delay > elapsed {
			if err := a.clock.Sleep(ctx, delay-elapsed); err != nil {
				return err
			}
			elapsed = delay
		}
		a.setState(col, ColumnStopping)
		if anticipation[col] > 0 {
			a.log.Debugw("msg", "anticipation", "col", col, "level", anticipation[col])
		}
		a.settle(col, board)
	}
	a.session.SetDisplayed(biz.TaggedBoard{Board: board, Mode: mode, Set: true})
	return a.clock.Sleep(ctx, a.timing.Settle.Pick(a.session.Turbo()))
}

// Halt settles spinning columns on the board already on screen, without delays.
func (a *ReelAnimator) Halt() {
	a.mu.Lock()
	g := a.starting
	a.starting = nil
	a.mu.Unlock()
	if g != nil {
		_ = g.Wait()
	}
	shown := a.session.Displayed()
	for col := 0; col < biz.Reels; col++ {
		if a.States()[col] == ColumnSpinning {
			a.setState(col, ColumnSettled)
			a.render.SettleReel(col, shown.Board[col])
		}
	}
}

// ShowBoard displays a board outside of a spin cycle.
func (a *ReelAnimator) ShowBoard(b biz.TaggedBoard) {
	a.clearOverlays()
	a.render.RenderBoard(b)
	b.Set = true
	a.session.SetDisplayed(b)
	for col := 0; col < biz.Reels; col++ {
		a.setState(col, ColumnSettled)
		a.attachOverlays(col, b.Board)
	}
}

func (a *ReelAnimator) settle(col int, board biz.Board) {
	a.setState(col, ColumnSettled)
	a.render.SettleReel(col, board[col])
	a.audio.Play(biz.SoundReelStop)
	a.attachOverlays(col, board)
}

func (a *ReelAnimator) attachOverlays(col int, board biz.Board) {
	for row, cell := range board[col] {
		if !cell.HasOverlay() {
			continue
		}
		pos := biz.GridPos{Reel: col, Row: row}
		a.render.AttachMultiplier(pos, cell.Multiplier)
		a.mu.Lock()
		a.overlays++
		o := a.observer
		a.mu.Unlock()
		if o != nil {
			o.OverlayAttached(pos, cell.Multiplier)
		}
	}
}

func (a *ReelAnimator) clearOverlays() {
	a.render.ClearMultipliers()
	a.mu.Lock()
	n := a.overlays
	a.overlays = 0
	o := a.observer
	a.mu.Unlock()
	if o != nil && n > 0 {
		o.OverlaysCleared(n)
	}
}
