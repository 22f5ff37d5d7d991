package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
	"golang.org/x/sync/errgroup"
)

// WinOutcome describes one presented win.
type WinOutcome struct {
	Amount      decimal.Decimal
	Multiplier  decimal.Decimal
	Tier        biz.Tier
	Sound       string
	Highlighted []Highlight
	Wait        time.Duration // minimum tier wait applied
	Animation   time.Duration // symbol animation length
}

// Highlight is one highlighted position.
type Highlight struct {
	Pos   biz.GridPos
	Class string
}

// WinSequencer presents a win: highlight, symbol animation, popup and sound.
type WinSequencer struct {
	session *biz.RoundSessionState
	render  biz.Renderer
	audio   biz.Audio
	clock   biz.Clock
	timing  *conf.Timing
	pick    func(n int) int
	log     *log.Helper
}

// NewWinSequencer .
func NewWinSequencer(session *biz.RoundSessionState, render biz.Renderer, audio biz.Audio, clock biz.Clock, c *conf.Game, logger log.Logger) *WinSequencer {
	return &WinSequencer{
		session: session,
		render:  render,
		audio:   audio,
		clock:   clock,
		timing:  c.Timing,
		pick:    rand.IntN,
		log:     log.NewHelper(log.With(logger, "module", "service/wins")),
	}
}

// Present resolves once the tier wait, the symbol animation and the popup
// lifecycle have all finished, followed by a short safety wait.
func (w *WinSequencer) Present(ctx context.Context, ev biz.WinInfo, amount decimal.Decimal, stake int64) (*WinOutcome, error) {
	turbo := w.session.Turbo()
	mult := biz.BetMultiplier(amount, stake)
	out := &WinOutcome{
		Amount:      amount,
		Multiplier:  mult,
		Tier:        biz.TierFor(mult),
		Highlighted: w.positions(ev, stake),
	}

	w.session.SetLastWin(amount)
	w.render.SetWin(amount)

	if out.Tier >= biz.TierBig {
		out.Sound = fmt.Sprintf(biz.SoundBigWinFmt, w.pick(biz.BigWinPoolSize)+1)
	} else {
		out.Sound = biz.SoundSmallWin
	}
	w.audio.Play(out.Sound)

	shown := w.session.Displayed()
	frames := 0
	for _, h := range out.Highlighted {
		frames = max(frames, w.frames(shown.Board.At(h.Pos).Code))
	}
	frameDelay := w.timing.FrameDelay.Pick(turbo)
	out.Animation = w.timing.NoSymbolWait.Std()
	if frames > 0 {
		out.Animation = time.Duration(frames*w.timing.Cycles(turbo)) * frameDelay
	}
	out.Wait = w.tierWait(mult, turbo)

	w.log.Debugw("msg", "present win",
		"amount", amount.String(),
		"multiplier", mult.StringFixed(2),
		"tier", out.Tier,
		"positions", len(out.Highlighted),
		"animation", out.Animation,
		"wait", out.Wait)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.clock.Sleep(gctx, out.Wait)
	})
	g.Go(func() error {
		for _, h := range out.Highlighted {
			w.render.Highlight(h.Pos, h.Class)
			w.render.AnimateSymbol(h.Pos, shown.Board.At(h.Pos).Code)
		}
		return w.clock.Sleep(gctx, out.Animation)
	})
	g.Go(func() error {
		if out.Tier == biz.TierSmall {
			w.render.ShowPopup(biz.Popup{
				Kind:         biz.PopupFlash,
				Tier:         out.Tier.String(),
				Amount:       amount,
				ServerAmount: ev.TotalWin,
				TTL:          w.timing.FlashDisplay.Std(),
			})
			return nil
		}
		// the popup waits for the first animation cycle
		cycle := time.Duration(max(frames, w.timing.HighFrames)) * frameDelay
		if err := w.clock.Sleep(gctx, cycle); err != nil {
			return err
		}
		w.render.ShowPopup(biz.Popup{
			Kind:         biz.PopupTier,
			Tier:         out.Tier.String(),
			Amount:       amount,
			ServerAmount: ev.TotalWin,
		})
		if err := w.clock.Sleep(gctx, w.timing.PopupDisplay.Std()); err != nil {
			return err
		}
		w.render.HidePopup(biz.PopupTier)
		return w.clock.Sleep(gctx, w.timing.PopupFade.Std())
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, w.clock.Sleep(ctx, w.timing.SafetyWait.Std())
}

// positions returns every valid declared position with its highlight class,
// ordered by reel then row. A position shared by several entries keeps the
// strongest class.
func (w *WinSequencer) positions(ev biz.WinInfo, stake int64) []Highlight {
	rank := map[string]int{biz.ClassWinning: 0, biz.ClassBigWin: 1, biz.ClassMegaWin: 2}
	classes := make(map[biz.GridPos]string)
	for _, entry := range ev.Wins {
		class := biz.HighlightClass(biz.BetMultiplier(biz.DisplayAmount(entry.Win, stake), stake))
		valid, invalid := biz.GridPositions(entry.Positions)
		for _, p := range invalid {
			w.log.Warnw("msg", "win position out of grid", "symbol", entry.Symbol, "reel", p.Reel, "row", p.Row)
		}
		for _, pos := range valid {
			if prev, ok := classes[pos]; !ok || rank[class] > rank[prev] {
				classes[pos] = class
			}
		}
	}
	out := make([]Highlight, 0, len(classes))
	for pos, class := range classes {
		out = append(out, Highlight{Pos: pos, Class: class})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Pos.Reel != out[j].Pos.Reel {
			return out[i].Pos.Reel < out[j].Pos.Reel
		}
		return out[i].Pos.Row < out[j].Pos.Row
	})
	return out
}

func (w *WinSequencer) frames(code string) int { return symbolFrames(w.timing, code) }

func symbolFrames(t *conf.Timing, code string) int {
	if biz.IsLow(code) {
		return t.LowFrames
	}
	return t.HighFrames
}

// symbolAnimation is the full run of a symbol animation, every cycle included.
func symbolAnimation(t *conf.Timing, code string, turbo bool) time.Duration {
	return time.Duration(symbolFrames(t, code)*t.Cycles(turbo)) * t.FrameDelay.Pick(turbo)
}

func (w *WinSequencer) tierWait(mult decimal.Decimal, turbo bool) time.Duration {
	auto := w.session.Autoplay.Active()
	high := mult.GreaterThanOrEqual(decimal.NewFromInt(10))
	switch {
	case high && auto:
		return w.timing.TierWaitHighAuto.Pick(turbo)
	case high:
		return w.timing.TierWaitHigh.Pick(turbo)
	case auto:
		return w.timing.TierWaitLowAuto.Pick(turbo)
	default:
		return w.timing.TierWaitLow.Pick(turbo)
	}
}
