package server

import (
	"context"
	"time"

	"reelsync/encoding"
	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// LogRenderer writes presentation commands to the log. Popups that wait for
// the player close after the configured auto-dismiss.
type LogRenderer struct {
	autoDismiss time.Duration
	log         *log.Helper
}

// NewLogRenderer .
func NewLogRenderer(c *conf.Game, logger log.Logger) *LogRenderer {
	return &LogRenderer{
		autoDismiss: c.AutoDismiss.Std(),
		log:         log.NewHelper(log.With(logger, "module", "server/render")),
	}
}

func (r *LogRenderer) SpinReel(col int) { r.log.Debugf("spin reel %d", col) }

func (r *LogRenderer) SettleReel(col int, cells [biz.Rows]biz.SymbolCell) {
	codes := make([]string, 0, len(cells))
	for _, c := range cells {
		codes = append(codes, c.Code)
	}
	r.log.Infow("msg", "settle reel", "col", col, "cells", codes)
}

func (r *LogRenderer) RenderBoard(b biz.TaggedBoard) {
	r.log.Infow("msg", "board", "mode", b.Mode, "board", encoding.ToJson(b.Board))
}

func (r *LogRenderer) AttachMultiplier(pos biz.GridPos, value int) {
	r.log.Infow("msg", "multiplier", "pos", pos.String(), "value", value)
}

func (r *LogRenderer) ClearMultipliers() {}

func (r *LogRenderer) Highlight(pos biz.GridPos, class string) {
	r.log.Debugw("msg", "highlight", "pos", pos.String(), "class", class)
}

func (r *LogRenderer) AnimateSymbol(pos biz.GridPos, code string) {
	r.log.Debugw("msg", "animate", "pos", pos.String(), "symbol", code)
}

func (r *LogRenderer) ClearHighlights() {}

func (r *LogRenderer) ShowPopup(p biz.Popup) {
	r.log.Infow("msg", "popup", "popup", encoding.ToJson(p))
}

func (r *LogRenderer) HidePopup(kind biz.PopupKind) { r.log.Debugf("hide popup %s", kind) }

func (r *LogRenderer) AwaitDismiss(ctx context.Context, kind biz.PopupKind) error {
	if r.autoDismiss <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(r.autoDismiss)
	defer t.Stop()
	select {
	case <-t.C:
		r.log.Debugf("popup %s auto dismissed", kind)
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *LogRenderer) SetWin(amount decimal.Decimal) { r.log.Infof("win %s", amount) }

func (r *LogRenderer) SetBalance(m biz.Money) {
	r.log.Infow("msg", "balance", "amount", m.Decimal().StringFixed(2), "currency", m.Currency)
}

func (r *LogRenderer) SetControls(enabled bool) { r.log.Debugf("controls enabled=%t", enabled) }

func (r *LogRenderer) SetFreeSpins(current, total int) {
	r.log.Infof("free spins %d/%d", current, total)
}

func (r *LogRenderer) Play(sound string)  { r.log.Debugf("sound %s", sound) }
func (r *LogRenderer) Music(track string) { r.log.Debugf("music %s", track) }
