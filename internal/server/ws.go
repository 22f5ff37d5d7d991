package server

import (
	"context"
	"net/http"
	"sync"
	"time"

	"reelsync/encoding"
	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second
	sendBuffer = 256

	opPopup = "popup"
)

// Controller is the game surface a viewer may drive.
type Controller interface {
	Spin(ctx context.Context, mode biz.RoundMode) error
	SetTurbo(on bool)
	SetBet(stake int64) error
	StartAutoplay(ctx context.Context, count int) error
	StopAutoplay()
}

// Frame is one presentation command sent to viewers.
type Frame struct {
	Op   string `json:"op"`
	Data any    `json:"data,omitempty"`
}

// Input is one viewer command.
type Input struct {
	Op    string        `json:"op"` // dismiss, spin, buy, turbo, autoplay, stop, bet
	Kind  biz.PopupKind `json:"kind,omitempty"`
	On    bool          `json:"on,omitempty"`
	Count int           `json:"count,omitempty"`
	Stake int64         `json:"stake,omitempty"`
}

type viewer struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (v *viewer) close() {
	v.once.Do(func() { close(v.send) })
}

// Hub renders to every connected websocket viewer and takes their input.
// It implements biz.Renderer and biz.Audio.
type Hub struct {
	upgrader    websocket.Upgrader
	autoDismiss time.Duration
	log         *log.Helper

	mu      sync.RWMutex
	viewers map[string]*viewer
	latest  map[string][]byte // last frame per stateful op, replayed to new viewers
	popup   biz.PopupKind     // blocking popup on screen, kept in latest
	waiters map[biz.PopupKind]chan struct{}
	ctrl    Controller
	ctx     context.Context
}

// NewHub .
func NewHub(c *conf.Game, logger log.Logger) *Hub {
	return &Hub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		autoDismiss: c.AutoDismiss.Std(),
		log:         log.NewHelper(log.With(logger, "module", "server/hub")),
		viewers:     make(map[string]*viewer),
		latest:      make(map[string][]byte),
		waiters:     make(map[biz.PopupKind]chan struct{}),
		ctx:         context.Background(),
	}
}

// Attach routes viewer input to ctrl. Rounds started from input run under ctx.
func (h *Hub) Attach(ctx context.Context, ctrl Controller) {
	h.mu.Lock()
	h.ctrl, h.ctx = ctrl, ctx
	h.mu.Unlock()
}

// Viewers returns the number of connected viewers.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.viewers)
}

// ServeHTTP upgrades the connection and registers the viewer.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	v := &viewer{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer)}

	hello, _ := encoding.Marshal(Frame{Op: "hello", Data: map[string]string{"id": v.id}})
	v.send <- hello
	h.mu.Lock()
	for _, b := range h.latest {
		select {
		case v.send <- b:
		default:
		}
	}
	h.viewers[v.id] = v
	h.mu.Unlock()

	go h.writePump(v)
	go h.readPump(v)
	h.log.Infow("msg", "viewer connected", "viewer", v.id, "remote", r.RemoteAddr)
}

func (h *Hub) remove(v *viewer) {
	h.mu.Lock()
	delete(h.viewers, v.id)
	h.mu.Unlock()
	v.close()
	h.log.Infof("viewer %s disconnected", v.id)
}

func (h *Hub) readPump(v *viewer) {
	defer h.remove(v)
	_ = v.conn.SetReadDeadline(time.Now().Add(pongWait))
	v.conn.SetPongHandler(func(string) error {
		return v.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		_, msg, err := v.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Warnf("viewer %s read: %v", v.id, err)
			}
			return
		}
		var in Input
		if err := encoding.Unmarshal(msg, &in); err != nil {
			h.log.Warnf("bad input from viewer %s: %v", v.id, err)
			continue
		}
		h.handle(v, in)
	}
}

func (h *Hub) writePump(v *viewer) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = v.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-v.send:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = v.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Warnf("viewer %s write: %v", v.id, err)
				return
			}
		case <-ticker.C:
			_ = v.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := v.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) handle(v *viewer, in Input) {
	if in.Op == "dismiss" {
		h.Dismiss(in.Kind)
		return
	}
	h.mu.RLock()
	ctrl, ctx := h.ctrl, h.ctx
	h.mu.RUnlock()
	if ctrl == nil {
		h.log.Warnf("viewer input %s before the game is attached", in.Op)
		return
	}

	ilog := log.NewHelper(log.With(h.log.Logger(), "viewer", v.id, "op", in.Op))
	switch in.Op {
	case "spin", "buy":
		mode := biz.RoundBase
		if in.Op == "buy" {
			mode = biz.RoundBonusBuy
		}
		// a round blocks on dismissals that arrive through this same reader
		go func() {
			if err := ctrl.Spin(ctx, mode); err != nil {
				ilog.Infof("spin rejected: %v", err)
			}
		}()
	case "turbo":
		ctrl.SetTurbo(in.On)
	case "bet":
		if err := ctrl.SetBet(in.Stake); err != nil {
			ilog.Infof("bet %d rejected: %v", in.Stake, err)
		}
	case "autoplay":
		if err := ctrl.StartAutoplay(ctx, in.Count); err != nil {
			ilog.Infof("autoplay rejected: %v", err)
		}
	case "stop":
		ctrl.StopAutoplay()
	default:
		ilog.Warn("unknown viewer input")
	}
}

// Dismiss releases whoever waits on the popup kind.
func (h *Hub) Dismiss(kind biz.PopupKind) {
	h.mu.Lock()
	ch, ok := h.waiters[kind]
	delete(h.waiters, kind)
	h.forgetPopup(kind)
	h.mu.Unlock()
	if ok {
		close(ch)
	}
}

func (h *Hub) broadcast(op string, data any, keep bool) {
	b, err := encoding.Marshal(Frame{Op: op, Data: data})
	if err != nil {
		h.log.Errorf("encode frame %s: %v", op, err)
		return
	}
	var slow []*viewer
	h.mu.Lock()
	if keep {
		h.latest[op] = b
	}
	for _, v := range h.viewers {
		select {
		case v.send <- b:
		default:
			slow = append(slow, v)
		}
	}
	for _, v := range slow {
		delete(h.viewers, v.id)
	}
	h.mu.Unlock()
	for _, v := range slow {
		h.log.Warnf("viewer %s too slow, dropped", v.id)
		v.close()
	}
}

func (h *Hub) SpinReel(col int) { h.broadcast("spinReel", map[string]int{"col": col}, false) }

func (h *Hub) SettleReel(col int, cells [biz.Rows]biz.SymbolCell) {
	h.broadcast("settleReel", map[string]any{"col": col, "cells": cells}, false)
}

func (h *Hub) RenderBoard(b biz.TaggedBoard) {
	h.broadcast("board", map[string]any{"board": b.Board, "mode": b.Mode}, true)
}

func (h *Hub) AttachMultiplier(pos biz.GridPos, value int) {
	h.broadcast("multiplier", map[string]any{"pos": pos, "value": value}, false)
}

func (h *Hub) ClearMultipliers() { h.broadcast("clearMultipliers", nil, false) }

func (h *Hub) Highlight(pos biz.GridPos, class string) {
	h.broadcast("highlight", map[string]any{"pos": pos, "class": class}, false)
}

func (h *Hub) AnimateSymbol(pos biz.GridPos, code string) {
	h.broadcast("animate", map[string]any{"pos": pos, "symbol": code}, false)
}

func (h *Hub) ClearHighlights() { h.broadcast("clearHighlights", nil, false) }

// ShowPopup keeps a blocking popup for late viewers until it is dismissed or hidden.
func (h *Hub) ShowPopup(p biz.Popup) {
	blocking := p.Kind.Blocking()
	if blocking {
		h.mu.Lock()
		h.popup = p.Kind
		h.mu.Unlock()
	}
	h.broadcast(opPopup, p, blocking)
}

func (h *Hub) HidePopup(kind biz.PopupKind) {
	h.mu.Lock()
	h.forgetPopup(kind)
	h.mu.Unlock()
	h.broadcast("hidePopup", map[string]biz.PopupKind{"kind": kind}, false)
}

// forgetPopup drops the replayed popup frame. h.mu must be held.
func (h *Hub) forgetPopup(kind biz.PopupKind) {
	if h.popup == kind {
		delete(h.latest, opPopup)
		h.popup = ""
	}
}

// AwaitDismiss blocks until a viewer dismisses the popup, the configured
// auto-dismiss elapses, or ctx ends.
func (h *Hub) AwaitDismiss(ctx context.Context, kind biz.PopupKind) error {
	h.mu.Lock()
	ch, ok := h.waiters[kind]
	if !ok {
		ch = make(chan struct{})
		h.waiters[kind] = ch
	}
	h.mu.Unlock()

	var auto <-chan time.Time
	if h.autoDismiss > 0 {
		t := time.NewTimer(h.autoDismiss)
		defer t.Stop()
		auto = t.C
	}
	select {
	case <-ch:
		return nil
	case <-auto:
		h.Dismiss(kind)
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		if h.waiters[kind] == ch {
			delete(h.waiters, kind)
		}
		h.mu.Unlock()
		return ctx.Err()
	}
}

func (h *Hub) SetWin(amount decimal.Decimal) { h.broadcast("win", map[string]any{"amount": amount}, true) }

func (h *Hub) SetBalance(m biz.Money) { h.broadcast("balance", m, true) }

func (h *Hub) SetControls(enabled bool) {
	h.broadcast("controls", map[string]bool{"enabled": enabled}, true)
}

func (h *Hub) SetFreeSpins(current, total int) {
	h.broadcast("freeSpins", map[string]int{"current": current, "total": total}, true)
}

func (h *Hub) Play(sound string) { h.broadcast("sound", map[string]string{"name": sound}, false) }

func (h *Hub) Music(track string) { h.broadcast("music", map[string]string{"track": track}, false) }

// OverlayAttached and OverlaysCleared trace the overlay lifecycle.
func (h *Hub) OverlayAttached(pos biz.GridPos, value int) {
	h.log.Debugw("msg", "overlay attached", "pos", pos.String(), "value", value)
}

func (h *Hub) OverlaysCleared(n int) { h.log.Debugf("%d overlays cleared", n) }
