package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"reelsync/internal/biz"
	"reelsync/internal/conf"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

const stake = biz.MicroUnit

// recorder is a goroutine safe Renderer and Audio that dismisses popups at once.
type recorder struct {
	mu         sync.Mutex
	calls      []string
	popups     []biz.Popup
	highlights map[biz.GridPos]string
	attached   []biz.GridPos
	wins       []decimal.Decimal
	sounds     []string
	music      []string
	controls   []bool
	freeSpins  [][2]int
	awaited    []biz.PopupKind
	hold       map[biz.PopupKind]bool // never dismissed by the player
}

func newRecorder() *recorder {
	return &recorder{highlights: map[biz.GridPos]string{}, hold: map[biz.PopupKind]bool{}}
}

func (r *recorder) call(format string, args ...any) {
	r.calls = append(r.calls, fmt.Sprintf(format, args...))
}

func (r *recorder) SpinReel(col int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.call("spin %d", col)
}

func (r *recorder) SettleReel(col int, _ [biz.Rows]biz.SymbolCell) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.call("settle %d", col)
}

func (r *recorder) RenderBoard(b biz.TaggedBoard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.call("board %s", b.Mode)
}

func (r *recorder) AttachMultiplier(pos biz.GridPos, value int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = append(r.attached, pos)
	r.call("multiplier %s x%d", pos, value)
}

func (r *recorder) ClearMultipliers() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attached = nil
}

func (r *recorder) Highlight(pos biz.GridPos, class string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlights[pos] = class
}

func (r *recorder) AnimateSymbol(biz.GridPos, string) {}

func (r *recorder) ClearHighlights() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.highlights = map[biz.GridPos]string{}
}

func (r *recorder) ShowPopup(p biz.Popup) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.popups = append(r.popups, p)
	r.call("popup %s", p.Kind)
}

func (r *recorder) HidePopup(kind biz.PopupKind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.call("hide %s", kind)
}

func (r *recorder) AwaitDismiss(ctx context.Context, kind biz.PopupKind) error {
	r.mu.Lock()
	r.awaited = append(r.awaited, kind)
	hold := r.hold[kind]
	r.mu.Unlock()
	if hold {
		<-ctx.Done()
		return ctx.Err()
	}
	return nil
}

func (r *recorder) SetWin(amount decimal.Decimal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.wins = append(r.wins, amount)
}

func (r *recorder) SetBalance(biz.Money) {}

func (r *recorder) SetControls(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.controls = append(r.controls, enabled)
}

func (r *recorder) SetFreeSpins(current, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.freeSpins = append(r.freeSpins, [2]int{current, total})
}

func (r *recorder) Play(sound string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sounds = append(r.sounds, sound)
}

func (r *recorder) Music(track string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.music = append(r.music, track)
}

func (r *recorder) popupsOf(kind biz.PopupKind) []biz.Popup {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []biz.Popup
	for _, p := range r.popups {
		if p.Kind == kind {
			out = append(out, p)
		}
	}
	return out
}

func (r *recorder) countCalls(prefix string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, c := range r.calls {
		if len(c) >= len(prefix) && c[:len(prefix)] == prefix {
			n++
		}
	}
	return n
}

func (r *recorder) lastControls() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.controls) > 0 && r.controls[len(r.controls)-1]
}

// fakeClock returns at once and keeps every requested wait.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.mu.Lock()
	c.sleeps = append(c.sleeps, d)
	c.now = c.now.Add(d)
	c.mu.Unlock()
	return ctx.Err()
}

func (c *fakeClock) waits() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

func (c *fakeClock) reset() {
	c.mu.Lock()
	c.sleeps = nil
	c.mu.Unlock()
}

func contains(ds []time.Duration, d time.Duration) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}

// fakeRepo serves scripted rounds.
type fakeRepo struct {
	mu      sync.Mutex
	session biz.Session
	results []*biz.RoundResult
	err     error
	replay  bool
	plays   int
	ends    int
	gate    chan struct{} // when set Play blocks until it is closed
}

func (f *fakeRepo) Authenticate(context.Context) (*biz.Session, error) {
	s := f.session
	return &s, nil
}

func (f *fakeRepo) Play(ctx context.Context, req *biz.RoundRequest) (*biz.RoundResult, error) {
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.plays++
	if f.err != nil {
		return nil, f.err
	}
	if req.Available < req.Cost() {
		return nil, biz.ErrInsufficientFunds
	}
	if len(f.results) == 0 {
		return nil, fmt.Errorf("no scripted round")
	}
	res := f.results[0]
	if len(f.results) > 1 {
		f.results = f.results[1:]
	}
	return res, nil
}

func (f *fakeRepo) EndRound(context.Context) (biz.Money, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	return f.session.Balance, nil
}

func (f *fakeRepo) Replay(ctx context.Context, turbo bool) (*biz.RoundResult, error) {
	return f.Play(ctx, &biz.RoundRequest{Amount: stake, Available: stake})
}

func (f *fakeRepo) IsReplay() bool { return f.replay }

func (f *fakeRepo) counts() (plays, ends int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.plays, f.ends
}

func newSession(balance int64) biz.Session {
	return biz.Session{
		Balance: biz.Money{Amount: balance, Currency: "USD"},
		Config:  biz.BetConfig{BetLevels: []int64{stake, 2 * stake}, DefaultBetLevel: stake, MinBet: stake},
	}
}

func testConf() *conf.Game {
	return &conf.Game{Timing: conf.DefaultTiming(), StopOnBonus: true}
}

type env struct {
	rec   *recorder
	clock *fakeClock
	repo  *fakeRepo
	game  *Game
}

func newEnv(t *testing.T, c *conf.Game) *env {
	t.Helper()
	e := &env{
		rec:   newRecorder(),
		clock: &fakeClock{},
		repo:  &fakeRepo{session: newSession(100 * stake)},
	}
	e.game = NewGame(e.repo, e.rec, e.rec, e.clock, c, log.NewStdLogger(io.Discard))
	if err := e.game.Open(context.Background()); err != nil {
		t.Fatalf("open: %v", err)
	}
	return e
}

var codes = [biz.Reels][biz.Rows]string{
	{"H1", "L1", "L2"},
	{"H1", "L3", "L4"},
	{"H1", "L5", "S"},
	{"L1", "L2", "L3"},
	{"L4", "L5", "H2"},
}

func board(mults map[biz.GridPos]int) biz.Board {
	var b biz.Board
	for reel := range codes {
		for row, code := range codes[reel] {
			b[reel][row] = biz.SymbolCell{Code: code, Multiplier: mults[biz.GridPos{Reel: reel, Row: row}]}
		}
	}
	return b
}

func reveal(mode biz.GameMode) biz.Reveal {
	return biz.Reveal{Board: board(nil), GameType: mode}
}

// h1Line wins on the three top row H1 symbols.
func h1Line(amount int64) biz.WinInfo {
	return biz.WinInfo{TotalWin: amount, Wins: []biz.WinEntry{{
		Symbol:    "H1",
		Kind:      3,
		Win:       amount,
		Positions: []biz.WinPosition{{Reel: 0, Row: 1}, {Reel: 1, Row: 1}, {Reel: 2, Row: 1}},
	}}}
}

// bonusRound builds a base spin that triggers spins free spins, each winning
// perSpin, followed by FreeSpinEnd and FinalWin.
func bonusRound(spins int, perSpin, final int64) []biz.Event {
	events := []biz.Event{
		reveal(biz.ModeBase),
		biz.FreeSpinTrigger{TotalFs: spins, Positions: []biz.WinPosition{{Reel: 2, Row: 3}}},
	}
	for i := 1; i <= spins; i++ {
		events = append(events, reveal(biz.ModeBonus))
		if perSpin > 0 {
			events = append(events, h1Line(perSpin))
		}
		events = append(events, biz.UpdateFreeSpin{Amount: i, Total: spins})
	}
	return append(events, biz.FreeSpinEnd{}, biz.FinalWin{Amount: final})
}
