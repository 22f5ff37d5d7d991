package data

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"reelsync/encoding"
	"reelsync/internal/biz"
	"reelsync/internal/conf"
	"reelsync/internal/server"

	"github.com/alicebob/miniredis/v2"
	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

const testBoard = `[[{"name":"H1"},{"name":"L1"},{"name":"L2"}],
[{"name":"H1"},{"name":"L3"},{"name":"L4"}],
[{"name":"H1"},{"name":"L5"},{"name":"S"}],
[{"name":"L1"},{"name":"L2"},{"name":"L3"}],
[{"name":"L4"},{"name":"L5"},{"name":"H2"}]]`

var testState = encoding.RawMessage(`[
	{"index":0,"type":"reveal","board":` + testBoard + `,"gameType":"basegame","anticipation":[0,0,0,0,0]},
	{"index":1,"type":"winInfo","totalWin":500,"wins":[{"symbol":"H1","kind":3,"win":500,"positions":[{"reel":0,"row":1},{"reel":1,"row":1},{"reel":2,"row":1}]}]},
	{"index":2,"type":"setTotalWin","amount":500},
	{"index":3,"type":"finalWin","amount":500}
]`)

func testBook() *server.StubBook {
	round := server.StubRound{
		Mode:             "BASE",
		PayoutMultiplier: decimal.NewFromInt(5),
		CostMultiplier:   decimal.NewFromInt(1),
		State:            testState,
	}
	return &server.StubBook{
		Currency:     "USD",
		StartBalance: 10 * biz.MicroUnit,
		BetLevels:    []int64{biz.MicroUnit, 2 * biz.MicroUnit},
		DefaultBet:   biz.MicroUnit,
		Rounds:       []server.StubRound{round},
		Replays:      map[string]server.StubRound{"g1/1/base/42": round},
	}
}

// fakeClock records waits and advances virtual time.
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

// logRecorder keeps every line logged at warn or above.
type logRecorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *logRecorder) Log(level log.Level, keyvals ...any) error {
	if level < log.LevelWarn {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, fmt.Sprint(keyvals...))
	return nil
}

func (r *logRecorder) contains(sub string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.lines {
		if strings.Contains(l, sub) {
			return true
		}
	}
	return false
}

type harness struct {
	srv    *httptest.Server
	data   *Data
	rgs    *RGSClient
	cache  *ReplayCache
	clock  *fakeClock
	client biz.RoundRepo
}

func newHarness(t *testing.T, launch biz.LaunchParams, redisAddr string) *harness {
	t.Helper()
	return newHarnessWithLogger(t, launch, redisAddr, log.NewStdLogger(io.Discard))
}

func newHarnessWithLogger(t *testing.T, launch biz.LaunchParams, redisAddr string, logger log.Logger) *harness {
	t.Helper()
	srv := httptest.NewServer(server.NewRGSStub(testBook(), logger))
	t.Cleanup(srv.Close)

	launch.RGSURL = srv.URL
	c := &conf.Data{
		RGS:   &conf.RGS{URL: srv.URL, Timeout: conf.Duration(5 * time.Second)},
		Redis: &conf.Redis{Addr: redisAddr, TTL: conf.Duration(time.Hour)},
	}
	rdb, closeRedis, err := NewRedis(c, logger)
	if err != nil {
		t.Fatalf("new redis: %v", err)
	}
	t.Cleanup(closeRedis)
	d, cleanup, err := NewData(c, logger, rdb)
	if err != nil {
		t.Fatalf("new data: %v", err)
	}
	t.Cleanup(cleanup)

	h := &harness{srv: srv, data: d, clock: &fakeClock{}}
	h.rgs = NewRGSClient(d, launch, logger)
	h.cache = NewReplayCache(d, c, logger)
	h.client = NewRoundClient(h.rgs, h.cache, h.clock, &conf.Game{Timing: conf.DefaultTiming()}, launch, logger)
	return h
}

func newRedis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	return miniredis.RunT(t)
}
