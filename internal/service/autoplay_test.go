package service

import (
	"context"
	"testing"
	"time"

	"reelsync/internal/biz"
)

func waitAutoplay(t *testing.T, g *Game) {
	t.Helper()
	done := g.AutoplayDone()
	if done == nil {
		t.Fatal("autoplay never started")
	}
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("autoplay did not finish")
	}
}

func TestAutoplayRunsCount(t *testing.T) {
	e := newEnv(t, testConf())
	e.repo.results = []*biz.RoundResult{result(baseRound(0), 0)}

	if err := e.game.StartAutoplay(context.Background(), 3); err != nil {
		t.Fatal(err)
	}
	waitAutoplay(t, e.game)
	if plays, _ := e.repo.counts(); plays != 3 {
		t.Fatalf("plays = %d", plays)
	}
	if e.game.Session().Autoplay.Active() {
		t.Fatal("autoplay still active")
	}
	waits := e.clock.waits()
	if waits[0] != time.Second {
		t.Fatalf("first autoplay wait = %v", waits[0])
	}
	n := 0
	for _, d := range waits {
		if d == 1500*time.Millisecond {
			n++
		}
	}
	// between rounds only, none after the last
	if n < 2 {
		t.Fatalf("inter round waits = %d", n)
	}
}

func TestAutoplayStopsOnBonus(t *testing.T) {
	e := newEnv(t, testConf())
	e.repo.results = []*biz.RoundResult{result(bonusRound(2, 0, 0), 0)}

	if err := e.game.StartAutoplay(context.Background(), 5); err != nil {
		t.Fatal(err)
	}
	waitAutoplay(t, e.game)
	if plays, _ := e.repo.counts(); plays != 1 {
		t.Fatalf("plays = %d", plays)
	}
}

func TestAutoplayContinuesThroughBonus(t *testing.T) {
	c := testConf()
	c.StopOnBonus = false
	e := newEnv(t, c)
	e.repo.results = []*biz.RoundResult{result(bonusRound(1, 0, 0), 0)}

	if err := e.game.StartAutoplay(context.Background(), 2); err != nil {
		t.Fatal(err)
	}
	waitAutoplay(t, e.game)
	if plays, _ := e.repo.counts(); plays != 2 {
		t.Fatalf("plays = %d", plays)
	}
}

func TestAutoplayStopsOnInsufficientFunds(t *testing.T) {
	e := newEnv(t, testConf())
	e.game.Session().SetBalance(biz.Money{Amount: stake / 2, Currency: "USD"})

	if err := e.game.StartAutoplay(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	waitAutoplay(t, e.game)
	if plays, _ := e.repo.counts(); plays != 0 {
		t.Fatalf("plays = %d", plays)
	}
	if e.game.Session().Autoplay.Active() {
		t.Fatal("autoplay still active")
	}
}

func TestAutoplayStopsOnError(t *testing.T) {
	e := newEnv(t, testConf())
	e.repo.err = biz.ErrNetwork

	if err := e.game.StartAutoplay(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	waitAutoplay(t, e.game)
	if plays, _ := e.repo.counts(); plays != 1 {
		t.Fatalf("plays = %d", plays)
	}
}

func TestAutoplayStop(t *testing.T) {
	e := newEnv(t, testConf())
	e.repo.gate = make(chan struct{})
	e.repo.results = []*biz.RoundResult{result(baseRound(0), 0)}

	if err := e.game.StartAutoplay(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	for !e.game.Session().IsBusy() {
		time.Sleep(time.Millisecond)
	}
	e.game.StopAutoplay()
	close(e.repo.gate)
	waitAutoplay(t, e.game)
	// the round in flight completes, no further round starts
	if plays, _ := e.repo.counts(); plays != 1 {
		t.Fatalf("plays = %d", plays)
	}
}
