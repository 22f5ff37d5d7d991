package biz

import (
	"testing"
)

func TestAdmission(t *testing.T) {
	var s RoundSessionState
	if !s.TryAcquire() {
		t.Fatal("first acquire failed")
	}
	if s.TryAcquire() {
		t.Fatal("second acquire must be rejected while busy")
	}
	s.Release()
	if s.IsBusy() || !s.TryAcquire() {
		t.Fatal("release did not free the session")
	}
}

func TestAutoplayConsume(t *testing.T) {
	var a AutoplayState
	a.Start(2, false)
	if !a.Consume() {
		t.Fatal("one round left, should continue")
	}
	if a.Consume() {
		t.Fatal("counter exhausted, should stop")
	}
	if a.Active() {
		t.Fatal("autoplay still active")
	}

	a.Start(0, true)
	for i := 0; i < 50; i++ {
		if !a.Consume() {
			t.Fatalf("infinite autoplay stopped at %d", i)
		}
	}
	if !a.StopOnBonus() || a.Active() {
		t.Fatal("stop on bonus did not stop")
	}
	if a.Consume() {
		t.Fatal("stopped autoplay continued")
	}
}

func TestBetConfigDefaultStake(t *testing.T) {
	cases := []struct {
		c    BetConfig
		want int64
	}{
		{BetConfig{BetLevels: []int64{100, 200}, DefaultBetLevel: 200, MinBet: 100}, 200},
		{BetConfig{BetLevels: []int64{100, 200}, MinBet: 150}, 150},
		{BetConfig{BetLevels: []int64{300, 200}}, 300},
		{BetConfig{}, MicroUnit},
	}
	for i, c := range cases {
		if got := c.c.DefaultStake(); got != c.want {
			t.Errorf("case %d: %d, want %d", i, got, c.want)
		}
	}
	if (BetConfig{BetLevels: []int64{1, 2}}).Allows(3) {
		t.Error("stake outside levels allowed")
	}
}
