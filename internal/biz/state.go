package biz

import (
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
)

// RoundSessionState lives for the whole process. The round path is its only
// writer while a round is in flight; player inputs go through the atomics.
type RoundSessionState struct {
	busy  atomic.Bool
	turbo atomic.Bool

	mu        sync.Mutex
	bet       int64
	balance   Money
	displayed TaggedBoard
	lastWin   decimal.Decimal // minor units shown by the last win presentation
	lastKnown bool
	betConfig BetConfig

	Autoplay AutoplayState
}

// TryAcquire admits a round. It fails without side effects when one is in flight.
func (s *RoundSessionState) TryAcquire() bool { return s.busy.CompareAndSwap(false, true) }

func (s *RoundSessionState) Release()     { s.busy.Store(false) }
func (s *RoundSessionState) IsBusy() bool { return s.busy.Load() }

func (s *RoundSessionState) Turbo() bool     { return s.turbo.Load() }
func (s *RoundSessionState) SetTurbo(v bool) { s.turbo.Store(v) }

func (s *RoundSessionState) Bet() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bet
}

func (s *RoundSessionState) SetBet(v int64) {
	s.mu.Lock()
	s.bet = v
	s.mu.Unlock()
}

func (s *RoundSessionState) BetConfig() BetConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.betConfig
}

func (s *RoundSessionState) SetBetConfig(c BetConfig) {
	s.mu.Lock()
	s.betConfig = c
	s.mu.Unlock()
}

func (s *RoundSessionState) Balance() Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.balance
}

func (s *RoundSessionState) SetBalance(m Money) {
	s.mu.Lock()
	s.balance = m
	s.mu.Unlock()
}

// Displayed is the board currently on screen.
func (s *RoundSessionState) Displayed() TaggedBoard {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.displayed
}

func (s *RoundSessionState) SetDisplayed(b TaggedBoard) {
	s.mu.Lock()
	s.displayed = b
	s.mu.Unlock()
}

// LastWin returns the amount shown by the last win presentation.
func (s *RoundSessionState) LastWin() (decimal.Decimal, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastWin, s.lastKnown
}

func (s *RoundSessionState) SetLastWin(v decimal.Decimal) {
	s.mu.Lock()
	s.lastWin, s.lastKnown = v, true
	s.mu.Unlock()
}

// ResetLastWin forgets the last win at the start of a round.
func (s *RoundSessionState) ResetLastWin() {
	s.mu.Lock()
	s.lastWin, s.lastKnown = decimal.Zero, false
	s.mu.Unlock()
}

// AutoplayState is the bounded repeat counter.
type AutoplayState struct {
	active      atomic.Bool
	mu          sync.Mutex
	remaining   int
	infinite    bool
	stopOnBonus bool
}

// Start arms autoplay. count 0 means infinite.
func (a *AutoplayState) Start(count int, stopOnBonus bool) {
	a.mu.Lock()
	a.remaining, a.infinite, a.stopOnBonus = count, count <= 0, stopOnBonus
	a.mu.Unlock()
	a.active.Store(true)
}

func (a *AutoplayState) Stop()        { a.active.Store(false) }
func (a *AutoplayState) Active() bool { return a.active.Load() }

func (a *AutoplayState) Remaining() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.remaining
}

// StopOnBonus stops autoplay when configured to and reports whether it did.
func (a *AutoplayState) StopOnBonus() bool {
	a.mu.Lock()
	stop := a.stopOnBonus
	a.mu.Unlock()
	if stop && a.active.Load() {
		a.active.Store(false)
		return true
	}
	return false
}

// Consume counts one finished round and reports whether another may follow.
func (a *AutoplayState) Consume() bool {
	if !a.active.Load() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.infinite {
		return true
	}
	a.remaining--
	if a.remaining <= 0 {
		a.remaining = 0
		a.active.Store(false)
		return false
	}
	return true
}

// BonusState spans FreeSpinTrigger to the end of the summary presentation.
type BonusState struct {
	Active           bool
	SpinsTotal       int
	SpinsCompleted   int
	PlayedSpins      int             // reel cycles actually run
	AccumulatedWin   decimal.Decimal // minor units
	TriggerPositions []WinPosition
	Ended            bool // FreeSpinEnd seen
}

// Reset returns the state to inactive and zeroed.
func (b *BonusState) Reset() { *b = BonusState{} }

// Remaining is the number of spins still owed.
func (b *BonusState) Remaining() int {
	if n := b.SpinsTotal - b.SpinsCompleted; n > 0 {
		return n
	}
	return 0
}
