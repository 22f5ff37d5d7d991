package biz

import (
	"github.com/shopspring/decimal"
)

// MicroUnit is the minor unit scale: 1000000 is one whole currency unit.
const MicroUnit = 1_000_000

// Money is an integer amount in minor units.
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

// Decimal returns the amount in whole currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, 0).Div(decimal.New(MicroUnit, 0))
}

var hundred = decimal.NewFromInt(100)

// DisplayAmount converts a server win amount, expressed against a base bet of 100,
// into minor units at the given stake.
func DisplayAmount(serverAmount, stake int64) decimal.Decimal {
	return decimal.NewFromInt(serverAmount).Mul(decimal.NewFromInt(stake)).Div(hundred)
}

// BetMultiplier returns amount/stake. A non positive stake yields zero.
func BetMultiplier(amount decimal.Decimal, stake int64) decimal.Decimal {
	if stake <= 0 {
		return decimal.Zero
	}
	return amount.Div(decimal.NewFromInt(stake))
}

// Tier is a win size class.
type Tier int

const (
	TierSmall Tier = iota
	TierBig
	TierHuge
	TierMega
	TierJackpot
)

func (t Tier) String() string {
	return [...]string{"small", "big", "huge", "mega", "jackpot"}[t]
}

var (
	bigAt     = decimal.NewFromInt(3)
	hugeAt    = decimal.NewFromInt(10)
	megaAt    = decimal.NewFromInt(25)
	jackpotAt = decimal.NewFromInt(100)
)

// TierFor classifies a bet multiplier. Each lower bound is inclusive.
func TierFor(multiplier decimal.Decimal) Tier {
	switch {
	case multiplier.GreaterThanOrEqual(jackpotAt):
		return TierJackpot
	case multiplier.GreaterThanOrEqual(megaAt):
		return TierMega
	case multiplier.GreaterThanOrEqual(hugeAt):
		return TierHuge
	case multiplier.GreaterThanOrEqual(bigAt):
		return TierBig
	default:
		return TierSmall
	}
}

// Highlight classes for winning positions.
const (
	ClassWinning = "winning-symbol"
	ClassBigWin  = "big-win"
	ClassMegaWin = "mega-win"
)

// HighlightClass picks the position class from a single win entry's multiplier.
func HighlightClass(multiplier decimal.Decimal) string {
	switch {
	case multiplier.GreaterThanOrEqual(hugeAt):
		return ClassMegaWin
	case multiplier.GreaterThanOrEqual(bigAt):
		return ClassBigWin
	default:
		return ClassWinning
	}
}
