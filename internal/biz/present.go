package biz

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PopupKind names a popup slot. One popup of a kind is visible at a time.
type PopupKind string

const (
	PopupFlash     PopupKind = "flash"     // small win
	PopupTier      PopupKind = "tier"      // big and above
	PopupTrigger   PopupKind = "trigger"   // bonus awarded
	PopupRetrigger PopupKind = "retrigger" // extra spins
	PopupSummary   PopupKind = "summary"   // bonus total
	PopupError     PopupKind = "error"
)

// Blocking reports whether the popup holds the round until it is dismissed.
func (k PopupKind) Blocking() bool {
	switch k {
	case PopupTrigger, PopupRetrigger, PopupSummary:
		return true
	}
	return false
}

// Popup is what the renderer shows. TTL > 0 means the renderer hides it on its own.
type Popup struct {
	Kind         PopupKind       `json:"kind"`
	Tier         string          `json:"tier,omitempty"`
	Amount       decimal.Decimal `json:"amount"`        // minor units
	ServerAmount int64           `json:"server_amount"` // as sent by the server
	Spins        int             `json:"spins,omitempty"`
	Message      string          `json:"message,omitempty"`
	TTL          time.Duration   `json:"ttl,omitempty"`
}

// Renderer paints presentation state. Calls must not block except AwaitDismiss.
type Renderer interface {
	SpinReel(col int)
	SettleReel(col int, cells [Rows]SymbolCell)
	RenderBoard(b TaggedBoard)
	AttachMultiplier(pos GridPos, value int)
	ClearMultipliers()
	Highlight(pos GridPos, class string)
	AnimateSymbol(pos GridPos, code string)
	ClearHighlights()
	ShowPopup(p Popup)
	HidePopup(kind PopupKind)
	// AwaitDismiss blocks until the player closes the popup or ctx ends.
	AwaitDismiss(ctx context.Context, kind PopupKind) error
	SetWin(amount decimal.Decimal)
	SetBalance(m Money)
	SetControls(enabled bool)
	SetFreeSpins(current, total int) // total 0 hides the counter
}

// Audio is fire and forget.
type Audio interface {
	Play(sound string)
	Music(track string)
}

// OverlayObserver is told about multiplier overlay lifecycle.
type OverlayObserver interface {
	OverlayAttached(pos GridPos, value int)
	OverlaysCleared(n int)
}

// Sound names.
const (
	SoundReelStop  = "reel-stop"
	SoundSmallWin  = "small-win"
	SoundBigWinFmt = "win-sfx-%d"
	SoundTrigger   = "bonus-trigger"
	SoundRetrigger = "bonus-retrigger"
	SoundSummary   = "bonus-summary"
	MusicBase      = "base"
	MusicBonus     = "bonus"
	BigWinPoolSize = 12
)
