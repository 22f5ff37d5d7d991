package biz

import (
	"fmt"
	"strings"

	"reelsync/encoding"
)

const (
	Reels = 5 // columns
	Rows  = 3 // visible rows per column

	WildCode    = "W"
	ScatterCode = "S"
)

// GameMode selects the reel set that produced a board.
type GameMode string

const (
	ModeBase  GameMode = "basegame"
	ModeBonus GameMode = "freegame"
)

// SymbolCell is one visible position on the board.
type SymbolCell struct {
	Code       string `json:"name"`
	Multiplier int    `json:"multiplier,omitempty"`
}

// HasOverlay reports whether the cell carries a visible multiplier.
func (c SymbolCell) HasOverlay() bool { return c.Multiplier > 1 }

// IsLow reports whether the symbol uses the short animation strip.
func IsLow(code string) bool { return strings.HasPrefix(code, "L") }

// Board is indexed [reel][row], row 0 at the top.
type Board [Reels][Rows]SymbolCell

// UnmarshalJSON rejects boards that are not exactly 5x3.
func (b *Board) UnmarshalJSON(data []byte) error {
	var cols [][]SymbolCell
	if err := encoding.Unmarshal(data, &cols); err != nil {
		return err
	}
	if len(cols) != Reels {
		return fmt.Errorf("board has %d reels, want %d", len(cols), Reels)
	}
	for reel, col := range cols {
		if len(col) != Rows {
			return fmt.Errorf("reel %d has %d rows, want %d", reel, len(col), Rows)
		}
		copy(b[reel][:], col)
	}
	return nil
}

// At returns the cell at a grid position.
func (b *Board) At(p GridPos) SymbolCell { return b[p.Reel][p.Row] }

// TaggedBoard is a board together with the reel set that produced it.
type TaggedBoard struct {
	Board Board
	Mode  GameMode
	Set   bool // false until the first board is shown
}

// GridPos is a 0-based presentation coordinate.
type GridPos struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}

func (p GridPos) String() string { return fmt.Sprintf("%d:%d", p.Reel, p.Row) }

// WinPosition is a server coordinate: reel is 0-based, row is 1-based.
type WinPosition struct {
	Reel int `json:"reel"`
	Row  int `json:"row"`
}

// ToGrid converts a server coordinate. Out of range positions are rejected.
func (p WinPosition) ToGrid() (GridPos, bool) {
	if p.Reel < 0 || p.Reel >= Reels || p.Row < 1 || p.Row > Rows {
		return GridPos{}, false
	}
	return GridPos{Reel: p.Reel, Row: p.Row - 1}, true
}

// GridPositions converts positions, dropping and returning the invalid ones.
func GridPositions(in []WinPosition) (valid []GridPos, invalid []WinPosition) {
	for _, p := range in {
		if g, ok := p.ToGrid(); ok {
			valid = append(valid, g)
		} else {
			invalid = append(invalid, p)
		}
	}
	return valid, invalid
}
