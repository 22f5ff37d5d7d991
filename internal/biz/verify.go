package biz

// PositionCheck is the outcome for one declared win position.
type PositionCheck struct {
	Server   WinPosition
	Grid     GridPos
	Expected string // declared symbol
	Shown    string // symbol on the displayed board
	Valid    bool   // position inside the grid
	Match    bool
}

// IntegrityReport compares one WinInfo against the displayed board.
type IntegrityReport struct {
	Mode       GameMode
	Checks     []PositionCheck
	Mismatches int
	Invalid    int
}

// OK reports whether every declared position agrees with the board.
func (r IntegrityReport) OK() bool { return r.Mismatches == 0 && r.Invalid == 0 }

// VerifyWin recomputes each declared position from the displayed board. The wild
// code satisfies any symbol. It has no side effects.
func VerifyWin(win WinInfo, shown TaggedBoard) IntegrityReport {
	report := IntegrityReport{Mode: shown.Mode}
	for _, entry := range win.Wins {
		for _, pos := range entry.Positions {
			check := PositionCheck{Server: pos, Expected: entry.Symbol}
			grid, ok := pos.ToGrid()
			if !ok {
				report.Invalid++
				report.Checks = append(report.Checks, check)
				continue
			}
			check.Grid, check.Valid = grid, true
			check.Shown = shown.Board.At(grid).Code
			check.Match = check.Shown == entry.Symbol || check.Shown == WildCode
			if !check.Match {
				report.Mismatches++
			}
			report.Checks = append(report.Checks, check)
		}
	}
	return report
}
