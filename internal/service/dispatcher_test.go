package service

import (
	"context"
	"testing"

	"reelsync/internal/biz"
)

func notes(entries []JournalEntry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Note
	}
	return out
}

func assertNotes(t *testing.T, got []JournalEntry, want ...string) {
	t.Helper()
	n := notes(got)
	if len(n) != len(want) {
		t.Fatalf("notes = %v, want %v", n, want)
	}
	for i := range want {
		if n[i] != want[i] {
			t.Fatalf("notes = %v, want %v", n, want)
		}
	}
}

func TestDispatchSuppressesDuplicateTotals(t *testing.T) {
	e := newEnv(t, testConf())
	events := []biz.Event{
		reveal(biz.ModeBase),
		h1Line(500),
		biz.SetTotalWin{Amount: 500},
		biz.FinalWin{Amount: 500},
	}
	if err := e.game.dispatch.Run(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	assertNotes(t, e.game.Journal(), NoteShown, NotePresented, NoteDuplicate, NoteDuplicate)
	if len(e.rec.wins) != 1 || !e.rec.wins[0].Equal(biz.DisplayAmount(500, stake)) {
		t.Fatalf("win display updates = %v", e.rec.wins)
	}
}

func TestDispatchUpdatesChangedTotals(t *testing.T) {
	e := newEnv(t, testConf())
	events := []biz.Event{
		reveal(biz.ModeBase),
		biz.SetWin{Amount: 40, WinLevel: 1},
		biz.SetTotalWin{Amount: 200},
		biz.SetTotalWin{Amount: 200},
		biz.FinalWin{Amount: 250},
		biz.Unknown{Type: "wincap"},
	}
	if err := e.game.dispatch.Run(context.Background(), events); err != nil {
		t.Fatal(err)
	}
	assertNotes(t, e.game.Journal(), NoteShown, NoteRecorded, NoteTotal, NoteDuplicate, NoteTotal, NoteIgnored)
	if len(e.rec.wins) != 2 {
		t.Fatalf("win display updates = %v", e.rec.wins)
	}
}

func TestDispatchRevealOfSettledBoardOnlyTags(t *testing.T) {
	e := newEnv(t, testConf())
	b := board(map[biz.GridPos]int{{Reel: 0, Row: 0}: 3})
	ctx := context.Background()

	e.game.reels.StartSpin(ctx)
	if err := e.game.reels.StopSpin(ctx, b, biz.ModeBonus, [biz.Reels]int{}); err != nil {
		t.Fatal(err)
	}
	if err := e.game.dispatch.Run(ctx, []biz.Event{biz.Reveal{Board: b, GameType: biz.ModeBonus}}); err != nil {
		t.Fatal(err)
	}
	assertNotes(t, e.game.Journal(), NoteTagged)
	if len(e.rec.attached) != 1 {
		t.Fatalf("overlays = %v", e.rec.attached)
	}
}

func TestDispatchZeroWinIsRecordedOnly(t *testing.T) {
	e := newEnv(t, testConf())
	if err := e.game.dispatch.Run(context.Background(), []biz.Event{reveal(biz.ModeBase), biz.WinInfo{}}); err != nil {
		t.Fatal(err)
	}
	assertNotes(t, e.game.Journal(), NoteShown, NoteNoWin)
	if len(e.rec.sounds) != 0 {
		t.Fatalf("sounds = %v", e.rec.sounds)
	}
}

func TestDispatchMismatchStillPresents(t *testing.T) {
	e := newEnv(t, testConf())
	win := biz.WinInfo{TotalWin: 300, Wins: []biz.WinEntry{{
		Symbol: "H2", Win: 300,
		Positions: []biz.WinPosition{{Reel: 0, Row: 1}, {Reel: 9, Row: 1}},
	}}}
	if err := e.game.dispatch.Run(context.Background(), []biz.Event{reveal(biz.ModeBase), win}); err != nil {
		t.Fatal(err)
	}
	assertNotes(t, e.game.Journal(), NoteShown, NotePresented)
}
