package biz

import (
	"testing"
)

func kinds(events []Event) []EventKind {
	out := make([]EventKind, 0, len(events))
	for _, ev := range events {
		out = append(out, ev.Kind())
	}
	return out
}

func bonusRound(spins int) []Event {
	events := []Event{
		Reveal{Index: 0},
		FreeSpinTrigger{Index: 1, TotalFs: spins},
	}
	for i := 0; i < spins; i++ {
		events = append(events,
			Reveal{Index: len(events), GameType: ModeBonus},
			WinInfo{Index: len(events) + 1, TotalWin: 50},
			UpdateFreeSpin{Index: len(events) + 2, Amount: i + 1, Total: spins},
		)
	}
	events = append(events, FreeSpinEnd{Index: len(events)}, FinalWin{Index: len(events) + 1, Amount: 500})
	return events
}

func TestClassifyBaseOnly(t *testing.T) {
	events := []Event{Reveal{}, WinInfo{TotalWin: 10}, SetTotalWin{Amount: 10}, FinalWin{Amount: 10}}
	c := Classify(events)
	if c.HasBonus() {
		t.Fatalf("unexpected bonus spins: %d", len(c.BonusSpins))
	}
	if len(c.BaseEvents) != len(events) {
		t.Fatalf("base events = %d, want %d", len(c.BaseEvents), len(events))
	}
}

func TestClassifyBonus(t *testing.T) {
	c := Classify(bonusRound(3))

	wantBase := []EventKind{KindReveal, KindFreeSpinTrigger, KindFinalWin}
	if got := kinds(c.BaseEvents); !equalKinds(got, wantBase) {
		t.Fatalf("base = %v, want %v", got, wantBase)
	}
	// three spin groups plus the group closed by FreeSpinEnd
	if len(c.BonusSpins) != 4 {
		t.Fatalf("groups = %d, want 4", len(c.BonusSpins))
	}
	for i := 0; i < 3; i++ {
		want := []EventKind{KindReveal, KindWinInfo, KindUpdateFreeSpin}
		if got := kinds(c.BonusSpins[i]); !equalKinds(got, want) {
			t.Errorf("group %d = %v, want %v", i, got, want)
		}
	}
	if got := kinds(c.BonusSpins[3]); !equalKinds(got, []EventKind{KindFreeSpinEnd}) {
		t.Errorf("last group = %v", got)
	}

	lead, trailing := c.Split()
	if len(lead) != 2 || len(trailing) != 1 || trailing[0].Kind() != KindFinalWin {
		t.Errorf("split lead=%v trailing=%v", kinds(lead), kinds(trailing))
	}
}

// Every event lands in exactly one place and relative order is preserved.
func TestClassifyPreservesOrder(t *testing.T) {
	cases := [][]Event{
		nil,
		bonusRound(1),
		bonusRound(10),
		{FreeSpinTrigger{Index: 0}, Reveal{Index: 1}, WinInfo{Index: 2}},
		{Reveal{Index: 0}, FreeSpinTrigger{Index: 1}, FreeSpinEnd{Index: 2}, Reveal{Index: 3}, FinalWin{Index: 4}},
		{Unknown{Type: "mystery"}, FreeSpinTrigger{Index: 1}, Unknown{Type: "x"}, UpdateFreeSpin{Index: 3}},
		{FreeSpinTrigger{Index: 0}, Reveal{Index: 1}, FreeSpinTrigger{Index: 2}, UpdateFreeSpin{Index: 3}},
	}
	for n, events := range cases {
		c := Classify(events)
		total := len(c.BaseEvents)
		for _, g := range c.BonusSpins {
			total += len(g)
		}
		if total != len(events) {
			t.Errorf("case %d: %d events out, %d in", n, total, len(events))
		}
		if !isSubsequence(c.BaseEvents, events) {
			t.Errorf("case %d: base events out of order", n)
		}
		var flat []Event
		for _, g := range c.BonusSpins {
			flat = append(flat, g...)
		}
		if !isSubsequence(flat, events) {
			t.Errorf("case %d: bonus events out of order", n)
		}
	}
}

func TestClassifySecondTriggerStaysInBase(t *testing.T) {
	c := Classify([]Event{
		Reveal{Index: 0},
		FreeSpinTrigger{Index: 1, TotalFs: 2},
		Reveal{Index: 2},
		FreeSpinTrigger{Index: 3, TotalFs: 5},
		UpdateFreeSpin{Index: 4, Amount: 1, Total: 2},
		FreeSpinEnd{Index: 5},
		FinalWin{Index: 6},
	})
	want := []EventKind{KindReveal, KindFreeSpinTrigger, KindFreeSpinTrigger, KindFinalWin}
	if got := kinds(c.BaseEvents); !equalKinds(got, want) {
		t.Fatalf("base = %v, want %v", got, want)
	}
	if len(c.BonusSpins) != 2 || !equalKinds(kinds(c.BonusSpins[0]), []EventKind{KindReveal, KindUpdateFreeSpin}) {
		t.Fatalf("groups = %v", c.BonusSpins)
	}
	lead, trailing := c.Split()
	if len(lead) != 2 || len(trailing) != 2 || trailing[0].Kind() != KindFreeSpinTrigger {
		t.Errorf("split lead=%v trailing=%v", kinds(lead), kinds(trailing))
	}
}

func TestClassifyTruncatedGroup(t *testing.T) {
	c := Classify([]Event{FreeSpinTrigger{}, Reveal{}, WinInfo{}})
	if len(c.BonusSpins) != 1 || len(c.BonusSpins[0]) != 2 {
		t.Fatalf("groups = %v", c.BonusSpins)
	}
}

func isSubsequence(sub, seq []Event) bool {
	i := 0
	for _, ev := range seq {
		if i < len(sub) && sameEvent(sub[i], ev) {
			i++
		}
	}
	return i == len(sub)
}

func sameEvent(a, b Event) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case Unknown:
		return x.Type == b.(Unknown).Type
	case Reveal:
		return x.Index == b.(Reveal).Index
	case WinInfo:
		return x.Index == b.(WinInfo).Index
	case UpdateFreeSpin:
		return x.Index == b.(UpdateFreeSpin).Index
	case FreeSpinTrigger:
		return x.Index == b.(FreeSpinTrigger).Index
	case FreeSpinEnd:
		return x.Index == b.(FreeSpinEnd).Index
	case FinalWin:
		return x.Index == b.(FinalWin).Index
	}
	return true
}

func equalKinds(a, b []EventKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
