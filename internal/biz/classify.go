package biz

// Classified is a round's event list split into the base round and its bonus spins.
type Classified struct {
	BaseEvents []Event
	BonusSpins [][]Event
}

// HasBonus reports whether the round carries bonus spin groups.
func (c Classified) HasBonus() bool { return len(c.BonusSpins) > 0 }

// Split returns the base events up to and including the first FreeSpinTrigger,
// and the trailing base events after it (FinalWin and whatever follows the bonus).
func (c Classified) Split() (lead, trailing []Event) {
	for i, ev := range c.BaseEvents {
		if ev.Kind() == KindFreeSpinTrigger {
			return c.BaseEvents[:i+1], c.BaseEvents[i+1:]
		}
	}
	return c.BaseEvents, nil
}

// Classify partitions events in a single left to right pass. Every trigger stays
// in the base events, a second one seen mid bonus included. Each spin group
// closes on UpdateFreeSpin or FreeSpinEnd (kept in the group) and FreeSpinEnd
// returns the scan to base mode.
func Classify(events []Event) Classified {
	var (
		out     Classified
		inBonus bool
		current []Event
	)
	for _, ev := range events {
		if !inBonus {
			out.BaseEvents = append(out.BaseEvents, ev)
			if ev.Kind() == KindFreeSpinTrigger {
				inBonus = true
			}
			continue
		}
		if ev.Kind() == KindFreeSpinTrigger {
			out.BaseEvents = append(out.BaseEvents, ev)
			continue
		}
		current = append(current, ev)
		switch ev.Kind() {
		case KindUpdateFreeSpin:
			out.BonusSpins = append(out.BonusSpins, current)
			current = nil
		case KindFreeSpinEnd:
			out.BonusSpins = append(out.BonusSpins, current)
			current = nil
			inBonus = false
		}
	}
	// a stream cut off mid spin keeps its partial group
	if len(current) > 0 {
		out.BonusSpins = append(out.BonusSpins, current)
	}
	return out
}
