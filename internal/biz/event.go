package biz

import (
	"fmt"

	"reelsync/encoding"
)

// EventKind is the wire tag of a round event.
type EventKind string

const (
	KindReveal          EventKind = "reveal"
	KindWinInfo         EventKind = "winInfo"
	KindSetWin          EventKind = "setWin"
	KindSetTotalWin     EventKind = "setTotalWin"
	KindFinalWin        EventKind = "finalWin"
	KindFreeSpinTrigger EventKind = "freeSpinTrigger"
	KindUpdateFreeSpin  EventKind = "updateFreeSpin"
	KindFreeSpinEnd     EventKind = "freeSpinEnd"
)

// Event is one immutable entry of a round's event list.
type Event interface {
	Kind() EventKind
}

type Reveal struct {
	Index        int        `json:"index"`
	Board        Board      `json:"board"`
	GameType     GameMode   `json:"gameType"`
	Anticipation [Reels]int `json:"anticipation"`
}

type WinInfo struct {
	Index    int        `json:"index"`
	TotalWin int64      `json:"totalWin"`
	Wins     []WinEntry `json:"wins"`
}

type WinEntry struct {
	Symbol    string        `json:"symbol"`
	Kind      int           `json:"kind"` // match count
	Win       int64         `json:"win"`
	Positions []WinPosition `json:"positions"`
}

type SetWin struct {
	Index    int   `json:"index"`
	Amount   int64 `json:"amount"`
	WinLevel int   `json:"winLevel"`
}

type SetTotalWin struct {
	Index  int   `json:"index"`
	Amount int64 `json:"amount"`
}

type FinalWin struct {
	Index  int   `json:"index"`
	Amount int64 `json:"amount"`
}

type FreeSpinTrigger struct {
	Index     int           `json:"index"`
	TotalFs   int           `json:"totalFs"`
	Positions []WinPosition `json:"positions"`
}

type UpdateFreeSpin struct {
	Index  int `json:"index"`
	Amount int `json:"amount"` // spins played so far
	Total  int `json:"total"`
}

type FreeSpinEnd struct {
	Index int `json:"index"`
}

// Unknown keeps an event whose tag this client does not handle.
type Unknown struct {
	Type string
	Raw  encoding.RawMessage
}

func (Reveal) Kind() EventKind          { return KindReveal }
func (WinInfo) Kind() EventKind         { return KindWinInfo }
func (SetWin) Kind() EventKind          { return KindSetWin }
func (SetTotalWin) Kind() EventKind     { return KindSetTotalWin }
func (FinalWin) Kind() EventKind        { return KindFinalWin }
func (FreeSpinTrigger) Kind() EventKind { return KindFreeSpinTrigger }
func (UpdateFreeSpin) Kind() EventKind  { return KindUpdateFreeSpin }
func (FreeSpinEnd) Kind() EventKind     { return KindFreeSpinEnd }
func (u Unknown) Kind() EventKind       { return EventKind(u.Type) }

// Events decodes a server event list into concrete types.
type Events []Event

func (es *Events) UnmarshalJSON(data []byte) error {
	var raws []encoding.RawMessage
	if err := encoding.Unmarshal(data, &raws); err != nil {
		return err
	}
	out := make(Events, 0, len(raws))
	for i, raw := range raws {
		ev, err := DecodeEvent(raw)
		if err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		out = append(out, ev)
	}
	*es = out
	return nil
}

// DecodeEvent decodes one tagged event.
func DecodeEvent(raw []byte) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := encoding.Unmarshal(raw, &head); err != nil {
		return nil, err
	}
	var ev Event
	switch EventKind(head.Type) {
	case KindReveal:
		var e Reveal
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		if e.GameType == "" {
			e.GameType = ModeBase
		}
		ev = e
	case KindWinInfo:
		var e WinInfo
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	case KindSetWin:
		var e SetWin
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	case KindSetTotalWin:
		var e SetTotalWin
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	case KindFinalWin:
		var e FinalWin
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	case KindFreeSpinTrigger:
		var e FreeSpinTrigger
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	case KindUpdateFreeSpin:
		var e UpdateFreeSpin
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	case KindFreeSpinEnd:
		var e FreeSpinEnd
		if err := encoding.Unmarshal(raw, &e); err != nil {
			return nil, err
		}
		ev = e
	default:
		ev = Unknown{Type: head.Type, Raw: append(encoding.RawMessage(nil), raw...)}
	}
	return ev, nil
}

// FirstReveal returns the first reveal of an event list.
func FirstReveal(events []Event) (Reveal, bool) {
	for _, ev := range events {
		if r, ok := ev.(Reveal); ok {
			return r, true
		}
	}
	return Reveal{}, false
}
