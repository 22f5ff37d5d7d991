package service

import (
	"context"
	"sync"

	"reelsync/internal/biz"

	"github.com/shopspring/decimal"
	"github.com/yola1107/kratos/v2/log"
)

// Journal notes, one per handled event.
const (
	NoteShown      = "shown"      // board rendered
	NoteTagged     = "tagged"     // board already on screen, mode recorded
	NotePresented  = "presented"  // win sequence played
	NoteNoWin      = "no-win"     // zero win, recorded only
	NoteTotal      = "total"      // running total updated
	NoteDuplicate  = "duplicate"  // amount already shown
	NoteRecorded   = "recorded"   // setWin outside a bonus
	NoteBonusSkip  = "bonus-skip" // setWin during a bonus
	NoteTriggered  = "triggered"
	NoteRetrigger  = "retrigger"
	NoteAdvanced   = "advanced"
	NoteEnded      = "ended"
	NoteSpin       = "spin"
	NoteSummary    = "summary"
	NoteNoFinalWin = "no-final-win"
	NoteIgnored    = "ignored"
)

// JournalEntry records how one event was handled.
type JournalEntry struct {
	Kind   biz.EventKind
	Note   string
	Tier   string
	Amount decimal.Decimal
	Spins  int
}

// Journal is the per round audit trail.
type Journal struct {
	mu      sync.Mutex
	entries []JournalEntry
}

func (j *Journal) add(e JournalEntry) {
	j.mu.Lock()
	j.entries = append(j.entries, e)
	j.mu.Unlock()
}

func (j *Journal) reset() {
	j.mu.Lock()
	j.entries = nil
	j.mu.Unlock()
}

// Entries returns a copy of the trail.
func (j *Journal) Entries() []JournalEntry {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]JournalEntry(nil), j.entries...)
}

// Dispatcher interprets one event group strictly in order: the next event is
// not touched until the previous one's waits have finished.
type Dispatcher struct {
	session *biz.RoundSessionState
	bonus   *biz.BonusState
	reels   *ReelAnimator
	wins    *WinSequencer
	orch    *BonusOrchestrator
	render  biz.Renderer
	journal *Journal
	log     *log.Helper
}

// NewDispatcher .
func NewDispatcher(session *biz.RoundSessionState, bonus *biz.BonusState, reels *ReelAnimator, wins *WinSequencer, orch *BonusOrchestrator, render biz.Renderer, journal *Journal, logger log.Logger) *Dispatcher {
	return &Dispatcher{
		session: session,
		bonus:   bonus,
		reels:   reels,
		wins:    wins,
		orch:    orch,
		render:  render,
		journal: journal,
		log:     log.NewHelper(log.With(logger, "module", "service/dispatch")),
	}
}

// Run handles every event of a group in order.
func (d *Dispatcher) Run(ctx context.Context, events []biz.Event) error {
	for _, ev := range events {
		if err := d.handle(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) handle(ctx context.Context, ev biz.Event) error {
	switch e := ev.(type) {
	case biz.Reveal:
		d.reveal(e)
	case biz.WinInfo:
		return d.winInfo(ctx, e)
	case biz.SetWin:
		note := NoteRecorded
		if d.bonus.Active {
			note = NoteBonusSkip
		}
		d.journal.add(JournalEntry{Kind: e.Kind(), Note: note, Amount: d.display(e.Amount)})
	case biz.SetTotalWin:
		d.total(e.Kind(), e.Amount)
	case biz.FinalWin:
		d.total(e.Kind(), e.Amount)
	case biz.FreeSpinTrigger:
		return d.orch.Trigger(ctx, e)
	case biz.UpdateFreeSpin:
		return d.orch.Update(ctx, e)
	case biz.FreeSpinEnd:
		d.orch.MarkEnded(e)
	default:
		d.log.Debugf("ignoring unknown event %s", ev.Kind())
		d.journal.add(JournalEntry{Kind: ev.Kind(), Note: NoteIgnored})
	}
	return nil
}

func (d *Dispatcher) reveal(e biz.Reveal) {
	tagged := biz.TaggedBoard{Board: e.Board, Mode: e.GameType, Set: true}
	shown := d.session.Displayed()
	if shown.Set && shown.Board == e.Board {
		// the reels settled on this board already; overlays stay attached
		d.session.SetDisplayed(tagged)
		d.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteTagged})
		return
	}
	d.reels.ShowBoard(tagged)
	d.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteShown})
}

func (d *Dispatcher) winInfo(ctx context.Context, e biz.WinInfo) error {
	report := biz.VerifyWin(e, d.session.Displayed())
	if !report.OK() {
		for _, c := range report.Checks {
			if c.Valid && c.Match {
				continue
			}
			d.log.Warnw("msg", "win position does not match board",
				"mode", report.Mode,
				"reel", c.Server.Reel,
				"row", c.Server.Row,
				"expected", c.Expected,
				"shown", c.Shown,
				"valid", c.Valid)
		}
	}

	amount := d.display(e.TotalWin)
	if e.TotalWin <= 0 {
		d.journal.add(JournalEntry{Kind: e.Kind(), Note: NoteNoWin})
		return nil
	}
	if d.bonus.Active {
		d.bonus.AccumulatedWin = d.bonus.AccumulatedWin.Add(amount)
	}
	out, err := d.wins.Present(ctx, e, amount, d.session.Bet())
	if err != nil {
		return err
	}
	d.journal.add(JournalEntry{Kind: e.Kind(), Note: NotePresented, Tier: out.Tier.String(), Amount: amount})
	return nil
}

// total updates the running total unless the same amount is already shown.
func (d *Dispatcher) total(kind biz.EventKind, serverAmount int64) {
	amount := d.display(serverAmount)
	if last, ok := d.session.LastWin(); ok && last.Equal(amount) {
		d.log.Debugw("msg", "duplicate total suppressed", "kind", kind, "amount", amount.String())
		d.journal.add(JournalEntry{Kind: kind, Note: NoteDuplicate, Amount: amount})
		return
	}
	d.session.SetLastWin(amount)
	d.render.SetWin(amount)
	d.journal.add(JournalEntry{Kind: kind, Note: NoteTotal, Amount: amount})
}

func (d *Dispatcher) display(serverAmount int64) decimal.Decimal {
	return biz.DisplayAmount(serverAmount, d.session.Bet())
}
