package activity

import (
	"sort"
	"time"
)

// Day is the unit the interval and elapsed-day arithmetic is measured in.
const Day = 24 * time.Hour

// Ledger is the time-ordered completion history of one activity.
// The zero value is an empty ledger.
type Ledger struct {
	records []CompletionRecord
}

// NewLedger builds a ledger from records in any order.
func NewLedger(records []CompletionRecord) Ledger {
	rs := make([]CompletionRecord, len(records))
	copy(rs, records)
	sort.SliceStable(rs, func(i, j int) bool {
		return rs[i].CompletedAt.Before(rs[j].CompletedAt)
	})
	return Ledger{records: rs}
}

// Append adds a record, keeping timestamp order. Backdated records land in
// their chronological slot; equal timestamps keep insertion order.
func (l *Ledger) Append(rec CompletionRecord) {
	i := sort.Search(len(l.records), func(i int) bool {
		return l.records[i].CompletedAt.After(rec.CompletedAt)
	})
	l.records = append(l.records, CompletionRecord{})
	copy(l.records[i+1:], l.records[i:])
	l.records[i] = rec
}

// Len returns the number of completions.
func (l Ledger) Len() int {
	return len(l.records)
}

// Records returns a copy of the history, oldest first.
func (l Ledger) Records() []CompletionRecord {
	out := make([]CompletionRecord, len(l.records))
	copy(out, l.records)
	return out
}

// LastCompletedAt returns the maximum completion timestamp.
func (l Ledger) LastCompletedAt() (time.Time, bool) {
	if len(l.records) == 0 {
		return time.Time{}, false
	}
	return l.records[len(l.records)-1].CompletedAt, true
}

// DaysSince returns the whole number of days between the last completion and
// now, or ok=false if there is none. Completions after now count as 0 days.
func (l Ledger) DaysSince(now time.Time) (int, bool) {
	last, ok := l.LastCompletedAt()
	if !ok {
		return 0, false
	}
	return elapsedDays(last, now), true
}

func elapsedDays(from, to time.Time) int {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int(d / Day)
}

func (l Ledger) clone() Ledger {
	if l.records == nil {
		return Ledger{}
	}
	return Ledger{records: l.Records()}
}
