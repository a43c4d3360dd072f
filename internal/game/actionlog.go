package game

import (
	"fmt"
	"time"
)

// LogEntry is one posted blind or player action.
type LogEntry struct {
	Seq    int        `json:"seq"`
	Street Street     `json:"street"`
	Seat   int        `json:"seat"`
	Kind   ActionKind `json:"kind"`
	// Amount is the chips moved from the stack into the pot by this entry.
	Amount int `json:"amount"`
	// Total is the seat's street total after the entry.
	Total int       `json:"total"`
	AllIn bool      `json:"all_in,omitempty"`
	Auto  bool      `json:"auto,omitempty"`
	At    time.Time `json:"at"`
}

func (e LogEntry) String() string {
	s := fmt.Sprintf("#%d %s seat %d %s", e.Seq, e.Street, e.Seat, e.Kind)
	if e.Amount > 0 {
		s += fmt.Sprintf(" %d (total %d)", e.Amount, e.Total)
	}
	if e.AllIn {
		s += " all-in"
	}
	if e.Auto {
		s += " [timeout]"
	}
	return s
}

// ActionLog is the append-only record of a hand. It is the only source for
// per-seat contributions.
type ActionLog struct {
	entries []LogEntry
}

// Append assigns the next sequence number and records e.
func (l *ActionLog) Append(e LogEntry) LogEntry {
	e.Seq = len(l.entries) + 1
	l.entries = append(l.entries, e)
	return e
}

// Entries returns a copy of the log.
func (l *ActionLog) Entries() []LogEntry {
	return append([]LogEntry(nil), l.entries...)
}

// Since returns the entries after sequence number seq.
func (l *ActionLog) Since(seq int) []LogEntry {
	if seq >= len(l.entries) {
		return nil
	}
	if seq < 0 {
		seq = 0
	}
	return append([]LogEntry(nil), l.entries[seq:]...)
}

func (l *ActionLog) Len() int { return len(l.entries) }

// Contributions sums the chips each seat has put in over the whole hand.
func (l *ActionLog) Contributions() map[int]int {
	out := make(map[int]int)
	for _, e := range l.entries {
		if e.Amount > 0 {
			out[e.Seat] += e.Amount
		}
	}
	return out
}

// Total is the sum of all contributions.
func (l *ActionLog) Total() int {
	total := 0
	for _, e := range l.entries {
		total += e.Amount
	}
	return total
}
