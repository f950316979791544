// Package history is the append-only record of every scan that produced
// text, and the novelty check that gates speech.
package history

import (
	"iter"
	"strings"
	"sync"
	"time"
)

// Record is one committed scan result.
type Record struct {
	Seq        uint64    `json:"seq"`
	AreaID     string    `json:"area_id"`
	Raw        string    `json:"raw"`
	Normalized string    `json:"normalized"`
	Timestamp  time.Time `json:"timestamp"`
}

// Normalize collapses runs of whitespace to single spaces and trims the
// ends. Case is preserved.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Log is the in-memory scan history. Sequence numbers are global across
// areas, strictly increasing, and gap-free; the append mutex makes the
// seq assignment and the record commit one step.
type Log struct {
	mu      sync.RWMutex
	records []Record
	last    map[string]string // area ID -> normalized text of its latest record
	seq     uint64
}

// NewLog creates an empty history.
func NewLog() *Log {
	return &Log{last: make(map[string]string)}
}

// Append normalizes raw, assigns the next sequence number, and commits
// the record. The caller has already decided the text is worth keeping.
func (l *Log) Append(areaID, raw string) Record {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.seq++
	rec := Record{
		Seq:        l.seq,
		AreaID:     areaID,
		Raw:        raw,
		Normalized: Normalize(raw),
		Timestamp:  time.Now(),
	}
	l.records = append(l.records, rec)
	l.last[areaID] = rec.Normalized
	return rec
}

// IsNovel reports whether normalized differs from the latest committed
// text for the same area. Other areas never affect the answer.
func (l *Log) IsNovel(areaID, normalized string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	prev, ok := l.last[areaID]
	return !ok || prev != normalized
}

// Replay looks up a record by sequence number.
func (l *Log) Replay(seq uint64) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if seq == 0 || seq > uint64(len(l.records)) {
		return Record{}, false
	}
	return l.records[seq-1], true
}

// Len returns the number of committed records.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.records)
}

// All iterates records in commit order. The sequence is restartable and
// reads each record under the lock, so appends during iteration are safe;
// records committed after iteration passes their position are not visited.
func (l *Log) All() iter.Seq[Record] {
	return func(yield func(Record) bool) {
		for i := 0; ; i++ {
			l.mu.RLock()
			if i >= len(l.records) {
				l.mu.RUnlock()
				return
			}
			rec := l.records[i]
			l.mu.RUnlock()
			if !yield(rec) {
				return
			}
		}
	}
}

// Tail returns up to n most recent records, oldest first.
func (l *Log) Tail(n int) []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.records) {
		n = len(l.records)
	}
	out := make([]Record, n)
	copy(out, l.records[len(l.records)-n:])
	return out
}
