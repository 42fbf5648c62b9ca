// Package journal is the append-only log of exit legs.
package journal

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/rustyeddy/confluence/strategy"
	"github.com/rustyeddy/confluence/trade"
)

var ErrNotFound = errors.New("journal: record not found")

// Record is one partial or final exit.
type Record struct {
	ID         string             `json:"id"`
	PositionID string             `json:"position_id"`
	ExitTime   time.Time          `json:"exit_time"`
	Direction  strategy.Direction `json:"type"`
	Qty        int                `json:"qty"`
	EntryPrice float64            `json:"entry_price"`
	ExitPrice  float64            `json:"exit_price"`
	PnL        float64            `json:"pnl"`
	Reason     trade.Reason       `json:"reason"`
	Balance    float64            `json:"balance"`
}

// Final reports whether the record closed its position.
func (r Record) Final() bool {
	return r.Reason.Final()
}

// RecordID is the deterministic record ID for a fill on a position, so a
// replayed append is recognised as a duplicate.
func RecordID(positionID string, reason trade.Reason) string {
	if reason.Final() {
		return positionID + "-final"
	}
	return positionID + "-partial"
}

// Journal is the trade log port. Append must skip records whose ID is
// already present.
type Journal interface {
	Append(ctx context.Context, recs ...Record) error
	List(ctx context.Context) ([]Record, error)
	Close() error
}

// Between filters recs to exit times within [start, end).
func Between(recs []Record, start, end time.Time) []Record {
	var out []Record
	for _, r := range recs {
		if !r.ExitTime.Before(start) && r.ExitTime.Before(end) {
			out = append(out, r)
		}
	}
	return out
}

// Memory is an in-process Journal.
type Memory struct {
	mu   sync.Mutex
	recs []Record
	seen map[string]bool
}

func NewMemory() *Memory {
	return &Memory{seen: map[string]bool{}}
}

func (m *Memory) Append(_ context.Context, recs ...Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range recs {
		if m.seen[r.ID] {
			continue
		}
		m.seen[r.ID] = true
		m.recs = append(m.recs, r)
	}
	return nil
}

func (m *Memory) List(context.Context) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]Record(nil), m.recs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].ExitTime.Before(out[j].ExitTime) })
	return out, nil
}

func (m *Memory) Close() error { return nil }
