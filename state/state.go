// Package state persists the engine's account and active position between
// runs.
package state

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rustyeddy/confluence/risk"
	"github.com/rustyeddy/confluence/trade"
)

// ErrNotFound is returned by Load when nothing has been saved yet.
var ErrNotFound = errors.New("state: not found")

// State is everything the engine needs to resume after a restart.
type State struct {
	risk.Ledger

	Position  *trade.Position `json:"active_trade"`
	LastBar   time.Time       `json:"last_bar"`
	UpdatedAt time.Time       `json:"last_update"`
}

// New returns the state of a fresh account.
func New(capital float64) State {
	return State{Ledger: risk.NewLedger(capital)}
}

// Clone returns a copy that shares nothing with s.
func (s State) Clone() State {
	s.Position = s.Position.Clone()
	return s
}

// Phase is the lifecycle phase of the active position.
func (s State) Phase() trade.Phase {
	return trade.PhaseOf(s.Position)
}

// Store is the persistence port.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, s State) error
}

// LoadOrNew loads the saved state, or starts a fresh account with capital
// when there is none.
func LoadOrNew(ctx context.Context, st Store, capital float64) (State, bool, error) {
	s, err := st.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return New(capital), false, nil
	}
	if err != nil {
		return State{}, false, err
	}
	return s, true, nil
}

// Memory is an in-process Store. Err, when set, is returned by Save.
type Memory struct {
	mu    sync.Mutex
	s     *State
	saves int

	Err error
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Load(_ context.Context) (State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.s == nil {
		return State{}, ErrNotFound
	}
	return m.s.Clone(), nil
}

func (m *Memory) Save(_ context.Context, s State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	c := s.Clone()
	m.s = &c
	m.saves++
	return nil
}

// Saves counts successful saves.
func (m *Memory) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}
