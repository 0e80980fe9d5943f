// Package lifecycle tracks the in-flight request cycle of each request
// group. Starting a cycle cancels its predecessor in the same group, and a
// cycle's results may only be applied while it is still the newest one.
package lifecycle

import (
	"context"
	"sync"
)

// Group names an independent cancellation domain.
type Group string

const (
	GroupMain   Group = "main"
	GroupPoints Group = "points"
)

// Outcome is how a cycle ended.
type Outcome string

const (
	// OutcomeNotReady means inputs were incomplete and no cycle began.
	OutcomeNotReady Outcome = "not_ready"
	// OutcomeSkipped means there was nothing to fetch (e.g. points off).
	OutcomeSkipped    Outcome = "skipped"
	OutcomeCommitted  Outcome = "committed"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeFailed     Outcome = "failed"
)

// Cycle is the identity of one request cycle. Cycles are compared by
// pointer; Generation is informational.
type Cycle struct {
	group      Group
	generation uint64
	ctx        context.Context
	cancel     context.CancelFunc
}

// Group returns the cycle's group.
func (c *Cycle) Group() Group { return c.group }

// Generation returns the per-group sequence number of the cycle.
func (c *Cycle) Generation() uint64 { return c.generation }

// Context is cancelled when the cycle is superseded or cancelled.
func (c *Cycle) Context() context.Context { return c.ctx }

// Manager owns the current cycle of every group.
type Manager struct {
	mu          sync.Mutex
	current     map[Group]*Cycle
	generations map[Group]uint64
}

// NewManager returns an empty manager.
func NewManager() *Manager {
	return &Manager{
		current:     make(map[Group]*Cycle),
		generations: make(map[Group]uint64),
	}
}

// Begin cancels the current cycle of group and starts a new one whose
// context derives from parent.
func (m *Manager) Begin(parent context.Context, group Group) *Cycle {
	m.mu.Lock()
	defer m.mu.Unlock()

	if prev := m.current[group]; prev != nil {
		prev.cancel()
	}
	m.generations[group]++
	ctx, cancel := context.WithCancel(parent)
	c := &Cycle{group: group, generation: m.generations[group], ctx: ctx, cancel: cancel}
	m.current[group] = c
	return c
}

// IsCurrent reports whether c is still the newest cycle of its group.
func (m *Manager) IsCurrent(c *Cycle) bool {
	if c == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current[c.group] == c
}

// Commit runs apply while holding the manager lock, only if c is still
// current. It reports whether apply ran. A newer Begin on the same group
// cannot interleave with apply.
func (m *Manager) Commit(c *Cycle, apply func()) bool {
	if c == nil {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current[c.group] != c || c.ctx.Err() != nil {
		return false
	}
	apply()
	return true
}

// Cancel aborts and forgets the current cycle of group.
func (m *Manager) Cancel(group Group) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.current[group]; c != nil {
		c.cancel()
		delete(m.current, group)
	}
}

// Generation returns the number of cycles begun in group.
func (m *Manager) Generation(group Group) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generations[group]
}

// CancelAll aborts every group. Used at session shutdown.
func (m *Manager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for g, c := range m.current {
		c.cancel()
		delete(m.current, g)
	}
}
