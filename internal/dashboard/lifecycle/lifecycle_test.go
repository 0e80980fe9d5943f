package lifecycle

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBegin_CancelsPrevious(t *testing.T) {
	m := NewManager()
	first := m.Begin(context.Background(), GroupMain)
	second := m.Begin(context.Background(), GroupMain)

	assert.ErrorIs(t, first.Context().Err(), context.Canceled)
	assert.NoError(t, second.Context().Err())
	assert.False(t, m.IsCurrent(first))
	assert.True(t, m.IsCurrent(second))
	assert.Equal(t, uint64(1), first.Generation())
	assert.Equal(t, uint64(2), second.Generation())
	assert.Equal(t, uint64(2), m.Generation(GroupMain))
}

func TestGroupsAreIndependent(t *testing.T) {
	m := NewManager()
	main := m.Begin(context.Background(), GroupMain)
	points := m.Begin(context.Background(), GroupPoints)
	m.Begin(context.Background(), GroupPoints)

	assert.True(t, m.IsCurrent(main))
	assert.NoError(t, main.Context().Err())
	assert.False(t, m.IsCurrent(points))
	assert.Equal(t, GroupPoints, points.Group())
}

func TestCommit(t *testing.T) {
	m := NewManager()
	stale := m.Begin(context.Background(), GroupMain)
	fresh := m.Begin(context.Background(), GroupMain)

	applied := 0
	assert.False(t, m.Commit(stale, func() { applied++ }))
	assert.True(t, m.Commit(fresh, func() { applied++ }))
	assert.True(t, m.Commit(fresh, func() { applied++ }), "a current cycle may commit more than once")
	assert.Equal(t, 2, applied)
	assert.False(t, m.Commit(nil, func() { applied++ }))
}

func TestCommit_ParentCancelled(t *testing.T) {
	m := NewManager()
	parent, cancel := context.WithCancel(context.Background())
	c := m.Begin(parent, GroupMain)
	cancel()
	assert.False(t, m.Commit(c, func() { t.Fatal("must not apply") }))
}

func TestCancel(t *testing.T) {
	m := NewManager()
	c := m.Begin(context.Background(), GroupPoints)
	m.Cancel(GroupPoints)
	assert.ErrorIs(t, c.Context().Err(), context.Canceled)
	assert.False(t, m.IsCurrent(c))
	m.Cancel(GroupPoints)

	other := m.Begin(context.Background(), GroupMain)
	m.CancelAll()
	assert.Error(t, other.Context().Err())
}

// Whatever the interleaving, only the newest cycle of a group ever applies,
// and applied generations never go backwards.
func TestCancellationMonotonicity(t *testing.T) {
	m := NewManager()
	var (
		mu      sync.Mutex
		applied []uint64
		wg      sync.WaitGroup
	)

	cycles := make([]*Cycle, 200)
	for i := range cycles {
		cycles[i] = m.Begin(context.Background(), GroupMain)
	}
	last := cycles[len(cycles)-1]

	order := rand.New(rand.NewSource(7)).Perm(len(cycles))
	for _, idx := range order {
		wg.Add(1)
		go func(c *Cycle) {
			defer wg.Done()
			m.Commit(c, func() {
				mu.Lock()
				applied = append(applied, c.Generation())
				mu.Unlock()
			})
		}(cycles[idx])
	}
	wg.Wait()

	require.Len(t, applied, 1)
	assert.Equal(t, last.Generation(), applied[0])
}

func TestCommitDoesNotInterleaveWithBegin(t *testing.T) {
	m := NewManager()
	c := m.Begin(context.Background(), GroupMain)

	var next *Cycle
	done := make(chan struct{})
	ok := m.Commit(c, func() {
		go func() {
			next = m.Begin(context.Background(), GroupMain)
			close(done)
		}()
		// Begin is blocked on the manager lock while apply runs.
		assert.NoError(t, c.Context().Err())
	})
	<-done
	assert.True(t, ok)
	assert.True(t, m.IsCurrent(next))
	assert.Error(t, c.Context().Err())
}
