package voice

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_GetOrCreateIdempotent(t *testing.T) {
	store := NewStore()
	now := time.Now()

	first, created := store.GetOrCreate("CA1", "+15551234", "org-1", now)
	require.True(t, created)

	first.BeginTurn("hello")

	// Duplicate start must not reset history and must ignore the new
	// caller/tenant values.
	second, created := store.GetOrCreate("CA1", "+19998888", "org-2", now.Add(time.Minute))
	require.False(t, created)
	assert.Same(t, first, second)
	assert.Equal(t, 1, second.TurnCount())
	assert.Equal(t, "+15551234", second.CallerNumber)
	assert.Equal(t, "org-1", second.TenantID)
}

func TestStore_GetNotFound(t *testing.T) {
	store := NewStore()
	_, err := store.Get("CA-missing")
	require.ErrorIs(t, err, ErrSessionNotFound)
}

func TestStore_RemoveAbsentIsNoop(t *testing.T) {
	store := NewStore()
	store.Remove("CA-missing")

	store.GetOrCreate("CA1", "+1555", "org-1", time.Now())
	store.Remove("CA1")
	store.Remove("CA1")
	assert.Equal(t, 0, store.Len())
}

func TestStore_ConcurrentCreateSingleWinner(t *testing.T) {
	store := NewStore()

	const workers = 32
	results := make([]*Session, workers)
	createdCount := 0
	var mu sync.Mutex
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, created := store.GetOrCreate("CA-race", "+1555", "org-1", time.Now())
			mu.Lock()
			results[i] = sess
			if created {
				createdCount++
			}
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	require.Equal(t, 1, createdCount)
	for i := 1; i < workers; i++ {
		assert.Same(t, results[0], results[i])
	}
}

func TestSession_HistoryOnlyGrowsInOrder(t *testing.T) {
	sess := newSession("CA1", "+1555", "org-1", time.Now())

	n, prior := sess.BeginTurn("one")
	assert.Equal(t, 1, n)
	assert.Empty(t, prior)
	sess.CompleteTurn(n, "ack one")

	n, prior = sess.BeginTurn("two")
	assert.Equal(t, 2, n)
	require.Len(t, prior, 1)
	assert.Equal(t, "one", prior[0].Caller)
	sess.CompleteTurn(n, "ack two")

	history := sess.History()
	require.Len(t, history, 2)
	assert.Equal(t, Turn{Caller: "one", Assistant: "ack one"}, history[0])
	assert.Equal(t, Turn{Caller: "two", Assistant: "ack two"}, history[1])

	// Mutating the returned snapshot must not touch the canonical history.
	history[0].Caller = "mutated"
	assert.Equal(t, "one", sess.History()[0].Caller)
}

func TestSession_ConcurrentTurnsAllRecorded(t *testing.T) {
	sess := newSession("CA1", "+1555", "org-1", time.Now())

	const turns = 50
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, _ := sess.BeginTurn("utterance")
			sess.CompleteTurn(n, "reply")
		}()
	}
	wg.Wait()

	history := sess.History()
	require.Len(t, history, turns)
	for _, turn := range history {
		assert.Equal(t, "reply", turn.Assistant)
	}
}

func TestSession_CreateReservation(t *testing.T) {
	sess := newSession("CA1", "+1555", "org-1", time.Now())

	require.True(t, sess.BeginCreate())
	assert.False(t, sess.BeginCreate(), "in-flight create must block a second reservation")

	sess.FinishCreate(0, false)
	require.True(t, sess.BeginCreate(), "failed create may be retried")

	sess.FinishCreate(7, true)
	assert.False(t, sess.BeginCreate(), "successful create is final")

	persisted, id := sess.OrderState()
	assert.True(t, persisted)
	assert.Equal(t, int64(7), id)
}

func TestSession_MarkEmergencyOnce(t *testing.T) {
	sess := newSession("CA1", "+1555", "org-1", time.Now())
	assert.True(t, sess.MarkEmergency())
	assert.False(t, sess.MarkEmergency())
	assert.True(t, sess.EmergencyFlagged())
}
