package voice

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type orchestratorFixture struct {
	orch      *Orchestrator
	store     *Store
	responder *fakeResponder
	extractor *fakeExtractor
	recorder  *fakeRecorder
	notifier  *fakeNotifier
	directory *fakeDirectory
	clock     time.Time
}

func newFixture() *orchestratorFixture {
	f := &orchestratorFixture{
		store:     NewStore(),
		responder: &fakeResponder{},
		extractor: &fakeExtractor{},
		recorder:  &fakeRecorder{},
		notifier:  &fakeNotifier{},
		directory: &fakeDirectory{
			tenantID: "org-1",
			cfg: TenantConfig{
				TenantID:     "org-1",
				BusinessName: "Nunzio's Pizza",
				BusinessType: "restaurant",
				Greeting:     "Thank you for calling Nunzio's Pizza! This is John. How can I help you today?",
				SystemPrompt: "You are John, a pizza order taker.",
				Voice:        "Polly.Matthew-Neural",
			},
		},
		clock: time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.orch = &Orchestrator{
		Store:     f.store,
		Directory: f.directory,
		Turns:     TurnProcessor{Responder: f.responder},
		Gate:      Gate{Extractor: f.extractor, Recorder: f.recorder, Notifier: f.notifier},
		Recorder:  f.recorder,
		Notifier:  f.notifier,
		Now:       func() time.Time { return f.clock },
	}
	return f
}

func TestOrchestrator_StartGreetsAndRecords(t *testing.T) {
	f := newFixture()

	reply := f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")

	assert.Contains(t, reply.Utterance, "Nunzio's Pizza")
	assert.Equal(t, "Polly.Matthew-Neural", reply.Voice)
	assert.False(t, reply.EndCall)
	assert.Equal(t, 1, f.recorder.starts)

	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	assert.Equal(t, "org-1", sess.TenantID)
}

func TestOrchestrator_DuplicateStartIsIdempotent(t *testing.T) {
	f := newFixture()

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "hi, one large pepperoni")

	reply := f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")

	assert.NotEmpty(t, reply.Utterance, "a duplicate start still greets")
	assert.Equal(t, 1, f.recorder.starts, "call start recorded once")
	assert.Equal(t, 1, f.store.Len())

	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TurnCount(), "duplicate start must not reset history")
}

func TestOrchestrator_MissingConfigFallsBackToGenericGreeting(t *testing.T) {
	f := newFixture()
	f.directory.cfgErr = context.DeadlineExceeded

	reply := f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	assert.Equal(t, DefaultGreeting, reply.Utterance)
}

func TestOrchestrator_EmptyUtteranceReprompts(t *testing.T) {
	f := newFixture()
	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")

	reply := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "   ")

	assert.Equal(t, RepromptUtterance, reply.Utterance)
	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	assert.Equal(t, 0, sess.TurnCount(), "silence never appends to history")
}

func TestOrchestrator_TurnWithoutStartRecreatesSession(t *testing.T) {
	f := newFixture()

	reply := f.orch.HandleTurn(context.Background(), "call-late", "+15551234", "+18005550100", "hello there")

	assert.NotEmpty(t, reply.Utterance)
	sess, err := f.store.Get("call-late")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TurnCount())
	assert.Equal(t, "org-1", sess.TenantID)
}

// Scenario: first turn of a pickup order. One history entry, extraction not
// yet attempted because the cadence floor is three turns.
func TestOrchestrator_FirstTurnBelowExtractionFloor(t *testing.T) {
	f := newFixture()
	f.responder.replies = []string{"You said a large pepperoni for pickup under Sam, got it!"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	reply := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100",
		"I'd like a large pepperoni pizza for pickup under the name Sam")

	assert.Contains(t, reply.Utterance, "pickup")
	assert.Contains(t, reply.Utterance, "Sam")

	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	assert.Equal(t, 1, sess.TurnCount())
	assert.Equal(t, 0, f.extractor.callCount(), "extraction waits for the cadence floor")
}

// Scenario: by the third turn the gate fires and the order is created once.
func TestOrchestrator_ThirdTurnPersistsOrderOnce(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{
		Items:     "1 large pepperoni pizza",
		OrderType: "pickup",
		PickupName: "Sam",
	}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "I'd like a large pepperoni pizza")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "for pickup")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "under the name Sam, card")

	creates, _ := f.recorder.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, f.notifier.created)

	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	persisted, _ := sess.OrderState()
	assert.True(t, persisted)

	// A fourth actionable turn updates, never re-creates.
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "actually add a coke")
	creates, updates := f.recorder.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, updates)
	assert.Equal(t, 1, f.notifier.created)
}

// Scenario: closing phrase with a persisted order ends the exchange but the
// session survives until the hangup event.
func TestOrchestrator_ClosingPhraseSignalsEndWithoutRemoval(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{Items: "1 large pepperoni pizza"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "a large pepperoni pizza")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "pickup for Sam")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "paying cash")

	reply := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "that's all, goodbye")

	assert.True(t, reply.EndCall)
	assert.Equal(t, ClosingUtterance, reply.Utterance)
	_, err := f.store.Get("call1")
	assert.NoError(t, err, "closing must not remove the session")
}

func TestOrchestrator_ClosingPhraseWithoutOrderKeepsGathering(t *testing.T) {
	f := newFixture()

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	reply := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "goodbye")

	assert.False(t, reply.EndCall, "no persisted order yet, keep the conversation open")
}

// Scenario: hangup forces extraction, updates the already-persisted order,
// always sends the summary, and removes the session. A duplicate hangup is
// a tolerated no-op.
func TestOrchestrator_EndUpdatesNotifiesAndRemoves(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{Items: "1 large pepperoni pizza"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	for _, u := range []string{"a large pepperoni pizza", "pickup", "for Sam"} {
		f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", u)
	}
	f.clock = f.clock.Add(95 * time.Second)

	f.orch.HandleEnd(context.Background(), "call1", "+15551234")

	creates, updates := f.recorder.counts()
	assert.Equal(t, 1, creates, "end-of-call must not re-create")
	assert.Equal(t, 1, updates)
	assert.Equal(t, 1, f.notifier.summaries)
	assert.Equal(t, 95, f.recorder.lastEndSecs)
	assert.Contains(t, f.notifier.lastTranscript, "Caller: a large pepperoni pizza")

	_, err := f.store.Get("call1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// Duplicate hangup: session absent, nothing fires again.
	f.orch.HandleEnd(context.Background(), "call1", "+15551234")
	assert.Equal(t, 1, f.notifier.summaries)
	assert.Equal(t, 1, f.recorder.ends)
}

func TestOrchestrator_EndForcesExtractionBelowFloor(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{Items: "1 small cheese pizza"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "one small cheese pizza to go")
	f.orch.HandleEnd(context.Background(), "call1", "+15551234")

	assert.Equal(t, 1, f.extractor.callCount(), "end event forces extraction below the floor")
	creates, _ := f.recorder.counts()
	assert.Equal(t, 1, creates)
	assert.Equal(t, 1, f.notifier.summaries)
}

func TestOrchestrator_EndWithNoTurnsStillSummarizes(t *testing.T) {
	f := newFixture()

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleEnd(context.Background(), "call1", "+15551234")

	assert.Equal(t, 1, f.notifier.summaries, "summary fires even for an empty call")
	creates, _ := f.recorder.counts()
	assert.Equal(t, 0, creates)
	assert.Equal(t, 0, f.store.Len())
}

// Scenario: responder outage mid-call. The caller hears the fixed fallback
// and the history records it as the assistant utterance.
func TestOrchestrator_ResponderTimeoutUsesFallback(t *testing.T) {
	f := newFixture()
	f.responder.err = context.DeadlineExceeded

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	reply := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "do you have vodka pizza?")

	assert.Equal(t, FallbackUtterance, reply.Utterance)
	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	history := sess.History()
	require.Len(t, history, 1)
	assert.Equal(t, FallbackUtterance, history[0].Assistant)
}

func TestOrchestrator_HistoryLengthMatchesTurns(t *testing.T) {
	f := newFixture()
	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")

	utterances := []string{"one", "two", "three", "four", "five"}
	for _, u := range utterances {
		f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", u)
	}

	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	history := sess.History()
	require.Len(t, history, len(utterances))
	for i, u := range utterances {
		assert.Equal(t, u, history[i].Caller, "turns stay in submission order")
	}
}

func TestOrchestrator_EmergencyFlaggedOnceForMedicalTenant(t *testing.T) {
	f := newFixture()
	f.directory.cfg.BusinessType = "dentist"

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "I have severe pain and swelling")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "yes it's urgent")

	assert.Equal(t, 1, f.recorder.emergencies, "emergency recorded once")
	sess, err := f.store.Get("call1")
	require.NoError(t, err)
	assert.True(t, sess.EmergencyFlagged())
}

func TestOrchestrator_ReplyMarksFirstOrderSave(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{Items: "1 large pepperoni pizza"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	r1 := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "a large pepperoni pizza")
	r2 := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "pickup for Sam")
	assert.False(t, r1.OrderSaved, "below the extraction floor")
	assert.False(t, r2.OrderSaved)

	r3 := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "paying cash")
	assert.True(t, r3.OrderSaved, "turn that persisted the order reports it")
	assert.Equal(t, int64(42), r3.OrderID)

	r4 := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "add a coke too")
	assert.False(t, r4.OrderSaved, "update-only turns stay quiet")
	assert.Zero(t, r4.OrderID)
}

func TestOrchestrator_ReplyMarksEmergencyOnce(t *testing.T) {
	f := newFixture()
	f.directory.cfg.BusinessType = "dentist"

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	r1 := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "I have severe pain")
	r2 := f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "yes it's urgent")

	assert.True(t, r1.Emergency, "first flagging turn reports the emergency")
	assert.False(t, r2.Emergency, "the flag is reported once")
}

func TestOrchestrator_EndReportsForcedOrderSave(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{Items: "1 small cheese pizza"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "one small cheese pizza to go")
	res := f.orch.HandleEnd(context.Background(), "call1", "+15551234")

	assert.True(t, res.OrderSaved, "forced extraction made the first save")
	assert.Equal(t, int64(42), res.OrderID)
}

func TestOrchestrator_EndStaysQuietWhenOrderAlreadySaved(t *testing.T) {
	f := newFixture()
	f.extractor.fields = OrderFields{Items: "1 large pepperoni pizza"}

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	for _, u := range []string{"a large pepperoni pizza", "pickup for Sam", "paying cash"} {
		f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", u)
	}
	res := f.orch.HandleEnd(context.Background(), "call1", "+15551234")

	assert.False(t, res.OrderSaved, "mid-call turn already reported the save")
}

func TestOrchestrator_EmergencyIgnoredForRestaurants(t *testing.T) {
	f := newFixture()

	f.orch.HandleStart(context.Background(), "call1", "+15551234", "+18005550100")
	f.orch.HandleTurn(context.Background(), "call1", "+15551234", "+18005550100", "this is an emergency, I need pizza")

	assert.Equal(t, 0, f.recorder.emergencies)
}

func TestContainsAnyPhrase_WordBoundaries(t *testing.T) {
	assert.True(t, containsAnyPhrase("ok that's all thanks", closingPhrases))
	assert.True(t, containsAnyPhrase("No, that's it.", closingPhrases))
	assert.True(t, containsAnyPhrase("Goodbye!", closingPhrases))
	assert.False(t, containsAnyPhrase("I know what I want", closingPhrases))
	assert.False(t, containsAnyPhrase("can I get a calzone", closingPhrases))
}
