package voice

import (
	"strings"
	"sync"
	"time"
)

// Session is the live state of one ongoing call. The Store owns every
// Session value; callers go through its methods and never mutate detached
// copies. All methods hold the session mutex only for in-memory mutation,
// never across network calls.
type Session struct {
	CallID       string
	CallerNumber string
	TenantID     string

	mu               sync.Mutex
	history          []Turn
	startedAt        time.Time
	extracted        *OrderFields
	orderPersisted   bool
	orderID          int64
	createInFlight   bool
	emergencyFlagged bool
}

func newSession(callID, callerNumber, tenantID string, startedAt time.Time) *Session {
	return &Session{
		CallID:       callID,
		CallerNumber: callerNumber,
		TenantID:     tenantID,
		history:      make([]Turn, 0, 8),
		startedAt:    startedAt,
	}
}

// BeginTurn appends a caller utterance with an empty assistant slot and
// returns the 1-based turn number plus a snapshot of the history before
// this turn.
func (s *Session) BeginTurn(utterance string) (turnNumber int, prior []Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	prior = make([]Turn, len(s.history))
	copy(prior, s.history)
	s.history = append(s.history, Turn{Caller: utterance})
	return len(s.history), prior
}

// CompleteTurn fills in the assistant utterance for the given turn number.
func (s *Session) CompleteTurn(turnNumber int, assistant string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if turnNumber < 1 || turnNumber > len(s.history) {
		return
	}
	s.history[turnNumber-1].Assistant = assistant
}

func (s *Session) TurnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.history)
}

// History returns a copy; the canonical slice only ever grows.
func (s *Session) History() []Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Turn, len(s.history))
	copy(out, s.history)
	return out
}

// Transcript renders the conversation for summary notifications.
func (s *Session) Transcript() string {
	history := s.History()
	var b strings.Builder
	for _, t := range history {
		b.WriteString("Caller: ")
		b.WriteString(t.Caller)
		b.WriteString("\nAssistant: ")
		b.WriteString(t.Assistant)
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Session) StartedAt() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.startedAt
}

// SetExtracted records the latest extraction result.
func (s *Session) SetExtracted(fields OrderFields) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := fields
	s.extracted = &f
}

// Extracted returns the last extraction result, if any.
func (s *Session) Extracted() (OrderFields, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.extracted == nil {
		return OrderFields{}, false
	}
	return *s.extracted, true
}

// OrderState reports whether a create has succeeded and the resulting id.
func (s *Session) OrderState() (persisted bool, orderID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.orderPersisted, s.orderID
}

// BeginCreate reserves the one-time order-creation side effect. It returns
// false when a create already succeeded or another create is in flight, so
// duplicate deliveries of the same turn cannot double-fire it.
func (s *Session) BeginCreate() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.orderPersisted || s.createInFlight {
		return false
	}
	s.createInFlight = true
	return true
}

// FinishCreate releases the reservation. On success the persisted flag
// transitions false to true, irreversibly; on failure a later actionable
// turn may retry the create.
func (s *Session) FinishCreate(orderID int64, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createInFlight = false
	if ok {
		s.orderPersisted = true
		s.orderID = orderID
	}
}

// MarkEmergency sets the emergency flag and reports whether this call was
// the first to set it. The flag never resets.
func (s *Session) MarkEmergency() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emergencyFlagged {
		return false
	}
	s.emergencyFlagged = true
	return true
}

func (s *Session) EmergencyFlagged() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.emergencyFlagged
}
