package voice

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

const (
	// DefaultGreeting covers tenants with no active configuration; a
	// missing config never blocks a call.
	DefaultGreeting = "Thank you for calling! How can I help you today?"

	// RepromptUtterance is spoken on caller silence or unrecognized speech.
	RepromptUtterance = "I'm sorry, I didn't catch that. Could you please repeat?"

	// ClosingUtterance is spoken when the caller signals they are done and
	// an order has been captured.
	ClosingUtterance = "Perfect! Your order is all set. Thank you for calling! Have a great day!"
)

// closingPhrases end the conversation once an order has been persisted.
// Matching is on whole words within the normalized utterance.
var closingPhrases = []string{
	"no", "no thanks", "nothing else", "that's all", "no that's it",
	"goodbye", "bye", "that's everything", "yes that's correct",
	"yes that's right", "correct", "that's correct",
}

// emergencyKeywords trigger the emergency flag for medical tenants.
var emergencyKeywords = []string{
	"severe pain", "bleeding", "swelling", "infection",
	"can't eat", "can't sleep", "urgent", "emergency",
}

var medicalTenantTypes = map[string]bool{"doctor": true, "dentist": true}

// Reply is the synchronous answer to one webhook event.
type Reply struct {
	Utterance string
	Voice     string

	// EndCall tells the transport to let the caller hang up after the
	// utterance instead of gathering more speech.
	EndCall bool

	// OrderSaved marks the turn whose extraction first persisted the
	// order; OrderID carries the row id. Later update-only turns leave
	// both zero.
	OrderSaved bool
	OrderID    int64

	// Emergency marks the turn that first flagged an emergency.
	Emergency bool
}

// EndResult reports what the end-of-call pass produced, for observers
// that surface it while the caller is already gone.
type EndResult struct {
	OrderSaved bool
	OrderID    int64
}

// Orchestrator is the per-call state machine. It sequences the session
// store, turn processor, and extraction gate across the call's three
// lifecycle events. No collaborator error ever propagates out of it as a
// caller-visible fault.
type Orchestrator struct {
	Store     *Store
	Directory TenantDirectory
	Turns     TurnProcessor
	Gate      Gate
	Recorder  Recorder
	Notifier  Notifier
	Logger    *slog.Logger

	// LookupTimeout bounds directory calls; zero means 5s.
	LookupTimeout time.Duration

	// Now is a test seam; nil means time.Now.
	Now func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// HandleStart answers a new call: resolves the tenant from the called
// number, creates the session, and returns the tenant's greeting. A
// duplicate start for an existing call is an idempotent no-op that still
// greets.
func (o *Orchestrator) HandleStart(ctx context.Context, callID, callerNumber, calledNumber string) Reply {
	tenantID := o.resolveTenant(ctx, calledNumber)

	sess, created := o.Store.GetOrCreate(callID, callerNumber, tenantID, o.now())
	cfg := o.activeConfig(ctx, sess.TenantID)

	if created {
		if err := o.Recorder.RecordCallStart(ctx, callID, callerNumber, sess.TenantID); err != nil {
			o.logError("record call start failed", callID, err)
		}
	}

	greeting := cfg.Greeting
	if strings.TrimSpace(greeting) == "" {
		greeting = DefaultGreeting
	}
	return Reply{Utterance: greeting, Voice: cfg.Voice}
}

// HandleTurn processes one caller utterance and returns the assistant's
// reply. Empty utterances never advance the history.
func (o *Orchestrator) HandleTurn(ctx context.Context, callID, callerNumber, calledNumber, utterance string) Reply {
	utterance = strings.TrimSpace(utterance)

	sess, err := o.Store.Get(callID)
	if err != nil {
		// Late or out-of-order delivery: recreate defensively, as if the
		// start event had just arrived.
		tenantID := o.resolveTenant(ctx, calledNumber)
		sess, _ = o.Store.GetOrCreate(callID, callerNumber, tenantID, o.now())
	}

	cfg := o.activeConfig(ctx, sess.TenantID)

	if utterance == "" {
		return Reply{Utterance: RepromptUtterance, Voice: cfg.Voice}
	}

	emergency := false
	if medicalTenantTypes[cfg.BusinessType] && containsAnyPhrase(utterance, emergencyKeywords) {
		if sess.MarkEmergency() {
			emergency = true
			if err := o.Recorder.RecordEmergency(ctx, callID); err != nil {
				o.logError("record emergency failed", callID, err)
			}
		}
	}

	turnNumber, prior := sess.BeginTurn(utterance)
	assistant := o.Turns.Process(ctx, cfg.SystemPrompt, prior, utterance)
	sess.CompleteTurn(turnNumber, assistant)

	if err := o.Recorder.RecordTurn(ctx, callID, turnNumber, Turn{Caller: utterance, Assistant: assistant}); err != nil {
		o.logError("record turn failed", callID, err)
	}

	hadOrder, _ := sess.OrderState()
	o.Gate.Run(ctx, sess, cfg, false)
	persisted, orderID := sess.OrderState()

	reply := Reply{Utterance: assistant, Voice: cfg.Voice, Emergency: emergency}
	if persisted && !hadOrder {
		reply.OrderSaved = true
		reply.OrderID = orderID
	}
	if persisted && containsAnyPhrase(utterance, closingPhrases) {
		// The caller may hang up now; the session stays in the store until
		// the end event arrives.
		reply.Utterance = ClosingUtterance
		reply.EndCall = true
	}
	return reply
}

// HandleEnd finishes a call: forced extraction, unconditional summary
// notification, call-log completion, then session removal. A missing
// session (a call that never produced a turn, or a duplicate end) is
// tolerated as a no-op.
func (o *Orchestrator) HandleEnd(ctx context.Context, callID, callerNumber string) EndResult {
	sess, err := o.Store.Get(callID)
	if err != nil {
		return EndResult{}
	}

	duration := int(o.now().Sub(sess.StartedAt()) / time.Second)
	if duration < 0 {
		duration = 0
	}
	if err := o.Recorder.RecordCallEnd(ctx, callID, duration); err != nil {
		o.logError("record call end failed", callID, err)
	}

	cfg := o.activeConfig(ctx, sess.TenantID)
	hadOrder, _ := sess.OrderState()
	o.Gate.Run(ctx, sess, cfg, true)
	persisted, orderID := sess.OrderState()
	res := EndResult{}
	if persisted && !hadOrder {
		res = EndResult{OrderSaved: true, OrderID: orderID}
	}

	// The summary always goes out, even when nothing was actionable;
	// partial-call data is operationally useful.
	fields, _ := sess.Extracted()
	caller := sess.CallerNumber
	if caller == "" {
		caller = callerNumber
	}
	if err := o.Notifier.NotifySummary(ctx, caller, fields, sess.Transcript()); err != nil {
		o.logError("summary notification failed", callID, err)
	}

	o.Store.Remove(callID)
	return res
}

func (o *Orchestrator) resolveTenant(ctx context.Context, calledNumber string) string {
	ctx, cancel := context.WithTimeout(ctx, o.lookupTimeout())
	defer cancel()
	tenantID, err := o.Directory.ResolveTenant(ctx, calledNumber)
	if err != nil {
		o.logError("tenant resolution failed", calledNumber, err)
		return ""
	}
	return tenantID
}

func (o *Orchestrator) activeConfig(ctx context.Context, tenantID string) TenantConfig {
	ctx, cancel := context.WithTimeout(ctx, o.lookupTimeout())
	defer cancel()
	cfg, err := o.Directory.ActiveConfig(ctx, tenantID)
	if err != nil {
		o.logError("tenant config lookup failed", tenantID, err)
		return TenantConfig{TenantID: tenantID}
	}
	return cfg
}

func (o *Orchestrator) lookupTimeout() time.Duration {
	if o.LookupTimeout > 0 {
		return o.LookupTimeout
	}
	return 5 * time.Second
}

func (o *Orchestrator) logError(msg, key string, err error) {
	if o.Logger == nil {
		return
	}
	o.Logger.Error(msg, "key", key, "error", err)
}

// containsAnyPhrase matches phrases on word boundaries within the
// normalized utterance, so "no" does not match inside "know".
func containsAnyPhrase(utterance string, phrases []string) bool {
	normalized := " " + normalizeWords(utterance) + " "
	for _, phrase := range phrases {
		if strings.Contains(normalized, " "+phrase+" ") {
			return true
		}
	}
	return false
}

func normalizeWords(s string) string {
	s = strings.ToLower(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
