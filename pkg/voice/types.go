package voice

import (
	"context"
	"strings"
)

// Turn is one caller-utterance/assistant-utterance exchange.
type Turn struct {
	Caller    string `json:"caller"`
	Assistant string `json:"assistant"`
}

// OrderFields is the structured result of transcript extraction. The
// extractor's raw output is untrusted; it is normalized into this shape
// before anything acts on it.
type OrderFields struct {
	CustomerName        string `json:"customer_name"`
	Items               string `json:"items"`
	OrderType           string `json:"order_type"`
	DeliveryAddress     string `json:"delivery_address"`
	PickupName          string `json:"pickup_name"`
	PhoneNumber         string `json:"phone_number"`
	SpecialInstructions string `json:"special_instructions"`
	PaymentMethod       string `json:"payment_method"`
	TotalEstimate       string `json:"total_estimate"`
	Confirmed           bool   `json:"order_confirmed"`
}

// Actionable reports whether the extraction carries enough substance to
// persist: a non-trivial items field that is not a null placeholder.
func (f OrderFields) Actionable() bool {
	items := strings.TrimSpace(f.Items)
	if len(items) <= 2 {
		return false
	}
	switch strings.ToLower(items) {
	case "null", "none", "n/a", "nothing":
		return false
	}
	return true
}

// TenantConfig is the active business configuration for one tenant. It is
// re-read on every turn so mid-call dashboard edits (voice, prompt) take
// effect immediately.
type TenantConfig struct {
	TenantID      string
	BusinessName  string
	BusinessType  string
	Greeting      string
	SystemPrompt  string
	MenuReference string
	Voice         string
}

// Responder generates the assistant's next utterance.
type Responder interface {
	Generate(ctx context.Context, systemPrompt string, recent []Turn, utterance string) (string, error)
}

// Extractor pulls structured order fields out of a full transcript.
type Extractor interface {
	Extract(ctx context.Context, history []Turn, menuReference string) (OrderFields, error)
}

// TenantDirectory resolves which tenant owns a call and serves its
// configuration.
type TenantDirectory interface {
	ResolveTenant(ctx context.Context, calledNumber string) (string, error)
	ActiveConfig(ctx context.Context, tenantID string) (TenantConfig, error)
}

// Recorder persists call and order records. Call-log methods are
// fire-and-forget relative to orchestration: errors are logged, never
// surfaced to the caller.
type Recorder interface {
	RecordCallStart(ctx context.Context, callID, callerNumber, tenantID string) error
	RecordCallEnd(ctx context.Context, callID string, durationSeconds int) error
	RecordTurn(ctx context.Context, callID string, turnNumber int, t Turn) error
	RecordEmergency(ctx context.Context, callID string) error

	CreateOrder(ctx context.Context, callID, callerNumber, tenantID string, fields OrderFields) (int64, error)
	UpdateOrder(ctx context.Context, orderID int64, fields OrderFields) error
}

// Notifier delivers best-effort outbound notifications.
type Notifier interface {
	NotifyOrderCreated(ctx context.Context, fields OrderFields, callerNumber string) error
	NotifySummary(ctx context.Context, callerNumber string, fields OrderFields, transcript string) error
}
