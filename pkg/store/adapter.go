package store

import (
	"context"
	"strconv"
	"time"

	"github.com/answerline/answerline/pkg/voice"
)

// Adapter binds the database to the voice orchestrator's collaborator
// interfaces. Tenant ids cross the boundary as opaque strings; they are
// organization row ids underneath.
type Adapter struct {
	DB *DB
}

var _ voice.Recorder = (*Adapter)(nil)
var _ voice.TenantDirectory = (*Adapter)(nil)

func (a *Adapter) ResolveTenant(ctx context.Context, calledNumber string) (string, error) {
	orgID, err := a.DB.OrganizationIDByPhone(ctx, calledNumber)
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(orgID, 10), nil
}

func (a *Adapter) ActiveConfig(ctx context.Context, tenantID string) (voice.TenantConfig, error) {
	orgID := parseTenantID(tenantID)
	if orgID == 0 {
		return voice.TenantConfig{}, ErrNotFound
	}
	b, err := a.DB.ActiveBusiness(ctx, orgID)
	if err != nil {
		return voice.TenantConfig{}, err
	}
	return voice.TenantConfig{
		TenantID:      tenantID,
		BusinessName:  b.Name,
		BusinessType:  b.Type,
		Greeting:      b.Greeting,
		SystemPrompt:  b.SystemPrompt,
		MenuReference: b.MenuReference,
		Voice:         b.Voice,
	}, nil
}

func (a *Adapter) RecordCallStart(ctx context.Context, callID, callerNumber, tenantID string) error {
	return a.DB.SaveCallStart(ctx, callID, callerNumber, parseTenantID(tenantID), time.Now())
}

func (a *Adapter) RecordCallEnd(ctx context.Context, callID string, durationSeconds int) error {
	return a.DB.SaveCallEnd(ctx, callID, durationSeconds)
}

func (a *Adapter) RecordTurn(ctx context.Context, callID string, turnNumber int, t voice.Turn) error {
	return a.DB.SaveConversationTurn(ctx, callID, turnNumber, t.Caller, t.Assistant)
}

func (a *Adapter) RecordEmergency(ctx context.Context, callID string) error {
	return a.DB.MarkCallEmergency(ctx, callID)
}

func (a *Adapter) CreateOrder(ctx context.Context, callID, callerNumber, tenantID string, fields voice.OrderFields) (int64, error) {
	return a.DB.CreateOrder(ctx, callID, callerNumber, parseTenantID(tenantID), fields)
}

func (a *Adapter) UpdateOrder(ctx context.Context, orderID int64, fields voice.OrderFields) error {
	return a.DB.UpdateOrderFields(ctx, orderID, fields)
}

func parseTenantID(tenantID string) int64 {
	id, err := strconv.ParseInt(tenantID, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
