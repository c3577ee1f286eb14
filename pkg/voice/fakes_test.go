package voice

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type fakeResponder struct {
	mu      sync.Mutex
	replies []string
	calls   int
	err     error
	lastWindow []Turn
}

func (f *fakeResponder) Generate(ctx context.Context, systemPrompt string, recent []Turn, utterance string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastWindow = recent
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) > 0 {
		reply := f.replies[0]
		if len(f.replies) > 1 {
			f.replies = f.replies[1:]
		}
		return reply, nil
	}
	return fmt.Sprintf("reply %d", f.calls), nil
}

type fakeExtractor struct {
	mu     sync.Mutex
	fields OrderFields
	err    error
	calls  int
}

func (f *fakeExtractor) Extract(ctx context.Context, history []Turn, menuReference string) (OrderFields, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return OrderFields{}, f.err
	}
	return f.fields, nil
}

func (f *fakeExtractor) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeDirectory struct {
	tenantID string
	cfg      TenantConfig
	cfgErr   error
}

func (f *fakeDirectory) ResolveTenant(ctx context.Context, calledNumber string) (string, error) {
	if f.tenantID == "" {
		return "", errors.New("no tenant for number")
	}
	return f.tenantID, nil
}

func (f *fakeDirectory) ActiveConfig(ctx context.Context, tenantID string) (TenantConfig, error) {
	if f.cfgErr != nil {
		return TenantConfig{}, f.cfgErr
	}
	return f.cfg, nil
}

type fakeRecorder struct {
	mu          sync.Mutex
	starts      int
	ends        int
	turns       int
	emergencies int
	creates     int
	updates     int
	createErr   error
	updateErr   error
	nextOrderID int64
	lastFields  OrderFields
	lastOrderID int64
	lastEndSecs int
}

func (f *fakeRecorder) RecordCallStart(ctx context.Context, callID, callerNumber, tenantID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeRecorder) RecordCallEnd(ctx context.Context, callID string, durationSeconds int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ends++
	f.lastEndSecs = durationSeconds
	return nil
}

func (f *fakeRecorder) RecordTurn(ctx context.Context, callID string, turnNumber int, t Turn) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.turns++
	return nil
}

func (f *fakeRecorder) RecordEmergency(ctx context.Context, callID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.emergencies++
	return nil
}

func (f *fakeRecorder) CreateOrder(ctx context.Context, callID, callerNumber, tenantID string, fields OrderFields) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return 0, f.createErr
	}
	f.creates++
	f.lastFields = fields
	if f.nextOrderID == 0 {
		f.nextOrderID = 41
	}
	f.nextOrderID++
	return f.nextOrderID, nil
}

func (f *fakeRecorder) UpdateOrder(ctx context.Context, orderID int64, fields OrderFields) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates++
	f.lastOrderID = orderID
	f.lastFields = fields
	return nil
}

func (f *fakeRecorder) counts() (creates, updates int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.creates, f.updates
}

type fakeNotifier struct {
	mu        sync.Mutex
	created   int
	summaries int
	lastTranscript string
}

func (f *fakeNotifier) NotifyOrderCreated(ctx context.Context, fields OrderFields, callerNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	return nil
}

func (f *fakeNotifier) NotifySummary(ctx context.Context, callerNumber string, fields OrderFields, transcript string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.summaries++
	f.lastTranscript = transcript
	return nil
}
