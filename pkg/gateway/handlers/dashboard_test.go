package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/store"
)

type fakeDashboardStore struct {
	calls  []store.Call
	orders map[int64]*store.Order

	lastSearch string
	lastLimit  int
}

func (f *fakeDashboardStore) RecentCalls(ctx context.Context, orgID int64, search string, limit int) ([]store.Call, error) {
	f.lastSearch, f.lastLimit = search, limit
	return f.calls, nil
}

func (f *fakeDashboardStore) CallDetails(ctx context.Context, orgID int64, callSID string) (*store.CallDetails, error) {
	for _, c := range f.calls {
		if c.CallSID == callSID {
			return &store.CallDetails{Call: c}, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeDashboardStore) Statistics(ctx context.Context, orgID int64) (store.Stats, error) {
	return store.Stats{TotalCalls: len(f.calls)}, nil
}

func (f *fakeDashboardStore) ChartData(ctx context.Context, orgID int64, days int) ([]store.ChartPoint, error) {
	return []store.ChartPoint{{Day: "2026-03-14", Calls: 2, Orders: 1}}, nil
}

func (f *fakeDashboardStore) Orders(ctx context.Context, orgID int64, status, orderType, search string, limit int) ([]store.Order, error) {
	out := make([]store.Order, 0, len(f.orders))
	for _, o := range f.orders {
		out = append(out, *o)
	}
	return out, nil
}

func (f *fakeDashboardStore) Order(ctx context.Context, orgID, orderID int64) (*store.Order, error) {
	o, ok := f.orders[orderID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return o, nil
}

func (f *fakeDashboardStore) UpdateOrderStatus(ctx context.Context, orgID, orderID int64, status string) error {
	o, ok := f.orders[orderID]
	if !ok {
		return store.ErrNotFound
	}
	o.OrderStatus = status
	return nil
}

func (f *fakeDashboardStore) OrderStatistics(ctx context.Context, orgID int64) (store.OrderStats, error) {
	return store.OrderStats{Total: len(f.orders)}, nil
}

func (f *fakeDashboardStore) CallsForExport(ctx context.Context, orgID int64) ([]store.Call, error) {
	return f.calls, nil
}

func newDashboardStore() *fakeDashboardStore {
	end := time.Date(2026, 3, 14, 10, 1, 35, 0, time.UTC)
	dur := 95
	return &fakeDashboardStore{
		calls: []store.Call{
			{ID: 1, CallSID: "CA1", CallerPhone: "+1555", OrganizationID: 1,
				StartTime: time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
				EndTime:   &end, DurationSeconds: &dur, Status: "completed"},
		},
		orders: map[int64]*store.Order{
			5: {ID: 5, CallSID: "CA1", CallerPhone: "+1555", Items: "1 large pepperoni", OrderStatus: "pending",
				CreatedAt: time.Date(2026, 3, 14, 10, 1, 0, 0, time.UTC)},
		},
	}
}

func authedRequest(method, path string) *http.Request {
	r := httptest.NewRequest(method, path, nil)
	return r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{UserID: 1, OrgID: 1}))
}

func TestCallsList(t *testing.T) {
	db := newDashboardStore()
	h := CallsHandler{DB: db}

	rec := httptest.NewRecorder()
	h.List(rec, authedRequest("GET", "/api/calls?search=555&limit=10"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if db.lastSearch != "555" || db.lastLimit != 10 {
		t.Fatalf("search=%q limit=%d", db.lastSearch, db.lastLimit)
	}
	var resp struct {
		Calls []store.Call `json:"calls"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Calls) != 1 || resp.Calls[0].CallSID != "CA1" {
		t.Fatalf("calls = %+v", resp.Calls)
	}
}

func TestCallsList_Unauthenticated(t *testing.T) {
	h := CallsHandler{DB: newDashboardStore()}
	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest("GET", "/api/calls", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCallDetails_NotFound(t *testing.T) {
	h := CallsHandler{DB: newDashboardStore()}
	r := authedRequest("GET", "/api/calls/CA404")
	r.SetPathValue("sid", "CA404")
	rec := httptest.NewRecorder()
	h.Details(rec, r)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestOrderUpdateStatus(t *testing.T) {
	db := newDashboardStore()
	h := OrdersHandler{DB: db}

	body := strings.NewReader(`{"status":"completed"}`)
	r := httptest.NewRequest("PUT", "/api/orders/5/status", body)
	r = r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{OrgID: 1}))
	r.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if db.orders[5].OrderStatus != "completed" {
		t.Fatalf("order status = %q", db.orders[5].OrderStatus)
	}
}

func TestOrderUpdateStatus_InvalidStatus(t *testing.T) {
	h := OrdersHandler{DB: newDashboardStore()}
	r := httptest.NewRequest("PUT", "/api/orders/5/status", strings.NewReader(`{"status":"shipped"}`))
	r = r.WithContext(auth.WithPrincipal(r.Context(), &auth.Principal{OrgID: 1}))
	r.SetPathValue("id", "5")
	rec := httptest.NewRecorder()
	h.UpdateStatus(rec, r)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestExportCallsCSV(t *testing.T) {
	h := ExportHandler{DB: newDashboardStore()}
	rec := httptest.NewRecorder()
	h.Calls(rec, authedRequest("GET", "/api/export/calls"))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/csv") {
		t.Fatalf("content-type = %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("lines = %d, body = %s", len(lines), rec.Body.String())
	}
	if !strings.HasPrefix(lines[0], "call_sid,") {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.Contains(lines[1], "CA1") || !strings.Contains(lines[1], "95") {
		t.Fatalf("row = %q", lines[1])
	}
}

func TestStatsAndCharts(t *testing.T) {
	h := CallsHandler{DB: newDashboardStore()}

	rec := httptest.NewRecorder()
	h.Stats(rec, authedRequest("GET", "/api/stats"))
	if rec.Code != http.StatusOK {
		t.Fatalf("stats status = %d", rec.Code)
	}
	var stats store.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats.TotalCalls != 1 {
		t.Fatalf("stats = %+v", stats)
	}

	rec = httptest.NewRecorder()
	h.Charts(rec, authedRequest("GET", "/api/charts?days=7"))
	if rec.Code != http.StatusOK {
		t.Fatalf("charts status = %d", rec.Code)
	}
}
