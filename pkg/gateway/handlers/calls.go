package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/answerline/answerline/pkg/gateway/apierror"
	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/store"
)

type CallStore interface {
	RecentCalls(ctx context.Context, orgID int64, search string, limit int) ([]store.Call, error)
	CallDetails(ctx context.Context, orgID int64, callSID string) (*store.CallDetails, error)
	Statistics(ctx context.Context, orgID int64) (store.Stats, error)
	ChartData(ctx context.Context, orgID int64, days int) ([]store.ChartPoint, error)
}

type CallsHandler struct {
	DB CallStore
}

func (h CallsHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	search := strings.TrimSpace(r.URL.Query().Get("search"))

	calls, err := h.DB.RecentCalls(r.Context(), p.OrgID, search, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": calls})
}

func (h CallsHandler) Details(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	callSID := r.PathValue("sid")
	details, err := h.DB.CallDetails(r.Context(), p.OrgID, callSID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

func (h CallsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	stats, err := h.DB.Statistics(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h CallsHandler) Charts(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	days := 30
	if raw := r.URL.Query().Get("days"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			days = n
		}
	}
	points, err := h.DB.ChartData(r.Context(), p.OrgID, days)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"points": points})
}
