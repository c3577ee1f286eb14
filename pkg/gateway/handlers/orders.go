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

type OrderStore interface {
	Orders(ctx context.Context, orgID int64, status, orderType, search string, limit int) ([]store.Order, error)
	Order(ctx context.Context, orgID, orderID int64) (*store.Order, error)
	UpdateOrderStatus(ctx context.Context, orgID, orderID int64, status string) error
	OrderStatistics(ctx context.Context, orgID int64) (store.OrderStats, error)
}

var validOrderStatuses = map[string]bool{
	"pending":   true,
	"confirmed": true,
	"completed": true,
	"cancelled": true,
}

type OrdersHandler struct {
	DB OrderStore
}

func (h OrdersHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	q := r.URL.Query()
	limit := 50
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	orders, err := h.DB.Orders(r.Context(), p.OrgID,
		strings.TrimSpace(q.Get("status")),
		strings.TrimSpace(q.Get("type")),
		strings.TrimSpace(q.Get("search")),
		limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h OrdersHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "invalid order id", "id")
		return
	}
	order, err := h.DB.Order(r.Context(), p.OrgID, orderID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, order)
}

func (h OrdersHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	orderID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "invalid order id", "id")
		return
	}

	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if !validOrderStatuses[req.Status] {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "invalid status", "status")
		return
	}

	if err := h.DB.UpdateOrderStatus(r.Context(), p.OrgID, orderID, req.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": orderID, "status": req.Status})
}

func (h OrdersHandler) Stats(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	stats, err := h.DB.OrderStatistics(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
