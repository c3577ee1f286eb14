package handlers

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/answerline/answerline/pkg/gateway/apierror"
	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/store"
)

type ExportStore interface {
	CallsForExport(ctx context.Context, orgID int64) ([]store.Call, error)
	Orders(ctx context.Context, orgID int64, status, orderType, search string, limit int) ([]store.Order, error)
}

type ExportHandler struct {
	DB ExportStore
}

func (h ExportHandler) Calls(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	calls, err := h.DB.CallsForExport(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	beginCSV(w, "calls")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"call_sid", "caller_phone", "start_time", "end_time", "duration_seconds", "status", "is_emergency"})
	for _, c := range calls {
		endTime := ""
		if c.EndTime != nil {
			endTime = c.EndTime.UTC().Format(time.RFC3339)
		}
		duration := ""
		if c.DurationSeconds != nil {
			duration = strconv.Itoa(*c.DurationSeconds)
		}
		_ = cw.Write([]string{
			c.CallSID,
			c.CallerPhone,
			c.StartTime.UTC().Format(time.RFC3339),
			endTime,
			duration,
			c.Status,
			strconv.FormatBool(c.IsEmergency),
		})
	}
	cw.Flush()
}

func (h ExportHandler) Orders(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	orders, err := h.DB.Orders(r.Context(), p.OrgID, "", "", "", 10_000)
	if err != nil {
		writeError(w, r, err)
		return
	}

	beginCSV(w, "orders")
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"id", "call_sid", "caller_phone", "customer_name", "items", "order_type",
		"delivery_address", "payment_method", "total_estimate", "order_status", "created_at"})
	for _, o := range orders {
		_ = cw.Write([]string{
			strconv.FormatInt(o.ID, 10),
			o.CallSID,
			o.CallerPhone,
			o.CustomerName,
			o.Items,
			o.OrderType,
			o.DeliveryAddress,
			o.PaymentMethod,
			o.TotalEstimate,
			o.OrderStatus,
			o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	cw.Flush()
}

func beginCSV(w http.ResponseWriter, name string) {
	filename := name + "_" + time.Now().UTC().Format("20060102") + ".csv"
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
}
