package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/answerline/answerline/pkg/gateway/apierror"
	"github.com/answerline/answerline/pkg/gateway/mw"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	apiErr, status := apierror.FromError(err, reqID)
	writeJSON(w, status, apierror.Envelope{Error: apiErr})
}

func writeAPIError(w http.ResponseWriter, r *http.Request, t apierror.Type, message, param string) {
	reqID, _ := mw.RequestIDFrom(r.Context())
	writeJSON(w, apierror.StatusFromType(t), apierror.Envelope{Error: &apierror.Error{
		Type:      t,
		Message:   message,
		Param:     param,
		RequestID: reqID,
	}})
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return &apierror.Error{Type: apierror.TypeInvalidRequest, Message: "invalid request body"}
	}
	return nil
}
