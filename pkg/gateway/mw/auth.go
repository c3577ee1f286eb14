package mw

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/answerline/answerline/pkg/gateway/apierror"
	"github.com/answerline/answerline/pkg/gateway/auth"
)

// RequireAuth guards dashboard API routes with a bearer token minted by
// the auth manager.
func RequireAuth(m *auth.Manager, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, _ := RequestIDFrom(r.Context())

		token, ok := auth.ParseBearer(r)
		if !ok {
			writeJSONError(w, http.StatusUnauthorized, &apierror.Error{
				Type:      apierror.TypeAuthentication,
				Message:   "missing bearer token",
				Param:     "Authorization",
				RequestID: reqID,
			})
			return
		}
		p, err := m.Verify(token)
		if err != nil {
			writeJSONError(w, http.StatusUnauthorized, &apierror.Error{
				Type:      apierror.TypeAuthentication,
				Message:   "invalid token",
				RequestID: reqID,
			})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithPrincipal(r.Context(), p)))
	})
}

// WebhookToken guards telephony webhook routes with a shared token carried
// either as a query parameter or the X-Webhook-Token header. An empty
// configured token disables the check.
func WebhookToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := strings.TrimSpace(r.Header.Get("X-Webhook-Token"))
		if got == "" {
			got = strings.TrimSpace(r.URL.Query().Get("token"))
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			reqID, _ := RequestIDFrom(r.Context())
			writeJSONError(w, http.StatusForbidden, &apierror.Error{
				Type:      apierror.TypePermission,
				Message:   "invalid webhook token",
				RequestID: reqID,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}
