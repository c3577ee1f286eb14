package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/answerline/answerline/pkg/gateway/apierror"
	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/gateway/feed"
)

// LiveHandler upgrades dashboard clients onto the call event feed.
// Browsers cannot set Authorization headers on websocket dials, so the
// token rides in a query parameter instead.
type LiveHandler struct {
	Hub            *feed.Hub
	Auth           *auth.Manager
	AllowedOrigins map[string]struct{}
	Logger         *slog.Logger
}

func (h LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		token, _ = auth.ParseBearer(r)
	}
	if token == "" {
		writeAPIError(w, r, apierror.TypeAuthentication, "missing token", "token")
		return
	}
	if _, err := h.Auth.Verify(token); err != nil {
		writeAPIError(w, r, apierror.TypeAuthentication, "invalid token", "token")
		return
	}

	upgrader := websocket.Upgrader{
		CheckOrigin: func(r *http.Request) bool {
			origin := strings.TrimSpace(r.Header.Get("Origin"))
			if origin == "" {
				// Non-browser clients.
				return true
			}
			if len(h.AllowedOrigins) == 0 {
				return false
			}
			_, ok := h.AllowedOrigins[origin]
			return ok
		},
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.Logger != nil {
			h.Logger.Warn("feed upgrade failed", "error", err)
		}
		return
	}
	h.Hub.Attach(conn)
}
