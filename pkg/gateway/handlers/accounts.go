package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/answerline/answerline/pkg/gateway/apierror"
	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/store"
)

// AccountStore is the slice of the database the auth endpoints need.
type AccountStore interface {
	CreateOrganization(ctx context.Context, name string) (int64, error)
	CreateUser(ctx context.Context, email, passwordHash string, orgID int64, fullName, role string) (int64, error)
	UserByEmail(ctx context.Context, email string) (*store.User, error)
	UserByID(ctx context.Context, userID int64) (*store.User, error)
}

type AccountsHandler struct {
	DB     AccountStore
	Auth   *auth.Manager
	Logger *slog.Logger
}

type signupRequest struct {
	Email            string `json:"email"`
	Password         string `json:"password"`
	FullName         string `json:"full_name"`
	OrganizationName string `json:"organization_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string      `json:"token"`
	User  *store.User `json:"user"`
}

func (h AccountsHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "valid email required", "email")
		return
	}
	if len(req.Password) < 8 {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "password must be at least 8 characters", "password")
		return
	}
	if strings.TrimSpace(req.OrganizationName) == "" {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "organization name required", "organization_name")
		return
	}

	if existing, err := h.DB.UserByEmail(r.Context(), req.Email); err == nil && existing != nil {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "email already registered", "email")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	orgID, err := h.DB.CreateOrganization(r.Context(), strings.TrimSpace(req.OrganizationName))
	if err != nil {
		h.logError("create organization", err)
		writeError(w, r, err)
		return
	}
	userID, err := h.DB.CreateUser(r.Context(), req.Email, hash, orgID, strings.TrimSpace(req.FullName), "owner")
	if err != nil {
		h.logError("create user", err)
		writeError(w, r, err)
		return
	}

	h.issueToken(w, r, &store.User{
		ID:             userID,
		Email:          req.Email,
		OrganizationID: orgID,
		Role:           "owner",
		FullName:       strings.TrimSpace(req.FullName),
		IsActive:       true,
	}, http.StatusCreated)
}

func (h AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	user, err := h.DB.UserByEmail(r.Context(), strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil || user == nil || !user.IsActive || !auth.CheckPassword(user.PasswordHash, req.Password) {
		// One message for every failure mode; do not reveal which field was wrong.
		writeAPIError(w, r, apierror.TypeAuthentication, "invalid email or password", "")
		return
	}

	h.issueToken(w, r, user, http.StatusOK)
}

func (h AccountsHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}
	user, err := h.DB.UserByID(r.Context(), p.UserID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h AccountsHandler) issueToken(w http.ResponseWriter, r *http.Request, user *store.User, status int) {
	token, err := h.Auth.Mint(auth.Principal{UserID: user.ID, OrgID: user.OrganizationID, Email: user.Email})
	if err != nil {
		h.logError("mint token", err)
		writeError(w, r, err)
		return
	}
	writeJSON(w, status, tokenResponse{Token: token, User: user})
}

func (h AccountsHandler) logError(msg string, err error) {
	if h.Logger != nil {
		h.Logger.Error(msg, "error", err)
	}
}
