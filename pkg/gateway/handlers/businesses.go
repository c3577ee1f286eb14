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

type BusinessStore interface {
	Businesses(ctx context.Context, orgID int64) ([]store.Business, error)
	Business(ctx context.Context, orgID, businessID int64) (*store.Business, error)
	CreateBusiness(ctx context.Context, b store.Business) (int64, error)
	UpdateBusiness(ctx context.Context, orgID int64, b store.Business) error
	SetActiveBusiness(ctx context.Context, orgID, businessID int64) error
}

type BusinessesHandler struct {
	DB BusinessStore
}

func (h BusinessesHandler) List(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	businesses, err := h.DB.Businesses(r.Context(), p.OrgID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"businesses": businesses})
}

func (h BusinessesHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	businessID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "invalid business id", "id")
		return
	}
	b, err := h.DB.Business(r.Context(), p.OrgID, businessID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

func (h BusinessesHandler) Create(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	var b store.Business
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, err)
		return
	}
	if strings.TrimSpace(b.Name) == "" {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "business name required", "name")
		return
	}
	b.OrganizationID = p.OrgID

	id, err := h.DB.CreateBusiness(r.Context(), b)
	if err != nil {
		writeError(w, r, err)
		return
	}
	b.ID = id
	writeJSON(w, http.StatusCreated, b)
}

func (h BusinessesHandler) Update(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	businessID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "invalid business id", "id")
		return
	}

	var b store.Business
	if err := decodeJSON(r, &b); err != nil {
		writeError(w, r, err)
		return
	}
	b.ID = businessID
	b.OrganizationID = p.OrgID

	if err := h.DB.UpdateBusiness(r.Context(), p.OrgID, b); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Activate makes one business answer the organization's calls; its
// siblings are deactivated in the same transaction.
func (h BusinessesHandler) Activate(w http.ResponseWriter, r *http.Request) {
	p, ok := auth.PrincipalFrom(r.Context())
	if !ok {
		writeAPIError(w, r, apierror.TypeAuthentication, "not authenticated", "")
		return
	}

	businessID, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeAPIError(w, r, apierror.TypeInvalidRequest, "invalid business id", "id")
		return
	}

	if err := h.DB.SetActiveBusiness(r.Context(), p.OrgID, businessID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"id": businessID, "is_active": true})
}
