package api

import (
	"net/http"
	"strconv"

	"storefront-identity-layer/internal/application"
	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

const maxStoreBody = 256 << 10

type credentialRequest struct {
	ShopifyDomain string `json:"shopify_domain"`
	AccessToken   string `json:"access_token"`
}

type credentialResponse struct {
	OK            bool   `json:"ok"`
	Domain        string `json:"domain"`
	ShopifyDomain string `json:"shopify_domain"`
}

// StoreHandler serves the privileged per-store routes. The caller's domain
// and email come from the request context.
type StoreHandler struct {
	credentials *application.CredentialsService
	metaobjects *application.MetaobjectService
	logger      zerolog.Logger
}

// NewStoreHandler creates the store API handler
func NewStoreHandler(credentials *application.CredentialsService, metaobjects *application.MetaobjectService, logger zerolog.Logger) *StoreHandler {
	return &StoreHandler{credentials: credentials, metaobjects: metaobjects, logger: logger}
}

// PutCredential godoc
// PUT /api/shopify/credential
func (h *StoreHandler) PutCredential(w http.ResponseWriter, r *http.Request) {
	var req credentialRequest
	if err := decodeJSON(w, r, maxStoreBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	storeDomain, email := domain.GetCallerFromContext(r.Context())
	cred, err := h.credentials.UpsertCredential(r.Context(), storeDomain, email, req.ShopifyDomain, req.AccessToken)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, credentialResponse{OK: true, Domain: cred.Domain, ShopifyDomain: cred.ShopifyDomain})
}

// CredentialStatus godoc
// GET /api/shopify/credential/status
func (h *StoreHandler) CredentialStatus(w http.ResponseWriter, r *http.Request) {
	storeDomain, email := domain.GetCallerFromContext(r.Context())
	status, err := h.credentials.Status(r.Context(), storeDomain, email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ValidateCredential godoc
// POST /api/shopify/credential/validate
func (h *StoreHandler) ValidateCredential(w http.ResponseWriter, r *http.Request) {
	storeDomain, email := domain.GetCallerFromContext(r.Context())
	status, err := h.credentials.Validate(r.Context(), storeDomain, email)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// ListMetaobjects godoc
// GET /api/shopify/metaobjects?type=<type>&first=<n>
func (h *StoreHandler) ListMetaobjects(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	first := 0
	if raw := q.Get("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeMessage(w, http.StatusBadRequest, "first must be a positive integer")
			return
		}
		first = n
	}

	storeDomain, email := domain.GetCallerFromContext(r.Context())
	items, err := h.metaobjects.ListMetaobjects(r.Context(), storeDomain, email, q.Get("type"), first)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	if items == nil {
		items = []domain.Metaobject{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"metaobjects": items})
}

// UpsertMetaobject godoc
// POST /api/shopify/metaobjects
func (h *StoreHandler) UpsertMetaobject(w http.ResponseWriter, r *http.Request) {
	var req domain.MetaobjectUpsert
	if err := decodeJSON(w, r, maxStoreBody, &req); err != nil {
		writeError(w, h.logger, err)
		return
	}

	storeDomain, email := domain.GetCallerFromContext(r.Context())
	item, err := h.metaobjects.UpsertMetaobject(r.Context(), storeDomain, email, req)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"metaobject": item})
}
