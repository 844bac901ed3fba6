package api

import (
	"errors"
	"net/http"

	"storefront-identity-layer/internal/application"
	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

const maxFinalizeBody = 64 << 10

// FinalizeHandler serves the internal finalize endpoint. It is mounted
// behind the shared-secret middleware.
type FinalizeHandler struct {
	service *application.FinalizeService
	logger  zerolog.Logger
}

// NewFinalizeHandler creates the finalize HTTP handler
func NewFinalizeHandler(service *application.FinalizeService, logger zerolog.Logger) *FinalizeHandler {
	return &FinalizeHandler{service: service, logger: logger}
}

// Finalize godoc
// POST /internal/shopify/finalize
func (h *FinalizeHandler) Finalize(w http.ResponseWriter, r *http.Request) {
	var req domain.FinalizeRequest
	if err := decodeJSON(w, r, maxFinalizeBody, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, domain.FinalizeResult{OK: false, Reason: application.ReasonFinalizeInvalidRequest})
		return
	}

	result, err := h.service.Finalize(r.Context(), req)
	if err != nil {
		var fe *application.FinalizeError
		if !errors.As(err, &fe) {
			fe = &application.FinalizeError{Reason: application.ReasonFinalizeStorageFailed, Err: err}
		}
		status := http.StatusInternalServerError
		if fe.Reason == application.ReasonFinalizeInvalidRequest {
			status = http.StatusBadRequest
		}
		h.logger.Warn().
			Err(err).
			Str("shop", domain.NormalizeDomain(req.ShopifyDomain)).
			Str("reason", fe.Reason).
			Msg("Finalize rejected")
		writeJSON(w, status, domain.FinalizeResult{OK: false, Reason: fe.Reason, ShopifyDomain: domain.NormalizeDomain(req.ShopifyDomain)})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
