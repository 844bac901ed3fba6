package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
)

type messageResponse struct {
	Message           string `json:"message"`
	ReconnectRequired bool   `json:"reconnect_required,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, messageResponse{Message: message})
}

// writeError maps the domain error taxonomy to a response. Lookup misses and
// authorization failures share one response so tenant existence is not leaked.
func writeError(w http.ResponseWriter, logger zerolog.Logger, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeMessage(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrForbidden):
		writeMessage(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, domain.ErrAuthentication):
		writeMessage(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, domain.ErrReconnectRequired):
		writeJSON(w, http.StatusConflict, messageResponse{
			Message:           "Shopify connection must be re-established",
			ReconnectRequired: true,
		})
	case errors.Is(err, domain.ErrConfiguration):
		logger.Error().Err(err).Msg("Configuration error")
		writeMessage(w, http.StatusInternalServerError, "service is not configured")
	default:
		logger.Error().Err(err).Msg("Request failed")
		writeMessage(w, http.StatusInternalServerError, "internal server error")
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, out any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: invalid JSON body", domain.ErrValidation)
	}
	return nil
}
