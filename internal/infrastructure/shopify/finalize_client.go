package shopify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

// FinalizeSecretHeader carries the shared secret of the finalize endpoint
const FinalizeSecretHeader = "X-Finalize-Secret"

// FinalizeClient calls the finalize endpoint over HTTP when provisioning runs
// in a separate deployment
type FinalizeClient struct {
	url        string
	secret     string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFinalizeClient creates a finalize client
func NewFinalizeClient(url, secret string, timeout time.Duration, logger zerolog.Logger) *FinalizeClient {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &FinalizeClient{
		url:        url,
		secret:     secret,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

var _ ports.Finalizer = (*FinalizeClient)(nil)

// Finalize posts the request. A non-2xx response yields a result with
// reason FINALIZE_HTTP_<status> unless the body names a reason.
func (c *FinalizeClient) Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.FinalizeResult, error) {
	if c.url == "" || c.secret == "" {
		return nil, fmt.Errorf("%w: finalize endpoint is not configured", domain.ErrConfiguration)
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode finalize request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create finalize request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(FinalizeSecretHeader, c.secret)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to call finalize endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read finalize response: %w", err)
	}

	var result domain.FinalizeResult
	decodeErr := json.Unmarshal(body, &result)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.logger.Warn().
			Str("shop", req.ShopifyDomain).
			Int("status", resp.StatusCode).
			Msg("Finalize endpoint returned non-2xx status")
		reason := fmt.Sprintf("FINALIZE_HTTP_%d", resp.StatusCode)
		if decodeErr == nil && result.Reason != "" {
			reason = result.Reason
		}
		return &domain.FinalizeResult{OK: false, Reason: reason, ShopifyDomain: req.ShopifyDomain}, nil
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode finalize response: %w", decodeErr)
	}
	return &result, nil
}
