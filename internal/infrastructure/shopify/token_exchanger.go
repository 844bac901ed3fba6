package shopify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

// DefaultTimeout bounds every outbound call to Shopify and the finalize endpoint
const DefaultTimeout = 10 * time.Second

// maxResponseBody caps how much of an upstream response is read
const maxResponseBody = 1 << 20

// TokenURLFunc builds the token endpoint for a shop
type TokenURLFunc func(shop string) string

// ShopTokenURL is the production token endpoint
func ShopTokenURL(shop string) string {
	return fmt.Sprintf("https://%s/admin/oauth/access_token", shop)
}

// TokenExchanger trades an OAuth authorization code for an offline access token
type TokenExchanger struct {
	apiKey      string
	apiSecret   string
	redirectURI string
	tokenURL    TokenURLFunc
	httpClient  *http.Client
	logger      zerolog.Logger
}

// NewTokenExchanger creates a token exchanger. A nil tokenURL uses ShopTokenURL.
func NewTokenExchanger(apiKey, apiSecret, redirectURI string, timeout time.Duration, tokenURL TokenURLFunc, logger zerolog.Logger) *TokenExchanger {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if tokenURL == nil {
		tokenURL = ShopTokenURL
	}
	return &TokenExchanger{
		apiKey:      apiKey,
		apiSecret:   apiSecret,
		redirectURI: redirectURI,
		tokenURL:    tokenURL,
		httpClient:  &http.Client{Timeout: timeout},
		logger:      logger,
	}
}

var _ ports.TokenExchanger = (*TokenExchanger)(nil)

type tokenResponse struct {
	AccessToken    string `json:"access_token"`
	Scope          string `json:"scope"`
	AssociatedUser *struct {
		Email string `json:"email"`
	} `json:"associated_user,omitempty"`
}

// Exchange posts the code to the shop's token endpoint. Non-2xx responses
// return an *domain.ExchangeError carrying the status.
func (e *TokenExchanger) Exchange(ctx context.Context, shop, code string) (*domain.TokenGrant, error) {
	values := url.Values{}
	values.Set("client_id", e.apiKey)
	values.Set("client_secret", e.apiSecret)
	values.Set("code", code)
	if e.redirectURI != "" {
		values.Set("redirect_uri", e.redirectURI)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.tokenURL(shop), strings.NewReader(values.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ExchangeError{Reason: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return nil, &domain.ExchangeError{Reason: fmt.Sprintf("failed to read token response: %v", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.Warn().
			Str("shop", shop).
			Int("status", resp.StatusCode).
			Msg("Token endpoint returned non-2xx status")
		return nil, &domain.ExchangeError{Status: resp.StatusCode}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, &domain.ExchangeError{Reason: fmt.Sprintf("failed to decode token response: %v", err)}
	}

	grant := &domain.TokenGrant{AccessToken: tr.AccessToken, Scope: tr.Scope}
	if tr.AssociatedUser != nil {
		grant.OwnerEmail = domain.NormalizeEmail(tr.AssociatedUser.Email)
	}
	return grant, nil
}
