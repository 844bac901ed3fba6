package application

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

// OAuthConfig holds the app credentials and URLs of the install flow
type OAuthConfig struct {
	ClientID           string
	ClientSecret       string
	Scopes             []string
	RedirectURI        string
	InstallFallbackURL string
	PortalRedirectURL  string
}

// Configured reports whether the install flow can run
func (c OAuthConfig) Configured() bool {
	return c.ClientID != "" && c.ClientSecret != "" && c.RedirectURI != ""
}

// InstallRedirect is the result of starting an install
type InstallRedirect struct {
	URL       string
	State     string
	ExpiresAt time.Time
	// Fallback is set when OAuth is not configured and URL is the fallback page
	Fallback bool
}

// OAuthFlow runs the install handshake. Each callback transition is a method
// on OAuthFlow taking the CallbackFlow it advances.
type OAuthFlow struct {
	config     OAuthConfig
	states     ports.InstallStateStore
	verifier   ports.SignatureVerifier
	exchanger  ports.TokenExchanger
	finalizer  ports.Finalizer
	metrics    ports.Metrics
	logger     zerolog.Logger
	now        func() time.Time
	stateBytes int
}

// NewOAuthFlow creates the OAuth flow controller
func NewOAuthFlow(
	config OAuthConfig,
	states ports.InstallStateStore,
	verifier ports.SignatureVerifier,
	exchanger ports.TokenExchanger,
	finalizer ports.Finalizer,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *OAuthFlow {
	return &OAuthFlow{
		config:     config,
		states:     states,
		verifier:   verifier,
		exchanger:  exchanger,
		finalizer:  finalizer,
		metrics:    metrics,
		logger:     logger,
		now:        time.Now,
		stateBytes: 32,
	}
}

// PortalRedirectURL is where every callback ends
func (o *OAuthFlow) PortalRedirectURL() string {
	return o.config.PortalRedirectURL
}

// BeginInstall validates the shop, issues a one-time state and builds the
// provider authorization URL
func (o *OAuthFlow) BeginInstall(ctx context.Context, rawShop string) (*InstallRedirect, error) {
	shop, err := domain.ValidateShopDomain(rawShop)
	if err != nil {
		return nil, err
	}

	if !o.config.Configured() {
		if o.config.InstallFallbackURL == "" {
			return nil, fmt.Errorf("%w: oauth client is not configured", domain.ErrConfiguration)
		}
		o.logger.Warn().Str("shop", shop).Msg("OAuth not configured, redirecting install to fallback")
		return &InstallRedirect{URL: o.config.InstallFallbackURL, Fallback: true}, nil
	}

	stateBytes := make([]byte, o.stateBytes)
	if _, err := rand.Read(stateBytes); err != nil {
		return nil, fmt.Errorf("failed to generate state: %w", err)
	}
	now := o.now().UTC()
	state := &domain.InstallState{
		State:     hex.EncodeToString(stateBytes),
		Shop:      shop,
		CreatedAt: now,
		ExpiresAt: now.Add(domain.InstallStateTTL),
	}
	if err := o.states.Issue(ctx, state); err != nil {
		return nil, fmt.Errorf("failed to save install state: %w", err)
	}

	authURL := fmt.Sprintf(
		"https://%s/admin/oauth/authorize?client_id=%s&scope=%s&redirect_uri=%s&state=%s",
		shop,
		url.QueryEscape(o.config.ClientID),
		url.QueryEscape(strings.Join(o.config.Scopes, ",")),
		url.QueryEscape(o.config.RedirectURI),
		url.QueryEscape(state.State),
	)

	o.logger.Info().
		Str("shop", shop).
		Strs("scopes", o.config.Scopes).
		Msg("Issued install state and authorization redirect")

	return &InstallRedirect{URL: authURL, State: state.State, ExpiresAt: state.ExpiresAt}, nil
}

// HandleCallback drives a callback to a terminal state. It never returns an
// error: every failure is a terminal state with a reason code.
func (o *OAuthFlow) HandleCallback(ctx context.Context, query url.Values, cookieState string) (flow *CallbackFlow) {
	flow = NewCallbackFlow(query)
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error().Interface("panic", r).Msg("Unexpected error while handling OAuth callback")
			flow.fail(FlowRejected, ReasonUnexpectedCallbackError)
		}
		o.metrics.CallbackCompleted(flow.Outcome())
		event := o.logger.Info()
		if flow.State.Failed() {
			event = o.logger.Warn()
		}
		event.
			Str("shop", flow.Shop()).
			Str("state", flow.State.String()).
			Str("outcome", flow.Outcome()).
			Msg("OAuth callback completed")
	}()

	if !o.config.Configured() {
		flow.fail(FlowRejected, ReasonMissingOAuthConfig)
		return flow
	}

	o.Receive(flow)
	o.CheckState(ctx, flow, cookieState)
	o.CheckSignature(flow)
	o.Exchange(ctx, flow)
	o.Finalize(ctx, flow)
	return flow
}

// Receive extracts and validates the callback parameters: Idle -> CallbackReceived
func (o *OAuthFlow) Receive(flow *CallbackFlow) {
	if !flow.expect(FlowIdle) {
		return
	}
	q := flow.Query
	params := domain.CallbackParameters{
		Shop:  q.Get("shop"),
		Code:  q.Get("code"),
		State: q.Get("state"),
		HMAC:  q.Get("hmac"),
	}
	if params.Shop == "" || params.Code == "" || params.State == "" || params.HMAC == "" {
		flow.fail(FlowRejected, ReasonInvalidCallbackParams)
		return
	}
	shop, err := domain.ValidateShopDomain(params.Shop)
	if err != nil {
		flow.fail(FlowRejected, ReasonInvalidCallbackParams)
		return
	}
	params.Shop = shop
	flow.Params = params
	flow.State = FlowCallbackReceived
}

// CheckState compares the query state with the cookie in constant time and
// consumes the server-side record: CallbackReceived -> StateValid | StateInvalid
func (o *OAuthFlow) CheckState(ctx context.Context, flow *CallbackFlow, cookieState string) {
	if !flow.expect(FlowCallbackReceived) {
		return
	}
	if cookieState == "" || len(cookieState) != len(flow.Params.State) ||
		subtle.ConstantTimeCompare([]byte(cookieState), []byte(flow.Params.State)) != 1 {
		flow.fail(FlowStateInvalid, ReasonStateMismatch)
		return
	}

	issued, err := o.states.Consume(ctx, flow.Params.State)
	if err != nil {
		o.logger.Error().Err(err).Msg("Failed to consume install state")
		flow.fail(FlowStateInvalid, ReasonUnexpectedCallbackError)
		return
	}
	if issued == nil || issued.Expired(o.now()) {
		flow.fail(FlowStateInvalid, ReasonStateReplayed)
		return
	}
	if issued.Shop != flow.Params.Shop {
		flow.fail(FlowStateInvalid, ReasonStateMismatch)
		return
	}
	flow.State = FlowStateValid
}

// CheckSignature verifies the query HMAC: StateValid -> SignatureValid | SignatureInvalid
func (o *OAuthFlow) CheckSignature(flow *CallbackFlow) {
	if !flow.expect(FlowStateValid) {
		return
	}
	if !o.verifier.VerifyQuery(flow.Query, o.config.ClientSecret) {
		flow.fail(FlowSignatureInvalid, ReasonInvalidHMAC)
		return
	}
	flow.State = FlowSignatureValid
}

// Exchange trades the code for a token: SignatureValid -> TokenExchanged | ExchangeFailed
func (o *OAuthFlow) Exchange(ctx context.Context, flow *CallbackFlow) {
	if !flow.expect(FlowSignatureValid) {
		return
	}
	grant, err := o.exchanger.Exchange(ctx, flow.Params.Shop, flow.Params.Code)
	if err != nil {
		var exErr *domain.ExchangeError
		if errors.As(err, &exErr) && exErr.Status > 0 {
			flow.fail(FlowExchangeFailed, TokenExchangeHTTPReason(exErr.Status))
		} else {
			flow.fail(FlowExchangeFailed, ReasonTokenExchangeFailed)
		}
		o.logger.Warn().Err(err).Str("shop", flow.Params.Shop).Msg("Token exchange failed")
		return
	}
	if grant == nil || strings.TrimSpace(grant.AccessToken) == "" {
		flow.fail(FlowExchangeFailed, ReasonTokenExchangeMissing)
		return
	}
	flow.Grant = grant
	flow.State = FlowTokenExchanged
}

// Finalize provisions the tenant and stores the credential:
// TokenExchanged -> Finalized | FinalizeFailed
func (o *OAuthFlow) Finalize(ctx context.Context, flow *CallbackFlow) {
	if !flow.expect(FlowTokenExchanged) {
		return
	}
	result, err := o.finalizer.Finalize(ctx, domain.FinalizeRequest{
		ShopifyDomain: flow.Params.Shop,
		AccessToken:   flow.Grant.AccessToken,
		OwnerEmail:    flow.Grant.OwnerEmail,
		Scope:         flow.Grant.Scope,
	})
	// the token is not needed past this point
	flow.Grant.AccessToken = ""

	if err != nil {
		var fe *FinalizeError
		if errors.As(err, &fe) && fe.Reason != "" {
			flow.fail(FlowFinalizeFailed, fe.Reason)
		} else {
			flow.fail(FlowFinalizeFailed, ReasonFinalizeFailed)
		}
		o.logger.Warn().Err(err).Str("shop", flow.Params.Shop).Msg("Finalize failed")
		return
	}
	if result == nil || !result.OK {
		reason := ReasonFinalizeFailed
		if result != nil && result.Reason != "" {
			reason = result.Reason
		}
		flow.fail(FlowFinalizeFailed, reason)
		return
	}
	flow.Result = result
	flow.State = FlowFinalized
}
