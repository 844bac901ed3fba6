package application

import (
	"fmt"
	"net/url"
	"strings"

	"storefront-identity-layer/internal/domain"
)

// FlowState is the position of one install attempt in the OAuth handshake
type FlowState int

const (
	FlowIdle FlowState = iota
	FlowStateIssued
	FlowCallbackReceived
	FlowStateValid
	FlowStateInvalid
	FlowSignatureValid
	FlowSignatureInvalid
	FlowTokenExchanged
	FlowExchangeFailed
	FlowFinalized
	FlowFinalizeFailed
	// FlowRejected ends a callback that could not be processed at all
	// (missing configuration, missing parameters, unexpected error)
	FlowRejected
)

var flowStateNames = map[FlowState]string{
	FlowIdle:             "idle",
	FlowStateIssued:      "state_issued",
	FlowCallbackReceived: "callback_received",
	FlowStateValid:       "state_valid",
	FlowStateInvalid:     "state_invalid",
	FlowSignatureValid:   "signature_valid",
	FlowSignatureInvalid: "signature_invalid",
	FlowTokenExchanged:   "token_exchanged",
	FlowExchangeFailed:   "exchange_failed",
	FlowFinalized:        "finalized",
	FlowFinalizeFailed:   "finalize_failed",
	FlowRejected:         "rejected",
}

func (s FlowState) String() string {
	if name, ok := flowStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("flow_state(%d)", int(s))
}

// Terminal reports whether no further transition is possible
func (s FlowState) Terminal() bool {
	switch s {
	case FlowFinalized, FlowStateInvalid, FlowSignatureInvalid, FlowExchangeFailed, FlowFinalizeFailed, FlowRejected:
		return true
	}
	return false
}

// Failed reports whether the state is a terminal failure
func (s FlowState) Failed() bool {
	return s.Terminal() && s != FlowFinalized
}

// Callback reason codes
const (
	ReasonMissingOAuthConfig      = "MISSING_OAUTH_CONFIG"
	ReasonInvalidCallbackParams   = "INVALID_CALLBACK_PARAMS"
	ReasonStateMismatch           = "STATE_MISMATCH"
	ReasonStateReplayed           = "STATE_REPLAYED"
	ReasonInvalidHMAC             = "INVALID_HMAC"
	ReasonTokenExchangeMissing    = "TOKEN_EXCHANGE_MISSING_ACCESS_TOKEN"
	ReasonTokenExchangeFailed     = "TOKEN_EXCHANGE_FAILED"
	ReasonFinalizeFailed          = "FINALIZE_FAILED"
	ReasonUnexpectedCallbackError = "UNEXPECTED_CALLBACK_ERROR"
	reasonTokenExchangeHTTPPrefix = "TOKEN_EXCHANGE_HTTP_"
	outcomeConnected              = "connected"
)

// TokenExchangeHTTPReason is the reason code for a non-2xx token endpoint response
func TokenExchangeHTTPReason(status int) string {
	return fmt.Sprintf("%s%d", reasonTokenExchangeHTTPPrefix, status)
}

// CallbackFlow carries one callback through its transitions
type CallbackFlow struct {
	State  FlowState
	Query  url.Values
	Params domain.CallbackParameters
	Reason string
	Grant  *domain.TokenGrant
	Result *domain.FinalizeResult
}

// NewCallbackFlow starts a flow for a received callback query
func NewCallbackFlow(query url.Values) *CallbackFlow {
	return &CallbackFlow{State: FlowIdle, Query: query}
}

func (f *CallbackFlow) fail(state FlowState, reason string) {
	f.State = state
	f.Reason = reason
}

// expect fails the flow closed when a transition is applied out of order
func (f *CallbackFlow) expect(state FlowState) bool {
	if f.State == state {
		return true
	}
	if !f.State.Terminal() {
		f.fail(FlowRejected, ReasonUnexpectedCallbackError)
	}
	return false
}

// Outcome is "connected" for a finalized flow and the reason code otherwise
func (f *CallbackFlow) Outcome() string {
	if f.State == FlowFinalized {
		return outcomeConnected
	}
	if f.Reason == "" {
		return ReasonUnexpectedCallbackError
	}
	return f.Reason
}

// Shop is the best shop identifier known for the redirect
func (f *CallbackFlow) Shop() string {
	if f.Result != nil && f.Result.ShopifyDomain != "" {
		return f.Result.ShopifyDomain
	}
	if f.Params.Shop != "" {
		return f.Params.Shop
	}
	if f.Query != nil {
		return domain.NormalizeDomain(f.Query.Get("shop"))
	}
	return ""
}

// RedirectURL builds the portal redirect for a terminal flow
func (f *CallbackFlow) RedirectURL(portalURL string) string {
	var b strings.Builder
	b.WriteString(portalURL)
	if strings.Contains(portalURL, "?") {
		b.WriteString("&")
	} else {
		b.WriteString("?")
	}

	if f.State == FlowFinalized {
		b.WriteString("shopify=connected")
	} else {
		b.WriteString("shopify=error&reason=")
		b.WriteString(url.QueryEscape(f.Outcome()))
	}
	if shop := f.Shop(); shop != "" {
		b.WriteString("&shop=")
		b.WriteString(url.QueryEscape(shop))
	}
	return b.String()
}
