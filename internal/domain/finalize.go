package domain

// FinalizeRequest is the body of the internal finalize call made after a
// successful token exchange.
type FinalizeRequest struct {
	ShopifyDomain string `json:"shopify_domain"`
	AccessToken   string `json:"access_token"`
	OwnerEmail    string `json:"owner_email,omitempty"`
	Scope         string `json:"scope,omitempty"`
}

// FinalizeResult is the finalize endpoint's response
type FinalizeResult struct {
	OK            bool   `json:"ok"`
	ShopID        string `json:"shop_id,omitempty"`
	ShopifyDomain string `json:"shopify_domain,omitempty"`
	OwnerEmail    string `json:"owner_email,omitempty"`
	Reason        string `json:"reason,omitempty"`
}
