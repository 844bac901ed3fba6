package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"net/url"
	"sort"
	"strings"

	"storefront-identity-layer/internal/ports"
)

// Encoding of an expected signature
type Encoding int

const (
	Hex Encoding = iota
	Base64
)

var _ ports.SignatureVerifier = Verifier{}

// Verifier checks Shopify HMAC-SHA256 signatures
type Verifier struct{}

// NewVerifier creates a verifier
func NewVerifier() Verifier {
	return Verifier{}
}

// VerifyQuery authenticates an OAuth callback query string
func (Verifier) VerifyQuery(query url.Values, secret string) bool {
	provided := query.Get("hmac")
	if provided == "" {
		provided = query.Get("signature")
	}
	return Verify([]byte(CanonicalQuery(query)), strings.ToLower(provided), secret, Hex)
}

// VerifyWebhook authenticates a webhook body exactly as it was received
func (Verifier) VerifyWebhook(body []byte, signature, secret string) bool {
	return Verify(body, strings.TrimSpace(signature), secret, Base64)
}

// CanonicalQuery builds the signed message for an OAuth callback: every pair
// except hmac/signature, sorted by key then value, joined as k=v with &.
func CanonicalQuery(query url.Values) string {
	type pair struct{ key, value string }

	pairs := make([]pair, 0, len(query))
	for key, values := range query {
		if key == "hmac" || key == "signature" {
			continue
		}
		for _, v := range values {
			pairs = append(pairs, pair{key, v})
		}
	}
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].key != pairs[j].key {
			return pairs[i].key < pairs[j].key
		}
		return pairs[i].value < pairs[j].value
	})

	parts := make([]string, len(pairs))
	for i, p := range pairs {
		parts[i] = p.key + "=" + p.value
	}
	return strings.Join(parts, "&")
}

// Sign computes HMAC-SHA256(secret, message) in the given encoding
func Sign(message []byte, secret string, enc Encoding) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	sum := mac.Sum(nil)
	if enc == Base64 {
		return base64.StdEncoding.EncodeToString(sum)
	}
	return hex.EncodeToString(sum)
}

// Verify compares the provided signature with the expected one. Lengths are
// checked first; equal-length values are compared in constant time. Any
// mismatch, including an empty secret or signature, is false.
func Verify(message []byte, provided, secret string, enc Encoding) bool {
	if secret == "" || provided == "" {
		return false
	}
	expected := Sign(message, secret, enc)
	if len(expected) != len(provided) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) == 1
}
