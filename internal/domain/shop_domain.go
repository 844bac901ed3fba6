package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// ProviderSuffix is the suffix of every Shopify-issued shop domain
const ProviderSuffix = ".myshopify.com"

var shopHandlePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// NormalizeDomain lower-cases a domain and strips scheme, credentials, path,
// query, fragment, port and trailing dots. Repeated provider suffixes left
// behind by earlier faulty writes are collapsed. NormalizeDomain is idempotent.
func NormalizeDomain(raw string) string {
	d := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.Index(d, "://"); i >= 0 {
		d = d[i+3:]
	}
	if i := strings.IndexAny(d, "/?#"); i >= 0 {
		d = d[:i]
	}
	if i := strings.LastIndex(d, "@"); i >= 0 {
		d = d[i+1:]
	}
	if i := strings.Index(d, ":"); i >= 0 {
		d = d[:i]
	}
	for {
		trimmed := strings.TrimRight(strings.TrimSpace(d), ".")
		if trimmed == d {
			break
		}
		d = trimmed
	}
	for strings.HasSuffix(d, ProviderSuffix+ProviderSuffix) {
		d = strings.TrimSuffix(d, ProviderSuffix)
	}
	return d
}

// NormalizeEmail lower-cases and trims an email address
func NormalizeEmail(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// ProviderDomain returns the Shopify form of a domain: the domain itself when
// it already carries the provider suffix, handle+suffix for a bare handle, and
// "" for custom domains that have no provider form.
func ProviderDomain(raw string) string {
	d := NormalizeDomain(raw)
	if d == "" {
		return ""
	}
	if strings.HasSuffix(d, ProviderSuffix) {
		return d
	}
	if !strings.Contains(d, ".") && shopHandlePattern.MatchString(d) {
		return d + ProviderSuffix
	}
	return ""
}

// ValidateShopDomain normalizes a shop parameter and checks that it names a
// Shopify shop (`handle.myshopify.com`).
func ValidateShopDomain(raw string) (string, error) {
	shop := ProviderDomain(raw)
	if shop == "" {
		return "", fmt.Errorf("%w: invalid shop domain %q", ErrValidation, raw)
	}
	handle := strings.TrimSuffix(shop, ProviderSuffix)
	if handle == "" || strings.Contains(handle, ".") || !shopHandlePattern.MatchString(handle) {
		return "", fmt.Errorf("%w: invalid shop domain %q", ErrValidation, raw)
	}
	return shop, nil
}
