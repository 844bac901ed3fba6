package signature

import (
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const secret = "hush"

func TestCanonicalQuery(t *testing.T) {
	query := url.Values{
		"shop":      {"foo.myshopify.com"},
		"code":      {"0907a61c0c8d55e99db179b68161bc00"},
		"timestamp": {"1337178173"},
		"hmac":      {"ignored"},
		"signature": {"ignored"},
		"state":     {"abc"},
		"ids[]":     {"2", "1"},
	}

	assert.Equal(t,
		"code=0907a61c0c8d55e99db179b68161bc00&ids[]=1&ids[]=2&shop=foo.myshopify.com&state=abc&timestamp=1337178173",
		CanonicalQuery(query))
}

func TestVerifyQuery(t *testing.T) {
	query := url.Values{
		"shop":      {"foo.myshopify.com"},
		"code":      {"c0de"},
		"state":     {"abc"},
		"timestamp": {"1700000000"},
	}
	query.Set("hmac", Sign([]byte(CanonicalQuery(query)), secret, Hex))

	v := NewVerifier()
	assert.True(t, v.VerifyQuery(query, secret))

	upper := url.Values{}
	for k, vals := range query {
		upper[k] = append([]string(nil), vals...)
	}
	upper.Set("hmac", strings.ToUpper(query.Get("hmac")))
	assert.True(t, v.VerifyQuery(upper, secret), "hex signature compared case-insensitively")

	assert.False(t, v.VerifyQuery(query, "wrong-secret"))

	tampered := url.Values{}
	for k, vals := range query {
		tampered[k] = append([]string(nil), vals...)
	}
	tampered.Set("shop", "evil.myshopify.com")
	assert.False(t, v.VerifyQuery(tampered, secret))

	missing := url.Values{"shop": {"foo.myshopify.com"}}
	assert.False(t, v.VerifyQuery(missing, secret))
}

func TestVerifyWebhook(t *testing.T) {
	body := []byte(`{"id":1,"domain":"foo.myshopify.com"}`)
	sig := Sign(body, secret, Base64)

	v := NewVerifier()
	assert.True(t, v.VerifyWebhook(body, sig, secret))
	assert.False(t, v.VerifyWebhook(body, Sign(body, "other", Base64), secret))

	// whitespace changes the signed bytes
	assert.False(t, v.VerifyWebhook([]byte(`{"id": 1,"domain":"foo.myshopify.com"}`), sig, secret))
}

func TestVerify_Rejections(t *testing.T) {
	message := []byte("message")
	good := Sign(message, secret, Hex)

	lastByte := good[:len(good)-1] + string(flipHex(good[len(good)-1]))
	firstByte := string(flipHex(good[0])) + good[1:]

	tests := []struct {
		name     string
		provided string
		secret   string
	}{
		{"differs in last byte", lastByte, secret},
		{"differs in first byte", firstByte, secret},
		{"shorter", good[:len(good)-2], secret},
		{"longer", good + "00", secret},
		{"empty signature", "", secret},
		{"empty secret", good, ""},
		{"base64 instead of hex", Sign(message, secret, Base64), secret},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.False(t, Verify(message, tt.provided, tt.secret, Hex))
		})
	}

	assert.True(t, Verify(message, good, secret, Hex))
}

func flipHex(c byte) byte {
	if c == '0' {
		return '1'
	}
	return '0'
}
