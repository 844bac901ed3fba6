package shopify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"storefront-identity-layer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rewriteTransport sends every request to a local test server
type rewriteTransport struct {
	target *url.URL
}

func (t rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.URL.Scheme = t.target.Scheme
	req.URL.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	target, err := url.Parse(srv.URL)
	require.NoError(t, err)

	c := NewClient("key", "secret", "", 0, zerolog.Nop()).(*client)
	c.httpClient = &http.Client{Transport: rewriteTransport{target: target}}
	return c
}

func TestCheckDocument(t *testing.T) {
	assert.NoError(t, CheckDocument(`query ShopPing { shop { id } }`))
	assert.NoError(t, CheckDocument(`mutation M($id: ID!) { metaobjectDelete(id: $id) { deletedId } }`))

	for _, doc := range []string{"", "   ", "query {", "fragment F on Shop { id }"} {
		assert.ErrorIs(t, CheckDocument(doc), domain.ErrValidation, doc)
	}
}

func TestClient_Query(t *testing.T) {
	var gotPath, gotToken string
	var gotBody map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotToken = r.Header.Get("X-Shopify-Access-Token")
		raw, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(raw, &gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"shop":{"id":"gid://shopify/Shop/1"}}}`))
	})

	var out struct {
		Shop struct {
			ID string `json:"id"`
		} `json:"shop"`
	}
	err := c.Query(context.Background(), "foo", "tok_1", `query ShopPing { shop { id } }`, map[string]any{"a": 1}, &out)
	require.NoError(t, err)
	assert.Equal(t, "gid://shopify/Shop/1", out.Shop.ID)
	assert.Equal(t, "/admin/api/"+DefaultAPIVersion+"/graphql.json", gotPath)
	assert.Equal(t, "tok_1", gotToken)
	assert.Contains(t, gotBody["query"], "ShopPing")
}

func TestClient_QueryRejectedToken(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(status)
				_, _ = w.Write([]byte(`{"errors":"[API] Invalid API key or access token (unrecognized login or wrong password)"}`))
			})

			err := c.Query(context.Background(), "foo.myshopify.com", "revoked", `query ShopPing { shop { id } }`, nil, nil)
			assert.ErrorIs(t, err, domain.ErrAuthentication)
		})
	}
}

func TestClient_QueryServerErrorIsNotAuthentication(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`{"errors":"upstream 401 from a proxy"}`))
	})

	err := c.Query(context.Background(), "foo.myshopify.com", "tok", `query ShopPing { shop { id } }`, nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrAuthentication)
}

func TestClient_QueryRejectsBadInputBeforeCalling(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	err := c.Query(context.Background(), "foo.myshopify.com", "tok", `query {`, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)

	err = c.Query(context.Background(), "shop.example.com", "tok", `query ShopPing { shop { id } }`, nil, nil)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.False(t, called)
}
