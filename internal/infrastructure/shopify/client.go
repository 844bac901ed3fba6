package shopify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	goshopify "github.com/bold-commerce/go-shopify/v4"
	"github.com/rs/zerolog"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// DefaultAPIVersion is the Admin API version used when none is configured
const DefaultAPIVersion = "2025-01"

type client struct {
	app        goshopify.App
	apiVersion string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a Shopify Admin GraphQL client adapter
func NewClient(apiKey, apiSecret, apiVersion string, timeout time.Duration, logger zerolog.Logger) ports.ShopifyGraphQLClient {
	if apiVersion == "" {
		apiVersion = DefaultAPIVersion
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &client{
		app: goshopify.App{
			ApiKey:    apiKey,
			ApiSecret: apiSecret,
		},
		apiVersion: apiVersion,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// createClient is a helper to create a goshopify client
func (c *client) createClient(shopDomain string, accessToken string) (*goshopify.Client, error) {
	client, err := goshopify.NewClient(
		c.app,
		shopDomain,
		accessToken,
		goshopify.WithVersion(c.apiVersion),
		goshopify.WithHTTPClient(c.httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return client, nil
}

// Query syntax-checks the document and runs it against the shop's Admin API
func (c *client) Query(ctx context.Context, shopDomain, accessToken, query string, vars map[string]any, out any) error {
	if err := CheckDocument(query); err != nil {
		return err
	}
	shop := domain.ProviderDomain(shopDomain)
	if shop == "" {
		return fmt.Errorf("%w: shop domain is required", domain.ErrValidation)
	}

	gql, err := c.createClient(shop, accessToken)
	if err != nil {
		return err
	}

	start := time.Now()
	err = gql.GraphQL.Query(ctx, query, vars, out)
	c.logger.Debug().
		Str("shop", shop).
		Dur("duration", time.Since(start)).
		Bool("ok", err == nil).
		Msg("Shopify GraphQL call")
	if err != nil {
		if status := responseStatus(err); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return fmt.Errorf("%w: shopify rejected the access token (status %d): %v", domain.ErrAuthentication, status, err)
		}
		return fmt.Errorf("shopify graphql query failed: %w", err)
	}
	return nil
}

// CheckDocument parses a GraphQL document and rejects anything that is not
// well formed before it leaves the process
func CheckDocument(query string) error {
	if strings.TrimSpace(query) == "" {
		return fmt.Errorf("%w: empty graphql document", domain.ErrValidation)
	}
	doc, err := parser.ParseQuery(&ast.Source{Name: "shopify", Input: query})
	if err != nil {
		return fmt.Errorf("%w: invalid graphql document: %v", domain.ErrValidation, err)
	}
	if len(doc.Operations) == 0 {
		return fmt.Errorf("%w: graphql document has no operation", domain.ErrValidation)
	}
	return nil
}

func responseStatus(err error) int {
	var respErr goshopify.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Status
	}
	var respErrPtr *goshopify.ResponseError
	if errors.As(err, &respErrPtr) && respErrPtr != nil {
		return respErrPtr.Status
	}
	var decodeErr goshopify.ResponseDecodingError
	if errors.As(err, &decodeErr) {
		return decodeErr.Status
	}
	return 0
}
