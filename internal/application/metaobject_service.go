package application

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

const (
	defaultMetaobjectPage = 50
	maxMetaobjectPage     = 250
)

const listMetaobjectsQuery = `query ListMetaobjects($type: String!, $first: Int!) {
  metaobjects(type: $type, first: $first) {
    nodes {
      id
      handle
      type
      updatedAt
      fields { key value }
    }
  }
}`

const upsertMetaobjectMutation = `mutation UpsertMetaobject($handle: MetaobjectHandleInput!, $metaobject: MetaobjectUpsertInput!) {
  metaobjectUpsert(handle: $handle, metaobject: $metaobject) {
    metaobject {
      id
      handle
      type
      updatedAt
      fields { key value }
    }
    userErrors { field message code }
  }
}`

// MetaobjectService runs privileged metaobject reads and writes with the
// caller's stored credential
type MetaobjectService struct {
	credentials *CredentialsService
	graphql     ports.ShopifyGraphQLClient
	logger      zerolog.Logger
}

// NewMetaobjectService creates a new metaobject service
func NewMetaobjectService(credentials *CredentialsService, graphql ports.ShopifyGraphQLClient, logger zerolog.Logger) *MetaobjectService {
	return &MetaobjectService{
		credentials: credentials,
		graphql:     graphql,
		logger:      logger,
	}
}

// ListMetaobjects returns metaobjects of a type. Any active member may read.
func (s *MetaobjectService) ListMetaobjects(ctx context.Context, rawDomain, rawEmail, objectType string, first int) ([]domain.Metaobject, error) {
	objectType = strings.TrimSpace(objectType)
	if objectType == "" {
		return nil, fmt.Errorf("%w: metaobject type is required", domain.ErrValidation)
	}
	if first <= 0 {
		first = defaultMetaobjectPage
	}
	if first > maxMetaobjectPage {
		first = maxMetaobjectPage
	}

	token, member, err := s.credentials.AccessToken(ctx, rawDomain, rawEmail)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Metaobjects struct {
			Nodes []domain.Metaobject `json:"nodes"`
		} `json:"metaobjects"`
	}
	vars := map[string]any{"type": objectType, "first": first}
	if err := s.query(ctx, member, token, listMetaobjectsQuery, vars, &resp); err != nil {
		return nil, err
	}

	s.logger.Debug().
		Str("domain", member.CanonicalDomain).
		Str("type", objectType).
		Int("count", len(resp.Metaobjects.Nodes)).
		Msg("Listed metaobjects")
	return resp.Metaobjects.Nodes, nil
}

// UpsertMetaobject creates or updates a metaobject by handle. Owners and
// admins only.
func (s *MetaobjectService) UpsertMetaobject(ctx context.Context, rawDomain, rawEmail string, input domain.MetaobjectUpsert) (*domain.Metaobject, error) {
	input.Type = strings.TrimSpace(input.Type)
	input.Handle = strings.TrimSpace(input.Handle)
	if input.Type == "" || input.Handle == "" {
		return nil, fmt.Errorf("%w: metaobject type and handle are required", domain.ErrValidation)
	}
	if len(input.Fields) == 0 {
		return nil, fmt.Errorf("%w: at least one field is required", domain.ErrValidation)
	}
	for _, f := range input.Fields {
		if strings.TrimSpace(f.Key) == "" {
			return nil, fmt.Errorf("%w: field key is required", domain.ErrValidation)
		}
	}

	token, member, err := s.credentials.AccessToken(ctx, rawDomain, rawEmail)
	if err != nil {
		return nil, err
	}
	if !member.CanWrite() {
		return nil, domain.ErrForbidden
	}

	var resp struct {
		MetaobjectUpsert struct {
			Metaobject *domain.Metaobject `json:"metaobject"`
			UserErrors []struct {
				Field   []string `json:"field"`
				Message string   `json:"message"`
				Code    string   `json:"code"`
			} `json:"userErrors"`
		} `json:"metaobjectUpsert"`
	}
	vars := map[string]any{
		"handle":     map[string]any{"type": input.Type, "handle": input.Handle},
		"metaobject": map[string]any{"fields": input.Fields},
	}
	if err := s.query(ctx, member, token, upsertMetaobjectMutation, vars, &resp); err != nil {
		return nil, err
	}

	if errs := resp.MetaobjectUpsert.UserErrors; len(errs) > 0 {
		msgs := make([]string, 0, len(errs))
		for _, e := range errs {
			msgs = append(msgs, e.Message)
		}
		return nil, fmt.Errorf("%w: %s", domain.ErrValidation, strings.Join(msgs, "; "))
	}
	if resp.MetaobjectUpsert.Metaobject == nil {
		return nil, fmt.Errorf("metaobject upsert returned no metaobject")
	}

	s.logger.Info().
		Str("domain", member.CanonicalDomain).
		Str("email", member.Email).
		Str("type", input.Type).
		Str("handle", input.Handle).
		Msg("Metaobject upserted")
	return resp.MetaobjectUpsert.Metaobject, nil
}

// query runs a document and records a successful call. A rejected token
// becomes ErrReconnectRequired.
func (s *MetaobjectService) query(ctx context.Context, member *domain.StoreMembership, token, document string, vars map[string]any, out any) error {
	err := s.graphql.Query(ctx, member.ShopifyDomain, token, document, vars, out)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return err
		}
		if isAuthFailure(err) {
			s.logger.Warn().
				Str("domain", member.CanonicalDomain).
				Msg("Shopify rejected the stored token")
			return fmt.Errorf("%w: %v", domain.ErrReconnectRequired, err)
		}
		return fmt.Errorf("failed to query shopify: %w", err)
	}

	if err := s.credentials.MarkValidated(ctx, member.CanonicalDomain); err != nil {
		s.logger.Warn().Err(err).Str("domain", member.CanonicalDomain).Msg("Failed to record credential validation")
	}
	return nil
}
