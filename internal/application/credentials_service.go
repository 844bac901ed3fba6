package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

const shopPingQuery = `query ShopPing { shop { id } }`

// CredentialsService handles encrypted Shopify credential storage and use
type CredentialsService struct {
	credentialRepo ports.CredentialRepository
	resolver       *IdentityResolver
	codec          ports.SecretCodec
	graphql        ports.ShopifyGraphQLClient
	metrics        ports.Metrics
	logger         zerolog.Logger
	now            func() time.Time
}

// NewCredentialsService creates a new credentials service
func NewCredentialsService(
	credentialRepo ports.CredentialRepository,
	resolver *IdentityResolver,
	codec ports.SecretCodec,
	graphql ports.ShopifyGraphQLClient,
	metrics ports.Metrics,
	logger zerolog.Logger,
) *CredentialsService {
	return &CredentialsService{
		credentialRepo: credentialRepo,
		resolver:       resolver,
		codec:          codec,
		graphql:        graphql,
		metrics:        metrics,
		logger:         logger,
		now:            time.Now,
	}
}

// Store encrypts a token and upserts it under the canonical domain
func (s *CredentialsService) Store(ctx context.Context, canonicalDomain, shopifyDomain, accessToken string) (*domain.ProviderCredential, error) {
	canonicalDomain = domain.NormalizeDomain(canonicalDomain)
	shopifyDomain = domain.NormalizeDomain(shopifyDomain)
	if canonicalDomain == "" {
		return nil, fmt.Errorf("%w: domain is required", domain.ErrValidation)
	}
	if strings.TrimSpace(accessToken) == "" {
		return nil, fmt.Errorf("%w: access token is required", domain.ErrValidation)
	}

	env, err := s.codec.Encrypt(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	cred := &domain.ProviderCredential{
		Domain:        canonicalDomain,
		ShopifyDomain: shopifyDomain,
		Ciphertext:    env.Ciphertext,
		IV:            env.IV,
		UpdatedAt:     s.now().UTC(),
	}
	if err := s.credentialRepo.Upsert(ctx, cred); err != nil {
		return nil, fmt.Errorf("failed to save credential: %w", err)
	}

	s.logger.Info().
		Str("domain", canonicalDomain).
		Str("shopifyDomain", shopifyDomain).
		Msg("Shopify credential saved")
	return cred, nil
}

// UpsertCredential stores a token supplied by an active store owner
func (s *CredentialsService) UpsertCredential(ctx context.Context, rawDomain, rawEmail, shopifyDomain, accessToken string) (*domain.ProviderCredential, error) {
	member, err := s.authorize(ctx, rawDomain, rawEmail)
	if err != nil {
		return nil, err
	}
	if !member.IsOwner() {
		return nil, domain.ErrForbidden
	}

	sd := domain.ProviderDomain(shopifyDomain)
	if sd == "" {
		sd = member.ShopifyDomain
	}
	if sd == "" {
		return nil, fmt.Errorf("%w: shopify domain is required", domain.ErrValidation)
	}
	return s.Store(ctx, member.CanonicalDomain, sd, accessToken)
}

// AccessToken authorizes the caller and returns the decrypted token for its
// store. A missing or unreadable credential is ErrReconnectRequired.
func (s *CredentialsService) AccessToken(ctx context.Context, rawDomain, rawEmail string) (string, *domain.StoreMembership, error) {
	member, err := s.authorize(ctx, rawDomain, rawEmail)
	if err != nil {
		return "", nil, err
	}

	token, cred, err := s.decryptFor(ctx, member.CanonicalDomain)
	if err != nil {
		return "", nil, err
	}
	if cred.ShopifyDomain != "" {
		member.ShopifyDomain = cred.ShopifyDomain
	}
	return token, member, nil
}

// Status reports whether the caller's store has a usable credential
func (s *CredentialsService) Status(ctx context.Context, rawDomain, rawEmail string) (*domain.CredentialStatus, error) {
	member, err := s.authorize(ctx, rawDomain, rawEmail)
	if err != nil {
		return nil, err
	}

	status := &domain.CredentialStatus{Domain: member.CanonicalDomain, ShopifyDomain: member.ShopifyDomain}
	_, cred, err := s.decryptFor(ctx, member.CanonicalDomain)
	if errors.Is(err, domain.ErrReconnectRequired) {
		status.ReconnectRequired = true
		return status, nil
	}
	if err != nil {
		return nil, err
	}

	updated := cred.UpdatedAt
	status.Connected = true
	status.ShopifyDomain = cred.ShopifyDomain
	status.UpdatedAt = &updated
	status.LastValidatedAt = cred.LastValidatedAt
	return status, nil
}

// Validate makes a lightweight provider call with the stored token and
// records the time of the last successful validation
func (s *CredentialsService) Validate(ctx context.Context, rawDomain, rawEmail string) (*domain.CredentialStatus, error) {
	token, member, err := s.AccessToken(ctx, rawDomain, rawEmail)
	if errors.Is(err, domain.ErrReconnectRequired) {
		return &domain.CredentialStatus{Domain: domain.NormalizeDomain(rawDomain), ReconnectRequired: true}, nil
	}
	if err != nil {
		return nil, err
	}

	var resp struct {
		Shop struct {
			ID string `json:"id"`
		} `json:"shop"`
	}
	if err := s.graphql.Query(ctx, member.ShopifyDomain, token, shopPingQuery, nil, &resp); err != nil {
		if isAuthFailure(err) {
			s.logger.Warn().
				Str("domain", member.CanonicalDomain).
				Msg("Token validation failed: token is invalid or revoked")
			return &domain.CredentialStatus{
				Domain:            member.CanonicalDomain,
				ShopifyDomain:     member.ShopifyDomain,
				ReconnectRequired: true,
			}, nil
		}
		return nil, fmt.Errorf("failed to validate token: %w", err)
	}

	if err := s.MarkValidated(ctx, member.CanonicalDomain); err != nil {
		return nil, err
	}
	return s.Status(ctx, rawDomain, rawEmail)
}

// MarkValidated records a successful provider call for a canonical domain
func (s *CredentialsService) MarkValidated(ctx context.Context, canonicalDomain string) error {
	if err := s.credentialRepo.MarkValidated(ctx, canonicalDomain, s.now().UTC()); err != nil {
		return fmt.Errorf("failed to mark credential validated: %w", err)
	}
	return nil
}

// PurgeByShopifyDomain deletes every credential for a provider domain
func (s *CredentialsService) PurgeByShopifyDomain(ctx context.Context, shopifyDomain string) ([]string, error) {
	sd := domain.NormalizeDomain(shopifyDomain)
	if sd == "" {
		return nil, fmt.Errorf("%w: shopify domain is required", domain.ErrValidation)
	}
	affected, err := s.credentialRepo.DeleteByShopifyDomain(ctx, sd)
	if err != nil {
		return nil, fmt.Errorf("failed to delete credentials: %w", err)
	}
	s.logger.Info().
		Str("shopifyDomain", sd).
		Strs("affectedDomains", affected).
		Msg("Shopify credentials purged")
	return affected, nil
}

func (s *CredentialsService) authorize(ctx context.Context, rawDomain, rawEmail string) (*domain.StoreMembership, error) {
	member, err := s.resolver.Resolve(ctx, rawDomain, rawEmail)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, domain.ErrForbidden
	}
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, domain.ErrForbidden
	}
	return member, nil
}

func (s *CredentialsService) decryptFor(ctx context.Context, canonicalDomain string) (string, *domain.ProviderCredential, error) {
	cred, err := s.credentialRepo.GetByDomain(ctx, canonicalDomain)
	if err != nil {
		return "", nil, fmt.Errorf("failed to get credential: %w", err)
	}
	if cred == nil || cred.Ciphertext == "" {
		return "", nil, fmt.Errorf("%w: no credential stored", domain.ErrReconnectRequired)
	}

	token, source, err := s.codec.Decrypt(cred.Ciphertext, cred.IV)
	if errors.Is(err, domain.ErrDecryption) {
		s.logger.Warn().
			Str("domain", canonicalDomain).
			Msg("Stored credential could not be decrypted with any configured key")
		return "", nil, fmt.Errorf("%w: %v", domain.ErrReconnectRequired, err)
	}
	if err != nil {
		return "", nil, fmt.Errorf("failed to decrypt credential: %w", err)
	}
	s.metrics.CredentialDecrypted(string(source.Kind))

	if source.IsLegacy() {
		s.reencrypt(ctx, cred, token, source)
	}
	return token, cred, nil
}

// reencrypt moves a credential opened by a legacy key under the primary key.
// Failure is logged and counted but never fails the read.
func (s *CredentialsService) reencrypt(ctx context.Context, cred *domain.ProviderCredential, token string, source domain.KeySource) {
	env, err := s.codec.Encrypt(token)
	if err == nil {
		updated := *cred
		updated.Ciphertext = env.Ciphertext
		updated.IV = env.IV
		updated.UpdatedAt = s.now().UTC()
		err = s.credentialRepo.Upsert(ctx, &updated)
	}
	if err != nil {
		s.metrics.CredentialReencryptFailed()
		s.logger.Warn().
			Err(err).
			Str("domain", cred.Domain).
			Str("keySlot", source.Slot).
			Msg("Failed to re-encrypt credential under the primary key")
		return
	}
	s.logger.Info().
		Str("domain", cred.Domain).
		Str("keySlot", source.Slot).
		Msg("Re-encrypted credential under the primary key")
}

// isAuthFailure checks whether a provider error means the token was rejected
func isAuthFailure(err error) bool {
	return errors.Is(err, domain.ErrAuthentication)
}
