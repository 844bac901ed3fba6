package application

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Finalize failure reasons reported back to the callback
const (
	ReasonFinalizeInvalidRequest = "FINALIZE_INVALID_REQUEST"
	ReasonFinalizeStorageFailed  = "FINALIZE_STORAGE_FAILED"
	ReasonFinalizeKeyMissing     = "FINALIZE_ENCRYPTION_KEY_MISSING"
)

// FinalizeError is a finalize failure with a machine-readable reason
type FinalizeError struct {
	Reason string
	Err    error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("finalize failed (%s): %v", e.Reason, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }

// FinalizeService provisions or updates the tenant for a freshly connected
// shop and stores its encrypted credential
type FinalizeService struct {
	tenantRepo  ports.TenantRepository
	memberRepo  ports.CanonicalMembershipRepository
	mappingRepo ports.CredentialMappingRepository
	credentials *CredentialsService
	logger      zerolog.Logger
	now         func() time.Time
}

// NewFinalizeService creates a new finalize service
func NewFinalizeService(
	tenantRepo ports.TenantRepository,
	memberRepo ports.CanonicalMembershipRepository,
	mappingRepo ports.CredentialMappingRepository,
	credentials *CredentialsService,
	logger zerolog.Logger,
) *FinalizeService {
	return &FinalizeService{
		tenantRepo:  tenantRepo,
		memberRepo:  memberRepo,
		mappingRepo: mappingRepo,
		credentials: credentials,
		logger:      logger,
		now:         time.Now,
	}
}

// Finalize is idempotent per shop: the tenant, owner membership and
// credential are all upserts keyed by domain
func (s *FinalizeService) Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.FinalizeResult, error) {
	shop, err := domain.ValidateShopDomain(req.ShopifyDomain)
	if err != nil {
		return nil, &FinalizeError{Reason: ReasonFinalizeInvalidRequest, Err: err}
	}
	if strings.TrimSpace(req.AccessToken) == "" {
		return nil, &FinalizeError{Reason: ReasonFinalizeInvalidRequest, Err: fmt.Errorf("%w: access_token is required", domain.ErrValidation)}
	}
	ownerEmail := domain.NormalizeEmail(req.OwnerEmail)

	canonical := shop
	mapping, err := s.mappingRepo.FindByShopifyDomain(ctx, shop)
	if err != nil {
		return nil, &FinalizeError{Reason: ReasonFinalizeStorageFailed, Err: err}
	}
	if mapping != nil && domain.NormalizeDomain(mapping.Domain) != "" {
		canonical = domain.NormalizeDomain(mapping.Domain)
	}

	now := s.now().UTC()
	tenant := &domain.Tenant{
		ID:            uuid.NewString(),
		Domain:        canonical,
		ShopifyDomain: shop,
		OwnerEmail:    ownerEmail,
		Scope:         req.Scope,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.tenantRepo.Upsert(ctx, tenant); err != nil {
		return nil, &FinalizeError{Reason: ReasonFinalizeStorageFailed, Err: err}
	}

	if ownerEmail != "" {
		owner := &domain.MemberRecord{
			Domain:        canonical,
			Email:         ownerEmail,
			Role:          domain.RoleOwner,
			Status:        domain.StatusActive,
			ShopifyDomain: shop,
			UpdatedAt:     now,
		}
		if err := s.memberRepo.Upsert(ctx, owner); err != nil {
			return nil, &FinalizeError{Reason: ReasonFinalizeStorageFailed, Err: err}
		}
	}

	if _, err := s.credentials.Store(ctx, canonical, shop, req.AccessToken); err != nil {
		reason := ReasonFinalizeStorageFailed
		if errors.Is(err, domain.ErrConfiguration) {
			reason = ReasonFinalizeKeyMissing
		}
		return nil, &FinalizeError{Reason: reason, Err: err}
	}

	s.logger.Info().
		Str("shopId", tenant.ID).
		Str("shop", shop).
		Str("domain", canonical).
		Bool("ownerProvisioned", ownerEmail != "").
		Msg("Shopify installation finalized")

	return &domain.FinalizeResult{
		OK:            true,
		ShopID:        tenant.ID,
		ShopifyDomain: shop,
		OwnerEmail:    ownerEmail,
	}, nil
}
