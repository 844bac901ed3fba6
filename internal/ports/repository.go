package ports

import (
	"context"
	"time"

	"storefront-identity-layer/internal/domain"
)

// CredentialRepository persists encrypted provider credentials, one per tenant domain
type CredentialRepository interface {
	// Upsert creates or replaces the credential keyed by its Domain (last write wins)
	Upsert(ctx context.Context, cred *domain.ProviderCredential) error

	// GetByDomain returns nil, nil when no credential exists
	GetByDomain(ctx context.Context, domain string) (*domain.ProviderCredential, error)

	// DeleteByShopifyDomain removes every credential for a provider domain and
	// returns the tenant domains that were affected
	DeleteByShopifyDomain(ctx context.Context, shopifyDomain string) ([]string, error)

	// MarkValidated records the last successful provider call
	MarkValidated(ctx context.Context, domain string, at time.Time) error
}

// MembershipRepository looks up membership rows. Both the legacy member table
// and the canonical membership table implement it.
type MembershipRepository interface {
	// FindMember returns nil, nil on a miss
	FindMember(ctx context.Context, domain, email string) (*domain.MemberRecord, error)
}

// CanonicalMembershipRepository is the current-schema membership table
type CanonicalMembershipRepository interface {
	MembershipRepository
	Upsert(ctx context.Context, member *domain.MemberRecord) error
}

// LegacyStoreRepository reads the pre-migration store table
type LegacyStoreRepository interface {
	// FindByShopifyDomain returns nil, nil on a miss
	FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.LegacyStore, error)

	// FindByDomain returns nil, nil on a miss
	FindByDomain(ctx context.Context, domain string) (*domain.LegacyStore, error)
}

// CredentialMappingRepository maps provider domains to native tenant domains
type CredentialMappingRepository interface {
	// FindByShopifyDomain returns nil, nil on a miss
	FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.CredentialMapping, error)
}

// TenantRepository stores tenants provisioned by the finalize step
type TenantRepository interface {
	// Upsert creates or updates the tenant keyed by Domain; ID and CreatedAt of
	// an existing tenant are preserved and written back into the argument
	Upsert(ctx context.Context, tenant *domain.Tenant) error
}

// InstallStateStore keeps issued install states for one-time consumption
type InstallStateStore interface {
	Issue(ctx context.Context, state *domain.InstallState) error

	// Consume atomically fetches and deletes a state. It returns nil, nil when
	// the state was never issued, already consumed, or expired.
	Consume(ctx context.Context, state string) (*domain.InstallState, error)
}
