package application

import (
	"context"
	"fmt"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/ports"

	"github.com/rs/zerolog"
)

// LookupQuery is the normalized input shared by every lookup step
type LookupQuery struct {
	Domain         string
	ProviderDomain string
	Email          string
}

// MembershipLookup is one step of the resolution chain. It returns nil, nil
// when the step has nothing for the query.
type MembershipLookup interface {
	Name() string
	Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error)
}

// IdentityResolver maps a (domain, email) pair to a store membership across
// the canonical schema and every historical schema shape still in the database.
type IdentityResolver struct {
	steps     []MembershipLookup
	canonical ports.MembershipRepository
	logger    zerolog.Logger
}

// NewIdentityResolver wires the six lookup steps in resolution order
func NewIdentityResolver(
	legacyMembers ports.MembershipRepository,
	legacyStores ports.LegacyStoreRepository,
	mappings ports.CredentialMappingRepository,
	canonicalMembers ports.MembershipRepository,
	logger zerolog.Logger,
) *IdentityResolver {
	rr := reresolver{legacy: legacyMembers, canonical: canonicalMembers}
	return NewIdentityResolverWithSteps(canonicalMembers, logger,
		legacyMemberByDomain{repo: legacyMembers},
		legacyMemberByProviderDomain{repo: legacyMembers},
		legacyStoreByProviderDomain{stores: legacyStores, rr: rr},
		legacyStoreByDomain{stores: legacyStores, rr: rr},
		credentialMappingByProviderDomain{mappings: mappings, rr: rr},
		canonicalMemberByDomain{repo: canonicalMembers},
	)
}

// NewIdentityResolverWithSteps builds a resolver from an explicit step list
func NewIdentityResolverWithSteps(canonical ports.MembershipRepository, logger zerolog.Logger, steps ...MembershipLookup) *IdentityResolver {
	return &IdentityResolver{steps: steps, canonical: canonical, logger: logger}
}

// Resolve returns the first membership any step produces. A canonical
// membership for the same canonical domain overrides the role and status
// found by a legacy step. A miss is ErrNotFound.
func (r *IdentityResolver) Resolve(ctx context.Context, rawDomain, rawEmail string) (*domain.StoreMembership, error) {
	q := LookupQuery{
		Domain: domain.NormalizeDomain(rawDomain),
		Email:  domain.NormalizeEmail(rawEmail),
	}
	if q.Domain == "" || q.Email == "" {
		return nil, domain.ErrNotFound
	}
	q.ProviderDomain = domain.ProviderDomain(q.Domain)

	for _, step := range r.steps {
		m, err := step.Lookup(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("resolve membership (%s): %w", step.Name(), err)
		}
		if m == nil {
			continue
		}

		m.Domain = q.Domain
		m.Email = q.Email
		if m.ShopifyDomain == "" {
			m.ShopifyDomain = domain.ProviderDomain(m.CanonicalDomain)
		}
		if err := r.applyCanonical(ctx, m); err != nil {
			return nil, err
		}

		r.logger.Debug().
			Str("domain", q.Domain).
			Str("canonicalDomain", m.CanonicalDomain).
			Str("step", step.Name()).
			Str("status", string(m.Status)).
			Msg("Resolved store membership")
		return m, nil
	}

	return nil, domain.ErrNotFound
}

func (r *IdentityResolver) applyCanonical(ctx context.Context, m *domain.StoreMembership) error {
	if r.canonical == nil {
		return nil
	}
	rec, err := r.canonical.FindMember(ctx, m.CanonicalDomain, m.Email)
	if err != nil {
		return fmt.Errorf("resolve membership (canonical overlay): %w", err)
	}
	if rec == nil {
		return nil
	}
	m.Role = rec.Role
	m.Status = rec.Status
	if rec.InvitedBy != "" {
		m.InvitedBy = rec.InvitedBy
	}
	if rec.ShopifyDomain != "" {
		m.ShopifyDomain = rec.ShopifyDomain
	}
	return nil
}

func membershipFromRecord(rec *domain.MemberRecord) *domain.StoreMembership {
	return &domain.StoreMembership{
		Role:            rec.Role,
		Status:          rec.Status,
		InvitedBy:       rec.InvitedBy,
		CanonicalDomain: rec.Domain,
		ShopifyDomain:   rec.ShopifyDomain,
	}
}

// reresolver finds the membership for a domain discovered through a store or
// mapping row: legacy member, then canonical member, then the store owner.
type reresolver struct {
	legacy    ports.MembershipRepository
	canonical ports.MembershipRepository
}

func (rr reresolver) resolve(ctx context.Context, nativeDomain, shopifyDomain, ownerEmail, email string) (*domain.StoreMembership, error) {
	nativeDomain = domain.NormalizeDomain(nativeDomain)
	if nativeDomain == "" {
		return nil, nil
	}

	for _, repo := range []ports.MembershipRepository{rr.legacy, rr.canonical} {
		if repo == nil {
			continue
		}
		rec, err := repo.FindMember(ctx, nativeDomain, email)
		if err != nil {
			return nil, err
		}
		if rec != nil {
			m := membershipFromRecord(rec)
			m.CanonicalDomain = nativeDomain
			if m.ShopifyDomain == "" {
				m.ShopifyDomain = shopifyDomain
			}
			return m, nil
		}
	}

	if ownerEmail != "" && domain.NormalizeEmail(ownerEmail) == email {
		return &domain.StoreMembership{
			Role:            domain.RoleOwner,
			Status:          domain.StatusActive,
			CanonicalDomain: nativeDomain,
			ShopifyDomain:   shopifyDomain,
		}, nil
	}
	return nil, nil
}

type legacyMemberByDomain struct {
	repo ports.MembershipRepository
}

func (s legacyMemberByDomain) Name() string { return "legacy_member_by_domain" }

func (s legacyMemberByDomain) Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error) {
	rec, err := s.repo.FindMember(ctx, q.Domain, q.Email)
	if err != nil || rec == nil {
		return nil, err
	}
	m := membershipFromRecord(rec)
	m.CanonicalDomain = q.Domain
	return m, nil
}

type legacyMemberByProviderDomain struct {
	repo ports.MembershipRepository
}

func (s legacyMemberByProviderDomain) Name() string { return "legacy_member_by_provider_domain" }

func (s legacyMemberByProviderDomain) Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error) {
	if q.ProviderDomain == "" || q.ProviderDomain == q.Domain {
		return nil, nil
	}
	rec, err := s.repo.FindMember(ctx, q.ProviderDomain, q.Email)
	if err != nil || rec == nil {
		return nil, err
	}
	m := membershipFromRecord(rec)
	m.CanonicalDomain = q.ProviderDomain
	m.ShopifyDomain = q.ProviderDomain
	return m, nil
}

type legacyStoreByProviderDomain struct {
	stores ports.LegacyStoreRepository
	rr     reresolver
}

func (s legacyStoreByProviderDomain) Name() string { return "legacy_store_by_provider_domain" }

func (s legacyStoreByProviderDomain) Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error) {
	if q.ProviderDomain == "" {
		return nil, nil
	}
	store, err := s.stores.FindByShopifyDomain(ctx, q.ProviderDomain)
	if err != nil || store == nil {
		return nil, err
	}
	return s.rr.resolve(ctx, store.Domain, q.ProviderDomain, store.OwnerEmail, q.Email)
}

type legacyStoreByDomain struct {
	stores ports.LegacyStoreRepository
	rr     reresolver
}

func (s legacyStoreByDomain) Name() string { return "legacy_store_by_domain" }

func (s legacyStoreByDomain) Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error) {
	store, err := s.stores.FindByDomain(ctx, q.Domain)
	if err != nil || store == nil {
		return nil, err
	}
	return s.rr.resolve(ctx, store.Domain, domain.NormalizeDomain(store.ShopifyDomain), store.OwnerEmail, q.Email)
}

type credentialMappingByProviderDomain struct {
	mappings ports.CredentialMappingRepository
	rr       reresolver
}

func (s credentialMappingByProviderDomain) Name() string {
	return "credential_mapping_by_provider_domain"
}

func (s credentialMappingByProviderDomain) Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error) {
	if q.ProviderDomain == "" {
		return nil, nil
	}
	mapping, err := s.mappings.FindByShopifyDomain(ctx, q.ProviderDomain)
	if err != nil || mapping == nil {
		return nil, err
	}
	return s.rr.resolve(ctx, mapping.Domain, q.ProviderDomain, "", q.Email)
}

type canonicalMemberByDomain struct {
	repo ports.MembershipRepository
}

func (s canonicalMemberByDomain) Name() string { return "canonical_member_by_domain" }

func (s canonicalMemberByDomain) Lookup(ctx context.Context, q LookupQuery) (*domain.StoreMembership, error) {
	rec, err := s.repo.FindMember(ctx, q.Domain, q.Email)
	if err != nil || rec == nil {
		return nil, err
	}
	m := membershipFromRecord(rec)
	m.CanonicalDomain = q.Domain
	return m, nil
}
