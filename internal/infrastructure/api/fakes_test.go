package api

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"storefront-identity-layer/internal/domain"
)

type memMembers struct {
	mu   sync.Mutex
	rows map[string]*domain.MemberRecord
}

func newMemMembers() *memMembers {
	return &memMembers{rows: map[string]*domain.MemberRecord{}}
}

func (m *memMembers) FindMember(ctx context.Context, d, email string) (*domain.MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.rows[d+"|"+email]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memMembers) Upsert(ctx context.Context, rec *domain.MemberRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *rec
	m.rows[rec.Domain+"|"+rec.Email] = &cp
	return nil
}

type noStores struct{}

func (noStores) FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.LegacyStore, error) {
	return nil, nil
}

func (noStores) FindByDomain(ctx context.Context, d string) (*domain.LegacyStore, error) {
	return nil, nil
}

type noMappings struct{}

func (noMappings) FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.CredentialMapping, error) {
	return nil, nil
}

type memCredentials struct {
	mu   sync.Mutex
	rows map[string]*domain.ProviderCredential
}

func newMemCredentials() *memCredentials {
	return &memCredentials{rows: map[string]*domain.ProviderCredential{}}
}

func (c *memCredentials) Upsert(ctx context.Context, cred *domain.ProviderCredential) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	cp := *cred
	c.rows[cred.Domain] = &cp
	return nil
}

func (c *memCredentials) GetByDomain(ctx context.Context, d string) (*domain.ProviderCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	cred, ok := c.rows[d]
	if !ok {
		return nil, nil
	}
	cp := *cred
	return &cp, nil
}

func (c *memCredentials) DeleteByShopifyDomain(ctx context.Context, shopifyDomain string) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	affected := []string{}
	for d, cred := range c.rows {
		if cred.ShopifyDomain == shopifyDomain {
			affected = append(affected, d)
			delete(c.rows, d)
		}
	}
	return affected, nil
}

func (c *memCredentials) MarkValidated(ctx context.Context, d string, at time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cred, ok := c.rows[d]; ok {
		cred.LastValidatedAt = &at
	}
	return nil
}

func (c *memCredentials) get(d string) *domain.ProviderCredential {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rows[d]
}

type memTenants struct {
	mu   sync.Mutex
	rows map[string]*domain.Tenant
}

func (t *memTenants) Upsert(ctx context.Context, tenant *domain.Tenant) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if prev, ok := t.rows[tenant.Domain]; ok {
		tenant.ID = prev.ID
		tenant.CreatedAt = prev.CreatedAt
	}
	cp := *tenant
	t.rows[tenant.Domain] = &cp
	return nil
}

type stubGraphQL struct {
	response string
}

func (g *stubGraphQL) Query(ctx context.Context, shopDomain, accessToken, query string, vars map[string]any, out any) error {
	if g.response == "" || out == nil {
		return nil
	}
	return json.Unmarshal([]byte(g.response), out)
}
