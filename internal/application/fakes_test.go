package application

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/infrastructure/encryption"
	"storefront-identity-layer/internal/infrastructure/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

var errStorage = errors.New("storage unavailable")

const (
	testPrimarySlot = "TEST_PRIMARY_KEY"
	testLegacySlot  = "TEST_LEGACY_KEY"
)

var (
	testPrimaryKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))
	testLegacyKey  = base64.StdEncoding.EncodeToString([]byte("fedcba9876543210fedcba9876543210"))
)

func newTestCodec() *encryption.Codec {
	return encryption.NewCodec(testPrimarySlot, []string{testLegacySlot}, encryption.MapKeyLoader(map[string]string{
		testPrimarySlot: testPrimaryKey,
		testLegacySlot:  testLegacyKey,
	}))
}

func newLegacyOnlyCodec() *encryption.Codec {
	return encryption.NewCodec(testLegacySlot, nil, encryption.MapKeyLoader(map[string]string{
		testLegacySlot: testLegacyKey,
	}))
}

func newTestMetrics() *metrics.Metrics {
	return metrics.New(prometheus.NewRegistry())
}

func memberKey(d, email string) string { return d + "|" + email }

// memMembers is an in-memory membership table
type memMembers struct {
	mu      sync.Mutex
	rows    map[string]*domain.MemberRecord
	lookups []string
	err     error
}

func newMemMembers(rows ...*domain.MemberRecord) *memMembers {
	m := &memMembers{rows: map[string]*domain.MemberRecord{}}
	for _, r := range rows {
		m.rows[memberKey(r.Domain, r.Email)] = r
	}
	return m
}

func (m *memMembers) FindMember(ctx context.Context, d, email string) (*domain.MemberRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookups = append(m.lookups, memberKey(d, email))
	if m.err != nil {
		return nil, m.err
	}
	rec, ok := m.rows[memberKey(d, email)]
	if !ok {
		return nil, nil
	}
	cp := *rec
	return &cp, nil
}

func (m *memMembers) Upsert(ctx context.Context, rec *domain.MemberRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *rec
	m.rows[memberKey(rec.Domain, rec.Email)] = &cp
	return nil
}

// memStores is an in-memory legacy store table
type memStores struct {
	rows []*domain.LegacyStore
	err  error
}

func (s *memStores) FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.LegacyStore, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.rows {
		if r.ShopifyDomain == shopifyDomain {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStores) FindByDomain(ctx context.Context, d string) (*domain.LegacyStore, error) {
	if s.err != nil {
		return nil, s.err
	}
	for _, r := range s.rows {
		if r.Domain == d {
			cp := *r
			return &cp, nil
		}
	}
	return nil, nil
}

// memMappings is an in-memory credential mapping table
type memMappings struct {
	rows map[string]string
	err  error
}

func (m *memMappings) FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.CredentialMapping, error) {
	if m.err != nil {
		return nil, m.err
	}
	d, ok := m.rows[shopifyDomain]
	if !ok {
		return nil, nil
	}
	return &domain.CredentialMapping{ShopifyDomain: shopifyDomain, Domain: d}, nil
}

// memCredentials is an in-memory credential table
type memCredentials struct {
	mu        sync.Mutex
	rows      map[string]*domain.ProviderCredential
	upserts   int
	upsertErr error
	getErr    error
}

func newMemCredentials() *memCredentials {
	return &memCredentials{rows: map[string]*domain.ProviderCredential{}}
}

func (c *memCredentials) Upsert(ctx context.Context, cred *domain.ProviderCredential) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.upsertErr != nil {
		return c.upsertErr
	}
	c.upserts++
	cp := *cred
	c.rows[cred.Domain] = &cp
	return nil
}

func (c *memCredentials) GetByDomain(ctx context.Context, d string) (*domain.ProviderCredential, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
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
		t := at
		cred.LastValidatedAt = &t
	}
	return nil
}

func (c *memCredentials) writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.upserts
}

// memTenants is an in-memory tenant table keyed by domain
type memTenants struct {
	rows map[string]*domain.Tenant
	err  error
}

func newMemTenants() *memTenants {
	return &memTenants{rows: map[string]*domain.Tenant{}}
}

func (t *memTenants) Upsert(ctx context.Context, tenant *domain.Tenant) error {
	if t.err != nil {
		return t.err
	}
	if prev, ok := t.rows[tenant.Domain]; ok {
		tenant.ID = prev.ID
		tenant.CreatedAt = prev.CreatedAt
	}
	cp := *tenant
	t.rows[tenant.Domain] = &cp
	return nil
}

// memStates is an in-memory one-time state store
type memStates struct {
	mu       sync.Mutex
	rows     map[string]*domain.InstallState
	issueErr error
}

func newMemStates() *memStates {
	return &memStates{rows: map[string]*domain.InstallState{}}
}

func (s *memStates) Issue(ctx context.Context, state *domain.InstallState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.issueErr != nil {
		return s.issueErr
	}
	cp := *state
	s.rows[state.State] = &cp
	return nil
}

func (s *memStates) Consume(ctx context.Context, state string) (*domain.InstallState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rows[state]
	if !ok {
		return nil, nil
	}
	delete(s.rows, state)
	return st, nil
}

// stubExchanger returns a fixed grant or error
type stubExchanger struct {
	grant *domain.TokenGrant
	err   error
	calls int
	panic bool
}

func (e *stubExchanger) Exchange(ctx context.Context, shop, code string) (*domain.TokenGrant, error) {
	e.calls++
	if e.panic {
		panic("exchanger exploded")
	}
	if e.err != nil {
		return nil, e.err
	}
	cp := *e.grant
	return &cp, nil
}

// recordingFinalizer captures finalize requests
type recordingFinalizer struct {
	requests []domain.FinalizeRequest
	result   *domain.FinalizeResult
	err      error
}

func (f *recordingFinalizer) Finalize(ctx context.Context, req domain.FinalizeRequest) (*domain.FinalizeResult, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

// stubGraphQL answers every query with a canned JSON body or error
type stubGraphQL struct {
	response string
	err      error
	queries  []string
	vars     []map[string]any
	tokens   []string
}

func (g *stubGraphQL) Query(ctx context.Context, shopDomain, accessToken, query string, vars map[string]any, out any) error {
	g.queries = append(g.queries, query)
	g.vars = append(g.vars, vars)
	g.tokens = append(g.tokens, accessToken)
	if g.err != nil {
		return g.err
	}
	if g.response == "" || out == nil {
		return nil
	}
	return json.Unmarshal([]byte(g.response), out)
}

func nopLogger() zerolog.Logger { return zerolog.Nop() }
