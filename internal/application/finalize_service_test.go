package application

import (
	"context"
	"errors"
	"testing"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/infrastructure/encryption"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finalizeFixture struct {
	*credentialsFixture
	tenants  *memTenants
	mappings *memMappings
	svc      *FinalizeService
}

func newFinalizeFixture() *finalizeFixture {
	cf := newCredentialsFixture()
	f := &finalizeFixture{
		credentialsFixture: cf,
		tenants:            newMemTenants(),
		mappings:           &memMappings{rows: map[string]string{}},
	}
	f.svc = NewFinalizeService(f.tenants, cf.members, f.mappings, cf.svc, nopLogger())
	return f
}

func TestFinalizeService_ProvisionsTenantOwnerAndCredential(t *testing.T) {
	f := newFinalizeFixture()
	ctx := context.Background()

	result, err := f.svc.Finalize(ctx, domain.FinalizeRequest{
		ShopifyDomain: "Foo.myshopify.com",
		AccessToken:   "tok_1",
		OwnerEmail:    "Owner@Example.com",
		Scope:         "read_metaobjects",
	})
	require.NoError(t, err)
	assert.True(t, result.OK)
	assert.NotEmpty(t, result.ShopID)
	assert.Equal(t, "foo.myshopify.com", result.ShopifyDomain)
	assert.Equal(t, "owner@example.com", result.OwnerEmail)

	tenant := f.tenants.rows["foo.myshopify.com"]
	require.NotNil(t, tenant)
	assert.Equal(t, result.ShopID, tenant.ID)
	assert.Equal(t, "read_metaobjects", tenant.Scope)

	owner := f.members.rows[memberKey("foo.myshopify.com", "owner@example.com")]
	require.NotNil(t, owner)
	assert.Equal(t, domain.RoleOwner, owner.Role)
	assert.Equal(t, domain.StatusActive, owner.Status)

	// the owner can now read the stored token back
	token, _, err := f.credentialsFixture.svc.AccessToken(ctx, "foo.myshopify.com", "owner@example.com")
	require.NoError(t, err)
	assert.Equal(t, "tok_1", token)
}

func TestFinalizeService_IsIdempotentPerShop(t *testing.T) {
	f := newFinalizeFixture()
	ctx := context.Background()
	req := domain.FinalizeRequest{ShopifyDomain: "foo.myshopify.com", AccessToken: "tok_1"}

	first, err := f.svc.Finalize(ctx, req)
	require.NoError(t, err)
	req.AccessToken = "tok_2"
	second, err := f.svc.Finalize(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first.ShopID, second.ShopID)
	assert.Len(t, f.tenants.rows, 1)
	assert.Len(t, f.creds.rows, 1)

	stored := f.creds.rows["foo.myshopify.com"]
	token, _, err := f.codec.Decrypt(stored.Ciphertext, stored.IV)
	require.NoError(t, err)
	assert.Equal(t, "tok_2", token)
	assert.Empty(t, f.members.rows)
}

func TestFinalizeService_UsesMappedDomain(t *testing.T) {
	f := newFinalizeFixture()
	f.mappings.rows["foo.myshopify.com"] = "Shop.Example.com"

	_, err := f.svc.Finalize(context.Background(), domain.FinalizeRequest{
		ShopifyDomain: "foo.myshopify.com",
		AccessToken:   "tok",
		OwnerEmail:    "owner@example.com",
	})
	require.NoError(t, err)

	cred := f.creds.rows["shop.example.com"]
	require.NotNil(t, cred)
	assert.Equal(t, "foo.myshopify.com", cred.ShopifyDomain)
	assert.NotNil(t, f.tenants.rows["shop.example.com"])
	assert.NotNil(t, f.members.rows[memberKey("shop.example.com", "owner@example.com")])
}

func TestFinalizeService_Failures(t *testing.T) {
	tests := []struct {
		name   string
		req    domain.FinalizeRequest
		setup  func(f *finalizeFixture)
		reason string
	}{
		{
			name:   "invalid shop",
			req:    domain.FinalizeRequest{ShopifyDomain: "shop.example.com", AccessToken: "tok"},
			reason: ReasonFinalizeInvalidRequest,
		},
		{
			name:   "missing token",
			req:    domain.FinalizeRequest{ShopifyDomain: "foo.myshopify.com"},
			reason: ReasonFinalizeInvalidRequest,
		},
		{
			name:   "tenant storage",
			req:    domain.FinalizeRequest{ShopifyDomain: "foo.myshopify.com", AccessToken: "tok"},
			setup:  func(f *finalizeFixture) { f.tenants.err = errStorage },
			reason: ReasonFinalizeStorageFailed,
		},
		{
			name:   "credential storage",
			req:    domain.FinalizeRequest{ShopifyDomain: "foo.myshopify.com", AccessToken: "tok"},
			setup:  func(f *finalizeFixture) { f.creds.upsertErr = errStorage },
			reason: ReasonFinalizeStorageFailed,
		},
		{
			name: "missing primary key",
			req:  domain.FinalizeRequest{ShopifyDomain: "foo.myshopify.com", AccessToken: "tok"},
			setup: func(f *finalizeFixture) {
				f.credentialsFixture.svc.codec = encryption.NewCodec("UNSET", nil, encryption.MapKeyLoader(nil))
			},
			reason: ReasonFinalizeKeyMissing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFinalizeFixture()
			if tt.setup != nil {
				tt.setup(f)
			}

			result, err := f.svc.Finalize(context.Background(), tt.req)
			require.Error(t, err)
			assert.Nil(t, result)

			var fe *FinalizeError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.reason, fe.Reason)
		})
	}
}
