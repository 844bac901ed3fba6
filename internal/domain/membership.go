package domain

import "time"

// Role of a member within a store
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleReader Role = "reader"
)

// MembershipStatus of a member within a store
type MembershipStatus string

const (
	StatusActive  MembershipStatus = "active"
	StatusPending MembershipStatus = "pending"
	StatusRemoved MembershipStatus = "removed"
)

// MemberRecord is the row shape shared by the legacy and canonical membership tables
type MemberRecord struct {
	Domain        string           `json:"domain"`
	Email         string           `json:"email"`
	Role          Role             `json:"role"`
	Status        MembershipStatus `json:"status"`
	InvitedBy     string           `json:"invited_by,omitempty"`
	ShopifyDomain string           `json:"shopify_domain,omitempty"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// StoreMembership is a resolved identity. It is derived on every
// authorization check and never stored.
type StoreMembership struct {
	// Domain is the requested domain, used for CORS and display
	Domain    string           `json:"domain"`
	Email     string           `json:"email"`
	Role      Role             `json:"role"`
	Status    MembershipStatus `json:"status"`
	InvitedBy string           `json:"invited_by,omitempty"`
	// CanonicalDomain keys credential storage
	CanonicalDomain string `json:"canonical_domain"`
	ShopifyDomain   string `json:"shopify_domain,omitempty"`
}

// IsActive reports whether the membership may authorize privileged operations
func (m *StoreMembership) IsActive() bool {
	return m != nil && m.Status == StatusActive
}

// CanWrite reports whether the member may change provider data
func (m *StoreMembership) CanWrite() bool {
	return m.IsActive() && (m.Role == RoleOwner || m.Role == RoleAdmin)
}

// IsOwner reports whether the member is an active owner
func (m *StoreMembership) IsOwner() bool {
	return m.IsActive() && m.Role == RoleOwner
}

// LegacyStore is a row of the pre-migration store table
type LegacyStore struct {
	Domain        string `json:"domain"`
	ShopifyDomain string `json:"shopify_domain"`
	OwnerEmail    string `json:"owner_email"`
}

// Tenant is the canonical record provisioned by the finalize step
type Tenant struct {
	ID            string    `json:"id"`
	Domain        string    `json:"domain"`
	ShopifyDomain string    `json:"shopify_domain"`
	OwnerEmail    string    `json:"owner_email,omitempty"`
	Scope         string    `json:"scope,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
