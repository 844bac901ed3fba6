package entity

import (
	"time"

	"storefront-identity-layer/internal/domain"
)

// MongoMembershipDoc is a row of the canonical store_memberships collection
type MongoMembershipDoc struct {
	Domain        string    `bson:"domain"`
	Email         string    `bson:"email"`
	Role          string    `bson:"role"`
	Status        string    `bson:"status"`
	InvitedBy     string    `bson:"invitedBy,omitempty"`
	ShopifyDomain string    `bson:"shopifyDomain,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoMembershipDoc) ToDomain() *domain.MemberRecord {
	return &domain.MemberRecord{
		Domain:        d.Domain,
		Email:         d.Email,
		Role:          domain.Role(d.Role),
		Status:        domain.MembershipStatus(d.Status),
		InvitedBy:     d.InvitedBy,
		ShopifyDomain: d.ShopifyDomain,
		UpdatedAt:     d.UpdatedAt,
	}
}

// MongoMembershipDocFromDomain converts a domain entity to a MongoDB document
func MongoMembershipDocFromDomain(m *domain.MemberRecord) *MongoMembershipDoc {
	return &MongoMembershipDoc{
		Domain:        m.Domain,
		Email:         m.Email,
		Role:          string(m.Role),
		Status:        string(m.Status),
		InvitedBy:     m.InvitedBy,
		ShopifyDomain: m.ShopifyDomain,
		UpdatedAt:     m.UpdatedAt,
	}
}

// LegacyMemberDoc is a row of the pre-migration store_members collection.
// Older rows may omit status; those are treated as active.
type LegacyMemberDoc struct {
	StoreDomain string    `bson:"store_domain"`
	MemberEmail string    `bson:"member_email"`
	Role        string    `bson:"role"`
	Status      string    `bson:"status,omitempty"`
	InvitedBy   string    `bson:"invited_by,omitempty"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// ToDomain converts the legacy document to a domain entity
func (d *LegacyMemberDoc) ToDomain() *domain.MemberRecord {
	status := domain.MembershipStatus(d.Status)
	if status == "" {
		status = domain.StatusActive
	}
	role := domain.Role(d.Role)
	if role == "" {
		role = domain.RoleReader
	}
	return &domain.MemberRecord{
		Domain:    d.StoreDomain,
		Email:     d.MemberEmail,
		Role:      role,
		Status:    status,
		InvitedBy: d.InvitedBy,
		UpdatedAt: d.UpdatedAt,
	}
}

// LegacyStoreDoc is a row of the pre-migration stores collection
type LegacyStoreDoc struct {
	Domain        string `bson:"domain"`
	ShopifyDomain string `bson:"shopify_domain"`
	OwnerEmail    string `bson:"owner_email"`
}

// ToDomain converts the legacy document to a domain entity
func (d *LegacyStoreDoc) ToDomain() *domain.LegacyStore {
	return &domain.LegacyStore{
		Domain:        d.Domain,
		ShopifyDomain: d.ShopifyDomain,
		OwnerEmail:    d.OwnerEmail,
	}
}
