package entity

import (
	"time"

	"storefront-identity-layer/internal/domain"
)

// MongoTenantDoc represents a provisioned tenant in MongoDB
type MongoTenantDoc struct {
	ID            string    `bson:"_id"`
	Domain        string    `bson:"domain"`
	ShopifyDomain string    `bson:"shopifyDomain"`
	OwnerEmail    string    `bson:"ownerEmail,omitempty"`
	Scope         string    `bson:"scope,omitempty"`
	CreatedAt     time.Time `bson:"createdAt"`
	UpdatedAt     time.Time `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoTenantDoc) ToDomain() *domain.Tenant {
	return &domain.Tenant{
		ID:            d.ID,
		Domain:        d.Domain,
		ShopifyDomain: d.ShopifyDomain,
		OwnerEmail:    d.OwnerEmail,
		Scope:         d.Scope,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
