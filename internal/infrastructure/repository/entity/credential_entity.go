package entity

import (
	"time"

	"storefront-identity-layer/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MongoCredentialDoc represents an encrypted Shopify credential in MongoDB
type MongoCredentialDoc struct {
	Domain          string     `bson:"domain"`
	ShopifyDomain   string     `bson:"shopifyDomain"`
	Ciphertext      string     `bson:"ciphertext"`
	IV              string     `bson:"iv"`
	UpdatedAt       time.Time  `bson:"updatedAt"`
	LastValidatedAt *time.Time `bson:"lastValidatedAt,omitempty"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCredentialDoc) ToDomain() *domain.ProviderCredential {
	return &domain.ProviderCredential{
		Domain:          d.Domain,
		ShopifyDomain:   d.ShopifyDomain,
		Ciphertext:      d.Ciphertext,
		IV:              d.IV,
		UpdatedAt:       d.UpdatedAt,
		LastValidatedAt: d.LastValidatedAt,
	}
}

// MongoCredentialDocFromDomain converts a domain entity to a MongoDB document
func MongoCredentialDocFromDomain(cred *domain.ProviderCredential) *MongoCredentialDoc {
	return &MongoCredentialDoc{
		Domain:          cred.Domain,
		ShopifyDomain:   cred.ShopifyDomain,
		Ciphertext:      cred.Ciphertext,
		IV:              cred.IV,
		UpdatedAt:       cred.UpdatedAt,
		LastValidatedAt: cred.LastValidatedAt,
	}
}

// MongoCredentialMappingDoc maps a provider domain to a native tenant domain
type MongoCredentialMappingDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	ShopifyDomain string             `bson:"shopifyDomain"`
	Domain        string             `bson:"domain"`
	CreatedAt     time.Time          `bson:"createdAt"`
	UpdatedAt     time.Time          `bson:"updatedAt"`
}

// ToDomain converts the MongoDB document to a domain entity
func (d *MongoCredentialMappingDoc) ToDomain() *domain.CredentialMapping {
	return &domain.CredentialMapping{
		ID:            d.ID.Hex(),
		ShopifyDomain: d.ShopifyDomain,
		Domain:        d.Domain,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
}
