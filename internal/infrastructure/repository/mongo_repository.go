package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Collection names. The legacy collections predate the tenant model and are
// only read.
const (
	CredentialsCollection        = "shopify_credentials"
	CredentialMappingsCollection = "shopify_credential_mappings"
	MembershipsCollection        = "store_memberships"
	TenantsCollection            = "tenants"
	LegacyMembersCollection      = "store_members"
	LegacyStoresCollection       = "stores"
)

// caseInsensitive matches legacy rows written before emails and domains were
// normalized on insert
var caseInsensitive = &options.Collation{Locale: "en", Strength: 2}

// EnsureIndexes creates the unique keys the upserts rely on
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		CredentialsCollection: {
			{Keys: bson.D{{Key: "domain", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "shopifyDomain", Value: 1}}},
		},
		CredentialMappingsCollection: {
			{Keys: bson.D{{Key: "shopifyDomain", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		MembershipsCollection: {
			{Keys: bson.D{{Key: "domain", Value: 1}, {Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		TenantsCollection: {
			{Keys: bson.D{{Key: "domain", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}
