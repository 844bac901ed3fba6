package repository

import (
	"context"
	"fmt"
	"time"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/infrastructure/repository/entity"
	"storefront-identity-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoTenantRepository implements TenantRepository using MongoDB
type MongoTenantRepository struct {
	collection *mongo.Collection
}

// NewMongoTenantRepository creates a new MongoDB tenant repository
func NewMongoTenantRepository(db *mongo.Database) ports.TenantRepository {
	return &MongoTenantRepository{
		collection: db.Collection(TenantsCollection),
	}
}

// Upsert creates or updates a tenant by domain. The stored ID and CreatedAt
// win over the argument's.
func (r *MongoTenantRepository) Upsert(ctx context.Context, tenant *domain.Tenant) error {
	now := time.Now().UTC()
	if tenant.CreatedAt.IsZero() {
		tenant.CreatedAt = now
	}
	if tenant.UpdatedAt.IsZero() {
		tenant.UpdatedAt = now
	}

	filter := bson.M{"domain": tenant.Domain}
	set := bson.M{
		"shopifyDomain": tenant.ShopifyDomain,
		"scope":         tenant.Scope,
		"updatedAt":     tenant.UpdatedAt,
	}
	if tenant.OwnerEmail != "" {
		set["ownerEmail"] = tenant.OwnerEmail
	}
	update := bson.M{
		"$set": set,
		"$setOnInsert": bson.M{
			"_id":       tenant.ID,
			"createdAt": tenant.CreatedAt,
		},
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var doc entity.MongoTenantDoc
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc); err != nil {
		return fmt.Errorf("failed to save tenant: %w", err)
	}

	tenant.ID = doc.ID
	tenant.CreatedAt = doc.CreatedAt
	return nil
}
