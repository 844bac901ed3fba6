package repository

import (
	"context"
	"fmt"

	"storefront-identity-layer/internal/domain"
	"storefront-identity-layer/internal/infrastructure/repository/entity"
	"storefront-identity-layer/internal/ports"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoLegacyStoreRepository reads the pre-migration stores collection
type MongoLegacyStoreRepository struct {
	collection *mongo.Collection
}

// NewMongoLegacyStoreRepository creates a new legacy store repository
func NewMongoLegacyStoreRepository(db *mongo.Database) ports.LegacyStoreRepository {
	return &MongoLegacyStoreRepository{
		collection: db.Collection(LegacyStoresCollection),
	}
}

// FindByShopifyDomain retrieves a legacy store by its provider domain
func (r *MongoLegacyStoreRepository) FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.LegacyStore, error) {
	return r.findOne(ctx, bson.M{"shopify_domain": shopifyDomain})
}

// FindByDomain retrieves a legacy store by its native domain
func (r *MongoLegacyStoreRepository) FindByDomain(ctx context.Context, storeDomain string) (*domain.LegacyStore, error) {
	return r.findOne(ctx, bson.M{"domain": storeDomain})
}

func (r *MongoLegacyStoreRepository) findOne(ctx context.Context, filter bson.M) (*domain.LegacyStore, error) {
	var doc entity.LegacyStoreDoc
	opts := options.FindOne().SetCollation(caseInsensitive)

	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get legacy store: %w", err)
	}

	return doc.ToDomain(), nil
}

// MongoCredentialMappingRepository implements CredentialMappingRepository using MongoDB
type MongoCredentialMappingRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialMappingRepository creates a new credential mapping repository
func NewMongoCredentialMappingRepository(db *mongo.Database) ports.CredentialMappingRepository {
	return &MongoCredentialMappingRepository{
		collection: db.Collection(CredentialMappingsCollection),
	}
}

// FindByShopifyDomain retrieves the mapping for a provider domain
func (r *MongoCredentialMappingRepository) FindByShopifyDomain(ctx context.Context, shopifyDomain string) (*domain.CredentialMapping, error) {
	var doc entity.MongoCredentialMappingDoc
	filter := bson.M{"shopifyDomain": shopifyDomain}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential mapping: %w", err)
	}

	return doc.ToDomain(), nil
}
