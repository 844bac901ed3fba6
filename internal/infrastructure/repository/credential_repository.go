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

// MongoCredentialRepository implements CredentialRepository using MongoDB
type MongoCredentialRepository struct {
	collection *mongo.Collection
}

// NewMongoCredentialRepository creates a new MongoDB credential repository
func NewMongoCredentialRepository(db *mongo.Database) ports.CredentialRepository {
	return &MongoCredentialRepository{
		collection: db.Collection(CredentialsCollection),
	}
}

// Upsert saves or replaces the credential for a domain. A credential without
// a validation time clears the one left by the previous token.
func (r *MongoCredentialRepository) Upsert(ctx context.Context, cred *domain.ProviderCredential) error {
	doc := entity.MongoCredentialDocFromDomain(cred)
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = time.Now().UTC()
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": cred.Domain}
	update := credentialUpsertUpdate(doc)

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}

	return nil
}

func credentialUpsertUpdate(doc *entity.MongoCredentialDoc) bson.M {
	update := bson.M{"$set": doc}
	if doc.LastValidatedAt == nil {
		update["$unset"] = bson.M{"lastValidatedAt": ""}
	}
	return update
}

// GetByDomain retrieves a credential by its canonical domain
func (r *MongoCredentialRepository) GetByDomain(ctx context.Context, canonicalDomain string) (*domain.ProviderCredential, error) {
	var doc entity.MongoCredentialDoc
	filter := bson.M{"domain": canonicalDomain}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get credential: %w", err)
	}

	return doc.ToDomain(), nil
}

// DeleteByShopifyDomain deletes every credential stored for a provider domain
func (r *MongoCredentialRepository) DeleteByShopifyDomain(ctx context.Context, shopifyDomain string) ([]string, error) {
	filter := bson.M{"shopifyDomain": shopifyDomain}

	cursor, err := r.collection.Find(ctx, filter, options.Find().SetProjection(bson.M{"domain": 1}))
	if err != nil {
		return nil, fmt.Errorf("failed to list credentials: %w", err)
	}
	defer cursor.Close(ctx)

	domains := []string{}
	for cursor.Next(ctx) {
		var doc entity.MongoCredentialDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode credential: %w", err)
		}
		domains = append(domains, doc.Domain)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %w", err)
	}

	if len(domains) == 0 {
		return domains, nil
	}
	if _, err := r.collection.DeleteMany(ctx, filter); err != nil {
		return nil, fmt.Errorf("failed to delete credentials: %w", err)
	}

	return domains, nil
}

// MarkValidated records the time of the last successful provider call
func (r *MongoCredentialRepository) MarkValidated(ctx context.Context, canonicalDomain string, at time.Time) error {
	filter := bson.M{"domain": canonicalDomain}
	update := bson.M{"$set": bson.M{"lastValidatedAt": at}}

	_, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to mark credential validated: %w", err)
	}

	return nil
}
