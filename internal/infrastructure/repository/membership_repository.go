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

// MongoMembershipRepository implements CanonicalMembershipRepository using MongoDB
type MongoMembershipRepository struct {
	collection *mongo.Collection
}

// NewMongoMembershipRepository creates a new canonical membership repository
func NewMongoMembershipRepository(db *mongo.Database) ports.CanonicalMembershipRepository {
	return &MongoMembershipRepository{
		collection: db.Collection(MembershipsCollection),
	}
}

// FindMember retrieves a membership by domain and email
func (r *MongoMembershipRepository) FindMember(ctx context.Context, memberDomain, email string) (*domain.MemberRecord, error) {
	var doc entity.MongoMembershipDoc
	filter := bson.M{"domain": memberDomain, "email": email}

	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get membership: %w", err)
	}

	return doc.ToDomain(), nil
}

// Upsert saves or updates a membership keyed by domain and email
func (r *MongoMembershipRepository) Upsert(ctx context.Context, member *domain.MemberRecord) error {
	doc := entity.MongoMembershipDocFromDomain(member)
	now := time.Now().UTC()
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = now
	}

	opts := options.Update().SetUpsert(true)
	filter := bson.M{"domain": doc.Domain, "email": doc.Email}
	update := bson.M{
		"$set": bson.M{
			"role":          doc.Role,
			"status":        doc.Status,
			"invitedBy":     doc.InvitedBy,
			"shopifyDomain": doc.ShopifyDomain,
			"updatedAt":     doc.UpdatedAt,
		},
		"$setOnInsert": bson.M{"createdAt": now},
	}

	_, err := r.collection.UpdateOne(ctx, filter, update, opts)
	if err != nil {
		return fmt.Errorf("failed to save membership: %w", err)
	}

	return nil
}

// MongoLegacyMemberRepository reads the pre-migration member collection
type MongoLegacyMemberRepository struct {
	collection *mongo.Collection
}

// NewMongoLegacyMemberRepository creates a new legacy member repository
func NewMongoLegacyMemberRepository(db *mongo.Database) ports.MembershipRepository {
	return &MongoLegacyMemberRepository{
		collection: db.Collection(LegacyMembersCollection),
	}
}

// FindMember retrieves a legacy member row, ignoring case
func (r *MongoLegacyMemberRepository) FindMember(ctx context.Context, storeDomain, email string) (*domain.MemberRecord, error) {
	var doc entity.LegacyMemberDoc
	filter := bson.M{"store_domain": storeDomain, "member_email": email}
	opts := options.FindOne().SetCollation(caseInsensitive)

	err := r.collection.FindOne(ctx, filter, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get legacy member: %w", err)
	}

	return doc.ToDomain(), nil
}
