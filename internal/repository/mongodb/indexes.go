package mongodb

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ylabs/internal/domain/analytics"
)

// Indexes lists the secondary indexes per collection. The Atlas full-text
// index "default" on listings is managed outside the driver.
func Indexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		AnalyticsCollection: {
			{
				Keys:    bson.D{{Key: "timestamp", Value: 1}},
				Options: options.Index().SetName("timestamp_ttl").SetExpireAfterSeconds(int32(analytics.Retention.Seconds())),
			},
			{Keys: bson.D{{Key: "eventType", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "netid", Value: 1}, {Key: "timestamp", Value: -1}}},
			{Keys: bson.D{{Key: "eventType", Value: 1}, {Key: "netid", Value: 1}, {Key: "timestamp", Value: -1}}},
		},
		ApplicationsCollection: {
			{
				Keys:    bson.D{{Key: "listingId", Value: 1}, {Key: "studentId", Value: 1}},
				Options: options.Index().SetName("listing_student_unique").SetUnique(true),
			},
			{Keys: bson.D{{Key: "listingId", Value: 1}, {Key: "appliedAt", Value: -1}}},
			{Keys: bson.D{{Key: "studentId", Value: 1}, {Key: "appliedAt", Value: -1}}},
		},
		ListingsCollection: {
			{Keys: bson.D{{Key: "ownerId", Value: 1}}},
			{Keys: bson.D{{Key: "archived", Value: 1}, {Key: "confirmed", Value: 1}, {Key: "updatedAt", Value: -1}}},
		},
		ListingBackupsCollection: {
			{Keys: bson.D{{Key: "listingId", Value: 1}}},
		},
	}
}

// EnsureIndexes creates every index from Indexes. Existing indexes with the
// same definition are left alone.
func EnsureIndexes(ctx context.Context, db *mongo.Database) ([]string, error) {
	var created []string
	for coll, models := range Indexes() {
		names, err := db.Collection(coll).Indexes().CreateMany(ctx, models)
		if err != nil {
			return created, fmt.Errorf("create indexes on %s: %w", coll, err)
		}
		for _, name := range names {
			created = append(created, coll+"."+name)
		}
	}
	return created, nil
}
