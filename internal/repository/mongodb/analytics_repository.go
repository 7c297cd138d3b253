package mongodb

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"ylabs/internal/domain/analytics"
)

type AnalyticsRepository struct {
	coll *mongo.Collection
}

func NewAnalyticsRepository(db *mongo.Database) *AnalyticsRepository {
	return &AnalyticsRepository{coll: db.Collection(AnalyticsCollection)}
}

func (r *AnalyticsRepository) Create(ctx context.Context, event analytics.Event) error {
	if _, err := r.coll.InsertOne(ctx, event); err != nil {
		return mapError(err, "Event not found", "failed to store analytics event")
	}
	return nil
}
