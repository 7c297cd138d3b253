package listing

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Repository interface {
	Create(ctx context.Context, l Listing) (*Listing, error)
	GetByID(ctx context.Context, id bson.ObjectID) (*Listing, error)
	GetMany(ctx context.Context, ids []bson.ObjectID) ([]Listing, error)
	Update(ctx context.Context, id bson.ObjectID, patch Patch) (*Listing, error)
	IncrementViews(ctx context.Context, id bson.ObjectID) (*Listing, error)
	AdjustFavorites(ctx context.Context, id bson.ObjectID, delta int) error
	SetConfirmedByOwner(ctx context.Context, ownerID string, confirmed bool) error
	Delete(ctx context.Context, id bson.ObjectID) error
	Search(ctx context.Context, q SearchQuery) ([]Listing, error)
}

type BackupRepository interface {
	Create(ctx context.Context, backup Backup) error
}
