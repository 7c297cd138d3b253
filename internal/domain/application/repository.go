package application

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Repository interface {
	Create(ctx context.Context, app Application) (*Application, error)
	GetByID(ctx context.Context, id string) (*Application, error)
	FindByListingAndStudent(ctx context.Context, listingID bson.ObjectID, studentID string) (*Application, error)
	// ListByListing filters by status unless it is empty.
	ListByListing(ctx context.Context, listingID bson.ObjectID, status Status) ([]Application, error)
	ListByStudent(ctx context.Context, studentID string) ([]Application, error)
	UpdateStatus(ctx context.Context, id string, status Status, notes *string) (*Application, error)
	CountByStatus(ctx context.Context, listingID bson.ObjectID) (map[Status]int, error)
}
