package mongodb

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"ylabs/internal/common"
)

const (
	UsersCollection          = "users"
	ListingsCollection       = "listings"
	ApplicationsCollection   = "applications"
	AnalyticsCollection      = "analytics_events"
	UserBackupsCollection    = "user_backups"
	ListingBackupsCollection = "listing_backups"
)

// mapError turns driver errors into common errors. notFound is used as the
// message for a missing document.
func mapError(err error, notFound, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return common.NewError(common.CodeNotFound, notFound, err)
	}
	if mongo.IsDuplicateKeyError(err) {
		return common.NewError(common.CodeConflict, "Duplicate key error", err)
	}
	return common.NewError(common.CodeInternal, op, err)
}

// Transactor runs callbacks in a MongoDB multi-document transaction. The
// deployment must be a replica set.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return common.NewError(common.CodeInternal, "failed to start session", err)
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(ctx context.Context) (any, error) {
		return nil, fn(ctx)
	})
	return err
}
