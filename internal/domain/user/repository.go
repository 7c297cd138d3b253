package user

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Repository interface {
	Get(ctx context.Context, netid string) (*User, error)
	Create(ctx context.Context, u User) (*User, error)
	Update(ctx context.Context, netid string, patch Patch) (*User, error)
	Delete(ctx context.Context, netid string) error
	AddOwnListings(ctx context.Context, netid string, ids []bson.ObjectID) error
	RemoveOwnListings(ctx context.Context, netid string, ids []bson.ObjectID) error
	AddFavListings(ctx context.Context, netid string, ids []bson.ObjectID) (*User, error)
	RemoveFavListings(ctx context.Context, netid string, ids []bson.ObjectID) (*User, error)
	SetListings(ctx context.Context, netid string, own, fav []bson.ObjectID) error
	SetConfirmed(ctx context.Context, netid string, confirmed bool) (*User, error)
	SetResumeURL(ctx context.Context, netid, url string) (*User, error)
	TouchActivity(ctx context.Context, netid string, at time.Time, login bool) error
}

type BackupRepository interface {
	Upsert(ctx context.Context, backup Backup) error
	List(ctx context.Context) ([]Backup, error)
	Get(ctx context.Context, netid string) (*Backup, error)
}
