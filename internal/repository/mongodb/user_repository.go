package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ylabs/internal/common"
	"ylabs/internal/domain/user"
)

const userNotFound = "User not found"

type UserRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewUserRepository(db *mongo.Database) *UserRepository {
	return &UserRepository{coll: db.Collection(UsersCollection), now: time.Now}
}

func (r *UserRepository) Get(ctx context.Context, netid string) (*user.User, error) {
	var u user.User
	err := r.coll.FindOne(ctx, bson.M{"_id": user.NormalizeNetID(netid)}).Decode(&u)
	if err != nil {
		return nil, mapError(err, userNotFound, "failed to load user")
	}
	return &u, nil
}

func (r *UserRepository) Create(ctx context.Context, u user.User) (*user.User, error) {
	u.NetID = user.NormalizeNetID(u.NetID)
	now := r.now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	if _, err := r.coll.InsertOne(ctx, u); err != nil {
		return nil, mapError(err, userNotFound, "failed to create user")
	}
	return &u, nil
}

func (r *UserRepository) Update(ctx context.Context, netid string, patch user.Patch) (*user.User, error) {
	set := bson.M{"updatedAt": r.now().UTC()}
	if patch.FirstName != nil {
		set["fname"] = *patch.FirstName
	}
	if patch.LastName != nil {
		set["lname"] = *patch.LastName
	}
	if patch.Email != nil {
		set["email"] = *patch.Email
	}
	if patch.College != nil {
		set["college"] = *patch.College
	}
	if patch.Year != nil {
		set["year"] = *patch.Year
	}
	if patch.Major != nil {
		set["major"] = *patch.Major
	}
	if patch.Departments != nil {
		set["departments"] = *patch.Departments
	}
	if patch.UserConfirmed != nil {
		set["userConfirmed"] = *patch.UserConfirmed
	}
	return r.findAndUpdate(ctx, netid, bson.M{"$set": set})
}

func (r *UserRepository) Delete(ctx context.Context, netid string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": user.NormalizeNetID(netid)})
	if err != nil {
		return mapError(err, userNotFound, "failed to delete user")
	}
	if res.DeletedCount == 0 {
		return common.NewError(common.CodeNotFound, userNotFound, nil)
	}
	return nil
}

func (r *UserRepository) AddOwnListings(ctx context.Context, netid string, ids []bson.ObjectID) error {
	return r.updateOne(ctx, netid, bson.M{"$addToSet": bson.M{"ownListings": bson.M{"$each": ids}}})
}

func (r *UserRepository) RemoveOwnListings(ctx context.Context, netid string, ids []bson.ObjectID) error {
	return r.updateOne(ctx, netid, bson.M{"$pull": bson.M{"ownListings": bson.M{"$in": ids}}})
}

func (r *UserRepository) AddFavListings(ctx context.Context, netid string, ids []bson.ObjectID) (*user.User, error) {
	return r.findAndUpdate(ctx, netid, bson.M{"$addToSet": bson.M{"favListings": bson.M{"$each": ids}}})
}

func (r *UserRepository) RemoveFavListings(ctx context.Context, netid string, ids []bson.ObjectID) (*user.User, error) {
	return r.findAndUpdate(ctx, netid, bson.M{"$pull": bson.M{"favListings": bson.M{"$in": ids}}})
}

func (r *UserRepository) SetListings(ctx context.Context, netid string, own, fav []bson.ObjectID) error {
	return r.updateOne(ctx, netid, bson.M{"$set": bson.M{"ownListings": own, "favListings": fav}})
}

func (r *UserRepository) SetConfirmed(ctx context.Context, netid string, confirmed bool) (*user.User, error) {
	return r.findAndUpdate(ctx, netid, bson.M{"$set": bson.M{"userConfirmed": confirmed, "updatedAt": r.now().UTC()}})
}

func (r *UserRepository) SetResumeURL(ctx context.Context, netid, url string) (*user.User, error) {
	return r.findAndUpdate(ctx, netid, bson.M{"$set": bson.M{"resumeUrl": url, "updatedAt": r.now().UTC()}})
}

// TouchActivity records activity without moving updatedAt.
func (r *UserRepository) TouchActivity(ctx context.Context, netid string, at time.Time, login bool) error {
	update := bson.M{"$set": bson.M{"lastActive": at}}
	if login {
		update = bson.M{
			"$set": bson.M{"lastActive": at, "lastLogin": at},
			"$inc": bson.M{"loginCount": 1},
		}
	}
	return r.updateOne(ctx, netid, update)
}

func (r *UserRepository) updateOne(ctx context.Context, netid string, update bson.M) error {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": user.NormalizeNetID(netid)}, update)
	if err != nil {
		return mapError(err, userNotFound, "failed to update user")
	}
	if res.MatchedCount == 0 {
		return common.NewError(common.CodeNotFound, userNotFound, nil)
	}
	return nil
}

func (r *UserRepository) findAndUpdate(ctx context.Context, netid string, update bson.M) (*user.User, error) {
	var u user.User
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": user.NormalizeNetID(netid)}, update, opts).Decode(&u)
	if err != nil {
		return nil, mapError(err, userNotFound, "failed to update user")
	}
	return &u, nil
}

type UserBackupRepository struct {
	coll *mongo.Collection
}

func NewUserBackupRepository(db *mongo.Database) *UserBackupRepository {
	return &UserBackupRepository{coll: db.Collection(UserBackupsCollection)}
}

// Upsert replaces any earlier snapshot for the same netid.
func (r *UserBackupRepository) Upsert(ctx context.Context, backup user.Backup) error {
	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": backup.NetID}, backup, options.Replace().SetUpsert(true))
	if err != nil {
		return mapError(err, "User backup not found", "failed to store user backup")
	}
	return nil
}

func (r *UserBackupRepository) List(ctx context.Context) ([]user.Backup, error) {
	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "deletedAt", Value: -1}}))
	if err != nil {
		return nil, mapError(err, "User backup not found", "failed to list user backups")
	}
	items := []user.Backup{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, mapError(err, "User backup not found", "failed to decode user backups")
	}
	return items, nil
}

func (r *UserBackupRepository) Get(ctx context.Context, netid string) (*user.Backup, error) {
	var b user.Backup
	if err := r.coll.FindOne(ctx, bson.M{"_id": user.NormalizeNetID(netid)}).Decode(&b); err != nil {
		return nil, mapError(err, "User backup not found", "failed to load user backup")
	}
	return &b, nil
}
