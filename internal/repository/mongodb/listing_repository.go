package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ylabs/internal/common"
	"ylabs/internal/domain/listing"
)

type ListingRepository struct {
	coll        *mongo.Collection
	searchIndex string
	now         func() time.Time
}

func NewListingRepository(db *mongo.Database, searchIndex string) *ListingRepository {
	if searchIndex == "" {
		searchIndex = DefaultSearchIndex
	}
	return &ListingRepository{coll: db.Collection(ListingsCollection), searchIndex: searchIndex, now: time.Now}
}

func listingNotFound(id bson.ObjectID) string {
	return "Listing not found with ObjectId: " + id.Hex()
}

func (r *ListingRepository) Create(ctx context.Context, l listing.Listing) (*listing.Listing, error) {
	now := r.now().UTC()
	l.ID = bson.NewObjectID()
	l.CreatedAt = now
	l.UpdatedAt = now
	l.SearchScore = 0
	if _, err := r.coll.InsertOne(ctx, l); err != nil {
		return nil, mapError(err, listingNotFound(l.ID), "failed to create listing")
	}
	return &l, nil
}

func (r *ListingRepository) GetByID(ctx context.Context, id bson.ObjectID) (*listing.Listing, error) {
	var l listing.Listing
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		return nil, mapError(err, listingNotFound(id), "failed to load listing")
	}
	return &l, nil
}

// GetMany returns the listings that exist, in the order of ids.
func (r *ListingRepository) GetMany(ctx context.Context, ids []bson.ObjectID) ([]listing.Listing, error) {
	items := []listing.Listing{}
	if len(ids) == 0 {
		return items, nil
	}
	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, mapError(err, "Listing not found", "failed to load listings")
	}
	var found []listing.Listing
	if err := cursor.All(ctx, &found); err != nil {
		return nil, mapError(err, "Listing not found", "failed to decode listings")
	}
	byID := make(map[bson.ObjectID]listing.Listing, len(found))
	for _, l := range found {
		byID[l.ID] = l
	}
	seen := make(map[bson.ObjectID]bool, len(ids))
	for _, id := range ids {
		if l, ok := byID[id]; ok && !seen[id] {
			seen[id] = true
			items = append(items, l)
		}
	}
	return items, nil
}

func (r *ListingRepository) Update(ctx context.Context, id bson.ObjectID, patch listing.Patch) (*listing.Listing, error) {
	set := bson.M{"updatedAt": r.now().UTC()}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Description != nil {
		set["description"] = *patch.Description
	}
	if patch.ProfessorIDs != nil {
		set["professorIds"] = *patch.ProfessorIDs
	}
	if patch.ProfessorNames != nil {
		set["professorNames"] = *patch.ProfessorNames
	}
	if patch.Departments != nil {
		set["departments"] = *patch.Departments
	}
	if patch.Emails != nil {
		set["emails"] = *patch.Emails
	}
	if patch.Websites != nil {
		set["websites"] = *patch.Websites
	}
	if patch.Keywords != nil {
		set["keywords"] = *patch.Keywords
	}
	if patch.Established != nil {
		set["established"] = *patch.Established
	}
	if patch.HiringStatus != nil {
		set["hiringStatus"] = *patch.HiringStatus
	}
	if patch.Archived != nil {
		set["archived"] = *patch.Archived
	}
	if patch.Confirmed != nil {
		set["confirmed"] = *patch.Confirmed
	}
	if patch.ApplicationsEnabled != nil {
		set["applicationsEnabled"] = *patch.ApplicationsEnabled
	}
	if patch.ApplicationQuestions != nil {
		set["applicationQuestions"] = *patch.ApplicationQuestions
	}
	return r.findAndUpdate(ctx, id, bson.M{"$set": set})
}

// IncrementViews leaves updatedAt untouched.
func (r *ListingRepository) IncrementViews(ctx context.Context, id bson.ObjectID) (*listing.Listing, error) {
	return r.findAndUpdate(ctx, id, bson.M{"$inc": bson.M{"views": 1}})
}

// AdjustFavorites adds delta to the counter, never going below zero.
func (r *ListingRepository) AdjustFavorites(ctx context.Context, id bson.ObjectID, delta int) error {
	update := mongo.Pipeline{
		{{Key: "$set", Value: bson.M{
			"favorites": bson.M{"$max": bson.A{0, bson.M{"$add": bson.A{bson.M{"$ifNull": bson.A{"$favorites", 0}}, delta}}}},
		}}},
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return mapError(err, listingNotFound(id), "failed to update favorites")
	}
	if res.MatchedCount == 0 {
		return common.NewError(common.CodeNotFound, listingNotFound(id), nil)
	}
	return nil
}

func (r *ListingRepository) SetConfirmedByOwner(ctx context.Context, ownerID string, confirmed bool) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"ownerId": ownerID}, bson.M{"$set": bson.M{"confirmed": confirmed}})
	if err != nil {
		return mapError(err, "Listing not found", "failed to update listing confirmation")
	}
	return nil
}

func (r *ListingRepository) Delete(ctx context.Context, id bson.ObjectID) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return mapError(err, listingNotFound(id), "failed to delete listing")
	}
	if res.DeletedCount == 0 {
		return common.NewError(common.CodeNotFound, listingNotFound(id), nil)
	}
	return nil
}

func (r *ListingRepository) Search(ctx context.Context, q listing.SearchQuery) ([]listing.Listing, error) {
	cursor, err := r.coll.Aggregate(ctx, SearchPipeline(q, r.searchIndex))
	if err != nil {
		return nil, mapError(err, "Listing not found", "failed to search listings")
	}
	items := []listing.Listing{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, mapError(err, "Listing not found", "failed to decode listings")
	}
	return items, nil
}

func (r *ListingRepository) findAndUpdate(ctx context.Context, id bson.ObjectID, update any) (*listing.Listing, error) {
	var l listing.Listing
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&l); err != nil {
		return nil, mapError(err, listingNotFound(id), "failed to update listing")
	}
	return &l, nil
}

type ListingBackupRepository struct {
	coll *mongo.Collection
}

func NewListingBackupRepository(db *mongo.Database) *ListingBackupRepository {
	return &ListingBackupRepository{coll: db.Collection(ListingBackupsCollection)}
}

func (r *ListingBackupRepository) Create(ctx context.Context, backup listing.Backup) error {
	if _, err := r.coll.InsertOne(ctx, backup); err != nil {
		return mapError(err, "Listing backup not found", "failed to store listing backup")
	}
	return nil
}
