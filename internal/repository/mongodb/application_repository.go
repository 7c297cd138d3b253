package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"ylabs/internal/domain/application"
)

const applicationNotFound = "Application not found"

type ApplicationRepository struct {
	coll *mongo.Collection
	now  func() time.Time
}

func NewApplicationRepository(db *mongo.Database) *ApplicationRepository {
	return &ApplicationRepository{coll: db.Collection(ApplicationsCollection), now: time.Now}
}

func (r *ApplicationRepository) Create(ctx context.Context, app application.Application) (*application.Application, error) {
	if app.CustomQuestions == nil {
		app.CustomQuestions = []application.Answer{}
	}
	if _, err := r.coll.InsertOne(ctx, app); err != nil {
		return nil, mapError(err, applicationNotFound, "failed to create application")
	}
	return &app, nil
}

func (r *ApplicationRepository) GetByID(ctx context.Context, id string) (*application.Application, error) {
	var app application.Application
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&app); err != nil {
		return nil, mapError(err, applicationNotFound, "failed to load application")
	}
	return &app, nil
}

func (r *ApplicationRepository) FindByListingAndStudent(ctx context.Context, listingID bson.ObjectID, studentID string) (*application.Application, error) {
	var app application.Application
	err := r.coll.FindOne(ctx, bson.M{"listingId": listingID, "studentId": studentID}).Decode(&app)
	if err != nil {
		return nil, mapError(err, applicationNotFound, "failed to load application")
	}
	return &app, nil
}

func (r *ApplicationRepository) ListByListing(ctx context.Context, listingID bson.ObjectID, status application.Status) ([]application.Application, error) {
	filter := bson.M{"listingId": listingID}
	if status != "" {
		filter["status"] = status
	}
	return r.list(ctx, filter)
}

func (r *ApplicationRepository) ListByStudent(ctx context.Context, studentID string) ([]application.Application, error) {
	return r.list(ctx, bson.M{"studentId": studentID})
}

func (r *ApplicationRepository) list(ctx context.Context, filter bson.M) ([]application.Application, error) {
	opts := options.Find().SetSort(bson.D{{Key: "appliedAt", Value: -1}})
	cursor, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, mapError(err, applicationNotFound, "failed to list applications")
	}
	items := []application.Application{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, mapError(err, applicationNotFound, "failed to decode applications")
	}
	return items, nil
}

// UpdateStatus sets status and, when notes is non-nil, professorNotes.
func (r *ApplicationRepository) UpdateStatus(ctx context.Context, id string, status application.Status, notes *string) (*application.Application, error) {
	set := bson.M{"status": status, "updatedAt": r.now().UTC()}
	if notes != nil {
		set["professorNotes"] = *notes
	}
	var app application.Application
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	if err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&app); err != nil {
		return nil, mapError(err, applicationNotFound, "failed to update application")
	}
	return &app, nil
}

func (r *ApplicationRepository) CountByStatus(ctx context.Context, listingID bson.ObjectID) (map[application.Status]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "listingId", Value: listingID}}}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: "$status"}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, mapError(err, applicationNotFound, "failed to count applications")
	}
	var rows []struct {
		Status application.Status `bson:"_id"`
		Count  int                `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, mapError(err, applicationNotFound, "failed to decode application counts")
	}
	counts := make(map[application.Status]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}
