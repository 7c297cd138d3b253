package mongodb

import (
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"ylabs/internal/domain/listing"
)

const DefaultSearchIndex = "default"

// SearchPipeline builds the aggregation for a normalized query. $search has
// to be the first stage, and archived or unconfirmed listings are always
// filtered out.
func SearchPipeline(q listing.SearchQuery, index string) mongo.Pipeline {
	var pipeline mongo.Pipeline
	if q.Query != "" {
		pipeline = append(pipeline,
			bson.D{{Key: "$search", Value: bson.D{
				{Key: "index", Value: index},
				{Key: "text", Value: bson.D{
					{Key: "query", Value: q.Query},
					{Key: "path", Value: bson.D{{Key: "wildcard", Value: "*"}}},
				}},
			}}},
			bson.D{{Key: "$set", Value: bson.D{{Key: "searchScore", Value: bson.D{{Key: "$meta", Value: "searchScore"}}}}}},
		)
	}
	if len(q.Departments) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: bson.D{
			{Key: "departments", Value: bson.D{{Key: "$in", Value: q.Departments}}},
		}}})
	}
	pipeline = append(pipeline,
		bson.D{{Key: "$match", Value: bson.D{{Key: "archived", Value: false}, {Key: "confirmed", Value: true}}}},
		bson.D{{Key: "$sort", Value: sortStage(q)}},
		bson.D{{Key: "$skip", Value: int64(q.Skip())}},
		bson.D{{Key: "$limit", Value: int64(q.PageSize)}},
	)
	return pipeline
}

func sortStage(q listing.SearchQuery) bson.D {
	if q.SortBy != "" {
		return bson.D{{Key: q.SortBy, Value: q.Direction()}, {Key: "_id", Value: 1}}
	}
	return bson.D{{Key: "searchScore", Value: -1}, {Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}
}
