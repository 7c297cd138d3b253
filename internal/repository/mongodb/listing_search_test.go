package mongodb

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"ylabs/internal/domain/listing"
)

var visibleMatch = bson.D{{Key: "$match", Value: bson.D{{Key: "archived", Value: false}, {Key: "confirmed", Value: true}}}}

func TestSearchPipelineWithoutQuery(t *testing.T) {
	got := SearchPipeline(listing.SearchQuery{Page: 1, PageSize: 10}, DefaultSearchIndex)
	want := mongo.Pipeline{
		visibleMatch,
		{{Key: "$sort", Value: bson.D{{Key: "searchScore", Value: -1}, {Key: "updatedAt", Value: -1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64(0)}},
		{{Key: "$limit", Value: int64(10)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pipeline mismatch (-want +got):\n%s", diff)
	}
}

func TestSearchPipelineWithQueryAndDepartments(t *testing.T) {
	q := listing.SearchQuery{
		Query:       "machine learning",
		Departments: []string{"Computer Science", "Statistics"},
		SortBy:      "views",
		SortOrder:   "1",
		Page:        3,
		PageSize:    20,
	}
	got := SearchPipeline(q, "labs")
	want := mongo.Pipeline{
		{{Key: "$search", Value: bson.D{
			{Key: "index", Value: "labs"},
			{Key: "text", Value: bson.D{
				{Key: "query", Value: "machine learning"},
				{Key: "path", Value: bson.D{{Key: "wildcard", Value: "*"}}},
			}},
		}}},
		{{Key: "$set", Value: bson.D{{Key: "searchScore", Value: bson.D{{Key: "$meta", Value: "searchScore"}}}}}},
		{{Key: "$match", Value: bson.D{{Key: "departments", Value: bson.D{{Key: "$in", Value: []string{"Computer Science", "Statistics"}}}}}}},
		visibleMatch,
		{{Key: "$sort", Value: bson.D{{Key: "views", Value: 1}, {Key: "_id", Value: 1}}}},
		{{Key: "$skip", Value: int64(40)}},
		{{Key: "$limit", Value: int64(20)}},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pipeline mismatch (-want +got):\n%s", diff)
	}
}

func TestSortStageDateFieldsInvertOrder(t *testing.T) {
	cases := []struct {
		sortBy, order string
		want          int
	}{
		{"updatedAt", "1", -1},
		{"updatedAt", "-1", 1},
		{"createdAt", "", 1},
		{"title", "1", 1},
		{"title", "-1", -1},
		{"favorites", "", -1},
	}
	for _, tc := range cases {
		got := sortStage(listing.SearchQuery{SortBy: tc.sortBy, SortOrder: tc.order})
		want := bson.D{{Key: tc.sortBy, Value: tc.want}, {Key: "_id", Value: 1}}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("sort %s/%s mismatch (-want +got):\n%s", tc.sortBy, tc.order, diff)
		}
	}
}

func TestSearchPipelineAlwaysFiltersHidden(t *testing.T) {
	for _, q := range []listing.SearchQuery{
		{Page: 1, PageSize: 1},
		{Query: "x", Page: 2, PageSize: 5},
		{Departments: []string{"Physics"}, Page: 1, PageSize: 100},
	} {
		found := false
		for _, stage := range SearchPipeline(q, DefaultSearchIndex) {
			if cmp.Equal(stage, visibleMatch) {
				found = true
			}
		}
		if !found {
			t.Fatalf("expected visibility match for %+v", q)
		}
	}
}
