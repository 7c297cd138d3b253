package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"ylabs/internal/common"
	"ylabs/internal/domain/analytics"
	"ylabs/internal/domain/listing"
	"ylabs/internal/integration/directory"
)

func strPtr(s string) *string { return &s }

func draftListing(professors ...string) listing.Listing {
	return listing.Listing{
		Title:        "Vision Lab",
		Description:  "Computer vision research",
		ProfessorIDs: professors,
		Departments:  []string{"Computer Science"},
	}
}

func TestListingOwnershipFollowsProfessorChanges(t *testing.T) {
	ctx := context.Background()
	dir := fakeDirectory{people: map[string]directory.Person{
		"p2": {NetID: "p2", FirstName: "Grace", LastName: "Hopper", Email: "grace@yale.edu"},
	}}
	f := newFixture(dir, professor("p1"))
	owner := CallerFromUser(professor("p1"))

	created, err := f.listingService.Create(ctx, owner, draftListing(" P2 "))
	require.NoError(t, err)
	require.Equal(t, []string{"p2"}, created.ProfessorIDs)
	require.Equal(t, "p1@yale.edu", created.OwnerEmail)
	require.True(t, created.Confirmed)

	p2 := f.users.get("p2")
	require.NotNil(t, p2, "co-owner provisioned from directory")
	require.Equal(t, "Grace", p2.FirstName)
	require.Contains(t, p2.OwnListings, created.ID)
	require.Contains(t, f.users.get("p1").OwnListings, created.ID)

	updated, err := f.listingService.Update(ctx, created.ID.Hex(), owner, listing.Patch{ProfessorIDs: &[]string{"p3"}})
	require.NoError(t, err)
	require.Equal(t, []string{"p3"}, updated.ProfessorIDs)
	require.NotContains(t, f.users.get("p2").OwnListings, created.ID)
	p3 := f.users.get("p3")
	require.NotNil(t, p3, "placeholder provisioned")
	require.Equal(t, "NA", p3.Email)
	require.Contains(t, p3.OwnListings, created.ID)

	deleted, err := f.listingService.Delete(ctx, created.ID.Hex(), owner)
	require.NoError(t, err)
	require.Equal(t, created.ID, deleted.ID)
	require.Nil(t, f.listings.get(created.ID))
	require.Len(t, f.listingBacks.backups, 1)
	require.Equal(t, created.ID, f.listingBacks.backups[0].ListingID)
	require.NotContains(t, f.users.get("p1").OwnListings, created.ID)
	require.NotContains(t, f.users.get("p3").OwnListings, created.ID)

	f.flush()
	require.ElementsMatch(t, []analytics.EventType{analytics.EventListingCreate, analytics.EventListingUpdate}, f.events.types())
}

func TestListingProfessorSwapKeepsSharedCoOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, professor("p1"), professor("a"), professor("b"), professor("c"))
	owner := CallerFromUser(professor("p1"))

	created, err := f.listingService.Create(ctx, owner, draftListing("a", "b"))
	require.NoError(t, err)
	require.Equal(t, []bson.ObjectID{created.ID}, f.users.get("a").OwnListings)
	require.Equal(t, []bson.ObjectID{created.ID}, f.users.get("b").OwnListings)
	require.Empty(t, f.users.get("c").OwnListings)

	_, err = f.listingService.Update(ctx, created.ID.Hex(), owner, listing.Patch{ProfessorIDs: &[]string{"b", "c"}})
	require.NoError(t, err)
	require.Empty(t, f.users.get("a").OwnListings)
	require.Equal(t, []bson.ObjectID{created.ID}, f.users.get("b").OwnListings)
	require.Equal(t, []bson.ObjectID{created.ID}, f.users.get("c").OwnListings)
	require.Equal(t, []bson.ObjectID{created.ID}, f.users.get("p1").OwnListings)
	f.flush()
}

func TestListingMutationRequiresOwner(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, professor("p1"), professor("p2"), student("s1"))
	created, err := f.listingService.Create(ctx, CallerFromUser(professor("p1")), draftListing("p2"))
	require.NoError(t, err)

	_, err = f.listingService.Update(ctx, created.ID.Hex(), CallerFromUser(student("s1")), listing.Patch{Title: strPtr("Hijacked")})
	require.True(t, common.Is(err, common.CodeForbidden), "got %v", err)
	require.Equal(t, "Vision Lab", f.listings.get(created.ID).Title)

	_, err = f.listingService.Archive(ctx, created.ID.Hex(), CallerFromUser(student("s1")))
	require.True(t, common.Is(err, common.CodeForbidden))
	require.False(t, f.listings.get(created.ID).Archived)

	// professors may edit but only the owner deletes
	archived, err := f.listingService.Archive(ctx, created.ID.Hex(), CallerFromUser(professor("p2")))
	require.NoError(t, err)
	require.True(t, archived.Archived)
	_, err = f.listingService.Delete(ctx, created.ID.Hex(), CallerFromUser(professor("p2")))
	require.True(t, common.Is(err, common.CodeForbidden))
	require.NotNil(t, f.listings.get(created.ID))
	f.flush()
}

func TestAddViewCountsEveryCall(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, professor("p1"), student("s1"))
	created, err := f.listingService.Create(ctx, CallerFromUser(professor("p1")), draftListing())
	require.NoError(t, err)

	const views = 5
	for i := 0; i < views; i++ {
		_, err := f.listingService.AddView(ctx, created.ID.Hex(), CallerFromUser(student("s1")))
		require.NoError(t, err)
	}
	require.Equal(t, views, f.listings.get(created.ID).Views)

	f.flush()
	count := 0
	for _, tp := range f.events.types() {
		if tp == analytics.EventListingView {
			count++
		}
	}
	require.Equal(t, views, count)
}

func TestListingUpdateValidates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, professor("p1"))
	owner := CallerFromUser(professor("p1"))
	created, err := f.listingService.Create(ctx, owner, draftListing())
	require.NoError(t, err)

	bad := 3
	_, err = f.listingService.Update(ctx, created.ID.Hex(), owner, listing.Patch{HiringStatus: &bad})
	require.True(t, common.Is(err, common.CodeValidation))

	_, err = f.listingService.Create(ctx, owner, listing.Listing{Description: "no title"})
	require.True(t, common.Is(err, common.CodeValidation))
	f.flush()
}

func TestListingGetRejectsMalformedID(t *testing.T) {
	f := newFixture(nil)
	_, err := f.listingService.Get(context.Background(), "not-an-id")
	require.True(t, common.Is(err, common.CodeObjectID))
}

func TestSkeletonUsesOwnerRecord(t *testing.T) {
	f := newFixture(nil, professor("p1"))
	skeleton, err := f.listingService.Skeleton(context.Background(), CallerFromUser(professor("p1")))
	require.NoError(t, err)
	require.Equal(t, "create", skeleton.ID)
	require.Equal(t, "p1", skeleton.OwnerID)
	require.Equal(t, "p1@yale.edu", skeleton.OwnerEmail)
}

func TestSearchRewritesSynonymsAndDefaultsPaging(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, student("s1"))
	caller := CallerFromUser(student("s1"))

	result, err := f.listingService.Search(ctx, caller, listing.SearchQuery{Query: " cs ", Departments: []string{" Physics ", ""}})
	require.NoError(t, err)
	require.Equal(t, listing.DefaultPage, result.Page)
	require.Equal(t, listing.DefaultPageSize, result.PageSize)
	require.NotNil(t, result.Results)
	require.Len(t, f.listings.queries, 1)
	require.Equal(t, "computer science", f.listings.queries[0].Query)
	require.Equal(t, []string{"Physics"}, f.listings.queries[0].Departments)

	cases := []listing.SearchQuery{
		{Page: -1},
		{PageSize: 101},
		{SortBy: "ownerEmail"},
		{SortOrder: "asc"},
	}
	for _, q := range cases {
		_, err := f.listingService.Search(ctx, caller, q)
		require.True(t, common.Is(err, common.CodeValidation), "query %+v", q)
	}

	f.flush()
	require.Equal(t, []analytics.EventType{analytics.EventSearch}, f.events.types())
	require.Equal(t, "cs", f.events.events[0].SearchQuery)
}

func TestGetManySkipsUnknownIDs(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil, professor("p1"))
	created, err := f.listingService.Create(ctx, CallerFromUser(professor("p1")), draftListing())
	require.NoError(t, err)

	items, err := f.listingService.GetMany(ctx, []string{"bogus", created.ID.Hex(), "64b7f0c2a1b2c3d4e5f60718"})
	require.NoError(t, err)
	require.Len(t, items, 1)
	require.Equal(t, created.ID, items[0].ID)
	f.flush()
}
