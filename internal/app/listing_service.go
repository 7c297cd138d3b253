package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ylabs/internal/common"
	"ylabs/internal/domain/analytics"
	"ylabs/internal/domain/listing"
	"ylabs/internal/domain/user"
)

type ListingService struct {
	listings  listing.Repository
	backups   listing.BackupRepository
	ownership *OwnershipService
	tx        Transactor
	analytics *AnalyticsLogger
	synonyms  *Synonyms
	now       func() time.Time
}

func NewListingService(listings listing.Repository, backups listing.BackupRepository, ownership *OwnershipService, tx Transactor, analytics *AnalyticsLogger, synonyms *Synonyms) *ListingService {
	if tx == nil {
		tx = Sequential{}
	}
	return &ListingService{listings: listings, backups: backups, ownership: ownership, tx: tx, analytics: analytics, synonyms: synonyms, now: time.Now}
}

// Create stores a listing owned by the caller. Owner fields are copied from
// the caller's user record.
func (s *ListingService) Create(ctx context.Context, caller Caller, draft listing.Listing) (*listing.Listing, error) {
	owner, err := s.ownership.EnsureUserExists(ctx, caller.NetID)
	if err != nil {
		return nil, err
	}
	if !owner.HasOwnerData() {
		return nil, common.NewValidationError("Incomplete user data for owner", nil)
	}
	draft.ID = bson.NilObjectID
	draft.OwnerID = owner.NetID
	draft.OwnerFirstName = owner.FirstName
	draft.OwnerLastName = owner.LastName
	draft.OwnerEmail = owner.Email
	draft.Confirmed = owner.UserConfirmed
	draft.ProfessorIDs = normalizeNetIDs(draft.ProfessorIDs)
	draft.Views = 0
	draft.Favorites = 0
	draft.Archived = false
	draft = withEmptySlices(draft)
	if err := validateListing(draft); err != nil {
		return nil, err
	}
	if err := s.ownership.EnsureUsersExist(ctx, draft.Owners()); err != nil {
		return nil, err
	}

	var created *listing.Listing
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.listings.Create(ctx, draft)
		if err != nil {
			return err
		}
		if err := s.ownership.SetListingOwnership(ctx, item.ID, nil, item.Owners()); err != nil {
			return err
		}
		created = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.analytics.Log(ctx, caller.event(analytics.EventListingCreate, &created.ID))
	return created, nil
}

func (s *ListingService) Skeleton(ctx context.Context, caller Caller) (*listing.Skeleton, error) {
	owner, err := s.ownership.EnsureUserExists(ctx, caller.NetID)
	if err != nil {
		return nil, err
	}
	return &listing.Skeleton{
		ID:             "create",
		OwnerID:        owner.NetID,
		OwnerFirstName: owner.FirstName,
		OwnerLastName:  owner.LastName,
		OwnerEmail:     owner.Email,
		Confirmed:      owner.UserConfirmed,
	}, nil
}

func (s *ListingService) Get(ctx context.Context, id string) (*listing.Listing, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return s.listings.GetByID(ctx, oid)
}

// GetMany returns the listings that exist, skipping malformed and unknown ids.
func (s *ListingService) GetMany(ctx context.Context, ids []string) ([]listing.Listing, error) {
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		if oid, err := parseObjectID(id); err == nil {
			oids = append(oids, oid)
		}
	}
	if len(oids) == 0 {
		return []listing.Listing{}, nil
	}
	return s.listings.GetMany(ctx, oids)
}

func (s *ListingService) Update(ctx context.Context, id string, caller Caller, patch listing.Patch) (*listing.Listing, error) {
	return s.mutate(ctx, id, caller, patch, analytics.EventListingUpdate)
}

func (s *ListingService) Archive(ctx context.Context, id string, caller Caller) (*listing.Listing, error) {
	archived := true
	return s.mutate(ctx, id, caller, listing.Patch{Archived: &archived}, analytics.EventListingArchive)
}

func (s *ListingService) Unarchive(ctx context.Context, id string, caller Caller) (*listing.Listing, error) {
	archived := false
	return s.mutate(ctx, id, caller, listing.Patch{Archived: &archived}, analytics.EventListingUnarchive)
}

func (s *ListingService) mutate(ctx context.Context, id string, caller Caller, patch listing.Patch, eventType analytics.EventType) (*listing.Listing, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	current, err := s.listings.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !current.CanMutate(caller.NetID) {
		return nil, common.NewPermissionError(fmt.Sprintf("User with id %s does not have permission to update listing with id %s", caller.NetID, id))
	}
	if patch.ProfessorIDs != nil {
		normalized := normalizeNetIDs(*patch.ProfessorIDs)
		patch.ProfessorIDs = &normalized
	}
	next := patch.Apply(*current)
	if err := validateListing(next); err != nil {
		return nil, err
	}
	if err := s.ownership.EnsureUsersExist(ctx, next.Owners()); err != nil {
		return nil, err
	}

	var updated *listing.Listing
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.listings.Update(ctx, oid, patch)
		if err != nil {
			return err
		}
		if err := s.ownership.SetListingOwnership(ctx, oid, current.Owners(), item.Owners()); err != nil {
			return err
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.analytics.Log(ctx, caller.event(eventType, &oid))
	return updated, nil
}

// AddView counts a visit from any authenticated caller. It is the one
// mutation that skips the owner check.
func (s *ListingService) AddView(ctx context.Context, id string, caller Caller) (*listing.Listing, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	updated, err := s.listings.IncrementViews(ctx, oid)
	if err != nil {
		return nil, err
	}
	s.analytics.Log(ctx, caller.event(analytics.EventListingView, &oid))
	return updated, nil
}

// Delete removes the listing after keeping a stripped backup. Only the owner
// may delete.
func (s *ListingService) Delete(ctx context.Context, id string, caller Caller) (*listing.Listing, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	current, err := s.listings.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if current.OwnerID != caller.NetID {
		return nil, common.NewPermissionError(fmt.Sprintf("User with id %s does not have permission to delete listing with id %s", caller.NetID, id))
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.backups.Create(ctx, current.Backup(s.now().UTC())); err != nil {
			return err
		}
		if err := s.listings.Delete(ctx, oid); err != nil {
			return err
		}
		return s.ownership.SetListingOwnership(ctx, oid, current.Owners(), nil)
	})
	if err != nil {
		return nil, err
	}
	return current, nil
}

func (s *ListingService) Search(ctx context.Context, caller Caller, q listing.SearchQuery) (*listing.SearchResult, error) {
	normalized, err := normalizeSearch(q)
	if err != nil {
		return nil, err
	}
	storeQuery := normalized
	storeQuery.Query = s.synonyms.Rewrite(normalized.Query)
	items, err := s.listings.Search(ctx, storeQuery)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []listing.Listing{}
	}
	event := caller.event(analytics.EventSearch, nil)
	event.SearchQuery = normalized.Query
	event.SearchDepartments = normalized.Departments
	s.analytics.Log(ctx, event)
	return &listing.SearchResult{Results: items, Page: normalized.Page, PageSize: normalized.PageSize}, nil
}

func normalizeSearch(q listing.SearchQuery) (listing.SearchQuery, error) {
	q.Query = strings.TrimSpace(q.Query)
	if q.Page == 0 {
		q.Page = listing.DefaultPage
	}
	if q.PageSize == 0 {
		q.PageSize = listing.DefaultPageSize
	}
	if q.Page < 1 {
		return q, common.NewValidationError("Invalid page number (must be >= 1)", map[string]string{"page": "must be >= 1"})
	}
	if q.PageSize < 1 || q.PageSize > listing.MaxPageSize {
		return q, common.NewValidationError("Invalid page size (must be between 1 and 100)", map[string]string{"pageSize": "must be between 1 and 100"})
	}
	if q.SortBy != "" && !listing.IsSortable(q.SortBy) {
		return q, common.NewValidationError("Invalid sortBy field. Allowed: "+strings.Join(listing.SortableFields, ", "), map[string]string{"sortBy": "unsupported field"})
	}
	if q.SortOrder != "" && q.SortOrder != "1" && q.SortOrder != "-1" {
		return q, common.NewValidationError(`Invalid sortOrder. Must be "1" (ascending) or "-1" (descending)`, map[string]string{"sortOrder": "must be 1 or -1"})
	}
	departments := make([]string, 0, len(q.Departments))
	for _, d := range q.Departments {
		if trimmed := strings.TrimSpace(d); trimmed != "" {
			departments = append(departments, trimmed)
		}
	}
	q.Departments = departments
	return q, nil
}

func validateListing(l listing.Listing) error {
	fields := map[string]string{}
	if strings.TrimSpace(l.Title) == "" {
		fields["title"] = "title is required"
	}
	if strings.TrimSpace(l.Description) == "" {
		fields["description"] = "description is required"
	}
	if l.HiringStatus < listing.HiringNotSeeking || l.HiringStatus > listing.HiringSeeking {
		fields["hiringStatus"] = "hiringStatus must be -1, 0, or 1"
	}
	for i, q := range l.ApplicationQuestions {
		if strings.TrimSpace(q.Question) == "" {
			fields[fmt.Sprintf("applicationQuestions[%d]", i)] = "question text is required"
		}
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid listing", fields)
	}
	return nil
}

func withEmptySlices(l listing.Listing) listing.Listing {
	if l.ProfessorIDs == nil {
		l.ProfessorIDs = []string{}
	}
	if l.ProfessorNames == nil {
		l.ProfessorNames = []string{}
	}
	if l.Departments == nil {
		l.Departments = []string{}
	}
	if l.Emails == nil {
		l.Emails = []string{}
	}
	if l.Websites == nil {
		l.Websites = []string{}
	}
	if l.Keywords == nil {
		l.Keywords = []string{}
	}
	if l.ApplicationQuestions == nil {
		l.ApplicationQuestions = []listing.Question{}
	}
	return l
}

// canManageListing allows the owner, listed professors and admins.
func canManageListing(caller Caller, l listing.Listing) bool {
	return caller.UserType == user.TypeAdmin || l.CanMutate(caller.NetID)
}
