package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"

	"ylabs/internal/common"
	"ylabs/internal/domain/listing"
	"ylabs/internal/domain/user"
	"ylabs/internal/integration/directory"
	"ylabs/internal/observability"
)

const provisionConcurrency = 4

// OwnershipService keeps User.ownListings in step with the owner and
// professor sets of listings, and provisions users that are referenced
// before they ever log in.
type OwnershipService struct {
	users     user.Repository
	directory Directory
	logger    *slog.Logger
	now       func() time.Time
}

func NewOwnershipService(users user.Repository, dir Directory, logger *slog.Logger) *OwnershipService {
	if logger == nil {
		logger = observability.Discard()
	}
	return &OwnershipService{users: users, directory: dir, logger: logger, now: time.Now}
}

// EnsureUserExists returns the stored user, creating one from the directory
// or as a placeholder when it is missing.
func (s *OwnershipService) EnsureUserExists(ctx context.Context, netid string) (*user.User, error) {
	id := user.NormalizeNetID(netid)
	if id == "" {
		return nil, common.NewValidationError("netid is required", map[string]string{"netid": "netid is required"})
	}
	existing, err := s.users.Get(ctx, id)
	if err == nil {
		return existing, nil
	}
	if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}
	created, err := s.users.Create(ctx, s.provision(ctx, id))
	if err == nil {
		return created, nil
	}
	if common.Is(err, common.CodeConflict) {
		// lost a concurrent create
		return s.users.Get(ctx, id)
	}
	return nil, err
}

// EnsureUsersExist provisions every distinct id concurrently.
func (s *OwnershipService) EnsureUsersExist(ctx context.Context, ids []string) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(provisionConcurrency)
	for _, id := range listing.Union(ids) {
		g.Go(func() error {
			_, err := s.EnsureUserExists(gctx, id)
			return err
		})
	}
	return g.Wait()
}

// SetListingOwnership removes listingID from users in old but not in next
// and adds it to users in next but not in old.
func (s *OwnershipService) SetListingOwnership(ctx context.Context, listingID bson.ObjectID, old, next []string) error {
	ids := []bson.ObjectID{listingID}
	for _, netid := range listing.Difference(listing.Union(old), next) {
		if err := s.users.RemoveOwnListings(ctx, netid, ids); err != nil && !common.Is(err, common.CodeNotFound) {
			return err
		}
	}
	for _, netid := range listing.Difference(listing.Union(next), old) {
		if err := s.users.AddOwnListings(ctx, netid, ids); err != nil {
			return err
		}
	}
	return nil
}

func (s *OwnershipService) provision(ctx context.Context, netid string) user.User {
	now := s.now().UTC()
	account := user.User{
		NetID:       netid,
		UserType:    user.TypeUnknown,
		Major:       []string{},
		Departments: []string{},
		OwnListings: []bson.ObjectID{},
		FavListings: []bson.ObjectID{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if s.directory != nil {
		person, err := s.directory.Lookup(ctx, netid)
		if err == nil && person != nil {
			account.FirstName = person.FirstName
			account.LastName = person.LastName
			account.Email = person.Email
			account.College = person.College
			account.Year = person.Year
			account.Major = append([]string{}, person.Major...)
			account.UserType = typeFromDirectory(*person)
			s.logger.Info("user provisioned from directory", "netid", netid, "user_type", string(account.UserType))
			return account
		}
		if err != nil && !common.Is(err, common.CodeNotFound) {
			s.logger.Warn("directory lookup failed", "netid", netid, "error", err)
		}
	}
	account.FirstName = user.Placeholder
	account.LastName = user.Placeholder
	account.Email = user.Placeholder
	s.logger.Info("placeholder user provisioned", "netid", netid)
	return account
}

func typeFromDirectory(person directory.Person) user.Type {
	code := strings.ToUpper(strings.TrimSpace(person.SchoolCode))
	switch {
	case code == "YC":
		return user.TypeUndergraduate
	case code != "":
		return user.TypeGraduate
	case person.Year != "":
		return user.TypeUndergraduate
	default:
		return user.TypeUnknown
	}
}
