package app

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"ylabs/internal/common"
	"ylabs/internal/domain/analytics"
	"ylabs/internal/domain/listing"
	"ylabs/internal/domain/user"
)

type UserService struct {
	users     user.Repository
	backups   user.BackupRepository
	listings  listing.Repository
	ownership *OwnershipService
	tx        Transactor
	analytics *AnalyticsLogger
	now       func() time.Time
}

func NewUserService(users user.Repository, backups user.BackupRepository, listings listing.Repository, ownership *OwnershipService, tx Transactor, analytics *AnalyticsLogger) *UserService {
	if tx == nil {
		tx = Sequential{}
	}
	return &UserService{users: users, backups: backups, listings: listings, ownership: ownership, tx: tx, analytics: analytics, now: time.Now}
}

type UserListings struct {
	OwnListings []listing.Listing `json:"ownListings"`
	FavListings []listing.Listing `json:"favListings"`
}

// Login provisions the user on first sign-in and records the login.
func (s *UserService) Login(ctx context.Context, netid string) (*user.User, error) {
	account, err := s.ownership.EnsureUserExists(ctx, netid)
	if err != nil {
		return nil, err
	}
	s.analytics.Log(ctx, CallerFromUser(*account).event(analytics.EventLogin, nil))
	return account, nil
}

func (s *UserService) Logout(ctx context.Context, caller Caller) {
	s.analytics.Log(ctx, caller.event(analytics.EventLogout, nil))
}

// Caller resolves the session netid into a Caller.
func (s *UserService) Caller(ctx context.Context, netid string) (Caller, error) {
	account, err := s.users.Get(ctx, user.NormalizeNetID(netid))
	if err != nil {
		return Caller{}, err
	}
	return CallerFromUser(*account), nil
}

func (s *UserService) Current(ctx context.Context, caller Caller) (*user.User, error) {
	return s.users.Get(ctx, caller.NetID)
}

func (s *UserService) UpdateCurrent(ctx context.Context, caller Caller, patch user.Patch) (*user.User, error) {
	if patch.Empty() {
		return nil, common.NewValidationError("No user data provided", nil)
	}
	if err := validateUserPatch(patch); err != nil {
		return nil, err
	}
	if patch.UserConfirmed != nil {
		if !caller.IsAdmin() {
			return nil, common.NewPermissionError("Only admins can change account confirmation")
		}
		if _, err := s.setConfirmed(ctx, caller.NetID, *patch.UserConfirmed); err != nil {
			return nil, err
		}
		patch.UserConfirmed = nil
	}
	var (
		updated *user.User
		err     error
	)
	if patch.Empty() {
		updated, err = s.users.Get(ctx, caller.NetID)
	} else {
		updated, err = s.users.Update(ctx, caller.NetID, patch)
	}
	if err != nil {
		return nil, err
	}
	s.analytics.Log(ctx, caller.event(analytics.EventProfileUpdate, nil))
	return updated, nil
}

func (s *UserService) Confirm(ctx context.Context, netid string) (*user.User, error) {
	return s.setConfirmed(ctx, user.NormalizeNetID(netid), true)
}

func (s *UserService) Unconfirm(ctx context.Context, netid string) (*user.User, error) {
	return s.setConfirmed(ctx, user.NormalizeNetID(netid), false)
}

// setConfirmed flips the user and every listing they own, so unconfirmed
// owners drop out of search.
func (s *UserService) setConfirmed(ctx context.Context, netid string, confirmed bool) (*user.User, error) {
	var updated *user.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		account, err := s.users.SetConfirmed(ctx, netid, confirmed)
		if err != nil {
			return err
		}
		if err := s.listings.SetConfirmedByOwner(ctx, netid, confirmed); err != nil {
			return err
		}
		updated = account
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *UserService) FavListingIDs(ctx context.Context, caller Caller) ([]bson.ObjectID, error) {
	account, err := s.users.Get(ctx, caller.NetID)
	if err != nil {
		return nil, err
	}
	if account.FavListings == nil {
		return []bson.ObjectID{}, nil
	}
	return account.FavListings, nil
}

// AddFavorites adds listings to the caller's favorites. Each listing newly
// favorited gains one on its counter.
func (s *UserService) AddFavorites(ctx context.Context, caller Caller, ids []string) (*user.User, error) {
	oids, err := parseFavoriteIDs(ids)
	if err != nil {
		return nil, err
	}
	account, err := s.users.Get(ctx, caller.NetID)
	if err != nil {
		return nil, err
	}
	var fresh []bson.ObjectID
	for _, oid := range oids {
		if containsID(account.FavListings, oid) || containsID(fresh, oid) {
			continue
		}
		if _, err := s.listings.GetByID(ctx, oid); err != nil {
			return nil, err
		}
		fresh = append(fresh, oid)
	}
	if len(fresh) == 0 {
		return account, nil
	}
	var updated *user.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.users.AddFavListings(ctx, caller.NetID, fresh)
		if err != nil {
			return err
		}
		for _, oid := range fresh {
			if err := s.listings.AdjustFavorites(ctx, oid, 1); err != nil {
				return err
			}
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, oid := range fresh {
		s.analytics.Log(ctx, caller.event(analytics.EventListingFavorite, &oid))
	}
	return updated, nil
}

// RemoveFavorites drops listings from the caller's favorites. Counters never
// go below zero and listings deleted since are ignored.
func (s *UserService) RemoveFavorites(ctx context.Context, caller Caller, ids []string) (*user.User, error) {
	oids, err := parseFavoriteIDs(ids)
	if err != nil {
		return nil, err
	}
	account, err := s.users.Get(ctx, caller.NetID)
	if err != nil {
		return nil, err
	}
	var present []bson.ObjectID
	for _, oid := range oids {
		if containsID(account.FavListings, oid) && !containsID(present, oid) {
			present = append(present, oid)
		}
	}
	if len(present) == 0 {
		return account, nil
	}
	var updated *user.User
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		item, err := s.users.RemoveFavListings(ctx, caller.NetID, present)
		if err != nil {
			return err
		}
		for _, oid := range present {
			if err := s.listings.AdjustFavorites(ctx, oid, -1); err != nil && !common.Is(err, common.CodeNotFound) {
				return err
			}
		}
		updated = item
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, oid := range present {
		s.analytics.Log(ctx, caller.event(analytics.EventListingUnfavorite, &oid))
	}
	return updated, nil
}

// Listings loads the caller's own and favorite listings and prunes ids of
// listings that no longer exist.
func (s *UserService) Listings(ctx context.Context, caller Caller) (*UserListings, error) {
	account, err := s.users.Get(ctx, caller.NetID)
	if err != nil {
		return nil, err
	}
	own, err := s.loadListings(ctx, account.OwnListings)
	if err != nil {
		return nil, err
	}
	fav, err := s.loadListings(ctx, account.FavListings)
	if err != nil {
		return nil, err
	}
	if len(own) != len(account.OwnListings) || len(fav) != len(account.FavListings) {
		if err := s.users.SetListings(ctx, caller.NetID, listingIDs(own), listingIDs(fav)); err != nil {
			return nil, err
		}
	}
	return &UserListings{OwnListings: own, FavListings: fav}, nil
}

func (s *UserService) loadListings(ctx context.Context, ids []bson.ObjectID) ([]listing.Listing, error) {
	if len(ids) == 0 {
		return []listing.Listing{}, nil
	}
	return s.listings.GetMany(ctx, ids)
}

// Delete snapshots the user into the backup collection and removes it.
func (s *UserService) Delete(ctx context.Context, netid string) (*user.User, error) {
	id := user.NormalizeNetID(netid)
	account, err := s.users.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.backups.Upsert(ctx, account.Snapshot(s.now().UTC())); err != nil {
			return err
		}
		return s.users.Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return account, nil
}

func (s *UserService) Backups(ctx context.Context) ([]user.Backup, error) {
	return s.backups.List(ctx)
}

func (s *UserService) Backup(ctx context.Context, netid string) (*user.Backup, error) {
	return s.backups.Get(ctx, user.NormalizeNetID(netid))
}

func parseFavoriteIDs(ids []string) ([]bson.ObjectID, error) {
	if len(ids) == 0 {
		return nil, common.NewValidationError("No favListings provided", nil)
	}
	oids := make([]bson.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := parseObjectID(id)
		if err != nil {
			return nil, err
		}
		oids = append(oids, oid)
	}
	return oids, nil
}

func listingIDs(items []listing.Listing) []bson.ObjectID {
	ids := make([]bson.ObjectID, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func validateUserPatch(patch user.Patch) error {
	fields := map[string]string{}
	if patch.FirstName != nil && strings.TrimSpace(*patch.FirstName) == "" {
		fields["fname"] = "fname cannot be empty"
	}
	if patch.LastName != nil && strings.TrimSpace(*patch.LastName) == "" {
		fields["lname"] = "lname cannot be empty"
	}
	if patch.Email != nil && !strings.Contains(*patch.Email, "@") {
		fields["email"] = "email must be a valid address"
	}
	if len(fields) > 0 {
		return common.NewValidationError("invalid user", fields)
	}
	return nil
}
