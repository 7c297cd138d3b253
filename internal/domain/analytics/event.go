package analytics

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type EventType string

const (
	EventLogin             EventType = "login"
	EventLogout            EventType = "logout"
	EventListingView       EventType = "listing_view"
	EventListingFavorite   EventType = "listing_favorite"
	EventListingUnfavorite EventType = "listing_unfavorite"
	EventSearch            EventType = "search"
	EventListingCreate     EventType = "listing_create"
	EventListingUpdate     EventType = "listing_update"
	EventListingArchive    EventType = "listing_archive"
	EventListingUnarchive  EventType = "listing_unarchive"
	EventProfileUpdate     EventType = "profile_update"
)

// Retention is how long events are kept before the store expires them.
const Retention = 94608000 * time.Second

func (t EventType) Valid() bool {
	switch t {
	case EventLogin, EventLogout, EventListingView, EventListingFavorite, EventListingUnfavorite,
		EventSearch, EventListingCreate, EventListingUpdate, EventListingArchive, EventListingUnarchive,
		EventProfileUpdate:
		return true
	default:
		return false
	}
}

type Event struct {
	EventType         EventType      `bson:"eventType" json:"eventType"`
	NetID             string         `bson:"netid" json:"netid"`
	UserType          string         `bson:"userType" json:"userType"`
	ListingID         *bson.ObjectID `bson:"listingId,omitempty" json:"listingId,omitempty"`
	SearchQuery       string         `bson:"searchQuery,omitempty" json:"searchQuery,omitempty"`
	SearchDepartments []string       `bson:"searchDepartments,omitempty" json:"searchDepartments,omitempty"`
	Metadata          map[string]any `bson:"metadata,omitempty" json:"metadata,omitempty"`
	Timestamp         time.Time      `bson:"timestamp" json:"timestamp"`
}

type Repository interface {
	Create(ctx context.Context, event Event) error
}
