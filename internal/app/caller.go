package app

import (
	"go.mongodb.org/mongo-driver/v2/bson"

	"ylabs/internal/domain/analytics"
	"ylabs/internal/domain/user"
)

// Caller identifies who performs an operation. Handlers build it from the
// verified session and pass it explicitly.
type Caller struct {
	NetID     string
	UserType  user.Type
	Confirmed bool
}

func CallerFromUser(u user.User) Caller {
	return Caller{NetID: u.NetID, UserType: u.UserType, Confirmed: u.UserConfirmed}
}

func (c Caller) IsAdmin() bool {
	return c.UserType == user.TypeAdmin
}

func (c Caller) CanCreateListings() bool {
	return c.UserType == user.TypeAdmin || c.UserType == user.TypeProfessor || c.UserType == user.TypeFaculty
}

func (c Caller) event(eventType analytics.EventType, listingID *bson.ObjectID) analytics.Event {
	return analytics.Event{EventType: eventType, NetID: c.NetID, UserType: string(c.UserType), ListingID: listingID}
}
