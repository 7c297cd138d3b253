package user

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Type string

const (
	TypeUndergraduate Type = "undergraduate"
	TypeGraduate      Type = "graduate"
	TypeProfessor     Type = "professor"
	TypeFaculty       Type = "faculty"
	TypeAdmin         Type = "admin"
	TypeUnknown       Type = "unknown"
)

// Placeholder is written into name and email fields of users that could not
// be found in the directory.
const Placeholder = "NA"

// User is keyed by the lowercased netid issued by the identity provider.
type User struct {
	NetID         string          `bson:"_id" json:"netid"`
	FirstName     string          `bson:"fname" json:"fname"`
	LastName      string          `bson:"lname" json:"lname"`
	Email         string          `bson:"email" json:"email"`
	UserType      Type            `bson:"userType" json:"userType"`
	UserConfirmed bool            `bson:"userConfirmed" json:"userConfirmed"`
	College       string          `bson:"college,omitempty" json:"college,omitempty"`
	Year          string          `bson:"year,omitempty" json:"year,omitempty"`
	Major         []string        `bson:"major" json:"major"`
	Departments   []string        `bson:"departments" json:"departments"`
	OwnListings   []bson.ObjectID `bson:"ownListings" json:"ownListings"`
	FavListings   []bson.ObjectID `bson:"favListings" json:"favListings"`
	ResumeURL     string          `bson:"resumeUrl,omitempty" json:"resumeUrl,omitempty"`
	LastLogin     *time.Time      `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`
	LastActive    *time.Time      `bson:"lastActive,omitempty" json:"lastActive,omitempty"`
	LoginCount    int             `bson:"loginCount" json:"loginCount"`
	CreatedAt     time.Time       `bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time       `bson:"updatedAt" json:"updatedAt"`
}

// Patch carries the fields a user may change on their own profile. Nil means
// unchanged.
type Patch struct {
	FirstName     *string
	LastName      *string
	Email         *string
	College       *string
	Year          *string
	Major         *[]string
	Departments   *[]string
	UserConfirmed *bool
}

func (p Patch) Empty() bool {
	return p.FirstName == nil && p.LastName == nil && p.Email == nil && p.College == nil &&
		p.Year == nil && p.Major == nil && p.Departments == nil && p.UserConfirmed == nil
}

// Backup is the snapshot kept after a user is deleted.
type Backup struct {
	NetID       string          `bson:"_id" json:"netid"`
	Email       string          `bson:"email" json:"email"`
	UserType    Type            `bson:"userType" json:"userType"`
	FirstName   string          `bson:"fname" json:"fname"`
	LastName    string          `bson:"lname" json:"lname"`
	Departments []string        `bson:"departments" json:"departments"`
	OwnListings []bson.ObjectID `bson:"ownListings" json:"ownListings"`
	FavListings []bson.ObjectID `bson:"favListings" json:"favListings"`
	DeletedAt   time.Time       `bson:"deletedAt" json:"deletedAt"`
}

func (u User) Snapshot(at time.Time) Backup {
	return Backup{
		NetID:       u.NetID,
		Email:       u.Email,
		UserType:    u.UserType,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Departments: append([]string(nil), u.Departments...),
		OwnListings: append([]bson.ObjectID(nil), u.OwnListings...),
		FavListings: append([]bson.ObjectID(nil), u.FavListings...),
		DeletedAt:   at,
	}
}

// HasOwnerData reports whether the record can be stamped onto a listing as
// its owner.
func (u User) HasOwnerData() bool {
	return u.NetID != "" && u.Email != "" && u.FirstName != "" && u.LastName != ""
}

func (u User) CanCreateListings() bool {
	return u.UserType == TypeAdmin || u.UserType == TypeProfessor || u.UserType == TypeFaculty
}

func NormalizeNetID(netid string) string {
	return strings.ToLower(strings.TrimSpace(netid))
}

// ParseType maps unknown or empty values to TypeUnknown.
func ParseType(value string) Type {
	switch t := Type(strings.ToLower(strings.TrimSpace(value))); t {
	case TypeUndergraduate, TypeGraduate, TypeProfessor, TypeFaculty, TypeAdmin:
		return t
	default:
		return TypeUnknown
	}
}
