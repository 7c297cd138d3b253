package listing

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Hiring status values.
const (
	HiringNotSeeking = -1
	HiringOpen       = 0
	HiringSeeking    = 1
)

type Question struct {
	Question string `bson:"question" json:"question"`
	Required bool   `bson:"required" json:"required"`
}

type Listing struct {
	ID                   bson.ObjectID `bson:"_id,omitempty" json:"_id"`
	OwnerID              string        `bson:"ownerId" json:"ownerId"`
	OwnerFirstName       string        `bson:"ownerFirstName" json:"ownerFirstName"`
	OwnerLastName        string        `bson:"ownerLastName" json:"ownerLastName"`
	OwnerEmail           string        `bson:"ownerEmail" json:"ownerEmail"`
	ProfessorIDs         []string      `bson:"professorIds" json:"professorIds"`
	ProfessorNames       []string      `bson:"professorNames" json:"professorNames"`
	Title                string        `bson:"title" json:"title"`
	Description          string        `bson:"description" json:"description"`
	Departments          []string      `bson:"departments" json:"departments"`
	Emails               []string      `bson:"emails" json:"emails"`
	Websites             []string      `bson:"websites" json:"websites"`
	Keywords             []string      `bson:"keywords" json:"keywords"`
	Established          *int          `bson:"established,omitempty" json:"established,omitempty"`
	HiringStatus         int           `bson:"hiringStatus" json:"hiringStatus"`
	Views                int           `bson:"views" json:"views"`
	Favorites            int           `bson:"favorites" json:"favorites"`
	Archived             bool          `bson:"archived" json:"archived"`
	Confirmed            bool          `bson:"confirmed" json:"confirmed"`
	ApplicationsEnabled  bool          `bson:"applicationsEnabled" json:"applicationsEnabled"`
	ApplicationQuestions []Question    `bson:"applicationQuestions" json:"applicationQuestions"`
	SearchScore          float64       `bson:"searchScore,omitempty" json:"searchScore,omitempty"`
	CreatedAt            time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// Owners returns ownerId followed by professorIds without duplicates.
func (l Listing) Owners() []string {
	return Union([]string{l.OwnerID}, l.ProfessorIDs)
}

// CanMutate reports whether netid is the owner or one of the professors.
func (l Listing) CanMutate(netid string) bool {
	if netid == "" {
		return false
	}
	for _, id := range l.Owners() {
		if id == netid {
			return true
		}
	}
	return false
}

// ContactEmail is where application notices go.
func (l Listing) ContactEmail() string {
	if l.OwnerEmail != "" {
		return l.OwnerEmail
	}
	if len(l.Emails) > 0 {
		return l.Emails[0]
	}
	return ""
}

// Skeleton prefills the client create form for the prospective owner.
type Skeleton struct {
	ID             string `json:"_id"`
	OwnerID        string `json:"ownerId"`
	OwnerFirstName string `json:"ownerFirstName"`
	OwnerLastName  string `json:"ownerLastName"`
	OwnerEmail     string `json:"ownerEmail"`
	Confirmed      bool   `json:"confirmed"`
}

// Patch lists mutable fields. Owner fields are derived from the owner record
// and are never patched by clients.
type Patch struct {
	Title                *string
	Description          *string
	ProfessorIDs         *[]string
	ProfessorNames       *[]string
	Departments          *[]string
	Emails               *[]string
	Websites             *[]string
	Keywords             *[]string
	Established          *int
	HiringStatus         *int
	Archived             *bool
	Confirmed            *bool
	ApplicationsEnabled  *bool
	ApplicationQuestions *[]Question
}

func (p Patch) Apply(l Listing) Listing {
	if p.Title != nil {
		l.Title = *p.Title
	}
	if p.Description != nil {
		l.Description = *p.Description
	}
	if p.ProfessorIDs != nil {
		l.ProfessorIDs = *p.ProfessorIDs
	}
	if p.ProfessorNames != nil {
		l.ProfessorNames = *p.ProfessorNames
	}
	if p.Departments != nil {
		l.Departments = *p.Departments
	}
	if p.Emails != nil {
		l.Emails = *p.Emails
	}
	if p.Websites != nil {
		l.Websites = *p.Websites
	}
	if p.Keywords != nil {
		l.Keywords = *p.Keywords
	}
	if p.Established != nil {
		established := *p.Established
		l.Established = &established
	}
	if p.HiringStatus != nil {
		l.HiringStatus = *p.HiringStatus
	}
	if p.Archived != nil {
		l.Archived = *p.Archived
	}
	if p.Confirmed != nil {
		l.Confirmed = *p.Confirmed
	}
	if p.ApplicationsEnabled != nil {
		l.ApplicationsEnabled = *p.ApplicationsEnabled
	}
	if p.ApplicationQuestions != nil {
		l.ApplicationQuestions = *p.ApplicationQuestions
	}
	return l
}

// Backup is the stripped copy retained after a hard delete.
type Backup struct {
	ListingID      bson.ObjectID `bson:"listingId" json:"listingId"`
	ProfessorIDs   []string      `bson:"professorIds" json:"professorIds"`
	ProfessorNames []string      `bson:"professorNames" json:"professorNames"`
	Departments    []string      `bson:"departments" json:"departments"`
	Emails         []string      `bson:"emails" json:"emails"`
	Websites       []string      `bson:"websites" json:"websites"`
	Description    string        `bson:"description" json:"description"`
	Keywords       []string      `bson:"keywords" json:"keywords"`
	DeletedAt      time.Time     `bson:"deletedAt" json:"deletedAt"`
}

func (l Listing) Backup(at time.Time) Backup {
	return Backup{
		ListingID:      l.ID,
		ProfessorIDs:   l.ProfessorIDs,
		ProfessorNames: l.ProfessorNames,
		Departments:    l.Departments,
		Emails:         l.Emails,
		Websites:       l.Websites,
		Description:    l.Description,
		Keywords:       l.Keywords,
		DeletedAt:      at,
	}
}

// Union concatenates the inputs keeping first occurrences and dropping
// empty ids.
func Union(groups ...[]string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, group := range groups {
		for _, id := range group {
			if id == "" {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}

// Difference returns the ids of a that are not in b, in a's order.
func Difference(a, b []string) []string {
	drop := make(map[string]struct{}, len(b))
	for _, id := range b {
		drop[id] = struct{}{}
	}
	var out []string
	for _, id := range a {
		if _, ok := drop[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}
