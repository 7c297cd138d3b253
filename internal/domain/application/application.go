package application

import (
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
)

type Answer struct {
	Question string `bson:"question" json:"question"`
	Answer   string `bson:"answer" json:"answer"`
}

type Application struct {
	ID              string        `bson:"_id" json:"id"`
	ListingID       bson.ObjectID `bson:"listingId" json:"listingId"`
	StudentID       string        `bson:"studentId" json:"studentId"`
	StudentNetID    string        `bson:"studentNetId" json:"studentNetId"`
	StudentName     string        `bson:"studentName" json:"studentName"`
	StudentEmail    string        `bson:"studentEmail" json:"studentEmail"`
	ResumeURL       string        `bson:"resumeUrl,omitempty" json:"resumeUrl,omitempty"`
	CoverLetter     string        `bson:"coverLetter,omitempty" json:"coverLetter,omitempty"`
	CustomQuestions []Answer      `bson:"customQuestions" json:"customQuestions"`
	Status          Status        `bson:"status" json:"status"`
	ProfessorNotes  string        `bson:"professorNotes,omitempty" json:"professorNotes,omitempty"`
	AppliedAt       time.Time     `bson:"appliedAt" json:"appliedAt"`
	UpdatedAt       time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// NewID builds the composite key listingId_studentId_unixMillis.
func NewID(listingID bson.ObjectID, studentID string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%d", listingID.Hex(), studentID, at.UnixMilli())
}

type Stats struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Accepted int `json:"accepted"`
	Rejected int `json:"rejected"`
}

func StatsFromCounts(counts map[Status]int) Stats {
	stats := Stats{
		Pending:  counts[StatusPending],
		Accepted: counts[StatusAccepted],
		Rejected: counts[StatusRejected],
	}
	for _, n := range counts {
		stats.Total += n
	}
	return stats
}
