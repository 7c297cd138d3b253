package app

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"ylabs/internal/common"
	"ylabs/internal/domain/application"
	"ylabs/internal/domain/listing"
	"ylabs/internal/domain/user"
	"ylabs/internal/integration/mail"
	"ylabs/internal/observability"
)

// MaxResumeBytes caps a single resume upload.
const MaxResumeBytes = 5 << 20

const notifyTimeout = 10 * time.Second

var allowedResumeExt = map[string]bool{".pdf": true, ".doc": true, ".docx": true}

type ApplicationService struct {
	repo     application.Repository
	listings listing.Repository
	users    user.Repository
	resumes  ResumeStore
	notifier Notifier
	// publicURL prefixes resume links in mails, which have no host to
	// resolve relative paths against.
	publicURL string
	logger    *slog.Logger
	now       func() time.Time
}

func NewApplicationService(repo application.Repository, listings listing.Repository, users user.Repository, resumes ResumeStore, notifier Notifier, publicURL string, logger *slog.Logger) *ApplicationService {
	if logger == nil {
		logger = observability.Discard()
	}
	return &ApplicationService{
		repo:      repo,
		listings:  listings,
		users:     users,
		resumes:   resumes,
		notifier:  notifier,
		publicURL: strings.TrimRight(publicURL, "/"),
		logger:    logger,
		now:       time.Now,
	}
}

type ResumeUpload struct {
	Filename string
	Size     int64
	Content  io.Reader
}

type SubmitInput struct {
	ListingID       string
	StudentName     string
	StudentEmail    string
	CoverLetter     string
	CustomQuestions string
	Resume          *ResumeUpload
}

func (s *ApplicationService) Submit(ctx context.Context, caller Caller, in SubmitInput) (*application.Application, error) {
	oid, err := parseObjectID(in.ListingID)
	if err != nil {
		return nil, common.NewError(common.CodeNotFound, "Listing not found", err)
	}
	item, err := s.listings.GetByID(ctx, oid)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeNotFound, "Listing not found", err)
		}
		return nil, err
	}
	if !item.ApplicationsEnabled {
		return nil, common.NewValidationError("Applications are not enabled for this listing", nil)
	}
	if _, err := s.repo.FindByListingAndStudent(ctx, oid, caller.NetID); err == nil {
		return nil, errAlreadyApplied()
	} else if !common.Is(err, common.CodeNotFound) {
		return nil, err
	}
	answers, err := parseCustomQuestions(ctx, in.CustomQuestions)
	if err != nil {
		return nil, err
	}
	if err := requireAnswers(item.ApplicationQuestions, answers); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(in.StudentName)
	email := strings.TrimSpace(in.StudentEmail)
	if name == "" || email == "" {
		student, err := s.users.Get(ctx, caller.NetID)
		if err != nil && !common.Is(err, common.CodeNotFound) {
			return nil, err
		}
		if student != nil {
			if name == "" {
				name = strings.TrimSpace(student.FirstName + " " + student.LastName)
			}
			if email == "" {
				email = student.Email
			}
		}
	}

	var resumeURL string
	if in.Resume != nil {
		resumeURL, err = s.storeResume(ctx, *in.Resume)
		if err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, application.Application{
		ID:              application.NewID(oid, caller.NetID, now),
		ListingID:       oid,
		StudentID:       caller.NetID,
		StudentNetID:    caller.NetID,
		StudentName:     name,
		StudentEmail:    email,
		ResumeURL:       resumeURL,
		CoverLetter:     strings.TrimSpace(in.CoverLetter),
		CustomQuestions: answers,
		Status:          application.StatusPending,
		AppliedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		s.discardResume(ctx, resumeURL)
		if common.Is(err, common.CodeConflict) {
			return nil, errAlreadyApplied()
		}
		return nil, err
	}
	s.notifyOwner(ctx, *item, *created)
	return created, nil
}

func (s *ApplicationService) ListByListing(ctx context.Context, caller Caller, listingID, status string) ([]application.Application, error) {
	item, err := s.managedListing(ctx, caller, listingID)
	if err != nil {
		return nil, err
	}
	var filter application.Status
	if strings.TrimSpace(status) != "" {
		filter = normalizeApplicationStatus(status)
		if !isKnownStatus(filter) {
			return nil, errInvalidStatus()
		}
	}
	items, err := s.repo.ListByListing(ctx, item.ID, filter)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []application.Application{}
	}
	return items, nil
}

func (s *ApplicationService) ListByStudent(ctx context.Context, caller Caller, studentID string) ([]application.Application, error) {
	id := user.NormalizeNetID(studentID)
	if id != caller.NetID && !caller.IsAdmin() {
		return nil, common.NewPermissionError(fmt.Sprintf("User with id %s cannot view applications of %s", caller.NetID, id))
	}
	items, err := s.repo.ListByStudent(ctx, id)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []application.Application{}
	}
	return items, nil
}

// UpdateStatus moves a pending application to accepted or rejected. Accepted
// and rejected are final; repeating the current status only refreshes notes.
func (s *ApplicationService) UpdateStatus(ctx context.Context, caller Caller, applicationID, status string, notes *string) (*application.Application, error) {
	next := normalizeApplicationStatus(status)
	if !isKnownStatus(next) {
		return nil, errInvalidStatus()
	}
	current, err := s.repo.GetByID(ctx, applicationID)
	if err != nil {
		if common.Is(err, common.CodeNotFound) {
			return nil, common.NewError(common.CodeNotFound, "Application not found", err)
		}
		return nil, err
	}
	if _, err := s.managedListing(ctx, caller, current.ListingID.Hex()); err != nil {
		return nil, err
	}
	if next != current.Status && isFinalStatus(current.Status) {
		return nil, common.NewValidationError("Application status is final", map[string]string{"status": "cannot change from " + string(current.Status)})
	}
	return s.repo.UpdateStatus(ctx, applicationID, next, notes)
}

func (s *ApplicationService) Stats(ctx context.Context, caller Caller, listingID string) (application.Stats, error) {
	item, err := s.managedListing(ctx, caller, listingID)
	if err != nil {
		return application.Stats{}, err
	}
	counts, err := s.repo.CountByStatus(ctx, item.ID)
	if err != nil {
		return application.Stats{}, err
	}
	return application.StatsFromCounts(counts), nil
}

// UploadResume stores a resume and records it on the caller's profile.
func (s *ApplicationService) UploadResume(ctx context.Context, caller Caller, upload ResumeUpload) (*user.User, error) {
	url, err := s.storeResume(ctx, upload)
	if err != nil {
		return nil, err
	}
	updated, err := s.users.SetResumeURL(ctx, caller.NetID, url)
	if err != nil {
		s.discardResume(ctx, url)
		return nil, err
	}
	return updated, nil
}

func (s *ApplicationService) managedListing(ctx context.Context, caller Caller, listingID string) (*listing.Listing, error) {
	oid, err := parseObjectID(listingID)
	if err != nil {
		return nil, err
	}
	item, err := s.listings.GetByID(ctx, oid)
	if err != nil {
		return nil, err
	}
	if !canManageListing(caller, *item) {
		return nil, common.NewPermissionError(fmt.Sprintf("User with id %s does not have permission to manage applications for listing with id %s", caller.NetID, listingID))
	}
	return item, nil
}

func (s *ApplicationService) storeResume(ctx context.Context, upload ResumeUpload) (string, error) {
	ext, err := ValidateResume(upload.Filename, upload.Size)
	if err != nil {
		return "", err
	}
	if s.resumes == nil {
		return "", common.NewError(common.CodeInternal, "resume storage not configured", nil)
	}
	return s.resumes.Save(ctx, ext, upload.Content)
}

// discardResume removes a stored resume that no record points at.
func (s *ApplicationService) discardResume(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.resumes.Remove(context.WithoutCancel(ctx), url); err != nil {
		s.logger.Warn("orphaned resume not removed", "resume_url", url, "error", err)
	}
}

// ValidateResume returns the lowercased extension of an acceptable resume.
func ValidateResume(filename string, size int64) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedResumeExt[ext] {
		return "", common.NewValidationError("Only PDF, DOC, and DOCX files are allowed", map[string]string{"resume": "unsupported file type"})
	}
	if size > MaxResumeBytes {
		return "", common.NewValidationError("File too large (max 5MB)", map[string]string{"resume": "file exceeds 5MB"})
	}
	return ext, nil
}

var noticeTemplate = template.Must(template.New("notice").Parse(`<h2>New application for {{.Title}}</h2>
<p><strong>{{.Name}}</strong> ({{.Email}}, netid {{.NetID}}) applied to your listing on {{.AppliedAt}}.</p>
{{if .CoverLetter}}<h3>Cover letter</h3><p>{{.CoverLetter}}</p>{{end}}
{{if .Answers}}<h3>Answers</h3><ul>{{range .Answers}}<li><strong>{{.Question}}</strong>: {{.Answer}}</li>{{end}}</ul>{{end}}
{{if .ResumeURL}}<p>Resume: <a href="{{.ResumeURL}}">{{.ResumeURL}}</a></p>{{end}}`))

// notifyOwner mails the listing contact. Failures are logged and dropped.
func (s *ApplicationService) notifyOwner(ctx context.Context, item listing.Listing, app application.Application) {
	if s.notifier == nil {
		return
	}
	to := item.ContactEmail()
	if to == "" || to == user.Placeholder {
		s.logger.Warn("application notice skipped", "listing_id", item.ID.Hex(), "reason", "no contact email")
		return
	}
	var body bytes.Buffer
	err := noticeTemplate.Execute(&body, map[string]any{
		"Title":       item.Title,
		"Name":        app.StudentName,
		"Email":       app.StudentEmail,
		"NetID":       app.StudentNetID,
		"AppliedAt":   app.AppliedAt.Format("January 2, 2006 at 3:04 PM MST"),
		"CoverLetter": app.CoverLetter,
		"Answers":     app.CustomQuestions,
		"ResumeURL":   s.resumeLink(app.ResumeURL),
	})
	if err != nil {
		s.logger.Warn("application notice not rendered", "application_id", app.ID, "error", err)
		return
	}
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()
	msg := mail.Message{To: to, Subject: "New Application for " + item.Title, HTML: body.String()}
	if err := s.notifier.Send(sendCtx, msg); err != nil {
		s.logger.Warn("application notice not sent", "application_id", app.ID, "to", to, "error", err)
	}
}

func (s *ApplicationService) resumeLink(url string) string {
	if url == "" || strings.Contains(url, "://") {
		return url
	}
	return s.publicURL + url
}

func errAlreadyApplied() error {
	return common.NewValidationError("You have already applied to this lab", nil)
}

func errInvalidStatus() error {
	return common.NewValidationError("Invalid status", map[string]string{"status": "status must be pending, accepted, or rejected"})
}

func normalizeApplicationStatus(status string) application.Status {
	return application.Status(strings.ToLower(strings.TrimSpace(status)))
}

func isKnownStatus(status application.Status) bool {
	switch status {
	case application.StatusPending, application.StatusAccepted, application.StatusRejected:
		return true
	default:
		return false
	}
}

func isFinalStatus(status application.Status) bool {
	return status == application.StatusAccepted || status == application.StatusRejected
}
