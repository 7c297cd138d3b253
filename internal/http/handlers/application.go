package handlers

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"os"

	"ylabs/internal/app"
	"ylabs/internal/common"
	"ylabs/internal/http/response"
)

// maxFormBytes leaves room for the text fields next to a full size resume.
const maxFormBytes = app.MaxResumeBytes + 1<<20

// ResumeFiles opens stored resumes by file name.
type ResumeFiles interface {
	Open(name string) (*os.File, error)
}

type ApplicationHandler struct {
	applications *app.ApplicationService
	files        ResumeFiles
}

func NewApplicationHandler(applications *app.ApplicationService, files ResumeFiles) *ApplicationHandler {
	return &ApplicationHandler{applications: applications, files: files}
}

type statusRequest struct {
	Status         string  `json:"status"`
	ProfessorNotes *string `json:"professorNotes"`
}

func (h *ApplicationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		response.Error(w, err)
		return
	}
	resume, closeFn, err := formResume(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	defer closeFn()

	created, err := h.applications.Submit(r.Context(), caller, app.SubmitInput{
		ListingID:       r.FormValue("listingId"),
		StudentName:     r.FormValue("studentName"),
		StudentEmail:    r.FormValue("studentEmail"),
		CoverLetter:     r.FormValue("coverLetter"),
		CustomQuestions: r.FormValue("customQuestions"),
		Resume:          resume,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{
		"application": created,
		"message":     "Application submitted successfully",
	})
}

func (h *ApplicationHandler) UploadResume(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	if err := parseForm(w, r); err != nil {
		response.Error(w, err)
		return
	}
	resume, closeFn, err := formResume(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	defer closeFn()
	if resume == nil {
		response.Error(w, common.NewValidationError("No file uploaded", map[string]string{"resume": "file is required"}))
		return
	}
	account, err := h.applications.UploadResume(r.Context(), caller, *resume)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"resumeUrl": account.ResumeURL,
		"message":   "Resume uploaded successfully",
	})
}

func (h *ApplicationHandler) ListByListing(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.applications.ListByListing(r.Context(), caller, pathVar(r, "listingId"), r.URL.Query().Get("status"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"applications": items})
}

func (h *ApplicationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	stats, err := h.applications.Stats(r.Context(), caller, pathVar(r, "listingId"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"stats": stats})
}

func (h *ApplicationHandler) ListByStudent(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	items, err := h.applications.ListByStudent(r.Context(), caller, pathVar(r, "studentId"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"applications": items})
}

func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req statusRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.applications.UpdateStatus(r.Context(), caller, pathVar(r, "id"), req.Status, req.ProfessorNotes)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"application": updated,
		"message":     "Application status updated",
	})
}

// Resume streams a stored resume to an authenticated caller.
func (h *ApplicationHandler) Resume(w http.ResponseWriter, r *http.Request) {
	if _, err := callerFrom(r); err != nil {
		response.Error(w, err)
		return
	}
	name := pathVar(r, "name")
	f, err := h.files.Open(name)
	if err != nil {
		response.Error(w, err)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		response.Error(w, common.NewError(common.CodeInternal, "resume unavailable", err))
		return
	}
	http.ServeContent(w, r, name, info.ModTime(), f)
}

func parseForm(w http.ResponseWriter, r *http.Request) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.NewValidationError("File too large (max 5MB)", map[string]string{"resume": "file exceeds 5MB"})
		}
		return common.NewError(common.CodeValidation, "invalid multipart form", err)
	}
	return nil
}

// formResume returns the uploaded resume, or nil when none was sent.
func formResume(r *http.Request) (*app.ResumeUpload, func(), error) {
	file, header, err := r.FormFile("resume")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, func() {}, nil
	}
	if err != nil {
		return nil, func() {}, common.NewError(common.CodeValidation, "invalid resume upload", err)
	}
	return uploadFrom(file, header), func() { _ = file.Close() }, nil
}

func uploadFrom(file io.Reader, header *multipart.FileHeader) *app.ResumeUpload {
	return &app.ResumeUpload{Filename: header.Filename, Size: header.Size, Content: file}
}
