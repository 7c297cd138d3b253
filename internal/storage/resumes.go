package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ylabs/internal/common"
)

// ResumePrefix is the URL path resumes are served under.
const ResumePrefix = "/uploads/resumes/"

// LocalResumeStore keeps resumes on local disk.
type LocalResumeStore struct {
	dir      string
	maxBytes int64
	now      func() time.Time
}

func NewLocalResumeStore(uploadsDir string, maxBytes int64) (*LocalResumeStore, error) {
	dir := filepath.Join(uploadsDir, "resumes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create resume dir: %w", err)
	}
	return &LocalResumeStore{dir: dir, maxBytes: maxBytes, now: time.Now}, nil
}

func (s *LocalResumeStore) Dir() string {
	return s.dir
}

// Save writes content under a generated name and returns its public URL.
// Writes past maxBytes fail and leave no file behind.
func (s *LocalResumeStore) Save(ctx context.Context, ext string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	name := fmt.Sprintf("resume-%d-%s.%s", s.now().UnixMilli(), uuid.NewString(), ext)
	path := filepath.Join(s.dir, name)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create resume file: %w", err)
	}
	reader := content
	if s.maxBytes > 0 {
		reader = io.LimitReader(content, s.maxBytes+1)
	}
	n, err := io.Copy(f, reader)
	closeErr := f.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("write resume file: %w", err)
	}
	if s.maxBytes > 0 && n > s.maxBytes {
		_ = os.Remove(path)
		return "", common.NewValidationError("File too large (max 5MB)", map[string]string{"resume": "file exceeds 5MB"})
	}
	return ResumePrefix + name, nil
}

// Open returns the stored file for a served name. Names that escape the
// resume directory are rejected.
func (s *LocalResumeStore) Open(name string) (*os.File, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return nil, common.NewError(common.CodeNotFound, "Not found", nil)
	}
	f, err := os.Open(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, common.NewError(common.CodeNotFound, "Not found", err)
		}
		return nil, fmt.Errorf("open resume file: %w", err)
	}
	return f, nil
}

// Remove deletes the file behind a URL returned by Save. A missing file is
// not an error.
func (s *LocalResumeStore) Remove(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := strings.TrimPrefix(url, ResumePrefix)
	if name == url || name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return common.NewValidationError("invalid resume url", map[string]string{"resumeUrl": url})
	}
	if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove resume file: %w", err)
	}
	return nil
}
