package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/require"

	"ylabs/internal/app"
	"ylabs/internal/common"
	"ylabs/internal/domain/user"
	"ylabs/internal/http/middleware"
	"ylabs/internal/observability"
	"ylabs/internal/security"
	"ylabs/internal/storage"
)

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func withCaller(r *http.Request, netid string) *http.Request {
	return r.WithContext(middleware.WithCaller(r.Context(), app.Caller{NetID: netid, UserType: user.TypeUndergraduate}))
}

func TestStringListAcceptsScalarOrArray(t *testing.T) {
	cases := map[string][]string{
		`{"favListings":"a"}`:          {"a"},
		`{"favListings":["a","b"]}`:    {"a", "b"},
		`{"favListings":""}`:           {},
		`{"data":{"favListings":"c"}}`: {"c"},
	}
	for raw, want := range cases {
		var req favoritesRequest
		require.NoError(t, json.Unmarshal([]byte(raw), &req), raw)
		require.Equal(t, want, []string(req.ids()), raw)
	}

	var req favoritesRequest
	require.Error(t, json.Unmarshal([]byte(`{"favListings":1}`), &req))
}

func TestDecodeJSONErrors(t *testing.T) {
	var v map[string]any
	err := decodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader("")), &v)
	require.True(t, common.Is(err, common.CodeValidation))
	err = decodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader("{oops")), &v)
	require.True(t, common.Is(err, common.CodeValidation))
	require.NoError(t, decodeJSON(httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"a":1}`)), &v))
}

func TestListingPayloadBuildsPatch(t *testing.T) {
	var req listingEnvelope
	require.NoError(t, json.Unmarshal([]byte(`{"data":{"title":"Lab","departments":"Physics","hiringStatus":1,"ownerId":"evil"}}`), &req))
	patch := req.Data.patch()
	require.Equal(t, "Lab", *patch.Title)
	require.Equal(t, []string{"Physics"}, *patch.Departments)
	require.Equal(t, 1, *patch.HiringStatus)
	require.Nil(t, patch.Description)
	require.Nil(t, patch.Confirmed)
}

func TestSearchRejectsBadPaging(t *testing.T) {
	h := NewListingHandler(nil)
	for _, query := range []string{"page=0", "pageSize=-5", "page=abc"} {
		req := withCaller(httptest.NewRequest(http.MethodGet, "/listings/search?"+query, nil), "s1")
		rec := httptest.NewRecorder()
		h.Search(rec, req)
		require.Equal(t, http.StatusBadRequest, rec.Code, query)
	}

	rec := httptest.NewRecorder()
	h.Search(rec, httptest.NewRequest(http.MethodGet, "/listings/search", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSplitCSV(t *testing.T) {
	require.Nil(t, splitCSV(" "))
	require.Equal(t, []string{"Physics", "Computer Science"}, splitCSV("Physics, Computer Science,,"))
}

func TestUploadResumeWithoutFile(t *testing.T) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	require.NoError(t, form.WriteField("note", "no file"))
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/applications/upload-resume", &buf)
	req.Header.Set("Content-Type", form.FormDataContentType())
	rec := httptest.NewRecorder()
	NewApplicationHandler(nil, nil).UploadResume(rec, withCaller(req, "s1"))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, "No file uploaded", decodeBody(t, rec)["error"])
}

func TestResumeServesStoredFile(t *testing.T) {
	store, err := storage.NewLocalResumeStore(t.TempDir(), app.MaxResumeBytes)
	require.NoError(t, err)
	resumeURL, err := store.Save(context.Background(), ".pdf", strings.NewReader("%PDF-1.4"))
	require.NoError(t, err)
	name := strings.TrimPrefix(resumeURL, storage.ResumePrefix)
	h := NewApplicationHandler(nil, store)

	req := mux.SetURLVars(withCaller(httptest.NewRequest(http.MethodGet, resumeURL, nil), "s1"), map[string]string{"name": name})
	rec := httptest.NewRecorder()
	h.Resume(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "%PDF-1.4", rec.Body.String())

	req = mux.SetURLVars(withCaller(httptest.NewRequest(http.MethodGet, "/uploads/resumes/x", nil), "s1"), map[string]string{"name": "../secret"})
	rec = httptest.NewRecorder()
	h.Resume(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

type stubCAS struct {
	netid string
	err   error
}

func (s stubCAS) LoginURL(service string) string {
	return "https://cas.example/login?service=" + url.QueryEscape(service)
}

func (s stubCAS) Validate(context.Context, string, string) (string, error) {
	return s.netid, s.err
}

func newAuthHandler(validator TicketValidator) (*AuthHandler, *middleware.SessionAuth) {
	sessions := middleware.NewSessionAuth(security.NewSessionProvider("secret", time.Hour), nil, false)
	return NewAuthHandler(validator, sessions, nil, "http://api.local/", "http://client.local", observability.Discard()), sessions
}

func TestCASRedirectsToLogin(t *testing.T) {
	h, _ := newAuthHandler(stubCAS{})
	rec := httptest.NewRecorder()
	h.CAS(rec, httptest.NewRequest(http.MethodGet, "/cas?redirect=/listings", nil))

	require.Equal(t, http.StatusFound, rec.Code)
	location := rec.Header().Get("Location")
	require.True(t, strings.HasPrefix(location, "https://cas.example/login?service="))
	service, err := url.QueryUnescape(strings.TrimPrefix(location, "https://cas.example/login?service="))
	require.NoError(t, err)
	require.Equal(t, "http://api.local/cas?redirect=%2Flistings", service)
}

func TestCASRejectsBadTicket(t *testing.T) {
	h, _ := newAuthHandler(stubCAS{err: common.NewError(common.CodeUnauthorized, "CAS authentication failed", errors.New("INVALID_TICKET"))})
	rec := httptest.NewRecorder()
	h.CAS(rec, httptest.NewRequest(http.MethodGet, "/cas?ticket=ST-1", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Equal(t, "CAS authentication failed", decodeBody(t, rec)["error"])
}

func TestSafeRedirect(t *testing.T) {
	h, _ := newAuthHandler(stubCAS{})
	cases := map[string]string{
		"":                            "http://client.local",
		"/profile":                    "http://client.local/profile",
		"//evil.example":              "http://client.local",
		"http://client.local/account": "http://client.local/account",
		"http://client.local.evil":    "http://client.local",
		"https://evil.example":        "http://client.local",
	}
	for in, want := range cases {
		require.Equal(t, want, h.safeRedirect(in), in)
	}
}

func TestCheckAndLogoutWithoutSession(t *testing.T) {
	h, _ := newAuthHandler(stubCAS{})

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/check", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"auth": false}, decodeBody(t, rec))

	rec = httptest.NewRecorder()
	h.Logout(rec, httptest.NewRequest(http.MethodGet, "/logout", nil))
	require.Equal(t, map[string]any{"success": true}, decodeBody(t, rec))
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	require.Equal(t, security.SessionCookie, cookies[0].Name)
	require.Equal(t, -1, cookies[0].MaxAge)
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"mongo": func(context.Context) error { return nil }}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, map[string]any{"status": "ok", "mongo": "ok"}, decodeBody(t, rec))

	rec = httptest.NewRecorder()
	NewHealthHandler(map[string]Pinger{"redis": func(context.Context) error { return errors.New("down") }}).Health(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "down", decodeBody(t, rec)["redis"])
}
