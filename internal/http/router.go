package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"ylabs/internal/http/handlers"
	"ylabs/internal/http/metrics"
	httpmw "ylabs/internal/http/middleware"
	"ylabs/internal/http/response"
)

type RouterDependencies struct {
	AuthHandler        *handlers.AuthHandler
	UserHandler        *handlers.UserHandler
	ListingHandler     *handlers.ListingHandler
	ApplicationHandler *handlers.ApplicationHandler
	HealthHandler      *handlers.HealthHandler
	Sessions           *httpmw.SessionAuth
	SubmitLimiter      httpmw.Limiter
	SubmitLimit        int
	SubmitWindow       time.Duration
	Metrics            *metrics.Collector
	Logger             *slog.Logger
	RequestTimeout     time.Duration
}

const maxBodyBytes = 1 << 20

func NewRouter(deps RouterDependencies) http.Handler {
	r := mux.NewRouter()
	r.NotFoundHandler = http.HandlerFunc(notFound)
	r.MethodNotAllowedHandler = http.HandlerFunc(notFound)

	auth := func(h http.HandlerFunc, guards ...httpmw.Middleware) http.Handler {
		return httpmw.Chain(h, append([]httpmw.Middleware{deps.Sessions.Authenticate}, guards...)...)
	}

	r.Handle("/health", http.HandlerFunc(deps.HealthHandler.Health)).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.NewHandler(deps.Metrics)).Methods(http.MethodGet)

	r.HandleFunc("/cas", deps.AuthHandler.CAS).Methods(http.MethodGet)
	r.HandleFunc("/check", deps.AuthHandler.Check).Methods(http.MethodGet)
	r.HandleFunc("/logout", deps.AuthHandler.Logout).Methods(http.MethodGet)

	l := deps.ListingHandler
	r.Handle("/listings/search", auth(l.Search)).Methods(http.MethodGet)
	r.Handle("/listings/skeleton", auth(l.Skeleton, httpmw.CanCreateListing)).Methods(http.MethodGet)
	r.Handle("/listings", auth(l.Create, httpmw.CanCreateListing)).Methods(http.MethodPost)
	r.Handle("/listings/{id}", auth(l.Get)).Methods(http.MethodGet)
	r.Handle("/listings/{id}", auth(l.Update)).Methods(http.MethodPut)
	r.Handle("/listings/{id}", auth(l.Delete)).Methods(http.MethodDelete)
	r.Handle("/listings/{id}/archive", auth(l.Archive)).Methods(http.MethodPut)
	r.Handle("/listings/{id}/unarchive", auth(l.Unarchive)).Methods(http.MethodPut)
	r.Handle("/listings/{id}/addView", auth(l.AddView)).Methods(http.MethodPut)

	u := deps.UserHandler
	r.Handle("/users", auth(u.Current)).Methods(http.MethodGet)
	r.Handle("/users", auth(u.UpdateCurrent)).Methods(http.MethodPut)
	r.Handle("/users/listings", auth(u.Listings)).Methods(http.MethodGet)
	r.Handle("/users/favListingsIds", auth(u.FavListingIDs)).Methods(http.MethodGet)
	r.Handle("/users/favListings", auth(u.AddFavorites)).Methods(http.MethodPut)
	r.Handle("/users/favListings", auth(u.RemoveFavorites)).Methods(http.MethodDelete)
	r.Handle("/users/backups", auth(u.Backups, httpmw.RequireAdmin)).Methods(http.MethodGet)
	r.Handle("/users/backups/{id}", auth(u.Backup, httpmw.RequireAdmin)).Methods(http.MethodGet)
	r.Handle("/users/{id}", auth(u.Delete, httpmw.RequireAdmin)).Methods(http.MethodDelete)
	r.Handle("/users/{id}/confirm", auth(u.Confirm, httpmw.RequireAdmin)).Methods(http.MethodPut)
	r.Handle("/users/{id}/unconfirm", auth(u.Unconfirm, httpmw.RequireAdmin)).Methods(http.MethodPut)

	a := deps.ApplicationHandler
	submitLimit := httpmw.RateLimit(deps.SubmitLimiter, httpmw.CallerOrIPKey("submit"), deps.SubmitLimit, deps.SubmitWindow)
	r.Handle("/applications/submit", auth(a.Submit, submitLimit)).Methods(http.MethodPost)
	r.Handle("/applications/upload-resume", auth(a.UploadResume)).Methods(http.MethodPost)
	r.Handle("/applications/listing/{listingId}", auth(a.ListByListing)).Methods(http.MethodGet)
	r.Handle("/applications/listing/{listingId}/stats", auth(a.Stats)).Methods(http.MethodGet)
	r.Handle("/applications/student/{studentId}", auth(a.ListByStudent)).Methods(http.MethodGet)
	r.Handle("/applications/{id}/status", auth(a.UpdateStatus)).Methods(http.MethodPut)
	r.Handle("/uploads/resumes/{name}", auth(a.Resume)).Methods(http.MethodGet)

	return httpmw.Chain(r,
		httpmw.RequestID,
		httpmw.Logging(deps.Logger),
		httpmw.BodyLimit(maxBodyBytes),
		httpmw.Recover(deps.Logger),
		httpmw.Metrics(deps.Metrics),
		httpmw.Timeout(deps.RequestTimeout),
	)
}

func notFound(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusNotFound, map[string]string{"error": "Not found", "path": r.URL.Path})
}
