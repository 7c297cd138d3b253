package handlers

import (
	"context"
	"net/http"

	"ylabs/internal/app"
	"ylabs/internal/domain/listing"
	"ylabs/internal/http/response"
)

type ListingHandler struct {
	listings *app.ListingService
}

func NewListingHandler(listings *app.ListingService) *ListingHandler {
	return &ListingHandler{listings: listings}
}

// listingPayload is the client form. Owner fields, counters and timestamps
// are not accepted.
type listingPayload struct {
	Title                *string             `json:"title"`
	Description          *string             `json:"description"`
	ProfessorIDs         *stringList         `json:"professorIds"`
	ProfessorNames       *stringList         `json:"professorNames"`
	Departments          *stringList         `json:"departments"`
	Emails               *stringList         `json:"emails"`
	Websites             *stringList         `json:"websites"`
	Keywords             *stringList         `json:"keywords"`
	Established          *int                `json:"established"`
	HiringStatus         *int                `json:"hiringStatus"`
	Archived             *bool               `json:"archived"`
	ApplicationsEnabled  *bool               `json:"applicationsEnabled"`
	ApplicationQuestions *[]listing.Question `json:"applicationQuestions"`
}

type listingEnvelope struct {
	Data listingPayload `json:"data"`
}

func listPtr(s *stringList) *[]string {
	if s == nil {
		return nil
	}
	out := []string(*s)
	if out == nil {
		out = []string{}
	}
	return &out
}

func (p listingPayload) patch() listing.Patch {
	return listing.Patch{
		Title:                p.Title,
		Description:          p.Description,
		ProfessorIDs:         listPtr(p.ProfessorIDs),
		ProfessorNames:       listPtr(p.ProfessorNames),
		Departments:          listPtr(p.Departments),
		Emails:               listPtr(p.Emails),
		Websites:             listPtr(p.Websites),
		Keywords:             listPtr(p.Keywords),
		Established:          p.Established,
		HiringStatus:         p.HiringStatus,
		Archived:             p.Archived,
		ApplicationsEnabled:  p.ApplicationsEnabled,
		ApplicationQuestions: p.ApplicationQuestions,
	}
}

func (h *ListingHandler) Search(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	page, err := positiveQueryInt(r, "page", "Invalid page number (must be >= 1)")
	if err != nil {
		response.Error(w, err)
		return
	}
	pageSize, err := positiveQueryInt(r, "pageSize", "Invalid page size (must be between 1 and 100)")
	if err != nil {
		response.Error(w, err)
		return
	}
	q := r.URL.Query()
	result, err := h.listings.Search(r.Context(), caller, listing.SearchQuery{
		Query:       q.Get("query"),
		SortBy:      q.Get("sortBy"),
		SortOrder:   q.Get("sortOrder"),
		Departments: splitCSV(q.Get("departments")),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *ListingHandler) Create(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req listingEnvelope
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	draft := req.Data.patch().Apply(listing.Listing{})
	created, err := h.listings.Create(r.Context(), caller, draft)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{"listing": created})
}

func (h *ListingHandler) Skeleton(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	skeleton, err := h.listings.Skeleton(r.Context(), caller)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusCreated, map[string]any{"listing": skeleton})
}

func (h *ListingHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.listings.Get(r.Context(), pathVar(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"listing": item})
}

func (h *ListingHandler) Update(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req listingEnvelope
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	updated, err := h.listings.Update(r.Context(), pathVar(r, "id"), caller, req.Data.patch())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"listing": updated})
}

func (h *ListingHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.listings.Archive)
}

func (h *ListingHandler) Unarchive(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.listings.Unarchive)
}

func (h *ListingHandler) AddView(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, h.listings.AddView)
}

type listingAction func(ctx context.Context, id string, caller app.Caller) (*listing.Listing, error)

func (h *ListingHandler) mutate(w http.ResponseWriter, r *http.Request, action listingAction) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	item, err := action(r.Context(), pathVar(r, "id"), caller)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"listing": item})
}

func (h *ListingHandler) Delete(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	deleted, err := h.listings.Delete(r.Context(), pathVar(r, "id"), caller)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"deletedListing": deleted})
}
