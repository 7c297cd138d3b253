package handlers

import (
	"context"
	"net/http"

	"ylabs/internal/app"
	"ylabs/internal/domain/user"
	"ylabs/internal/http/response"
)

type UserHandler struct {
	users *app.UserService
}

func NewUserHandler(users *app.UserService) *UserHandler {
	return &UserHandler{users: users}
}

type userPayload struct {
	FirstName     *string     `json:"fname"`
	LastName      *string     `json:"lname"`
	Email         *string     `json:"email"`
	College       *string     `json:"college"`
	Year          *string     `json:"year"`
	Major         *stringList `json:"major"`
	Departments   *stringList `json:"departments"`
	UserConfirmed *bool       `json:"userConfirmed"`
}

type userEnvelope struct {
	Data *userPayload `json:"data"`
}

func (p userPayload) patch() user.Patch {
	return user.Patch{
		FirstName:     p.FirstName,
		LastName:      p.LastName,
		Email:         p.Email,
		College:       p.College,
		Year:          p.Year,
		Major:         listPtr(p.Major),
		Departments:   listPtr(p.Departments),
		UserConfirmed: p.UserConfirmed,
	}
}

// favoritesRequest accepts {"data":{"favListings":...}} as well as a bare
// {"favListings":...} body.
type favoritesRequest struct {
	FavListings stringList `json:"favListings"`
	Data        *struct {
		FavListings stringList `json:"favListings"`
	} `json:"data"`
}

func (f favoritesRequest) ids() []string {
	if f.Data != nil && len(f.Data.FavListings) > 0 {
		return f.Data.FavListings
	}
	return f.FavListings
}

func (h *UserHandler) Current(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	account, err := h.users.Current(r.Context(), caller)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *UserHandler) UpdateCurrent(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req userEnvelope
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	var patch user.Patch
	if req.Data != nil {
		patch = req.Data.patch()
	}
	account, err := h.users.UpdateCurrent(r.Context(), caller, patch)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *UserHandler) Listings(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	result, err := h.users.Listings(r.Context(), caller)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, result)
}

func (h *UserHandler) FavListingIDs(w http.ResponseWriter, r *http.Request) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	ids, err := h.users.FavListingIDs(r.Context(), caller)
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"favListingsIds": ids})
}

func (h *UserHandler) AddFavorites(w http.ResponseWriter, r *http.Request) {
	h.favorites(w, r, h.users.AddFavorites)
}

func (h *UserHandler) RemoveFavorites(w http.ResponseWriter, r *http.Request) {
	h.favorites(w, r, h.users.RemoveFavorites)
}

func (h *UserHandler) favorites(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, caller app.Caller, ids []string) (*user.User, error)) {
	caller, err := callerFrom(r)
	if err != nil {
		response.Error(w, err)
		return
	}
	var req favoritesRequest
	if err := decodeJSON(r, &req); err != nil {
		response.Error(w, err)
		return
	}
	account, err := apply(r.Context(), caller, req.ids())
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *UserHandler) Backups(w http.ResponseWriter, r *http.Request) {
	backups, err := h.users.Backups(r.Context())
	if err != nil {
		response.Error(w, err)
		return
	}
	if backups == nil {
		backups = []user.Backup{}
	}
	response.JSON(w, http.StatusOK, map[string]any{"backups": backups})
}

func (h *UserHandler) Backup(w http.ResponseWriter, r *http.Request) {
	backup, err := h.users.Backup(r.Context(), pathVar(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"backup": backup})
}

func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	account, err := h.users.Delete(r.Context(), pathVar(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": account})
}

func (h *UserHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.confirmation(w, r, h.users.Confirm)
}

func (h *UserHandler) Unconfirm(w http.ResponseWriter, r *http.Request) {
	h.confirmation(w, r, h.users.Unconfirm)
}

func (h *UserHandler) confirmation(w http.ResponseWriter, r *http.Request, apply func(ctx context.Context, netid string) (*user.User, error)) {
	account, err := apply(r.Context(), pathVar(r, "id"))
	if err != nil {
		response.Error(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"user": account})
}
