package middleware

import (
	"net/http"

	"ylabs/internal/app"
	"ylabs/internal/common"
	"ylabs/internal/domain/user"
	"ylabs/internal/http/response"
)

// Guard rejects authenticated callers for which allow is false. Requests
// without a caller get 401.
func Guard(allow func(app.Caller) bool, message string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := CallerFromContext(r.Context())
			if !ok {
				response.Error(w, errUnauthorized())
				return
			}
			if !allow(caller) {
				response.Error(w, common.NewError(common.CodeForbidden, message, nil))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

var (
	CanCreateListing = Guard(app.Caller.CanCreateListings, "User does not have permission to create listings")
	RequireAdmin     = Guard(app.Caller.IsAdmin, "Admin privileges required")
	RequireConfirmed = Guard(func(c app.Caller) bool { return c.Confirmed }, "Account must be confirmed")
	RequireProfessor = Guard(func(c app.Caller) bool {
		return c.UserType == user.TypeProfessor || c.UserType == user.TypeAdmin
	}, "Professor privileges required")
	RequireTrustworthy = Guard(func(c app.Caller) bool {
		return c.Confirmed && c.CanCreateListings()
	}, "Forbidden")
)
