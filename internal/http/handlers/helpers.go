package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"ylabs/internal/app"
	"ylabs/internal/common"
	"ylabs/internal/http/middleware"
)

func errUnauthorized() error {
	return common.NewError(common.CodeUnauthorized, "Unauthorized", nil)
}

func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return common.NewValidationError("invalid request body", nil)
	}
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.NewValidationError("request body is required", nil)
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return common.NewValidationError("request body too large", nil)
		}
		return common.NewError(common.CodeValidation, "invalid request body", err)
	}
	return nil
}

func callerFrom(r *http.Request) (app.Caller, error) {
	caller, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		return app.Caller{}, errUnauthorized()
	}
	return caller, nil
}

func pathVar(r *http.Request, name string) string {
	return mux.Vars(r)[name]
}

// stringList accepts either a JSON string or an array of strings.
type stringList []string

func (s *stringList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*s = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	if single == "" {
		*s = []string{}
		return nil
	}
	*s = []string{single}
	return nil
}

// positiveQueryInt parses an optional query integer. Absent means 0 and a
// present value below 1 is an error.
func positiveQueryInt(r *http.Request, key, message string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 1 {
		return 0, common.NewValidationError(message, map[string]string{key: "must be a positive integer"})
	}
	return value, nil
}

func splitCSV(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
