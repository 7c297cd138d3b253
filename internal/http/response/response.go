package response

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"

	"ylabs/internal/common"
)

// ErrorCollector counts server errors rendered through Error.
type ErrorCollector interface {
	IncErrors()
}

var (
	collector   atomic.Value
	logger      atomic.Pointer[slog.Logger]
	development atomic.Bool
)

type collectorBox struct{ c ErrorCollector }

func SetErrorCollector(c ErrorCollector) {
	collector.Store(collectorBox{c: c})
}

func SetLogger(l *slog.Logger) {
	logger.Store(l)
}

// SetDevelopment exposes internal error causes in response bodies.
func SetDevelopment(enabled bool) {
	development.Store(enabled)
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error                string            `json:"error"`
	Fields               map[string]string `json:"fields,omitempty"`
	IncorrectPermissions bool              `json:"incorrectPermissions,omitempty"`
	Message              string            `json:"message,omitempty"`
}

func Error(w http.ResponseWriter, err error) {
	status, body := render(err)
	if status >= http.StatusInternalServerError {
		if box, ok := collector.Load().(collectorBox); ok && box.c != nil {
			box.c.IncErrors()
		}
		if l := logger.Load(); l != nil {
			l.Error("request failed", "error", err)
		}
	}
	JSON(w, status, body)
}

// StatusOf maps an error code to its HTTP status.
func StatusOf(code common.Code) int {
	switch code {
	case common.CodeValidation:
		return http.StatusBadRequest
	case common.CodeUnauthorized:
		return http.StatusUnauthorized
	case common.CodeForbidden:
		return http.StatusForbidden
	case common.CodeNotFound, common.CodeObjectID:
		return http.StatusNotFound
	case common.CodeConflict:
		return http.StatusConflict
	case common.CodeRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

func render(err error) (int, errorBody) {
	code := common.CodeOf(err)
	status := StatusOf(code)
	if status == http.StatusInternalServerError {
		body := errorBody{Error: "Internal server error"}
		if development.Load() && err != nil {
			body.Message = err.Error()
		}
		return status, body
	}
	body := errorBody{Error: http.StatusText(status)}
	var appErr *common.Error
	if errors.As(err, &appErr) {
		body.Error = appErr.Message
		body.Fields = appErr.Fields
	}
	if code == common.CodeForbidden {
		body.IncorrectPermissions = true
	}
	return status, body
}
