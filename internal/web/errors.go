package web

// errors.go provides unified error response handling for the web layer.
//
// Errors are logged with full technical details server-side and returned to
// clients as user-friendly messages, formatted for the request type:
//   - Datastar requests get an error toast appended to the notification stack
//   - API and JSON requests get an ErrorResponse body
//   - Everything else gets an HTML alert

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/JonMunkholm/fastro/internal/core"
	"github.com/JonMunkholm/fastro/internal/logging"
	"github.com/JonMunkholm/fastro/internal/provider"
	"github.com/JonMunkholm/fastro/internal/web/views"
)

var (
	errRateLimited  = errors.New("rate limit exceeded")
	errUnknownTable = errors.New("unknown table")
	errBadRequest   = errors.New("invalid field values")
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError handles error responses with user-friendly messages.
func respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	userMsg := core.MapError(err)

	logging.FromContext(r.Context()).Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
	)

	switch {
	case isDatastar(r):
		// SSE responses are always 200; the toast carries the failure.
		sse := datastar.NewSSE(w, r)
		_ = sse.PatchElementTempl(views.Toasts([]provider.Notification{provider.Failure("Request failed", err)}),
			datastar.WithSelectorID(views.NotificationsID), datastar.WithModeAppend())
	case wantsJSON(r):
		respondErrorJSON(w, userMsg, statusCode)
	default:
		respondErrorHTML(w, r, userMsg, statusCode)
	}
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// respondErrorHTML writes the error alert fragment.
func respondErrorHTML(w http.ResponseWriter, r *http.Request, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	views.ErrorAlert(msg.Message, msg.Action, msg.Code).Render(r.Context(), w)
}

// isDatastar checks if the request was issued by a Datastar action.
func isDatastar(r *http.Request) bool {
	return r.Header.Get("Datastar-Request") == "true"
}

// wantsJSON checks if the client prefers JSON response.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	// API routes default to JSON
	return strings.HasPrefix(r.URL.Path, "/api/")
}
