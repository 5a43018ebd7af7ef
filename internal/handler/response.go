package handler

// ERROR MAPPING:
// This is the only place where apperror sentinels become HTTP status codes.
// The service and auth layers never know about HTTP.
//
//	ErrValidation         → 400 Bad Request
//	ErrUnauthorizedAdmin  → 401 Unauthorized
//	ErrNotFound           → 404 Not Found
//	ErrUpstreamAuth       → 502 Bad Gateway
//	ErrUpstreamProfile    → 502 Bad Gateway
//	anything else         → 500 Internal Server Error
//
// Malformed sessions never get here: RequireSession turns them into a
// redirect to the home page.

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/solwinner/internal/apperror"
)

// errorPage is the data for templates/error.html.
type errorPage struct {
	Title   string
	Message string
}

// statusFor maps an error to its HTTP status and the page shown to the user.
// Messages are fixed strings: raw errors may contain upstream responses or
// SQL and are only logged.
func statusFor(err error) (int, errorPage) {
	switch {
	case errors.Is(err, apperror.ErrValidation):
		msg := "The request was invalid."
		var appErr *apperror.AppError
		if errors.As(err, &appErr) {
			msg = appErr.Message
		}
		return http.StatusBadRequest, errorPage{Title: "Bad request", Message: msg}
	case errors.Is(err, apperror.ErrUnauthorizedAdmin):
		return http.StatusUnauthorized, errorPage{Title: "Unauthorized", Message: "Unauthorized"}
	case errors.Is(err, apperror.ErrNotFound):
		return http.StatusNotFound, errorPage{Title: "Not found", Message: "Nothing here."}
	case errors.Is(err, apperror.ErrUpstreamAuth), errors.Is(err, apperror.ErrUpstreamProfile):
		return http.StatusBadGateway, errorPage{
			Title:   "Login failed",
			Message: "Discord did not complete the login. Please try again.",
		}
	default:
		return http.StatusInternalServerError, errorPage{
			Title:   "Something went wrong",
			Message: "An internal error occurred.",
		}
	}
}

// writeError logs err and renders the matching error page.
func (p *pages) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, page := statusFor(err)

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	p.logger.Log(r.Context(), level, "request failed",
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
	)

	p.render(w, status, "error", page)
}
