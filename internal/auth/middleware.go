package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/solwinner/internal/model"
)

// contextKey is an unexported type used for context keys in this package,
// so no other package can read or shadow our values.
type contextKey string

const profileKey contextKey = "profile"

// RequireSession is a middleware for pages that need a logged-in user.
//
// It decodes the session cookie and stores the profile in the request
// context. A missing cookie and a malformed cookie are treated the same
// way: the browser is sent back to the home page. Nothing here ever
// responds with an error status.
func RequireSession(sessions *Sessions, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			profile, err := sessions.Read(r)
			if err != nil {
				if !errors.Is(err, http.ErrNoCookie) {
					logger.Warn("discarding unreadable session cookie",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}

			ctx := context.WithValue(r.Context(), profileKey, profile)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin lets the request through only when the admin cookie holds
// exactly the granting value; everyone else is redirected home.
func RequireAdmin(sessions *Sessions) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.IsAdmin(r) {
				http.Redirect(w, r, "/", http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ProfileFromContext returns the profile stored by RequireSession.
//
// Usage in handlers:
//
//	profile, ok := auth.ProfileFromContext(r.Context())
//	if !ok {
//	    // not behind RequireSession
//	}
func ProfileFromContext(ctx context.Context) (*model.Profile, bool) {
	p, ok := ctx.Value(profileKey).(*model.Profile)
	return p, ok && p != nil
}

// WithProfile returns a copy of ctx carrying p. Handler tests use it to skip
// the cookie round trip.
func WithProfile(ctx context.Context, p *model.Profile) context.Context {
	return context.WithValue(ctx, profileKey, p)
}
