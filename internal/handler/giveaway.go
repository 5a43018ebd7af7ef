package handler

import (
	"log/slog"
	"net/http"

	"github.com/sakif/solwinner/internal/auth"
	"github.com/sakif/solwinner/internal/model"
	"github.com/sakif/solwinner/internal/service"
)

// Authorizer builds the provider's authorize URL. *auth.DiscordProvider
// implements it.
type Authorizer interface {
	AuthURL() string
}

// GiveawayHandler serves every page of the site.
//
// HANDLER RESPONSIBILITIES:
//   - HandleHome      → landing page with the login link
//   - HandleLogin     → redirect to Discord's authorize page
//   - HandleCallback  → exchange the code, set the session cookie
//   - HandleDashboard → greeting + entry status (RequireSession)
//   - HandleEnter     → record the entry, idempotent (RequireSession)
//   - HandleLogout    → clear cookies
//   - HandleAdminLogin / HandleAdmin → shared-secret admin listing
type GiveawayHandler struct {
	svc        *service.GiveawayService
	authorizer Authorizer
	sessions   *auth.Sessions
	admin      *auth.AdminGate
	pages      *pages
	logger     *slog.Logger
}

// NewGiveawayHandler creates a GiveawayHandler and parses its templates.
func NewGiveawayHandler(
	svc *service.GiveawayService,
	authorizer Authorizer,
	sessions *auth.Sessions,
	admin *auth.AdminGate,
	logger *slog.Logger,
) (*GiveawayHandler, error) {
	p, err := newPages(logger)
	if err != nil {
		return nil, err
	}
	return &GiveawayHandler{
		svc:        svc,
		authorizer: authorizer,
		sessions:   sessions,
		admin:      admin,
		pages:      p,
		logger:     logger,
	}, nil
}

// HandleHome serves the landing page.
//
// HTTP: GET /
func (h *GiveawayHandler) HandleHome(w http.ResponseWriter, r *http.Request) {
	data := struct {
		Profile *model.Profile
		Denied  bool
	}{
		Denied: r.URL.Query().Get("auth") == "denied",
	}
	// Optional: a broken cookie just means the login link is shown.
	if p, err := h.sessions.Read(r); err == nil {
		data.Profile = p
	}

	h.pages.render(w, http.StatusOK, "home", data)
}

// HandleLogin redirects the browser to Discord's authorization page.
//
// HTTP: GET /login
func (h *GiveawayHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, h.authorizer.AuthURL(), http.StatusTemporaryRedirect)
}

// HandleCallback completes the OAuth login flow.
//
// HTTP: GET /callback?code=xxx
//
// FLOW:
//  1. If Discord reports an error (user pressed "Cancel"), go home
//  2. Exchange the code and upsert the user (service)
//  3. Store the profile in the session cookie
//  4. Redirect to /dashboard
//
// Upstream failures render a 502 page. Nothing is retried: the user starts
// over from /login.
func (h *GiveawayHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if errParam := q.Get("error"); errParam != "" {
		h.logger.Info("login cancelled at Discord", slog.String("error", errParam))
		http.Redirect(w, r, "/?auth=denied", http.StatusSeeOther)
		return
	}

	profile, err := h.svc.CompleteLogin(r.Context(), q.Get("code"))
	if err != nil {
		h.pages.writeError(w, r, err)
		return
	}

	if err := h.sessions.Write(w, *profile); err != nil {
		h.pages.writeError(w, r, err)
		return
	}

	http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
}

// sessionProfile returns the profile RequireSession stored in the context.
// On a route without RequireSession it redirects home and returns false.
func (h *GiveawayHandler) sessionProfile(w http.ResponseWriter, r *http.Request) (*model.Profile, bool) {
	profile, ok := auth.ProfileFromContext(r.Context())
	if !ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return nil, false
	}
	return profile, true
}

// HandleDashboard greets the user and shows whether they have entered.
//
// HTTP: GET /dashboard
// Auth: session cookie (RequireSession)
func (h *GiveawayHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.sessionProfile(w, r)
	if !ok {
		return
	}

	entry, err := h.svc.EntryFor(r.Context(), profile.ID)
	if err != nil {
		h.pages.writeError(w, r, err)
		return
	}

	h.pages.render(w, http.StatusOK, "dashboard", struct {
		Profile *model.Profile
		Entry   *model.Entry
	}{profile, entry})
}

// HandleEnter records the user's giveaway entry.
//
// HTTP: GET /enter
// Auth: session cookie (RequireSession)
//
// Calling it again is harmless: the first entry stands and the page says so.
func (h *GiveawayHandler) HandleEnter(w http.ResponseWriter, r *http.Request) {
	profile, ok := h.sessionProfile(w, r)
	if !ok {
		return
	}

	res, err := h.svc.Enter(r.Context(), profile.ID)
	if err != nil {
		h.pages.writeError(w, r, err)
		return
	}

	h.pages.render(w, http.StatusOK, "entered", res)
}

// HandleLogout clears the session and admin cookies.
//
// HTTP: GET /logout
func (h *GiveawayHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// HandleAdminLogin grants the admin cookie to whoever knows the secret.
//
// HTTP: GET /admin-login?secret=...
//
// A wrong secret is an explicit 401 with no cookie, unlike the redirect a
// missing session gets.
func (h *GiveawayHandler) HandleAdminLogin(w http.ResponseWriter, r *http.Request) {
	if err := h.admin.Check(r.URL.Query().Get("secret")); err != nil {
		h.pages.writeError(w, r, err)
		return
	}

	h.sessions.GrantAdmin(w)
	h.logger.Info("admin cookie granted", slog.String("remoteAddr", r.RemoteAddr))
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// HandleAdmin lists every registered user with their entry.
//
// HTTP: GET /admin
// Auth: admin cookie (RequireAdmin)
func (h *GiveawayHandler) HandleAdmin(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.AdminListing(r.Context())
	if err != nil {
		h.pages.writeError(w, r, err)
		return
	}

	entries := 0
	for _, row := range rows {
		if row.Entry != nil {
			entries++
		}
	}

	h.pages.render(w, http.StatusOK, "admin", struct {
		Rows    []service.AdminRow
		Entries int
	}{rows, entries})
}
