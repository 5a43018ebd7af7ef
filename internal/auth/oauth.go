package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"

	"github.com/sakif/solwinner/internal/apperror"
	"github.com/sakif/solwinner/internal/model"
)

// Endpoints are the Discord URLs the provider talks to. Tests point them at
// an httptest.Server.
type Endpoints struct {
	AuthURL    string
	TokenURL   string
	ProfileURL string
}

// DiscordEndpoints are the production Discord API endpoints.
var DiscordEndpoints = Endpoints{
	AuthURL:    "https://discord.com/api/oauth2/authorize",
	TokenURL:   "https://discord.com/api/oauth2/token",
	ProfileURL: "https://discord.com/api/users/@me",
}

// DefaultTimeout bounds each of the two upstream calls.
const DefaultTimeout = 5 * time.Second

// maxProfileBytes caps how much of the /users/@me body we are willing to read.
const maxProfileBytes = 1 << 20

// discordUser is the portion of the Discord /users/@me response we care about.
//
// Discord API docs: https://discord.com/developers/docs/resources/user#user-object
type discordUser struct {
	ID            string  `json:"id"`            // snowflake, sent as a string
	Username      string  `json:"username"`      // e.g. "wumpus"
	Discriminator string  `json:"discriminator"` // e.g. "0001"
	Avatar        *string `json:"avatar"`        // avatar hash, null when unset
}

// DiscordProvider wraps golang.org/x/oauth2 for the Discord Authorization Code flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
// 1. The browser is redirected to Discord's authorize endpoint with our client ID.
// 2. The user approves the "identify" scope on Discord.
// 3. Discord redirects back to our redirect URI with a short-lived "code".
// 4. We exchange the code for an access token (server-to-server, with our secret).
// 5. We call /users/@me with the access token to learn who the user is.
//
// Steps 4 and 5 are sequential: the second needs the first one's token.
// Each gets its own timeout and a single attempt, there are no retries.
type DiscordProvider struct {
	config     *oauth2.Config
	profileURL string
	timeout    time.Duration
	client     *http.Client
}

// Option customises a DiscordProvider.
type Option func(*DiscordProvider)

// WithEndpoints overrides the Discord URLs.
func WithEndpoints(e Endpoints) Option {
	return func(p *DiscordProvider) {
		p.config.Endpoint.AuthURL = e.AuthURL
		p.config.Endpoint.TokenURL = e.TokenURL
		p.profileURL = e.ProfileURL
	}
}

// WithTimeout sets the per-call timeout. Non-positive values are ignored.
func WithTimeout(d time.Duration) Option {
	return func(p *DiscordProvider) {
		if d > 0 {
			p.timeout = d
		}
	}
}

// WithHTTPClient sets the client used for both upstream calls.
func WithHTTPClient(c *http.Client) Option {
	return func(p *DiscordProvider) {
		if c != nil {
			p.client = c
		}
	}
}

// NewDiscordProvider creates a DiscordProvider with the given credentials.
//
// redirectURL must match one of the redirects registered for the application
// in the Discord developer portal, e.g. "http://localhost:3000/callback".
func NewDiscordProvider(clientID, clientSecret, redirectURL string, opts ...Option) *DiscordProvider {
	p := &DiscordProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"identify"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordEndpoints.AuthURL,
				TokenURL: DiscordEndpoints.TokenURL,
				// Discord reads client_id and client_secret from the form body.
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		profileURL: DiscordEndpoints.ProfileURL,
		timeout:    DefaultTimeout,
		client:     http.DefaultClient,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// AuthURL returns the URL to redirect the user to for authorization.
//
// It carries client_id, redirect_uri, response_type=code and scope=identify.
// No state parameter is sent: an empty state makes oauth2 leave it out.
func (p *DiscordProvider) AuthURL() string {
	return p.config.AuthCodeURL("")
}

// Exchange trades an authorization code for the user's normalised profile.
//
// Errors:
//   - apperror.ErrValidation      → empty code, nothing was sent upstream
//   - apperror.ErrUpstreamAuth    → token call failed, timed out, or had no access token
//   - apperror.ErrUpstreamProfile → /users/@me failed, timed out, or returned no id
func (p *DiscordProvider) Exchange(ctx context.Context, code string) (*model.Profile, error) {
	if code == "" {
		return nil, apperror.ValidationFailed("code", "missing authorization code")
	}

	// oauth2 picks up the HTTP client from the context.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.client)

	token, err := p.exchangeToken(ctx, code)
	if err != nil {
		return nil, err
	}

	return p.fetchProfile(ctx, token)
}

func (p *DiscordProvider) exchangeToken(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	// POST grant_type=authorization_code&code=...&redirect_uri=... to the token
	// endpoint. oauth2 already fails when the body has no access_token.
	token, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, apperror.UpstreamAuth("auth: exchanging authorization code", err)
	}
	if !token.Valid() {
		return nil, apperror.UpstreamAuth("auth: token endpoint returned an unusable token", nil)
	}
	return token, nil
}

func (p *DiscordProvider) fetchProfile(ctx context.Context, token *oauth2.Token) (*model.Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.profileURL, nil)
	if err != nil {
		return nil, apperror.UpstreamProfile("auth: building profile request", err)
	}

	// The oauth2 client adds "Authorization: Bearer <token>" to the request.
	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return nil, apperror.UpstreamProfile("auth: calling Discord /users/@me", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, apperror.UpstreamProfile(
			fmt.Sprintf("auth: Discord /users/@me returned status %d", resp.StatusCode), nil)
	}

	var du discordUser
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxProfileBytes)).Decode(&du); err != nil {
		return nil, apperror.UpstreamProfile("auth: decoding Discord /users/@me response", err)
	}

	if du.ID == "" {
		return nil, apperror.UpstreamProfile("auth: Discord returned a user without an id", nil)
	}

	return &model.Profile{
		ID:          du.ID,
		DisplayName: du.Username + "#" + du.Discriminator,
		Avatar:      du.Avatar,
	}, nil
}
