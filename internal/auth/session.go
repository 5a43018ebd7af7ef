// Package auth handles everything about who the caller is: the Discord OAuth
// exchange, the session cookie that remembers the result, and the admin flag.
//
// AUTHENTICATION FLOW OVERVIEW:
// 1. User visits /login → redirected to Discord
// 2. Discord calls back /callback with a code
// 3. Server exchanges the code for the Discord profile, upserts the user
// 4. Server encodes the profile into the "discord" HttpOnly cookie
// 5. Later requests decode the cookie; a missing or broken cookie means
//    "not logged in"
//
// SESSION COOKIE TRUST:
// PlainCodec stores the profile as base64url JSON with no signature, so a
// client can forge any identity by editing the cookie. It is the default
// only because it needs no configuration. Production deployments should set
// SESSION_SECRET to switch to SignedCodec, which rejects any cookie it did
// not sign itself.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sakif/solwinner/internal/apperror"
	"github.com/sakif/solwinner/internal/model"
)

const (
	SessionCookieName = "discord"
	AdminCookieName   = "admin"

	// adminCookieValue is the only value of the admin cookie that grants access.
	adminCookieValue = "true"

	issuer = "solwinner"
)

// SessionCodec turns a Profile into a cookie value and back.
//
// Decode returns an error matching apperror.ErrMalformedSession for any
// value it cannot turn back into a profile with an ID.
type SessionCodec interface {
	Encode(p model.Profile) (string, error)
	Decode(value string) (*model.Profile, error)
}

// PlainCodec serialises the profile as JSON wrapped in unpadded base64url.
//
// WHY BASE64?
// net/http sanitises cookie values: double quotes, backslashes and semicolons
// are dropped, and values containing spaces or commas get quoted. Raw JSON
// would not survive the round trip; base64url only uses cookie-safe bytes.
type PlainCodec struct{}

func (PlainCodec) Encode(p model.Profile) (string, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("auth: encoding session: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func (PlainCodec) Decode(value string) (*model.Profile, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, apperror.MalformedSession(err)
	}

	var p model.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, apperror.MalformedSession(err)
	}
	if p.ID == "" {
		return nil, apperror.MalformedSession(errors.New("session has no id"))
	}

	return &p, nil
}

// sessionClaims is the JWT payload of a signed session. The Discord ID
// travels in the standard "sub" claim.
type sessionClaims struct {
	DisplayName string  `json:"name"`
	Avatar      *string `json:"avatar"`
	jwt.RegisteredClaims
}

// SignedCodec stores the profile in an HS256-signed JWT.
//
// No "exp" claim is set: like the plain cookie, the session lasts as long as
// the browser keeps it.
type SignedCodec struct {
	secret []byte
}

// NewSignedCodec creates a SignedCodec. The secret should be at least 32
// bytes of random data in production, e.g. SESSION_SECRET=$(openssl rand -hex 32).
func NewSignedCodec(secret string) (*SignedCodec, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: session secret must be at least 16 characters")
	}
	return &SignedCodec{secret: []byte(secret)}, nil
}

func (c *SignedCodec) Encode(p model.Profile) (string, error) {
	claims := sessionClaims{
		DisplayName: p.DisplayName,
		Avatar:      p.Avatar,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: p.ID,
			Issuer:  issuer,
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("auth: signing session: %w", err)
	}
	return signed, nil
}

// Decode verifies the signature, algorithm and issuer before trusting the
// payload. Passing jwt.WithValidMethods stops "alg: none" tokens.
func (c *SignedCodec) Decode(value string) (*model.Profile, error) {
	token, err := jwt.ParseWithClaims(
		value,
		&sessionClaims{},
		func(token *jwt.Token) (any, error) {
			return c.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
	)
	if err != nil {
		return nil, apperror.MalformedSession(err)
	}

	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, apperror.MalformedSession(errors.New("invalid session claims"))
	}
	if claims.Subject == "" {
		return nil, apperror.MalformedSession(errors.New("session has no subject"))
	}

	return &model.Profile{
		ID:          claims.Subject,
		DisplayName: claims.DisplayName,
		Avatar:      claims.Avatar,
	}, nil
}

// Sessions reads and writes the session and admin cookies.
type Sessions struct {
	codec  SessionCodec
	secure bool // set the Secure attribute; requires HTTPS
}

// NewSessions creates a Sessions using codec. A nil codec means PlainCodec.
func NewSessions(codec SessionCodec, secure bool) *Sessions {
	if codec == nil {
		codec = PlainCodec{}
	}
	return &Sessions{codec: codec, secure: secure}
}

// Write stores the profile in the session cookie. The cookie has no
// Max-Age, so it lives for the browser session.
func (s *Sessions) Write(w http.ResponseWriter, p model.Profile) error {
	value, err := s.codec.Encode(p)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the profile stored in the request's session cookie.
// A missing cookie returns http.ErrNoCookie; an unreadable one returns an
// error matching apperror.ErrMalformedSession.
func (s *Sessions) Read(r *http.Request) (*model.Profile, error) {
	cookie, err := r.Cookie(SessionCookieName)
	if err != nil {
		return nil, err
	}
	return s.codec.Decode(cookie.Value)
}

// GrantAdmin sets the admin flag cookie.
func (s *Sessions) GrantAdmin(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     AdminCookieName,
		Value:    adminCookieValue,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// IsAdmin reports whether the request carries the admin cookie with exactly
// the granting value.
func (s *Sessions) IsAdmin(r *http.Request) bool {
	cookie, err := r.Cookie(AdminCookieName)
	return err == nil && cookie.Value == adminCookieValue
}

// Clear deletes both cookies.
func (s *Sessions) Clear(w http.ResponseWriter) {
	for _, name := range []string{SessionCookieName, AdminCookieName} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1, // tells the browser to delete the cookie immediately
			HttpOnly: true,
			Secure:   s.secure,
		})
	}
}
