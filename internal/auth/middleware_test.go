package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// okHandler records the profile it saw and answers 200.
func okHandler(seen *string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p, ok := ProfileFromContext(r.Context()); ok {
			*seen = p.ID
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireSession(t *testing.T) {
	s := NewSessions(PlainCodec{}, false)
	valid, err := PlainCodec{}.Encode(sampleProfiles[0])
	require.NoError(t, err)

	tests := []struct {
		name       string
		cookie     *http.Cookie
		wantStatus int
		wantID     string
	}{
		{
			name:       "no cookie redirects home",
			wantStatus: http.StatusSeeOther,
		},
		{
			name:       "malformed cookie redirects home",
			cookie:     &http.Cookie{Name: SessionCookieName, Value: "garbage!"},
			wantStatus: http.StatusSeeOther,
		},
		{
			name:       "valid cookie passes through",
			cookie:     &http.Cookie{Name: SessionCookieName, Value: valid},
			wantStatus: http.StatusOK,
			wantID:     "42",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen string
			h := RequireSession(s, discardLogger())(okHandler(&seen))

			req := httptest.NewRequest(http.MethodGet, "/dashboard", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, req)

			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantID, seen)
			if tt.wantStatus == http.StatusSeeOther {
				assert.Equal(t, "/", rr.Header().Get("Location"))
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	s := NewSessions(nil, false)
	var seen string
	h := RequireAdmin(s)(okHandler(&seen))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusSeeOther, rr.Code)
	assert.Equal(t, "/", rr.Header().Get("Location"))

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.AddCookie(&http.Cookie{Name: AdminCookieName, Value: "true"})
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusOK, rr.Code)
}
