package csrf

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSessionCookie = "sid"
	testCSRFCookie    = "csrf_token_test"
	testHeader        = "X-CSRF-Token"
)

// secrets can be swapped by tests to simulate rotation
type rotatingSecrets struct {
	current []string
}

func (s *rotatingSecrets) Secrets(*http.Request) []string {
	return s.current
}

func newTestProtector(t *testing.T, secrets SecretResolver, mutate ...func(*Config)) *Protector {
	t.Helper()
	cfg := Config{
		Secrets:           secrets,
		SessionIdentifier: CookieSessionIdentifier(testSessionCookie),
		CookieName:        testCSRFCookie,
		Cookie:            &CookieOptions{Path: "/", SameSite: http.SameSiteLaxMode, HTTPOnly: true},
		TokenSource:       HeaderTokenSource(testHeader),
		Logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, m := range mutate {
		m(&cfg)
	}
	p, err := New(cfg)
	require.NoError(t, err)
	return p
}

func newSessionRequest(method, sessionID string) *http.Request {
	req := httptest.NewRequest(method, "/", nil)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: testSessionCookie, Value: sessionID})
	}
	return req
}

func getCookieByName(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func generate(t *testing.T, p *Protector, req *http.Request, opts ...GenerateOption) (string, *http.Cookie, error) {
	t.Helper()
	rec := httptest.NewRecorder()
	tok, err := p.GenerateToken(rec, req, opts...)
	res := rec.Result()
	defer res.Body.Close()
	return tok, getCookieByName(res, testCSRFCookie), err
}

func TestGenerateToken_TransitionTable(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))
	valid, _, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)

	tests := []struct {
		name            string
		existing        string // "" means no cookie
		overwrite       bool
		validateOnReuse bool
		wantReuse       bool
		wantErr         bool
	}{
		{name: "absent", overwrite: false, validateOnReuse: true},
		{name: "absent overwrite", overwrite: true, validateOnReuse: false},
		{name: "valid overwrite", existing: valid, overwrite: true, validateOnReuse: true},
		{name: "valid reuse", existing: valid, overwrite: false, validateOnReuse: true, wantReuse: true},
		{name: "valid reuse no validation", existing: valid, overwrite: false, validateOnReuse: false, wantReuse: true},
		{name: "invalid with validation", existing: "bogus.value", overwrite: false, validateOnReuse: true, wantErr: true},
		{name: "invalid without validation", existing: "bogus.value", overwrite: false, validateOnReuse: false},
		{name: "invalid overwrite", existing: "bogus.value", overwrite: true, validateOnReuse: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newSessionRequest(http.MethodGet, "sess-1")
			if tt.existing != "" {
				req.AddCookie(&http.Cookie{Name: testCSRFCookie, Value: tt.existing})
			}

			tok, cookie, err := generate(t, p, req, Overwrite(tt.overwrite), ValidateOnReuse(tt.validateOnReuse))
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, IsInvalidToken(err))
				assert.Empty(t, tok)
				assert.Nil(t, cookie, "no cookie must be written on failure")
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cookie)
			assert.Equal(t, tok, cookie.Value)
			assert.True(t, p.Engine().VerifyToken([]string{"s1"}, "sess-1", tok))
			if tt.wantReuse {
				assert.Equal(t, tt.existing, tok)
			} else {
				assert.NotEqual(t, tt.existing, tok)
			}
		})
	}
}

func TestGenerateToken_IdempotentReuse(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))
	first, cookie, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)

	req := newSessionRequest(http.MethodGet, "sess-1")
	req.AddCookie(cookie)
	second, _, err := generate(t, p, req)
	require.NoError(t, err)
	third, _, err := generate(t, p, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, second, third)
}

func TestGenerateToken_ForcedRotation(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))
	seen := map[string]bool{}

	req := newSessionRequest(http.MethodGet, "sess-1")
	for i := 0; i < 50; i++ {
		tok, cookie, err := generate(t, p, req, Overwrite(true))
		require.NoError(t, err)
		require.False(t, seen[tok], "token repeated on iteration %d", i)
		seen[tok] = true

		req = newSessionRequest(http.MethodGet, "sess-1")
		req.AddCookie(cookie)
	}
}

func TestGenerateToken_SessionChangeInvalidatesCookie(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))
	_, cookie, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)

	req := newSessionRequest(http.MethodGet, "sess-2")
	req.AddCookie(cookie)
	_, _, err = generate(t, p, req)
	assert.True(t, IsInvalidToken(err))

	tok, _, err := generate(t, p, req, ValidateOnReuse(false))
	require.NoError(t, err)
	assert.NotEqual(t, cookie.Value, tok)
	assert.True(t, p.Engine().VerifyToken([]string{"s1"}, "sess-2", tok))
}

func TestGenerateToken_SignsWithPreferredSecret(t *testing.T) {
	secrets := &rotatingSecrets{current: []string{"new", "old"}}
	p := newTestProtector(t, secrets)

	tok, _, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)

	e := p.Engine()
	assert.True(t, e.VerifyToken([]string{"new"}, "sess-1", tok))
	assert.False(t, e.VerifyToken([]string{"old"}, "sess-1", tok))
}

func TestGenerateToken_ReusesCookieSignedWithOlderSecret(t *testing.T) {
	secrets := &rotatingSecrets{current: []string{"old"}}
	p := newTestProtector(t, secrets)
	first, cookie, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)

	secrets.current = []string{"new", "old"}
	req := newSessionRequest(http.MethodGet, "sess-1")
	req.AddCookie(cookie)
	second, _, err := generate(t, p, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	// old secret retired
	secrets.current = []string{"new"}
	_, _, err = generate(t, p, req)
	assert.True(t, IsInvalidToken(err))
}

func TestGenerateToken_NoSecret(t *testing.T) {
	for name, secrets := range map[string]SecretResolver{
		"nil":   StaticSecrets(),
		"empty": StaticSecrets(""),
	} {
		t.Run(name, func(t *testing.T) {
			p := newTestProtector(t, secrets)
			_, cookie, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
			assert.True(t, errors.Is(err, ErrNoSecret))
			assert.False(t, IsInvalidToken(err))
			assert.Nil(t, cookie)
		})
	}
}

func TestGenerateToken_CookieOverrides(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))

	_, cookie, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"),
		WithCookie(func(c *CookieOptions) {
			c.MaxAge = 600
			c.Path = "/app"
			c.SameSite = http.SameSiteStrictMode
		}),
	)
	require.NoError(t, err)
	require.NotNil(t, cookie)
	assert.Equal(t, 600, cookie.MaxAge)
	assert.Equal(t, "/app", cookie.Path)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.True(t, cookie.HttpOnly, "unchanged defaults must survive the override")

	// overrides do not leak into later calls
	_, cookie, err = generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)
	assert.Equal(t, "/", cookie.Path)
	assert.Zero(t, cookie.MaxAge)
}

func TestGenerateToken_NilCookieOverride(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))

	var (
		cookie *http.Cookie
		err    error
	)
	require.NotPanics(t, func() {
		_, cookie, err = generate(t, p, newSessionRequest(http.MethodGet, "sess-1"), WithCookie(nil))
	})
	require.NoError(t, err)
	require.NotNil(t, cookie)
	assert.Equal(t, "/", cookie.Path)
}

func TestGenerateToken_ConfiguredDefaults(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"), func(c *Config) {
		c.Generate = &GenerateConfig{Overwrite: false, ValidateOnReuse: false}
	})

	req := newSessionRequest(http.MethodGet, "sess-1")
	req.AddCookie(&http.Cookie{Name: testCSRFCookie, Value: "stale.cookie"})
	tok, _, err := generate(t, p, req)
	require.NoError(t, err)
	assert.NotEqual(t, "stale.cookie", tok)
}

func TestGenerateToken_EmptySessionIdentifier(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"))
	tok, _, err := generate(t, p, newSessionRequest(http.MethodGet, ""))
	require.NoError(t, err)
	assert.True(t, p.Engine().VerifyToken([]string{"s1"}, "", tok))
	assert.False(t, p.Engine().VerifyToken([]string{"s1"}, "sess-1", tok))
}

func TestGenerateToken_TokenBytes(t *testing.T) {
	p := newTestProtector(t, StaticSecrets("s1"), func(c *Config) { c.TokenBytes = 16 })
	tok, _, err := generate(t, p, newSessionRequest(http.MethodGet, "sess-1"))
	require.NoError(t, err)
	// 64 hex chars of sha256, the delimiter, 32 hex chars of random value
	assert.Len(t, tok, 64+1+32)
}
