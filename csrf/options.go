// Package csrf provides a stateless double-submit-cookie CSRF protection middleware.
package csrf

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

const (
	DefaultCookieName       = "__Host-psifi.x-csrf-token"
	DefaultHeaderName       = "x-csrf-token"
	DefaultMessageDelimiter = "!"
	DefaultTokenDelimiter   = "."
	DefaultTokenBytes       = 32
	DefaultHMACAlgorithm    = "sha256"

	DefaultErrorStatusCode = http.StatusForbidden
	DefaultErrorMessage    = "invalid csrf token"
	DefaultErrorCode       = "EBADCSRFTOKEN"
)

// CookieOptions holds the attributes of the verifier cookie.
type CookieOptions struct {
	Path        string
	Domain      string
	MaxAge      int // in seconds, 0 means a session cookie
	SameSite    http.SameSite
	Secure      bool
	HTTPOnly    bool
	Partitioned bool
}

// DefaultCookieOptions returns the attributes used when Config.Cookie is nil:
// Path "/", SameSite=Lax, Secure and HttpOnly.
func DefaultCookieOptions() CookieOptions {
	return CookieOptions{
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		Secure:   true,
		HTTPOnly: true,
	}
}

// ErrorConfig shapes the InvalidTokenError returned by the Protector.
// Zero fields fall back to 403 / "invalid csrf token" / "EBADCSRFTOKEN".
type ErrorConfig struct {
	StatusCode int
	Message    string
	Code       string
}

// GenerateConfig holds the generation policy applied by GenerateToken
// when the caller does not override it.
type GenerateConfig struct {
	// Overwrite always mints a fresh token, ignoring any existing cookie.
	Overwrite bool
	// ValidateOnReuse makes GenerateToken fail with an InvalidTokenError
	// when an existing cookie is present but no longer valid. When false
	// a fresh token silently replaces it.
	ValidateOnReuse bool
}

// DefaultGenerateConfig reuses valid cookies and rejects invalid ones.
func DefaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Overwrite: false, ValidateOnReuse: true}
}

// Config configures a Protector. Secrets and SessionIdentifier are
// required; every other zero field falls back to a default.
type Config struct {
	// Required collaborators
	Secrets           SecretResolver
	SessionIdentifier SessionIdentifierResolver

	// Cookie
	CookieName        string
	Cookie            *CookieOptions // nil means DefaultCookieOptions()
	CookieSigned      bool
	CookieSigningKeys [][]byte // newest first, required when CookieSigned
	Store             TokenStore // overrides the cookie store entirely

	// Token layout
	MessageDelimiter string
	TokenDelimiter   string
	TokenBytes       int
	HMACAlgorithm    string

	// Request handling
	IgnoredMethods []string    // default GET, HEAD, OPTIONS
	TokenSource    TokenSource // default: the x-csrf-token header
	SkipProtection func(r *http.Request) bool

	Error    ErrorConfig
	Generate *GenerateConfig // nil means DefaultGenerateConfig()

	// Failure path of Protect. The default logs through Logger and
	// answers with the error's status code and message.
	ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)
	Logger       *slog.Logger
}

// Protector issues and validates double-submit CSRF tokens.
type Protector struct {
	secrets  SecretResolver
	sessions SessionIdentifierResolver

	engine     *Engine
	store      TokenStore
	cookie     CookieOptions
	generate   GenerateConfig
	tokenBytes int

	ignored     map[string]bool
	tokenSource TokenSource
	skip        func(r *http.Request) bool

	errCfg       ErrorConfig
	errorHandler func(w http.ResponseWriter, r *http.Request, err error)
	logger       *slog.Logger
}

// New validates cfg, fills in defaults and returns a ready Protector.
func New(cfg Config) (*Protector, error) {
	if cfg.Secrets == nil {
		return nil, errors.New("csrf: a SecretResolver is required")
	}
	if cfg.SessionIdentifier == nil {
		return nil, errors.New("csrf: a SessionIdentifierResolver is required")
	}

	// reasonable defaults
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultCookieName
	}
	cookie := DefaultCookieOptions()
	if cfg.Cookie != nil {
		cookie = *cfg.Cookie
		if cookie.Path == "" {
			cookie.Path = "/"
		}
		if cookie.SameSite == 0 {
			cookie.SameSite = http.SameSiteLaxMode
		}
	}
	if strings.HasPrefix(cfg.CookieName, "__Host-") &&
		(!cookie.Secure || cookie.Path != "/" || cookie.Domain != "") {
		return nil, fmt.Errorf("csrf: cookie %q requires Secure, Path=/ and no Domain", cfg.CookieName)
	}
	if cfg.MessageDelimiter == "" {
		cfg.MessageDelimiter = DefaultMessageDelimiter
	}
	if cfg.TokenDelimiter == "" {
		cfg.TokenDelimiter = DefaultTokenDelimiter
	}
	if cfg.TokenBytes <= 0 {
		cfg.TokenBytes = DefaultTokenBytes
	}
	if cfg.HMACAlgorithm == "" {
		cfg.HMACAlgorithm = DefaultHMACAlgorithm
	}
	if cfg.IgnoredMethods == nil {
		cfg.IgnoredMethods = []string{http.MethodGet, http.MethodHead, http.MethodOptions}
	}
	if cfg.TokenSource == nil {
		cfg.TokenSource = HeaderTokenSource(DefaultHeaderName)
	}
	if cfg.Error.StatusCode == 0 {
		cfg.Error.StatusCode = DefaultErrorStatusCode
	}
	if cfg.Error.Message == "" {
		cfg.Error.Message = DefaultErrorMessage
	}
	if cfg.Error.Code == "" {
		cfg.Error.Code = DefaultErrorCode
	}
	generate := DefaultGenerateConfig()
	if cfg.Generate != nil {
		generate = *cfg.Generate
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	engine, err := NewEngine(cfg.HMACAlgorithm, cfg.MessageDelimiter, cfg.TokenDelimiter)
	if err != nil {
		return nil, err
	}

	store := cfg.Store
	if store == nil {
		if cfg.CookieSigned {
			store, err = NewSignedCookieStore(cfg.CookieName, cfg.CookieSigningKeys...)
			if err != nil {
				return nil, err
			}
		} else {
			store = NewCookieStore(cfg.CookieName)
		}
	}

	ignored := make(map[string]bool, len(cfg.IgnoredMethods))
	for _, m := range cfg.IgnoredMethods {
		ignored[strings.ToUpper(m)] = true
	}

	p := &Protector{
		secrets:     cfg.Secrets,
		sessions:    cfg.SessionIdentifier,
		engine:      engine,
		store:       store,
		cookie:      cookie,
		generate:    generate,
		tokenBytes:  cfg.TokenBytes,
		ignored:     ignored,
		tokenSource: cfg.TokenSource,
		skip:        cfg.SkipProtection,
		errCfg:      cfg.Error,
		logger:      cfg.Logger,
	}
	p.errorHandler = cfg.ErrorHandler
	if p.errorHandler == nil {
		p.errorHandler = p.defaultErrorHandler
	}
	return p, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(cfg Config) *Protector {
	p, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return p
}

// Engine exposes the token engine used by the Protector.
func (p *Protector) Engine() *Engine {
	return p.engine
}
