package csrf

import "net/http"

type generateOptions struct {
	GenerateConfig
	cookie CookieOptions
}

// GenerateOption overrides the Protector's defaults for one GenerateToken call.
type GenerateOption func(*generateOptions)

// Overwrite forces (or prevents) minting a fresh token.
func Overwrite(v bool) GenerateOption {
	return func(o *generateOptions) { o.Overwrite = v }
}

// ValidateOnReuse sets whether an invalid existing cookie is an error.
func ValidateOnReuse(v bool) GenerateOption {
	return func(o *generateOptions) { o.ValidateOnReuse = v }
}

// WithCookie edits a copy of the default cookie attributes for this call.
func WithCookie(fn func(*CookieOptions)) GenerateOption {
	return func(o *generateOptions) {
		if fn != nil {
			fn(&o.cookie)
		}
	}
}

// GenerateToken returns a CSRF token for the request and sets the
// verifier cookie on w.
//
// With Overwrite unset, an existing cookie that still verifies against
// the current secrets and session identifier is returned unchanged. An
// existing cookie that does not verify yields an InvalidTokenError when
// ValidateOnReuse is set, and is replaced otherwise. Every other case
// mints a new random value signed with the first secret.
//
// Params:
// - w: response that receives the cookie.
// - r: incoming request carrying the existing cookie, if any.
// - opts: per-call overrides of the generation defaults.
//
// Returns:
// - the token the client must echo back, or an error.
func (p *Protector) GenerateToken(w http.ResponseWriter, r *http.Request, opts ...GenerateOption) (string, error) {
	o := generateOptions{GenerateConfig: p.generate, cookie: p.cookie}
	for _, opt := range opts {
		opt(&o)
	}

	token, err := p.resolveToken(r, o.GenerateConfig)
	if err != nil {
		return "", err
	}
	p.store.Write(w, token, o.cookie)
	return token, nil
}

func (p *Protector) resolveToken(r *http.Request, cfg GenerateConfig) (string, error) {
	secrets := p.secrets.Secrets(r)
	sessionID := p.sessions.SessionIdentifier(r)

	if !cfg.Overwrite {
		if existing, ok := p.store.Read(r); ok {
			if p.engine.VerifyToken(secrets, sessionID, existing) {
				return existing, nil
			}
			if cfg.ValidateOnReuse {
				return "", p.invalidTokenError()
			}
		}
	}

	// the newest secret is the preferred one
	if len(secrets) == 0 || secrets[0] == "" {
		return "", ErrNoSecret
	}
	randomValue, err := newRandomValue(p.tokenBytes)
	if err != nil {
		return "", err
	}
	return p.engine.BuildToken(secrets[0], sessionID, randomValue), nil
}
