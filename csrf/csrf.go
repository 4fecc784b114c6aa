package csrf

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
)

// Protect wraps the given next http.Handler and enforces CSRF protection.
//
// Behavior:
//   - Every request gets a TokenIssuer in its context, so downstream
//     handlers can call IssueToken without access to the Protector.
//   - Ignored methods (GET/HEAD/OPTIONS by default) pass through.
//   - Requests for which SkipProtection returns true pass through.
//   - Anything else must satisfy ValidateRequest; failures go to the
//     configured ErrorHandler with an *InvalidTokenError.
//
// Params:
// - next: downstream handler to be executed after CSRF checks pass.
//
// Returns:
// - An http.Handler that performs the CSRF logic before delegating to next.
func (p *Protector) Protect(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		issuer := func(opts ...GenerateOption) (string, error) {
			return p.GenerateToken(w, r, opts...)
		}
		r = r.WithContext(contextWithIssuer(r.Context(), issuer))

		switch {
		case p.ignored[r.Method]:
			next.ServeHTTP(w, r)
		case p.skip != nil && p.skip(r):
			next.ServeHTTP(w, r)
		case p.ValidateRequest(r):
			next.ServeHTTP(w, r)
		default:
			p.errorHandler(w, r, p.invalidTokenError())
		}
	})
}

// ValidateRequest reports whether r carries a verifier cookie, presents
// the identical token through the TokenSource, and that token verifies
// against the current secrets and session identifier.
func (p *Protector) ValidateRequest(r *http.Request) bool {
	cookieToken, ok := p.store.Read(r)
	if !ok {
		return false
	}
	presented := p.tokenSource(r)
	if presented == "" {
		return false
	}
	// double submit: both channels must carry the same token
	if subtle.ConstantTimeCompare([]byte(cookieToken), []byte(presented)) != 1 {
		return false
	}
	return p.engine.VerifyToken(p.secrets.Secrets(r), p.sessions.SessionIdentifier(r), presented)
}

// TokenHandler returns an HTTP handler that writes a token for the caller,
// reusing a still valid cookie unless opts say otherwise. This is useful
// for SPAs to fetch the token and attach it to subsequent requests.
//
// Returns:
// - http.Handler that responds with the token in the response body (text/plain).
func (p *Protector) TokenHandler(opts ...GenerateOption) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tok, err := IssueToken(r, opts...)
		if errors.Is(err, ErrNoIssuer) {
			tok, err = p.GenerateToken(w, r, opts...)
		}
		if err != nil {
			p.errorHandler(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write([]byte(tok))
	})
}

func (p *Protector) defaultErrorHandler(w http.ResponseWriter, r *http.Request, err error) {
	var invalid *InvalidTokenError
	if !errors.As(err, &invalid) {
		p.logger.Error("CSRF token generation failed",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	p.logger.Warn("CSRF validation failed",
		slog.String("code", invalid.Code),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("remote_addr", r.RemoteAddr),
	)
	http.Error(w, invalid.Message, invalid.StatusCode)
}
