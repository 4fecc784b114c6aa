package csrf

import (
	"context"
	"net/http"
)

type ctxKey string

const issuerKey ctxKey = "csrf_token_issuer_ctx"

// TokenIssuer mints a token for the request it was created for, setting
// the cookie on that request's response.
type TokenIssuer func(opts ...GenerateOption) (string, error)

// contextWithIssuer returns a derived context that stores the issuer.
//
// Params:
// - ctx: base context to attach the issuer to.
// - issuer: closure over GenerateToken for the current request.
//
// Returns:
// - a new context containing the issuer.
func contextWithIssuer(ctx context.Context, issuer TokenIssuer) context.Context {
	return context.WithValue(ctx, issuerKey, issuer)
}

// TokenIssuerFromContext returns the issuer attached by Protect, if present.
func TokenIssuerFromContext(ctx context.Context) (TokenIssuer, bool) {
	issuer, ok := ctx.Value(issuerKey).(TokenIssuer)
	return issuer, ok && issuer != nil
}

// IssueToken mints a token through the issuer attached to r by Protect.
// It returns ErrNoIssuer when r did not pass through the middleware.
func IssueToken(r *http.Request, opts ...GenerateOption) (string, error) {
	issuer, ok := TokenIssuerFromContext(r.Context())
	if !ok {
		return "", ErrNoIssuer
	}
	return issuer(opts...)
}
