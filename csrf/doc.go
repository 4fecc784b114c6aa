// Package csrf provides stateless CSRF protection for Go net/http servers
// using the signed double-submit cookie pattern.
//
// How it works
//   - A token is hex(HMAC(secret, message)) + "." + randomValue, where the
//     message binds the random value to the client's session identifier.
//     The same string is stored in the verifier cookie and handed to the
//     client, so the server keeps no record of issued tokens.
//   - Ignored methods (GET, HEAD, OPTIONS) pass through Protect untouched.
//   - Every other request must present the cookie's exact token through the
//     TokenSource (header x-csrf-token by default), and that token must
//     verify against one of the current secrets and the session identifier.
//
// # Configuration
//
// All behavior is driven by Config. Key fields include:
//   - Secrets (newest first) and SessionIdentifier, both required
//   - CookieName (default: "__Host-psifi.x-csrf-token"), Cookie, CookieSigned
//   - MessageDelimiter ("!"), TokenDelimiter ("."), TokenBytes (32),
//     HMACAlgorithm ("sha256")
//   - IgnoredMethods, TokenSource, SkipProtection
//   - Error (403, "invalid csrf token", "EBADCSRFTOKEN") and Generate
//
// Typical usage
//
//	p := csrf.MustNew(csrf.Config{
//	    Secrets:           csrf.StaticSecrets("new-secret", "old-secret"),
//	    SessionIdentifier: csrf.CookieSessionIdentifier("session_id"),
//	})
//	protected := p.Protect(appMux)
//	http.ListenAndServe(":8080", protected)
//
// Handlers behind Protect mint tokens through the request:
//
//	tok, err := csrf.IssueToken(r)
//
// For SPAs, expose a small endpoint that returns the current token:
//
//	r.Get("/csrf-token", p.TokenHandler().ServeHTTP)
//
// Secret rotation: put the new secret first. Tokens signed with any
// listed secret keep validating; drop the old secret once clients have
// refreshed.
package csrf
