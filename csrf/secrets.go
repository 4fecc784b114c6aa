package csrf

import "net/http"

// SecretResolver supplies the HMAC secrets for a request, newest first.
// The first secret signs new tokens; every secret is accepted when
// verifying, which allows rotating secrets without invalidating the
// tokens already held by clients.
type SecretResolver interface {
	Secrets(r *http.Request) []string
}

// SecretResolverFunc adapts a function to SecretResolver.
type SecretResolverFunc func(r *http.Request) []string

func (f SecretResolverFunc) Secrets(r *http.Request) []string {
	return f(r)
}

// StaticSecrets returns a resolver that always yields the given secrets.
func StaticSecrets(secrets ...string) SecretResolver {
	s := append([]string(nil), secrets...)
	return SecretResolverFunc(func(*http.Request) []string {
		return s
	})
}

// SessionIdentifierResolver returns a string identifying the client's
// session, or "" when there is none. It must stay stable for the whole
// session; tokens stop validating as soon as it changes.
type SessionIdentifierResolver interface {
	SessionIdentifier(r *http.Request) string
}

// SessionIdentifierFunc adapts a function to SessionIdentifierResolver.
type SessionIdentifierFunc func(r *http.Request) string

func (f SessionIdentifierFunc) SessionIdentifier(r *http.Request) string {
	return f(r)
}

// CookieSessionIdentifier reads the session identifier from the named cookie.
func CookieSessionIdentifier(name string) SessionIdentifierResolver {
	return SessionIdentifierFunc(func(r *http.Request) string {
		c, err := r.Cookie(name)
		if err != nil {
			return ""
		}
		return c.Value
	})
}
