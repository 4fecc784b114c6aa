package csrf

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
)

// TokenStore reads and writes the verifier cookie on the transport objects.
type TokenStore interface {
	// Read returns the stored token and whether one was present.
	Read(r *http.Request) (string, bool)
	// Write stores the token on the response with the given attributes.
	Write(w http.ResponseWriter, token string, opts CookieOptions)
}

type cookieStore struct {
	name string
}

// NewCookieStore stores the token verbatim in the named cookie.
func NewCookieStore(name string) TokenStore {
	return &cookieStore{name: name}
}

func (s *cookieStore) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

func (s *cookieStore) Write(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, newCookie(s.name, token, opts))
}

func newCookie(name, value string, opts CookieOptions) *http.Cookie {
	return &http.Cookie{
		Name:        name,
		Value:       value,
		Path:        opts.Path,
		Domain:      opts.Domain,
		MaxAge:      opts.MaxAge,
		SameSite:    opts.SameSite,
		Secure:      opts.Secure,
		HttpOnly:    opts.HTTPOnly,
		Partitioned: opts.Partitioned,
	}
}

const signedPrefix = "s:"

type signedCookieStore struct {
	name string
	keys [][]byte
}

// NewSignedCookieStore stores the token as "s:<token>.<signature>", the
// signature being the unpadded base64url HMAC-SHA256 of the token. The
// first key signs; any key is accepted on read so keys can be rotated.
// A cookie with a missing or bad signature reads as absent.
func NewSignedCookieStore(name string, keys ...[]byte) (TokenStore, error) {
	if len(keys) == 0 {
		return nil, errors.New("csrf: signed cookies need at least one signing key")
	}
	for _, k := range keys {
		if len(k) == 0 {
			return nil, errors.New("csrf: empty cookie signing key")
		}
	}
	return &signedCookieStore{name: name, keys: keys}, nil
}

func (s *signedCookieStore) Read(r *http.Request) (string, bool) {
	c, err := r.Cookie(s.name)
	if err != nil {
		return "", false
	}
	return s.unsign(c.Value)
}

func (s *signedCookieStore) Write(w http.ResponseWriter, token string, opts CookieOptions) {
	http.SetCookie(w, newCookie(s.name, s.sign(token), opts))
}

func (s *signedCookieStore) sign(value string) string {
	return signedPrefix + value + "." + signature(s.keys[0], value)
}

func (s *signedCookieStore) unsign(raw string) (string, bool) {
	if !strings.HasPrefix(raw, signedPrefix) {
		return "", false
	}
	raw = raw[len(signedPrefix):]
	// the token itself may contain dots, the signature never does
	i := strings.LastIndex(raw, ".")
	if i < 0 {
		return "", false
	}
	value, sig := raw[:i], raw[i+1:]
	for _, k := range s.keys {
		if hmac.Equal([]byte(sig), []byte(signature(k, value))) {
			return value, true
		}
	}
	return "", false
}

func signature(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	mac.Write([]byte(value))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
