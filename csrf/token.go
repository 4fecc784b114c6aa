package csrf

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"mime"
	"net/http"
)

// Random value for a fresh token, hex encoded.
func newRandomValue(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("csrf: reading random value: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// TokenSource extracts the token presented by the client. An empty
// result means no token was sent.
type TokenSource func(r *http.Request) string

// HeaderTokenSource reads the token from the named request header.
func HeaderTokenSource(name string) TokenSource {
	return func(r *http.Request) string {
		return r.Header.Get(name)
	}
}

// maxMultipartMemory bounds the in-memory part of a parsed multipart body.
const maxMultipartMemory = 32 << 20

// FormTokenSource reads the token from a form field
// (x-www-form-urlencoded or multipart). A body that fails to parse
// yields no token.
func FormTokenSource(field string) TokenSource {
	return func(r *http.Request) string {
		var err error
		if isMultipart(r) {
			err = r.ParseMultipartForm(maxMultipartMemory)
		} else {
			err = r.ParseForm()
		}
		if err != nil {
			return ""
		}
		return r.Form.Get(field)
	}
}

func isMultipart(r *http.Request) bool {
	ct, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && ct == "multipart/form-data"
}

// HeaderOrFormTokenSource tries the header first, then the form field.
func HeaderOrFormTokenSource(header, field string) TokenSource {
	fromHeader, fromForm := HeaderTokenSource(header), FormTokenSource(field)
	return func(r *http.Request) string {
		// header wins
		if h := fromHeader(r); h != "" {
			return h
		}
		return fromForm(r)
	}
}
