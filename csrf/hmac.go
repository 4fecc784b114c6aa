package csrf

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

var (
	algorithmsMu sync.RWMutex
	algorithms   = map[string]func() hash.Hash{
		"sha1":        sha1.New,
		"sha224":      sha256.New224,
		"sha256":      sha256.New,
		"sha384":      sha512.New384,
		"sha512":      sha512.New,
		"sha512/256":  sha512.New512_256,
		"sha3-256":    sha3.New256,
		"sha3-512":    sha3.New512,
		"blake2b-256": unkeyed(blake2b.New256),
		"blake2b-512": unkeyed(blake2b.New512),
		"blake2s-256": unkeyed(blake2s.New256),
	}
)

// blake2 constructors only fail on oversized keys; HMAC supplies the key.
func unkeyed(fn func(key []byte) (hash.Hash, error)) func() hash.Hash {
	return func() hash.Hash {
		h, err := fn(nil)
		if err != nil {
			panic(err)
		}
		return h
	}
}

// RegisterAlgorithm makes a digest available under name for Config.HMACAlgorithm.
func RegisterAlgorithm(name string, fn func() hash.Hash) {
	algorithmsMu.Lock()
	defer algorithmsMu.Unlock()
	algorithms[strings.ToLower(name)] = fn
}

// Algorithms lists the registered digest names.
func Algorithms() []string {
	algorithmsMu.RLock()
	defer algorithmsMu.RUnlock()
	names := make([]string, 0, len(algorithms))
	for name := range algorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupAlgorithm(name string) (func() hash.Hash, bool) {
	algorithmsMu.RLock()
	defer algorithmsMu.RUnlock()
	fn, ok := algorithms[strings.ToLower(name)]
	return fn, ok
}

// Engine builds and verifies tokens of the form
//
//	hex(HMAC(secret, message)) + tokenDelimiter + randomValue
//
// where message is len(sessionID), sessionID, len(randomValue) and
// randomValue joined by the message delimiter. The length prefixes keep
// the message unambiguous when either part contains a delimiter.
//
// An Engine holds no mutable state and is safe for concurrent use.
type Engine struct {
	newHash          func() hash.Hash
	messageDelimiter string
	tokenDelimiter   string
}

// NewEngine returns an Engine for the named digest algorithm.
//
// Params:
// - algorithm: a name registered in Algorithms (e.g. "sha256").
// - messageDelimiter, tokenDelimiter: non-empty and different from each other;
//   the token delimiter must not contain [0-9a-f].
//
// Returns:
// - the engine, or an error describing the invalid parameter.
func NewEngine(algorithm, messageDelimiter, tokenDelimiter string) (*Engine, error) {
	fn, ok := lookupAlgorithm(algorithm)
	if !ok {
		return nil, fmt.Errorf("csrf: unsupported hmac algorithm %q", algorithm)
	}
	if messageDelimiter == "" || tokenDelimiter == "" {
		return nil, errors.New("csrf: delimiters must not be empty")
	}
	if messageDelimiter == tokenDelimiter {
		return nil, fmt.Errorf("csrf: message and token delimiters must differ, both are %q", tokenDelimiter)
	}
	// both token halves are lowercase hex
	if strings.ContainsAny(tokenDelimiter, hexDigits) {
		return nil, fmt.Errorf("csrf: token delimiter %q must not contain hex digits", tokenDelimiter)
	}
	return &Engine{
		newHash:          fn,
		messageDelimiter: messageDelimiter,
		tokenDelimiter:   tokenDelimiter,
	}, nil
}

const hexDigits = "0123456789abcdef"

func (e *Engine) message(sessionID, randomValue string) string {
	return strings.Join([]string{
		strconv.Itoa(len(sessionID)),
		sessionID,
		strconv.Itoa(len(randomValue)),
		randomValue,
	}, e.messageDelimiter)
}

// ComputeHMAC returns the hex encoded HMAC of the session-bound message.
func (e *Engine) ComputeHMAC(secret, sessionID, randomValue string) string {
	mac := hmac.New(e.newHash, []byte(secret))
	_, _ = io.WriteString(mac, e.message(sessionID, randomValue))
	return hex.EncodeToString(mac.Sum(nil))
}

// BuildToken returns the token bound to secret and sessionID.
func (e *Engine) BuildToken(secret, sessionID, randomValue string) string {
	return e.ComputeHMAC(secret, sessionID, randomValue) + e.tokenDelimiter + randomValue
}

// VerifyToken reports whether token was built by any of possibleSecrets
// for sessionID. Tokens without a delimiter, or with an empty hmac or
// random value half, are rejected.
func (e *Engine) VerifyToken(possibleSecrets []string, sessionID, token string) bool {
	mac, randomValue, ok := strings.Cut(token, e.tokenDelimiter)
	if !ok || mac == "" || randomValue == "" {
		return false
	}
	for _, secret := range possibleSecrets {
		expected := e.ComputeHMAC(secret, sessionID, randomValue)
		if hmac.Equal([]byte(mac), []byte(expected)) {
			return true
		}
	}
	return false
}
