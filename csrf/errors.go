package csrf

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSecret is returned when the SecretResolver yields no usable
	// secret for signing a new token.
	ErrNoSecret = errors.New("csrf: no secret available to sign token")

	// ErrNoIssuer is returned by IssueToken when the request did not go
	// through Protect.
	ErrNoIssuer = errors.New("csrf: no token issuer in request context")
)

// InvalidTokenError reports a request whose CSRF token did not validate,
// or a generation call asked to reuse a cookie that is no longer valid.
type InvalidTokenError struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *InvalidTokenError) Error() string {
	if e.Code == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

// IsInvalidToken reports whether err is, or wraps, an InvalidTokenError.
func IsInvalidToken(err error) bool {
	var e *InvalidTokenError
	return errors.As(err, &e)
}

func (p *Protector) invalidTokenError() *InvalidTokenError {
	return &InvalidTokenError{
		StatusCode: p.errCfg.StatusCode,
		Message:    p.errCfg.Message,
		Code:       p.errCfg.Code,
	}
}
