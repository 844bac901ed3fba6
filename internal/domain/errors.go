package domain

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by every layer. Handlers map these to HTTP responses
// and callback reason codes with errors.Is.
var (
	// ErrConfiguration indicates a required secret or key is missing or unusable
	ErrConfiguration = errors.New("configuration error")

	// ErrValidation indicates malformed, user-correctable input
	ErrValidation = errors.New("validation error")

	// ErrAuthentication indicates a signature or state mismatch
	ErrAuthentication = errors.New("authentication error")

	// ErrExchange indicates the upstream token exchange failed
	ErrExchange = errors.New("token exchange error")

	// ErrDecryption indicates no configured key could open a credential envelope
	ErrDecryption = errors.New("decryption error")

	// ErrNotFound indicates an identity or record lookup miss
	ErrNotFound = errors.New("not found")

	// ErrForbidden indicates a resolved member lacks the role for an operation
	ErrForbidden = errors.New("forbidden")

	// ErrReconnectRequired signals that the stored credential is missing or
	// unreadable and the merchant has to re-run the install flow
	ErrReconnectRequired = errors.New("reconnect required")
)

// ExchangeError carries the upstream status of a failed token exchange.
// Status is zero when the request never produced a response.
type ExchangeError struct {
	Status int
	Reason string
}

func (e *ExchangeError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("token exchange failed: status %d", e.Status)
	}
	return "token exchange failed: " + e.Reason
}

// Is lets errors.Is(err, ErrExchange) match any ExchangeError
func (e *ExchangeError) Is(target error) bool {
	return target == ErrExchange
}
