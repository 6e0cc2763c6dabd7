package mailer

import (
	"errors"
	"regexp"
)

var (
	// ErrInvalidConfig is returned when required configuration is missing.
	ErrInvalidConfig = errors.New("mailer: invalid config")
	// ErrFailedToSend wraps transport-level send failures.
	ErrFailedToSend = errors.New("mailer: failed to send email")
	// ErrMissingRecipient is returned when a message has no recipient.
	ErrMissingRecipient = errors.New("mailer: missing recipient")
	// ErrInvalidRecipient is returned when the recipient address is malformed.
	ErrInvalidRecipient = errors.New("mailer: invalid recipient address")
	// ErrMissingSubject is returned when a message has no subject.
	ErrMissingSubject = errors.New("mailer: missing subject")
)

// Intentionally permissive: real validation happens at the provider.
var emailRegex = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
