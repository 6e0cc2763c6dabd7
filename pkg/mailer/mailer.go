package mailer

import "context"

// Sender delivers a single outbound message. Implementations may block;
// callers are expected to isolate sends on a worker pool.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Message is one outbound email.
type Message struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"` // Plain-text body.
	Tag     string `json:"tag,omitempty"`
}

// Validate checks the minimal fields required to attempt a send.
func (m Message) Validate() error {
	if m.To == "" {
		return ErrMissingRecipient
	}
	if !emailRegex.MatchString(m.To) {
		return ErrInvalidRecipient
	}
	if m.Subject == "" {
		return ErrMissingSubject
	}
	return nil
}
