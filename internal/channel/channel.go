// Package channel abstracts one delivery mechanism (email, WhatsApp) behind
// a uniform send contract.
package channel

import (
	"context"
	"fmt"

	"github.com/sitegate/notify-api/internal/model"
)

// Message is one account-credentials notification addressed to a single
// recipient.
type Message struct {
	Address     string
	DisplayName string
	Account     string
	Password    string
	LoginURL    string
	Language    model.Language
}

// Client delivers messages over one channel. Implementations must be safe
// for concurrent use.
type Client interface {
	// Send delivers the message, making exactly one attempt. A provider or
	// transport failure is reported as a *TransportError.
	Send(ctx context.Context, msg Message) error
	// IsConfigured reports whether the client has working credentials.
	IsConfigured() bool
}

// TransportError is a per-recipient delivery failure carrying the provider's
// reason so the operator can read it from the job's error list.
type TransportError struct {
	StatusCode int
	Message    string
}

func (e *TransportError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("provider returned status %d: %s", e.StatusCode, e.Message)
	}
	return e.Message
}
