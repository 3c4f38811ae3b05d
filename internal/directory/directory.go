// Package directory resolves recipient references (distributor, guard and
// worker ids from the admin system) to deliverable addresses.
package directory

import (
	"context"
	"errors"
)

// ErrNotFound is returned when a reference has no directory record.
var ErrNotFound = errors.New("recipient not found")

// Entry is the deliverable view of one recipient.
type Entry struct {
	Ref         string `json:"ref"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// Directory looks up recipients. Implementations must be safe for concurrent
// use.
type Directory interface {
	Resolve(ctx context.Context, ref string) (Entry, error)
}
