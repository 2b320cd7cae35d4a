package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/credvault/credvault/pkg/model"
)

// Message is an owner notification ready for delivery.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sink delivers notifications.
type Sink interface {
	Send(ctx context.Context, msg Message) error
}

// Event is one credential read. Credential must have Service and CreatedBy
// loaded.
type Event struct {
	Accessor   model.User
	Credential model.Credential
}

// Compose builds the owner notification for a read recorded as entry. The
// timestamp is the one stored on entry, never a later lookup.
func Compose(e Event, entry *model.AccessLog) Message {
	name := e.Credential.Name
	return Message{
		To:      e.Credential.CreatedBy.Email,
		Subject: fmt.Sprintf("Your credential '%s' was accessed", name),
		Body: fmt.Sprintf("Your credential '%s' for service '%s' was accessed by %s at %s.",
			name,
			e.Credential.Service.Name,
			e.Accessor.Username,
			entry.AccessedAt.UTC().Format(time.RFC3339),
		),
	}
}
