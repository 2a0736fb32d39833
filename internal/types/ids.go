// internal/types/ids.go
package types

import (
	"github.com/google/uuid"
)

type SessionID string
type MessageID string

// newV7 returns a time-ordered UUID. Within a process the uuid package
// guarantees successive v7 values sort strictly increasing.
func newV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

func NewSessionID() SessionID {
	return SessionID(newV7())
}

func NewMessageID() MessageID {
	return MessageID(newV7())
}
