// internal/types/interfaces.go
package types

import "context"

// HistoryStore persists the session index and the last-active pointer.
type HistoryStore interface {
	Load(ctx context.Context) SessionIndex
	Save(ctx context.Context, index SessionIndex) error
	LoadActiveID(ctx context.Context) (SessionID, bool)
	SaveActiveID(ctx context.Context, id SessionID) error
	ClearActiveID(ctx context.Context) error
}
