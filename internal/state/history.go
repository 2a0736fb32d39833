// internal/state/history.go
package state

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/user/thinkchat/internal/storage"
	"github.com/user/thinkchat/internal/types"
)

const (
	historyKey    = "thinkchat_history"
	lastActiveKey = "thinkchat_last_active"
)

// SchemaVersion is the history snapshot format this binary writes.
const SchemaVersion = 1

// snapshot is the stored form of the session index.
type snapshot struct {
	Version  int                `json:"version"`
	SavedAt  time.Time          `json:"saved_at"`
	Sessions types.SessionIndex `json:"sessions"`
}

// HistoryStore keeps the session index and the last-active pointer on a
// storage.Backend. It is not safe for several processes writing at once.
type HistoryStore struct {
	backend storage.Backend
	logger  *slog.Logger
}

// NewHistoryStore creates a HistoryStore on the given backend.
func NewHistoryStore(backend storage.Backend) *HistoryStore {
	return &HistoryStore{backend: backend, logger: slog.Default().With("component", "history")}
}

// Load returns the stored session index. A missing, corrupt or
// newer-than-supported record yields an empty index.
func (h *HistoryStore) Load(ctx context.Context) types.SessionIndex {
	data, err := h.backend.Get(ctx, historyKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Warn("failed to read chat history", "error", err)
		}
		return types.SessionIndex{}
	}

	index, err := decodeSnapshot(data)
	if err != nil {
		h.logger.Warn("failed to load chat history", "error", err)
		return types.SessionIndex{}
	}
	return index
}

// decodeSnapshot accepts the versioned envelope and the unversioned bare
// map written by earlier clients.
func decodeSnapshot(data []byte) (types.SessionIndex, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("unmarshal history: %w", err)
	}

	if _, ok := probe["version"]; !ok {
		var legacy types.SessionIndex
		if err := json.Unmarshal(data, &legacy); err != nil {
			return nil, fmt.Errorf("unmarshal legacy history: %w", err)
		}
		return sanitize(legacy), nil
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("unmarshal history snapshot: %w", err)
	}
	if snap.Version > SchemaVersion {
		return nil, fmt.Errorf("history schema version %d is newer than supported %d", snap.Version, SchemaVersion)
	}
	return sanitize(snap.Sessions), nil
}

// sanitize drops null entries and fills titles that older clients left empty.
func sanitize(index types.SessionIndex) types.SessionIndex {
	out := make(types.SessionIndex, len(index))
	for id, s := range index {
		if s == nil {
			continue
		}
		if s.Title == "" {
			s.Title = types.DeriveTitle(s.Messages)
		}
		out[id] = s
	}
	return out
}

// Save writes the full index as a new snapshot.
func (h *HistoryStore) Save(ctx context.Context, index types.SessionIndex) error {
	data, err := json.Marshal(snapshot{
		Version:  SchemaVersion,
		SavedAt:  time.Now().UTC(),
		Sessions: index,
	})
	if err != nil {
		return fmt.Errorf("marshal history: %w", err)
	}
	if err := h.backend.Put(ctx, historyKey, data); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// LoadActiveID returns the last active session id, if one was recorded.
func (h *HistoryStore) LoadActiveID(ctx context.Context) (types.SessionID, bool) {
	data, err := h.backend.Get(ctx, lastActiveKey)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			h.logger.Warn("failed to read last active session", "error", err)
		}
		return "", false
	}
	var id string
	if err := json.Unmarshal(data, &id); err != nil || id == "" {
		return "", false
	}
	return types.SessionID(id), true
}

func (h *HistoryStore) SaveActiveID(ctx context.Context, id types.SessionID) error {
	data, err := json.Marshal(string(id))
	if err != nil {
		return fmt.Errorf("marshal active id: %w", err)
	}
	if err := h.backend.Put(ctx, lastActiveKey, data); err != nil {
		return fmt.Errorf("save active id: %w", err)
	}
	return nil
}

func (h *HistoryStore) ClearActiveID(ctx context.Context) error {
	if err := h.backend.Delete(ctx, lastActiveKey); err != nil {
		return fmt.Errorf("clear active id: %w", err)
	}
	return nil
}
