// Package state provides the persistent session store.
package state

import "github.com/user/thinkchat/internal/types"

// Compile-time interface compliance check.
var _ types.HistoryStore = (*HistoryStore)(nil)
