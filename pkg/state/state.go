package state

import (
	"context"

	"github.com/cbodonnell/statexfer/pkg/snapshot"
)

// StateManager provides shared access to the most recently decoded snapshot.
// Implementations must be thread-safe.
type StateManager interface {
	// Get returns a copy of the current state, or nil if nothing was decoded yet.
	Get(ctx context.Context) (*snapshot.State, error)
	// Set replaces the current state and marks it dirty.
	Set(ctx context.Context, state *snapshot.State) error
	// Consume returns a copy of the current state and clears the dirty flag.
	// It reports false, and returns no state, when nothing changed since the
	// last Consume.
	Consume(ctx context.Context) (*snapshot.State, bool, error)
	// Clear drops the current state.
	Clear(ctx context.Context) error
}
