package messages

import "github.com/cbodonnell/statexfer/pkg/snapshot"

// StateUpdate is one frame of the state stream: the decoded state and the
// version it was published under.
type StateUpdate struct {
	Version uint64
	State   *snapshot.State
}
