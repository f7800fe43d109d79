package topology

import (
	"github.com/maxpoletaev/gridclient/internal/generic"
)

// Topology holds the current snapshot of the grid. Readers always observe a
// complete snapshot, either the one before or the one after an update.
type Topology struct {
	current *generic.Atomic[*Snapshot]
}

// New creates a topology with an empty snapshot.
func New() *Topology {
	return &Topology{
		current: generic.NewAtomic(emptySnapshot),
	}
}

// Load returns the current snapshot. The returned value is never mutated, so
// it is safe to keep it as long as needed.
func (t *Topology) Load() *Snapshot {
	return t.current.Load()
}

// Update replaces the current snapshot with a snapshot of the given nodes and
// returns both the replaced and the new snapshot. The replacement is atomic:
// concurrent updates each get their actual predecessor as prev.
func (t *Topology) Update(nodes []Node) (prev, next *Snapshot) {
	next = NewSnapshot(nodes)
	prev = t.current.Swap(next)

	return prev, next
}
