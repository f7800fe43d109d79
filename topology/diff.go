package topology

import (
	"golang.org/x/exp/slices"

	"github.com/maxpoletaev/gridclient/internal/set"
)

// Diff compares two snapshots by node ID. Added contains the nodes of next
// that are missing in prev, removed contains the nodes of prev that are
// missing in next. Both lists are ordered by ID.
func Diff(prev, next *Snapshot) (added, removed []Node) {
	prevIDs := set.FromSlice(prev.ids)
	nextIDs := set.FromSlice(next.ids)

	for _, id := range sortedIDs(nextIDs.Difference(prevIDs)) {
		added = append(added, next.nodes[id])
	}

	for _, id := range sortedIDs(prevIDs.Difference(nextIDs)) {
		removed = append(removed, prev.nodes[id])
	}

	return added, removed
}

func sortedIDs(s set.Set[NodeID]) []NodeID {
	ids := s.Values()

	slices.SortFunc(ids, func(a, b NodeID) bool {
		return a.Less(b)
	})

	return ids
}
