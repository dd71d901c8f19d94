package node

import "fmt"

// CheckOrder verifies that ordered is a permutation of the ids of live. A
// reorder is all or nothing: omissions, duplicates and foreign ids fail.
func CheckOrder(live NodeList, ordered []NodeID) error {
	if len(ordered) != len(live) {
		return fmt.Errorf("reorder lists %d ids, scope has %d live children: %w", len(ordered), len(live), ErrInvalidArgument)
	}
	want := make(map[NodeID]bool, len(live))
	for _, n := range live {
		want[n.ID] = true
	}
	seen := make(map[NodeID]bool, len(ordered))
	for _, id := range ordered {
		if !want[id] {
			return fmt.Errorf("%q is not a live child of this scope: %w", id, ErrInvalidArgument)
		}
		if seen[id] {
			return fmt.Errorf("%q listed twice: %w", id, ErrInvalidArgument)
		}
		seen[id] = true
	}
	return nil
}

// Positions maps every id to its 0-based index in ordered.
func Positions(ordered []NodeID) map[NodeID]int {
	pos := make(map[NodeID]int, len(ordered))
	for i, id := range ordered {
		pos[id] = i
	}
	return pos
}
