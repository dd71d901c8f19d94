package node

import "time"

// State is the tombstone marker of a node. Tombstoned is terminal.
type State string

const (
	StateLive       State = "live"
	StateTombstoned State = "tombstoned"
)

func (s State) Live() bool {
	return s != StateTombstoned
}

// Tombstone scrubs the payload and author of n and marks it deleted. The id,
// parent, slug and sort order are retained so the tree keeps its shape and
// existing children keep a valid parent. Tombstoning an already tombstoned
// node is a no-op and reports false.
func (n *Node) Tombstone(now time.Time) bool {
	if !n.State.Live() {
		return false
	}
	n.State = StateTombstoned
	n.Title = ""
	n.Body = ""
	n.Rendered = ""
	n.Link = ""
	n.Author = ""
	n.Updated = now
	return true
}
