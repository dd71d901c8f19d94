package node

import (
	"sort"
	"time"
)

type NodeID = string
type SiteID = string

// RootNodeID is the parent of every root node.
const RootNodeID NodeID = ""

type Node struct {
	ID          NodeID     `db:"id" json:"id"`
	Family      string     `db:"family" json:"family"`
	SiteID      SiteID     `db:"site_id" json:"site_id"`
	ParentID    NodeID     `db:"parent_id" json:"parent_id,omitempty"`
	Title       string     `db:"title" json:"title"`
	Slug        string     `db:"slug" json:"slug,omitempty"`
	Body        string     `db:"body" json:"body"`
	Rendered    string     `db:"rendered" json:"rendered"`
	Link        string     `db:"link" json:"link,omitempty"`
	Author      string     `db:"author" json:"author"`
	SortOrder   int        `db:"sort_order" json:"sort_order"`
	State       State      `db:"state" json:"state"`
	Status      Status     `db:"status" json:"status,omitempty"`
	PublishedAt *time.Time `db:"published_at" json:"published_at,omitempty"`
	Created     time.Time  `db:"created" json:"created"`
	Updated     time.Time  `db:"updated" json:"updated"`
}

type NodeList []Node

// Payload carries the family specific fields of a write request. A nil
// pointer leaves the stored value untouched on update.
type Payload struct {
	Title    *string
	Slug     *string
	Body     *string
	Rendered *string
	Link     *string
	Status   *Status
}

func (n *Node) IsRoot() bool {
	return n.ParentID == RootNodeID
}

// Label is the human readable name used in activity records.
func (n *Node) Label() string {
	if n.Title != "" {
		return n.Title
	}
	if n.Slug != "" {
		return n.Slug
	}
	return n.ID
}

// Apply copies the non-nil payload fields onto the node. Status is handled
// separately by ApplyStatus.
func (n *Node) Apply(p Payload) {
	if p.Title != nil {
		n.Title = *p.Title
	}
	if p.Slug != nil {
		n.Slug = *p.Slug
	}
	if p.Body != nil {
		n.Body = *p.Body
	}
	if p.Rendered != nil {
		n.Rendered = *p.Rendered
	}
	if p.Link != nil {
		n.Link = *p.Link
	}
}

// Sort orders siblings by sort order, ties broken by id.
func (nl NodeList) Sort() {
	sort.SliceStable(nl, func(i, j int) bool {
		if nl[i].SortOrder != nl[j].SortOrder {
			return nl[i].SortOrder < nl[j].SortOrder
		}
		return nl[i].ID < nl[j].ID
	})
}

// Live returns the non tombstoned nodes, keeping their order.
func (nl NodeList) Live() NodeList {
	result := make(NodeList, 0, len(nl))
	for _, n := range nl {
		if n.State.Live() {
			result = append(result, n)
		}
	}
	return result
}

func (nl NodeList) IDs() []NodeID {
	ids := make([]NodeID, len(nl))
	for i, n := range nl {
		ids[i] = n.ID
	}
	return ids
}

// NextSortOrder is the position that appends after every node in the list.
func (nl NodeList) NextSortOrder() int {
	next := 0
	for _, n := range nl {
		if n.SortOrder >= next {
			next = n.SortOrder + 1
		}
	}
	return next
}
