package database

import (
	"context"

	"github.com/aquilax/sitetree/node"
)

// Reader is the read side of the node store. Lookups by id include
// tombstoned nodes and fail with node.ErrNotFound when the row is missing.
// Child listings are ordered by sort order, then id.
type Reader interface {
	GetNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error)
	GetChildNodes(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool) (node.NodeList, error)
	CountLiveChildren(ctx context.Context, family string, id node.NodeID) (int, error)
	GetPublished(ctx context.Context, family string, siteID node.SiteID, count int) (node.NodeList, error)
}

// Writer is handed to the function passed to Database.Update. Everything it
// reads and writes belongs to one transaction.
type Writer interface {
	Reader
	// LockNode reads a node and holds it against concurrent writers until
	// the transaction ends.
	LockNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error)
	// LockScope reads every child of parentID, tombstones included, and holds
	// them against concurrent writers until the transaction ends.
	LockScope(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID) (node.NodeList, error)
	AddNode(ctx context.Context, n *node.Node) (node.NodeID, error)
	EditNode(ctx context.Context, n *node.Node) error
	RemoveNode(ctx context.Context, family string, id node.NodeID) error
	SetSortOrder(ctx context.Context, family string, id node.NodeID, sortOrder int) error
	SlugTaken(ctx context.Context, family string, siteID node.SiteID, slug string, exceptID node.NodeID) (bool, error)
}

type Database interface {
	Reader
	Open(database, dsn string) error
	// Update runs fn in a single transaction. The transaction commits when fn
	// returns nil and rolls back otherwise. Failures caused by concurrent
	// writers are reported as node.ErrConflict.
	Update(ctx context.Context, fn func(w Writer) error) error
	Ping(ctx context.Context) error
	Close() error
}
