// Package model implements the tree, soft delete, publishing and ordering
// rules shared by every node family on top of a database.Database.
//
// Each mutation runs inside one database.Database.Update call, so the
// precondition checks (parent liveness, cycles, depth, live children, slug
// uniqueness, sibling sets) see the same rows the write changes. Activity
// notifications are sent only after the transaction has committed.
package model

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aquilax/sitetree/activity"
	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/logger"
	"github.com/aquilax/sitetree/metrics"
	"github.com/aquilax/sitetree/node"
)

type Model struct {
	db       database.Database
	families node.Families
	sink     activity.Sink
	now      func() time.Time
}

type Option func(*Model)

func WithFamilies(families node.Families) Option {
	return func(m *Model) {
		m.families = families
	}
}

func WithSink(sink activity.Sink) Option {
	return func(m *Model) {
		m.sink = sink
	}
}

// WithClock sets the clock used for publish and tombstone timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Model) {
		m.now = now
	}
}

func NewModel(db database.Database, opts ...Option) *Model {
	m := &Model{
		db:       db,
		families: node.DefaultFamilies(),
		sink:     activity.Nop{},
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Model) Families() node.Families {
	return m.families
}

func (m *Model) family(name string) (node.Family, error) {
	return m.families.Get(name)
}

// Get returns a node by id, tombstoned or not.
func (m *Model) Get(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	if _, err := m.family(family); err != nil {
		return nil, err
	}
	return m.db.GetNode(ctx, family, id)
}

func (m *Model) observe(ctx context.Context, family, operation string, started time.Time, err error) {
	metrics.ObserveOperation(family, operation, started, err)
	if err != nil && metrics.Result(err) == "error" {
		logger.ErrorContext(ctx, "node operation failed",
			slog.String("family", family),
			slog.String("operation", operation),
			slog.String("error", err.Error()))
	}
}

func notFound(family string, id node.NodeID) error {
	return fmt.Errorf("%s %q: %w", family, id, node.ErrNotFound)
}

// lockLive locks a node and rejects tombstones.
func lockLive(ctx context.Context, w database.Writer, family string, id node.NodeID) (*node.Node, error) {
	n, err := w.LockNode(ctx, family, id)
	if err != nil {
		return nil, err
	}
	if !n.State.Live() {
		return nil, notFound(family, id)
	}
	return n, nil
}

// ancestry returns n followed by its ancestors up to the root. Parent links
// are weak: a link to a removed node ends the chain. A loop in stored parent
// links is reported as node.ErrCycleDetected.
func ancestry(ctx context.Context, r database.Reader, n *node.Node) (node.NodeList, error) {
	chain := node.NodeList{*n}
	seen := map[node.NodeID]bool{n.ID: true}
	for cur := n; !cur.IsRoot(); {
		parent, err := r.GetNode(ctx, cur.Family, cur.ParentID)
		if errors.Is(err, node.ErrNotFound) {
			break
		}
		if err != nil {
			return nil, err
		}
		if seen[parent.ID] {
			return nil, fmt.Errorf("%s %q is its own ancestor: %w", cur.Family, parent.ID, node.ErrCycleDetected)
		}
		seen[parent.ID] = true
		chain = append(chain, *parent)
		cur = parent
	}
	return chain, nil
}

// descendants lists every node below n, tombstones included, parents before
// their children.
func descendants(ctx context.Context, r database.Reader, n *node.Node) (node.NodeList, error) {
	var result node.NodeList
	queue := []node.NodeID{n.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		children, err := r.GetChildNodes(ctx, n.Family, n.SiteID, id, true)
		if err != nil {
			return nil, err
		}
		for _, c := range children {
			result = append(result, c)
			queue = append(queue, c.ID)
		}
	}
	return result, nil
}

// height is the number of levels in the subtree rooted at n, n included.
func height(ctx context.Context, r database.Reader, n *node.Node) (int, error) {
	below, err := descendants(ctx, r, n)
	if err != nil {
		return 0, err
	}
	level := map[node.NodeID]int{n.ID: 1}
	h := 1
	for _, d := range below {
		level[d.ID] = level[d.ParentID] + 1
		if level[d.ID] > h {
			h = level[d.ID]
		}
	}
	return h, nil
}
