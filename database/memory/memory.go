package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
	"github.com/google/uuid"
)

// Memory keeps every family in one map. Writers are serialized by a single
// lock and work on a copy that replaces the map on commit.
type Memory struct {
	mu    sync.RWMutex
	nodes map[node.NodeID]node.Node
}

func New() *Memory {
	return &Memory{nodes: make(map[node.NodeID]node.Node)}
}

func min(value int, values ...int) int {
	for _, v := range values {
		if v < value {
			value = v
		}
	}
	return value
}

func find(nodes map[node.NodeID]node.Node, filter func(n node.Node) bool) node.NodeList {
	var result node.NodeList
	for _, n := range nodes {
		if filter(n) {
			result = append(result, n)
		}
	}
	return result
}

func (m *Memory) Open(database, dsn string) error {
	return nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return nil
}

func (m *Memory) GetNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot(m.nodes).GetNode(ctx, family, id)
}

func (m *Memory) GetChildNodes(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool) (node.NodeList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot(m.nodes).GetChildNodes(ctx, family, siteID, parentID, includeTombstoned)
}

func (m *Memory) CountLiveChildren(ctx context.Context, family string, id node.NodeID) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot(m.nodes).CountLiveChildren(ctx, family, id)
}

func (m *Memory) GetPublished(ctx context.Context, family string, siteID node.SiteID, count int) (node.NodeList, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return snapshot(m.nodes).GetPublished(ctx, family, siteID, count)
}

func (m *Memory) Update(ctx context.Context, fn func(w database.Writer) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	working := make(snapshot, len(m.nodes))
	for id, n := range m.nodes {
		working[id] = n
	}
	if err := fn(working); err != nil {
		return err
	}
	m.nodes = working
	return nil
}

func (m *Memory) Close() error {
	return nil
}

// snapshot is the transaction view handed to writers.
type snapshot map[node.NodeID]node.Node

func (s snapshot) GetNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	n, ok := s[id]
	if !ok || n.Family != family {
		return nil, fmt.Errorf("%s %q: %w", family, id, node.ErrNotFound)
	}
	return &n, nil
}

func (s snapshot) GetChildNodes(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool) (node.NodeList, error) {
	found := find(s, func(n node.Node) bool {
		return n.Family == family && n.SiteID == siteID && n.ParentID == parentID &&
			(includeTombstoned || n.State.Live())
	})
	found.Sort()
	return found, nil
}

func (s snapshot) CountLiveChildren(ctx context.Context, family string, id node.NodeID) (int, error) {
	found := find(s, func(n node.Node) bool {
		return n.Family == family && n.ParentID == id && n.State.Live()
	})
	return len(found), nil
}

func (s snapshot) GetPublished(ctx context.Context, family string, siteID node.SiteID, count int) (node.NodeList, error) {
	found := find(s, func(n node.Node) bool {
		return n.Family == family && n.SiteID == siteID && n.State.Live() && n.Published()
	})
	sort.Slice(found, func(i, j int) bool {
		if !found[i].PublishedAt.Equal(*found[j].PublishedAt) {
			return found[i].PublishedAt.After(*found[j].PublishedAt)
		}
		return found[i].ID < found[j].ID
	})
	return found[:min(len(found), count)], nil
}

func (s snapshot) LockNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	return s.GetNode(ctx, family, id)
}

func (s snapshot) LockScope(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID) (node.NodeList, error) {
	return s.GetChildNodes(ctx, family, siteID, parentID, true)
}

func (s snapshot) AddNode(ctx context.Context, n *node.Node) (node.NodeID, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	if _, found := s[n.ID]; found {
		return "", fmt.Errorf("%s %q: %w", n.Family, n.ID, node.ErrAlreadyExists)
	}
	now := time.Now().UTC()
	n.Created = now
	n.Updated = now
	s[n.ID] = *n
	return n.ID, nil
}

func (s snapshot) EditNode(ctx context.Context, n *node.Node) error {
	if _, found := s[n.ID]; !found {
		return fmt.Errorf("%s %q: %w", n.Family, n.ID, node.ErrNotFound)
	}
	n.Updated = time.Now().UTC()
	s[n.ID] = *n
	return nil
}

func (s snapshot) RemoveNode(ctx context.Context, family string, id node.NodeID) error {
	if _, err := s.GetNode(ctx, family, id); err != nil {
		return err
	}
	delete(s, id)
	return nil
}

func (s snapshot) SetSortOrder(ctx context.Context, family string, id node.NodeID, sortOrder int) error {
	n, err := s.GetNode(ctx, family, id)
	if err != nil {
		return err
	}
	n.SortOrder = sortOrder
	n.Updated = time.Now().UTC()
	s[id] = *n
	return nil
}

func (s snapshot) SlugTaken(ctx context.Context, family string, siteID node.SiteID, slug string, exceptID node.NodeID) (bool, error) {
	found := find(s, func(n node.Node) bool {
		return n.Family == family && n.SiteID == siteID && n.Slug == slug && n.State.Live() && n.ID != exceptID
	})
	return len(found) > 0, nil
}
