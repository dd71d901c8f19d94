package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aquilax/sitetree/activity"
	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
	"github.com/gosimple/slug"
)

// Create adds a node under parentID, or as a root when parentID is
// node.RootNodeID, and appends it after its live siblings.
func (m *Model) Create(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, p node.Payload, actor string) (*node.Node, error) {
	started := time.Now()
	f, err := m.family(family)
	if err != nil {
		return nil, err
	}
	if siteID == "" {
		return nil, fmt.Errorf("missing site: %w", node.ErrInvalidArgument)
	}
	var created *node.Node
	err = m.db.Update(ctx, func(w database.Writer) error {
		parentDepth := 0
		if parentID != node.RootNodeID {
			parent, err := lockLive(ctx, w, family, parentID)
			if err != nil {
				return err
			}
			if parent.SiteID != siteID {
				return notFound(family, parentID)
			}
			chain, err := ancestry(ctx, w, parent)
			if err != nil {
				return err
			}
			parentDepth = len(chain)
		}
		if err := f.CheckDepth(parentDepth, 1); err != nil {
			return err
		}
		siblings, err := w.LockScope(ctx, family, siteID, parentID)
		if err != nil {
			return err
		}
		n := &node.Node{
			Family:    family,
			SiteID:    siteID,
			ParentID:  parentID,
			Author:    actor,
			State:     node.StateLive,
			SortOrder: siblings.NextSortOrder(),
		}
		n.Apply(p)
		if f.Publishable {
			n.Status = node.StatusDraft
		}
		if p.Status != nil {
			if _, err := n.ApplyStatus(f, *p.Status, m.now()); err != nil {
				return err
			}
		}
		if err := m.claimSlug(ctx, w, f, n); err != nil {
			return err
		}
		if _, err := w.AddNode(ctx, n); err != nil {
			return err
		}
		created = n
		return nil
	})
	m.observe(ctx, family, "create", started, err)
	if err != nil {
		return nil, err
	}
	m.sink.Notify(actor, activity.ActionCreate, family, created.ID, created.Label())
	return created, nil
}

// Update changes the payload of a live node. Status changes follow the
// same rules as Publish.
func (m *Model) Update(ctx context.Context, family string, id node.NodeID, p node.Payload, actor string) (*node.Node, error) {
	started := time.Now()
	f, err := m.family(family)
	if err != nil {
		return nil, err
	}
	var updated *node.Node
	err = m.db.Update(ctx, func(w database.Writer) error {
		n, err := lockLive(ctx, w, family, id)
		if err != nil {
			return err
		}
		n.Apply(p)
		if p.Status != nil {
			if _, err := n.ApplyStatus(f, *p.Status, m.now()); err != nil {
				return err
			}
		}
		if err := m.claimSlug(ctx, w, f, n); err != nil {
			return err
		}
		if err := w.EditNode(ctx, n); err != nil {
			return err
		}
		updated = n
		return nil
	})
	m.observe(ctx, family, "update", started, err)
	if err != nil {
		return nil, err
	}
	m.sink.Notify(actor, activity.ActionUpdate, family, updated.ID, updated.Label())
	return updated, nil
}

// Reparent moves a live node, with its whole subtree, under newParentID and
// places it after the live children already there.
func (m *Model) Reparent(ctx context.Context, family string, id, newParentID node.NodeID, actor string) (*node.Node, error) {
	started := time.Now()
	f, err := m.family(family)
	if err != nil {
		return nil, err
	}
	var moved *node.Node
	err = m.db.Update(ctx, func(w database.Writer) error {
		n, err := lockLive(ctx, w, family, id)
		if err != nil {
			return err
		}
		if newParentID == id {
			return fmt.Errorf("%s %q cannot be its own parent: %w", family, id, node.ErrCycleDetected)
		}
		parentDepth := 0
		if newParentID != node.RootNodeID {
			parent, err := lockLive(ctx, w, family, newParentID)
			if err != nil {
				return err
			}
			if parent.SiteID != n.SiteID {
				return notFound(family, newParentID)
			}
			chain, err := ancestry(ctx, w, parent)
			if err != nil {
				return err
			}
			for _, a := range chain {
				if a.ID == id {
					return fmt.Errorf("%s %q is an ancestor of %q: %w", family, id, newParentID, node.ErrCycleDetected)
				}
			}
			parentDepth = len(chain)
		}
		if f.MaxDepth > 0 {
			h, err := height(ctx, w, n)
			if err != nil {
				return err
			}
			if err := f.CheckDepth(parentDepth, h); err != nil {
				return err
			}
		}
		siblings, err := w.LockScope(ctx, family, n.SiteID, newParentID)
		if err != nil {
			return err
		}
		others := make(node.NodeList, 0, len(siblings))
		for _, s := range siblings {
			if s.ID != id {
				others = append(others, s)
			}
		}
		n.ParentID = newParentID
		n.SortOrder = others.NextSortOrder()
		if err := w.EditNode(ctx, n); err != nil {
			return err
		}
		moved = n
		return nil
	})
	m.observe(ctx, family, "reparent", started, err)
	if err != nil {
		return nil, err
	}
	m.sink.Notify(actor, activity.ActionReparent, family, moved.ID, moved.Label())
	return moved, nil
}

// ListChildren returns the children of parentID in display order. A
// tombstoned parent can still be listed.
func (m *Model) ListChildren(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool) (node.NodeList, error) {
	if _, err := m.family(family); err != nil {
		return nil, err
	}
	if parentID != node.RootNodeID {
		parent, err := m.db.GetNode(ctx, family, parentID)
		if err != nil {
			return nil, err
		}
		if parent.SiteID != siteID {
			return nil, notFound(family, parentID)
		}
	}
	return m.db.GetChildNodes(ctx, family, siteID, parentID, includeTombstoned)
}

// HasChildren reports whether the node has at least one live child.
func (m *Model) HasChildren(ctx context.Context, family string, id node.NodeID) (bool, error) {
	if _, err := m.family(family); err != nil {
		return false, err
	}
	if _, err := m.db.GetNode(ctx, family, id); err != nil {
		return false, err
	}
	count, err := m.db.CountLiveChildren(ctx, family, id)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// claimSlug fills in a missing slug from the title and rejects one held by
// another live node, for the families that address nodes by slug.
func (m *Model) claimSlug(ctx context.Context, w database.Writer, f node.Family, n *node.Node) error {
	n.Slug = strings.TrimSpace(n.Slug)
	if !f.UniqueSlug {
		return nil
	}
	if n.Slug == "" {
		n.Slug = slug.Make(n.Title)
	}
	if n.Slug == "" {
		return fmt.Errorf("%s needs a slug or a title: %w", f.Name, node.ErrInvalidArgument)
	}
	if !slug.IsSlug(n.Slug) {
		return fmt.Errorf("invalid slug %q: %w", n.Slug, node.ErrInvalidArgument)
	}
	taken, err := w.SlugTaken(ctx, f.Name, n.SiteID, n.Slug, n.ID)
	if err != nil {
		return err
	}
	if taken {
		return fmt.Errorf("%s slug %q: %w", f.Name, n.Slug, node.ErrAlreadyExists)
	}
	return nil
}
