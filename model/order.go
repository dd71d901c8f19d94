package model

import (
	"context"
	"time"

	"github.com/aquilax/sitetree/activity"
	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
)

// Reorder assigns positions 0..n-1 to the live children of parentID in the
// order given. The ids must be exactly the live children. Tombstoned
// siblings keep their old positions.
func (m *Model) Reorder(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, ids []node.NodeID, actor string) error {
	started := time.Now()
	if _, err := m.family(family); err != nil {
		return err
	}
	label := parentID
	err := m.db.Update(ctx, func(w database.Writer) error {
		if parentID != node.RootNodeID {
			parent, err := w.LockNode(ctx, family, parentID)
			if err != nil {
				return err
			}
			if parent.SiteID != siteID {
				return notFound(family, parentID)
			}
			label = parent.Label()
		}
		scope, err := w.LockScope(ctx, family, siteID, parentID)
		if err != nil {
			return err
		}
		live := scope.Live()
		if err := node.CheckOrder(live, ids); err != nil {
			return err
		}
		pos := node.Positions(ids)
		for _, n := range live {
			if n.SortOrder == pos[n.ID] {
				continue
			}
			if err := w.SetSortOrder(ctx, family, n.ID, pos[n.ID]); err != nil {
				return err
			}
		}
		return nil
	})
	m.observe(ctx, family, "reorder", started, err)
	if err != nil {
		return err
	}
	m.sink.Notify(actor, activity.ActionReorder, family, parentID, label)
	return nil
}
