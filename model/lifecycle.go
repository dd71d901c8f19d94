package model

import (
	"context"
	"fmt"
	"time"

	"github.com/aquilax/sitetree/activity"
	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
)

// DefaultPublishedLimit caps Published when the caller passes no limit.
const DefaultPublishedLimit = 20

// Publish moves a live node of a publishable family to published. Publishing
// twice keeps the first publish time and sends no second notification.
func (m *Model) Publish(ctx context.Context, family string, id node.NodeID, actor string) (*node.Node, error) {
	started := time.Now()
	f, err := m.family(family)
	if err != nil {
		return nil, err
	}
	var (
		published *node.Node
		changed   bool
	)
	err = m.db.Update(ctx, func(w database.Writer) error {
		n, err := lockLive(ctx, w, family, id)
		if err != nil {
			return err
		}
		changed, err = n.ApplyStatus(f, node.StatusPublished, m.now())
		if err != nil {
			return err
		}
		if changed {
			if err := w.EditNode(ctx, n); err != nil {
				return err
			}
		}
		published = n
		return nil
	})
	m.observe(ctx, family, "publish", started, err)
	if err != nil {
		return nil, err
	}
	if changed {
		m.sink.Notify(actor, activity.ActionPublish, family, published.ID, published.Label())
	}
	return published, nil
}

// Published lists the newest published live nodes of a site.
func (m *Model) Published(ctx context.Context, family string, siteID node.SiteID, limit int) (node.NodeList, error) {
	f, err := m.family(family)
	if err != nil {
		return nil, err
	}
	if !f.Publishable {
		return nil, fmt.Errorf("%s nodes are never published: %w", family, node.ErrInvalidArgument)
	}
	if limit <= 0 {
		limit = DefaultPublishedLimit
	}
	return m.db.GetPublished(ctx, family, siteID, limit)
}
