package model

import (
	"context"
	"errors"
	"time"

	"github.com/aquilax/sitetree/activity"
	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
)

// deleteAttempts bounds how often Delete reruns a transaction that lost a
// race to a concurrent writer.
const deleteAttempts = 2

// Delete removes a node. A node that still has live children is tombstoned
// instead so the children keep a valid parent. A removed node takes only its
// own row; tombstoned children stay behind as placeholders. Deleting a
// missing or already tombstoned node succeeds and changes nothing.
func (m *Model) Delete(ctx context.Context, family string, id node.NodeID, actor string) error {
	started := time.Now()
	if _, err := m.family(family); err != nil {
		return err
	}
	var (
		action activity.Action
		label  string
		err    error
	)
	for attempt := 1; ; attempt++ {
		action, label, err = m.delete(ctx, family, id)
		if err == nil || !errors.Is(err, node.ErrConflict) || attempt == deleteAttempts {
			break
		}
	}
	m.observe(ctx, family, "delete", started, err)
	if err != nil {
		return err
	}
	if action != "" {
		m.sink.Notify(actor, action, family, id, label)
	}
	return nil
}

func (m *Model) delete(ctx context.Context, family string, id node.NodeID) (action activity.Action, label string, err error) {
	err = m.db.Update(ctx, func(w database.Writer) error {
		action, label = "", ""
		n, err := w.LockNode(ctx, family, id)
		if errors.Is(err, node.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if !n.State.Live() {
			return nil
		}

		live, err := w.CountLiveChildren(ctx, family, id)
		if err != nil {
			return err
		}
		if live > 0 {
			n.Tombstone(m.now())
			if err := w.EditNode(ctx, n); err != nil {
				return err
			}
			action, label = activity.ActionTombstone, n.Label()
			return nil
		}
		if err := w.RemoveNode(ctx, family, id); err != nil {
			return err
		}
		action, label = activity.ActionDelete, n.Label()
		return nil
	})
	if err != nil {
		return "", "", err
	}
	return action, label, nil
}
