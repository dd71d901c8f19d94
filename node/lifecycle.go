package node

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusDraft     Status = "draft"
	StatusPublished Status = "published"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusDraft, StatusPublished:
		return Status(s), nil
	}
	return "", fmt.Errorf("unknown status %q: %w", s, ErrInvalidArgument)
}

// ApplyStatus moves n to the requested status. The first transition into
// published stamps PublishedAt; later ones never overwrite it. There is no
// way back from published to draft. It reports whether n changed.
func (n *Node) ApplyStatus(f Family, to Status, now time.Time) (bool, error) {
	if !f.Publishable {
		return false, fmt.Errorf("%s nodes have no status: %w", f.Name, ErrInvalidArgument)
	}
	if _, err := ParseStatus(string(to)); err != nil {
		return false, err
	}
	from := n.Status
	if from == "" {
		from = StatusDraft
	}
	if from == StatusPublished && to == StatusDraft {
		return false, fmt.Errorf("published %s cannot return to draft: %w", f.Name, ErrInvalidArgument)
	}
	changed := n.Status != to
	n.Status = to
	if to == StatusPublished && n.PublishedAt == nil {
		t := now
		n.PublishedAt = &t
		changed = true
	}
	return changed, nil
}

func (n *Node) Published() bool {
	return n.Status == StatusPublished
}
