package node

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNodeList_Sort(t *testing.T) {
	nl := NodeList{
		{ID: "c", SortOrder: 1},
		{ID: "b", SortOrder: 0},
		{ID: "a", SortOrder: 1},
		{ID: "d", SortOrder: -1},
	}
	nl.Sort()
	if got, want := nl.IDs(), []NodeID{"d", "b", "a", "c"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Sort() = %v, want %v", got, want)
	}
}

func TestNodeList_NextSortOrder(t *testing.T) {
	tests := []struct {
		name string
		nl   NodeList
		want int
	}{
		{"empty scope starts at zero", NodeList{}, 0},
		{"appends after the highest", NodeList{{SortOrder: 0}, {SortOrder: 4}, {SortOrder: 2}}, 5},
		{"counts tombstoned slots", NodeList{{SortOrder: 7, State: StateTombstoned}}, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.nl.NextSortOrder(); got != tt.want {
				t.Errorf("NextSortOrder() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestNode_Tombstone(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	n := Node{
		ID:        "1",
		ParentID:  "0",
		Title:     "Hello",
		Slug:      "hello",
		Body:      "body",
		Rendered:  "<p>body</p>",
		Link:      "/x",
		Author:    "alice",
		SortOrder: 3,
		State:     StateLive,
	}
	if !n.Tombstone(now) {
		t.Fatalf("expected first tombstone to report a change")
	}
	if n.State != StateTombstoned || n.Title != "" || n.Body != "" || n.Rendered != "" || n.Link != "" || n.Author != "" {
		t.Errorf("payload not scrubbed: %+v", n)
	}
	if n.ID != "1" || n.ParentID != "0" || n.SortOrder != 3 || n.Slug != "hello" {
		t.Errorf("structural fields changed: %+v", n)
	}
	later := now.Add(time.Hour)
	if n.Tombstone(later) {
		t.Errorf("second tombstone should be a no-op")
	}
	if !n.Updated.Equal(now) {
		t.Errorf("second tombstone touched Updated: %v", n.Updated)
	}
}

func TestNode_ApplyStatus(t *testing.T) {
	families := DefaultFamilies()
	page := families[FamilyPage]
	first := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	second := first.Add(24 * time.Hour)

	t.Run("first publish stamps", func(t *testing.T) {
		n := Node{Status: StatusDraft}
		changed, err := n.ApplyStatus(page, StatusPublished, first)
		if err != nil || !changed {
			t.Fatalf("ApplyStatus() = %v, %v", changed, err)
		}
		if n.PublishedAt == nil || !n.PublishedAt.Equal(first) {
			t.Errorf("PublishedAt = %v, want %v", n.PublishedAt, first)
		}
	})
	t.Run("republish keeps the original stamp", func(t *testing.T) {
		stamp := first
		n := Node{Status: StatusPublished, PublishedAt: &stamp}
		changed, err := n.ApplyStatus(page, StatusPublished, second)
		if err != nil {
			t.Fatal(err)
		}
		if changed {
			t.Errorf("republish reported a change")
		}
		if !n.PublishedAt.Equal(first) {
			t.Errorf("PublishedAt = %v, want %v", n.PublishedAt, first)
		}
	})
	t.Run("unpublish is rejected", func(t *testing.T) {
		stamp := first
		n := Node{Status: StatusPublished, PublishedAt: &stamp}
		if _, err := n.ApplyStatus(page, StatusDraft, second); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
		if n.Status != StatusPublished {
			t.Errorf("status changed to %q", n.Status)
		}
	})
	t.Run("status on a non publishable family", func(t *testing.T) {
		n := Node{}
		if _, err := n.ApplyStatus(families[FamilyReply], StatusPublished, first); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})
	t.Run("unknown status", func(t *testing.T) {
		n := Node{}
		if _, err := n.ApplyStatus(page, Status("archived"), first); !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("err = %v, want ErrInvalidArgument", err)
		}
	})
}

func TestCheckOrder(t *testing.T) {
	live := NodeList{{ID: "c0"}, {ID: "c1"}, {ID: "c2"}}
	tests := []struct {
		name    string
		ordered []NodeID
		ok      bool
	}{
		{"permutation", []NodeID{"c2", "c0", "c1"}, true},
		{"omission", []NodeID{"c0", "c1"}, false},
		{"foreign id", []NodeID{"c0", "c1", "x"}, false},
		{"duplicate", []NodeID{"c0", "c0", "c1"}, false},
		{"extra", []NodeID{"c0", "c1", "c2", "c3"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckOrder(live, tt.ordered)
			if tt.ok && err != nil {
				t.Errorf("CheckOrder() = %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("CheckOrder() = %v, want ErrInvalidArgument", err)
			}
		})
	}
}

func TestFamily_CheckDepth(t *testing.T) {
	families := DefaultFamilies().WithDepths(map[string]int{FamilyMenu: 2, "unknown": 4})
	menu := families[FamilyMenu]
	if menu.MaxDepth != 2 {
		t.Fatalf("MaxDepth = %d, want 2", menu.MaxDepth)
	}
	if err := menu.CheckDepth(1, 1); err != nil {
		t.Errorf("depth 2 rejected: %v", err)
	}
	if err := menu.CheckDepth(1, 2); !errors.Is(err, ErrDepthExceeded) {
		t.Errorf("depth 3 accepted: %v", err)
	}
	if err := families[FamilyReply].CheckDepth(1000, 1000); err != nil {
		t.Errorf("unbounded family rejected: %v", err)
	}
	if _, err := families.Get("unknown"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("Get(unknown) = %v", err)
	}
}
