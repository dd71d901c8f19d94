package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
	. "github.com/smartystreets/goconvey/convey"
)

func TestImplementsDatabase(t *testing.T) {
	inter := reflect.TypeOf((*database.Database)(nil)).Elem()
	if !reflect.TypeOf(New()).Implements(inter) {
		t.Errorf("SQLite does not implement the database interface")
	}
}

func TestWithPragmas(t *testing.T) {
	tests := []struct {
		dsn  string
		want string
	}{
		{"file.db", "file.db?_pragma=busy_timeout(5000)"},
		{"file:x.db?mode=rwc", "file:x.db?mode=rwc&_pragma=busy_timeout(5000)"},
	}
	for _, tt := range tests {
		if got := withPragmas(tt.dsn); got != tt.want {
			t.Errorf("withPragmas(%q) = %q, want %q", tt.dsn, got, tt.want)
		}
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	db := New()
	if err := db.Open("sqlite", filepath.Join(t.TempDir(), "sitetree.db")); err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	add := func(n node.Node) (node.NodeID, error) {
		var id node.NodeID
		err := db.Update(ctx, func(w database.Writer) error {
			var err error
			id, err = w.AddNode(ctx, &n)
			return err
		})
		return id, err
	}

	Convey("Given a sqlite node store", t, func() {
		root, err := add(node.Node{Family: node.FamilyPage, SiteID: "s", Slug: "home", State: node.StateLive, Status: node.StatusDraft})
		So(err, ShouldBeNil)

		Convey("Children reference their parent", func() {
			child, err := add(node.Node{Family: node.FamilyPage, SiteID: "s", ParentID: root, Slug: "child", State: node.StateLive, Status: node.StatusDraft})
			So(err, ShouldBeNil)
			n, err := db.GetNode(ctx, node.FamilyPage, child)
			So(err, ShouldBeNil)
			So(n.ParentID, ShouldEqual, root)

			Convey("Removing the parent leaves the child in place", func() {
				err := db.Update(ctx, func(w database.Writer) error {
					return w.RemoveNode(ctx, node.FamilyPage, root)
				})
				So(err, ShouldBeNil)
				n, err := db.GetNode(ctx, node.FamilyPage, child)
				So(err, ShouldBeNil)
				So(n.ParentID, ShouldEqual, root)
			})
		})

		Convey("Live slugs are unique", func() {
			_, err := add(node.Node{Family: node.FamilyPage, SiteID: "s", Slug: "home", State: node.StateLive, Status: node.StatusDraft})
			So(errors.Is(err, node.ErrAlreadyExists), ShouldBeTrue)
		})

		Convey("Removing a missing node is not found", func() {
			err := db.Update(ctx, func(w database.Writer) error {
				return w.RemoveNode(ctx, node.FamilyMenu, "gone")
			})
			So(errors.Is(err, node.ErrNotFound), ShouldBeTrue)
		})

		Convey("Editing a missing node is not found", func() {
			err := db.Update(ctx, func(w database.Writer) error {
				return w.EditNode(ctx, &node.Node{ID: "gone", Family: node.FamilyMenu, State: node.StateLive})
			})
			So(errors.Is(err, node.ErrNotFound), ShouldBeTrue)
		})

		Reset(func() {
			_, _ = db.DB().ExecContext(ctx, "DELETE FROM node")
		})
	})
}
