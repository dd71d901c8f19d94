// Package sqldb implements the node store over sqlx. The postgres and sqlite
// backends differ only in their Dialect.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/node"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Dialect struct {
	// ForUpdate is appended to locking reads.
	ForUpdate string
	TxOptions *sql.TxOptions
	// TranslateError maps driver errors onto node error kinds.
	TranslateError func(error) error
}

const columns = `id, family, site_id, COALESCE(parent_id, '') AS parent_id, title, slug, body,
	rendered, link, author, sort_order, state, status, published_at, created, updated`

type Store struct {
	db      *sqlx.DB
	dialect Dialect
	queries
}

func New(db *sqlx.DB, dialect Dialect) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		queries: queries{q: db, dialect: dialect},
	}
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}

func (s *Store) Update(ctx context.Context, fn func(w database.Writer) error) error {
	tx, err := s.db.BeginTxx(ctx, s.dialect.TxOptions)
	if err != nil {
		return s.translate(fmt.Errorf("begin: %w", err))
	}
	if err := fn(queries{q: tx, dialect: s.dialect}); err != nil {
		_ = tx.Rollback()
		return s.translate(err)
	}
	if err := tx.Commit(); err != nil {
		return s.translate(fmt.Errorf("commit: %w", err))
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) translate(err error) error {
	if s.dialect.TranslateError == nil {
		return err
	}
	return s.dialect.TranslateError(err)
}

// queries runs against either the pool or an open transaction.
type queries struct {
	q       sqlx.ExtContext
	dialect Dialect
}

func (r queries) translate(err error) error {
	if err == nil || r.dialect.TranslateError == nil {
		return err
	}
	return r.dialect.TranslateError(err)
}

func (r queries) get(ctx context.Context, family string, id node.NodeID, lock string) (*node.Node, error) {
	var n node.Node
	query := r.q.Rebind("SELECT " + columns + " FROM node WHERE family = ? AND id = ?" + lock)
	err := sqlx.GetContext(ctx, r.q, &n, query, family, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %q: %w", family, id, node.ErrNotFound)
	}
	if err != nil {
		return nil, r.translate(fmt.Errorf("get %s %q: %w", family, id, err))
	}
	return &n, nil
}

func (r queries) children(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool, lock string) (node.NodeList, error) {
	query := "SELECT " + columns + " FROM node WHERE family = ? AND site_id = ?"
	args := []interface{}{family, siteID}
	if parentID == node.RootNodeID {
		query += " AND parent_id IS NULL"
	} else {
		query += " AND parent_id = ?"
		args = append(args, parentID)
	}
	if !includeTombstoned {
		query += " AND state = 'live'"
	}
	query += " ORDER BY sort_order, id" + lock
	nl := node.NodeList{}
	if err := sqlx.SelectContext(ctx, r.q, &nl, r.q.Rebind(query), args...); err != nil {
		return nil, r.translate(fmt.Errorf("children of %s %q: %w", family, parentID, err))
	}
	return nl, nil
}

func (r queries) GetNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	return r.get(ctx, family, id, "")
}

func (r queries) GetChildNodes(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool) (node.NodeList, error) {
	return r.children(ctx, family, siteID, parentID, includeTombstoned, "")
}

func (r queries) CountLiveChildren(ctx context.Context, family string, id node.NodeID) (int, error) {
	var total int
	query := r.q.Rebind("SELECT count(*) FROM node WHERE family = ? AND parent_id = ? AND state = 'live'")
	if err := sqlx.GetContext(ctx, r.q, &total, query, family, id); err != nil {
		return 0, r.translate(fmt.Errorf("count children of %s %q: %w", family, id, err))
	}
	return total, nil
}

func (r queries) GetPublished(ctx context.Context, family string, siteID node.SiteID, count int) (node.NodeList, error) {
	nl := node.NodeList{}
	query := r.q.Rebind("SELECT " + columns + ` FROM node
		WHERE family = ? AND site_id = ? AND state = 'live' AND status = 'published'
		ORDER BY published_at DESC, id LIMIT ?`)
	if err := sqlx.SelectContext(ctx, r.q, &nl, query, family, siteID, count); err != nil {
		return nil, r.translate(fmt.Errorf("published %s: %w", family, err))
	}
	return nl, nil
}

func (r queries) LockNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	return r.get(ctx, family, id, r.dialect.ForUpdate)
}

func (r queries) LockScope(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID) (node.NodeList, error) {
	return r.children(ctx, family, siteID, parentID, true, r.dialect.ForUpdate)
}

func (r queries) AddNode(ctx context.Context, n *node.Node) (node.NodeID, error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	n.Created = now
	n.Updated = now
	_, err := sqlx.NamedExecContext(ctx, r.q, `INSERT INTO node (
			id,
			family,
			site_id,
			parent_id,
			title,
			slug,
			body,
			rendered,
			link,
			author,
			sort_order,
			state,
			status,
			published_at,
			created,
			updated
		) VALUES (
			:id,
			:family,
			:site_id,
			NULLIF(:parent_id, ''),
			:title,
			:slug,
			:body,
			:rendered,
			:link,
			:author,
			:sort_order,
			:state,
			:status,
			:published_at,
			:created,
			:updated
		)`, n)
	if err != nil {
		return "", r.translate(fmt.Errorf("insert %s: %w", n.Family, err))
	}
	return n.ID, nil
}

func (r queries) EditNode(ctx context.Context, n *node.Node) error {
	n.Updated = time.Now().UTC()
	res, err := sqlx.NamedExecContext(ctx, r.q, `UPDATE node SET
			parent_id = NULLIF(:parent_id, ''),
			title = :title,
			slug = :slug,
			body = :body,
			rendered = :rendered,
			link = :link,
			author = :author,
			sort_order = :sort_order,
			state = :state,
			status = :status,
			published_at = :published_at,
			updated = :updated
			WHERE id = :id
			AND family = :family`, n)
	if err != nil {
		return r.translate(fmt.Errorf("update %s %q: %w", n.Family, n.ID, err))
	}
	return affected(res, n.Family, n.ID)
}

func (r queries) RemoveNode(ctx context.Context, family string, id node.NodeID) error {
	res, err := r.q.ExecContext(ctx, r.q.Rebind("DELETE FROM node WHERE family = ? AND id = ?"), family, id)
	if err != nil {
		return r.translate(fmt.Errorf("delete %s %q: %w", family, id, err))
	}
	return affected(res, family, id)
}

func (r queries) SetSortOrder(ctx context.Context, family string, id node.NodeID, sortOrder int) error {
	query := r.q.Rebind("UPDATE node SET sort_order = ?, updated = ? WHERE family = ? AND id = ?")
	res, err := r.q.ExecContext(ctx, query, sortOrder, time.Now().UTC(), family, id)
	if err != nil {
		return r.translate(fmt.Errorf("order %s %q: %w", family, id, err))
	}
	return affected(res, family, id)
}

func (r queries) SlugTaken(ctx context.Context, family string, siteID node.SiteID, slug string, exceptID node.NodeID) (bool, error) {
	var total int
	query := r.q.Rebind(`SELECT count(*) FROM node
		WHERE family = ? AND site_id = ? AND slug = ? AND state = 'live' AND id <> ?`)
	if err := sqlx.GetContext(ctx, r.q, &total, query, family, siteID, slug, exceptID); err != nil {
		return false, r.translate(fmt.Errorf("slug lookup: %w", err))
	}
	return total > 0, nil
}

func affected(res sql.Result, family string, id node.NodeID) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("%s %q: %w", family, id, node.ErrNotFound)
	}
	return nil
}

// Classify wraps err with kind unless it already carries a node error kind.
func Classify(err error, kind error) error {
	for _, k := range []error{node.ErrNotFound, node.ErrConflict, node.ErrAlreadyExists} {
		if errors.Is(err, k) {
			return err
		}
	}
	return fmt.Errorf("%w: %w", kind, err)
}
