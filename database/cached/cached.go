package cached

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aquilax/sitetree/database"
	"github.com/aquilax/sitetree/logger"
	"github.com/aquilax/sitetree/node"
	"github.com/redis/go-redis/v9"
)

const DefaultTTL = 10 * time.Minute

// Cached is a read-through Redis cache in front of another Database. Keys
// carry a per family generation number; a committed write bumps the
// generation of every family it touched, which retires all older entries at
// once. Redis failures degrade to uncached reads and never fail a call.
type Cached struct {
	db     database.Database
	client *redis.Client
	prefix string
	ttl    time.Duration
}

func New(db database.Database, client *redis.Client) *Cached {
	return &Cached{
		db:     db,
		client: client,
		prefix: "sitetree:",
		ttl:    DefaultTTL,
	}
}

func (m *Cached) genKey(family string) string {
	return m.prefix + "gen:" + family
}

func (m *Cached) key(ctx context.Context, family string, parts ...string) (string, bool) {
	gen, err := m.client.Get(ctx, m.genKey(family)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		logger.Default().Warn("cache generation lookup failed", slog.String("family", family), slog.String("error", err.Error()))
		return "", false
	}
	key := m.prefix + family + ":" + strconv.FormatInt(gen, 10)
	for _, p := range parts {
		key += ":" + p
	}
	return key, true
}

func (m *Cached) load(ctx context.Context, key string, dest interface{}) bool {
	data, err := m.client.Get(ctx, key).Bytes()
	if err != nil {
		return false
	}
	return json.Unmarshal(data, dest) == nil
}

func (m *Cached) store(ctx context.Context, key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := m.client.Set(ctx, key, data, m.ttl).Err(); err != nil {
		logger.Default().Warn("cache store failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}

func (m *Cached) clear(ctx context.Context, families map[string]bool) {
	for family := range families {
		if err := m.client.Incr(ctx, m.genKey(family)).Err(); err != nil {
			logger.Default().Warn("cache invalidation failed", slog.String("family", family), slog.String("error", err.Error()))
		}
	}
}

func (m *Cached) Open(database, dsn string) error {
	return m.db.Open(database, dsn)
}

func (m *Cached) GetNode(ctx context.Context, family string, id node.NodeID) (*node.Node, error) {
	key, ok := m.key(ctx, family, "node", id)
	if ok {
		var n node.Node
		if m.load(ctx, key, &n) {
			return &n, nil
		}
	}
	result, err := m.db.GetNode(ctx, family, id)
	if err == nil && ok {
		m.store(ctx, key, result)
	}
	return result, err
}

func (m *Cached) GetChildNodes(ctx context.Context, family string, siteID node.SiteID, parentID node.NodeID, includeTombstoned bool) (node.NodeList, error) {
	key, ok := m.key(ctx, family, "children", siteID, parentID, strconv.FormatBool(includeTombstoned))
	if ok {
		var nl node.NodeList
		if m.load(ctx, key, &nl) {
			return nl, nil
		}
	}
	result, err := m.db.GetChildNodes(ctx, family, siteID, parentID, includeTombstoned)
	if err == nil && ok {
		m.store(ctx, key, result)
	}
	return result, err
}

func (m *Cached) CountLiveChildren(ctx context.Context, family string, id node.NodeID) (int, error) {
	return m.db.CountLiveChildren(ctx, family, id)
}

func (m *Cached) GetPublished(ctx context.Context, family string, siteID node.SiteID, count int) (node.NodeList, error) {
	key, ok := m.key(ctx, family, "published", siteID, strconv.Itoa(count))
	if ok {
		var nl node.NodeList
		if m.load(ctx, key, &nl) {
			return nl, nil
		}
	}
	result, err := m.db.GetPublished(ctx, family, siteID, count)
	if err == nil && ok {
		m.store(ctx, key, result)
	}
	return result, err
}

// Update never reads through the cache: the writer handed to fn talks to
// the wrapped database directly.
func (m *Cached) Update(ctx context.Context, fn func(w database.Writer) error) error {
	var touched *tracker
	err := m.db.Update(ctx, func(w database.Writer) error {
		touched = &tracker{Writer: w, families: make(map[string]bool)}
		return fn(touched)
	})
	if err == nil && touched != nil {
		m.clear(ctx, touched.families)
	}
	return err
}

func (m *Cached) Ping(ctx context.Context) error {
	if err := m.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}
	return m.db.Ping(ctx)
}

func (m *Cached) Close() error {
	cerr := m.client.Close()
	if err := m.db.Close(); err != nil {
		return err
	}
	return cerr
}

// tracker records the families a transaction wrote to.
type tracker struct {
	database.Writer
	mu       sync.Mutex
	families map[string]bool
}

func (t *tracker) touch(family string) {
	t.mu.Lock()
	t.families[family] = true
	t.mu.Unlock()
}

func (t *tracker) AddNode(ctx context.Context, n *node.Node) (node.NodeID, error) {
	t.touch(n.Family)
	return t.Writer.AddNode(ctx, n)
}

func (t *tracker) EditNode(ctx context.Context, n *node.Node) error {
	t.touch(n.Family)
	return t.Writer.EditNode(ctx, n)
}

func (t *tracker) RemoveNode(ctx context.Context, family string, id node.NodeID) error {
	t.touch(family)
	return t.Writer.RemoveNode(ctx, family, id)
}

func (t *tracker) SetSortOrder(ctx context.Context, family string, id node.NodeID, sortOrder int) error {
	t.touch(family)
	return t.Writer.SetSortOrder(ctx, family, id, sortOrder)
}
