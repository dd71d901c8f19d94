package activity

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aquilax/sitetree/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRecorder struct {
	mu      sync.Mutex
	events  []Event
	err     error
	started chan struct{}
	release chan struct{}
}

func (r *memoryRecorder) Record(ctx context.Context, e Event) error {
	if r.started != nil {
		r.started <- struct{}{}
		<-r.release
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *memoryRecorder) recorded() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func TestDispatcherDelivers(t *testing.T) {
	rec := &memoryRecorder{}
	d := NewDispatcher(rec, 2, 16)
	d.Notify("alice", ActionCreate, "page", "p1", "About")
	d.Notify("system", ActionDelete, "reply", "r1", "r1")
	d.Close()

	events := rec.recorded()
	require.Len(t, events, 2)
	actions := map[Action]Event{}
	for _, e := range events {
		actions[e.Action] = e
	}
	assert.Equal(t, "alice", actions[ActionCreate].Actor)
	assert.Equal(t, "About", actions[ActionCreate].Label)
	assert.Equal(t, "r1", actions[ActionDelete].TargetID)
	assert.False(t, actions[ActionCreate].At.IsZero())
}

func TestDispatcherSwallowsRecorderErrors(t *testing.T) {
	failed := testutil.ToFloat64(metrics.ActivityEvents.WithLabelValues("failed"))
	rec := &memoryRecorder{err: errors.New("log store down")}
	d := NewDispatcher(rec, 1, 4)
	assert.NotPanics(t, func() {
		d.Notify("alice", ActionUpdate, "menu", "m1", "Home")
	})
	d.Close()
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.ActivityEvents.WithLabelValues("failed")))
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	dropped := testutil.ToFloat64(metrics.ActivityEvents.WithLabelValues("dropped"))
	rec := &memoryRecorder{started: make(chan struct{}), release: make(chan struct{})}
	d := NewDispatcher(rec, 1, 1)

	d.Notify("a", ActionCreate, "reply", "1", "")
	<-rec.started // the only worker is now busy
	d.Notify("a", ActionCreate, "reply", "2", "")
	d.Notify("a", ActionCreate, "reply", "3", "")

	assert.Equal(t, dropped+1, testutil.ToFloat64(metrics.ActivityEvents.WithLabelValues("dropped")))

	go func() {
		for range rec.started {
		}
	}()
	close(rec.release)
	d.Close()
	close(rec.started)
	assert.Len(t, rec.recorded(), 2)
}

func TestNotifyAfterClose(t *testing.T) {
	rec := &memoryRecorder{}
	d := NewDispatcher(rec, 1, 1)
	d.Close()
	d.Close()
	assert.NotPanics(t, func() {
		d.Notify("a", ActionReorder, "menu", "", "")
	})
	assert.Empty(t, rec.recorded())
}

func TestRedisRecorder(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	r := NewRedisRecorder(client, "sitetree:activity", 2)
	ctx := context.Background()

	for _, id := range []string{"1", "2", "3"} {
		require.NoError(t, r.Record(ctx, Event{Actor: "bob", Action: ActionPublish, Family: "article", TargetID: id}))
	}

	items, err := s.List("sitetree:activity")
	require.NoError(t, err)
	require.Len(t, items, 2)
	var newest Event
	require.NoError(t, json.Unmarshal([]byte(items[0]), &newest))
	assert.Equal(t, "3", newest.TargetID)
	assert.Equal(t, ActionPublish, newest.Action)
}
