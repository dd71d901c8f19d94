// Package activity delivers mutation notifications to an activity log
// without ever blocking or failing the mutation that produced them.
package activity

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aquilax/sitetree/logger"
	"github.com/aquilax/sitetree/metrics"
)

type Action string

const (
	ActionCreate    Action = "create"
	ActionUpdate    Action = "update"
	ActionReparent  Action = "reparent"
	ActionTombstone Action = "tombstone"
	ActionDelete    Action = "delete"
	ActionPublish   Action = "publish"
	ActionReorder   Action = "reorder"
)

type Event struct {
	Actor    string    `json:"actor"`
	Action   Action    `json:"action"`
	Family   string    `json:"family"`
	TargetID string    `json:"target_id"`
	Label    string    `json:"label"`
	At       time.Time `json:"at"`
}

// Sink receives notifications. Notify must return immediately.
type Sink interface {
	Notify(actor string, action Action, family, targetID, label string)
}

// Recorder persists one event. Its errors are logged by the Dispatcher and
// go no further.
type Recorder interface {
	Record(ctx context.Context, e Event) error
}

type Nop struct{}

func (Nop) Notify(actor string, action Action, family, targetID, label string) {}

// Dispatcher is a Sink that queues events for a fixed pool of workers. When
// the queue is full the event is dropped.
type Dispatcher struct {
	recorder Recorder
	timeout  time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

func NewDispatcher(recorder Recorder, workers, queueSize int) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	d := &Dispatcher{
		recorder: recorder,
		timeout:  5 * time.Second,
		queue:    make(chan Event, queueSize),
	}
	for i := 0; i < workers; i++ {
		d.wg.Add(1)
		go d.work()
	}
	return d
}

func (d *Dispatcher) Notify(actor string, action Action, family, targetID, label string) {
	e := Event{
		Actor:    actor,
		Action:   action,
		Family:   family,
		TargetID: targetID,
		Label:    label,
		At:       time.Now().UTC(),
	}
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		metrics.ActivityEvents.WithLabelValues("dropped").Inc()
		return
	}
	select {
	case d.queue <- e:
		metrics.ActivityEvents.WithLabelValues("queued").Inc()
	default:
		metrics.ActivityEvents.WithLabelValues("dropped").Inc()
		logger.Warn("activity queue full, event dropped",
			slog.String("action", string(action)),
			slog.String("family", family),
			slog.String("target_id", targetID))
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()
	for e := range d.queue {
		d.record(e)
	}
}

func (d *Dispatcher) record(e Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.ActivityEvents.WithLabelValues("failed").Inc()
			logger.Error("activity recorder panicked", slog.Any("panic", r))
		}
	}()
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	if err := d.recorder.Record(ctx, e); err != nil {
		metrics.ActivityEvents.WithLabelValues("failed").Inc()
		logger.Warn("activity record failed",
			slog.String("action", string(e.Action)),
			slog.String("family", e.Family),
			slog.String("target_id", e.TargetID),
			slog.String("error", err.Error()))
		return
	}
	metrics.ActivityEvents.WithLabelValues("recorded").Inc()
}

// Close stops accepting events and waits for the queued ones to be recorded.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()
	d.wg.Wait()
}
