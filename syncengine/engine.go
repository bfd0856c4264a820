// ABOUTME: Calendar sync engine mapping visits to backend events idempotently
// ABOUTME: Coalesces bursts, skips externally-modified events, drops failures per cycle
package syncengine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/harperreed/officelog/eventstore"
	"github.com/harperreed/officelog/logx"
	"github.com/harperreed/officelog/models"
)

// Mode controls how Schedule triggers a drain.
type Mode int

const (
	// ModeImmediate drains the queue synchronously.
	ModeImmediate Mode = iota

	// ModeStandard enqueues and (re)starts the coalescing timer so
	// bursts collapse into one backend round-trip.
	ModeStandard

	// ModeDeferred enqueues only; the caller triggers the drain at a
	// natural checkpoint.
	ModeDeferred
)

// Options tunes the engine's batching behavior.
type Options struct {
	// CoalesceWindow is the quiet period before a standard-mode drain.
	CoalesceWindow time.Duration

	// MaxWait bounds how long a steady update stream can keep
	// deferring the drain.
	MaxWait time.Duration
}

// Engine applies pending updates to the calendar backend in enqueue
// order, one round-trip per update, exactly one drain at a time.
type Engine struct {
	adapter eventstore.Adapter
	mapping *EventMap
	opts    Options

	mu           sync.Mutex
	queue        []models.PendingUpdate
	timer        *time.Timer
	firstEnqueue time.Time

	drainMu sync.Mutex

	accessMu sync.Mutex
	noAccess bool
}

// New builds an engine over an adapter and a persisted mapping.
func New(adapter eventstore.Adapter, mapping *EventMap, opts Options) *Engine {
	if opts.CoalesceWindow <= 0 {
		opts.CoalesceWindow = 10 * time.Second
	}
	if opts.MaxWait <= 0 {
		opts.MaxWait = 60 * time.Second
	}
	return &Engine{
		adapter: adapter,
		mapping: mapping,
		opts:    opts,
	}
}

// Schedule enqueues an update. Standard mode resets the coalescing
// timer (bounded by MaxWait); immediate mode drains before returning.
func (e *Engine) Schedule(ctx context.Context, update models.PendingUpdate, mode Mode) {
	e.mu.Lock()
	e.queue = append(e.queue, update)

	switch mode {
	case ModeImmediate:
		e.stopTimerLocked()
		e.mu.Unlock()
		e.Drain(ctx)
		return

	case ModeStandard:
		now := time.Now()
		if e.firstEnqueue.IsZero() {
			e.firstEnqueue = now
		}
		delay := e.opts.CoalesceWindow
		if deadline := e.firstEnqueue.Add(e.opts.MaxWait); now.Add(delay).After(deadline) {
			delay = deadline.Sub(now)
			if delay < 0 {
				delay = 0
			}
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		e.timer = time.AfterFunc(delay, func() {
			e.Drain(context.Background())
		})

	case ModeDeferred:
		// Enqueue only.
	}
	e.mu.Unlock()
}

// Pending returns the number of queued updates.
func (e *Engine) Pending() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.queue)
}

// AccessOK reports whether the last backend interaction was permitted.
// False surfaces the "reconnect calendar access" state.
func (e *Engine) AccessOK() bool {
	e.accessMu.Lock()
	defer e.accessMu.Unlock()
	return !e.noAccess
}

// Stop cancels any armed coalescing timer. Queued updates stay queued.
func (e *Engine) Stop() {
	e.mu.Lock()
	e.stopTimerLocked()
	e.mu.Unlock()
}

func (e *Engine) stopTimerLocked() {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.firstEnqueue = time.Time{}
}

// Drain applies the currently queued updates in enqueue order. Updates
// scheduled while a drain runs wait for the next cycle. Failures are
// logged and dropped for this cycle; the next visit transition or the
// duplicate sweep reconciles state.
func (e *Engine) Drain(ctx context.Context) {
	e.drainMu.Lock()
	defer e.drainMu.Unlock()

	e.mu.Lock()
	batch := e.queue
	e.queue = nil
	e.stopTimerLocked()
	e.mu.Unlock()

	if len(batch) == 0 {
		return
	}

	logx.Debug("sync drain", "updates", len(batch))
	for _, update := range batch {
		if err := e.apply(ctx, update); err != nil {
			e.noteAccess(err)
			logx.Error("sync update dropped for this cycle", err,
				"stable_id", update.StableID, "op", update.Op)
			continue
		}
		e.noteAccess(nil)
	}
}

func (e *Engine) apply(ctx context.Context, update models.PendingUpdate) error {
	switch update.Op {
	case models.OpCreate:
		return e.applyCreate(ctx, update)
	case models.OpUpdate:
		return e.applyUpdate(ctx, update)
	case models.OpDelete:
		return e.applyDelete(ctx, update)
	default:
		logx.Info("skipping unknown sync op", "op", update.Op)
		return nil
	}
}

// applyCreate writes a new backend event unless the mapping already
// resolves to a live one, which recovers from a previous partial
// success without double-creating.
func (e *Engine) applyCreate(ctx context.Context, update models.PendingUpdate) error {
	live, err := e.resolve(ctx, update.StableID)
	if err != nil {
		return err
	}
	if live != nil {
		logx.Debug("create already applied", "stable_id", update.StableID)
		return nil
	}

	checksum := Checksum(update.Content)
	handle, err := e.adapter.Create(ctx, eventstore.EventData{
		StableID: update.StableID,
		Checksum: checksum,
		Content:  update.Content,
	})
	if err != nil {
		return err
	}
	return e.mapping.Put(update.StableID, handle, checksum)
}

// applyUpdate overwrites the backend event unless its content no
// longer matches what this system last wrote, in which case the user's
// manual edit wins and the write is skipped.
func (e *Engine) applyUpdate(ctx context.Context, update models.PendingUpdate) error {
	entry, err := e.mapping.Lookup(update.StableID)
	if err != nil {
		return err
	}
	if entry == nil {
		return e.applyCreate(ctx, update)
	}

	remote, err := e.adapter.Get(ctx, entry.Handle)
	if errors.Is(err, eventstore.ErrNotFound) {
		// Stale handle: purge and recreate.
		if err := e.mapping.Remove(update.StableID); err != nil {
			return err
		}
		return e.applyCreate(ctx, update)
	}
	if err != nil {
		return err
	}

	if Checksum(remote.Content) != entry.Checksum {
		logx.Info("event externally modified, keeping user edit",
			"stable_id", update.StableID, "handle", entry.Handle)
		return nil
	}

	checksum := Checksum(update.Content)
	err = e.adapter.Update(ctx, entry.Handle, eventstore.EventData{
		StableID: update.StableID,
		Checksum: checksum,
		Content:  update.Content,
	})
	if err != nil {
		return err
	}
	return e.mapping.Put(update.StableID, entry.Handle, checksum)
}

// applyDelete removes the mapped backend event. Unmapped or already
// gone both count as done.
func (e *Engine) applyDelete(ctx context.Context, update models.PendingUpdate) error {
	entry, err := e.mapping.Lookup(update.StableID)
	if err != nil {
		return err
	}
	if entry == nil {
		return nil
	}

	err = e.adapter.Delete(ctx, entry.Handle)
	if err != nil && !errors.Is(err, eventstore.ErrNotFound) {
		// Keep the mapping so a later delete can retry.
		return err
	}
	return e.mapping.Remove(update.StableID)
}

// resolve returns the live backend event for a mapped stable ID,
// purging the mapping entry when its handle no longer resolves.
func (e *Engine) resolve(ctx context.Context, stableID string) (*eventstore.RemoteEvent, error) {
	entry, err := e.mapping.Lookup(stableID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, nil
	}

	remote, err := e.adapter.Get(ctx, entry.Handle)
	if errors.Is(err, eventstore.ErrNotFound) {
		if err := e.mapping.Remove(stableID); err != nil {
			return nil, err
		}
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return remote, nil
}

func (e *Engine) noteAccess(err error) {
	e.accessMu.Lock()
	defer e.accessMu.Unlock()
	e.noAccess = errors.Is(err, eventstore.ErrNoAccess)
}
