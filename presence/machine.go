// ABOUTME: Presence state machine owning the active visit and all transitions
// ABOUTME: Serializes boundary, reconciler, and manual signals through one loop
package presence

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/harperreed/officelog/config"
	"github.com/harperreed/officelog/db"
	"github.com/harperreed/officelog/logx"
	"github.com/harperreed/officelog/models"
	"github.com/harperreed/officelog/notify"
	"github.com/harperreed/officelog/syncengine"
)

// Machine is the authoritative presence state: an active visit or
// none. Every mutation (boundary callbacks, reconciler corrections,
// clock ticks, manual edits) funnels through a single-writer loop, so
// signals never interleave. Readers get consistent snapshots.
type Machine struct {
	store    *db.VisitStore
	engine   *syncengine.Engine
	settings *config.Settings
	notifier notify.Notifier

	// clock is swappable for tests.
	clock func() time.Time

	requests chan func()
	closed   chan struct{}
	once     sync.Once

	mu     sync.RWMutex
	active *models.Visit
}

// NewMachine builds the machine and recovers any active visit from the
// store, so a daemon restart does not lose an in-progress day.
func NewMachine(store *db.VisitStore, engine *syncengine.Engine, settings *config.Settings, notifier notify.Notifier) (*Machine, error) {
	active, err := store.Active()
	if err != nil {
		return nil, fmt.Errorf("failed to recover active visit: %w", err)
	}

	m := &Machine{
		store:    store,
		engine:   engine,
		settings: settings,
		notifier: notifier,
		clock:    time.Now,
		requests: make(chan func()),
		closed:   make(chan struct{}),
		active:   active,
	}
	go m.run()
	return m, nil
}

// Close stops the signal loop. Pending calendar updates stay queued in
// the engine.
func (m *Machine) Close() {
	m.once.Do(func() { close(m.closed) })
}

func (m *Machine) run() {
	for {
		select {
		case fn := <-m.requests:
			fn()
		case <-m.closed:
			return
		}
	}
}

// dispatch runs fn on the writer loop and waits for it to finish, so
// callers observe their own transitions.
func (m *Machine) dispatch(fn func()) {
	done := make(chan struct{})
	select {
	case m.requests <- func() { fn(); close(done) }:
		<-done
	case <-m.closed:
	}
}

// Present reports whether a visit is currently active.
func (m *Machine) Present() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active != nil
}

// ActiveVisit returns a copy of the active visit, or nil when away.
func (m *Machine) ActiveVisit() *models.Visit {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.active == nil {
		return nil
	}
	copied := *m.active
	return &copied
}

func (m *Machine) setActive(v *models.Visit) {
	m.mu.Lock()
	m.active = v
	m.mu.Unlock()
}

// Enter handles a confirmed entry signal from the boundary source or
// the drift reconciler. Policy rejections and duplicate entries are
// silent no-ops.
func (m *Machine) Enter(ctx context.Context, at models.Coordinate) {
	m.dispatch(func() {
		now := m.clock()
		if !m.settings.Policy.AcceptsEntry(now) {
			logx.Debug("entry signal outside tracking window", "at", now)
			return
		}
		if m.active != nil {
			// Already present; entry is idempotent.
			return
		}

		visit := models.NewVisit(now, at)
		if err := m.store.Insert(visit); err != nil {
			logx.Error("failed to record entry", err)
			return
		}
		m.setActive(&visit)
		m.notifier.Notify(notify.Transition{
			Prior: notify.StateAway,
			New:   notify.StatePresent,
			Visit: &visit,
		})
		logx.Info("entered office", "visit", visit.ID, "date", visit.Date)
	})
}

// Exit handles a confirmed exit signal. A valid visit is finalized and
// upserted to the calendar; a sub-threshold visit is discarded and any
// calendar event it produced is deleted.
func (m *Machine) Exit(ctx context.Context) {
	m.dispatch(func() {
		if m.active == nil {
			// Already away; exit is idempotent.
			return
		}

		now := m.clock()
		visit := *m.active
		visit.ExitTime = &now

		if visit.IsValid(m.settings.Policy.ValidityThreshold) {
			if err := m.store.Finalize(visit.ID, now); err != nil {
				logx.Error("failed to finalize visit", err, "visit", visit.ID)
				return
			}
			m.scheduleUpsert(ctx, visit, syncengine.ModeDeferred)
			m.engine.Drain(ctx)
		} else {
			// Too short to keep. Remove the record and whatever
			// ongoing event the engine may have written for it.
			if err := m.store.Delete(visit.ID); err != nil {
				logx.Error("failed to discard short visit", err, "visit", visit.ID)
				return
			}
			m.scheduleDelete(ctx, visit.StableID())
			logx.Info("discarded short visit", "visit", visit.ID,
				"duration", visit.Duration(now))
		}

		m.setActive(nil)
		m.notifier.Notify(notify.Transition{
			Prior: notify.StatePresent,
			New:   notify.StateAway,
			Visit: &visit,
		})
	})
}

// Tick refreshes the ongoing calendar event for an active visit. Away,
// it does nothing. Bursts coalesce in the engine.
func (m *Machine) Tick(ctx context.Context) {
	m.dispatch(func() {
		if m.active == nil {
			return
		}
		m.scheduleUpsert(ctx, *m.active, syncengine.ModeStandard)
	})
}

// AddVisit records a completed visit manually. It runs the same
// validity and sync logic as automatic transitions.
func (m *Machine) AddVisit(ctx context.Context, entry, exit time.Time, at models.Coordinate) (*models.Visit, error) {
	var (
		visit models.Visit
		err   error
	)
	m.dispatch(func() {
		if !exit.After(entry) {
			err = fmt.Errorf("exit must be after entry")
			return
		}

		visit = models.NewVisit(entry, at)
		visit.ExitTime = &exit
		if !visit.IsValid(m.settings.Policy.ValidityThreshold) {
			err = fmt.Errorf("visit shorter than validity threshold (%s)",
				m.settings.Policy.ValidityThreshold)
			return
		}

		if err = m.store.Insert(visit); err != nil {
			err = fmt.Errorf("failed to record visit: %w", err)
			return
		}
		m.scheduleUpsert(ctx, visit, syncengine.ModeDeferred)
		m.engine.Drain(ctx)
	})
	if err != nil {
		return nil, err
	}
	return &visit, nil
}

// DeleteVisit removes a visit and its calendar event.
func (m *Machine) DeleteVisit(ctx context.Context, id uuid.UUID) error {
	var err error
	m.dispatch(func() {
		var visit *models.Visit
		visit, err = m.store.Get(id)
		if err != nil {
			return
		}
		if visit == nil {
			err = fmt.Errorf("visit %s not found", id)
			return
		}

		if err = m.store.Delete(id); err != nil {
			return
		}
		if m.active != nil && m.active.ID == id {
			m.setActive(nil)
			m.notifier.Notify(notify.Transition{
				Prior: notify.StatePresent,
				New:   notify.StateAway,
				Visit: visit,
			})
		}

		// Only drop the calendar event when no other visit still
		// claims the same day.
		remaining, lookupErr := m.store.ByDate(visit.Date)
		if lookupErr != nil {
			err = lookupErr
			return
		}
		if len(remaining) == 0 {
			m.scheduleDelete(ctx, visit.StableID())
		}
	})
	return err
}

func (m *Machine) scheduleUpsert(ctx context.Context, visit models.Visit, mode syncengine.Mode) {
	if !m.settings.CalendarEnabled {
		return
	}

	content := models.ContentForVisit(visit, m.nearestLocationName(visit.Coordinate), m.clock())
	m.engine.Schedule(ctx, models.NewPendingUpdate(visit.StableID(), models.OpUpdate, content), mode)
}

func (m *Machine) scheduleDelete(ctx context.Context, stableID string) {
	if !m.settings.CalendarEnabled {
		return
	}

	m.engine.Schedule(ctx,
		models.NewPendingUpdate(stableID, models.OpDelete, models.EventContent{}),
		syncengine.ModeDeferred)
	m.engine.Drain(ctx)
}

func (m *Machine) nearestLocationName(at models.Coordinate) string {
	name := ""
	best := -1.0
	for _, loc := range m.settings.Locations {
		d := loc.Coordinate.DistanceTo(at)
		if best < 0 || d < best {
			best = d
			name = loc.Name
		}
	}
	return name
}
