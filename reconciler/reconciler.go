// ABOUTME: Drift reconciler re-deriving presence from sampled position
// ABOUTME: Corrects missed boundary signals with an asymmetric grace delay
package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/harperreed/officelog/config"
	"github.com/harperreed/officelog/logx"
	"github.com/harperreed/officelog/models"
	"github.com/harperreed/officelog/presence"
)

// Sampler produces a fresh position fix. Implementations must respect
// ctx's deadline; a timed-out sample is abandoned, not retried.
type Sampler interface {
	SamplePosition(ctx context.Context) (models.Coordinate, error)
}

// Reconciler periodically compares actual position against the
// configured geofences and corrects the presence machine when the
// primary boundary signal appears to have been missed. It is strictly
// a second opinion: before every correction it re-reads state so it
// never overrides a transition the primary signal already made.
type Reconciler struct {
	machine  *presence.Machine
	sampler  Sampler
	settings *config.Settings

	// cycleMu enforces a single in-flight cycle.
	cycleMu sync.Mutex
}

// New builds a reconciler over the presence machine.
func New(machine *presence.Machine, sampler Sampler, settings *config.Settings) *Reconciler {
	return &Reconciler{
		machine:  machine,
		sampler:  sampler,
		settings: settings,
	}
}

// Run executes cycles on the configured interval until ctx is done.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.settings.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Cycle(ctx)
		}
	}
}

// Cycle runs one reconciliation pass. Overlapping calls are skipped
// rather than queued.
func (r *Reconciler) Cycle(ctx context.Context) {
	if !r.cycleMu.TryLock() {
		logx.Debug("reconcile cycle already in flight, skipping")
		return
	}
	defer r.cycleMu.Unlock()

	if len(r.settings.Locations) == 0 {
		return
	}

	sampleCtx, cancel := context.WithTimeout(ctx, r.settings.SampleTimeout)
	pos, err := r.sampler.SamplePosition(sampleCtx)
	cancel()
	if err != nil {
		// Timed-out or failed sample: skip the cycle, no correction.
		logx.Debug("position sample unavailable, skipping cycle", "reason", err)
		return
	}

	within, nearest := r.locate(pos)
	present := r.machine.Present()

	switch {
	case within && !present:
		// Give the primary boundary signal a chance to land first;
		// a false entry correction creates an unwanted visit.
		select {
		case <-time.After(r.settings.EntryGraceDelay):
		case <-ctx.Done():
			return
		}
		if r.machine.Present() {
			// The primary signal arrived during the grace delay.
			return
		}
		logx.Info("correcting missed entry", "location", nearest.Name)
		r.machine.Enter(ctx, nearest.Coordinate)

	case !within && present:
		// A missed exit is corrected immediately; the validity
		// threshold already filters slightly-short visits.
		logx.Info("correcting missed exit")
		r.machine.Exit(ctx)
	}
}

// locate returns whether pos is inside any geofence, and the nearest
// configured location either way.
func (r *Reconciler) locate(pos models.Coordinate) (bool, models.OfficeLocation) {
	var nearest models.OfficeLocation
	within := false
	best := -1.0

	for _, loc := range r.settings.Locations {
		d := loc.Coordinate.DistanceTo(pos)
		if best < 0 || d < best {
			best = d
			nearest = loc
		}
		if d <= loc.RadiusMeters {
			within = true
		}
	}
	return within, nearest
}
