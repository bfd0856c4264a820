// ABOUTME: Transition notification interface for external consumers
// ABOUTME: Fire-and-forget; the default implementation just logs
package notify

import (
	"github.com/harperreed/officelog/logx"
	"github.com/harperreed/officelog/models"
)

// Transition describes one presence change.
type Transition struct {
	Prior string
	New   string
	Visit *models.Visit
}

// Presence state names carried in transitions.
const (
	StateAway    = "away"
	StatePresent = "present"
)

// Notifier receives confirmed presence transitions. Implementations
// must not block; delivery is best-effort.
type Notifier interface {
	Notify(t Transition)
}

// LogNotifier writes transitions to the log.
type LogNotifier struct{}

func (LogNotifier) Notify(t Transition) {
	if t.Visit != nil {
		logx.Info("presence transition", "from", t.Prior, "to", t.New, "visit", t.Visit.ID)
		return
	}
	logx.Info("presence transition", "from", t.Prior, "to", t.New)
}

// NopNotifier discards transitions.
type NopNotifier struct{}

func (NopNotifier) Notify(Transition) {}
