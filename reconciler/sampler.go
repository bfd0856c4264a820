// ABOUTME: File-based position sampler fed by an external location agent
// ABOUTME: Rejects stale fixes so the reconciler skips rather than corrects blindly
package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/harperreed/officelog/models"
)

// positionFix is the on-disk format written by the location agent.
type positionFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

// FileSampler reads position fixes from a JSON file that an external
// location agent keeps current. A fix older than MaxAge is treated as
// no fix at all.
type FileSampler struct {
	Path   string
	MaxAge time.Duration

	// now is swappable for tests.
	now func() time.Time
}

// NewFileSampler builds a sampler over the agent's fix file.
func NewFileSampler(path string, maxAge time.Duration) *FileSampler {
	if maxAge <= 0 {
		maxAge = 10 * time.Minute
	}
	return &FileSampler{Path: path, MaxAge: maxAge, now: time.Now}
}

// SamplePosition reads the latest fix.
func (s *FileSampler) SamplePosition(ctx context.Context) (models.Coordinate, error) {
	if err := ctx.Err(); err != nil {
		return models.Coordinate{}, err
	}

	data, err := os.ReadFile(s.Path)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("no position fix available: %w", err)
	}

	var fix positionFix
	if err := json.Unmarshal(data, &fix); err != nil {
		return models.Coordinate{}, fmt.Errorf("unreadable position fix: %w", err)
	}

	if s.now().Sub(fix.Timestamp) > s.MaxAge {
		return models.Coordinate{}, fmt.Errorf("position fix is stale (from %s)", fix.Timestamp)
	}

	return models.Coordinate{Latitude: fix.Latitude, Longitude: fix.Longitude}, nil
}
