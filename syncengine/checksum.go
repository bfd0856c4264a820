// ABOUTME: Content checksum for detecting externally-modified calendar events
// ABOUTME: 64-bit xxhash over a canonical field concatenation
package syncengine

import (
	"fmt"
	"strconv"
	"time"

	"github.com/cespare/xxhash/v2"

	"github.com/harperreed/officelog/models"
)

// Checksum fingerprints the human-visible event fields. Identical
// content always hashes identically, so a mismatch against the last
// written value means someone else edited the event.
func Checksum(content models.EventContent) string {
	canonical := content.Title + "|" +
		content.Start.UTC().Format(time.RFC3339) + "|" +
		content.End.UTC().Format(time.RFC3339) + "|" +
		strconv.FormatBool(content.AllDay) + "|" +
		content.Location

	return fmt.Sprintf("%016x", xxhash.Sum64String(canonical))
}
