package engine

import (
	"time"

	"github.com/journeyhq/journey/pkg/models"
)

// ComputeWait returns the wake time for a delay node. Minutes, hours, and
// days sum into one duration. A zero-duration delay still pauses the
// enrollment for one resumer cycle rather than falling through.
func ComputeWait(node *models.Node, now time.Time) time.Time {
	totalMinutes := node.DelayMinutes + node.DelayHours*60 + node.DelayDays*24*60

	return now.Add(time.Duration(totalMinutes) * time.Minute)
}
