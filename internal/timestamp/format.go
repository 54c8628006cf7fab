// Package timestamp renders recording offsets for logs, prompts and transcript headers.
package timestamp

import "fmt"

// Format converts milliseconds to "MM:SS", or "HH:MM:SS" once the offset
// reaches an hour. Sub-second remainders are truncated.
func Format(ms int64) string {
	totalSeconds := ms / 1000
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	seconds := totalSeconds % 60

	if hours > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
	}
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}
