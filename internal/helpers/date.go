package helpers

import (
	"fmt"
	"time"
)

// FormatRelativeTime formats a timestamp in a simple, CLI-friendly format
// similar to Docker and Kubernetes tools (e.g., "2 minutes ago", "3 hours ago").
func FormatRelativeTime(t time.Time) string {
	return FormatRelativeTimeAt(t, time.Now())
}

// FormatRelativeTimeAt allows injecting the reference time.
// This is primarily useful for testing with predictable time values.
func FormatRelativeTimeAt(t, now time.Time) string {
	elapsed := now.Sub(t)

	if elapsed < 0 {
		return formatDuration(-elapsed) + " from now"
	}
	return formatDuration(elapsed) + " ago"
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		seconds := int(d.Seconds())
		if seconds <= 1 {
			return "1 second"
		}
		return fmt.Sprintf("%d seconds", seconds)
	}

	if d < time.Hour {
		minutes := int(d.Minutes())
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	}

	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}

	if d < 30*24*time.Hour {
		days := int(d.Hours() / 24)
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}

	if d < 365*24*time.Hour {
		months := int(d.Hours() / (24 * 30)) // Rough approximation
		if months == 1 {
			return "1 month"
		}
		return fmt.Sprintf("%d months", months)
	}

	years := int(d.Hours() / (24 * 365))
	if years == 1 {
		return "1 year"
	}
	return fmt.Sprintf("%d years", years)
}
