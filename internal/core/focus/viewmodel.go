package focus

import "fmt"

// ViewModel is the rendering payload pushed to the display surface.
type ViewModel struct {
	TaskName        string
	TimeSpent       string
	DistractionTime string
	Distracted      bool
}

// FormatSeconds renders a second counter as zero-padded HH:MM:SS. Negative
// values clamp to zero.
func FormatSeconds(total int) string {
	if total < 0 {
		total = 0
	}
	hours := total / 3600
	minutes := (total % 3600) / 60
	seconds := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", hours, minutes, seconds)
}
