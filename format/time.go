package format

import (
	"fmt"
	"time"
)

// StepDuration formats the wall time of a pipeline step: milliseconds below
// one second, otherwise seconds with one decimal, otherwise minutes and
// seconds.
func StepDuration(d time.Duration) string {
	switch {
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		d = d.Round(time.Second)
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}
