package main

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/Travis-Britz/ddnsd"
)

// countdown renders the time to the next check on a single terminal line.
type countdown struct {
	mu sync.Mutex
	w  io.Writer
}

func newCountdown(w io.Writer) *countdown {
	return &countdown{w: w}
}

func (c *countdown) Handle(e ddnsd.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch e.Kind {
	case ddnsd.TickEvent:
		fmt.Fprintf(c.w, "\rNext check in: %s", formatRemaining(e.Remaining))
	case ddnsd.StateEvent:
		if e.State == ddnsd.Checking {
			fmt.Fprint(c.w, "\rChecking...          \n")
		}
	case ddnsd.CycleEvent:
		if allUnchanged(e.Results) {
			fmt.Fprintf(c.w, "No update necessary at %s\n", e.Time.Format("2006-01-02 15:04:05"))
		}
		fmt.Fprintln(c.w, "Update check completed.")
	}
}

func allUnchanged(results ddnsd.Results) bool {
	if len(results) == 0 {
		return false
	}
	for _, r := range results {
		if r.Outcome != ddnsd.Unchanged {
			return false
		}
	}
	return true
}

// formatRemaining renders d as MM:SS, rounding partial seconds up.
func formatRemaining(d time.Duration) string {
	secs := int((d + time.Second - 1) / time.Second)
	if secs < 0 {
		secs = 0
	}
	return fmt.Sprintf("%02d:%02d", secs/60, secs%60)
}
