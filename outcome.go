package ddnsd

import (
	"time"

	"go.uber.org/multierr"
)

// Outcome is the categorical result of reconciling one target in one cycle.
type Outcome int

const (
	Unchanged Outcome = iota
	Updated
	ReadFailed
	WriteFailed
)

func (o Outcome) String() string {
	switch o {
	case Unchanged:
		return "unchanged"
	case Updated:
		return "updated"
	case ReadFailed:
		return "read-failed"
	case WriteFailed:
		return "write-failed"
	}
	return "unknown"
}

// Failed reports whether the outcome carries an error.
func (o Outcome) Failed() bool {
	return o == ReadFailed || o == WriteFailed
}

// Result is the outcome for one target in one cycle.
// A failed resolve produces a single Result with a zero Target.
type Result struct {
	Time    time.Time
	Target  Target
	Outcome Outcome
	Address string // resolved address
	Current string // address stored at the provider before the cycle
	Err     error
}

// Results is the set of results produced by one cycle.
type Results []Result

// Updated reports whether any target was written successfully.
func (rs Results) Updated() bool {
	for _, r := range rs {
		if r.Outcome == Updated {
			return true
		}
	}
	return false
}

// Err combines the errors of all failed results.
func (rs Results) Err() error {
	var err error
	for _, r := range rs {
		if r.Outcome.Failed() {
			err = multierr.Append(err, r.Err)
		}
	}
	return err
}
