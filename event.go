package ddnsd

import "time"

// State is the position of a loop in its lifecycle.
type State int32

const (
	Idle State = iota
	Waiting
	Checking
	Updating
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Waiting:
		return "waiting"
	case Checking:
		return "checking"
	case Updating:
		return "updating"
	case Stopped:
		return "stopped"
	}
	return "unknown"
}

// EventKind tells a Sink which fields of an Event are meaningful.
type EventKind int

const (
	// ResultEvent carries one Result.
	ResultEvent EventKind = iota
	// TickEvent carries the time remaining until the next cycle.
	TickEvent
	// StateEvent carries the state the loop just entered.
	StateEvent
	// CycleEvent carries every Result of a finished cycle.
	CycleEvent
)

// Event is emitted by the Reconciler to its Sink.
type Event struct {
	Time      time.Time
	Kind      EventKind
	State     State
	Remaining time.Duration
	Result    Result
	Results   Results
}

// Sink consumes events.
// Handle is called from the loop goroutine and should return quickly.
type Sink interface {
	Handle(Event)
}

// SinkFunc adapts an ordinary function to the Sink interface.
type SinkFunc func(Event)

func (f SinkFunc) Handle(e Event) { f(e) }

// Sinks returns a Sink that forwards every event to each of sinks in order.
// Nil sinks are skipped.
func Sinks(sinks ...Sink) Sink {
	var nonNil multiSink
	for _, s := range sinks {
		if s != nil {
			nonNil = append(nonNil, s)
		}
	}
	return nonNil
}

type multiSink []Sink

func (m multiSink) Handle(e Event) {
	for _, s := range m {
		s.Handle(e)
	}
}

var discardSink = SinkFunc(func(Event) {})
