package ddnsd

import (
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// LogSink returns a Sink that writes results as structured zap entries.
// Ticks and state changes are logged at debug level.
func LogSink(logger *zap.Logger) Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &logSink{logger: logger}
}

type logSink struct {
	logger *zap.Logger
}

func (s *logSink) Handle(e Event) {
	switch e.Kind {
	case TickEvent:
		s.logger.Debug("waiting for next cycle", zap.Duration("remaining", e.Remaining))
	case StateEvent:
		s.logger.Debug("state changed", zap.Stringer("state", e.State))
	case CycleEvent:
		s.logger.Debug("cycle complete",
			zap.Int("results", len(e.Results)),
			zap.Bool("updated", e.Results.Updated()),
		)
	case ResultEvent:
		r := e.Result
		fields := []zap.Field{
			zap.Stringer("outcome", r.Outcome),
			zap.String("address", r.Address),
		}
		if r.Target != (Target{}) {
			fields = append(fields, zap.Stringer("record", r.Target), zap.String("type", r.Target.Type))
		}
		if r.Current != "" {
			fields = append(fields, zap.String("current", r.Current))
		}
		switch r.Outcome {
		case Unchanged:
			s.logger.Info("record already up to date", fields...)
		case Updated:
			s.logger.Info("record updated", fields...)
		default:
			s.logger.Error("reconcile failed", append(fields, zap.Error(r.Err))...)
		}
	}
}

// LineSink returns a Sink that writes one timestamped line per result to w.
func LineSink(w io.Writer) Sink {
	return &lineSink{w: w}
}

const lineTimeFormat = "2006-01-02 15:04:05"

type lineSink struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *lineSink) Handle(e Event) {
	if e.Kind != ResultEvent {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fmt.Fprintf(s.w, "%s %s\n", e.Time.Format(lineTimeFormat), resultLine(e.Result))
}

func resultLine(r Result) string {
	if r.Target == (Target{}) {
		return fmt.Sprintf("Error: Failed to get public IP: %s", r.Err)
	}
	switch r.Outcome {
	case Unchanged:
		return fmt.Sprintf("Info: The IP address already matches the %s record for %s (%s).", r.Target.Type, r.Target, r.Current)
	case Updated:
		return fmt.Sprintf("Success: DNS record for %s updated successfully (%s -> %s).", r.Target, r.Current, r.Address)
	case ReadFailed:
		return fmt.Sprintf("Error: Could not retrieve the DNS record for %s: %s", r.Target, r.Err)
	case WriteFailed:
		return fmt.Sprintf("Error: Failed to update DNS record for %s: %s", r.Target, r.Err)
	}
	return fmt.Sprintf("Error: unknown outcome for %s", r.Target)
}
