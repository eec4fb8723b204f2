package log

import (
	"fmt"

	"go.uber.org/zap"
)

// NewLogger returns a production zap logger. Verbose lowers the level to debug.
func NewLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zap.DPanicLevel),
	)
}

func MustNewLogger(verbose bool) *zap.Logger {
	l, err := NewLogger(verbose)
	if err != nil {
		panic(fmt.Errorf("could not create new logger: %w", err))
	}
	return l
}
