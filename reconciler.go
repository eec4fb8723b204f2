package ddnsd

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	DefaultTick    = time.Second
	DefaultTimeout = 10 * time.Second
)

// Reconciler keeps a set of DNS records pointing at the address reported by a Resolver.
//
// A Reconciler owns at most one background loop at a time.
// Each call to Start after the previous loop stopped creates a fresh loop with its own stop signal.
type Reconciler struct {
	provider Provider
	resolver Resolver
	targets  []Target

	interval time.Duration
	tick     time.Duration
	timeout  time.Duration
	sink     Sink
	logger   *zap.Logger
	now      func() time.Time
	name     string
	metrics  instanceMetrics

	cycleMu sync.Mutex // one cycle at a time

	mu   sync.Mutex
	loop *loop
}

// New returns a Reconciler for targets.
// Configuration problems such as a zero interval are reported by Start, not New,
// so that a misconfigured Reconciler can still run single cycles and report its state.
func New(provider Provider, resolver Resolver, targets []Target, options ...Option) (*Reconciler, error) {
	r := &Reconciler{
		provider: provider,
		resolver: resolver,
		targets:  append([]Target(nil), targets...),
		tick:     DefaultTick,
		timeout:  DefaultTimeout,
		sink:     discardSink,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for i, opt := range options {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("ddnsd.New: option %d returned an error: %w", i, err)
		}
	}
	if r.name == "" {
		r.name = nextReconcilerName()
	}
	r.metrics = newInstanceMetrics(r.name)
	// propagate the logger to dependencies registered before WithLogger was applied
	propagateLogger(r.logger, r.provider, r.resolver)
	return r, nil
}

type Option func(*Reconciler) error

// WithInterval sets the wait between cycles. The loop only starts with a positive interval.
func WithInterval(d time.Duration) Option {
	return func(r *Reconciler) error {
		r.interval = d
		return nil
	}
}

// WithTick sets the countdown granularity. The stop signal is observed once per tick.
func WithTick(d time.Duration) Option {
	return func(r *Reconciler) error {
		if d <= 0 {
			return fmt.Errorf("tick must be positive, got %s", d)
		}
		r.tick = d
		return nil
	}
}

// WithTimeout bounds each network call made during a cycle.
func WithTimeout(d time.Duration) Option {
	return func(r *Reconciler) error {
		if d <= 0 {
			return fmt.Errorf("timeout must be positive, got %s", d)
		}
		r.timeout = d
		return nil
	}
}

// WithSink sets the consumer of results, ticks and state changes.
// Use Sinks to report to more than one.
func WithSink(s Sink) Option {
	return func(r *Reconciler) error {
		if s == nil {
			s = discardSink
		}
		r.sink = s
		return nil
	}
}

// WithName sets the value of the reconciler label on this instance's metrics.
// Without it each Reconciler is numbered in order of creation.
func WithName(name string) Option {
	return func(r *Reconciler) error {
		if name == "" {
			return fmt.Errorf("name must not be empty")
		}
		r.name = name
		return nil
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(r *Reconciler) error {
		if logger == nil {
			logger = zap.NewNop()
		}
		r.logger = logger
		return nil
	}
}

// UsingHTTPClient hands httpclient to the resolver and provider when they make HTTP requests.
func UsingHTTPClient(httpclient *http.Client) Option {
	return func(r *Reconciler) error {
		if httpclient == nil {
			return fmt.Errorf("nil http client")
		}
		type setHTTPClient interface {
			SetHTTPClient(*http.Client)
		}
		if hc, ok := r.resolver.(setHTTPClient); ok {
			hc.SetHTTPClient(httpclient)
		}
		if hc, ok := r.provider.(setHTTPClient); ok {
			hc.SetHTTPClient(httpclient)
		}
		return nil
	}
}

func propagateLogger(logger *zap.Logger, deps ...any) {
	type setLogger interface {
		SetLogger(*zap.Logger)
	}
	for _, d := range deps {
		if sl, ok := d.(setLogger); ok {
			sl.SetLogger(logger)
		}
	}
}

// Validate reports every configuration problem that prevents the loop from starting.
func (r *Reconciler) Validate() error {
	var err error
	if r.provider == nil {
		err = multierr.Append(err, &ConfigError{Field: "provider", Reason: "is not set"})
	}
	if r.resolver == nil {
		err = multierr.Append(err, &ConfigError{Field: "resolver", Reason: "is not set"})
	}
	if len(r.targets) == 0 {
		err = multierr.Append(err, &ConfigError{Field: "records", Reason: "list is empty"})
	}
	if r.interval <= 0 {
		err = multierr.Append(err, &ConfigError{Field: "interval", Reason: "must be greater than zero"})
	}
	return err
}

// Start begins the wait/check loop in a new goroutine and returns immediately.
// The first cycle runs after one full interval.
//
// Start is a no-op while a loop is active. Cancelling ctx stops the loop like Stop.
// A configuration error leaves the Reconciler Idle.
func (r *Reconciler) Start(ctx context.Context) error {
	if err := r.Validate(); err != nil {
		r.logger.Error("reconcile loop not started", zap.Error(err))
		return err
	}
	r.mu.Lock()
	if r.loop != nil && !r.loop.finished() {
		r.mu.Unlock()
		r.logger.Debug("reconcile loop already running")
		return nil
	}
	l := newLoop()
	l.remaining.Store(int64(r.interval))
	l.state.Store(int32(Waiting))
	r.loop = l
	r.mu.Unlock()

	// the loop is Waiting from the moment Start returns
	r.metrics.state.Set(float64(Waiting))
	r.emit(Event{Kind: StateEvent, State: Waiting})
	go r.run(ctx, l)
	return nil
}

// Stop asks the active loop to stop. It returns immediately.
// A cycle in progress completes and no further cycle begins.
func (r *Reconciler) Stop() {
	if l := r.current(); l != nil {
		l.requestStop()
	}
}

// Wait blocks until the active loop has stopped.
func (r *Reconciler) Wait() {
	if l := r.current(); l != nil {
		<-l.done
	}
}

// State returns the state of the most recent loop, or Idle if none was started.
func (r *Reconciler) State() State {
	if l := r.current(); l != nil {
		return State(l.state.Load())
	}
	return Idle
}

// Remaining returns the time left until the next cycle while Waiting.
func (r *Reconciler) Remaining() time.Duration {
	if l := r.current(); l != nil {
		return time.Duration(l.remaining.Load())
	}
	return 0
}

func (r *Reconciler) current() *loop {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.loop
}

type loop struct {
	state     atomic.Int32
	remaining atomic.Int64
	stopOnce  sync.Once
	stop      chan struct{}
	done      chan struct{}
}

func newLoop() *loop {
	return &loop{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

func (l *loop) requestStop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

func (l *loop) stopping() bool {
	select {
	case <-l.stop:
		return true
	default:
		return false
	}
}

func (l *loop) finished() bool {
	select {
	case <-l.done:
		return true
	default:
		return false
	}
}

func (r *Reconciler) run(ctx context.Context, l *loop) {
	defer close(l.done)
	defer r.setState(l, Stopped)

	r.logger.Info("reconcile loop started",
		zap.Duration("interval", r.interval),
		zap.Int("records", len(r.targets)),
	)
	for r.wait(ctx, l) {
		r.cycle(ctx, l)
	}
	l.remaining.Store(0)
	r.metrics.countdown.Set(0)
	r.logger.Info("reconcile loop stopped")
}

// wait counts down one interval and reports whether the loop should run a cycle.
func (r *Reconciler) wait(ctx context.Context, l *loop) bool {
	if l.stopping() || ctx.Err() != nil {
		return false
	}
	l.remaining.Store(int64(r.interval))
	r.setState(l, Waiting)

	ticker := time.NewTicker(r.tick)
	defer ticker.Stop()

	for remaining := r.interval; remaining > 0; remaining -= r.tick {
		l.remaining.Store(int64(remaining))
		r.metrics.countdown.Set(remaining.Seconds())
		r.emit(Event{Kind: TickEvent, State: Waiting, Remaining: remaining})
		select {
		case <-l.stop:
			return false
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
	l.remaining.Store(0)
	r.metrics.countdown.Set(0)
	return !l.stopping()
}

func (r *Reconciler) setState(l *loop, s State) {
	if l == nil {
		return
	}
	if State(l.state.Swap(int32(s))) == s {
		return
	}
	r.metrics.state.Set(float64(s))
	r.emit(Event{Kind: StateEvent, State: s})
}

func (r *Reconciler) emit(e Event) {
	if e.Time.IsZero() {
		e.Time = r.now()
	}
	r.sink.Handle(e)
}
