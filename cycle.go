package ddnsd

import (
	"context"
	"errors"
	"fmt"
	"net/netip"

	"go.uber.org/zap"
)

// Cycle runs one resolve/compare/write pass over every target and returns one Result per target,
// or a single Result with a zero Target when the address could not be resolved.
//
// Every Result is also sent to the sink as it is produced.
// Cycle may be called whether or not the loop is running; cycles never overlap.
func (r *Reconciler) Cycle(ctx context.Context) Results {
	return r.cycle(ctx, nil)
}

func (r *Reconciler) cycle(ctx context.Context, l *loop) Results {
	r.cycleMu.Lock()
	defer r.cycleMu.Unlock()

	start := r.now()
	r.setState(l, Checking)

	results := r.reconcile(ctx, l)

	end := r.now()
	r.metrics.cycleDuration.Observe(end.Sub(start).Seconds())
	r.metrics.lastCycle.Set(float64(end.Unix()))
	r.emit(Event{Time: end, Kind: CycleEvent, Results: results})
	return results
}

func (r *Reconciler) reconcile(ctx context.Context, l *loop) Results {
	addr, err := r.resolve(ctx)
	if err != nil {
		res := Result{Time: r.now(), Outcome: ReadFailed, Err: err}
		r.report(res)
		return Results{res}
	}
	r.logger.Debug("resolved address", zap.String("address", addr))

	results := make(Results, 0, len(r.targets))
	for _, t := range r.targets {
		res := r.reconcileTarget(ctx, l, t, addr)
		r.report(res)
		results = append(results, res)
	}
	return results
}

func (r *Reconciler) resolve(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	addr, err := r.resolver.Resolve(ctx)
	if err != nil {
		var ne *NetworkError
		if errors.As(err, &ne) {
			return "", err
		}
		return "", &NetworkError{Op: "resolve", Err: err}
	}
	if addr == "" {
		return "", &NetworkError{Op: "resolve", Err: errors.New("resolver returned an empty address")}
	}
	return addr, nil
}

func (r *Reconciler) reconcileTarget(ctx context.Context, l *loop, t Target, addr string) Result {
	res := Result{Target: t, Address: addr}
	r.setState(l, Checking)

	current, err := r.read(ctx, t)
	if err != nil {
		res.Time, res.Outcome, res.Err = r.now(), ReadFailed, err
		return res
	}
	res.Current = current
	if current == addr {
		res.Time, res.Outcome = r.now(), Unchanged
		return res
	}

	r.setState(l, Updating)
	err = r.write(ctx, t, addr)
	if err != nil {
		res.Time, res.Outcome, res.Err = r.now(), WriteFailed, err
		return res
	}
	res.Time, res.Outcome = r.now(), Updated
	return res
}

func (r *Reconciler) read(ctx context.Context, t Target) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	current, err := r.provider.Read(ctx, t)
	if err != nil {
		return "", classify("read "+t.String(), err)
	}
	if current == "" {
		return "", &ProviderError{Op: "read " + t.String(), Err: errors.New("record has no address")}
	}
	return current, nil
}

func (r *Reconciler) write(ctx context.Context, t Target, addr string) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if err := r.provider.Write(ctx, t, addr); err != nil {
		return classify("write "+t.String(), err)
	}
	return nil
}

func (r *Reconciler) report(res Result) {
	r.metrics.results.WithLabelValues(res.Outcome.String()).Inc()
	r.emit(Event{Time: res.Time, Kind: ResultEvent, Result: res})
}

// parseAddr validates s as an IP address without canonicalising it.
func parseAddr(op, s string) (string, error) {
	if _, err := netip.ParseAddr(s); err != nil {
		return "", &NetworkError{Op: op, Err: fmt.Errorf("not an IP address: %q", s)}
	}
	return s, nil
}
