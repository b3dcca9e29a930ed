// Package dispatch sends requests to the primary provider and, when one is
// configured, races a fallback provider against it.
//
// Complete starts the primary at once and arms a timer. If the timer fires
// first the fallback is started too and the first non-empty success wins.
// If the primary fails (or answers empty) before the timer, the fallback is
// tried immediately. There are no retries beyond that single fallback attempt.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quillmate/quillmate/internal/provider"
)

// Dispatcher routes requests to a primary provider with an optional fallback.
// It is safe for concurrent use as long as the providers are.
type Dispatcher struct {
	primary  provider.Provider
	fallback provider.Provider
	timeout  time.Duration
	log      *zap.Logger
}

// New returns a dispatcher. A nil fallback disables the race; a non-positive
// timeout selects provider.DefaultFallbackTimeout.
func New(primary, fallback provider.Provider, timeout time.Duration, log *zap.Logger) *Dispatcher {
	if timeout <= 0 {
		timeout = provider.DefaultFallbackTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{primary: primary, fallback: fallback, timeout: timeout, log: log}
}

// FromSettings builds the providers described by s. In test mode both slots
// are served by the mock provider and no fallback is raced.
func FromSettings(s provider.Settings, opts provider.Options) (*Dispatcher, error) {
	if s.TestMode {
		return New(provider.NewMockProvider(opts), nil, s.FallbackTimeout, opts.Logger), nil
	}

	primary, err := provider.New(s.Primary, opts)
	if err != nil {
		return nil, fmt.Errorf("primary provider: %w", err)
	}
	var fallback provider.Provider
	if s.Fallback != nil {
		fallback, err = provider.New(*s.Fallback, opts)
		if err != nil {
			return nil, fmt.Errorf("fallback provider: %w", err)
		}
	}
	return New(primary, fallback, s.FallbackTimeout, opts.Logger), nil
}

// Primary returns the provider every request goes to first.
func (d *Dispatcher) Primary() provider.Provider { return d.primary }

// FallbackEnabled reports whether a fallback provider is configured.
func (d *Dispatcher) FallbackEnabled() bool { return d.fallback != nil }

// Timeout is how long the primary runs alone before the fallback joins.
func (d *Dispatcher) Timeout() time.Duration { return d.timeout }

type result struct {
	text string
	err  error
}

func (r result) ok() bool { return r.err == nil && r.text != "" }

// Complete returns the first non-empty successful completion.
//
// When neither branch produces one, the primary's error is returned if it
// failed, else the fallback's error, else the primary's empty text.
// The losing branch is cancelled once Complete returns instead of being left
// to finish in the background; its result would be discarded anyway, and
// cancelling closes its HTTP request.
func (d *Dispatcher) Complete(ctx context.Context, req *provider.ChatRequest) (string, error) {
	if d.fallback == nil {
		return d.primary.Complete(ctx, req)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	start := time.Now()
	primaryCh := launch(ctx, d.primary, req)
	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case pr := <-primaryCh:
		if pr.ok() {
			return pr.text, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		d.log.Warn("primary provider failed, trying fallback",
			zap.String("primary", d.primary.Name()),
			zap.String("fallback", d.fallback.Name()),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(emptyAsError(pr)))
		return d.fallback.Complete(ctx, forFallback(req))
	case <-timer.C:
	case <-ctx.Done():
		return "", ctx.Err()
	}

	d.log.Info("primary provider slow, racing fallback",
		zap.String("primary", d.primary.Name()),
		zap.String("fallback", d.fallback.Name()),
		zap.Duration("timeout", d.timeout))
	fallbackCh := launch(ctx, d.fallback, forFallback(req))

	var pr, fr *result
	for pr == nil || fr == nil {
		select {
		case r := <-primaryCh:
			if r.ok() {
				return r.text, nil
			}
			pr, primaryCh = &r, nil
		case r := <-fallbackCh:
			if r.ok() {
				d.log.Info("fallback provider won the race", zap.String("fallback", d.fallback.Name()))
				return r.text, nil
			}
			// An empty or failed fallback never ends the race while the
			// primary is still in flight.
			fr, fallbackCh = &r, nil
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return settle(*pr, *fr)
}

// launch runs p.Complete in its own goroutine. The channel is buffered so the
// goroutine can exit even when nobody reads its result.
func launch(ctx context.Context, p provider.Provider, req *provider.ChatRequest) <-chan result {
	ch := make(chan result, 1)
	go func() {
		text, err := p.Complete(ctx, req)
		ch <- result{text: text, err: err}
	}()
	return ch
}

func settle(pr, fr result) (string, error) {
	switch {
	case pr.err != nil && fr.err != nil:
		return "", fmt.Errorf("%w; fallback also failed: %v", pr.err, fr.err)
	case pr.err != nil:
		return "", pr.err
	case fr.err != nil:
		return "", fr.err
	default:
		return pr.text, nil
	}
}

// forFallback copies req without the model override, so the fallback
// provider answers with its own configured model.
func forFallback(req *provider.ChatRequest) *provider.ChatRequest {
	r := *req
	r.Model = ""
	return &r
}

func emptyAsError(r result) error {
	if r.err != nil {
		return r.err
	}
	return errors.New("empty response")
}
