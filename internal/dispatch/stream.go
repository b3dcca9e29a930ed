package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/quillmate/quillmate/internal/provider"
)

// Stream opens a streaming reply. With a fallback configured, the fallback
// stream is used when the primary fails before its first event, reports an
// error as its first event, ends without any text, or sends nothing within
// the dispatcher timeout.
// Once the primary has produced output it is never abandoned.
func (d *Dispatcher) Stream(ctx context.Context, req *provider.ChatRequest) (<-chan provider.Event, error) {
	if d.fallback == nil {
		return d.primary.Chat(ctx, req)
	}

	pctx, pcancel := context.WithCancel(ctx)
	ch, err := d.primary.Chat(pctx, req)
	if err != nil {
		pcancel()
		return d.streamFallback(ctx, req, err)
	}

	timer := time.NewTimer(d.timeout)
	defer timer.Stop()

	select {
	case ev, ok := <-ch:
		switch {
		case !ok:
			pcancel()
			return d.streamFallback(ctx, req, errors.New("stream closed without events"))
		case ev.Type == provider.EventDone:
			// Providers never emit empty deltas, so Done first means no text.
			pcancel()
			return d.streamFallback(ctx, req, errors.New("stream finished without text"))
		case ev.Type == provider.EventError:
			pcancel()
			return d.streamFallback(ctx, req, ev.Error)
		}
		return relay(pctx, pcancel, ev, ch), nil
	case <-timer.C:
		pcancel()
		return d.streamFallback(ctx, req, fmt.Errorf("no response within %s", d.timeout))
	case <-ctx.Done():
		pcancel()
		return nil, ctx.Err()
	}
}

// streamFallback opens the fallback stream after the primary was abandoned
// because of cause. A fallback setup failure is reported together with cause.
func (d *Dispatcher) streamFallback(ctx context.Context, req *provider.ChatRequest, cause error) (<-chan provider.Event, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	d.log.Warn("primary stream failed, switching to fallback",
		zap.String("primary", d.primary.Name()),
		zap.String("fallback", d.fallback.Name()),
		zap.Error(cause))
	ch, err := d.fallback.Chat(ctx, forFallback(req))
	if err != nil {
		return nil, fmt.Errorf("%w; fallback also failed: %v", cause, err)
	}
	return ch, nil
}

// relay re-emits first followed by the rest of in. It releases the primary's
// context when the stream ends.
func relay(ctx context.Context, cancel context.CancelFunc, first provider.Event, in <-chan provider.Event) <-chan provider.Event {
	out := make(chan provider.Event, 16)
	go func() {
		defer close(out)
		defer cancel()
		select {
		case out <- first:
		case <-ctx.Done():
			return
		}
		for ev := range in {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}
