package provider

import (
	"context"
	"strings"
	"time"
)

// DefaultCoalesceInterval batches stream deltas into roughly one UI update per frame.
const DefaultCoalesceInterval = 16 * time.Millisecond

// Snapshot is a coalesced view of a stream: the full text received so far.
// The last Snapshot on a channel has Done set, or Err when the stream failed.
type Snapshot struct {
	Text string
	Done bool
	Err  error
}

// Coalesce folds rapid text deltas from in into at most one Snapshot per
// interval. Pending text is flushed before the final Snapshot, so consumers
// never miss content. The returned channel closes after the final Snapshot.
func Coalesce(ctx context.Context, in <-chan Event, interval time.Duration) <-chan Snapshot {
	if interval <= 0 {
		interval = DefaultCoalesceInterval
	}
	out := make(chan Snapshot, 1)

	go func() {
		defer close(out)

		var (
			full    strings.Builder
			pending bool
			timer   *time.Timer
			tick    <-chan time.Time
		)
		stop := func() {
			if timer != nil {
				timer.Stop()
				timer, tick = nil, nil
			}
		}
		emit := func(s Snapshot) bool {
			select {
			case out <- s:
				return true
			case <-ctx.Done():
				return false
			}
		}
		flush := func() bool {
			if !pending {
				return true
			}
			pending = false
			return emit(Snapshot{Text: full.String()})
		}

		for {
			select {
			case ev, ok := <-in:
				if !ok {
					stop()
					if flush() {
						emit(Snapshot{Text: full.String(), Done: true})
					}
					return
				}
				switch ev.Type {
				case EventTextDelta:
					full.WriteString(ev.TextDelta)
					pending = true
					if tick == nil {
						timer = time.NewTimer(interval)
						tick = timer.C
					}
				case EventDone:
					stop()
					if flush() {
						emit(Snapshot{Text: full.String(), Done: true})
					}
					return
				case EventError:
					stop()
					if flush() {
						emit(Snapshot{Text: full.String(), Err: ev.Error})
					}
					return
				}
			case <-tick:
				timer, tick = nil, nil
				if !flush() {
					return
				}
			case <-ctx.Done():
				stop()
				return
			}
		}
	}()

	return out
}
