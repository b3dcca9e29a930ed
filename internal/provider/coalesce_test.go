package provider

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestCoalesce_BatchesBurst(t *testing.T) {
	in := make(chan Event, 16)
	for _, d := range []string{"a", "b", "c", "d", "e"} {
		in <- Event{Type: EventTextDelta, TextDelta: d}
	}

	out := Coalesce(context.Background(), in, 50*time.Millisecond)

	first := <-out
	if first.Text != "abcde" || first.Done {
		t.Errorf("first snapshot = %+v, want one batched update", first)
	}

	in <- Event{Type: EventTextDelta, TextDelta: "f"}
	in <- Event{Type: EventDone}
	close(in)

	var snaps []Snapshot
	for s := range out {
		snaps = append(snaps, s)
	}
	if len(snaps) != 2 {
		t.Fatalf("got %d snapshots after done, want flush + final: %+v", len(snaps), snaps)
	}
	if snaps[0].Text != "abcdef" || snaps[0].Done {
		t.Errorf("flush = %+v", snaps[0])
	}
	if snaps[1].Text != "abcdef" || !snaps[1].Done {
		t.Errorf("final = %+v", snaps[1])
	}
}

func TestCoalesce_RateLimited(t *testing.T) {
	in := make(chan Event)
	out := Coalesce(context.Background(), in, 20*time.Millisecond)

	go func() {
		defer close(in)
		for i := 0; i < 50; i++ {
			in <- Event{Type: EventTextDelta, TextDelta: "x"}
			time.Sleep(time.Millisecond)
		}
		in <- Event{Type: EventDone}
	}()

	updates := 0
	var last Snapshot
	for s := range out {
		if !s.Done {
			updates++
		}
		last = s
	}
	if !last.Done || len(last.Text) != 50 {
		t.Errorf("final = %+v, want 50 chars done", last)
	}
	// 50 deltas over at least 50ms must collapse into far fewer updates.
	if updates >= 50 {
		t.Errorf("updates = %d, expected coalescing", updates)
	}
}

func TestCoalesce_ErrorKeepsText(t *testing.T) {
	boom := errors.New("stream broke")
	in := make(chan Event, 4)
	in <- Event{Type: EventTextDelta, TextDelta: "partial"}
	in <- Event{Type: EventError, Error: boom}
	close(in)

	var last Snapshot
	for s := range Coalesce(context.Background(), in, time.Hour) {
		last = s
	}
	if !errors.Is(last.Err, boom) || last.Text != "partial" || last.Done {
		t.Errorf("final = %+v", last)
	}
}

func TestCoalesce_ClosedWithoutDone(t *testing.T) {
	in := make(chan Event, 1)
	in <- Event{Type: EventTextDelta, TextDelta: "hi"}
	close(in)

	var last Snapshot
	for s := range Coalesce(context.Background(), in, time.Hour) {
		last = s
	}
	if !last.Done || last.Text != "hi" {
		t.Errorf("final = %+v", last)
	}
}

func TestCoalesce_Cancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	in := make(chan Event)
	out := Coalesce(ctx, in, time.Millisecond)
	cancel()

	select {
	case _, ok := <-out:
		if ok {
			// A snapshot may race with cancellation; the channel must still close.
			for range out {
			}
		}
	case <-time.After(time.Second):
		t.Fatal("coalescer did not stop after cancel")
	}
}
