package provider

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	"go.uber.org/zap"
)

func collect(ch <-chan Event) (text string, last Event, n int) {
	var b strings.Builder
	for ev := range ch {
		n++
		if ev.Type == EventTextDelta {
			b.WriteString(ev.TextDelta)
		}
		last = ev
	}
	return b.String(), last, n
}

func decode(t *testing.T, r io.Reader) (string, Event) {
	t.Helper()
	ch := make(chan Event, 64)
	go DecodeStream(context.Background(), r, ch, zap.NewNop())
	text, last, _ := collect(ch)
	return text, last
}

func TestDecodeStream_HelloExample(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\n\n" +
		"data: [DONE]\n\n"

	text, last := decode(t, strings.NewReader(body))
	if text != "Hello" {
		t.Errorf("text = %q, want %q", text, "Hello")
	}
	if last.Type != EventDone {
		t.Errorf("last event = %v, want EventDone", last.Type)
	}
}

func TestDecodeStream_SplitAcrossReads(t *testing.T) {
	body := "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"lo\"}}]}\r\n\r\n" +
		"data: [DONE]\n\n"

	// One byte per read forces every line to straddle read boundaries.
	text, last := decode(t, iotest.OneByteReader(strings.NewReader(body)))
	if text != "Hello" {
		t.Errorf("text = %q, want %q", text, "Hello")
	}
	if last.Type != EventDone {
		t.Errorf("last event = %v, want EventDone", last.Type)
	}
}

func TestDecodeStream_SkipsMalformedAndForeignLines(t *testing.T) {
	body := ": keep-alive\n" +
		"event: message\n" +
		"data: {\"choices\":[{\"delta\":{\"role\":\"assistant\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":\n" +
		"data: {\"content\":\"A\"}\n" +
		"data: {\"message\":{\"content\":\"B\"}}\n" +
		"data: [DONE]\n" +
		"data: {\"content\":\"ignored after done\"}\n"

	text, _ := decode(t, strings.NewReader(body))
	if text != "AB" {
		t.Errorf("text = %q, want %q", text, "AB")
	}
}

func TestDecodeStream_EOFWithoutSentinel(t *testing.T) {
	body := "data: {\"content\":\"partial\"}\n\ndata: {\"content\":\" reply\"}"
	text, last := decode(t, strings.NewReader(body))
	if text != "partial reply" {
		t.Errorf("text = %q", text)
	}
	if last.Type != EventDone {
		t.Errorf("last event = %v, want EventDone", last.Type)
	}
}

func TestDecodeStream_ReadError(t *testing.T) {
	boom := errors.New("connection reset")
	r := io.MultiReader(strings.NewReader("data: {\"content\":\"x\"}\n"), iotest.ErrReader(boom))
	text, last := decode(t, r)
	if text != "x" {
		t.Errorf("text = %q, want %q", text, "x")
	}
	if last.Type != EventError || !errors.Is(last.Error, boom) {
		t.Errorf("last event = %+v, want EventError wrapping %v", last, boom)
	}
}

func TestDecodeStream_MatchesCompletion(t *testing.T) {
	// The concatenated stream deltas equal the non-streaming content.
	completion := `{"choices":[{"message":{"content":"The quick brown fox"}}]}`
	stream := "data: {\"choices\":[{\"delta\":{\"content\":\"The \"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"quick \"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"brown fox\"}}]}\n" +
		"data: [DONE]\n"

	want, err := ParseCompletion([]byte(completion))
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := decode(t, strings.NewReader(stream)); got != want {
		t.Errorf("stream text = %q, completion = %q", got, want)
	}
}
