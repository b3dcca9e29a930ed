package provider

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const (
	sseDataPrefix = "data:"
	sseDone       = "[DONE]"
)

// DecodeStream reads a server-sent-event body and emits unified events on ch.
//
// Lines are buffered across read boundaries, so a chunk split between two
// network reads is decoded once complete. Only "data:" lines are considered;
// "data: [DONE]" ends the stream. Chunks that fail to parse are logged and
// skipped. DecodeStream closes ch before returning.
func DecodeStream(ctx context.Context, body io.Reader, ch chan<- Event, log *zap.Logger) {
	defer close(ch)

	r := bufio.NewReader(body)
	for {
		line, err := r.ReadString('\n')
		if line != "" {
			if done := decodeLine(ctx, line, ch, log); done {
				send(ctx, ch, Event{Type: EventDone, Usage: &Usage{}})
				return
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				// Stream closed without a sentinel; what arrived is the full reply.
				send(ctx, ch, Event{Type: EventDone, Usage: &Usage{}})
				return
			}
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			send(ctx, ch, Event{Type: EventError, Error: fmt.Errorf("read stream: %w", err)})
			return
		}
		if ctx.Err() != nil {
			send(ctx, ch, Event{Type: EventError, Error: ctx.Err()})
			return
		}
	}
}

// decodeLine handles one complete SSE line and reports whether it was the
// end-of-stream sentinel.
func decodeLine(ctx context.Context, line string, ch chan<- Event, log *zap.Logger) bool {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, sseDataPrefix) {
		// Blank separators, comments (": keep-alive"), event: and id: fields.
		return false
	}
	data := strings.TrimSpace(strings.TrimPrefix(line, sseDataPrefix))
	if data == sseDone {
		return true
	}
	if data == "" {
		return false
	}

	delta, ok := ExtractDelta([]byte(data))
	if !ok {
		log.Debug("skipping malformed stream chunk", zap.String("chunk", truncate(data, 200)))
		return false
	}
	if delta != "" {
		send(ctx, ch, Event{Type: EventTextDelta, TextDelta: delta})
	}
	return false
}

// truncate shortens s to maxLen bytes, appending "..." if cut.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
