package stream

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"

	"converse/internal/pkg/logger"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Consumer opens incremental-response connections against the backend.
// Each Open yields an independent Handle; the caller owns at most one
// live handle at a time and closes it before opening the next.
type Consumer struct {
	client *http.Client
	logger *logger.Logger
}

// NewConsumer creates a stream consumer. The client's timeout must be
// zero: a turn stays open for as long as the assistant keeps producing.
func NewConsumer(client *http.Client, log *logger.Logger) *Consumer {
	if client == nil {
		client = &http.Client{}
	}
	return &Consumer{
		client: client,
		logger: log.Named("stream"),
	}
}

// Open establishes the SSE connection and starts the reader goroutine.
// Initiation failures (dial error, non-OK status) are returned directly;
// everything after a successful open arrives on Handle.Events, ending
// with exactly one Complete or Failed event.
func (c *Consumer) Open(ctx context.Context, url string) (*Handle, error) {
	ctx, cancel := context.WithCancel(ctx)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("create stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("open stream: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		resp.Body.Close()
		cancel()
		return nil, fmt.Errorf("stream endpoint returned %s: %s", resp.Status, string(body))
	}

	h := &Handle{
		events: make(chan Event, 16),
		cancel: cancel,
		done:   make(chan struct{}),
	}

	go c.read(ctx, resp.Body, h)

	return h, nil
}

// read parses SSE frames until a terminal condition. SSE syntax from the
// backend: "data: {json}" lines, "event: end" naming the completion
// frame, blank lines separating frames.
func (c *Consumer) read(ctx context.Context, body io.ReadCloser, h *Handle) {
	defer close(h.done)
	defer close(h.events)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	eventName := ""
	for scanner.Scan() {
		line := scanner.Text()

		// A blank line closes the frame. The end frame's payload carries
		// nothing of interest; the marker itself is the signal.
		if line == "" {
			if eventName == "end" {
				h.deliver(ctx, Event{Type: EventComplete})
				return
			}
			eventName = ""
			continue
		}

		if strings.HasPrefix(line, "event: ") {
			eventName = strings.TrimPrefix(line, "event: ")
			continue
		}

		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		data := strings.TrimPrefix(line, "data: ")

		if eventName == "end" {
			continue
		}

		if !gjson.Valid(data) {
			c.logger.Warn("skipping malformed stream frame", zap.String("data", data))
			continue
		}

		if delta := gjson.Get(data, "delta"); delta.Exists() {
			h.deliver(ctx, Event{Type: EventDelta, Text: delta.String()})
			continue
		}
		if content := gjson.Get(data, "content"); content.Exists() {
			h.deliver(ctx, Event{Type: EventReplace, Text: content.String()})
			continue
		}

		c.logger.Warn("stream frame has neither delta nor content", zap.String("data", data))
	}

	if err := scanner.Err(); err != nil {
		// Only a local Close stays silent. A cancelled caller context
		// surfaces as a read error too, but the handle was never closed:
		// the turn still owes its terminal event.
		if h.Closed() {
			return
		}
		if ctx.Err() != nil {
			h.deliver(ctx, Event{Type: EventFailed, Err: ctx.Err()})
			return
		}
		h.deliver(ctx, Event{Type: EventFailed, Err: fmt.Errorf("stream read: %w", err)})
		return
	}

	if h.Closed() {
		return
	}

	// Clean EOF immediately after the end marker still counts as
	// completion; the trailing blank line may be lost in transit.
	if eventName == "end" {
		h.deliver(ctx, Event{Type: EventComplete})
		return
	}

	// EOF without the end marker means the server went away mid-turn.
	h.deliver(ctx, Event{Type: EventFailed, Err: io.ErrUnexpectedEOF})
}

// Handle is one live incremental-response connection
type Handle struct {
	events chan Event
	cancel context.CancelFunc
	closed atomic.Bool
	done   chan struct{}
}

// Events returns the channel carrying parsed frames. The channel is
// closed after the terminal event, or without one when the handle was
// closed locally.
func (h *Handle) Events() <-chan Event {
	return h.events
}

// Close tears the connection down. Idempotent; safe after natural
// termination. Frames the remote side keeps producing during transport
// teardown are discarded, never delivered.
func (h *Handle) Close() {
	if h.closed.CompareAndSwap(false, true) {
		h.cancel()
	}
	<-h.done
}

// Closed reports whether Close has been called or the stream terminated
func (h *Handle) Closed() bool {
	return h.closed.Load()
}

// deliver forwards an event unless the handle is already closed. The
// channel send is tried first: with both cases ready, a bare select
// could let cancellation race away a terminal event.
func (h *Handle) deliver(ctx context.Context, ev Event) {
	if h.Closed() {
		return
	}
	select {
	case h.events <- ev:
		return
	default:
	}
	select {
	case h.events <- ev:
	case <-ctx.Done():
		// Receiver gone and buffer full: the owning turn has already
		// been torn down, nothing left to deliver to.
	}
}
