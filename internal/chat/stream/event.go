package stream

// EventType classifies events delivered by a stream handle
type EventType int

const (
	// EventDelta carries an incremental text fragment to append.
	EventDelta EventType = iota
	// EventReplace carries a full replacement of the accumulated text,
	// used by the backend for corrective frames.
	EventReplace
	// EventComplete marks successful termination. At most one terminal
	// event is delivered per connection and nothing follows it.
	EventComplete
	// EventFailed marks transport-level failure. Terminal.
	EventFailed
)

func (t EventType) String() string {
	switch t {
	case EventDelta:
		return "delta"
	case EventReplace:
		return "replace"
	case EventComplete:
		return "complete"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether the event type ends the stream
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventFailed
}

// Event is one parsed server-push frame
type Event struct {
	Type EventType
	Text string // fragment for Delta, full text for Replace
	Err  error  // set for Failed
}
