package domain

// StreamEventType tags a streamed turn event.
type StreamEventType string

const (
	EventMessage StreamEventType = "message"
	EventEnd     StreamEventType = "end"
	EventError   StreamEventType = "error"
)

// ErrorBody describes a failure inside a stream.
type ErrorBody struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

// StreamEvent is one line of the conversation stream.
type StreamEvent struct {
	Event   StreamEventType `json:"event"`
	Content string          `json:"content,omitempty"`
	Outcome string          `json:"outcome,omitempty"`
	Error   *ErrorBody      `json:"error,omitempty"`
}

// MessageEvent wraps a token.
func MessageEvent(token string) StreamEvent {
	return StreamEvent{Event: EventMessage, Content: token}
}

// EndEvent closes a turn with the resolved status.
func EndEvent(status string) StreamEvent {
	return StreamEvent{Event: EventEnd, Outcome: status}
}

// ErrorEvent reports err inside the stream.
func ErrorEvent(err error) StreamEvent {
	return StreamEvent{Event: EventError, Error: &ErrorBody{Kind: Kind(err), Message: err.Error()}}
}
