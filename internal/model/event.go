package model

// EventType tags one NDJSON stream event.
type EventType string

const (
	EventProgress EventType = "progress"
	EventClaim    EventType = "claim"
	EventError    EventType = "error"
	EventDone     EventType = "done"
)

// Event is one line of the NDJSON stream. Payload shapes are structurally
// distinct per type: ProgressSnapshot, Claim, ErrorPayload, or empty.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// ErrorPayload carries a client-facing error message on the stream.
type ErrorPayload struct {
	Message string `json:"message"`
}

// ProgressEvent builds a progress event from a snapshot.
func ProgressEvent(snap ProgressSnapshot) Event {
	return Event{Type: EventProgress, Payload: snap}
}

// ClaimEvent builds a claim event.
func ClaimEvent(c Claim) Event {
	return Event{Type: EventClaim, Payload: c}
}

// ErrorEvent builds an error event.
func ErrorEvent(msg string) Event {
	return Event{Type: EventError, Payload: ErrorPayload{Message: msg}}
}

// DoneEvent is the terminal event of every stream.
func DoneEvent() Event {
	return Event{Type: EventDone, Payload: struct{}{}}
}
