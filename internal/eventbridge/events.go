package eventbridge

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kingrea/council-terminal/internal/council"
)

const (
	// ProtocolVersion identifies the bridge contract version exposed via /health.
	ProtocolVersion = "1.0.0"
	// EventSchemaVersion is the currently supported inbound event version.
	EventSchemaVersion = 1
)

// Event is one council stream event pushed by the backend for a conversation.
// Payload carries exactly what the SSE stream would have carried.
type Event struct {
	Version        int           `json:"version"`
	EventID        string        `json:"event_id"`
	ConversationID string        `json:"conversation_id"`
	Type           string        `json:"type"`
	ClientTime     time.Time     `json:"client_time"`
	ServerTime     time.Time     `json:"server_time"`
	Payload        council.Event `json:"payload"`
}

// Normalize applies defaults and canonical formatting before validation.
func (e *Event) Normalize() {
	if e == nil {
		return
	}
	if e.Version == 0 {
		e.Version = EventSchemaVersion
	}
	e.EventID = strings.TrimSpace(e.EventID)
	e.ConversationID = strings.TrimSpace(e.ConversationID)
	e.Type = strings.ToLower(strings.TrimSpace(e.Type))
	e.Payload.Type = strings.ToLower(strings.TrimSpace(e.Payload.Type))
	if e.Type == "" {
		e.Type = e.Payload.Type
	}
	if e.Payload.Type == "" {
		e.Payload.Type = e.Type
	}
}

// StampServerTime overwrites ServerTime with the supplied clock reading (UTC).
func (e *Event) StampServerTime(now time.Time) {
	if e == nil {
		return
	}
	if now.IsZero() {
		now = time.Now().UTC()
	}
	e.ServerTime = now.UTC()
}

// Validate enforces baseline schema requirements for incoming events.
func (e Event) Validate() error {
	if e.Version != EventSchemaVersion {
		return fmt.Errorf("version %d not supported", e.Version)
	}
	if e.EventID == "" {
		return errors.New("event_id is required")
	}
	if e.ConversationID == "" {
		return errors.New("conversation_id is required")
	}
	if e.Type == "" {
		return errors.New("type is required")
	}
	if e.Type != e.Payload.Type {
		return fmt.Errorf("type %q does not match payload type %q", e.Type, e.Payload.Type)
	}
	if !knownType(e.Type) {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	_, phase, ok := e.Payload.StageEvent()
	switch {
	case e.Type == council.EventTiming && !ok:
		return fmt.Errorf("timing event needs a stage, got %q", e.Payload.Stage)
	case ok && phase == "complete" && len(e.Payload.Data) == 0:
		return fmt.Errorf("%s requires data", e.Type)
	}
	return nil
}

func knownType(kind string) bool {
	switch kind {
	case council.EventTitleComplete, council.EventComplete, council.EventError, council.EventTiming:
		return true
	}
	_, _, ok := council.Event{Type: kind, Stage: "1"}.StageEvent()
	return ok
}

// EventProcessor consumes validated events.
type EventProcessor interface {
	HandleEvent(Event) error
}

// EventProcessorFunc adapts a function into an EventProcessor.
type EventProcessorFunc func(Event) error

// HandleEvent executes f(e).
func (f EventProcessorFunc) HandleEvent(e Event) error {
	if f == nil {
		return nil
	}
	return f(e)
}

// Logger records bridge status information. *logbook.Logbook satisfies it.
type Logger interface {
	Printf(format string, args ...any)
}

type healthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	RouterReady   bool   `json:"router_ready"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

type eventResponse struct {
	Status     string    `json:"status"`
	ServerTime time.Time `json:"server_time"`
}
