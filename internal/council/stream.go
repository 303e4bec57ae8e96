package council

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Stream event types emitted by the backend while a council run is in flight.
const (
	EventStage1Start    = "stage1_start"
	EventStage1Complete = "stage1_complete"
	EventStage2Start    = "stage2_start"
	EventStage2Complete = "stage2_complete"
	EventStage3Start    = "stage3_start"
	EventStage3Complete = "stage3_complete"
	EventTiming         = "timing"
	EventTitleComplete  = "title_complete"
	EventComplete       = "complete"
	EventError          = "error"
)

// Event is one progress notification for a council run.
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Metadata  *Metadata       `json:"metadata,omitempty"`
	Stage     string          `json:"stage,omitempty"`
	Timing    *Timing         `json:"timing,omitempty"`
	Timestamp *float64        `json:"timestamp,omitempty"`
	Message   string          `json:"message,omitempty"`
}

// StageEvent splits "stage2_complete" into (Stage2, "complete").
func (e Event) StageEvent() (Stage, string, bool) {
	kind := strings.ToLower(strings.TrimSpace(e.Type))
	if kind == EventTiming {
		s, ok := ParseStage(e.Stage)
		return s, "timing", ok
	}
	prefix, suffix, found := strings.Cut(kind, "_")
	if !found {
		return 0, "", false
	}
	s, ok := ParseStage(prefix)
	if !ok || (suffix != "start" && suffix != "complete") {
		return 0, "", false
	}
	return s, suffix, true
}

// Terminal reports whether the event ends the run.
func (e Event) Terminal() bool {
	return e.Type == EventComplete || e.Type == EventError
}

// Title extracts the generated title from a title_complete event.
func (e Event) Title() (string, bool) {
	if e.Type != EventTitleComplete || len(e.Data) == 0 {
		return "", false
	}
	var payload struct {
		Title string `json:"title"`
	}
	if err := json.Unmarshal(e.Data, &payload); err != nil {
		return "", false
	}
	title := strings.TrimSpace(payload.Title)
	return title, title != ""
}

// Apply returns a copy of m with e folded in. m itself is never modified.
func Apply(m Message, e Event) (Message, error) {
	next := m
	if e.Type == EventError {
		next.Loading = Loading{}
		return next, nil
	}
	stage, phase, ok := e.StageEvent()
	if !ok {
		return next, nil
	}
	switch phase {
	case "start":
		next.Loading = next.Loading.Set(stage, true)
		if start := e.startTime(); start != nil {
			next.Timings = next.Timings.Set(stage, Timing{Start: start})
		}
	case "timing":
		if e.Timing != nil {
			next.Timings = next.Timings.Set(stage, next.Timings.Get(stage).Merge(*e.Timing))
		}
	case "complete":
		if err := next.setResult(stage, e.Data); err != nil {
			return m, err
		}
		if stage == Stage2 && e.Metadata != nil {
			meta := *e.Metadata
			next.Metadata = &meta
		}
		next.Loading = next.Loading.Set(stage, false)
		next.Timings = next.Timings.Set(stage, e.completeTiming(next.Timings.Get(stage)))
	}
	return next, nil
}

func (e Event) startTime() *float64 {
	if e.Timing != nil && e.Timing.Start != nil {
		return Float(*e.Timing.Start)
	}
	if e.Timestamp != nil {
		return Float(*e.Timestamp)
	}
	return nil
}

func (e Event) completeTiming(current Timing) Timing {
	t := current
	if e.Timing != nil {
		t = t.Merge(*e.Timing)
	}
	if t.End == nil && e.Timestamp != nil {
		t.End = Float(*e.Timestamp)
	}
	if t.Duration == nil && t.Start != nil && t.End != nil && *t.End >= *t.Start {
		t.Duration = Float(*t.End - *t.Start)
	}
	return t
}

func (m *Message) setResult(stage Stage, data json.RawMessage) error {
	if len(data) == 0 {
		return fmt.Errorf("council: %s_complete without data", stage.Key())
	}
	switch stage {
	case Stage1:
		var out []ModelResponse
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("council: decode stage1: %w", err)
		}
		if out == nil {
			out = []ModelResponse{}
		}
		m.Stage1 = out
	case Stage2:
		var out Stage2Result
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("council: decode stage2: %w", err)
		}
		m.Stage2 = &out
	case Stage3:
		var out Stage3Result
		if err := json.Unmarshal(data, &out); err != nil {
			return fmt.Errorf("council: decode stage3: %w", err)
		}
		m.Stage3 = &out
	}
	return nil
}

// NewTurn builds the user message and the empty assistant placeholder appended
// when a query is submitted.
func NewTurn(content string) (Message, Message) {
	user := Message{Key: NewMessageKey(), Role: RoleUser, Content: content}
	assistant := Message{Key: NewMessageKey(), Role: RoleAssistant}
	return user, assistant
}
