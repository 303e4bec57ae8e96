package council

import (
	"encoding/json"
	"testing"
)

func TestStageStatePrecedence(t *testing.T) {
	msg := Message{
		Role:    RoleAssistant,
		Stage1:  []ModelResponse{{Model: "openai/gpt", Response: "hi"}},
		Loading: Loading{Stage1: true, Stage2: false},
		Timings: Timings{}.Set(Stage1, Timing{Start: Float(100)}),
	}
	st := msg.StageState(Stage1)
	if !st.IsLoading() {
		t.Fatalf("loading flag must win over a stale payload, got %s", st.Status)
	}
	if st.Start == nil || *st.Start != 100 {
		t.Fatalf("expected loading start 100, got %v", st.Start)
	}
	if got := msg.StageState(Stage2).Status; got != StatusPending {
		t.Fatalf("stage2 should be pending, got %s", got)
	}
	msg.Loading = Loading{}
	if got := msg.StageState(Stage1).Status; got != StatusComplete {
		t.Fatalf("stage1 should be complete, got %s", got)
	}
}

func TestStage2AcceptsArrayAndObject(t *testing.T) {
	var arr Stage2Result
	if err := json.Unmarshal([]byte(`[{"model":"a/x","ranking":"FINAL RANKING:\n1. Response A","parsed_ranking":["Response A"]}]`), &arr); err != nil {
		t.Fatalf("array form: %v", err)
	}
	if len(arr.Rankings) != 1 || arr.Rankings[0].Model != "a/x" {
		t.Fatalf("unexpected rankings: %+v", arr.Rankings)
	}
	var obj Stage2Result
	payload := `{"rankings":[],"aggregate_rankings":[{"model":"a/x","score":1.5,"vote_distribution":{"1st":2,"2nd":1,"3rd":0},"total_votes":5}],"label_to_model":{"Response A":"a/x"}}`
	if err := json.Unmarshal([]byte(payload), &obj); err != nil {
		t.Fatalf("object form: %v", err)
	}
	if len(obj.AggregateRankings) != 1 {
		t.Fatalf("expected one aggregate, got %d", len(obj.AggregateRankings))
	}
	agg := obj.AggregateRankings[0]
	if agg.VoteDistribution == nil || agg.VoteDistribution.First != 2 || agg.TotalVotes != 5 {
		t.Fatalf("unexpected aggregate: %+v", agg)
	}
	if obj.LabelToModel["Response A"] != "a/x" {
		t.Fatalf("label mapping lost")
	}
}

func TestAggregateRankingLegacyFields(t *testing.T) {
	var agg AggregateRanking
	if err := json.Unmarshal([]byte(`{"model":"google/gemini","average_rank":2.25,"rankings_count":4}`), &agg); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if agg.Score != 2.25 || agg.TotalVotes != 4 {
		t.Fatalf("legacy fields not mapped: %+v", agg)
	}
	if agg.VoteDistribution != nil {
		t.Fatalf("legacy record must keep a nil distribution")
	}
}

func TestAssignKeysIsStable(t *testing.T) {
	conv := Conversation{ID: "c1", Messages: []Message{{Role: RoleUser}, {Role: RoleAssistant, Key: "keep"}}}
	conv.AssignKeys()
	if conv.Messages[0].Key != "c1#0" {
		t.Fatalf("unexpected key %q", conv.Messages[0].Key)
	}
	if conv.Messages[1].Key != "keep" {
		t.Fatalf("existing key overwritten: %q", conv.Messages[1].Key)
	}
}

func TestApplyStreamLifecycle(t *testing.T) {
	_, msg := NewTurn("Hello")
	if msg.Key == "" {
		t.Fatalf("assistant placeholder needs a key")
	}

	steps := []Event{
		{Type: EventStage1Start},
		{Type: EventTiming, Stage: "stage1", Timing: &Timing{Start: Float(1000)}},
		{Type: EventStage1Complete, Data: json.RawMessage(`[{"model":"openai/gpt","response":"A"}]`), Timing: &Timing{End: Float(1004.5)}},
	}
	original := msg
	var err error
	for i, evt := range steps {
		msg, err = Apply(msg, evt)
		if err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
		if i == 0 {
			st := msg.StageState(Stage1)
			if !st.IsLoading() || st.Start != nil {
				t.Fatalf("stage1 should be loading without a start, got %+v", st)
			}
		}
		if i == 1 {
			st := msg.StageState(Stage1)
			if st.Start == nil || *st.Start != 1000 {
				t.Fatalf("late start not applied: %+v", st)
			}
		}
	}
	if original.Loading.Stage1 || original.Stage1 != nil {
		t.Fatalf("Apply mutated the input message")
	}
	st := msg.StageState(Stage1)
	if !st.IsComplete() {
		t.Fatalf("stage1 should be complete, got %s", st.Status)
	}
	if st.Timing.Duration == nil || *st.Timing.Duration != 4.5 {
		t.Fatalf("expected derived duration 4.5, got %v", st.Timing.Duration)
	}
}

func TestApplyStage2CarriesMetadata(t *testing.T) {
	msg := Message{Role: RoleAssistant, Loading: Loading{Stage2: true}}
	evt := Event{
		Type:      EventStage2Complete,
		Data:      json.RawMessage(`[]`),
		Metadata:  &Metadata{LabelToModel: map[string]string{"Response A": "a/x"}},
		Timestamp: Float(50),
	}
	next, err := Apply(msg, evt)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.Loading.Stage2 {
		t.Fatalf("stage2 loading flag should clear")
	}
	if next.LabelToModel()["Response A"] != "a/x" {
		t.Fatalf("metadata not attached")
	}
	if end := next.Timings.Get(Stage2).End; end == nil || *end != 50 {
		t.Fatalf("timestamp should become end time, got %v", end)
	}
}

func TestApplyErrorClearsLoading(t *testing.T) {
	msg := Message{Role: RoleAssistant, Loading: Loading{Stage1: true, Stage3: true}}
	next, err := Apply(msg, Event{Type: EventError, Message: "boom"})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if next.Loading.Any() {
		t.Fatalf("error must clear all loading flags")
	}
}

func TestApplyRejectsCompleteWithoutData(t *testing.T) {
	msg := Message{Role: RoleAssistant, Loading: Loading{Stage3: true}}
	if _, err := Apply(msg, Event{Type: EventStage3Complete}); err == nil {
		t.Fatalf("expected error for missing payload")
	}
}

func TestEventTitle(t *testing.T) {
	evt := Event{Type: EventTitleComplete, Data: json.RawMessage(`{"title":" Quantum basics "}`)}
	title, ok := evt.Title()
	if !ok || title != "Quantum basics" {
		t.Fatalf("unexpected title %q (%v)", title, ok)
	}
	if _, ok := (Event{Type: EventComplete}).Title(); ok {
		t.Fatalf("complete event has no title")
	}
}
