// internal/council/types.go
//
// Wire types for the council backend. A conversation is a list of messages;
// assistant messages carry the three stage payloads plus per-stage loading flags
// and timings. Everything here is a read-only snapshot from the view's side.

package council

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role values used by the backend.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Stage identifies one of the three council phases.
type Stage int

const (
	Stage1 Stage = iota + 1 // individual responses
	Stage2                  // peer ranking
	Stage3                  // chairman synthesis
)

// Stages lists every stage in display order.
var Stages = []Stage{Stage1, Stage2, Stage3}

// Key returns the wire key ("stage1", ...).
func (s Stage) Key() string {
	return fmt.Sprintf("stage%d", int(s))
}

// Valid reports whether s is one of the three known stages.
func (s Stage) Valid() bool {
	return s >= Stage1 && s <= Stage3
}

// ParseStage maps "stage2" or "2" onto a Stage.
func ParseStage(value string) (Stage, bool) {
	v := strings.ToLower(strings.TrimSpace(value))
	v = strings.TrimPrefix(v, "stage")
	switch v {
	case "1":
		return Stage1, true
	case "2":
		return Stage2, true
	case "3":
		return Stage3, true
	}
	return 0, false
}

// Conversation is a full conversation snapshot.
type Conversation struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
}

// Summary is the sidebar listing entry for a conversation.
type Summary struct {
	ID           string    `json:"id"`
	CreatedAt    time.Time `json:"created_at"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
}

// DisplayTitle falls back to "New Conversation" for untitled conversations.
func (s Summary) DisplayTitle() string {
	if t := strings.TrimSpace(s.Title); t != "" {
		return t
	}
	return "New Conversation"
}

// AssignKeys gives every message without a key a stable "<id>#<index>" identity.
func (c *Conversation) AssignKeys() {
	if c == nil {
		return
	}
	for i := range c.Messages {
		if c.Messages[i].Key == "" {
			c.Messages[i].Key = fmt.Sprintf("%s#%d", c.ID, i)
		}
	}
}

// Summary builds the listing entry for c.
func (c Conversation) Summary() Summary {
	return Summary{ID: c.ID, CreatedAt: c.CreatedAt, Title: c.Title, MessageCount: len(c.Messages)}
}

// Message is a single user or assistant turn.
type Message struct {
	// Key is client-side identity used to hold local UI state; never sent.
	Key string `json:"-"`

	Role     string          `json:"role"`
	Content  string          `json:"content,omitempty"`
	Stage1   []ModelResponse `json:"stage1,omitempty"`
	Stage2   *Stage2Result   `json:"stage2,omitempty"`
	Stage3   *Stage3Result   `json:"stage3,omitempty"`
	Loading  Loading         `json:"loading"`
	Timings  Timings         `json:"timings"`
	Metadata *Metadata       `json:"metadata,omitempty"`
}

// NewMessageKey returns a fresh identity for messages created on the client.
func NewMessageKey() string {
	return uuid.NewString()
}

// IsAssistant reports whether m was produced by the council.
func (m Message) IsAssistant() bool {
	return m.Role == RoleAssistant
}

// HasResult reports whether the stage payload is present.
func (m Message) HasResult(s Stage) bool {
	switch s {
	case Stage1:
		return m.Stage1 != nil
	case Stage2:
		return m.Stage2 != nil
	case Stage3:
		return m.Stage3 != nil
	}
	return false
}

// LabelToModel resolves the anonymized label mapping, preferring metadata.
func (m Message) LabelToModel() map[string]string {
	if m.Metadata != nil && len(m.Metadata.LabelToModel) > 0 {
		return m.Metadata.LabelToModel
	}
	if m.Stage2 != nil {
		return m.Stage2.LabelToModel
	}
	return nil
}

// Loading holds the per-stage in-flight flags.
type Loading struct {
	Stage1 bool `json:"stage1"`
	Stage2 bool `json:"stage2"`
	Stage3 bool `json:"stage3"`
}

// Get returns the flag for s.
func (l Loading) Get(s Stage) bool {
	switch s {
	case Stage1:
		return l.Stage1
	case Stage2:
		return l.Stage2
	case Stage3:
		return l.Stage3
	}
	return false
}

// Set returns a copy with the flag for s replaced.
func (l Loading) Set(s Stage, v bool) Loading {
	switch s {
	case Stage1:
		l.Stage1 = v
	case Stage2:
		l.Stage2 = v
	case Stage3:
		l.Stage3 = v
	}
	return l
}

// Any reports whether some stage is still loading.
func (l Loading) Any() bool {
	return l.Stage1 || l.Stage2 || l.Stage3
}

// Timing is the server-side timing envelope for one stage.
type Timing struct {
	Start    *float64 `json:"start,omitempty"`
	End      *float64 `json:"end,omitempty"`
	Duration *float64 `json:"duration,omitempty"`
}

// Empty reports whether no timing field is set.
func (t Timing) Empty() bool {
	return t.Start == nil && t.End == nil && t.Duration == nil
}

// Merge overlays the non-nil fields of other onto t.
func (t Timing) Merge(other Timing) Timing {
	if other.Start != nil {
		t.Start = Float(*other.Start)
	}
	if other.End != nil {
		t.End = Float(*other.End)
	}
	if other.Duration != nil {
		t.Duration = Float(*other.Duration)
	}
	return t
}

// Timings holds the per-stage timing envelopes.
type Timings struct {
	Stage1 *Timing `json:"stage1,omitempty"`
	Stage2 *Timing `json:"stage2,omitempty"`
	Stage3 *Timing `json:"stage3,omitempty"`
}

// Get returns the timing for s, or the zero Timing.
func (t Timings) Get(s Stage) Timing {
	var ptr *Timing
	switch s {
	case Stage1:
		ptr = t.Stage1
	case Stage2:
		ptr = t.Stage2
	case Stage3:
		ptr = t.Stage3
	}
	if ptr == nil {
		return Timing{}
	}
	return *ptr
}

// Set returns a copy with the timing for s replaced.
func (t Timings) Set(s Stage, value Timing) Timings {
	v := value
	switch s {
	case Stage1:
		t.Stage1 = &v
	case Stage2:
		t.Stage2 = &v
	case Stage3:
		t.Stage3 = &v
	}
	return t
}

// Float returns a pointer to v.
func Float(v float64) *float64 {
	return &v
}

// ModelResponse is one council member's stage-1 answer.
type ModelResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// Stage3Result is the chairman's final answer.
type Stage3Result struct {
	Model    string `json:"model"`
	Response string `json:"response"`
}

// PeerRanking is one council member's evaluation of the anonymized responses.
type PeerRanking struct {
	Model         string   `json:"model"`
	Ranking       string   `json:"ranking"`
	ParsedRanking []string `json:"parsed_ranking,omitempty"`
}

// Stage2Result groups the peer rankings and their aggregate.
type Stage2Result struct {
	Rankings          []PeerRanking      `json:"rankings"`
	AggregateRankings []AggregateRanking `json:"aggregate_rankings,omitempty"`
	LabelToModel      map[string]string  `json:"label_to_model,omitempty"`
}

// UnmarshalJSON accepts both the bare ranking array and the object form.
func (r *Stage2Result) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		var rankings []PeerRanking
		if err := json.Unmarshal(trimmed, &rankings); err != nil {
			return fmt.Errorf("council: decode stage2 rankings: %w", err)
		}
		*r = Stage2Result{Rankings: rankings}
		return nil
	}
	type plain Stage2Result
	var decoded plain
	if err := json.Unmarshal(trimmed, &decoded); err != nil {
		return fmt.Errorf("council: decode stage2: %w", err)
	}
	*r = Stage2Result(decoded)
	return nil
}

// VoteDistribution counts the 1st/2nd/3rd place votes a model received.
type VoteDistribution struct {
	First  int `json:"1st"`
	Second int `json:"2nd"`
	Third  int `json:"3rd"`
}

// Top3 is the number of votes that landed in the top three positions.
func (v VoteDistribution) Top3() int {
	return v.First + v.Second + v.Third
}

// AggregateRanking is one leaderboard row computed by the backend.
type AggregateRanking struct {
	Model            string            `json:"model"`
	Score            float64           `json:"score"`
	VoteDistribution *VoteDistribution `json:"vote_distribution,omitempty"`
	TotalVotes       int               `json:"total_votes"`
}

// UnmarshalJSON accepts the older average_rank / rankings_count field names.
func (a *AggregateRanking) UnmarshalJSON(data []byte) error {
	var raw struct {
		Model            string            `json:"model"`
		Score            *float64          `json:"score"`
		AverageRank      *float64          `json:"average_rank"`
		VoteDistribution *VoteDistribution `json:"vote_distribution"`
		TotalVotes       *int              `json:"total_votes"`
		RankingsCount    *int              `json:"rankings_count"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("council: decode aggregate ranking: %w", err)
	}
	out := AggregateRanking{Model: raw.Model, VoteDistribution: raw.VoteDistribution}
	switch {
	case raw.Score != nil:
		out.Score = *raw.Score
	case raw.AverageRank != nil:
		out.Score = *raw.AverageRank
	}
	switch {
	case raw.TotalVotes != nil:
		out.TotalVotes = *raw.TotalVotes
	case raw.RankingsCount != nil:
		out.TotalVotes = *raw.RankingsCount
	}
	*a = out
	return nil
}

// Metadata carries the label mapping and aggregate rankings computed in stage 2.
type Metadata struct {
	LabelToModel      map[string]string  `json:"label_to_model,omitempty"`
	AggregateRankings []AggregateRanking `json:"aggregate_rankings,omitempty"`
}
