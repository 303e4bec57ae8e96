// Package leaderboard turns stage-2 aggregate rankings into leaderboard rows
// with proportional vote bars.
package leaderboard

import (
	"fmt"
	"strings"

	"github.com/kingrea/council-terminal/internal/council"
)

// SegmentKind classifies a bar segment.
type SegmentKind string

const (
	SegmentFirst  SegmentKind = "first"
	SegmentSecond SegmentKind = "second"
	SegmentThird  SegmentKind = "third"
	SegmentLegacy SegmentKind = "legacy"
	SegmentNone   SegmentKind = "none"
)

// Labels and tooltips for the placeholder segments.
const (
	LegacyLabel  = "Legacy Data"
	LegacyTitle  = "Detailed vote distribution not available for this conversation"
	NoTop3Label  = "No Top 3 Votes"
	NoTop3Title  = "Model received votes but none in top 3"
	ScoreCaption = "Avg Rank"
	ScoreHint    = "lower is better"
	NoBreakdown  = "Vote breakdown not available"
)

// Segment is one slice of a vote bar. Percent is relative to the full width.
type Segment struct {
	Kind    SegmentKind
	Count   int
	Percent float64
	Label   string
	Title   string
}

// Vote records where one peer placed a model.
type Vote struct {
	Voter    string
	Position int
}

// Entry is one leaderboard row.
type Entry struct {
	Rank         int
	Model        string
	Score        float64
	Distribution *council.VoteDistribution
	TotalVotes   int
	Voters       []Vote
}

// Legacy reports whether the row predates per-rank vote tracking.
func (e Entry) Legacy() bool { return e.Distribution == nil }

// HasTop3Votes reports whether any 1st/2nd/3rd vote was received.
func (e Entry) HasTop3Votes() bool {
	return e.Distribution != nil && e.Distribution.Top3() > 0
}

// ScoreText renders the average rank with two decimals.
func (e Entry) ScoreText() string {
	return fmt.Sprintf("%s: %.2f", ScoreCaption, e.Score)
}

// Entries builds rows in backend order; rank is the 1-based position. The
// aggregate list comes from the stage payload, falling back to metadata.
func Entries(msg council.Message) []Entry {
	aggregates := aggregatesFor(msg)
	if len(aggregates) == 0 {
		return nil
	}
	var rankings []council.PeerRanking
	if msg.Stage2 != nil {
		rankings = msg.Stage2.Rankings
	}
	voters := votersByModel(rankings, msg.LabelToModel())
	out := make([]Entry, 0, len(aggregates))
	for i, agg := range aggregates {
		out = append(out, Entry{
			Rank:         i + 1,
			Model:        agg.Model,
			Score:        agg.Score,
			Distribution: agg.VoteDistribution,
			TotalVotes:   agg.TotalVotes,
			Voters:       voters[agg.Model],
		})
	}
	return out
}

// Validate checks that scores are non-decreasing down the list. It never
// reorders; it only reports the first offending position.
func Validate(entries []Entry) error {
	for i := 1; i < len(entries); i++ {
		if entries[i].Score < entries[i-1].Score {
			return fmt.Errorf("leaderboard: rank %d (%s, %.2f) scores better than rank %d (%.2f)",
				entries[i].Rank, entries[i].Model, entries[i].Score, entries[i-1].Rank, entries[i-1].Score)
		}
	}
	return nil
}

// Bar computes the vote bar for an entry. Segment order is always 1st, 2nd,
// 3rd and zero-count segments are omitted.
func Bar(e Entry) []Segment {
	if e.Legacy() {
		return []Segment{{Kind: SegmentLegacy, Percent: 100, Label: LegacyLabel, Title: LegacyTitle}}
	}
	if !e.HasTop3Votes() {
		return []Segment{{Kind: SegmentNone, Percent: 100, Label: NoTop3Label, Title: NoTop3Title}}
	}
	total := e.TotalVotes
	if total <= 0 {
		total = e.Distribution.Top3()
	}
	counts := []struct {
		kind  SegmentKind
		count int
		place string
	}{
		{SegmentFirst, e.Distribution.First, "1st"},
		{SegmentSecond, e.Distribution.Second, "2nd"},
		{SegmentThird, e.Distribution.Third, "3rd"},
	}
	segments := make([]Segment, 0, len(counts))
	for _, c := range counts {
		if c.count <= 0 {
			continue
		}
		segments = append(segments, Segment{
			Kind:    c.kind,
			Count:   c.count,
			Percent: float64(c.count) / float64(total) * 100,
			Title:   fmt.Sprintf("%d votes for %s place", c.count, c.place),
		})
	}
	return segments
}

// Breakdown lists the labelled chips shown in the expanded panel.
func Breakdown(e Entry) []string {
	if e.Legacy() {
		return nil
	}
	d := e.Distribution
	return []string{
		fmt.Sprintf("%d x 1st Place", d.First),
		fmt.Sprintf("%d x 2nd Place", d.Second),
		fmt.Sprintf("%d x 3rd Place", d.Third),
	}
}

func aggregatesFor(msg council.Message) []council.AggregateRanking {
	if msg.Stage2 != nil && len(msg.Stage2.AggregateRankings) > 0 {
		return msg.Stage2.AggregateRankings
	}
	if msg.Metadata != nil {
		return msg.Metadata.AggregateRankings
	}
	return nil
}

func votersByModel(rankings []council.PeerRanking, labels map[string]string) map[string][]Vote {
	out := map[string][]Vote{}
	if len(labels) == 0 {
		return out
	}
	for _, r := range rankings {
		for pos, label := range r.ParsedRanking {
			model, ok := labels[strings.TrimSpace(label)]
			if !ok {
				continue
			}
			out[model] = append(out[model], Vote{Voter: r.Model, Position: pos + 1})
		}
	}
	return out
}

// Ordinal renders 1 -> "1st", 2 -> "2nd" and so on.
func Ordinal(n int) string {
	suffix := "th"
	switch {
	case n%100 >= 11 && n%100 <= 13:
	case n%10 == 1:
		suffix = "st"
	case n%10 == 2:
		suffix = "nd"
	case n%10 == 3:
		suffix = "rd"
	}
	return fmt.Sprintf("%d%s", n, suffix)
}
