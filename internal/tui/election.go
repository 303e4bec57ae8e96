package tui

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/council-terminal/internal/council"
	"github.com/kingrea/council-terminal/internal/leaderboard"
)

const voteBarWidth = 30

var (
	segmentStyles = map[leaderboard.SegmentKind]lipgloss.Style{
		leaderboard.SegmentFirst:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
		leaderboard.SegmentSecond: lipgloss.NewStyle().Foreground(lipgloss.Color("#C0C0C0")),
		leaderboard.SegmentThird:  lipgloss.NewStyle().Foreground(lipgloss.Color("#CD7F32")),
		leaderboard.SegmentLegacy: lipgloss.NewStyle().Foreground(lipgloss.Color("#666666")),
		leaderboard.SegmentNone:   lipgloss.NewStyle().Foreground(lipgloss.Color("#444444")),
	}
	cardStyle        = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#444444")).Padding(0, 1)
	cardFocusedStyle = lipgloss.NewStyle().Border(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	rankStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	scoreStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	chipStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#CCCCCC")).Background(lipgloss.Color("#333333")).Padding(0, 1)
	evaluationStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#BBBBBB"))
)

// renderStage2 draws the leaderboard followed by the de-anonymized peer
// evaluations.
func renderStage2(msg council.Message, ui *messageUI, focused bool, width int, loc *time.Location) string {
	if msg.Stage2 == nil {
		return ""
	}
	sections := []string{renderStageHeader(council.Stage2, msg.Timings.Get(council.Stage2), loc)}
	entries := leaderboard.Entries(msg)
	if len(entries) > 0 {
		sections = append(sections, stageModelStyle.Render("Council Leaderboard"))
		for i, entry := range entries {
			expanded := ui != nil && ui.expanded[entry.Model]
			isFocused := focused && ui != nil && ui.focusedCard == i
			sections = append(sections, renderElectionCard(entry, expanded, isFocused, width))
		}
	}
	if evals := renderEvaluations(msg.Stage2.Rankings, msg.LabelToModel(), width); evals != "" {
		sections = append(sections, evals)
	}
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func renderElectionCard(entry leaderboard.Entry, expanded, focused bool, width int) string {
	name := leaderboard.DisplayName(entry.Model)
	if glyph, ok := leaderboard.Badge(entry.Model); ok {
		name = glyph + " " + name
	}
	head := fmt.Sprintf("%s  %s  %s",
		rankStyle.Render("#"+fmt.Sprint(entry.Rank)),
		stageModelStyle.Render(name),
		scoreStyle.Render(fmt.Sprintf("%s (%s)", entry.ScoreText(), leaderboard.ScoreHint)),
	)
	lines := []string{head, renderVoteBar(leaderboard.Bar(entry), voteBarWidth)}
	if expanded {
		lines = append(lines, renderBreakdown(entry))
	}
	style := cardStyle
	if focused {
		style = cardFocusedStyle
	}
	return style.Width(max(24, width-2)).Render(strings.Join(lines, "\n"))
}

// renderVoteBar lays the segments out over width cells. Placeholder segments
// are drawn with their label so legacy and no-top-3 rows read differently.
func renderVoteBar(segments []leaderboard.Segment, width int) string {
	if len(segments) == 0 || width <= 0 {
		return ""
	}
	if len(segments) == 1 && (segments[0].Kind == leaderboard.SegmentLegacy || segments[0].Kind == leaderboard.SegmentNone) {
		seg := segments[0]
		return segmentStyles[seg.Kind].Render(fmt.Sprintf("%s %s", strings.Repeat("░", width), seg.Label))
	}
	cells := segmentCells(segments, width)
	var b strings.Builder
	used := 0
	var legend []string
	for i, seg := range segments {
		b.WriteString(segmentStyles[seg.Kind].Render(strings.Repeat("█", cells[i])))
		used += cells[i]
		legend = append(legend, fmt.Sprintf("%s:%d", placeLabel(seg.Kind), seg.Count))
	}
	if used < width {
		b.WriteString(segmentStyles[leaderboard.SegmentNone].Render(strings.Repeat("·", width-used)))
	}
	return b.String() + " " + scoreStyle.Render(strings.Join(legend, " "))
}

// segmentCells converts percentages to whole cells, never rounding a
// non-empty segment down to nothing.
func segmentCells(segments []leaderboard.Segment, width int) []int {
	cells := make([]int, len(segments))
	total := 0
	for i, seg := range segments {
		n := int(math.Round(seg.Percent / 100 * float64(width)))
		if n < 1 && seg.Count > 0 {
			n = 1
		}
		cells[i] = n
		total += n
	}
	for i := len(cells) - 1; total > width && i >= 0; i-- {
		for cells[i] > 1 && total > width {
			cells[i]--
			total--
		}
	}
	return cells
}

func placeLabel(kind leaderboard.SegmentKind) string {
	switch kind {
	case leaderboard.SegmentFirst:
		return "1st"
	case leaderboard.SegmentSecond:
		return "2nd"
	case leaderboard.SegmentThird:
		return "3rd"
	}
	return string(kind)
}

func renderBreakdown(entry leaderboard.Entry) string {
	chips := leaderboard.Breakdown(entry)
	if chips == nil {
		return scoreStyle.Render(leaderboard.NoBreakdown)
	}
	rendered := make([]string, 0, len(chips))
	for _, c := range chips {
		rendered = append(rendered, chipStyle.Render(c))
	}
	lines := []string{strings.Join(rendered, " ")}
	if len(entry.Voters) > 0 {
		var voters []string
		for _, v := range entry.Voters {
			voters = append(voters, fmt.Sprintf("%s→%s", leaderboard.DisplayName(v.Voter), leaderboard.Ordinal(v.Position)))
		}
		lines = append(lines, scoreStyle.Render("Votes: "+strings.Join(voters, ", ")))
	}
	return strings.Join(lines, "\n")
}

func renderEvaluations(rankings []council.PeerRanking, labels map[string]string, width int) string {
	if len(rankings) == 0 {
		return ""
	}
	sections := []string{stageModelStyle.Render("Peer Evaluations")}
	for _, r := range rankings {
		var parsed []string
		for i, label := range r.ParsedRanking {
			parsed = append(parsed, fmt.Sprintf("%d. %s", i+1, resolveLabel(label, labels)))
		}
		block := []string{stageModelStyle.Render(leaderboard.DisplayName(r.Model))}
		if text := strings.TrimSpace(deanonymize(r.Ranking, labels)); text != "" {
			block = append(block, evaluationStyle.Width(max(20, width-2)).Render(text))
		}
		if len(parsed) > 0 {
			block = append(block, scoreStyle.Render("Extracted ranking: "+strings.Join(parsed, "  ")))
		}
		sections = append(sections, strings.Join(block, "\n"))
	}
	return strings.Join(sections, "\n\n")
}

func resolveLabel(label string, labels map[string]string) string {
	if model, ok := labels[strings.TrimSpace(label)]; ok {
		return leaderboard.DisplayName(model)
	}
	return label
}

// deanonymize swaps "Response X" labels for model names. Longer labels go
// first so "Response A" never clobbers part of "Response AB".
func deanonymize(text string, labels map[string]string) string {
	if len(labels) == 0 || text == "" {
		return text
	}
	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) > len(keys[j])
		}
		return keys[i] < keys[j]
	})
	pairs := make([]string, 0, len(keys)*2)
	for _, k := range keys {
		pairs = append(pairs, k, leaderboard.DisplayName(labels[k]))
	}
	return strings.NewReplacer(pairs...).Replace(text)
}
