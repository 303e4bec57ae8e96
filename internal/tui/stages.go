package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/council-terminal/internal/council"
	"github.com/kingrea/council-terminal/internal/elapsed"
	"github.com/kingrea/council-terminal/internal/leaderboard"
	"github.com/kingrea/council-terminal/internal/timefmt"
)

var (
	stageTitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	stageTimingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	stageBodyStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	stageModelStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#4CAF50"))
	tabActiveStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(lipgloss.Color("#5B8DEF")).Padding(0, 1)
	tabInactiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA")).Padding(0, 1)
	loadingTextStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801"))
	chairmanStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	finalAnswerBorder = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("#4CAF50")).Padding(0, 1)
)

var stageTitles = map[council.Stage]string{
	council.Stage1: "Stage 1: Individual Responses",
	council.Stage2: "Stage 2: Peer Rankings",
	council.Stage3: "Stage 3: Final Council Answer",
}

var stageCaptions = map[council.Stage]string{
	council.Stage1: "Running Stage 1: Collecting individual responses...",
	council.Stage2: "Running Stage 2: Peer rankings...",
	council.Stage3: "Running Stage 3: Final synthesis...",
}

// renderStageHeader draws the stage title with whichever of Started / Ended /
// Elapsed the timing carries.
func renderStageHeader(stage council.Stage, timing council.Timing, loc *time.Location) string {
	title := stageTitleStyle.Render(stageTitles[stage])
	var parts []string
	if timing.Start != nil {
		if ts, ok := timefmt.TimestampIn(*timing.Start, loc); ok {
			parts = append(parts, "Started: "+ts)
		}
	}
	if timing.End != nil {
		if ts, ok := timefmt.TimestampIn(*timing.End, loc); ok {
			parts = append(parts, "Ended: "+ts)
		}
	}
	if timing.Duration != nil {
		if d := timefmt.Duration(*timing.Duration); d != "" {
			parts = append(parts, "Elapsed: "+d)
		}
	}
	if len(parts) == 0 {
		return title
	}
	return title + "  " + stageTimingStyle.Render(strings.Join(parts, "  "))
}

func renderStage1(results []council.ModelResponse, timing council.Timing, active int, width int, loc *time.Location) string {
	if len(results) == 0 {
		return ""
	}
	active = clampIndex(active, len(results))
	tabs := make([]string, 0, len(results))
	for i, r := range results {
		label := leaderboard.DisplayName(r.Model)
		if i == active {
			tabs = append(tabs, tabActiveStyle.Render(label))
		} else {
			tabs = append(tabs, tabInactiveStyle.Render(label))
		}
	}
	current := results[active]
	body := lipgloss.JoinVertical(lipgloss.Left,
		stageModelStyle.Render(current.Model),
		stageBodyStyle.Width(max(20, width)).Render(strings.TrimSpace(current.Response)),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		renderStageHeader(council.Stage1, timing, loc),
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		body,
	)
}

func renderStage3(result *council.Stage3Result, timing council.Timing, width int, loc *time.Location) string {
	if result == nil {
		return ""
	}
	chairman := "Chairman: " + leaderboard.DisplayName(result.Model)
	if glyph, ok := leaderboard.Badge(result.Model); ok {
		chairman = glyph + " " + chairman
	}
	box := finalAnswerBorder.Width(max(20, width-2)).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			chairmanStyle.Render(chairman),
			stageBodyStyle.Render(strings.TrimSpace(result.Response)),
		),
	)
	return lipgloss.JoinVertical(lipgloss.Left,
		renderStageHeader(council.Stage3, timing, loc),
		box,
	)
}

// renderLoading is the placeholder shown while a stage runs.
func renderLoading(stage council.Stage, spin string, tracker *elapsed.Tracker) string {
	line := loadingTextStyle.Render(fmt.Sprintf("%s %s", spin, stageCaptions[stage]))
	if tracker == nil {
		return line
	}
	return lipgloss.JoinVertical(lipgloss.Left, line, stageTimingStyle.Render(tracker.View()))
}

func clampIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
