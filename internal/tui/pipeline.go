package tui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/council-terminal/internal/council"
	"github.com/kingrea/council-terminal/internal/elapsed"
	"github.com/kingrea/council-terminal/internal/leaderboard"
)

var (
	roleUserStyle      = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	roleCouncilStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	userBodyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("#5B8DEF")).PaddingLeft(1)
	assistantStyle     = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), false, false, false, true).BorderForeground(lipgloss.Color("#444444")).PaddingLeft(1)
	assistantFocused   = lipgloss.NewStyle().Border(lipgloss.ThickBorder(), false, false, false, true).BorderForeground(lipgloss.Color("#FF6B6B")).PaddingLeft(1)
	emptyTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	emptyHintStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888"))
	consultingStyle    = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("#F7B801"))
	pipelineHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	pipelineRosterHead = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

type trackerKey struct {
	message string
	stage   council.Stage
}

// messageUI is per-message view state that outlives re-renders and stream
// updates. It never feeds back into the message data.
type messageUI struct {
	activeTab   int
	expanded    map[string]bool
	focusedCard int
}

// pipelineView renders one conversation: user turns and, for each assistant
// turn, the three council stages.
type pipelineView struct {
	conversation *council.Conversation
	loading      bool
	models       []string
	chairman     string

	trackers map[trackerKey]*elapsed.Tracker
	ui       map[string]*messageUI
	focusKey string

	spinner  spinner.Model
	spinning bool
	viewport viewport.Model
	width    int
	height   int
	loc      *time.Location
	clock    func() time.Time
}

func newPipelineView(loc *time.Location, clock func() time.Time) *pipelineView {
	if loc == nil {
		loc = time.Local
	}
	if clock == nil {
		clock = time.Now
	}
	sp := spinner.New(spinner.WithSpinner(spinner.Dot))
	sp.Style = loadingTextStyle
	return &pipelineView{
		trackers: make(map[trackerKey]*elapsed.Tracker),
		ui:       make(map[string]*messageUI),
		spinner:  sp,
		viewport: viewport.New(80, 20),
		width:    80,
		height:   20,
		loc:      loc,
		clock:    clock,
	}
}

func (p *pipelineView) SetRoster(models []string, chairman string) {
	p.models = append([]string(nil), models...)
	p.chairman = chairman
}

func (p *pipelineView) SetSize(width, height int) {
	p.width = max(20, width)
	p.height = max(3, height)
	p.viewport.Width = p.width
	p.viewport.Height = p.height
	p.refresh(false)
}

// SetConversation swaps in a new snapshot. Trackers are armed for stages that
// entered Loading, fed late server starts, and released for stages that left
// it. Local UI state is kept for every message key still present.
func (p *pipelineView) SetConversation(conv *council.Conversation, loading bool) tea.Cmd {
	var cmds []tea.Cmd
	if conv == nil {
		p.conversation = nil
	} else {
		snapshot := *conv
		snapshot.Messages = append([]council.Message(nil), conv.Messages...)
		snapshot.AssignKeys()
		if p.conversation == nil || p.conversation.ID != snapshot.ID {
			p.focusKey = ""
		}
		p.conversation = &snapshot
	}
	p.loading = loading
	cmds = append(cmds, p.reconcileTrackers()...)
	p.pruneUI()
	if p.focusKey == "" || p.uiIndex(p.focusKey) < 0 {
		p.focusKey = p.lastAssistantKey()
	}
	if p.anyLoading() && !p.spinning {
		p.spinning = true
		cmds = append(cmds, p.spinner.Tick)
	}
	p.refresh(true)
	return tea.Batch(cmds...)
}

func (p *pipelineView) reconcileTrackers() []tea.Cmd {
	var cmds []tea.Cmd
	live := make(map[trackerKey]bool)
	for _, msg := range p.messages() {
		if !msg.IsAssistant() {
			continue
		}
		for _, st := range msg.StageStates() {
			if !st.IsLoading() {
				continue
			}
			key := trackerKey{message: msg.Key, stage: st.Stage}
			live[key] = true
			if t, ok := p.trackers[key]; ok {
				t.SetStart(st.Start)
				continue
			}
			t := elapsed.New(st.Start, elapsed.WithClock(p.clock), elapsed.WithLocation(p.loc))
			p.trackers[key] = t
			cmds = append(cmds, t.Start())
		}
	}
	for key, t := range p.trackers {
		if !live[key] {
			t.Stop()
			delete(p.trackers, key)
		}
	}
	return cmds
}

func (p *pipelineView) pruneUI() {
	present := make(map[string]bool)
	for _, msg := range p.messages() {
		present[msg.Key] = true
	}
	for key := range p.ui {
		if !present[key] {
			delete(p.ui, key)
		}
	}
}

func (p *pipelineView) messages() []council.Message {
	if p.conversation == nil {
		return nil
	}
	return p.conversation.Messages
}

func (p *pipelineView) anyLoading() bool {
	if p.loading {
		return true
	}
	for _, msg := range p.messages() {
		if msg.Loading.Any() {
			return true
		}
	}
	return false
}

func (p *pipelineView) tracker(key string, stage council.Stage) *elapsed.Tracker {
	return p.trackers[trackerKey{message: key, stage: stage}]
}

func (p *pipelineView) uiFor(key string) *messageUI {
	ui, ok := p.ui[key]
	if !ok {
		ui = &messageUI{expanded: make(map[string]bool)}
		p.ui[key] = ui
	}
	return ui
}

func (p *pipelineView) assistantKeys() []string {
	var keys []string
	for _, msg := range p.messages() {
		if msg.IsAssistant() {
			keys = append(keys, msg.Key)
		}
	}
	return keys
}

func (p *pipelineView) uiIndex(key string) int {
	for i, k := range p.assistantKeys() {
		if k == key {
			return i
		}
	}
	return -1
}

func (p *pipelineView) lastAssistantKey() string {
	keys := p.assistantKeys()
	if len(keys) == 0 {
		return ""
	}
	return keys[len(keys)-1]
}

func (p *pipelineView) focusedMessage() (council.Message, bool) {
	for _, msg := range p.messages() {
		if msg.Key == p.focusKey {
			return msg, true
		}
	}
	return council.Message{}, false
}

// Update routes tracker and spinner ticks plus the pipeline's own keys.
func (p *pipelineView) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case elapsed.TickMsg:
		for _, t := range p.trackers {
			if t.ID() == msg.ID {
				cmd := t.Update(msg)
				p.refresh(false)
				return cmd
			}
		}
		return nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		p.spinner, cmd = p.spinner.Update(msg)
		if !p.anyLoading() {
			p.spinning = false
			return nil
		}
		p.refresh(false)
		return cmd
	case tea.KeyMsg:
		return p.handleKey(msg)
	}
	return nil
}

func (p *pipelineView) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "up", "k":
		p.moveFocus(-1)
	case "down", "j":
		p.moveFocus(1)
	case "left", "[":
		p.switchTab(-1)
	case "right", "]":
		p.switchTab(1)
	case "c":
		p.cycleCard()
	case "enter", " ":
		p.toggleCard()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		p.viewport, cmd = p.viewport.Update(msg)
		return cmd
	default:
		return nil
	}
	p.refresh(false)
	return nil
}

func (p *pipelineView) moveFocus(delta int) {
	keys := p.assistantKeys()
	if len(keys) == 0 {
		return
	}
	idx := p.uiIndex(p.focusKey)
	if idx < 0 {
		idx = len(keys) - 1
	}
	p.focusKey = keys[clampIndex(idx+delta, len(keys))]
}

func (p *pipelineView) switchTab(delta int) {
	msg, ok := p.focusedMessage()
	if !ok || msg.StageState(council.Stage1).Status != council.StatusComplete {
		return
	}
	ui := p.uiFor(msg.Key)
	ui.activeTab = clampIndex(clampIndex(ui.activeTab, len(msg.Stage1))+delta, len(msg.Stage1))
}

func (p *pipelineView) cycleCard() {
	msg, ok := p.focusedMessage()
	if !ok || !msg.StageState(council.Stage2).IsComplete() {
		return
	}
	n := len(leaderboard.Entries(msg))
	if n == 0 {
		return
	}
	ui := p.uiFor(msg.Key)
	ui.focusedCard = (ui.focusedCard + 1) % n
}

func (p *pipelineView) toggleCard() {
	msg, ok := p.focusedMessage()
	if !ok || !msg.StageState(council.Stage2).IsComplete() {
		return
	}
	entries := leaderboard.Entries(msg)
	if len(entries) == 0 {
		return
	}
	ui := p.uiFor(msg.Key)
	model := entries[clampIndex(ui.focusedCard, len(entries))].Model
	ui.expanded[model] = !ui.expanded[model]
}

func (p *pipelineView) refresh(toBottom bool) {
	if p.conversation == nil || len(p.conversation.Messages) == 0 {
		return
	}
	p.viewport.SetContent(p.renderMessages())
	if toBottom {
		p.viewport.GotoBottom()
	}
}

func (p *pipelineView) View() string {
	if p.conversation == nil {
		return p.renderWelcome()
	}
	if len(p.conversation.Messages) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left,
			emptyTitleStyle.Render("Start a conversation"),
			emptyHintStyle.Render("Ask a question to consult the LLM Council"),
		)
	}
	return p.viewport.View()
}

func (p *pipelineView) renderWelcome() string {
	lines := []string{
		emptyTitleStyle.Render("Welcome to LLM Council"),
		emptyHintStyle.Render("Create a new conversation to get started"),
	}
	if len(p.models) > 0 {
		names := make([]string, 0, len(p.models))
		for _, m := range p.models {
			names = append(names, leaderboard.DisplayName(m))
		}
		lines = append(lines, "", pipelineRosterHead.Render("Council: "+strings.Join(names, ", ")))
	}
	if p.chairman != "" {
		lines = append(lines, pipelineRosterHead.Render("Chairman: "+leaderboard.DisplayName(p.chairman)))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (p *pipelineView) renderMessages() string {
	inner := max(20, p.width-3)
	var blocks []string
	for _, msg := range p.messages() {
		if msg.IsAssistant() {
			blocks = append(blocks, p.renderAssistant(msg, inner))
			continue
		}
		blocks = append(blocks, lipgloss.JoinVertical(lipgloss.Left,
			roleUserStyle.Render("You"),
			userBodyStyle.Width(inner).Render(strings.TrimSpace(msg.Content)),
		))
	}
	if p.loading {
		blocks = append(blocks, consultingStyle.Render(p.spinner.View()+" Consulting the council..."))
	}
	if len(p.assistantKeys()) > 1 {
		blocks = append(blocks, pipelineHelpStyle.Render("↑/↓ message · ←/→ responses · c card · enter expand"))
	}
	return strings.Join(blocks, "\n\n")
}

func (p *pipelineView) renderAssistant(msg council.Message, width int) string {
	focused := msg.Key == p.focusKey
	ui := p.ui[msg.Key]
	sections := []string{roleCouncilStyle.Render("LLM Council")}
	for _, st := range msg.StageStates() {
		switch st.Status {
		case council.StatusLoading:
			sections = append(sections, renderLoading(st.Stage, p.spinner.View(), p.tracker(msg.Key, st.Stage)))
		case council.StatusComplete:
			if out := p.renderStage(msg, st, ui, focused, width); out != "" {
				sections = append(sections, out)
			}
		}
	}
	style := assistantStyle
	if focused {
		style = assistantFocused
	}
	return style.Render(strings.Join(sections, "\n\n"))
}

func (p *pipelineView) renderStage(msg council.Message, st council.StageState, ui *messageUI, focused bool, width int) string {
	switch st.Stage {
	case council.Stage1:
		active := 0
		if ui != nil {
			active = ui.activeTab
		}
		return renderStage1(msg.Stage1, st.Timing, active, width, p.loc)
	case council.Stage2:
		return renderStage2(msg, ui, focused, width, p.loc)
	case council.Stage3:
		return renderStage3(msg.Stage3, st.Timing, width, p.loc)
	}
	return ""
}
