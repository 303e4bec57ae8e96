package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/council-terminal/internal/council"
)

// DeleteAnimation is how long a confirmed row fades before the delete callback
// fires. The fade is rendered from the same constant.
const DeleteAnimation = 300 * time.Millisecond

var (
	sidebarTitleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#5B8DEF"))
	sidebarItemStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#DDDDDD"))
	sidebarSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B"))
	sidebarCurrentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50"))
	sidebarMetaStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#777777"))
	sidebarConfirmStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#F7B801"))
	sidebarFadeSteps     = []lipgloss.Color{"#999999", "#666666", "#3A3A3A"}
)

type confirmKind int

const (
	confirmNone confirmKind = iota
	confirmOne
	confirmAll
)

type conversationSelectedMsg struct {
	id string
}

type newConversationRequestedMsg struct{}

// deleteCommitMsg fires once the removal animation has run.
type deleteCommitMsg struct {
	ids []string
	all bool
}

type sidebar struct {
	items     []council.Summary
	selected  int
	currentID string
	deleting  map[string]time.Time
	confirm   confirmKind
	confirmID string
	width     int
	height    int
	clock     func() time.Time
}

func newSidebar(clock func() time.Time) *sidebar {
	if clock == nil {
		clock = time.Now
	}
	return &sidebar{
		deleting: make(map[string]time.Time),
		width:    30,
		height:   20,
		clock:    clock,
	}
}

// SetItems replaces the listing, keeping the selection on the same id when it
// is still present.
func (s *sidebar) SetItems(items []council.Summary) {
	selectedID := s.selectedID()
	s.items = append([]council.Summary(nil), items...)
	s.selected = 0
	for i, item := range s.items {
		if item.ID == selectedID {
			s.selected = i
			break
		}
	}
}

// Upsert puts summary at the top of the list, or updates it in place.
func (s *sidebar) Upsert(summary council.Summary) {
	for i := range s.items {
		if s.items[i].ID == summary.ID {
			s.items[i] = summary
			return
		}
	}
	s.items = append([]council.Summary{summary}, s.items...)
	s.selected = 0
}

func (s *sidebar) SetTitle(id, title string) {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items[i].Title = title
			return
		}
	}
}

func (s *sidebar) SetCurrent(id string) {
	s.currentID = id
	for i, item := range s.items {
		if item.ID == id {
			s.selected = i
			return
		}
	}
}

func (s *sidebar) SetSize(width, height int) {
	s.width = max(12, width)
	s.height = max(3, height)
}

func (s *sidebar) Deleting(id string) bool {
	_, ok := s.deleting[id]
	return ok
}

func (s *sidebar) Confirming() bool {
	return s.confirm != confirmNone
}

func (s *sidebar) selectedID() string {
	if s.selected < 0 || s.selected >= len(s.items) {
		return ""
	}
	return s.items[s.selected].ID
}

func (s *sidebar) Update(msg tea.KeyMsg) tea.Cmd {
	if s.confirm != confirmNone {
		return s.handleConfirm(msg)
	}
	switch msg.String() {
	case "up", "k":
		if s.selected > 0 {
			s.selected--
		}
	case "down", "j":
		if s.selected < len(s.items)-1 {
			s.selected++
		}
	case "enter":
		id := s.selectedID()
		if id == "" || s.Deleting(id) {
			return nil
		}
		return func() tea.Msg { return conversationSelectedMsg{id: id} }
	case "n":
		return func() tea.Msg { return newConversationRequestedMsg{} }
	case "d", "delete":
		id := s.selectedID()
		if id == "" || s.Deleting(id) {
			return nil
		}
		s.confirm = confirmOne
		s.confirmID = id
	case "D":
		if len(s.items) == 0 {
			return nil
		}
		s.confirm = confirmAll
	}
	return nil
}

func (s *sidebar) handleConfirm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "y", "Y":
		var ids []string
		all := s.confirm == confirmAll
		if all {
			for _, item := range s.items {
				ids = append(ids, item.ID)
			}
		} else {
			ids = []string{s.confirmID}
		}
		s.confirm = confirmNone
		s.confirmID = ""
		now := s.clock()
		for _, id := range ids {
			s.deleting[id] = now
		}
		return tea.Tick(DeleteAnimation, func(time.Time) tea.Msg {
			return deleteCommitMsg{ids: ids, all: all}
		})
	case "n", "N", "esc":
		s.confirm = confirmNone
		s.confirmID = ""
	}
	return nil
}

// finishDelete drops the committed rows and clears them from the deleting set.
func (s *sidebar) finishDelete(msg deleteCommitMsg) {
	gone := make(map[string]bool, len(msg.ids))
	for _, id := range msg.ids {
		gone[id] = true
		delete(s.deleting, id)
	}
	selectedID := s.selectedID()
	kept := s.items[:0]
	for _, item := range s.items {
		if !gone[item.ID] {
			kept = append(kept, item)
		}
	}
	s.items = kept
	if gone[s.currentID] {
		s.currentID = ""
	}
	s.selected = clampIndex(s.selected, len(s.items))
	for i, item := range s.items {
		if item.ID == selectedID {
			s.selected = i
		}
	}
}

// fade maps the time since confirmation onto the fade ramp.
func (s *sidebar) fade(id string) lipgloss.Style {
	started := s.deleting[id]
	progress := float64(s.clock().Sub(started)) / float64(DeleteAnimation)
	step := int(progress * float64(len(sidebarFadeSteps)))
	step = clampIndex(step, len(sidebarFadeSteps))
	return lipgloss.NewStyle().Faint(true).Strikethrough(true).Foreground(sidebarFadeSteps[step])
}

func (s *sidebar) View() string {
	lines := []string{sidebarTitleStyle.Render("Conversations")}
	if len(s.items) == 0 {
		lines = append(lines, sidebarMetaStyle.Render("No conversations yet"))
	}
	for i, item := range s.items {
		lines = append(lines, s.renderItem(i, item))
	}
	switch s.confirm {
	case confirmOne:
		title := s.confirmID
		for _, item := range s.items {
			if item.ID == s.confirmID {
				title = item.DisplayTitle()
			}
		}
		lines = append(lines, "", sidebarConfirmStyle.Render(fmt.Sprintf("Delete %q? (y/n)", truncate(title, s.width-16))))
	case confirmAll:
		lines = append(lines, "", sidebarConfirmStyle.Render(fmt.Sprintf("Delete all %d conversations? (y/n)", len(s.items))))
	default:
		lines = append(lines, "", sidebarMetaStyle.Render("n new · d delete · D all"))
	}
	return strings.Join(lines, "\n")
}

func (s *sidebar) renderItem(i int, item council.Summary) string {
	prefix := "  "
	if i == s.selected {
		prefix = "▸ "
	}
	title := truncate(item.DisplayTitle(), s.width-4)
	meta := fmt.Sprintf("  %d messages", item.MessageCount)
	if s.Deleting(item.ID) {
		style := s.fade(item.ID)
		return style.Render(prefix+title) + "\n" + style.Render(meta)
	}
	style := sidebarItemStyle
	switch {
	case i == s.selected:
		style = sidebarSelectedStyle
	case item.ID == s.currentID:
		style = sidebarCurrentStyle
	}
	return style.Render(prefix+title) + "\n" + sidebarMetaStyle.Render(meta)
}

func truncate(value string, width int) string {
	runes := []rune(value)
	if width <= 1 || len(runes) <= width {
		return value
	}
	return string(runes[:width-1]) + "…"
}
