package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	inputPlaceholder   = "Ask your question... (Enter to send, Alt+Enter for new line)"
	inputBusyHint      = "The council is deliberating..."
	inputDefaultHeight = 3
)

var inputHintStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))

// chatInput is the multi-line composer. Plain Enter submits; Alt+Enter and
// Ctrl+J insert a newline.
type chatInput struct {
	textarea textarea.Model
	disabled bool
}

func newChatInput() *chatInput {
	ta := textarea.New()
	ta.Placeholder = inputPlaceholder
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(inputDefaultHeight)
	ta.KeyMap.InsertNewline = key.NewBinding(
		key.WithKeys("alt+enter", "ctrl+j"),
		key.WithHelp("alt+enter", "new line"),
	)
	ta.Focus()
	return &chatInput{textarea: ta}
}

func (c *chatInput) SetWidth(width int) {
	c.textarea.SetWidth(max(10, width))
}

// SetDisabled blocks submission while a council run is in flight. Typing is
// still allowed so the next question can be drafted.
func (c *chatInput) SetDisabled(disabled bool) {
	c.disabled = disabled
	if disabled {
		c.textarea.Placeholder = inputBusyHint
	} else {
		c.textarea.Placeholder = inputPlaceholder
	}
}

func (c *chatInput) Disabled() bool { return c.disabled }

func (c *chatInput) Focus() tea.Cmd { return c.textarea.Focus() }

func (c *chatInput) Blur() { c.textarea.Blur() }

func (c *chatInput) Focused() bool { return c.textarea.Focused() }

func (c *chatInput) Value() string { return c.textarea.Value() }

// Update returns the submitted text when Enter sends a non-blank message. The
// text goes out as typed so indented snippets keep their shape.
func (c *chatInput) Update(msg tea.Msg) (string, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.Type == tea.KeyEnter && !k.Alt {
		text := c.textarea.Value()
		if strings.TrimSpace(text) == "" || c.disabled {
			return "", nil
		}
		c.textarea.Reset()
		return text, nil
	}
	var cmd tea.Cmd
	c.textarea, cmd = c.textarea.Update(msg)
	return "", cmd
}

func (c *chatInput) View() string {
	hint := "enter send · alt+enter newline"
	if c.disabled {
		hint = "waiting for the council"
	}
	return lipgloss.JoinVertical(lipgloss.Left, c.textarea.View(), inputHintStyle.Render(hint))
}
