// internal/tui/app.go
//
// This is the main TUI for the LLM Council terminal.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: Your application state
// 2. Update: A function that updates state based on messages
// 3. View: A function that renders state to a string
//
// Everything that talks to the backend runs inside a tea.Cmd and comes back
// as a message, so the Update loop is the only place state changes.

package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/council-terminal/internal/api"
	"github.com/kingrea/council-terminal/internal/config"
	"github.com/kingrea/council-terminal/internal/council"
	"github.com/kingrea/council-terminal/internal/elapsed"
	"github.com/kingrea/council-terminal/internal/eventbridge"
	"github.com/kingrea/council-terminal/internal/logbook"
)

// focusArea is the panel receiving keys.
type focusArea int

const (
	focusSidebar focusArea = iota
	focusPipeline
	focusInput
	focusCount
)

const (
	sidebarWidth    = 32
	minMainWidth    = 30
	defaultWidth    = 100
	defaultHeight   = 30
	headerHeight    = 2
	footerHeight    = 1
	inputBlockLines = inputDefaultHeight + 2
)

// Backend is the council API surface the app needs. *api.Client satisfies it.
type Backend interface {
	ListConversations(ctx context.Context) ([]council.Summary, error)
	CreateConversation(ctx context.Context) (*council.Conversation, error)
	GetConversation(ctx context.Context, id string) (*council.Conversation, error)
	DeleteConversation(ctx context.Context, id string) error
	DeleteAllConversations(ctx context.Context) error
	StreamMessage(ctx context.Context, id, content string) (<-chan api.StreamResult, error)
}

// Handlers are the outward callbacks fired by the view. Every field is
// optional; unset fields fall back to the backend-driven defaults.
type Handlers struct {
	SendMessage            func(text string) tea.Cmd
	SelectConversation     func(id string) tea.Cmd
	NewConversation        func() tea.Cmd
	DeleteConversation     func(id string) tea.Cmd
	DeleteAllConversations func() tea.Cmd
}

func (h Handlers) overlay(o Handlers) Handlers {
	if o.SendMessage != nil {
		h.SendMessage = o.SendMessage
	}
	if o.SelectConversation != nil {
		h.SelectConversation = o.SelectConversation
	}
	if o.NewConversation != nil {
		h.NewConversation = o.NewConversation
	}
	if o.DeleteConversation != nil {
		h.DeleteConversation = o.DeleteConversation
	}
	if o.DeleteAllConversations != nil {
		h.DeleteAllConversations = o.DeleteAllConversations
	}
	return h
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithBackend replaces the HTTP client built from config.
func WithBackend(backend Backend) AppOption {
	return func(a *App) {
		if backend != nil {
			a.backend = backend
		}
	}
}

// WithHandlers overrides individual callbacks.
func WithHandlers(h Handlers) AppOption {
	return func(a *App) {
		a.overrides = a.overrides.overlay(h)
	}
}

// WithLogbook shares an already open logbook. The caller keeps ownership and
// closes it; otherwise the app opens .council/logs/council.log itself.
func WithLogbook(lb *logbook.Logbook) AppOption {
	return func(a *App) {
		if lb != nil {
			a.logbook = lb
		}
	}
}

// WithRouter feeds pushed events from the event bridge into the open
// conversation.
func WithRouter(router *eventbridge.Router) AppOption {
	return func(a *App) {
		a.router = router
	}
}

// WithLocation sets the zone used for Started/Ended timestamps.
func WithLocation(loc *time.Location) AppOption {
	return func(a *App) {
		if loc != nil {
			a.loc = loc
		}
	}
}

// WithClock overrides the wall clock used by trackers and the delete fade.
func WithClock(clock func() time.Time) AppOption {
	return func(a *App) {
		if clock != nil {
			a.clock = clock
		}
	}
}

type conversationsLoadedMsg struct {
	items []council.Summary
	err   error
}

type conversationLoadedMsg struct {
	id   string
	conv *council.Conversation
	err  error
}

type conversationCreatedMsg struct {
	conv *council.Conversation
	err  error
}

type streamOpenedMsg struct {
	convID string
	ch     <-chan api.StreamResult
	err    error
}

type streamEventMsg struct {
	convID string
	event  council.Event
	ch     <-chan api.StreamResult
}

type streamClosedMsg struct {
	convID string
	err    error
}

type deleteResultMsg struct {
	ids []string
	all bool
	err error
}

type bridgeEventMsg struct {
	convID string
	event  eventbridge.Event
	ch     <-chan eventbridge.Event
}

type bridgeClosedMsg struct {
	convID string
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	config      *config.Config
	logbook     *logbook.Logbook
	ownsLogbook bool

	backend      Backend
	handlers     Handlers
	overrides    Handlers
	router       *eventbridge.Router
	subscription *eventbridge.Subscription
	ctx          context.Context
	cancel       context.CancelFunc

	// UI components
	sidebar  *sidebar
	pipeline *pipelineView
	input    *chatInput
	focus    focusArea

	// Conversation state
	conversation *council.Conversation
	currentID    string
	inflight     string
	pending      []string
	// early holds bridge events that arrived before the conversation loaded.
	early []council.Event

	statusMsg   string
	statusIsErr bool

	loc   *time.Location
	clock func() time.Time

	// Window size (we get this from bubbletea)
	width      int
	height     int
	sideWidth  int
	mainWidth  int
	bodyHeight int
}

// NewApp creates the application model for projectDir.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		config: cfg,
		ctx:    ctx,
		cancel: cancel,
		focus:  focusSidebar,
		loc:    time.Local,
		clock:  time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	if app.logbook == nil {
		if lb, err := logbook.New(cfg.LogPath()); err == nil {
			app.logbook = lb
			app.ownsLogbook = true
		}
	}
	app.logbook.Info("Session opened · backend %s", cfg.APIBaseURL())
	if app.backend == nil {
		clientOpts := []api.ClientOption{api.WithTimeout(cfg.RequestTimeout())}
		if app.logbook != nil {
			clientOpts = append(clientOpts, api.WithLogger(app.logbook))
		}
		app.backend = api.NewClient(cfg.APIBaseURL(), clientOpts...)
	}
	app.handlers = app.defaultHandlers().overlay(app.overrides)
	app.sidebar = newSidebar(app.clock)
	app.pipeline = newPipelineView(app.loc, app.clock)
	app.pipeline.SetRoster(cfg.CouncilModels(), cfg.Chairman())
	app.input = newChatInput()
	app.input.Blur()
	app.layout()
	return app, nil
}

func (a *App) defaultHandlers() Handlers {
	backend := a.backend
	return Handlers{
		SendMessage: func(text string) tea.Cmd {
			id, ctx := a.currentID, a.ctx
			return func() tea.Msg {
				ch, err := backend.StreamMessage(ctx, id, text)
				return streamOpenedMsg{convID: id, ch: ch, err: err}
			}
		},
		SelectConversation: func(id string) tea.Cmd {
			ctx := a.ctx
			return func() tea.Msg {
				conv, err := backend.GetConversation(ctx, id)
				return conversationLoadedMsg{id: id, conv: conv, err: err}
			}
		},
		NewConversation: func() tea.Cmd {
			ctx := a.ctx
			return func() tea.Msg {
				conv, err := backend.CreateConversation(ctx)
				return conversationCreatedMsg{conv: conv, err: err}
			}
		},
		DeleteConversation: func(id string) tea.Cmd {
			ctx := a.ctx
			return func() tea.Msg {
				return deleteResultMsg{ids: []string{id}, err: backend.DeleteConversation(ctx, id)}
			}
		},
		DeleteAllConversations: func() tea.Cmd {
			ctx := a.ctx
			return func() tea.Msg {
				return deleteResultMsg{all: true, err: backend.DeleteAllConversations(ctx)}
			}
		},
	}
}

func (a *App) setStatus(format string, args ...any) {
	a.statusMsg = fmt.Sprintf(format, args...)
	a.statusIsErr = false
}

// reportError puts err on the status line and in the logbook.
func (a *App) reportError(action string, err error) {
	if err == nil {
		return
	}
	a.statusMsg = fmt.Sprintf("%s failed: %v", action, err)
	a.statusIsErr = true
	a.logbook.Error("%s failed: %v", action, err)
}

// Close cancels in-flight requests and drops the bridge subscription.
func (a *App) Close() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.subscription != nil {
		a.subscription.Close()
		a.subscription = nil
	}
	if a.ownsLogbook {
		a.logbook.Close()
		a.ownsLogbook = false
	}
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return a.loadConversations()
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layout()
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)

	case conversationsLoadedMsg:
		if msg.err != nil {
			a.reportError("Loading conversations", msg.err)
			return a, nil
		}
		a.sidebar.SetItems(msg.items)
		if a.currentID != "" {
			a.sidebar.SetCurrent(a.currentID)
		}
		return a, nil

	case conversationSelectedMsg:
		return a, a.selectConversation(msg.id)

	case newConversationRequestedMsg:
		if a.handlers.NewConversation == nil {
			return a, nil
		}
		a.setStatus("Creating conversation...")
		return a, a.handlers.NewConversation()

	case conversationLoadedMsg:
		return a, a.handleConversationLoaded(msg)

	case conversationCreatedMsg:
		if msg.err != nil {
			a.reportError("Creating conversation", msg.err)
			return a, nil
		}
		msg.conv.AssignKeys()
		a.sidebar.Upsert(msg.conv.Summary())
		a.logbook.Conversation(msg.conv.ID).Info("Created")
		a.setStatus("New conversation ready")
		cmds := []tea.Cmd{a.openConversation(msg.conv.ID), a.setConversation(msg.conv), a.setFocus(focusInput)}
		return a, tea.Batch(cmds...)

	case streamOpenedMsg:
		if msg.err != nil {
			return a, a.failTurn(msg.convID, msg.err)
		}
		return a, waitForStream(msg.convID, msg.ch)

	case streamEventMsg:
		return a, tea.Batch(a.applyEvent(msg.convID, msg.event), waitForStream(msg.convID, msg.ch))

	case streamClosedMsg:
		if a.inflight != msg.convID {
			return a, nil
		}
		reason := "stream closed before the council finished"
		if msg.err != nil {
			reason = msg.err.Error()
		}
		return a, a.applyEvent(msg.convID, council.Event{Type: council.EventError, Message: reason})

	case deleteCommitMsg:
		return a, a.commitDelete(msg)

	case deleteResultMsg:
		if msg.err != nil {
			a.reportError("Deleting conversation", msg.err)
			return a, a.loadConversations()
		}
		return a, nil

	case bridgeEventMsg:
		if msg.convID != a.currentID {
			if title, ok := msg.event.Payload.Title(); ok {
				a.sidebar.SetTitle(msg.convID, title)
			}
			return a, nil
		}
		next := waitForBridge(msg.convID, msg.ch)
		if a.conversation == nil || a.conversation.ID != msg.convID {
			a.early = append(a.early, msg.event.Payload)
			return a, next
		}
		return a, tea.Batch(a.applyEvent(msg.convID, msg.event.Payload), next)

	case bridgeClosedMsg:
		return a, nil

	case elapsed.TickMsg, spinner.TickMsg:
		return a, a.pipeline.Update(msg)
	}

	_, cmd := a.input.Update(msg)
	return a, cmd
}

func (a *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return a.quit()
	}
	if a.sidebar.Confirming() {
		return a, a.sidebar.Update(msg)
	}
	switch key {
	case "tab":
		return a, a.setFocus((a.focus + 1) % focusCount)
	case "shift+tab":
		return a, a.setFocus((a.focus + focusCount - 1) % focusCount)
	}
	switch a.focus {
	case focusSidebar:
		if key == "q" {
			return a.quit()
		}
		return a, a.sidebar.Update(msg)
	case focusPipeline:
		if key == "esc" {
			return a, a.setFocus(focusSidebar)
		}
		return a, a.pipeline.Update(msg)
	case focusInput:
		if key == "esc" {
			return a, a.setFocus(focusPipeline)
		}
		text, cmd := a.input.Update(msg)
		if text == "" {
			return a, cmd
		}
		return a, tea.Batch(cmd, a.submit(text))
	}
	return a, nil
}

func (a *App) quit() (tea.Model, tea.Cmd) {
	a.logbook.Info("Session closed")
	a.Close()
	return a, tea.Quit
}

func (a *App) setFocus(focus focusArea) tea.Cmd {
	a.focus = focus
	if focus == focusInput {
		return a.input.Focus()
	}
	a.input.Blur()
	return nil
}

func (a *App) loadConversations() tea.Cmd {
	backend, ctx := a.backend, a.ctx
	return func() tea.Msg {
		items, err := backend.ListConversations(ctx)
		return conversationsLoadedMsg{items: items, err: err}
	}
}

// openConversation makes id current and moves the bridge subscription to it.
func (a *App) openConversation(id string) tea.Cmd {
	a.currentID = id
	a.sidebar.SetCurrent(id)
	return a.subscribe(id)
}

func (a *App) selectConversation(id string) tea.Cmd {
	if id == a.currentID && a.conversation != nil {
		return a.setFocus(focusInput)
	}
	a.logbook.Conversation(id).Info("Selected")
	cmds := []tea.Cmd{a.openConversation(id)}
	if h := a.handlers.SelectConversation; h != nil {
		cmds = append(cmds, h(id))
	}
	return tea.Batch(cmds...)
}

func (a *App) handleConversationLoaded(msg conversationLoadedMsg) tea.Cmd {
	if msg.id != a.currentID {
		return nil
	}
	if msg.err != nil {
		if errors.Is(msg.err, api.ErrNotFound) {
			a.logbook.Conversation(msg.id).Warn("Not found on the backend")
			a.statusMsg = "Conversation not found"
			a.statusIsErr = true
			return tea.Batch(a.clearConversation(), a.loadConversations())
		}
		a.reportError("Loading conversation", msg.err)
		return nil
	}
	msg.conv.AssignKeys()
	if a.statusIsErr {
		a.statusMsg = ""
		a.statusIsErr = false
	}
	cmds := []tea.Cmd{a.setConversation(msg.conv), a.setFocus(focusInput)}
	for _, ev := range a.early {
		cmds = append(cmds, a.applyEvent(msg.id, ev))
	}
	a.early = nil
	return tea.Batch(cmds...)
}

func (a *App) setConversation(conv *council.Conversation) tea.Cmd {
	a.conversation = conv
	loading := conv != nil && a.inflight == conv.ID
	a.input.SetDisabled(loading)
	return a.pipeline.SetConversation(conv, loading)
}

func (a *App) clearConversation() tea.Cmd {
	a.currentID = ""
	a.pending = nil
	a.early = nil
	if a.subscription != nil {
		a.subscription.Close()
		a.subscription = nil
	}
	return a.setConversation(nil)
}

func (a *App) cloneConversation() *council.Conversation {
	next := *a.conversation
	next.Messages = append([]council.Message(nil), a.conversation.Messages...)
	return &next
}

// submit appends the optimistic user/assistant turn and hands the text to the
// SendMessage callback.
func (a *App) submit(text string) tea.Cmd {
	if a.conversation == nil {
		a.setStatus("Create a conversation first (n)")
		return nil
	}
	if a.inflight != "" {
		return nil
	}
	user, assistant := council.NewTurn(text)
	next := a.cloneConversation()
	next.Messages = append(next.Messages, user, assistant)
	a.pending = []string{user.Key, assistant.Key}
	a.inflight = next.ID
	a.setStatus("Consulting the council...")
	a.logbook.Conversation(next.ID).Info("Query · %d chars", len(text))
	cmds := []tea.Cmd{a.setConversation(next)}
	if h := a.handlers.SendMessage; h != nil {
		cmds = append(cmds, h(text))
	}
	return tea.Batch(cmds...)
}

// failTurn rolls back the optimistic turn when the run never started.
func (a *App) failTurn(convID string, err error) tea.Cmd {
	a.reportError("Sending message", err)
	if a.inflight != convID {
		return nil
	}
	a.inflight = ""
	if a.conversation == nil || a.conversation.ID != convID {
		a.pending = nil
		return nil
	}
	drop := make(map[string]bool, len(a.pending))
	for _, key := range a.pending {
		drop[key] = true
	}
	a.pending = nil
	next := a.cloneConversation()
	kept := next.Messages[:0]
	for _, m := range next.Messages {
		if !drop[m.Key] {
			kept = append(kept, m)
		}
	}
	next.Messages = kept
	return a.setConversation(next)
}

// applyEvent folds one stream or bridge event into the open conversation.
func (a *App) applyEvent(convID string, ev council.Event) tea.Cmd {
	var cmds []tea.Cmd
	title, hasTitle := ev.Title()
	if hasTitle {
		a.sidebar.SetTitle(convID, title)
	}
	current := a.conversation != nil && a.conversation.ID == convID
	if current {
		next := a.cloneConversation()
		if hasTitle {
			next.Title = title
		}
		idx := openAssistant(next.Messages)
		if idx < 0 && startsRun(ev) {
			_, placeholder := council.NewTurn("")
			next.Messages = append(next.Messages, placeholder)
			idx = len(next.Messages) - 1
		}
		if idx >= 0 {
			updated, err := council.Apply(next.Messages[idx], ev)
			if err != nil {
				a.logbook.Conversation(convID).Warn("Stream · %v", err)
			} else {
				next.Messages[idx] = updated
			}
		}
		a.conversation = next
	}
	if ev.Type == council.EventError {
		message := strings.TrimSpace(ev.Message)
		if message == "" {
			message = "unknown error"
		}
		a.reportError("Council run", errors.New(message))
	}
	if ev.Terminal() && a.inflight == convID {
		a.inflight = ""
		a.pending = nil
		if ev.Type == council.EventComplete {
			a.setStatus("The council has spoken")
			a.logbook.Conversation(convID).Info("Run complete")
		}
		cmds = append(cmds, a.loadConversations())
	}
	if current {
		cmds = append(cmds, a.setConversation(a.conversation))
	}
	return tea.Batch(cmds...)
}

// openAssistant returns the index of the trailing assistant message that is
// still collecting stages, or -1.
func openAssistant(messages []council.Message) int {
	if len(messages) == 0 {
		return -1
	}
	last := len(messages) - 1
	m := messages[last]
	if !m.IsAssistant() {
		return -1
	}
	if m.Stage3 != nil && !m.Loading.Any() {
		return -1
	}
	return last
}

func startsRun(ev council.Event) bool {
	_, phase, ok := ev.StageEvent()
	return ok && phase == "start"
}

func waitForStream(convID string, ch <-chan api.StreamResult) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-ch
		if !ok {
			return streamClosedMsg{convID: convID}
		}
		if res.Err != nil {
			return streamClosedMsg{convID: convID, err: res.Err}
		}
		return streamEventMsg{convID: convID, event: res.Event, ch: ch}
	}
}

func (a *App) subscribe(id string) tea.Cmd {
	if a.subscription != nil {
		a.subscription.Close()
		a.subscription = nil
	}
	a.early = nil
	if a.router == nil || id == "" {
		return nil
	}
	if n := a.router.Pending(id); n > 0 {
		a.setStatus("Replaying %d pushed event(s)", n)
		a.logbook.Conversation(id).Info("Replaying %d pushed event(s)", n)
	}
	sub := a.router.Subscribe(id)
	a.subscription = &sub
	return waitForBridge(id, sub.Events)
}

func waitForBridge(convID string, ch <-chan eventbridge.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return bridgeClosedMsg{convID: convID}
		}
		return bridgeEventMsg{convID: convID, event: ev, ch: ch}
	}
}

// commitDelete runs after the fade: it fires the delete callbacks and drops
// the rows from the sidebar.
func (a *App) commitDelete(msg deleteCommitMsg) tea.Cmd {
	var cmds []tea.Cmd
	if msg.all {
		if h := a.handlers.DeleteAllConversations; h != nil {
			cmds = append(cmds, h())
		}
	} else if h := a.handlers.DeleteConversation; h != nil {
		for _, id := range msg.ids {
			cmds = append(cmds, h(id))
		}
	}
	a.sidebar.finishDelete(msg)
	for _, id := range msg.ids {
		if id == a.currentID {
			cmds = append(cmds, a.clearConversation())
			break
		}
	}
	a.logbook.Info("Deleted %d conversation(s)", len(msg.ids))
	a.setStatus("Deleted %d conversation(s)", len(msg.ids))
	return tea.Batch(cmds...)
}

func (a *App) logLines() int {
	if a.config == nil {
		return config.DefaultLogLines
	}
	return a.config.LogLines()
}

func (a *App) layout() {
	width := a.width
	if width <= 0 {
		width = defaultWidth
	}
	height := a.height
	if height <= 0 {
		height = defaultHeight
	}
	a.sideWidth = sidebarWidth
	a.mainWidth = width - a.sideWidth - 4
	if a.mainWidth < minMainWidth {
		a.mainWidth = max(minMainWidth, width-4)
		a.sideWidth = 0
	}
	logHeight := 0
	if n := a.logLines(); n > 0 {
		logHeight = n + 3
	}
	a.bodyHeight = max(8, height-headerHeight-footerHeight-logHeight-2)
	a.sidebar.SetSize(a.sideWidth-2, a.bodyHeight)
	a.input.SetWidth(a.mainWidth - 2)
	a.pipeline.SetSize(a.mainWidth-2, a.bodyHeight-inputBlockLines-1)
}

// View renders the current state to a string.
func (a *App) View() string {
	header := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#FF6B6B")).
		MarginBottom(1).
		Render("⬡ LLM COUNCIL")
	mainPanel := panelStyle(a.focus != focusSidebar).
		Width(a.mainWidth).
		Height(a.bodyHeight).
		Render(lipgloss.JoinVertical(lipgloss.Left, a.pipeline.View(), "", a.input.View()))
	body := mainPanel
	if a.sideWidth > 0 {
		side := panelStyle(a.focus == focusSidebar).
			Width(a.sideWidth).
			Height(a.bodyHeight).
			Render(a.sidebar.View())
		body = lipgloss.JoinHorizontal(lipgloss.Top, side, mainPanel)
	}
	parts := []string{header, body}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		parts = append(parts, logPanel)
	}
	parts = append(parts, a.renderFooter())
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func panelStyle(focused bool) lipgloss.Style {
	border := lipgloss.Color("#444444")
	if focused {
		border = lipgloss.Color("#5B8DEF")
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	entries, total := a.logbook.Tail(a.logLines())
	if len(entries) == 0 {
		return ""
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, renderLogEntry(e, a.loc))
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#5B8DEF")).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := strings.Join(lines, "\n")
	box := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444444")).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
	return box
}

var logLevelStyles = map[logbook.Level]lipgloss.Style{
	logbook.LevelInfo:  lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")),
	logbook.LevelWarn:  lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")),
	logbook.LevelError: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")),
}

var logTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))

// renderLogEntry shows local wall time, the level and the conversation tag.
func renderLogEntry(e logbook.Entry, loc *time.Location) string {
	if e.Time.IsZero() {
		return logTextStyle.Render(e.Message)
	}
	if loc == nil {
		loc = time.Local
	}
	level := logLevelStyles[e.Level].Render(fmt.Sprintf("%-5s", string(e.Level)))
	text := e.Message
	if e.Conversation != "" {
		text = "[" + e.Conversation + "] " + text
	}
	return e.Time.In(loc).Format("15:04:05") + " " + level + " " + logTextStyle.Render(text)
}

func (a *App) renderFooter() string {
	var hints string
	switch a.focus {
	case focusSidebar:
		hints = "↑/↓ select · enter open · n new · d delete · D delete all · tab focus · q quit"
	case focusPipeline:
		hints = "↑/↓ message · ←/→ response · c card · enter expand · pgup/pgdn scroll · esc back"
	case focusInput:
		hints = "enter send · alt+enter newline · esc back · tab focus"
	}
	footer := lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).Render(hints)
	if a.statusMsg == "" {
		return footer
	}
	color := lipgloss.Color("#4CAF50")
	if a.statusIsErr {
		color = lipgloss.Color("#FF6B6B")
	}
	status := lipgloss.NewStyle().Foreground(color).Render(a.statusMsg)
	return status + "  " + footer
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
