package tui

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/cursor"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/kingrea/council-terminal/internal/api"
	"github.com/kingrea/council-terminal/internal/config"
	"github.com/kingrea/council-terminal/internal/council"
	"github.com/kingrea/council-terminal/internal/eventbridge"
	"github.com/kingrea/council-terminal/internal/logbook"
)

type fakeBackend struct {
	mu            sync.Mutex
	conversations map[string]*council.Conversation
	order         []string
	events        []council.Event
	streamErr     error
	calls         []string
	created       int
}

func newFakeBackend(convs ...*council.Conversation) *fakeBackend {
	fb := &fakeBackend{conversations: make(map[string]*council.Conversation)}
	for _, c := range convs {
		fb.conversations[c.ID] = c
		fb.order = append(fb.order, c.ID)
	}
	return fb
}

func (f *fakeBackend) record(format string, args ...any) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeBackend) ListConversations(context.Context) ([]council.Summary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("list")
	out := make([]council.Summary, 0, len(f.order))
	for _, id := range f.order {
		out = append(out, f.conversations[id].Summary())
	}
	return out, nil
}

func (f *fakeBackend) CreateConversation(context.Context) (*council.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created++
	conv := &council.Conversation{ID: fmt.Sprintf("new-%d", f.created)}
	f.conversations[conv.ID] = conv
	f.order = append([]string{conv.ID}, f.order...)
	f.record("create")
	copied := *conv
	return &copied, nil
}

func (f *fakeBackend) GetConversation(_ context.Context, id string) (*council.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("get %s", id)
	conv, ok := f.conversations[id]
	if !ok {
		return nil, api.ErrNotFound
	}
	copied := *conv
	copied.Messages = append([]council.Message(nil), conv.Messages...)
	return &copied, nil
}

func (f *fakeBackend) DeleteConversation(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete %s", id)
	delete(f.conversations, id)
	kept := f.order[:0]
	for _, existing := range f.order {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	f.order = kept
	return nil
}

func (f *fakeBackend) DeleteAllConversations(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("delete-all")
	f.conversations = make(map[string]*council.Conversation)
	f.order = nil
	return nil
}

func (f *fakeBackend) StreamMessage(_ context.Context, id, content string) (<-chan api.StreamResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record("stream %s %s", id, content)
	if f.streamErr != nil {
		return nil, f.streamErr
	}
	ch := make(chan api.StreamResult, len(f.events))
	for _, ev := range f.events {
		ch <- api.StreamResult{Event: ev}
	}
	close(ch)
	return ch, nil
}

func (f *fakeBackend) callCount(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func newTestApp(t *testing.T, opts ...AppOption) *App {
	t.Helper()
	t.Setenv("COUNCIL_API_URL", "")
	t.Setenv("COUNCIL_REQUEST_TIMEOUT", "")
	projectDir := t.TempDir()
	if err := config.InitCouncilDir(projectDir); err != nil {
		t.Fatalf("init council dir: %v", err)
	}
	opts = append([]AppOption{WithClock(fixedClock)}, opts...)
	app, err := NewApp(projectDir, opts...)
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(app.Close)
	app.input.textarea.Cursor.SetMode(cursor.CursorStatic)
	app.Update(tea.WindowSizeMsg{Width: 160, Height: 200})
	return app
}

// runCommands executes cmd and feeds the app-level messages it produces back
// into Update until nothing is left. Timer ticks are run but not fed back.
func runCommands(t *testing.T, model tea.Model, cmd tea.Cmd) *App {
	t.Helper()
	app, ok := model.(*App)
	if !ok {
		t.Fatalf("unexpected model type: %T", model)
	}
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		msg := next()
		if batch, ok := msg.(tea.BatchMsg); ok {
			queue = append(queue, batch...)
			continue
		}
		if !isAppMsg(msg) {
			continue
		}
		nextModel, nextCmd := app.Update(msg)
		if app, ok = nextModel.(*App); !ok {
			t.Fatalf("unexpected model type: %T", nextModel)
		}
		queue = append(queue, nextCmd)
	}
	return app
}

func isAppMsg(msg tea.Msg) bool {
	switch msg.(type) {
	case conversationsLoadedMsg, conversationLoadedMsg, conversationCreatedMsg,
		conversationSelectedMsg, newConversationRequestedMsg,
		streamOpenedMsg, streamEventMsg, streamClosedMsg,
		deleteCommitMsg, deleteResultMsg:
		return true
	}
	return false
}

func press(t *testing.T, app *App, msg tea.KeyMsg) *App {
	t.Helper()
	model, cmd := app.Update(msg)
	return runCommands(t, model, cmd)
}

func rawJSON(t *testing.T, v any) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func councilRun(t *testing.T) []council.Event {
	t.Helper()
	start := 1714564800.0
	stage2 := council.Event{Type: council.EventStage2Complete, Timestamp: council.Float(start + 5)}
	stage2.Data = rawJSON(t, []council.PeerRanking{{Model: "openai/gpt-5.1", Ranking: "Response A", ParsedRanking: []string{"Response A"}}})
	stage2.Metadata = &council.Metadata{
		LabelToModel:      map[string]string{"Response A": "openai/gpt-5.1"},
		AggregateRankings: []council.AggregateRanking{{Model: "openai/gpt-5.1", Score: 1, VoteDistribution: &council.VoteDistribution{First: 1}, TotalVotes: 1}},
	}
	return []council.Event{
		{Type: council.EventStage1Start, Timestamp: council.Float(start)},
		{Type: council.EventStage1Complete, Timestamp: council.Float(start + 2), Data: rawJSON(t, stage1Responses())},
		{Type: council.EventStage2Start, Timestamp: council.Float(start + 2)},
		stage2,
		{Type: council.EventStage3Start, Timestamp: council.Float(start + 5)},
		{Type: council.EventStage3Complete, Timestamp: council.Float(start + 7), Data: rawJSON(t, council.Stage3Result{Model: "google/gemini-3-pro", Response: "Paris."})},
		{Type: council.EventTitleComplete, Data: json.RawMessage(`{"title":"Capital of France"}`)},
		{Type: council.EventComplete},
	}
}

func openConversation(t *testing.T, app *App, id string) *App {
	t.Helper()
	model, cmd := app.Update(conversationSelectedMsg{id: id})
	return runCommands(t, model, cmd)
}

func TestInitLoadsConversationList(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1", Title: "One"}, &council.Conversation{ID: "c2"})
	app := newTestApp(t, WithBackend(backend))
	app = runCommands(t, app, app.Init())
	if len(app.sidebar.items) != 2 {
		t.Fatalf("expected 2 conversations, got %d", len(app.sidebar.items))
	}
	view := app.View()
	for _, want := range []string{"⬡ LLM COUNCIL", "One", "New Conversation", "Welcome to LLM Council"} {
		if !strings.Contains(view, want) {
			t.Fatalf("expected %q in view:\n%s", want, view)
		}
	}
}

func TestSubmitStreamsCouncilRun(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"})
	backend.events = councilRun(t)
	app := newTestApp(t, WithBackend(backend))
	app = runCommands(t, app, app.Init())
	app = openConversation(t, app, "c1")
	if app.focus != focusInput {
		t.Fatalf("opening a conversation should focus the input")
	}

	app = press(t, app, keyRunes("What is the capital of France?"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})

	if got := backend.callCount("stream c1 What is the capital of France?"); got != 1 {
		t.Fatalf("expected one stream call, got %d (%v)", got, backend.calls)
	}
	if app.inflight != "" || app.input.Disabled() {
		t.Fatalf("run should be finished")
	}
	msgs := app.conversation.Messages
	if len(msgs) != 2 || msgs[0].Content != "What is the capital of France?" {
		t.Fatalf("unexpected messages %+v", msgs)
	}
	final := msgs[1]
	if final.Loading.Any() {
		t.Fatalf("no stage should be loading after complete: %+v", final.Loading)
	}
	if final.Stage3 == nil || final.Stage3.Model != "google/gemini-3-pro" || len(final.Stage1) != 2 {
		t.Fatalf("stages not applied: %+v", final)
	}
	if d := final.Timings.Get(council.Stage2).Duration; d == nil || *d != 3 {
		t.Fatalf("expected stage 2 duration 3s, got %v", d)
	}
	if app.conversation.Title != "Capital of France" {
		t.Fatalf("title event not applied, got %q", app.conversation.Title)
	}
	if len(app.pipeline.trackers) != 0 {
		t.Fatalf("all trackers should be released, got %d", len(app.pipeline.trackers))
	}
	if app.input.Value() != "" {
		t.Fatalf("input should be cleared after submit")
	}
	if !strings.Contains(app.View(), "Chairman: gemini-3-pro") {
		t.Fatalf("final answer missing from view")
	}
}

func TestSubmitGuards(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"})
	app := newTestApp(t, WithBackend(backend))
	app = openConversation(t, app, "c1")

	app = press(t, app, keyRunes("   "))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if backend.callCount("stream") != 0 {
		t.Fatalf("blank input must not be sent")
	}

	app.inflight = "c1"
	app.input.SetDisabled(true)
	app = press(t, app, keyRunes("again"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if backend.callCount("stream") != 0 {
		t.Fatalf("nothing should be sent while a run is in flight")
	}
}

func TestSendMessageHandlerOverride(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"})
	var sent []string
	app := newTestApp(t, WithBackend(backend), WithHandlers(Handlers{
		SendMessage: func(text string) tea.Cmd {
			sent = append(sent, text)
			return nil
		},
	}))
	app = openConversation(t, app, "c1")
	app = press(t, app, keyRunes("Hello"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if len(sent) != 1 || sent[0] != "Hello" {
		t.Fatalf("expected one send of Hello, got %v", sent)
	}
	if app.input.Value() != "" || !app.input.Disabled() {
		t.Fatalf("input should be cleared and disabled while waiting")
	}
	if !strings.Contains(app.View(), "Consulting the council...") {
		t.Fatalf("expected in-flight indicator")
	}
}

func TestStreamOpenFailureRollsBackTurn(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"})
	backend.streamErr = errors.New("connection refused")
	app := newTestApp(t, WithBackend(backend))
	app = openConversation(t, app, "c1")
	app = press(t, app, keyRunes("Hello"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if len(app.conversation.Messages) != 0 {
		t.Fatalf("optimistic turn should be rolled back, got %d messages", len(app.conversation.Messages))
	}
	if !app.statusIsErr || !strings.Contains(app.statusMsg, "connection refused") {
		t.Fatalf("expected error status, got %q", app.statusMsg)
	}
	data, err := os.ReadFile(app.logbook.Path())
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(data), "ERROR Sending message failed: connection refused") {
		t.Fatalf("expected logbook error line, got:\n%s", data)
	}
}

func TestStreamErrorEventClearsLoading(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"})
	backend.events = []council.Event{
		{Type: council.EventStage1Start},
		{Type: council.EventError, Message: "all models failed"},
	}
	app := newTestApp(t, WithBackend(backend))
	app = openConversation(t, app, "c1")
	app = press(t, app, keyRunes("Hello"))
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEnter})
	if app.inflight != "" || app.conversation.Messages[1].Loading.Any() {
		t.Fatalf("error should end the run")
	}
	if !strings.Contains(app.statusMsg, "all models failed") {
		t.Fatalf("error message should reach the status line, got %q", app.statusMsg)
	}
}

func TestDeleteConfirmFiresCallbackAfterAnimation(t *testing.T) {
	backend := newFakeBackend(
		&council.Conversation{ID: "c1", Title: "One"},
		&council.Conversation{ID: "c2", Title: "Two"},
		&council.Conversation{ID: "c3", Title: "Three"},
	)
	var deleted []string
	app := newTestApp(t, WithBackend(backend), WithHandlers(Handlers{
		DeleteConversation: func(id string) tea.Cmd {
			deleted = append(deleted, id)
			return nil
		},
	}))
	app = runCommands(t, app, app.Init())

	app = press(t, app, keyRunes("d"))
	app = press(t, app, keyRunes("n"))
	if len(deleted) != 0 || len(app.sidebar.items) != 3 {
		t.Fatalf("declining must leave everything untouched")
	}

	model, cmd := app.Update(keyRunes("d"))
	app = model.(*App)
	model, cmd = app.Update(keyRunes("y"))
	app = model.(*App)
	if !app.sidebar.Deleting("c1") {
		t.Fatalf("c1 should be fading")
	}
	if len(deleted) != 0 {
		t.Fatalf("callback must wait for the animation")
	}
	app = runCommands(t, app, cmd)
	if len(deleted) != 1 || deleted[0] != "c1" {
		t.Fatalf("expected one delete of c1, got %v", deleted)
	}
	if app.sidebar.Deleting("c1") || len(app.sidebar.items) != 2 {
		t.Fatalf("row should be gone and the deleting set cleared")
	}
}

func TestDeleteAllClearsOpenConversation(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"}, &council.Conversation{ID: "c2"})
	app := newTestApp(t, WithBackend(backend))
	app = runCommands(t, app, app.Init())
	app = openConversation(t, app, "c2")
	app.setFocus(focusSidebar)

	app = press(t, app, keyRunes("D"))
	if !strings.Contains(app.sidebar.View(), "Delete all 2 conversations? (y/n)") {
		t.Fatalf("expected delete-all prompt")
	}
	app = press(t, app, keyRunes("y"))
	if backend.callCount("delete-all") != 1 {
		t.Fatalf("expected delete-all call, got %v", backend.calls)
	}
	if app.conversation != nil || app.currentID != "" || len(app.sidebar.items) != 0 {
		t.Fatalf("open conversation should be cleared")
	}
}

func TestDeleteAllFadesEveryRowBeforeCallback(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"}, &council.Conversation{ID: "c2"}, &council.Conversation{ID: "c3"})
	calls := 0
	app := newTestApp(t, WithBackend(backend), WithHandlers(Handlers{
		DeleteAllConversations: func() tea.Cmd {
			calls++
			return nil
		},
	}))
	app = runCommands(t, app, app.Init())
	app = press(t, app, keyRunes("D"))
	model, cmd := app.Update(keyRunes("y"))
	app = model.(*App)
	for _, id := range []string{"c1", "c2", "c3"} {
		if !app.sidebar.Deleting(id) {
			t.Fatalf("%s should enter the deleting set on confirm", id)
		}
	}
	if calls != 0 || cmd == nil {
		t.Fatalf("bulk callback must wait for the animation, calls=%d", calls)
	}

	started := time.Now()
	msg := cmd()
	if waited := time.Since(started); waited < DeleteAnimation-20*time.Millisecond {
		t.Fatalf("commit fired after %s, before the animation finished", waited)
	}
	app = runCommands(t, app, func() tea.Msg { return msg })
	if calls != 1 {
		t.Fatalf("expected one bulk delete, got %d", calls)
	}
	if len(app.sidebar.deleting) != 0 || len(app.sidebar.items) != 0 {
		t.Fatalf("deleting set should be empty and rows gone, deleting=%v items=%d", app.sidebar.deleting, len(app.sidebar.items))
	}
}

func TestNewConversationOpensAndFocusesInput(t *testing.T) {
	backend := newFakeBackend()
	app := newTestApp(t, WithBackend(backend))
	app = press(t, app, keyRunes("n"))
	if app.currentID != "new-1" || app.conversation == nil {
		t.Fatalf("created conversation should be open, got %q", app.currentID)
	}
	if app.sidebar.items[0].ID != "new-1" || app.focus != focusInput {
		t.Fatalf("new conversation should be listed and the input focused")
	}
	if !strings.Contains(app.View(), "Start a conversation") {
		t.Fatalf("empty conversation prompt missing")
	}
}

func TestMissingConversationReported(t *testing.T) {
	backend := newFakeBackend()
	app := newTestApp(t, WithBackend(backend))
	app = openConversation(t, app, "ghost")
	if app.currentID != "" || app.statusMsg != "Conversation not found" {
		t.Fatalf("missing conversation should be dropped, status %q", app.statusMsg)
	}
}

func TestBridgeEventsReachOpenConversation(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1", Messages: []council.Message{
		{Role: council.RoleUser, Content: "Q"},
		{Role: council.RoleAssistant, Stage3: &council.Stage3Result{Model: "m", Response: "done"}},
	}})
	router := eventbridge.NewRouter()
	app := newTestApp(t, WithBackend(backend), WithRouter(router))
	model, cmd := app.Update(conversationSelectedMsg{id: "c1"})
	app = model.(*App)
	if app.subscription == nil {
		t.Fatalf("selecting a conversation should subscribe to the bridge")
	}
	msg := app.handlers.SelectConversation("c1")()
	model, _ = app.Update(msg)
	app = model.(*App)
	_ = cmd

	start := 1714564800.0
	router.Route(eventbridge.Event{
		Version:        eventbridge.EventSchemaVersion,
		EventID:        "e1",
		ConversationID: "c1",
		Type:           council.EventStage1Start,
		Payload:        council.Event{Type: council.EventStage1Start, Timing: &council.Timing{Start: council.Float(start)}},
	})
	pushed := waitForBridge("c1", app.subscription.Events)()
	ev, ok := pushed.(bridgeEventMsg)
	if !ok {
		t.Fatalf("expected bridge event, got %#v", pushed)
	}
	model, _ = app.Update(ev)
	app = model.(*App)
	msgs := app.conversation.Messages
	if len(msgs) != 3 || !msgs[2].Loading.Stage1 {
		t.Fatalf("start event should open a new assistant turn, got %+v", msgs)
	}
	tracker := app.pipeline.tracker(msgs[2].Key, council.Stage1)
	if tracker == nil || tracker.Provisional() || tracker.StartTime() != start {
		t.Fatalf("tracker should use the pushed start time")
	}

	stale := bridgeEventMsg{convID: "c9", event: ev.event, ch: ev.ch}
	if _, cmd := app.Update(stale); cmd != nil {
		t.Fatalf("events for another conversation must be dropped")
	}
}

func TestFocusCyclingAndQuit(t *testing.T) {
	app := newTestApp(t, WithBackend(newFakeBackend()))
	if app.focus != focusSidebar {
		t.Fatalf("sidebar should start focused")
	}
	app = press(t, app, tea.KeyMsg{Type: tea.KeyTab})
	if app.focus != focusPipeline {
		t.Fatalf("tab should move to the pipeline")
	}
	app = press(t, app, tea.KeyMsg{Type: tea.KeyShiftTab})
	app = press(t, app, tea.KeyMsg{Type: tea.KeyShiftTab})
	if app.focus != focusInput {
		t.Fatalf("shift+tab should wrap to the input, got %d", app.focus)
	}
	app = press(t, app, tea.KeyMsg{Type: tea.KeyEsc})
	if app.focus != focusPipeline {
		t.Fatalf("esc should leave the input")
	}
	app.setFocus(focusSidebar)
	_, cmd := app.Update(keyRunes("q"))
	if cmd == nil {
		t.Fatalf("q should quit from the sidebar")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected quit message")
	}
	if app.ctx.Err() == nil {
		t.Fatalf("quitting should cancel in-flight requests")
	}
}

func TestBridgeBacklogReplaysWhenConversationOpens(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1", Messages: []council.Message{
		{Role: council.RoleUser, Content: "Q"},
	}})
	router := eventbridge.NewRouter()
	router.Route(eventbridge.Event{
		EventID:        "e1",
		ConversationID: "c1",
		Type:           council.EventStage1Start,
		Payload:        council.Event{Type: council.EventStage1Start, Timing: &council.Timing{Start: council.Float(1714564800)}},
	})
	app := newTestApp(t, WithBackend(backend), WithRouter(router))
	model, _ := app.Update(conversationSelectedMsg{id: "c1"})
	app = model.(*App)
	if app.statusMsg != "Replaying 1 pushed event(s)" {
		t.Fatalf("held events should be announced, got %q", app.statusMsg)
	}

	pushed := waitForBridge("c1", app.subscription.Events)()
	model, _ = app.Update(pushed)
	app = model.(*App)
	if len(app.early) != 1 {
		t.Fatalf("an event that beats the conversation load should be kept, got %d", len(app.early))
	}
	model, _ = app.Update(app.handlers.SelectConversation("c1")())
	app = model.(*App)
	msgs := app.conversation.Messages
	if len(msgs) != 2 || !msgs[1].Loading.Stage1 {
		t.Fatalf("replayed start should open an assistant turn once loaded, got %+v", msgs)
	}
	if len(app.early) != 0 {
		t.Fatalf("early events should be consumed on load")
	}
}

func TestBridgeTitleForClosedConversationUpdatesSidebar(t *testing.T) {
	backend := newFakeBackend(&council.Conversation{ID: "c1"}, &council.Conversation{ID: "c2"})
	app := newTestApp(t, WithBackend(backend))
	app = runCommands(t, app, app.Init())
	app = openConversation(t, app, "c1")

	title := council.Event{Type: council.EventTitleComplete, Data: json.RawMessage(`{"title":"Tides"}`)}
	model, cmd := app.Update(bridgeEventMsg{convID: "c2", event: eventbridge.Event{ConversationID: "c2", Type: title.Type, Payload: title}})
	app = model.(*App)
	if cmd != nil {
		t.Fatalf("events for a closed conversation must not re-arm a wait")
	}
	for _, item := range app.sidebar.items {
		if item.ID == "c2" && item.DisplayTitle() != "Tides" {
			t.Fatalf("closed conversation title should update, got %q", item.DisplayTitle())
		}
	}
	if app.conversation.Title == "Tides" {
		t.Fatalf("the open conversation must not take another conversation's title")
	}
}

func TestSharedLogbookOutlivesApp(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.log")
	lb, err := logbook.New(path)
	if err != nil {
		t.Fatalf("new logbook: %v", err)
	}
	t.Cleanup(func() { lb.Close() })
	app := newTestApp(t, WithLogbook(lb))
	if app.logbook != lb {
		t.Fatalf("app should write to the shared logbook")
	}
	app.Close()
	lb.Info("bridge shut down")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	for _, want := range []string{"Session opened", "bridge shut down"} {
		if !strings.Contains(string(data), want) {
			t.Fatalf("shared log missing %q:\n%s", want, data)
		}
	}
}
