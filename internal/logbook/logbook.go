// Package logbook keeps the session's activity log: levelled lines in
// .council/logs/council.log, optionally tagged with the conversation they
// concern, plus an in-memory window of the newest entries for the TUI panel.
package logbook

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// Level represents the severity of a log entry.
type Level string

const (
	LevelInfo  Level = "INFO"
	LevelWarn  Level = "WARN"
	LevelError Level = "ERROR"
)

// DefaultWindow is how many recent entries stay in memory for Tail.
const DefaultWindow = 200

// Entry is one logbook line.
type Entry struct {
	Time         time.Time
	Level        Level
	Conversation string
	Message      string
}

// String renders the on-disk form: RFC3339 UTC time, padded level, an optional
// [conversation] tag, then the message.
func (e Entry) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %-5s ", e.Time.UTC().Format(time.RFC3339), string(e.Level))
	if e.Conversation != "" {
		b.WriteString("[" + e.Conversation + "] ")
	}
	b.WriteString(e.Message)
	return b.String()
}

// ParseEntry reads a line written by Entry.String. A line in any other shape
// comes back whole as the message of an entry with no time or level.
func ParseEntry(line string) Entry {
	stamp, rest, ok := strings.Cut(line, " ")
	if !ok {
		return Entry{Message: line}
	}
	ts, err := time.Parse(time.RFC3339, stamp)
	if err != nil || len(rest) < 6 {
		return Entry{Message: line}
	}
	e := Entry{Time: ts, Level: Level(strings.TrimSpace(rest[:5])), Message: rest[6:]}
	if strings.HasPrefix(e.Message, "[") {
		if id, msg, ok := strings.Cut(e.Message[1:], "] "); ok {
			e.Conversation, e.Message = id, msg
		}
	}
	return e
}

// Logbook appends entries to one file and remembers the newest of them.
type Logbook struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	window []Entry
	size   int
	total  int
	clock  func() time.Time
}

// Option customizes a Logbook.
type Option func(*Logbook)

// WithWindow sets how many entries Tail can return.
func WithWindow(n int) Option {
	return func(l *Logbook) {
		if n > 0 {
			l.size = n
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(clock func() time.Time) Option {
	return func(l *Logbook) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// New opens (creating if needed) the logbook at path. Entries already in the
// file count towards the total and seed the window.
func New(path string, opts ...Option) (*Logbook, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logbook: open %s: %w", path, err)
	}
	l := &Logbook{path: path, file: file, size: DefaultWindow, clock: time.Now}
	for _, opt := range opts {
		if opt != nil {
			opt(l)
		}
	}
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			l.remember(ParseEntry(line))
		}
	}
	return l, nil
}

// Path returns the file backing this logbook.
func (l *Logbook) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Record writes e, stamping it with the clock when it carries no time.
func (l *Logbook) Record(e Entry) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if e.Time.IsZero() {
		e.Time = l.clock()
	}
	e.Message = strings.TrimSpace(e.Message)
	if l.file != nil {
		_, _ = l.file.WriteString(e.String() + "\n")
	}
	l.remember(e)
}

// Append writes a single untagged entry.
func (l *Logbook) Append(level Level, message string) {
	l.Record(Entry{Level: level, Message: message})
}

func (l *Logbook) remember(e Entry) {
	l.total++
	l.window = append(l.window, e)
	if over := len(l.window) - l.size; over > 0 {
		l.window = append(l.window[:0], l.window[over:]...)
	}
}

// Tail returns up to maxEntries of the newest entries along with how many
// entries the file holds in total.
func (l *Logbook) Tail(maxEntries int) ([]Entry, int) {
	if l == nil || maxEntries <= 0 {
		return nil, 0
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.window) == 0 {
		return nil, 0
	}
	start := len(l.window) - maxEntries
	if start < 0 {
		start = 0
	}
	return append([]Entry(nil), l.window[start:]...), l.total
}

// Close releases the file. Entries recorded afterwards are kept in memory only.
func (l *Logbook) Close() error {
	if l == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

func (l *Logbook) Info(format string, args ...any) {
	l.Append(LevelInfo, fmt.Sprintf(format, args...))
}

func (l *Logbook) Warn(format string, args ...any) {
	l.Append(LevelWarn, fmt.Sprintf(format, args...))
}

func (l *Logbook) Error(format string, args ...any) {
	l.Append(LevelError, fmt.Sprintf(format, args...))
}

// Printf records an INFO entry so a Logbook can serve as the api and bridge
// Logger.
func (l *Logbook) Printf(format string, args ...any) {
	l.Info(format, args...)
}

// Conversation returns a view of the logbook that tags every entry with id.
func (l *Logbook) Conversation(id string) Scope {
	return Scope{book: l, id: id}
}

// Scope writes entries tagged with one conversation.
type Scope struct {
	book *Logbook
	id   string
}

func (s Scope) Info(format string, args ...any) {
	s.book.Record(Entry{Level: LevelInfo, Conversation: s.id, Message: fmt.Sprintf(format, args...)})
}

func (s Scope) Warn(format string, args ...any) {
	s.book.Record(Entry{Level: LevelWarn, Conversation: s.id, Message: fmt.Sprintf(format, args...)})
}

func (s Scope) Error(format string, args ...any) {
	s.book.Record(Entry{Level: LevelError, Conversation: s.id, Message: fmt.Sprintf(format, args...)})
}
