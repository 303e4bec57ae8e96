// Package api talks to the council backend: conversation CRUD over REST and
// the server-sent event stream of a council run.
package api

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/kingrea/council-terminal/internal/council"
)

const (
	defaultBaseURL = "http://localhost:8001"
	defaultTimeout = 30 * time.Second

	maxEventBytes = 8 << 20
)

// ErrNotFound is returned when the backend has no such conversation.
var ErrNotFound = errors.New("api: conversation not found")

// Logger is satisfied by *logbook.Logbook.
type Logger interface {
	Printf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Printf(string, ...any) {}

// StatusError reports a non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	msg := strings.TrimSpace(e.Body)
	if msg == "" {
		msg = http.StatusText(e.Code)
	}
	return fmt.Sprintf("api: %s %s: status %d: %s", e.Method, e.Path, e.Code, msg)
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client. Its Timeout should be zero or the
// stream will be cut off mid-run; use WithTimeout for the REST calls instead.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTimeout bounds each non-streaming request.
func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithLogger routes client diagnostics to logger.
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client is an HTTP client for the council backend.
type Client struct {
	baseURL    string
	httpClient *http.Client
	timeout    time.Duration
	logger     Logger
}

// NewClient creates a client rooted at baseURL ("" selects the default).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	c := &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		logger:     nopLogger{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root.
func (c *Client) BaseURL() string { return c.baseURL }

// ListConversations returns conversation summaries, newest first as the
// backend orders them.
func (c *Client) ListConversations(ctx context.Context) ([]council.Summary, error) {
	var out []council.Summary
	if err := c.do(ctx, http.MethodGet, "/api/conversations", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation starts an empty conversation.
func (c *Client) CreateConversation(ctx context.Context) (*council.Conversation, error) {
	var conv council.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/conversations", struct{}{}, &conv); err != nil {
		return nil, err
	}
	conv.AssignKeys()
	return &conv, nil
}

// GetConversation loads a full conversation. Missing ids yield ErrNotFound.
func (c *Client) GetConversation(ctx context.Context, id string) (*council.Conversation, error) {
	var conv council.Conversation
	if err := c.do(ctx, http.MethodGet, conversationPath(id), nil, &conv); err != nil {
		return nil, err
	}
	conv.AssignKeys()
	return &conv, nil
}

// DeleteConversation removes one conversation.
func (c *Client) DeleteConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, conversationPath(id), nil, nil)
}

// DeleteAllConversations removes every conversation.
func (c *Client) DeleteAllConversations(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/api/conversations", nil, nil)
}

// StreamResult is one item read from a council run stream.
type StreamResult struct {
	Event council.Event
	Err   error
}

// StreamMessage posts content to a conversation and returns the run's events.
// The channel is closed when the stream ends or ctx is cancelled.
func (c *Client) StreamMessage(ctx context.Context, id, content string) (<-chan StreamResult, error) {
	body, err := json.Marshal(map[string]string{"content": content})
	if err != nil {
		return nil, fmt.Errorf("api: encode message: %w", err)
	}
	path := conversationPath(id) + "/message/stream"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("api: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api: POST %s: %w", path, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, c.statusError(http.MethodPost, path, resp)
	}

	out := make(chan StreamResult)
	go c.streamReader(ctx, resp.Body, out)
	return out, nil
}

// SendMessageStream runs StreamMessage to completion, handing every event to
// onEvent in arrival order.
func (c *Client) SendMessageStream(ctx context.Context, id, content string, onEvent func(council.Event)) error {
	stream, err := c.StreamMessage(ctx, id, content)
	if err != nil {
		return err
	}
	for result := range stream {
		if result.Err != nil {
			return result.Err
		}
		if onEvent != nil {
			onEvent(result.Event)
		}
	}
	return ctx.Err()
}

func (c *Client) streamReader(ctx context.Context, body io.ReadCloser, out chan<- StreamResult) {
	defer close(out)
	defer body.Close()

	send := func(r StreamResult) bool {
		select {
		case out <- r:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := bufio.NewScanner(body)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, maxEventBytes)

	var data []string
	flush := func() bool {
		if len(data) == 0 {
			return true
		}
		payload := strings.Join(data, "\n")
		data = data[:0]
		var event council.Event
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			c.logger.Printf("api: skipping malformed stream event: %v", err)
			return true
		}
		return send(StreamResult{Event: event})
	}

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case line == "":
			if !flush() {
				return
			}
		case strings.HasPrefix(line, ":"):
			// comment / keep-alive
		case strings.HasPrefix(line, "data:"):
			data = append(data, strings.TrimPrefix(strings.TrimPrefix(line, "data:"), " "))
		}
	}
	if !flush() {
		return
	}
	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		send(StreamResult{Err: fmt.Errorf("api: read stream: %w", err)})
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("api: build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.statusError(method, path, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("api: decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) statusError(method, path string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := string(raw)
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(raw, &payload) == nil {
		if payload.Error != "" {
			msg = payload.Error
		} else if payload.Detail != "" {
			msg = payload.Detail
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: msg}
}

func conversationPath(id string) string {
	return "/api/conversations/" + url.PathEscape(strings.TrimSpace(id))
}
