package eventbridge

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/kingrea/council-terminal/internal/config"
	"github.com/kingrea/council-terminal/internal/council"
)

const (
	DefaultHost = "127.0.0.1"
	DefaultPort = 8765
	// DefaultMaxStageBytes bounds the data of a single stage result.
	DefaultMaxStageBytes int64 = 1 << 20
	// DefaultMaxBodyBytes bounds a whole request, envelope included.
	DefaultMaxBodyBytes int64 = 4 << 20
	// DefaultBacklog is how many events wait for a conversation nobody has open.
	DefaultBacklog = 50
)

// Settings is the bridge block resolved against defaults and the
// COUNCIL_BRIDGE_* environment.
type Settings struct {
	Enabled bool
	Host    string
	Port    int

	// Conversations restricts which conversations accept pushed events.
	// Empty accepts any.
	Conversations []string
	// MaxStageBytes caps the data of one *_complete event.
	MaxStageBytes int64
	MaxBodyBytes  int64
	// Backlog sizes the router's per-conversation hold queue.
	Backlog int
}

// SettingsFromConfig resolves the bridge block of cfg. The bridge stays off
// unless config or COUNCIL_BRIDGE_ENABLED turns it on.
func SettingsFromConfig(cfg *config.Config) Settings {
	var s Settings
	if cfg != nil {
		b := cfg.Project.Bridge
		if b.Enabled != nil {
			s.Enabled = *b.Enabled
		}
		s.Host = b.Host
		s.Port = b.Port
		s.Conversations = append([]string(nil), b.Conversations...)
		s.MaxStageBytes = b.MaxStageBytes
		s.Backlog = b.Backlog
	}
	s.overlayEnv(os.Getenv)
	return s.withDefaults()
}

// overlayEnv applies COUNCIL_BRIDGE_{ENABLED,HOST,PORT,CONVERSATIONS}.
// Values that do not parse are ignored.
func (s *Settings) overlayEnv(getenv func(string) string) {
	env := func(name string) string {
		return strings.TrimSpace(getenv("COUNCIL_BRIDGE_" + name))
	}
	if enabled, err := strconv.ParseBool(env("ENABLED")); err == nil {
		s.Enabled = enabled
	}
	if host := env("HOST"); host != "" {
		s.Host = host
	}
	if port, err := strconv.Atoi(env("PORT")); err == nil && isValidPort(port) {
		s.Port = port
	}
	if ids := env("CONVERSATIONS"); ids != "" {
		s.Conversations = strings.Split(ids, ",")
	}
}

func (s Settings) withDefaults() Settings {
	if s.Host = strings.TrimSpace(s.Host); s.Host == "" {
		s.Host = DefaultHost
	}
	if !isValidPort(s.Port) {
		s.Port = DefaultPort
	}
	if s.MaxStageBytes <= 0 {
		s.MaxStageBytes = DefaultMaxStageBytes
	}
	if s.MaxBodyBytes <= 0 {
		s.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if s.MaxBodyBytes < s.MaxStageBytes {
		s.MaxBodyBytes = s.MaxStageBytes + 64<<10
	}
	if s.Backlog <= 0 {
		s.Backlog = DefaultBacklog
	}
	ids := make([]string, 0, len(s.Conversations))
	for _, id := range s.Conversations {
		if id = normalizeKey(id); id != "" {
			ids = append(ids, id)
		}
	}
	s.Conversations = ids
	return s
}

// Allows reports whether pushed events for conversationID are accepted.
func (s Settings) Allows(conversationID string) bool {
	if len(s.Conversations) == 0 {
		return true
	}
	key := normalizeKey(conversationID)
	for _, id := range s.Conversations {
		if normalizeKey(id) == key {
			return true
		}
	}
	return false
}

// checkStage rejects a stage result whose data is over MaxStageBytes. A zero
// limit disables the check.
func (s Settings) checkStage(e council.Event) error {
	_, phase, ok := e.StageEvent()
	if !ok || phase != "complete" || s.MaxStageBytes <= 0 {
		return nil
	}
	if n := int64(len(e.Data)); n > s.MaxStageBytes {
		return fmt.Errorf("%s data is %d bytes, limit is %d", e.Type, n, s.MaxStageBytes)
	}
	return nil
}

// Address returns the TCP bind address in host:port form.
func (s Settings) Address() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// URL returns the HTTP base URL for the server.
func (s Settings) URL() string {
	return "http://" + s.Address()
}

func isValidPort(port int) bool {
	return port > 0 && port <= 65535
}
