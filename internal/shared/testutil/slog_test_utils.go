package testutil

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// LogRecord is one captured log line with its attributes flattened,
// including those bound with Logger.With.
type LogRecord struct {
	Level   slog.Level
	Message string
	Attrs   map[string]any
}

type recordStore struct {
	mu      sync.Mutex
	records []LogRecord
}

// LogRecorder is a slog.Handler that keeps every record for assertions.
// Handlers derived through WithAttrs and WithGroup share one store.
type LogRecorder struct {
	store  *recordStore
	attrs  []slog.Attr
	prefix string
	t      *testing.T
}

// NewTestLogger returns a logger that records at every level and echoes
// each line to the test output.
func NewTestLogger(t *testing.T) (*slog.Logger, *LogRecorder) {
	h := &LogRecorder{store: &recordStore{}, t: t}
	return slog.New(h), h
}

func (h *LogRecorder) Enabled(context.Context, slog.Level) bool { return true }

func (h *LogRecorder) Handle(_ context.Context, r slog.Record) error {
	attrs := make(map[string]any, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		attrs[a.Key] = a.Value.Resolve().Any()
	}
	r.Attrs(func(a slog.Attr) bool {
		attrs[h.prefix+a.Key] = a.Value.Resolve().Any()
		return true
	})

	h.store.mu.Lock()
	h.store.records = append(h.store.records, LogRecord{Level: r.Level, Message: r.Message, Attrs: attrs})
	h.store.mu.Unlock()

	if h.t != nil {
		h.t.Logf("[%s] %s %v", r.Level, r.Message, attrs)
	}
	return nil
}

func (h *LogRecorder) WithAttrs(attrs []slog.Attr) slog.Handler {
	bound := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	bound = append(bound, h.attrs...)
	for _, a := range attrs {
		bound = append(bound, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &LogRecorder{store: h.store, attrs: bound, prefix: h.prefix, t: h.t}
}

func (h *LogRecorder) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	return &LogRecorder{store: h.store, attrs: h.attrs, prefix: h.prefix + name + ".", t: h.t}
}

// Records returns the captured records at level, or all of them when level
// is nil.
func (h *LogRecorder) Records(level *slog.Level) []LogRecord {
	h.store.mu.Lock()
	defer h.store.mu.Unlock()

	var out []LogRecord
	for _, r := range h.store.records {
		if level == nil || r.Level == *level {
			out = append(out, r)
		}
	}
	return out
}

// AtLevel returns the records logged at level.
func (h *LogRecorder) AtLevel(level slog.Level) []LogRecord {
	return h.Records(&level)
}

// Count returns the number of captured records.
func (h *LogRecorder) Count() int {
	return len(h.Records(nil))
}

// ContainsMessage reports whether any record's message contains message.
func (h *LogRecorder) ContainsMessage(message string) bool {
	for _, r := range h.Records(nil) {
		if strings.Contains(r.Message, message) {
			return true
		}
	}
	return false
}

// ContainsAttr reports whether any record carries key=value.
func (h *LogRecorder) ContainsAttr(key string, value any) bool {
	for _, r := range h.Records(nil) {
		if v, ok := r.Attrs[key]; ok && v == value {
			return true
		}
	}
	return false
}

// AssertLogContains fails unless a record at level contains message.
func AssertLogContains(t *testing.T, h *LogRecorder, level slog.Level, message string) {
	t.Helper()

	records := h.AtLevel(level)
	for _, r := range records {
		if strings.Contains(r.Message, message) {
			return
		}
	}
	t.Errorf("no %s log containing %q", level, message)
	for _, r := range records {
		t.Logf("  - %s", r.Message)
	}
}

// AssertLogAttr fails unless some record carries key=value.
func AssertLogAttr(t *testing.T, h *LogRecorder, key string, value any) {
	t.Helper()

	if !h.ContainsAttr(key, value) {
		t.Errorf("no log with %s=%v", key, value)
		for _, r := range h.Records(nil) {
			t.Logf("  - %s: %v", r.Message, r.Attrs)
		}
	}
}

// AssertWarnAttr fails unless a warning containing message carries
// key=value, as the fit warnings do for model and group.
func AssertWarnAttr(t *testing.T, h *LogRecorder, message, key string, value any) {
	t.Helper()

	warnings := h.AtLevel(slog.LevelWarn)
	for _, r := range warnings {
		if strings.Contains(r.Message, message) && r.Attrs[key] == value {
			return
		}
	}
	t.Errorf("no warning %q with %s=%v", message, key, value)
	for _, r := range warnings {
		t.Logf("  - %s: %v", r.Message, r.Attrs)
	}
}
