// Package logger tests verify the [Handler] line format and value quoting,
// level handling, attribute grouping, and [NewLogger] destinations.
package logger

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// line returns the single line in buf without its timestamp or line ending.
func line(t *testing.T, buf *bytes.Buffer) string {
	t.Helper()
	s := strings.TrimRight(buf.String(), "\r\n")
	_, rest, ok := strings.Cut(s, " ")
	require.True(t, ok, "no timestamp in %q", s)
	return rest
}

// ///////////////////////////////////////////////
// Handler Output Format
// ///////////////////////////////////////////////

func TestHandler_Format(t *testing.T) {
	var buf bytes.Buffer
	slog.New(NewHandler(&buf, LevelInfo)).Info("dispatching", "signal", "SIGUSR1")

	s := strings.TrimRight(buf.String(), "\r\n")
	ts, _, _ := strings.Cut(s, " ")
	assert.True(t, strings.HasSuffix(ts, "Z"), "timestamp %q should be UTC", ts)
	assert.Len(t, ts, len("2006-01-02T15:04:05.000Z"), "timestamp %q should use millisecond layout", ts)
	assert.Equal(t, "[INFO] dispatching | signal=SIGUSR1", line(t, &buf))
}

func TestHandler_Values(t *testing.T) {
	tests := []struct {
		name string
		args []any
		want string
	}{
		{"no attrs", nil, "[WARN] msg"},
		{"plain", []any{"a", "1", "b", 2}, "[WARN] msg | a=1, b=2"},
		{"space quoted", []any{"error", "file not found"}, `[WARN] msg | error="file not found"`},
		{"comma quoted", []any{"bundles", "usr1: print,touch"}, `[WARN] msg | bundles="usr1: print,touch"`},
		{"empty quoted", []any{"config", ""}, `[WARN] msg | config=""`},
		{"equals quoted", []any{"arg", "a=b"}, `[WARN] msg | arg="a=b"`},
		{"newline escaped", []any{"out", "x\ny"}, `[WARN] msg | out="x\ny"`},
		{"error value", []any{"error", errors.New("boom")}, "[WARN] msg | error=boom"},
		{"inline group", []any{slog.Group("stats", "steps", 3, "failures", 0)}, "[WARN] msg | stats.steps=3, stats.failures=0"},
		{"empty attr dropped", []any{slog.Attr{}, "k", "v"}, "[WARN] msg | k=v"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(NewHandler(&buf, LevelInfo)).Warn("msg", tt.args...)
			assert.Equal(t, tt.want, line(t, &buf))
		})
	}
}

// ///////////////////////////////////////////////
// Levels
// ///////////////////////////////////////////////

func TestHandler_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelWarn))

	logger.Info("should be filtered")
	logger.Warn("should appear")

	output := buf.String()
	assert.NotContains(t, output, "should be filtered", "info is filtered at warn level")
	assert.Contains(t, output, "should appear")
}

func TestHandler_LevelVar(t *testing.T) {
	var buf bytes.Buffer
	var lv slog.LevelVar
	lv.Set(LevelWarn)
	logger := slog.New(NewHandler(&buf, &lv))

	logger.Debug("hidden")
	lv.Set(LevelDebug)
	logger.Debug("shown")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown", "LevelVar changes are honored")
}

func TestHandler_CustomLevels(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewHandler(&buf, LevelTrace))

	Trace(logger, "trace msg")
	Fail(logger, "fail msg")

	output := buf.String()
	assert.Contains(t, output, "[TRACE] trace msg")
	assert.Contains(t, output, "[FAIL] fail msg")
}

func TestLevelName(t *testing.T) {
	tests := []struct {
		level slog.Level
		want  string
	}{
		{LevelTrace, "TRACE"},
		{LevelTrace - 4, "TRACE"},
		{LevelDebug, "DEBUG"},
		{LevelInfo, "INFO"},
		{LevelWarn, "WARN"},
		{LevelError, "ERROR"},
		{LevelFail, "FAIL"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, LevelName(tt.level))
		})
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input string
		want  slog.Level
	}{
		{"trace", LevelTrace},
		{"TRACE", LevelTrace},
		{"debug", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"fail", LevelFail},
		{"unknown", LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseLevel(tt.input), "ParseLevel(%q)", tt.input)
	}
}

func TestValidLevel(t *testing.T) {
	for _, s := range []string{"trace", "DEBUG", "info", "warn", "Warning", "error", "fail"} {
		assert.True(t, ValidLevel(s), "ValidLevel(%q)", s)
	}
	for _, s := range []string{"", "verbose", "critical"} {
		assert.False(t, ValidLevel(s), "ValidLevel(%q)", s)
	}
}

func TestVerbosityLevel(t *testing.T) {
	tests := []struct {
		name       string
		quiet      bool
		verbose    int
		configured slog.Level
		want       slog.Level
	}{
		{"default_uses_config", false, 0, LevelWarn, LevelWarn},
		{"one_v_info", false, 1, LevelWarn, LevelInfo},
		{"one_v_keeps_lower_config", false, 1, LevelDebug, LevelDebug},
		{"two_v_debug", false, 2, LevelWarn, LevelDebug},
		{"three_v_trace", false, 3, LevelWarn, LevelTrace},
		{"many_v_trace", false, 7, LevelWarn, LevelTrace},
		{"quiet_wins", true, 3, LevelDebug, LevelFail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerbosityLevel(tt.quiet, tt.verbose, tt.configured))
		})
	}
}

// ///////////////////////////////////////////////
// Attributes and Groups
// ///////////////////////////////////////////////

func TestHandler_AttrsAndGroups(t *testing.T) {
	tests := []struct {
		name  string
		build func(h slog.Handler) slog.Handler
		want  string
	}{
		{
			name:  "with attrs",
			build: func(h slog.Handler) slog.Handler { return h.WithAttrs([]slog.Attr{slog.String("signal", "SIGHUP")}) },
			want:  "[INFO] step | signal=SIGHUP, action=print",
		},
		{
			name:  "group",
			build: func(h slog.Handler) slog.Handler { return h.WithGroup("bundle") },
			want:  "[INFO] step | bundle.action=print",
		},
		{
			name:  "nested group",
			build: func(h slog.Handler) slog.Handler { return h.WithGroup("loop").WithGroup("bundle") },
			want:  "[INFO] step | loop.bundle.action=print",
		},
		{
			name: "attrs keep the group open when they were added",
			build: func(h slog.Handler) slog.Handler {
				return h.WithAttrs([]slog.Attr{slog.Int("pid", 7)}).WithGroup("bundle")
			},
			want: "[INFO] step | pid=7, bundle.action=print",
		},
		{
			name:  "empty group is a no-op",
			build: func(h slog.Handler) slog.Handler { return h.WithGroup("") },
			want:  "[INFO] step | action=print",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			slog.New(tt.build(NewHandler(&buf, LevelInfo))).Info("step", "action", "print")
			assert.Equal(t, tt.want, line(t, &buf))
		})
	}
}

func TestHandler_WithGroupEmptyReturnsSame(t *testing.T) {
	h := NewHandler(&bytes.Buffer{}, LevelInfo)
	assert.Same(t, h, h.WithGroup(""), "WithGroup(\"\") should return the same handler")
}

func TestHandler_DerivedShareMutex(t *testing.T) {
	var buf bytes.Buffer
	h := NewHandler(&buf, LevelInfo)
	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")}).(*Handler)
	require.Same(t, h.mu, h2.mu, "WithAttrs should share the same mutex pointer")

	logger1 := slog.New(h)
	logger2 := slog.New(h2)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			logger1.Info("from handler 1")
		}()
		go func() {
			defer wg.Done()
			logger2.Info("from handler 2")
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimRight(buf.String(), "\r\n"), "\n")
	assert.Len(t, lines, 100)
}

// ///////////////////////////////////////////////
// NewLogger
// ///////////////////////////////////////////////

func TestNewLogger_Console(t *testing.T) {
	var console bytes.Buffer
	logger, closer, err := NewLogger(Options{Level: LevelDebug, Console: &console})
	require.NoError(t, err)
	logger.Debug("to console")
	assert.NoError(t, closer.Close())
	assert.Contains(t, console.String(), "[DEBUG] to console")
}

func TestNewLogger_FileEchoesErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagman.log")
	var console bytes.Buffer

	logger, closer, err := NewLogger(Options{Path: path, Level: LevelInfo, MaxSizeMB: 1, Console: &console})
	require.NoError(t, err)
	logger.Info("routine", "signal", "SIGUSR1")
	logger.Error("step failed", "action", "exec")
	Fail(logger.With("pid", 1), "giving up")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	file := string(data)
	for _, want := range []string{"[INFO] routine", "[ERROR] step failed", "[FAIL] giving up | pid=1"} {
		assert.Contains(t, file, want)
	}

	echoed := console.String()
	assert.NotContains(t, echoed, "routine", "info records stay in the file")
	for _, want := range []string{"[ERROR] step failed", "[FAIL] giving up | pid=1"} {
		assert.Contains(t, echoed, want)
	}
}

func TestNewLogger_QuietFileStillEchoesFail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flagman.log")
	var console bytes.Buffer

	logger, closer, err := NewLogger(Options{Path: path, Level: LevelFail, Console: &console})
	require.NoError(t, err)
	defer closer.Close()

	logger.Error("below threshold")
	Fail(logger, "fatal")

	out := console.String()
	assert.NotContains(t, out, "below threshold")
	assert.Contains(t, out, "[FAIL] fatal")
}
