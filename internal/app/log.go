package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// LogFileName is the log file inside log_dir.
const LogFileName = "mdage.log"

// mdageHandler is a custom slog.Handler that formats log records as:
//
//	<timestamp>\t<level>\t<sessionID>\t<message>\t<key=value ...>
//
// Records at warn and above are also written to stderr when it is set.
type mdageHandler struct {
	w         io.Writer
	stderr    io.Writer
	level     slog.Leveler
	sessionID string
	attrs     []slog.Attr
}

func (h *mdageHandler) Enabled(_ context.Context, level slog.Level) bool {
	if h.level == nil {
		return true
	}
	return level >= h.level.Level()
}

func (h *mdageHandler) Handle(_ context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s\t%s\t%s\t%s",
		r.Time.UTC().Format("2006-01-02T15:04:05Z"), r.Level.String(), h.sessionID, r.Message)

	for _, a := range h.attrs {
		fmt.Fprintf(&sb, "\t%s=%v", a.Key, a.Value)
	}
	r.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(&sb, "\t%s=%v", a.Key, a.Value)
		return true
	})
	sb.WriteByte('\n')

	if _, err := io.WriteString(h.w, sb.String()); err != nil {
		return err
	}
	if h.stderr != nil && r.Level >= slog.LevelWarn {
		_, err := io.WriteString(h.stderr, sb.String())
		return err
	}
	return nil
}

func (h *mdageHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &mdageHandler{
		w:         h.w,
		stderr:    h.stderr,
		level:     h.level,
		sessionID: h.sessionID,
		attrs:     append(append([]slog.Attr{}, h.attrs...), attrs...),
	}
}

func (h *mdageHandler) WithGroup(string) slog.Handler { return h }

// parseLevel maps a config log level to slog. Empty means info.
func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

// newLogger creates a structured logger that writes to logDir/mdage.log and
// mirrors warnings to stderr. It returns the slog.Logger, the open log file
// (for cleanup), and any error.
func newLogger(logDir, level, sessionID string) (*slog.Logger, *os.File, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}

	logPath := filepath.Join(logDir, LogFileName)
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, fmt.Errorf("opening log file: %w", err)
	}

	handler := &mdageHandler{w: f, stderr: os.Stderr, level: lvl, sessionID: sessionID}
	return slog.New(handler), f, nil
}

// slogAdapter wraps *slog.Logger to satisfy the mdage.Logger interface.
type slogAdapter struct {
	l *slog.Logger
}

func (a *slogAdapter) Debug(msg string, args ...any) { a.l.Debug(msg, args...) }
func (a *slogAdapter) Info(msg string, args ...any)  { a.l.Info(msg, args...) }
func (a *slogAdapter) Warn(msg string, args ...any)  { a.l.Warn(msg, args...) }
func (a *slogAdapter) Error(msg string, args ...any) { a.l.Error(msg, args...) }
