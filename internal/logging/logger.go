package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/kingrea/apiprobe/internal/config"
)

// Logger appends timestamped lines to .apiprobe/logs/apiprobe.log so users
// can inspect failures after the TUI or scheduler has exited.
type Logger struct {
	mu   sync.Mutex
	file *os.File
	log  zerolog.Logger
}

// New creates (or reuses) the log file for the current project directory.
func New(projectDir string) (*Logger, error) {
	logDir := filepath.Join(projectDir, config.ProbeDir, "logs")
	if err := os.MkdirAll(logDir, 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	path := filepath.Join(logDir, "apiprobe.log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	out := zerolog.ConsoleWriter{
		Out:        zerolog.SyncWriter(f),
		NoColor:    true,
		TimeFormat: time.RFC3339,
	}
	return &Logger{file: f, log: zerolog.New(out).With().Timestamp().Logger()}, nil
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	err := l.file.Close()
	l.file = nil
	return err
}

// Printf writes a single info line to the log file.
func (l *Logger) Printf(format string, args ...any) {
	l.write(zerolog.InfoLevel, format, args...)
}

// Errorf writes a single error line to the log file.
func (l *Logger) Errorf(format string, args ...any) {
	l.write(zerolog.ErrorLevel, format, args...)
}

func (l *Logger) write(level zerolog.Level, format string, args ...any) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return
	}
	line := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	l.log.WithLevel(level).Msg(line)
}
