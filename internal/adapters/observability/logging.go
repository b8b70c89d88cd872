package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// NewLogger returns a zerolog Logger.
// APP_ENV=dev (or development) uses a human-friendly console writer.
func NewLogger(env string) zerolog.Logger {
	return newLogger(env, os.Stdout)
}

func newLogger(env string, out io.Writer) zerolog.Logger {
	return zerolog.New(console(env, out)).With().Timestamp().Logger()
}

func console(env string, out io.Writer) io.Writer {
	if env == "dev" || env == "development" {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

// NewRunLogger is NewLogger teed into a per-run JSON log file
// <dir>/<prefix>_<YYYY-MM-DD_HH-MM-SS>.log. The returned closer flushes the file.
func NewRunLogger(env, dir, prefix string, now time.Time) (zerolog.Logger, io.Closer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("create log dir: %w", err)
	}
	name := filepath.Join(dir, fmt.Sprintf("%s_%s.log", prefix, now.Format("2006-01-02_15-04-05")))
	f, err := os.OpenFile(name, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, fmt.Errorf("open log file: %w", err)
	}
	// the file always gets JSON, whatever the console format
	l := zerolog.New(zerolog.MultiLevelWriter(console(env, os.Stdout), f)).With().Timestamp().Logger()
	return l, f, nil
}

// SetupGlobal installs the per-run logger as log.Logger. If the log file
// cannot be opened it falls back to NewLogger and warns. The returned func
// closes the file.
func SetupGlobal(env, dir, prefix string) func() {
	l, closer, err := NewRunLogger(env, dir, prefix, time.Now())
	if err != nil {
		log.Logger = NewLogger(env)
		log.Warn().Err(err).Str("dir", dir).Msg("per-run log file disabled")
		return func() {}
	}
	log.Logger = l
	return func() { _ = closer.Close() }
}
