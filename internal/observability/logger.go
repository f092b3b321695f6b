package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"
)

// termMu serialises every terminal write so the live status line is never
// torn by a log line.
var termMu sync.Mutex

type termWriter struct{ out io.Writer }

func (tw termWriter) Write(p []byte) (int, error) {
	termMu.Lock()
	defer termMu.Unlock()
	return tw.out.Write(p)
}

// NewTermWriter wraps out so writes are serialised with the dashboard.
func NewTermWriter(out io.Writer) io.Writer {
	return termWriter{out: out}
}

// LogConfig configures NewLogger.
type LogConfig struct {
	// File is appended to in addition to the console. Empty disables it.
	File    string
	Debug   bool
	Console io.Writer
}

// NewLogger returns a logger writing to the console and to cfg.File at once.
// The returned closer releases the file.
func NewLogger(cfg LogConfig) (*logrus.Logger, io.Closer, error) {
	if cfg.Console == nil {
		cfg.Console = os.Stderr
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		DisableColors:   cfg.File != "",
	})
	logger.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logger.SetLevel(logrus.DebugLevel)
	}

	console := NewTermWriter(cfg.Console)
	if cfg.File == "" {
		logger.SetOutput(console)
		return logger, io.NopCloser(nil), nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.File), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	f, err := os.OpenFile(cfg.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}
	logger.SetOutput(io.MultiWriter(console, f))
	return logger, f, nil
}
