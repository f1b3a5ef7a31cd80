package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// Level represents the severity of a log message.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func levelString(level Level) string {
	switch level {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Logger defines a minimal, printf-style logging contract.
//
// Components depend on this interface so tests can inject a no-op or
// recording logger without touching global state.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

// Nop returns a logger that discards all output.
func Nop() Logger {
	return nopLogger{}
}

// OrNop returns logger when non-nil, otherwise a no-op logger.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return Nop()
	}
	return logger
}

var (
	rootInstance *root
	rootOnce     sync.Once
)

// root owns the shared output sinks. Component loggers share one root so a
// single file handle backs the whole process.
type root struct {
	mu    sync.Mutex
	out   io.Writer
	file  *os.File
	level Level
}

func getRoot() *root {
	rootOnce.Do(func() {
		rootInstance = &root{out: os.Stderr, level: INFO}
		if lvl := os.Getenv("AGORA_LOG_LEVEL"); lvl != "" {
			rootInstance.level = parseLevel(lvl)
		}
		if path := os.Getenv("AGORA_LOG_FILE"); path != "" {
			if file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644); err == nil {
				rootInstance.file = file
			}
		}
	})
	return rootInstance
}

func parseLevel(s string) Level {
	switch s {
	case "debug", "DEBUG":
		return DEBUG
	case "warn", "WARN":
		return WARN
	case "error", "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// SetLevel adjusts the minimum level for the process-wide sinks.
func SetLevel(level Level) {
	r := getRoot()
	r.mu.Lock()
	r.level = level
	r.mu.Unlock()
}

// componentLogger emits leveled, timestamped lines tagged with a component name.
type componentLogger struct {
	root      *root
	component string
}

// NewComponentLogger returns the default application logger scoped to a component.
func NewComponentLogger(component string) Logger {
	return &componentLogger{root: getRoot(), component: component}
}

func (l *componentLogger) log(level Level, format string, args ...any) {
	r := l.root
	r.mu.Lock()
	defer r.mu.Unlock()

	if level < r.level {
		return
	}

	_, file, line, ok := runtime.Caller(2)
	if ok {
		file = filepath.Base(file)
	} else {
		file = "???"
		line = 0
	}

	component := l.component
	if component == "" {
		component = "agora"
	}

	// Format: 2025-09-30 12:34:56 [INFO] [component] file.go:123 - message
	message := fmt.Sprintf(format, args...)
	logLine := fmt.Sprintf("%s [%s] [%s] %s:%d - %s\n",
		time.Now().Format("2006-01-02 15:04:05"), levelString(level), component, file, line, message)

	fmt.Fprint(r.out, logLine)
	if r.file != nil {
		fmt.Fprint(r.file, logLine)
	}
}

func (l *componentLogger) Debug(format string, args ...any) { l.log(DEBUG, format, args...) }
func (l *componentLogger) Info(format string, args ...any)  { l.log(INFO, format, args...) }
func (l *componentLogger) Warn(format string, args ...any)  { l.log(WARN, format, args...) }
func (l *componentLogger) Error(format string, args ...any) { l.log(ERROR, format, args...) }
