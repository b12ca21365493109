package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/op/go-logging"
)

// Level is a logging verbosity.
type Level logging.Level

const (
	Debug Level = iota
	Info
	Notice
	Warning
	Error
)

var levelNames = map[string]Level{
	"debug":   Debug,
	"info":    Info,
	"notice":  Notice,
	"warning": Warning,
	"error":   Error,
}

var format = logging.MustStringFormatter(
	`%{color}[%{time:15:04:05.000}] [%{module}] [%{level}]%{color:reset} %{message}`,
)

var (
	mu             sync.Mutex
	leveledBackend logging.LeveledBackend
	globalLevel    = Notice
	moduleLevels   = map[string]Level{}
)

// Logger is what the renderer, geometry, loaders and server packages log through.
type Logger interface {
	Debug(v ...interface{})
	Debugf(format string, v ...interface{})

	Notice(v ...interface{})
	Noticef(format string, v ...interface{})

	Info(v ...interface{})
	Infof(format string, v ...interface{})

	Warning(v ...interface{})
	Warningf(format string, v ...interface{})

	Error(v ...interface{})
	Errorf(format string, v ...interface{})
}

// New returns the logger for a module such as "renderer" or "loaders".
func New(module string) Logger {
	return logging.MustGetLogger(module)
}

// SetSink redirects all output to sink. Configured levels are kept.
func SetSink(sink io.Writer) {
	mu.Lock()
	defer mu.Unlock()

	backend := logging.NewBackendFormatter(logging.NewLogBackend(sink, "", 0), format)
	leveledBackend = logging.AddModuleLevel(backend)
	applyLevels()
	logging.SetBackend(leveledBackend)
}

// SetLevel sets the verbosity of every module without its own level.
func SetLevel(level Level) {
	mu.Lock()
	defer mu.Unlock()
	globalLevel = level
	applyLevels()
}

// SetModuleLevel overrides the verbosity of a single module.
func SetModuleLevel(module string, level Level) {
	mu.Lock()
	defer mu.Unlock()
	moduleLevels[module] = level
	applyLevels()
}

// ResetLevels drops module overrides and restores the Notice default.
func ResetLevels() {
	mu.Lock()
	defer mu.Unlock()
	globalLevel = Notice
	moduleLevels = map[string]Level{}
	applyLevels()
}

// ParseModuleLevel parses "module=level", e.g. "geometry=debug".
func ParseModuleLevel(spec string) (string, Level, error) {
	module, name, ok := strings.Cut(spec, "=")
	if !ok || module == "" {
		return "", 0, fmt.Errorf("log: expected module=level, got %q", spec)
	}
	level, ok := levelNames[strings.ToLower(name)]
	if !ok {
		return "", 0, fmt.Errorf("log: unknown level %q", name)
	}
	return module, level, nil
}

// applyLevels pushes the configured levels into the backend. Caller holds mu.
func applyLevels() {
	leveledBackend.SetLevel(goLevel(globalLevel), "")
	for module, level := range moduleLevels {
		leveledBackend.SetLevel(goLevel(level), module)
	}
}

func goLevel(level Level) logging.Level {
	switch level {
	case Debug:
		return logging.DEBUG
	case Info:
		return logging.INFO
	case Warning:
		return logging.WARNING
	case Error:
		return logging.ERROR
	}
	return logging.NOTICE
}

func init() {
	SetSink(os.Stdout)
}
