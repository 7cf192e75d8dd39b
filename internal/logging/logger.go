package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

// Logger is a duck-typed interface satisfied by *slog.Logger.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

var (
	moduleLoggers   = make(map[string]*slog.Logger)
	moduleLevelVars = make(map[string]*slog.LevelVar)
	globalConfig    Config
	globalLevelVar  = &slog.LevelVar{}
	isInitialized   bool
	mutex           sync.RWMutex
)

// Config represents logging configuration.
type Config struct {
	Level   string            `toml:"level"`
	Format  string            `toml:"format"`
	Modules map[string]string `toml:"modules"`

	// Output overrides stdout. CLI commands log to stderr so their
	// results stay parseable.
	Output io.Writer `toml:"-"`
}

// Initialize sets up the logging system. Loggers handed out earlier are
// rebuilt with the new format and output.
func Initialize(config Config) {
	mutex.Lock()
	defer mutex.Unlock()

	globalConfig = config
	isInitialized = true

	globalLevelVar.Set(levelOrDefault(config.Level))

	for module, levelVar := range moduleLevelVars {
		levelVar.Set(moduleLevel(module))
		moduleLoggers[module] = slog.New(createHandler(config, levelVar)).With("module", module)
	}

	slog.SetDefault(slog.New(createHandler(config, globalLevelVar)))
}

// GetLogger returns a logger for the specified module, creating it if needed.
func GetLogger(module string) *slog.Logger {
	mutex.RLock()
	if logger, exists := moduleLoggers[module]; exists {
		mutex.RUnlock()
		return logger
	}
	mutex.RUnlock()

	mutex.Lock()
	defer mutex.Unlock()

	if logger, exists := moduleLoggers[module]; exists {
		return logger
	}

	levelVar := &slog.LevelVar{}
	cfg := Config{Format: "text"}
	if isInitialized {
		levelVar.Set(moduleLevel(module))
		cfg = globalConfig
	} else {
		levelVar.Set(slog.LevelInfo)
	}

	logger := slog.New(createHandler(cfg, levelVar)).With("module", module)
	moduleLoggers[module] = logger
	moduleLevelVars[module] = levelVar
	return logger
}

// SetLevel changes the level of one module at runtime, or of every module
// without an override when module is empty. Unknown levels are ignored.
func SetLevel(module, level string) bool {
	parsed := parseLevel(level)
	if parsed == nil {
		return false
	}

	mutex.Lock()
	defer mutex.Unlock()

	if module != "" {
		if globalConfig.Modules == nil {
			globalConfig.Modules = make(map[string]string)
		}
		globalConfig.Modules[module] = level
		if levelVar, ok := moduleLevelVars[module]; ok {
			levelVar.Set(*parsed)
		}
		return true
	}

	globalConfig.Level = level
	globalLevelVar.Set(*parsed)
	for name, levelVar := range moduleLevelVars {
		if _, override := globalConfig.Modules[name]; !override {
			levelVar.Set(*parsed)
		}
	}
	return true
}

// moduleLevel resolves the level of module from globalConfig. Caller holds mutex.
func moduleLevel(module string) slog.Level {
	if levelStr, exists := globalConfig.Modules[module]; exists {
		if parsed := parseLevel(levelStr); parsed != nil {
			return *parsed
		}
	}
	return levelOrDefault(globalConfig.Level)
}

func levelOrDefault(level string) slog.Level {
	if parsed := parseLevel(level); parsed != nil {
		return *parsed
	}
	return slog.LevelInfo
}

// createHandler builds the handler chain: the configured writer (stdout by
// default) plus the systemd journal when it is reachable.
func createHandler(config Config, level slog.Leveler) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}

	out := config.Output
	writerAvailable := out != nil
	if out == nil {
		out = os.Stdout
		writerAvailable = isStdoutAvailable()
	}

	var writerHandler slog.Handler
	if config.Format == "json" {
		writerHandler = slog.NewJSONHandler(out, opts)
	} else {
		writerHandler = slog.NewTextHandler(out, opts)
	}

	var handlers []slog.Handler
	if writerAvailable {
		handlers = append(handlers, writerHandler)
	}
	if config.Output == nil && IsJournalAvailable() {
		handlers = append(handlers, NewJournalHandler(level))
	}

	switch len(handlers) {
	case 0:
		return writerHandler
	case 1:
		return handlers[0]
	default:
		return NewMultiHandler(handlers...)
	}
}

// isStdoutAvailable checks if stdout is connected to a terminal, pipe, socket, or file.
func isStdoutAvailable() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	mode := fi.Mode()
	return (mode&os.ModeCharDevice) != 0 || (mode&os.ModeNamedPipe) != 0 || (mode&os.ModeSocket) != 0 || mode.IsRegular()
}

// parseLevel converts string level to slog.Level.
func parseLevel(level string) *slog.Level {
	var l slog.Level
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		l = slog.LevelDebug
	case "info":
		l = slog.LevelInfo
	case "warn", "warning":
		l = slog.LevelWarn
	case "error":
		l = slog.LevelError
	default:
		return nil
	}
	return &l
}
