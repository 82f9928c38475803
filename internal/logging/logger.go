// Package logging provides categorized file-based logging for offnitro.
// Logs are written under <workspace>/.offnitro/logs/ with one file per
// category per day. Nothing is written unless debug mode is enabled, so
// normal scan runs leave no log files behind.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category labels a log stream.
type Category string

const (
	CategoryBoot    Category = "boot"    // startup, config resolution
	CategoryScan    Category = "scan"    // batch scan progress
	CategoryPerturb Category = "perturb" // per-geometry perturbation detail
	CategoryStore   Category = "store"   // catalog operations
	CategoryWatch   Category = "watch"   // inbox watcher events
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options controls the logging subsystem. Zero value means disabled.
type Options struct {
	DebugMode  bool
	Level      string          // debug, info, warn, error
	Categories map[string]bool // nil enables all categories
}

// Logger writes to one category's log file. A Logger with no file is a
// no-op, which is how disabled categories behave.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	mu       sync.Mutex
	loggers  = make(map[Category]*Logger)
	logsDir  string
	opts     Options
	logLevel = LevelInfo
)

// Initialize configures the logging directory from the workspace path and
// the resolved tool options. Call once at startup; a disabled configuration
// is a silent no-op.
func Initialize(workspace string, o Options) error {
	mu.Lock()
	opts = o
	switch o.Level {
	case "debug":
		logLevel = LevelDebug
	case "warn", "warning":
		logLevel = LevelWarn
	case "error":
		logLevel = LevelError
	default:
		logLevel = LevelInfo
	}

	if !o.DebugMode {
		logsDir = ""
		mu.Unlock()
		return nil
	}
	if workspace == "" {
		mu.Unlock()
		return fmt.Errorf("workspace path required for debug logging")
	}

	logsDir = filepath.Join(workspace, ".offnitro", "logs")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		mu.Unlock()
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	mu.Unlock()

	boot := Get(CategoryBoot)
	boot.Info("offnitro logging initialized")
	boot.Info("logs directory: %s", logsDir)
	return nil
}

// enabled reports whether a category should produce output.
func enabled(category Category) bool {
	if !opts.DebugMode || logsDir == "" {
		return false
	}
	if opts.Categories == nil {
		return true
	}
	on, ok := opts.Categories[string(category)]
	if !ok {
		return true
	}
	return on
}

// Get returns (or creates) the logger for a category. Disabled categories
// get a no-op logger.
func Get(category Category) *Logger {
	mu.Lock()
	defer mu.Unlock()

	if !enabled(category) {
		return &Logger{category: category}
	}
	if l, ok := loggers[category]; ok {
		return l
	}

	// Date-prefixed files keep rotation trivial.
	date := time.Now().Format("2006-01-02")
	path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", path, err)
		return &Logger{category: category}
	}

	l := &Logger{
		category: category,
		file:     file,
		logger:   log.New(file, "", log.Ldate|log.Ltime|log.Lmicroseconds),
	}
	loggers[category] = l
	return l
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelDebug {
		return
	}
	l.logger.Printf("[DEBUG] %s", fmt.Sprintf(format, args...))
}

// Info logs an informational message.
func (l *Logger) Info(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelInfo {
		return
	}
	l.logger.Printf("[INFO] %s", fmt.Sprintf(format, args...))
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error. Errors are never filtered by level.
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes every open log file. Call at shutdown.
func CloseAll() {
	mu.Lock()
	defer mu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// Timer measures an operation's duration and logs it on Stop.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the elapsed time at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// Convenience functions, no-ops when the category is disabled.

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// Scan logs to the scan category.
func Scan(format string, args ...interface{}) { Get(CategoryScan).Info(format, args...) }

// ScanDebug logs debug to the scan category.
func ScanDebug(format string, args ...interface{}) { Get(CategoryScan).Debug(format, args...) }

// Perturb logs to the perturb category.
func Perturb(format string, args ...interface{}) { Get(CategoryPerturb).Info(format, args...) }

// Store logs to the store category.
func Store(format string, args ...interface{}) { Get(CategoryStore).Info(format, args...) }

// Watch logs to the watch category.
func Watch(format string, args ...interface{}) { Get(CategoryWatch).Info(format, args...) }

// WatchError logs an error to the watch category.
func WatchError(format string, args ...interface{}) { Get(CategoryWatch).Error(format, args...) }
