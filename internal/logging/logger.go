// Package logging provides config-driven categorized file-based logging
// for QuickFlip. Logs are written under the configured directory with one
// file per category per day. When debug mode is off the whole package is
// a silent no-op, so production runs pay no logging cost beyond the
// category check.
package logging

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot      Category = "boot"      // Startup and configuration
	CategoryAPI       Category = "api"       // External service HTTP calls
	CategoryVision    Category = "vision"    // Vision extraction adapter
	CategoryMarket    Category = "market"    // Market price adapter
	CategoryReconcile Category = "reconcile" // Fact reconciliation
	CategoryPricing   Category = "pricing"   // Pricing adjustment pipeline
	CategoryScore     Category = "score"     // Tier and FlipScore calculators
	CategoryListing   Category = "listing"   // Listing composition
	CategoryCache     Category = "cache"     // Market lookup cache
)

// Log levels.
const (
	LevelDebug = 0
	LevelInfo  = 1
	LevelWarn  = 2
	LevelError = 3
)

// Options configures the logging package at startup.
type Options struct {
	// DebugMode enables file logging entirely. Off means no-op.
	DebugMode bool
	// Dir is the log directory. Defaults to "logs" under the workspace.
	Dir string
	// Level is the minimum level: debug, info, warn, error.
	Level string
	// Categories filters which categories are written. Empty = all.
	Categories map[string]bool
}

// Logger wraps a standard logger with category and file output.
type Logger struct {
	category Category
	logger   *log.Logger
	file     *os.File
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	opts     Options
	optsMu   sync.RWMutex
	logLevel int
)

// Initialize sets up the logging directory from options. Call once at
// startup, before any logging.
func Initialize(o Options) error {
	optsMu.Lock()
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
	optsMu.Unlock()

	if !o.DebugMode {
		return nil
	}
	if o.Dir == "" {
		o.Dir = "logs"
		optsMu.Lock()
		opts.Dir = o.Dir
		optsMu.Unlock()
	}
	if err := os.MkdirAll(o.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}

	boot := Get(CategoryBoot)
	boot.Info("=== QuickFlip logging initialized ===")
	boot.Info("Logs directory: %s", o.Dir)
	boot.Info("Log level: %s", o.Level)
	return nil
}

// IsDebugMode returns whether debug logging is enabled.
func IsDebugMode() bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	return opts.DebugMode
}

// IsCategoryEnabled returns whether a specific category is enabled.
func IsCategoryEnabled(category Category) bool {
	optsMu.RLock()
	defer optsMu.RUnlock()
	if !opts.DebugMode {
		return false
	}
	if len(opts.Categories) == 0 {
		return true
	}
	enabled, exists := opts.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category. Returns a
// no-op logger if debug mode or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()
	if l, ok := loggers[category]; ok {
		return l
	}

	optsMu.RLock()
	dir := opts.Dir
	optsMu.RUnlock()

	date := time.Now().Format("2006-01-02")
	logPath := filepath.Join(dir, fmt.Sprintf("%s_%s.log", date, category))
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[logging] could not open %s: %v\n", logPath, err)
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

// Warn logs a warning message.
func (l *Logger) Warn(format string, args ...interface{}) {
	if l.logger == nil || logLevel > LevelWarn {
		return
	}
	l.logger.Printf("[WARN] %s", fmt.Sprintf(format, args...))
}

// Error logs an error message (always written if the logger exists).
func (l *Logger) Error(format string, args ...interface{}) {
	if l.logger == nil {
		return
	}
	l.logger.Printf("[ERROR] %s", fmt.Sprintf(format, args...))
}

// CloseAll closes all open log files. Call at shutdown.
func CloseAll() {
	loggersMu.Lock()
	defer loggersMu.Unlock()
	for _, l := range loggers {
		if l.file != nil {
			l.file.Close()
		}
	}
	loggers = make(map[Category]*Logger)
}

// =============================================================================
// CONVENIENCE FUNCTIONS - quick logging without getting a logger first.
// No-ops when the category is disabled.
// =============================================================================

// Boot logs to the boot category.
func Boot(format string, args ...interface{}) { Get(CategoryBoot).Info(format, args...) }

// BootError logs an error to the boot category.
func BootError(format string, args ...interface{}) { Get(CategoryBoot).Error(format, args...) }

// API logs to the api category.
func API(format string, args ...interface{}) { Get(CategoryAPI).Info(format, args...) }

// APIDebug logs debug to the api category.
func APIDebug(format string, args ...interface{}) { Get(CategoryAPI).Debug(format, args...) }

// APIError logs an error to the api category.
func APIError(format string, args ...interface{}) { Get(CategoryAPI).Error(format, args...) }

// Vision logs to the vision category.
func Vision(format string, args ...interface{}) { Get(CategoryVision).Info(format, args...) }

// VisionDebug logs debug to the vision category.
func VisionDebug(format string, args ...interface{}) { Get(CategoryVision).Debug(format, args...) }

// VisionWarn logs a warning to the vision category.
func VisionWarn(format string, args ...interface{}) { Get(CategoryVision).Warn(format, args...) }

// VisionError logs an error to the vision category.
func VisionError(format string, args ...interface{}) { Get(CategoryVision).Error(format, args...) }

// Market logs to the market category.
func Market(format string, args ...interface{}) { Get(CategoryMarket).Info(format, args...) }

// MarketDebug logs debug to the market category.
func MarketDebug(format string, args ...interface{}) { Get(CategoryMarket).Debug(format, args...) }

// MarketWarn logs a warning to the market category.
func MarketWarn(format string, args ...interface{}) { Get(CategoryMarket).Warn(format, args...) }

// Reconcile logs to the reconcile category.
func Reconcile(format string, args ...interface{}) { Get(CategoryReconcile).Info(format, args...) }

// ReconcileDebug logs debug to the reconcile category.
func ReconcileDebug(format string, args ...interface{}) { Get(CategoryReconcile).Debug(format, args...) }

// Pricing logs to the pricing category.
func Pricing(format string, args ...interface{}) { Get(CategoryPricing).Info(format, args...) }

// PricingDebug logs debug to the pricing category.
func PricingDebug(format string, args ...interface{}) { Get(CategoryPricing).Debug(format, args...) }

// PricingWarn logs a warning to the pricing category.
func PricingWarn(format string, args ...interface{}) { Get(CategoryPricing).Warn(format, args...) }

// Score logs to the score category.
func Score(format string, args ...interface{}) { Get(CategoryScore).Info(format, args...) }

// Listing logs to the listing category.
func Listing(format string, args ...interface{}) { Get(CategoryListing).Info(format, args...) }

// ListingWarn logs a warning to the listing category.
func ListingWarn(format string, args ...interface{}) { Get(CategoryListing).Warn(format, args...) }

// ListingError logs an error to the listing category.
func ListingError(format string, args ...interface{}) { Get(CategoryListing).Error(format, args...) }

// Cache logs to the cache category.
func Cache(format string, args ...interface{}) { Get(CategoryCache).Info(format, args...) }

// CacheDebug logs debug to the cache category.
func CacheDebug(format string, args ...interface{}) { Get(CategoryCache).Debug(format, args...) }

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// RequestLogger provides request-scoped logging with a correlation ID.
type RequestLogger struct {
	logger    *Logger
	requestID string
}

// WithRequestID creates a request-scoped logger.
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{logger: Get(category), requestID: requestID}
}

func (r *RequestLogger) formatMsg(format string, args ...interface{}) string {
	return fmt.Sprintf("[req:%s] %s", r.requestID, fmt.Sprintf(format, args...))
}

func (r *RequestLogger) Debug(format string, args ...interface{}) {
	r.logger.Debug("%s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Info(format string, args ...interface{}) {
	r.logger.Info("%s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Warn(format string, args ...interface{}) {
	r.logger.Warn("%s", r.formatMsg(format, args...))
}

func (r *RequestLogger) Error(format string, args ...interface{}) {
	r.logger.Error("%s", r.formatMsg(format, args...))
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration.
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation.
func StartTimer(category Category, operation string) *Timer {
	return &Timer{category: category, op: operation, start: time.Now()}
}

// Stop ends the timer and logs the duration at debug level.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithInfo ends the timer and logs at info level.
func (t *Timer) StopWithInfo() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Info("%s completed in %v", t.op, elapsed)
	return elapsed
}
