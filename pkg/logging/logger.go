// Package logging provides structured, optionally-async logging on top of
// log/slog. Pipeline code tags entries with brief, venue and zone context so
// a single brief's journey can be followed end to end.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"
)

// LogLevel represents different logging levels
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level       LogLevel `json:"level"`
	Format      string   `json:"format"` // "json" or "text"
	Output      string   `json:"output"` // "stdout", "stderr", or file path
	EnableFile  bool     `json:"enable_file"`
	FilePath    string   `json:"file_path"`
	EnableAsync bool     `json:"enable_async"`
}

// DefaultLogConfig returns sensible default logging configuration.
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:       LevelInfo,
		Format:      "json",
		Output:      "stdout",
		EnableAsync: true,
	}
}

// ParseLevel converts a level name from config into a LogLevel.
func ParseLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides structured logging with context support.
type Logger struct {
	config  LogConfig
	slogger *slog.Logger
	file    *os.File
	asyncCh chan entry
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

type entry struct {
	ts      time.Time
	level   LogLevel
	msg     string
	errText string
	caller  string
	fields  []Field
}

// NewLogger creates a structured logger per the given config.
func NewLogger(config LogConfig) (*Logger, error) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &Logger{config: config, ctx: ctx, cancel: cancel}

	var writer io.Writer
	switch config.Output {
	case "stdout", "":
		writer = os.Stdout
	case "stderr":
		writer = os.Stderr
	default:
		if err := l.openLogFile(config.Output); err != nil {
			cancel()
			return nil, err
		}
		writer = l.file
	}

	opts := &slog.HandlerOptions{Level: slogLevel(config.Level)}
	var handler slog.Handler
	if config.Format == "json" {
		handler = slog.NewJSONHandler(writer, opts)
	} else {
		handler = slog.NewTextHandler(writer, opts)
	}
	l.slogger = slog.New(handler)

	if config.EnableAsync {
		l.asyncCh = make(chan entry, 1000)
		l.wg.Add(1)
		go l.asyncWorker()
	}
	return l, nil
}

func (l *Logger) openLogFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	l.file = f
	return nil
}

func (l *Logger) asyncWorker() {
	defer l.wg.Done()
	for {
		select {
		case e := <-l.asyncCh:
			l.write(e)
		case <-l.ctx.Done():
			for {
				select {
				case e := <-l.asyncCh:
					l.write(e)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(e entry) {
	attrs := make([]slog.Attr, 0, len(e.fields)+3)
	attrs = append(attrs, slog.Time("timestamp", e.ts))
	if e.errText != "" {
		attrs = append(attrs, slog.String("error", e.errText))
	}
	if e.caller != "" {
		attrs = append(attrs, slog.String("caller", e.caller))
	}
	for _, f := range e.fields {
		attrs = append(attrs, slog.Any(f.Key, f.Value))
	}
	l.slogger.LogAttrs(context.Background(), slogLevel(e.level), e.msg, attrs...)
}

// Close drains async entries and closes the log file if any.
func (l *Logger) Close() error {
	l.cancel()
	if l.config.EnableAsync {
		l.wg.Wait()
	}
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// WithComponent returns a logger that tags every entry with the component.
func (l *Logger) WithComponent(component string) *ComponentLogger {
	return &ComponentLogger{logger: l, component: component}
}

// ComponentLogger tags entries with a fixed component name.
type ComponentLogger struct {
	logger    *Logger
	component string
}

func (l *Logger) Debug(msg string, fields ...Field) { l.log(LevelDebug, msg, "", fields...) }
func (l *Logger) Info(msg string, fields ...Field)  { l.log(LevelInfo, msg, "", fields...) }
func (l *Logger) Warn(msg string, fields ...Field)  { l.log(LevelWarn, msg, "", fields...) }

func (l *Logger) Error(msg string, err error, fields ...Field) {
	l.log(LevelError, msg, errText(err), fields...)
}

// Fatal logs and exits.
func (l *Logger) Fatal(msg string, err error, fields ...Field) {
	l.log(LevelFatal, msg, errText(err), fields...)
	l.Close()
	os.Exit(1)
}

func (cl *ComponentLogger) Debug(msg string, fields ...Field) {
	cl.logger.log(LevelDebug, msg, "", cl.tagged(fields)...)
}
func (cl *ComponentLogger) Info(msg string, fields ...Field) {
	cl.logger.log(LevelInfo, msg, "", cl.tagged(fields)...)
}
func (cl *ComponentLogger) Warn(msg string, fields ...Field) {
	cl.logger.log(LevelWarn, msg, "", cl.tagged(fields)...)
}
func (cl *ComponentLogger) Error(msg string, err error, fields ...Field) {
	cl.logger.log(LevelError, msg, errText(err), cl.tagged(fields)...)
}

func (cl *ComponentLogger) tagged(fields []Field) []Field {
	return append(fields, String("component", cl.component))
}

func (l *Logger) log(level LogLevel, msg, errText string, fields ...Field) {
	if level < l.config.Level {
		return
	}
	e := entry{ts: time.Now(), level: level, msg: msg, errText: errText, fields: fields}
	if level >= LevelWarn {
		if _, file, line, ok := runtime.Caller(2); ok {
			e.caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}
	if l.config.EnableAsync {
		select {
		case l.asyncCh <- e:
		default:
			// Buffer full, fall back to synchronous write.
			l.write(e)
		}
	} else {
		l.write(e)
	}
}

func errText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

func slogLevel(level LogLevel) slog.Level {
	switch level {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError, LevelFatal:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Field represents a structured log field.
type Field struct {
	Key   string
	Value interface{}
}

// Field constructors. BriefID, Venue and Zone are the pipeline's standard
// correlation keys.
func String(key, value string) Field             { return Field{Key: key, Value: value} }
func Int(key string, value int) Field            { return Field{Key: key, Value: value} }
func Int64(key string, value int64) Field        { return Field{Key: key, Value: value} }
func Float64(key string, value float64) Field    { return Field{Key: key, Value: value} }
func Bool(key string, value bool) Field          { return Field{Key: key, Value: value} }
func Duration(key string, v time.Duration) Field { return Field{Key: key, Value: v} }
func Any(key string, value interface{}) Field    { return Field{Key: key, Value: value} }

func BriefID(id int64) Field    { return Field{Key: "brief_id", Value: id} }
func Venue(name string) Field   { return Field{Key: "venue", Value: name} }
func Zone(name string) Field    { return Field{Key: "zone", Value: name} }
func Error(err error) Field     { return Field{Key: "error", Value: errText(err)} }
