package core

import (
	"fmt"
	"log"
	"os"
	"sync"
)

type Logger interface {
	DebugEnabled() bool
	SetDebug(enabled bool)
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
}

type DefaultLogger struct {
	mu     sync.Mutex
	debug  bool
	prefix string
	out    *log.Logger
	err    *log.Logger
}

func NewDefaultLogger(prefix string, debug bool) *DefaultLogger {
	flags := log.LstdFlags | log.Lmicroseconds
	return &DefaultLogger{
		debug:  debug,
		prefix: prefix,
		out:    log.New(os.Stdout, "", flags),
		err:    log.New(os.Stderr, "", flags),
	}
}

func (l *DefaultLogger) DebugEnabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debug
}

func (l *DefaultLogger) SetDebug(enabled bool) {
	l.mu.Lock()
	l.debug = enabled
	l.mu.Unlock()
}

func (l *DefaultLogger) format(level string, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if l.prefix != "" {
		return fmt.Sprintf("[%s] %s: %s", l.prefix, level, msg)
	}
	return fmt.Sprintf("%s: %s", level, msg)
}

func (l *DefaultLogger) Debugf(format string, args ...any) {
	if !l.DebugEnabled() {
		return
	}
	l.out.Print(l.format("DEBUG", format, args...))
}

func (l *DefaultLogger) Infof(format string, args ...any) {
	l.out.Print(l.format("INFO", format, args...))
}

func (l *DefaultLogger) Warnf(format string, args ...any) {
	l.err.Print(l.format("WARN", format, args...))
}

func (l *DefaultLogger) Errorf(format string, args ...any) {
	l.err.Print(l.format("ERROR", format, args...))
}

type nopLogger struct{}

// NewNopLogger returns a Logger that discards everything.
func NewNopLogger() Logger { return nopLogger{} }

func (nopLogger) DebugEnabled() bool                { return false }
func (nopLogger) SetDebug(enabled bool)             {}
func (nopLogger) Debugf(format string, args ...any) {}
func (nopLogger) Infof(format string, args ...any)  {}
func (nopLogger) Warnf(format string, args ...any)  {}
func (nopLogger) Errorf(format string, args ...any) {}

// scopedLogger prefixes every message with a fixed scope before handing it
// to its parent.
type scopedLogger struct {
	parent Logger
	scope  string
}

// With returns a child of l whose messages start with "scope: ". Scopes
// nest. A nil l yields a no-op logger.
func With(l Logger, scope string) Logger {
	switch p := l.(type) {
	case nil, nopLogger:
		return NewNopLogger()
	case *scopedLogger:
		return &scopedLogger{parent: p.parent, scope: p.scope + ": " + scope}
	}
	return &scopedLogger{parent: l, scope: scope}
}

func (s *scopedLogger) DebugEnabled() bool    { return s.parent.DebugEnabled() }
func (s *scopedLogger) SetDebug(enabled bool) { s.parent.SetDebug(enabled) }

func (s *scopedLogger) Debugf(format string, args ...any) {
	if s.parent.DebugEnabled() {
		s.parent.Debugf("%s: %s", s.scope, fmt.Sprintf(format, args...))
	}
}

func (s *scopedLogger) Infof(format string, args ...any) {
	s.parent.Infof("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s *scopedLogger) Warnf(format string, args ...any) {
	s.parent.Warnf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

func (s *scopedLogger) Errorf(format string, args ...any) {
	s.parent.Errorf("%s: %s", s.scope, fmt.Sprintf(format, args...))
}

// OrNop returns l, or a no-op logger when l is nil. Never returns nil.
func OrNop(l Logger) Logger {
	if l == nil {
		return NewNopLogger()
	}
	return l
}
