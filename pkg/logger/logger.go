package logger

import (
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/fatih/color"
)

// Level represents the severity level of a log message.
type Level int

const (
	DebugLevel Level = iota
	InfoLevel
	NoticeLevel
	ErrorLevel
)

// ParseLevel maps a level name to its Level.
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel, nil
	case "info":
		return InfoLevel, nil
	case "notice":
		return NoticeLevel, nil
	case "error":
		return ErrorLevel, nil
	}
	return 0, fmt.Errorf("unknown log level %q", s)
}

// chainPrefixes maps chain IDs to a short display tag.
var chainPrefixes = map[int]string{
	1:     "[ETH]  ",
	10:    "[OP]   ",
	56:    "[BSC]  ",
	100:   "[GNO]  ",
	137:   "[POL]  ",
	8453:  "[BASE] ",
	42161: "[ARB]  ",
	43114: "[AVA]  ",
}

var chainColors = map[int]color.Attribute{
	1:     color.FgHiGreen,
	10:    color.FgHiRed,
	56:    color.FgYellow,
	100:   color.FgHiCyan,
	137:   color.FgMagenta,
	8453:  color.FgBlue,
	42161: color.FgHiBlue,
	43114: color.FgRed,
}

var levelTags = map[Level]string{
	DebugLevel:  "[DEBUG]  ",
	InfoLevel:   "[INFO]   ",
	NoticeLevel: "[NOTICE] ",
	ErrorLevel:  "[ERROR]  ",
}

// Logger is a simple interface for logging messages.
type Logger interface {
	Info(format string, args ...interface{})
	InfoWithChain(chainID int, format string, args ...interface{})

	Error(format string, args ...interface{})
	ErrorWithChain(chainID int, format string, args ...interface{})

	Debug(format string, args ...interface{})
	DebugWithChain(chainID int, format string, args ...interface{})

	Notice(format string, args ...interface{})
	NoticeWithChain(chainID int, format string, args ...interface{})
}

// EmptyLogger discards everything; used in tests.
type EmptyLogger struct{}

var _ Logger = (*EmptyLogger)(nil)

func (l *EmptyLogger) Info(_ string, _ ...interface{})                   {}
func (l *EmptyLogger) InfoWithChain(_ int, _ string, _ ...interface{})   {}
func (l *EmptyLogger) Error(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) ErrorWithChain(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Debug(_ string, _ ...interface{})                  {}
func (l *EmptyLogger) DebugWithChain(_ int, _ string, _ ...interface{})  {}
func (l *EmptyLogger) Notice(_ string, _ ...interface{})                 {}
func (l *EmptyLogger) NoticeWithChain(_ int, _ string, _ ...interface{}) {}

// StdLogger logs to the standard logger with optional per-chain coloring.
type StdLogger struct {
	enableColoring bool
	level          Level
	mu             sync.Mutex
}

var _ Logger = (*StdLogger)(nil)

func NewStdLogger(enableColoring bool, level Level) *StdLogger {
	return &StdLogger{
		enableColoring: enableColoring,
		level:          level,
	}
}

func (l *StdLogger) logAt(level Level, chainID int, format string, args []interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.level > level {
		return
	}

	prefix := chainPrefixes[chainID]
	if prefix != "" && l.enableColoring {
		prefix = color.New(chainColors[chainID]).Sprint(prefix)
	}
	log.Printf(levelTags[level]+prefix+format, args...)
}

func (l *StdLogger) Info(format string, args ...interface{}) {
	l.logAt(InfoLevel, 0, format, args)
}

func (l *StdLogger) InfoWithChain(chainID int, format string, args ...interface{}) {
	l.logAt(InfoLevel, chainID, format, args)
}

func (l *StdLogger) Error(format string, args ...interface{}) {
	l.logAt(ErrorLevel, 0, format, args)
}

func (l *StdLogger) ErrorWithChain(chainID int, format string, args ...interface{}) {
	l.logAt(ErrorLevel, chainID, format, args)
}

func (l *StdLogger) Debug(format string, args ...interface{}) {
	l.logAt(DebugLevel, 0, format, args)
}

func (l *StdLogger) DebugWithChain(chainID int, format string, args ...interface{}) {
	l.logAt(DebugLevel, chainID, format, args)
}

func (l *StdLogger) Notice(format string, args ...interface{}) {
	l.logAt(NoticeLevel, 0, format, args)
}

func (l *StdLogger) NoticeWithChain(chainID int, format string, args ...interface{}) {
	l.logAt(NoticeLevel, chainID, format, args)
}
