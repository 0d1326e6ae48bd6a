// Package logger provides the leveled console logger used by the specgate
// commands. Output is timestamped, mutex-guarded, and colorized when the
// destination is a TTY.
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// Log level constants for filtering
const (
	levelTrace int = 0
	levelDebug int = 1
	levelInfo  int = 2
	levelWarn  int = 3
	levelError int = 4
)

var levelNames = map[string]int{
	"trace": levelTrace,
	"debug": levelDebug,
	"info":  levelInfo,
	"warn":  levelWarn,
	"error": levelError,
}

// ConsoleLogger logs to a writer with [HH:MM:SS] prefixes and thread safety.
// If writer is nil, messages are silently discarded.
type ConsoleLogger struct {
	writer      io.Writer
	level       int
	mutex       sync.Mutex
	colorOutput bool
}

// NewConsoleLogger creates a ConsoleLogger writing to w at the given level.
// Valid levels: trace, debug, info, warn, error (case-insensitive); empty or
// invalid levels default to "info". Color is enabled only when w is a TTY
// (os.Stdout/os.Stderr) and NO_COLOR is not set.
func NewConsoleLogger(w io.Writer, logLevel string) *ConsoleLogger {
	level, ok := levelNames[strings.ToLower(logLevel)]
	if !ok {
		level = levelInfo
	}
	return &ConsoleLogger{
		writer:      w,
		level:       level,
		colorOutput: isTerminal(w),
	}
}

// isTerminal reports whether the writer is a color-capable terminal.
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	if color.NoColor {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Tracef logs at trace level.
func (l *ConsoleLogger) Tracef(format string, args ...interface{}) {
	l.logf(levelTrace, nil, format, args...)
}

// Debugf logs at debug level.
func (l *ConsoleLogger) Debugf(format string, args ...interface{}) {
	l.logf(levelDebug, nil, format, args...)
}

// Infof logs at info level.
func (l *ConsoleLogger) Infof(format string, args ...interface{}) {
	l.logf(levelInfo, nil, format, args...)
}

// Warnf logs at warn level, in yellow on terminals.
func (l *ConsoleLogger) Warnf(format string, args ...interface{}) {
	l.logf(levelWarn, color.New(color.FgYellow), format, args...)
}

// Errorf logs at error level, in red on terminals.
func (l *ConsoleLogger) Errorf(format string, args ...interface{}) {
	l.logf(levelError, color.New(color.FgRed), format, args...)
}

func (l *ConsoleLogger) logf(level int, c *color.Color, format string, args ...interface{}) {
	if l.writer == nil || level < l.level {
		return
	}

	l.mutex.Lock()
	defer l.mutex.Unlock()

	msg := fmt.Sprintf(format, args...)
	line := fmt.Sprintf("[%s] %s\n", time.Now().Format("15:04:05"), msg)
	if l.colorOutput && c != nil {
		c.Fprint(l.writer, line)
		return
	}
	fmt.Fprint(l.writer, line)
}
