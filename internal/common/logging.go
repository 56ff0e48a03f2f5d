package common

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

// Color is the diagnostic color preference.
type Color int

const (
	ColorAuto Color = iota
	ColorAlways
	ColorNever
)

func ParseColor(s string) (Color, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ColorAuto, nil
	case "always":
		return ColorAlways, nil
	case "never":
		return ColorNever, nil
	default:
		return ColorAuto, fmt.Errorf("unknown color preference %q (want auto, always or never)", s)
	}
}

const (
	ansiRed    = "\x1b[31m"
	ansiYellow = "\x1b[33m"
	ansiCyan   = "\x1b[36m"
	ansiReset  = "\x1b[0m"
)

var (
	logger    = log.New(os.Stderr, "[logcat] ", log.LstdFlags|log.Lmicroseconds)
	verbosity atomic.Int32
	colorize  atomic.Bool
)

// SetupLogging applies the CLI's verbosity count and color preference.
// Neither affects codec behavior, only diagnostics.
func SetupLogging(verbose int, color Color) {
	verbosity.Store(int32(verbose))
	switch color {
	case ColorAlways:
		colorize.Store(true)
	case ColorNever:
		colorize.Store(false)
	default:
		colorize.Store(term.IsTerminal(int(os.Stderr.Fd())))
	}
}

// SetOutput redirects diagnostics, e.g. to a rotating file writer.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func emit(color, level, format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if colorize.Load() && color != "" {
		logger.Printf("%s%s%s %s", color, level, ansiReset, msg)
		return
	}
	logger.Printf("%s %s", level, msg)
}

// Errorf always prints.
func Errorf(format string, args ...interface{}) {
	emit(ansiRed, "ERROR", format, args...)
}

// Warnf always prints.
func Warnf(format string, args ...interface{}) {
	emit(ansiYellow, "WARN", format, args...)
}

// Infof prints at -v and above.
func Infof(format string, args ...interface{}) {
	if verbosity.Load() >= 1 {
		emit("", "INFO", format, args...)
	}
}

// Debugf prints at -vv and above.
func Debugf(format string, args ...interface{}) {
	if verbosity.Load() >= 2 {
		emit(ansiCyan, "DEBUG", format, args...)
	}
}
