// Package log is a small leveled wrapper around the standard logger.
package log

import (
	"fmt"
	"io"
	"log"
	"os"
)

var (
	infoLogger  = log.New(os.Stdout, "INFO: ", log.LstdFlags|log.Lshortfile)
	warnLogger  = log.New(os.Stdout, "WARN: ", log.LstdFlags|log.Lshortfile)
	errorLogger = log.New(os.Stderr, "ERROR: ", log.LstdFlags|log.Lshortfile)
	debugLogger = log.New(io.Discard, "DEBUG: ", log.LstdFlags|log.Lshortfile)
)

// calldepth skips this package so Lshortfile reports the caller.
const calldepth = 2

// EnableDebug turns debug output on or off.
func EnableDebug(on bool) {
	if on {
		debugLogger.SetOutput(os.Stdout)
		return
	}
	debugLogger.SetOutput(io.Discard)
}

// SetOutput redirects every level to w. Used by tests to silence or capture logs.
func SetOutput(w io.Writer) {
	infoLogger.SetOutput(w)
	warnLogger.SetOutput(w)
	errorLogger.SetOutput(w)
}

func Info(v ...any) {
	infoLogger.Output(calldepth, sprintln(v...))
}

func Infof(format string, v ...any) {
	infoLogger.Output(calldepth, sprintf(format, v...))
}

func Warn(v ...any) {
	warnLogger.Output(calldepth, sprintln(v...))
}

func Warnf(format string, v ...any) {
	warnLogger.Output(calldepth, sprintf(format, v...))
}

func Error(v ...any) {
	errorLogger.Output(calldepth, sprintln(v...))
}

func Errorf(format string, v ...any) {
	errorLogger.Output(calldepth, sprintf(format, v...))
}

func Debug(v ...any) {
	debugLogger.Output(calldepth, sprintln(v...))
}

func Debugf(format string, v ...any) {
	debugLogger.Output(calldepth, sprintf(format, v...))
}

// Fatalf logs at error level and exits.
func Fatalf(format string, v ...any) {
	errorLogger.Output(calldepth, sprintf(format, v...))
	os.Exit(1)
}

func sprintln(v ...any) string { return fmt.Sprintln(v...) }

func sprintf(format string, v ...any) string { return fmt.Sprintf(format, v...) }
