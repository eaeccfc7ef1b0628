package logger

import (
	"io"
	"log"
	"os"
	"strings"
)

type LogLevel int

const (
	TRACE LogLevel = iota
	DEBUG
	INFO
	WARN
	ERROR
)

// LevelEnvVar selects the minimum level written by the plugin.
const LevelEnvVar = "PLUGIN_LOG_LEVEL"

var (
	Trace *log.Logger
	Debug *log.Logger
	Info  *log.Logger
	Warn  *log.Logger
	Error *log.Logger

	currentLevel LogLevel
)

func init() {
	Trace = log.New(os.Stdout, "[plugin] [TRACE] ", log.Ldate|log.Ltime)
	Debug = log.New(os.Stdout, "[plugin] [DEBUG] ", log.Ldate|log.Ltime)
	Info = log.New(os.Stdout, "[plugin] [INFO] ", log.Ldate|log.Ltime)
	Warn = log.New(os.Stderr, "[plugin] [WARN] ", log.Ldate|log.Ltime)
	Error = log.New(os.Stderr, "[plugin] [ERROR] ", log.Ldate|log.Ltime)

	SetLevel(ParseLevel(os.Getenv(LevelEnvVar)))
}

// ParseLevel maps a level name to a LogLevel, falling back to DEBUG.
func ParseLevel(lvl string) LogLevel {
	switch strings.ToUpper(strings.TrimSpace(lvl)) {
	case "TRACE":
		return TRACE
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return DEBUG
	}
}

// SetLevel changes the active level. Disabled levels are routed to io.Discard.
func SetLevel(level LogLevel) {
	currentLevel = level

	setOutput(Trace, IsTraceEnabled(), os.Stdout)
	setOutput(Debug, IsDebugEnabled(), os.Stdout)
	setOutput(Info, IsInfoEnabled(), os.Stdout)
	setOutput(Warn, IsWarnEnabled(), os.Stderr)
	setOutput(Error, IsErrorEnabled(), os.Stderr)
}

func setOutput(l *log.Logger, enabled bool, w io.Writer) {
	if enabled {
		l.SetOutput(w)
	} else {
		l.SetOutput(io.Discard)
	}
}

// Level check functions
func IsTraceEnabled() bool {
	return currentLevel <= TRACE
}

func IsDebugEnabled() bool {
	return currentLevel <= DEBUG
}

func IsInfoEnabled() bool {
	return currentLevel <= INFO
}

func IsWarnEnabled() bool {
	return currentLevel <= WARN
}

func IsErrorEnabled() bool {
	return currentLevel <= ERROR
}

func Tracef(format string, v ...interface{}) {
	if IsTraceEnabled() {
		Trace.Printf(format, v...)
	}
}

func Debugf(format string, v ...interface{}) {
	if IsDebugEnabled() {
		Debug.Printf(format, v...)
	}
}

func Debugln(msg string) {
	if IsDebugEnabled() {
		Debug.Println(msg)
	}
}

func Infof(format string, v ...interface{}) {
	if IsInfoEnabled() {
		Info.Printf(format, v...)
	}
}

func Warnf(format string, v ...interface{}) {
	if IsWarnEnabled() {
		Warn.Printf(format, v...)
	}
}

func Errorf(format string, v ...interface{}) {
	if IsErrorEnabled() {
		Error.Printf(format, v...)
	}
}

// GetCurrentLevel returns the current log level
func GetCurrentLevel() LogLevel {
	return currentLevel
}
