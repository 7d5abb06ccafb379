package common

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"
)

type LogLevel uint8

// NoLevel means it should be ignored
const (
	NoLevel LogLevel = iota
	TraceLevel
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
	FatalLevel
	PanicLevel
	maxLogLevel
)

const LogLevelCount = int(maxLogLevel)

var levelMapping = []zerolog.Level{
	NoLevel:    zerolog.NoLevel,
	TraceLevel: zerolog.TraceLevel,
	DebugLevel: zerolog.DebugLevel,
	InfoLevel:  zerolog.InfoLevel,
	WarnLevel:  zerolog.WarnLevel,
	ErrorLevel: zerolog.ErrorLevel,
	FatalLevel: zerolog.FatalLevel,
	PanicLevel: zerolog.PanicLevel,
}

var levelNames = map[string]LogLevel{
	"":      NoLevel,
	"none":  NoLevel,
	"trace": TraceLevel,
	"debug": DebugLevel,
	"info":  InfoLevel,
	"warn":  WarnLevel,
	"error": ErrorLevel,
	"fatal": FatalLevel,
	"panic": PanicLevel,
}

func ToZerologLevel(level LogLevel) zerolog.Level {
	if int(level) >= LogLevelCount {
		return zerolog.NoLevel
	}
	return levelMapping[level]
}

// ParseLogLevel accepts the lower-case level names used in configuration files.
func ParseLogLevel(s string) (LogLevel, error) {
	if level, ok := levelNames[strings.ToLower(strings.TrimSpace(s))]; ok {
		return level, nil
	}
	return NoLevel, fmt.Errorf("unknown log level %q", s)
}

func (l LogLevel) String() string {
	for name, level := range levelNames {
		if level == l && name != "" {
			return name
		}
	}
	return fmt.Sprintf("level(%d)", uint8(l))
}
