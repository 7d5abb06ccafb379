package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	logcomm "github.com/TopiaNetwork/topia-wallet/log/common"
	"github.com/TopiaNetwork/topia-wallet/log/zerologger"
)

type LogFormat uint8

const (
	TextFormat LogFormat = iota
	JSONFormat
)
const DefaultLogFormat = TextFormat

type LogOutput uint8

const (
	StdErrOutput LogOutput = iota
	FileLogOutput
	SysLogOutput
)
const DefaultLogOutput = StdErrOutput

// Logger is what every component receives. Secrets such as passwords, seeds and private keys are
// never passed to it.
type Logger interface {
	Trace(msg string)
	Tracef(string, ...interface{})
	Debug(msg string)
	Debugf(string, ...interface{})
	Info(msg string)
	Infof(string, ...interface{})
	Warn(msg string)
	Warnf(string, ...interface{})
	Error(msg string)
	Errorf(string, ...interface{})
	Fatal(msg string)
	Fatalf(string, ...interface{})
	Panic(msg string)
	Panicf(string, ...interface{})

	UpdateLoggerLevel(level logcomm.LogLevel)
}

const TimestampFormat = "2006-01-02T15:04:05.000000000Z07:00"

var formatNames = map[LogFormat][]string{
	TextFormat: {"text", ""},
	JSONFormat: {"json"},
}

var outputNames = map[LogOutput][]string{
	StdErrOutput:  {"stderr", ""},
	FileLogOutput: {"filelog", "file"},
	SysLogOutput:  {"syslog"},
}

func (l LogFormat) String() string {
	if names, ok := formatNames[l]; ok {
		return names[0]
	}
	return fmt.Sprintf("format(%d)", uint8(l))
}

func (o LogOutput) String() string {
	if names, ok := outputNames[o]; ok {
		return names[0]
	}
	return fmt.Sprintf("output(%d)", uint8(o))
}

// ParseLogFormat maps the configuration names "text" and "json". Empty means text.
func ParseLogFormat(s string) (LogFormat, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for format, names := range formatNames {
		for _, name := range names {
			if name == s {
				return format, nil
			}
		}
	}
	return DefaultLogFormat, fmt.Errorf("unknown log format %q", s)
}

// ParseLogOutput maps the configuration names "stderr", "file" and "syslog". Empty means stderr.
func ParseLogOutput(s string) (LogOutput, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for output, names := range outputNames {
		for _, name := range names {
			if name == s {
				return output, nil
			}
		}
	}
	return DefaultLogOutput, fmt.Errorf("unknown log output %q", s)
}

func formatWriter(format LogFormat, out io.Writer) (io.Writer, error) {
	switch format {
	case TextFormat:
		return &zerolog.ConsoleWriter{
			Out:        out,
			NoColor:    true,
			TimeFormat: TimestampFormat,
			PartsOrder: []string{
				zerolog.TimestampFieldName,
				zerolog.LevelFieldName,
				zerolog.MessageFieldName,
				zerolog.CallerFieldName,
			},
		}, nil
	case JSONFormat:
		return out, nil
	default:
		return nil, fmt.Errorf("unknown log format %s", format)
	}
}

// outputWriter opens the sink. param is the file path for file output and the syslog address for
// syslog output.
func outputWriter(output LogOutput, param string) (io.Writer, error) {
	switch output {
	case StdErrOutput:
		return os.Stderr, nil
	case FileLogOutput:
		if param == "" {
			return nil, fmt.Errorf("file log output needs a path")
		}
		if err := os.MkdirAll(filepath.Dir(param), 0700); err != nil {
			return nil, err
		}
		return os.OpenFile(param, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
	case SysLogOutput:
		return zerologger.ConnectSyslog(param, filepath.Base(os.Args[0]))
	default:
		return nil, fmt.Errorf("unknown log output %s", output)
	}
}

func CreateMainLogger(level logcomm.LogLevel, format LogFormat, output LogOutput, param string) (Logger, error) {
	out, err := outputWriter(output, param)
	if err != nil {
		return nil, err
	}

	w, err := formatWriter(format, out)
	if err != nil {
		return nil, err
	}

	return zerologger.NewLogger(logcomm.ToZerologLevel(level), w), nil
}

// CreateNopLogger discards everything; used by tests and by embedders that bring no logger.
func CreateNopLogger() Logger {
	return zerologger.NewNopLogger()
}

func SetGlobalLevel(level logcomm.LogLevel) {
	zerolog.SetGlobalLevel(logcomm.ToZerologLevel(level))
}

// CreateModuleLogger derives a module logger from l. A nil parent yields a nop logger and a
// foreign one is returned as is.
func CreateModuleLogger(level logcomm.LogLevel, module string, l Logger) Logger {
	switch parent := l.(type) {
	case *zerologger.ZeroLogger:
		return parent.CreateModuleLogger(logcomm.ToZerologLevel(level), module)
	case nil:
		return CreateNopLogger()
	default:
		return parent
	}
}
