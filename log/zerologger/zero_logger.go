package zerologger

import (
	"io"
	"sync/atomic"

	"github.com/rs/zerolog"

	logcomm "github.com/TopiaNetwork/topia-wallet/log/common"
)

// ZeroLogger wraps a zerolog.Logger whose level may be swapped while other goroutines log.
type ZeroLogger struct {
	log atomic.Pointer[zerolog.Logger]
}

func wrap(zl zerolog.Logger) *ZeroLogger {
	l := &ZeroLogger{}
	l.log.Store(&zl)
	return l
}

func NewLogger(level zerolog.Level, w io.Writer) *ZeroLogger {
	return wrap(zerolog.New(w).Level(level).With().Timestamp().Logger())
}

func NewNopLogger() *ZeroLogger {
	return wrap(zerolog.Nop())
}

func (zl *ZeroLogger) logger() *zerolog.Logger {
	return zl.log.Load()
}

func (zl *ZeroLogger) emit(level zerolog.Level, msg string) {
	zl.logger().WithLevel(level).Msg(msg)
}

func (zl *ZeroLogger) emitf(level zerolog.Level, format string, args []interface{}) {
	zl.logger().WithLevel(level).Msgf(format, args...)
}

func (zl *ZeroLogger) Trace(msg string) { zl.emit(zerolog.TraceLevel, msg) }

func (zl *ZeroLogger) Tracef(format string, args ...interface{}) {
	zl.emitf(zerolog.TraceLevel, format, args)
}

func (zl *ZeroLogger) Debug(msg string) { zl.emit(zerolog.DebugLevel, msg) }

func (zl *ZeroLogger) Debugf(format string, args ...interface{}) {
	zl.emitf(zerolog.DebugLevel, format, args)
}

func (zl *ZeroLogger) Info(msg string) { zl.emit(zerolog.InfoLevel, msg) }

func (zl *ZeroLogger) Infof(format string, args ...interface{}) {
	zl.emitf(zerolog.InfoLevel, format, args)
}

func (zl *ZeroLogger) Warn(msg string) { zl.emit(zerolog.WarnLevel, msg) }

func (zl *ZeroLogger) Warnf(format string, args ...interface{}) {
	zl.emitf(zerolog.WarnLevel, format, args)
}

func (zl *ZeroLogger) Error(msg string) { zl.emit(zerolog.ErrorLevel, msg) }

func (zl *ZeroLogger) Errorf(format string, args ...interface{}) {
	zl.emitf(zerolog.ErrorLevel, format, args)
}

// Fatal exits the process after writing.
func (zl *ZeroLogger) Fatal(msg string) {
	zl.logger().Fatal().Msg(msg)
}

func (zl *ZeroLogger) Fatalf(format string, args ...interface{}) {
	zl.logger().Fatal().Msgf(format, args...)
}

// Panic panics with msg after writing.
func (zl *ZeroLogger) Panic(msg string) {
	zl.logger().Panic().Msg(msg)
}

func (zl *ZeroLogger) Panicf(format string, args ...interface{}) {
	zl.logger().Panic().Msgf(format, args...)
}

func (zl *ZeroLogger) UpdateLoggerLevel(level logcomm.LogLevel) {
	next := zl.logger().Level(logcomm.ToZerologLevel(level))
	zl.log.Store(&next)
}

// CreateModuleLogger tags every line with the module name. NoLevel keeps the parent level.
func (zl *ZeroLogger) CreateModuleLogger(level zerolog.Level, module string) *ZeroLogger {
	mLog := zl.logger().With().Str("module", module).Logger()
	if level != zerolog.NoLevel {
		mLog = mLog.Level(level)
	}
	return wrap(mLog)
}
