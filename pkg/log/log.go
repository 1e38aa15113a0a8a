// Copyright 2024 The Auralock Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package log implements a library for logging.
//
// This is separate from the standard logging package because logging may be a
// high-impact activity on a lock runtime's hot paths, and therefore we wanted
// to provide as much flexibility as possible in the underlying implementation.
//
// There is a single logging level across the process. Fatalf is not a level:
// it is the always-on failure path, and it panics after emitting so that the
// failure is observable to a recovering caller.
package log

import (
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

// Level is the log level.
type Level uint32

// The following levels are fixed, and can never be changed. Since some control
// RPCs allow for changing the level as an integer, it is only possible to add
// additional levels, and the existing one cannot be removed.
const (
	// Warning indicates that output should always be emitted.
	Warning Level = iota

	// Info indicates that output should normally be emitted.
	Info

	// Debug indicates that output should not normally be emitted.
	Debug
)

func (l Level) String() string {
	switch l {
	case Warning:
		return "Warning"
	case Info:
		return "Info"
	case Debug:
		return "Debug"
	default:
		return fmt.Sprintf("Invalid level: %d", l)
	}
}

// Emitter is the final destination for logs.
type Emitter interface {
	// Emit emits the given log statement. This allows for control over the
	// timestamp used for logging.
	Emit(level Level, timestamp time.Time, format string, v ...any)
}

// Writer writes the output to the given writer. Writer is a synchronized
// io.Writer: if one write fails, subsequent messages are dropped and counted
// until a write succeeds again, at which point the drop count is reported.
type Writer struct {
	// Next is where output is written.
	Next io.Writer

	// mu protects fields below.
	mu sync.Mutex

	// errors counts failures to write log messages; it is reset to zero
	// when a write succeeds.
	errors int64
}

// Write writes out the given bytes, first reporting any messages dropped
// by earlier failed writes.
func (l *Writer) Write(data []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.errors > 0 {
		// If messages were dropped, report how many and attempt to
		// resume. If this write fails, the message below is simply
		// folded into the drop count.
		msg := fmt.Sprintf("\n*** Dropped %d log messages ***\n", l.errors)
		if _, err := l.Next.Write([]byte(msg)); err != nil {
			l.errors++
			return 0, err
		}
		l.errors = 0
	}

	n, err := l.Next.Write(data)
	if err != nil {
		l.errors++
	}
	return n, err
}

// Emit emits the message.
func (l *Writer) Emit(_ Level, _ time.Time, format string, args ...any) {
	fmt.Fprintf(l, format, args...)
}

// Logger is a high-level logging interface. It is in fact, not used within
// this package. Rather it is provided for others to provide contextual
// loggers that may append some addition information to log statement.
type Logger interface {
	// Debugf logs a debug statement.
	Debugf(format string, v ...any)

	// Infof logs at an info level.
	Infof(format string, v ...any)

	// Warningf logs at a warning level.
	Warningf(format string, v ...any)

	// IsLogging returns true iff this level is being logged. This may be
	// used to short-circuit expensive operations for debugging calls.
	IsLogging(level Level) bool
}

// BasicLogger is the default implementation of Logger.
type BasicLogger struct {
	Level
	Emitter
}

// Debugf implements Logger.Debugf.
func (l *BasicLogger) Debugf(format string, v ...any) {
	if l.IsLogging(Debug) {
		l.Emit(Debug, time.Now(), format, v...)
	}
}

// Infof implements Logger.Infof.
func (l *BasicLogger) Infof(format string, v ...any) {
	if l.IsLogging(Info) {
		l.Emit(Info, time.Now(), format, v...)
	}
}

// Warningf implements Logger.Warningf.
func (l *BasicLogger) Warningf(format string, v ...any) {
	if l.IsLogging(Warning) {
		l.Emit(Warning, time.Now(), format, v...)
	}
}

// IsLogging implements Logger.IsLogging.
func (l *BasicLogger) IsLogging(level Level) bool {
	return atomic.LoadUint32((*uint32)(&l.Level)) >= uint32(level)
}

// SetLevel sets the logging level.
func (l *BasicLogger) SetLevel(level Level) {
	atomic.StoreUint32((*uint32)(&l.Level), uint32(level))
}

// logMu protects the initialization of log.
var logMu sync.Mutex

// log is the default logger.
var log atomic.Pointer[BasicLogger]

// Log retrieves the global logger.
func Log() *BasicLogger {
	if l := log.Load(); l != nil {
		return l
	}
	logMu.Lock()
	defer logMu.Unlock()
	if l := log.Load(); l != nil {
		return l
	}
	l := &BasicLogger{
		Level:   Info,
		Emitter: GlogEmitter{&Writer{Next: os.Stderr}},
	}
	log.Store(l)
	return l
}

// SetTarget sets the log target.
//
// This is not thread safe and shouldn't be changed while logging is happening
// concurrently.
func SetTarget(target Emitter) {
	// Log takes logMu itself when no logger exists yet, so it must be
	// called before logMu is held here.
	oldLog := Log()
	logMu.Lock()
	defer logMu.Unlock()
	log.Store(&BasicLogger{Level: oldLog.Level, Emitter: target})
}

// SetLevel sets the log level.
func SetLevel(newLevel Level) {
	Log().SetLevel(newLevel)
}

// IsLogging returns whether the global logger is logging at level.
func IsLogging(level Level) bool {
	return Log().IsLogging(level)
}

// Debugf logs to the global logger.
func Debugf(format string, v ...any) {
	Log().Debugf(format, v...)
}

// Infof logs to the global logger.
func Infof(format string, v ...any) {
	Log().Infof(format, v...)
}

// Warningf logs to the global logger.
func Warningf(format string, v ...any) {
	Log().Warningf(format, v...)
}

// Fatalf emits the message regardless of the configured level and then
// panics with the formatted message.
func Fatalf(format string, v ...any) {
	Log().Emit(Warning, time.Now(), format, v...)
	panic(fmt.Sprintf(format, v...))
}
