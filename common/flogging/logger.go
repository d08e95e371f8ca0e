/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is a named, leveled logger. Records are filtered by the level the
// active specification assigns to the name.
type Logger struct{ s *zap.SugaredLogger }

func newLogger(core zapcore.Core, name string) *Logger {
	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	return &Logger{s: zl.Named(name).Sugar()}
}

func (l *Logger) Debugf(template string, args ...interface{})   { l.s.Debugf(template, args...) }
func (l *Logger) Debugw(msg string, kvPairs ...interface{})     { l.s.Debugw(msg, kvPairs...) }
func (l *Logger) Infof(template string, args ...interface{})    { l.s.Infof(template, args...) }
func (l *Logger) Infow(msg string, kvPairs ...interface{})      { l.s.Infow(msg, kvPairs...) }
func (l *Logger) Warningf(template string, args ...interface{}) { l.s.Warnf(template, args...) }
func (l *Logger) Errorf(template string, args ...interface{})   { l.s.Errorf(template, args...) }

// Named returns a child logger. Its level can be set apart from the parent
// with a "parent.child=level" term.
func (l *Logger) Named(name string) *Logger { return &Logger{s: l.s.Named(name)} }

// With returns a logger that adds the key value pairs to every record.
func (l *Logger) With(kvPairs ...interface{}) *Logger {
	return &Logger{s: l.s.With(kvPairs...)}
}

// ForOperation tags records with the operation and the curve it runs on.
// Only names go into the record, never operands.
func (l *Logger) ForOperation(op, curve string) *Logger {
	return l.With("operation", op, "curve", curve)
}

// IsEnabledFor reports whether an entry at level would be written.
func (l *Logger) IsEnabledFor(level zapcore.Level) bool {
	return l.s.Desugar().Core().Enabled(level)
}

func (l *Logger) Sync() error { return l.s.Sync() }
