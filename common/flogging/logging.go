/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	zaplogfmt "github.com/sykesm/zap-logfmt"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Environment variables consulted for the fields a Config leaves empty.
const (
	SpecEnv   = "ECC_LOGGING_SPEC"
	FormatEnv = "ECC_LOGGING_FORMAT"
)

// Config is used to provide dependencies to a Logging instance.
type Config struct {
	// Format is "console", "json" or "logfmt". Empty means the value of
	// ECC_LOGGING_FORMAT, then console.
	Format string

	// LogSpec determines the enabled log levels; see ActivateSpec. Empty
	// means the value of ECC_LOGGING_SPEC, then info.
	LogSpec string

	// Writer is the sink for encoded records. Defaults to os.Stderr.
	Writer io.Writer
}

// Logging holds the levels of named loggers, the active encoding and the
// output. Changes apply to loggers created before them.
type Logging struct {
	*LoggerLevels

	mutex    sync.RWMutex
	encoding Encoding
	encoders map[Encoding]zapcore.Encoder
	writer   zapcore.WriteSyncer
}

// New creates a logging system configured by c.
func New(c Config) (*Logging, error) {
	fields := zap.NewProductionEncoderConfig()
	fields.NameKey = "name"

	s := &Logging{
		LoggerLevels: &LoggerLevels{defaultLevel: defaultLevel},
		encoders: map[Encoding]zapcore.Encoder{
			CONSOLE: zapcore.NewConsoleEncoder(consoleFields()),
			JSON:    zapcore.NewJSONEncoder(fields),
			LOGFMT:  zaplogfmt.NewEncoder(fields),
		},
	}
	if err := s.Apply(c); err != nil {
		return nil, err
	}
	return s, nil
}

// Apply replaces format, levels and writer with the ones in c.
func (s *Logging) Apply(c Config) error {
	if c.Format == "" {
		c.Format = os.Getenv(FormatEnv)
	}
	if err := s.SetFormat(c.Format); err != nil {
		return err
	}

	if c.LogSpec == "" {
		c.LogSpec = os.Getenv(SpecEnv)
	}
	if c.LogSpec == "" {
		c.LogSpec = defaultLevel.String()
	}
	if err := s.ActivateSpec(c.LogSpec); err != nil {
		return err
	}

	if c.Writer == nil {
		c.Writer = os.Stderr
	}
	s.SetWriter(c.Writer)
	return nil
}

// ParseEncoding maps a format name to an Encoding. The empty string is the
// console encoding.
func ParseEncoding(format string) (Encoding, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "console":
		return CONSOLE, nil
	case "json":
		return JSON, nil
	case "logfmt":
		return LOGFMT, nil
	default:
		return CONSOLE, errors.Errorf("unknown log format %q", format)
	}
}

// SetFormat selects the encoding of records written after it returns.
func (s *Logging) SetFormat(format string) error {
	enc, err := ParseEncoding(format)
	if err != nil {
		return err
	}
	s.mutex.Lock()
	s.encoding = enc
	s.mutex.Unlock()
	return nil
}

// SetWriter controls where records go. Writers other than an *os.File must
// be safe for concurrent use.
func (s *Logging) SetWriter(w io.Writer) {
	var ws zapcore.WriteSyncer
	switch t := w.(type) {
	case *os.File:
		ws = zapcore.Lock(t)
	case zapcore.WriteSyncer:
		ws = t
	default:
		ws = zapcore.AddSync(w)
	}

	s.mutex.Lock()
	s.writer = ws
	s.mutex.Unlock()
}

func (s *Logging) currentWriter() zapcore.WriteSyncer {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.writer
}

// Write sends an encoded record to the current writer.
func (s *Logging) Write(b []byte) (int, error) { return s.currentWriter().Write(b) }

// Sync flushes the current writer.
func (s *Logging) Sync() error { return s.currentWriter().Sync() }

// Encoding satisfies EncodingSelector.
func (s *Logging) Encoding() Encoding {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.encoding
}

func consoleFields() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "name",
		CallerKey:      "caller",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalLevelEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
		EncodeCaller:   zapcore.ShortCallerEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02 15:04:05.000 MST"))
		},
	}
}

// Logger returns a logger with the given dotted name. It panics when the
// name is not valid.
func (s *Logging) Logger(name string) *Logger {
	if !isValidLoggerName(name) {
		panic(fmt.Sprintf("invalid logger name: %s", name))
	}

	core := &Core{
		LevelEnabler: s.LoggerLevels,
		Levels:       s.LoggerLevels,
		Encoders:     s.encoders,
		Selector:     s,
		Output:       s,
	}
	return newLogger(core, name)
}
