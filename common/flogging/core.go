/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

import (
	"go.uber.org/zap/zapcore"
)

// Encoding selects how a log record is rendered.
type Encoding int8

const (
	CONSOLE Encoding = iota
	JSON
	LOGFMT
)

// EncodingSelector is used to determine the encoder of a record at write
// time, so that a format change applies to loggers created earlier.
type EncodingSelector interface {
	Encoding() Encoding
}

// Core is a zapcore.Core that checks the level of the named logger before
// accepting an entry and picks the encoder when the entry is written.
type Core struct {
	zapcore.LevelEnabler
	Levels   *LoggerLevels
	Encoders map[Encoding]zapcore.Encoder
	Selector EncodingSelector
	Output   zapcore.WriteSyncer
}

func (c *Core) With(fields []zapcore.Field) zapcore.Core {
	clones := map[Encoding]zapcore.Encoder{}
	for name, enc := range c.Encoders {
		clone := enc.Clone()
		for i := range fields {
			fields[i].AddTo(clone)
		}
		clones[name] = clone
	}

	return &Core{
		LevelEnabler: c.LevelEnabler,
		Levels:       c.Levels,
		Encoders:     clones,
		Selector:     c.Selector,
		Output:       c.Output,
	}
}

func (c *Core) Check(e zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(e.Level) && c.Levels.Level(e.LoggerName).Enabled(e.Level) {
		return ce.AddCore(e, c)
	}
	return ce
}

func (c *Core) Write(e zapcore.Entry, fields []zapcore.Field) error {
	encoder := c.Encoders[c.Selector.Encoding()]
	buf, err := encoder.EncodeEntry(e, fields)
	if err != nil {
		return err
	}
	_, err = c.Output.Write(buf.Bytes())
	buf.Free()
	if err != nil {
		return err
	}

	if e.Level >= zapcore.PanicLevel {
		c.Sync()
	}
	return nil
}

func (c *Core) Sync() error {
	return c.Output.Sync()
}
