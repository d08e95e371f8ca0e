/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package flogging

// Global is the logging system behind MustGetLogger. It starts from the
// environment and is reconfigured with Global.Apply.
var Global *Logging

func init() {
	logging, err := New(Config{})
	if err != nil {
		// a bad ECC_LOGGING_SPEC or ECC_LOGGING_FORMAT must not take the
		// process down before flags can override it
		logging, _ = New(Config{Format: "console", LogSpec: defaultLevel.String()})
	}
	Global = logging
}

// Reset restores the global logging system to its defaults.
func Reset() {
	Global.Apply(Config{})
}

// MustGetLogger returns a logger of the global system. It panics when the
// name is not a valid logger name.
func MustGetLogger(loggerName string) *Logger {
	return Global.Logger(loggerName)
}

// ActivateSpec activates a level specification on the global logging
// system. It panics when the specification is invalid.
func ActivateSpec(spec string) {
	if err := Global.ActivateSpec(spec); err != nil {
		panic(err)
	}
}
