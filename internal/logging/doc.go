// Package logging builds the zap loggers used throughout the directory core.
//
// # Creating a Logger
//
// Create a logger from configuration:
//
//	logger, err := logging.New(logging.Config{
//	    Level:  "info",
//	    Format: "json",
//	    Output: "/var/log/obacore/core.log",
//	})
//
// Components take a *zap.Logger in their constructor and fall back to
// zap.NewNop() when none is given.
//
// # Log Levels
//
// Four levels are supported: debug, info, warn and error. An unknown level
// falls back to info.
//
// # Output Formats
//
// Text format writes one console-encoded line per entry:
//
//	2026-02-18T10:30:00Z	info	Persistent search enabled	{"conn_id": 7, "op_id": 3}
//
// JSON format writes one JSON object per entry.
//
// # Operation Fields
//
// OperationFields returns the fields that identify an operation in log
// entries:
//
//	logger.Debug("Entry added", logging.OperationFields(op)...)
package logging
