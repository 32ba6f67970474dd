// Package logging provides structured logging for wporder views.
//
// It wraps Go's log/slog with a JSON handler and lets callers attach
// persistent attributes (view container, component) to child loggers.
//
// # Basic Usage
//
//	logger, err := logging.NewLogger("/var/log/wporder", "INFO")
//	if err != nil {
//	    return err
//	}
//	defer logger.Close()
//
//	viewLogger := logger.WithView("work-packages")
//	viewLogger.Warn("row not tracked", "identifier", "wp-row-42")
//
// Output:
//
//	{"time":"...","level":"WARN","msg":"row not tracked","view":"work-packages","identifier":"wp-row-42"}
//
// Tests use [NopLogger], or [NewWithWriter] when they need to inspect output.
package logging
