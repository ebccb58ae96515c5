// Package logging provides structured logging for Gray Logic Dispatch.
//
// It wraps log/slog with the service name and build version attached to
// every record. JSON output is the default; "text" is friendlier for the
// demo.
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// A *Logger is passed to every component's SetLogger. Usually a
// component-scoped child is handed over:
//
//	reg.SetLogger(logger.With("component", "registry"))
//
// Never log secrets such as the JWT signing key or broker passwords.
package logging
