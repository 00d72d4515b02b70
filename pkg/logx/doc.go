// Package logx configures tabsync's structured logging.
//
// It is a small wrapper (logx.Logger) on top of zerolog that keeps
// console output readable (short timestamp + short caller) and lets
// library code carry a zero-value logger safely (the zero value is a
// no-op logger).
package logx
