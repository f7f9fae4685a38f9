// Package logx configures boomyouup's structured logging.
//
// This repo uses a small wrapper (logx.Logger) on top of zerolog to keep:
//   - Console output readable (short timestamp + short caller)
//   - File output JSON-structured
//
// Components derive their logger with a "comp" field.
package logx
