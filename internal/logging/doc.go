// Package logging configures structured JSON logging for docsearch with a
// size-rotated log file under ~/.docsearch/logs/ and a small viewer used by
// the `docsearch logs` command.
//
// In stdio server mode nothing may be written to stdout or stderr, so
// SetupStdioMode logs to the file only.
package logging
