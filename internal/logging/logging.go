// Package logging wires up the process-wide structured logger: log/slog
// with github.com/lmittmann/tint as the human-readable, colorized terminal
// handler. Grounded on the log/slog + tint pairing found in
// other_examples/.../astrophena-base's web server and its go.mod manifest
// (github.com/lmittmann/tint) — the ambient logging stack this repository
// carries regardless of the wire layer's own Non-goals.
package logging

import (
	"io"
	"log/slog"
	"time"

	"github.com/lmittmann/tint"
)

// New returns a slog.Logger writing colorized, leveled lines to w. debug
// selects slog.LevelDebug (the CLI's --debug flag); otherwise
// slog.LevelInfo.
func New(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	handler := tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	})
	return slog.New(handler)
}
