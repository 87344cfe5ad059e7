// SPDX-License-Identifier: Unlicense OR MIT

// Package logging provides the discard logger used when no diagnostics
// sink is configured.
package logging

import (
	"context"
	"log/slog"
)

// nopHandler drops every record. Enabled reports false so callers skip
// formatting entirely.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

// Discard returns a logger that produces no output.
func Discard() *slog.Logger {
	return slog.New(nopHandler{})
}

// OrDiscard returns l, or a discard logger if l is nil.
func OrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Discard()
	}
	return l
}
