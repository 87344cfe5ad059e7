// SPDX-License-Identifier: Unlicense OR MIT

package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiscardDisabled(t *testing.T) {
	l := Discard()
	for _, lvl := range []slog.Level{slog.LevelDebug, slog.LevelInfo, slog.LevelWarn, slog.LevelError} {
		assert.False(t, l.Enabled(context.Background(), lvl), "level %v", lvl)
	}
	assert.NotPanics(t, func() {
		l.With("k", "v").WithGroup("g").Warn("ignored")
	})
}

func TestOrDiscard(t *testing.T) {
	var buf bytes.Buffer
	l := slog.New(slog.NewTextHandler(&buf, nil))
	assert.Same(t, l, OrDiscard(l))
	assert.NotNil(t, OrDiscard(nil))
}
