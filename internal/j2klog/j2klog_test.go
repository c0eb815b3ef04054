package j2klog

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerWritesCorrelatedLines(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	require.NotEmpty(t, l.RunID())

	l.Info("decoding tile %d", 3)
	l.Warn("truncated codestream, %d bytes missing", 12)

	out := buf.String()
	assert.Contains(t, out, "INFO")
	assert.Contains(t, out, "WARN")
	assert.Contains(t, out, l.RunID())
	assert.Contains(t, out, "decoding tile 3")
	assert.True(t, strings.Count(out, l.RunID()) >= 2)
}

func TestNilLoggerIsNoOp(t *testing.T) {
	var l *Logger
	assert.NotPanics(t, func() {
		l.Info("anything")
		l.Warn("anything")
		l.Error("anything")
	})
	assert.Equal(t, "", l.RunID())
}

func TestDiscardProducesNoOutput(t *testing.T) {
	l := Discard()
	l.Info("should not appear anywhere observable")
	assert.NotNil(t, l)
}
