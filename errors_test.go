package jpeg2000

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorUnwrapsAndMatchesKind(t *testing.T) {
	wrapped := errors.New("unexpected end of stream")
	err := &Error{Kind: KindTruncatedCodestream, Op: "decoding tile 2", Err: wrapped}

	assert.ErrorIs(t, err, wrapped)
	assert.Contains(t, err.Error(), "truncated codestream")
	assert.Contains(t, err.Error(), "decoding tile 2")

	var target *Error
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, KindTruncatedCodestream, target.Kind)
}

func TestWarningString(t *testing.T) {
	w := Warning{Kind: KindMalformedMarker, Message: "unknown marker 0xFF3C skipped"}
	assert.Equal(t, "malformed marker: unknown marker 0xFF3C skipped", w.String())
}
