package jpeg2000

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeContext_Cancelled(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	err := EncodeContext(ctx, &buf, img, DefaultOptions())
	require.Error(t, err)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindCancelled, typed.Kind)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeContext_Cancelled(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	require.NoError(t, Encode(&buf, img, opts))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DecodeContext(ctx, &buf, nil)
	require.Error(t, err)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindCancelled, typed.Kind)
}

func TestDecodeContext_CancelledNotMaskedByTolerateTruncation(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 32, 32))
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	require.NoError(t, Encode(&buf, img, opts))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := &Config{TolerateTruncation: true}
	_, err := DecodeContext(ctx, &buf, cfg)
	require.Error(t, err, "cancellation must not degrade to a zero-filled tile")

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindCancelled, typed.Kind)
	assert.Empty(t, cfg.Warnings)
}

func TestEncode_InvalidParameters(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))

	tests := []struct {
		name   string
		mutate func(*Options)
	}{
		{"negative tile width", func(o *Options) { o.TileSize = image.Point{X: -1, Y: 0} }},
		{"code-block too small", func(o *Options) { o.CodeBlockSize = image.Point{X: 1, Y: 4} }},
		{"code-block too large", func(o *Options) { o.CodeBlockSize = image.Point{X: 11, Y: 4} }},
		{"code-block area over 4096", func(o *Options) { o.CodeBlockSize = image.Point{X: 7, Y: 7} }},
		{"too many layers", func(o *Options) { o.NumLayers = 70000 }},
		{"too many resolutions", func(o *Options) { o.NumResolutions = 40 }},
		{"precision out of range", func(o *Options) { o.Precision = 17 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			tt.mutate(opts)

			var buf bytes.Buffer
			err := Encode(&buf, img, opts)
			require.Error(t, err)

			var typed *Error
			require.ErrorAs(t, err, &typed)
			assert.Equal(t, KindInvalidParameter, typed.Kind)
		})
	}
}

func TestEncode_CodeBlockStyleUnsupported(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	opts := DefaultOptions()
	opts.CodeBlockStyle = 0x01 // selective bypass

	var buf bytes.Buffer
	err := Encode(&buf, img, opts)
	require.Error(t, err)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindUnsupportedFeature, typed.Kind)
}

func TestEncode_HighThroughputUnsupported(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	opts := DefaultOptions()
	opts.HighThroughput = true

	var buf bytes.Buffer
	err := Encode(&buf, img, opts)
	require.Error(t, err)

	var typed *Error
	require.ErrorAs(t, err, &typed)
	assert.Equal(t, KindUnsupportedFeature, typed.Kind)
}

// countMarkers scans a raw codestream for a delimiting marker. Safe for
// SOT/SOD/EOC counting because MQ byte-stuffing keeps any byte that
// follows an 0xFF in a packet body at or below 0x8F.
func countMarkers(data []byte, second byte) int {
	n := 0
	for i := 0; i+1 < len(data); i++ {
		if data[i] == 0xFF && data[i+1] == second {
			n++
		}
	}
	return n
}

func TestEncode_TileGridEmitsOneSOTPerTile(t *testing.T) {
	// 100x60 with 32x32 tiles: 4 columns x 2 rows = 8 tiles, with
	// remainder-sized tiles on the right and bottom edges.
	original := image.NewGray(image.Rect(0, 0, 100, 60))
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			original.SetGray(x, y, color.Gray{Y: uint8((x*31 + y*17) % 256)})
		}
	}

	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	opts.TileSize = image.Point{X: 32, Y: 32}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, original, opts))

	assert.Equal(t, 8, countMarkers(buf.Bytes(), 0x90), "one SOT per tile")

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	gray, ok := decoded.(*image.Gray)
	require.True(t, ok, "decoded %T, want *image.Gray", decoded)
	for y := 0; y < 60; y++ {
		for x := 0; x < 100; x++ {
			require.Equal(t, original.GrayAt(x, y).Y, gray.GrayAt(x, y).Y,
				"pixel (%d,%d)", x, y)
		}
	}
}
