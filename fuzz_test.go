package jpeg2000

import (
	"bytes"
	"image"
	"testing"
)

// encodedSeed produces a small valid codestream so the fuzzer starts
// from structurally meaningful input rather than pure noise.
func encodedSeed() []byte {
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = uint8(i * 4)
	}
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	var buf bytes.Buffer
	if err := Encode(&buf, img, opts); err != nil {
		return nil
	}
	return buf.Bytes()
}

// FuzzDecode drives the full decode path, including format detection,
// with arbitrary bytes. Any input may fail; none may panic.
func FuzzDecode(f *testing.F) {
	f.Add(encodedSeed())
	f.Add([]byte{
		0x00, 0x00, 0x00, 0x0C, 0x6A, 0x50, 0x20, 0x20, // JP2 signature box
		0x0D, 0x0A, 0x87, 0x0A,
	})
	f.Add([]byte{0xFF, 0x4F, 0xFF, 0x51})
	f.Add([]byte{})
	f.Add([]byte{0x00})
	f.Add([]byte{0xFF})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = Decode(bytes.NewReader(data))
	})
}

// FuzzDecodeTolerant runs the same corpus through the
// truncation-tolerant path, which must also collect warnings without
// panicking.
func FuzzDecodeTolerant(f *testing.F) {
	f.Add(encodedSeed())
	f.Add([]byte{0xFF, 0x4F, 0xFF, 0x51})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		cfg := &Config{TolerateTruncation: true}
		_, _ = DecodeConfig(bytes.NewReader(data), cfg)
	})
}

// FuzzDecodeMetadata exercises the header-only path.
func FuzzDecodeMetadata(f *testing.F) {
	f.Add(encodedSeed())
	f.Add([]byte{0xFF, 0x4F, 0xFF, 0x51})
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		_, _ = DecodeMetadata(bytes.NewReader(data))
	})
}
