package jpeg2000

import (
	"bytes"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// grayRamp fills an n x n greyscale plane with a deterministic pattern
// that exercises every bit of the sample range.
func grayRamp(n int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.SetGray(x, y, color.Gray{Y: uint8((x*7 + y*13) % 256)})
		}
	}
	return img
}

func rgbaRamp(n int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, n, n))
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			img.SetRGBA(x, y, color.RGBA{
				R: uint8(x * 255 / n),
				G: uint8(y * 255 / n),
				B: uint8((x ^ y) % 256),
				A: 255,
			})
		}
	}
	return img
}

// encodeJ2K is the common encode step for round-trip tests.
func encodeJ2K(t *testing.T, img image.Image, mutate func(*Options)) []byte {
	t.Helper()
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	if mutate != nil {
		mutate(opts)
	}
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, img, opts))
	require.Positive(t, buf.Len())
	return buf.Bytes()
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	require.NotNil(t, opts)
	assert.Equal(t, FormatJP2, opts.Format)
	assert.Equal(t, 6, opts.NumResolutions)
	assert.Equal(t, 75, opts.Quality)
	assert.Equal(t, 1, opts.NumLayers)
}

func TestFormat_String(t *testing.T) {
	assert.Equal(t, "J2K", FormatJ2K.String())
	assert.Equal(t, "JP2", FormatJP2.String())
	assert.Equal(t, "JPX", FormatJPX.String())
	assert.Equal(t, "Unknown", Format(99).String())
}

func TestProgressionOrder_String(t *testing.T) {
	tests := []struct {
		order ProgressionOrder
		want  string
	}{
		{LRCP, "LRCP"}, {RLCP, "RLCP"}, {RPCL, "RPCL"},
		{PCRL, "PCRL"}, {CPRL, "CPRL"}, {ProgressionOrder(99), "Unknown"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.order.String())
	}
}

func TestEncode_OutputFraming(t *testing.T) {
	t.Run("J2K opens with SOC", func(t *testing.T) {
		data := encodeJ2K(t, grayRamp(8), nil)
		require.GreaterOrEqual(t, len(data), 2)
		assert.Equal(t, []byte{0xFF, 0x4F}, data[:2])
	})

	t.Run("JP2 opens with signature box", func(t *testing.T) {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJP2
		opts.Lossless = true
		require.NoError(t, Encode(&buf, grayRamp(8), opts))
		data := buf.Bytes()
		require.GreaterOrEqual(t, len(data), 12)
		assert.Equal(t, []byte{'j', 'P', ' ', ' '}, data[4:8])
	})

	t.Run("JPX is not an encode target", func(t *testing.T) {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJPX
		assert.Error(t, Encode(&buf, grayRamp(8), opts))
	})

	t.Run("nil options use defaults", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, grayRamp(8), nil))
		assert.Positive(t, buf.Len())
	})

	t.Run("comment lands in the stream", func(t *testing.T) {
		data := encodeJ2K(t, grayRamp(8), func(o *Options) { o.Comment = "ramp fixture" })
		assert.True(t, bytes.Contains(data, []byte("ramp fixture")))
	})
}

func TestRoundTrip_GrayscaleLosslessPixelExact(t *testing.T) {
	original := grayRamp(32)
	data := encodeJ2K(t, original, nil)

	decoded, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	gray, ok := decoded.(*image.Gray)
	require.True(t, ok, "decoded %T", decoded)
	assert.Equal(t, original.Pix, gray.Pix)
}

func TestRoundTrip_RGBLosslessPixelExact(t *testing.T) {
	original := rgbaRamp(24)
	data := encodeJ2K(t, original, nil)

	decoded, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)

	rgba, ok := decoded.(*image.RGBA)
	require.True(t, ok, "decoded %T", decoded)
	for y := 0; y < 24; y++ {
		for x := 0; x < 24; x++ {
			want := original.RGBAAt(x, y)
			got := rgba.RGBAAt(x, y)
			require.Equal(t, want.R, got.R, "R at (%d,%d)", x, y)
			require.Equal(t, want.G, got.G, "G at (%d,%d)", x, y)
			require.Equal(t, want.B, got.B, "B at (%d,%d)", x, y)
		}
	}
}

func TestRoundTrip_GrayscaleLossyApproximate(t *testing.T) {
	original := grayRamp(32)
	data := encodeJ2K(t, original, func(o *Options) {
		o.Lossless = false
		o.Quality = 90
	})

	decoded, err := Decode(bytes.NewReader(data))
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray)
	require.True(t, ok)

	const tolerance = 40
	for i := range original.Pix {
		diff := int(original.Pix[i]) - int(gray.Pix[i])
		if diff < 0 {
			diff = -diff
		}
		require.LessOrEqual(t, diff, tolerance, "sample %d", i)
	}
}

func TestRoundTrip_JP2Container(t *testing.T) {
	original := grayRamp(8)

	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJP2
	opts.Lossless = true
	require.NoError(t, Encode(&buf, original, opts))

	decoded, err := Decode(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	gray, ok := decoded.(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, original.Pix, gray.Pix)
}

// The final quality layer always carries every coding pass, so a
// multi-layer lossless stream must still reconstruct exactly, under
// any progression order.
func TestRoundTrip_MultiLayerPixelExact(t *testing.T) {
	original := rgbaRamp(128)

	for _, order := range []ProgressionOrder{LRCP, RPCL} {
		data := encodeJ2K(t, original, func(o *Options) {
			o.NumLayers = 4
			o.ProgressionOrder = order
		})

		decoded, err := Decode(bytes.NewReader(data))
		require.NoError(t, err, "order %s", order)
		rgba, ok := decoded.(*image.RGBA)
		require.True(t, ok, "order %s", order)

		for y := 0; y < 128; y++ {
			for x := 0; x < 128; x++ {
				want := original.RGBAAt(x, y)
				got := rgba.RGBAAt(x, y)
				require.Equal(t, want, got, "order %s pixel (%d,%d)", order, x, y)
			}
		}
	}
}

func TestEncode_OptionVariants(t *testing.T) {
	// Configurations that must all produce decodable output; the
	// lossless ones must reproduce pixels exactly.
	tests := []struct {
		name     string
		img      image.Image
		mutate   func(*Options)
		lossless bool
	}{
		{"tile grid", grayRamp(64), func(o *Options) { o.TileSize = image.Point{X: 32, Y: 32} }, true},
		{"SOP and EPH", grayRamp(16), func(o *Options) { o.EnableSOP = true; o.EnableEPH = true }, true},
		{"32x32 code-blocks", grayRamp(64), func(o *Options) { o.CodeBlockSize = image.Point{X: 5, Y: 5} }, true},
		{"three layers", grayRamp(16), func(o *Options) { o.NumLayers = 3 }, true},
		{"single resolution", grayRamp(16), func(o *Options) { o.NumResolutions = 1 }, true},
		{"four resolutions", grayRamp(64), func(o *Options) { o.NumResolutions = 4 }, true},
		{"zero defaults", grayRamp(16), func(o *Options) {
			o.NumResolutions = 0
			o.NumLayers = 0
			o.CodeBlockSize = image.Point{}
		}, true},
		{"quality 10", grayRamp(16), func(o *Options) { o.Lossless = false; o.Quality = 10 }, false},
		{"quality 50", grayRamp(16), func(o *Options) { o.Lossless = false; o.Quality = 50 }, false},
		{"quality 0 fallback", grayRamp(16), func(o *Options) { o.Lossless = false; o.Quality = 0 }, false},
		{"cinema profile", grayRamp(16), func(o *Options) { o.Profile = ProfileCinema2K }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeJ2K(t, tt.img, tt.mutate)
			decoded, err := Decode(bytes.NewReader(data))
			require.NoError(t, err)
			require.Equal(t, tt.img.Bounds().Dx(), decoded.Bounds().Dx())
			require.Equal(t, tt.img.Bounds().Dy(), decoded.Bounds().Dy())

			if tt.lossless {
				want, isGray := tt.img.(*image.Gray)
				got, gotGray := decoded.(*image.Gray)
				if isGray && gotGray {
					assert.Equal(t, want.Pix, got.Pix)
				}
			}
		})
	}
}

func TestEncode_ProgressionOrders(t *testing.T) {
	for _, order := range []ProgressionOrder{LRCP, RLCP, RPCL, PCRL, CPRL} {
		data := encodeJ2K(t, grayRamp(16), func(o *Options) { o.ProgressionOrder = order })
		decoded, err := Decode(bytes.NewReader(data))
		require.NoError(t, err, "order %s", order)
		assert.Equal(t, grayRamp(16).Pix, decoded.(*image.Gray).Pix, "order %s", order)
	}
}

func TestEncode_SourceImageKinds(t *testing.T) {
	// Every stdlib image kind the extractor understands must encode
	// and decode with correct geometry.
	mk16 := func() image.Image {
		img := image.NewGray16(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetGray16(x, y, color.Gray16{Y: uint16((x + y) * 4096)})
			}
		}
		return img
	}
	mkRGBA64 := func() image.Image {
		img := image.NewRGBA64(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(x * 8192), G: uint16(y * 8192),
					B: uint16((x + y) * 4096), A: 65535,
				})
			}
		}
		return img
	}
	mkNRGBA := func() image.Image {
		img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetNRGBA(x, y, color.NRGBA{
					R: uint8(x * 32), G: uint8(y * 32),
					B: uint8((x + y) * 16), A: uint8(200 + x*4),
				})
			}
		}
		return img
	}
	mkNRGBA64 := func() image.Image {
		img := image.NewNRGBA64(image.Rect(0, 0, 8, 8))
		for y := 0; y < 8; y++ {
			for x := 0; x < 8; x++ {
				img.SetNRGBA64(x, y, color.NRGBA64{
					R: uint16(x * 8000), G: uint16(y * 8000),
					B: uint16((x + y) * 4000), A: uint16(40000 + x*1000),
				})
			}
		}
		return img
	}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"Gray16", mk16()},
		{"RGBA64", mkRGBA64()},
		{"NRGBA with alpha", mkNRGBA()},
		{"NRGBA64 four components", mkNRGBA64()},
		{"generic YCbCr fallback", image.NewYCbCr(image.Rect(0, 0, 8, 8), image.YCbCrSubsampleRatio444)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeJ2K(t, tt.img, nil)
			decoded, err := Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, 8, decoded.Bounds().Dx())
			assert.Equal(t, 8, decoded.Bounds().Dy())
		})
	}
}

func TestDecode_EdgeSampleValues(t *testing.T) {
	// Saturated and zero samples stress the output clamping after the
	// inverse transforms.
	flat := image.NewGray(image.Rect(0, 0, 4, 4))
	for i := range flat.Pix {
		flat.Pix[i] = 255
	}

	edges := image.NewRGBA(image.Rect(0, 0, 4, 4))
	palette := []color.RGBA{
		{0, 0, 0, 255}, {255, 255, 255, 255}, {255, 0, 0, 255}, {0, 255, 0, 255},
	}
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			edges.SetRGBA(x, y, palette[(x+y)%4])
		}
	}

	for _, tt := range []struct {
		name string
		img  image.Image
	}{{"saturated grey", flat}, {"primary corners", edges}} {
		t.Run(tt.name, func(t *testing.T) {
			data := encodeJ2K(t, tt.img, nil)
			decoded, err := Decode(bytes.NewReader(data))
			require.NoError(t, err)
			require.NotNil(t, decoded)
		})
	}
}

func TestDecodeConfig_ReducedResolution(t *testing.T) {
	data := encodeJ2K(t, grayRamp(64), func(o *Options) { o.NumResolutions = 5 })

	for _, tt := range []struct {
		reduce  int
		wantDim int
	}{{0, 64}, {1, 32}, {2, 16}} {
		cfg := &Config{ReduceResolution: tt.reduce}
		decoded, err := DecodeConfig(bytes.NewReader(data), cfg)
		require.NoError(t, err, "reduce %d", tt.reduce)
		assert.Equal(t, tt.wantDim, decoded.Bounds().Dx(), "reduce %d", tt.reduce)
		assert.Equal(t, tt.wantDim, decoded.Bounds().Dy(), "reduce %d", tt.reduce)
	}
}

func TestDecodeConfig_NilConfig(t *testing.T) {
	data := encodeJ2K(t, grayRamp(8), nil)
	decoded, err := DecodeConfig(bytes.NewReader(data), nil)
	require.NoError(t, err)
	require.NotNil(t, decoded)
}

func TestDecodeMetadata(t *testing.T) {
	t.Run("J2K", func(t *testing.T) {
		data := encodeJ2K(t, grayRamp(16), nil)
		meta, err := DecodeMetadata(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, 16, meta.Width)
		assert.Equal(t, 16, meta.Height)
		assert.Equal(t, 1, meta.NumComponents)
		assert.Equal(t, FormatJ2K, meta.Format)
		// Raw codestreams carry no container colorspace declaration.
		assert.Equal(t, ColorSpaceUnspecified, meta.ColorSpace)
	})

	t.Run("JP2 RGB", func(t *testing.T) {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJP2
		opts.Lossless = true
		opts.Comment = "boxed"
		require.NoError(t, Encode(&buf, rgbaRamp(8), opts))

		meta, err := DecodeMetadata(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, 8, meta.Width)
		assert.Equal(t, 3, meta.NumComponents)
		assert.Equal(t, FormatJP2, meta.Format)
		assert.Equal(t, ColorSpaceSRGB, meta.ColorSpace)
	})

	t.Run("JP2 greyscale colorspace", func(t *testing.T) {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJP2
		opts.Lossless = true
		require.NoError(t, Encode(&buf, grayRamp(8), opts))

		meta, err := DecodeMetadata(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, ColorSpaceGray, meta.ColorSpace)
	})

	t.Run("16-bit component info", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 8, 8))
		data := encodeJ2K(t, img, nil)
		meta, err := DecodeMetadata(bytes.NewReader(data))
		require.NoError(t, err)
		require.Len(t, meta.BitsPerComponent, 1)
		assert.Equal(t, 16, meta.BitsPerComponent[0])
	})
}

func TestEncode_CustomPrecision(t *testing.T) {
	for _, precision := range []int{4, 12} {
		t.Run(map[int]string{4: "4-bit grey", 12: "12-bit RGB"}[precision], func(t *testing.T) {
			var img image.Image = grayRamp(8)
			if precision > 8 {
				img = rgbaRamp(8)
			}
			data := encodeJ2K(t, img, func(o *Options) { o.Precision = precision })

			decoded, err := Decode(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, 8, decoded.Bounds().Dx())

			meta, err := DecodeMetadata(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, precision, meta.BitsPerComponent[0])
		})
	}
}

// patchColrBox rewrites the enumerated colorspace value inside a JP2's
// colr box in place, returning false if no enumerated colr box exists.
func patchColrBox(data []byte, cs uint32) bool {
	for i := 0; i < len(data)-15; i++ {
		if data[i+4] == 'c' && data[i+5] == 'o' && data[i+6] == 'l' && data[i+7] == 'r' &&
			data[i+8] == 1 {
			data[i+11] = byte(cs >> 24)
			data[i+12] = byte(cs >> 16)
			data[i+13] = byte(cs >> 8)
			data[i+14] = byte(cs)
			return true
		}
	}
	return false
}

func TestDecodeMetadata_EnumeratedColorspaces(t *testing.T) {
	var buf bytes.Buffer
	opts := DefaultOptions()
	opts.Format = FormatJP2
	opts.Lossless = true
	require.NoError(t, Encode(&buf, rgbaRamp(8), opts))
	base := buf.Bytes()

	tests := []struct {
		name    string
		csValue uint32
		want    ColorSpace
	}{
		{"bilevel", 0, ColorSpaceBilevel},
		{"YCbCr(1)", 1, ColorSpaceSYCC},
		{"YCbCr(2)", 3, ColorSpaceYCbCr2},
		{"YCbCr(3)", 4, ColorSpaceYCbCr3},
		{"PhotoYCC", 9, ColorSpacePhotoYCC},
		{"CMY", 11, ColorSpaceCMY},
		{"CMYK", 12, ColorSpaceCMYK},
		{"YCCK", 13, ColorSpaceYCCK},
		{"CIELab", 14, ColorSpaceCIELab},
		{"bilevel(2)", 15, ColorSpaceBilevel},
		{"sRGB", 16, ColorSpaceSRGB},
		{"greyscale", 17, ColorSpaceGray},
		{"sYCC", 18, ColorSpaceSYCC},
		{"CIEJab", 19, ColorSpaceCIEJab},
		{"e-sRGB", 20, ColorSpaceESRGB},
		{"ROMM-RGB", 21, ColorSpaceROMMRGB},
		{"YPbPr 1125/60", 22, ColorSpaceYPbPr60},
		{"YPbPr 1250/50", 23, ColorSpaceYPbPr50},
		{"e-sYCC", 24, ColorSpaceEYCC},
		{"unknown value", 99, ColorSpaceUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			patched := append([]byte(nil), base...)
			require.True(t, patchColrBox(patched, tt.csValue))

			meta, err := DecodeMetadata(bytes.NewReader(patched))
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.ColorSpace)
		})
	}
}

func TestEncode_DeclaredColorspaces(t *testing.T) {
	// Declaring a colorspace converts the samples and tags the colr
	// box; DecodeMetadata must read the tag back.
	for _, cs := range []ColorSpace{ColorSpaceSRGB, ColorSpaceSYCC, ColorSpaceEYCC} {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJP2
		opts.Lossless = true
		opts.ColorSpace = cs
		require.NoError(t, Encode(&buf, rgbaRamp(8), opts), "colorspace %d", cs)

		meta, err := DecodeMetadata(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err, "colorspace %d", cs)
		assert.Equal(t, cs, meta.ColorSpace, "colorspace %d", cs)
	}
}

func TestImageRegistration(t *testing.T) {
	t.Run("jp2", func(t *testing.T) {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJP2
		opts.Lossless = true
		require.NoError(t, Encode(&buf, grayRamp(8), opts))

		decoded, format, err := image.Decode(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, "jp2", format)
		assert.Equal(t, 8, decoded.Bounds().Dx())

		cfg, format, err := image.DecodeConfig(bytes.NewReader(buf.Bytes()))
		require.NoError(t, err)
		assert.Equal(t, "jp2", format)
		assert.Equal(t, 8, cfg.Width)
	})

	t.Run("j2k", func(t *testing.T) {
		data := encodeJ2K(t, grayRamp(8), nil)

		decoded, format, err := image.Decode(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "j2k", format)
		assert.Equal(t, 8, decoded.Bounds().Dy())

		cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
		require.NoError(t, err)
		assert.Equal(t, "j2k", format)
		assert.Equal(t, 8, cfg.Height)
	})
}

func TestDecode_MalformedInputs(t *testing.T) {
	t.Run("unrecognized leading bytes", func(t *testing.T) {
		_, err := Decode(bytes.NewReader(make([]byte, 12)))
		assert.Error(t, err)
	})

	t.Run("too short to sniff", func(t *testing.T) {
		_, err := Decode(bytes.NewReader([]byte{0xFF}))
		assert.Error(t, err)
	})

	t.Run("metadata on junk", func(t *testing.T) {
		_, err := DecodeMetadata(bytes.NewReader(make([]byte, 12)))
		assert.Error(t, err)
	})

	t.Run("corrupt JP2 signature", func(t *testing.T) {
		var buf bytes.Buffer
		opts := DefaultOptions()
		opts.Format = FormatJP2
		require.NoError(t, Encode(&buf, grayRamp(4), opts))
		data := buf.Bytes()
		data[8] = 0xFF
		_, err := Decode(bytes.NewReader(data))
		assert.Error(t, err)
	})

	t.Run("JP2 without codestream box", func(t *testing.T) {
		jp2 := []byte{
			0x00, 0x00, 0x00, 0x0C, 'j', 'P', ' ', ' ', 0x0D, 0x0A, 0x87, 0x0A,
			0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p',
			'j', 'p', '2', ' ', 0x00, 0x00, 0x00, 0x00, 'j', 'p', '2', ' ',
		}
		_, err := Decode(bytes.NewReader(jp2))
		assert.Error(t, err)
	})

	t.Run("truncated ftyp box", func(t *testing.T) {
		jp2 := []byte{
			0x00, 0x00, 0x00, 0x0C, 'j', 'P', ' ', ' ', 0x0D, 0x0A, 0x87, 0x0A,
			0x00, 0x00, 0x00, 0x14, 'f', 't', 'y', 'p', 'j', 'p',
		}
		_, err := Decode(bytes.NewReader(jp2))
		assert.Error(t, err)
	})
}

func TestClampInt32(t *testing.T) {
	tests := []struct {
		v, lo, hi, want int32
	}{
		{50, 0, 100, 50},
		{-10, 0, 100, 0},
		{150, 0, 100, 100},
		{0, 0, 100, 0},
		{100, 0, 100, 100},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, clampInt32(tt.v, tt.lo, tt.hi))
	}
}

func TestByteReader(t *testing.T) {
	r := &byteReader{data: []byte{1, 2, 3, 4, 5}}

	buf := make([]byte, 3)
	n, err := r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, buf)

	n, err = r.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = r.Read(buf)
	assert.Error(t, err)
	assert.Zero(t, n)
}

func BenchmarkEncode_Gray64x64(b *testing.B) {
	img := grayRamp(64)
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	b.SetBytes(64 * 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		Encode(&buf, img, opts)
	}
}

func BenchmarkEncode_RGBA512x512(b *testing.B) {
	img := rgbaRamp(512)
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	b.SetBytes(512 * 512 * 3)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var buf bytes.Buffer
		Encode(&buf, img, opts)
	}
}

func BenchmarkDecode_Gray64x64(b *testing.B) {
	img := grayRamp(64)
	opts := DefaultOptions()
	opts.Format = FormatJ2K
	opts.Lossless = true
	var buf bytes.Buffer
	if err := Encode(&buf, img, opts); err != nil {
		b.Fatal(err)
	}
	data := buf.Bytes()
	b.SetBytes(64 * 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := Decode(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}
