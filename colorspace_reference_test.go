// Reference-value tests for the enumerated colorspace conversions,
// checked against ITU-R BT.601/BT.709 and sRGB color science constants.

package jpeg2000

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestYCbCrToRGB_ReferenceValues(t *testing.T) {
	tests := []struct {
		name      string
		conv      colorConversion
		y, cb, cr int32
		r, g, b   int32
		tolerance int32
	}{
		// BT.709 (sYCC): primaries derived from the forward matrix,
		// wide tolerance because the encoded inputs are rounded.
		{"sYCC grey", convertSYCCToRGB, 128, 128, 128, 128, 128, 128, 2},
		{"sYCC black", convertSYCCToRGB, 0, 128, 128, 0, 0, 0, 2},
		{"sYCC white", convertSYCCToRGB, 255, 128, 128, 255, 255, 255, 2},
		{"sYCC red", convertSYCCToRGB, 54, 99, 255, 255, 0, 0, 15},
		{"sYCC green", convertSYCCToRGB, 182, 30, 12, 0, 255, 0, 15},
		{"sYCC blue", convertSYCCToRGB, 18, 255, 116, 0, 0, 255, 15},

		{"BT.601 grey", convertYCbCr601ToRGB, 128, 128, 128, 128, 128, 128, 2},
		{"BT.601 black", convertYCbCr601ToRGB, 0, 128, 128, 0, 0, 0, 2},
		{"BT.601 white", convertYCbCr601ToRGB, 255, 128, 128, 255, 255, 255, 2},

		// YPbPr (HD video) shares the BT.709 matrix.
		{"YPbPr grey", convertYPbPr709ToRGB, 128, 128, 128, 128, 128, 128, 2},
		{"YPbPr black", convertYPbPr709ToRGB, 0, 128, 128, 0, 0, 0, 2},
		{"YPbPr white", convertYPbPr709ToRGB, 255, 128, 128, 255, 255, 255, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			componentData := [][]int32{{tt.y}, {tt.cb}, {tt.cr}}
			tt.conv(componentData, 8)

			assert.InDelta(t, tt.r, componentData[0][0], float64(tt.tolerance), "R")
			assert.InDelta(t, tt.g, componentData[1][0], float64(tt.tolerance), "G")
			assert.InDelta(t, tt.b, componentData[2][0], float64(tt.tolerance), "B")
		})
	}
}

func TestCMYToRGB_ExactComplement(t *testing.T) {
	tests := []struct {
		name    string
		c, m, y int32
		r, g, b int32
	}{
		{"white", 0, 0, 0, 255, 255, 255},
		{"black", 255, 255, 255, 0, 0, 0},
		{"red", 0, 255, 255, 255, 0, 0},
		{"green", 255, 0, 255, 0, 255, 0},
		{"blue", 255, 255, 0, 0, 0, 255},
		{"cyan", 255, 0, 0, 0, 255, 255},
		{"magenta", 0, 255, 0, 255, 0, 255},
		{"yellow", 0, 0, 255, 255, 255, 0},
		{"grey", 128, 128, 128, 127, 127, 127},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			componentData := [][]int32{{tt.c}, {tt.m}, {tt.y}}
			convertCMYToRGB(componentData, 8)
			assert.Equal(t, tt.r, componentData[0][0], "R")
			assert.Equal(t, tt.g, componentData[1][0], "G")
			assert.Equal(t, tt.b, componentData[2][0], "B")
		})
	}
}

func TestCMYToRGB_IsAnInvolutionOverTheGrid(t *testing.T) {
	// Channel complement is its own inverse; a sparse sweep of the
	// cube confirms no rounding creeps in anywhere.
	for c := int32(0); c <= 255; c += 51 {
		for m := int32(0); m <= 255; m += 51 {
			for y := int32(0); y <= 255; y += 51 {
				componentData := [][]int32{{c}, {m}, {y}}
				convertCMYToRGB(componentData, 8)
				require.Equal(t, c, 255-componentData[0][0])
				require.Equal(t, m, 255-componentData[1][0])
				require.Equal(t, y, 255-componentData[2][0])
			}
		}
	}
}

func TestCMYKToRGB_ReferenceValues(t *testing.T) {
	tests := []struct {
		name       string
		c, m, y, k int32
		r, g, b    int32
		tolerance  int32
	}{
		{"white", 0, 0, 0, 0, 255, 255, 255, 1},
		{"black via K", 0, 0, 0, 255, 0, 0, 0, 1},
		{"black via CMY", 255, 255, 255, 0, 0, 0, 0, 1},
		{"red", 0, 255, 255, 0, 255, 0, 0, 1},
		{"half-K grey", 0, 0, 0, 128, 127, 127, 127, 2},
		{"dark red", 0, 255, 255, 128, 127, 0, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			componentData := [][]int32{{tt.c}, {tt.m}, {tt.y}, {tt.k}}
			convertCMYKToRGB(componentData, 8)
			assert.InDelta(t, tt.r, componentData[0][0], float64(tt.tolerance), "R")
			assert.InDelta(t, tt.g, componentData[1][0], float64(tt.tolerance), "G")
			assert.InDelta(t, tt.b, componentData[2][0], float64(tt.tolerance), "B")
		})
	}
}

func TestCIELabToRGB_NeutralAxisAndShifts(t *testing.T) {
	tests := []struct {
		name       string
		l, a, b    int32
		minR, maxR int32
		isGrey     bool
	}{
		{"black", 0, 128, 128, 0, 5, true},
		// D50 to D65 adaptation shifts white slightly off neutral.
		{"white", 255, 128, 128, 250, 255, false},
		{"mid grey", 128, 128, 128, 80, 140, true},
		{"positive a* leans red", 128, 200, 128, 100, 255, false},
		{"negative b* leans blue", 128, 128, 50, 0, 200, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			componentData := [][]int32{{tt.l}, {tt.a}, {tt.b}}
			convertCIELabToRGB(componentData, 8)

			r, g, b := componentData[0][0], componentData[1][0], componentData[2][0]
			assert.GreaterOrEqual(t, r, tt.minR)
			assert.LessOrEqual(t, r, tt.maxR)
			if tt.isGrey {
				assert.InDelta(t, r, g, 25, "neutral input should stay near-grey")
				assert.InDelta(t, g, b, 25, "neutral input should stay near-grey")
			}
		})
	}
}

func TestPhotoYCCToRGB_NeutralAxis(t *testing.T) {
	tests := []struct {
		name       string
		y, c1, c2  int32
		minR, maxR int32
	}{
		// PhotoYCC centres chroma at 156, not 128.
		{"neutral", 128, 156, 156, 100, 160},
		{"black", 0, 156, 156, 0, 20},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			componentData := [][]int32{{tt.y}, {tt.c1}, {tt.c2}}
			convertPhotoYCCToRGB(componentData, 8)

			r, g, b := componentData[0][0], componentData[1][0], componentData[2][0]
			assert.GreaterOrEqual(t, r, tt.minR)
			assert.LessOrEqual(t, r, tt.maxR)
			assert.InDelta(t, r, g, 20)
			assert.InDelta(t, g, b, 20)
		})
	}
}

func TestWideGamutConversions_StayInRange(t *testing.T) {
	// ROMM-RGB and the extended-gamut spaces can carry colors outside
	// sRGB; conversion must clip into the declared precision, never
	// wrap or escape it.
	convs := map[string]colorConversion{
		"ROMM-RGB": convertROMMRGBToRGB,
		"e-sRGB":   convertESRGBToRGB,
		"e-sYCC":   convertEYCCToRGB,
	}
	inputs := [][3]int32{{0, 0, 0}, {128, 128, 128}, {255, 255, 255}, {255, 0, 255}, {10, 250, 60}}

	for name, conv := range convs {
		t.Run(name, func(t *testing.T) {
			for _, in := range inputs {
				componentData := [][]int32{{in[0]}, {in[1]}, {in[2]}}
				conv(componentData, 8)
				for ch := 0; ch < 3; ch++ {
					v := componentData[ch][0]
					require.GreaterOrEqual(t, v, int32(0), "input %v channel %d", in, ch)
					require.LessOrEqual(t, v, int32(255), "input %v channel %d", in, ch)
				}
			}
		})
	}
}

func TestEYCCToRGB_NeutralIsGrey(t *testing.T) {
	componentData := [][]int32{{128}, {128}, {128}}
	convertEYCCToRGB(componentData, 8)
	assert.InDelta(t, 128, componentData[0][0], 5)
	assert.InDelta(t, 128, componentData[1][0], 5)
	assert.InDelta(t, 128, componentData[2][0], 5)
}

func TestConversions_16BitPrecision(t *testing.T) {
	const halfVal, maxVal = int32(32768), int32(65535)

	t.Run("sYCC grey", func(t *testing.T) {
		componentData := [][]int32{{halfVal}, {halfVal}, {halfVal}}
		convertSYCCToRGB(componentData, 16)
		assert.InDelta(t, halfVal, componentData[0][0], 200)
		assert.InDelta(t, halfVal, componentData[1][0], 200)
		assert.InDelta(t, halfVal, componentData[2][0], 200)
	})

	t.Run("CMY white", func(t *testing.T) {
		componentData := [][]int32{{0}, {0}, {0}}
		convertCMYToRGB(componentData, 16)
		assert.Equal(t, maxVal, componentData[0][0])
		assert.Equal(t, maxVal, componentData[1][0])
		assert.Equal(t, maxVal, componentData[2][0])
	})

	t.Run("CMYK black", func(t *testing.T) {
		componentData := [][]int32{{0}, {0}, {0}, {maxVal}}
		convertCMYKToRGB(componentData, 16)
		assert.Zero(t, componentData[0][0])
		assert.Zero(t, componentData[1][0])
		assert.Zero(t, componentData[2][0])
	})
}

func TestSRGBGamma_InverseAndTransitionPoint(t *testing.T) {
	for i := 0; i <= 100; i++ {
		linear := float64(i) / 100.0
		encoded := srgbGamma(linear)
		assert.InDelta(t, linear, srgbInverseGamma(encoded), 1e-4)
	}

	// At the 0.0031308 knee the linear and power segments agree.
	const knee = 0.0031308
	assert.True(t, math.Abs(srgbGamma(knee)-12.92*knee) < 1e-4)
}
