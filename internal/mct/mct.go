// Package mct implements the two in-standard multi-component
// transforms: the reversible RCT used on the 5-3 lossless path and the
// irreversible ICT (BT.601 luma/chroma matrix) used on the 9-7 lossy
// path, plus the DC level shift that centers unsigned samples around
// zero before either transform runs.
//
// All transforms operate in place across three equally sized component
// planes. Callers are responsible for checking that the components
// being transformed share dimensions and subsampling; the planes
// themselves carry no geometry.
package mct

// ForwardRCT converts RGB planes to the reversible Y/Cb/Cr variant in
// place. Integer-only, so the inverse reproduces the input bit-exactly:
//
//	Y = floor((R + 2G + B) / 4), Cb = B - G, Cr = R - G
//
// Go's arithmetic right shift floors negative sums the same way the
// inverse's does, which is what makes the pair exact for signed input.
func ForwardRCT(r, g, b []int32) {
	for i := range r {
		y := (r[i] + 2*g[i] + b[i]) >> 2
		cb := b[i] - g[i]
		cr := r[i] - g[i]

		r[i], g[i], b[i] = y, cb, cr
	}
}

// InverseRCT is the bit-exact inverse of ForwardRCT:
//
//	G = Y - floor((Cb + Cr) / 4), R = Cr + G, B = Cb + G
func InverseRCT(y, cb, cr []int32) {
	for i := range y {
		g := y[i] - ((cb[i] + cr[i]) >> 2)
		r := cr[i] + g
		b := cb[i] + g

		y[i], cb[i], cr[i] = r, g, b
	}
}

// ForwardICT converts RGB planes to YCbCr in place using the BT.601
// coefficients. Lossy by design; it runs on level-shifted samples
// before the 9-7 wavelet.
func ForwardICT(r, g, b []float64) {
	for i := range r {
		y := 0.299*r[i] + 0.587*g[i] + 0.114*b[i]
		cb := -0.16875*r[i] - 0.33126*g[i] + 0.5*b[i]
		cr := 0.5*r[i] - 0.41869*g[i] - 0.08131*b[i]

		r[i], g[i], b[i] = y, cb, cr
	}
}

// InverseICT converts YCbCr planes back to RGB in place.
func InverseICT(y, cb, cr []float64) {
	for i := range y {
		r := y[i] + 1.402*cr[i]
		g := y[i] - 0.34413*cb[i] - 0.71414*cr[i]
		b := y[i] + 1.772*cb[i]

		y[i], cb[i], cr[i] = r, g, b
	}
}

// DCLevelShiftForward subtracts 2^(precision-1) from every sample,
// mapping unsigned input onto the signed range the wavelet and both
// component transforms expect.
func DCLevelShiftForward(data []int32, precision int) {
	shift := int32(1) << (precision - 1)
	for i := range data {
		data[i] -= shift
	}
}

// DCLevelShiftInverse undoes DCLevelShiftForward after decoding.
func DCLevelShiftInverse(data []int32, precision int) {
	shift := int32(1) << (precision - 1)
	for i := range data {
		data[i] += shift
	}
}
