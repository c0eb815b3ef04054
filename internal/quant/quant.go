// Package quant implements JPEG 2000 scalar quantization of wavelet
// coefficients: deriving a per-subband step size from a QCD/QCC
// exponent-mantissa pair and applying the deadzone quantizer (forward)
// and its reconstruction-bias inverse (backward).
//
// Quantization sits as its own pipeline stage between the DWT and
// entropy coding; the raw divide/multiply primitives live in dwt
// (dwt.Quantize/Dequantize) and the marker-level step encoding in
// codestream (StepSize), with this package owning the derivation rules
// that connect them.
package quant

import (
	"math"

	"github.com/rasterlab/j2kcore/internal/codestream"
	"github.com/rasterlab/j2kcore/internal/dwt"
	"github.com/rasterlab/j2kcore/internal/entropy"
)

// ReconstructionBias is the fraction of a step applied when
// dequantizing a nonzero coefficient, matching Annex E.1's recommended
// 0.5 midpoint reconstruction (irreversible path only; the reversible
// 5/3 path carries exact integers and never quantizes).
const ReconstructionBias = 0.5

// StepSize derives a subband's Δ_b from a QCD/QCC exponent-mantissa
// pair. Guard bits widen the effective dynamic range but don't change
// Δ_b itself; callers add guardBits to the bit-plane budget instead.
func StepSize(s codestream.StepSize) float64 {
	return s.Value()
}

// DeadzoneQuantize applies the forward deadzone quantizer: coefficients
// within one step of zero quantize to zero, and the sign is carried
// separately by the caller (the entropy coder's sign-magnitude
// representation), so this only needs the magnitude rule.
func DeadzoneQuantize(coeffs []float64, stepSize float64) []int32 {
	return dwt.Quantize(coeffs, stepSize)
}

// DeadzoneDequantize reconstructs floating-point coefficients from
// quantized magnitudes, placing each nonzero reconstructed value at the
// bias point within its quantization interval rather than at the
// interval's lower edge.
func DeadzoneDequantize(coeffs []int32, stepSize float64) []float64 {
	out := make([]float64, len(coeffs))
	for i, v := range coeffs {
		switch {
		case v > 0:
			out[i] = (float64(v) + ReconstructionBias) * stepSize
		case v < 0:
			out[i] = (float64(v) - ReconstructionBias) * stepSize
		default:
			out[i] = 0
		}
	}
	return out
}

// ExpMantissaForStep derives the QCD/QCC exponent/mantissa encoding of
// a target step size, the forward direction of StepSize/Value used
// when the encoder picks Δ_b from a target bit-plane budget or
// compression ratio rather than reading it back off the wire.
func ExpMantissaForStep(step float64, dynamicRangeBits int) codestream.StepSize {
	if step <= 0 {
		return codestream.StepSize{}
	}
	// Solve 2^(31-exp) * (1+mantissa/2048) = step for the largest
	// exponent such that the mantissa fits in 11 bits.
	exp := dynamicRangeBits
	for exp > 0 {
		base := math.Ldexp(1, 31-exp)
		ratio := step / base
		if ratio >= 1 && ratio < 2 {
			mantissa := uint16(math.Round((ratio - 1) * 2048))
			if mantissa > 2047 {
				mantissa = 2047
			}
			return codestream.StepSize{Exponent: uint8(exp), Mantissa: mantissa}
		}
		exp--
	}
	return codestream.StepSize{Exponent: uint8(dynamicRangeBits), Mantissa: 0}
}

// ExpOnlyForBand derives the exponent-only encoding used by the
// reversible (no-quantization, QuantizationStyle 0) path, where Δ_b is
// always 1 and only the exponent (dynamic range) is transmitted.
func ExpOnlyForBand(dynamicRangeBits int) codestream.StepSize {
	return codestream.StepSize{Exponent: uint8(dynamicRangeBits), Mantissa: 0}
}

// SubbandGainBits returns the log2 L2-norm gain Annex E.1 Table E.1
// assigns a subband's synthesis filter relative to LL: 0 for LL, 1 for
// the once-high-pass subbands (HL, LH), and 2 for the twice-high-pass
// subband (HH). This widens a subband's
// bit-plane budget by its gain so that bands carrying more synthesis
// energy per coefficient are allotted correspondingly more bit-planes.
func SubbandGainBits(bandType int) int {
	switch bandType {
	case entropy.BandHL, entropy.BandLH:
		return 1
	case entropy.BandHH:
		return 2
	default:
		return 0
	}
}

// TotalBitPlanes derives a subband's coded bit-plane budget from the
// component's sample precision, the QCD/QCC guard bit count, and the
// subband's Annex E.1 gain, per Annex E.1's M_b = G + R_I - 1 + gain_b.
// Both encoder and decoder compute this the same way from header fields
// alone, so it never needs to travel on the wire as its own value.
func TotalBitPlanes(precision, guardBits, bandType int) int {
	return guardBits + precision - 1 + SubbandGainBits(bandType)
}
