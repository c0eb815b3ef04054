// Package ratecontrol implements PCRD-opt, the post-compression
// rate-distortion optimization JPEG 2000 uses to choose, for each
// quality layer, exactly which coding pass of each code-block to
// truncate at.
//
// It fills in the (rate, distortion) pass bookkeeping declared on
// tcd.CodingPass (Length/CumulativeLength/Slope) and implements the
// standard convex-hull / Lagrangian construction over it.
package ratecontrol

import (
	"golang.org/x/exp/slices"

	"github.com/rasterlab/j2kcore/internal/j2klog"
	"github.com/rasterlab/j2kcore/internal/tcd"
)

// passWeight approximates, per bit-plane from the most significant
// one, the fraction of a code-block's total distortion reduction each
// of the three coding passes (significance propagation, magnitude
// refinement, cleanup) contributes within that plane. Absent a true
// per-sample MSE accumulator in tier-1, this follows the standard
// embedded-coding approximation: distortion falls by a factor of four
// each bit-plane, and within a plane the cleanup pass (which carries
// the bulk of newly-significant coefficients) contributes more than
// the refinement pass.
var passWeight = [3]float64{0.25, 0.25, 0.50}

// EstimateDistortion fills in CumulativeLength and Distortion for every
// coding pass of every code-block, given each code-block's declared
// zero bit-plane count. It runs after tier-1 encoding; BuildLayers
// calls it itself.
func EstimateDistortion(codeBlocks []*tcd.CodeBlock) {
	for _, cb := range codeBlocks {
		cumLen := 0
		totalPlanes := cb.TotalBitPlanes - cb.ZeroBitPlanes
		if totalPlanes < 1 {
			totalPlanes = 1
		}
		// Distortion budget for this code-block: planeWeight(p) is the
		// share of total squared-error this bit-plane's three passes
		// remove, decreasing by a factor of 4 (one bit of amplitude)
		// per plane so the MSB plane dominates.
		planeBudget := make([]float64, totalPlanes)
		sum := 0.0
		w := 1.0
		for p := 0; p < totalPlanes; p++ {
			planeBudget[p] = w
			sum += w
			w /= 4
		}
		for p := range planeBudget {
			planeBudget[p] /= sum
		}

		cumDist := 0.0
		for i := range cb.Passes {
			pass := &cb.Passes[i]
			cumLen += pass.Length
			pass.CumulativeLength = cumLen

			plane := i / 3
			within := i % 3
			if plane < len(planeBudget) {
				cumDist += planeBudget[plane] * passWeight[within]
			}
			pass.Distortion = cumDist
		}
	}
}

// hullPoint is one admissible (rate, distortion, pass index) point on a
// code-block's convex distortion-rate hull.
type hullPoint struct {
	cbIndex   int
	passIndex int
	rate      int
	distGain  float64
	slope     float64
}

// ConvexHull filters a code-block's coding passes down to the subset
// lying on the upper convex hull of the (rate, cumulative distortion
// reduction) curve, the classic PCRD-opt construction: only passes
// whose rate/distortion tradeoff actually improves on every cheaper
// pass already kept are worth ever truncating at.
type point struct {
	idx  int
	rate int
	dist float64
}

func ConvexHull(cb *tcd.CodeBlock) []int {
	pts := make([]point, 0, len(cb.Passes))
	for i, p := range cb.Passes {
		pts = append(pts, point{i, p.CumulativeLength, p.Distortion})
	}

	hull := make([]int, 0, len(pts))
	for _, p := range pts {
		for len(hull) >= 2 {
			i1, i2 := hull[len(hull)-2], hull[len(hull)-1]
			p1, p2 := pts[indexOf(pts, i1)], pts[indexOf(pts, i2)]
			dr1 := float64(p2.rate - p1.rate)
			dr2 := float64(p.rate - p2.rate)
			if dr1 <= 0 || dr2 <= 0 {
				break
			}
			slope1 := (p2.dist - p1.dist) / dr1
			slope2 := (p.dist - p2.dist) / dr2
			if slope2 >= slope1 {
				hull = hull[:len(hull)-1]
				continue
			}
			break
		}
		hull = append(hull, p.idx)
	}

	for i := 1; i < len(hull); i++ {
		prev := cb.Passes[hull[i-1]]
		cur := cb.Passes[hull[i]]
		dr := float64(cur.CumulativeLength - prev.CumulativeLength)
		if dr <= 0 {
			cb.Passes[hull[i]].Slope = 0
			continue
		}
		cb.Passes[hull[i]].Slope = (cur.Distortion - prev.Distortion) / dr
	}
	if len(hull) > 0 {
		first := cb.Passes[hull[0]]
		if first.CumulativeLength > 0 {
			cb.Passes[hull[0]].Slope = first.Distortion / float64(first.CumulativeLength)
		}
	}
	return hull
}

func indexOf(pts []point, idx int) int {
	for i, p := range pts {
		if p.idx == idx {
			return i
		}
	}
	return -1
}

// Layer describes one quality layer's truncation point for each
// code-block, as indices into CodeBlock.Passes (exclusive: passes
// [0:Truncation[i]] are included by the end of this layer, counting
// this and all earlier layers together).
type Layer struct {
	ByteBudget  int
	Truncations []int // per code-block, index into its Passes slice
	BytesUsed   int
	Lambda      float64
	Unreachable bool // true if the cumulative budget is positive yet no code-block bytes fit in it
}

// BuildLayers assigns every code-block's coding passes to quality
// layers by binary-searching, per layer, for the Lagrange multiplier λ
// whose slope cutoff best matches the layer's target byte count —
// exactly the PCRD-opt procedure: a cut at slope threshold λ keeps
// every hull point whose marginal distortion/rate exceeds λ, and the
// encoder searches λ until the resulting total size is as close as
// possible to (without exceeding, when feasible) the budget.
// logger may be nil, in which case BuildLayers runs identically but
// silently; when non-nil it records, per layer, the handful of
// truncation passes with the largest rate-distortion slope (the bytes
// that bought the most distortion reduction), using
// SortBySlopeDescending to rank them.
func BuildLayers(codeBlocks []*tcd.CodeBlock, byteBudgets []int, logger *j2klog.Logger) []Layer {
	EstimateDistortion(codeBlocks)
	hulls := make([][]int, len(codeBlocks))
	for i, cb := range codeBlocks {
		hulls[i] = ConvexHull(cb)
	}

	layers := make([]Layer, len(byteBudgets))
	prevCut := make([]int, len(codeBlocks)) // passes already included by prior layers

	cumulativeBudget := 0
	for li, budget := range byteBudgets {
		cumulativeBudget += budget
		layer := Layer{ByteBudget: budget, Truncations: make([]int, len(codeBlocks))}

		lambda, cut, used := searchLambda(codeBlocks, hulls, prevCut, cumulativeBudget)
		layer.Lambda = lambda
		layer.BytesUsed = used - sumPrevBytes(codeBlocks, prevCut)
		if layer.BytesUsed < 0 {
			layer.BytesUsed = 0
		}
		if used == 0 && cumulativeBudget > 0 {
			layer.Unreachable = true
		}
		copy(layer.Truncations, cut)
		layers[li] = layer
		logTopSlopes(logger, li, codeBlocks, prevCut, cut)
		prevCut = cut
	}
	return layers
}

// AssignLayerPasses records BuildLayers' result onto each code-block
// itself (LayerPasses, IncludedInLayers), the form tier-2 packet
// assembly actually consumes: per-layer cumulative pass counts rather
// than the flat Layer.Truncations slices indexed in parallel with the
// caller's codeBlocks slice.
func AssignLayerPasses(codeBlocks []*tcd.CodeBlock, layers []Layer) {
	for i, cb := range codeBlocks {
		cut := make([]int, len(layers))
		first := tcd.NeverIncluded
		for l, layer := range layers {
			c := layer.Truncations[i]
			if c > len(cb.Passes) {
				c = len(cb.Passes)
			}
			cut[l] = c
			if c > 0 && first == tcd.NeverIncluded {
				first = l
			}
		}
		cb.LayerPasses = cut
		cb.IncludedInLayers = first
	}
}

// logTopSlopes reports the handful of newly-included passes with the
// highest rate-distortion slope for one layer, the bytes PCRD-opt
// judged most worth spending — useful when tuning layer_rates against
// an observed encode, since a layer whose top slopes are much lower
// than the previous layer's is past the point of diminishing returns.
func logTopSlopes(logger *j2klog.Logger, layerIdx int, codeBlocks []*tcd.CodeBlock, prevCut, cut []int) {
	if logger == nil {
		return
	}
	var newest []tcd.CodingPass
	for i, cb := range codeBlocks {
		for p := prevCut[i]; p < cut[i] && p < len(cb.Passes); p++ {
			newest = append(newest, cb.Passes[p])
		}
	}
	if len(newest) == 0 {
		return
	}
	SortBySlopeDescending(newest)
	top := newest
	if len(top) > 3 {
		top = top[:3]
	}
	for _, p := range top {
		logger.Info("layer %d: truncation pass slope=%.6f cumulative=%dB", layerIdx, p.Slope, p.CumulativeLength)
	}
}

// searchLambda binary-searches for the smallest λ such that the total
// bytes included across all code-blocks (honoring passes already
// committed by prior layers via floor) does not exceed budget, then
// returns the resulting per-code-block cut points.
func searchLambda(codeBlocks []*tcd.CodeBlock, hulls [][]int, floor []int, budget int) (float64, []int, int) {
	maxSlope := 0.0
	for _, cb := range codeBlocks {
		for _, p := range cb.Passes {
			if p.Slope > maxSlope {
				maxSlope = p.Slope
			}
		}
	}
	if maxSlope == 0 {
		maxSlope = 1
	}

	lo, hi := 0.0, maxSlope*2
	bestCut := append([]int(nil), floor...)
	bestUsed := sumPrevBytes(codeBlocks, floor)

	for iter := 0; iter < 32; iter++ {
		mid := (lo + hi) / 2
		cut, used := cutAt(codeBlocks, hulls, floor, mid)
		if used <= budget {
			bestCut = cut
			bestUsed = used
			hi = mid
		} else {
			lo = mid
		}
	}
	if bestUsed > budget {
		return lo, floor, sumPrevBytes(codeBlocks, floor)
	}
	return lo, bestCut, bestUsed
}

// cutAt computes, for a given slope threshold, the pass index each
// code-block would be truncated at (never receding below floor), and
// the resulting total byte count.
func cutAt(codeBlocks []*tcd.CodeBlock, hulls [][]int, floor []int, lambda float64) ([]int, int) {
	cut := make([]int, len(codeBlocks))
	total := 0
	for i, cb := range codeBlocks {
		best := floor[i]
		for _, hi := range hulls[i] {
			if hi < floor[i] {
				continue
			}
			if cb.Passes[hi].Slope >= lambda {
				if hi+1 > best {
					best = hi + 1
				}
			}
		}
		if best > len(cb.Passes) {
			best = len(cb.Passes)
		}
		cut[i] = best
		if best > 0 {
			total += cb.Passes[best-1].CumulativeLength
		}
	}
	return cut, total
}

func sumPrevBytes(codeBlocks []*tcd.CodeBlock, cut []int) int {
	total := 0
	for i, cb := range codeBlocks {
		if cut[i] > 0 && cut[i] <= len(cb.Passes) {
			total += cb.Passes[cut[i]-1].CumulativeLength
		}
	}
	return total
}

// SortBySlopeDescending orders passes by rate-distortion slope,
// highest first. BuildLayers' logTopSlopes is the production caller:
// it ranks a layer's newly-included passes this way before logging the
// top few.
func SortBySlopeDescending(passes []tcd.CodingPass) {
	slices.SortFunc(passes, func(a, b tcd.CodingPass) int {
		switch {
		case a.Slope > b.Slope:
			return -1
		case a.Slope < b.Slope:
			return 1
		default:
			return 0
		}
	})
}

// TargetUnreachable reports whether even an empty layer (all
// code-blocks truncated to zero passes) would exceed the budget —
// a degenerate configuration the caller should surface as a warning
// per the encoder's rate-budget-exceeded handling rather than fail
// outright.
func TargetUnreachable(budget int) bool {
	return budget <= 0
}
