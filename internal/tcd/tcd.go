// Package tcd implements the Tile Coder/Decoder for JPEG 2000.
//
// The TCD orchestrates the encoding and decoding of individual tiles,
// including:
// - Wavelet transform (DWT)
// - Quantization
// - Code-block entropy coding (T1)
// - Packet assembly (T2)
package tcd

import (
	"github.com/rasterlab/j2kcore/internal/codestream"
	"github.com/rasterlab/j2kcore/internal/dwt"
	"github.com/rasterlab/j2kcore/internal/entropy"
)

// Tile represents a single tile in the image.
type Tile struct {
	// Tile index
	Index int

	// Tile bounds in image coordinates
	X0, Y0, X1, Y1 int

	// Components
	Components []*TileComponent
}

// TileComponent represents a single component within a tile.
type TileComponent struct {
	// Component index
	Index int

	// Component bounds (may differ due to subsampling)
	X0, Y0, X1, Y1 int

	// Resolution levels
	Resolutions []*Resolution

	// Coefficient data
	Data []int32

	// Floating point data for 9-7 transform
	DataFloat []float64
}

// Resolution represents a resolution level within a tile-component.
type Resolution struct {
	// Resolution level (0 = coarsest, the LL-only level)
	Level int

	// Bounds at this resolution
	X0, Y0, X1, Y1 int

	// Number of bands (1 for LL, 3 for others)
	NumBands int

	// Bands at this resolution
	Bands []*Band

	// Precincts
	Precincts []*Precinct

	// Precinct grid dimensions
	PrecinctsX, PrecinctsY int
}

// Band represents a subband within a resolution level.
type Band struct {
	// Band type (LL, HL, LH, HH)
	Type int

	// Band bounds
	X0, Y0, X1, Y1 int

	// Quantization step size
	StepSize float64

	// Code-blocks
	CodeBlocks []*CodeBlock

	// Code-block grid dimensions
	CodeBlocksX, CodeBlocksY int
}

// Precinct represents a precinct for packet organization.
type Precinct struct {
	// Precinct index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Code-blocks in this precinct, per band
	CodeBlocks [][]*CodeBlock

	// Tag trees for inclusion and IMSB
	InclusionTree *TagTree
	IMSBTree      *TagTree
}

// NeverIncluded is the IncludedInLayers sentinel for a code-block that
// contributes no passes to any quality layer: large enough that the
// "included in layer <= N" tests packet encode/decode use against it
// never trip for a real layer index.
const NeverIncluded = 1 << 30

// CodeBlock represents a code-block for entropy coding.
type CodeBlock struct {
	// Code-block index
	Index int

	// Bounds
	X0, Y0, X1, Y1 int

	// Encoded data
	Data []byte

	// Coding passes
	Passes []CodingPass

	// Number of zero bit-planes
	ZeroBitPlanes int

	// Total number of bit-planes
	TotalBitPlanes int

	// Included in previous layers
	IncludedInLayers int

	// Lblock is the adaptive length-field width state the packet
	// header's contribution-length code grows per code-block (zero
	// means not yet initialized; first use sets the standard initial
	// width).
	Lblock int

	// LayerPasses[l], when non-nil, is the cumulative number of coding
	// passes included through quality layer l (monotonically
	// nondecreasing, one entry per declared layer). A nil slice means
	// every pass belongs to a single layer (rate control never ran, or
	// the codestream declares exactly one layer), the degenerate case
	// PassesThroughLayer and ByteRangeForLayer both special-case.
	LayerPasses []int

	// Decoded coefficient data
	Coefficients []int32
}

// PassesThroughLayer returns the cumulative number of coding passes
// included by the end of the given layer index. A negative layer
// index always yields zero (nothing included yet).
func (cb *CodeBlock) PassesThroughLayer(layer int) int {
	if layer < 0 {
		return 0
	}
	if cb.LayerPasses == nil {
		return len(cb.Passes)
	}
	if layer >= len(cb.LayerPasses) {
		layer = len(cb.LayerPasses) - 1
	}
	return cb.LayerPasses[layer]
}

// ByteRangeForLayer returns the [lo, hi) byte range within Data that is
// newly contributed by this code-block in the given layer: the bytes
// between the previous layer's cumulative pass count and this layer's,
// read off each pass's CumulativeLength. Tier-2 uses this on both the
// encode side (to slice an outgoing packet body) and, symmetrically,
// to know how many incoming bytes a layer's packet body owes a
// code-block on decode.
func (cb *CodeBlock) ByteRangeForLayer(layer int) (lo, hi int) {
	prev := cb.PassesThroughLayer(layer - 1)
	cur := cb.PassesThroughLayer(layer)
	if prev > 0 && prev <= len(cb.Passes) {
		lo = cb.Passes[prev-1].CumulativeLength
	}
	if cur > 0 && cur <= len(cb.Passes) {
		hi = cb.Passes[cur-1].CumulativeLength
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

// CodingPass represents a single coding pass.
type CodingPass struct {
	// Pass type (significance, refinement, cleanup)
	Type int

	// Length in bytes
	Length int

	// Cumulative length
	CumulativeLength int

	// Rate-distortion slope: the marginal distortion reduction per byte
	// spent truncating the code-block after this pass, populated by
	// package ratecontrol's PCRD-opt pass and consumed by that package's
	// λ search to choose each quality layer's truncation point (tier-2
	// reads the result from CodeBlock.LayerPasses).
	Slope float64

	// Cumulative mean-squared-error reduction contributed by all passes
	// up to and including this one, as a fraction of the code-block's
	// total (estimated by ratecontrol.EstimateDistortion; no subband
	// synthesis-gain weighting is applied before comparison across
	// subbands).
	Distortion float64

	// Terminated flag
	Terminated bool
}

// Pass type constants.
const (
	PassSignificance = iota
	PassRefinement
	PassCleanup
)

// TagTree implements the monotone-quadtree tag tree used to code
// per-code-block inclusion and zero bit-plane (IMSB) values within a
// precinct (ISO/IEC 15444-1 Annex B.10.2). Each leaf is a code-block;
// each level above aggregates the minimum of its four children, so a
// decoder that has not yet resolved a child can still bound it from an
// ancestor's known minimum.
type TagTree struct {
	width, height int
	levels        int
	levelWidth    []int
	levelHeight   []int
	nodes         [][]tagNode
}

type tagNode struct {
	value int
	low   int
	known bool
}

const tagTreeMaxValue = int(^uint(0) >> 1)

// tagBitWriter and tagBitReader are the minimal bit-level interfaces
// TagTree needs from internal/bio's PacketBitWriter and PacketBitReader.
type tagBitWriter interface {
	WriteBit(bit int) error
}

type tagBitReader interface {
	ReadBit() (int, error)
}

// NewTagTree creates a new tag tree over a width x height grid of leaves.
func NewTagTree(width, height int) *TagTree {
	if width < 1 {
		width = 1
	}
	if height < 1 {
		height = 1
	}
	t := &TagTree{width: width, height: height}

	w, h := width, height
	for {
		t.levelWidth = append(t.levelWidth, w)
		t.levelHeight = append(t.levelHeight, h)
		nodes := make([]tagNode, w*h)
		for i := range nodes {
			nodes[i].value = tagTreeMaxValue
		}
		t.nodes = append(t.nodes, nodes)
		if w == 1 && h == 1 {
			break
		}
		w = (w + 1) / 2
		h = (h + 1) / 2
	}
	t.levels = len(t.nodes)
	return t
}

func (t *TagTree) nodeAt(level, x, y int) *tagNode {
	return &t.nodes[level][y*t.levelWidth[level]+x]
}

// SetValue assigns the true value at leaf (x,y), propagating the
// minimum up to every ancestor so partial knowledge at higher levels
// stays a valid lower bound.
func (t *TagTree) SetValue(x, y, value int) {
	t.nodeAt(0, x, y).value = value
	lx, ly := x, y
	for level := 0; level < t.levels-1; level++ {
		lx, ly = lx/2, ly/2
		parent := t.nodeAt(level+1, lx, ly)
		if value < parent.value {
			parent.value = value
		} else {
			value = parent.value
		}
	}
}

// Reset clears per-session coding state so the tree can be reused for a
// new precinct coding pass. On a decoder's tree this also forgets
// learned leaf values (unknown again); on an encoder's tree, SetValue
// must be called again before the next Encode since leaf ground truth
// is cleared too.
func (t *TagTree) Reset() {
	for level := range t.nodes {
		for i := range t.nodes[level] {
			t.nodes[level][i].low = 0
			t.nodes[level][i].known = false
			t.nodes[level][i].value = tagTreeMaxValue
		}
	}
}

// path returns the (level, x, y) chain from leaf up to and including
// the root.
func (t *TagTree) path(x, y int) [][3]int {
	path := make([][3]int, 0, t.levels)
	lx, ly := x, y
	for level := 0; level < t.levels; level++ {
		path = append(path, [3]int{level, lx, ly})
		lx, ly = lx/2, ly/2
	}
	return path
}

// Encode codes, into w, whether the value at leaf (x,y) is below
// threshold, writing only the bits not already implied by bits emitted
// for earlier (smaller) thresholds on this same leaf or its ancestors —
// the incremental tag-tree algorithm of Annex B.10.2. Call once per
// quality layer with an increasing threshold until the code-block is
// signaled included; later calls for an already-resolved node cost no
// bits.
func (t *TagTree) Encode(w tagBitWriter, x, y, threshold int) error {
	path := t.path(x, y)
	low := 0
	for i := len(path) - 1; i >= 0; i-- {
		node := t.nodeAt(path[i][0], path[i][1], path[i][2])
		if low < node.low {
			low = node.low
		}
		if node.known {
			low = node.low
			continue
		}

		reveal := node.value < threshold
		target := threshold
		if reveal {
			target = node.value
		}
		for low < target {
			if err := w.WriteBit(0); err != nil {
				return err
			}
			low++
		}
		if reveal {
			if err := w.WriteBit(1); err != nil {
				return err
			}
			node.known = true
		}
		node.low = low
	}
	return nil
}

// Decode mirrors Encode bit-for-bit and returns whether leaf (x,y)'s
// value is below threshold.
func (t *TagTree) Decode(r tagBitReader, x, y, threshold int) (bool, error) {
	path := t.path(x, y)
	low := 0
	var node *tagNode
	for i := len(path) - 1; i >= 0; i-- {
		node = t.nodeAt(path[i][0], path[i][1], path[i][2])
		if low < node.low {
			low = node.low
		}
		if node.value != tagTreeMaxValue {
			low = node.low
			continue
		}

		for low < threshold {
			bit, err := r.ReadBit()
			if err != nil {
				return false, err
			}
			if bit == 1 {
				node.value = low
				break
			}
			low++
		}
		node.low = low
	}
	return node.value != tagTreeMaxValue && node.value < threshold, nil
}

// Value returns the leaf's currently resolved value (valid once Decode
// has pinned it below some threshold the caller cared about).
func (t *TagTree) Value(x, y int) int {
	return t.nodeAt(0, x, y).value
}

// TileDecoder decodes a single tile.
type TileDecoder struct {
	header     *codestream.Header
	tileHeader *codestream.TilePartHeader
	tile       *Tile
}

// NewTileDecoder creates a new tile decoder.
func NewTileDecoder(header *codestream.Header) *TileDecoder {
	return &TileDecoder{
		header: header,
	}
}

// Tile returns the current tile being decoded.
func (d *TileDecoder) Tile() *Tile {
	return d.tile
}

// Header returns the codestream header this decoder was built from, so
// callers needing tile-grid geometry (e.g. to zero-fill a tile whose
// decode failed) don't need their own copy of it.
func (d *TileDecoder) Header() *codestream.Header {
	return d.header
}

// InitTile initializes a tile for decoding.
func (d *TileDecoder) InitTile(tileIndex int) {
	h := d.header

	// Calculate tile bounds
	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	d.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	// Initialize components
	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		// Apply subsampling
		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
		}

		// Allocate data
		width := cx1 - cx0
		height := cy1 - cy0
		tc.Data = make([]int32, width*height)

		// Initialize resolutions. Geometry is expressed in tile-component
		// local coordinates (tc.Data is indexed from (0,0) regardless of
		// this component's placement in the image), so both encoder and
		// decoder sides derive identical, directly addressable bounds.
		h2 := d.header.CodingStyle
		tc.Resolutions = BuildResolutions(width, height, int(h2.NumDecompositions),
			int(h2.CodeBlockWidthExp), int(h2.CodeBlockHeightExp))

		d.tile.Components[c] = tc
	}
}

// BuildResolutions constructs the Resolution/Band/CodeBlock/Precinct
// geometry for one tile-component, given its local pixel dimensions
// (origin (0,0)), wavelet decomposition depth, and code-block size
// exponents. It is shared by TileEncoder and TileDecoder so both derive
// identical geometry from the same primitive parameters.
//
// Bands are quadrants of the region the corresponding decomposition
// level split: LL always occupies the top-left quadrant (and is the
// only band at resolution 0), HL the top-right, LH the bottom-left, HH
// the bottom-right, exactly mirroring the quadrant layout
// DecomposeMultiLevel53/97 leave behind in the coefficient array.
func BuildResolutions(tcWidth, tcHeight, numLevels, cbWidthExp, cbHeightExp int) []*Resolution {
	numRes := numLevels + 1
	resolutions := make([]*Resolution, numRes)
	for r := 0; r < numRes; r++ {
		resolutions[r] = buildResolution(tcWidth, tcHeight, numLevels, r, cbWidthExp, cbHeightExp)
	}
	return resolutions
}

func buildResolution(tcWidth, tcHeight, numLevels, resLevel, cbWidthExp, cbHeightExp int) *Resolution {
	scale := 1 << (numLevels - resLevel)
	rx1 := ceilDiv(tcWidth, scale)
	ry1 := ceilDiv(tcHeight, scale)

	res := &Resolution{Level: resLevel, X0: 0, Y0: 0, X1: rx1, Y1: ry1}

	if resLevel == 0 {
		res.NumBands = 1
		res.Bands = []*Band{buildBand(res, entropy.BandLL, cbWidthExp, cbHeightExp)}
	} else {
		res.NumBands = 3
		res.Bands = []*Band{
			buildBand(res, entropy.BandHL, cbWidthExp, cbHeightExp),
			buildBand(res, entropy.BandLH, cbWidthExp, cbHeightExp),
			buildBand(res, entropy.BandHH, cbWidthExp, cbHeightExp),
		}
	}

	buildPrecinct(res)
	return res
}

// buildBand initializes a band as a quadrant of res's working window.
func buildBand(res *Resolution, bandType, cbWidthExp, cbHeightExp int) *Band {
	band := &Band{Type: bandType}

	halfW := (res.X1 + 1) / 2
	halfH := (res.Y1 + 1) / 2

	switch bandType {
	case entropy.BandLL:
		band.X0, band.Y0, band.X1, band.Y1 = 0, 0, res.X1, res.Y1
	case entropy.BandHL:
		band.X0, band.Y0, band.X1, band.Y1 = halfW, 0, res.X1, halfH
	case entropy.BandLH:
		band.X0, band.Y0, band.X1, band.Y1 = 0, halfH, halfW, res.Y1
	case entropy.BandHH:
		band.X0, band.Y0, band.X1, band.Y1 = halfW, halfH, res.X1, res.Y1
	}

	// Calculate code-block grid
	cbWidth := 1 << (cbWidthExp + 2)
	cbHeight := 1 << (cbHeightExp + 2)

	band.CodeBlocksX = ceilDiv(band.X1-band.X0, cbWidth)
	band.CodeBlocksY = ceilDiv(band.Y1-band.Y0, cbHeight)

	// Initialize code-blocks
	numCB := band.CodeBlocksX * band.CodeBlocksY
	band.CodeBlocks = make([]*CodeBlock, numCB)

	for i := 0; i < numCB; i++ {
		cbX := i % band.CodeBlocksX
		cbY := i / band.CodeBlocksX

		cb := &CodeBlock{
			Index: i,
			X0:    band.X0 + cbX*cbWidth,
			Y0:    band.Y0 + cbY*cbHeight,
			X1:    min(band.X0+(cbX+1)*cbWidth, band.X1),
			Y1:    min(band.Y0+(cbY+1)*cbHeight, band.Y1),
		}
		band.CodeBlocks[i] = cb
	}

	return band
}

// buildPrecinct gives res a single precinct spanning its full extent —
// the default behavior per ISO/IEC 15444-1 Annex B.6 when no PPx/PPy
// precinct-size marker segment narrows it (the default precinct
// size of 2^15 always covers a whole resolution's bands in practice).
// Its tag trees are shared across the resolution's bands, sized to the
// largest code-block grid among them: a documented simplification, since
// ISO/IEC 15444-1 assigns each band its own inclusion/IMSB tag tree
// within a precinct, but a shared tree only costs a few wasted signaling
// bits when grids differ in size and never misattributes a code-block
// (callers index it by the band-local code-block coordinate).
func buildPrecinct(res *Resolution) {
	maxX, maxY := 1, 1
	cbs := make([][]*CodeBlock, len(res.Bands))
	for i, band := range res.Bands {
		cbs[i] = band.CodeBlocks
		if band.CodeBlocksX > maxX {
			maxX = band.CodeBlocksX
		}
		if band.CodeBlocksY > maxY {
			maxY = band.CodeBlocksY
		}
	}

	res.PrecinctsX, res.PrecinctsY = 1, 1
	res.Precincts = []*Precinct{{
		Index:         0,
		X0:            res.X0,
		Y0:            res.Y0,
		X1:            res.X1,
		Y1:            res.Y1,
		CodeBlocks:    cbs,
		InclusionTree: NewTagTree(maxX, maxY),
		IMSBTree:      NewTagTree(maxX, maxY),
	}}
}

// DecodeCodeBlock decodes a single code-block.
func (d *TileDecoder) DecodeCodeBlock(cb *CodeBlock, bandType int) error {
	if len(cb.Data) == 0 {
		return nil
	}

	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	// Coding passes only cover the non-zero bit-planes signaled by the
	// packet header's zero bit-plane count; the MQ-coded stream never
	// touches the leading ZeroBitPlanes planes, so the number of planes
	// handed to the bit-plane decode loop must exclude them.
	numBPS := cb.TotalBitPlanes - cb.ZeroBitPlanes

	t1 := entropy.NewT1(width, height)
	cb.Coefficients = t1.Decode(cb.Data, numBPS, bandType)

	return nil
}

// ApplyInverseDWT applies the inverse wavelet transform.
func (d *TileDecoder) ApplyInverseDWT(tc *TileComponent) {
	h := d.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.WaveletTransform == 1 {
		// 5-3 reversible
		dwt.ReconstructMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		// 9-7 irreversible
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.ReconstructMultiLevel97(tc.DataFloat, width, height, numLevels)
		for i, v := range tc.DataFloat {
			tc.Data[i] = int32(v + 0.5)
		}
	}
}

// TileEncoder encodes a single tile.
type TileEncoder struct {
	header *codestream.Header
	tile   *Tile
}

// NewTileEncoder creates a new tile encoder.
func NewTileEncoder(header *codestream.Header) *TileEncoder {
	return &TileEncoder{
		header: header,
	}
}

// Tile returns the tile currently being encoded.
func (e *TileEncoder) Tile() *Tile {
	return e.tile
}

// InitTile initializes a tile for encoding.
func (e *TileEncoder) InitTile(tileIndex int, componentData [][]int32) {
	h := e.header

	// Calculate tile bounds (same as decoder)
	tileX := tileIndex % int(h.NumTilesX)
	tileY := tileIndex / int(h.NumTilesX)

	x0 := max(int(h.TileXOffset)+tileX*int(h.TileWidth), int(h.ImageXOffset))
	y0 := max(int(h.TileYOffset)+tileY*int(h.TileHeight), int(h.ImageYOffset))
	x1 := min(int(h.TileXOffset)+(tileX+1)*int(h.TileWidth), int(h.ImageWidth))
	y1 := min(int(h.TileYOffset)+(tileY+1)*int(h.TileHeight), int(h.ImageHeight))

	e.tile = &Tile{
		Index:      tileIndex,
		X0:         x0,
		Y0:         y0,
		X1:         x1,
		Y1:         y1,
		Components: make([]*TileComponent, h.NumComponents),
	}

	// Initialize components with provided data
	for c := 0; c < int(h.NumComponents); c++ {
		comp := h.ComponentInfo[c]

		cx0 := ceilDiv(x0, int(comp.SubsamplingX))
		cy0 := ceilDiv(y0, int(comp.SubsamplingY))
		cx1 := ceilDiv(x1, int(comp.SubsamplingX))
		cy1 := ceilDiv(y1, int(comp.SubsamplingY))

		tc := &TileComponent{
			Index: c,
			X0:    cx0,
			Y0:    cy0,
			X1:    cx1,
			Y1:    cy1,
			Data:  componentData[c],
		}

		// Build the same Resolution/Band/CodeBlock/Precinct geometry the
		// decoder builds, so tier-2 packetization can address coefficient
		// data in tc.Data by subband on the encode side too.
		width := cx1 - cx0
		height := cy1 - cy0
		cs := h.CodingStyle
		tc.Resolutions = BuildResolutions(width, height, int(cs.NumDecompositions),
			int(cs.CodeBlockWidthExp), int(cs.CodeBlockHeightExp))

		e.tile.Components[c] = tc
	}
}

// ApplyForwardDWT applies the forward wavelet transform.
func (e *TileEncoder) ApplyForwardDWT(tc *TileComponent) {
	h := e.header.CodingStyle
	numLevels := int(h.NumDecompositions)

	width := tc.X1 - tc.X0
	height := tc.Y1 - tc.Y0

	if h.WaveletTransform == 1 {
		// 5-3 reversible
		dwt.DecomposeMultiLevel53(tc.Data, width, height, numLevels)
	} else {
		// 9-7 irreversible
		tc.DataFloat = make([]float64, len(tc.Data))
		for i, v := range tc.Data {
			tc.DataFloat[i] = float64(v)
		}
		dwt.DecomposeMultiLevel97(tc.DataFloat, width, height, numLevels)
		// Quantize back to integers
		for i, v := range tc.DataFloat {
			if v >= 0 {
				tc.Data[i] = int32(v + 0.5)
			} else {
				tc.Data[i] = int32(v - 0.5)
			}
		}
	}
}

// EncodeCodeBlock encodes a single code-block and records its per-pass
// byte boundaries and zero bit-plane count, so the tier-2 packet header
// encoder (seedTagTrees, encodeNumPasses/encodeLength) has everything it
// needs without re-deriving it from the raw bitstream. precision and
// guardBits come from the component's sample precision and the QCD/QCC
// guard bit count; bandType supplies the Annex E.1 gain that together
// with them gives this code-block's total coded bit-plane budget.
func (e *TileEncoder) EncodeCodeBlock(cb *CodeBlock, data []int32, bandType, precision, guardBits int) {
	width := cb.X1 - cb.X0
	height := cb.Y1 - cb.Y0

	totalBitPlanes := guardBits + precision - 1 + subbandGainBits(bandType)
	cb.TotalBitPlanes = totalBitPlanes

	t1 := entropy.NewT1(width, height)
	t1.SetData(data)
	encData, cumLens, numBPS := t1.EncodeWithPasses(bandType)
	cb.Data = encData

	zeroBitPlanes := totalBitPlanes - numBPS
	if zeroBitPlanes < 0 {
		zeroBitPlanes = 0
	}
	cb.ZeroBitPlanes = zeroBitPlanes

	cb.Passes = make([]CodingPass, len(cumLens))
	prev := 0
	for i, cum := range cumLens {
		cb.Passes[i] = CodingPass{
			Type:             i % 3,
			Length:           cum - prev,
			CumulativeLength: cum,
		}
		prev = cum
	}
}

// subbandGainBits mirrors quant.SubbandGainBits's Annex E.1 Table E.1
// values locally, so this package doesn't need to import quant just for
// one constant lookup.
func subbandGainBits(bandType int) int {
	switch bandType {
	case entropy.BandHL, entropy.BandLH:
		return 1
	case entropy.BandHH:
		return 2
	default:
		return 0
	}
}

// Helper functions

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
