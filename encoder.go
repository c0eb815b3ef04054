package jpeg2000

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/rasterlab/j2kcore/internal/box"
	"github.com/rasterlab/j2kcore/internal/codestream"
	"github.com/rasterlab/j2kcore/internal/mct"
	"github.com/rasterlab/j2kcore/internal/quant"
	"github.com/rasterlab/j2kcore/internal/ratecontrol"
	"github.com/rasterlab/j2kcore/internal/tcd"
)

// defaultGuardBits is the QCD/QCC guard bit count this encoder always
// emits: Annex E.1's recommended default, widening the bit-plane budget
// derived in quant.TotalBitPlanes beyond the nominal dynamic range to
// absorb addition/subtraction overflow the DWT accumulates above the
// source sample precision.
const defaultGuardBits = 1

// codeBlockNeverIncluded is the IncludedInLayers ground truth seeded
// for a code-block that carries no data in any quality layer, so its
// tag-tree never reveals "included" for any real layer threshold.
const codeBlockNeverIncluded = tcd.NeverIncluded

// encoder handles JPEG 2000 encoding.
type encoder struct {
	w       io.Writer
	img     image.Image
	options *Options
	ctx     context.Context

	// Image parameters
	width         int
	height        int
	numComponents int
	precision     int
	signed        bool

	// Component data
	componentData [][]int32
}

// newEncoder creates a new encoder.
func newEncoder(w io.Writer, img image.Image, options *Options) *encoder {
	bounds := img.Bounds()
	return &encoder{
		w:       w,
		img:     img,
		options: options,
		width:   bounds.Dx(),
		height:  bounds.Dy(),
	}
}

// encode encodes the image.
func (e *encoder) encode() error {
	if e.ctx == nil {
		e.ctx = context.Background()
	}
	if err := e.validateOptions(); err != nil {
		return err
	}

	// Extract image data
	if err := e.extractImageData(); err != nil {
		return fmt.Errorf("extracting image data: %w", err)
	}

	// Apply preprocessing
	if err := e.preprocess(); err != nil {
		return fmt.Errorf("preprocessing: %w", err)
	}

	// Generate codestream
	codestream, err := e.generateCodestream()
	if err != nil {
		return fmt.Errorf("generating codestream: %w", err)
	}

	// Write output based on format
	switch e.options.Format {
	case FormatJP2:
		return e.writeJP2(codestream)
	case FormatJ2K:
		_, err := e.w.Write(codestream)
		return err
	default:
		return fmt.Errorf("unsupported format: %s", e.options.Format)
	}
}

// validateOptions rejects configurations that violate a standard
// constraint before any work starts, so a bad parameter surfaces as a
// typed error rather than a malformed codestream.
func (e *encoder) validateOptions() error {
	o := e.options
	invalid := func(format string, args ...any) error {
		return &Error{Op: "encode", Kind: KindInvalidParameter, Err: fmt.Errorf(format, args...)}
	}
	if o.HighThroughput {
		return &Error{Op: "encode", Kind: KindUnsupportedFeature,
			Err: errors.New("high-throughput (Part 15) block coding is not built into this codec")}
	}
	if o.CodeBlockStyle != 0 {
		return &Error{Op: "encode", Kind: KindUnsupportedFeature,
			Err: fmt.Errorf("code-block style 0x%02X: only the default coding mode is built", o.CodeBlockStyle)}
	}
	if o.TileSize.X < 0 || o.TileSize.Y < 0 {
		return invalid("tile size %dx%d must be positive", o.TileSize.X, o.TileSize.Y)
	}
	if o.NumResolutions < 0 || o.NumResolutions > 33 {
		return invalid("resolution count %d outside 1-33", o.NumResolutions)
	}
	if o.NumLayers < 0 || o.NumLayers > 65535 {
		return invalid("layer count %d outside 1-65535", o.NumLayers)
	}
	// Code-block dimensions are carried as log2 exponents; each side
	// must stay in [2, 10] and the area within 4096 samples.
	cbW := o.CodeBlockSize.X
	cbH := o.CodeBlockSize.Y
	if cbW == 0 {
		cbW = 6
	}
	if cbH == 0 {
		cbH = 6
	}
	if cbW < 2 || cbW > 10 || cbH < 2 || cbH > 10 || cbW+cbH > 12 {
		return invalid("code-block size 2^%dx2^%d outside the 4x4..1024x1024, area<=4096 envelope", cbW, cbH)
	}
	if o.Precision < 0 || o.Precision > 16 {
		return invalid("precision %d outside 1-16", o.Precision)
	}
	return nil
}

// extractImageData extracts pixel data from the source image.
func (e *encoder) extractImageData() error {
	bounds := e.img.Bounds()

	// Determine image properties based on type
	switch img := e.img.(type) {
	case *image.Gray:
		e.numComponents = 1
		e.precision = 8
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.GrayAt(x, y).Y)
			}
		}

	case *image.Gray16:
		e.numComponents = 1
		e.precision = 16
		e.componentData = make([][]int32, 1)
		e.componentData[0] = make([]int32, e.width*e.height)
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				e.componentData[0][idx] = int32(img.Gray16At(x, y).Y)
			}
		}

	case *image.RGBA:
		e.numComponents = 3 // We'll ignore alpha for now
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.RGBA64:
		e.numComponents = 3
		e.precision = 16
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.RGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
			}
		}

	case *image.NRGBA:
		e.numComponents = 4
		e.precision = 8
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBAAt(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	case *image.NRGBA64:
		e.numComponents = 4
		e.precision = 16
		e.componentData = make([][]int32, 4)
		for c := 0; c < 4; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				c := img.NRGBA64At(x, y)
				e.componentData[0][idx] = int32(c.R)
				e.componentData[1][idx] = int32(c.G)
				e.componentData[2][idx] = int32(c.B)
				e.componentData[3][idx] = int32(c.A)
			}
		}

	default:
		// Generic fallback - convert to RGBA
		e.numComponents = 3
		e.precision = 8
		e.componentData = make([][]int32, 3)
		for c := 0; c < 3; c++ {
			e.componentData[c] = make([]int32, e.width*e.height)
		}
		for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
			for x := bounds.Min.X; x < bounds.Max.X; x++ {
				idx := (y-bounds.Min.Y)*e.width + (x - bounds.Min.X)
				r, g, b, _ := e.img.At(x, y).RGBA()
				e.componentData[0][idx] = int32(r >> 8)
				e.componentData[1][idx] = int32(g >> 8)
				e.componentData[2][idx] = int32(b >> 8)
			}
		}
	}

	// Apply precision override if specified
	if e.options.Precision > 0 && e.options.Precision <= 16 && e.options.Precision != e.precision {
		targetPrecision := e.options.Precision
		srcMax := int32((1 << e.precision) - 1)
		dstMax := int32((1 << targetPrecision) - 1)

		for c := 0; c < e.numComponents; c++ {
			for i := range e.componentData[c] {
				// Scale from source precision to target precision
				e.componentData[c][i] = e.componentData[c][i] * dstMax / srcMax
			}
		}
		e.precision = targetPrecision
	}

	return nil
}

// preprocess applies preprocessing transforms.
func (e *encoder) preprocess() error {
	// Convert the source image's RGB samples into whatever Annex M
	// colorspace Options.ColorSpace declares before anything else touches
	// them: decode runs the matching inverse (colorspace.go) right before
	// handing samples to the caller, so the codestream has to actually
	// carry that space's samples, not RGB wearing a different label.
	if conv := getForwardColorConversion(e.options.ColorSpace); conv != nil {
		conv(e.componentData, e.precision)
	}

	// Apply DC level shift
	for c := 0; c < e.numComponents; c++ {
		mct.DCLevelShiftForward(e.componentData[c], e.precision)
	}

	// Apply MCT if we have 3+ components
	if e.numComponents >= 3 {
		if e.options.Lossless {
			mct.ForwardRCT(e.componentData[0], e.componentData[1], e.componentData[2])
		} else {
			// Convert to float for ICT
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(e.componentData[c]))
				for i, v := range e.componentData[c] {
					compFloat[c][i] = float64(v)
				}
			}
			mct.ForwardICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				for i, v := range compFloat[c] {
					if v >= 0 {
						e.componentData[c][i] = int32(v + 0.5)
					} else {
						e.componentData[c][i] = int32(v - 0.5)
					}
				}
			}
		}
	}

	// The DWT and quantization steps move into encodeTile: both operate
	// on tile-component geometry (tcd.BuildResolutions) so a code-block's
	// subband offset is available when tier-1 extracts its region, which
	// a whole-image pass taken here could not provide.
	return nil
}

// lossyStepSize derives this encoder's single global quantization step
// from the requested quality or compression ratio. JPEG 2000 normally
// lets the QCD marker carry a different step per subband (scalar
// expounded); this encoder instead picks one step for the whole tile
// (scalar derived, Annex A.6.4) and lets every subband share it, which
// keeps the forward quantizer and the QCD marker trivially consistent
// at the cost of the subband-weighted rate allocation a full expounded
// encoder would give.
func (e *encoder) lossyStepSize() float64 {
	quality := e.options.Quality
	if quality <= 0 {
		if e.options.CompressionRatio > 0 {
			// Higher ratio -> coarser step. 1:1 maps to quality 100.
			quality = int(100 / e.options.CompressionRatio)
		}
		if quality <= 0 {
			quality = 100
		}
	}
	if quality > 100 {
		quality = 100
	}
	return math.Pow(2, float64(100-quality)/10.0)
}

// buildHeader constructs the codestream.Header this encoder's tile
// pipeline (tcd.TileEncoder) derives its geometry and bit-plane budget
// from, mirroring the values generateSIZ/generateCOD/generateQCD write
// to the wire so the decoder's own header-derived TileDecoder computes
// the identical geometry.
func (e *encoder) buildHeader() *codestream.Header {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}
	cbWidth := e.options.CodeBlockSize.X
	cbHeight := e.options.CodeBlockSize.Y
	if cbWidth <= 0 {
		cbWidth = 6
	}
	if cbHeight <= 0 {
		cbHeight = 6
	}
	wavelet := uint8(0)
	if e.options.Lossless {
		wavelet = 1
	}
	numLayers := e.options.NumLayers
	if numLayers < 1 {
		numLayers = 1
	}
	if numLayers > 65535 {
		numLayers = 65535
	}

	tileWidth := e.width
	tileHeight := e.height
	if e.options.TileSize.X > 0 {
		tileWidth = e.options.TileSize.X
	}
	if e.options.TileSize.Y > 0 {
		tileHeight = e.options.TileSize.Y
	}

	h := &codestream.Header{
		ImageWidth:    uint32(e.width),
		ImageHeight:   uint32(e.height),
		TileWidth:     uint32(tileWidth),
		TileHeight:    uint32(tileHeight),
		NumComponents: uint16(e.numComponents),
		ComponentInfo: make([]codestream.ComponentInfo, e.numComponents),
		CodingStyle: codestream.CodingStyleDefault{
			ProgressionOrder:   uint8(e.options.ProgressionOrder),
			NumLayers:          uint16(numLayers),
			NumDecompositions:  uint8(numRes - 1),
			CodeBlockWidthExp:  uint8(cbWidth - 2),
			CodeBlockHeightExp: uint8(cbHeight - 2),
			WaveletTransform:   wavelet,
		},
		Quantization: codestream.QuantizationDefault{
			NumGuardBits: uint8(defaultGuardBits),
		},
	}
	if e.numComponents >= 3 {
		h.CodingStyle.MultipleComponentXf = 1
	}
	if e.options.EnableSOP {
		h.CodingStyle.CodingStyle |= codestream.CodingStyleSOP
	}
	if e.options.EnableEPH {
		h.CodingStyle.CodingStyle |= codestream.CodingStyleEPH
	}

	for c := 0; c < e.numComponents; c++ {
		ssiz := uint8(e.precision - 1)
		if e.signed {
			ssiz |= 0x80
		}
		h.ComponentInfo[c] = codestream.ComponentInfo{BitDepth: ssiz, SubsamplingX: 1, SubsamplingY: 1}
	}

	if e.options.Lossless {
		h.Quantization.QuantizationStyle = codestream.QuantizationNone
	} else {
		h.Quantization.QuantizationStyle = codestream.QuantizationScalarDerived
		h.Quantization.StepSizes = []codestream.StepSize{quant.ExpMantissaForStep(e.lossyStepSize(), e.precision)}
	}

	h.CalculateDerivedValues()
	return h
}

// generateCodestream generates the JPEG 2000 codestream.
func (e *encoder) generateCodestream() ([]byte, error) {
	var buf []byte

	// SOC marker
	buf = append(buf, 0xFF, 0x4F)

	// SIZ marker
	siz := e.generateSIZ()
	buf = append(buf, siz...)

	// COD marker
	cod := e.generateCOD()
	buf = append(buf, cod...)

	// QCD marker
	qcd := e.generateQCD()
	buf = append(buf, qcd...)

	// Comment marker (optional)
	if e.options.Comment != "" {
		com := e.generateCOM()
		buf = append(buf, com...)
	}

	// Generate tile data
	tileData, err := e.generateTiles()
	if err != nil {
		return nil, err
	}
	buf = append(buf, tileData...)

	// EOC marker
	buf = append(buf, 0xFF, 0xD9)

	return buf, nil
}

// generateSIZ generates the SIZ marker segment.
func (e *encoder) generateSIZ() []byte {
	numComp := e.numComponents

	// Length = 38 + 3*numComponents
	length := 38 + 3*numComp

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.SIZ))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	// Rsiz (profile)
	binary.BigEndian.PutUint16(buf[4:6], uint16(e.options.Profile))

	// Image dimensions
	binary.BigEndian.PutUint32(buf[6:10], uint32(e.width))
	binary.BigEndian.PutUint32(buf[10:14], uint32(e.height))

	// Image offset (0, 0)
	binary.BigEndian.PutUint32(buf[14:18], 0)
	binary.BigEndian.PutUint32(buf[18:22], 0)

	// Tile size
	tileWidth := e.width
	tileHeight := e.height
	if e.options.TileSize.X > 0 {
		tileWidth = e.options.TileSize.X
	}
	if e.options.TileSize.Y > 0 {
		tileHeight = e.options.TileSize.Y
	}
	binary.BigEndian.PutUint32(buf[22:26], uint32(tileWidth))
	binary.BigEndian.PutUint32(buf[26:30], uint32(tileHeight))

	// Tile offset
	binary.BigEndian.PutUint32(buf[30:34], 0)
	binary.BigEndian.PutUint32(buf[34:38], 0)

	// Number of components
	binary.BigEndian.PutUint16(buf[38:40], uint16(numComp))

	// Component info
	for c := 0; c < numComp; c++ {
		offset := 40 + c*3
		// Ssiz: bit depth (precision - 1, with sign bit)
		ssiz := uint8(e.precision - 1)
		if e.signed {
			ssiz |= 0x80
		}
		buf[offset] = ssiz
		// XRsiz, YRsiz: subsampling
		buf[offset+1] = 1
		buf[offset+2] = 1
	}

	return buf
}

// generateCOD generates the COD marker segment, reading progression
// order, layer count and MCT flag off the same header buildHeader
// derives for the tile pipeline so the marker never drifts from what
// tier-2 actually produced (in particular, the quality layer count the
// packet writer emits for every tile).
func (e *encoder) generateCOD() []byte {
	cs := e.buildHeader().CodingStyle

	// Base length = 12 (without precinct sizes)
	length := 12

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.COD))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))

	// Scod: coding style
	buf[4] = cs.CodingStyle

	// SGcod
	buf[5] = cs.ProgressionOrder
	binary.BigEndian.PutUint16(buf[6:8], cs.NumLayers)
	buf[8] = cs.MultipleComponentXf

	// SPcod
	buf[9] = cs.NumDecompositions
	buf[10] = cs.CodeBlockWidthExp
	buf[11] = cs.CodeBlockHeightExp

	buf[12] = cs.CodeBlockStyle

	buf[13] = cs.WaveletTransform

	return buf
}

// generateQCD generates the QCD marker segment, built from the same
// codestream.QuantizationDefault buildHeader derives for the tile
// pipeline so the marker on the wire always matches the step size the
// encoder actually quantized with.
func (e *encoder) generateQCD() []byte {
	numRes := e.options.NumResolutions
	if numRes <= 0 {
		numRes = 6
	}
	numBands := 3*(numRes-1) + 1
	q := e.buildHeader().Quantization

	var buf []byte
	if e.options.Lossless {
		length := 3 + numBands
		buf = make([]byte, 2+length)
		binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.QCD))
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))

		buf[4] = q.QuantizationStyle | q.NumGuardBits<<5

		// SPqcd: one exponent per subband. Exponent-only encoding
		// (Annex A.6.4) carries the reversible path's dynamic range per
		// subband; the reconstruction step stays exactly 1 regardless.
		exp := quant.ExpOnlyForBand(e.precision)
		for i := 0; i < numBands; i++ {
			buf[5+i] = exp.Exponent << 3
		}
	} else {
		length := 5
		buf = make([]byte, 2+length)
		binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.QCD))
		binary.BigEndian.PutUint16(buf[2:4], uint16(length))

		buf[4] = q.QuantizationStyle | q.NumGuardBits<<5

		step := q.StepSizes[0]
		binary.BigEndian.PutUint16(buf[5:7], uint16(step.Exponent)<<11|step.Mantissa)
	}

	return buf
}

// generateCOM generates the COM marker segment.
func (e *encoder) generateCOM() []byte {
	comment, err := codestream.EncodeLatin1Comment(e.options.Comment)
	if err != nil {
		// Characters outside Latin-1 can't round-trip through Rcom=1;
		// fall back to the raw bytes rather than drop the comment.
		comment = []byte(e.options.Comment)
	}
	length := 4 + len(comment)

	buf := make([]byte, 2+length)
	binary.BigEndian.PutUint16(buf[0:2], uint16(codestream.COM))
	binary.BigEndian.PutUint16(buf[2:4], uint16(length))
	binary.BigEndian.PutUint16(buf[4:6], codestream.CommentLatin1)
	copy(buf[6:], comment)

	return buf
}

// generateTiles encodes every tile of the grid the SIZ marker declares,
// in increasing tile index, one SOT..SOD tile-part each. Cancellation
// is honored between tiles.
func (e *encoder) generateTiles() ([]byte, error) {
	header := e.buildHeader()
	numTiles := int(header.NumTilesX * header.NumTilesY)

	var buf []byte
	for tileIdx := 0; tileIdx < numTiles; tileIdx++ {
		if err := e.ctx.Err(); err != nil {
			return nil, &Error{Op: fmt.Sprintf("encoding tile %d", tileIdx), Kind: KindCancelled, Err: err}
		}
		tileData, err := e.encodeTile(tileIdx)
		if err != nil {
			return nil, err
		}
		buf = append(buf, tileData...)
	}

	return buf, nil
}

// encodeTile runs one tile through the full tcd pipeline: forward DWT,
// per-subband quantization, tier-1 code-block coding (parallel across
// components, bounded by errgroup), an optional PCRD-opt rate-distortion
// truncation pass when more than one layer is declared or a lossy
// compression ratio was requested, and tier-2 packet assembly.
func (e *encoder) encodeTile(tileIdx int) ([]byte, error) {
	header := e.buildHeader()

	tileEncoder := tcd.NewTileEncoder(header)
	tileEncoder.InitTile(tileIdx, e.extractTileComponentData(header, tileIdx))
	tile := tileEncoder.Tile()

	guardBits := int(header.Quantization.NumGuardBits)
	step := 1.0
	if !e.options.Lossless {
		step = e.lossyStepSize()
	}

	codeBlocksPerComponent := make([][]*tcd.CodeBlock, len(tile.Components))

	g, gctx := errgroup.WithContext(e.ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for ci, tc := range tile.Components {
		ci, tc := ci, tc
		g.Go(func() error {
			tileEncoder.ApplyForwardDWT(tc)
			cbs, err := e.encodeComponentCodeBlocks(gctx, tileEncoder, tc, step, guardBits)
			if err != nil {
				return err
			}
			codeBlocksPerComponent[ci] = cbs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if e.ctx.Err() != nil {
			return nil, &Error{Op: fmt.Sprintf("encoding tile %d", tileIdx), Kind: KindCancelled, Err: e.ctx.Err()}
		}
		return nil, err
	}

	var allCodeBlocks []*tcd.CodeBlock
	for _, cbs := range codeBlocksPerComponent {
		allCodeBlocks = append(allCodeBlocks, cbs...)
	}

	numLayers := int(header.CodingStyle.NumLayers)
	if numLayers < 1 {
		numLayers = 1
	}
	if numLayers > 1 || (!e.options.Lossless && e.options.CompressionRatio > 0) {
		e.assignQualityLayers(tile, allCodeBlocks, numLayers)
	}

	body, err := e.packetizeTile(header, tile)
	if err != nil {
		return nil, err
	}
	return e.createTileHeader(tileIdx, body), nil
}

// extractTileComponentData copies each component's samples for one
// tile of the grid into a tile-local plane, sized and indexed the way
// tcd's InitTile expects (origin at the tile-component's own (0,0)).
// The source planes are shared read-only across tile encodes; only the
// per-tile copies are mutated by the DWT.
func (e *encoder) extractTileComponentData(header *codestream.Header, tileIdx int) [][]int32 {
	tileX := tileIdx % int(header.NumTilesX)
	tileY := tileIdx / int(header.NumTilesX)

	x0 := tileX * int(header.TileWidth)
	y0 := tileY * int(header.TileHeight)
	x1 := min(x0+int(header.TileWidth), e.width)
	y1 := min(y0+int(header.TileHeight), e.height)

	out := make([][]int32, e.numComponents)
	w := x1 - x0
	h := y1 - y0
	for c := 0; c < e.numComponents; c++ {
		plane := make([]int32, w*h)
		for y := 0; y < h; y++ {
			srcOff := (y0+y)*e.width + x0
			copy(plane[y*w:(y+1)*w], e.componentData[c][srcOff:srcOff+w])
		}
		out[c] = plane
	}
	return out
}

// encodeComponentCodeBlocks walks a tile-component's DWT-transformed
// data band by band, quantizing and tier-1 encoding every code-block in
// place. CodeBlock.X0/Y0/X1/Y1 (from tcd.BuildResolutions) are already
// absolute offsets into tc.Data's fixed tile-stride Mallat layout, so a
// code-block's region is read directly with no further subband offset
// math. Cancellation is honored between code-blocks.
func (e *encoder) encodeComponentCodeBlocks(ctx context.Context, te *tcd.TileEncoder, tc *tcd.TileComponent, step float64, guardBits int) ([]*tcd.CodeBlock, error) {
	stride := tc.X1 - tc.X0
	var codeBlocks []*tcd.CodeBlock

	for _, res := range tc.Resolutions {
		for _, band := range res.Bands {
			for _, cb := range band.CodeBlocks {
				if err := ctx.Err(); err != nil {
					return nil, err
				}
				w := cb.X1 - cb.X0
				h := cb.Y1 - cb.Y0
				if w <= 0 || h <= 0 {
					cb.IncludedInLayers = codeBlockNeverIncluded
					codeBlocks = append(codeBlocks, cb)
					continue
				}

				region := make([]int32, w*h)
				for y := 0; y < h; y++ {
					srcOff := (cb.Y0+y)*stride + cb.X0
					copy(region[y*w:(y+1)*w], tc.Data[srcOff:srcOff+w])
				}

				if !e.options.Lossless {
					region = quantizeInt32(region, step)
				}

				te.EncodeCodeBlock(cb, region, band.Type, e.precision, guardBits)
				if len(cb.Data) == 0 {
					cb.IncludedInLayers = codeBlockNeverIncluded
				} else {
					cb.IncludedInLayers = 0
				}
				codeBlocks = append(codeBlocks, cb)
			}
		}
	}

	return codeBlocks, nil
}

// quantizeInt32 applies the deadzone quantizer to integer DWT output
// (the 9-7 transform's float coefficients, already rounded to int32 by
// ApplyForwardDWT) by round-tripping through quant.DeadzoneQuantize's
// float64 contract.
func quantizeInt32(coeffs []int32, stepSize float64) []int32 {
	asFloat := make([]float64, len(coeffs))
	for i, v := range coeffs {
		asFloat[i] = float64(v)
	}
	return quant.DeadzoneQuantize(asFloat, stepSize)
}

// assignQualityLayers runs PCRD-opt over every code-block in the tile
// and distributes the result across numLayers cumulative quality
// layers: ratecontrol.BuildLayers picks, per layer, each code-block's
// truncation point, and ratecontrol.AssignLayerPasses records that
// onto CodeBlock.LayerPasses, which t2.go's packet writer slices
// incrementally (only the bytes a layer newly contributes, never a
// whole code-block's Data replayed again). The final layer's budget is
// the requested compression ratio's byte target when one was given
// (lossy rate control), otherwise every pass the tile actually encoded
// (lossless or quality-only encodes still benefit from a progressive
// multi-layer codestream; the last layer is always exact). Earlier
// layers split that budget by layerByteBudgets.
func (e *encoder) assignQualityLayers(tile *tcd.Tile, codeBlocks []*tcd.CodeBlock, numLayers int) {
	totalBytes := 0
	for _, cb := range codeBlocks {
		if n := len(cb.Passes); n > 0 {
			totalBytes += cb.Passes[n-1].CumulativeLength
		}
	}
	if totalBytes == 0 {
		return
	}

	finalBudget := totalBytes
	if !e.options.Lossless && e.options.CompressionRatio > 0 {
		uncompressedBytes := 0
		for _, tc := range tile.Components {
			uncompressedBytes += (tc.X1 - tc.X0) * (tc.Y1 - tc.Y0) * ((e.precision + 7) / 8)
		}
		if budget := int(float64(uncompressedBytes) / e.options.CompressionRatio); budget < finalBudget {
			finalBudget = budget
		}
	}
	if ratecontrol.TargetUnreachable(finalBudget) {
		// Degrade rather than fail: every code-block gets zero passes in
		// every layer, producing an empty (but valid) packet stream.
		for _, cb := range codeBlocks {
			cb.LayerPasses = make([]int, numLayers)
			cb.IncludedInLayers = codeBlockNeverIncluded
		}
		e.options.Logger.Warn("rate budget unreachable: emitting empty layers")
		e.options.Warnings = append(e.options.Warnings, Warning{
			Kind:    KindRateBudgetExceeded,
			Message: "rate target below the smallest possible codestream; all layers emitted empty",
		})
		return
	}

	budgets := layerByteBudgets(finalBudget, numLayers)
	layers := ratecontrol.BuildLayers(codeBlocks, budgets, e.options.Logger)
	ratecontrol.AssignLayerPasses(codeBlocks, layers)
}

// layerByteBudgets splits a final cumulative byte target across
// numLayers quality layers, each roughly double the one before it —
// the common progressive allocation (Kakadu and OpenJPEG's --rates
// both default to a geometric spread) that gives early layers a cheap
// preview while the last layer still lands exactly on the target.
func layerByteBudgets(finalBudget, numLayers int) []int {
	if numLayers <= 1 {
		return []int{finalBudget}
	}
	weightSum := 0.0
	for i := 0; i < numLayers; i++ {
		weightSum += math.Pow(2, float64(i))
	}
	budgets := make([]int, numLayers)
	allocated := 0
	for i := 0; i < numLayers-1; i++ {
		b := int(float64(finalBudget) * math.Pow(2, float64(i)) / weightSum)
		budgets[i] = b
		allocated += b
	}
	budgets[numLayers-1] = finalBudget - allocated
	return budgets
}

// packetizeTile assembles every resolution/component/precinct/layer
// packet for a tile in the header's declared progression order. Every
// resolution carries exactly one precinct (tcd.buildPrecinct's
// documented single-precinct-per-resolution simplification), so the
// precinct-count table handed to the iterator is uniformly 1.
func (e *encoder) packetizeTile(header *codestream.Header, tile *tcd.Tile) ([]byte, error) {
	numComp := len(tile.Components)
	numRes := len(tile.Components[0].Resolutions)
	numLayers := int(header.CodingStyle.NumLayers)
	if numLayers <= 0 {
		numLayers = 1
	}

	precinctCounts := make([][][]int, numComp)
	for c := 0; c < numComp; c++ {
		precinctCounts[c] = make([][]int, numRes)
		for r := 0; r < numRes; r++ {
			precinctCounts[c][r] = []int{1}
		}
	}

	order := codestream.ProgressionOrder(header.CodingStyle.ProgressionOrder)
	iter := tcd.NewPacketIterator(numComp, numRes, numLayers, precinctCounts, order)

	var body bytes.Buffer
	packetEncoder := tcd.NewPacketEncoder(&body)
	for {
		pkt, ok := iter.Next()
		if !ok {
			break
		}
		res := tile.Components[pkt.Component].Resolutions[pkt.Resolution]
		precinct := res.Precincts[pkt.Precinct]
		if err := packetEncoder.EncodePacket(precinct, pkt.Layer, e.options.EnableSOP, e.options.EnableEPH); err != nil {
			return nil, fmt.Errorf("encoding packet (l=%d r=%d c=%d p=%d): %w",
				pkt.Layer, pkt.Resolution, pkt.Component, pkt.Precinct, err)
		}
	}

	return body.Bytes(), nil
}

// createTileHeader creates the tile-part header.
func (e *encoder) createTileHeader(tileIdx int, tileData []byte) []byte {
	sotLength := 10
	tilePartLength := uint32(14 + len(tileData))

	header := make([]byte, 14)
	binary.BigEndian.PutUint16(header[0:2], uint16(codestream.SOT))
	binary.BigEndian.PutUint16(header[2:4], uint16(sotLength))
	binary.BigEndian.PutUint16(header[4:6], uint16(tileIdx))
	binary.BigEndian.PutUint32(header[6:10], tilePartLength)
	header[10] = 0 // Tile-part index
	header[11] = 1 // Number of tile-parts
	binary.BigEndian.PutUint16(header[12:14], uint16(codestream.SOD))

	return append(header, tileData...)
}

// writeJP2 writes a JP2 file.
func (e *encoder) writeJP2(codestream []byte) error {
	boxWriter := box.NewWriter(e.w)

	// Write signature
	if err := boxWriter.WriteSignature(); err != nil {
		return err
	}

	// Write file type box
	ftypBox := box.CreateFileTypeBox()
	if err := boxWriter.WriteBox(ftypBox); err != nil {
		return err
	}

	// Determine colorspace from options or default based on components
	var colorspace uint32
	switch e.options.ColorSpace {
	case ColorSpaceBilevel:
		colorspace = box.CSBilevel1
	case ColorSpaceGray:
		colorspace = box.CSGray
	case ColorSpaceSRGB:
		colorspace = box.CSSRGB
	case ColorSpaceSYCC:
		colorspace = box.CSYCbCr1
	case ColorSpaceYCbCr2:
		colorspace = box.CSYCbCr2
	case ColorSpaceYCbCr3:
		colorspace = box.CSYCbCr3
	case ColorSpacePhotoYCC:
		colorspace = box.CSPhotoYCC
	case ColorSpaceCMY:
		colorspace = box.CSCMY
	case ColorSpaceCMYK:
		colorspace = box.CSCMYK
	case ColorSpaceYCCK:
		colorspace = box.CSYCCK
	case ColorSpaceCIELab:
		colorspace = box.CSCIELab
	case ColorSpaceCIEJab:
		colorspace = box.CSCIEJab
	case ColorSpaceESRGB:
		colorspace = box.CSeSRGB
	case ColorSpaceROMMRGB:
		colorspace = box.CSROMMRGB
	case ColorSpaceYPbPr60:
		colorspace = box.CSYPbPr1125
	case ColorSpaceYPbPr50:
		colorspace = box.CSYPbPr1250
	case ColorSpaceEYCC:
		colorspace = box.CSeSYCC
	default:
		// Default based on number of components
		if e.numComponents == 1 {
			colorspace = box.CSGray
		} else {
			// 3 or 4 components default to sRGB (4th component is alpha)
			colorspace = box.CSSRGB
		}
	}

	// Write JP2 header
	jp2hBox := box.CreateJP2Header(
		uint32(e.width),
		uint32(e.height),
		uint16(e.numComponents),
		uint8(e.precision-1),
		colorspace,
	)
	if err := boxWriter.WriteBox(jp2hBox); err != nil {
		return err
	}

	// Write codestream
	jp2cBox := box.CreateCodestreamBox(codestream)
	if err := boxWriter.WriteBox(jp2cBox); err != nil {
		return err
	}

	return nil
}

// Ensure encoder implements required interfaces
var _ color.Model = (*encoder)(nil).colorModel()

func (e *encoder) colorModel() color.Model {
	return nil
}
