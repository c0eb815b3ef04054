package jpeg2000

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"

	"github.com/rasterlab/j2kcore/internal/box"
	"github.com/rasterlab/j2kcore/internal/codestream"
	"github.com/rasterlab/j2kcore/internal/mct"
	"github.com/rasterlab/j2kcore/internal/quant"
	"github.com/rasterlab/j2kcore/internal/tcd"
)

// decoder handles JPEG 2000 decoding.
type decoder struct {
	r          *bufio.Reader
	ctx        context.Context
	format     Format
	header     *codestream.Header
	jp2Header  *box.JP2Header
	codestream []byte

	// parser stays alive past ReadHeader so readTileParts can keep
	// driving its tile-part loop (SOT/tile-part-header/data/marker)
	// with the same Pos()-based Psot bookkeeping the main header read
	// used.
	parser *codestream.Parser

	// tileData holds each tile's concatenated tile-part bodies (packed
	// packet headers + code-block bitstreams), keyed by tile index.
	// Concatenating here lets decodeTile treat a tile with several
	// tile-parts the same as one with a single tile-part.
	tileData map[int][]byte
}

// newDecoder creates a new decoder.
func newDecoder(r io.Reader) *decoder {
	return &decoder{
		r: bufio.NewReader(r),
	}
}

// decode decodes the image.
func (d *decoder) decode(cfg *Config) (image.Image, error) {
	if d.ctx == nil {
		d.ctx = context.Background()
	}

	// Detect format and read headers
	if err := d.readFormat(); err != nil {
		return nil, fmt.Errorf("reading format: %w", err)
	}

	if cfg != nil {
		cfg.Warnings = nil
	}

	// Parse codestream header
	if err := d.parseCodestream(cfg); err != nil {
		return nil, fmt.Errorf("parsing codestream: %w", err)
	}

	if cfg != nil {
		for _, marker := range d.header.UnknownMarkers {
			cfg.Warnings = append(cfg.Warnings, Warning{
				Kind:    KindMalformedMarker,
				Message: fmt.Sprintf("unknown marker 0x%04X skipped", marker),
			})
		}
	}

	// Decode tiles
	img, err := d.decodeTiles(cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding tiles: %w", err)
	}

	return img, nil
}

// readMetadata reads only the metadata without decoding.
func (d *decoder) readMetadata() (*Metadata, error) {
	if err := d.readFormat(); err != nil {
		return nil, err
	}

	if err := d.parseCodestream(nil); err != nil {
		return nil, err
	}

	h := d.header
	m := &Metadata{
		Format:           d.format,
		Width:            int(h.ImageWidth - h.ImageXOffset),
		Height:           int(h.ImageHeight - h.ImageYOffset),
		NumComponents:    int(h.NumComponents),
		BitsPerComponent: make([]int, h.NumComponents),
		Signed:           make([]bool, h.NumComponents),
		Profile:          Profile(h.Profile),
		NumResolutions:   int(h.CodingStyle.NumDecompositions) + 1,
		NumQualityLayers: int(h.CodingStyle.NumLayers),
		TileWidth:        int(h.TileWidth),
		TileHeight:       int(h.TileHeight),
		NumTilesX:        int(h.NumTilesX),
		NumTilesY:        int(h.NumTilesY),
		Comment:          h.Comment,
		ColorSpace:       ColorSpaceUnspecified, // Default for J2K without JP2 container
	}

	for i, c := range h.ComponentInfo {
		m.BitsPerComponent[i] = c.Precision()
		m.Signed[i] = c.IsSigned()
	}

	// Get color space from JP2 header if available
	if d.jp2Header != nil && d.jp2Header.ColorSpec != nil {
		switch d.jp2Header.ColorSpec.EnumeratedColorspace {
		case box.CSBilevel1, box.CSBilevel2:
			m.ColorSpace = ColorSpaceBilevel
		case box.CSGray:
			m.ColorSpace = ColorSpaceGray
		case box.CSSRGB:
			m.ColorSpace = ColorSpaceSRGB
		case box.CSYCbCr1, box.CSsYCC:
			m.ColorSpace = ColorSpaceSYCC
		case box.CSYCbCr2:
			m.ColorSpace = ColorSpaceYCbCr2
		case box.CSYCbCr3:
			m.ColorSpace = ColorSpaceYCbCr3
		case box.CSPhotoYCC:
			m.ColorSpace = ColorSpacePhotoYCC
		case box.CSCMY:
			m.ColorSpace = ColorSpaceCMY
		case box.CSCMYK:
			m.ColorSpace = ColorSpaceCMYK
		case box.CSYCCK:
			m.ColorSpace = ColorSpaceYCCK
		case box.CSCIELab:
			m.ColorSpace = ColorSpaceCIELab
		case box.CSCIEJab:
			m.ColorSpace = ColorSpaceCIEJab
		case box.CSeSRGB:
			m.ColorSpace = ColorSpaceESRGB
		case box.CSROMMRGB:
			m.ColorSpace = ColorSpaceROMMRGB
		case box.CSYPbPr1125:
			m.ColorSpace = ColorSpaceYPbPr60
		case box.CSYPbPr1250:
			m.ColorSpace = ColorSpaceYPbPr50
		case box.CSeSYCC:
			m.ColorSpace = ColorSpaceEYCC
		default:
			// Unknown enumcs value - not supported
			m.ColorSpace = ColorSpaceUnknown
		}
		m.ICCProfile = d.jp2Header.ColorSpec.ICCProfile
	}

	if d.jp2Header != nil && d.jp2Header.ChannelDef != nil {
		defs := d.jp2Header.ChannelDef.Definitions
		m.ChannelDefinitions = make([]ChannelDefinition, len(defs))
		for i, cd := range defs {
			typ := ChannelColor
			switch cd.Type {
			case 1:
				typ = ChannelOpacity
			case 2:
				typ = ChannelPremultipliedOpacity
			}
			m.ChannelDefinitions[i] = ChannelDefinition{
				Channel:     int(cd.Channel),
				Type:        typ,
				Association: int(cd.Association),
			}
		}
	}

	if d.jp2Header != nil && d.jp2Header.Resolution != nil {
		res := d.jp2Header.Resolution
		m.CaptureResolutionX = int(res.CaptureResX)
		m.CaptureResolutionY = int(res.CaptureResY)
		m.DisplayResolutionX = int(res.DisplayResX)
		m.DisplayResolutionY = int(res.DisplayResY)
	}

	return m, nil
}

// getColorSpace returns the ColorSpace from the JP2 header.
func (d *decoder) getColorSpace() ColorSpace {
	if d.jp2Header == nil || d.jp2Header.ColorSpec == nil {
		return ColorSpaceUnspecified
	}

	switch d.jp2Header.ColorSpec.EnumeratedColorspace {
	case box.CSBilevel1, box.CSBilevel2:
		return ColorSpaceBilevel
	case box.CSGray:
		return ColorSpaceGray
	case box.CSSRGB:
		return ColorSpaceSRGB
	case box.CSYCbCr1, box.CSsYCC:
		return ColorSpaceSYCC
	case box.CSYCbCr2:
		return ColorSpaceYCbCr2
	case box.CSYCbCr3:
		return ColorSpaceYCbCr3
	case box.CSPhotoYCC:
		return ColorSpacePhotoYCC
	case box.CSCMY:
		return ColorSpaceCMY
	case box.CSCMYK:
		return ColorSpaceCMYK
	case box.CSYCCK:
		return ColorSpaceYCCK
	case box.CSCIELab:
		return ColorSpaceCIELab
	case box.CSCIEJab:
		return ColorSpaceCIEJab
	case box.CSeSRGB:
		return ColorSpaceESRGB
	case box.CSROMMRGB:
		return ColorSpaceROMMRGB
	case box.CSYPbPr1125:
		return ColorSpaceYPbPr60
	case box.CSYPbPr1250:
		return ColorSpaceYPbPr50
	case box.CSeSYCC:
		return ColorSpaceEYCC
	default:
		return ColorSpaceUnknown
	}
}

// readFormat detects the file format and reads file-level structures.
func (d *decoder) readFormat() error {
	// Peek at first bytes to detect format
	magic, err := d.r.Peek(12)
	if err != nil {
		return err
	}

	// Check for JP2 signature
	if len(magic) >= 12 &&
		magic[0] == 0x00 && magic[1] == 0x00 && magic[2] == 0x00 && magic[3] == 0x0C &&
		magic[4] == 'j' && magic[5] == 'P' && magic[6] == ' ' && magic[7] == ' ' {
		d.format = FormatJP2
		return d.readJP2()
	}

	// Check for J2K codestream (SOC marker)
	if len(magic) >= 2 && magic[0] == 0xFF && magic[1] == 0x4F {
		d.format = FormatJ2K
		return d.readJ2K()
	}

	return fmt.Errorf("unrecognized file format")
}

// readJP2 reads a JP2 file.
func (d *decoder) readJP2() error {
	boxReader := box.NewReader(d.r)

	for {
		b, err := boxReader.ReadBox()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch b.Type {
		case box.TypeJP2Signature:
			// Verify signature
			if len(b.Contents) < 4 ||
				b.Contents[0] != 0x0D || b.Contents[1] != 0x0A ||
				b.Contents[2] != 0x87 || b.Contents[3] != 0x0A {
				return fmt.Errorf("invalid JP2 signature")
			}

		case box.TypeFileType:
			// Parse file type box
			ftyp := &box.FileTypeBox{}
			if err := ftyp.Parse(b.Contents); err != nil {
				return err
			}

		case box.TypeJP2Header:
			// Parse JP2 header
			var err error
			d.jp2Header, err = box.ParseJP2Header(b.Contents)
			if err != nil {
				return err
			}

		case box.TypeContCodestream:
			// Store codestream for later parsing
			d.codestream = b.Contents
			return nil
		}
	}

	if d.codestream == nil {
		return fmt.Errorf("no codestream found in JP2 file")
	}
	return nil
}

// readJ2K reads a raw J2K codestream.
func (d *decoder) readJ2K() error {
	// Read entire codestream
	data, err := io.ReadAll(d.r)
	if err != nil {
		return err
	}
	d.codestream = data
	return nil
}

// parseCodestream parses the codestream header and reads every
// tile-part that follows it.
func (d *decoder) parseCodestream(cfg *Config) error {
	if d.codestream == nil {
		return fmt.Errorf("no codestream available")
	}

	d.parser = codestream.NewParser(&byteReader{data: d.codestream})
	header, err := d.parser.ReadHeader()
	if err != nil {
		return err
	}
	d.header = header

	if header.IsHTJ2K() {
		return &Error{Op: "decode", Kind: KindUnsupportedFeature,
			Err: errors.New("codestream uses high-throughput (Part 15) block coding")}
	}
	if style := header.CodingStyle.CodeBlockStyle; style != 0 {
		return &Error{Op: "decode", Kind: KindUnsupportedFeature,
			Err: fmt.Errorf("code-block style 0x%02X: only the default coding mode is built", style)}
	}

	if err := d.readTileParts(); err != nil {
		if cfg != nil && cfg.TolerateTruncation {
			// Keep whatever complete tile-parts arrived; tiles whose
			// data never made it are zero-filled later, with their own
			// per-tile warnings.
			cfg.Warnings = append(cfg.Warnings, Warning{
				Kind:    KindTruncatedCodestream,
				Message: fmt.Sprintf("codestream ends early: %v", err),
			})
			return nil
		}
		return &Error{Op: "decode", Kind: KindTruncatedCodestream, Err: err}
	}
	return nil
}

// readTileParts consumes every tile-part following the main header,
// concatenating a tile's tile-part bodies in the order they appear in
// the codestream (TPsot is not consulted) so decodeTile
// sees one contiguous packet stream per tile regardless of how many
// tile-parts the encoder split it across.
func (d *decoder) readTileParts() error {
	d.tileData = make(map[int][]byte)

	// ReadHeader returns having just consumed the first tile-part's SOT
	// marker tag, so Psot (tile-part length, measured inclusive of that
	// tag) is tracked from here.
	sotStart := d.parser.Pos() - 2

	for {
		tph, err := d.parser.ReadTilePartHeader()
		if err != nil {
			return fmt.Errorf("reading tile-part header: %w", err)
		}

		dataLen := int(tph.TilePartLength) - (d.parser.Pos() - sotStart)
		data, err := d.parser.ReadTileData(dataLen)
		if err != nil {
			return fmt.Errorf("reading tile-part data: %w", err)
		}

		tileIdx := int(tph.TileIndex)
		d.tileData[tileIdx] = append(d.tileData[tileIdx], data...)

		marker, err := d.parser.ReadMarker()
		if err != nil {
			return fmt.Errorf("reading marker after tile-part: %w", err)
		}
		if marker == codestream.EOC {
			return nil
		}
		if marker != codestream.SOT {
			return fmt.Errorf("unexpected marker 0x%04X after tile-part", marker)
		}
		sotStart = d.parser.Pos() - 2
	}
}

// decodeTiles decodes all tiles and assembles the output image.
func (d *decoder) decodeTiles(cfg *Config) (image.Image, error) {
	h := d.header

	// Calculate output dimensions
	width := int(h.ImageWidth - h.ImageXOffset)
	height := int(h.ImageHeight - h.ImageYOffset)

	if cfg != nil && cfg.ReduceResolution > 0 {
		// Reduce resolution
		for i := 0; i < cfg.ReduceResolution; i++ {
			width = (width + 1) / 2
			height = (height + 1) / 2
		}
	}

	// Create output image based on number of components
	numComp := int(h.NumComponents)
	if numComp == 0 || len(h.ComponentInfo) == 0 {
		return nil, fmt.Errorf("invalid image: no components")
	}
	precision := h.ComponentInfo[0].Precision()
	signed := h.ComponentInfo[0].IsSigned()

	// Allocate component data
	componentData := make([][]int32, numComp)
	for c := 0; c < numComp; c++ {
		componentData[c] = make([]int32, width*height)
	}

	// Decode each tile
	tileDecoder := tcd.NewTileDecoder(h)
	numTiles := int(h.NumTilesX * h.NumTilesY)

	for tileIdx := 0; tileIdx < numTiles; tileIdx++ {
		if err := d.ctx.Err(); err != nil {
			return nil, &Error{Kind: KindCancelled, Op: fmt.Sprintf("decoding tile %d", tileIdx), Err: err}
		}
		if err := d.decodeTile(tileDecoder, tileIdx, componentData, width, height, cfg); err != nil {
			var typed *Error
			if errors.As(err, &typed) && typed.Kind == KindCancelled {
				return nil, err
			}
			if cfg != nil && cfg.TolerateTruncation {
				cfg.Warnings = append(cfg.Warnings, Warning{
					Kind:    KindTruncatedCodestream,
					Message: fmt.Sprintf("tile %d replaced with zero data: %v", tileIdx, err),
				})
				zeroTile(tileDecoder, tileIdx, componentData, width, height)
				continue
			}
			return nil, &Error{Kind: KindTruncatedCodestream, Op: fmt.Sprintf("decoding tile %d", tileIdx), Err: err}
		}
	}

	// Apply inverse MCT if needed
	if h.CodingStyle.MultipleComponentXf != 0 && numComp >= 3 {
		if h.CodingStyle.IsReversible() {
			mct.InverseRCT(componentData[0], componentData[1], componentData[2])
		} else {
			// Convert to float for ICT
			compFloat := make([][]float64, 3)
			for c := 0; c < 3; c++ {
				compFloat[c] = make([]float64, len(componentData[c]))
				for i, v := range componentData[c] {
					compFloat[c][i] = float64(v)
				}
			}
			mct.InverseICT(compFloat[0], compFloat[1], compFloat[2])
			for c := 0; c < 3; c++ {
				for i, v := range compFloat[c] {
					componentData[c][i] = int32(v + 0.5)
				}
			}
		}
	}

	// Apply DC level shift
	for c := 0; c < numComp; c++ {
		if !h.ComponentInfo[c].IsSigned() {
			mct.DCLevelShiftInverse(componentData[c], h.ComponentInfo[c].Precision())
		}
	}

	// Apply color space conversion if needed
	if d.jp2Header != nil && d.jp2Header.ColorSpec != nil {
		cs := d.getColorSpace()
		if conv := getColorConversion(cs); conv != nil {
			conv(componentData, precision)
		}
	}

	// Create output image
	return d.createImage(componentData, width, height, numComp, precision, signed)
}

// decodeTile decodes a single tile: tier-2 packet disassembly, tier-1
// code-block decode, dequantization, and the inverse DWT, mirroring
// encodeTile's pipeline in reverse.
func (d *decoder) decodeTile(
	tileDecoder *tcd.TileDecoder,
	tileIdx int,
	componentData [][]int32,
	imgWidth, imgHeight int,
	cfg *Config,
) error {
	h := d.header

	tileDecoder.InitTile(tileIdx)

	tile := tileDecoder.Tile()
	if tile == nil {
		return fmt.Errorf("tile %d not initialized", tileIdx)
	}

	data := d.tileData[tileIdx]
	if len(data) == 0 {
		return fmt.Errorf("tile %d has no tile-part data", tileIdx)
	}
	if err := d.decodeTilePackets(tile, data); err != nil {
		return fmt.Errorf("decoding packets: %w", err)
	}

	guardBits := int(h.Quantization.NumGuardBits)
	step := 1.0
	if h.Quantization.Style() != codestream.QuantizationNone && len(h.Quantization.StepSizes) > 0 {
		step = quant.StepSize(h.Quantization.StepSizes[0])
	}

	for c := 0; c < len(tile.Components) && c < len(componentData); c++ {
		tc := tile.Components[c]
		if tc == nil {
			continue
		}

		precision := h.ComponentInfo[c].Precision()
		if err := d.decodeComponentCodeBlocks(tileDecoder, tc, step, guardBits, precision); err != nil {
			return fmt.Errorf("decoding component %d code-blocks: %w", c, err)
		}

		tileDecoder.ApplyInverseDWT(tc)

		// Copy to output
		for y := tc.Y0; y < tc.Y1 && y-int(h.ImageYOffset) < imgHeight; y++ {
			for x := tc.X0; x < tc.X1 && x-int(h.ImageXOffset) < imgWidth; x++ {
				srcIdx := (y-tc.Y0)*(tc.X1-tc.X0) + (x - tc.X0)
				dstX := x - int(h.ImageXOffset)
				dstY := y - int(h.ImageYOffset)
				if dstX >= 0 && dstY >= 0 && dstX < imgWidth && dstY < imgHeight {
					dstIdx := dstY*imgWidth + dstX
					if srcIdx < len(tc.Data) {
						componentData[c][dstIdx] = tc.Data[srcIdx]
					}
				}
			}
		}
	}

	return nil
}

// decodeTilePackets walks every resolution/component/precinct/layer
// packet in the tile's declared progression order, mirroring
// encoder.go's packetizeTile. Every resolution carries exactly one
// precinct (tcd.buildPrecinct's single-precinct-per-resolution
// simplification), so the precinct-count table handed to the iterator
// is uniformly 1, same as on the encode side.
func (d *decoder) decodeTilePackets(tile *tcd.Tile, data []byte) error {
	h := d.header
	numComp := len(tile.Components)
	if numComp == 0 {
		return nil
	}
	numRes := len(tile.Components[0].Resolutions)
	numLayers := int(h.CodingStyle.NumLayers)
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

	sopEnabled := h.CodingStyle.CodingStyle&codestream.CodingStyleSOP != 0
	ephEnabled := h.CodingStyle.CodingStyle&codestream.CodingStyleEPH != 0

	packetDecoder := tcd.NewPacketDecoder(data)
	for _, pkt := range d.packetSequence(numComp, numRes, numLayers, precinctCounts) {
		res := tile.Components[pkt.Component].Resolutions[pkt.Resolution]
		precinct := res.Precincts[pkt.Precinct]
		if err := packetDecoder.DecodePacket(precinct, pkt.Layer, sopEnabled, ephEnabled); err != nil {
			return fmt.Errorf("decoding packet (l=%d r=%d c=%d p=%d): %w",
				pkt.Layer, pkt.Resolution, pkt.Component, pkt.Precinct, err)
		}
	}
	return nil
}

// packetSequence resolves the order packets appear in a tile's
// bitstream: the COD progression alone, or, when the main header
// carries POC entries, their chain of bounded progressions. Each POC
// segment contributes only packets no earlier segment already emitted,
// so overlapping segment ranges stay consistent with what a
// progression-change-aware encoder interleaves.
func (d *decoder) packetSequence(numComp, numRes, numLayers int, precinctCounts [][][]int) []tcd.Packet {
	h := d.header

	collect := func(iter *tcd.PacketIterator, seen map[tcd.Packet]bool, seq []tcd.Packet) []tcd.Packet {
		for {
			pkt, ok := iter.Next()
			if !ok {
				return seq
			}
			if seen != nil {
				if seen[pkt] {
					continue
				}
				seen[pkt] = true
			}
			seq = append(seq, pkt)
		}
	}

	if len(h.ProgressionOrderChanges) == 0 {
		order := codestream.ProgressionOrder(h.CodingStyle.ProgressionOrder)
		iter := tcd.NewPacketIterator(numComp, numRes, numLayers, precinctCounts, order)
		return collect(iter, nil, nil)
	}

	seen := make(map[tcd.Packet]bool)
	var seq []tcd.Packet
	for _, poc := range h.ProgressionOrderChanges {
		iter := tcd.NewPacketIterator(numComp, numRes, numLayers, precinctCounts,
			codestream.ProgressionOrder(poc.ProgressionOrder))
		iter.SetBounds(int(poc.ResolutionStart), int(poc.ResolutionEnd),
			int(poc.ComponentStart), int(poc.ComponentEnd), 0, int(poc.LayerEnd))
		seq = collect(iter, seen, seq)
	}
	return seq
}

// decodeComponentCodeBlocks tier-1 decodes every code-block already
// populated by decodeTilePackets (Data, ZeroBitPlanes) and writes its
// reconstructed coefficients back into tc.Data at the same
// CodeBlock.X0/Y0-addressed offsets encodeComponentCodeBlocks read
// them from, undoing the deadzone quantizer on the lossy path. The
// reversible 5/3 path carries exact integers end to end and skips
// dequantization entirely, matching quant.DeadzoneDequantize's own
// documented scope.
func (d *decoder) decodeComponentCodeBlocks(td *tcd.TileDecoder, tc *tcd.TileComponent, step float64, guardBits, precision int) error {
	stride := tc.X1 - tc.X0
	lossless := step == 1.0

	for _, res := range tc.Resolutions {
		for _, band := range res.Bands {
			for _, cb := range band.CodeBlocks {
				if err := d.ctx.Err(); err != nil {
					return &Error{Kind: KindCancelled, Op: "decoding code-blocks", Err: err}
				}
				w := cb.X1 - cb.X0
				h := cb.Y1 - cb.Y0
				if w <= 0 || h <= 0 || len(cb.Data) == 0 {
					continue
				}

				cb.TotalBitPlanes = quant.TotalBitPlanes(precision, guardBits, band.Type)
				if err := td.DecodeCodeBlock(cb, band.Type); err != nil {
					return err
				}
				if len(cb.Coefficients) == 0 {
					continue
				}

				var values []int32
				if lossless {
					values = cb.Coefficients
				} else {
					recon := quant.DeadzoneDequantize(cb.Coefficients, step)
					values = make([]int32, len(recon))
					for i, v := range recon {
						if v >= 0 {
							values[i] = int32(v + 0.5)
						} else {
							values[i] = int32(v - 0.5)
						}
					}
				}

				for y := 0; y < h; y++ {
					dstOff := (cb.Y0+y)*stride + cb.X0
					copy(tc.Data[dstOff:dstOff+w], values[y*w:(y+1)*w])
				}
			}
		}
	}
	return nil
}

// zeroTile clears whatever part of a tile's output region may have
// been partially written before a decode error, so a caller using
// TolerateTruncation gets a clean zero tile rather than a partial one.
func zeroTile(tileDecoder *tcd.TileDecoder, tileIdx int, componentData [][]int32, imgWidth, imgHeight int) {
	h := tileDecoder.Header()
	if h == nil {
		return
	}
	tile := tileDecoder.Tile()
	if tile == nil {
		return
	}
	for c := 0; c < len(tile.Components) && c < len(componentData); c++ {
		tc := tile.Components[c]
		if tc == nil {
			continue
		}
		for y := tc.Y0; y < tc.Y1; y++ {
			dstY := y - int(h.ImageYOffset)
			if dstY < 0 || dstY >= imgHeight {
				continue
			}
			for x := tc.X0; x < tc.X1; x++ {
				dstX := x - int(h.ImageXOffset)
				if dstX < 0 || dstX >= imgWidth {
					continue
				}
				componentData[c][dstY*imgWidth+dstX] = 0
			}
		}
	}
}

// createImage creates the output image from component data.
func (d *decoder) createImage(
	componentData [][]int32,
	width, height int,
	numComp int,
	precision int,
	signed bool,
) (image.Image, error) {
	// Determine scaling factor
	maxVal := int32((1 << precision) - 1)

	switch numComp {
	case 1:
		// Grayscale
		if precision <= 8 {
			img := image.NewGray(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					v := componentData[0][idx]
					if v < 0 {
						v = 0
					}
					if v > maxVal {
						v = maxVal
					}
					// Scale to 8-bit
					if precision != 8 {
						v = v * 255 / maxVal
					}
					img.SetGray(x, y, color.Gray{Y: uint8(v)})
				}
			}
			return img, nil
		}
		// 16-bit grayscale
		img := image.NewGray16(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				v := componentData[0][idx]
				if v < 0 {
					v = 0
				}
				if v > maxVal {
					v = maxVal
				}
				// Scale to 16-bit
				v = v * 65535 / maxVal
				img.SetGray16(x, y, color.Gray16{Y: uint16(v)})
			}
		}
		return img, nil

	case 3:
		// RGB
		if precision <= 8 {
			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					r := componentData[0][idx]
					g := componentData[1][idx]
					b := componentData[2][idx]

					// Clamp values
					r = clampInt32(r, 0, maxVal)
					g = clampInt32(g, 0, maxVal)
					b = clampInt32(b, 0, maxVal)

					// Scale to 8-bit
					if precision != 8 {
						r = r * 255 / maxVal
						g = g * 255 / maxVal
						b = b * 255 / maxVal
					}

					img.SetRGBA(x, y, color.RGBA{
						R: uint8(r),
						G: uint8(g),
						B: uint8(b),
						A: 255,
					})
				}
			}
			return img, nil
		}
		// 16-bit RGB
		img := image.NewRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := componentData[0][idx]
				g := componentData[1][idx]
				b := componentData[2][idx]

				r = clampInt32(r, 0, maxVal)
				g = clampInt32(g, 0, maxVal)
				b = clampInt32(b, 0, maxVal)

				// Scale to 16-bit
				r = r * 65535 / maxVal
				g = g * 65535 / maxVal
				b = b * 65535 / maxVal

				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(r),
					G: uint16(g),
					B: uint16(b),
					A: 65535,
				})
			}
		}
		return img, nil

	case 4:
		// RGBA
		if precision <= 8 {
			img := image.NewRGBA(image.Rect(0, 0, width, height))
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					idx := y*width + x
					r := clampInt32(componentData[0][idx], 0, maxVal)
					g := clampInt32(componentData[1][idx], 0, maxVal)
					b := clampInt32(componentData[2][idx], 0, maxVal)
					a := clampInt32(componentData[3][idx], 0, maxVal)

					if precision != 8 {
						r = r * 255 / maxVal
						g = g * 255 / maxVal
						b = b * 255 / maxVal
						a = a * 255 / maxVal
					}

					img.SetRGBA(x, y, color.RGBA{
						R: uint8(r),
						G: uint8(g),
						B: uint8(b),
						A: uint8(a),
					})
				}
			}
			return img, nil
		}
		// 16-bit RGBA
		img := image.NewRGBA64(image.Rect(0, 0, width, height))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				idx := y*width + x
				r := clampInt32(componentData[0][idx], 0, maxVal)
				g := clampInt32(componentData[1][idx], 0, maxVal)
				b := clampInt32(componentData[2][idx], 0, maxVal)
				a := clampInt32(componentData[3][idx], 0, maxVal)

				r = r * 65535 / maxVal
				g = g * 65535 / maxVal
				b = b * 65535 / maxVal
				a = a * 65535 / maxVal

				img.SetRGBA64(x, y, color.RGBA64{
					R: uint16(r),
					G: uint16(g),
					B: uint16(b),
					A: uint16(a),
				})
			}
		}
		return img, nil

	default:
		return nil, fmt.Errorf("unsupported number of components: %d", numComp)
	}
}

// Helper function
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// byteReader wraps a byte slice as an io.Reader.
type byteReader struct {
	data []byte
	pos  int
}

func (r *byteReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}
