// Package tcd - t2.go implements Tier-2 packet coding.
//
// Tier-2 handles the organization of code-block data into packets
// according to the progression order. Each packet contains data for
// a specific layer, resolution, component, and precinct.
package tcd

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/rasterlab/j2kcore/internal/bio"
	"github.com/rasterlab/j2kcore/internal/codestream"
)

// PacketIterator iterates over packets in progression order.
type PacketIterator struct {
	// Image parameters
	numComponents  int
	numResolutions int
	numLayers      int
	precincts      [][][]int // [component][resolution]numPrecincts

	// Current position
	layer      int
	resolution int
	component  int
	precinct   int

	// Progression order
	order codestream.ProgressionOrder

	// Bounds
	resStart, resEnd int
	compStart, compEnd int
	layStart, layEnd int
}

// NewPacketIterator creates a packet iterator.
func NewPacketIterator(
	numComponents, numResolutions, numLayers int,
	precincts [][][]int,
	order codestream.ProgressionOrder,
) *PacketIterator {
	return &PacketIterator{
		numComponents:  numComponents,
		numResolutions: numResolutions,
		numLayers:      numLayers,
		precincts:      precincts,
		order:          order,
		resEnd:         numResolutions,
		compEnd:        numComponents,
		layEnd:         numLayers,
	}
}

// Packet represents the current packet position.
type Packet struct {
	Layer      int
	Resolution int
	Component  int
	Precinct   int
}

// Next advances to the next packet position.
// Returns false when all packets have been visited.
func (pi *PacketIterator) Next() (Packet, bool) {
	for {
		if !pi.hasMore() {
			return Packet{}, false
		}

		p := Packet{
			Layer:      pi.layer,
			Resolution: pi.resolution,
			Component:  pi.component,
			Precinct:   pi.precinct,
		}

		pi.advance()
		return p, true
	}
}

func (pi *PacketIterator) hasMore() bool {
	switch pi.order {
	case codestream.LRCP:
		return pi.layer < pi.layEnd
	case codestream.RLCP:
		return pi.resolution < pi.resEnd
	case codestream.RPCL:
		return pi.resolution < pi.resEnd
	case codestream.PCRL:
		return pi.precinct < pi.maxPrecincts()
	case codestream.CPRL:
		return pi.component < pi.compEnd
	}
	return false
}

func (pi *PacketIterator) maxPrecincts() int {
	max := 0
	for c := 0; c < pi.numComponents; c++ {
		for r := 0; r < pi.numResolutions; r++ {
			if len(pi.precincts) > c && len(pi.precincts[c]) > r {
				if pi.precincts[c][r][0] > max {
					max = pi.precincts[c][r][0]
				}
			}
		}
	}
	return max
}

func (pi *PacketIterator) advance() {
	switch pi.order {
	case codestream.LRCP:
		pi.advanceLRCP()
	case codestream.RLCP:
		pi.advanceRLCP()
	case codestream.RPCL:
		pi.advanceRPCL()
	case codestream.PCRL:
		pi.advancePCRL()
	case codestream.CPRL:
		pi.advanceCPRL()
	}
}

func (pi *PacketIterator) advanceLRCP() {
	pi.precinct++
	numPrec := 1
	if len(pi.precincts) > pi.component && len(pi.precincts[pi.component]) > pi.resolution {
		numPrec = pi.precincts[pi.component][pi.resolution][0]
	}
	if pi.precinct >= numPrec {
		pi.precinct = 0
		pi.component++
		if pi.component >= pi.compEnd {
			pi.component = pi.compStart
			pi.resolution++
			if pi.resolution >= pi.resEnd {
				pi.resolution = pi.resStart
				pi.layer++
			}
		}
	}
}

func (pi *PacketIterator) advanceRLCP() {
	pi.precinct++
	numPrec := 1
	if len(pi.precincts) > pi.component && len(pi.precincts[pi.component]) > pi.resolution {
		numPrec = pi.precincts[pi.component][pi.resolution][0]
	}
	if pi.precinct >= numPrec {
		pi.precinct = 0
		pi.component++
		if pi.component >= pi.compEnd {
			pi.component = pi.compStart
			pi.layer++
			if pi.layer >= pi.layEnd {
				pi.layer = pi.layStart
				pi.resolution++
			}
		}
	}
}

func (pi *PacketIterator) advanceRPCL() {
	pi.layer++
	if pi.layer >= pi.layEnd {
		pi.layer = pi.layStart
		pi.component++
		if pi.component >= pi.compEnd {
			pi.component = pi.compStart
			pi.precinct++
			numPrec := 1
			if len(pi.precincts) > pi.component && len(pi.precincts[pi.component]) > pi.resolution {
				numPrec = pi.precincts[pi.component][pi.resolution][0]
			}
			if pi.precinct >= numPrec {
				pi.precinct = 0
				pi.resolution++
			}
		}
	}
}

func (pi *PacketIterator) advancePCRL() {
	pi.layer++
	if pi.layer >= pi.layEnd {
		pi.layer = pi.layStart
		pi.resolution++
		if pi.resolution >= pi.resEnd {
			pi.resolution = pi.resStart
			pi.component++
			if pi.component >= pi.compEnd {
				pi.component = pi.compStart
				pi.precinct++
			}
		}
	}
}

func (pi *PacketIterator) advanceCPRL() {
	pi.layer++
	if pi.layer >= pi.layEnd {
		pi.layer = pi.layStart
		pi.resolution++
		if pi.resolution >= pi.resEnd {
			pi.resolution = pi.resStart
			pi.precinct++
			numPrec := 1
			if len(pi.precincts) > pi.component && len(pi.precincts[pi.component]) > pi.resolution {
				numPrec = pi.precincts[pi.component][pi.resolution][0]
			}
			if pi.precinct >= numPrec {
				pi.precinct = 0
				pi.component++
			}
		}
	}
}

// Reset resets the iterator to the beginning of its bounds.
func (pi *PacketIterator) Reset() {
	pi.layer = pi.layStart
	pi.resolution = pi.resStart
	pi.component = pi.compStart
	pi.precinct = 0
}

// SetBounds restricts iteration to [resStart, resEnd) resolutions,
// [compStart, compEnd) components and [layStart, layEnd) layers, the
// sub-range one POC progression segment covers, and rewinds to its
// start. Out-of-range bounds clamp to the tile's extents.
func (pi *PacketIterator) SetBounds(resStart, resEnd, compStart, compEnd, layStart, layEnd int) {
	pi.resStart = max(0, resStart)
	pi.resEnd = min(resEnd, pi.numResolutions)
	pi.compStart = max(0, compStart)
	pi.compEnd = min(compEnd, pi.numComponents)
	pi.layStart = max(0, layStart)
	pi.layEnd = min(layEnd, pi.numLayers)
	pi.Reset()
}

// PacketEncoder encodes packets to a bit stream. Each packet header
// gets its own bit writer: headers are byte-aligned units, and sharing
// stuffing state across packets would desynchronise a decoder that
// (correctly) starts each header on a fresh byte.
type PacketEncoder struct {
	w io.Writer
}

// NewPacketEncoder creates a new packet encoder.
func NewPacketEncoder(w io.Writer) *PacketEncoder {
	return &PacketEncoder{w: w}
}

// EncodePacket encodes a single packet.
func (e *PacketEncoder) EncodePacket(
	precinct *Precinct,
	layer int,
	enableSOP bool,
	enableEPH bool,
) error {
	// Write SOP marker if enabled
	if enableSOP {
		sop := []byte{0xFF, 0x91, 0x00, 0x04, 0x00, 0x00}
		binary.BigEndian.PutUint16(sop[4:], uint16(layer))
		if _, err := e.w.Write(sop); err != nil {
			return err
		}
	}

	// Encode packet header
	if err := e.encodePacketHeader(precinct, layer); err != nil {
		return err
	}

	// Write EPH marker if enabled
	if enableEPH {
		eph := []byte{0xFF, 0x92}
		if _, err := e.w.Write(eph); err != nil {
			return err
		}
	}

	// Write packet body: only the byte range each code-block newly
	// contributes in this layer (ByteRangeForLayer), never its whole
	// Data buffer -- a later layer replaying earlier bytes would
	// duplicate them on the wire and desync the decoder's own
	// incremental accumulation.
	for _, bandCBs := range precinct.CodeBlocks {
		for _, cb := range bandCBs {
			lo, hi := cb.ByteRangeForLayer(layer)
			if hi <= lo {
				continue
			}
			if _, err := e.w.Write(cb.Data[lo:hi]); err != nil {
				return err
			}
		}
	}

	return nil
}

// seedTagTrees loads each code-block's known inclusion layer and
// zero-bit-plane count as ground truth into the precinct's tag trees.
// Idempotent: called at the start of every layer's header encode so the
// trees are populated before the very first Encode call (layer 0) and
// unaffected by repeated seeding in later layers.
func seedTagTrees(precinct *Precinct) {
	for _, bandCBs := range precinct.CodeBlocks {
		for cbIdx, cb := range bandCBs {
			x := cbIdx % precinct.InclusionTree.width
			y := cbIdx / precinct.InclusionTree.width
			precinct.InclusionTree.SetValue(x, y, cb.IncludedInLayers)
			precinct.IMSBTree.SetValue(x, y, cb.ZeroBitPlanes)
		}
	}
}

// encodePacketHeader encodes the packet header.
func (e *PacketEncoder) encodePacketHeader(precinct *Precinct, layer int) error {
	hw := bio.NewPacketBitWriter(e.w)
	seedTagTrees(precinct)

	// Check if packet is empty: true only when no code-block contributes
	// any *new* passes in this layer, not merely when one was included
	// by an earlier layer.
	hasData := false
	for _, bandCBs := range precinct.CodeBlocks {
		for _, cb := range bandCBs {
			if lo, hi := cb.ByteRangeForLayer(layer); hi > lo {
				hasData = true
				break
			}
		}
		if hasData {
			break
		}
	}

	// Write packet presence bit
	if hasData {
		if err := hw.WriteBit(1); err != nil {
			return err
		}
	} else {
		if err := hw.WriteBit(0); err != nil {
			return err
		}
		return hw.Flush()
	}

	// Encode inclusion and length for each code-block
	for _, bandCBs := range precinct.CodeBlocks {
		for cbIdx, cb := range bandCBs {
			x := cbIdx % precinct.InclusionTree.width
			y := cbIdx / precinct.InclusionTree.width

			lo, hi := cb.ByteRangeForLayer(layer)
			newBytes := hi - lo
			alreadyIncluded := cb.IncludedInLayers < layer
			included := newBytes > 0

			if alreadyIncluded {
				// Already signaled included in an earlier layer: a
				// single bit carries its presence in this layer, per
				// Annex B.10.3 (the inclusion tag tree is only needed
				// up to first inclusion).
				bit := 0
				if included {
					bit = 1
				}
				if err := hw.WriteBit(bit); err != nil {
					return err
				}
			} else {
				// Not yet included as of the previous layer: code the
				// inclusion tag tree incrementally against this
				// layer's threshold (layer+1 tests "included by layer
				// <= layer").
				if err := precinct.InclusionTree.Encode(hw, x, y, layer+1); err != nil {
					return err
				}
			}

			if !included {
				continue
			}

			// Zero bit-planes (IMSB), revealed exactly once, at first
			// inclusion, by threshold one past the true value.
			if cb.IncludedInLayers == layer {
				if err := precinct.IMSBTree.Encode(hw, x, y, cb.ZeroBitPlanes+1); err != nil {
					return err
				}
			}

			// Number of coding passes newly contributed by this layer
			newPasses := cb.PassesThroughLayer(layer) - cb.PassesThroughLayer(layer-1)
			if err := encodeNumPasses(hw, newPasses); err != nil {
				return err
			}

			// Length of the code-block data newly contributed by this layer
			if err := encodeLength(hw, cb, newBytes, newPasses); err != nil {
				return err
			}
		}
	}

	return hw.Flush()
}

// encodeNumPasses writes the coding-pass count with the standard's
// escalating code: 1 bit for one pass, 2 for two, then 2-, 5- and
// 7-bit tails.
func encodeNumPasses(hw *bio.PacketBitWriter, n int) error {
	if n == 1 {
		return hw.WriteBit(0)
	}
	if err := hw.WriteBit(1); err != nil {
		return err
	}
	if n == 2 {
		return hw.WriteBit(0)
	}
	if err := hw.WriteBit(1); err != nil {
		return err
	}
	if n <= 5 {
		return hw.WriteBits(uint32(n-3), 2)
	}
	if err := hw.WriteBits(3, 2); err != nil {
		return err
	}
	if n <= 36 {
		return hw.WriteBits(uint32(n-6), 5)
	}
	if err := hw.WriteBits(31, 5); err != nil {
		return err
	}
	return hw.WriteBits(uint32(n-37), 7)
}

// initialLblock is each code-block's starting length-field width state.
const initialLblock = 3

// encodeLength writes a code-block's contribution length using the
// adaptive Lblock width: the field is Lblock + floor(log2(newPasses))
// bits wide, and a run of 1 bits (closed by a 0) grows the block-local
// Lblock whenever the contribution no longer fits. Lblock persists on
// the code-block across layers, mirroring the decoder's own copy.
func encodeLength(hw *bio.PacketBitWriter, cb *CodeBlock, length, newPasses int) error {
	if cb.Lblock == 0 {
		cb.Lblock = initialLblock
	}
	passBits := mathBitsLen(newPasses) - 1
	for cb.Lblock+passBits < mathBitsLen(length) {
		cb.Lblock++
		if err := hw.WriteBit(1); err != nil {
			return err
		}
	}
	if err := hw.WriteBit(0); err != nil {
		return err
	}
	return hw.WriteBits(uint32(length), uint(cb.Lblock+passBits))
}

// mathBitsLen is the minimum number of bits representing n (0 for 0).
func mathBitsLen(n int) int {
	l := 0
	for n > 0 {
		l++
		n >>= 1
	}
	return l
}

// PacketDecoder decodes packets from a tile's packet stream. A single
// byte cursor tracks both packet headers and bodies: each header is
// read through a fresh bit reader over the remaining bytes (headers
// are byte-aligned, so the bytes that reader consumes are exactly the
// header's), after which the cursor continues into the body.
type PacketDecoder struct {
	buf []byte
	pos int
}

// NewPacketDecoder creates a new packet decoder.
func NewPacketDecoder(data []byte) *PacketDecoder {
	return &PacketDecoder{buf: data}
}

// byteReaderAt implements io.Reader for a byte slice.
type byteReaderAt struct {
	data []byte
	pos  int
}

func (r *byteReaderAt) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, io.EOF
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

// DecodePacket decodes a single packet.
func (d *PacketDecoder) DecodePacket(
	precinct *Precinct,
	layer int,
	sopEnabled bool,
	ephEnabled bool,
) error {
	// Check for SOP marker
	if sopEnabled {
		if d.pos+6 <= len(d.buf) && d.buf[d.pos] == 0xFF && d.buf[d.pos+1] == 0x91 {
			d.pos += 6
		}
	}

	// Decode packet header. pending holds, in the same bandIdx/cbIdx
	// traversal order as the body loop below, how many new bytes each
	// code-block contributed in this layer -- the header reveals that
	// count per code-block before any body bytes exist to read.
	src := &byteReaderAt{data: d.buf, pos: d.pos}
	hr := bio.NewPacketBitReader(src)
	pending, err := d.decodePacketHeader(hr, precinct, layer)
	if err != nil {
		return err
	}
	d.pos = src.pos

	// Check for EPH marker
	if ephEnabled {
		if d.pos+2 <= len(d.buf) && d.buf[d.pos] == 0xFF && d.buf[d.pos+1] == 0x92 {
			d.pos += 2
		}
	}

	// Read packet body: append each code-block's newly contributed
	// bytes to its (possibly already non-empty, from an earlier layer)
	// Data buffer, mirroring EncodePacket's incremental write.
	idx := 0
	for _, bandCBs := range precinct.CodeBlocks {
		for _, cb := range bandCBs {
			newLen := 0
			if idx < len(pending) {
				newLen = pending[idx]
			}
			idx++
			if newLen <= 0 {
				continue
			}
			if d.pos+newLen > len(d.buf) {
				return fmt.Errorf("unexpected end of packet data")
			}
			cb.Data = append(cb.Data, d.buf[d.pos:d.pos+newLen]...)
			d.pos += newLen
		}
	}

	return nil
}

// notYetIncluded marks a code-block whose first inclusion layer has
// not yet been decoded.
const notYetIncluded = -1

// decodePacketHeader decodes the packet header, returning the number
// of new bytes each code-block contributed in this layer (zero for a
// code-block not newly included), in the same bandIdx/cbIdx traversal
// order DecodePacket's body loop uses to consume it.
func (d *PacketDecoder) decodePacketHeader(hr *bio.PacketBitReader, precinct *Precinct, layer int) ([]int, error) {
	if layer == 0 {
		for _, bandCBs := range precinct.CodeBlocks {
			for _, cb := range bandCBs {
				cb.IncludedInLayers = notYetIncluded
			}
		}
	}

	totalCBs := 0
	for _, bandCBs := range precinct.CodeBlocks {
		totalCBs += len(bandCBs)
	}
	pending := make([]int, 0, totalCBs)

	// Read packet presence bit
	present, err := hr.ReadBit()
	if err != nil {
		return nil, err
	}
	if present == 0 {
		for i := 0; i < totalCBs; i++ {
			pending = append(pending, 0)
		}
		return pending, nil // Empty packet
	}

	// Decode inclusion and length for each code-block
	for _, bandCBs := range precinct.CodeBlocks {
		for cbIdx, cb := range bandCBs {
			x := cbIdx % precinct.InclusionTree.width
			y := cbIdx / precinct.InclusionTree.width

			var included bool
			alreadyIncluded := cb.IncludedInLayers != notYetIncluded && cb.IncludedInLayers < layer

			if alreadyIncluded {
				bit, err := hr.ReadBit()
				if err != nil {
					return nil, err
				}
				included = bit == 1
			} else {
				var err error
				included, err = precinct.InclusionTree.Decode(hr, x, y, layer+1)
				if err != nil {
					return nil, err
				}
				if included {
					cb.IncludedInLayers = precinct.InclusionTree.Value(x, y)
				}
			}

			if !included {
				pending = append(pending, 0)
				continue
			}

			// Zero bit-planes (IMSB), revealed exactly once, at first
			// inclusion.
			if cb.IncludedInLayers == layer {
				if _, err := precinct.IMSBTree.Decode(hr, x, y, tagTreeMaxValue); err != nil {
					return nil, err
				}
				cb.ZeroBitPlanes = precinct.IMSBTree.Value(x, y)
			}

			// Number of coding passes newly contributed by this layer
			newPasses, err := decodeNumPasses(hr)
			if err != nil {
				return nil, err
			}

			// Length of the code-block data newly contributed by this layer
			newLen, err := decodeLength(hr, cb, newPasses)
			if err != nil {
				return nil, err
			}

			cb.Passes = append(cb.Passes, make([]CodingPass, newPasses)...)
			pending = append(pending, newLen)
		}
	}

	return pending, nil
}

// decodeNumPasses mirrors encodeNumPasses.
func decodeNumPasses(hr *bio.PacketBitReader) (int, error) {
	bit, err := hr.ReadBit()
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return 1, nil
	}

	bit, err = hr.ReadBit()
	if err != nil {
		return 0, err
	}
	if bit == 0 {
		return 2, nil
	}

	val, err := hr.ReadBits(2)
	if err != nil {
		return 0, err
	}
	if val < 3 {
		return int(val) + 3, nil
	}

	val, err = hr.ReadBits(5)
	if err != nil {
		return 0, err
	}
	if val < 31 {
		return int(val) + 6, nil
	}

	val, err = hr.ReadBits(7)
	if err != nil {
		return 0, err
	}
	return int(val) + 37, nil
}

// decodeLength mirrors encodeLength: absorb Lblock growth signals,
// then read the length at the current adaptive width.
func decodeLength(hr *bio.PacketBitReader, cb *CodeBlock, newPasses int) (int, error) {
	if cb.Lblock == 0 {
		cb.Lblock = initialLblock
	}
	for {
		bit, err := hr.ReadBit()
		if err != nil {
			return 0, err
		}
		if bit == 0 {
			break
		}
		cb.Lblock++
		if cb.Lblock > 32 {
			return 0, fmt.Errorf("length field width signal out of range")
		}
	}
	passBits := mathBitsLen(newPasses) - 1
	length, err := hr.ReadBits(uint(cb.Lblock + passBits))
	if err != nil {
		return 0, err
	}
	return int(length), nil
}

// Position returns the current position in the data.
func (d *PacketDecoder) Position() int {
	return d.pos
}
