// Package entropy implements JPEG 2000 tier-1 coding: the MQ adaptive
// binary arithmetic coder and the EBCOT context-modelled bit-plane
// passes that drive it, per code-block.
package entropy

// qeRow is one row of the probability estimation table: the Qe
// estimate, the next row on an MPS or LPS renormalisation, and whether
// an LPS flips the sense of the more probable symbol.
type qeRow struct {
	Qe     uint32
	NMPS   uint8
	NLPS   uint8
	Switch uint8
}

// qeTable is the MQ probability state machine. Row 46 is the
// non-adaptive state pinned to the uniform context.
var qeTable = [47]qeRow{
	{0x5601, 1, 1, 1},
	{0x3401, 2, 6, 0},
	{0x1801, 3, 9, 0},
	{0x0AC1, 4, 12, 0},
	{0x0521, 5, 29, 0},
	{0x0221, 38, 33, 0},
	{0x5601, 7, 6, 1},
	{0x5401, 8, 14, 0},
	{0x4801, 9, 14, 0},
	{0x3801, 10, 14, 0},
	{0x3001, 11, 17, 0},
	{0x2401, 12, 18, 0},
	{0x1C01, 13, 20, 0},
	{0x1601, 29, 21, 0},
	{0x5601, 15, 14, 1},
	{0x5401, 16, 14, 0},
	{0x5101, 17, 15, 0},
	{0x4801, 18, 16, 0},
	{0x3801, 19, 17, 0},
	{0x3401, 20, 18, 0},
	{0x3001, 21, 19, 0},
	{0x2801, 22, 19, 0},
	{0x2401, 23, 20, 0},
	{0x2201, 24, 21, 0},
	{0x1C01, 25, 22, 0},
	{0x1801, 26, 23, 0},
	{0x1601, 27, 24, 0},
	{0x1401, 28, 25, 0},
	{0x1201, 29, 26, 0},
	{0x1101, 30, 27, 0},
	{0x0AC1, 31, 28, 0},
	{0x09C1, 32, 29, 0},
	{0x08A1, 33, 30, 0},
	{0x0521, 34, 31, 0},
	{0x0441, 35, 32, 0},
	{0x02A1, 36, 33, 0},
	{0x0221, 37, 34, 0},
	{0x0141, 38, 35, 0},
	{0x0111, 39, 36, 0},
	{0x0085, 40, 37, 0},
	{0x0049, 41, 38, 0},
	{0x0025, 42, 39, 0},
	{0x0015, 43, 40, 0},
	{0x0009, 44, 41, 0},
	{0x0005, 45, 42, 0},
	{0x0001, 45, 43, 0},
	{0x5601, 46, 46, 0},
}

// The coders track (row, MPS) as one flat index: state 2k carries
// MPS=0, state 2k+1 carries MPS=1. The flat transition arrays fold the
// Switch bit in, so the hot loops never branch on it: an MPS
// renormalisation keeps the MPS sense, an LPS renormalisation flips it
// exactly when the row says to.
var (
	mqQe   [94]uint32
	mqNMPS [94]uint8
	mqNLPS [94]uint8
)

func init() {
	for k, row := range qeTable {
		for mps := uint8(0); mps <= 1; mps++ {
			i := 2*k + int(mps)
			mqQe[i] = row.Qe
			mqNMPS[i] = 2*row.NMPS + mps
			lpsMPS := mps
			if row.Switch != 0 {
				lpsMPS = 1 - mps
			}
			mqNLPS[i] = 2*row.NLPS + lpsMPS
		}
	}
}

// The 19 coding contexts. Order matters: the zero-coding block is
// indexed by neighbourhood LUT offset, the sign block by the
// sign-context LUT, and the refinement block by first-refinement
// status.
const (
	CtxZC0 = iota // zero coding, LL/low-activity neighbourhood
	CtxZC1
	CtxZC2
	CtxZC3
	CtxZC4
	CtxZC5
	CtxZC6
	CtxZC7
	CtxZC8

	CtxSC0 // sign coding
	CtxSC1
	CtxSC2
	CtxSC3
	CtxSC4

	CtxMag0 // magnitude refinement
	CtxMag1
	CtxMag2

	CtxRL // run-length (cleanup stripe aggregation)

	CtxUni // uniform, pinned to the non-adaptive row

	NumContexts
)

// uniformState is the flat state the uniform context starts in (row
// 46, MPS=0); every other context starts at row 0, MPS=0.
const uniformState = 92

// MQEncoder is the arithmetic encoder half of the MQ coder. The
// interval register A, code register C and countdown CT follow the
// standard's software conventions; byte emission applies the 0xFF bit
// stuffing rule, so no 0xFF in the output is ever followed by a byte
// above 0x8F.
type MQEncoder struct {
	A  uint32
	C  uint32
	CT uint32

	// buf[0] is a dummy byte standing in for "the byte before the
	// stream", which the carry-resolution path increments in place.
	buf []byte
	bp  int

	contexts [NumContexts]uint8
}

// NewMQEncoder returns an encoder with all contexts at their initial
// states, ready for one code-block.
func NewMQEncoder() *MQEncoder {
	e := &MQEncoder{buf: make([]byte, 1, 8192)}
	e.Reset()
	return e
}

// Reset reinitialises registers and every context, reusing the output
// buffer. Equivalent to a fresh NewMQEncoder, which is the state the
// coder must be in at the start of each code-block.
func (e *MQEncoder) Reset() {
	e.A = 0x8000
	e.C = 0
	e.CT = 12
	if cap(e.buf) > 0 {
		e.buf = e.buf[:1]
	} else {
		e.buf = make([]byte, 1, 8192)
	}
	e.buf[0] = 0
	e.bp = 0
	for i := range e.contexts {
		e.contexts[i] = 0
	}
	e.contexts[CtxUni] = uniformState
}

// Encode codes one binary decision under the given context, adapting
// that context's probability state.
func (e *MQEncoder) Encode(ctx int, decision int) {
	state := e.contexts[ctx]
	qe := mqQe[state]
	mps := state & 1

	e.A -= qe

	if uint8(decision) == mps {
		if (e.A & 0x8000) == 0 {
			// MPS with renormalisation; conditional exchange when the
			// interval shrank below Qe.
			if e.A < qe {
				e.A = qe
			} else {
				e.C += qe
			}
			e.contexts[ctx] = mqNMPS[state]
			e.renorm()
		} else {
			e.C += qe
		}
	} else {
		if e.A < qe {
			e.C += qe
		} else {
			e.A = qe
		}
		e.contexts[ctx] = mqNLPS[state]
		e.renorm()
	}
}

func (e *MQEncoder) renorm() {
	for (e.A & 0x8000) == 0 {
		e.A <<= 1
		e.C <<= 1
		e.CT--
		if e.CT == 0 {
			e.byteOut()
		}
	}
}

// byteOut moves eight (or, after a stuffed 0xFF, seven) completed bits
// of C into the buffer, resolving any pending carry into the previous
// byte first.
func (e *MQEncoder) byteOut() {
	if e.buf[e.bp] == 0xFF {
		e.emit(byte(e.C>>20), 0xFFFFF, 7)
		return
	}
	if (e.C & 0x8000000) == 0 {
		e.emit(byte(e.C>>19), 0x7FFFF, 8)
		return
	}
	e.buf[e.bp]++
	if e.buf[e.bp] == 0xFF {
		e.C &= 0x7FFFFFF
		e.emit(byte(e.C>>20), 0xFFFFF, 7)
		return
	}
	e.emit(byte(e.C>>19), 0x7FFFF, 8)
}

func (e *MQEncoder) emit(b byte, mask uint32, ct uint32) {
	e.bp++
	if e.bp >= len(e.buf) {
		e.buf = append(e.buf, 0)
	}
	e.buf[e.bp] = b
	e.C &= mask
	e.CT = ct
}

// Flush terminates the codeword with the near-optimal procedure: the
// C register is topped up with as many 1 bits as still decode
// correctly, the final bytes are pushed out, and a trailing 0xFF (which
// a decoder would treat as past-the-end anyway) is trimmed.
func (e *MQEncoder) Flush() []byte {
	tempC := e.C + e.A
	e.C |= 0xFFFF
	if e.C >= tempC {
		e.C -= 0x8000
	}

	e.C <<= e.CT
	e.byteOut()
	e.C <<= e.CT
	e.byteOut()

	end := e.bp + 1
	if end > 0 && e.buf[end-1] == 0xFF {
		end--
	}
	if end > 1 {
		return e.buf[1:end]
	}
	return nil
}

// Bytes returns the output emitted so far without terminating.
func (e *MQEncoder) Bytes() []byte {
	if e.bp > 0 {
		return e.buf[1 : e.bp+1]
	}
	return nil
}

// MQDecoder is the matching arithmetic decoder. Reading past the end
// of the segment, or into a 0xFF followed by a byte above 0x8F (a
// marker), feeds synthetic 1 bits — the property near-optimal
// termination relies on.
type MQDecoder struct {
	C  uint32
	A  uint32
	CT uint32

	bp   int
	data []byte

	contexts [NumContexts]uint8

	// endCounter counts synthetic byte reads past the segment end;
	// useful to tests asserting a decode consumed the whole segment.
	endCounter int
}

// NewMQDecoder initialises a decoder over one code-block segment.
func NewMQDecoder(data []byte) *MQDecoder {
	d := &MQDecoder{data: data, bp: -1}
	for i := range d.contexts {
		d.contexts[i] = 0
	}
	d.contexts[CtxUni] = uniformState

	if len(data) == 0 {
		d.C = 0xFF << 16
	} else {
		d.bp = 0
		d.C = uint32(data[0]) << 16
	}
	d.byteIn()
	d.C <<= 7
	d.CT -= 7
	d.A = 0x8000
	return d
}

func (d *MQDecoder) byteIn() {
	if d.bp < 0 {
		d.bp = 0
	}
	if d.bp >= len(d.data) {
		d.C += 0xFF00
		d.CT = 8
		d.endCounter++
		return
	}

	next := byte(0xFF)
	if d.bp+1 < len(d.data) {
		next = d.data[d.bp+1]
	}

	switch {
	case d.data[d.bp] == 0xFF && next > 0x8F:
		// A marker: stop consuming and synthesise 1 bits from here on.
		d.C += 0xFF00
		d.CT = 8
		d.endCounter++
	case d.data[d.bp] == 0xFF:
		d.bp++
		d.C += uint32(next) << 9
		d.CT = 7
	default:
		d.bp++
		d.C += uint32(next) << 8
		d.CT = 8
	}
}

// Decode returns the next binary decision under the given context.
func (d *MQDecoder) Decode(ctx int) int {
	state := d.contexts[ctx]
	qe := mqQe[state]
	mps := int(state & 1)

	d.A -= qe

	if (d.C >> 16) < qe {
		// LPS sub-interval, with conditional exchange.
		var decision int
		if d.A < qe {
			decision = mps
			d.contexts[ctx] = mqNMPS[state]
		} else {
			decision = 1 - mps
			d.contexts[ctx] = mqNLPS[state]
		}
		d.A = qe
		d.renorm()
		return decision
	}

	d.C -= qe << 16
	if (d.A & 0x8000) == 0 {
		var decision int
		if d.A < qe {
			decision = 1 - mps
			d.contexts[ctx] = mqNLPS[state]
		} else {
			decision = mps
			d.contexts[ctx] = mqNMPS[state]
		}
		d.renorm()
		return decision
	}
	return mps
}

func (d *MQDecoder) renorm() {
	for (d.A & 0x8000) == 0 {
		if d.CT == 0 {
			d.byteIn()
		}
		d.A <<= 1
		d.C <<= 1
		d.CT--
	}
}

// ResetContext returns one context to its initial state.
func (d *MQDecoder) ResetContext(ctx int) {
	if ctx == CtxUni {
		d.contexts[ctx] = uniformState
	} else {
		d.contexts[ctx] = 0
	}
}

// ResetAllContexts returns every context to its initial state, as the
// reset-probabilities code-block style requires between passes.
func (d *MQDecoder) ResetAllContexts() {
	for i := range d.contexts {
		d.contexts[i] = 0
	}
	d.contexts[CtxUni] = uniformState
}
