// Package codestream handles JPEG 2000 codestream parsing and
// generation: marker segments, the main/tile-part header model, and
// the derived tile-grid geometry both codec halves share.
package codestream

// Marker is a two-byte JPEG 2000 marker code. Every marker starts with
// 0xFF followed by a second byte that is neither 0x00 nor 0xFF.
type Marker uint16

// Marker codes from ISO/IEC 15444-1 Annex A, plus the Part 2 / Part 15
// codes the parser must at least recognise to skip or reject cleanly.
const (
	SOC Marker = 0xFF4F // start of codestream
	SOT Marker = 0xFF90 // start of tile-part
	SOD Marker = 0xFF93 // start of data
	EOC Marker = 0xFFD9 // end of codestream

	SIZ Marker = 0xFF51 // image and tile size

	COD Marker = 0xFF52 // coding style default
	COC Marker = 0xFF53 // coding style component
	RGN Marker = 0xFF5E // region of interest
	QCD Marker = 0xFF5C // quantization default
	QCC Marker = 0xFF5D // quantization component
	POC Marker = 0xFF5F // progression order change

	TLM Marker = 0xFF55 // tile-part lengths
	PLM Marker = 0xFF57 // packet lengths, main header
	PLT Marker = 0xFF58 // packet lengths, tile-part header
	PPM Marker = 0xFF60 // packed packet headers, main header
	PPT Marker = 0xFF61 // packed packet headers, tile-part header

	SOP Marker = 0xFF91 // start of packet
	EPH Marker = 0xFF92 // end of packet header

	CRG Marker = 0xFF63 // component registration
	COM Marker = 0xFF64 // comment

	CAP Marker = 0xFF50 // extended capabilities (Part 2 / Part 15)
	CBD Marker = 0xFF78 // component bit depth (Part 2)
	MCT Marker = 0xFF74 // transform collection (Part 2)
	MCC Marker = 0xFF75 // transform component (Part 2)
	MCO Marker = 0xFF77 // transform ordering (Part 2)
)

var markerNames = map[Marker]string{
	SOC: "SOC", SOT: "SOT", SOD: "SOD", EOC: "EOC",
	SIZ: "SIZ",
	COD: "COD", COC: "COC", RGN: "RGN", QCD: "QCD", QCC: "QCC", POC: "POC",
	TLM: "TLM", PLM: "PLM", PLT: "PLT", PPM: "PPM", PPT: "PPT",
	SOP: "SOP", EPH: "EPH",
	CRG: "CRG", COM: "COM",
	CAP: "CAP", CBD: "CBD", MCT: "MCT", MCC: "MCC", MCO: "MCO",
}

func (m Marker) String() string {
	if name, ok := markerNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

// HasLength reports whether a 16-bit segment length (which includes
// the length bytes themselves) follows the marker code. Only the four
// pure delimiters in the 0xFF4F/0xFF90-0xFF93/0xFFD9 range carry none.
func (m Marker) HasLength() bool {
	switch m {
	case SOC, SOD, EOC, EPH:
		return false
	default:
		return true
	}
}

// IsDelimiter reports whether the marker frames a codestream region
// rather than carrying a parameter payload.
func (m Marker) IsDelimiter() bool {
	switch m {
	case SOC, SOT, SOD, EOC:
		return true
	default:
		return false
	}
}

// Scod coding-style flags (COD/COC).
const (
	CodingStylePrecincts uint8 = 0x01 // explicit precinct sizes follow SPcod
	CodingStyleSOP       uint8 = 0x02 // SOP markers precede packets
	CodingStyleEPH       uint8 = 0x04 // EPH markers close packet headers
)

// SPcod code-block style bits.
const (
	CodeBlockBypass                 uint8 = 0x01 // selective arithmetic coding bypass
	CodeBlockReset                  uint8 = 0x02 // reset context probabilities each pass
	CodeBlockTermination            uint8 = 0x04 // terminate each coding pass
	CodeBlockVerticalCausal         uint8 = 0x08 // vertically causal context formation
	CodeBlockPredictableTermination uint8 = 0x10 // predictable termination
	CodeBlockSegmentationSymbols    uint8 = 0x20 // segmentation symbol after each cleanup
	CodeBlockHT                     uint8 = 0x40 // high-throughput block coding (Part 15)
)

// Sqcd/Sqcc quantization styles.
const (
	QuantizationNone            uint8 = 0x00
	QuantizationScalarDerived   uint8 = 0x01
	QuantizationScalarExpounded uint8 = 0x02
)

// Rcom registration values for the COM marker payload.
const (
	CommentBinary uint16 = 0
	CommentLatin1 uint16 = 1
)

// ProgressionOrder is the packet iteration order declared in SGcod, in
// the standard's wire encoding (0-4).
type ProgressionOrder uint8

const (
	LRCP ProgressionOrder = iota // layer, resolution, component, position
	RLCP                         // resolution, layer, component, position
	RPCL                         // resolution, position, component, layer
	PCRL                         // position, component, resolution, layer
	CPRL                         // component, position, resolution, layer
)
