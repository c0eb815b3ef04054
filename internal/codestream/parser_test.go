package codestream

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// faultyReader fails with a read error once errAt bytes have been
// served, simulating an interrupted stream at an arbitrary offset.
type faultyReader struct {
	data  []byte
	pos   int
	errAt int
}

func (r *faultyReader) Read(p []byte) (n int, err error) {
	if r.pos >= r.errAt {
		return 0, errors.New("simulated read error")
	}
	remaining := r.errAt - r.pos
	if remaining > len(p) {
		remaining = len(p)
	}
	if r.pos+remaining > len(r.data) {
		remaining = len(r.data) - r.pos
		if remaining <= 0 {
			return 0, io.EOF
		}
	}
	n = copy(p, r.data[r.pos:r.pos+remaining])
	r.pos += n
	return n, nil
}

// codestreamBuilder assembles marker segments for parser tests.
type codestreamBuilder struct {
	buf bytes.Buffer
}

func (b *codestreamBuilder) marker(m Marker) *codestreamBuilder {
	binary.Write(&b.buf, binary.BigEndian, uint16(m))
	return b
}

func (b *codestreamBuilder) u16(v uint16) *codestreamBuilder {
	binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *codestreamBuilder) u32(v uint32) *codestreamBuilder {
	binary.Write(&b.buf, binary.BigEndian, v)
	return b
}

func (b *codestreamBuilder) bytes(v ...byte) *codestreamBuilder {
	b.buf.Write(v)
	return b
}

// siz appends a SIZ segment for an 8x8 single-tile image with the
// given number of identical 8-bit unsigned components.
func (b *codestreamBuilder) siz(numComponents uint16) *codestreamBuilder {
	b.marker(SIZ)
	b.u16(uint16(38 + 3*int(numComponents)))
	b.u16(0) // Rsiz
	b.u32(8) // Xsiz
	b.u32(8) // Ysiz
	b.u32(0) // XOsiz
	b.u32(0) // YOsiz
	b.u32(8) // XTsiz
	b.u32(8) // YTsiz
	b.u32(0) // XTOsiz
	b.u32(0) // YTOsiz
	b.u16(numComponents)
	for c := uint16(0); c < numComponents; c++ {
		b.bytes(7, 1, 1) // Ssiz, XRsiz, YRsiz
	}
	return b
}

func (b *codestreamBuilder) cod() *codestreamBuilder {
	b.marker(COD)
	b.u16(12)
	b.bytes(0, 0) // Scod, progression order
	b.u16(1)      // layers
	b.bytes(0)    // MCT
	b.bytes(5)    // decomposition levels
	b.bytes(4, 4) // code-block width/height exponents (minus 2)
	b.bytes(0)    // code-block style
	b.bytes(1)    // 5-3 reversible wavelet
	return b
}

func (b *codestreamBuilder) qcd() *codestreamBuilder {
	b.marker(QCD)
	b.u16(5)
	b.bytes(0x41) // Sqcd: scalar derived, 2 guard bits
	b.u16(0x4000)
	return b
}

// minimalHeader returns SOC+SIZ+COD+QCD followed by an SOT marker, the
// minimum a ReadHeader call runs to completion on.
func minimalHeader() []byte {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd().marker(SOT)
	return b.buf.Bytes()
}

func TestMarker_String(t *testing.T) {
	tests := []struct {
		marker Marker
		want   string
	}{
		{SOC, "SOC"}, {SOT, "SOT"}, {SOD, "SOD"}, {EOC, "EOC"},
		{SIZ, "SIZ"}, {COD, "COD"}, {COC, "COC"}, {QCD, "QCD"},
		{QCC, "QCC"}, {POC, "POC"}, {TLM, "TLM"}, {PLM, "PLM"},
		{PLT, "PLT"}, {PPM, "PPM"}, {PPT, "PPT"}, {SOP, "SOP"},
		{EPH, "EPH"}, {CRG, "CRG"}, {COM, "COM"}, {CAP, "CAP"},
		{RGN, "RGN"}, {CBD, "CBD"}, {MCT, "MCT"}, {MCC, "MCC"},
		{MCO, "MCO"},
		{Marker(0xFF3C), "UNKNOWN"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.marker.String())
	}
}

func TestMarker_HasLengthAndDelimiters(t *testing.T) {
	for _, m := range []Marker{SOC, SOD, EOC, EPH} {
		assert.False(t, m.HasLength(), "%s carries no length", m)
	}
	for _, m := range []Marker{SIZ, COD, QCD, SOT, SOP, COM, POC} {
		assert.True(t, m.HasLength(), "%s carries a length", m)
	}

	for _, m := range []Marker{SOC, SOT, SOD, EOC} {
		assert.True(t, m.IsDelimiter(), "%s delimits", m)
	}
	for _, m := range []Marker{SIZ, COD, EPH, COM} {
		assert.False(t, m.IsDelimiter(), "%s does not delimit", m)
	}
}

func TestComponentInfo_PrecisionAndSign(t *testing.T) {
	tests := []struct {
		bitDepth  uint8
		precision int
		signed    bool
	}{
		{7, 8, false},
		{0x87, 8, true},
		{11, 12, false},
		{0, 1, false},
		{0xA5, 38, true},
	}
	for _, tt := range tests {
		c := ComponentInfo{BitDepth: tt.bitDepth}
		assert.Equal(t, tt.precision, c.Precision())
		assert.Equal(t, tt.signed, c.IsSigned())
	}
}

func TestCodingStyleDefault_Accessors(t *testing.T) {
	cs := CodingStyleDefault{
		NumDecompositions:  5,
		CodeBlockWidthExp:  4,
		CodeBlockHeightExp: 3,
		WaveletTransform:   1,
	}
	assert.Equal(t, 64, cs.CodeBlockWidth())
	assert.Equal(t, 32, cs.CodeBlockHeight())
	assert.Equal(t, 6, cs.NumResolutions())
	assert.True(t, cs.IsReversible())

	cs.WaveletTransform = 0
	assert.False(t, cs.IsReversible())
}

func TestQuantizationDefault_Accessors(t *testing.T) {
	q := QuantizationDefault{QuantizationStyle: QuantizationScalarDerived, NumGuardBits: 2}
	assert.Equal(t, QuantizationScalarDerived, q.Style())
	assert.Equal(t, 2, q.GuardBits())
}

func TestStepSize_Value(t *testing.T) {
	// Value = (1 + mu/2^11) * 2^(31-eps): exponent 31 is the unit
	// step, and a mantissa of 1024 adds exactly half.
	s := StepSize{Exponent: 31, Mantissa: 0}
	assert.InDelta(t, 1.0, s.Value(), 1e-9)

	s2 := StepSize{Exponent: 31, Mantissa: 1024}
	assert.InDelta(t, 1.5, s2.Value(), 1e-9)

	s3 := StepSize{Exponent: 30, Mantissa: 0}
	assert.InDelta(t, 2.0, s3.Value(), 1e-9)
}

func TestPrecinctSize_Dimensions(t *testing.T) {
	p := PrecinctSize{WidthExp: 5, HeightExp: 15}
	assert.Equal(t, 32, p.Width())
	assert.Equal(t, 32768, p.Height())
}

func TestHeader_Validate(t *testing.T) {
	valid := func() *Header {
		return &Header{
			ImageWidth: 64, ImageHeight: 64,
			TileWidth: 64, TileHeight: 64,
			NumComponents: 1,
			ComponentInfo: []ComponentInfo{{BitDepth: 7, SubsamplingX: 1, SubsamplingY: 1}},
		}
	}
	require.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Header)
	}{
		{"zero width", func(h *Header) { h.ImageWidth = 0 }},
		{"zero height", func(h *Header) { h.ImageHeight = 0 }},
		{"zero tile width", func(h *Header) { h.TileWidth = 0 }},
		{"zero tile height", func(h *Header) { h.TileHeight = 0 }},
		{"zero components", func(h *Header) { h.NumComponents = 0 }},
		{"too many components", func(h *Header) { h.NumComponents = 16385 }},
		{"component info mismatch", func(h *Header) { h.NumComponents = 2 }},
		{"zero subsampling", func(h *Header) { h.ComponentInfo[0].SubsamplingY = 0 }},
		{"precision over 38", func(h *Header) { h.ComponentInfo[0].BitDepth = 0x3F }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid()
			tt.mutate(h)
			assert.Error(t, h.Validate())
		})
	}
}

func TestHeader_CalculateDerivedValues(t *testing.T) {
	tests := []struct {
		name                     string
		imgW, imgH, tileW, tileH uint32
		wantX, wantY             uint32
	}{
		{"single tile", 64, 64, 64, 64, 1, 1},
		{"exact grid", 256, 128, 64, 64, 4, 2},
		{"remainder tiles", 100, 60, 32, 32, 4, 2},
		{"tile larger than image", 10, 10, 64, 64, 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &Header{ImageWidth: tt.imgW, ImageHeight: tt.imgH,
				TileWidth: tt.tileW, TileHeight: tt.tileH}
			h.CalculateDerivedValues()
			assert.Equal(t, tt.wantX, h.NumTilesX)
			assert.Equal(t, tt.wantY, h.NumTilesY)
		})
	}
}

func TestParser_ReadHeader_Minimal(t *testing.T) {
	parser := NewParser(bytes.NewReader(minimalHeader()))
	header, err := parser.ReadHeader()
	require.NoError(t, err)

	assert.Equal(t, uint32(8), header.ImageWidth)
	assert.Equal(t, uint32(8), header.ImageHeight)
	assert.Equal(t, uint16(1), header.NumComponents)
	assert.Equal(t, uint8(5), header.CodingStyle.NumDecompositions)
	assert.True(t, header.CodingStyle.IsReversible())
	assert.Equal(t, QuantizationScalarDerived, header.Quantization.Style())
	assert.Equal(t, 2, header.Quantization.GuardBits())
	assert.Same(t, header, parser.Header())
	assert.False(t, header.IsHTJ2K())
}

func TestParser_ReadHeader_MissingSOC(t *testing.T) {
	b := &codestreamBuilder{}
	b.siz(1)
	_, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	assert.Error(t, err)
}

func TestParser_ReadHeader_EmptyStream(t *testing.T) {
	_, err := NewParser(bytes.NewReader(nil)).ReadHeader()
	assert.Error(t, err)
}

func TestParser_ReadHeader_TruncatedSIZ(t *testing.T) {
	data := minimalHeader()
	_, err := NewParser(bytes.NewReader(data[:10])).ReadHeader()
	assert.Error(t, err)
}

func TestParser_ReadHeader_UnknownMarkerSkippedAndRecorded(t *testing.T) {
	// An unknown 0xFF3C segment between COD and QCD must be skipped by
	// its length field and surface on UnknownMarkers.
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod()
	b.marker(Marker(0xFF3C)).u16(6).u32(0xDEADBEEF)
	b.qcd().marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	require.Len(t, header.UnknownMarkers, 1)
	assert.Equal(t, uint16(0xFF3C), header.UnknownMarkers[0])
	assert.Equal(t, QuantizationScalarDerived, header.Quantization.Style(),
		"QCD after the unknown segment must still parse")
}

func TestParser_ReadCOC(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(2).cod().qcd()
	b.marker(COC)
	b.u16(9)
	b.bytes(1)       // component index (1 byte while Csiz < 257)
	b.bytes(0)       // Scoc
	b.bytes(3)       // decomposition levels
	b.bytes(4, 4, 0) // code-block exps, style
	b.bytes(1)       // wavelet
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	coc, ok := header.ComponentCodingStyles[1]
	require.True(t, ok)
	assert.Equal(t, uint8(3), coc.NumDecompositions)
	assert.Equal(t, uint8(1), coc.WaveletTransform)
}

func TestParser_ReadCOC_WithPrecincts(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(2).cod().qcd()
	b.marker(COC)
	b.u16(11)
	b.bytes(0)
	b.bytes(CodingStylePrecincts)
	b.bytes(1)          // decomposition levels
	b.bytes(4, 4, 0, 1) // exps, style, wavelet
	b.bytes(0x65, 0x87) // two precinct bytes
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	coc := header.ComponentCodingStyles[0]
	require.Len(t, coc.PrecinctSizes, 2)
	assert.Equal(t, uint8(5), coc.PrecinctSizes[0].WidthExp)
	assert.Equal(t, uint8(6), coc.PrecinctSizes[0].HeightExp)
	assert.Equal(t, uint8(7), coc.PrecinctSizes[1].WidthExp)
	assert.Equal(t, uint8(8), coc.PrecinctSizes[1].HeightExp)
}

func TestParser_ReadQCC(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(2).cod().qcd()
	b.marker(QCC)
	b.u16(6)
	b.bytes(1)    // component index
	b.bytes(0x41) // Sqcc: scalar derived, 2 guard bits
	b.u16(0x3800)
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	qcc, ok := header.ComponentQuantization[1]
	require.True(t, ok)
	assert.Equal(t, QuantizationScalarDerived, qcc.QuantizationStyle)
	assert.Equal(t, uint8(2), qcc.NumGuardBits)
	require.Len(t, qcc.StepSizes, 1)
	assert.Equal(t, uint8(7), qcc.StepSizes[0].Exponent)
}

func TestParser_ReadPOC(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd()
	b.marker(POC)
	b.u16(2 + 7) // one 7-byte entry (Csiz < 257)
	b.bytes(0)   // RSpoc
	b.bytes(0)   // CSpoc
	b.u16(1)     // LYEpoc
	b.bytes(6)   // REpoc
	b.bytes(1)   // CEpoc
	b.bytes(2)   // Ppoc = RPCL
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	require.Len(t, header.ProgressionOrderChanges, 1)
	poc := header.ProgressionOrderChanges[0]
	assert.Equal(t, uint16(1), poc.LayerEnd)
	assert.Equal(t, uint8(6), poc.ResolutionEnd)
	assert.Equal(t, uint8(2), poc.ProgressionOrder)
}

func TestParser_ReadPOC_WideComponentIndices(t *testing.T) {
	// With 257+ components the component fields widen to 16 bits.
	b := &codestreamBuilder{}
	b.marker(SOC).siz(300).cod().qcd()
	b.marker(POC)
	b.u16(2 + 9)
	b.bytes(0)
	b.u16(5) // CSpoc, two bytes now
	b.u16(1)
	b.bytes(6)
	b.u16(299)
	b.bytes(0)
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	require.Len(t, header.ProgressionOrderChanges, 1)
	assert.Equal(t, uint16(5), header.ProgressionOrderChanges[0].ComponentStart)
	assert.Equal(t, uint16(299), header.ProgressionOrderChanges[0].ComponentEnd)
}

func TestParser_ReadTLM(t *testing.T) {
	tests := []struct {
		name       string
		stlm       byte
		entry      func(b *codestreamBuilder)
		entryLen   int
		wantIndex  uint16
		wantLength uint32
	}{
		{"explicit 16-bit index, 16-bit length", 0x20,
			func(b *codestreamBuilder) { b.u16(3).u16(1000) }, 4, 3, 1000},
		{"8-bit index, 32-bit length", 0x50,
			func(b *codestreamBuilder) { b.bytes(2).u32(70000) }, 5, 2, 70000},
		{"implicit index, 16-bit length", 0x00,
			func(b *codestreamBuilder) { b.u16(512) }, 2, 0, 512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &codestreamBuilder{}
			b.marker(SOC).siz(1).cod().qcd()
			b.marker(TLM)
			b.u16(uint16(4 + tt.entryLen))
			b.bytes(0, tt.stlm) // Ztlm, Stlm
			tt.entry(b)
			b.marker(SOT)

			header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
			require.NoError(t, err)
			require.Len(t, header.TileLengths, 1)
			assert.Equal(t, tt.wantIndex, header.TileLengths[0].TileIndex)
			assert.Equal(t, tt.wantLength, header.TileLengths[0].Length)
		})
	}
}

func TestParser_ReadTLM_InvalidST(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd()
	b.marker(TLM)
	b.u16(8)
	b.bytes(0, 0x30) // ST=3 is reserved
	b.u16(0).u16(0)
	b.marker(SOT)

	_, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	assert.Error(t, err)
}

func TestParser_ReadCOM_Latin1(t *testing.T) {
	text := "caf\xe9 codec" // Latin-1 e-acute
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd()
	b.marker(COM)
	b.u16(uint16(4 + len(text)))
	b.u16(CommentLatin1)
	b.bytes([]byte(text)...)
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, CommentLatin1, header.CommentType)
	assert.Equal(t, "café codec", header.Comment)
}

func TestParser_ReadCOM_BinaryNotDecoded(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd()
	b.marker(COM)
	b.u16(8)
	b.u16(CommentBinary)
	b.u32(0x00112233)
	b.marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, CommentBinary, header.CommentType)
	assert.Empty(t, header.Comment)
}

func TestParser_ReadCAP_SignalsHTJ2K(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1)
	b.marker(CAP)
	b.u16(6)
	b.u32(CapPcapHTJ2K)
	b.cod().qcd().marker(SOT)

	header, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	require.NoError(t, err)
	require.NotNil(t, header.Capabilities)
	assert.True(t, header.Capabilities.IsHTJ2K())
	assert.True(t, header.IsHTJ2K())
}

func TestHeader_IsHTJ2K_FromCodeBlockStyle(t *testing.T) {
	h := &Header{}
	assert.False(t, h.IsHTJ2K())

	h.CodingStyle.CodeBlockStyle = CodeBlockHT
	assert.True(t, h.IsHTJ2K())

	h2 := &Header{ComponentCodingStyles: map[uint16]CodingStyleComponent{
		0: {CodeBlockStyle: CodeBlockHT},
	}}
	assert.True(t, h2.IsHTJ2K())
}

// tilePartStream appends a SOT..SOD tile-part carrying the given
// in-header segments after the minimal main header.
func tilePartStream(between func(b *codestreamBuilder)) []byte {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd()
	b.marker(SOT)
	b.u16(10)
	b.u16(0)   // Isot
	b.u32(20)  // Psot
	b.bytes(0) // TPsot
	b.bytes(1) // TNsot
	if between != nil {
		between(b)
	}
	b.marker(SOD)
	return b.buf.Bytes()
}

func TestParser_ReadTilePartHeader(t *testing.T) {
	parser := NewParser(bytes.NewReader(tilePartStream(nil)))
	_, err := parser.ReadHeader()
	require.NoError(t, err)

	tph, err := parser.ReadTilePartHeader()
	require.NoError(t, err)
	assert.Equal(t, uint16(0), tph.TileIndex)
	assert.Equal(t, uint32(20), tph.TilePartLength)
	assert.Equal(t, uint8(0), tph.TilePartIndex)
	assert.Equal(t, uint8(1), tph.NumTileParts)
	assert.Nil(t, tph.CodingStyle, "no tile-level COD override present")
}

func TestParser_ReadTilePartHeader_WithOverrides(t *testing.T) {
	data := tilePartStream(func(b *codestreamBuilder) {
		// Tile-level COD override with 2 decomposition levels.
		b.marker(COD)
		b.u16(12)
		b.bytes(0, 0)
		b.u16(1)
		b.bytes(0, 2, 4, 4, 0, 1)
		// Tile-level QCD override.
		b.marker(QCD)
		b.u16(5)
		b.bytes(0x41)
		b.u16(0x2000)
	})

	parser := NewParser(bytes.NewReader(data))
	_, err := parser.ReadHeader()
	require.NoError(t, err)

	tph, err := parser.ReadTilePartHeader()
	require.NoError(t, err)
	require.NotNil(t, tph.CodingStyle)
	assert.Equal(t, uint8(2), tph.CodingStyle.NumDecompositions)
	require.NotNil(t, tph.Quantization)
	assert.Equal(t, QuantizationScalarDerived, tph.Quantization.Style())
}

func TestParser_ReadTilePartHeader_InvalidSOTLength(t *testing.T) {
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod().qcd()
	b.marker(SOT)
	b.u16(12) // must be 10

	parser := NewParser(bytes.NewReader(b.buf.Bytes()))
	_, err := parser.ReadHeader()
	require.NoError(t, err)
	_, err = parser.ReadTilePartHeader()
	assert.Error(t, err)
}

func TestParser_ReadTileData(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5}
	b := &codestreamBuilder{}
	b.buf.Write(tilePartStream(nil))
	b.bytes(payload...)

	parser := NewParser(bytes.NewReader(b.buf.Bytes()))
	_, err := parser.ReadHeader()
	require.NoError(t, err)
	_, err = parser.ReadTilePartHeader()
	require.NoError(t, err)

	got, err := parser.ReadTileData(len(payload))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestParser_PosTracksConsumedBytes(t *testing.T) {
	data := minimalHeader()
	parser := NewParser(bytes.NewReader(data))
	_, err := parser.ReadHeader()
	require.NoError(t, err)
	// ReadHeader stops after consuming the trailing SOT marker code.
	assert.Equal(t, len(data), parser.Pos())
}

func TestParser_ReadHeader_IOErrorMidStream(t *testing.T) {
	data := minimalHeader()
	for _, errAt := range []int{2, 6, 30, 45, len(data) - 2} {
		_, err := NewParser(&faultyReader{data: data, errAt: errAt}).ReadHeader()
		assert.Error(t, err, "read fault at byte %d must surface", errAt)
	}
}

func TestParser_SkipSegment_LengthTooSmall(t *testing.T) {
	// A reserved segment whose length field is below 2 cannot be
	// skipped coherently and must error rather than loop.
	b := &codestreamBuilder{}
	b.marker(SOC).siz(1).cod()
	b.marker(Marker(0xFF3C)).u16(1)
	b.qcd().marker(SOT)

	_, err := NewParser(bytes.NewReader(b.buf.Bytes())).ReadHeader()
	assert.Error(t, err)
}
