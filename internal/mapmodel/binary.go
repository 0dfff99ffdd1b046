package mapmodel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"math"
	"time"
)

const headerSize = 64
const reservedSize = 28

// Encode serializes m to the .ctx binary format (spec.md §6). The result
// is deterministic for identical input (P10): field order and byte
// layout never depend on map iteration order.
func (m *Map) Encode() ([]byte, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("mapmodel: refusing to encode invalid map: %w", err)
	}

	var body bytes.Buffer

	// url-string table
	for _, u := range m.URL {
		writeString(&body, u)
	}
	// page_type[]
	for _, pt := range m.PageType {
		body.WriteByte(byte(pt))
	}
	// confidence[], scaled 0..=250
	for _, c := range m.Confidence {
		body.WriteByte(scaleConfidence(c))
	}
	// flags[]
	var u32buf [4]byte
	for _, fl := range m.NodeFlags {
		binary.LittleEndian.PutUint32(u32buf[:], uint32(fl))
		body.Write(u32buf[:])
	}
	// features[], fixed stride 128 f32
	for _, f := range m.Features {
		for _, v := range f {
			binary.LittleEndian.PutUint32(u32buf[:], math.Float32bits(v))
			body.Write(u32buf[:])
		}
	}
	// action_slice[], two u32 per node
	for _, s := range m.ActionSlice {
		binary.LittleEndian.PutUint32(u32buf[:], s.Offset)
		body.Write(u32buf[:])
		binary.LittleEndian.PutUint32(u32buf[:], s.Length)
		body.Write(u32buf[:])
	}
	// edge_index[]
	for _, idx := range m.EdgeIndex {
		binary.LittleEndian.PutUint32(u32buf[:], idx)
		body.Write(u32buf[:])
	}
	// edges[]: u32 target | u16 kind | f32 weight | u8 action_ref
	var u16buf [2]byte
	for _, e := range m.Edges {
		binary.LittleEndian.PutUint32(u32buf[:], e.Target)
		body.Write(u32buf[:])
		binary.LittleEndian.PutUint16(u16buf[:], uint16(e.Kind))
		body.Write(u16buf[:])
		binary.LittleEndian.PutUint32(u32buf[:], math.Float32bits(e.Weight))
		body.Write(u32buf[:])
		body.WriteByte(encodeActionRef(e))
	}
	// actions[]
	for _, a := range m.Actions {
		body.WriteByte(byte(a.Category))
		body.WriteByte(byte(a.Variant))
		if a.BrowserRequired {
			body.WriteByte(1)
		} else {
			body.WriteByte(0)
		}
		writeString(&body, a.SelectorOrEndpoint)
		writeString(&body, a.ParamsSchema)
	}
	// optional clusters section
	if m.Flags.Has(MapFlagHasClusters) {
		for _, cid := range m.ClusterID {
			binary.LittleEndian.PutUint32(u32buf[:], cid)
			body.Write(u32buf[:])
		}
		binary.LittleEndian.PutUint32(u32buf[:], uint32(len(m.Centroid)))
		body.Write(u32buf[:])
		for _, c := range m.Centroid {
			for _, v := range c {
				binary.LittleEndian.PutUint32(u32buf[:], math.Float32bits(v))
				body.Write(u32buf[:])
			}
		}
	}

	header := make([]byte, headerSize)
	copy(header[0:4], Magic[:])
	binary.LittleEndian.PutUint16(header[4:6], m.FormatVersion)
	binary.LittleEndian.PutUint16(header[6:8], uint16(m.Flags))
	binary.LittleEndian.PutUint32(header[8:12], uint32(m.NodeCount()))
	binary.LittleEndian.PutUint32(header[12:16], uint32(m.EdgeCount()))
	binary.LittleEndian.PutUint32(header[16:20], uint32(m.ActionCount()))
	binary.LittleEndian.PutUint64(header[20:28], uint64(m.CreatedAt.UnixMilli()))
	binary.LittleEndian.PutUint64(header[28:36], m.DomainHash)
	// bytes 36:64 reserved, left zero

	var out bytes.Buffer
	out.Grow(headerSize + body.Len() + 4)
	out.Write(header)
	out.Write(body.Bytes())

	crc := crc32.ChecksumIEEE(out.Bytes())
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	out.Write(crcBuf[:])

	return out.Bytes(), nil
}

// Decode parses a .ctx file. Per spec.md §7, the Map is rejected outright
// on any invariant violation: no Map is returned with the error. Bad
// magic, unsupported version, CRC mismatch, truncation, wrong feature
// width and out-of-range edge targets are wrapped sentinel errors that
// IsCorrupt recognizes; a decoded Map that then fails Validate for
// another reason returns Validate's plain error.
func Decode(data []byte) (*Map, error) {
	if len(data) < headerSize+4 {
		return nil, ErrTruncated
	}

	trailerCRC := binary.LittleEndian.Uint32(data[len(data)-4:])
	computed := crc32.ChecksumIEEE(data[:len(data)-4])
	if computed != trailerCRC {
		return nil, ErrCRCMismatch
	}

	header := data[:headerSize]
	if !bytes.Equal(header[0:4], Magic[:]) {
		return nil, ErrBadMagic
	}
	formatVersion := binary.LittleEndian.Uint16(header[4:6])
	if formatVersion != FormatVersion {
		return nil, ErrUnsupportedVer
	}
	flags := MapFlags(binary.LittleEndian.Uint16(header[6:8]))
	nodeCount := binary.LittleEndian.Uint32(header[8:12])
	edgeCount := binary.LittleEndian.Uint32(header[12:16])
	actionCount := binary.LittleEndian.Uint32(header[16:20])
	createdAtMs := int64(binary.LittleEndian.Uint64(header[20:28]))
	domainHash := binary.LittleEndian.Uint64(header[28:36])

	r := bytes.NewReader(data[headerSize : len(data)-4])
	m := &Map{
		FormatVersion: formatVersion,
		Flags:         flags,
		DomainHash:    domainHash,
		CreatedAt:     time.UnixMilli(createdAtMs).UTC(),
	}

	n := int(nodeCount)
	m.URL = make([]string, n)
	for i := range m.URL {
		s, err := readString(r)
		if err != nil {
			return nil, fmt.Errorf("%w: url[%d]: %v", ErrTruncated, i, err)
		}
		m.URL[i] = s
	}

	m.PageType = make([]PageType, n)
	for i := range m.PageType {
		b, err := r.ReadByte()
		if err != nil {
			return nil, ErrTruncated
		}
		m.PageType[i] = PageType(b)
	}

	m.Confidence = make([]float32, n)
	for i := range m.Confidence {
		b, err := r.ReadByte()
		if err != nil {
			return nil, ErrTruncated
		}
		m.Confidence[i] = unscaleConfidence(b)
	}

	m.NodeFlags = make([]NodeFlags, n)
	for i := range m.NodeFlags {
		v, err := readU32(r)
		if err != nil {
			return nil, ErrTruncated
		}
		m.NodeFlags[i] = NodeFlags(v)
	}

	m.Features = make([]Feature, n)
	for i := range m.Features {
		for d := 0; d < FeatureDims; d++ {
			v, err := readU32(r)
			if err != nil {
				return nil, fmt.Errorf("%w: feature[%d][%d]", ErrBadDimensions, i, d)
			}
			m.Features[i][d] = math.Float32frombits(v)
		}
	}

	m.ActionSlice = make([]ActionSlice, n)
	for i := range m.ActionSlice {
		off, err1 := readU32(r)
		length, err2 := readU32(r)
		if err1 != nil || err2 != nil {
			return nil, ErrTruncated
		}
		m.ActionSlice[i] = ActionSlice{Offset: off, Length: length}
	}

	m.EdgeIndex = make([]uint32, n+1)
	for i := range m.EdgeIndex {
		v, err := readU32(r)
		if err != nil {
			return nil, ErrTruncated
		}
		m.EdgeIndex[i] = v
	}

	m.Edges = make([]Edge, edgeCount)
	for i := range m.Edges {
		target, err1 := readU32(r)
		kind, err2 := readU16(r)
		weightBits, err3 := readU32(r)
		refByte, err4 := r.ReadByte()
		if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
			return nil, ErrTruncated
		}
		if target >= nodeCount {
			return nil, fmt.Errorf("%w: edge %d targets %d, node_count=%d", ErrEdgeOutOfRange, i, target, nodeCount)
		}
		ref, hasRef := decodeActionRef(refByte)
		m.Edges[i] = Edge{
			Target:    target,
			Kind:      EdgeKind(kind),
			Weight:    math.Float32frombits(weightBits),
			ActionRef: ref,
			HasAction: hasRef,
		}
	}

	m.Actions = make([]Action, actionCount)
	for i := range m.Actions {
		cat, err1 := r.ReadByte()
		variant, err2 := r.ReadByte()
		browserReq, err3 := r.ReadByte()
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, ErrTruncated
		}
		selector, err4 := readString(r)
		params, err5 := readString(r)
		if err4 != nil || err5 != nil {
			return nil, ErrTruncated
		}
		m.Actions[i] = Action{
			Category:           ActionCategory(cat),
			Variant:            ActionVariant(variant),
			BrowserRequired:    browserReq == 1,
			SelectorOrEndpoint: selector,
			ParamsSchema:       params,
		}
	}

	if flags.Has(MapFlagHasClusters) {
		m.ClusterID = make([]uint32, n)
		for i := range m.ClusterID {
			v, err := readU32(r)
			if err != nil {
				return nil, ErrTruncated
			}
			m.ClusterID[i] = v
		}
		clusterCount, err := readU32(r)
		if err != nil {
			return nil, ErrTruncated
		}
		m.Centroid = make([]Feature, clusterCount)
		for i := range m.Centroid {
			for d := 0; d < FeatureDims; d++ {
				v, err := readU32(r)
				if err != nil {
					return nil, ErrBadDimensions
				}
				m.Centroid[i][d] = math.Float32frombits(v)
			}
		}
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func writeString(w *bytes.Buffer, s string) {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], uint32(len(s)))
	w.Write(buf[:])
	w.WriteString(s)
}

func readString(r *bytes.Reader) (string, error) {
	n, err := readU32(r)
	if err != nil {
		return "", err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

func readU32(r *bytes.Reader) (uint32, error) {
	var buf [4]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

func readU16(r *bytes.Reader) (uint16, error) {
	var buf [2]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(buf[:]), nil
}

func scaleConfidence(c float32) byte {
	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return byte(c*250 + 0.5)
}

func unscaleConfidence(b byte) float32 {
	return float32(b) / 250
}

// encodeActionRef packs HasAction+ActionRef into a single byte: 0 means
// no action required; N+1 means ActionRef=N.
func encodeActionRef(e Edge) byte {
	if !e.HasAction {
		return 0
	}
	return e.ActionRef + 1
}

func decodeActionRef(b byte) (ref uint8, has bool) {
	if b == 0 {
		return 0, false
	}
	return b - 1, true
}
