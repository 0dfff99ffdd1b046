package mapmodel

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMap() *Map {
	m := &Map{
		Domain:        "example.com",
		CreatedAt:     time.UnixMilli(1700000000000).UTC(),
		FormatVersion: FormatVersion,
		DomainHash:    0xdeadbeefcafef00d,
		URL:           []string{"https://example.com/", "https://example.com/about"},
		PageType:      []PageType{PageTypeHome, PageTypeOther},
		Confidence:    []float32{0.92, 0.5},
		NodeFlags:     []NodeFlags{FlagHTTPStatusOK, FlagHTTPStatusOK},
		ActionSlice:   []ActionSlice{{Offset: 0, Length: 1}, {Offset: 1, Length: 0}},
		EdgeIndex:     []uint32{0, 1, 1},
		Edges: []Edge{
			{Target: 1, Weight: 1.0, Kind: EdgeKindLink, HasAction: false},
		},
		Actions: []Action{
			{Category: ActionCategoryNavigate, Variant: VariantNavigateLink, SelectorOrEndpoint: "a.nav"},
		},
	}
	m.Features = make([]Feature, 2)
	m.Features[0].SetOneHot(PageTypeHome)
	m.Features[1].SetOneHot(PageTypeOther)
	return m
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	m := sampleMap()
	data, err := m.Encode()
	require.NoError(t, err)

	got, err := Decode(data)
	require.NoError(t, err)

	assert.Equal(t, m.URL, got.URL)
	assert.Equal(t, m.PageType, got.PageType)
	assert.Equal(t, m.NodeFlags, got.NodeFlags)
	assert.Equal(t, m.EdgeIndex, got.EdgeIndex)
	assert.Equal(t, m.DomainHash, got.DomainHash)
	assert.InDelta(t, 0.92, got.Confidence[0], 0.01)
}

func TestEncodeDecodeByteIdentical(t *testing.T) {
	m := sampleMap()
	a, err := m.Encode()
	require.NoError(t, err)
	b, err := m.Encode()
	require.NoError(t, err)
	assert.Equal(t, a, b, "serialization must be deterministic (P10)")
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	m := sampleMap()
	data, err := m.Encode()
	require.NoError(t, err)
	data[0] = 'X'

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestDecodeRejectsCRCMismatch(t *testing.T) {
	m := sampleMap()
	data, err := m.Encode()
	require.NoError(t, err)
	data[len(data)-1] ^= 0xFF

	_, err = Decode(data)
	assert.ErrorIs(t, err, ErrCRCMismatch)
}

func TestValidateAndEncodeRejectEdgeOutOfRange(t *testing.T) {
	m := sampleMap()
	m.Edges[0].Target = 99
	assert.ErrorIs(t, m.Validate(), ErrEdgeOutOfRange) // Encode calls Validate, so it refuses the map too
	_, encErr := m.Encode()
	require.Error(t, encErr)
}

func TestValidatePrivacyStripping(t *testing.T) {
	m := sampleMap()
	m.Features[0].ZeroSessionDims()
	m.Features[1].ZeroSessionDims()
	m.Flags |= MapFlagPrivacyStripped
	assert.NoError(t, m.Validate())

	m.Features[0][120] = 0.5
	assert.Error(t, m.Validate())
}

func TestValidateHasPriceInvariant(t *testing.T) {
	m := sampleMap()
	m.NodeFlags[0] |= FlagHasPrice
	m.Features[0][DimPrice] = -1
	assert.Error(t, m.Validate())

	m.Features[0][DimPrice] = 9.99
	assert.NoError(t, m.Validate())
}
