package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

func TestEncodeSetsOneHot(t *testing.T) {
	f, _ := Encode(Signals{URL: "https://example.com/"}, mapmodel.PageTypeHome)
	idx := mapmodel.PageTypeHome.OneHotIndex()
	require.GreaterOrEqual(t, idx, 0)
	assert.Equal(t, float32(1.0), f[idx])
	for i := 0; i < 16; i++ {
		if i != idx {
			assert.Equal(t, float32(0), f[i])
		}
	}
}

func TestEncodeCommerceFieldsSetFlags(t *testing.T) {
	s := Signals{
		URL:    "https://shop.example.com/products/mouse",
		Fields: map[string]string{"price": "$29.99", "rating": "4.5", "availability": "InStock"},
	}
	f, flags := Encode(s, mapmodel.PageTypeProductDetail)

	assert.InDelta(t, 29.99, f[mapmodel.DimPrice], 0.01)
	assert.InDelta(t, 0.9, f[mapmodel.DimRating], 0.01)
	assert.Equal(t, float32(1.0), f[mapmodel.DimAvailability])
	assert.True(t, flags.Has(mapmodel.FlagHasPrice))
	assert.True(t, flags.Has(mapmodel.FlagHasRating))
}

func TestEncodeMissingFieldsLeaveFlagsClear(t *testing.T) {
	f, flags := Encode(Signals{URL: "https://example.com/about"}, mapmodel.PageTypeOther)
	assert.Equal(t, float32(0), f[mapmodel.DimPrice])
	assert.False(t, flags.Has(mapmodel.FlagHasPrice))
}

func TestEncodeAllFinite(t *testing.T) {
	s := Signals{
		URL: "https://example.com/",
		Page: &extract.StructuredPage{
			Metrics: extract.TextMetrics{WordCount: 5000, HeadingCount: 3, ImageCount: 40, LinkCount: 200},
		},
		Fields: map[string]string{"price": "not-a-number"},
	}
	f, _ := Encode(s, mapmodel.PageTypeHome)
	assert.True(t, f.AllFinite())
}

func TestEncodeSessionDimsZero(t *testing.T) {
	f, _ := Encode(Signals{URL: "https://example.com/"}, mapmodel.PageTypeHome)
	for i := mapmodel.SessionDimsStart; i <= mapmodel.SessionDimsEnd; i++ {
		assert.Equal(t, float32(0), f[i])
	}
}
