package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

func TestClassifyHomePage(t *testing.T) {
	pt, conf := Classify(Signals{URL: "https://shop.example.com/", HTTPStatusOK: true})
	assert.Equal(t, mapmodel.PageTypeHome, pt)
	assert.GreaterOrEqual(t, conf, float32(minNonOtherConfidence))
}

func TestClassifyProductDetailFromJSONLDAndFields(t *testing.T) {
	s := Signals{
		URL:          "https://shop.example.com/products/wireless-mouse",
		HTTPStatusOK: true,
		Fields:       map[string]string{"price": "29.99", "availability": "InStock"},
		Page: &extract.StructuredPage{
			TypeSignals: []extract.TypeSignal{{Value: "product", Source: "json-ld", Confidence: 0.95}},
		},
	}
	pt, conf := Classify(s)
	assert.Equal(t, mapmodel.PageTypeProductDetail, pt)
	assert.GreaterOrEqual(t, conf, float32(0.9))
}

func TestClassifyLowSignalCollapsesToOther(t *testing.T) {
	pt, _ := Classify(Signals{URL: "https://shop.example.com/xyz123", HTTPStatusOK: true})
	assert.Equal(t, mapmodel.PageTypeOther, pt)
}

func TestClassifyErrorStatus(t *testing.T) {
	pt, _ := Classify(Signals{URL: "https://shop.example.com/gone", HTTPStatusOK: false})
	assert.Equal(t, mapmodel.PageTypeError, pt)
}

func TestClassifyTieBreaksByEnumOrder(t *testing.T) {
	// Construct equal scores for two types via two json-ld signals of
	// equal confidence that map to different page types; Home (enum
	// position 0) must win over a later-declared type at equal score.
	s := Signals{
		URL: "https://shop.example.com/landing",
		Page: &extract.StructuredPage{
			TypeSignals: []extract.TypeSignal{
				{Value: "website", Source: "json-ld", Confidence: 0.5},
				{Value: "article", Source: "json-ld", Confidence: 0.5},
			},
		},
		HTTPStatusOK: true,
	}
	pt, _ := Classify(s)
	assert.Equal(t, mapmodel.PageTypeHome, pt)
}
