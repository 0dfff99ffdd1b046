package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/cortexmap/cortex/internal/acquisition/extract"
)

func TestURLDepthRoot(t *testing.T) {
	assert.Equal(t, 0, urlDepth("https://example.com/", "example.com"))
	assert.Equal(t, 0, urlDepth("https://example.com", "example.com"))
}

func TestURLDepthNested(t *testing.T) {
	assert.Equal(t, 2, urlDepth("https://example.com/a/b", "example.com"))
}

func TestNeedsBrowserWhenNoPage(t *testing.T) {
	res := &pipelineResult{Fields: map[string]string{}}
	assert.True(t, needsBrowser(res))
}

func TestNeedsBrowserWhenCoverageLow(t *testing.T) {
	res := &pipelineResult{
		Page:   &extract.StructuredPage{NavTargets: []string{"https://example.com/a"}},
		Fields: map[string]string{},
	}
	assert.True(t, needsBrowser(res))
}

func TestNeedsBrowserFalseWhenCoverageHigh(t *testing.T) {
	res := &pipelineResult{
		Page: &extract.StructuredPage{NavTargets: []string{"https://example.com/a"}},
		Fields: map[string]string{
			"title": "x", "description": "y", "price": "1", "availability": "InStock", "rating": "4",
		},
	}
	assert.False(t, needsBrowser(res))
}

func TestNeedsBrowserTrueOnEmptySPA(t *testing.T) {
	res := &pipelineResult{
		Page: &extract.StructuredPage{},
		Fields: map[string]string{
			"title": "x", "description": "y", "price": "1", "availability": "InStock", "rating": "4",
		},
	}
	assert.True(t, needsBrowser(res))
}

func TestMergeFieldsTitleAndDescriptionOverwrite(t *testing.T) {
	// A later mergeFields call (e.g. the Browser Fallback re-extraction)
	// supersedes title/description from an earlier, lower-fidelity pass.
	dst := map[string]string{"title": "stale"}
	page := &extract.StructuredPage{Title: "fresh", Fields: map[string]string{"price": "9.99"}}
	mergeFields(dst, page)
	assert.Equal(t, "fresh", dst["title"])
	assert.Equal(t, "9.99", dst["price"])
}

func TestMergeFieldsLeavesOtherFieldsIfPresent(t *testing.T) {
	dst := map[string]string{"price": "1.00"}
	page := &extract.StructuredPage{Fields: map[string]string{"price": "2.00"}}
	mergeFields(dst, page)
	assert.Equal(t, "1.00", dst["price"]) // non-title/description fields never overwritten
}

func TestFlattenHeadersTakesFirstValue(t *testing.T) {
	h := map[string][]string{"Server": {"nginx", "extra"}}
	flat := flattenHeaders(h)
	assert.Equal(t, "nginx", flat["Server"])
}
