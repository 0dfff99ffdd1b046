package classify

import (
	"math"
	"strconv"
	"strings"

	"github.com/cortexmap/cortex/internal/classify/vocabulary"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

// Encode produces the deterministic 128-dim feature vector for one
// page (spec.md §4.8). Missing fields leave their dimension at 0 and
// their corresponding has_* flag clear in the returned NodeFlags;
// nothing here ever produces NaN or Inf (P1).
func Encode(s Signals, pageType mapmodel.PageType) (mapmodel.Feature, mapmodel.NodeFlags) {
	var f mapmodel.Feature
	var flags mapmodel.NodeFlags

	f.SetOneHot(pageType)

	if s.Page != nil {
		f[mapmodel.DimWordCount] = clampLog(float32(s.Page.Metrics.WordCount))
		f[mapmodel.DimHeadingCount] = float32(s.Page.Metrics.HeadingCount)
		f[mapmodel.DimImageCount] = float32(s.Page.Metrics.ImageCount)
		f[mapmodel.DimLinkDensity] = s.Page.Metrics.LinkDensity
		f[mapmodel.DimFormCount] = float32(len(s.Page.Forms))
	}

	encodeTopics(&f, bodyText(s))
	encodeCommerce(&f, &flags, s.Fields)
	encodeNavigation(&f, s)
	encodeTrust(&f, s)
	encodeActions(&f, s)
	encodeSession(&f, s)

	if s.Rendered {
		flags |= mapmodel.FlagRendered
	}
	if s.HTTPStatusOK {
		flags |= mapmodel.FlagHTTPStatusOK
	}
	if s.AuthRequired {
		flags |= mapmodel.FlagAuthRequired
	}

	return f, flags
}

func bodyText(s Signals) string {
	if s.Page == nil {
		return s.URL
	}
	var sb strings.Builder
	sb.WriteString(s.Page.Title)
	sb.WriteString(" ")
	sb.WriteString(s.Page.Description)
	return sb.String()
}

// encodeTopics fills the 16-dim TF-IDF block (dims 31-46) from the
// frozen vocabulary. Term frequency is a simple occurrence count over
// the page's title+description, scaled by each topic's frozen IDF.
func encodeTopics(f *mapmodel.Feature, text string) {
	lower := strings.ToLower(text)
	words := strings.Fields(lower)
	total := float32(len(words))
	if total == 0 {
		total = 1
	}

	for i, topic := range vocabulary.Topics {
		dim := mapmodel.DimTopicTFIDFStart + i
		if dim > mapmodel.DimTopicTFIDFEnd {
			break
		}
		var count float32
		for _, w := range topic.Words {
			count += float32(strings.Count(lower, w))
		}
		f[dim] = (count / total) * topic.IDF
	}
}

func encodeCommerce(f *mapmodel.Feature, flags *mapmodel.NodeFlags, fields map[string]string) {
	if v, ok := parseFloatField(fields, "price"); ok {
		f[mapmodel.DimPrice] = v
		*flags |= mapmodel.FlagHasPrice
	}
	if v, ok := parseFloatField(fields, "original_price"); ok {
		f[mapmodel.DimOriginalPrice] = v
	}
	if v, ok := parseFloatField(fields, "rating"); ok {
		f[mapmodel.DimRating] = v / 5.0 // normalize common 5-star scale to [0,1]
		*flags |= mapmodel.FlagHasRating
	}
	if v, ok := parseFloatField(fields, "review_count"); ok {
		f[mapmodel.DimReviewCount] = v
	}
	if avail, ok := fields["availability"]; ok {
		if strings.Contains(strings.ToLower(avail), "instock") {
			f[mapmodel.DimAvailability] = 1.0
		} else {
			f[mapmodel.DimAvailability] = 0.0
		}
	}
}

func parseFloatField(fields map[string]string, key string) (float32, bool) {
	raw, ok := fields[key]
	if !ok {
		return 0, false
	}
	raw = strings.TrimLeft(strings.TrimSpace(raw), "$€£")
	raw = strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(raw, 32)
	if err != nil {
		return 0, false
	}
	return float32(v), true
}

func encodeNavigation(f *mapmodel.Feature, s Signals) {
	if s.Page != nil {
		f[mapmodel.DimOutboundLinks] = clampLog(float32(len(s.Page.NavTargets)))
	}
	f[mapmodel.DimSearchAvailable] = boolFeature(hasSearchForm(s))
}

func hasSearchForm(s Signals) bool {
	if s.Page == nil {
		return false
	}
	for _, form := range s.Page.Forms {
		if strings.Contains(strings.ToLower(form.Action), "search") {
			return true
		}
	}
	return false
}

func encodeTrust(f *mapmodel.Feature, s Signals) {
	f[mapmodel.DimTLS] = boolFeature(s.TLS)
}

func encodeActions(f *mapmodel.Feature, s Signals) {
	safe, cautious, destructive := s.ActionCounts()
	total := float32(safe + cautious + destructive)
	f[mapmodel.DimActionCount] = float32(total)
	if total > 0 {
		f[mapmodel.DimSafeActionRatio] = float32(safe) / total
		f[mapmodel.DimCautiousActionRatio] = float32(cautious) / total
		f[mapmodel.DimDestructiveRatio] = float32(destructive) / total
	}
	f[mapmodel.DimAuthRequired] = boolFeature(s.AuthRequired)
}

// encodeSession leaves dims 112-127 at zero: Cortex never observes an
// authenticated session during acquisition, so there is no session
// data to encode. The dims exist for the privacy-stripping contract
// (I6) and are populated only by a hypothetical authenticated crawl
// mode, which is out of scope (spec.md §1 Non-goals).
func encodeSession(f *mapmodel.Feature, s Signals) {}

func boolFeature(b bool) float32 {
	if b {
		return 1.0
	}
	return 0.0
}

// clampLog compresses unbounded counts (word count, link count) into a
// roughly [0, ~10] range so outlier pages don't dominate cosine
// similarity; log1p keeps zero at zero.
func clampLog(v float32) float32 {
	if v <= 0 {
		return 0
	}
	return float32(math.Log1p(float64(v)))
}
