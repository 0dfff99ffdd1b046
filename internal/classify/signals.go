// Package classify implements Cortex's Page Classifier + Feature
// Encoder (spec.md §4.8): weighted PageType scoring over URL/structured
// signals, and a deterministic 128-dim feature encoder.
package classify

import (
	"github.com/cortexmap/cortex/internal/acquisition/extract"
	"github.com/cortexmap/cortex/internal/mapmodel"
)

// Signals is the full set of per-page evidence the classifier and
// encoder consume. It is assembled by the Mapper from every
// acquisition layer's output before this package ever runs.
type Signals struct {
	URL          string
	FinalURL     string
	Page         *extract.StructuredPage
	Fields       map[string]string // merged Layer 1 + patterndb fields, price/rating/availability/...
	Actions      []mapmodel.Action
	Rendered     bool
	HTTPStatusOK bool
	AuthRequired bool
	TLS          bool
	LoadTimeMS   float64
	URLDepth     int
}

// ActionCounts summarizes Signals.Actions by risk tier, feeding the
// action-ratio feature dims (97-99).
func (s Signals) ActionCounts() (safe, cautious, destructive int) {
	for _, a := range s.Actions {
		switch a.Category.Risk(a.Variant) {
		case mapmodel.RiskSafe:
			safe++
		case mapmodel.RiskCautious:
			cautious++
		case mapmodel.RiskDestructive:
			destructive++
		}
	}
	return
}

// HasBrowserRequiredAction reports whether discovery found at least one
// action Cortex can only invoke through the browser fallback.
func (s Signals) HasBrowserRequiredAction() bool {
	for _, a := range s.Actions {
		if a.BrowserRequired {
			return true
		}
	}
	return false
}
