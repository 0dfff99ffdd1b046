package mapmodel

// FeatureDims is the fixed width of every node's feature vector.
const FeatureDims = 128

// Feature dimension assignments, normative per spec.md §3 and §6.
// Groups: identity (0-15), content (16-47), commerce (48-63),
// navigation (64-79), trust/safety (80-95), actions (96-111),
// session (112-127).
//
// Dims 0-15 are entirely the PageType one-hot (there are exactly sixteen
// page types, so the one-hot fills the block — see PageType.OneHotIndex).
// Per-node confidence is carried on the Map's separate confidence[]
// array rather than duplicated inside the vector; url-depth and
// load-time are not stored in the Map, and authority has only the
// trust-block slot DimAuthorityScore. This keeps invariant I2 ("dims 0-15
// include a one-hot ... consistent with that field") satisfiable for
// every one of the sixteen values without reserving slots two different
// ways.
const (
	// 16-21: content metrics. 22-30 reserved, left zero.
	DimWordCount    = 16
	DimHeadingCount = 17
	DimImageCount   = 18
	DimLinkDensity  = 19
	DimFormCount    = 20
	DimTableCount   = 21

	// 31-46: topic TF-IDF (16-dim, frozen vocabulary)
	DimTopicTFIDFStart = 31
	DimTopicTFIDFEnd   = 46 // inclusive

	// 48-63: commerce
	DimPrice         = 48
	DimOriginalPrice = 49
	DimDiscount      = 50
	DimAvailability  = 51
	DimRating        = 52
	DimReviewCount   = 53
	DimShipping      = 54
	DimSellerRep     = 55

	// 64-79: navigation
	DimOutboundLinks   = 64
	DimPaginationDepth = 65
	DimBreadcrumbDepth = 66
	DimNavItems        = 67
	DimSearchAvailable = 68
	DimFilterCount     = 69
	DimSortOptions     = 70

	// 80-95: trust/safety
	DimTLS                  = 80
	DimDomainAge            = 81
	DimPIIExposure          = 82
	DimTrackerCount         = 83
	DimAuthorityScore       = 84
	DimDarkPatternIndicator = 85

	// 96-111: actions
	DimActionCount         = 96
	DimSafeActionRatio     = 97
	DimCautiousActionRatio = 98
	DimDestructiveRatio    = 99
	DimAuthRequired        = 100
	DimFormCompleteness    = 101

	// 112-127: session (must be zeroed when privacy-stripped, I6/P4)
	DimLoginState      = 112
	DimSessionDuration = 113
	DimCartValue       = 114
	DimABVariant       = 115

	SessionDimsStart = 112
	SessionDimsEnd   = 127 // inclusive
)

// Feature is a fixed-width 128-dimension f32 vector.
type Feature [FeatureDims]float32

// ZeroSessionDims clears dimensions 112-127 in place, implementing the
// privacy-stripping contract (spec.md I6/P4).
func (f *Feature) ZeroSessionDims() {
	for i := SessionDimsStart; i <= SessionDimsEnd; i++ {
		f[i] = 0
	}
}

// AllFinite reports whether every dimension is a finite float (P1).
func (f Feature) AllFinite() bool {
	for _, v := range f {
		if isNaNOrInf(v) {
			return false
		}
	}
	return true
}

// SetOneHot zeroes dims 0-15 and sets the one active page-type dimension.
func (f *Feature) SetOneHot(pt PageType) {
	for i := 0; i < 16; i++ {
		f[i] = 0
	}
	if idx := pt.OneHotIndex(); idx >= 0 {
		f[idx] = 1.0
	}
}

func isNaNOrInf(v float32) bool {
	return v != v || v > 3.4e38 || v < -3.4e38
}
