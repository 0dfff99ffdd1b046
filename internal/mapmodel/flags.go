package mapmodel

// NodeFlags is a bitset of per-node observation/status markers, packed as
// u32 in the binary format.
type NodeFlags uint32

const (
	FlagRendered               NodeFlags = 1 << iota // page required Browser Fallback
	FlagHTTPStatusOK                                  // final status was 2xx
	FlagAuthRequired                                  // 401/403 encountered
	FlagHasPrice                                      // commerce price signal present
	FlagHasRating                                     // rating signal present
	FlagHasMedia                                      // image/video content detected
	FlagBlocked                                       // all fetch attempts exhausted without a usable response
	FlagEstimated                                     // signals derived from URL/context heuristics, not fetched content
	FlagCookieBannerDismissed                         // Browser Fallback auto-dismissed a consent overlay
)

// MapFlags is a bitset of whole-Map markers, packed into the binary
// header's flags field.
type MapFlags uint16

const (
	MapFlagPartial          MapFlags = 1 << iota // budget tripped before discovery exhausted
	MapFlagPrivacyStripped                        // session dims (112-127) zeroed for export
	MapFlagHasClusters                            // optional clusters section present
)

// Has reports whether all bits in mask are set.
func (f NodeFlags) Has(mask NodeFlags) bool { return f&mask == mask }

// Has reports whether all bits in mask are set.
func (f MapFlags) Has(mask MapFlags) bool { return f&mask == mask }
