package mapmodel

import "errors"

// Binary codec errors - returned while decoding a .ctx file. Any of these
// means the Map is rejected outright and never partially used (spec.md §7
// "Invariant" error class).
var (
	ErrBadMagic       = errors.New("mapmodel: bad magic header")
	ErrUnsupportedVer = errors.New("mapmodel: unsupported format version")
	ErrCRCMismatch    = errors.New("mapmodel: crc32 mismatch")
	ErrBadDimensions  = errors.New("mapmodel: feature dimension count != 128")
	ErrEdgeOutOfRange = errors.New("mapmodel: edge target out of range")
	ErrTruncated      = errors.New("mapmodel: truncated data section")
)

// IsCorrupt reports whether err is one of the invariant-violation errors
// that should surface to callers as a CorruptMap response.
func IsCorrupt(err error) bool {
	switch {
	case errors.Is(err, ErrBadMagic),
		errors.Is(err, ErrUnsupportedVer),
		errors.Is(err, ErrCRCMismatch),
		errors.Is(err, ErrBadDimensions),
		errors.Is(err, ErrEdgeOutOfRange),
		errors.Is(err, ErrTruncated):
		return true
	default:
		return false
	}
}
