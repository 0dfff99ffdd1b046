package mapmodel

// PageType is the stable numeric classification of a node's page. Codes
// are normative (spec.md §3) and must never be renumbered.
type PageType uint8

const (
	PageTypeHome           PageType = 0x01
	PageTypeProductListing PageType = 0x02
	PageTypeSearchResults  PageType = 0x03
	PageTypeProductDetail  PageType = 0x04
	PageTypeCart           PageType = 0x05
	PageTypeArticle        PageType = 0x06
	PageTypeDocumentation  PageType = 0x07
	PageTypeLogin          PageType = 0x08
	PageTypeCheckout       PageType = 0x09
	PageTypeProfile        PageType = 0x0A
	PageTypeAPIEndpoint    PageType = 0x0B
	PageTypeMedia          PageType = 0x0C
	PageTypeForm           PageType = 0x0D
	PageTypeDashboard      PageType = 0x0E
	PageTypeError          PageType = 0x0F
	PageTypeOther          PageType = 0x10
)

// AllPageTypes lists every PageType in enum order, used for classifier
// tie-breaking and the one-hot feature block.
var AllPageTypes = []PageType{
	PageTypeHome, PageTypeProductListing, PageTypeSearchResults, PageTypeProductDetail,
	PageTypeCart, PageTypeArticle, PageTypeDocumentation, PageTypeLogin,
	PageTypeCheckout, PageTypeProfile, PageTypeAPIEndpoint, PageTypeMedia,
	PageTypeForm, PageTypeDashboard, PageTypeError, PageTypeOther,
}

func (pt PageType) String() string {
	switch pt {
	case PageTypeHome:
		return "Home"
	case PageTypeProductListing:
		return "ProductListing"
	case PageTypeSearchResults:
		return "SearchResults"
	case PageTypeProductDetail:
		return "ProductDetail"
	case PageTypeCart:
		return "Cart"
	case PageTypeArticle:
		return "Article"
	case PageTypeDocumentation:
		return "Documentation"
	case PageTypeLogin:
		return "Login"
	case PageTypeCheckout:
		return "Checkout"
	case PageTypeProfile:
		return "Profile"
	case PageTypeAPIEndpoint:
		return "ApiEndpoint"
	case PageTypeMedia:
		return "Media"
	case PageTypeForm:
		return "Form"
	case PageTypeDashboard:
		return "Dashboard"
	case PageTypeError:
		return "Error"
	default:
		return "Other"
	}
}

// ParsePageType looks up a PageType by its String() name, for decoding
// service requests. ok is false for any name outside the 16 normative
// values.
func ParsePageType(name string) (pt PageType, ok bool) {
	for _, v := range AllPageTypes {
		if v.String() == name {
			return v, true
		}
	}
	return 0, false
}

// Valid reports whether pt is one of the 16 normative codes.
func (pt PageType) Valid() bool {
	return pt >= PageTypeHome && pt <= PageTypeOther
}

// OneHotIndex returns this PageType's position in the one-hot block
// (feature dims 0-15), which follows enum declaration order.
func (pt PageType) OneHotIndex() int {
	for i, v := range AllPageTypes {
		if v == pt {
			return i
		}
	}
	return -1
}
