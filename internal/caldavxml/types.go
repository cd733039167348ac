// Package caldavxml implements the namespace-aware CalDAV/WebDAV request
// parser: a push-down parser over encoding/xml's token stream (the
// idiomatic Go analogue of the source's expat callback state machine),
// mapping the closed element set in the glossary to a typed request
// record, plus the property-value validators PROPPATCH needs.
package caldavxml

const (
	NSDav          = "DAV:"
	NSCalDAV       = "urn:ietf:params:xml:ns:caldav"
	NSCalendarServ = "http://calendarserver.org/ns/"
	NSAppleICal    = "http://apple.com/ns/ical/"
)

// RequestType is the outermost recognised root element of a request body.
type RequestType int

const (
	TypeUnknown RequestType = iota
	TypePropfind
	TypeCalendarQuery
	TypeCalendarMultiget
	TypePropertyUpdate
)

func (t RequestType) String() string {
	switch t {
	case TypePropfind:
		return "PROPFIND"
	case TypeCalendarQuery:
		return "CALENDAR-QUERY"
	case TypeCalendarMultiget:
		return "CALENDAR-MULTIGET"
	case TypePropertyUpdate:
		return "PROPERTYUPDATE"
	default:
		return "UNKNOWN"
	}
}

// Validity is the outcome of running a property's registered validator.
type Validity int

const (
	NotValidated Validity = iota
	Valid
	Invalid
)

// PropertyOp distinguishes a PROPERTYUPDATE set from a remove. Neither
// <set> nor <remove> is in the closed element set (§4.4); they are
// unrecognized wrapper elements the parser walks through transparently.
// We still record which wrapper a property request was found under so
// PROPPATCH can tell a set from a remove.
type PropertyOp int

const (
	OpNone PropertyOp = iota
	OpSet
	OpRemove
)

// Property is one property request, in document order.
type Property struct {
	Tag       string // "{namespace}localname", or "unknown" if not recognized
	LocalName string
	Namespace string
	Value     string // set value, for PROPERTYUPDATE
	Op        PropertyOp
	Validity  Validity
}

// Request is the typed record produced by Parse.
type Request struct {
	Type       RequestType
	Properties []Property
	Hrefs      []string
}
