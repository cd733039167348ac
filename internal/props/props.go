// Package props is the property registry of §4.7: a static table keyed by
// the CalDAV/WebDAV property tag, each entry holding up to four
// serializers keyed by the requesting scope (principal, collection,
// resource, and the calendar-proxy-read/-write group pseudo-collections). A property with no serializer registered for the scope a
// PROPFIND/REPORT response is being built for is reported 404 for that
// scope, by the caller (internal/dav) rather than this package.
package props

import (
	"fmt"
	"strconv"

	"github.com/sonroyaalmerol/kcaldavd/internal/acl"
	"github.com/sonroyaalmerol/kcaldavd/internal/caldavxml"
	"github.com/sonroyaalmerol/kcaldavd/internal/storage"
	"github.com/sonroyaalmerol/kcaldavd/pkg/ical"
)

// Scope is the kind of target a PROPFIND/REPORT response entry describes.
type Scope int

const (
	ScopePrincipal Scope = iota
	ScopeCollection
	ScopeResource
	// ScopeProxyGroup is the virtual calendar-proxy-read/calendar-proxy-write
	// pseudo-collection (caldav-proxy draft): not a real storage.Collection,
	// it exists only to carry group-member-set for PROPFIND.
	ScopeProxyGroup
)

// Context carries everything a serializer might read. Not every field is
// populated for every scope; a serializer only looks at the fields that
// make sense for the scope(s) it is registered under.
type Context struct {
	BasePath string

	// Principal is the requested principal owning the collection/resource
	// (or, at principal scope, the target itself).
	Principal *storage.Principal
	// Collection is the target at collection scope, or the resource's
	// parent collection at resource scope.
	Collection *storage.Collection
	// Resource is the target at resource scope.
	Resource *storage.Resource

	// Effective is the acting principal's effective privileges over the
	// target, from internal/acl.Resolve.
	Effective acl.Effective

	// QuotaUsedBytes is the sum of stored resource sizes across all of
	// Principal's collections, computed by the caller (internal/dav) since
	// it requires a storage round-trip this package does not perform.
	QuotaUsedBytes int64

	// ProxyGroupBit selects which virtual group (READ or WRITE) a
	// ScopeProxyGroup target represents.
	ProxyGroupBit storage.ProxyBit
	// ProxyGroupMembers are the principal names granted ProxyGroupBit over
	// Principal, for group-member-set on a ScopeProxyGroup target.
	ProxyGroupMembers []string
}

func (c Context) principalHref() string {
	return joinHref(c.BasePath, c.Principal.Name) + "/"
}

func (c Context) collectionHref() string {
	return joinHref(c.BasePath, c.Principal.Name, c.Collection.URL) + "/"
}

func joinHref(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		out += "/" + p
	}
	if out == "" {
		return "/"
	}
	return out
}

// Serializer produces the property's value for one scope. ok is false if
// the property has no meaningful value for this particular target (still
// distinct from "not registered for this scope" — the caller only calls a
// Serializer that exists).
type Serializer func(ctx Context) (value any, ok bool)

type entry struct {
	principal  Serializer
	collection Serializer
	resource   Serializer
	proxyGroup Serializer
}

func (e entry) forScope(scope Scope) Serializer {
	switch scope {
	case ScopePrincipal:
		return e.principal
	case ScopeCollection:
		return e.collection
	case ScopeResource:
		return e.resource
	case ScopeProxyGroup:
		return e.proxyGroup
	default:
		return nil
	}
}

// Lookup returns the serializer registered for tag (in the
// "{namespace}localname" shape caldavxml.Property.Tag uses) at scope, or
// ok=false if none is registered — the 404 case of §4.7.
func Lookup(tag string, scope Scope) (Serializer, bool) {
	e, found := registry[tag]
	if !found {
		return nil, false
	}
	s := e.forScope(scope)
	return s, s != nil
}

func tag(ns, local string) string { return "{" + ns + "}" + local }

// resourcetypeValue is the DAV:resourcetype content: zero or more marker
// children, scope-dependent (§4.7).
type resourcetypeValue struct {
	Principal *struct{} `xml:"DAV: principal,omitempty"`
	Collection *struct{} `xml:"DAV: collection,omitempty"`
	Calendar  *struct{} `xml:"urn:ietf:params:xml:ns:caldav calendar,omitempty"`
}

type hrefValue struct {
	Href string `xml:"DAV: href"`
}

// hrefSetValue is a bare list of DAV:href children, used for the various
// proxy/group-membership properties (§4.7) that report zero or more
// principal hrefs with no other wrapping markup.
type hrefSetValue struct {
	Href []hrefValue `xml:"DAV: href"`
}

type calendarDataTypeValue struct {
	ContentType string `xml:"content-type,attr"`
	Version     string `xml:"version,attr"`
}

type supportedCalendarDataValue struct {
	CalendarData []calendarDataTypeValue `xml:"urn:ietf:params:xml:ns:caldav calendar-data"`
}

var supportedCalendarData = supportedCalendarDataValue{
	CalendarData: []calendarDataTypeValue{
		{ContentType: "text/calendar", Version: "2.0"},
	},
}

type privilegeSet struct {
	Privilege []privilegeValue `xml:"DAV: privilege"`
}

type privilegeValue struct {
	Read   *struct{} `xml:"DAV: read,omitempty"`
	Write  *struct{} `xml:"DAV: write,omitempty"`
	Bind   *struct{} `xml:"DAV: bind,omitempty"`
	Unbind *struct{} `xml:"DAV: unbind,omitempty"`
}

func privilegeSetFor(eff acl.Effective) privilegeSet {
	var ps privilegeSet
	if eff.CanRead() {
		ps.Privilege = append(ps.Privilege, privilegeValue{Read: &struct{}{}})
	}
	if eff.CanWrite() {
		ps.Privilege = append(ps.Privilege, privilegeValue{Write: &struct{}{}})
	}
	if eff.CanBind() {
		ps.Privilege = append(ps.Privilege, privilegeValue{Bind: &struct{}{}})
	}
	if eff.CanUnbind() {
		ps.Privilege = append(ps.Privilege, privilegeValue{Unbind: &struct{}{}})
	}
	return ps
}

type opaqueValue struct {
	Opaque *struct{} `xml:"urn:ietf:params:xml:ns:caldav opaque"`
}

type compSetValue struct {
	Comp []compValue `xml:"urn:ietf:params:xml:ns:caldav comp"`
}

type compValue struct {
	Name string `xml:"name,attr"`
}

// canonicalUTCTimezone is the fixed VTIMEZONE every collection reports for
// calendar-timezone: a single-offset UTC zone. Stored resource data is kept
// as uploaded; local DTSTART/DTEND values and their TZIDs are not converted.
const canonicalUTCTimezone = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//kcaldavd//EN\r\n" +
	"BEGIN:VTIMEZONE\r\n" +
	"TZID:UTC\r\n" +
	"BEGIN:STANDARD\r\n" +
	"DTSTART:19700101T000000\r\n" +
	"TZOFFSETFROM:+0000\r\n" +
	"TZOFFSETTO:+0000\r\n" +
	"TZNAME:UTC\r\n" +
	"END:STANDARD\r\n" +
	"END:VTIMEZONE\r\n" +
	"END:VCALENDAR\r\n"

var supportedComponentSet = func() compSetValue {
	var cs compSetValue
	for _, k := range ical.SchedulingComponentKinds {
		cs.Comp = append(cs.Comp, compValue{Name: k.Name()})
	}
	return cs
}()

var registry = map[string]entry{
	tag(caldavxml.NSDav, "resourcetype"): {
		principal: func(ctx Context) (any, bool) {
			return resourcetypeValue{Principal: &struct{}{}, Collection: &struct{}{}}, true
		},
		collection: func(ctx Context) (any, bool) {
			return resourcetypeValue{Collection: &struct{}{}, Calendar: &struct{}{}}, true
		},
		resource: func(ctx Context) (any, bool) {
			return resourcetypeValue{}, true
		},
	},

	tag(caldavxml.NSDav, "displayname"): {
		principal: func(ctx Context) (any, bool) {
			return ctx.Principal.Name, true
		},
		collection: func(ctx Context) (any, bool) {
			if ctx.Collection.DisplayName == "" {
				return nil, false
			}
			return ctx.Collection.DisplayName, true
		},
	},

	tag(caldavxml.NSAppleICal, "calendar-color"): {
		collection: func(ctx Context) (any, bool) {
			if ctx.Collection.Color == "" {
				return nil, false
			}
			return ctx.Collection.Color, true
		},
	},

	tag(caldavxml.NSCalDAV, "calendar-description"): {
		collection: func(ctx Context) (any, bool) {
			if ctx.Collection.Description == "" {
				return nil, false
			}
			return ctx.Collection.Description, true
		},
	},

	tag(caldavxml.NSDav, "getetag"): {
		resource: func(ctx Context) (any, bool) {
			return fmt.Sprintf("%q", ctx.Resource.ETag), true
		},
	},

	tag(caldavxml.NSCalendarServ, "getctag"): {
		collection: func(ctx Context) (any, bool) {
			return strconv.FormatInt(ctx.Collection.CTag, 10), true
		},
	},

	tag(caldavxml.NSDav, "getcontenttype"): {
		resource: func(ctx Context) (any, bool) {
			return "text/calendar; charset=utf-8", true
		},
	},

	tag(caldavxml.NSCalDAV, "calendar-data"): {
		resource: func(ctx Context) (any, bool) {
			return ctx.Resource.Data, true
		},
	},

	tag(caldavxml.NSDav, "current-user-privilege-set"): {
		principal:  func(ctx Context) (any, bool) { return privilegeSetFor(ctx.Effective), true },
		collection: func(ctx Context) (any, bool) { return privilegeSetFor(ctx.Effective), true },
		resource:   func(ctx Context) (any, bool) { return privilegeSetFor(ctx.Effective), true },
	},

	tag(caldavxml.NSDav, "owner"): {
		collection: func(ctx Context) (any, bool) {
			return hrefValue{Href: ctx.principalHref()}, true
		},
	},

	tag(caldavxml.NSDav, "current-user-principal"): {
		principal: func(ctx Context) (any, bool) {
			return hrefValue{Href: ctx.principalHref()}, true
		},
	},

	tag(caldavxml.NSDav, "principal-URL"): {
		principal: func(ctx Context) (any, bool) {
			return hrefValue{Href: ctx.principalHref()}, true
		},
	},

	tag(caldavxml.NSCalDAV, "calendar-home-set"): {
		principal: func(ctx Context) (any, bool) {
			return hrefValue{Href: ctx.principalHref()}, true
		},
	},

	tag(caldavxml.NSCalDAV, "schedule-calendar-transp"): {
		collection: func(ctx Context) (any, bool) {
			return opaqueValue{Opaque: &struct{}{}}, true
		},
	},

	tag(caldavxml.NSCalDAV, "calendar-timezone"): {
		collection: func(ctx Context) (any, bool) {
			return canonicalUTCTimezone, true
		},
	},

	tag(caldavxml.NSCalDAV, "supported-calendar-component-set"): {
		collection: func(ctx Context) (any, bool) {
			return supportedComponentSet, true
		},
	},

	tag(caldavxml.NSCalDAV, "supported-calendar-data"): {
		collection: func(ctx Context) (any, bool) {
			return supportedCalendarData, true
		},
	},

	tag(caldavxml.NSCalDAV, "calendar-user-address-set"): {
		principal: func(ctx Context) (any, bool) {
			addrs := []hrefValue{{Href: ctx.principalHref()}}
			if ctx.Principal.Email != "" {
				addrs = append(addrs, hrefValue{Href: "mailto:" + ctx.Principal.Email})
			}
			return hrefSetValue{Href: addrs}, true
		},
	},

	tag(caldavxml.NSDav, "quota-available-bytes"): {
		principal: func(ctx Context) (any, bool) {
			if ctx.Principal.QuotaBytes <= 0 {
				return nil, false
			}
			remaining := ctx.Principal.QuotaBytes - ctx.QuotaUsedBytes
			if remaining < 0 {
				remaining = 0
			}
			return strconv.FormatInt(remaining, 10), true
		},
	},

	tag(caldavxml.NSDav, "quota-used-bytes"): {
		principal: func(ctx Context) (any, bool) {
			return strconv.FormatInt(ctx.QuotaUsedBytes, 10), true
		},
	},

	tag(caldavxml.NSDav, "group-member-set"): {
		proxyGroup: func(ctx Context) (any, bool) {
			var hrefs []hrefValue
			for _, name := range ctx.ProxyGroupMembers {
				hrefs = append(hrefs, hrefValue{Href: joinHref(ctx.BasePath, name) + "/"})
			}
			return hrefSetValue{Href: hrefs}, true
		},
	},

	tag(caldavxml.NSDav, "group-membership"): {
		principal: func(ctx Context) (any, bool) {
			var hrefs []hrefValue
			for _, edge := range ctx.Principal.ReverseProxies {
				hrefs = append(hrefs, hrefValue{Href: proxyGroupHref(ctx, edge)})
			}
			return hrefSetValue{Href: hrefs}, true
		},
	},

	tag(caldavxml.NSCalendarServ, "calendar-proxy-read-for"): {
		principal: func(ctx Context) (any, bool) {
			return proxyForHrefs(ctx, storage.ProxyRead), true
		},
	},

	tag(caldavxml.NSCalendarServ, "calendar-proxy-write-for"): {
		principal: func(ctx Context) (any, bool) {
			return proxyForHrefs(ctx, storage.ProxyWrite), true
		},
	},
}

// proxyGroupHref builds the href of the virtual calendar-proxy-read/write
// pseudo-collection of the principal on the other end of edge, matching
// whichever of its own read/write group this principal belongs to.
func proxyGroupHref(ctx Context, edge storage.ProxyEdge) string {
	return joinHref(ctx.BasePath, edge.Name, "calendar-proxy-"+proxyBitName(edge.Bit)) + "/"
}

func proxyBitName(bit storage.ProxyBit) string {
	if bit == storage.ProxyWrite {
		return "write"
	}
	return "read"
}

// proxyForHrefs lists the principals who have granted ctx.Principal bit
// over themselves, i.e. ctx.Principal appears as the proxy.
func proxyForHrefs(ctx Context, bit storage.ProxyBit) hrefSetValue {
	var hrefs []hrefValue
	for _, edge := range ctx.Principal.ReverseProxies {
		if edge.Bit != bit {
			continue
		}
		hrefs = append(hrefs, hrefValue{Href: joinHref(ctx.BasePath, edge.Name) + "/"})
	}
	return hrefSetValue{Href: hrefs}
}
