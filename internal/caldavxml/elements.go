package caldavxml

// rootElements maps a (namespace, local name) pair to the request type it
// fixes when it is the outermost element of the request body.
var rootElements = map[string]RequestType{
	elemKey(NSDav, "propfind"):            TypePropfind,
	elemKey(NSDav, "propertyupdate"):       TypePropertyUpdate,
	elemKey(NSCalDAV, "calendar-query"):    TypeCalendarQuery,
	elemKey(NSCalDAV, "calendar-multiget"): TypeCalendarMultiget,
}

// recognizedElements is the closed set from the glossary. Anything absent
// is tolerated but tagged "unknown" when found as a direct <prop> child.
var recognizedElements = map[string]bool{
	elemKey(NSDav, "prop"):                           true,
	elemKey(NSDav, "propfind"):                       true,
	elemKey(NSDav, "propertyupdate"):                 true,
	elemKey(NSDav, "response"):                       true,
	elemKey(NSDav, "propstat"):                       true,
	elemKey(NSDav, "status"):                         true,
	elemKey(NSDav, "href"):                           true,
	elemKey(NSDav, "multistatus"):                    true,
	elemKey(NSDav, "resourcetype"):                   true,
	elemKey(NSDav, "collection"):                     true,
	elemKey(NSDav, "principal"):                      true,
	elemKey(NSDav, "displayname"):                    true,
	elemKey(NSDav, "getetag"):                        true,
	elemKey(NSDav, "getcontenttype"):                 true,
	elemKey(NSDav, "current-user-principal"):         true,
	elemKey(NSDav, "current-user-privilege-set"):     true,
	elemKey(NSDav, "owner"):                          true,
	elemKey(NSDav, "principal-URL"):                  true,
	elemKey(NSDav, "quota-available-bytes"):          true,
	elemKey(NSDav, "quota-used-bytes"):                true,
	elemKey(NSDav, "group-member-set"):               true,
	elemKey(NSDav, "group-membership"):               true,
	elemKey(NSDav, "read"):                           true,
	elemKey(NSDav, "write"):                          true,
	elemKey(NSDav, "bind"):                           true,
	elemKey(NSDav, "unbind"):                         true,
	elemKey(NSDav, "read-current-user-privilege-set"): true,

	elemKey(NSCalDAV, "calendar-query"):                 true,
	elemKey(NSCalDAV, "calendar-multiget"):              true,
	elemKey(NSCalDAV, "calendar"):                       true,
	elemKey(NSCalDAV, "calendar-data"):                  true,
	elemKey(NSCalDAV, "comp"):                           true,
	elemKey(NSCalDAV, "opaque"):                         true,
	elemKey(NSCalDAV, "calendar-home-set"):               true,
	elemKey(NSCalDAV, "calendar-user-address-set"):       true,
	elemKey(NSCalDAV, "calendar-timezone"):               true,
	elemKey(NSCalDAV, "supported-calendar-component-set"): true,
	elemKey(NSCalDAV, "supported-calendar-data"):          true,
	elemKey(NSCalDAV, "schedule-calendar-transp"):         true,
	elemKey(NSCalDAV, "min-date-time"):                    true,
	elemKey(NSCalDAV, "calendar-description"):             true,

	elemKey(NSCalendarServ, "getctag"):                   true,
	elemKey(NSCalendarServ, "calendar-proxy-read-for"):   true,
	elemKey(NSCalendarServ, "calendar-proxy-write-for"):  true,

	elemKey(NSAppleICal, "calendar-color"): true,
}

// validatedProperties holds the properties PROPPATCH value-validates.
var validatedProperties = map[string]func(string) bool{
	elemKey(NSAppleICal, "calendar-color"): validateCalendarColor,
}

func elemKey(ns, local string) string { return ns + ":" + local }

func tagFor(ns, local string) string {
	k := elemKey(ns, local)
	if recognizedElements[k] {
		return "{" + ns + "}" + local
	}
	return "unknown"
}

// validateCalendarColor enforces "#" followed by 6 or 8 hex digits.
func validateCalendarColor(v string) bool {
	if len(v) != 7 && len(v) != 9 {
		return false
	}
	if v[0] != '#' {
		return false
	}
	for i := 1; i < len(v); i++ {
		c := v[i]
		if !((c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')) {
			return false
		}
	}
	return true
}
