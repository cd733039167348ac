package dav

import "strings"

// parsedPath is the three-segment decomposition of §4.8 step 3:
// /<principal>/<collection>/<resource>, with empty trailing segments
// meaning "none".
type parsedPath struct {
	Principal  string
	Collection string
	Resource   string
}

// splitPath parses urlPath into its up-to-three segments and validates
// each non-empty one with safeSegment. A path with more than three
// segments, or any unsafe segment, is rejected.
func splitPath(urlPath string) (parsedPath, bool) {
	trimmed := strings.Trim(urlPath, "/")
	if trimmed == "" {
		return parsedPath{}, true
	}
	parts := strings.Split(trimmed, "/")
	if len(parts) > 3 {
		return parsedPath{}, false
	}
	for _, p := range parts {
		if !safeSegment(p) {
			return parsedPath{}, false
		}
	}
	var pp parsedPath
	pp.Principal = parts[0]
	if len(parts) > 1 {
		pp.Collection = parts[1]
	}
	if len(parts) > 2 {
		pp.Resource = parts[2]
	}
	return pp, true
}

// safeSegment enforces §4.8 step 3 / §8 testable property 8: reject
// empty, ".", "..", and any byte outside RFC 3986 unreserved + sub-delims
// + ":" + "@".
func safeSegment(seg string) bool {
	if seg == "" || seg == "." || seg == ".." {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if !isPathSafeByte(seg[i]) {
			return false
		}
	}
	return true
}

func isPathSafeByte(b byte) bool {
	switch {
	case b >= 'a' && b <= 'z', b >= 'A' && b <= 'Z', b >= '0' && b <= '9':
		return true
	}
	switch b {
	case '-', '.', '_', '~': // unreserved
		return true
	case '!', '$', '&', '\'', '(', ')', '*', '+', ',', ';', '=': // sub-delims
		return true
	case ':', '@':
		return true
	}
	return false
}
