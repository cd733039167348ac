// Package digest implements the RFC 2617 HTTP Digest validator: header
// parsing, HA1/HA2/response computation, and nonce lifecycle orchestration
// against a storage-backed nonce table.
package digest

import "strings"

// Credentials is the subset of Authorization: Digest fields the core
// cares about; unrecognized directives are skipped while parsing.
type Credentials struct {
	Username string
	Realm    string
	Nonce    string
	Response string
	URI      string
	NC       string // raw 8-hex-digit nonce count, as sent
}

// ParseHeader parses the quoted-or-token directive list of an
// "Authorization: Digest ..." header. ok is false unless username, realm,
// nonce, response, uri and nc were all present.
func ParseHeader(header string) (*Credentials, bool) {
	const prefix = "Digest "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return nil, false
	}
	rest := header[len(prefix):]

	fields := map[string]string{}
	for _, part := range splitDirectives(rest) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		eq := strings.IndexByte(part, '=')
		if eq < 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(part[:eq]))
		val := strings.TrimSpace(part[eq+1:])
		val = strings.Trim(val, `"`)
		fields[key] = val
	}

	cred := &Credentials{
		Username: fields["username"],
		Realm:    fields["realm"],
		Nonce:    fields["nonce"],
		Response: fields["response"],
		URI:      fields["uri"],
		NC:       fields["nc"],
	}
	if cred.Username == "" || cred.Realm == "" || cred.Nonce == "" || cred.Response == "" || cred.URI == "" || cred.NC == "" {
		return nil, false
	}
	return cred, true
}

// splitDirectives splits a comma-separated directive list, respecting
// double-quoted values that may themselves contain commas.
func splitDirectives(s string) []string {
	var out []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuotes = !inQuotes
		case ',':
			if !inQuotes {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])
	return out
}
