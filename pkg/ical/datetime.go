package ical

import (
	"strconv"
	"time"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func parseUint(s string) (int, bool) {
	if !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// parseDateTimeLexical classifies the bare lexical value (no params) into
// one of the three permitted shapes: YYYYMMDD, YYYYMMDDThhmmss,
// YYYYMMDDThhmmssZ.
func parseDateTimeLexical(v string) (DateTimeValue, bool) {
	switch len(v) {
	case 8:
		if !isDigits(v) {
			return DateTimeValue{}, false
		}
		y, m, d, ok := splitYMD(v[0:4], v[4:6], v[6:8])
		if !ok {
			return DateTimeValue{}, false
		}
		return DateTimeValue{Form: FormDate, Time: time.Date(y, time.Month(m), d, 0, 0, 0, 0, time.UTC)}, true
	case 15:
		if v[8] != 'T' {
			return DateTimeValue{}, false
		}
		t, ok := parseLocalDateTime(v)
		if !ok {
			return DateTimeValue{}, false
		}
		return DateTimeValue{Form: FormLocal, Time: t}, true
	case 16:
		if v[8] != 'T' || v[15] != 'Z' {
			return DateTimeValue{}, false
		}
		t, ok := parseLocalDateTime(v[:15])
		if !ok {
			return DateTimeValue{}, false
		}
		return DateTimeValue{Form: FormUTC, Time: t}, true
	default:
		return DateTimeValue{}, false
	}
}

func splitYMD(ys, ms, ds string) (int, int, int, bool) {
	y, ok1 := parseUint(ys)
	m, ok2 := parseUint(ms)
	d, ok3 := parseUint(ds)
	if !ok1 || !ok2 || !ok3 || m < 1 || m > 12 || d < 1 || d > 31 {
		return 0, 0, 0, false
	}
	return y, m, d, true
}

// parseLocalDateTime parses "YYYYMMDDThhmmss" (no trailing Z) into a
// time.Time carrying the literal wall-clock fields in time.UTC.
func parseLocalDateTime(v string) (time.Time, bool) {
	if len(v) != 15 || v[8] != 'T' {
		return time.Time{}, false
	}
	y, m, d, ok := splitYMD(v[0:4], v[4:6], v[6:8])
	if !ok {
		return time.Time{}, false
	}
	hh, ok1 := parseUint(v[9:11])
	mm, ok2 := parseUint(v[11:13])
	ss, ok3 := parseUint(v[13:15])
	if !ok1 || !ok2 || !ok3 || hh > 23 || mm > 59 || ss > 60 {
		return time.Time{}, false
	}
	return time.Date(y, time.Month(m), d, hh, mm, ss, 0, time.UTC), true
}

// parseDateTimeField validates and parses a DTSTART/DTEND/CREATED/DTSTAMP/
// LAST-MODIFIED property fully, including its parameters.
func parseDateTimeField(p *Property, requireUTC, allowLocal bool) (*DateTimeValue, error) {
	dt, ok := parseDateTimeLexical(p.Value)
	if !ok {
		return nil, kerr.NewParseErr(propWhere(p), "malformed date-time value %q", p.Value)
	}
	if requireUTC && dt.Form != FormUTC {
		return nil, kerr.NewParseErr(propWhere(p), "%s must be UTC", p.Name)
	}

	if p.paramCount("TZID") > 1 {
		return nil, kerr.NewParseErr(propWhere(p), "duplicate TZID parameter")
	}
	tzid, hasTZID := p.param("TZID")
	if hasTZID {
		if !allowLocal || dt.Form != FormLocal {
			return nil, kerr.NewParseErr(propWhere(p), "TZID is only permitted with local date-time values")
		}
		dt.TZID = tzid
	}

	dt.Line = p.Line

	if valueParam, ok := p.param("VALUE"); ok {
		switch upper(valueParam) {
		case "DATE":
			if dt.Form != FormDate {
				return nil, kerr.NewParseErr(propWhere(p), "VALUE=DATE does not match lexical form")
			}
		case "DATE-TIME":
			if dt.Form == FormDate {
				return nil, kerr.NewParseErr(propWhere(p), "VALUE=DATE-TIME does not match lexical form")
			}
		default:
			return nil, kerr.NewParseErr(propWhere(p), "unsupported VALUE parameter %q", valueParam)
		}
	}

	return &dt, nil
}

func upper(s string) string {
	b := []byte(s)
	for i := range b {
		if 'a' <= b[i] && b[i] <= 'z' {
			b[i] -= 'a' - 'A'
		}
	}
	return string(b)
}

// parseDuration parses a signed RFC 5545 DURATION value.
func parseDuration(p *Property) (*Duration, error) {
	v := p.Value
	d := &Duration{}
	i := 0
	if i < len(v) && (v[i] == '+' || v[i] == '-') {
		d.Negative = v[i] == '-'
		i++
	}
	if i >= len(v) || v[i] != 'P' {
		return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
	}
	i++

	readNum := func() (int, bool) {
		start := i
		for i < len(v) && v[i] >= '0' && v[i] <= '9' {
			i++
		}
		if i == start {
			return 0, false
		}
		n, err := strconv.Atoi(v[start:i])
		if err != nil {
			return 0, false
		}
		return n, true
	}

	if i < len(v) {
		if n, ok := readNum(); ok {
			if i < len(v) && v[i] == 'W' {
				d.Weeks = n
				i++
				if i != len(v) {
					return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
				}
				if d.isZero() {
					return nil, kerr.NewParseErr(propWhere(p), "zero-value duration")
				}
				return d, nil
			}
			if i < len(v) && v[i] == 'D' {
				d.Days = n
				i++
			} else {
				return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
			}
		}
	}

	// dur-time = "T" (dur-hour / dur-minute / dur-second); each of
	// dur-hour and dur-minute may be followed by the next smaller unit.
	if i < len(v) && v[i] == 'T' {
		i++
		n, ok := readNum()
		if !ok {
			return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
		}
		switch {
		case i < len(v) && v[i] == 'H':
			d.Hours = n
			i++
			if i < len(v) {
				n2, ok2 := readNum()
				if !ok2 || i >= len(v) || v[i] != 'M' {
					return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
				}
				d.Minutes = n2
				i++
				if i < len(v) {
					n3, ok3 := readNum()
					if !ok3 || i >= len(v) || v[i] != 'S' {
						return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
					}
					d.Seconds = n3
					i++
				}
			}
		case i < len(v) && v[i] == 'M':
			d.Minutes = n
			i++
			if i < len(v) {
				n2, ok2 := readNum()
				if !ok2 || i >= len(v) || v[i] != 'S' {
					return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
				}
				d.Seconds = n2
				i++
			}
		case i < len(v) && v[i] == 'S':
			d.Seconds = n
			i++
		default:
			return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
		}
	}

	if i != len(v) {
		return nil, kerr.NewParseErr(propWhere(p), "malformed duration %q", v)
	}
	if d.isZero() {
		return nil, kerr.NewParseErr(propWhere(p), "zero-value duration")
	}
	return d, nil
}

// parseUTCOffset parses "±HHMM" or "±HHMMSS".
func parseUTCOffset(p *Property, name string) (*int, error) {
	v := p.Value
	if len(v) != 5 && len(v) != 7 {
		return nil, kerr.NewParseErr(propWhere(p), "malformed %s %q", name, v)
	}
	if v[0] != '+' && v[0] != '-' {
		return nil, kerr.NewParseErr(propWhere(p), "malformed %s %q", name, v)
	}
	hh, ok1 := parseUint(v[1:3])
	mm, ok2 := parseUint(v[3:5])
	ss := 0
	ok3 := true
	if len(v) == 7 {
		ss, ok3 = parseUint(v[5:7])
	}
	if !ok1 || !ok2 || !ok3 || hh >= 24 || mm >= 60 || ss >= 60 {
		return nil, kerr.NewParseErr(propWhere(p), "malformed %s %q", name, v)
	}
	total := hh*3600 + mm*60 + ss
	if v[0] == '-' {
		total = -total
	}
	return &total, nil
}
