package ical

import (
	"strconv"
	"strings"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

var validFreq = map[string]bool{
	"SECONDLY": true, "MINUTELY": true, "HOURLY": true,
	"DAILY": true, "WEEKLY": true, "MONTHLY": true, "YEARLY": true,
}

var validWeekday = map[string]bool{
	"SU": true, "MO": true, "TU": true, "WE": true, "TH": true, "FR": true, "SA": true,
}

// parseRRule parses and range-validates a ";"-separated KEY=VALUE RRULE
// property value (§4.2). inTZStandard indicates the RRULE sits inside a
// VTIMEZONE STANDARD/DAYLIGHT block, where UNTIL must be UTC.
func parseRRule(p *Property, inTZStandard bool) (*RRule, error) {
	r := &RRule{}
	seen := map[string]bool{}

	for _, pair := range strings.Split(p.Value, ";") {
		if pair == "" {
			continue
		}
		kv := strings.SplitN(pair, "=", 2)
		if len(kv) != 2 {
			return nil, kerr.NewParseErr(propWhere(p), "malformed RRULE element %q", pair)
		}
		key := upper(kv[0])
		val := kv[1]
		seen[key] = true

		switch key {
		case "FREQ":
			if !validFreq[upper(val)] {
				return nil, kerr.NewParseErr(propWhere(p), "invalid FREQ %q", val)
			}
			r.Freq = upper(val)
		case "UNTIL":
			dt, ok := parseDateTimeLexical(val)
			if !ok {
				return nil, kerr.NewParseErr(propWhere(p), "invalid UNTIL %q", val)
			}
			if inTZStandard && dt.Form != FormUTC {
				return nil, kerr.NewParseErr(propWhere(p), "UNTIL must be UTC inside VTIMEZONE")
			}
			r.Until = &dt
		case "COUNT":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, kerr.NewParseErr(propWhere(p), "invalid COUNT %q", val)
			}
			r.Count = &n
		case "INTERVAL":
			n, err := strconv.ParseUint(val, 10, 64)
			if err != nil {
				return nil, kerr.NewParseErr(propWhere(p), "invalid INTERVAL %q", val)
			}
			r.Interval = &n
		case "BYSECOND":
			list, err := parseIntList(p, key, val, 1, 59, false)
			if err != nil {
				return nil, err
			}
			r.BySecond = list
		case "BYMINUTE":
			list, err := parseIntList(p, key, val, 0, 59, false)
			if err != nil {
				return nil, err
			}
			r.ByMinute = list
		case "BYHOUR":
			list, err := parseIntList(p, key, val, 0, 23, false)
			if err != nil {
				return nil, err
			}
			r.ByHour = list
		case "BYDAY":
			days, err := parseByDay(p, val)
			if err != nil {
				return nil, err
			}
			r.ByDay = days
		case "BYMONTHDAY":
			list, err := parseIntList(p, key, val, 1, 31, true)
			if err != nil {
				return nil, err
			}
			r.ByMonthDay = list
		case "BYMONTH":
			list, err := parseIntList(p, key, val, 1, 12, false)
			if err != nil {
				return nil, err
			}
			r.ByMonth = list
		case "BYYEARDAY":
			list, err := parseIntList(p, key, val, 1, 366, true)
			if err != nil {
				return nil, err
			}
			r.ByYearDay = list
		case "BYWEEKNO":
			list, err := parseIntList(p, key, val, 1, 53, true)
			if err != nil {
				return nil, err
			}
			r.ByWeekNo = list
		case "BYSETPOS":
			list, err := parseIntList(p, key, val, 1, 366, true)
			if err != nil {
				return nil, err
			}
			r.BySetPos = list
		case "WKST":
			if !validWeekday[upper(val)] {
				return nil, kerr.NewParseErr(propWhere(p), "invalid WKST %q", val)
			}
			r.WKST = upper(val)
		default:
			return nil, kerr.NewParseErr(propWhere(p), "unknown RRULE key %q", key)
		}
	}

	if !seen["FREQ"] {
		return nil, kerr.NewParseErr(propWhere(p), "RRULE missing required FREQ")
	}
	return r, nil
}

// parseIntList parses a comma-separated list of integers, optionally
// signed, each within [min,max] (or [-max,-min]∪[min,max] when
// allowNegative).
func parseIntList(p *Property, key, val string, min, max int, allowNegative bool) ([]int, error) {
	var out []int
	for _, tok := range strings.Split(val, ",") {
		n, err := strconv.Atoi(tok)
		if err != nil {
			return nil, kerr.NewParseErr(propWhere(p), "invalid %s value %q", key, tok)
		}
		abs := n
		if abs < 0 {
			if !allowNegative {
				return nil, kerr.NewParseErr(propWhere(p), "invalid %s value %q", key, tok)
			}
			abs = -abs
		}
		if abs < min || abs > max {
			return nil, kerr.NewParseErr(propWhere(p), "%s value %q out of range", key, tok)
		}
		out = append(out, n)
	}
	return out, nil
}

func parseByDay(p *Property, val string) ([]RRuleDay, error) {
	var out []RRuleDay
	for _, tok := range strings.Split(val, ",") {
		day := tok
		ordinal := 0
		i := 0
		neg := false
		if i < len(day) && (day[i] == '+' || day[i] == '-') {
			neg = day[i] == '-'
			i++
		}
		start := i
		for i < len(day) && day[i] >= '0' && day[i] <= '9' {
			i++
		}
		if i > start {
			n, err := strconv.Atoi(day[start:i])
			if err != nil {
				return nil, kerr.NewParseErr(propWhere(p), "invalid BYDAY value %q", tok)
			}
			if n < 1 || n > 53 {
				return nil, kerr.NewParseErr(propWhere(p), "BYDAY ordinal %q out of range", tok)
			}
			ordinal = n
			if neg {
				ordinal = -ordinal
			}
		}
		wd := upper(day[i:])
		if !validWeekday[wd] {
			return nil, kerr.NewParseErr(propWhere(p), "invalid BYDAY weekday %q", tok)
		}
		out = append(out, RRuleDay{Ordinal: ordinal, Day: wd})
	}
	return out, nil
}
