package ical

import (
	"fmt"
	"strings"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

// Parse parses data into a component tree rooted at VCALENDAR. filename is
// used only for diagnostics ("<file>:<line>: <message>"); pass "" when
// there is no meaningful name (e.g. a PUT request body).
func Parse(data []byte, filename string) (*Component, error) {
	lines, err := ReadLogicalLines(data)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, kerr.NewParseErr(where(filename, 1), "empty input")
	}

	first, err := splitPropertyLine(lines[0])
	if err != nil {
		return nil, wrapWhere(filename, err)
	}
	if !equalFold(first.Name, "BEGIN") || !equalFold(first.Value, "VCALENDAR") {
		return nil, kerr.NewParseErr(where(filename, lines[0].Line), "expected BEGIN:VCALENDAR")
	}

	root := &Component{Kind: KindVCalendar, Name: "VCALENDAR", Line: lines[0].Line}
	stack := []*Component{root}

	for _, ll := range lines[1:] {
		prop, perr := splitPropertyLine(ll)
		if perr != nil {
			return nil, wrapWhere(filename, perr)
		}
		if len(stack) == 0 && !equalFold(prop.Name, "END") {
			return nil, kerr.NewParseErr(where(filename, ll.Line), "content after END:VCALENDAR")
		}

		switch {
		case equalFold(prop.Name, "BEGIN"):
			kind := kindNames[upper(prop.Value)]
			child := &Component{Kind: kind, Name: prop.Value, Line: ll.Line}
			top := stack[len(stack)-1]
			top.Items = append(top.Items, Item{Child: child})
			stack = append(stack, child)

		case equalFold(prop.Name, "END"):
			if len(stack) == 0 {
				return nil, kerr.NewParseErr(where(filename, ll.Line), "unmatched END:%s", prop.Value)
			}
			top := stack[len(stack)-1]
			if !equalFold(top.Name, prop.Value) {
				return nil, kerr.NewParseErr(where(filename, ll.Line), "END:%s does not match BEGIN:%s", prop.Value, top.Name)
			}
			if err := interpretComponent(top, filename); err != nil {
				return nil, err
			}
			stack = stack[:len(stack)-1]

		default:
			top := stack[len(stack)-1]
			top.Items = append(top.Items, Item{Prop: prop})
		}
	}

	if len(stack) != 0 {
		return nil, kerr.NewParseErr(where(filename, lines[len(lines)-1].Line), "unterminated BEGIN:%s", stack[len(stack)-1].Name)
	}

	if err := resolveTimezones(root); err != nil {
		return nil, wrapFilename(filename, err)
	}

	return root, nil
}

func where(filename string, line int) string {
	if filename == "" {
		return fmt.Sprintf("%d", line)
	}
	return fmt.Sprintf("%s:%d", filename, line)
}

func wrapWhere(filename string, err error) error {
	var pe *kerr.ParseErr
	if kerr.As(err, &pe) && filename != "" && !strings.Contains(pe.Where, ":") {
		pe.Where = filename + ":" + pe.Where
	}
	return err
}

func wrapFilename(filename string, err error) error {
	return wrapWhere(filename, err)
}

func propWhere(p *Property) string {
	return fmt.Sprintf("%d", p.Line)
}

// splitPropertyLine parses "NAME[;PARAM=VAL[,VAL...][;...]]:VALUE",
// respecting double-quoted parameter values.
func splitPropertyLine(ll LogicalLine) (*Property, error) {
	text := ll.Text
	colon := unquotedIndex(text, ':')
	if colon < 0 {
		return nil, kerr.NewParseErr(fmt.Sprintf("%d", ll.Line), "missing ':' in %q", text)
	}
	head := text[:colon]
	value := text[colon+1:]

	segs := splitUnquoted(head, ';')
	if len(segs) == 0 || segs[0] == "" {
		return nil, kerr.NewParseErr(fmt.Sprintf("%d", ll.Line), "missing property name in %q", text)
	}
	name := segs[0]

	params := map[string][]string{}
	for _, seg := range segs[1:] {
		eq := unquotedIndex(seg, '=')
		if eq < 0 {
			return nil, kerr.NewParseErr(fmt.Sprintf("%d", ll.Line), "malformed parameter %q", seg)
		}
		pname := seg[:eq]
		pvals := splitUnquoted(seg[eq+1:], ',')
		for i, v := range pvals {
			pvals[i] = strings.Trim(v, `"`)
		}
		params[pname] = append(params[pname], pvals...)
	}

	return &Property{Name: name, Params: params, Value: value, Line: ll.Line}, nil
}

func unquotedIndex(s string, b byte) int {
	inQuotes := false
	for i := 0; i < len(s); i++ {
		if s[i] == '"' {
			inQuotes = !inQuotes
			continue
		}
		if s[i] == b && !inQuotes {
			return i
		}
	}
	return -1
}

func splitUnquoted(s string, sep byte) []string {
	var out []string
	inQuotes := false
	start := 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '"':
			inQuotes = !inQuotes
		case s[i] == sep && !inQuotes:
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}

// interpretComponent populates typed fields on a just-closed component,
// case-insensitively matching the recognized property names.
func interpretComponent(c *Component, filename string) error {
	errw := func(err error) error { return wrapWhere(filename, err) }

	isTZSub := c.Kind == KindStandard || c.Kind == KindDaylight

	for _, p := range c.Properties() {
		switch {
		case equalFold(p.Name, "UID"):
			if p.Value == "" {
				return errw(kerr.NewParseErr(propWhere(p), "UID must not be empty"))
			}
			c.UID = p.Value
		case equalFold(p.Name, "CREATED"):
			dt, err := parseDateTimeField(p, true, false)
			if err != nil {
				return errw(err)
			}
			c.Created = dt
		case equalFold(p.Name, "LAST-MODIFIED"):
			dt, err := parseDateTimeField(p, true, false)
			if err != nil {
				return errw(err)
			}
			c.LastModified = dt
		case equalFold(p.Name, "DTSTAMP"):
			dt, err := parseDateTimeField(p, true, false)
			if err != nil {
				return errw(err)
			}
			c.DTStamp = dt
		case equalFold(p.Name, "DTSTART"):
			dt, err := parseDateTimeField(p, false, true)
			if err != nil {
				return errw(err)
			}
			if isTZSub && dt.Form != FormLocal {
				return errw(kerr.NewParseErr(propWhere(p), "DTSTART must be local time inside STANDARD/DAYLIGHT"))
			}
			c.DTStart = dt
		case equalFold(p.Name, "DTEND"):
			dt, err := parseDateTimeField(p, false, true)
			if err != nil {
				return errw(err)
			}
			c.DTEnd = dt
		case equalFold(p.Name, "DURATION"):
			d, err := parseDuration(p)
			if err != nil {
				return errw(err)
			}
			c.Duration = d
		case equalFold(p.Name, "TZID"):
			if p.Value == "" {
				return errw(kerr.NewParseErr(propWhere(p), "TZID must not be empty"))
			}
			c.TZID = p.Value
		case equalFold(p.Name, "RRULE"):
			r, err := parseRRule(p, isTZSub)
			if err != nil {
				return errw(err)
			}
			c.RRule = r
		case equalFold(p.Name, "TZOFFSETFROM"):
			off, err := parseUTCOffset(p, "TZOFFSETFROM")
			if err != nil {
				return errw(err)
			}
			c.TZOffsetFrom = off
		case equalFold(p.Name, "TZOFFSETTO"):
			off, err := parseUTCOffset(p, "TZOFFSETTO")
			if err != nil {
				return errw(err)
			}
			c.TZOffsetTo = off
		}
	}

	compWhere := fmt.Sprintf("%d", c.Line)
	switch c.Kind {
	case KindVEvent:
		if c.UID == "" {
			return errw(kerr.NewParseErr(compWhere, "VEVENT requires UID"))
		}
		if c.DTStart == nil {
			return errw(kerr.NewParseErr(compWhere, "VEVENT requires DTSTART"))
		}
	case KindVTimezone:
		if c.TZID == "" {
			return errw(kerr.NewParseErr(compWhere, "VTIMEZONE requires TZID"))
		}
	case KindStandard, KindDaylight:
		if c.DTStart == nil {
			return errw(kerr.NewParseErr(compWhere, "STANDARD/DAYLIGHT requires DTSTART"))
		}
		if c.TZOffsetFrom == nil || c.TZOffsetTo == nil {
			return errw(kerr.NewParseErr(compWhere, "STANDARD/DAYLIGHT requires TZOFFSETFROM and TZOFFSETTO"))
		}
	}

	return nil
}

// resolveTimezones runs the post-parse pass resolving every DTSTART/DTEND
// TZID against the VCALENDAR's VTIMEZONE children by case-insensitive
// TZID match.
func resolveTimezones(root *Component) error {
	tzs := root.ChildrenOfKind(KindVTimezone)

	resolve := func(dt *DateTimeValue) error {
		if dt == nil || dt.Form != FormLocal || dt.TZID == "" {
			return nil
		}
		for _, tz := range tzs {
			if equalFold(tz.TZID, dt.TZID) {
				dt.Resolved = tz
				return nil
			}
		}
		return kerr.NewParseErr(fmt.Sprintf("%d", dt.Line), "timezone %q not found", dt.TZID)
	}

	var walk func(c *Component) error
	walk = func(c *Component) error {
		if err := resolve(c.DTStart); err != nil {
			return err
		}
		if err := resolve(c.DTEnd); err != nil {
			return err
		}
		for _, child := range c.Children() {
			if err := walk(child); err != nil {
				return err
			}
		}
		return nil
	}
	return walk(root)
}
