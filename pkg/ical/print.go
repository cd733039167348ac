package ical

import (
	"bytes"
	"sort"
	"strings"
)

const foldWidth = 74 // implementation target, safely under the 75-octet cap

// Print serializes a component tree back to iCalendar text, folding every
// line to foldWidth octets and never splitting a UTF-8 code point.
func Print(root *Component) []byte {
	var buf bytes.Buffer
	printComponent(&buf, root)
	return buf.Bytes()
}

func printComponent(buf *bytes.Buffer, c *Component) {
	buf.Write(foldLine("BEGIN:" + c.Name))
	for _, it := range c.Items {
		switch {
		case it.Child != nil:
			printComponent(buf, it.Child)
		case it.Prop != nil:
			buf.Write(foldLine(propertyText(it.Prop)))
		}
	}
	buf.Write(foldLine("END:" + c.Name))
}

func propertyText(p *Property) string {
	var sb strings.Builder
	sb.WriteString(p.Name)

	keys := make([]string, 0, len(p.Params))
	for k := range p.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		vals := p.Params[k]
		sb.WriteByte(';')
		sb.WriteString(k)
		sb.WriteByte('=')
		for i, v := range vals {
			if i > 0 {
				sb.WriteByte(',')
			}
			sb.WriteString(quoteParamValue(v))
		}
	}

	sb.WriteByte(':')
	sb.WriteString(p.Value)
	return sb.String()
}

func quoteParamValue(v string) string {
	if strings.ContainsAny(v, ";:,") {
		return `"` + v + `"`
	}
	return v
}

// foldLine folds a single logical line (no terminator) into CRLF-joined
// physical lines, each at most foldWidth octets, continuations prefixed by
// a single SPACE, never splitting a UTF-8 sequence.
func foldLine(text string) []byte {
	data := []byte(text)
	var out bytes.Buffer
	if len(data) == 0 {
		out.WriteString("\r\n")
		return out.Bytes()
	}

	i := 0
	first := true
	for i < len(data) {
		limit := foldWidth
		if !first {
			limit = foldWidth - 1
		}
		end := i + limit
		if end >= len(data) {
			end = len(data)
		} else {
			end = utf8SafeBoundary(data, i, end)
			if end <= i {
				end = i + 1
			}
		}
		if !first {
			out.WriteByte(' ')
		}
		out.Write(data[i:end])
		out.WriteString("\r\n")
		i = end
		first = false
	}
	return out.Bytes()
}

func isContinuationByte(b byte) bool { return b&0xC0 == 0x80 }

// utf8SafeBoundary walks proposed back (but never before start) until it no
// longer sits in the middle of a multi-byte UTF-8 sequence.
func utf8SafeBoundary(data []byte, start, proposed int) int {
	for proposed > start && isContinuationByte(data[proposed]) {
		proposed--
	}
	return proposed
}
