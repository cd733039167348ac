// Package ical implements a streaming RFC 5545 parser and printer: a
// folded-line reader, a component-tree parser with typed date/time,
// duration and recurrence-rule fields, and a UTF-8-safe folding printer.
package ical

import (
	"fmt"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

// LogicalLine is one unfolded RFC 5545 content line, tagged with the
// 1-based physical line number it started on (used in diagnostics).
type LogicalLine struct {
	Line int
	Text string
}

// ReadLogicalLines unfolds CRLF/LF continuations (a terminator followed by
// a SPACE or TAB) into logical lines. An EOF without a terminator yields a
// final logical line of whatever remains.
func ReadLogicalLines(data []byte) ([]LogicalLine, error) {
	if len(data) == 0 {
		return nil, kerr.NewParseErr(lineTag(1), "unterminated line")
	}

	var lines []LogicalLine
	buf := make([]byte, 0, 256)
	startLine := 1
	curLine := 1
	i, n := 0, len(data)

	for i < n {
		c := data[i]
		if c == '\r' || c == '\n' {
			termLen := 1
			if c == '\r' && i+1 < n && data[i+1] == '\n' {
				termLen = 2
			}
			curLine++
			i += termLen
			if i < n && (data[i] == ' ' || data[i] == '\t') {
				i++
				continue
			}
			lines = append(lines, LogicalLine{Line: startLine, Text: string(buf)})
			buf = buf[:0]
			startLine = curLine
			continue
		}
		buf = append(buf, c)
		i++
	}
	if len(buf) > 0 {
		lines = append(lines, LogicalLine{Line: startLine, Text: string(buf)})
	}
	return lines, nil
}

func lineTag(n int) string {
	return fmt.Sprintf("%d", n)
}
