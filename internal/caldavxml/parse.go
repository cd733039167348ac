package caldavxml

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/sonroyaalmerol/kcaldavd/internal/kerr"
)

// Parse stream-parses a CalDAV/WebDAV request body into a typed Request.
func Parse(data []byte) (*Request, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))

	var req Request
	rootSet := false

	type frame struct {
		ns, local string
	}
	var stack []frame

	inProp := false
	propDepth := 0
	opStack := []PropertyOp{OpNone}

	var curProp *Property
	var curText strings.Builder

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			line, col := position(dec)
			return nil, kerr.NewParseErr(fmt.Sprintf("%d:%d", line, col), "%v", err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			curText.Reset()
			ns, local := t.Name.Space, t.Name.Local
			stack = append(stack, frame{ns, local})
			depth := len(stack)

			if depth == 1 {
				rt, ok := rootElements[elemKey(ns, local)]
				if rootSet {
					line, col := position(dec)
					return nil, kerr.NewParseErr(fmt.Sprintf("%d:%d", line, col), "request type already exists")
				}
				if ok {
					req.Type = rt
				}
				rootSet = true
			}

			switch {
			case ns == NSDav && local == "set":
				opStack = append(opStack, OpSet)
			case ns == NSDav && local == "remove":
				opStack = append(opStack, OpRemove)
			case ns == NSDav && local == "prop":
				inProp = true
				propDepth = depth
			case inProp && depth == propDepth+1:
				curProp = &Property{
					Tag:       tagFor(ns, local),
					LocalName: local,
					Namespace: ns,
					Op:        opStack[len(opStack)-1],
				}
			}

		case xml.CharData:
			curText.Write(t)

		case xml.EndElement:
			depth := len(stack)
			ns, local := "", ""
			if depth > 0 {
				ns, local = stack[depth-1].ns, stack[depth-1].local
			}

			if ns == NSDav && local == "href" && depth == 2 {
				href, err := decodeHref(curText.String())
				if err != nil {
					line, col := position(dec)
					return nil, kerr.NewParseErr(fmt.Sprintf("%d:%d", line, col), "malformed href: %v", err)
				}
				req.Hrefs = append(req.Hrefs, href)
			}

			if inProp && depth == propDepth+1 && curProp != nil {
				curProp.Value = curText.String()
				if req.Type == TypePropertyUpdate {
					if validator, ok := validatedProperties[elemKey(curProp.Namespace, curProp.LocalName)]; ok {
						curProp.Validity = NotValidated
						if validator(curProp.Value) {
							curProp.Validity = Valid
						} else {
							curProp.Validity = Invalid
						}
					}
				}
				req.Properties = append(req.Properties, *curProp)
				curProp = nil
			}

			if ns == NSDav && local == "prop" && depth == propDepth {
				inProp = false
			}
			if ns == NSDav && (local == "set" || local == "remove") && len(opStack) > 1 {
				opStack = opStack[:len(opStack)-1]
			}

			if depth > 0 {
				stack = stack[:depth-1]
			}
			curText.Reset()
		}
	}

	if !rootSet {
		return nil, kerr.NewParseErr("1:1", "empty request body")
	}

	return &req, nil
}

func position(dec *xml.Decoder) (int, int) {
	line, col := dec.InputPos()
	return line, col
}

// decodeHref percent-decodes an href; '+' decodes to a literal space
// (§4.4: "percent-decoded; '+' -> space").
func decodeHref(s string) (string, error) {
	var out strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '+':
			out.WriteByte(' ')
		case c == '%':
			if i+2 >= len(s) {
				return "", fmt.Errorf("truncated percent-encoding")
			}
			hi, ok1 := hexVal(s[i+1])
			lo, ok2 := hexVal(s[i+2])
			if !ok1 || !ok2 {
				return "", fmt.Errorf("invalid percent-encoding %q", s[i:i+3])
			}
			out.WriteByte(byte(hi<<4 | lo))
			i += 2
		default:
			out.WriteByte(c)
		}
	}
	return out.String(), nil
}

func hexVal(c byte) (int, bool) {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0'), true
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10, true
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10, true
	default:
		return 0, false
	}
}
