package dav

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"strconv"

	"github.com/sonroyaalmerol/kcaldavd/internal/caldavxml"
)

// propResult is one requested property's outcome for one multistatus
// response entry. Status selects which propstat bucket it falls into
// (200, 404, or — PROPPATCH only — 409); Value is nil outside the 200
// case.
type propResult struct {
	NS     string
	Local  string
	Value  any
	Status int
}

// msEntry is one <response> of a PROPFIND/REPORT multistatus body.
type msEntry struct {
	Href    string
	Results []propResult
	// Status, if non-zero, renders this response as a bare href+status
	// (no propstat) — the calendar-multiget per-href error case of §4.8.
	Status int
}

// writeMultistatus renders entries as a 207 application/xml body built
// directly on encoding/xml's token stream, since no example repo carries a
// dynamic-property WebDAV multistatus writer (internal/props looks up
// properties by runtime tag string, so the response shape is not known
// until request time and cannot be a single static Go struct).
func writeMultistatus(w http.ResponseWriter, entries []msEntry) error {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)

	msTag := xml.Name{Space: caldavxml.NSDav, Local: "multistatus"}
	if err := enc.EncodeToken(xml.StartElement{Name: msTag}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := writeResponse(enc, e); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(xml.EndElement{Name: msTag}); err != nil {
		return err
	}
	if err := enc.Flush(); err != nil {
		return err
	}

	w.Header().Set("Content-Type", "application/xml; charset=utf-8")
	w.WriteHeader(http.StatusMultiStatus)
	_, err := w.Write(buf.Bytes())
	return err
}

func writeResponse(enc *xml.Encoder, e msEntry) error {
	respTag := xml.Name{Space: caldavxml.NSDav, Local: "response"}
	if err := enc.EncodeToken(xml.StartElement{Name: respTag}); err != nil {
		return err
	}
	hrefTag := xml.Name{Space: caldavxml.NSDav, Local: "href"}
	if err := enc.EncodeElement(e.Href, xml.StartElement{Name: hrefTag}); err != nil {
		return err
	}

	if e.Status != 0 {
		if err := writeStatusLine(enc, e.Status); err != nil {
			return err
		}
		return enc.EncodeToken(xml.EndElement{Name: respTag})
	}

	var order []int
	buckets := map[int][]propResult{}
	for _, r := range e.Results {
		if _, seen := buckets[r.Status]; !seen {
			order = append(order, r.Status)
		}
		buckets[r.Status] = append(buckets[r.Status], r)
	}
	for _, st := range order {
		if err := writePropstat(enc, buckets[st], st); err != nil {
			return err
		}
	}

	return enc.EncodeToken(xml.EndElement{Name: respTag})
}

func writePropstat(enc *xml.Encoder, results []propResult, status int) error {
	psTag := xml.Name{Space: caldavxml.NSDav, Local: "propstat"}
	if err := enc.EncodeToken(xml.StartElement{Name: psTag}); err != nil {
		return err
	}

	propTag := xml.Name{Space: caldavxml.NSDav, Local: "prop"}
	if err := enc.EncodeToken(xml.StartElement{Name: propTag}); err != nil {
		return err
	}
	for _, r := range results {
		start := xml.StartElement{Name: xml.Name{Space: r.NS, Local: r.Local}}
		if r.Value == nil {
			if err := enc.EncodeToken(start); err != nil {
				return err
			}
			if err := enc.EncodeToken(xml.EndElement{Name: start.Name}); err != nil {
				return err
			}
			continue
		}
		if err := enc.EncodeElement(r.Value, start); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(xml.EndElement{Name: propTag}); err != nil {
		return err
	}

	if err := writeStatusLine(enc, status); err != nil {
		return err
	}
	return enc.EncodeToken(xml.EndElement{Name: psTag})
}

func writeStatusLine(enc *xml.Encoder, status int) error {
	statusTag := xml.Name{Space: caldavxml.NSDav, Local: "status"}
	line := "HTTP/1.1 " + strconv.Itoa(status) + " " + http.StatusText(status)
	return enc.EncodeElement(line, xml.StartElement{Name: statusTag})
}
