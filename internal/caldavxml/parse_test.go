package caldavxml

import "testing"

func TestParsePropfind(t *testing.T) {
	body := `<?xml version="1.0" encoding="utf-8"?>
<propfind xmlns="DAV:">
  <prop>
    <getetag/>
    <displayname/>
  </prop>
</propfind>`
	req, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Type != TypePropfind {
		t.Fatalf("type = %v", req.Type)
	}
	if len(req.Properties) != 2 {
		t.Fatalf("got %d properties, want 2: %#v", len(req.Properties), req.Properties)
	}
	if req.Properties[0].Tag != "{DAV:}getetag" {
		t.Errorf("tag = %q", req.Properties[0].Tag)
	}
}

func TestParseUnknownPropertyTagged(t *testing.T) {
	body := `<propfind xmlns="DAV:"><prop><x-bogus/></prop></propfind>`
	req, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Properties[0].Tag != "unknown" {
		t.Errorf("tag = %q, want unknown", req.Properties[0].Tag)
	}
}

func TestParseCalendarMultigetHrefs(t *testing.T) {
	body := `<C:calendar-multiget xmlns="DAV:" xmlns:C="urn:ietf:params:xml:ns:caldav">
  <href>/alice/cal/a.ics</href>
  <href>/alice/cal/b%20c.ics</href>
  <prop><getetag/></prop>
</C:calendar-multiget>`
	req, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Type != TypeCalendarMultiget {
		t.Fatalf("type = %v", req.Type)
	}
	if len(req.Hrefs) != 2 || req.Hrefs[1] != "/alice/cal/b c.ics" {
		t.Fatalf("hrefs = %#v", req.Hrefs)
	}
}

func TestParseSecondRootFails(t *testing.T) {
	// Two sibling recognized root-level elements cannot occur in
	// well-formed XML with a single document root, but a client sending
	// a concatenated/garbled body should still be rejected cleanly.
	body := `<propfind xmlns="DAV:"><prop/></propfind><propfind xmlns="DAV:"><prop/></propfind>`
	_, err := Parse([]byte(body))
	if err == nil {
		t.Fatal("expected error for malformed multi-root body")
	}
}

func TestParsePropertyUpdateValidatesColor(t *testing.T) {
	body := `<propertyupdate xmlns="DAV:" xmlns:I="http://apple.com/ns/ical/">
  <set><prop><I:calendar-color>not-a-colour</I:calendar-color></prop></set>
</propertyupdate>`
	req, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(req.Properties) != 1 || req.Properties[0].Validity != Invalid {
		t.Fatalf("properties = %#v", req.Properties)
	}
}

func TestParsePropertyUpdateValidColor(t *testing.T) {
	body := `<propertyupdate xmlns="DAV:" xmlns:I="http://apple.com/ns/ical/">
  <set><prop><I:calendar-color>#FF00AA</I:calendar-color></prop></set>
</propertyupdate>`
	req, err := Parse([]byte(body))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Properties[0].Validity != Valid || req.Properties[0].Op != OpSet {
		t.Fatalf("properties = %#v", req.Properties)
	}
}
