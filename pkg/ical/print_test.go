package ical

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestPrintRoundTrip(t *testing.T) {
	root, err := Parse([]byte(sampleEvent), "")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	out := Print(root)
	root2, err := Parse(out, "")
	if err != nil {
		t.Fatalf("reparse: %v\n%s", err, out)
	}
	ev1 := root.ChildrenOfKind(KindVEvent)[0]
	ev2 := root2.ChildrenOfKind(KindVEvent)[0]
	if ev1.UID != ev2.UID {
		t.Errorf("UID mismatch: %q vs %q", ev1.UID, ev2.UID)
	}
	if ev1.DTStart.Time != ev2.DTStart.Time {
		t.Errorf("DTSTART mismatch")
	}
}

func TestFoldLineRespectsWidth(t *testing.T) {
	long := "SUMMARY:" + strings.Repeat("a", 200)
	out := string(foldLine(long))
	for _, physical := range strings.Split(strings.TrimSuffix(out, "\r\n"), "\r\n") {
		if len(physical) > foldWidth {
			t.Errorf("physical line too long: %d bytes", len(physical))
		}
	}
	rejoined := strings.ReplaceAll(out, "\r\n ", "")
	rejoined = strings.TrimSuffix(rejoined, "\r\n")
	if rejoined != long {
		t.Errorf("rejoined text mismatch:\n%q\nwant\n%q", rejoined, long)
	}
}

func TestFoldLineDoesNotSplitUTF8(t *testing.T) {
	// U+00E9 (é) is 2 bytes (0xC3 0xA9); repeat so a naive byte-width fold
	// would land exactly mid-sequence.
	long := "SUMMARY:" + strings.Repeat("é", 100)
	out := foldLine(long)
	for _, line := range strings.Split(strings.TrimSuffix(string(out), "\r\n"), "\r\n") {
		b := []byte(strings.TrimPrefix(line, " "))
		if len(b) > 0 && !utf8.Valid(b) {
			t.Fatalf("line is not valid UTF-8 (split mid sequence): %x", b)
		}
	}
}
