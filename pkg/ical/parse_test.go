package ical

import (
	"strings"
	"testing"
)

const sampleEvent = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:u1\r\n" +
	"DTSTART:20240102T101500Z\r\n" +
	"SUMMARY:x\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseValidEvent(t *testing.T) {
	root, err := Parse([]byte(sampleEvent), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Kind != KindVCalendar {
		t.Fatalf("root kind = %v", root.Kind)
	}
	events := root.ChildrenOfKind(KindVEvent)
	if len(events) != 1 {
		t.Fatalf("got %d VEVENTs, want 1", len(events))
	}
	ev := events[0]
	if ev.UID != "u1" {
		t.Errorf("UID = %q", ev.UID)
	}
	if ev.DTStart == nil || ev.DTStart.Form != FormUTC {
		t.Fatalf("DTStart = %#v", ev.DTStart)
	}
}

func TestParseRequiresBeginVCalendar(t *testing.T) {
	_, err := Parse([]byte("BEGIN:VEVENT\r\nEND:VEVENT\r\n"), "")
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestParseVEventRequiresUID(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nDTSTART:20240102T101500Z\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("expected error for missing UID")
	}
}

func TestParseVEventRequiresDTStart(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u1\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("expected error for missing DTSTART")
	}
}

func TestParseMismatchedEnd(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u1\r\nDTSTART:20240102T101500Z\r\nEND:VTODO\r\nEND:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("expected error for mismatched END")
	}
}

func TestParseUnknownComponentPreserved(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:X-CUSTOM\r\nFOO:bar\r\nEND:X-CUSTOM\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(root.Children()) != 1 || root.Children()[0].Kind != KindUnknown {
		t.Fatalf("expected one unknown child, got %#v", root.Children())
	}
}

func TestParseDTStartWithTZID(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VTIMEZONE\r\n" +
		"TZID:America/New_York\r\n" +
		"BEGIN:STANDARD\r\n" +
		"DTSTART:20071104T020000\r\n" +
		"TZOFFSETFROM:-0400\r\n" +
		"TZOFFSETTO:-0500\r\n" +
		"END:STANDARD\r\n" +
		"END:VTIMEZONE\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:u2\r\n" +
		"DTSTART;TZID=America/New_York:20240102T101500\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	if ev.DTStart.Resolved == nil {
		t.Fatal("expected DTSTART TZID to resolve")
	}
}

func TestParseUnresolvedTZIDFails(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\n" +
		"BEGIN:VEVENT\r\n" +
		"UID:u2\r\n" +
		"DTSTART;TZID=Nowhere:20240102T101500\r\n" +
		"END:VEVENT\r\n" +
		"END:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected timezone not found error, got %v", err)
	}
}

func TestParseRRuleValid(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u3\r\nDTSTART:20240102T101500Z\r\nRRULE:FREQ=WEEKLY;BYDAY=MO,WE,FR;COUNT=10\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	if ev.RRule == nil || ev.RRule.Freq != "WEEKLY" || len(ev.RRule.ByDay) != 3 {
		t.Fatalf("RRule = %#v", ev.RRule)
	}
}

func TestParseRRuleUnknownKeyFails(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u3\r\nDTSTART:20240102T101500Z\r\nRRULE:FREQ=WEEKLY;BOGUS=1\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("expected error for unknown RRULE key")
	}
}

func TestParseRRuleBySecondZeroFails(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u3\r\nDTSTART:20240102T101500Z\r\nRRULE:FREQ=SECONDLY;BYSECOND=0\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("expected error for BYSECOND=0")
	}
}

func TestParseRRuleBySecondValid(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u3\r\nDTSTART:20240102T101500Z\r\nRRULE:FREQ=SECONDLY;BYSECOND=1,59\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	if ev.RRule == nil || len(ev.RRule.BySecond) != 2 || ev.RRule.BySecond[0] != 1 || ev.RRule.BySecond[1] != 59 {
		t.Fatalf("RRule.BySecond = %#v", ev.RRule)
	}
}

func TestParseDurationMinutesOnly(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u4\r\nDTSTART:20240102T101500Z\r\nDURATION:PT15M\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	if ev.Duration == nil || ev.Duration.Minutes != 15 || ev.Duration.Hours != 0 || ev.Duration.Seconds != 0 {
		t.Fatalf("Duration = %#v", ev.Duration)
	}
}

func TestParseDurationSecondsOnly(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u4\r\nDTSTART:20240102T101500Z\r\nDURATION:PT30S\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	if ev.Duration == nil || ev.Duration.Seconds != 30 {
		t.Fatalf("Duration = %#v", ev.Duration)
	}
}

func TestParseDurationHourMinuteSecond(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u4\r\nDTSTART:20240102T101500Z\r\nDURATION:-PT1H30M15S\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	d := ev.Duration
	if d == nil || !d.Negative || d.Hours != 1 || d.Minutes != 30 || d.Seconds != 15 {
		t.Fatalf("Duration = %#v", d)
	}
}

func TestParseDurationDaysOnly(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u4\r\nDTSTART:20240102T101500Z\r\nDURATION:P3D\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	root, err := Parse([]byte(data), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ev := root.ChildrenOfKind(KindVEvent)[0]
	if ev.Duration == nil || ev.Duration.Days != 3 {
		t.Fatalf("Duration = %#v", ev.Duration)
	}
}

func TestParseDurationMalformedTrailingGarbage(t *testing.T) {
	data := "BEGIN:VCALENDAR\r\nBEGIN:VEVENT\r\nUID:u4\r\nDTSTART:20240102T101500Z\r\nDURATION:PT15MX\r\nEND:VEVENT\r\nEND:VCALENDAR\r\n"
	_, err := Parse([]byte(data), "")
	if err == nil {
		t.Fatal("expected error for malformed duration")
	}
}

func TestParseDiagnosticIncludesFilename(t *testing.T) {
	_, err := Parse([]byte("BEGIN:VEVENT\r\nEND:VEVENT\r\n"), "a.ics")
	if err == nil || !strings.HasPrefix(err.Error(), "a.ics:1:") {
		t.Fatalf("got %v", err)
	}
}
