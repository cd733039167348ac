package ical

import "testing"

func TestReadLogicalLinesUnfoldsContinuations(t *testing.T) {
	data := []byte("BEGIN:VCALENDAR\r\nSUMMARY:long su\r\n mmary\r\nEND:VCALENDAR\r\n")
	lines, err := ReadLogicalLines(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"BEGIN:VCALENDAR", "SUMMARY:long summary", "END:VCALENDAR"}
	if len(lines) != len(want) {
		t.Fatalf("got %d lines, want %d: %#v", len(lines), len(want), lines)
	}
	for i, w := range want {
		if lines[i].Text != w {
			t.Errorf("line %d = %q, want %q", i, lines[i].Text, w)
		}
	}
}

func TestReadLogicalLinesBareLF(t *testing.T) {
	data := []byte("A:1\nB:2\n")
	lines, err := ReadLogicalLines(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 || lines[0].Text != "A:1" || lines[1].Text != "B:2" {
		t.Fatalf("got %#v", lines)
	}
}

func TestReadLogicalLinesNoTrailingTerminator(t *testing.T) {
	data := []byte("A:1\r\nB:2")
	lines, err := ReadLogicalLines(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 || lines[1].Text != "B:2" {
		t.Fatalf("got %#v", lines)
	}
}

func TestReadLogicalLinesEmptyInputFails(t *testing.T) {
	_, err := ReadLogicalLines(nil)
	if err == nil {
		t.Fatal("expected error for empty input")
	}
}

func TestReadLogicalLinesLineNumbers(t *testing.T) {
	data := []byte("A:1\r\nB:2\r\n C\r\nD:3\r\n")
	lines, err := ReadLogicalLines(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lines[1].Text != "B:2C" {
		t.Fatalf("continuation not merged: %#v", lines)
	}
	if lines[1].Line != 2 {
		t.Errorf("got line %d, want 2", lines[1].Line)
	}
	if lines[2].Line != 4 {
		t.Errorf("got line %d, want 4", lines[2].Line)
	}
}
