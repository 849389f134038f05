package tle

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestParseThreeLine(t *testing.T) {
	input := issName + "\n" + issLine1 + "\n" + issLine2 + "\nSTARLINK-1007\n" + starlinkLine1 + "\n" + starlinkLine2 + "\n"
	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].NORADID != 25544 || entries[0].Name != issName {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].NORADID != 44713 || entries[1].Name != "STARLINK-1007" {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestParseTwoLine(t *testing.T) {
	input := issLine1 + "\r\n" + issLine2 + "\r\n"
	e, err := ParseOne(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("ParseOne: %v", err)
	}
	if e.Name != "" || e.NORADID != 25544 {
		t.Errorf("entry = %+v", e)
	}
	if e.Line1 != issLine1 || e.Line2 != issLine2 {
		t.Errorf("lines not preserved: %q %q", e.Line1, e.Line2)
	}
}

func TestParseSkipsMalformed(t *testing.T) {
	input := "garbage\n" + issName + "\n" + issLine1 + "\n" + issLine2 + "\n"
	entries, err := Parse(strings.NewReader(input), testLogger)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(entries) != 1 || entries[0].NORADID != 25544 {
		t.Fatalf("entries = %+v", entries)
	}
}

func TestParseOneEmpty(t *testing.T) {
	if _, err := ParseOne(strings.NewReader("\n\n"), testLogger); !errors.Is(err, ErrNoEntries) {
		t.Fatalf("err = %v, want ErrNoEntries", err)
	}
}

func TestParseEpoch(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"24100.50000000", time.Date(2024, 4, 9, 12, 0, 0, 0, time.UTC)},
		{"00001.00000000", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC)},
		{"98001.25000000", time.Date(1998, 1, 1, 6, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		got, err := parseEpoch(tt.in)
		if err != nil {
			t.Fatalf("parseEpoch(%q): %v", tt.in, err)
		}
		if !got.Equal(tt.want) {
			t.Errorf("parseEpoch(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if _, err := parseEpoch("24"); err == nil {
		t.Error("short epoch: want error")
	}
}

func TestParseRejectsBadChecksum(t *testing.T) {
	corrupt := func(line string, col int) string {
		b := []byte(line)
		b[col] = '0' + (b[col]-'0'+1)%10
		return string(b)
	}

	tests := []struct {
		name         string
		line1, line2 string
	}{
		{"digit changed in line 1", corrupt(issLine1, 20), issLine2},
		{"digit changed in line 2", issLine1, corrupt(issLine2, 10)},
		{"checksum column changed", corrupt(issLine1, 68), issLine2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseEntry("", tt.line1, tt.line2); !errors.Is(err, ErrChecksum) {
				t.Fatalf("err = %v, want ErrChecksum", err)
			}
			_, err := ParseOne(strings.NewReader(tt.line1+"\n"+tt.line2+"\n"), testLogger)
			if !errors.Is(err, ErrNoEntries) {
				t.Fatalf("ParseOne err = %v, want ErrNoEntries", err)
			}
		})
	}

	if _, err := parseEntry("", issLine1[:40], issLine2); err == nil || errors.Is(err, ErrChecksum) {
		t.Errorf("truncated line: err = %v, want a length error", err)
	}
}

func TestChecksum(t *testing.T) {
	for _, line := range []string{issLine1, issLine2, starlinkLine1, starlinkLine2} {
		if got, want := checksum(line), int(line[68]-'0'); got != want {
			t.Errorf("checksum(%.20q...) = %d, want %d", line, got, want)
		}
	}
}
