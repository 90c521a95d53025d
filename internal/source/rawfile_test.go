package source

import (
	"testing"
	"time"
)

func TestParseRawFileLine(t *testing.T) {
	at, frame, err := parseRawFileLine("1500000000,8D4840D6202CC371C32CE0576098")
	if err != nil {
		t.Fatalf("parseRawFileLine: %v", err)
	}
	if at != 1500*time.Millisecond {
		t.Fatalf("at = %v, want 1.5s", at)
	}
	if len(frame) != 14 {
		t.Fatalf("frame length = %d, want 14", len(frame))
	}
}

func TestParseRawFileLineMalformed(t *testing.T) {
	cases := []string{
		"no comma here",
		"notanumber,8D4840D6202CC371C32CE0576098",
		"100,nothex",
		"100,",
	}
	for _, c := range cases {
		if _, _, err := parseRawFileLine(c); err == nil {
			t.Fatalf("expected error for %q", c)
		}
	}
}
