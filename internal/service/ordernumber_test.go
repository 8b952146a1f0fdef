package service

import (
	"testing"
	"time"
)

func TestOrderNumberDayPrefix(t *testing.T) {
	day := time.Date(2026, 8, 30, 14, 30, 0, 0, time.UTC)
	if got := orderNumberDayPrefix(day); got != "FN-20260830-" {
		t.Errorf("day prefix: got %q, want FN-20260830-", got)
	}
}

func TestBuildOrderNumber_ZeroPadded(t *testing.T) {
	cases := []struct {
		seq  int64
		want string
	}{
		{1, "FN-20260830-000001"},
		{42, "FN-20260830-000042"},
		{999999, "FN-20260830-999999"},
	}
	for _, c := range cases {
		if got := buildOrderNumber("FN-20260830-", c.seq); got != c.want {
			t.Errorf("buildOrderNumber(%d): got %q, want %q", c.seq, got, c.want)
		}
	}
}

func TestParseOrderSequence(t *testing.T) {
	if got := parseOrderSequence("FN-20260830-000041"); got != 41 {
		t.Errorf("parse: got %d, want 41", got)
	}
}

func TestParseOrderSequence_Malformed(t *testing.T) {
	cases := []string{
		"",
		"FN-20260830",
		"FN-20260830-abc",
		"garbage",
	}
	for _, c := range cases {
		if got := parseOrderSequence(c); got != 0 {
			t.Errorf("parseOrderSequence(%q): got %d, want 0", c, got)
		}
	}
}

func TestBuildParseRoundTrip(t *testing.T) {
	prefix := orderNumberDayPrefix(time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC))
	n := buildOrderNumber(prefix, 123)
	if got := parseOrderSequence(n); got != 123 {
		t.Errorf("round trip: got %d, want 123", got)
	}
}

func TestFallbackOrderNumber(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC)
	got := fallbackOrderNumber("FN-20260830-", now)

	want := buildOrderNumber("FN-20260830-", now.UnixMilli()%1000000)
	if got != want {
		t.Errorf("fallback: got %q, want %q", got, want)
	}
	if len(got) != len("FN-20260830-000000") {
		t.Errorf("fallback length: got %d, want %d", len(got), len("FN-20260830-000000"))
	}
}
