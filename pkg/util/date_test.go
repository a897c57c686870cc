package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestAlignFromToDaily(t *testing.T) {
	from := time.Date(2024, 10, 10, 13, 45, 12, 0, time.UTC)
	to := time.Date(2024, 10, 20, 9, 1, 0, 0, time.UTC)
	gotFrom, gotTo := AlignFromTo(from, to, "1d")
	if gotFrom.Hour() != 0 || gotFrom.Minute() != 0 {
		t.Fatalf("from not aligned to day: %v", gotFrom)
	}
	if gotTo.Hour() != 0 || gotTo.Day() != 20 {
		t.Fatalf("to not aligned to day: %v", gotTo)
	}
}

func TestBucketDurationFallsBackToDaily(t *testing.T) {
	if got := BucketDuration("7w"); got != 24*time.Hour {
		t.Fatalf("unexpected duration %v", got)
	}
	if got := BucketDuration("5m"); got != 5*time.Minute {
		t.Fatalf("unexpected duration %v", got)
	}
}
