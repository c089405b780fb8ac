package timeutil

import (
	"errors"
	"testing"
	"time"

	"github.com/me/godag/pkg/model"
)

func TestParseAwareUTC(t *testing.T) {
	got, err := ParseAware("2023-01-01T00:00:00Z")
	if err != nil {
		t.Fatalf("ParseAware: %v", err)
	}
	want := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Errorf("location = %v, want UTC", got.Location())
	}
}

func TestParseAwareNormalizesOffset(t *testing.T) {
	// No matter what zone the input carries, we always get back UTC.
	got, err := ParseAware("2023-06-01T12:00:00+02:00")
	if err != nil {
		t.Fatalf("ParseAware: %v", err)
	}
	want := time.Date(2023, 6, 1, 10, 0, 0, 0, time.UTC)
	if !got.Equal(want) || got.Location() != time.UTC {
		t.Errorf("got %v (%v), want %v UTC", got, got.Location(), want)
	}
}

func TestParseAwareRejectsNaive(t *testing.T) {
	for _, s := range []string{"2023-01-01T00:00:00", "2023-01-01 00:00:00", "2023-01-01"} {
		_, err := ParseAware(s)
		if !errors.Is(err, model.ErrNaiveTimestamp) {
			t.Errorf("ParseAware(%q) err = %v, want ErrNaiveTimestamp", s, err)
		}
	}
}

func TestFrozenClock(t *testing.T) {
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	clk := NewFrozenClock(base)
	if !clk.Now().Equal(base) {
		t.Fatalf("Now() = %v, want %v", clk.Now(), base)
	}
	clk.Advance(time.Hour)
	if !clk.Now().Equal(base.Add(time.Hour)) {
		t.Errorf("after Advance, Now() = %v", clk.Now())
	}

	// A frozen clock constructed from a zoned instant still reads UTC.
	warsaw := time.FixedZone("CET", 3600)
	clk2 := NewFrozenClock(time.Date(2024, 3, 1, 9, 0, 0, 0, warsaw))
	if clk2.Now().Location() != time.UTC {
		t.Errorf("FrozenClock location = %v, want UTC", clk2.Now().Location())
	}
	if !clk2.Now().Equal(base) {
		t.Errorf("FrozenClock = %v, want %v", clk2.Now(), base)
	}
}

func TestFormat(t *testing.T) {
	ts := time.Date(2023, 1, 2, 3, 4, 5, 0, time.FixedZone("X", -5*3600))
	if got := Format(ts); got != "2023-01-02T08:04:05Z" {
		t.Errorf("Format = %q", got)
	}
}
