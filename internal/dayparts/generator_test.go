package dayparts

import "testing"

func TestGenerate_ThreeParts(t *testing.T) {
	parts := Generate("9:00-17:00", 6)
	if len(parts) != 3 {
		t.Fatalf("expected 3 parts for an 8h day, got %d", len(parts))
	}
	if parts[0].Key != "opening" || parts[1].Key != "peak-hours" || parts[2].Key != "wind-down" {
		t.Fatalf("unexpected keys: %s %s %s", parts[0].Key, parts[1].Key, parts[2].Key)
	}
	if parts[0].TimeRange != "09:00-11:40" {
		t.Fatalf("unexpected first range: %s", parts[0].TimeRange)
	}
	if got := parts[2].TimeRange; got != "14:20-17:00" {
		t.Fatalf("last part must close at 17:00, got %s", got)
	}
	if parts[0].Energy != 4 || parts[1].Energy != 6 || parts[2].Energy != 7 {
		t.Fatalf("unexpected energies: %d %d %d", parts[0].Energy, parts[1].Energy, parts[2].Energy)
	}
}

func TestGenerate_ShortDayTwoParts(t *testing.T) {
	parts := Generate("18:00-23:00", 8)
	if len(parts) != 2 {
		t.Fatalf("expected 2 parts for a 5h day, got %d", len(parts))
	}
	if parts[0].Key != "opening" || parts[1].Key != "peak" {
		t.Fatalf("unexpected keys: %s %s", parts[0].Key, parts[1].Key)
	}
	if parts[0].Icon != "sunset" {
		t.Fatalf("18:00 start should map to sunset, got %s", parts[0].Icon)
	}
}

func TestGenerate_WrapsPastMidnight(t *testing.T) {
	parts := Generate("10am - 2am", 5)
	if len(parts) != 4 {
		t.Fatalf("expected 4 parts for a 16h day, got %d", len(parts))
	}
	last := parts[len(parts)-1]
	if got := last.TimeRange[len(last.TimeRange)-5:]; got != "02:00" {
		t.Fatalf("last part must close at 02:00, got %s", got)
	}
}

func TestGenerate_FallbackOnGarbage(t *testing.T) {
	parts := Generate("whenever we feel like it", 5)
	if len(parts) != 3 {
		t.Fatalf("expected fixed fallback parts, got %d", len(parts))
	}
	if parts[0].Key != "morning" || parts[2].Key != "evening" {
		t.Fatalf("unexpected fallback keys: %s %s", parts[0].Key, parts[2].Key)
	}
}

func TestGenerate_EnergyClamped(t *testing.T) {
	parts := Generate("9:00-17:00", 1)
	for _, p := range parts {
		if p.Energy < 1 || p.Energy > 10 {
			t.Fatalf("energy out of range: %+v", p)
		}
	}
	parts = Generate("9:00-17:00", 10)
	for _, p := range parts {
		if p.Energy > 10 {
			t.Fatalf("energy above cap: %+v", p)
		}
	}
}

func TestParseHours(t *testing.T) {
	cases := []struct {
		in          string
		open, close int
		ok          bool
	}{
		{"7:00-23:00", 420, 1380, true},
		{"7am to 11pm", 420, 1380, true},
		{"12pm-12am", 720, 0, true},
		{"open late", 0, 0, false},
		{"", 0, 0, false},
	}
	for _, c := range cases {
		open, close, ok := ParseHours(c.in)
		if ok != c.ok || open != c.open || close != c.close {
			t.Errorf("ParseHours(%q) = %d,%d,%v want %d,%d,%v", c.in, open, close, ok, c.open, c.close, c.ok)
		}
	}
}
