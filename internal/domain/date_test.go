package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDateKeepsCalendarDayOfInput(t *testing.T) {
	cases := map[string]string{
		"2025-03-04":                "2025-03-04",
		" 2025-03-04 ":              "2025-03-04",
		"2025-03-04T00:30:00+03:00": "2025-03-04",
		"2025-03-04T23:30:00-05:00": "2025-03-04",
		"2025-03-04T12:00:00Z":      "2025-03-04",
	}
	for raw, want := range cases {
		got, err := ParseDate(raw)
		if err != nil {
			t.Fatalf("ParseDate(%q) failed: %v", raw, err)
		}
		if got.String() != want {
			t.Fatalf("ParseDate(%q) = %s, want %s", raw, got, want)
		}
		if got.Location() != time.UTC {
			t.Fatalf("ParseDate(%q) should normalize to UTC midnight, got %v", raw, got.Time)
		}
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("04/03/2025"); err == nil {
		t.Fatalf("expected non ISO date to be rejected")
	}
}

func TestDateJSON(t *testing.T) {
	var payload struct {
		On *Date `json:"on"`
	}
	if err := json.Unmarshal([]byte(`{"on":"2025-03-04T00:30:00+03:00"}`), &payload); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if payload.On == nil || payload.On.String() != "2025-03-04" {
		t.Fatalf("unexpected date %v", payload.On)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(raw) != `{"on":"2025-03-04"}` {
		t.Fatalf("unexpected json %s", raw)
	}
}
