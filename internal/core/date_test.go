package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2024-06-12")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	if d.String() != "2024-06-12" {
		t.Errorf("round trip = %q", d.String())
	}
	if d.Weekday() != time.Wednesday {
		t.Errorf("2024-06-12 should be a Wednesday, got %v", d.Weekday())
	}

	for _, bad := range []string{"12/06/2024", "2024-13-01", "yesterday", ""} {
		if _, err := ParseDate(bad); err == nil {
			t.Errorf("ParseDate(%q) expected error", bad)
		}
	}
}

func TestDateAddDays(t *testing.T) {
	d := NewDate(2024, 6, 12)
	if got := d.AddDays(-2).String(); got != "2024-06-10" {
		t.Errorf("AddDays(-2) = %s", got)
	}
	if got := d.AddDays(19).String(); got != "2024-07-01" {
		t.Errorf("AddDays(19) = %s, should cross month boundary", got)
	}
}

func TestDateJSON(t *testing.T) {
	b, err := json.Marshal(NewDate(2024, 6, 12))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(b) != `"2024-06-12"` {
		t.Errorf("marshal = %s", b)
	}

	var d Date
	if err := json.Unmarshal([]byte(`"2024-06-12"`), &d); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !d.Equal(NewDate(2024, 6, 12).Time) {
		t.Errorf("unmarshal = %v", d)
	}
}

func TestPeriodRangeContains(t *testing.T) {
	r := PeriodRange{From: NewDate(2024, 6, 10), To: NewDate(2024, 6, 16)}

	if r.Days() != 7 {
		t.Errorf("Days() = %d, want 7", r.Days())
	}
	if !r.Contains(NewDate(2024, 6, 10)) || !r.Contains(NewDate(2024, 6, 16)) {
		t.Error("bounds must be inclusive")
	}
	if r.Contains(NewDate(2024, 6, 9)) || r.Contains(NewDate(2024, 6, 17)) {
		t.Error("dates outside the window must be excluded")
	}
}

func TestBalanceMapSortedKeys(t *testing.T) {
	b := BalanceMap{
		42: Money{Cents: -500},
		7:  Money{Cents: 1000},
		19: Money{Cents: 250},
	}

	got, err := json.Marshal(b)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"7":10.00,"19":2.50,"42":-5.00}`
	if string(got) != want {
		t.Errorf("marshal = %s, want %s", got, want)
	}

	// Identical maps must serialize byte-identically.
	again, _ := json.Marshal(b)
	if string(again) != string(got) {
		t.Error("repeated marshal differs")
	}

	var back BalanceMap
	if err := json.Unmarshal(got, &back); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(back) != 3 || back[7].Cents != 1000 || back[42].Cents != -500 {
		t.Errorf("round trip = %v", back)
	}
}
