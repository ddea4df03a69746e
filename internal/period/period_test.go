package period

import (
	"testing"

	"equilo/internal/core"
)

// Wednesday, used as the fixed "today" throughout.
var wed = core.NewDate(2024, 6, 12)

func TestResolve(t *testing.T) {
	anchor := core.NewDate(2024, 5, 31)

	tests := []struct {
		name      string
		kind      Kind
		weekStart WeekStart
		anchorEnd *core.Date
		wantFrom  string
		wantTo    string
	}{
		{
			name: "weekly monday start", kind: Weekly, weekStart: Monday,
			wantFrom: "2024-06-10", wantTo: "2024-06-16",
		},
		{
			name: "weekly sunday start", kind: Weekly, weekStart: Sunday,
			wantFrom: "2024-06-09", wantTo: "2024-06-15",
		},
		{
			name: "fortnightly monday start", kind: Fortnightly, weekStart: Monday,
			wantFrom: "2024-06-03", wantTo: "2024-06-16",
		},
		{
			name: "fortnightly sunday start", kind: Fortnightly, weekStart: Sunday,
			wantFrom: "2024-06-02", wantTo: "2024-06-15",
		},
		{
			name: "weekly anchored", kind: Weekly, weekStart: Monday, anchorEnd: &anchor,
			wantFrom: "2024-05-25", wantTo: "2024-05-31",
		},
		{
			name: "fortnightly anchored", kind: Fortnightly, weekStart: Monday, anchorEnd: &anchor,
			wantFrom: "2024-05-18", wantTo: "2024-05-31",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := Resolve(tt.kind, tt.weekStart, tt.anchorEnd, wed)
			if r.From.String() != tt.wantFrom || r.To.String() != tt.wantTo {
				t.Errorf("Resolve = %s..%s, want %s..%s",
					r.From, r.To, tt.wantFrom, tt.wantTo)
			}
			if err := Validate(r); err != nil {
				t.Errorf("resolved range invalid: %v", err)
			}
		})
	}
}

func TestResolveOnBoundaries(t *testing.T) {
	// Today already on the start or end of the week must stay inside the
	// same window.
	mon := core.NewDate(2024, 6, 10)
	sun := core.NewDate(2024, 6, 16)

	for _, today := range []core.Date{mon, sun} {
		r := Resolve(Weekly, Monday, nil, today)
		if r.From.String() != "2024-06-10" || r.To.String() != "2024-06-16" {
			t.Errorf("Resolve(today=%s) = %s..%s", today, r.From, r.To)
		}
	}
}

func TestPreviousNext(t *testing.T) {
	r := Resolve(Weekly, Monday, nil, wed)

	prev := Previous(r)
	if prev.From.String() != "2024-06-03" || prev.To.String() != "2024-06-09" {
		t.Errorf("Previous = %s..%s", prev.From, prev.To)
	}

	next := Next(prev)
	if next != r {
		t.Errorf("Next(Previous(r)) = %s..%s, want %s..%s",
			next.From, next.To, r.From, r.To)
	}

	// Fortnightly windows step by 14 days.
	fr := Resolve(Fortnightly, Monday, nil, wed)
	fprev := Previous(fr)
	if fprev.From.String() != "2024-05-20" || fprev.To.String() != "2024-06-02" {
		t.Errorf("fortnightly Previous = %s..%s", fprev.From, fprev.To)
	}
	if fprev.Days() != 14 {
		t.Errorf("fortnightly window length = %d", fprev.Days())
	}
}

func TestCanAdvance(t *testing.T) {
	current := Resolve(Weekly, Monday, nil, wed)
	if CanAdvance(current, wed) {
		t.Error("current window must not advance beyond today")
	}

	past := Previous(current)
	if !CanAdvance(past, wed) {
		t.Error("fully past window must advance")
	}

	// Window ending exactly today is not advanceable either.
	endsToday := core.PeriodRange{From: wed.AddDays(-6), To: wed}
	if CanAdvance(endsToday, wed) {
		t.Error("window ending today must not advance")
	}
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		input   string
		want    Kind
		wantErr bool
	}{
		{input: "", want: Weekly},
		{input: "weekly", want: Weekly},
		{input: "fortnightly", want: Fortnightly},
		{input: "monthly", wantErr: true},
		{input: "Weekly", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseKind(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseKind(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil || got != tt.want {
			t.Errorf("ParseKind(%q) = %v, %v", tt.input, got, err)
		}
	}
}

func TestParseWeekStart(t *testing.T) {
	if ws, err := ParseWeekStart(""); err != nil || ws != Monday {
		t.Errorf("empty week start = %v, %v, want monday default", ws, err)
	}
	if ws, err := ParseWeekStart("sunday"); err != nil || ws != Sunday {
		t.Errorf("ParseWeekStart(sunday) = %v, %v", ws, err)
	}
	if _, err := ParseWeekStart("saturday"); err == nil {
		t.Error("saturday should be rejected")
	}
}

func TestValidate(t *testing.T) {
	ok := core.PeriodRange{From: core.NewDate(2024, 6, 10), To: core.NewDate(2024, 6, 16)}
	if err := Validate(ok); err != nil {
		t.Errorf("valid range rejected: %v", err)
	}

	inverted := core.PeriodRange{From: ok.To, To: ok.From}
	if err := Validate(inverted); err == nil {
		t.Error("inverted range accepted")
	}
	if err := Validate(core.PeriodRange{}); err == nil {
		t.Error("zero range accepted")
	}
}
