package expiry

import (
	"testing"
	"time"

	"github.com/saiset-co/sai-registry/types"
)

func intPtr(v int) *int { return &v }

func TestDateFromDaysAt(t *testing.T) {
	now := time.Date(2025, 6, 10, 15, 42, 7, 0, time.UTC)

	if got := DateFromDaysAt(nil, now); got != nil {
		t.Errorf("nil days should produce nil date, got %v", got)
	}

	got := DateFromDaysAt(intPtr(7), now)
	want := time.Date(2025, 6, 17, 0, 0, 0, 0, time.UTC)
	if got == nil || !got.Equal(want) {
		t.Errorf("DateFromDaysAt(7) = %v, want %v", got, want)
	}
}

func TestDateFromDaysAt_SameCalendarDay(t *testing.T) {
	morning := time.Date(2025, 6, 10, 0, 0, 1, 0, time.UTC)
	evening := time.Date(2025, 6, 10, 23, 59, 59, 0, time.UTC)

	a := DateFromDaysAt(intPtr(30), morning)
	b := DateFromDaysAt(intPtr(30), evening)
	if !a.Equal(*b) {
		t.Errorf("same calendar day must anchor identically: %v vs %v", a, b)
	}
}

func TestDaysRemainingAt_RoundTrip(t *testing.T) {
	now := time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)

	for d := 0; d <= 30; d++ {
		date := DateFromDaysAt(intPtr(d), now)
		got := DaysRemainingAt(date, now)
		if got == nil || *got != d {
			t.Fatalf("round trip for d=%d: got %v", d, got)
		}
	}
}

func TestDaysRemainingAt_Ceiling(t *testing.T) {
	now := time.Date(2025, 6, 10, 18, 0, 0, 0, time.UTC)

	// A deadline 12 hours into tomorrow is still one day away.
	tomorrowNoon := time.Date(2025, 6, 11, 12, 0, 0, 0, time.UTC)
	if got := DaysRemainingAt(&tomorrowNoon, now); got == nil || *got != 1 {
		t.Errorf("tomorrow noon should be 1 day remaining, got %v", got)
	}

	yesterday := time.Date(2025, 6, 9, 0, 0, 0, 0, time.UTC)
	if got := DaysRemainingAt(&yesterday, now); got == nil || *got != -1 {
		t.Errorf("yesterday should be -1 days remaining, got %v", got)
	}

	if got := DaysRemainingAt(nil, now); got != nil {
		t.Errorf("nil expiry date should yield nil, got %v", got)
	}
}

func TestStatusOf_Thresholds(t *testing.T) {
	cases := []struct {
		days *int
		want *types.StatusTag
	}{
		{intPtr(8), tagPtr(types.StatusSafe)},
		{intPtr(100), tagPtr(types.StatusSafe)},
		{intPtr(7), tagPtr(types.StatusWarning)},
		{intPtr(5), tagPtr(types.StatusWarning)},
		{intPtr(3), tagPtr(types.StatusWarning)},
		{intPtr(2), tagPtr(types.StatusDanger)},
		{intPtr(0), tagPtr(types.StatusDanger)},
		{intPtr(-1), tagPtr(types.StatusDanger)},
		{nil, nil},
	}

	for _, tc := range cases {
		got := StatusOf(tc.days)
		if (got == nil) != (tc.want == nil) {
			t.Errorf("StatusOf(%v) = %v, want %v", deref(tc.days), got, tc.want)
			continue
		}
		if got != nil && *got != *tc.want {
			t.Errorf("StatusOf(%d) = %s, want %s", *tc.days, *got, *tc.want)
		}
	}
}

func TestResolveAt_Scenario(t *testing.T) {
	// expiry_days=7 set on day D makes expiry_date = D+7; a day later the
	// record is warning, on D+5 it is danger.
	dayD := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	date := DateFromDaysAt(intPtr(7), dayD)

	wantDate := time.Date(2025, 3, 8, 0, 0, 0, 0, time.UTC)
	if !date.Equal(wantDate) {
		t.Fatalf("expiry date = %v, want %v", date, wantDate)
	}

	tag, days := ResolveAt(date, dayD.AddDate(0, 0, 1))
	if days == nil || *days != 6 {
		t.Errorf("D+1 days remaining = %v, want 6", days)
	}
	if tag == nil || *tag != types.StatusWarning {
		t.Errorf("D+1 status = %v, want warning", tag)
	}

	tag, days = ResolveAt(date, dayD.AddDate(0, 0, 5))
	if days == nil || *days != 2 {
		t.Errorf("D+5 days remaining = %v, want 2", days)
	}
	if tag == nil || *tag != types.StatusDanger {
		t.Errorf("D+5 status = %v, want danger", tag)
	}
}

func TestCalculator_Apply(t *testing.T) {
	clock := FixedClock{Instant: time.Date(2025, 6, 10, 22, 11, 0, 0, time.UTC)}
	calc := NewCalculator(clock)

	days, date := calc.Apply(nil)
	if days != nil || date != nil {
		t.Errorf("Apply(nil) = (%v, %v), want both nil", days, date)
	}

	days, date = calc.Apply(intPtr(14))
	if days == nil || *days != 14 {
		t.Fatalf("Apply(14) days = %v", days)
	}
	want := time.Date(2025, 6, 24, 0, 0, 0, 0, time.UTC)
	if date == nil || !date.Equal(want) {
		t.Errorf("Apply(14) date = %v, want %v", date, want)
	}
}

func tagPtr(tag types.StatusTag) *types.StatusTag { return &tag }

func deref(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}
