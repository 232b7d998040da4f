package expiry

import (
	"testing"
	"time"

	"github.com/saiset-co/sai-registry/types"
)

func TestPredicateAt_UnknownTag(t *testing.T) {
	_, err := PredicateAt(types.StatusTag("fresh"), time.Now())
	if err == nil {
		t.Fatal("unknown tag must fail, not fall back to no filter")
	}
	if !types.IsError(err, types.ErrInvalidStatusTag) {
		t.Errorf("want ErrInvalidStatusTag, got %v", err)
	}
}

func TestPredicateAt_Ranges(t *testing.T) {
	now := time.Date(2025, 6, 10, 14, 0, 0, 0, time.UTC)
	today := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	filter, err := PredicateAt(types.StatusSafe, now)
	if err != nil {
		t.Fatal(err)
	}
	assertCondition(t, filter, "expiry_date", types.OpGt, today.AddDate(0, 0, 7))

	filter, err = PredicateAt(types.StatusWarning, now)
	if err != nil {
		t.Fatal(err)
	}
	assertCondition(t, filter, "expiry_date", types.OpGte, today.AddDate(0, 0, 3))
	assertCondition(t, filter, "expiry_date", types.OpLte, today.AddDate(0, 0, 7))

	filter, err = PredicateAt(types.StatusDanger, now)
	if err != nil {
		t.Fatal(err)
	}
	assertCondition(t, filter, "expiry_date", types.OpLt, today.AddDate(0, 0, 3))

	for _, tag := range []types.StatusTag{types.StatusSafe, types.StatusWarning, types.StatusDanger} {
		filter, err := PredicateAt(tag, now)
		if err != nil {
			t.Fatal(err)
		}
		assertCondition(t, filter, "expiry_date", types.OpIsSet, true)
	}
}

// The filter and StatusOf must agree on membership: evaluating the
// predicate over a spread of stored expiry dates and re-classifying each
// date through ResolveAt yields exactly the same assignment.
func TestPredicateAt_RoundTripsThroughStatusOf(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)

	var dates []time.Time
	for d := -10; d <= 20; d++ {
		dates = append(dates, MidnightUTC(now).AddDate(0, 0, d))
	}

	for _, tag := range []types.StatusTag{types.StatusSafe, types.StatusWarning, types.StatusDanger} {
		filter, err := PredicateAt(tag, now)
		if err != nil {
			t.Fatal(err)
		}

		for _, date := range dates {
			date := date
			inRange := evalFilter(filter, &date)
			status, _ := ResolveAt(&date, now)
			tagged := status != nil && *status == tag

			if inRange != tagged {
				t.Errorf("tag %s, date %v: filter says %v, StatusOf says %v",
					tag, date, inRange, tagged)
			}
		}

		if evalFilter(filter, nil) {
			t.Errorf("tag %s: nil expiry date must never match", tag)
		}
	}
}

func evalFilter(filter types.Filter, date *time.Time) bool {
	for _, cond := range filter {
		switch cond.Op {
		case types.OpIsSet:
			if date == nil {
				return false
			}
		case types.OpGt:
			if date == nil || !date.After(cond.Value.(time.Time)) {
				return false
			}
		case types.OpGte:
			if date == nil || date.Before(cond.Value.(time.Time)) {
				return false
			}
		case types.OpLt:
			if date == nil || !date.Before(cond.Value.(time.Time)) {
				return false
			}
		case types.OpLte:
			if date == nil || date.After(cond.Value.(time.Time)) {
				return false
			}
		}
	}
	return true
}

func assertCondition(t *testing.T, filter types.Filter, field string, op types.Op, value interface{}) {
	t.Helper()

	for _, cond := range filter {
		if cond.Field != field || cond.Op != op {
			continue
		}
		if want, ok := value.(time.Time); ok {
			if got, ok := cond.Value.(time.Time); ok && got.Equal(want) {
				return
			}
			continue
		}
		if cond.Value == value {
			return
		}
	}

	t.Errorf("filter %v missing condition %s %s %v", filter, field, op, value)
}
