package expiry

import (
	"time"

	"github.com/saiset-co/sai-registry/types"
)

// PredicateAt translates a status tag into the expiry_date range the store
// can filter on directly, instead of classifying rows in application code.
// The ranges mirror StatusOf exactly over stored expiry dates (always UTC
// midnights): boundaries at +7d and +3d belong to warning and to no other
// tag. Entities without an expiry date never match any tag.
func PredicateAt(tag types.StatusTag, now time.Time) (types.Filter, error) {
	if !tag.Valid() {
		return nil, types.Errorf(types.ErrInvalidStatusTag, "tag: %s", tag)
	}

	today := MidnightUTC(now)
	addDays := func(days int) time.Time {
		return today.AddDate(0, 0, days)
	}

	filter := types.Where("expiry_date", types.OpIsSet, true)

	switch tag {
	case types.StatusSafe:
		filter = filter.And("expiry_date", types.OpGt, addDays(SafeAfterDays))
	case types.StatusWarning:
		filter = filter.
			And("expiry_date", types.OpGte, addDays(DangerBelowDays)).
			And("expiry_date", types.OpLte, addDays(SafeAfterDays))
	case types.StatusDanger:
		filter = filter.And("expiry_date", types.OpLt, addDays(DangerBelowDays))
	}

	return filter, nil
}

type FilterBuilder struct {
	clock Clock
}

func NewFilterBuilder(clock Clock) *FilterBuilder {
	if clock == nil {
		clock = SystemClock{}
	}
	return &FilterBuilder{clock: clock}
}

func (f *FilterBuilder) PredicateFor(tag types.StatusTag) (types.Filter, error) {
	return PredicateAt(tag, f.clock.Now())
}
