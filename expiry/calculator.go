package expiry

import (
	"time"

	"github.com/saiset-co/sai-registry/types"
)

const msInDay = 24 * 60 * 60 * 1000

// Status thresholds in days remaining. The warning band is derived from the
// two single thresholds so the three ranges stay contiguous and
// non-overlapping: safe is strictly above SafeAfterDays, danger strictly
// below DangerBelowDays, warning everything between.
const (
	SafeAfterDays   = 7
	DangerBelowDays = 3
)

// MidnightUTC truncates an instant to the start of its UTC calendar day.
// All expiry arithmetic anchors here: repeated calls on the same calendar
// day must produce identical results regardless of wall-clock time, and no
// local time zone is ever consulted.
func MidnightUTC(t time.Time) time.Time {
	year, month, day := t.UTC().Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

func DateFromDaysAt(days *int, now time.Time) *time.Time {
	if days == nil {
		return nil
	}

	date := MidnightUTC(now).AddDate(0, 0, *days)
	return &date
}

// DaysRemainingAt is the ceiling of the millisecond distance between the
// two UTC midnights. Ceiling, not truncation: a deadline 12 hours into
// tomorrow still counts as one day remaining.
func DaysRemainingAt(expiryDate *time.Time, now time.Time) *int {
	if expiryDate == nil {
		return nil
	}

	diffMs := MidnightUTC(*expiryDate).Sub(MidnightUTC(now)).Milliseconds()
	days := diffMs / msInDay
	if diffMs%msInDay > 0 {
		days++
	}

	result := int(days)
	return &result
}

func StatusOf(daysRemaining *int) *types.StatusTag {
	if daysRemaining == nil {
		return nil
	}

	var tag types.StatusTag
	switch {
	case *daysRemaining > SafeAfterDays:
		tag = types.StatusSafe
	case *daysRemaining >= DangerBelowDays:
		tag = types.StatusWarning
	default:
		tag = types.StatusDanger
	}

	return &tag
}

func ResolveAt(expiryDate *time.Time, now time.Time) (*types.StatusTag, *int) {
	daysRemaining := DaysRemainingAt(expiryDate, now)
	return StatusOf(daysRemaining), daysRemaining
}

type Calculator struct {
	clock Clock
}

func NewCalculator(clock Clock) *Calculator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Calculator{clock: clock}
}

func (c *Calculator) Now() time.Time {
	return c.clock.Now()
}

func (c *Calculator) DateFromDays(days *int) *time.Time {
	return DateFromDaysAt(days, c.clock.Now())
}

func (c *Calculator) DaysRemaining(expiryDate *time.Time) *int {
	return DaysRemainingAt(expiryDate, c.clock.Now())
}

func (c *Calculator) Resolve(expiryDate *time.Time) (*types.StatusTag, *int) {
	return ResolveAt(expiryDate, c.clock.Now())
}

// Apply is the single place the expiry_date/expiry_days pair is produced.
// The date is always derived from the day count, never accepted from a
// caller, so the two fields cannot drift apart.
func (c *Calculator) Apply(days *int) (*int, *time.Time) {
	if days == nil {
		return nil, nil
	}

	d := *days
	return &d, c.DateFromDays(&d)
}
