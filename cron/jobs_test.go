package cron

import (
	"context"
	"testing"
	"time"

	"github.com/saiset-co/sai-registry/expiry"
	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/store"
	"github.com/saiset-co/sai-registry/types"
)

func TestRefreshExpiryMetadata_CoversFullHorizon(t *testing.T) {
	ctx := context.Background()
	log := logger.NewNopLogger()

	s, err := store.NewMemoryStore(ctx, log, &types.StoreConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}

	now := time.Date(2025, time.June, 1, 12, 0, 0, 0, time.UTC)
	calc := expiry.NewCalculator(expiry.FixedClock{Instant: now})

	day := func(offset int) time.Time {
		return time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, offset)
	}

	// Codes at the horizon, inside it, and already expired must all be
	// touched. Beyond the horizon, without a date, or inactive must not.
	insert := func(text string, date interface{}, active bool) {
		t.Helper()
		if _, err := s.Insert(ctx, types.TableTimedCodes, map[string]interface{}{
			"code_text":   text,
			"expiry_date": date,
			"is_active":   active,
		}); err != nil {
			t.Fatal(err)
		}
	}
	insert("beyond", day(10), true)
	insert("horizon", day(7), true)
	insert("warning", day(2), true)
	insert("expired", day(-5), true)
	insert("no-date", (*time.Time)(nil), true)
	insert("inactive", day(2), false)

	affected := refreshExpiryMetadata(ctx, s, calc, log)
	if affected != 3 {
		t.Errorf("refresh touched %d rows, want 3", affected)
	}
}
