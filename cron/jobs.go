package cron

import (
	"context"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/expiry"
	"github.com/saiset-co/sai-registry/types"
)

const (
	sweepJobName   = "cache_sweep"
	refreshJobName = "expiry_refresh"

	defaultSweepSchedule   = "*/5 * * * *"
	defaultRefreshSchedule = "10 0 * * *"
)

// RegisterJobs wires the two housekeeping jobs: a periodic sweep that drops
// expired cache entries without waiting for a read to hit them, and a daily
// pass that touches every record whose expiry date sits at or inside the
// warning horizon, expired rows included, so updated_at reflects the drift.
func RegisterJobs(ctx context.Context, manager types.CronManager, config *types.CronConfig, cache types.ResponseCache, store types.EntityStore, calc *expiry.Calculator, logger types.Logger) error {
	sweepSchedule := config.SweepSchedule
	if sweepSchedule == "" {
		sweepSchedule = defaultSweepSchedule
	}

	refreshSchedule := config.RefreshSchedule
	if refreshSchedule == "" {
		refreshSchedule = defaultRefreshSchedule
	}

	if cache != nil {
		err := manager.Add(sweepJobName, sweepSchedule, func() {
			removed := cache.Sweep()
			if removed > 0 {
				logger.Info("Cache sweep removed expired entries", zap.Int("removed", removed))
			}
		})
		if err != nil {
			return err
		}
	}

	if store != nil {
		err := manager.Add(refreshJobName, refreshSchedule, func() {
			refreshExpiryMetadata(ctx, store, calc, logger)
		})
		if err != nil {
			return err
		}
	}

	return nil
}

func refreshExpiryMetadata(ctx context.Context, store types.EntityStore, calc *expiry.Calculator, logger types.Logger) int64 {
	now := calc.Now()
	horizon := expiry.MidnightUTC(now).AddDate(0, 0, expiry.SafeAfterDays)

	filter := types.ActiveOnly().
		And("expiry_date", types.OpIsSet, true).
		And("expiry_date", types.OpLte, horizon)
	set := map[string]interface{}{"updated_at": now}

	var total int64
	for _, table := range []string{types.TableTimedCodes, types.TableAttachments} {
		affected, err := store.Update(ctx, table, filter, set)
		if err != nil {
			logger.Error("Expiry refresh failed",
				zap.String("table", table),
				zap.Error(err))
			continue
		}

		total += affected
		if affected > 0 {
			logger.Info("Expiry refresh touched records",
				zap.String("table", table),
				zap.Int64("affected", affected))
		}
	}

	return total
}
