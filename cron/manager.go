package cron

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type Manager struct {
	ctx      context.Context
	cancel   context.CancelFunc
	logger   types.Logger
	metrics  types.MetricsManager
	cron     *cron.Cron
	timezone *time.Location
	jobs     map[string]*types.JobEntry
	state    atomic.Value
	mu       sync.RWMutex
}

func NewManager(ctx context.Context, config types.ConfigManager, logger types.Logger, metrics types.MetricsManager) (types.CronManager, error) {
	cronConfig := config.GetConfig().Cron

	if cronConfig == nil || !cronConfig.Enabled {
		return nil, types.ErrCronIsDisabled
	}

	timezone, err := time.LoadLocation(cronConfig.Timezone)
	if err != nil {
		timezone = time.UTC
	}

	managerCtx, cancel := context.WithCancel(ctx)

	manager := &Manager{
		ctx:      managerCtx,
		cancel:   cancel,
		logger:   logger,
		metrics:  metrics,
		timezone: timezone,
		jobs:     make(map[string]*types.JobEntry),
		cron: cron.New(
			cron.WithLocation(timezone),
			cron.WithChain(cron.Recover(cronLogger{logger: logger})),
		),
	}

	manager.state.Store(StateStopped)

	return manager, nil
}

func (m *Manager) Add(jobName, spec string, job func()) error {
	if jobName == "" {
		return types.ErrCronJobNameIsEmpty
	}

	if spec == "" {
		return types.ErrCronExpressionInvalid
	}

	if job == nil {
		return types.ErrCronJobIsNil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[jobName]; exists {
		return types.ErrCronJobExists
	}

	wrapped := m.wrapJob(jobName, job)
	entryID, err := m.cron.AddFunc(spec, wrapped)
	if err != nil {
		return types.WrapError(err, "failed to add cron job")
	}

	m.jobs[jobName] = &types.JobEntry{
		ID:      entryID,
		Name:    jobName,
		Spec:    spec,
		Job:     wrapped,
		AddedAt: time.Now(),
	}

	m.logger.Info("Cron job added",
		zap.String("job_name", jobName),
		zap.String("spec", spec))

	return nil
}

func (m *Manager) Remove(jobName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, exists := m.jobs[jobName]
	if !exists {
		return types.ErrCronJobNotFound
	}

	m.cron.Remove(entry.ID)
	delete(m.jobs, jobName)

	m.logger.Info("Cron job removed", zap.String("job_name", jobName))
	return nil
}

func (m *Manager) Start() error {
	if !m.state.CompareAndSwap(StateStopped, StateStarting) {
		return types.ErrCronIsRunning
	}

	m.cron.Start()
	m.state.CompareAndSwap(StateStarting, StateRunning)
	m.setSchedulerGauge(1)

	m.logger.Info("Cron manager started", zap.String("timezone", m.timezone.String()))
	return nil
}

func (m *Manager) Stop() error {
	if !m.state.CompareAndSwap(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		m.state.Store(StateStopped)
		m.cancel()
	}()

	stopCtx := m.cron.Stop()
	select {
	case <-stopCtx.Done():
		m.logger.Info("Cron scheduler stopped gracefully")
	case <-time.After(10 * time.Second):
		m.logger.Warn("Cron scheduler stop timeout, a job may still be running")
	}

	m.setSchedulerGauge(0)
	return nil
}

func (m *Manager) IsRunning() bool {
	return m.state.Load().(State) == StateRunning
}

func (m *Manager) wrapJob(jobName string, job func()) func() {
	return func() {
		select {
		case <-m.ctx.Done():
			m.logger.Info("Job skipped due to shutdown", zap.String("job_name", jobName))
			return
		default:
		}

		start := time.Now()
		m.logger.Debug("Cron job started", zap.String("job_name", jobName))

		var jobErr error
		func() {
			defer func() {
				if r := recover(); r != nil {
					jobErr = types.NewErrorf("job panic: %v", r)
				}
			}()
			job()
		}()

		duration := time.Since(start)
		m.recordRun(jobName, jobErr, duration)

		if jobErr != nil {
			m.logger.Error("Cron job failed",
				zap.String("job_name", jobName),
				zap.Duration("duration", duration),
				zap.Error(jobErr))
			return
		}

		m.logger.Info("Cron job completed",
			zap.String("job_name", jobName),
			zap.Duration("duration", duration))
	}
}

func (m *Manager) recordRun(jobName string, jobErr error, duration time.Duration) {
	m.mu.Lock()
	if entry, exists := m.jobs[jobName]; exists {
		entry.LastRun = time.Now()
		entry.RunCount++
		entry.Error = jobErr
	}
	m.mu.Unlock()

	if m.metrics == nil {
		return
	}

	result := "success"
	if jobErr != nil {
		result = "error"
	}

	m.metrics.Counter("cron_job_executions_total", map[string]string{
		"job_name": jobName,
		"result":   result,
	}).Inc()

	m.metrics.Histogram("cron_job_duration_seconds",
		[]float64{0.1, 1.0, 10.0, 60.0, 300.0},
		map[string]string{"job_name": jobName},
	).Observe(duration.Seconds())
}

func (m *Manager) setSchedulerGauge(value float64) {
	if m.metrics == nil {
		return
	}
	m.metrics.Gauge("cron_scheduler_running", nil).Set(value)
}

type cronLogger struct {
	logger types.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Info(msg, toFields(keysAndValues)...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	fields := append(toFields(keysAndValues), zap.Error(err))
	l.logger.Error(msg, fields...)
}

func toFields(keysAndValues []interface{}) []zap.Field {
	fields := make([]zap.Field, 0, len(keysAndValues)/2)
	for i := 0; i < len(keysAndValues)-1; i += 2 {
		fields = append(fields, zap.Any(fmt.Sprintf("%v", keysAndValues[i]), keysAndValues[i+1]))
	}
	return fields
}
