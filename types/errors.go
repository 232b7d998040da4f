package types

import (
	"errors"
	"fmt"
)

var (
	ErrConfigNotFound       = errors.New("config not found")
	ErrConfigInvalidPath    = errors.New("config invalid path")
	ErrConfigParseFailed    = errors.New("config parse failed")
	ErrConfigIsNil          = errors.New("config is nil")
	ErrConfigLoadFailed     = errors.New("config load failed")
	ErrConfigValidateFailed = errors.New("config validate failed")
)

var (
	ErrServerNotRunning     = errors.New("server not running")
	ErrServerAlreadyRunning = errors.New("server already running")
	ErrServerStartFailed    = errors.New("server start failed")
	ErrServerStopFailed     = errors.New("server stop failed")
	ErrHandlerIsNil         = errors.New("handler is nil")
)

var (
	ErrCacheKeyEmpty        = errors.New("cache key empty")
	ErrCacheTypeUnknown     = errors.New("cache type unknown")
	ErrCacheIsDisabled      = errors.New("cache is disabled")
	ErrCacheOperationFailed = errors.New("cache operation failed")
)

var (
	ErrStoreTypeUnknown      = errors.New("store type unknown")
	ErrStoreIsDisabled       = errors.New("store is disabled")
	ErrStoreConnectionFailed = errors.New("store connection failed")
	ErrEmptyBatch            = errors.New("empty statement batch")
	ErrTransactionFailed     = errors.New("transaction failed")
)

var (
	ErrRecordNotFound   = errors.New("record not found")
	ErrInvalidArgument  = errors.New("invalid argument")
	ErrDuplicateRecord  = errors.New("duplicate record")
	ErrInvalidStatusTag = errors.New("invalid status tag")
	ErrExpiryDaysMissed = errors.New("expiry days required")
)

var (
	ErrCronJobNotFound       = errors.New("cron job not found")
	ErrCronJobExists         = errors.New("cron job exists")
	ErrCronExpressionInvalid = errors.New("cron expression invalid")
	ErrCronJobNameIsEmpty    = errors.New("cron job name is empty")
	ErrCronJobIsNil          = errors.New("cron job is nil")
	ErrCronIsDisabled        = errors.New("cron is disabled")
	ErrCronIsRunning         = errors.New("cron is running")
)

var (
	ErrMetricsTypeUnknown = errors.New("metrics type unknown")
	ErrMetricsIsDisabled  = errors.New("metrics is disabled")
)

var ErrMiddlewareInvalidType = errors.New("middleware invalid type")

var (
	ErrLogFileIsEmpty     = errors.New("log file is empty")
	ErrLogFileWrongFormat = errors.New("log file wrong format")
)

var (
	ErrServiceIsRunning    = errors.New("service is running")
	ErrServiceIsNotRunning = errors.New("service is not running")
	ErrComponentNotFound   = errors.New("component not found")
)

func Errorf(baseErr error, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", baseErr, fmt.Sprintf(format, args...))
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

func NewErrorf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}

func IsError(err, target error) bool {
	return errors.Is(err, target)
}

// IsRetryable reports whether the caller may safely re-run the failed
// operation. Only uncommitted transaction batches qualify: the cascade is a
// no-op on rows already inactive, so re-execution cannot corrupt state.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrTransactionFailed)
}
