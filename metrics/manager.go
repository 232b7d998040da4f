package metrics

import (
	"sync"

	"github.com/saiset-co/sai-registry/types"
)

var customMetricsCreators = sync.Map{}

func RegisterMetricsManager(name string, creator types.MetricsManagerCreator) {
	customMetricsCreators.Store(name, creator)
}

func NewManager(config types.ConfigManager, logger types.Logger) (types.MetricsManager, error) {
	metricsConfig := config.GetConfig().Metrics

	if metricsConfig == nil || !metricsConfig.Enabled {
		return nil, types.ErrMetricsIsDisabled
	}

	if metricsConfig.Path == "" {
		metricsConfig.Path = "/metrics"
	}

	switch metricsConfig.Type {
	case "", "prometheus":
		return NewPrometheusMetrics(logger, metricsConfig)
	default:
		if creator, exists := customMetricsCreators.Load(metricsConfig.Type); exists {
			return creator.(types.MetricsManagerCreator)(metricsConfig)
		}
		return nil, types.Errorf(types.ErrMetricsTypeUnknown, "type: %s", metricsConfig.Type)
	}
}
