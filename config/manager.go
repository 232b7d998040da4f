package config

import (
	"sync/atomic"

	"github.com/saiset-co/sai-registry/types"
)

// ConfigurationManager holds the active configuration behind atomic pointers,
// so Load can swap in a fresh snapshot while readers keep the one they saw.
type ConfigurationManager struct {
	configPath string
	loader     *Loader
	config     atomic.Pointer[types.ServiceConfig]
	parser     atomic.Pointer[Parser]
}

func NewConfigurationManager(configPath string) (*ConfigurationManager, error) {
	cm := &ConfigurationManager{
		configPath: configPath,
		loader:     NewLoader(),
	}

	if err := cm.Load(); err != nil {
		return nil, types.WrapError(err, "failed to load initial configuration")
	}

	return cm, nil
}

func (cm *ConfigurationManager) Load() error {
	config, err := cm.loader.LoadFromFile(cm.configPath)
	if err != nil {
		return err
	}

	cm.config.Store(config)
	cm.parser.Store(NewParser(config))

	return nil
}

func (cm *ConfigurationManager) GetConfig() *types.ServiceConfig {
	return cm.config.Load()
}

func (cm *ConfigurationManager) GetValue(path string, defaultValue interface{}) interface{} {
	parser := cm.parser.Load()
	if parser == nil {
		return defaultValue
	}
	return parser.GetValue(path, defaultValue)
}
