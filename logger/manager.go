package logger

import (
	"github.com/saiset-co/sai-registry/types"
)

type LoggerCreator func(config interface{}) (types.Logger, error)

var customLoggerCreators = make(map[string]LoggerCreator)

func RegisterLogger(loggerName string, creator LoggerCreator) {
	customLoggerCreators[loggerName] = creator
}

func NewLogger(loggerConfig *types.LoggerConfig) (types.Logger, error) {
	if loggerConfig == nil {
		return nil, types.ErrConfigIsNil
	}

	loggerName := "default"
	if loggerConfig.Type != "" {
		loggerName = loggerConfig.Type
	}

	switch loggerName {
	case "default":
		return NewDefaultLogger(loggerConfig)
	default:
		if creator, exists := customLoggerCreators[loggerName]; exists {
			return creator(loggerConfig.Config)
		}
		return nil, types.NewErrorf("unknown logger type: %s", loggerName)
	}
}
