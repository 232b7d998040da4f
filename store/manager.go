package store

import (
	"context"

	"github.com/saiset-co/sai-registry/types"
)

var customStoreCreators = make(map[string]types.EntityStoreCreator)

func RegisterEntityStore(storeType string, creator types.EntityStoreCreator) {
	customStoreCreators[storeType] = creator
}

func NewEntityStore(ctx context.Context, config types.ConfigManager, logger types.Logger) (types.EntityStore, error) {
	storeConfig := config.GetConfig().Store

	if storeConfig == nil || !storeConfig.Enabled {
		return nil, types.ErrStoreIsDisabled
	}

	switch storeConfig.Type {
	case "sqlite":
		return NewSQLiteStore(ctx, logger, storeConfig)
	case "memory":
		return NewMemoryStore(ctx, logger, storeConfig)
	default:
		if creator, exists := customStoreCreators[storeConfig.Type]; exists {
			return creator(storeConfig)
		}
		return nil, types.Errorf(types.ErrStoreTypeUnknown, "type: %s", storeConfig.Type)
	}
}
