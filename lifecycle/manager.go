package lifecycle

import (
	"context"

	"go.uber.org/zap"

	"github.com/saiset-co/sai-registry/cache"
	"github.com/saiset-co/sai-registry/types"
)

// Manager soft-deletes a collection or group together with every strict
// descendant in one atomic statement batch. The store's transaction is the
// only consistency boundary: concurrent cascades on disjoint subtrees do
// not block each other here.
type Manager struct {
	store  types.EntityStore
	cache  types.ResponseCache
	logger types.Logger
}

var inactive = map[string]interface{}{"is_active": false}

func NewManager(store types.EntityStore, responseCache types.ResponseCache, logger types.Logger) *Manager {
	return &Manager{
		store:  store,
		cache:  responseCache,
		logger: logger,
	}
}

func (m *Manager) DeleteCollection(ctx context.Context, id string) error {
	if err := m.ensureActive(ctx, types.TableCollections, id); err != nil {
		return err
	}

	groupIDs, err := m.groupIDs(ctx, types.Where("collection_id", types.OpEq, id))
	if err != nil {
		return err
	}

	statements := make([]types.Statement, 0, 4)
	if len(groupIDs) > 0 {
		statements = append(statements,
			types.Statement{
				Table:  types.TableTimedCodes,
				Filter: types.Where("group_id", types.OpIn, groupIDs),
				Set:    inactive,
			},
			types.Statement{
				Table:  types.TableAttachments,
				Filter: types.Where("group_id", types.OpIn, groupIDs),
				Set:    inactive,
			},
		)
	}
	statements = append(statements,
		types.Statement{
			Table:  types.TableGroups,
			Filter: types.Where("collection_id", types.OpEq, id),
			Set:    inactive,
		},
		types.Statement{
			Table:  types.TableCollections,
			Filter: types.Where("id", types.OpEq, id),
			Set:    inactive,
		},
	)

	if err := m.store.ExecBatch(ctx, statements); err != nil {
		return err
	}

	m.logger.Info("Collection cascade completed",
		zap.String("collection_id", id),
		zap.Int("groups", len(groupIDs)))

	m.invalidateTree()
	return nil
}

func (m *Manager) DeleteGroup(ctx context.Context, id string) error {
	if err := m.ensureActive(ctx, types.TableGroups, id); err != nil {
		return err
	}

	statements := []types.Statement{
		{
			Table:  types.TableTimedCodes,
			Filter: types.Where("group_id", types.OpEq, id),
			Set:    inactive,
		},
		{
			Table:  types.TableAttachments,
			Filter: types.Where("group_id", types.OpEq, id),
			Set:    inactive,
		},
		{
			Table:  types.TableGroups,
			Filter: types.Where("id", types.OpEq, id),
			Set:    inactive,
		},
	}

	if err := m.store.ExecBatch(ctx, statements); err != nil {
		return err
	}

	m.logger.Info("Group cascade completed", zap.String("group_id", id))

	m.invalidateTree()
	return nil
}

// ensureActive is the precondition of every cascade: deleting a missing or
// already-inactive target is NotFound, never a silent success. Deletion is
// therefore non-idempotent at this layer, and terminal.
func (m *Manager) ensureActive(ctx context.Context, table, id string) error {
	filter := types.Where("id", types.OpEq, id).And("is_active", types.OpEq, true)

	if _, err := m.store.FindOne(ctx, table, filter); err != nil {
		if types.IsError(err, types.ErrRecordNotFound) {
			return types.Errorf(types.ErrRecordNotFound, "%s: %s", table, id)
		}
		return err
	}

	return nil
}

func (m *Manager) groupIDs(ctx context.Context, filter types.Filter) ([]string, error) {
	docs, err := m.store.Find(ctx, types.TableGroups, types.Query{Filter: filter})
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		if id, ok := doc["id"].(string); ok {
			ids = append(ids, id)
		}
	}

	return ids, nil
}

// A cascade can change unrelated list results anywhere in the subtree
// (counts, status filters), so every read prefix under the tree goes.
// Cache errors never fail the completed delete.
func (m *Manager) invalidateTree() {
	if m.cache == nil {
		return
	}

	for _, path := range []string{"/api/collections", "/api/groups", "/api/attachments", "/api/codes"} {
		if err := m.cache.InvalidatePrefix(cache.ReadPrefix(path)); err != nil {
			m.logger.Warn("Cache invalidation failed",
				zap.String("path", path),
				zap.Error(err))
		}
	}
}
