package lifecycle

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saiset-co/sai-registry/cache"
	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/store"
	"github.com/saiset-co/sai-registry/types"
)

type fixture struct {
	manager *Manager
	store   *store.MemoryStore
	cache   types.ResponseCache

	collectionID string
	groupID      string
	siblingID    string
	attachmentID string
	codeID       string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	ctx := context.Background()
	log := logger.NewNopLogger()

	s, err := store.NewMemoryStore(ctx, log, &types.StoreConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	memStore := s.(*store.MemoryStore)

	c, err := cache.NewMemoryCache(ctx, log, &types.CacheConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("NewMemoryCache failed: %v", err)
	}

	f := &fixture{
		manager: NewManager(memStore, c, log),
		store:   memStore,
		cache:   c,
	}

	f.collectionID = f.insert(t, types.TableCollections, map[string]interface{}{"title": "ops"})
	f.groupID = f.insert(t, types.TableGroups, map[string]interface{}{"title": "rotations", "collection_id": f.collectionID})
	f.siblingID = f.insert(t, types.TableGroups, map[string]interface{}{"title": "audits", "collection_id": f.collectionID})
	f.attachmentID = f.insert(t, types.TableAttachments, map[string]interface{}{"title": "badge scan", "group_id": f.groupID})
	f.codeID = f.insert(t, types.TableTimedCodes, map[string]interface{}{"title": "door code", "group_id": f.groupID})

	return f
}

func (f *fixture) insert(t *testing.T, table string, record map[string]interface{}) string {
	t.Helper()

	record["is_active"] = true
	id, err := f.store.Insert(context.Background(), table, record)
	if err != nil {
		t.Fatalf("insert into %s failed: %v", table, err)
	}
	return id
}

func (f *fixture) active(t *testing.T, table, id string) bool {
	t.Helper()

	doc, err := f.store.FindOne(context.Background(), table, types.Where("id", types.OpEq, id))
	if err != nil {
		t.Fatalf("FindOne %s/%s failed: %v", table, id, err)
	}
	isActive, _ := doc["is_active"].(bool)
	return isActive
}

func TestManager_DeleteCollectionCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.manager.DeleteCollection(ctx, f.collectionID); err != nil {
		t.Fatalf("DeleteCollection failed: %v", err)
	}

	checks := []struct {
		table string
		id    string
	}{
		{types.TableCollections, f.collectionID},
		{types.TableGroups, f.groupID},
		{types.TableGroups, f.siblingID},
		{types.TableAttachments, f.attachmentID},
		{types.TableTimedCodes, f.codeID},
	}
	for _, check := range checks {
		if f.active(t, check.table, check.id) {
			t.Errorf("%s/%s still active after cascade", check.table, check.id)
		}
	}
}

func TestManager_DeleteGroupCascade(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.manager.DeleteGroup(ctx, f.groupID); err != nil {
		t.Fatalf("DeleteGroup failed: %v", err)
	}

	if f.active(t, types.TableGroups, f.groupID) {
		t.Error("group still active after cascade")
	}
	if f.active(t, types.TableAttachments, f.attachmentID) {
		t.Error("attachment still active after cascade")
	}
	if f.active(t, types.TableTimedCodes, f.codeID) {
		t.Error("timed code still active after cascade")
	}

	if !f.active(t, types.TableGroups, f.siblingID) {
		t.Error("sibling group was deactivated")
	}
	if !f.active(t, types.TableCollections, f.collectionID) {
		t.Error("parent collection was deactivated")
	}
}

func TestManager_DeleteIsNotIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if err := f.manager.DeleteGroup(ctx, f.groupID); err != nil {
		t.Fatalf("first DeleteGroup failed: %v", err)
	}

	err := f.manager.DeleteGroup(ctx, f.groupID)
	if !types.IsError(err, types.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound on repeat delete, got %v", err)
	}
}

func TestManager_DeleteUnknownCollection(t *testing.T) {
	f := newFixture(t)

	err := f.manager.DeleteCollection(context.Background(), "no-such-id")
	if !types.IsError(err, types.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestManager_FailedCascadeAppliesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.store.FailNextBatch(errors.New("deadlock"))

	err := f.manager.DeleteCollection(ctx, f.collectionID)
	if !types.IsError(err, types.ErrTransactionFailed) {
		t.Fatalf("expected ErrTransactionFailed, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Error("transaction failure should be retryable")
	}

	checks := []struct {
		table string
		id    string
	}{
		{types.TableCollections, f.collectionID},
		{types.TableGroups, f.groupID},
		{types.TableAttachments, f.attachmentID},
		{types.TableTimedCodes, f.codeID},
	}
	for _, check := range checks {
		if !f.active(t, check.table, check.id) {
			t.Errorf("%s/%s was deactivated by a failed cascade", check.table, check.id)
		}
	}

	if err := f.manager.DeleteCollection(ctx, f.collectionID); err != nil {
		t.Fatalf("retry after injected failure should succeed, got %v", err)
	}
}

func TestManager_CascadeInvalidatesDescendantReads(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	keys := []string{
		"GET:/api/collections?page=1",
		"GET:/api/groups/" + f.groupID,
		"GET:/api/codes?status=danger",
	}
	for _, key := range keys {
		if err := f.cache.Set(key, []byte(`{"cached":true}`), time.Minute); err != nil {
			t.Fatalf("cache Set failed: %v", err)
		}
	}
	unrelated := "GET:/api/attachment-types"
	if err := f.cache.Set(unrelated, []byte(`[]`), time.Minute); err != nil {
		t.Fatalf("cache Set failed: %v", err)
	}

	if err := f.manager.DeleteCollection(ctx, f.collectionID); err != nil {
		t.Fatalf("DeleteCollection failed: %v", err)
	}

	for _, key := range keys {
		if _, found := f.cache.Get(key); found {
			t.Errorf("key %q survived cascade invalidation", key)
		}
	}
	if _, found := f.cache.Get(unrelated); !found {
		t.Error("unrelated key was invalidated")
	}
}
