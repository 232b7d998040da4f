package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/saiset-co/sai-registry/logger"
	"github.com/saiset-co/sai-registry/types"
)

func newTestStore(t *testing.T) *MemoryStore {
	t.Helper()

	s, err := NewMemoryStore(context.Background(), logger.NewNopLogger(), &types.StoreConfig{Enabled: true, Type: "memory"})
	if err != nil {
		t.Fatalf("NewMemoryStore failed: %v", err)
	}
	return s.(*MemoryStore)
}

func TestMemoryStore_InsertFind(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, types.TableCollections, map[string]interface{}{
		"name":      "alpha",
		"is_active": true,
	})
	if err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if id == "" {
		t.Fatal("Insert returned empty id")
	}

	doc, err := s.FindOne(ctx, types.TableCollections, types.Where("id", types.OpEq, id))
	if err != nil {
		t.Fatalf("FindOne failed: %v", err)
	}
	if doc["name"] != "alpha" {
		t.Errorf("name = %v, want alpha", doc["name"])
	}

	_, err = s.FindOne(ctx, types.TableCollections, types.Where("id", types.OpEq, "missing"))
	if !types.IsError(err, types.ErrRecordNotFound) {
		t.Errorf("FindOne on missing id should be ErrRecordNotFound, got %v", err)
	}
}

func TestMemoryStore_FilterOps(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	for i, days := range []int{1, 5, 10} {
		date := base.AddDate(0, 0, days)
		_, err := s.Insert(ctx, types.TableTimedCodes, map[string]interface{}{
			"code_text":   "code",
			"sort_order":  i,
			"expiry_date": date,
			"is_active":   true,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	if _, err := s.Insert(ctx, types.TableTimedCodes, map[string]interface{}{
		"code_text": "no-expiry",
		"is_active": true,
	}); err != nil {
		t.Fatal(err)
	}

	count, err := s.Count(ctx, types.TableTimedCodes, types.Where("expiry_date", types.OpIsSet, true))
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("is_set count = %d, want 3", count)
	}

	docs, err := s.Find(ctx, types.TableTimedCodes, types.Query{
		Filter: types.Where("expiry_date", types.OpGt, base.AddDate(0, 0, 4)).
			And("expiry_date", types.OpLte, base.AddDate(0, 0, 10)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("range matched %d rows, want 2", len(docs))
	}

	docs, err = s.Find(ctx, types.TableTimedCodes, types.Query{
		Filter:  types.Where("code_text", types.OpLike, "EXPIRY"),
		OrderBy: "sort_order",
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 {
		t.Errorf("like matched %d rows, want 1", len(docs))
	}
}

func TestMemoryStore_TypedNilPointerReadsAsNull(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Write-path code hands over nullable columns as typed pointers, so a
	// cleared expiry arrives as a nil *time.Time rather than a plain nil.
	if _, err := s.Insert(ctx, types.TableAttachments, map[string]interface{}{
		"value":       "no-expiry",
		"expiry_days": (*int)(nil),
		"expiry_date": (*time.Time)(nil),
		"is_active":   true,
	}); err != nil {
		t.Fatal(err)
	}
	future := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	if _, err := s.Insert(ctx, types.TableAttachments, map[string]interface{}{
		"value":       "timed",
		"expiry_date": &future,
		"is_active":   true,
	}); err != nil {
		t.Fatal(err)
	}

	count, err := s.Count(ctx, types.TableAttachments, types.Where("expiry_date", types.OpIsSet, true))
	if err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("is_set count = %d, want 1", count)
	}

	docs, err := s.Find(ctx, types.TableAttachments, types.Query{
		Filter: types.Where("expiry_date", types.OpIsSet, true).
			And("expiry_date", types.OpGt, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 1 || docs[0]["value"] != "timed" {
		t.Errorf("range over nullable column matched %d rows, want only the timed one", len(docs))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, types.TableGroups, map[string]interface{}{
		"name":      "g1",
		"is_active": true,
	})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := s.Update(ctx, types.TableGroups,
		types.Where("id", types.OpEq, id),
		map[string]interface{}{"name": "renamed"})
	if err != nil {
		t.Fatal(err)
	}
	if updated != 1 {
		t.Errorf("updated = %d, want 1", updated)
	}

	doc, err := s.FindOne(ctx, types.TableGroups, types.Where("id", types.OpEq, id))
	if err != nil {
		t.Fatal(err)
	}
	if doc["name"] != "renamed" {
		t.Errorf("name = %v, want renamed", doc["name"])
	}
}

func TestMemoryStore_ExecBatch(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	groupID, err := s.Insert(ctx, types.TableGroups, map[string]interface{}{
		"name":      "g1",
		"is_active": true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := s.Insert(ctx, types.TableTimedCodes, map[string]interface{}{
		"group_id":  groupID,
		"code_text": "c1",
		"is_active": true,
	}); err != nil {
		t.Fatal(err)
	}

	err = s.ExecBatch(ctx, []types.Statement{
		{
			Table:  types.TableTimedCodes,
			Filter: types.Where("group_id", types.OpEq, groupID),
			Set:    map[string]interface{}{"is_active": false},
		},
		{
			Table:  types.TableGroups,
			Filter: types.Where("id", types.OpEq, groupID),
			Set:    map[string]interface{}{"is_active": false},
		},
	})
	if err != nil {
		t.Fatalf("ExecBatch failed: %v", err)
	}

	count, err := s.Count(ctx, types.TableGroups, types.ActiveOnly())
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("active groups after batch = %d, want 0", count)
	}

	if err := s.ExecBatch(ctx, nil); !types.IsError(err, types.ErrEmptyBatch) {
		t.Errorf("empty batch should fail, got %v", err)
	}
}

func TestMemoryStore_ExecBatchInsert(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	groupID, err := s.Insert(ctx, types.TableGroups, map[string]interface{}{
		"name":      "g1",
		"is_active": true,
	})
	if err != nil {
		t.Fatal(err)
	}

	err = s.ExecBatch(ctx, []types.Statement{
		types.InsertStatement(types.TableTimedCodes, map[string]interface{}{
			"group_id":  groupID,
			"code_text": "c1",
			"is_active": true,
		}),
		types.InsertStatement(types.TableTimedCodes, map[string]interface{}{
			"group_id":  groupID,
			"code_text": "c2",
			"is_active": true,
		}),
		{
			Table:  types.TableGroups,
			Filter: types.Where("id", types.OpEq, groupID),
			Set:    map[string]interface{}{"name": "renamed"},
		},
	})
	if err != nil {
		t.Fatalf("ExecBatch failed: %v", err)
	}

	count, err := s.Count(ctx, types.TableTimedCodes, types.ActiveOnly())
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("inserted codes = %d, want 2", count)
	}

	doc, err := s.FindOne(ctx, types.TableGroups, types.Where("id", types.OpEq, groupID))
	if err != nil {
		t.Fatal(err)
	}
	if doc["name"] != "renamed" {
		t.Errorf("name = %v, want renamed", doc["name"])
	}
}

func TestMemoryStore_ExecBatchFailureAppliesNothing(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Insert(ctx, types.TableGroups, map[string]interface{}{
		"name":      "g1",
		"is_active": true,
	})
	if err != nil {
		t.Fatal(err)
	}

	s.FailNextBatch(errors.New("store conflict"))

	err = s.ExecBatch(ctx, []types.Statement{{
		Table:  types.TableGroups,
		Filter: types.Where("id", types.OpEq, id),
		Set:    map[string]interface{}{"is_active": false},
	}})
	if !types.IsError(err, types.ErrTransactionFailed) {
		t.Fatalf("forced failure should surface ErrTransactionFailed, got %v", err)
	}
	if !types.IsRetryable(err) {
		t.Error("transaction failure must be retryable")
	}

	doc, err := s.FindOne(ctx, types.TableGroups, types.Where("id", types.OpEq, id))
	if err != nil {
		t.Fatal(err)
	}
	if doc["is_active"] != true {
		t.Error("failed batch must leave rows untouched")
	}

	// The failure hook is one-shot, the retry goes through.
	if err := s.ExecBatch(ctx, []types.Statement{{
		Table:  types.TableGroups,
		Filter: types.Where("id", types.OpEq, id),
		Set:    map[string]interface{}{"is_active": false},
	}}); err != nil {
		t.Fatalf("retry after failure should succeed, got %v", err)
	}
}

func TestCompareValues_BoolOrdering(t *testing.T) {
	if got := compareValues(false, true); got != -1 {
		t.Errorf("compareValues(false, true) = %d, want -1", got)
	}
	if got := compareValues(true, false); got != 1 {
		t.Errorf("compareValues(true, false) = %d, want 1", got)
	}
	if got := compareValues(true, true); got != 0 {
		t.Errorf("compareValues(true, true) = %d, want 0", got)
	}

	docs := []map[string]interface{}{
		{"has_expiry": true},
		{"has_expiry": false},
		{"has_expiry": true},
	}
	sortDocs(docs, "has_expiry", false)
	if docs[0]["has_expiry"] != false {
		t.Error("ascending bool sort must put false first")
	}
	sortDocs(docs, "has_expiry", true)
	if docs[0]["has_expiry"] != true {
		t.Error("descending bool sort must put true first")
	}
}
