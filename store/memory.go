package store

import (
	"context"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saiset-co/sai-registry/types"
)

type State int32

const (
	StateStopped State = iota
	StateStarting
	StateRunning
	StateStopping
)

type MemoryStore struct {
	tables map[string]map[string]map[string]interface{}
	mutex  sync.RWMutex
	logger types.Logger
	state  atomic.Value

	// failNext, when set, makes the next ExecBatch fail before touching any
	// row. Lets tests force the all-or-nothing path.
	failNext atomic.Pointer[error]
}

func NewMemoryStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.EntityStore, error) {
	ms := &MemoryStore{
		tables: make(map[string]map[string]map[string]interface{}),
		logger: logger,
	}

	ms.state.Store(StateStopped)
	return ms, nil
}

func (m *MemoryStore) Start() error {
	if !m.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	defer func() {
		if m.getState() == StateStarting {
			m.setState(StateRunning)
		}
	}()

	m.logger.Info("Memory store started")
	return nil
}

func (m *MemoryStore) Stop() error {
	if !m.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		m.setState(StateStopped)
	}()

	m.mutex.Lock()
	m.tables = make(map[string]map[string]map[string]interface{})
	m.mutex.Unlock()

	m.logger.Info("Memory store stopped gracefully")
	return nil
}

func (m *MemoryStore) IsRunning() bool {
	return m.getState() == StateRunning
}

func (m *MemoryStore) FailNextBatch(err error) {
	m.failNext.Store(&err)
}

func (m *MemoryStore) Insert(ctx context.Context, table string, record map[string]interface{}) (string, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.insertUnsafe(table, record), nil
}

func (m *MemoryStore) insertUnsafe(table string, record map[string]interface{}) string {
	if _, exists := m.tables[table]; !exists {
		m.tables[table] = make(map[string]map[string]interface{})
	}

	id, _ := record["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC()

	doc := deepCopy(record)
	for field, value := range doc {
		doc[field] = normalizeValue(value)
	}
	doc["id"] = id
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now
	}
	doc["updated_at"] = now

	m.tables[table][id] = doc
	return id
}

func (m *MemoryStore) Find(ctx context.Context, table string, query types.Query) ([]map[string]interface{}, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rows, exists := m.tables[table]
	if !exists {
		return []map[string]interface{}{}, nil
	}

	matched := make([]map[string]interface{}, 0)
	for _, doc := range rows {
		if matchesFilter(doc, query.Filter) {
			matched = append(matched, deepCopy(doc))
		}
	}

	if query.OrderBy != "" {
		sortDocs(matched, query.OrderBy, query.Desc)
	}

	if query.Offset > 0 {
		if query.Offset >= len(matched) {
			return []map[string]interface{}{}, nil
		}
		matched = matched[query.Offset:]
	}
	if query.Limit > 0 && query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}

	return matched, nil
}

func (m *MemoryStore) Count(ctx context.Context, table string, filter types.Filter) (int64, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rows, exists := m.tables[table]
	if !exists {
		return 0, nil
	}

	var count int64
	for _, doc := range rows {
		if matchesFilter(doc, filter) {
			count++
		}
	}

	return count, nil
}

func (m *MemoryStore) FindOne(ctx context.Context, table string, filter types.Filter) (map[string]interface{}, error) {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	rows, exists := m.tables[table]
	if !exists {
		return nil, types.ErrRecordNotFound
	}

	for _, doc := range rows {
		if matchesFilter(doc, filter) {
			return deepCopy(doc), nil
		}
	}

	return nil, types.ErrRecordNotFound
}

func (m *MemoryStore) Update(ctx context.Context, table string, filter types.Filter, set map[string]interface{}) (int64, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	return m.updateUnsafe(table, filter, set), nil
}

func (m *MemoryStore) ExecBatch(ctx context.Context, statements []types.Statement) error {
	if len(statements) == 0 {
		return types.ErrEmptyBatch
	}

	if errPtr := m.failNext.Swap(nil); errPtr != nil {
		return types.Errorf(types.ErrTransactionFailed, "%v", *errPtr)
	}

	// A single lock spans the whole batch, so no reader observes a
	// partially applied cascade.
	m.mutex.Lock()
	defer m.mutex.Unlock()

	for _, stmt := range statements {
		if stmt.Kind == types.StatementInsert {
			m.insertUnsafe(stmt.Table, stmt.Set)
			continue
		}
		m.updateUnsafe(stmt.Table, stmt.Filter, stmt.Set)
	}

	return nil
}

func (m *MemoryStore) updateUnsafe(table string, filter types.Filter, set map[string]interface{}) int64 {
	rows, exists := m.tables[table]
	if !exists {
		return 0
	}

	now := time.Now().UTC()

	var updated int64
	for _, doc := range rows {
		if !matchesFilter(doc, filter) {
			continue
		}
		for field, value := range set {
			doc[field] = normalizeValue(value)
		}
		doc["updated_at"] = now
		updated++
	}

	return updated
}

func matchesFilter(doc map[string]interface{}, filter types.Filter) bool {
	for _, cond := range filter {
		value, exists := doc[cond.Field]

		switch cond.Op {
		case types.OpIsSet:
			if !exists || value == nil {
				return false
			}
		case types.OpEq:
			if !exists || compareValues(value, cond.Value) != 0 {
				return false
			}
		case types.OpNe:
			if exists && compareValues(value, cond.Value) == 0 {
				return false
			}
		case types.OpGt:
			if !exists || value == nil || compareValues(value, cond.Value) <= 0 {
				return false
			}
		case types.OpGte:
			if !exists || value == nil || compareValues(value, cond.Value) < 0 {
				return false
			}
		case types.OpLt:
			if !exists || value == nil || compareValues(value, cond.Value) >= 0 {
				return false
			}
		case types.OpLte:
			if !exists || value == nil || compareValues(value, cond.Value) > 0 {
				return false
			}
		case types.OpIn:
			if !exists || !containsValue(cond.Value, value) {
				return false
			}
		case types.OpLike:
			// A comma-separated field list matches when any listed field
			// contains the pattern.
			pattern, _ := cond.Value.(string)
			matched := false
			for _, field := range strings.Split(cond.Field, ",") {
				str, _ := doc[field].(string)
				if strings.Contains(strings.ToLower(str), strings.ToLower(pattern)) {
					matched = true
					break
				}
			}
			if !matched {
				return false
			}
		default:
			return false
		}
	}

	return true
}

func compareValues(a, b interface{}) int {
	if at, aok := asTime(a); aok {
		if bt, bok := asTime(b); bok {
			switch {
			case at.Before(bt):
				return -1
			case at.After(bt):
				return 1
			default:
				return 0
			}
		}
	}

	if af, aok := asFloat(a); aok {
		if bf, bok := asFloat(b); bok {
			switch {
			case af < bf:
				return -1
			case af > bf:
				return 1
			default:
				return 0
			}
		}
	}

	if ab, aok := a.(bool); aok {
		if bb, bok := b.(bool); bok {
			switch {
			case ab == bb:
				return 0
			case !ab:
				return -1
			default:
				return 1
			}
		}
	}

	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		return strings.Compare(as, bs)
	}

	return 1
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, true
	case string:
		parsed, err := time.Parse(time.RFC3339, t)
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	}
	return time.Time{}, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

func containsValue(list, value interface{}) bool {
	switch items := list.(type) {
	case []string:
		str, _ := value.(string)
		for _, item := range items {
			if item == str {
				return true
			}
		}
	case []interface{}:
		for _, item := range items {
			if compareValues(value, item) == 0 {
				return true
			}
		}
	}
	return false
}

func sortDocs(docs []map[string]interface{}, field string, desc bool) {
	for i := 1; i < len(docs); i++ {
		for j := i; j > 0; j-- {
			cmp := compareValues(docs[j-1][field], docs[j][field])
			if (desc && cmp >= 0) || (!desc && cmp <= 0) {
				break
			}
			docs[j-1], docs[j] = docs[j], docs[j-1]
		}
	}
}

// normalizeValue collapses typed-nil pointers to plain nil, so the null
// checks in matchesFilter see nullable columns the way sqlite stores them.
func normalizeValue(v interface{}) interface{} {
	if v == nil {
		return nil
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Slice, reflect.Interface:
		if rv.IsNil() {
			return nil
		}
	}
	return v
}

func deepCopy(src map[string]interface{}) map[string]interface{} {
	dst := make(map[string]interface{}, len(src))
	for key, value := range src {
		if nested, ok := value.(map[string]interface{}); ok {
			dst[key] = deepCopy(nested)
			continue
		}
		dst[key] = value
	}
	return dst
}

func (m *MemoryStore) getState() State {
	return m.state.Load().(State)
}

func (m *MemoryStore) setState(newState State) bool {
	currentState := m.getState()
	return m.state.CompareAndSwap(currentState, newState)
}

func (m *MemoryStore) transitionState(from, to State) bool {
	return m.state.CompareAndSwap(from, to)
}
