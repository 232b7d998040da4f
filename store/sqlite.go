package store

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

type SQLiteConfig struct {
	Path         string `json:"path"`
	BusyTimeout  int    `json:"busy_timeout"`
	MaxOpenConns int    `json:"max_open_conns"`
}

type SQLiteStore struct {
	db     *sql.DB
	logger types.Logger
	config *SQLiteConfig
	state  atomic.Value
}

var schema = `
CREATE TABLE IF NOT EXISTS categories (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS collections (
	id TEXT PRIMARY KEY,
	category_id TEXT NOT NULL REFERENCES categories(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS groups (
	id TEXT PRIMARY KEY,
	collection_id TEXT NOT NULL REFERENCES collections(id),
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	sort_order INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS attachment_types (
	id TEXT PRIMARY KEY,
	name TEXT NOT NULL,
	field_type TEXT NOT NULL DEFAULT 'text',
	has_expiry INTEGER NOT NULL DEFAULT 0,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS attachments (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES groups(id),
	attachment_type_id TEXT NOT NULL REFERENCES attachment_types(id),
	value TEXT NOT NULL,
	expiry_days INTEGER,
	expiry_date TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS timed_codes (
	id TEXT PRIMARY KEY,
	group_id TEXT NOT NULL REFERENCES groups(id),
	code_text TEXT NOT NULL,
	expiry_days INTEGER,
	expiry_date TEXT,
	is_active INTEGER NOT NULL DEFAULT 1,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_collections_category ON collections(category_id, is_active);
CREATE INDEX IF NOT EXISTS idx_groups_collection ON groups(collection_id, is_active);
CREATE INDEX IF NOT EXISTS idx_attachments_group ON attachments(group_id, is_active);
CREATE INDEX IF NOT EXISTS idx_attachments_expiry ON attachments(expiry_date) WHERE expiry_date IS NOT NULL;
CREATE INDEX IF NOT EXISTS idx_timed_codes_group ON timed_codes(group_id, is_active);
CREATE INDEX IF NOT EXISTS idx_timed_codes_expiry ON timed_codes(expiry_date) WHERE expiry_date IS NOT NULL;
`

var booleanColumns = map[string]bool{
	"is_active":  true,
	"has_expiry": true,
}

func NewSQLiteStore(ctx context.Context, logger types.Logger, config *types.StoreConfig) (types.EntityStore, error) {
	var sqliteConfig = &SQLiteConfig{
		Path:         "sai-registry.db",
		BusyTimeout:  5000,
		MaxOpenConns: 1,
	}

	if config.Config != nil {
		err := utils.UnmarshalConfig(config.Config, sqliteConfig)
		if err != nil {
			return nil, types.WrapError(err, "failed to unmarshal sqlite store config")
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d&_journal_mode=WAL&_foreign_keys=on",
		sqliteConfig.Path, sqliteConfig.BusyTimeout)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, types.WrapError(err, "failed to open sqlite database")
	}

	db.SetMaxOpenConns(sqliteConfig.MaxOpenConns)

	if err := db.PingContext(ctx); err != nil {
		return nil, types.WrapError(err, types.ErrStoreConnectionFailed.Error())
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, types.WrapError(err, "failed to initialize schema")
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
		config: sqliteConfig,
	}

	s.state.Store(StateStopped)
	return s, nil
}

func (s *SQLiteStore) Start() error {
	if !s.transitionState(StateStopped, StateStarting) {
		return types.ErrServerAlreadyRunning
	}

	defer func() {
		if s.getState() == StateStarting {
			s.setState(StateRunning)
		}
	}()

	s.logger.Info("SQLite store started")
	return nil
}

func (s *SQLiteStore) Stop() error {
	if !s.transitionState(StateRunning, StateStopping) {
		return types.ErrServerNotRunning
	}

	defer func() {
		s.setState(StateStopped)
	}()

	if err := s.db.Close(); err != nil {
		return types.WrapError(err, "failed to close sqlite database")
	}

	s.logger.Info("SQLite store stopped gracefully")
	return nil
}

func (s *SQLiteStore) IsRunning() bool {
	return s.getState() == StateRunning
}

func (s *SQLiteStore) Insert(ctx context.Context, table string, record map[string]interface{}) (string, error) {
	query, args, id := buildInsert(table, record)

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", errors.Wrapf(err, "insert into %s", table)
	}

	return id, nil
}

func (s *SQLiteStore) Find(ctx context.Context, table string, query types.Query) ([]map[string]interface{}, error) {
	whereClause, args := buildWhere(query.Filter)

	sqlQuery := "SELECT * FROM " + table + whereClause
	if query.OrderBy != "" {
		sqlQuery += " ORDER BY " + query.OrderBy
		if query.Desc {
			sqlQuery += " DESC"
		}
	}
	if query.Limit > 0 {
		sqlQuery += fmt.Sprintf(" LIMIT %d", query.Limit)
		if query.Offset > 0 {
			sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, errors.Wrapf(err, "query %s", table)
	}
	defer rows.Close()

	return scanRows(rows)
}

func (s *SQLiteStore) Count(ctx context.Context, table string, filter types.Filter) (int64, error) {
	whereClause, args := buildWhere(filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table+whereClause, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrapf(err, "count %s", table)
	}

	return count, nil
}

func (s *SQLiteStore) FindOne(ctx context.Context, table string, filter types.Filter) (map[string]interface{}, error) {
	docs, err := s.Find(ctx, table, types.Query{Filter: filter, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, types.ErrRecordNotFound
	}
	return docs[0], nil
}

func (s *SQLiteStore) Update(ctx context.Context, table string, filter types.Filter, set map[string]interface{}) (int64, error) {
	query, args := buildUpdate(table, filter, set)

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, errors.Wrapf(err, "update %s", table)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "rows affected")
	}

	return affected, nil
}

// ExecBatch runs the statements inside one transaction. Any failure rolls
// everything back and surfaces as a retryable transaction error.
func (s *SQLiteStore) ExecBatch(ctx context.Context, statements []types.Statement) error {
	if len(statements) == 0 {
		return types.ErrEmptyBatch
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return types.WrapError(err, types.ErrTransactionFailed.Error())
	}

	for _, stmt := range statements {
		var query string
		var args []interface{}
		if stmt.Kind == types.StatementInsert {
			query, args, _ = buildInsert(stmt.Table, stmt.Set)
		} else {
			query, args = buildUpdate(stmt.Table, stmt.Filter, stmt.Set)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Error("Rollback failed after statement error")
			}
			return types.Errorf(types.ErrTransactionFailed, "statement on %s: %v", stmt.Table, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return types.Errorf(types.ErrTransactionFailed, "commit: %v", err)
	}

	return nil
}

func buildInsert(table string, record map[string]interface{}) (string, []interface{}, string) {
	id, _ := record["id"].(string)
	if id == "" {
		id = uuid.New().String()
	}

	now := time.Now().UTC().Format(time.RFC3339)

	doc := make(map[string]interface{}, len(record)+3)
	for key, value := range record {
		doc[key] = value
	}
	doc["id"] = id
	if _, ok := doc["created_at"]; !ok {
		doc["created_at"] = now
	}
	doc["updated_at"] = now

	columns := make([]string, 0, len(doc))
	for column := range doc {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	placeholders := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, column := range columns {
		placeholders[i] = "?"
		args[i] = toSQLValue(doc[column])
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(columns, ", "), strings.Join(placeholders, ", "))

	return query, args, id
}

func buildUpdate(table string, filter types.Filter, set map[string]interface{}) (string, []interface{}) {
	columns := make([]string, 0, len(set))
	for column := range set {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	assignments := make([]string, 0, len(columns)+1)
	args := make([]interface{}, 0, len(columns)+len(filter)+1)
	for _, column := range columns {
		assignments = append(assignments, column+" = ?")
		args = append(args, toSQLValue(set[column]))
	}
	assignments = append(assignments, "updated_at = ?")
	args = append(args, time.Now().UTC().Format(time.RFC3339))

	whereClause, whereArgs := buildWhere(filter)
	args = append(args, whereArgs...)

	return "UPDATE " + table + " SET " + strings.Join(assignments, ", ") + whereClause, args
}

func buildWhere(filter types.Filter) (string, []interface{}) {
	if len(filter) == 0 {
		return "", nil
	}

	clauses := make([]string, 0, len(filter))
	args := make([]interface{}, 0, len(filter))

	for _, cond := range filter {
		switch cond.Op {
		case types.OpEq:
			clauses = append(clauses, cond.Field+" = ?")
			args = append(args, toSQLValue(cond.Value))
		case types.OpNe:
			clauses = append(clauses, cond.Field+" != ?")
			args = append(args, toSQLValue(cond.Value))
		case types.OpGt:
			clauses = append(clauses, cond.Field+" > ?")
			args = append(args, toSQLValue(cond.Value))
		case types.OpGte:
			clauses = append(clauses, cond.Field+" >= ?")
			args = append(args, toSQLValue(cond.Value))
		case types.OpLt:
			clauses = append(clauses, cond.Field+" < ?")
			args = append(args, toSQLValue(cond.Value))
		case types.OpLte:
			clauses = append(clauses, cond.Field+" <= ?")
			args = append(args, toSQLValue(cond.Value))
		case types.OpIsSet:
			clauses = append(clauses, cond.Field+" IS NOT NULL")
		case types.OpLike:
			fields := strings.Split(cond.Field, ",")
			likes := make([]string, 0, len(fields))
			for _, field := range fields {
				likes = append(likes, field+" LIKE ?")
				args = append(args, "%"+fmt.Sprint(cond.Value)+"%")
			}
			clauses = append(clauses, "("+strings.Join(likes, " OR ")+")")
		case types.OpIn:
			placeholders, inArgs := buildIn(cond.Value)
			if placeholders == "" {
				clauses = append(clauses, "1 = 0")
				continue
			}
			clauses = append(clauses, cond.Field+" IN ("+placeholders+")")
			args = append(args, inArgs...)
		}
	}

	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildIn(value interface{}) (string, []interface{}) {
	var items []interface{}

	switch list := value.(type) {
	case []string:
		for _, item := range list {
			items = append(items, item)
		}
	case []interface{}:
		items = list
	}

	if len(items) == 0 {
		return "", nil
	}

	placeholders := make([]string, len(items))
	args := make([]interface{}, len(items))
	for i, item := range items {
		placeholders[i] = "?"
		args[i] = toSQLValue(item)
	}

	return strings.Join(placeholders, ", "), args
}

func toSQLValue(value interface{}) interface{} {
	switch v := value.(type) {
	case bool:
		if v {
			return 1
		}
		return 0
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.UTC().Format(time.RFC3339)
	case *int:
		if v == nil {
			return nil
		}
		return *v
	case *string:
		if v == nil {
			return nil
		}
		return *v
	}
	return value
}

func scanRows(rows *sql.Rows) ([]map[string]interface{}, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, errors.Wrap(err, "columns")
	}

	docs := make([]map[string]interface{}, 0)

	for rows.Next() {
		values := make([]interface{}, len(columns))
		pointers := make([]interface{}, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}

		if err := rows.Scan(pointers...); err != nil {
			return nil, errors.Wrap(err, "scan")
		}

		doc := make(map[string]interface{}, len(columns))
		for i, column := range columns {
			doc[column] = fromSQLValue(column, values[i])
		}
		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func fromSQLValue(column string, value interface{}) interface{} {
	if value == nil {
		return nil
	}

	if raw, ok := value.([]byte); ok {
		value = string(raw)
	}

	if booleanColumns[column] {
		if n, ok := value.(int64); ok {
			return n == 1
		}
	}

	return value
}

func (s *SQLiteStore) getState() State {
	return s.state.Load().(State)
}

func (s *SQLiteStore) setState(newState State) bool {
	currentState := s.getState()
	return s.state.CompareAndSwap(currentState, newState)
}

func (s *SQLiteStore) transitionState(from, to State) bool {
	return s.state.CompareAndSwap(from, to)
}
