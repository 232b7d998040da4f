package types

import (
	"context"
)

type Op string

const (
	OpEq    Op = "eq"
	OpNe    Op = "ne"
	OpGt    Op = "gt"
	OpGte   Op = "gte"
	OpLt    Op = "lt"
	OpLte   Op = "lte"
	OpIn    Op = "in"
	OpLike  Op = "like"
	OpIsSet Op = "is_set"
)

// Condition compares one field against a value. OpLike matches a
// case-insensitive substring; its Field may be a comma-separated list, in
// which case the condition holds when any listed field matches.
type Condition struct {
	Field string
	Op    Op
	Value interface{}
}

type Filter []Condition

func Where(field string, op Op, value interface{}) Filter {
	return Filter{{Field: field, Op: op, Value: value}}
}

func (f Filter) And(field string, op Op, value interface{}) Filter {
	return append(f, Condition{Field: field, Op: op, Value: value})
}

func ActiveOnly() Filter {
	return Where("is_active", OpEq, true)
}

type Query struct {
	Filter  Filter
	OrderBy string
	Desc    bool
	Offset  int
	Limit   int
}

type StatementKind int

const (
	StatementUpdate StatementKind = iota
	StatementInsert
)

// Statement is one operation inside an atomic batch. An update applies Set
// to every row of Table matching Filter; an insert creates one row from Set
// and ignores Filter. Statements in a batch are independent of each other,
// so execution order does not affect the final state.
type Statement struct {
	Kind   StatementKind
	Table  string
	Filter Filter
	Set    map[string]interface{}
}

func InsertStatement(table string, record map[string]interface{}) Statement {
	return Statement{Kind: StatementInsert, Table: table, Set: record}
}

type EntityStore interface {
	LifecycleManager
	Insert(ctx context.Context, table string, record map[string]interface{}) (string, error)
	Find(ctx context.Context, table string, query Query) ([]map[string]interface{}, error)
	Count(ctx context.Context, table string, filter Filter) (int64, error)
	FindOne(ctx context.Context, table string, filter Filter) (map[string]interface{}, error)
	Update(ctx context.Context, table string, filter Filter, set map[string]interface{}) (int64, error)
	// ExecBatch runs every statement inside a single transaction. Either
	// all statements commit or none do.
	ExecBatch(ctx context.Context, statements []Statement) error
}

type EntityStoreCreator func(config interface{}) (EntityStore, error)
