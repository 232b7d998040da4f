package registry

import (
	"context"

	"github.com/go-playground/validator/v10"

	"github.com/saiset-co/sai-registry/expiry"
	"github.com/saiset-co/sai-registry/lifecycle"
	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

// Registry is the record service: CRUD over the category/collection/group
// tree and its timed leaves, expiry derivation on every write, status
// filtering on reads. Handlers stay thin; all rules live here.
type Registry struct {
	store     types.EntityStore
	lifecycle *lifecycle.Manager
	calc      *expiry.Calculator
	filters   *expiry.FilterBuilder
	validate  *validator.Validate
	logger    types.Logger
}

func New(store types.EntityStore, lm *lifecycle.Manager, clock expiry.Clock, logger types.Logger) *Registry {
	return &Registry{
		store:     store,
		lifecycle: lm,
		calc:      expiry.NewCalculator(clock),
		filters:   expiry.NewFilterBuilder(clock),
		validate:  validator.New(),
		logger:    logger,
	}
}

type ListQuery struct {
	Page         int
	Limit        int
	Search       string
	Status       string
	CategoryID   string
	CollectionID string
	GroupID      string
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

func (q *ListQuery) normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = defaultPageSize
	}
	if q.Limit > maxPageSize {
		q.Limit = maxPageSize
	}
}

func (q *ListQuery) offset() int {
	return (q.Page - 1) * q.Limit
}

// statusFilter appends the expiry date range for q.Status, when present.
func (r *Registry) statusFilter(filter types.Filter, status string) (types.Filter, error) {
	if status == "" {
		return filter, nil
	}

	predicate, err := r.filters.PredicateFor(types.StatusTag(status))
	if err != nil {
		return nil, err
	}

	return append(filter, predicate...), nil
}

func (r *Registry) validateRequest(req interface{}) error {
	if err := r.validate.Struct(req); err != nil {
		return types.Errorf(types.ErrInvalidArgument, "%v", err)
	}
	return nil
}

// findActive loads one active record or reports NotFound.
func (r *Registry) findActive(ctx context.Context, table, id string) (map[string]interface{}, error) {
	doc, err := r.store.FindOne(ctx, table, types.Where("id", types.OpEq, id).And("is_active", types.OpEq, true))
	if err != nil {
		if types.IsError(err, types.ErrRecordNotFound) {
			return nil, types.Errorf(types.ErrRecordNotFound, "%s: %s", table, id)
		}
		return nil, err
	}
	return doc, nil
}

// nextSortOrder returns one past the highest sort_order among active rows
// matching filter, starting at 1.
func (r *Registry) nextSortOrder(ctx context.Context, table string, filter types.Filter) (int, error) {
	docs, err := r.store.Find(ctx, table, types.Query{
		Filter:  filter.And("is_active", types.OpEq, true),
		OrderBy: "sort_order",
		Desc:    true,
		Limit:   1,
	})
	if err != nil {
		return 0, err
	}
	if len(docs) == 0 {
		return 1, nil
	}

	var top struct {
		SortOrder int `json:"sort_order"`
	}
	if err := utils.DecodeRecord(docs[0], &top); err != nil {
		return 0, err
	}
	return top.SortOrder + 1, nil
}

func decodeAll[T any](docs []map[string]interface{}) ([]T, error) {
	items := make([]T, 0, len(docs))
	for _, doc := range docs {
		var item T
		if err := utils.DecodeRecord(doc, &item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	return items, nil
}

func decodeOne[T any](doc map[string]interface{}) (*T, error) {
	var item T
	if err := utils.DecodeRecord(doc, &item); err != nil {
		return nil, err
	}
	return &item, nil
}
