package registry

import (
	"context"

	"github.com/saiset-co/sai-registry/types"
)

func (r *Registry) ListCategories(ctx context.Context, q ListQuery) (*types.PaginatedResponse, error) {
	q.normalize()

	filter := types.ActiveOnly()
	if q.Search != "" {
		filter = filter.And("name,description", types.OpLike, q.Search)
	}

	total, err := r.store.Count(ctx, types.TableCategories, filter)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableCategories, types.Query{
		Filter:  filter,
		OrderBy: "sort_order",
		Offset:  q.offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeAll[types.Category](docs)
	if err != nil {
		return nil, err
	}

	return types.NewPaginatedResponse(items, total, q.Page, q.Limit), nil
}

func (r *Registry) GetCategory(ctx context.Context, id string) (*types.Category, error) {
	doc, err := r.findActive(ctx, types.TableCategories, id)
	if err != nil {
		return nil, err
	}
	return decodeOne[types.Category](doc)
}

func (r *Registry) CreateCategory(ctx context.Context, req *types.CreateCategoryRequest) (*types.Category, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		next, err := r.nextSortOrder(ctx, types.TableCategories, types.Filter{})
		if err != nil {
			return nil, err
		}
		sortOrder = next
	}

	id, err := r.store.Insert(ctx, types.TableCategories, map[string]interface{}{
		"name":        req.Name,
		"description": req.Description,
		"sort_order":  sortOrder,
		"is_active":   true,
	})
	if err != nil {
		return nil, err
	}

	return r.GetCategory(ctx, id)
}

func (r *Registry) UpdateCategory(ctx context.Context, id string, req *types.UpdateCategoryRequest) (*types.Category, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableCategories, id); err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}
	if req.SortOrder != nil {
		set["sort_order"] = *req.SortOrder
	}

	if len(set) > 0 {
		if _, err := r.store.Update(ctx, types.TableCategories, types.Where("id", types.OpEq, id), set); err != nil {
			return nil, err
		}
	}

	return r.GetCategory(ctx, id)
}

// DeleteCategory refuses while active collections still reference the
// category; there is no cascade across that edge.
func (r *Registry) DeleteCategory(ctx context.Context, id string) error {
	if _, err := r.findActive(ctx, types.TableCategories, id); err != nil {
		return err
	}

	inUse, err := r.store.Count(ctx, types.TableCollections,
		types.Where("category_id", types.OpEq, id).And("is_active", types.OpEq, true))
	if err != nil {
		return err
	}
	if inUse > 0 {
		return types.Errorf(types.ErrInvalidArgument, "category %s is referenced by %d active collections", id, inUse)
	}

	_, err = r.store.Update(ctx, types.TableCategories, types.Where("id", types.OpEq, id),
		map[string]interface{}{"is_active": false})
	return err
}
