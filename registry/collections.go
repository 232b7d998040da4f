package registry

import (
	"context"

	"github.com/saiset-co/sai-registry/types"
)

func (r *Registry) ListCollections(ctx context.Context, q ListQuery) (*types.PaginatedResponse, error) {
	q.normalize()

	filter := types.ActiveOnly()
	if q.CategoryID != "" {
		filter = filter.And("category_id", types.OpEq, q.CategoryID)
	}
	if q.Search != "" {
		filter = filter.And("name,description", types.OpLike, q.Search)
	}

	total, err := r.store.Count(ctx, types.TableCollections, filter)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableCollections, types.Query{
		Filter:  filter,
		OrderBy: "created_at",
		Desc:    true,
		Offset:  q.offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeAll[types.Collection](docs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := r.enrichCollection(ctx, &items[i]); err != nil {
			return nil, err
		}
	}

	return types.NewPaginatedResponse(items, total, q.Page, q.Limit), nil
}

func (r *Registry) GetCollection(ctx context.Context, id string) (*types.Collection, error) {
	doc, err := r.findActive(ctx, types.TableCollections, id)
	if err != nil {
		return nil, err
	}

	collection, err := decodeOne[types.Collection](doc)
	if err != nil {
		return nil, err
	}
	if err := r.enrichCollection(ctx, collection); err != nil {
		return nil, err
	}
	return collection, nil
}

func (r *Registry) CreateCollection(ctx context.Context, req *types.CreateCollectionRequest) (*types.Collection, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableCategories, req.CategoryID); err != nil {
		return nil, err
	}

	id, err := r.store.Insert(ctx, types.TableCollections, map[string]interface{}{
		"category_id": req.CategoryID,
		"name":        req.Name,
		"description": req.Description,
		"is_active":   true,
	})
	if err != nil {
		return nil, err
	}

	return r.GetCollection(ctx, id)
}

func (r *Registry) UpdateCollection(ctx context.Context, id string, req *types.UpdateCollectionRequest) (*types.Collection, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableCollections, id); err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if req.CategoryID != nil {
		if _, err := r.findActive(ctx, types.TableCategories, *req.CategoryID); err != nil {
			return nil, err
		}
		set["category_id"] = *req.CategoryID
	}
	if req.Name != nil {
		set["name"] = *req.Name
	}
	if req.Description != nil {
		set["description"] = *req.Description
	}

	if len(set) > 0 {
		if _, err := r.store.Update(ctx, types.TableCollections, types.Where("id", types.OpEq, id), set); err != nil {
			return nil, err
		}
	}

	return r.GetCollection(ctx, id)
}

func (r *Registry) DeleteCollection(ctx context.Context, id string) error {
	return r.lifecycle.DeleteCollection(ctx, id)
}

// ListCollectionGroups returns the collection's active groups in sort order,
// each with its decorated attachments and codes embedded.
func (r *Registry) ListCollectionGroups(ctx context.Context, collectionID string) ([]types.Group, error) {
	if _, err := r.findActive(ctx, types.TableCollections, collectionID); err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableGroups, types.Query{
		Filter:  types.ActiveOnly().And("collection_id", types.OpEq, collectionID),
		OrderBy: "sort_order",
	})
	if err != nil {
		return nil, err
	}

	groups, err := decodeAll[types.Group](docs)
	if err != nil {
		return nil, err
	}
	for i := range groups {
		if err := r.embedGroupLeaves(ctx, &groups[i]); err != nil {
			return nil, err
		}
	}
	return groups, nil
}

func (r *Registry) enrichCollection(ctx context.Context, collection *types.Collection) error {
	count, err := r.store.Count(ctx, types.TableGroups,
		types.Where("collection_id", types.OpEq, collection.ID).And("is_active", types.OpEq, true))
	if err != nil {
		return err
	}
	collection.GroupCount = int(count)

	doc, err := r.store.FindOne(ctx, types.TableCategories, types.Where("id", types.OpEq, collection.CategoryID))
	if err != nil {
		if types.IsError(err, types.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	category, err := decodeOne[types.Category](doc)
	if err != nil {
		return err
	}
	collection.Category = category
	return nil
}
