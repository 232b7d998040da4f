package registry

import (
	"context"

	"github.com/saiset-co/sai-registry/types"
)

func (r *Registry) ListGroups(ctx context.Context, q ListQuery) (*types.PaginatedResponse, error) {
	q.normalize()

	filter := types.ActiveOnly()
	if q.CollectionID != "" {
		filter = filter.And("collection_id", types.OpEq, q.CollectionID)
	}
	if q.Search != "" {
		filter = filter.And("name,description", types.OpLike, q.Search)
	}

	total, err := r.store.Count(ctx, types.TableGroups, filter)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableGroups, types.Query{
		Filter:  filter,
		OrderBy: "sort_order",
		Offset:  q.offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeAll[types.Group](docs)
	if err != nil {
		return nil, err
	}

	return types.NewPaginatedResponse(items, total, q.Page, q.Limit), nil
}

func (r *Registry) GetGroup(ctx context.Context, id string) (*types.Group, error) {
	doc, err := r.findActive(ctx, types.TableGroups, id)
	if err != nil {
		return nil, err
	}

	group, err := decodeOne[types.Group](doc)
	if err != nil {
		return nil, err
	}
	if err := r.embedGroupLeaves(ctx, group); err != nil {
		return nil, err
	}
	return group, nil
}

func (r *Registry) CreateGroup(ctx context.Context, req *types.CreateGroupRequest) (*types.Group, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableCollections, req.CollectionID); err != nil {
		return nil, err
	}

	sortOrder := 0
	if req.SortOrder != nil {
		sortOrder = *req.SortOrder
	} else {
		next, err := r.nextSortOrder(ctx, types.TableGroups,
			types.Where("collection_id", types.OpEq, req.CollectionID))
		if err != nil {
			return nil, err
		}
		sortOrder = next
	}

	id, err := r.store.Insert(ctx, types.TableGroups, map[string]interface{}{
		"collection_id": req.CollectionID,
		"name":          req.Name,
		"description":   req.Description,
		"sort_order":    sortOrder,
		"is_active":     true,
	})
	if err != nil {
		return nil, err
	}

	return r.GetGroup(ctx, id)
}

func (r *Registry) UpdateGroup(ctx context.Context, id string, req *types.UpdateGroupRequest) (*types.Group, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableGroups, id); err != nil {
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
		if _, err := r.store.Update(ctx, types.TableGroups, types.Where("id", types.OpEq, id), set); err != nil {
			return nil, err
		}
	}

	return r.GetGroup(ctx, id)
}

// ReorderGroups applies every new sort order in one atomic batch, so a
// concurrent reader never observes a half-applied ordering. Every id must
// name an active group.
func (r *Registry) ReorderGroups(ctx context.Context, req *types.ReorderGroupsRequest) error {
	if err := r.validateRequest(req); err != nil {
		return err
	}

	statements := make([]types.Statement, 0, len(req.Items))
	for _, item := range req.Items {
		if _, err := r.findActive(ctx, types.TableGroups, item.ID); err != nil {
			return err
		}
		statements = append(statements, types.Statement{
			Table:  types.TableGroups,
			Filter: types.Where("id", types.OpEq, item.ID),
			Set:    map[string]interface{}{"sort_order": item.SortOrder},
		})
	}

	return r.store.ExecBatch(ctx, statements)
}

func (r *Registry) DeleteGroup(ctx context.Context, id string) error {
	return r.lifecycle.DeleteGroup(ctx, id)
}

func (r *Registry) embedGroupLeaves(ctx context.Context, group *types.Group) error {
	attachments, err := r.groupAttachments(ctx, group.ID)
	if err != nil {
		return err
	}
	group.Attachments = attachments

	codes, err := r.groupCodes(ctx, group.ID)
	if err != nil {
		return err
	}
	group.TimedCodes = codes
	return nil
}
