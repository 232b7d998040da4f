package registry

import (
	"context"

	"github.com/saiset-co/sai-registry/types"
)

func (r *Registry) ListAttachmentTypes(ctx context.Context, q ListQuery) (*types.PaginatedResponse, error) {
	q.normalize()

	filter := types.ActiveOnly()
	if q.Search != "" {
		filter = filter.And("name", types.OpLike, q.Search)
	}

	total, err := r.store.Count(ctx, types.TableAttachmentTypes, filter)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableAttachmentTypes, types.Query{
		Filter:  filter,
		OrderBy: "name",
		Offset:  q.offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeAll[types.AttachmentType](docs)
	if err != nil {
		return nil, err
	}

	return types.NewPaginatedResponse(items, total, q.Page, q.Limit), nil
}

func (r *Registry) GetAttachmentType(ctx context.Context, id string) (*types.AttachmentType, error) {
	doc, err := r.findActive(ctx, types.TableAttachmentTypes, id)
	if err != nil {
		return nil, err
	}
	return decodeOne[types.AttachmentType](doc)
}

func (r *Registry) CreateAttachmentType(ctx context.Context, req *types.CreateAttachmentTypeRequest) (*types.AttachmentType, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if err := r.ensureTypeNameFree(ctx, req.Name, ""); err != nil {
		return nil, err
	}

	id, err := r.store.Insert(ctx, types.TableAttachmentTypes, map[string]interface{}{
		"name":       req.Name,
		"field_type": req.FieldType,
		"has_expiry": req.HasExpiry,
		"is_active":  true,
	})
	if err != nil {
		return nil, err
	}

	return r.GetAttachmentType(ctx, id)
}

func (r *Registry) UpdateAttachmentType(ctx context.Context, id string, req *types.UpdateAttachmentTypeRequest) (*types.AttachmentType, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableAttachmentTypes, id); err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if req.Name != nil {
		if err := r.ensureTypeNameFree(ctx, *req.Name, id); err != nil {
			return nil, err
		}
		set["name"] = *req.Name
	}
	if req.FieldType != nil {
		set["field_type"] = *req.FieldType
	}
	if req.HasExpiry != nil {
		set["has_expiry"] = *req.HasExpiry
	}

	if len(set) > 0 {
		if _, err := r.store.Update(ctx, types.TableAttachmentTypes, types.Where("id", types.OpEq, id), set); err != nil {
			return nil, err
		}
	}

	return r.GetAttachmentType(ctx, id)
}

// DeleteAttachmentType refuses while active attachments still carry the
// type.
func (r *Registry) DeleteAttachmentType(ctx context.Context, id string) error {
	if _, err := r.findActive(ctx, types.TableAttachmentTypes, id); err != nil {
		return err
	}

	inUse, err := r.store.Count(ctx, types.TableAttachments,
		types.Where("attachment_type_id", types.OpEq, id).And("is_active", types.OpEq, true))
	if err != nil {
		return err
	}
	if inUse > 0 {
		return types.Errorf(types.ErrInvalidArgument, "attachment type %s is used by %d active attachments", id, inUse)
	}

	_, err = r.store.Update(ctx, types.TableAttachmentTypes, types.Where("id", types.OpEq, id),
		map[string]interface{}{"is_active": false})
	return err
}

func (r *Registry) ensureTypeNameFree(ctx context.Context, name, exceptID string) error {
	filter := types.ActiveOnly().And("name", types.OpEq, name)
	if exceptID != "" {
		filter = filter.And("id", types.OpNe, exceptID)
	}

	count, err := r.store.Count(ctx, types.TableAttachmentTypes, filter)
	if err != nil {
		return err
	}
	if count > 0 {
		return types.Errorf(types.ErrDuplicateRecord, "attachment type name already exists: %s", name)
	}
	return nil
}
