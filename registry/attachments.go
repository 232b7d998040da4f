package registry

import (
	"context"
	"net/url"
	"time"

	"github.com/saiset-co/sai-registry/types"
)

func (r *Registry) ListAttachments(ctx context.Context, q ListQuery) (*types.PaginatedResponse, error) {
	q.normalize()

	filter := types.ActiveOnly()
	if q.GroupID != "" {
		filter = filter.And("group_id", types.OpEq, q.GroupID)
	}
	filter, err := r.statusFilter(filter, q.Status)
	if err != nil {
		return nil, err
	}

	total, err := r.store.Count(ctx, types.TableAttachments, filter)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableAttachments, types.Query{
		Filter:  filter,
		OrderBy: "created_at",
		Desc:    true,
		Offset:  q.offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := decodeAll[types.Attachment](docs)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := r.decorateAttachment(ctx, &items[i]); err != nil {
			return nil, err
		}
	}

	return types.NewPaginatedResponse(items, total, q.Page, q.Limit), nil
}

func (r *Registry) GetAttachment(ctx context.Context, id string) (*types.Attachment, error) {
	doc, err := r.findActive(ctx, types.TableAttachments, id)
	if err != nil {
		return nil, err
	}

	attachment, err := decodeOne[types.Attachment](doc)
	if err != nil {
		return nil, err
	}
	if err := r.decorateAttachment(ctx, attachment); err != nil {
		return nil, err
	}
	return attachment, nil
}

func (r *Registry) CreateAttachment(ctx context.Context, req *types.CreateAttachmentRequest) (*types.Attachment, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableGroups, req.GroupID); err != nil {
		return nil, err
	}

	attachmentType, err := r.GetAttachmentType(ctx, req.AttachmentTypeID)
	if err != nil {
		return nil, err
	}
	if err := r.ensureSlotFree(ctx, req.GroupID, req.AttachmentTypeID, ""); err != nil {
		return nil, err
	}
	if err := validateValue(attachmentType, req.Value); err != nil {
		return nil, err
	}

	days, date, err := r.resolveExpiryInput(attachmentType, req.ExpiryDays)
	if err != nil {
		return nil, err
	}

	id, err := r.store.Insert(ctx, types.TableAttachments, map[string]interface{}{
		"group_id":           req.GroupID,
		"attachment_type_id": req.AttachmentTypeID,
		"value":              req.Value,
		"expiry_days":        days,
		"expiry_date":        date,
		"is_active":          true,
	})
	if err != nil {
		return nil, err
	}

	return r.GetAttachment(ctx, id)
}

func (r *Registry) UpdateAttachment(ctx context.Context, id string, req *types.UpdateAttachmentRequest) (*types.Attachment, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}

	doc, err := r.findActive(ctx, types.TableAttachments, id)
	if err != nil {
		return nil, err
	}
	current, err := decodeOne[types.Attachment](doc)
	if err != nil {
		return nil, err
	}

	typeID := current.AttachmentTypeID
	if req.AttachmentTypeID != nil {
		typeID = *req.AttachmentTypeID
	}
	attachmentType, err := r.GetAttachmentType(ctx, typeID)
	if err != nil {
		return nil, err
	}
	if typeID != current.AttachmentTypeID {
		if err := r.ensureSlotFree(ctx, current.GroupID, typeID, id); err != nil {
			return nil, err
		}
	}

	value := current.Value
	if req.Value != nil {
		value = *req.Value
	}
	if err := validateValue(attachmentType, value); err != nil {
		return nil, err
	}

	// The stored day count survives an update that touches neither the
	// type nor the days; the date is re-anchored whenever either changes.
	effectiveDays := current.ExpiryDays
	if req.ExpiryDays != nil {
		effectiveDays = req.ExpiryDays
	}
	days, date, err := r.resolveExpiryInput(attachmentType, effectiveDays)
	if err != nil {
		return nil, err
	}

	set := map[string]interface{}{
		"attachment_type_id": typeID,
		"value":              value,
		"expiry_days":        days,
		"expiry_date":        date,
	}
	if _, err := r.store.Update(ctx, types.TableAttachments, types.Where("id", types.OpEq, id), set); err != nil {
		return nil, err
	}

	return r.GetAttachment(ctx, id)
}

func (r *Registry) DeleteAttachment(ctx context.Context, id string) error {
	if _, err := r.findActive(ctx, types.TableAttachments, id); err != nil {
		return err
	}

	_, err := r.store.Update(ctx, types.TableAttachments, types.Where("id", types.OpEq, id),
		map[string]interface{}{"is_active": false})
	return err
}

// ensureSlotFree enforces at most one active attachment per (group, type)
// pair.
func (r *Registry) ensureSlotFree(ctx context.Context, groupID, typeID, exceptID string) error {
	filter := types.ActiveOnly().
		And("group_id", types.OpEq, groupID).
		And("attachment_type_id", types.OpEq, typeID)
	if exceptID != "" {
		filter = filter.And("id", types.OpNe, exceptID)
	}

	count, err := r.store.Count(ctx, types.TableAttachments, filter)
	if err != nil {
		return err
	}
	if count > 0 {
		return types.Errorf(types.ErrDuplicateRecord, "group %s already has an attachment of type %s", groupID, typeID)
	}
	return nil
}

func validateValue(attachmentType *types.AttachmentType, value string) error {
	if attachmentType.FieldType != "url" {
		return nil
	}

	parsed, err := url.Parse(value)
	if err != nil || parsed.Host == "" || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return types.Errorf(types.ErrInvalidArgument, "value is not a valid http(s) url: %s", value)
	}
	return nil
}

// resolveExpiryInput enforces the expiry contract of the attachment type:
// a type with expiry requires a day count and derives the date from it, a
// type without expiry forbids one and clears both fields.
func (r *Registry) resolveExpiryInput(attachmentType *types.AttachmentType, expiryDays *int) (*int, *time.Time, error) {
	if attachmentType.HasExpiry {
		if expiryDays == nil {
			return nil, nil, types.Errorf(types.ErrExpiryDaysMissed, "attachment type %s requires expiry_days", attachmentType.Name)
		}
		days, date := r.calc.Apply(expiryDays)
		return days, date, nil
	}

	if expiryDays != nil {
		return nil, nil, types.Errorf(types.ErrInvalidArgument, "attachment type %s does not carry expiry", attachmentType.Name)
	}
	return nil, nil, nil
}

func (r *Registry) decorateAttachment(ctx context.Context, attachment *types.Attachment) error {
	attachment.ExpiryStatus, attachment.DaysRemaining = r.calc.Resolve(attachment.ExpiryDate)

	doc, err := r.store.FindOne(ctx, types.TableAttachmentTypes,
		types.Where("id", types.OpEq, attachment.AttachmentTypeID))
	if err != nil {
		if types.IsError(err, types.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	attachmentType, err := decodeOne[types.AttachmentType](doc)
	if err != nil {
		return err
	}
	attachment.AttachmentType = attachmentType
	return nil
}

func (r *Registry) groupAttachments(ctx context.Context, groupID string) ([]types.Attachment, error) {
	docs, err := r.store.Find(ctx, types.TableAttachments, types.Query{
		Filter:  types.ActiveOnly().And("group_id", types.OpEq, groupID),
		OrderBy: "created_at",
	})
	if err != nil {
		return nil, err
	}

	attachments, err := decodeAll[types.Attachment](docs)
	if err != nil {
		return nil, err
	}
	for i := range attachments {
		if err := r.decorateAttachment(ctx, &attachments[i]); err != nil {
			return nil, err
		}
	}
	return attachments, nil
}
