package registry

import (
	"context"

	"github.com/saiset-co/sai-registry/expiry"
	"github.com/saiset-co/sai-registry/types"
)

func (r *Registry) ListCodes(ctx context.Context, q ListQuery) (*types.PaginatedResponse, error) {
	q.normalize()

	filter := types.ActiveOnly()
	if q.GroupID != "" {
		filter = filter.And("group_id", types.OpEq, q.GroupID)
	}
	if q.Search != "" {
		filter = filter.And("code_text", types.OpLike, q.Search)
	}
	filter, err := r.statusFilter(filter, q.Status)
	if err != nil {
		return nil, err
	}

	total, err := r.store.Count(ctx, types.TableTimedCodes, filter)
	if err != nil {
		return nil, err
	}

	docs, err := r.store.Find(ctx, types.TableTimedCodes, types.Query{
		Filter:  filter,
		OrderBy: "expiry_date",
		Offset:  q.offset(),
		Limit:   q.Limit,
	})
	if err != nil {
		return nil, err
	}

	items, err := r.decodeCodes(docs)
	if err != nil {
		return nil, err
	}

	return types.NewPaginatedResponse(items, total, q.Page, q.Limit), nil
}

func (r *Registry) GetCode(ctx context.Context, id string) (*types.TimedCode, error) {
	doc, err := r.findActive(ctx, types.TableTimedCodes, id)
	if err != nil {
		return nil, err
	}

	code, err := decodeOne[types.TimedCode](doc)
	if err != nil {
		return nil, err
	}
	code.ExpiryStatus, code.DaysRemaining = r.calc.Resolve(code.ExpiryDate)
	return code, nil
}

func (r *Registry) CreateCode(ctx context.Context, req *types.CreateTimedCodeRequest) (*types.TimedCode, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableGroups, req.GroupID); err != nil {
		return nil, err
	}

	days, date := r.calc.Apply(&req.ExpiryDays)

	id, err := r.store.Insert(ctx, types.TableTimedCodes, map[string]interface{}{
		"group_id":    req.GroupID,
		"code_text":   req.CodeText,
		"expiry_days": days,
		"expiry_date": date,
		"is_active":   true,
	})
	if err != nil {
		return nil, err
	}

	return r.GetCode(ctx, id)
}

func (r *Registry) UpdateCode(ctx context.Context, id string, req *types.UpdateTimedCodeRequest) (*types.TimedCode, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}
	if _, err := r.findActive(ctx, types.TableTimedCodes, id); err != nil {
		return nil, err
	}

	set := map[string]interface{}{}
	if req.CodeText != nil {
		set["code_text"] = *req.CodeText
	}
	if req.ExpiryDays != nil {
		days, date := r.calc.Apply(req.ExpiryDays)
		set["expiry_days"] = days
		set["expiry_date"] = date
	}

	if len(set) > 0 {
		if _, err := r.store.Update(ctx, types.TableTimedCodes, types.Where("id", types.OpEq, id), set); err != nil {
			return nil, err
		}
	}

	return r.GetCode(ctx, id)
}

func (r *Registry) DeleteCode(ctx context.Context, id string) error {
	if _, err := r.findActive(ctx, types.TableTimedCodes, id); err != nil {
		return err
	}

	_, err := r.store.Update(ctx, types.TableTimedCodes, types.Where("id", types.OpEq, id),
		map[string]interface{}{"is_active": false})
	return err
}

// BulkCreateCodes inserts a batch of codes in one transaction, deriving each
// expiry date from its day count at the same clock reading. Every referenced
// group must be active, and a store failure leaves no partial batch behind.
func (r *Registry) BulkCreateCodes(ctx context.Context, req *types.BulkCreateTimedCodesRequest) (*types.BulkResult, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}

	seen := map[string]bool{}
	for _, item := range req.Items {
		if seen[item.GroupID] {
			continue
		}
		if _, err := r.findActive(ctx, types.TableGroups, item.GroupID); err != nil {
			return nil, err
		}
		seen[item.GroupID] = true
	}

	statements := make([]types.Statement, 0, len(req.Items))
	for _, item := range req.Items {
		days, date := r.calc.Apply(&item.ExpiryDays)
		statements = append(statements, types.InsertStatement(types.TableTimedCodes, map[string]interface{}{
			"group_id":    item.GroupID,
			"code_text":   item.CodeText,
			"expiry_days": days,
			"expiry_date": date,
			"is_active":   true,
		}))
	}
	if err := r.store.ExecBatch(ctx, statements); err != nil {
		return nil, err
	}

	return &types.BulkResult{Count: len(req.Items)}, nil
}

// BulkDeleteCodes soft-deletes the given set in one statement and reports
// how many active codes it actually hit.
func (r *Registry) BulkDeleteCodes(ctx context.Context, req *types.BulkDeleteTimedCodesRequest) (*types.BulkResult, error) {
	if err := r.validateRequest(req); err != nil {
		return nil, err
	}

	ids := make([]string, len(req.IDs))
	copy(ids, req.IDs)

	affected, err := r.store.Update(ctx, types.TableTimedCodes,
		types.Where("id", types.OpIn, ids).And("is_active", types.OpEq, true),
		map[string]interface{}{"is_active": false})
	if err != nil {
		return nil, err
	}

	return &types.BulkResult{Count: int(affected)}, nil
}

// ListExpiredCodes returns active codes whose expiry date is strictly
// before today's UTC midnight, soonest-expired first.
func (r *Registry) ListExpiredCodes(ctx context.Context) ([]types.TimedCode, error) {
	today := expiry.MidnightUTC(r.calc.Now())

	docs, err := r.store.Find(ctx, types.TableTimedCodes, types.Query{
		Filter: types.ActiveOnly().
			And("expiry_date", types.OpIsSet, true).
			And("expiry_date", types.OpLt, today),
		OrderBy: "expiry_date",
	})
	if err != nil {
		return nil, err
	}

	return r.decodeCodes(docs)
}

func (r *Registry) decodeCodes(docs []map[string]interface{}) ([]types.TimedCode, error) {
	codes, err := decodeAll[types.TimedCode](docs)
	if err != nil {
		return nil, err
	}
	for i := range codes {
		codes[i].ExpiryStatus, codes[i].DaysRemaining = r.calc.Resolve(codes[i].ExpiryDate)
	}
	return codes, nil
}

func (r *Registry) groupCodes(ctx context.Context, groupID string) ([]types.TimedCode, error) {
	docs, err := r.store.Find(ctx, types.TableTimedCodes, types.Query{
		Filter:  types.ActiveOnly().And("group_id", types.OpEq, groupID),
		OrderBy: "expiry_date",
	})
	if err != nil {
		return nil, err
	}
	return r.decodeCodes(docs)
}
