package registry

import (
	"strconv"

	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-registry/types"
	"github.com/saiset-co/sai-registry/utils"
)

func parseBody[T any](ctx *fasthttp.RequestCtx) (*T, error) {
	var req T
	if err := utils.Unmarshal(ctx.PostBody(), &req); err != nil {
		return nil, types.Errorf(types.ErrInvalidArgument, "invalid request body: %v", err)
	}
	return &req, nil
}

func pathID(ctx *fasthttp.RequestCtx) string {
	id, _ := ctx.UserValue("id").(string)
	return id
}

func parseListQuery(ctx *fasthttp.RequestCtx) ListQuery {
	args := ctx.QueryArgs()
	page, _ := strconv.Atoi(string(args.Peek("page")))
	limit, _ := strconv.Atoi(string(args.Peek("limit")))

	return ListQuery{
		Page:         page,
		Limit:        limit,
		Search:       string(args.Peek("search")),
		Status:       string(args.Peek("status")),
		CategoryID:   string(args.Peek("category_id")),
		CollectionID: string(args.Peek("collection_id")),
		GroupID:      string(args.Peek("group_id")),
	}
}

func writeResult(ctx *fasthttp.RequestCtx, statusCode int, payload interface{}, err error) {
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	utils.WriteJSON(ctx, statusCode, payload)
}

func writeDeleted(ctx *fasthttp.RequestCtx, err error) {
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	utils.WriteJSON(ctx, fasthttp.StatusOK, &types.MessageResponse{Message: "deleted"})
}

func (r *Registry) HandleListCategories(ctx *fasthttp.RequestCtx) {
	result, err := r.ListCategories(ctx, parseListQuery(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleGetCategory(ctx *fasthttp.RequestCtx) {
	result, err := r.GetCategory(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleCreateCategory(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.CreateCategoryRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.CreateCategory(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleUpdateCategory(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.UpdateCategoryRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.UpdateCategory(ctx, pathID(ctx), req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleDeleteCategory(ctx *fasthttp.RequestCtx) {
	writeDeleted(ctx, r.DeleteCategory(ctx, pathID(ctx)))
}

func (r *Registry) HandleListCollections(ctx *fasthttp.RequestCtx) {
	result, err := r.ListCollections(ctx, parseListQuery(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleGetCollection(ctx *fasthttp.RequestCtx) {
	result, err := r.GetCollection(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleCreateCollection(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.CreateCollectionRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.CreateCollection(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleUpdateCollection(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.UpdateCollectionRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.UpdateCollection(ctx, pathID(ctx), req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleDeleteCollection(ctx *fasthttp.RequestCtx) {
	writeDeleted(ctx, r.DeleteCollection(ctx, pathID(ctx)))
}

func (r *Registry) HandleListCollectionGroups(ctx *fasthttp.RequestCtx) {
	result, err := r.ListCollectionGroups(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleListGroups(ctx *fasthttp.RequestCtx) {
	result, err := r.ListGroups(ctx, parseListQuery(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleGetGroup(ctx *fasthttp.RequestCtx) {
	result, err := r.GetGroup(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleCreateGroup(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.CreateGroupRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.CreateGroup(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleUpdateGroup(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.UpdateGroupRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.UpdateGroup(ctx, pathID(ctx), req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleReorderGroups(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.ReorderGroupsRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	if err := r.ReorderGroups(ctx, req); err != nil {
		utils.WriteError(ctx, err)
		return
	}
	utils.WriteJSON(ctx, fasthttp.StatusOK, &types.MessageResponse{Message: "reordered"})
}

func (r *Registry) HandleDeleteGroup(ctx *fasthttp.RequestCtx) {
	writeDeleted(ctx, r.DeleteGroup(ctx, pathID(ctx)))
}

func (r *Registry) HandleListAttachmentTypes(ctx *fasthttp.RequestCtx) {
	result, err := r.ListAttachmentTypes(ctx, parseListQuery(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleGetAttachmentType(ctx *fasthttp.RequestCtx) {
	result, err := r.GetAttachmentType(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleCreateAttachmentType(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.CreateAttachmentTypeRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.CreateAttachmentType(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleUpdateAttachmentType(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.UpdateAttachmentTypeRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.UpdateAttachmentType(ctx, pathID(ctx), req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleDeleteAttachmentType(ctx *fasthttp.RequestCtx) {
	writeDeleted(ctx, r.DeleteAttachmentType(ctx, pathID(ctx)))
}

func (r *Registry) HandleListAttachments(ctx *fasthttp.RequestCtx) {
	result, err := r.ListAttachments(ctx, parseListQuery(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleGetAttachment(ctx *fasthttp.RequestCtx) {
	result, err := r.GetAttachment(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleCreateAttachment(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.CreateAttachmentRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.CreateAttachment(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleUpdateAttachment(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.UpdateAttachmentRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.UpdateAttachment(ctx, pathID(ctx), req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleDeleteAttachment(ctx *fasthttp.RequestCtx) {
	writeDeleted(ctx, r.DeleteAttachment(ctx, pathID(ctx)))
}

func (r *Registry) HandleListCodes(ctx *fasthttp.RequestCtx) {
	result, err := r.ListCodes(ctx, parseListQuery(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleGetCode(ctx *fasthttp.RequestCtx) {
	result, err := r.GetCode(ctx, pathID(ctx))
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleCreateCode(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.CreateTimedCodeRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.CreateCode(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleUpdateCode(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.UpdateTimedCodeRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.UpdateCode(ctx, pathID(ctx), req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleDeleteCode(ctx *fasthttp.RequestCtx) {
	writeDeleted(ctx, r.DeleteCode(ctx, pathID(ctx)))
}

func (r *Registry) HandleBulkCreateCodes(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.BulkCreateTimedCodesRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.BulkCreateCodes(ctx, req)
	writeResult(ctx, fasthttp.StatusCreated, result, err)
}

func (r *Registry) HandleBulkDeleteCodes(ctx *fasthttp.RequestCtx) {
	req, err := parseBody[types.BulkDeleteTimedCodesRequest](ctx)
	if err != nil {
		utils.WriteError(ctx, err)
		return
	}
	result, err := r.BulkDeleteCodes(ctx, req)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}

func (r *Registry) HandleListExpiredCodes(ctx *fasthttp.RequestCtx) {
	result, err := r.ListExpiredCodes(ctx)
	writeResult(ctx, fasthttp.StatusOK, result, err)
}
