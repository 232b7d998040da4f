package utils

import (
	"github.com/valyala/fasthttp"

	"github.com/saiset-co/sai-registry/types"
)

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func WriteJSON(ctx *fasthttp.RequestCtx, statusCode int, payload interface{}) {
	body, err := Marshal(payload)
	if err != nil {
		CreateErrorResponse(ctx)
		return
	}

	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

// WriteError maps the error taxonomy onto HTTP statuses: NotFound -> 404,
// InvalidArgument -> 400, TransactionFailure -> 409 (retryable), everything
// else -> 500.
func WriteError(ctx *fasthttp.RequestCtx, err error) {
	switch {
	case types.IsError(err, types.ErrRecordNotFound):
		writeErrorBody(ctx, fasthttp.StatusNotFound, "Not Found", err.Error(), false)
	case types.IsError(err, types.ErrInvalidArgument),
		types.IsError(err, types.ErrInvalidStatusTag),
		types.IsError(err, types.ErrExpiryDaysMissed),
		types.IsError(err, types.ErrDuplicateRecord):
		writeErrorBody(ctx, fasthttp.StatusBadRequest, "Bad Request", err.Error(), false)
	case types.IsError(err, types.ErrTransactionFailed):
		writeErrorBody(ctx, fasthttp.StatusConflict, "Conflict", err.Error(), true)
	default:
		CreateErrorResponse(ctx)
	}
}

func writeErrorBody(ctx *fasthttp.RequestCtx, statusCode int, title, message string, retryable bool) {
	ctx.SetStatusCode(statusCode)
	ctx.SetContentType("application/json")
	ctx.Response.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")

	body, err := Marshal(&ErrorResponse{
		Error:     title,
		Message:   message,
		Retryable: retryable,
	})
	if err != nil {
		CreateErrorResponse(ctx)
		return
	}

	ctx.SetBody(body)
}

func CreateErrorResponse(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusInternalServerError)
	ctx.SetContentType("application/json")

	ctx.Response.Header.Set("Cache-Control", "no-cache, no-store, must-revalidate")
	ctx.Response.Header.Set("Pragma", "no-cache")
	ctx.Response.Header.Set("Expires", "0")

	if requestID := string(ctx.Request.Header.Peek("X-Request-ID")); requestID != "" {
		ctx.Response.Header.Set("X-Request-ID", requestID)
	}

	ctx.SetBodyString(`{"error":"Internal Server Error","message":"An unexpected error occurred"}`)
}

func CreateNotFoundResponse(ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	ctx.SetContentType("application/json")
	ctx.SetBodyString(`{"error":"Not Found","message":"Route not found"}`)
}
