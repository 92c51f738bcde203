package handler

import (
	"fmt"
	"net/http"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/api/transport"
	"github.com/fastygo/taskboard/domain"
)

// FallbackHandler answers requests the router could not dispatch, keeping the envelope shape.
type FallbackHandler struct {
	baseHandler
}

func NewFallbackHandler(logger *zap.Logger) *FallbackHandler {
	return &FallbackHandler{baseHandler: newBaseHandler(nil, logger)}
}

func (h *FallbackHandler) NotFound(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusNotFound, transport.NewError(string(domain.ErrCodeNotFound), "route not found", nil))
}

func (h *FallbackHandler) MethodNotAllowed(ctx *fasthttp.RequestCtx) {
	h.respondJSON(ctx, http.StatusMethodNotAllowed, transport.NewError("METHOD_NOT_ALLOWED", "method not allowed", nil))
}

// Panic turns a recovered handler panic into a logged 500.
func (h *FallbackHandler) Panic(ctx *fasthttp.RequestCtx, recovered interface{}) {
	h.respondError(ctx, fmt.Errorf("panic: %v", recovered))
}
