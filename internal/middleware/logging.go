package middleware

import (
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/fastygo/taskboard/pkg/httpcontext"
)

// RequestLogger logs one line per request after the handler ran.
func RequestLogger(logger *zap.Logger) func(fasthttp.RequestHandler) fasthttp.RequestHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(next fasthttp.RequestHandler) fasthttp.RequestHandler {
		return func(ctx *fasthttp.RequestCtx) {
			start := time.Now()
			reqID := httpcontext.RequestID(ctx)

			next(ctx)

			status := ctx.Response.StatusCode()
			fields := []zap.Field{
				zap.String("request_id", reqID),
				zap.ByteString("method", ctx.Method()),
				zap.ByteString("path", ctx.Path()),
				zap.Int("status", status),
				zap.Duration("duration", time.Since(start)),
			}
			if actor := httpcontext.Actor(ctx); actor != "" {
				fields = append(fields, zap.String("actor", actor))
			}

			switch {
			case status >= fasthttp.StatusInternalServerError:
				logger.Error("request failed", fields...)
			case status >= fasthttp.StatusBadRequest:
				logger.Warn("request rejected", fields...)
			default:
				logger.Info("request handled", fields...)
			}
		}
	}
}
