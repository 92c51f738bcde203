package middleware

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fastygo/taskboard/pkg/httpcontext"
)

type staticAuth map[string]string

func (s staticAuth) Authenticate(token string) (string, error) {
	if id, ok := s[token]; ok {
		return id, nil
	}
	return "", errors.New("bad token")
}

func TestJWTAuth(t *testing.T) {
	var seen string
	next := func(ctx *fasthttp.RequestCtx) {
		seen = httpcontext.Actor(ctx)
		ctx.SetStatusCode(http.StatusOK)
	}
	handler := JWTAuth(staticAuth{"good": "u1"}, nil)(next)

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantActor  string
	}{
		{name: "valid", header: "Bearer good", wantStatus: http.StatusOK, wantActor: "u1"},
		{name: "lowercase scheme", header: "bearer good", wantStatus: http.StatusOK, wantActor: "u1"},
		{name: "missing", header: "", wantStatus: http.StatusUnauthorized},
		{name: "bad token", header: "Bearer nope", wantStatus: http.StatusUnauthorized},
		{name: "no scheme", header: "good", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			var ctx fasthttp.RequestCtx
			if tt.header != "" {
				ctx.Request.Header.Set("Authorization", tt.header)
			}
			handler(&ctx)

			assert.Equal(t, tt.wantStatus, ctx.Response.StatusCode())
			assert.Equal(t, tt.wantActor, seen)
			if tt.wantStatus == http.StatusUnauthorized {
				assert.Contains(t, string(ctx.Response.Body()), "UNAUTHORIZED")
			}
		})
	}
}

func TestJWTAuthIgnoresSpoofedHeader(t *testing.T) {
	var ctx fasthttp.RequestCtx
	ctx.Request.Header.Set("X-User-ID", "u2")

	called := false
	JWTAuth(staticAuth{}, nil)(func(ctx *fasthttp.RequestCtx) { called = true })(&ctx)

	assert.False(t, called)
	assert.Equal(t, http.StatusUnauthorized, ctx.Response.StatusCode())
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	handler := RequestLogger(zap.New(core))(func(ctx *fasthttp.RequestCtx) {
		ctx.SetStatusCode(http.StatusNotFound)
	})

	var ctx fasthttp.RequestCtx
	ctx.Request.Header.SetMethod(http.MethodGet)
	ctx.Request.SetRequestURI("/api/v1/tasks/x")
	handler(&ctx)

	entries := logs.All()
	if assert.Len(t, entries, 1) {
		assert.Equal(t, "request rejected", entries[0].Message)
		fields := entries[0].ContextMap()
		assert.Equal(t, int64(http.StatusNotFound), fields["status"])
		assert.Equal(t, "/api/v1/tasks/x", fields["path"])
	}
	assert.NotEmpty(t, ctx.Response.Header.Peek("X-Request-ID"))
}
