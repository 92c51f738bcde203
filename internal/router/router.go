package router

import (
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"

	apiHandler "github.com/fastygo/taskboard/api/handler"
)

type Handlers struct {
	Auth     *apiHandler.AuthHandler
	Profile  *apiHandler.ProfileHandler
	Task     *apiHandler.TaskHandler
	Health   *apiHandler.HealthHandler
	Fallback *apiHandler.FallbackHandler
}

type Middleware func(fasthttp.RequestHandler) fasthttp.RequestHandler

func New(handlers Handlers, requireActor Middleware) *router.Router {
	r := router.New()
	if handlers.Fallback != nil {
		r.NotFound = handlers.Fallback.NotFound
		r.MethodNotAllowed = handlers.Fallback.MethodNotAllowed
		r.PanicHandler = handlers.Fallback.Panic
	}

	r.GET("/health", handlers.Health.Check)

	api := r.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", handlers.Auth.Register)
	auth.POST("/login", handlers.Auth.Login)
	auth.POST("/refresh", handlers.Auth.Refresh)
	auth.POST("/logout", handlers.Auth.Logout)

	api.GET("/profile", requireActor(handlers.Profile.GetProfile))

	// Task routes act on behalf of the authenticated owner only.
	api.GET("/tasks", requireActor(handlers.Task.GetTasks))
	api.POST("/tasks", requireActor(handlers.Task.CreateTask))
	api.GET("/tasks/{id}", requireActor(handlers.Task.GetTask))
	api.PATCH("/tasks/{id}", requireActor(handlers.Task.UpdateTask))
	api.PUT("/tasks/{id}", requireActor(handlers.Task.UpdateTask))
	api.DELETE("/tasks/{id}", requireActor(handlers.Task.DeleteTask))

	return r
}
