// Package app assembles the HTTP handler graph from configuration and stores.
package app

import (
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	apiHandler "github.com/fastygo/taskboard/api/handler"
	"github.com/fastygo/taskboard/internal/config"
	"github.com/fastygo/taskboard/internal/infrastructure/monitor"
	"github.com/fastygo/taskboard/internal/middleware"
	"github.com/fastygo/taskboard/internal/router"
	"github.com/fastygo/taskboard/pkg/httpcontext"
	"github.com/fastygo/taskboard/pkg/token"
	authUC "github.com/fastygo/taskboard/usecase/auth"
	profileUC "github.com/fastygo/taskboard/usecase/profile"
	taskUC "github.com/fastygo/taskboard/usecase/task"
)

type App struct {
	Handler fasthttp.RequestHandler
	Monitor *monitor.Monitor
	Auth    *authUC.UseCase
	Tasks   *taskUC.UseCase
}

func New(cfg *config.Config, stores *Stores, logger *zap.Logger) *App {
	if logger == nil {
		logger = zap.NewNop()
	}

	tokens := token.NewManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.AccessTTL)
	authUseCase := authUC.New(stores.Users, stores.Sessions, tokens, cfg.JWT.SessionTTL, logger)
	profileUseCase := profileUC.New(stores.Users, logger)
	taskUseCase := taskUC.New(stores.Tasks, logger)

	mon := monitor.New(stores.Probes, cfg.Monitor.Interval, logger)
	ctxAdapter := httpcontext.NewAdapter(cfg.Context.RequestTimeout)

	handlers := router.Handlers{
		Auth:     apiHandler.NewAuthHandler(authUseCase, ctxAdapter, logger),
		Profile:  apiHandler.NewProfileHandler(profileUseCase, ctxAdapter, logger),
		Task:     apiHandler.NewTaskHandler(taskUseCase, ctxAdapter, logger),
		Health:   apiHandler.NewHealthHandler(mon, ctxAdapter, logger),
		Fallback: apiHandler.NewFallbackHandler(logger),
	}

	r := router.New(handlers, middleware.JWTAuth(authUseCase, logger))

	return &App{
		Handler: middleware.RequestLogger(logger)(r.Handler),
		Monitor: mon,
		Auth:    authUseCase,
		Tasks:   taskUseCase,
	}
}
