// Package leadscore provides the lead scoring bounded context module.
// This file wires its repository, cache and service and registers routes.
package leadscore

import (
	apphttp "leadscore_backend/internal/http"
	"leadscore_backend/internal/leadscore/cache"
	"leadscore_backend/internal/leadscore/handler"
	"leadscore_backend/internal/leadscore/ports"
	"leadscore_backend/internal/leadscore/repository"
	"leadscore_backend/internal/leadscore/scoring"
	"leadscore_backend/internal/leadscore/service"
	"leadscore_backend/platform/config"
	"leadscore_backend/platform/db"
	"leadscore_backend/platform/httpkit"
	"leadscore_backend/platform/logger"
	"leadscore_backend/platform/metrics"
	"leadscore_backend/platform/redis"
	"leadscore_backend/platform/validator"
)

// Options are the optional collaborators of the module.
type Options struct {
	// Redis enables the score cache when set.
	Redis *redis.Client
	// Queue enables asynchronous rescoring when set.
	Queue   ports.RescoreQueue
	Metrics *metrics.Metrics
}

// Module is the lead scoring bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	limiter *httpkit.IPRateLimiter
}

// NewModule loads the weight table and builds the module.
func NewModule(pool db.Pool, cfg config.ScoringConfig, opts Options, val *validator.Validator, log *logger.Logger) (*Module, error) {
	weights, err := scoring.LoadWeights(cfg.GetScoringWeightsFile())
	if err != nil {
		return nil, err
	}

	repo := repository.New(pool)

	var scoreCache ports.ScoreCache
	if opts.Redis != nil {
		scoreCache = cache.New(opts.Redis, cfg.GetScoreCacheTTL())
	} else {
		log.Warn("REDIS_URL not configured; lead score cache disabled")
	}

	svc := service.New(service.Deps{
		Engine:     scoring.NewEngine(weights),
		Store:      repo,
		Cache:      scoreCache,
		Behavior:   repo,
		Engagement: repo,
		Leads:      repo,
		Queue:      opts.Queue,
		Metrics:    opts.Metrics,
		Logger:     log,
	})

	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		limiter: httpkit.NewRescoreRateLimiter(log),
	}, nil
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leadscore"
}

// Service returns the scoring service for the scheduler and other callers.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts the scoring routes under the authenticated group.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected.Group("/lead-scores"), m.limiter.RateLimit())
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
