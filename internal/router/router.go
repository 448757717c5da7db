package router

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/scheduling-api/internal/middleware"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	health    Handler
	protected []Handler
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        float64
	RateBurst        int
	RequestTimeout   time.Duration
	Metrics          *middleware.HTTPMetrics
}

// NewRouter wires the middleware chain. Handlers in protected are mounted behind
// bearer-token authentication.
func NewRouter(
	auth *middleware.AuthMiddleware,
	health Handler,
	config RouterConfig,
	protected ...Handler,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()

	r := &Router{
		engine:    engine,
		auth:      auth,
		health:    health,
		protected: protected,
	}

	// RequestID first so every later middleware can tag its output.
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
	)
	if config.Metrics != nil {
		engine.Use(config.Metrics.Middleware())
	}
	engine.Use(middleware.Timeout(config.RequestTimeout))

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			RPS:   config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.health != nil {
		r.health.RegisterRoutes(api)
	}

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	for _, h := range r.protected {
		h.RegisterRoutes(protected)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
