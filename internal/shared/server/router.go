package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"resume-wizard/internal/ingest"
	"resume-wizard/internal/services/health"
	"resume-wizard/internal/shared/config"
	"resume-wizard/internal/shared/metrics"
	"resume-wizard/internal/shared/server/middleware"
	"resume-wizard/internal/shared/server/respond"
	"resume-wizard/internal/speech"
	"resume-wizard/internal/usage"
	"resume-wizard/internal/wizard"
)

// RouterDeps carries the handlers the router wires up.
type RouterDeps struct {
	Config        config.Config
	Health        *health.Service
	WizardHandler *wizard.Handler
	SpeechHandler *speech.Handler
	IngestHandler *ingest.Handler
	UsageHandler  *usage.Handler
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
	)

	// Registered before Identity so scrapers need no guest header.
	r.GET("/metrics", metrics.Handler())

	r.Use(middleware.Identity())

	api := r.Group("/api/v1")
	api.Use(middleware.RateLimit(rateLimitConfig()))

	healthSvc := deps.Health
	if healthSvc == nil {
		healthSvc = health.NewService()
	}
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, healthSvc.Status())
	})

	if deps.WizardHandler != nil {
		deps.WizardHandler.RegisterRoutes(api)
	}
	if deps.SpeechHandler != nil {
		deps.SpeechHandler.RegisterRoutes(api)
	}
	if deps.IngestHandler != nil {
		deps.IngestHandler.RegisterRoutes(api)
	}
	if deps.UsageHandler != nil {
		deps.UsageHandler.RegisterRoutes(api)
		if deps.Config.Env == "dev" {
			dev := api.Group("/dev")
			deps.UsageHandler.RegisterDevRoutes(dev)
		}
	}

	return r
}

// rateLimitConfig keeps generation and upload endpoints on a tighter budget
// than session reads.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		DefaultGroup: "DEFAULT",
		GroupFor:     rateLimitGroupFor,
		Rules: map[string]middleware.RateLimitRule{
			"DEFAULT":  {Rate: 10, Burst: 30},
			"GENERATE": {Rate: 0.5, Burst: 5},
		},
	}
}

var generateSuffixes = []string{
	"/extract",
	"/fit",
	"/draft",
	"/polish",
	"/files",
}

func rateLimitGroupFor(c *gin.Context) string {
	if c.Request.Method != http.MethodPost {
		return "DEFAULT"
	}
	path := c.Request.URL.Path
	for _, suffix := range generateSuffixes {
		if strings.HasSuffix(path, suffix) {
			return "GENERATE"
		}
	}
	return "DEFAULT"
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
