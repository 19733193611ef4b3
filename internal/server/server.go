package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"gymmanager/internal/api"
	"gymmanager/internal/auth"
	"gymmanager/internal/dashboard"
	"gymmanager/internal/gym"
	"gymmanager/internal/member"
	"gymmanager/internal/plan"
)

const visitorTTL = 3 * time.Minute

type Handlers struct {
	Gym       *gym.Handler
	Plan      *plan.Handler
	Member    *member.Handler
	Dashboard *dashboard.Handler
}

type Options struct {
	Port           string
	JWTSecret      string
	RateLimitRPS   float64
	RateLimitBurst int
	// Checks are probed by GET /health.
	Checks map[string]Pinger
}

type Server struct {
	router *gin.Engine
	http   *http.Server
	stop   context.CancelFunc
}

func New(opts Options, h Handlers) *Server {
	api.UseJSONFieldNames()

	ctx, stop := context.WithCancel(context.Background())
	limiter := NewRateLimiter(ctx, opts.RateLimitRPS, opts.RateLimitBurst, visitorTTL)

	router := gin.New()
	router.Use(
		gin.Recovery(),
		RequestIDMiddleware(),
		RequestLoggingMiddleware(),
		MetricsMiddleware(),
		corsMiddleware(),
	)

	router.GET("/health", Health(opts.Checks))
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	public := router.Group("/auth")
	public.Use(RateLimitMiddleware(limiter))
	{
		public.POST("/register", h.Gym.Register)
		public.POST("/login", h.Gym.Login)
		public.POST("/refresh", h.Gym.Refresh)
		public.POST("/forgot-password", h.Gym.ForgotPassword)
		public.POST("/reset-password", h.Gym.ResetPassword)
	}

	protected := router.Group("/")
	protected.Use(RateLimitMiddleware(limiter), auth.Middleware(opts.JWTSecret))
	{
		protected.GET("/me", h.Gym.Me)
		protected.POST("/me/logo", h.Gym.UploadLogo)

		protected.GET("/dashboard/stats", h.Dashboard.Stats)

		members := protected.Group("/members")
		members.POST("", h.Member.Enroll)
		members.GET("", h.Member.List)
		members.GET("/expiring-soon", h.Dashboard.ExpiringSoon)
		members.GET("/expired", h.Dashboard.Expired)
		members.GET("/:id", h.Member.Get)
		members.PUT("/:id", h.Member.Update)
		members.PATCH("/:id/status", h.Member.SetStatus)
		members.PATCH("/:id/payment", h.Member.SetPayment)
		members.POST("/:id/renew", h.Member.Renew)
		members.POST("/:id/photo", h.Member.UploadPhoto)
		members.DELETE("/:id", h.Member.Delete)

		plans := protected.Group("/membership-plans")
		plans.GET("", h.Plan.List)
		plans.POST("", h.Plan.Create)
		plans.GET("/:id", h.Plan.Get)
		plans.PUT("/:id", h.Plan.Update)
		plans.DELETE("/:id", h.Plan.Delete)
	}

	return &Server{
		router: router,
		http: &http.Server{
			Addr:              ":" + opts.Port,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		},
		stop: stop,
	}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and stops the rate limiter janitor.
func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	return s.http.Shutdown(ctx)
}
