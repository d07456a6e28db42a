package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/auth"
	"github.com/spinwin-labs/spin-reward-service/config"
	"github.com/spinwin-labs/spin-reward-service/donation"
	"github.com/spinwin-labs/spin-reward-service/middleware"
	"github.com/spinwin-labs/spin-reward-service/pkg/winnersfeed"
	"github.com/spinwin-labs/spin-reward-service/spin"
)

// App represents the spin reward service application
type App struct {
	engine          *gin.Engine
	config          *config.Config
	logger          zerolog.Logger
	httpServer      *http.Server
	onShutdown      []func()
	spinService     *spin.Service
	donationService *donation.Service
	winnersFeed     *winnersfeed.Service
	wheelHandler    *WheelHandler
	donationHandler *DonationHandler
	winnersHandler  *WinnersHandler
}

// Options holds server configuration options
type Options struct {
	Config          *config.Config
	Logger          zerolog.Logger
	SpinService     *spin.Service
	DonationService *donation.Service
	WinnersFeed     *winnersfeed.Service
}

// Router is an alias for gin.Engine for convenience
type Router = gin.Engine

// New creates a new spin reward service application
func New(opts Options) *App {
	// Configure decimal.Decimal to marshal as JSON number instead of string
	// WARNING: This may cause precision loss for decimals with many digits when
	// unmarshaled by clients using IEEE 754 double-precision (e.g., JavaScript)
	decimal.MarshalJSONWithoutQuotes = true

	// Set Gin mode
	if opts.Config.IsDevelopment() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	app := &App{
		engine:          engine,
		config:          opts.Config,
		logger:          opts.Logger,
		spinService:     opts.SpinService,
		donationService: opts.DonationService,
		winnersFeed:     opts.WinnersFeed,
	}

	app.wheelHandler = NewWheelHandler(app)
	app.donationHandler = NewDonationHandler(app)
	app.winnersHandler = NewWinnersHandler(app, opts.WinnersFeed)

	return app
}

// UseCommonMiddlewares adds common middlewares to the application
func (a *App) UseCommonMiddlewares() {
	// Recovery middleware (must be first)
	a.engine.Use(middleware.Recovery(a.logger))

	// Trace ID middleware
	a.engine.Use(middleware.TraceID())

	// Logging middleware
	a.engine.Use(middleware.Logging(a.logger))

	// CORS middleware if enabled
	if a.config.Server.EnableCORS {
		a.engine.Use(middleware.CORS())
	}
}

// UseMiddleware adds a custom middleware
func (a *App) UseMiddleware(m gin.HandlerFunc) {
	a.engine.Use(m)
}

// RegisterHealthCheck adds health check endpoints
func (a *App) RegisterHealthCheck() {
	a.engine.GET("/health", a.healthCheck)
	a.engine.GET("/api/health", a.healthCheck)
}

func (a *App) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now(),
		"service":   a.config.Environment,
	})
}

// RegisterRoutes registers the service API routes.
//
// Routes registered:
//   - POST /api/wheel/spin          -> WheelHandler.Spin (JWT)
//   - GET  /api/wheel/quota         -> WheelHandler.Quota (JWT)
//   - GET  /api/wheel/claims/:id    -> WheelHandler.GetClaim (JWT)
//   - GET  /api/wheel/table         -> WheelHandler.Table
//   - POST /api/donations           -> DonationHandler.Donate (JWT)
//   - GET  /api/donations/info      -> DonationHandler.Info
//   - GET  /api/winners             -> WinnersHandler.Recent
//   - GET  /api/winners/updates     -> WinnersHandler.StreamUpdates (SSE)
//   - GET  /api/winners/updates/ws  -> WinnersHandler.StreamUpdatesWebSocket
func (a *App) RegisterRoutes() {
	jwtMiddleware := auth.JWTMiddleware(a.config.JWT.Secret, a.logger)

	wheel := a.engine.Group("/api/wheel")
	{
		// Table display needs no identity.
		wheel.GET("/table", a.wheelHandler.Table)

		authed := wheel.Group("")
		authed.Use(jwtMiddleware)
		// Spin flow endpoints are quick; anything hanging this long is stuck.
		authed.Use(middleware.Timeout(10 * time.Second))
		{
			authed.POST("/spin", a.wheelHandler.Spin)
			authed.GET("/quota", a.wheelHandler.Quota)
			authed.GET("/claims/:id", a.wheelHandler.GetClaim)
		}
	}

	donations := a.engine.Group("/api/donations")
	{
		donations.GET("/info", a.donationHandler.Info)
		donations.POST("", jwtMiddleware, a.donationHandler.Donate)
	}

	winners := a.engine.Group("/api/winners")
	{
		winners.GET("", a.winnersHandler.Recent)
		winners.GET("/updates", a.winnersHandler.StreamUpdates)
		winners.GET("/updates/ws", a.winnersHandler.StreamUpdatesWebSocket)
	}

	a.logger.Info().Msg("Service routes registered")
}

// Router returns the Gin engine for custom route registration
func (a *App) Router() *gin.Engine {
	return a.engine
}

// Group creates a route group
func (a *App) Group(path string, handlers ...gin.HandlerFunc) *gin.RouterGroup {
	return a.engine.Group(path, handlers...)
}

// OnShutdown registers a function to be called on shutdown
func (a *App) OnShutdown(fn func()) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Run starts the HTTP server
func (a *App) Run() error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			a.logger.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	return a.waitForShutdown()
}

// RunWithContext starts the HTTP server with context
func (a *App) RunWithContext(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", a.config.Server.Port)

	a.httpServer = &http.Server{
		Addr:         addr,
		Handler:      a.engine,
		ReadTimeout:  a.config.Server.ReadTimeout,
		WriteTimeout: a.config.Server.WriteTimeout,
		IdleTimeout:  a.config.Server.IdleTimeout,
	}

	errChan := make(chan error, 1)
	go func() {
		a.logger.Info().
			Int("port", a.config.Server.Port).
			Str("environment", a.config.Environment).
			Msg("Starting HTTP server")

		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return a.shutdown()
	case err := <-errChan:
		return err
	}
}

func (a *App) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	return a.shutdown()
}

func (a *App) shutdown() error {
	a.logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for _, fn := range a.onShutdown {
		fn()
	}

	if err := a.httpServer.Shutdown(ctx); err != nil {
		a.logger.Error().Err(err).Msg("Server forced to shutdown")
		return err
	}

	a.logger.Info().Msg("Server exited")
	return nil
}
