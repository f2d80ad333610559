package app

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/config"
	"github.com/lynkpage/core/internal/database"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/modules/analytics"
	"github.com/lynkpage/core/internal/pkg/geo"
	"github.com/lynkpage/core/internal/pkg/jwt"
	pkgredis "github.com/lynkpage/core/internal/pkg/redis"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg       *config.AppConfig
	router    *gin.Engine
	db        *gorm.DB
	rdb       *pkgredis.Client
	geo       *geo.Reader
	collector *analytics.Collector
	logger    *zap.Logger
}

// New initializes the application: config → DB → Redis → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if cfg.JWTSecret != "" {
		jwt.SetSecret(cfg.JWTSecret)
	} else if !cfg.IsDev() {
		return nil, errors.New("jwt_secret is required in production")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	geoReader, err := geo.Open(cfg.GeoIPPath)
	if err != nil {
		logger.Warn("geoip database unavailable, click events carry no country",
			zap.String("path", cfg.GeoIPPath), zap.Error(err))
		geoReader = nil
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	collector := analytics.NewCollector(db, geoReader, logger, 1024, 5*time.Second)

	app := &App{
		cfg:       cfg,
		router:    router,
		db:        db,
		rdb:       rc,
		geo:       geoReader,
		collector: collector,
		logger:    logger,
	}
	app.registerRoutes()

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown flushes pending click events and releases resources.
func (a *App) Shutdown() {
	a.collector.Shutdown()
	a.geo.Close()
}

var processStart = time.Now()
