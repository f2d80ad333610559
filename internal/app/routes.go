package app

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/modules/account"
	"github.com/lynkpage/core/internal/modules/analytics"
	"github.com/lynkpage/core/internal/modules/link"
	"github.com/lynkpage/core/internal/modules/passkey"
	"github.com/lynkpage/core/internal/modules/profile"
	"github.com/lynkpage/core/internal/modules/public"
	"github.com/lynkpage/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes() {
	r := a.router
	db := a.db
	authMW := middleware.Auth(db)

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"uptime": time.Since(processStart).Milliseconds(),
		})
	})

	// Versioned API
	api := r.Group(apiPrefix)
	api.Use(middleware.OptionalAuth(db))
	api.Use(middleware.RateLimit(a.rdb.Raw()))
	api.Use(middleware.HTTPCache(a.rdb.Raw(), middleware.HTTPCacheOptions{
		TTL:       30 * time.Second,
		Disable:   a.cfg.IsDev(),
		SkipPaths: httpCacheSkipPaths(),
	}))

	api.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"data": "pong"})
	})

	// Accounts and auth
	accountSvc := account.NewService(db)
	account.NewHandler(accountSvc).RegisterRoutes(api, authMW)
	account.NewOAuthHandler(accountSvc, a.cfg, a.logger).RegisterRoutes(api)
	passkey.NewHandler(db, a.cfg).RegisterRoutes(api, authMW)

	// Owner dashboard
	link.NewHandler(link.NewService(db, a.rdb)).RegisterRoutes(api, authMW)
	profile.NewHandler(profile.NewService(db, a.rdb), a.cfg.PublicBaseURL).RegisterRoutes(api, authMW)
	analytics.NewHandler(db).RegisterRoutes(api, authMW)

	// Public surface: JSON profile under the API, click-through redirects
	// at the root.
	publicHandler := public.NewHandler(public.NewService(db), a.collector)
	publicHandler.RegisterAPIRoutes(api)
	publicHandler.RegisterRedirectRoutes(r.Group(""))

	// Cache administration
	api.DELETE("/cache", authMW, func(c *gin.Context) {
		if err := middleware.PurgeHTTPCache(c.Request.Context(), a.rdb.Raw()); err != nil {
			response.InternalError(c, err)
			return
		}
		response.NoContent(c)
	})
}

// httpCacheSkipPaths lists the API paths whose responses must never be
// served from the page cache.
func httpCacheSkipPaths() []string {
	return []string{
		apiPrefix + "/ping",
		apiPrefix + "/user/check_logged",
		apiPrefix + "/auth/*",
		apiPrefix + "/passkey/*",
	}
}
