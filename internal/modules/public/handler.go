package public

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/modules/analytics"
	"github.com/lynkpage/core/internal/pkg/response"
)

type Handler struct {
	svc       *Service
	collector *analytics.Collector
}

func NewHandler(svc *Service, collector *analytics.Collector) *Handler {
	return &Handler{svc: svc, collector: collector}
}

// RegisterAPIRoutes registers the JSON profile endpoint under the API group.
func (h *Handler) RegisterAPIRoutes(rg *gin.RouterGroup) {
	rg.GET("/pages/:handle", h.getProfile)
}

// RegisterRedirectRoutes registers the public click-through redirect at the
// root so share links stay short.
func (h *Handler) RegisterRedirectRoutes(rg *gin.RouterGroup) {
	rg.GET("/:handle/:slug", h.redirect)
}

// GET /pages/:handle — the visibility-filtered public profile.
func (h *Handler) getProfile(c *gin.Context) {
	p, err := h.svc.Resolve(c.Param("handle"), time.Now())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if p == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, p)
}

// GET /:handle/:slug — 302 to the target, recording the click.
func (h *Handler) redirect(c *gin.Context) {
	l, err := h.svc.ResolveLink(c.Param("handle"), c.Param("slug"), time.Now())
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if l == nil {
		response.NotFound(c)
		return
	}

	if h.collector != nil {
		h.collector.Push(analytics.RawClick{
			LinkID:    l.ID,
			ClickedAt: time.Now(),
			IP:        c.ClientIP(),
			UserAgent: c.Request.UserAgent(),
			Referrer:  c.GetHeader("Referer"),
		})
	}

	c.Redirect(http.StatusFound, l.URL)
}
