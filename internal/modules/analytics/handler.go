package analytics

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/models"
	"github.com/lynkpage/core/internal/pkg/pagination"
	"github.com/lynkpage/core/internal/pkg/response"
	"gorm.io/gorm"
)

// Handler exposes the owner's raw click data. Storage only, no aggregation
// engine: counts per link plus the recent event stream.
type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler { return &Handler{db: db} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/analytics", authMW)

	g.GET("/links", h.linkCounts)
	g.GET("/links/:id/events", h.linkEvents)
}

type linkCount struct {
	LinkID string `json:"link_id"`
	Slug   string `json:"slug"`
	Title  string `json:"title"`
	Clicks int64  `json:"clicks"`
}

// GET /analytics/links — click totals per link for the caller.
func (h *Handler) linkCounts(c *gin.Context) {
	ownerID := middleware.CurrentUserID(c)

	var rows []linkCount
	err := h.db.Model(&models.LinkModel{}).
		Select("links.id AS link_id, links.slug, links.title, COUNT(click_events.id) AS clicks").
		Joins("LEFT JOIN click_events ON click_events.link_id = links.id").
		Where("links.user_id = ?", ownerID).
		Group("links.id, links.slug, links.title").
		Scan(&rows).Error
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, rows)
}

type clickEventResponse struct {
	ID        string    `json:"id"`
	Referrer  string    `json:"referrer,omitempty"`
	Device    string    `json:"device,omitempty"`
	Browser   string    `json:"browser,omitempty"`
	Country   string    `json:"country,omitempty"`
	ClickedAt time.Time `json:"clicked_at"`
}

// GET /analytics/links/:id/events?page=&size=
func (h *Handler) linkEvents(c *gin.Context) {
	ownerID := middleware.CurrentUserID(c)

	// Ownership gate first, so foreign ids read as missing.
	var l models.LinkModel
	if err := h.db.Select("id").Where("id = ? AND user_id = ?", c.Param("id"), ownerID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "link not found")
			return
		}
		response.InternalError(c, err)
		return
	}

	q := pagination.FromContext(c)
	tx := h.db.Model(&models.ClickEventModel{}).
		Where("link_id = ?", l.ID).
		Order("clicked_at DESC")

	var events []models.ClickEventModel
	pag, err := pagination.Paginate(tx, q, &events)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]clickEventResponse, len(events))
	for i, e := range events {
		out[i] = clickEventResponse{
			ID: e.ID, Referrer: e.Referrer, Device: e.Device,
			Browser: e.Browser, Country: e.Country, ClickedAt: e.ClickedAt,
		}
	}
	response.Paged(c, out, pag)
}
