package link

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/links", authMW)

	g.GET("", h.list)
	g.POST("", h.create)
	g.PATCH("/reorder", h.reorder)
	g.GET("/:id", h.getByID)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PATCH("/:id/toggle", h.toggle)
}

// GET /links — the owner's full collection, scheduled/expired included.
func (h *Handler) list(c *gin.Context) {
	links, err := h.svc.List(middleware.CurrentUserID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	out := make([]linkResponse, len(links))
	for i, l := range links {
		out[i] = toResponse(&l)
	}
	response.OK(c, out)
}

// POST /links
func (h *Handler) create(c *gin.Context) {
	var dto LinkDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	l, err := h.svc.Create(middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, toResponse(l))
}

// GET /links/:id
func (h *Handler) getByID(c *gin.Context) {
	l, err := h.svc.GetByID(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(l))
}

// PUT /links/:id
func (h *Handler) update(c *gin.Context) {
	var dto LinkDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	l, err := h.svc.Update(middleware.CurrentUserID(c), c.Param("id"), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(l))
}

// DELETE /links/:id
func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(middleware.CurrentUserID(c), c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

// PATCH /links/:id/toggle
func (h *Handler) toggle(c *gin.Context) {
	l, err := h.svc.ToggleActive(middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(l))
}

// PATCH /links/reorder
func (h *Handler) reorder(c *gin.Context) {
	var dto ReorderDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := h.svc.Reorder(middleware.CurrentUserID(c), dto.IDs); err != nil {
		h.writeError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidLink):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errSlugTaken):
		response.Conflict(c, "a link with this slug already exists")
	case errors.Is(err, errNotFound):
		// Same message whether the id is missing or owned by someone else.
		response.NotFoundMsg(c, "link not found")
	default:
		response.InternalError(c, err)
	}
}
