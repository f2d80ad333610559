package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/pkg/response"
	sessionpkg "github.com/lynkpage/core/internal/pkg/session"
	"gorm.io/gorm"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/user")

	g.POST("/register", h.register)
	g.POST("/login", h.login)
	g.GET("/check_logged", middleware.OptionalAuth(h.svc.db), h.checkLogged)

	a := g.Group("", authMW)
	a.GET("", h.me)
	a.PATCH("", h.update)
	a.PATCH("/password", h.changePassword)
	a.POST("/logout", h.logout)
	a.GET("/session", h.listSessions)
	a.DELETE("/session/all", h.deleteAllSessions)
	a.DELETE("/session/:id", h.deleteSession)
}

// POST /user/register
func (h *Handler) register(c *gin.Context) {
	var dto RegisterDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.Register(&dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.Created(c, toResponse(u))
}

// POST /user/login
func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, u, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, errUserNotFound) || errors.Is(err, errWrongPassword) {
			// Same answer for both, no account probing.
			response.Unauthorized(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	setTokenCookie(c, token)
	response.OK(c, gin.H{"token": token, "user": toResponse(u)})
}

// GET /user/check_logged
func (h *Handler) checkLogged(c *gin.Context) {
	response.OK(c, gin.H{"ok": middleware.IsAuthenticated(c)})
}

// GET /user
func (h *Handler) me(c *gin.Context) {
	u, err := h.svc.GetByID(middleware.CurrentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// PATCH /user
func (h *Handler) update(c *gin.Context) {
	var dto UpdateAccountDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	u, err := h.svc.UpdateAccount(middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(u))
}

// PATCH /user/password — revokes every other session afterwards.
func (h *Handler) changePassword(c *gin.Context) {
	var dto ChangePasswordDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	userID := middleware.CurrentUserID(c)
	if err := h.svc.ChangePassword(userID, dto.OldPassword, dto.NewPassword); err != nil {
		h.writeError(c, err)
		return
	}
	_ = sessionpkg.RevokeAllExcept(h.svc.db, userID, middleware.CurrentSessionID(c))
	response.NoContent(c)
}

// POST /user/logout
func (h *Handler) logout(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	if sid := middleware.CurrentSessionID(c); sid != "" {
		_ = sessionpkg.Revoke(h.svc.db, userID, sid)
	}
	c.SetCookie("lynk-token", "", -1, "/", "", false, true)
	response.NoContent(c)
}

// GET /user/session
func (h *Handler) listSessions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)
	sessions, err := sessionpkg.ListActive(h.svc.db, userID)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	currentSID := middleware.CurrentSessionID(c)
	out := make([]sessionResponse, len(sessions))
	for i, s := range sessions {
		out[i] = sessionResponse{
			ID: s.ID, IP: s.IP, UA: s.UA,
			Current:   s.ID == currentSID,
			ExpiresAt: s.ExpiresAt,
			Created:   s.CreatedAt,
			LastSeen:  s.UpdatedAt,
		}
	}
	response.OK(c, out)
}

// DELETE /user/session/:id
func (h *Handler) deleteSession(c *gin.Context) {
	err := sessionpkg.Revoke(h.svc.db, middleware.CurrentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			response.NotFoundMsg(c, "session not found")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

// DELETE /user/session/all — keeps the current session.
func (h *Handler) deleteAllSessions(c *gin.Context) {
	err := sessionpkg.RevokeAllExcept(h.svc.db, middleware.CurrentUserID(c), middleware.CurrentSessionID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func setTokenCookie(c *gin.Context, token string) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie("lynk-token", token, int(sessionpkg.DefaultTTL.Seconds()), "/", "", false, true)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidHandle):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errHandleTaken):
		response.Conflict(c, "username already taken")
	case errors.Is(err, errUserNotFound):
		response.NotFoundMsg(c, "user not found")
	case errors.Is(err, errWrongPassword):
		response.Unauthorized(c)
	case errors.Is(err, errPasswordSameAsOld):
		response.BadRequest(c, "new password must differ from the old one")
	default:
		response.InternalError(c, err)
	}
}
