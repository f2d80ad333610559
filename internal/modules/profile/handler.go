package profile

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/models"
	"github.com/lynkpage/core/internal/pkg/response"
	qrcode "github.com/yeqown/go-qrcode/v2"
	"github.com/yeqown/go-qrcode/writer/standard"
)

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

type Handler struct {
	svc           *Service
	publicBaseURL string
}

func NewHandler(svc *Service, publicBaseURL string) *Handler {
	return &Handler{svc: svc, publicBaseURL: publicBaseURL}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/profile", authMW)

	g.GET("", h.get)
	g.PUT("", h.update)
	g.GET("/qr", h.shareQR)
}

// GET /profile — lazily creates the settings row on first access.
func (h *Handler) get(c *gin.Context) {
	p, err := h.svc.GetOrCreate(middleware.CurrentUserID(c))
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

// PUT /profile
func (h *Handler) update(c *gin.Context) {
	var dto ProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	p, err := h.svc.Update(middleware.CurrentUserID(c), &dto)
	if err != nil {
		h.writeError(c, err)
		return
	}
	response.OK(c, toResponse(p))
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// GET /profile/qr — PNG QR code pointing at the owner's public page.
func (h *Handler) shareQR(c *gin.Context) {
	var owner models.UserModel
	if err := h.svc.db.Select("username").First(&owner, "id = ?", middleware.CurrentUserID(c)).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	opts := []standard.ImageOption{
		standard.WithBuiltinImageEncoder(standard.PNG_FORMAT),
		standard.WithQRWidth(10),
		standard.WithBorderWidth(20),
		standard.WithBgTransparent(),
	}
	if fg := c.Query("fg"); hexColorRe.MatchString(fg) {
		opts = append(opts, standard.WithFgColorRGBHex(fg))
	}
	if c.Query("shape") == "circle" {
		opts = append(opts, standard.WithCircleShape())
	}

	qrc, err := qrcode.New(h.publicBaseURL + "/" + owner.Username)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	var buf bytes.Buffer
	writer := standard.NewWithWriter(nopCloser{&buf}, opts...)
	if err := qrc.Save(writer); err != nil {
		response.InternalError(c, err)
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	if c.Query("dl") == "1" {
		c.Header("Content-Disposition", "attachment; filename=\""+owner.Username+"-qr.png\"")
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, errInvalidProfile):
		response.BadRequest(c, err.Error())
	case errors.Is(err, errUserGone):
		response.NotFound(c)
	default:
		response.InternalError(c, err)
	}
}
