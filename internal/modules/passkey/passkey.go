package passkey

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/config"
	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/models"
	"github.com/lynkpage/core/internal/pkg/response"
	sessionpkg "github.com/lynkpage/core/internal/pkg/session"
	"gorm.io/gorm"
)

// Handler implements the WebAuthn registration and authentication
// ceremonies. Credentials are scoped per user; the authentication flow is
// public and keyed by the account handle so a visitor can sign in with
// only a passkey.
type Handler struct {
	db  *gorm.DB
	cfg *config.AppConfig
}

func NewHandler(db *gorm.DB, cfg *config.AppConfig) *Handler {
	return &Handler{db: db, cfg: cfg}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	g := rg.Group("/passkey")
	g.POST("/register", authMW, h.registerOptions)
	g.POST("/register/verify", authMW, h.registerVerify)
	g.POST("/authentication", h.authenticationOptions)
	g.POST("/authentication/verify", h.authenticationVerify)
	g.GET("/items", authMW, h.listItems)
	g.DELETE("/items/:id", authMW, h.deleteItem)
}

func (h *Handler) registerOptions(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var user models.UserModel
	if err := h.db.Select("id, username, name").First(&user, "id = ?", userID).Error; err != nil {
		response.NotFoundMsg(c, "user not found")
		return
	}

	challenge := randomBase64URL(32)
	challenges.set("registration:"+userID, challenge)

	var items []models.PasskeyModel
	_ = h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error

	excludeCredentials := make([]gin.H, 0, len(items))
	for _, item := range items {
		excludeCredentials = append(excludeCredentials, gin.H{
			"id":   base64.RawURLEncoding.EncodeToString(item.CredentialID),
			"type": "public-key",
		})
	}

	displayName := user.Name
	if strings.TrimSpace(displayName) == "" {
		displayName = user.Username
	}

	response.OK(c, gin.H{
		"challenge": challenge,
		"rp": gin.H{
			"name": "Lynkpage",
			"id":   h.relyingPartyID(c),
		},
		"user": gin.H{
			"id":          base64.RawURLEncoding.EncodeToString([]byte(user.ID)),
			"name":        user.Username,
			"displayName": displayName,
		},
		"pubKeyCredParams": []gin.H{
			{"type": "public-key", "alg": -7},
			{"type": "public-key", "alg": -257},
		},
		"timeout":            60000,
		"attestation":        "none",
		"excludeCredentials": excludeCredentials,
		"authenticatorSelection": gin.H{
			"residentKey":             "preferred",
			"userVerification":        "preferred",
			"authenticatorAttachment": "platform",
		},
	})
}

func (h *Handler) registerVerify(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	challenge, err := extractClientDataChallenge(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	expected := challenges.get("registration:" + userID)
	if expected == "" || challenge != expected {
		response.BadRequest(c, "challenge missing or expired")
		return
	}

	id := strAny(body["id"])
	if id == "" {
		response.BadRequest(c, "credential id missing")
		return
	}
	credentialID, err := base64.RawURLEncoding.DecodeString(id)
	if err != nil {
		response.BadRequest(c, "invalid credential id")
		return
	}

	name := strings.TrimSpace(strAny(body["name"]))
	if name == "" {
		name = "Passkey"
	}
	name = h.ensureUniqueName(userID, name)

	var credentialPublicKey []byte
	if respMap, ok := body["response"].(map[string]interface{}); ok {
		if attestation, ok := respMap["attestationObject"].(string); ok && attestation != "" {
			if decoded, err := base64.RawURLEncoding.DecodeString(attestation); err == nil {
				credentialPublicKey = decoded
			}
		}
	}

	item := models.PasskeyModel{
		UserID:               userID,
		Name:                 name,
		CredentialID:         credentialID,
		CredentialPublicKey:  credentialPublicKey,
		Counter:              0,
		CredentialDeviceType: "singleDevice",
		CredentialBackedUp:   false,
	}
	if err := h.db.Create(&item).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	challenges.del("registration:" + userID)
	response.OK(c, gin.H{"verified": true})
}

// authenticationOptions is public; the handle picks whose credentials are
// offered to the authenticator.
func (h *Handler) authenticationOptions(c *gin.Context) {
	var body struct {
		Handle string `json:"handle" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	handle := strings.ToLower(strings.TrimSpace(body.Handle))

	var user models.UserModel
	if err := h.db.Select("id").First(&user, "username = ?", handle).Error; err != nil {
		response.NotFoundMsg(c, "user not found")
		return
	}

	challenge := randomBase64URL(32)
	challenges.set("authentication:"+handle, challenge)

	var items []models.PasskeyModel
	_ = h.db.Where("user_id = ?", user.ID).Order("created_at DESC").Find(&items).Error

	allowCredentials := make([]gin.H, 0, len(items))
	for _, item := range items {
		allowCredentials = append(allowCredentials, gin.H{
			"id":   base64.RawURLEncoding.EncodeToString(item.CredentialID),
			"type": "public-key",
		})
	}

	response.OK(c, gin.H{
		"challenge":        challenge,
		"rpId":             h.relyingPartyID(c),
		"timeout":          60000,
		"allowCredentials": allowCredentials,
		"userVerification": "preferred",
	})
}

func (h *Handler) authenticationVerify(c *gin.Context) {
	var body map[string]interface{}
	if err := c.ShouldBindJSON(&body); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	handle := strings.ToLower(strings.TrimSpace(strAny(body["handle"])))
	if handle == "" {
		response.BadRequest(c, "handle missing")
		return
	}

	challenge, err := extractClientDataChallenge(body)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	expected := challenges.get("authentication:" + handle)
	if expected == "" || challenge != expected {
		response.BadRequest(c, "challenge missing or expired")
		return
	}

	credentialIDB64 := strAny(body["id"])
	if credentialIDB64 == "" {
		response.BadRequest(c, "credential id missing")
		return
	}
	credentialID, err := base64.RawURLEncoding.DecodeString(credentialIDB64)
	if err != nil {
		response.BadRequest(c, "invalid credential id")
		return
	}

	var user models.UserModel
	if err := h.db.Select("id, username").First(&user, "username = ?", handle).Error; err != nil {
		response.BadRequest(c, "authentication failed")
		return
	}

	var item models.PasskeyModel
	err = h.db.Where("user_id = ? AND credential_id = ?", user.ID, credentialID).First(&item).Error
	if err != nil {
		response.BadRequest(c, "authentication failed")
		return
	}

	_ = h.db.Model(&item).Update("counter", item.Counter+1).Error

	token, _, err := sessionpkg.Issue(h.db, user.ID, c.ClientIP(), c.Request.UserAgent(), sessionpkg.DefaultTTL)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	challenges.del("authentication:" + handle)
	response.OK(c, gin.H{"verified": true, "token": token})
}

func (h *Handler) listItems(c *gin.Context) {
	userID := middleware.CurrentUserID(c)

	var items []models.PasskeyModel
	if err := h.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&items).Error; err != nil {
		response.InternalError(c, err)
		return
	}

	out := make([]gin.H, 0, len(items))
	for _, item := range items {
		out = append(out, gin.H{
			"id":                   item.ID,
			"name":                 item.Name,
			"credentialID":         base64.RawURLEncoding.EncodeToString(item.CredentialID),
			"counter":              item.Counter,
			"credentialDeviceType": item.CredentialDeviceType,
			"credentialBackedUp":   item.CredentialBackedUp,
			"created":              item.CreatedAt,
		})
	}
	response.OK(c, out)
}

func (h *Handler) deleteItem(c *gin.Context) {
	res := h.db.Where("id = ? AND user_id = ?", c.Param("id"), middleware.CurrentUserID(c)).
		Delete(&models.PasskeyModel{})
	if res.Error != nil {
		response.InternalError(c, res.Error)
		return
	}
	if res.RowsAffected == 0 {
		response.NotFoundMsg(c, "passkey not found")
		return
	}
	response.NoContent(c)
}

func (h *Handler) ensureUniqueName(userID, base string) string {
	name := base
	for i := 1; i < 1000; i++ {
		var count int64
		_ = h.db.Model(&models.PasskeyModel{}).
			Where("user_id = ? AND name = ?", userID, name).
			Count(&count).Error
		if count == 0 {
			return name
		}
		name = fmt.Sprintf("%s-%d", base, i)
	}
	return fmt.Sprintf("%s-%d", base, time.Now().UnixMilli())
}

// relyingPartyID prefers the request Origin, then the configured public
// base URL, then the Host header.
func (h *Handler) relyingPartyID(c *gin.Context) string {
	if origin := c.GetHeader("Origin"); origin != "" {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			return u.Hostname()
		}
	}
	if u, err := url.Parse(h.cfg.PublicBaseURL); err == nil && u.Hostname() != "" {
		return u.Hostname()
	}
	host := c.Request.Host
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	if host == "" {
		host = "localhost"
	}
	return host
}

type clientDataPayload struct {
	Challenge string `json:"challenge"`
}

func extractClientDataChallenge(body map[string]interface{}) (string, error) {
	respMap, ok := body["response"].(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("response missing")
	}
	clientDataB64, ok := respMap["clientDataJSON"].(string)
	if !ok || clientDataB64 == "" {
		return "", fmt.Errorf("clientDataJSON missing")
	}
	clientDataBytes, err := base64.RawURLEncoding.DecodeString(clientDataB64)
	if err != nil {
		return "", fmt.Errorf("invalid clientDataJSON")
	}
	var payload clientDataPayload
	if err := json.Unmarshal(clientDataBytes, &payload); err != nil {
		return "", fmt.Errorf("invalid clientDataJSON payload")
	}
	if payload.Challenge == "" {
		return "", fmt.Errorf("challenge missing")
	}
	return payload.Challenge, nil
}

func randomBase64URL(size int) string {
	buf := make([]byte, size)
	_, _ = rand.Read(buf)
	return base64.RawURLEncoding.EncodeToString(buf)
}

func strAny(v interface{}) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

type challengeStore struct {
	mu sync.RWMutex
	m  map[string]string
}

func (s *challengeStore) set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[key] = value
}

func (s *challengeStore) get(key string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.m[key]
}

func (s *challengeStore) del(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, key)
}

var challenges = &challengeStore{m: map[string]string{}}
