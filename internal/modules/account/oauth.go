package account

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lynkpage/core/internal/config"
	"github.com/lynkpage/core/internal/models"
	"github.com/lynkpage/core/internal/pkg/response"
	sessionpkg "github.com/lynkpage/core/internal/pkg/session"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	oauthgithub "golang.org/x/oauth2/github"
	oauthgoogle "golang.org/x/oauth2/google"
	"gorm.io/gorm"
)

const (
	oauthStateCookie = "lynk-oauth-state"
	oauthStateTTL    = 20 * time.Minute
)

// socialIdentity is the provider-agnostic shape both userinfo endpoints
// are reduced to.
type socialIdentity struct {
	Provider string
	UID      string
	Login    string
	Name     string
	Email    string
	Avatar   string
}

// OAuthHandler implements social login (github, google) on top of the
// regular account service: identities map to oauth_accounts rows and
// first-time logins create a local user.
type OAuthHandler struct {
	svc       *Service
	cfg       *config.AppConfig
	log       *zap.Logger
	providers map[string]*oauth2.Config
}

func NewOAuthHandler(svc *Service, cfg *config.AppConfig, log *zap.Logger) *OAuthHandler {
	h := &OAuthHandler{
		svc:       svc,
		cfg:       cfg,
		log:       log,
		providers: map[string]*oauth2.Config{},
	}
	if cfg.OAuth.GitHub.ClientID != "" {
		h.providers["github"] = &oauth2.Config{
			ClientID:     cfg.OAuth.GitHub.ClientID,
			ClientSecret: cfg.OAuth.GitHub.ClientSecret,
			RedirectURL:  cfg.PublicBaseURL + "/api/v1/auth/github/callback",
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     oauthgithub.Endpoint,
		}
	}
	if cfg.OAuth.Google.ClientID != "" {
		h.providers["google"] = &oauth2.Config{
			ClientID:     cfg.OAuth.Google.ClientID,
			ClientSecret: cfg.OAuth.Google.ClientSecret,
			RedirectURL:  cfg.PublicBaseURL + "/api/v1/auth/google/callback",
			Scopes: []string{
				"https://www.googleapis.com/auth/userinfo.email",
				"https://www.googleapis.com/auth/userinfo.profile",
			},
			Endpoint: oauthgoogle.Endpoint,
		}
	}
	return h
}

func (h *OAuthHandler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group("/auth")
	g.GET("/providers", h.listProviders)
	g.GET("/:provider", h.login)
	g.GET("/:provider/callback", h.callback)
}

// GET /auth/providers
func (h *OAuthHandler) listProviders(c *gin.Context) {
	names := make([]string, 0, len(h.providers))
	for name := range h.providers {
		names = append(names, name)
	}
	response.OK(c, gin.H{"providers": names})
}

// GET /auth/:provider
func (h *OAuthHandler) login(c *gin.Context) {
	conf, ok := h.providers[c.Param("provider")]
	if !ok {
		response.NotFoundMsg(c, "unknown oauth provider")
		return
	}
	state := h.issueStateCookie(c)
	c.Redirect(http.StatusTemporaryRedirect, conf.AuthCodeURL(state))
}

// GET /auth/:provider/callback
func (h *OAuthHandler) callback(c *gin.Context) {
	provider := c.Param("provider")
	conf, ok := h.providers[provider]
	if !ok {
		response.NotFoundMsg(c, "unknown oauth provider")
		return
	}

	state, err := c.Cookie(oauthStateCookie)
	if err != nil || state == "" || c.Query("state") != state {
		response.BadRequest(c, "oauth state mismatch")
		return
	}
	c.SetCookie(oauthStateCookie, "", -1, "/", "", !h.cfg.IsDev(), true)

	token, err := conf.Exchange(c.Request.Context(), c.Query("code"))
	if err != nil {
		h.log.Warn("oauth code exchange failed", zap.String("provider", provider), zap.Error(err))
		response.BadRequest(c, "oauth code exchange failed")
		return
	}

	ident, err := h.fetchIdentity(c.Request.Context(), provider, conf, token)
	if err != nil {
		h.log.Warn("oauth userinfo fetch failed", zap.String("provider", provider), zap.Error(err))
		response.InternalError(c, err)
		return
	}

	user, err := h.resolveUser(ident, token.AccessToken)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	now := time.Now()
	ip := c.ClientIP()
	_ = h.svc.db.Model(user).Updates(map[string]any{
		"last_login_time": &now,
		"last_login_ip":   ip,
	}).Error

	signed, _, err := sessionpkg.Issue(h.svc.db, user.ID, ip, c.Request.UserAgent(), sessionpkg.DefaultTTL)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	setTokenCookie(c, signed)
	c.Redirect(http.StatusTemporaryRedirect, h.cfg.PublicBaseURL+"/")
}

// resolveUser finds the linked user for the identity, or creates a fresh
// account on first login.
func (h *OAuthHandler) resolveUser(ident *socialIdentity, accessToken string) (*models.UserModel, error) {
	var acct models.OAuthAccount
	err := h.svc.db.Where("provider = ? AND provider_uid = ?", ident.Provider, ident.UID).
		First(&acct).Error
	if err == nil {
		now := time.Now()
		_ = h.svc.db.Model(&acct).Updates(map[string]any{
			"access_token": accessToken,
			"last_used":    &now,
		}).Error
		var user models.UserModel
		if err := h.svc.db.First(&user, "id = ?", acct.UserID).Error; err != nil {
			return nil, err
		}
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	user, err := h.createFromIdentity(ident)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	acct = models.OAuthAccount{
		UserID:      user.ID,
		Provider:    ident.Provider,
		ProviderUID: ident.UID,
		AccessToken: accessToken,
		LastUsed:    &now,
	}
	if err := h.svc.db.Create(&acct).Error; err != nil {
		return nil, err
	}
	return user, nil
}

func (h *OAuthHandler) createFromIdentity(ident *socialIdentity) (*models.UserModel, error) {
	base := handleFromIdentity(ident)
	// Random password, the account is only reachable via social login
	// until the owner sets one.
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	hashed, err := bcrypt.GenerateFromPassword(raw, bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < 5; attempt++ {
		handle := base
		if attempt > 0 {
			handle = fmt.Sprintf("%s-%d", base, attempt)
		}
		user := &models.UserModel{
			Username: handle,
			Name:     ident.Name,
			Email:    ident.Email,
			Avatar:   ident.Avatar,
			Password: string(hashed),
		}
		err := h.svc.db.Create(user).Error
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("could not allocate handle for %s user %s", ident.Provider, ident.UID)
}

// handleFromIdentity derives a valid lowercase handle from the provider
// profile, avoiding reserved names.
func handleFromIdentity(ident *socialIdentity) string {
	candidate := ident.Login
	if candidate == "" && ident.Email != "" {
		candidate = strings.SplitN(ident.Email, "@", 2)[0]
	}
	if candidate == "" {
		candidate = ident.Provider + "-user"
	}
	candidate = strings.ToLower(candidate)

	var b strings.Builder
	for _, r := range candidate {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	cleaned := strings.Trim(b.String(), "-")
	if len(cleaned) < 3 {
		cleaned = ident.Provider + "-" + cleaned
		cleaned = strings.Trim(cleaned, "-")
	}
	if len(cleaned) > 30 {
		cleaned = cleaned[:30]
	}
	if reservedHandles[cleaned] {
		cleaned = cleaned + "-1"
	}
	return cleaned
}

func (h *OAuthHandler) fetchIdentity(ctx context.Context, provider string, conf *oauth2.Config, token *oauth2.Token) (*socialIdentity, error) {
	client := conf.Client(ctx, token)
	switch provider {
	case "github":
		return fetchGitHubIdentity(client)
	case "google":
		return fetchGoogleIdentity(client)
	default:
		return nil, fmt.Errorf("unknown oauth provider %q", provider)
	}
}

func fetchGitHubIdentity(client *http.Client) (*socialIdentity, error) {
	var payload struct {
		ID        int64  `json:"id"`
		Login     string `json:"login"`
		Name      string `json:"name"`
		Email     string `json:"email"`
		AvatarURL string `json:"avatar_url"`
	}
	if err := fetchJSON(client, "https://api.github.com/user", &payload); err != nil {
		return nil, err
	}

	email := payload.Email
	if email == "" {
		// The profile email can be private, the emails endpoint still
		// lists the verified primary one.
		var emails []struct {
			Email    string `json:"email"`
			Primary  bool   `json:"primary"`
			Verified bool   `json:"verified"`
		}
		if err := fetchJSON(client, "https://api.github.com/user/emails", &emails); err == nil {
			for _, e := range emails {
				if e.Primary && e.Verified {
					email = e.Email
					break
				}
			}
		}
	}

	name := payload.Name
	if name == "" {
		name = payload.Login
	}
	return &socialIdentity{
		Provider: "github",
		UID:      fmt.Sprintf("%d", payload.ID),
		Login:    payload.Login,
		Name:     name,
		Email:    email,
		Avatar:   payload.AvatarURL,
	}, nil
}

func fetchGoogleIdentity(client *http.Client) (*socialIdentity, error) {
	var payload struct {
		ID      string `json:"id"`
		Email   string `json:"email"`
		Name    string `json:"name"`
		Picture string `json:"picture"`
	}
	if err := fetchJSON(client, "https://www.googleapis.com/oauth2/v2/userinfo", &payload); err != nil {
		return nil, err
	}
	return &socialIdentity{
		Provider: "google",
		UID:      payload.ID,
		Name:     payload.Name,
		Email:    payload.Email,
		Avatar:   payload.Picture,
	}, nil
}

func fetchJSON(client *http.Client, url string, out any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", url, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (h *OAuthHandler) issueStateCookie(c *gin.Context) string {
	raw := make([]byte, 16)
	_, _ = rand.Read(raw)
	state := base64.URLEncoding.EncodeToString(raw)
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(oauthStateCookie, state, int(oauthStateTTL.Seconds()), "/", "", !h.cfg.IsDev(), true)
	return state
}
