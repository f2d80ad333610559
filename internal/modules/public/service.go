package public

import (
	"errors"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/lynkpage/core/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	handleCacheSize = 1024
	handleCacheTTL  = time.Minute
)

// Profile is the public rendering of an owner's page: display data plus the
// currently visible links in display order.
type Profile struct {
	Handle      string              `json:"handle"`
	DisplayName string              `json:"display_name"`
	Bio         string              `json:"bio,omitempty"`
	Avatar      string              `json:"avatar,omitempty"`
	Theme       models.ProfileTheme `json:"theme"`
	Links       []PublicLink        `json:"links"`
}

// PublicLink is the subset of link fields exposed on the public page.
type PublicLink struct {
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	URL         string              `json:"url"`
	Icon        string              `json:"icon,omitempty"`
	Description string              `json:"description,omitempty"`
	Category    models.LinkCategory `json:"category,omitempty"`
}

// Service resolves public handles to profiles. Handle lookups are memoized
// in an expiring LRU; link and profile data is read fresh so visibility
// windows stay accurate within the HTTP cache TTL.
type Service struct {
	db      *gorm.DB
	handles *expirable.LRU[string, string]
}

func NewService(db *gorm.DB) *Service {
	return &Service{
		db:      db,
		handles: expirable.NewLRU[string, string](handleCacheSize, nil, handleCacheTTL),
	}
}

// Resolve looks up a handle case-insensitively and composes the public
// profile, filtering links by visibility at the given instant. Returns
// (nil, nil) when the handle does not exist; the caller decides how to
// surface that.
func (s *Service) Resolve(handle string, now time.Time) (*Profile, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))
	if handle == "" {
		return nil, nil
	}

	owner, err := s.ownerByHandle(handle)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, nil
	}

	p := &Profile{
		Handle:      owner.Username,
		DisplayName: owner.Name,
		Avatar:      owner.Avatar,
		Theme:       models.ThemeDark,
	}
	if strings.TrimSpace(p.DisplayName) == "" {
		p.DisplayName = owner.Username
	}

	// Profile rows are created lazily by the owner; public access falls
	// back to account data when none exists yet.
	var settings models.ProfileSettingsModel
	err = s.db.Where("user_id = ?", owner.ID).First(&settings).Error
	switch {
	case err == nil:
		p.DisplayName = settings.DisplayName
		p.Bio = settings.Bio
		p.Theme = settings.Theme
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	var links []models.LinkModel
	if err := s.db.Where("user_id = ?", owner.ID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Find(&links).Error; err != nil {
		return nil, err
	}

	p.Links = make([]PublicLink, 0, len(links))
	for i := range links {
		l := &links[i]
		if !l.VisibleAt(now) {
			continue
		}
		p.Links = append(p.Links, PublicLink{
			Slug: l.Slug, Title: l.Title, URL: l.URL,
			Icon: l.Icon, Description: l.Description, Category: l.Category,
		})
	}
	return p, nil
}

// ResolveLink finds a visible link by handle and slug for redirecting.
// Returns (nil, nil) when the handle, the slug, or the visibility window
// does not match.
func (s *Service) ResolveLink(handle, slug string, now time.Time) (*models.LinkModel, error) {
	handle = strings.ToLower(strings.TrimSpace(handle))

	owner, err := s.ownerByHandle(handle)
	if err != nil || owner == nil {
		return nil, err
	}

	var l models.LinkModel
	if err := s.db.Where("user_id = ? AND slug = ?", owner.ID, slug).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !l.VisibleAt(now) {
		return nil, nil
	}
	return &l, nil
}

func (s *Service) ownerByHandle(handle string) (*models.UserModel, error) {
	if id, ok := s.handles.Get(handle); ok {
		var owner models.UserModel
		if err := s.db.Select("id, username, name, avatar").First(&owner, "id = ?", id).Error; err == nil {
			return &owner, nil
		}
		s.handles.Remove(handle)
	}

	var owner models.UserModel
	err := s.db.Select("id, username, name, avatar").
		Where("username = ?", handle).First(&owner).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	s.handles.Add(handle, owner.ID)
	return &owner, nil
}
