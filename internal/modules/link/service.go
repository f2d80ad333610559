package link

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/models"
	pkgredis "github.com/lynkpage/core/internal/pkg/redis"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	maxSlugLen        = 50
	maxTitleLen       = 100
	maxDescriptionLen = 200
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// Service maintains per-owner link collections. Every operation takes the
// owner id explicitly; a link belonging to someone else is indistinguishable
// from a missing one.
type Service struct {
	db    *gorm.DB
	cache *pkgredis.Client
}

// NewService creates a link service. cache may be nil, in which case
// mutations skip response-cache invalidation.
func NewService(db *gorm.DB, cache *pkgredis.Client) *Service {
	return &Service{db: db, cache: cache}
}

// Create validates the fields, appends the link at the end of the owner's
// collection and returns it.
func (s *Service) Create(ownerID string, dto *LinkDTO) (*models.LinkModel, error) {
	if err := validateDTO(dto); err != nil {
		return nil, err
	}

	// Fast-path conflict check. The unique (user_id, slug) index catches
	// the race between concurrent creates.
	taken, err := s.slugTaken(ownerID, dto.Slug, "")
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, errSlugTaken
	}

	order, err := s.nextOrder(ownerID)
	if err != nil {
		return nil, err
	}

	l := models.LinkModel{
		UserID:      ownerID,
		Slug:        dto.Slug,
		Title:       dto.Title,
		URL:         dto.URL,
		Icon:        dto.Icon,
		Description: dto.Description,
		Category:    dto.Category,
		Order:       order,
		IsActive:    dto.IsActive == nil || *dto.IsActive,
		StartDate:   dto.StartDate,
		EndDate:     dto.EndDate,
	}
	if err := s.db.Create(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errSlugTaken
		}
		return nil, err
	}

	s.invalidateOwner(ownerID)
	return &l, nil
}

// Update re-validates and applies every mutable field except order.
func (s *Service) Update(ownerID, id string, dto *LinkDTO) (*models.LinkModel, error) {
	if err := validateDTO(dto); err != nil {
		return nil, err
	}

	existing, err := s.GetByID(ownerID, id)
	if err != nil {
		return nil, err
	}

	if existing.Slug != dto.Slug {
		taken, err := s.slugTaken(ownerID, dto.Slug, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, errSlugTaken
		}
	}

	updates := map[string]interface{}{
		"slug":        dto.Slug,
		"title":       dto.Title,
		"url":         dto.URL,
		"icon":        dto.Icon,
		"description": dto.Description,
		"category":    dto.Category,
		"is_active":   dto.IsActive == nil || *dto.IsActive,
		"start_date":  dto.StartDate,
		"end_date":    dto.EndDate,
	}
	if err := s.db.Model(existing).Updates(updates).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errSlugTaken
		}
		return nil, err
	}

	s.invalidateOwner(ownerID)
	return existing, nil
}

// Delete removes the link and its click events. Remaining order values are
// left untouched; creation tolerates the gap.
func (s *Service) Delete(ownerID, id string) error {
	res := s.db.Where("id = ? AND user_id = ?", id, ownerID).Delete(&models.LinkModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errNotFound
	}
	// FK cascade enforcement varies by driver and connection settings, so
	// click events are deleted explicitly.
	if err := s.db.Where("link_id = ?", id).Delete(&models.ClickEventModel{}).Error; err != nil {
		return err
	}

	s.invalidateOwner(ownerID)
	return nil
}

// ToggleActive flips the activation flag only.
func (s *Service) ToggleActive(ownerID, id string) (*models.LinkModel, error) {
	l, err := s.GetByID(ownerID, id)
	if err != nil {
		return nil, err
	}
	next := !l.IsActive
	if err := s.db.Model(l).Update("is_active", next).Error; err != nil {
		return nil, err
	}
	l.IsActive = next

	s.invalidateOwner(ownerID)
	return l, nil
}

// List returns the owner's full collection ascending by order, scheduled and
// expired links included.
func (s *Service) List(ownerID string) ([]models.LinkModel, error) {
	var links []models.LinkModel
	err := s.db.Where("user_id = ?", ownerID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}}).
		Find(&links).Error
	return links, err
}

func (s *Service) GetByID(ownerID, id string) (*models.LinkModel, error) {
	var l models.LinkModel
	if err := s.db.Where("id = ? AND user_id = ?", id, ownerID).First(&l).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errNotFound
		}
		return nil, err
	}
	return &l, nil
}

// Reorder assigns order = position for each id. Ids the owner does not hold
// match zero rows and are skipped silently; omitted ids keep their old
// value. Updates target disjoint rows, so they run concurrently.
func (s *Service) Reorder(ownerID string, ids []string) error {
	g, ctx := errgroup.WithContext(context.Background())
	for idx, id := range ids {
		g.Go(func() error {
			return s.db.WithContext(ctx).
				Model(&models.LinkModel{}).
				Where("id = ? AND user_id = ?", id, ownerID).
				Update("order", idx).Error
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	s.invalidateOwner(ownerID)
	return nil
}

func (s *Service) slugTaken(ownerID, slug, excludeID string) (bool, error) {
	q := s.db.Model(&models.LinkModel{}).Where("user_id = ? AND slug = ?", ownerID, slug)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// nextOrder returns max(order)+1 for the owner, or 0 for an empty
// collection. Gaps from deletions are preserved.
func (s *Service) nextOrder(ownerID string) (int, error) {
	var top models.LinkModel
	err := s.db.Where("user_id = ?", ownerID).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "order"}, Desc: true}).
		First(&top).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return top.Order + 1, nil
}

// invalidateOwner drops cached public renderings of the owner's page.
// Notify-only: failures are ignored, the cache TTL bounds staleness.
func (s *Service) invalidateOwner(ownerID string) {
	if s.cache == nil {
		return
	}
	db, cache := s.db, s.cache
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		var owner models.UserModel
		if err := db.Select("username").First(&owner, "id = ?", ownerID).Error; err != nil {
			return
		}
		_ = middleware.InvalidatePaths(ctx, cache.Raw(),
			"/"+owner.Username,
			"/api/v1/pages/"+owner.Username,
		)
	}()
}

func validateDTO(dto *LinkDTO) error {
	slug := strings.TrimSpace(dto.Slug)
	switch {
	case slug == "":
		return fmt.Errorf("%w: slug is required", errInvalidLink)
	case len(slug) > maxSlugLen:
		return fmt.Errorf("%w: slug must be %d characters or less", errInvalidLink, maxSlugLen)
	case !slugPattern.MatchString(slug):
		return fmt.Errorf("%w: slug may only contain lowercase letters, numbers and hyphens", errInvalidLink)
	}
	dto.Slug = slug

	title := strings.TrimSpace(dto.Title)
	switch {
	case title == "":
		return fmt.Errorf("%w: title is required", errInvalidLink)
	case len(title) > maxTitleLen:
		return fmt.Errorf("%w: title must be %d characters or less", errInvalidLink, maxTitleLen)
	}
	dto.Title = title

	if u, err := url.Parse(strings.TrimSpace(dto.URL)); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: url must be a valid absolute URL", errInvalidLink)
	}

	if len(dto.Description) > maxDescriptionLen {
		return fmt.Errorf("%w: description must be %d characters or less", errInvalidLink, maxDescriptionLen)
	}
	if dto.Category != "" && !models.ValidLinkCategory(dto.Category) {
		return fmt.Errorf("%w: unknown category %q", errInvalidLink, dto.Category)
	}
	if dto.StartDate != nil && dto.EndDate != nil && !dto.EndDate.After(*dto.StartDate) {
		return fmt.Errorf("%w: end date must be after start date", errInvalidLink)
	}
	return nil
}
