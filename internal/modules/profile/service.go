package profile

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lynkpage/core/internal/middleware"
	"github.com/lynkpage/core/internal/models"
	pkgredis "github.com/lynkpage/core/internal/pkg/redis"
	"gorm.io/gorm"
)

const (
	maxDisplayNameLen = 100
	maxBioLen         = 500
)

type Service struct {
	db    *gorm.DB
	cache *pkgredis.Client
}

func NewService(db *gorm.DB, cache *pkgredis.Client) *Service {
	return &Service{db: db, cache: cache}
}

// GetOrCreate returns the owner's profile settings, creating the row with
// defaults on first access. Only authenticated settings access creates rows;
// public reads never do.
func (s *Service) GetOrCreate(ownerID string) (*models.ProfileSettingsModel, error) {
	var p models.ProfileSettingsModel
	err := s.db.Where("user_id = ?", ownerID).First(&p).Error
	if err == nil {
		return &p, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var owner models.UserModel
	if err := s.db.Select("id, username, name").First(&owner, "id = ?", ownerID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserGone
		}
		return nil, err
	}

	displayName := owner.Name
	if strings.TrimSpace(displayName) == "" {
		displayName = owner.Username
	}
	p = models.ProfileSettingsModel{
		UserID:      ownerID,
		DisplayName: displayName,
		Theme:       models.ThemeDark,
	}
	if err := s.db.Create(&p).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost a create race with a concurrent first visit.
			err = s.db.Where("user_id = ?", ownerID).First(&p).Error
		}
		if err != nil {
			return nil, err
		}
	}
	return &p, nil
}

// Update applies validated settings. The row must already exist; settings
// pages call GetOrCreate first.
func (s *Service) Update(ownerID string, dto *ProfileDTO) (*models.ProfileSettingsModel, error) {
	if err := validateDTO(dto); err != nil {
		return nil, err
	}

	p, err := s.GetOrCreate(ownerID)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"display_name":  dto.DisplayName,
		"bio":           dto.Bio,
		"theme":         dto.Theme,
		"custom_styles": dto.CustomStyles,
	}
	if err := s.db.Model(p).Updates(updates).Error; err != nil {
		return nil, err
	}

	s.invalidateOwner(ownerID)
	return p, nil
}

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

func validateDTO(dto *ProfileDTO) error {
	name := strings.TrimSpace(dto.DisplayName)
	switch {
	case name == "":
		return fmt.Errorf("%w: display name is required", errInvalidProfile)
	case len(name) > maxDisplayNameLen:
		return fmt.Errorf("%w: display name must be %d characters or less", errInvalidProfile, maxDisplayNameLen)
	}
	dto.DisplayName = name

	if len(dto.Bio) > maxBioLen {
		return fmt.Errorf("%w: bio must be %d characters or less", errInvalidProfile, maxBioLen)
	}
	if !models.ValidProfileTheme(dto.Theme) {
		return fmt.Errorf("%w: unknown theme %q", errInvalidProfile, dto.Theme)
	}
	return nil
}
