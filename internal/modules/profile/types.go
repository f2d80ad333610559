package profile

import (
	"errors"
	"time"

	"github.com/lynkpage/core/internal/models"
)

type ProfileDTO struct {
	DisplayName  string              `json:"display_name" binding:"required"`
	Bio          string              `json:"bio"`
	Theme        models.ProfileTheme `json:"theme"        binding:"required"`
	CustomStyles string              `json:"custom_styles"`
}

type profileResponse struct {
	DisplayName  string              `json:"display_name"`
	Bio          string              `json:"bio,omitempty"`
	Theme        models.ProfileTheme `json:"theme"`
	CustomStyles string              `json:"custom_styles,omitempty"`
	Created      time.Time           `json:"created"`
	Modified     time.Time           `json:"modified"`
}

var (
	errInvalidProfile = errors.New("invalid profile")
	errUserGone       = errors.New("account not found")
)

func toResponse(p *models.ProfileSettingsModel) profileResponse {
	return profileResponse{
		DisplayName: p.DisplayName, Bio: p.Bio, Theme: p.Theme,
		CustomStyles: p.CustomStyles,
		Created:      p.CreatedAt, Modified: p.UpdatedAt,
	}
}
