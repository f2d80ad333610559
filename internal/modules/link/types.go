package link

import (
	"errors"
	"time"

	"github.com/lynkpage/core/internal/models"
)

// LinkDTO carries the full editable field set; create and update both take
// the whole form, matching the edit UI.
type LinkDTO struct {
	Slug        string              `json:"slug"        binding:"required"`
	Title       string              `json:"title"       binding:"required"`
	URL         string              `json:"url"         binding:"required,url"`
	Icon        string              `json:"icon"`
	Description string              `json:"description"`
	Category    models.LinkCategory `json:"category"`
	IsActive    *bool               `json:"is_active"`
	StartDate   *time.Time          `json:"start_date"`
	EndDate     *time.Time          `json:"end_date"`
}

type ReorderDTO struct {
	IDs []string `json:"ids" binding:"required,min=1"`
}

type linkResponse struct {
	ID          string              `json:"id"`
	Slug        string              `json:"slug"`
	Title       string              `json:"title"`
	URL         string              `json:"url"`
	Icon        string              `json:"icon,omitempty"`
	Description string              `json:"description,omitempty"`
	Category    models.LinkCategory `json:"category,omitempty"`
	Order       int                 `json:"order"`
	IsActive    bool                `json:"is_active"`
	StartDate   *time.Time          `json:"start_date,omitempty"`
	EndDate     *time.Time          `json:"end_date,omitempty"`
	Created     time.Time           `json:"created"`
	Modified    time.Time           `json:"modified"`
}

var (
	// errInvalidLink wraps field validation failures; the message after the
	// colon is safe to show to the user.
	errInvalidLink = errors.New("invalid link")
	errSlugTaken   = errors.New("slug already in use")
	errNotFound    = errors.New("link not found")
)

func toResponse(l *models.LinkModel) linkResponse {
	return linkResponse{
		ID: l.ID, Slug: l.Slug, Title: l.Title, URL: l.URL,
		Icon: l.Icon, Description: l.Description, Category: l.Category,
		Order: l.Order, IsActive: l.IsActive,
		StartDate: l.StartDate, EndDate: l.EndDate,
		Created: l.CreatedAt, Modified: l.UpdatedAt,
	}
}
