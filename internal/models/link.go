package models

import "time"

// LinkCategory groups links on the public page.
type LinkCategory string

const (
	CategorySocial   LinkCategory = "social"
	CategoryProjects LinkCategory = "projects"
	CategoryContact  LinkCategory = "contact"
	CategoryOther    LinkCategory = "other"
)

// ValidLinkCategory reports whether c is one of the known categories.
func ValidLinkCategory(c LinkCategory) bool {
	switch c {
	case CategorySocial, CategoryProjects, CategoryContact, CategoryOther:
		return true
	}
	return false
}

// LinkModel is one entry in a user's link collection. Slug is unique per
// owner; the composite index is the source of truth for conflicts under
// concurrent writers. Order is the zero-based display position.
type LinkModel struct {
	Base
	UserID      string       `json:"-"           gorm:"not null;index;index:idx_user_slug,unique"`
	Slug        string       `json:"slug"        gorm:"not null;index:idx_user_slug,unique"`
	Title       string       `json:"title"       gorm:"not null"`
	URL         string       `json:"url"         gorm:"not null;type:text"`
	Icon        string       `json:"icon"`
	Description string       `json:"description"`
	Category    LinkCategory `json:"category"`
	Order       int          `json:"order"       gorm:"not null;default:0;index"`
	IsActive    bool         `json:"is_active"   gorm:"not null"`
	StartDate   *time.Time   `json:"start_date"`
	EndDate     *time.Time   `json:"end_date"`
}

func (LinkModel) TableName() string { return "links" }

// VisibleAt reports whether the link should be shown publicly at the given
// instant. Management views ignore this and show everything.
func (l *LinkModel) VisibleAt(now time.Time) bool {
	if !l.IsActive {
		return false
	}
	if l.StartDate != nil && now.Before(*l.StartDate) {
		return false
	}
	if l.EndDate != nil && now.After(*l.EndDate) {
		return false
	}
	return true
}
