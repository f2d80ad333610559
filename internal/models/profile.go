package models

// ProfileTheme selects the public page color scheme.
type ProfileTheme string

const (
	ThemeLight  ProfileTheme = "light"
	ThemeDark   ProfileTheme = "dark"
	ThemeSystem ProfileTheme = "system"
)

// ValidProfileTheme reports whether t is one of the known themes.
func ValidProfileTheme(t ProfileTheme) bool {
	switch t {
	case ThemeLight, ThemeDark, ThemeSystem:
		return true
	}
	return false
}

// ProfileSettingsModel holds per-user public page settings. Created lazily on
// the owner's first authenticated settings access, never on public reads.
type ProfileSettingsModel struct {
	Base
	UserID       string       `json:"-"             gorm:"uniqueIndex;not null"`
	DisplayName  string       `json:"display_name"  gorm:"not null"`
	Bio          string       `json:"bio"           gorm:"type:text"`
	Theme        ProfileTheme `json:"theme"         gorm:"not null;default:'dark'"`
	CustomStyles string       `json:"custom_styles" gorm:"type:text"`
}

func (ProfileSettingsModel) TableName() string { return "profile_settings" }
