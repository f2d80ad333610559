package models

import "time"

// UserModel represents an account. Username doubles as the public handle and
// is stored lowercase.
type UserModel struct {
	Base
	Username      string         `json:"username"        gorm:"uniqueIndex;not null"`
	Name          string         `json:"name"`
	Email         string         `json:"email"           gorm:"index"`
	Avatar        string         `json:"avatar"`
	Password      string         `json:"-"               gorm:"not null"`
	LastLoginTime *time.Time     `json:"last_login_time"`
	LastLoginIP   string         `json:"last_login_ip"`
	OAuth         []OAuthAccount `json:"oauth,omitempty" gorm:"foreignKey:UserID"`
}

func (UserModel) TableName() string { return "users" }

// UserSession tracks signed-in JWT sessions for device/session management.
type UserSession struct {
	Base
	UserID    string     `json:"user_id"    gorm:"index;not null"`
	IP        string     `json:"ip"`
	UA        string     `json:"ua"         gorm:"type:text"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	RevokedAt *time.Time `json:"revoked_at" gorm:"index"`
}

func (UserSession) TableName() string { return "user_sessions" }

// OAuthAccount links a social identity (github, google) to a user.
type OAuthAccount struct {
	Base
	UserID      string     `json:"-"            gorm:"index;not null"`
	Provider    string     `json:"provider"     gorm:"index:idx_provider_uid,unique;not null"`
	ProviderUID string     `json:"provider_uid" gorm:"index:idx_provider_uid,unique;not null"`
	AccessToken string     `json:"-"            gorm:"type:text"`
	LastUsed    *time.Time `json:"last_used"`
}

func (OAuthAccount) TableName() string { return "oauth_accounts" }

// PasskeyModel stores WebAuthn/passkey credentials, scoped per user.
type PasskeyModel struct {
	Base
	UserID               string `json:"-"                       gorm:"not null;index:idx_user_passkey_name,unique"`
	Name                 string `json:"name"                    gorm:"index:idx_user_passkey_name,unique"`
	CredentialID         []byte `json:"-"                       gorm:"type:blob"`
	CredentialPublicKey  []byte `json:"-"                       gorm:"type:blob"`
	Counter              uint32 `json:"counter"`
	CredentialDeviceType string `json:"credential_device_type"`
	CredentialBackedUp   bool   `json:"credential_backed_up"`
}

func (PasskeyModel) TableName() string { return "passkeys" }
