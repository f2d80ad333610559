package account

import (
	"errors"
	"time"

	"github.com/lynkpage/core/internal/models"
)

type RegisterDTO struct {
	Username string `json:"username" binding:"required,min=3,max=30"`
	Password string `json:"password" binding:"required,min=8"`
	Email    string `json:"email"    binding:"omitempty,email"`
	Name     string `json:"name"`
}

type LoginDTO struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type UpdateAccountDTO struct {
	Name   *string `json:"name"`
	Email  *string `json:"email"`
	Avatar *string `json:"avatar"`
}

type ChangePasswordDTO struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

type accountResponse struct {
	ID            string     `json:"id"`
	Username      string     `json:"username"`
	Name          string     `json:"name"`
	Email         string     `json:"email,omitempty"`
	Avatar        string     `json:"avatar,omitempty"`
	LastLoginTime *time.Time `json:"last_login_time,omitempty"`
	Created       time.Time  `json:"created"`
}

type sessionResponse struct {
	ID        string    `json:"id"`
	IP        string    `json:"ip"`
	UA        string    `json:"ua"`
	Current   bool      `json:"current"`
	ExpiresAt time.Time `json:"expires_at"`
	Created   time.Time `json:"created"`
	LastSeen  time.Time `json:"last_seen"`
}

var (
	errInvalidHandle     = errors.New("invalid username")
	errHandleTaken       = errors.New("username already taken")
	errUserNotFound      = errors.New("user not found")
	errWrongPassword     = errors.New("wrong password")
	errPasswordSameAsOld = errors.New("new password equals the old one")
)

func toResponse(u *models.UserModel) accountResponse {
	return accountResponse{
		ID: u.ID, Username: u.Username, Name: u.Name,
		Email: u.Email, Avatar: u.Avatar,
		LastLoginTime: u.LastLoginTime, Created: u.CreatedAt,
	}
}
