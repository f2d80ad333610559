package account

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lynkpage/core/internal/models"
	sessionpkg "github.com/lynkpage/core/internal/pkg/session"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var handlePattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reservedHandles are path segments the router claims for itself; a user
// with one of these names would shadow them.
var reservedHandles = map[string]bool{
	"api":    true,
	"pages":  true,
	"auth":   true,
	"assets": true,
	"static": true,
	"health": true,
}

type Service struct{ db *gorm.DB }

func NewService(db *gorm.DB) *Service { return &Service{db: db} }

// Register creates an account. The username becomes the public handle and
// is normalized to lowercase before the uniqueness check.
func (s *Service) Register(dto *RegisterDTO) (*models.UserModel, error) {
	handle := strings.ToLower(strings.TrimSpace(dto.Username))
	if err := validateHandle(handle); err != nil {
		return nil, err
	}

	var count int64
	if err := s.db.Model(&models.UserModel{}).Where("username = ?", handle).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, errHandleTaken
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(dto.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(dto.Name)
	if name == "" {
		name = handle
	}
	u := models.UserModel{
		Username: handle,
		Name:     name,
		Email:    strings.TrimSpace(dto.Email),
		Password: string(hash),
	}
	if err := s.db.Create(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, errHandleTaken
		}
		return nil, err
	}
	return &u, nil
}

// Login verifies credentials and issues a session-bound JWT.
func (s *Service) Login(username, password, ip, ua string) (string, *models.UserModel, error) {
	handle := strings.ToLower(strings.TrimSpace(username))

	var u models.UserModel
	if err := s.db.Where("username = ?", handle).First(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			time.Sleep(3 * time.Second)
			return "", nil, errUserNotFound
		}
		return "", nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password)); err != nil {
		time.Sleep(3 * time.Second)
		return "", nil, errWrongPassword
	}

	now := time.Now()
	s.db.Model(&u).Updates(map[string]interface{}{
		"last_login_time": now,
		"last_login_ip":   ip,
	})
	u.LastLoginTime = &now
	u.LastLoginIP = ip

	token, _, err := sessionpkg.Issue(s.db, u.ID, ip, ua, sessionpkg.DefaultTTL)
	return token, &u, err
}

func (s *Service) GetByID(id string) (*models.UserModel, error) {
	var u models.UserModel
	if err := s.db.First(&u, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errUserNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (s *Service) UpdateAccount(id string, dto *UpdateAccountDTO) (*models.UserModel, error) {
	u, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if dto.Name != nil {
		updates["name"] = strings.TrimSpace(*dto.Name)
		u.Name = strings.TrimSpace(*dto.Name)
	}
	if dto.Email != nil {
		updates["email"] = strings.TrimSpace(*dto.Email)
		u.Email = strings.TrimSpace(*dto.Email)
	}
	if dto.Avatar != nil {
		updates["avatar"] = *dto.Avatar
		u.Avatar = *dto.Avatar
	}
	if len(updates) == 0 {
		return u, nil
	}
	return u, s.db.Model(u).Updates(updates).Error
}

func (s *Service) ChangePassword(id, oldPwd, newPwd string) error {
	var u models.UserModel
	if err := s.db.Select("id, password").First(&u, "id = ?", id).Error; err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(oldPwd)); err != nil {
		return errWrongPassword
	}
	if oldPwd == newPwd {
		return errPasswordSameAsOld
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	return s.db.Model(&u).Update("password", string(hash)).Error
}

func validateHandle(handle string) error {
	switch {
	case len(handle) < 3 || len(handle) > 30:
		return fmt.Errorf("%w: must be 3-30 characters", errInvalidHandle)
	case !handlePattern.MatchString(handle):
		return fmt.Errorf("%w: only lowercase letters, numbers and hyphens", errInvalidHandle)
	case reservedHandles[handle]:
		return fmt.Errorf("%w: %q is reserved", errInvalidHandle, handle)
	}
	return nil
}
