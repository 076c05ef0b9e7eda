package account

import (
	"context"
	"errors"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Repository defines persistence operations for users.
type Repository interface {
	GetByExternalID(ctx context.Context, externalID string) (*User, error)
	Create(ctx context.Context, user *User) error
	UpdateProfile(ctx context.Context, externalID, name, email string) (*User, error)
	DeleteByExternalID(ctx context.Context, externalID string) error
}

// GormRepository persists users using a Gorm database connection.
type GormRepository struct {
	db     *gorm.DB
	logger *logrus.Logger
}

// NewGormRepository constructs a Gorm-backed repository implementation.
func NewGormRepository(db *gorm.DB, logger *logrus.Logger) (*GormRepository, error) {
	if db == nil {
		return nil, eris.New("gorm DB is required")
	}

	return &GormRepository{db: db, logger: logger}, nil
}

var _ Repository = (*GormRepository)(nil)

// GetByExternalID returns the user for the provided external id or nil when not found.
func (r *GormRepository) GetByExternalID(ctx context.Context, externalID string) (*User, error) {
	trimmed := strings.TrimSpace(externalID)
	if trimmed == "" {
		return nil, eris.New("external id is required")
	}

	var user User
	err := r.db.WithContext(ctx).First(&user, "external_id = ?", trimmed).Error
	if err != nil {
		if eris.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.logError(logrus.Fields{"external_id": trimmed}, err, "fetching user by external id")
		return nil, eris.Wrapf(err, "fetching user by external id: %s", trimmed)
	}

	return &user, nil
}

// Create stores a new user. A duplicate external id is reported as ErrUserExists.
func (r *GormRepository) Create(ctx context.Context, user *User) error {
	if user == nil {
		return eris.New("user is nil")
	}

	user.ExternalID = strings.TrimSpace(user.ExternalID)
	if user.ExternalID == "" {
		return eris.New("user external id is required")
	}

	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(strings.ToLower(err.Error()), "unique") {
			return eris.Wrapf(ErrUserExists, "external id %s", user.ExternalID)
		}
		r.logError(logrus.Fields{"external_id": user.ExternalID}, err, "creating user")
		return eris.Wrapf(err, "creating user: %s", user.ExternalID)
	}

	return nil
}

// UpdateProfile overwrites the name and email of the user and returns the updated row,
// or nil when no user carries the external id.
func (r *GormRepository) UpdateProfile(ctx context.Context, externalID, name, email string) (*User, error) {
	user, err := r.GetByExternalID(ctx, externalID)
	if err != nil || user == nil {
		return nil, err
	}

	updates := map[string]any{"name": strings.TrimSpace(name), "email": strings.TrimSpace(email)}
	if err := r.db.WithContext(ctx).Model(&User{}).Where("id = ?", user.ID).Updates(updates).Error; err != nil {
		r.logError(logrus.Fields{"external_id": user.ExternalID}, err, "updating user")
		return nil, eris.Wrapf(err, "updating user: %s", user.ExternalID)
	}

	user.Name = updates["name"].(string)
	user.Email = updates["email"].(string)

	return user, nil
}

// DeleteByExternalID removes the user. Missing users are ignored.
func (r *GormRepository) DeleteByExternalID(ctx context.Context, externalID string) error {
	trimmed := strings.TrimSpace(externalID)
	if trimmed == "" {
		return eris.New("external id is required")
	}

	if err := r.db.WithContext(ctx).Where("external_id = ?", trimmed).Delete(&User{}).Error; err != nil {
		r.logError(logrus.Fields{"external_id": trimmed}, err, "deleting user")
		return eris.Wrapf(err, "deleting user: %s", trimmed)
	}

	return nil
}

func (r *GormRepository) logError(fields logrus.Fields, err error, message string) {
	if r.logger == nil || err == nil {
		return
	}

	entry := r.logger.WithField("error", err.Error())
	if len(fields) > 0 {
		entry = entry.WithFields(fields)
	}
	entry.Error(message)
}
