package repositories

import (
	stderrors "errors"

	"github.com/relayhq/relay-server/internal/models"
	"github.com/relayhq/relay-server/pkg/errors"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *models.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create user")
	}
	return nil
}

func (r *UserRepository) GetByID(id string) (*models.User, error) {
	var user models.User
	result := r.db.Preload("Profile").First(&user, "id = ?", id)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, errors.New(errors.ErrCodeNotFound, "user not found")
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorageFailure, "failed to get user")
	}

	return &user, nil
}

// GetProfile retrieves a user's athlete profile. Missing profiles are not an
// error: overlap ranking treats an absent profile as all-empty fields.
func (r *UserRepository) GetProfile(userID string) (*models.AthleteProfile, error) {
	var profile models.AthleteProfile
	result := r.db.First(&profile, "user_id = ?", userID)

	if stderrors.Is(result.Error, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if result.Error != nil {
		return nil, errors.Wrap(result.Error, errors.ErrCodeStorageFailure, "failed to get athlete profile")
	}

	return &profile, nil
}

// UpsertProfile creates or replaces a user's athlete profile.
func (r *UserRepository) UpsertProfile(profile *models.AthleteProfile) error {
	existing, err := r.GetProfile(profile.UserID)
	if err != nil {
		return err
	}

	if existing == nil {
		if err := r.db.Create(profile).Error; err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to create athlete profile")
		}
		return nil
	}

	if err := r.db.Model(&models.AthleteProfile{}).
		Where("user_id = ?", profile.UserID).
		Updates(map[string]interface{}{
			"school":              profile.School,
			"sport":               profile.Sport,
			"ncaa_level":          profile.NCAALevel,
			"years_active":        profile.YearsActive,
			"verification_status": profile.VerificationStatus,
		}).Error; err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageFailure, "failed to update athlete profile")
	}

	return nil
}
