package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	ID        string    `gorm:"type:uuid;primaryKey"`
	Name      string    `gorm:"type:varchar(255);not null"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Profile *AthleteProfile `gorm:"foreignKey:UserID"`
}

func (u *User) BeforeCreate(tx *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

func (User) TableName() string {
	return "users"
}

// AthleteProfile holds the athletic identity used for overlap ranking.
// One row per user; requests and responses reference the user, never the
// profile directly.
type AthleteProfile struct {
	UserID             string    `gorm:"type:uuid;primaryKey"`
	School             string    `gorm:"type:varchar(255)"`
	Sport              string    `gorm:"type:varchar(100)"`
	NCAALevel          string    `gorm:"type:varchar(20)"`
	YearsActive        string    `gorm:"type:varchar(50)"`
	VerificationStatus bool      `gorm:"default:false;not null"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

func (AthleteProfile) TableName() string {
	return "athlete_profiles"
}
