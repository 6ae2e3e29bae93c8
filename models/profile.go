package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Profile is the user-editable side of a User, one per user.
type Profile struct {
	ID           uuid.UUID                   `json:"id" gorm:"type:uuid;primaryKey;default:gen_random_uuid();not null"`
	UserID       uuid.UUID                   `json:"user_id" gorm:"type:uuid;not null;uniqueIndex"`
	Username     *string                     `json:"username,omitempty" gorm:"type:varchar(100);uniqueIndex"`
	FirstName    *string                     `json:"first_name,omitempty" gorm:"type:varchar(100)"`
	LastName     *string                     `json:"last_name,omitempty" gorm:"type:varchar(100)"`
	DisplayName  *string                     `json:"display_name,omitempty" gorm:"type:varchar(200)"`
	Bio          *string                     `json:"bio,omitempty" gorm:"type:text"`
	AvatarURL    *string                     `json:"avatar_url,omitempty" gorm:"type:text"`
	DateOfBirth  *datatypes.Date             `json:"date_of_birth,omitempty"`
	Timezone     *string                     `json:"timezone,omitempty" gorm:"type:varchar(50)"`
	Language     string                      `json:"language" gorm:"type:varchar(10);not null;default:'en'"`
	CustomFont   *string                     `json:"custom_font,omitempty" gorm:"type:varchar(100)"`
	CustomColors datatypes.JSONSlice[string] `json:"custom_colors"`
	Interests    datatypes.JSONSlice[string] `json:"interests"`
	Preferences  datatypes.JSONMap           `json:"preferences"`
	CreatedAt    time.Time                   `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt    time.Time                   `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	User User `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Profile) TableName() string {
	return "user_profiles"
}
