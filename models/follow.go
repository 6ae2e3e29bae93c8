package models

import (
	"time"

	"github.com/google/uuid"
)

// Follow is a directed edge: FollowerID follows FollowingID.
type Follow struct {
	FollowerID  uuid.UUID `json:"follower_id" gorm:"type:uuid;primaryKey;not null"`
	FollowingID uuid.UUID `json:"following_id" gorm:"type:uuid;primaryKey;not null;index;check:no_self_follow,follower_id <> following_id"`
	CreatedAt   time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`

	Follower  User `json:"-" gorm:"foreignKey:FollowerID;references:ID;constraint:OnDelete:CASCADE"`
	Following User `json:"-" gorm:"foreignKey:FollowingID;references:ID;constraint:OnDelete:CASCADE"`
}

func (Follow) TableName() string {
	return "user_followers"
}
