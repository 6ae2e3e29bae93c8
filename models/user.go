package models

import (
	"time"

	"github.com/google/uuid"
)

// User mirrors the identity provider's principal so other tables can reference it.
// The id is the provider's subject; nothing but the upsert on login writes here.
type User struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primaryKey;not null"`
	Email     string    `json:"email" gorm:"type:varchar(320);not null;default:''"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;default:CURRENT_TIMESTAMP"`
}
