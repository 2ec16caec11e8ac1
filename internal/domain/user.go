package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type User struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primary_key"`
	Username     string          `json:"username" gorm:"not null"`
	Email        string          `json:"email" gorm:"uniqueIndex;not null"`
	PasswordHash string          `json:"-" gorm:"not null"`
	Birthday     *datatypes.Date `json:"birthday,omitempty"`
	Avatar       []byte          `json:"-"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`

	Tasks         []Task         `json:"-" gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE"`
	RefreshTokens []RefreshToken `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// RefreshToken is the persisted half of a session. Its ID is the value a
// client exchanges for a new access token.
type RefreshToken struct {
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key"`
	UserID    uuid.UUID `json:"userId" gorm:"type:uuid;not null;index"`
	ExpiresAt time.Time `json:"expiresAt" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

func (t *RefreshToken) Expired(now time.Time) bool {
	return now.After(t.ExpiresAt)
}
