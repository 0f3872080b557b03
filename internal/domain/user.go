package domain

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Handle     string    `json:"handle" gorm:"uniqueIndex;not null;size:64"`
	SecretHash string    `json:"-" gorm:"not null"`
	CreatedAt  time.Time `json:"createdAt"`
}
