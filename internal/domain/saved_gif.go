package domain

import (
	"time"

	"github.com/google/uuid"
)

// SavedGif is a provider item a user chose to keep. A user holds at most one
// row per provider item.
type SavedGif struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	UserID         uuid.UUID `json:"userId" gorm:"type:uuid;not null;uniqueIndex:idx_saved_gifs_user_item,priority:1;index:idx_saved_gifs_user_saved_at,priority:1"`
	ProviderItemID string    `json:"providerItemId" gorm:"not null;size:128;uniqueIndex:idx_saved_gifs_user_item,priority:2"`
	Title          string    `json:"title" gorm:"not null;default:''"`
	URL            string    `json:"url" gorm:"not null"`
	Category       *string   `json:"category,omitempty" gorm:"size:64"`
	SavedAt        time.Time `json:"savedAt" gorm:"not null;index:idx_saved_gifs_user_saved_at,priority:2,sort:desc"`

	User *User `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}
