package model

import (
	"time"

	"github.com/google/uuid"
)

// Category groups products for catalog browsing. Metadata only — it plays no
// part in stock accounting.
type Category struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Name      string    `gorm:"uniqueIndex;not null"`
	CreatedAt time.Time
}
