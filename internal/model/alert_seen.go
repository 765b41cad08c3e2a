package model

import (
	"time"

	"github.com/google/uuid"
)

// AlertSeen marks that a staff member has seen an alert. Inserted with
// ON CONFLICT DO NOTHING, so marking is idempotent per (staff, alert).
type AlertSeen struct {
	ID      uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	StaffID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_alert_seen_staff_alert,priority:1"`
	AlertID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:uq_alert_seen_staff_alert,priority:2"`
	SeenAt  time.Time `gorm:"not null"`
}

// TableName overrides GORM's pluralization (alert_seens → alert_seen_marks).
func (AlertSeen) TableName() string { return "alert_seen_marks" }
