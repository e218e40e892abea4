package models

import "time"

// AttackTokenBalance tracks the consumable currency required to attempt a
// heist. One row per user, created lazily on the first award.
// Invariant: Balance = TotalEarned - TotalSpent, always >= 0.
type AttackTokenBalance struct {
	ID           string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID       string     `gorm:"uniqueIndex;not null" json:"user_id"` // ExternalUserID
	Balance      int64      `gorm:"not null;default:0" json:"balance"`
	TotalEarned  int64      `gorm:"not null;default:0" json:"total_earned"`
	TotalSpent   int64      `gorm:"not null;default:0" json:"total_spent"`
	LastEarnedAt *time.Time `json:"last_earned_at,omitempty"`
	LastSpentAt  *time.Time `json:"last_spent_at,omitempty"`

	CreatedAt time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
