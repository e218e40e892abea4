package models

import (
	"time"

	"gorm.io/gorm"
)

// LoyaltyUser is a local snapshot of user data needed for the heist engine.
// Profile fields are populated via sync worker from the Profile Service;
// the Points balance is authoritative HERE and is only ever mutated inside
// a heist transaction (or by the platform's point-credit entry point).
type LoyaltyUser struct {
	ID                string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ExternalUserID    string     `gorm:"uniqueIndex;not null" json:"external_user_id"` // The profile service's UUID
	Username          string     `gorm:"index;not null" json:"username"`
	Email             string     `json:"email,omitempty"`
	ProfilePictureURL *string    `json:"profile_picture_url,omitempty"`
	Points            int64      `gorm:"not null;default:0" json:"points"` // loyalty points, never negative
	IsBanned          bool       `gorm:"default:false" json:"is_banned"`
	LastSeen          *time.Time `json:"last_seen,omitempty"`
	CreatedAt         time.Time  `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time  `json:"updated_at" gorm:"autoUpdateTime"`

	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// RemoteUser mirrors the shape of the profile service's public user payload
// (read-only). Used by the sync worker; Points is intentionally absent so a
// sync can never clobber a balance we own.
type RemoteUser struct {
	ExternalID        string     `json:"external_id"`
	Username          string     `json:"username"`
	Email             string     `json:"email"`
	ProfilePictureURL *string    `json:"profile_picture_url"`
	UpdatedAt         time.Time  `json:"updated_at"`
	DeletedAt         *time.Time `json:"deleted_at"` // soft-delete marker
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}
