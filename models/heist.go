package models

import "time"

// HeistStatus is the terminal outcome of one heist attempt
type HeistStatus string

const (
	HeistStatusSuccess                  HeistStatus = "success"
	HeistStatusFailedInsufficientTokens HeistStatus = "failed_insufficient_tokens"
	HeistStatusFailedCooldown           HeistStatus = "failed_cooldown"
	HeistStatusFailedTargetProtected    HeistStatus = "failed_target_protected"
	HeistStatusFailedInvalidTarget      HeistStatus = "failed_invalid_target"
	HeistStatusFailedInsufficientPoints HeistStatus = "failed_insufficient_points"
	HeistStatusFailedShield             HeistStatus = "failed_shield"
)

// Heist is the immutable audit record of one attempt, successful or not.
// Rows are written exactly once inside the executing transaction and are
// never updated or deleted — cooldowns, protection windows and daily
// limits are all derived from this table.
type Heist struct {
	ID           string      `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	AttackerID   string      `gorm:"index;not null" json:"attacker_id"` // ExternalUserID
	VictimID     string      `gorm:"index;not null" json:"victim_id"`   // ExternalUserID
	PointsStolen int64       `gorm:"not null;default:0" json:"points_stolen"`
	Status       HeistStatus `gorm:"index;not null" json:"status"`

	AttackerPointsBefore int64 `json:"attacker_points_before"`
	AttackerPointsAfter  int64 `json:"attacker_points_after"`
	VictimPointsBefore   int64 `json:"victim_points_before"`
	VictimPointsAfter    int64 `json:"victim_points_after"`

	// Request metadata forwarded by the gateway, kept for abuse review
	IPAddress *string `json:"ip_address,omitempty"`
	UserAgent *string `json:"user_agent,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime;index" json:"created_at"`
}

// Succeeded reports whether this record represents a committed transfer.
func (h *Heist) Succeeded() bool {
	return h.Status == HeistStatusSuccess
}
