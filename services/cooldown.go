package services

import (
	"errors"
	"fmt"
	"time"

	"loyalty-heist-system/models"

	"gorm.io/gorm"
)

// CooldownTracker derives attacker cooldowns and victim protection windows
// from the heists table. Every method takes an explicit db handle so the
// same queries can run on the pool (advisory pre-check) or inside the
// executor's transaction (authoritative re-check). No caching — the whole
// point is reading current data at decision time.
type CooldownTracker struct {
	Config *HeistConfig
}

func NewCooldownTracker(cfg *HeistConfig) *CooldownTracker {
	return &CooldownTracker{Config: cfg}
}

// CooldownStatus describes an attacker's wait state.
type CooldownStatus struct {
	OnCooldown  bool       `json:"on_cooldown"`
	RemainingMs int64      `json:"remaining_ms"`
	EligibleAt  *time.Time `json:"eligible_at,omitempty"`
}

// ProtectionStatus describes a victim's grace window.
type ProtectionStatus struct {
	IsProtected  bool       `json:"is_protected"`
	RemainingMs  int64      `json:"remaining_ms"`
	VulnerableAt *time.Time `json:"vulnerable_at,omitempty"`
}

// LastSuccessfulAttack returns when the user last committed a successful
// heist as attacker, or nil if they never have.
func (t *CooldownTracker) LastSuccessfulAttack(db *gorm.DB, userID string) (*time.Time, error) {
	return t.lastSuccess(db, "attacker_id", userID)
}

// LastSuccessfulVictimization returns when the user was last successfully
// robbed, or nil.
func (t *CooldownTracker) LastSuccessfulVictimization(db *gorm.DB, userID string) (*time.Time, error) {
	return t.lastSuccess(db, "victim_id", userID)
}

func (t *CooldownTracker) lastSuccess(db *gorm.DB, column, userID string) (*time.Time, error) {
	var h models.Heist
	err := db.Where(column+" = ? AND status = ?", userID, models.HeistStatusSuccess).
		Order("created_at DESC").
		First(&h).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query heist history: %w", err)
	}
	return &h.CreatedAt, nil
}

// AttackerCooldown reports whether the user must still wait before their
// next attack.
func (t *CooldownTracker) AttackerCooldown(db *gorm.DB, userID string, now time.Time) (*CooldownStatus, error) {
	last, err := t.LastSuccessfulAttack(db, userID)
	if err != nil {
		return nil, err
	}
	active, remaining, until := windowState(last, t.Config.AttackerCooldownHours, now)
	status := &CooldownStatus{OnCooldown: active, RemainingMs: remaining.Milliseconds()}
	if active {
		status.EligibleAt = &until
	}
	return status, nil
}

// VictimProtection reports whether the user is inside their post-robbery
// grace window.
func (t *CooldownTracker) VictimProtection(db *gorm.DB, userID string, now time.Time) (*ProtectionStatus, error) {
	last, err := t.LastSuccessfulVictimization(db, userID)
	if err != nil {
		return nil, err
	}
	active, remaining, until := windowState(last, t.Config.VictimProtectionHours, now)
	status := &ProtectionStatus{IsProtected: active, RemainingMs: remaining.Milliseconds()}
	if active {
		status.VulnerableAt = &until
	}
	return status, nil
}

// HeistsToday counts the attacker's successful heists since local midnight
// (the daily limit resets on the server's calendar day).
func (t *CooldownTracker) HeistsToday(db *gorm.DB, userID string, now time.Time) (int64, error) {
	var count int64
	err := db.Model(&models.Heist{}).
		Where("attacker_id = ? AND status = ? AND created_at >= ?",
			userID, models.HeistStatusSuccess, localMidnight(now)).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count today's heists: %w", err)
	}
	return count, nil
}

// windowState is the shared cooldown math: given the last qualifying event
// and a window length, returns whether the window is still open, the time
// remaining, and when it closes.
func windowState(last *time.Time, hours int, now time.Time) (bool, time.Duration, time.Time) {
	if last == nil || hours <= 0 {
		return false, 0, time.Time{}
	}
	until := last.Add(time.Duration(hours) * time.Hour)
	if !now.Before(until) {
		return false, 0, time.Time{}
	}
	return true, until.Sub(now), until
}

func localMidnight(now time.Time) time.Time {
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
