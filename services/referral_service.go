package services

import (
	"errors"
	"fmt"
	"time"

	"loyalty-heist-system/models"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Tokens granted to the referrer per activated referral.
const tokensPerReferral = 1

// ErrSelfReferral rejects referral rows where both sides are the same user.
var ErrSelfReferral = errors.New("self-referral is not allowed")

// ReferralService handles the only inflow of attack tokens: one award per
// activated referral, idempotent via the BonusAwarded flag.
type ReferralService struct {
	DB     *gorm.DB
	Tokens *TokenService
}

func NewReferralService(db *gorm.DB, tokens *TokenService) *ReferralService {
	return &ReferralService{DB: db, Tokens: tokens}
}

// CreateReferral records that referredID signed up with referrerID's code.
// The token bonus is awarded later, once the referred account activates.
func (s *ReferralService) CreateReferral(referrerID, referredID, code string) (*models.Referral, error) {
	if referrerID == referredID {
		return nil, ErrSelfReferral
	}
	r := models.Referral{
		ID:               uuid.NewString(),
		ReferrerID:       referrerID,
		ReferredID:       referredID,
		ReferralCodeUsed: code,
	}
	if err := s.DB.Create(&r).Error; err != nil {
		return nil, fmt.Errorf("failed to create referral: %w", err)
	}
	return &r, nil
}

// ProcessReferralAward awards the referrer's token bonus for one referral.
// Safe to call repeatedly: already-awarded and not-yet-activated referrals
// are skipped.
func (s *ReferralService) ProcessReferralAward(referralID string) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		var r models.Referral
		if err := tx.Where("id = ?", referralID).First(&r).Error; err != nil {
			return err
		}
		if r.BonusAwarded {
			return nil // already processed
		}
		if !r.Activated {
			return nil // skip until the referred account is verified
		}

		if err := s.Tokens.Award(tx, r.ReferrerID, tokensPerReferral); err != nil {
			return err
		}

		now := time.Now()
		r.BonusAwarded = true
		r.TokensAwarded = tokensPerReferral
		r.AwardedAt = &now
		if err := tx.Save(&r).Error; err != nil {
			return err
		}

		log.Printf("🎟️  Referral bonus: %d token(s) → %s (referred %s)", tokensPerReferral, r.ReferrerID, r.ReferredID)
		return nil
	})
}

// ProcessPendingForReferrer awards every activated-but-unawarded referral
// of one user. Backing for the claim endpoint.
func (s *ReferralService) ProcessPendingForReferrer(referrerID string) (int, error) {
	var pending []models.Referral
	err := s.DB.Where("referrer_id = ? AND activated = ? AND bonus_awarded = ?", referrerID, true, false).
		Find(&pending).Error
	if err != nil {
		return 0, fmt.Errorf("failed to load pending referrals: %w", err)
	}

	awarded := 0
	for _, r := range pending {
		if err := s.ProcessReferralAward(r.ID); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				continue
			}
			return awarded, err
		}
		awarded++
	}
	return awarded, nil
}
