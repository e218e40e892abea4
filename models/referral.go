package models

import "time"

// Referral tracks referrals and the attack-token bonus owed to the referrer.
// Attack tokens are only earned through referrals, so this is the single
// inflow side of the token ledger.
type Referral struct {
	ID         string `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	ReferrerID string `gorm:"index;not null" json:"referrer_id"`       // ExternalUserID
	ReferredID string `gorm:"uniqueIndex;not null" json:"referred_id"` // ExternalUserID

	ReferralCodeUsed string     `gorm:"not null" json:"referral_code_used"`
	Activated        bool       `gorm:"default:false" json:"activated"` // set once the referred account is verified
	TokensAwarded    int64      `json:"tokens_awarded" gorm:"default:0"`
	BonusAwarded     bool       `json:"bonus_awarded" gorm:"default:false"`
	AwardedAt        *time.Time `json:"awarded_at,omitempty"`

	Timestamps
}
