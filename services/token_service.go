package services

import (
	"errors"
	"fmt"
	"time"

	"loyalty-heist-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrInsufficientTokens is returned when a spend would drive a token
// balance negative. Surfaced to callers as a policy failure, never logged
// as an error.
var ErrInsufficientTokens = errors.New("insufficient attack tokens")

// TokenService is the attack-token ledger. Tokens are earned via referrals
// and spent one per heist attempt.
type TokenService struct {
	DB *gorm.DB
}

func NewTokenService(db *gorm.DB) *TokenService {
	return &TokenService{DB: db}
}

// TokenBalanceSnapshot is the read model returned to callers. A user with
// no ledger row gets all zeros — no row is allocated for reads.
type TokenBalanceSnapshot struct {
	Balance      int64      `json:"balance"`
	TotalEarned  int64      `json:"total_earned"`
	TotalSpent   int64      `json:"total_spent"`
	LastEarnedAt *time.Time `json:"last_earned_at,omitempty"`
	LastSpentAt  *time.Time `json:"last_spent_at,omitempty"`
}

// GetBalance returns the user's token ledger snapshot.
func (s *TokenService) GetBalance(userID string) (*TokenBalanceSnapshot, error) {
	var row models.AttackTokenBalance
	err := s.DB.Where("user_id = ?", userID).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return &TokenBalanceSnapshot{}, nil
		}
		return nil, fmt.Errorf("failed to read token balance: %w", err)
	}
	return &TokenBalanceSnapshot{
		Balance:      row.Balance,
		TotalEarned:  row.TotalEarned,
		TotalSpent:   row.TotalSpent,
		LastEarnedAt: row.LastEarnedAt,
		LastSpentAt:  row.LastSpentAt,
	}, nil
}

// HasTokens is the read-only pre-flight check. Advisory only — the spend
// inside the heist transaction re-verifies against the locked row.
func (s *TokenService) HasTokens(userID string, amount int64) (bool, error) {
	snap, err := s.GetBalance(userID)
	if err != nil {
		return false, err
	}
	return snap.Balance >= amount, nil
}

// Award credits tokens to a user, creating the ledger row lazily.
// Idempotency is the caller's responsibility (one award per referral event).
// Takes an explicit db handle so it can ride a caller's transaction.
func (s *TokenService) Award(db *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("token award amount must be positive, got %d", amount)
	}
	now := time.Now()
	row := models.AttackTokenBalance{
		ID:           uuid.NewString(),
		UserID:       userID,
		Balance:      amount,
		TotalEarned:  amount,
		LastEarnedAt: &now,
	}
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"balance":        gorm.Expr("attack_token_balances.balance + ?", amount),
			"total_earned":   gorm.Expr("attack_token_balances.total_earned + ?", amount),
			"last_earned_at": now,
			"updated_at":     now,
		}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to award tokens: %w", err)
	}
	return nil
}

// Spend debits tokens from a user inside the caller's transaction. The
// read-then-write runs against a row locked FOR UPDATE, so two concurrent
// heists by the same attacker can't both spend the last token.
// MUST be called with the same tx handle as the point transfer it funds.
func (s *TokenService) Spend(tx *gorm.DB, userID string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("token spend amount must be positive, got %d", amount)
	}

	var row models.AttackTokenBalance
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrInsufficientTokens
		}
		return fmt.Errorf("failed to lock token balance: %w", err)
	}

	if row.Balance < amount {
		return ErrInsufficientTokens
	}

	now := time.Now()
	err = tx.Model(&models.AttackTokenBalance{}).
		Where("user_id = ?", userID).
		Updates(map[string]interface{}{
			"balance":       gorm.Expr("balance - ?", amount),
			"total_spent":   gorm.Expr("total_spent + ?", amount),
			"last_spent_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to spend tokens: %w", err)
	}
	return nil
}
