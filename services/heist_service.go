package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"loyalty-heist-system/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

const (
	// Bound on any single row-lock wait under contention, enforced
	// DB-side via lock_timeout
	heistWaitTimeout = 2 * time.Second
	// Bound on the whole transaction, begin through commit (a victim
	// with many concurrent attackers serializes on their row)
	heistExecTimeout = 5 * time.Second
	// Serialization-conflict retries before giving up
	maxHeistAttempts = 3
)

// ErrHeistConflict is returned when a heist keeps losing serialization
// conflicts; the caller may retry the whole attempt.
var ErrHeistConflict = errors.New("heist aborted by concurrent transaction")

// HeistMetadata is optional request context stored on the outcome record.
type HeistMetadata struct {
	IPAddress string
	UserAgent string
}

// HeistResult is the structured outcome returned for EVERY attempt,
// successful or not. Policy failures land here, never as Go errors.
type HeistResult struct {
	Success      bool               `json:"success"`
	HeistID      string             `json:"heist_id,omitempty"`
	Status       models.HeistStatus `json:"status,omitempty"`
	ErrorCode    string             `json:"error_code,omitempty"`
	Detail       string             `json:"detail,omitempty"`
	PointsStolen int64              `json:"points_stolen"`

	AttackerPointsBefore int64 `json:"attacker_points_before,omitempty"`
	AttackerPointsAfter  int64 `json:"attacker_points_after,omitempty"`
	VictimPointsBefore   int64 `json:"victim_points_before,omitempty"`
	VictimPointsAfter    int64 `json:"victim_points_after,omitempty"`

	attackerName string
	victimName   string
}

// HeistService orchestrates the end-to-end point transfer: re-validates
// eligibility under a SERIALIZABLE transaction, spends the attack token,
// runs the item pipeline, moves the points, writes the immutable outcome
// record, and fires post-commit side effects.
type HeistService struct {
	DB          *gorm.DB
	Config      *HeistConfig
	Tokens      *TokenService
	Cooldowns   *CooldownTracker
	Eligibility *EligibilityService
	Items       *ItemEffectService
	Points      PointLedger
	Notifier    HeistNotifier
	Events      PointEventSink
}

func NewHeistService(db *gorm.DB, cfg *HeistConfig, tokens *TokenService, cooldowns *CooldownTracker,
	eligibility *EligibilityService, items *ItemEffectService, notifier HeistNotifier, events PointEventSink) *HeistService {
	return &HeistService{
		DB:          db,
		Config:      cfg,
		Tokens:      tokens,
		Cooldowns:   cooldowns,
		Eligibility: eligibility,
		Items:       items,
		Points:      DBPointLedger{},
		Notifier:    notifier,
		Events:      events,
	}
}

// ExecuteHeist runs one attack attempt. Serialization conflicts retry the
// whole attempt a bounded number of times; an aborted attempt rolls back
// entirely, so only the committing attempt produces an outcome record.
func (s *HeistService) ExecuteHeist(ctx context.Context, attackerID, victimID string, meta *HeistMetadata) (*HeistResult, error) {
	// Kill switch: no transaction, no record — the engine is off.
	if !s.Config.Enabled {
		return &HeistResult{
			ErrorCode: ReasonFeatureDisabled,
			Detail:    "heists are currently disabled",
		}, nil
	}

	var result *HeistResult
	var err error
	for attempt := 1; attempt <= maxHeistAttempts; attempt++ {
		result, err = s.executeOnce(ctx, attackerID, victimID, meta)
		if err != nil && isSerializationFailure(err) {
			log.WithFields(log.Fields{
				"attacker": attackerID,
				"victim":   victimID,
				"attempt":  attempt,
			}).Warn("heist serialization conflict, retrying")
			if backoffErr := retryBackoff(ctx, attempt); backoffErr != nil {
				return nil, backoffErr
			}
			continue
		}
		break
	}
	if err != nil {
		if errors.Is(err, ErrInsufficientTokens) {
			// Token race lost mid-transaction: rolled back, no record.
			return nil, err
		}
		if isSerializationFailure(err) {
			return nil, fmt.Errorf("%w: %v", ErrHeistConflict, err)
		}
		return nil, err
	}

	if result.Success {
		go s.fireSideEffects(attackerID, victimID, result)
	}
	return result, nil
}

// executeOnce is one transactional attempt, a single atomic unit under
// SERIALIZABLE isolation.
func (s *HeistService) executeOnce(ctx context.Context, attackerID, victimID string, meta *HeistMetadata) (*HeistResult, error) {
	// The context handed to Begin governs the transaction until
	// commit/rollback (database/sql rolls the tx back on cancellation),
	// so it must carry the full execution bound. The contention bound
	// is narrower than that and applies per lock wait, which only the
	// server can enforce — hence SET LOCAL lock_timeout below.
	execCtx, cancelExec := context.WithTimeout(ctx, heistExecTimeout)
	defer cancelExec()

	tx := s.DB.WithContext(execCtx).Begin(&sql.TxOptions{Isolation: sql.LevelSerializable})
	if tx.Error != nil {
		return nil, fmt.Errorf("failed to begin heist transaction: %w", tx.Error)
	}
	if err := tx.Exec(lockTimeoutStatement(heistWaitTimeout)).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to bound lock waits: %w", err)
	}

	result, err := s.run(tx, attackerID, victimID, meta)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("failed to commit heist: %w", err)
	}
	return result, nil
}

func (s *HeistService) run(tx *gorm.DB, attackerID, victimID string, meta *HeistMetadata) (*HeistResult, error) {
	now := time.Now()

	// Re-run the full eligibility chain against freshly read rows. The
	// advisory pre-check means nothing in here — state may have changed.
	snap, err := s.Eligibility.loadSnapshot(tx, attackerID, victimID, now)
	if err != nil {
		return nil, err
	}
	if elig := evaluate(s.Config, snap); !elig.Eligible {
		return s.recordPolicyFailure(tx, attackerID, victimID, meta, elig, snap, nil)
	}

	// Lock both balance rows. Victim exists (eligibility passed); the
	// attacker row is created lazily if the sync worker hasn't yet.
	attacker, err := s.lockAttacker(tx, attackerID)
	if err != nil {
		return nil, err
	}
	victim, err := s.Points.ReadBalanceForUpdate(tx, victimID)
	if err != nil {
		return nil, fmt.Errorf("failed to lock victim row: %w", err)
	}

	base := BaseStealAmount(s.Config, victim.Points)
	if base <= 0 {
		elig := &EligibilityResult{Code: ReasonInsufficientVictimPoints, Detail: "target has nothing worth stealing"}
		return s.recordPolicyFailure(tx, attackerID, victimID, meta, elig, snap, nil)
	}

	// Item pipeline
	final := base
	var applied []AppliedItem
	if s.Config.ItemsEnabled {
		attackerItems, err := s.Items.ActiveItems(tx, attackerID, models.ItemTypeAttacker)
		if err != nil {
			return nil, err
		}
		victimItems, err := s.Items.ActiveItems(tx, victimID, models.ItemTypeDefender)
		if err != nil {
			return nil, err
		}

		pipe := s.Items.Apply(base, victim.Points, attackerItems, victimItems)
		applied = pipe.ItemsUsed
		final = pipe.FinalAmount

		if pipe.ShieldBlocked {
			elig := &EligibilityResult{Code: ReasonShieldBlocked, Detail: "the target's shield blocked your heist"}
			return s.recordPolicyFailure(tx, attackerID, victimID, meta, elig, snap, applied)
		}
		if final <= 0 {
			elig := &EligibilityResult{Code: ReasonInsufficientVictimPoints, Detail: "modifiers reduced the haul to nothing"}
			return s.recordPolicyFailure(tx, attackerID, victimID, meta, elig, snap, applied)
		}
	}

	// Spend the attack token on the same tx handle. A concurrent spend
	// that exhausted the balance aborts the whole attempt — rollback,
	// no outcome record.
	if err := s.Tokens.Spend(tx, attackerID, s.Config.TokenCost); err != nil {
		return nil, err
	}

	// Move the points, atomically with everything above.
	if err := s.Points.CreditPoints(tx, attackerID, final); err != nil {
		return nil, err
	}
	if err := s.Points.CreditPoints(tx, victimID, -final); err != nil {
		return nil, err
	}

	heist := models.Heist{
		ID:                   uuid.NewString(),
		AttackerID:           attackerID,
		VictimID:             victimID,
		PointsStolen:         final,
		Status:               models.HeistStatusSuccess,
		AttackerPointsBefore: attacker.Points,
		AttackerPointsAfter:  attacker.Points + final,
		VictimPointsBefore:   victim.Points,
		VictimPointsAfter:    victim.Points - final,
	}
	applyMetadata(&heist, meta)
	if err := tx.Create(&heist).Error; err != nil {
		return nil, fmt.Errorf("failed to write heist record: %w", err)
	}

	if err := s.Items.RecordUsages(tx, heist.ID, applied); err != nil {
		return nil, err
	}

	return &HeistResult{
		Success:              true,
		HeistID:              heist.ID,
		Status:               models.HeistStatusSuccess,
		PointsStolen:         final,
		AttackerPointsBefore: heist.AttackerPointsBefore,
		AttackerPointsAfter:  heist.AttackerPointsAfter,
		VictimPointsBefore:   heist.VictimPointsBefore,
		VictimPointsAfter:    heist.VictimPointsAfter,
		attackerName:         attacker.Username,
		victimName:           victim.Username,
	}, nil
}

// recordPolicyFailure writes the failed outcome record (still committed —
// failed attempts are audit state too) and shapes the structured result.
func (s *HeistService) recordPolicyFailure(tx *gorm.DB, attackerID, victimID string, meta *HeistMetadata,
	elig *EligibilityResult, snap *eligibilitySnapshot, applied []AppliedItem) (*HeistResult, error) {

	attackerBalance, _, err := s.Points.ReadBalance(tx, attackerID)
	if err != nil {
		return nil, err
	}

	heist := models.Heist{
		ID:                   uuid.NewString(),
		AttackerID:           attackerID,
		VictimID:             victimID,
		PointsStolen:         0,
		Status:               statusForReason(elig.Code),
		AttackerPointsBefore: attackerBalance,
		AttackerPointsAfter:  attackerBalance,
		VictimPointsBefore:   snap.VictimBalance,
		VictimPointsAfter:    snap.VictimBalance,
	}
	applyMetadata(&heist, meta)
	if err := tx.Create(&heist).Error; err != nil {
		return nil, fmt.Errorf("failed to write failed heist record: %w", err)
	}

	// A blocking shield is consumed even though the attack failed.
	if err := s.Items.RecordUsages(tx, heist.ID, applied); err != nil {
		return nil, err
	}

	return &HeistResult{
		HeistID:   heist.ID,
		Status:    heist.Status,
		ErrorCode: elig.Code,
		Detail:    elig.Detail,
	}, nil
}

func (s *HeistService) lockAttacker(tx *gorm.DB, attackerID string) (*models.LoyaltyUser, error) {
	attacker, err := s.Points.ReadBalanceForUpdate(tx, attackerID)
	if err == nil {
		return attacker, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to lock attacker row: %w", err)
	}
	// Sync lag: the account exists upstream but not here yet.
	row := models.LoyaltyUser{ID: uuid.NewString(), ExternalUserID: attackerID, Username: attackerID}
	if err := tx.Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create attacker row: %w", err)
	}
	return &row, nil
}

// fireSideEffects runs after commit: notifications and audit point-events
// are never awaited for correctness and never fail the transfer.
func (s *HeistService) fireSideEffects(attackerID, victimID string, res *HeistResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if s.Events != nil {
		if err := s.Events.Record(ctx, attackerID, res.PointsStolen, "heist_gain", res.HeistID); err != nil {
			log.Printf("⚠️  [HEIST] point-event for attacker failed (ignored): %v", err)
		}
		if err := s.Events.Record(ctx, victimID, -res.PointsStolen, "heist_loss", res.HeistID); err != nil {
			log.Printf("⚠️  [HEIST] point-event for victim failed (ignored): %v", err)
		}
	}
	if s.Notifier != nil {
		s.Notifier.NotifyAttackSuccess(ctx, attackerID, victimID, res.victimName, res.PointsStolen, res.HeistID)
		s.Notifier.NotifyVictim(ctx, victimID, attackerID, res.attackerName, res.PointsStolen, res.HeistID)
	}

	log.WithFields(log.Fields{
		"heist_id": res.HeistID,
		"attacker": attackerID,
		"victim":   victimID,
		"points":   res.PointsStolen,
	}).Info("💰 heist committed")
}

func applyMetadata(h *models.Heist, meta *HeistMetadata) {
	if meta == nil {
		return
	}
	if meta.IPAddress != "" {
		h.IPAddress = &meta.IPAddress
	}
	if meta.UserAgent != "" {
		h.UserAgent = &meta.UserAgent
	}
}

// statusForReason maps an eligibility reason code to the terminal outcome
// status stored on the record.
func statusForReason(code string) models.HeistStatus {
	switch code {
	case ReasonInsufficientTokens:
		return models.HeistStatusFailedInsufficientTokens
	case ReasonCooldownActive, ReasonDailyLimitExceeded:
		return models.HeistStatusFailedCooldown
	case ReasonTargetProtected:
		return models.HeistStatusFailedTargetProtected
	case ReasonInsufficientVictimPoints:
		return models.HeistStatusFailedInsufficientPoints
	case ReasonShieldBlocked:
		return models.HeistStatusFailedShield
	default:
		return models.HeistStatusFailedInvalidTarget
	}
}

// retryBackoff waits out the linear backoff before the next attempt,
// returning early if the caller gave up.
func retryBackoff(ctx context.Context, attempt int) error {
	timer := time.NewTimer(time.Duration(attempt) * 50 * time.Millisecond)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// lockTimeoutStatement bounds every row-lock wait in the current
// transaction; a wait exceeding it aborts with SQLSTATE 55P03.
func lockTimeoutStatement(d time.Duration) string {
	return fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", d.Milliseconds())
}

// isSerializationFailure detects Postgres serialization aborts (40001) and
// deadlocks (40P01), both safe to retry from scratch.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
