package services

import (
	"errors"
	"fmt"
	"math"
	"time"

	"loyalty-heist-system/models"

	"gorm.io/gorm"
)

// Reason codes surfaced to clients in {status, error_code, detail} triples.
const (
	ReasonFeatureDisabled          = "FEATURE_DISABLED"
	ReasonInvalidTarget            = "INVALID_TARGET"
	ReasonInsufficientVictimPoints = "INSUFFICIENT_VICTIM_POINTS"
	ReasonInsufficientTokens       = "INSUFFICIENT_TOKENS"
	ReasonCooldownActive           = "COOLDOWN_ACTIVE"
	ReasonTargetProtected          = "TARGET_PROTECTED"
	ReasonDailyLimitExceeded       = "DAILY_LIMIT_EXCEEDED"
	ReasonShieldBlocked            = "SHIELD_BLOCKED"
	ReasonExecutionError           = "EXECUTION_ERROR"
)

// EligibilityResult is one check's verdict (or the chain's first failure).
type EligibilityResult struct {
	Eligible bool   `json:"eligible"`
	Code     string `json:"code,omitempty"`
	Detail   string `json:"detail,omitempty"`
}

// eligibilitySnapshot is everything the check chain needs, read in one pass
// from whatever db handle the caller provides. Keeping the chain pure over
// this struct is what lets the executor re-run it on fresh rows inside the
// transaction, and what lets tests run it without a database.
type eligibilitySnapshot struct {
	AttackerID    string
	VictimID      string
	VictimFound   bool
	VictimName    string
	VictimBalance int64
	TokenBalance  int64
	Cooldown      *CooldownStatus
	Protection    *ProtectionStatus
	HeistsToday   int64
}

// eligibilityCheck is one link in the fixed chain. Returns nil when the
// check passes.
type eligibilityCheck struct {
	Name string
	Run  func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult
}

// The chain order is a contract: evaluation stops at the FIRST failing
// check, so callers always see the same code for the same state.
var eligibilityChecks = []eligibilityCheck{
	{
		Name: "feature_enabled",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if !cfg.Enabled {
				return &EligibilityResult{Code: ReasonFeatureDisabled, Detail: "heists are currently disabled"}
			}
			return nil
		},
	},
	{
		Name: "not_self_target",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if snap.AttackerID == snap.VictimID {
				return &EligibilityResult{Code: ReasonInvalidTarget, Detail: "you cannot rob yourself"}
			}
			return nil
		},
	},
	{
		Name: "victim_exists_with_points",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if !snap.VictimFound {
				return &EligibilityResult{Code: ReasonInvalidTarget, Detail: "target user not found"}
			}
			if snap.VictimBalance < cfg.MinVictimPoints {
				return &EligibilityResult{
					Code:   ReasonInsufficientVictimPoints,
					Detail: fmt.Sprintf("target needs at least %d points to be robbed", cfg.MinVictimPoints),
				}
			}
			return nil
		},
	},
	{
		Name: "attacker_has_tokens",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if snap.TokenBalance < cfg.TokenCost {
				return &EligibilityResult{
					Code:   ReasonInsufficientTokens,
					Detail: fmt.Sprintf("a heist costs %d token(s), you have %d", cfg.TokenCost, snap.TokenBalance),
				}
			}
			return nil
		},
	},
	{
		Name: "attacker_off_cooldown",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if snap.Cooldown != nil && snap.Cooldown.OnCooldown {
				return &EligibilityResult{
					Code:   ReasonCooldownActive,
					Detail: fmt.Sprintf("you can attack again in %s", formatRemaining(snap.Cooldown.RemainingMs)),
				}
			}
			return nil
		},
	},
	{
		Name: "victim_not_protected",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if snap.Protection != nil && snap.Protection.IsProtected {
				return &EligibilityResult{
					Code:   ReasonTargetProtected,
					Detail: fmt.Sprintf("target is protected for another %s", formatRemaining(snap.Protection.RemainingMs)),
				}
			}
			return nil
		},
	},
	{
		Name: "daily_limit",
		Run: func(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
			if snap.HeistsToday >= int64(cfg.MaxHeistsPerDay) {
				return &EligibilityResult{
					Code:   ReasonDailyLimitExceeded,
					Detail: fmt.Sprintf("daily limit of %d heists reached", cfg.MaxHeistsPerDay),
				}
			}
			return nil
		},
	},
}

// EligibilityService evaluates whether an attacker may rob a victim.
// The Check path is advisory (fast feedback outside any transaction); the
// executor calls the same chain again on its own tx handle before mutating
// anything, because tokens and cooldown-defining rows can change in between.
type EligibilityService struct {
	Config    *HeistConfig
	Tokens    *TokenService
	Cooldowns *CooldownTracker
}

func NewEligibilityService(cfg *HeistConfig, tokens *TokenService, cooldowns *CooldownTracker) *EligibilityService {
	return &EligibilityService{Config: cfg, Tokens: tokens, Cooldowns: cooldowns}
}

func (s *EligibilityService) loadSnapshot(db *gorm.DB, attackerID, victimID string, now time.Time) (*eligibilitySnapshot, error) {
	snap := &eligibilitySnapshot{AttackerID: attackerID, VictimID: victimID}

	var victim models.LoyaltyUser
	err := db.Where("external_user_id = ?", victimID).First(&victim).Error
	switch {
	case err == nil:
		snap.VictimFound = true
		snap.VictimName = victim.Username
		snap.VictimBalance = victim.Points
	case errors.Is(err, gorm.ErrRecordNotFound):
		// chain reports INVALID_TARGET
	default:
		return nil, fmt.Errorf("failed to load victim: %w", err)
	}

	var tokenRow models.AttackTokenBalance
	err = db.Where("user_id = ?", attackerID).First(&tokenRow).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load token balance: %w", err)
	}
	snap.TokenBalance = tokenRow.Balance

	if snap.Cooldown, err = s.Cooldowns.AttackerCooldown(db, attackerID, now); err != nil {
		return nil, err
	}
	if snap.Protection, err = s.Cooldowns.VictimProtection(db, victimID, now); err != nil {
		return nil, err
	}
	if snap.HeistsToday, err = s.Cooldowns.HeistsToday(db, attackerID, now); err != nil {
		return nil, err
	}
	return snap, nil
}

// evaluate runs the chain, short-circuiting at the first failure.
func evaluate(cfg *HeistConfig, snap *eligibilitySnapshot) *EligibilityResult {
	for _, check := range eligibilityChecks {
		if res := check.Run(cfg, snap); res != nil {
			return res
		}
	}
	return &EligibilityResult{Eligible: true}
}

// Check is the advisory pre-flight evaluation against the given db handle.
func (s *EligibilityService) Check(db *gorm.DB, attackerID, victimID string) (*EligibilityResult, error) {
	snap, err := s.loadSnapshot(db, attackerID, victimID, time.Now())
	if err != nil {
		return nil, err
	}
	return evaluate(s.Config, snap), nil
}

// CheckResult is one named check's verdict in a breakdown.
type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Code   string `json:"code,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// EligibilityBreakdown runs every check independently (no short-circuit)
// for "why can't I attack this person" displays, plus the amount that
// would be stolen if all checks passed.
type EligibilityBreakdown struct {
	Eligible       bool          `json:"eligible"`
	Checks         []CheckResult `json:"checks"`
	FirstFailure   string        `json:"first_failure,omitempty"`
	ProjectedSteal int64         `json:"projected_steal"`
}

// Breakdown evaluates all checks for display purposes.
func (s *EligibilityService) Breakdown(db *gorm.DB, attackerID, victimID string) (*EligibilityBreakdown, error) {
	snap, err := s.loadSnapshot(db, attackerID, victimID, time.Now())
	if err != nil {
		return nil, err
	}

	out := &EligibilityBreakdown{Eligible: true}
	for _, check := range eligibilityChecks {
		cr := CheckResult{Name: check.Name, Passed: true}
		if res := check.Run(s.Config, snap); res != nil {
			cr.Passed = false
			cr.Code = res.Code
			cr.Detail = res.Detail
			if out.Eligible {
				out.FirstFailure = res.Code
			}
			out.Eligible = false
		}
		out.Checks = append(out.Checks, cr)
	}
	out.ProjectedSteal = BaseStealAmount(s.Config, snap.VictimBalance)
	return out, nil
}

// BaseStealAmount is the pre-modifier transfer amount:
// min(floor(victimBalance * stealPercentage), maxPointsPerHeist).
func BaseStealAmount(cfg *HeistConfig, victimBalance int64) int64 {
	if victimBalance <= 0 {
		return 0
	}
	amount := int64(math.Floor(float64(victimBalance) * cfg.StealPercentage))
	if amount > cfg.MaxPointsPerHeist {
		amount = cfg.MaxPointsPerHeist
	}
	return amount
}

func formatRemaining(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return d.Round(time.Minute).String()
}
