package services

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"loyalty-heist-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ItemEffectService computes the final transfer amount of a heist from the
// base amount by applying the attacker's boost items and the victim's
// shield items, honoring the victim's minimum-protection floor.
//
// Rand is injectable so tests can force or forbid shield blocks; production
// wiring uses math/rand.
type ItemEffectService struct {
	Config *HeistConfig
	Rand   func() float64 // uniform [0, 1)
}

func NewItemEffectService(cfg *HeistConfig) *ItemEffectService {
	return &ItemEffectService{Config: cfg, Rand: rand.Float64}
}

// AppliedItem records one modifier that actually fired during a heist.
type AppliedItem struct {
	Item         models.UserItem
	EffectType   models.ItemEffectType
	EffectValue  float64
	AmountBefore int64
	AmountAfter  int64
	BlockRoll    *float64 // only set for block-chance shields
}

// PipelineResult is the outcome of one pass through the modifier pipeline.
type PipelineResult struct {
	FinalAmount   int64
	ItemsUsed     []AppliedItem
	ShieldBlocked bool
}

// ActiveItems loads a user's usable items of the given side (attacker or
// defender), definition preloaded. Expiry/exhaustion are filtered both in
// SQL and via UsableAt so a stale Active flag can't sneak an item in.
func (s *ItemEffectService) ActiveItems(db *gorm.DB, userID string, itemType models.ItemType) ([]models.UserItem, error) {
	var items []models.UserItem
	err := db.Joins("Definition").
		Where("user_items.user_id = ? AND user_items.active = ?", userID, true).
		Where(`"Definition".type = ? AND "Definition".active = ?`, itemType, true).
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load active items: %w", err)
	}

	now := time.Now()
	usable := items[:0]
	for _, it := range items {
		if it.UsableAt(now) {
			usable = append(usable, it)
		}
	}
	return usable, nil
}

// bestPerEffectType selects at most one item per effect type: the one with
// the highest EffectValue. Same-type items never stack.
func bestPerEffectType(items []models.UserItem) map[models.ItemEffectType]models.UserItem {
	best := make(map[models.ItemEffectType]models.UserItem)
	for _, it := range items {
		cur, ok := best[it.Definition.EffectType]
		if !ok || it.Definition.EffectValue > cur.Definition.EffectValue {
			best[it.Definition.EffectType] = it
		}
	}
	return best
}

// Apply runs the modifier pipeline in its fixed order:
//  1. attacker percentage boost — recomputes the steal percentage and
//     REPLACES the base amount
//  2. attacker flat bonus — added on top, not percentage-scaled
//  3. victim block chance — one roll; a block zeroes the heist and ends
//     the pipeline (the shield is only consumed when it actually blocks)
//  4. victim percentage reduction
//  5. cap + minimum-protection floor — the victim can never be driven
//     below MinProtectionPercentage of their pre-attack balance
func (s *ItemEffectService) Apply(baseAmount, victimBalance int64, attackerItems, victimItems []models.UserItem) *PipelineResult {
	result := &PipelineResult{FinalAmount: baseAmount}
	attacker := bestPerEffectType(attackerItems)
	victim := bestPerEffectType(victimItems)

	amount := baseAmount

	if boost, ok := attacker[models.EffectIncreaseStealPercentage]; ok {
		pct := s.Config.StealPercentage * (1 + boost.Definition.EffectValue/100)
		boosted := int64(math.Floor(float64(victimBalance) * pct))
		result.ItemsUsed = append(result.ItemsUsed, AppliedItem{
			Item:         boost,
			EffectType:   models.EffectIncreaseStealPercentage,
			EffectValue:  boost.Definition.EffectValue,
			AmountBefore: amount,
			AmountAfter:  boosted,
		})
		amount = boosted
	}

	if bonus, ok := attacker[models.EffectIncreaseStealBonus]; ok {
		added := amount + int64(bonus.Definition.EffectValue)
		result.ItemsUsed = append(result.ItemsUsed, AppliedItem{
			Item:         bonus,
			EffectType:   models.EffectIncreaseStealBonus,
			EffectValue:  bonus.Definition.EffectValue,
			AmountBefore: amount,
			AmountAfter:  added,
		})
		amount = added
	}

	if shield, ok := victim[models.EffectBlockTheftChance]; ok {
		roll := s.Rand() * 100
		if roll < shield.Definition.EffectValue {
			result.ItemsUsed = append(result.ItemsUsed, AppliedItem{
				Item:         shield,
				EffectType:   models.EffectBlockTheftChance,
				EffectValue:  shield.Definition.EffectValue,
				AmountBefore: amount,
				AmountAfter:  0,
				BlockRoll:    &roll,
			})
			result.FinalAmount = 0
			result.ShieldBlocked = true
			return result
		}
		// roll survived: the shield is not consumed and not recorded
	}

	if reduction, ok := victim[models.EffectReduceTheftPercentage]; ok {
		reduced := int64(math.Floor(float64(amount) * (1 - reduction.Definition.EffectValue/100)))
		result.ItemsUsed = append(result.ItemsUsed, AppliedItem{
			Item:         reduction,
			EffectType:   models.EffectReduceTheftPercentage,
			EffectValue:  reduction.Definition.EffectValue,
			AmountBefore: amount,
			AmountAfter:  reduced,
		})
		amount = reduced
	}

	if amount > s.Config.MaxPointsPerHeist {
		amount = s.Config.MaxPointsPerHeist
	}

	// Final, unconditional invariant: the protection floor.
	maxTakeable := victimBalance - int64(math.Floor(float64(victimBalance)*s.Config.MinProtectionPercentage))
	if amount > maxTakeable {
		amount = maxTakeable
	}
	if amount < 0 {
		amount = 0
	}

	result.FinalAmount = amount
	return result
}

// RecordUsages writes the usage audit rows and decrements each consumed
// item's remaining uses, deactivating exhausted instances. Runs on the
// heist transaction handle so an aborted heist consumes nothing.
func (s *ItemEffectService) RecordUsages(tx *gorm.DB, heistID string, used []AppliedItem) error {
	for _, applied := range used {
		usage := models.ItemUsage{
			ID:           uuid.NewString(),
			HeistID:      heistID,
			UserItemID:   applied.Item.ID,
			UserID:       applied.Item.UserID,
			EffectType:   applied.EffectType,
			EffectValue:  applied.EffectValue,
			AmountBefore: applied.AmountBefore,
			AmountAfter:  applied.AmountAfter,
			BlockRoll:    applied.BlockRoll,
		}
		if err := tx.Create(&usage).Error; err != nil {
			return fmt.Errorf("failed to record item usage: %w", err)
		}

		if applied.Item.UsesRemaining == nil {
			continue // unlimited uses
		}
		remaining := *applied.Item.UsesRemaining - 1
		updates := map[string]interface{}{"uses_remaining": remaining}
		if remaining <= 0 {
			updates["active"] = false
		}
		if err := tx.Model(&models.UserItem{}).
			Where("id = ?", applied.Item.ID).
			Updates(updates).Error; err != nil {
			return fmt.Errorf("failed to decrement item uses: %w", err)
		}
	}
	return nil
}
