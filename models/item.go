package models

import "time"

// ItemType separates offensive (attacker) items from defensive (victim) ones
type ItemType string

const (
	ItemTypeAttacker ItemType = "attacker"
	ItemTypeDefender ItemType = "defender"
)

// ItemEffectType is the modifier a heist item applies in the effect pipeline
type ItemEffectType string

const (
	EffectIncreaseStealPercentage ItemEffectType = "increase_steal_percentage" // boost: recomputes the steal % itself
	EffectIncreaseStealBonus      ItemEffectType = "increase_steal_bonus"      // flat bonus points on top
	EffectBlockTheftChance        ItemEffectType = "block_theft_chance"        // % chance the whole attack is blocked
	EffectReduceTheftPercentage   ItemEffectType = "reduce_theft_percentage"   // scales the stolen amount down
)

// ItemDefinition: static catalog entry for a purchasable heist modifier
// (loaded from DB, seeded from HeistItemCatalog)
type ItemDefinition struct {
	ID            string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	Name          string         `gorm:"not null" json:"name"`
	Slug          string         `gorm:"uniqueIndex;not null" json:"slug"` // e.g., "crowbar", "guard-dog"
	Description   string         `json:"description"`
	Type          ItemType       `gorm:"not null;index" json:"type"`
	EffectType    ItemEffectType `gorm:"not null" json:"effect_type"`
	EffectValue   float64        `gorm:"not null" json:"effect_value"` // percentage points, flat points, or block %
	PriceCoins    int64          `gorm:"not null" json:"price_coins"`
	DurationHours *int           `json:"duration_hours,omitempty"` // nil = never expires
	MaxUses       *int           `json:"max_uses,omitempty"`       // nil = unlimited uses
	Active        bool           `gorm:"default:true;index" json:"active"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// UserItem: a user's acquired copy of an ItemDefinition with its own
// expiry and remaining-uses counters (either nil = unlimited).
type UserItem struct {
	ID               string     `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	UserID           string     `gorm:"index;not null" json:"user_id"` // ExternalUserID
	ItemDefinitionID string     `gorm:"index;not null" json:"item_definition_id"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	UsesRemaining    *int       `json:"uses_remaining,omitempty"`
	Active           bool       `gorm:"default:true;index" json:"active"`
	AcquiredAt       time.Time  `gorm:"autoCreateTime" json:"acquired_at"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime" json:"updated_at"`

	Definition ItemDefinition `gorm:"foreignKey:ItemDefinitionID" json:"definition"`
}

// UsableAt reports whether this instance can still participate in a heist:
// not deactivated, not expired, not exhausted, and its catalog entry is
// still active.
func (ui *UserItem) UsableAt(now time.Time) bool {
	if !ui.Active || !ui.Definition.Active {
		return false
	}
	if ui.ExpiresAt != nil && !ui.ExpiresAt.After(now) {
		return false
	}
	if ui.UsesRemaining != nil && *ui.UsesRemaining <= 0 {
		return false
	}
	return true
}

// ItemUsage links a heist to the owned item consumed during it, with the
// effect actually applied broken out into typed columns (so a dashboard can
// reconstruct "why did this attack only net 4 points" without parsing blobs).
type ItemUsage struct {
	ID          string         `gorm:"primaryKey;type:uuid;default:gen_random_uuid()" json:"id"`
	HeistID     string         `gorm:"index;not null" json:"heist_id"`
	UserItemID  string         `gorm:"index;not null" json:"user_item_id"`
	UserID      string         `gorm:"index;not null" json:"user_id"` // owner of the item
	EffectType  ItemEffectType `gorm:"not null" json:"effect_type"`
	EffectValue float64        `gorm:"not null" json:"effect_value"`

	// Amount entering and leaving this pipeline step
	AmountBefore int64 `json:"amount_before"`
	AmountAfter  int64 `json:"amount_after"`
	// Only set for block_theft_chance items: the uniform [0,100) roll
	BlockRoll *float64 `json:"block_roll,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// HeistItemCatalog is the seed catalog (upserted at startup by slug).
var HeistItemCatalog = []ItemDefinition{
	{
		Name:          "Crowbar",
		Description:   "Boosts your steal percentage by 20% for a day.",
		Type:          ItemTypeAttacker,
		EffectType:    EffectIncreaseStealPercentage,
		EffectValue:   20,
		PriceCoins:    150,
		DurationHours: intPtr(24),
	},
	{
		Name:        "Master Key",
		Description: "Boosts your steal percentage by 50%. Single use.",
		Type:        ItemTypeAttacker,
		EffectType:  EffectIncreaseStealPercentage,
		EffectValue: 50,
		PriceCoins:  400,
		MaxUses:     intPtr(1),
	},
	{
		Name:          "Lucky Charm",
		Description:   "Adds a flat 10 bonus points to every successful heist.",
		Type:          ItemTypeAttacker,
		EffectType:    EffectIncreaseStealBonus,
		EffectValue:   10,
		PriceCoins:    200,
		DurationHours: intPtr(48),
	},
	{
		Name:        "Guard Dog",
		Description: "25% chance to completely block an incoming heist.",
		Type:        ItemTypeDefender,
		EffectType:  EffectBlockTheftChance,
		EffectValue: 25,
		PriceCoins:  250,
		MaxUses:     intPtr(3),
	},
	{
		Name:          "Vault Door",
		Description:   "Reduces any amount stolen from you by 40%.",
		Type:          ItemTypeDefender,
		EffectType:    EffectReduceTheftPercentage,
		EffectValue:   40,
		PriceCoins:    300,
		DurationHours: intPtr(72),
	},
}

func intPtr(v int) *int { return &v }
