package services

import (
	"testing"

	"loyalty-heist-system/models"
)

func testConfig() *HeistConfig {
	return &HeistConfig{
		Enabled:                 true,
		TokenCost:               1,
		StealPercentage:         0.05,
		MaxPointsPerHeist:       100,
		MinVictimPoints:         100,
		AttackerCooldownHours:   4,
		VictimProtectionHours:   8,
		MaxHeistsPerDay:         5,
		ItemsEnabled:            true,
		MinProtectionPercentage: 0.10,
	}
}

func testItem(itemType models.ItemType, effect models.ItemEffectType, value float64) models.UserItem {
	return models.UserItem{
		ID:     "item-" + string(effect),
		UserID: "owner",
		Active: true,
		Definition: models.ItemDefinition{
			Type:        itemType,
			EffectType:  effect,
			EffectValue: value,
			Active:      true,
		},
	}
}

func pipelineWithRoll(roll float64) *ItemEffectService {
	svc := NewItemEffectService(testConfig())
	svc.Rand = func() float64 { return roll / 100 }
	return svc
}

func TestApplyNoItems(t *testing.T) {
	svc := pipelineWithRoll(99)
	res := svc.Apply(50, 1000, nil, nil)
	if res.FinalAmount != 50 {
		t.Errorf("FinalAmount = %d, want 50", res.FinalAmount)
	}
	if res.ShieldBlocked || len(res.ItemsUsed) != 0 {
		t.Errorf("unexpected items/shield: %+v", res)
	}
}

func TestApplyBoostReplacesBaseAmount(t *testing.T) {
	// 1000 * 0.05 = 50 base; +20% boost -> 0.06 -> 60
	svc := pipelineWithRoll(99)
	boost := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealPercentage, 20)

	res := svc.Apply(50, 1000, []models.UserItem{boost}, nil)
	if res.FinalAmount != 60 {
		t.Errorf("FinalAmount = %d, want 60", res.FinalAmount)
	}
	if len(res.ItemsUsed) != 1 {
		t.Fatalf("ItemsUsed = %d, want 1", len(res.ItemsUsed))
	}
	if res.ItemsUsed[0].AmountBefore != 50 || res.ItemsUsed[0].AmountAfter != 60 {
		t.Errorf("applied amounts = %d -> %d, want 50 -> 60",
			res.ItemsUsed[0].AmountBefore, res.ItemsUsed[0].AmountAfter)
	}
}

func TestApplyBonusIsAdditive(t *testing.T) {
	svc := pipelineWithRoll(99)
	boost := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealPercentage, 20)
	bonus := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealBonus, 10)

	// boost first (60), then flat +10 = 70
	res := svc.Apply(50, 1000, []models.UserItem{boost, bonus}, nil)
	if res.FinalAmount != 70 {
		t.Errorf("FinalAmount = %d, want 70", res.FinalAmount)
	}
	if len(res.ItemsUsed) != 2 {
		t.Errorf("ItemsUsed = %d, want 2", len(res.ItemsUsed))
	}
}

func TestApplyGuaranteedBlock(t *testing.T) {
	svc := pipelineWithRoll(50) // any roll blocks against a 100% shield
	shield := testItem(models.ItemTypeDefender, models.EffectBlockTheftChance, 100)
	reduction := testItem(models.ItemTypeDefender, models.EffectReduceTheftPercentage, 40)

	res := svc.Apply(50, 1000, nil, []models.UserItem{shield, reduction})
	if !res.ShieldBlocked {
		t.Fatal("expected shield block")
	}
	if res.FinalAmount != 0 {
		t.Errorf("FinalAmount = %d, want 0", res.FinalAmount)
	}
	// Only the shield is consumed; the reduction item never ran.
	if len(res.ItemsUsed) != 1 {
		t.Fatalf("ItemsUsed = %d, want 1", len(res.ItemsUsed))
	}
	if res.ItemsUsed[0].EffectType != models.EffectBlockTheftChance {
		t.Errorf("consumed item = %s, want block shield", res.ItemsUsed[0].EffectType)
	}
	if res.ItemsUsed[0].BlockRoll == nil || *res.ItemsUsed[0].BlockRoll != 50 {
		t.Errorf("BlockRoll = %v, want 50", res.ItemsUsed[0].BlockRoll)
	}
}

func TestApplySurvivedRollDoesNotConsumeShield(t *testing.T) {
	svc := pipelineWithRoll(99) // 99 >= 25: shield does not fire
	shield := testItem(models.ItemTypeDefender, models.EffectBlockTheftChance, 25)

	res := svc.Apply(50, 1000, nil, []models.UserItem{shield})
	if res.ShieldBlocked {
		t.Fatal("shield should not have blocked")
	}
	if res.FinalAmount != 50 {
		t.Errorf("FinalAmount = %d, want 50", res.FinalAmount)
	}
	if len(res.ItemsUsed) != 0 {
		t.Errorf("a surviving shield must not be consumed, got %d usages", len(res.ItemsUsed))
	}
}

func TestApplyReductionScalesDown(t *testing.T) {
	svc := pipelineWithRoll(99)
	reduction := testItem(models.ItemTypeDefender, models.EffectReduceTheftPercentage, 40)

	// floor(50 * 0.6) = 30
	res := svc.Apply(50, 1000, nil, []models.UserItem{reduction})
	if res.FinalAmount != 30 {
		t.Errorf("FinalAmount = %d, want 30", res.FinalAmount)
	}
}

func TestApplyProtectionFloor(t *testing.T) {
	// Victim has 100 points, 10% protected: at most 90 can ever be taken.
	svc := pipelineWithRoll(99)
	boost := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealPercentage, 10000)

	res := svc.Apply(5, 100, []models.UserItem{boost}, nil)
	if res.FinalAmount > 90 {
		t.Errorf("FinalAmount = %d, must not exceed 90 (protection floor)", res.FinalAmount)
	}
}

func TestApplyCapClampsBoostedAmount(t *testing.T) {
	cfg := testConfig()
	cfg.MaxPointsPerHeist = 55
	svc := NewItemEffectService(cfg)
	svc.Rand = func() float64 { return 0.99 }

	boost := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealPercentage, 20)
	res := svc.Apply(50, 1000, []models.UserItem{boost}, nil)
	if res.FinalAmount != 55 {
		t.Errorf("FinalAmount = %d, want cap of 55", res.FinalAmount)
	}
}

func TestApplyNegativeClampsToZero(t *testing.T) {
	svc := pipelineWithRoll(99)
	res := svc.Apply(0, 0, nil, nil)
	if res.FinalAmount != 0 {
		t.Errorf("FinalAmount = %d, want 0", res.FinalAmount)
	}
}

func TestBestPerEffectTypePicksHighestValue(t *testing.T) {
	weak := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealPercentage, 10)
	weak.ID = "weak"
	strong := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealPercentage, 50)
	strong.ID = "strong"
	bonus := testItem(models.ItemTypeAttacker, models.EffectIncreaseStealBonus, 5)

	best := bestPerEffectType([]models.UserItem{weak, strong, bonus})
	if len(best) != 2 {
		t.Fatalf("best map size = %d, want 2", len(best))
	}
	if got := best[models.EffectIncreaseStealPercentage]; got.ID != "strong" {
		t.Errorf("selected boost = %s, want strong", got.ID)
	}
}
