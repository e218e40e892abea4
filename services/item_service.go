package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"loyalty-heist-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	ErrItemNotFound = errors.New("item not found")
	ErrItemInactive = errors.New("item is not purchasable")
)

// ItemService owns the heist item catalog and purchase flow. Purchases
// debit platform coins through the Wallet Service; the resulting owned
// instance gets its expiry/uses from the catalog definition.
type ItemService struct {
	DB    *gorm.DB
	Coins CoinLedger
}

func NewItemService(db *gorm.DB, coins CoinLedger) *ItemService {
	return &ItemService{DB: db, Coins: coins}
}

// SeedCatalog upserts the code-defined catalog by slug. Called at startup;
// redeploys update prices/effects in place without duplicating rows.
func (s *ItemService) SeedCatalog() error {
	for _, def := range models.HeistItemCatalog {
		def.ID = uuid.NewString()
		def.Slug = slug.Make(def.Name)
		def.Active = true
		err := s.DB.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "slug"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"name", "description", "type", "effect_type",
				"effect_value", "price_coins", "duration_hours", "max_uses",
			}),
		}).Create(&def).Error
		if err != nil {
			return fmt.Errorf("failed to seed item %q: %w", def.Name, err)
		}
	}
	log.Printf("🛒 Seeded %d heist item(s) into catalog", len(models.HeistItemCatalog))
	return nil
}

// Catalog lists purchasable item definitions.
func (s *ItemService) Catalog() ([]models.ItemDefinition, error) {
	var defs []models.ItemDefinition
	err := s.DB.Where("active = ?", true).Order("price_coins ASC").Find(&defs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load item catalog: %w", err)
	}
	return defs, nil
}

// OwnedItems returns all of a user's item instances, definitions preloaded,
// newest first.
func (s *ItemService) OwnedItems(userID string) ([]models.UserItem, error) {
	var items []models.UserItem
	err := s.DB.Preload("Definition").
		Where("user_id = ?", userID).
		Order("acquired_at DESC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load owned items: %w", err)
	}
	return items, nil
}

// PurchaseItem debits coins and grants the user a fresh instance of the
// catalog item. The coin debit goes through the wallet service first; if
// granting the instance then fails, the purchase is refund-eligible via
// the wallet service's reconciliation (we log the orphaned debit).
func (s *ItemService) PurchaseItem(ctx context.Context, userID, itemSlug string) (*models.UserItem, error) {
	var def models.ItemDefinition
	err := s.DB.Where("slug = ?", itemSlug).First(&def).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("failed to load item definition: %w", err)
	}
	if !def.Active {
		return nil, ErrItemInactive
	}

	if err := s.Coins.DebitCoins(ctx, userID, def.PriceCoins, fmt.Sprintf("heist_item_%s", def.Slug)); err != nil {
		return nil, err
	}

	item := models.UserItem{
		ID:               uuid.NewString(),
		UserID:           userID,
		ItemDefinitionID: def.ID,
		Active:           true,
	}
	if def.DurationHours != nil {
		expires := time.Now().Add(time.Duration(*def.DurationHours) * time.Hour)
		item.ExpiresAt = &expires
	}
	if def.MaxUses != nil {
		uses := *def.MaxUses
		item.UsesRemaining = &uses
	}

	if err := s.DB.Create(&item).Error; err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"item":    def.Slug,
			"coins":   def.PriceCoins,
		}).Error("❌ coin debit succeeded but item grant failed — needs reconciliation")
		return nil, fmt.Errorf("failed to grant item: %w", err)
	}

	item.Definition = def
	log.Printf("🛒 %s purchased %q for %d coins", userID, def.Name, def.PriceCoins)
	return &item, nil
}

// SweepExpired deactivates owned instances whose expiry has passed. The
// pipeline filters these anyway; the sweep keeps listings honest.
func (s *ItemService) SweepExpired() (int64, error) {
	res := s.DB.Model(&models.UserItem{}).
		Where("active = ? AND expires_at IS NOT NULL AND expires_at <= ?", true, time.Now()).
		Update("active", false)
	if res.Error != nil {
		return 0, fmt.Errorf("failed to sweep expired items: %w", res.Error)
	}
	return res.RowsAffected, nil
}
