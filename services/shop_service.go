package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/wfunc/sololeveling/catalog"
	"github.com/wfunc/sololeveling/logger"
	"github.com/wfunc/sololeveling/models"
)

type ShopService struct {
	*core
}

func (s *ShopService) Items() []catalog.ShopItem {
	return catalog.ShopItems()
}

// Purchase records the price in the ledger and hands over the item. The
// buyer's balance is not checked.
func (s *ShopService) Purchase(ctx context.Context, userID, itemID string) (*models.InventoryItem, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" {
		verr := &ValidationError{}
		verr.add("itemId", "is required")
		return nil, verr
	}
	shopItem, ok := catalog.FindShopItem(itemID)
	if !ok {
		return nil, ErrUnknownShopItem
	}

	ts := s.now()
	item := &models.InventoryItem{
		UserID:      userID,
		Name:        shopItem.Name,
		Description: shopItem.Description,
		Category:    shopItem.Category,
		Rarity:      shopItem.Rarity(),
		Quantity:    1,
		StatBonuses: datatypes.NewJSONType(models.StatBlock{}),
		CreatedAt:   ts,
	}
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		entry := models.LedgerEntry{
			UserID:    userID,
			Kind:      models.LedgerPurchase,
			Amount:    shopItem.Price,
			Currency:  shopItem.Currency,
			Metadata:  datatypes.NewJSONType(models.LedgerMetadata{ItemID: shopItem.ID}),
			CreatedAt: ts,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		return tx.Create(item).Error
	})
	if err != nil {
		return nil, fmt.Errorf("purchase %s: %w", itemID, err)
	}

	s.observer.Purchase(shopItem.ID)
	logger.Log.Infow("item purchased", "user_id", userID, "item", shopItem.ID, "price", shopItem.Price, "currency", shopItem.Currency)
	return item, nil
}

type InventoryService struct {
	*core
}

func (s *InventoryService) List(ctx context.Context, userID string) ([]models.InventoryItem, error) {
	var items []models.InventoryItem
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	return items, nil
}

// Equip sets the equipped flag on one of the player's items.
func (s *InventoryService) Equip(ctx context.Context, userID, itemID string, equip bool) (*models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.Transaction(ctx, func(tx *gorm.DB) error {
		if err := tx.Where("id = ? AND user_id = ?", itemID, userID).First(&item).Error; err != nil {
			return err
		}
		item.Equipped = equip
		return tx.Model(&item).Update("equipped", equip).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("equip item: %w", err)
	}
	return &item, nil
}
