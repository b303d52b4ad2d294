package catalog

import "github.com/wfunc/sololeveling/models"

type ShopItem struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Price       int                 `json:"price"`
	Currency    string              `json:"currency"`
	Category    models.ItemCategory `json:"category"`
}

// Rarity of the inventory item a purchase creates.
func (s ShopItem) Rarity() models.Rarity {
	if s.Category == models.CategoryArmor {
		return models.RarityLegendary
	}
	return models.RarityRare
}

var shopItems = []ShopItem{
	{
		ID:          "potion-full-recovery",
		Name:        "Full Recovery Elixir",
		Description: "Fully restores vitality and mana. Recommended after penalty zones.",
		Price:       200,
		Currency:    "GOLD",
		Category:    models.CategoryPotion,
	},
	{
		ID:          "stat-boost",
		Name:        "Stat Booster Capsule",
		Description: "+2 to all stats temporarily (24h).",
		Price:       500,
		Currency:    "GOLD",
		Category:    models.CategoryConsumable,
	},
	{
		ID:          "shadow-armor",
		Name:        "Shadow Armor Set",
		Description: "Legendary armor harnessing shadow energy.",
		Price:       1200,
		Currency:    "DIAMOND",
		Category:    models.CategoryArmor,
	},
}

func ShopItems() []ShopItem {
	out := make([]ShopItem, len(shopItems))
	copy(out, shopItems)
	return out
}

func FindShopItem(id string) (ShopItem, bool) {
	for _, it := range shopItems {
		if it.ID == id {
			return it, true
		}
	}
	return ShopItem{}, false
}
