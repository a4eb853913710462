package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MenuItem represents a dish on the menu
type MenuItem struct {
	ID           uint            `gorm:"primary_key" json:"id"`
	Name         string          `gorm:"not null" json:"name"`
	Category     string          `json:"category,omitempty"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2)" json:"price"`
	Available    bool            `json:"available"`
	TotalOrdered int             `json:"totalOrdered"`
	CreatedAt    time.Time       `json:"createdAt"`
	UpdatedAt    time.Time       `json:"updatedAt"`
}

// MenuCategory represents the category of a menu item
type MenuCategory string

const (
	MenuCategoryStarter  MenuCategory = "starter"
	MenuCategoryMain     MenuCategory = "main"
	MenuCategoryDessert  MenuCategory = "dessert"
	MenuCategoryBeverage MenuCategory = "beverage"
)

// ValidateMenuItem validates a menu item
func ValidateMenuItem(item *MenuItem) error {
	if item.Name == "" {
		return fmt.Errorf("menu item name is required")
	}
	if !item.Price.IsPositive() {
		return fmt.Errorf("menu item price must be greater than 0")
	}
	if item.TotalOrdered < 0 {
		return fmt.Errorf("menu item order count cannot be negative")
	}
	return nil
}

// BeforeCreate is a gorm hook running ValidateMenuItem
func (mi *MenuItem) BeforeCreate() error {
	return ValidateMenuItem(mi)
}

// IsInCategory checks if the item belongs to a specific category
func (mi *MenuItem) IsInCategory(category MenuCategory) bool {
	return mi.Category == string(category)
}
