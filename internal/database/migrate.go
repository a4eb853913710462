package database

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	"github.com/shopspring/decimal"

	"maitre/internal/models"
)

// Migrate creates or updates the orders and menu_items tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.Order{}, &models.MenuItem{}).Error; err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Seed inserts a default menu and a handful of orders when the tables are
// empty. Orders are normally created by the customer checkout flow.
func Seed(db *gorm.DB) error {
	var menuCount int
	if err := db.Model(&models.MenuItem{}).Count(&menuCount).Error; err != nil {
		return fmt.Errorf("count menu items: %w", err)
	}
	if menuCount == 0 {
		for _, item := range defaultMenu() {
			item := item
			if err := db.Create(&item).Error; err != nil {
				return fmt.Errorf("seed menu item %s: %w", item.Name, err)
			}
		}
	}

	var orderCount int
	if err := db.Model(&models.Order{}).Count(&orderCount).Error; err != nil {
		return fmt.Errorf("count orders: %w", err)
	}
	if orderCount == 0 {
		now := time.Now()
		for i, o := range defaultOrders() {
			o := o
			o.CreatedAt = now.Add(time.Duration(i-len(defaultOrders())) * 10 * time.Minute)
			if err := db.Create(&o).Error; err != nil {
				return fmt.Errorf("seed order %d: %w", o.Number, err)
			}
		}
	}
	return nil
}

func price(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func defaultMenu() []models.MenuItem {
	return []models.MenuItem{
		{Name: "Margherita Pizza", Category: string(models.MenuCategoryMain), Price: price("11.50"), Available: true, TotalOrdered: 42},
		{Name: "Pepperoni Pizza", Category: string(models.MenuCategoryMain), Price: price("13.00"), Available: true, TotalOrdered: 57},
		{Name: "Caesar Salad", Category: string(models.MenuCategoryStarter), Price: price("8.25"), Available: true, TotalOrdered: 18},
		{Name: "Garlic Bread", Category: string(models.MenuCategoryStarter), Price: price("4.50"), Available: true, TotalOrdered: 33},
		{Name: "Tiramisu", Category: string(models.MenuCategoryDessert), Price: price("6.75"), Available: true, TotalOrdered: 12},
		{Name: "Lemonade", Category: string(models.MenuCategoryBeverage), Price: price("3.00"), Available: false, TotalOrdered: 25},
	}
}

func defaultOrders() []models.Order {
	return []models.Order{
		{Number: 1, Total: price("24.50"), Status: models.OrderStatusDone},
		{Number: 2, Total: price("13.00"), Status: models.OrderStatusDone},
		{Number: 3, Total: price("31.75"), Status: models.OrderStatusCancelled},
		{Number: 4, Total: price("15.50"), Status: models.OrderStatusPending},
		{Number: 5, Total: price("8.25"), Status: models.OrderStatusPending, Note: "no croutons"},
		{Number: 6, Total: price("19.75"), Status: models.OrderStatusPending},
	}
}
