package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jinzhu/gorm"

	"maitre/internal/models"
)

var (
	// ErrOrderNotFound is returned when no order matches the lookup
	ErrOrderNotFound = errors.New("order not found")
	// ErrStatusConflict is returned when the order no longer has the
	// status the caller observed
	ErrStatusConflict = errors.New("order status changed concurrently")
)

// Store is the gorm-backed order and menu repository
type Store struct {
	db *gorm.DB
}

// NewStore wraps an open database
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// ListOrders returns every order, newest first
func (s *Store) ListOrders(ctx context.Context) ([]models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var orders []models.Order
	if err := s.db.Order("created_at desc").Order("number desc").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ListMenuItems returns the whole menu ordered by name
func (s *Store) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var items []models.MenuItem
	if err := s.db.Order("name asc").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("list menu items: %w", err)
	}
	return items, nil
}

// FindOrderByNumber looks an order up by its display number
func (s *Store) FindOrderByNumber(ctx context.Context, number int) (*models.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var order models.Order
	if err := s.db.Where("number = ?", number).First(&order).Error; err != nil {
		if gorm.IsRecordNotFoundError(err) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("find order %d: %w", number, err)
	}
	return &order, nil
}

// UpdateOrderStatus moves an order from one status to another. The write
// only applies while the stored status still equals from.
func (s *Store) UpdateOrderStatus(ctx context.Context, id uint, from, to models.OrderStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	res := s.db.Model(&models.Order{}).
		Where("id = ? AND status = ?", id, from).
		Update("status", to)
	if res.Error != nil {
		return fmt.Errorf("update order %d status: %w", id, res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var count int
	if err := s.db.Model(&models.Order{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return fmt.Errorf("check order %d: %w", id, err)
	}
	if count == 0 {
		return ErrOrderNotFound
	}
	return ErrStatusConflict
}
