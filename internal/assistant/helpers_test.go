package assistant

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"maitre/internal/database"
	"maitre/internal/models"
	"maitre/internal/models/providers"
)

type fakeProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
	last    []providers.Message
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(ctx context.Context, messages []providers.Message) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = messages
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", errors.New("no reply queued")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return reply, nil
}

func (f *fakeProvider) SetTemperature(float32) {}
func (f *fakeProvider) SetMaxTokens(int32)     {}

type write struct {
	id       uint
	from, to models.OrderStatus
}

type fakeRepo struct {
	mu       sync.Mutex
	orders   []models.Order
	items    []models.MenuItem
	writes   []write
	writeErr error
	listErr  error
}

func (r *fakeRepo) ListOrders(context.Context) ([]models.Order, error) {
	if r.listErr != nil {
		return nil, r.listErr
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Order, len(r.orders))
	copy(out, r.orders)
	return out, nil
}

func (r *fakeRepo) ListMenuItems(context.Context) ([]models.MenuItem, error) {
	return r.items, nil
}

func (r *fakeRepo) FindOrderByNumber(_ context.Context, number int) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.Number == number {
			o := o
			return &o, nil
		}
	}
	return nil, database.ErrOrderNotFound
}

func (r *fakeRepo) UpdateOrderStatus(_ context.Context, id uint, from, to models.OrderStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.writeErr != nil {
		return r.writeErr
	}
	r.writes = append(r.writes, write{id: id, from: from, to: to})
	for i := range r.orders {
		if r.orders[i].ID == id {
			r.orders[i].Status = to
		}
	}
	return nil
}

func order(id uint, number int, status models.OrderStatus, age time.Duration) models.Order {
	return models.Order{
		ID:        id,
		Number:    number,
		Total:     decimal.NewFromInt(12),
		Status:    status,
		CreatedAt: time.Now().Add(-age),
	}
}

// countsSnapshot has 3 pending, 5 done and 1 cancelled orders
func countsSnapshot() Snapshot {
	var orders []models.Order
	n := 0
	add := func(status models.OrderStatus, count int) {
		for i := 0; i < count; i++ {
			n++
			orders = append(orders, order(uint(n), n, status, time.Duration(n)*time.Minute))
		}
	}
	add(models.OrderStatusPending, 3)
	add(models.OrderStatusDone, 5)
	add(models.OrderStatusCancelled, 1)
	return Snapshot{Orders: orders, MenuItems: menu()}
}

func menu() []models.MenuItem {
	return []models.MenuItem{
		{ID: 1, Name: "Garlic Bread", Price: decimal.NewFromInt(4), Available: true, TotalOrdered: 33},
		{ID: 2, Name: "Pepperoni Pizza", Price: decimal.NewFromInt(13), Available: true, TotalOrdered: 57},
		{ID: 3, Name: "Lemonade", Price: decimal.NewFromInt(3), Available: false, TotalOrdered: 25},
	}
}

func intPtr(n int) *int { return &n }

func statusPtr(s models.OrderStatus) *models.OrderStatus { return &s }
