package assistant

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"maitre/internal/database"
	"maitre/internal/events"
	"maitre/internal/models"
	"maitre/internal/monitoring"
)

const (
	recentOrderLimit = 5
	topItemLimit     = 5
)

// HelpExamples are returned by the help intent
var HelpExamples = []string{
	"mark order 7 as done",
	"cancel order 12",
	"set order 3 to pending",
	"how many pending orders",
	"show me the orders",
	"what is the most popular item",
	"what is on the menu",
}

// StatusWriter persists an order status change. The write must only apply
// while the stored status still equals from.
type StatusWriter interface {
	UpdateOrderStatus(ctx context.Context, id uint, from, to models.OrderStatus) error
}

// Executor turns an analysis into a read or a single status write
type Executor struct {
	writer    StatusWriter
	publisher events.Publisher
	logger    *zap.Logger
	metrics   *monitoring.MetricsCollector
}

// Event sources recorded on status changes
const (
	EventSourceVoice = "voice"
	EventSourceAPI   = "api"
)

// NewExecutor creates an executor. A nil publisher discards events.
func NewExecutor(writer StatusWriter, publisher events.Publisher, logger *zap.Logger, metrics *monitoring.MetricsCollector) *Executor {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		writer:    writer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// Execute runs the branch matching the analysis entities
func (e *Executor) Execute(ctx context.Context, analysis CommandAnalysis, snap Snapshot) ExecutionResult {
	switch ent := analysis.Entities.(type) {
	case OrderStatusEntities:
		return e.updateStatus(ctx, ent, snap, EventSourceVoice)
	case OrderQueryEntities:
		return queryOrders(ent, snap)
	case MenuQueryEntities:
		return queryMenu(ent, snap)
	case HelpEntities:
		return succeeded("Here are some things you can say", HelpInfo{Examples: HelpExamples})
	default:
		return failed(FailureInvalid, "Command not understood. Say \"help\" to hear some examples.")
	}
}

// UpdateStatus applies a status change requested outside the voice
// pipeline, with the same guards.
func (e *Executor) UpdateStatus(ctx context.Context, number int, status models.OrderStatus, snap Snapshot, source string) ExecutionResult {
	return e.updateStatus(ctx, OrderStatusEntities{OrderNumber: &number, Status: &status}, snap, source)
}

func (e *Executor) updateStatus(ctx context.Context, ent OrderStatusEntities, snap Snapshot, source string) ExecutionResult {
	if ent.OrderNumber == nil || ent.Status == nil {
		return failed(FailureInvalid, `Please say both an order number and a status, for example "mark order 7 as done".`)
	}
	number, target := *ent.OrderNumber, *ent.Status

	var order *models.Order
	for i := range snap.Orders {
		if snap.Orders[i].Number == number {
			order = &snap.Orders[i]
			break
		}
	}
	if order == nil {
		return failed(FailureNotFound, fmt.Sprintf("Order #%d not found", number))
	}
	if order.Status == target {
		return failed(FailureUnchanged, fmt.Sprintf("Order %d is already in that status (%s)", number, target))
	}

	previous := order.Status
	if err := e.writer.UpdateOrderStatus(ctx, order.ID, previous, target); err != nil {
		switch {
		case errors.Is(err, database.ErrStatusConflict):
			return failed(FailureConflict, fmt.Sprintf("Order %d was changed by someone else, please check it and try again", number))
		case errors.Is(err, database.ErrOrderNotFound):
			return failed(FailureNotFound, fmt.Sprintf("Order #%d not found", number))
		default:
			e.logger.Error("order status update failed",
				zap.Int("order_number", number),
				zap.String("to", string(target)),
				zap.Error(err),
			)
			return failed(FailureStore, fmt.Sprintf("Could not update order %d right now", number))
		}
	}

	updated := *order
	updated.Status = target
	updated.UpdatedAt = time.Now()
	e.metrics.RecordTransition(string(previous), string(target))

	evt := events.OrderStatusChanged{
		OrderID:        order.ID,
		OrderNumber:    number,
		PreviousStatus: previous,
		NewStatus:      target,
		Source:         source,
		Timestamp:      updated.UpdatedAt.UTC(),
	}
	if err := e.publisher.PublishStatusChanged(ctx, evt); err != nil {
		e.logger.Warn("publish status change failed", zap.Int("order_number", number), zap.Error(err))
	}

	return succeeded(
		fmt.Sprintf("Order %d updated from %s to %s", number, previous, target),
		StatusChange{Order: updated, PreviousStatus: previous, NewStatus: target},
	)
}

func queryOrders(ent OrderQueryEntities, snap Snapshot) ExecutionResult {
	if ent.Filter != nil {
		matching := make([]models.Order, 0)
		for _, o := range snap.Orders {
			if o.Status == *ent.Filter {
				matching = append(matching, o)
			}
		}
		return succeeded(
			fmt.Sprintf("%d %s orders", len(matching), *ent.Filter),
			FilteredOrders{Filter: *ent.Filter, Count: len(matching), Orders: matching},
		)
	}

	recent := make([]models.Order, len(snap.Orders))
	copy(recent, snap.Orders)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].CreatedAt.After(recent[j].CreatedAt)
	})
	if len(recent) > recentOrderLimit {
		recent = recent[:recentOrderLimit]
	}

	counts := models.CountOrders(snap.Orders)
	return succeeded(
		fmt.Sprintf("%d orders in total", counts.Total),
		OrderSummary{OrderCounts: counts, RecentOrders: recent},
	)
}

func queryMenu(ent MenuQueryEntities, snap Snapshot) ExecutionResult {
	if ent.SortByPopularity {
		items := make([]models.MenuItem, len(snap.MenuItems))
		copy(items, snap.MenuItems)
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].TotalOrdered > items[j].TotalOrdered
		})
		if len(items) > topItemLimit {
			items = items[:topItemLimit]
		}

		data := PopularItems{TopItems: items}
		if len(items) > 0 {
			top := items[0]
			data.TopItem = &top
		}
		return succeeded("Most popular menu items", data)
	}

	available := 0
	for _, m := range snap.MenuItems {
		if m.Available {
			available++
		}
	}
	return succeeded(
		fmt.Sprintf("%d of %d menu items available", available, len(snap.MenuItems)),
		MenuSummary{Available: available, Total: len(snap.MenuItems)},
	)
}
