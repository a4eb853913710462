package assistant

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"maitre/internal/database"
	"maitre/internal/events"
	"maitre/internal/models"
)

func statusAnalysis(number *int, status *models.OrderStatus) CommandAnalysis {
	return newAnalysis(OrderStatusEntities{OrderNumber: number, Status: status}, ConfidenceStatus, "")
}

func TestExecuteOrderStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("cancel pending order", func(t *testing.T) {
		repo := &fakeRepo{orders: []models.Order{order(3, 42, models.OrderStatusPending, time.Minute)}}
		rec := &events.Recorder{}
		e := NewExecutor(repo, rec, nil, nil)

		res := e.Execute(ctx, DefaultNormalizer().FallbackAnalysis("cancel order 42"), Snapshot{Orders: repo.orders})
		require.True(t, res.Success, res.Error)

		data, ok := res.Data.(StatusChange)
		require.True(t, ok)
		assert.Equal(t, models.OrderStatusPending, data.PreviousStatus)
		assert.Equal(t, models.OrderStatusCancelled, data.NewStatus)
		assert.Equal(t, models.OrderStatusCancelled, data.Order.Status)

		assert.Equal(t, []write{{id: 3, from: models.OrderStatusPending, to: models.OrderStatusCancelled}}, repo.writes)

		published := rec.Events()
		require.Len(t, published, 1)
		assert.Equal(t, 42, published[0].OrderNumber)
		assert.Equal(t, EventSourceVoice, published[0].Source)
	})

	t.Run("order not found", func(t *testing.T) {
		repo := &fakeRepo{}
		e := NewExecutor(repo, nil, nil, nil)

		res := e.Execute(ctx, statusAnalysis(intPtr(99), statusPtr(models.OrderStatusDone)), countsSnapshot())
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "not found")
		assert.Equal(t, FailureNotFound, res.Failure)
		assert.Empty(t, repo.writes)
	})

	t.Run("already in status", func(t *testing.T) {
		repo := &fakeRepo{}
		e := NewExecutor(repo, nil, nil, nil)

		res := e.Execute(ctx, statusAnalysis(intPtr(4), statusPtr(models.OrderStatusDone)), countsSnapshot())
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "already in that status")
		assert.Equal(t, FailureUnchanged, res.Failure)
		assert.Empty(t, repo.writes)
	})

	t.Run("missing entities", func(t *testing.T) {
		repo := &fakeRepo{}
		e := NewExecutor(repo, nil, nil, nil)

		for _, a := range []CommandAnalysis{
			statusAnalysis(nil, statusPtr(models.OrderStatusDone)),
			statusAnalysis(intPtr(1), nil),
		} {
			res := e.Execute(ctx, a, countsSnapshot())
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "order number and a status")
			assert.Equal(t, FailureInvalid, res.Failure)
		}
		assert.Empty(t, repo.writes)
	})

	t.Run("concurrent change", func(t *testing.T) {
		repo := &fakeRepo{writeErr: database.ErrStatusConflict}
		e := NewExecutor(repo, nil, nil, nil)

		res := e.Execute(ctx, statusAnalysis(intPtr(1), statusPtr(models.OrderStatusCancelled)), countsSnapshot())
		assert.False(t, res.Success)
		assert.Contains(t, res.Error, "changed by someone else")
		assert.Equal(t, FailureConflict, res.Failure)
	})

	t.Run("storage failure", func(t *testing.T) {
		repo := &fakeRepo{writeErr: errors.New("connection reset")}
		rec := &events.Recorder{}
		e := NewExecutor(repo, rec, nil, nil)

		res := e.Execute(ctx, statusAnalysis(intPtr(1), statusPtr(models.OrderStatusDone)), countsSnapshot())
		assert.False(t, res.Success)
		assert.Equal(t, FailureStore, res.Failure)
		assert.Empty(t, rec.Events())
	})
}

func TestExecuteOrderQuery(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil, nil)
	snap := countsSnapshot()

	res := e.Execute(context.Background(), newAnalysis(OrderQueryEntities{}, ConfidenceQuery, ""), snap)
	require.True(t, res.Success)

	data, ok := res.Data.(OrderSummary)
	require.True(t, ok)
	assert.Equal(t, models.OrderCounts{Pending: 3, Done: 5, Cancelled: 1, Total: 9}, data.OrderCounts)
	require.Len(t, data.RecentOrders, 5)
	assert.Equal(t, 1, data.RecentOrders[0].Number, "newest first")

	res = e.Execute(context.Background(), newAnalysis(OrderQueryEntities{Filter: statusPtr(models.OrderStatusPending)}, 0.9, ""), snap)
	require.True(t, res.Success)

	filtered, ok := res.Data.(FilteredOrders)
	require.True(t, ok)
	assert.Equal(t, 3, filtered.Count)
	assert.Len(t, filtered.Orders, 3)
	for _, o := range filtered.Orders {
		assert.Equal(t, models.OrderStatusPending, o.Status)
	}
}

func TestExecuteMenuQuery(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil, nil)
	snap := countsSnapshot()

	res := e.Execute(context.Background(), newAnalysis(MenuQueryEntities{}, ConfidenceMenu, ""), snap)
	require.True(t, res.Success)
	assert.Equal(t, MenuSummary{Available: 2, Total: 3}, res.Data)

	res = e.Execute(context.Background(), newAnalysis(MenuQueryEntities{SortByPopularity: true}, ConfidenceMenu, ""), snap)
	require.True(t, res.Success)

	data := res.Data.(PopularItems)
	require.NotNil(t, data.TopItem)
	assert.Equal(t, "Pepperoni Pizza", data.TopItem.Name)
	assert.Equal(t, []int{57, 33, 25}, []int{data.TopItems[0].TotalOrdered, data.TopItems[1].TotalOrdered, data.TopItems[2].TotalOrdered})

	res = e.Execute(context.Background(), newAnalysis(MenuQueryEntities{SortByPopularity: true}, ConfidenceMenu, ""), Snapshot{})
	require.True(t, res.Success)
	assert.Nil(t, res.Data.(PopularItems).TopItem)
}

func TestExecuteHelpAndUnknown(t *testing.T) {
	e := NewExecutor(&fakeRepo{}, nil, nil, nil)

	res := e.Execute(context.Background(), newAnalysis(HelpEntities{}, ConfidenceHelp, ""), Snapshot{})
	require.True(t, res.Success)
	assert.Equal(t, HelpExamples, res.Data.(HelpInfo).Examples)

	res = e.Execute(context.Background(), newAnalysis(UnknownEntities{}, ConfidenceUnknown, ""), Snapshot{})
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "Command not understood")
}

func TestUpdateStatusFromAPI(t *testing.T) {
	repo := &fakeRepo{orders: []models.Order{order(1, 5, models.OrderStatusPending, 0)}}
	rec := &events.Recorder{}
	e := NewExecutor(repo, rec, nil, nil)

	res := e.UpdateStatus(context.Background(), 5, models.OrderStatusDone, Snapshot{Orders: repo.orders}, EventSourceAPI)
	require.True(t, res.Success)
	assert.Equal(t, EventSourceAPI, rec.Events()[0].Source)
}
