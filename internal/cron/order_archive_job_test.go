package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
)

type sweepCall struct {
	id   uuid.UUID
	from enums.OrderStatus
	to   enums.OrderStatus
	set  map[string]any
}

type fakeSweeper struct {
	orders     []models.Order
	listErr    error
	lastStatus enums.OrderStatus
	lastCutoff time.Time
	calls      []sweepCall
	applied    map[uuid.UUID]bool
	updateErr  error
}

func (f *fakeSweeper) ListByStatusOlderThan(_ context.Context, status enums.OrderStatus, cutoff time.Time) ([]models.Order, error) {
	f.lastStatus = status
	f.lastCutoff = cutoff
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.orders, nil
}

func (f *fakeSweeper) UpdateStatusConditional(_ context.Context, id uuid.UUID, from, to enums.OrderStatus, set map[string]any) (bool, error) {
	f.calls = append(f.calls, sweepCall{id: id, from: from, to: to, set: set})
	if f.updateErr != nil {
		return false, f.updateErr
	}
	if f.applied == nil {
		return true, nil
	}
	return f.applied[id], nil
}

func newArchiveJob(t *testing.T, sweeper *fakeSweeper) *orderArchiveJob {
	t.Helper()
	jobIface, err := NewOrderArchiveJob(OrderArchiveJobParams{
		Logger: cronTestLogger(),
		Orders: sweeper,
	})
	if err != nil {
		t.Fatalf("NewOrderArchiveJob: %v", err)
	}
	job, ok := jobIface.(*orderArchiveJob)
	if !ok {
		t.Fatalf("expected orderArchiveJob, got %T", jobIface)
	}
	return job
}

func TestOrderArchiveJobArchivesFulfilledOrders(t *testing.T) {
	now := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)
	first, second := uuid.New(), uuid.New()
	sweeper := &fakeSweeper{orders: []models.Order{
		{ID: first, Status: enums.OrderStatusFulfilled},
		{ID: second, Status: enums.OrderStatusFulfilled},
	}}
	job := newArchiveJob(t, sweeper)
	job.now = func() time.Time { return now }

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	if sweeper.lastStatus != enums.OrderStatusFulfilled {
		t.Fatalf("queried status %s", sweeper.lastStatus)
	}
	expectedCutoff := now.Add(-defaultArchiveAfter)
	if !sweeper.lastCutoff.Equal(expectedCutoff) {
		t.Fatalf("expected cutoff %s, got %s", expectedCutoff, sweeper.lastCutoff)
	}
	if len(sweeper.calls) != 2 {
		t.Fatalf("expected 2 updates, got %d", len(sweeper.calls))
	}
	for _, call := range sweeper.calls {
		if call.from != enums.OrderStatusFulfilled || call.to != enums.OrderStatusArchived {
			t.Fatalf("unexpected transition %s -> %s", call.from, call.to)
		}
	}
}

func TestOrderArchiveJobToleratesLostGuards(t *testing.T) {
	// An order that moved off fulfilled between the query and the update is
	// skipped silently, not treated as a failure.
	id := uuid.New()
	sweeper := &fakeSweeper{
		orders:  []models.Order{{ID: id, Status: enums.OrderStatusFulfilled}},
		applied: map[uuid.UUID]bool{id: false},
	}
	job := newArchiveJob(t, sweeper)

	if err := job.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(sweeper.calls) != 1 {
		t.Fatalf("expected 1 update attempt, got %d", len(sweeper.calls))
	}
}

func TestOrderArchiveJobCollectsUpdateErrors(t *testing.T) {
	sweeper := &fakeSweeper{
		orders: []models.Order{
			{ID: uuid.New(), Status: enums.OrderStatusFulfilled},
			{ID: uuid.New(), Status: enums.OrderStatusFulfilled},
		},
		updateErr: errors.New("db down"),
	}
	job := newArchiveJob(t, sweeper)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	// Every order is still attempted despite the failures.
	if len(sweeper.calls) != 2 {
		t.Fatalf("expected 2 update attempts, got %d", len(sweeper.calls))
	}
}

func TestOrderArchiveJobPropagatesListError(t *testing.T) {
	sweeper := &fakeSweeper{listErr: errors.New("boom")}
	job := newArchiveJob(t, sweeper)

	if err := job.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(sweeper.calls) != 0 {
		t.Fatalf("expected no updates, got %d", len(sweeper.calls))
	}
}
