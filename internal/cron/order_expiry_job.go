package cron

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

const defaultPendingTTL = 240 * time.Hour

// OrderExpiryJobParams configure the stale pending-order sweep.
type OrderExpiryJobParams struct {
	Logger *logger.Logger
	Orders orderSweeper
	TTL    time.Duration
}

// NewOrderExpiryJob builds the cron job that cancels pending orders whose
// payment never arrived. Pending orders hold no stock, so cancellation is a
// pure status change.
func NewOrderExpiryJob(params OrderExpiryJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	ttl := params.TTL
	if ttl <= 0 {
		ttl = defaultPendingTTL
	}
	return &orderExpiryJob{
		logg:   params.Logger,
		orders: params.Orders,
		ttl:    ttl,
		now:    time.Now,
	}, nil
}

type orderExpiryJob struct {
	logg   *logger.Logger
	orders orderSweeper
	ttl    time.Duration
	now    func() time.Time
}

func (j *orderExpiryJob) Name() string { return "order-expiry" }

func (j *orderExpiryJob) Run(ctx context.Context) error {
	now := j.now().UTC()
	cutoff := now.Add(-j.ttl)
	stale, err := j.orders.ListByStatusOlderThan(ctx, enums.OrderStatusPending, cutoff)
	if err != nil {
		return fmt.Errorf("query pending orders for expiry: %w", err)
	}

	var errs []error
	cancelled := 0
	for _, order := range stale {
		// The status guard loses the race to a settling webhook on purpose: a
		// payment that lands mid-sweep wins and the order stays paid.
		applied, err := j.orders.UpdateStatusConditional(ctx, order.ID, enums.OrderStatusPending, enums.OrderStatusCancelled, map[string]any{
			"cancelled_at": now,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("expire order %s: %w", order.ID, err))
			continue
		}
		if applied {
			cancelled++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":    cutoff,
		"matched":   len(stale),
		"cancelled": cancelled,
	})
	j.logg.Info(logCtx, "order expiry loop complete")
	return multierr.Combine(errs...)
}
