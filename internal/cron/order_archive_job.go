package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

const defaultArchiveAfter = 24 * time.Hour

// orderSweeper is the slice of the orders repository the sweep jobs use. The
// conditional update keyed on the observed status makes every sweep safe to
// rerun and safe against concurrent settlement.
type orderSweeper interface {
	ListByStatusOlderThan(ctx context.Context, status enums.OrderStatus, cutoff time.Time) ([]models.Order, error)
	UpdateStatusConditional(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, set map[string]any) (bool, error)
}

// OrderArchiveJobParams configure the fulfilled-order archiver.
type OrderArchiveJobParams struct {
	Logger *logger.Logger
	Orders orderSweeper
	After  time.Duration
}

// NewOrderArchiveJob builds the cron job that moves fulfilled orders into the
// archive once they have been quiet long enough.
func NewOrderArchiveJob(params OrderArchiveJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Orders == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	after := params.After
	if after <= 0 {
		after = defaultArchiveAfter
	}
	return &orderArchiveJob{
		logg:   params.Logger,
		orders: params.Orders,
		after:  after,
		now:    time.Now,
	}, nil
}

type orderArchiveJob struct {
	logg   *logger.Logger
	orders orderSweeper
	after  time.Duration
	now    func() time.Time
}

func (j *orderArchiveJob) Name() string { return "order-archive" }

func (j *orderArchiveJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.after)
	stale, err := j.orders.ListByStatusOlderThan(ctx, enums.OrderStatusFulfilled, cutoff)
	if err != nil {
		return fmt.Errorf("query fulfilled orders for archive: %w", err)
	}

	var errs []error
	archived := 0
	for _, order := range stale {
		applied, err := j.orders.UpdateStatusConditional(ctx, order.ID, enums.OrderStatusFulfilled, enums.OrderStatusArchived, nil)
		if err != nil {
			errs = append(errs, fmt.Errorf("archive order %s: %w", order.ID, err))
			continue
		}
		if applied {
			archived++
		}
	}

	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":   cutoff,
		"matched":  len(stale),
		"archived": archived,
	})
	j.logg.Info(logCtx, "order archive loop complete")
	return multierr.Combine(errs...)
}
