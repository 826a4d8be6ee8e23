package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
)

// Repository defines persistence operations for orders.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	FindByPaymentRef(ctx context.Context, ref string) (*models.Order, error)

	// UpdateStatusConditional flips the status only while the order is still
	// in the expected prior state, applying extra column writes atomically.
	// Returns false when the guard did not match (someone got there first).
	UpdateStatusConditional(ctx context.Context, id uuid.UUID, from, to enums.OrderStatus, set map[string]any) (bool, error)

	// AttachPaymentRef binds a checkout reference to an order that has none
	// yet. Re-attaching the same reference is a no-op; a different one is a
	// conflict, the binding never moves.
	AttachPaymentRef(ctx context.Context, id uuid.UUID, ref string) error

	ListByStatusOlderThan(ctx context.Context, status enums.OrderStatus, cutoff time.Time) ([]models.Order, error)
}

// Service exposes order building and lifecycle operations.
type Service interface {
	BuildOrder(ctx context.Context, input BuildOrderInput) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Fulfill(ctx context.Context, id uuid.UUID) (*models.Order, error)
	Refund(ctx context.Context, id uuid.UUID, input RefundInput) (*models.Order, error)
}
