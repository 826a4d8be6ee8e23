package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

// Deduct atomically removes qty units of stock inside the caller's
// transaction. The guard clause makes the read-check-write race-free: zero
// affected rows means the stock was insufficient at execution time.
// Every successful deduction writes a StockMovement audit row.
func Deduct(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason enums.StockMovementReason, orderID *uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory deduct requires a transaction")
	}
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "deduct quantity must be at least 1").
			WithDetails(map[string]any{"product_id": productID, "qty": qty})
	}

	result := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_qty >= ?", productID, qty).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty - ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return insufficientOrMissing(ctx, tx, productID, qty)
	}

	return recordMovement(ctx, tx, productID, -qty, reason, orderID)
}

// Restore unconditionally returns qty units of stock (cancel/refund paths).
// It fails only when the product row no longer exists.
func Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, reason enums.StockMovementReason, orderID *uuid.UUID) error {
	if tx == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "inventory restore requires a transaction")
	}
	if qty < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "restore quantity must be at least 1").
			WithDetails(map[string]any{"product_id": productID, "qty": qty})
	}

	result := tx.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", productID).
		UpdateColumn("stock_qty", gorm.Expr("stock_qty + ?", qty))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found for stock restore").
			WithDetails(map[string]any{"product_id": productID})
	}

	return recordMovement(ctx, tx, productID, qty, reason, orderID)
}

func insufficientOrMissing(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	var product models.Product
	err := tx.WithContext(ctx).Select("id", "stock_qty").Where("id = ?", productID).First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found for stock deduction").
				WithDetails(map[string]any{"product_id": productID})
		}
		return err
	}
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock for deduction").
		WithDetails(map[string]any{
			"product_id": productID,
			"requested":  qty,
			"available":  product.StockQty,
		})
}

func recordMovement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta int, reason enums.StockMovementReason, orderID *uuid.UUID) error {
	var product models.Product
	if err := tx.WithContext(ctx).Select("id", "stock_qty").Where("id = ?", productID).First(&product).Error; err != nil {
		return err
	}

	movement := models.StockMovement{
		ID:           uuid.New(),
		ProductID:    productID,
		Delta:        delta,
		ResultingQty: product.StockQty,
		Reason:       reason,
		OrderID:      orderID,
	}
	return tx.WithContext(ctx).Create(&movement).Error
}
