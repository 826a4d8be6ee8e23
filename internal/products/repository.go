package products

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

// Repository defines catalog reads used by order building and settlement.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindActiveByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]models.Product, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "product not found").
				WithDetails(map[string]any{"product_id": id})
		}
		return nil, err
	}
	return &product, nil
}

func (r *repository) FindActiveByWholesaler(ctx context.Context, wholesalerID uuid.UUID) ([]models.Product, error) {
	var listings []models.Product
	err := r.db.WithContext(ctx).
		Where("wholesaler_id = ? AND is_active = ?", wholesalerID, true).
		Order("name ASC").
		Find(&listings).Error
	if err != nil {
		return nil, err
	}
	return listings, nil
}
