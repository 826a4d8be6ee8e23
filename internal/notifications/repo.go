package notifications

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

// PartyRepository resolves the contact records behind an order.
type PartyRepository interface {
	FindWholesaler(ctx context.Context, id uuid.UUID) (*models.Wholesaler, error)
	FindRetailer(ctx context.Context, id uuid.UUID) (*models.Retailer, error)
}

type partyRepository struct {
	db *gorm.DB
}

// NewPartyRepository builds a party repository bound to the provided DB.
func NewPartyRepository(db *gorm.DB) PartyRepository {
	return &partyRepository{db: db}
}

func (r *partyRepository) FindWholesaler(ctx context.Context, id uuid.UUID) (*models.Wholesaler, error) {
	var wholesaler models.Wholesaler
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&wholesaler).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "wholesaler not found")
		}
		return nil, err
	}
	return &wholesaler, nil
}

func (r *partyRepository) FindRetailer(ctx context.Context, id uuid.UUID) (*models.Retailer, error) {
	var retailer models.Retailer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&retailer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "retailer not found")
		}
		return nil, err
	}
	return &retailer, nil
}
