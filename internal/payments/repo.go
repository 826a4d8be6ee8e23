package payments

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

// PartyRepository resolves the parties behind a checkout and records the
// wholesaler's settlement destination once the gateway has issued one.
type PartyRepository interface {
	FindWholesaler(ctx context.Context, id uuid.UUID) (*models.Wholesaler, error)
	FindRetailer(ctx context.Context, id uuid.UUID) (*models.Retailer, error)
	SaveWholesalerSubaccount(ctx context.Context, id uuid.UUID, code string) error
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

func (r *partyRepository) SaveWholesalerSubaccount(ctx context.Context, id uuid.UUID, code string) error {
	result := r.db.WithContext(ctx).
		Model(&models.Wholesaler{}).
		Where("id = ?", id).
		Update("subaccount_code", code)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.New(pkgerrors.CodeNotFound, "wholesaler not found").
			WithDetails(map[string]any{"wholesaler_id": id})
	}
	return nil
}
