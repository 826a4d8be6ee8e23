package pricing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobiaseke/bulkroom-backend/pkg/config"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
)

const moneyScale = 2

// Line is one priced cart row. UnitPrice is the effective price already
// resolved (promo or list) by the caller.
type Line struct {
	ProductID uuid.UUID
	Name      string
	UnitPrice decimal.Decimal
	Qty       int
}

// FeeSchedule is the frozen fee configuration applied to one order. It is
// always passed explicitly; rates are fractions (0.05 = 5%).
type FeeSchedule struct {
	Mode           enums.FeeMode
	CommissionRate decimal.Decimal
	SurchargeRate  decimal.Decimal
	SurchargeFixed decimal.Decimal
}

// ScheduleFromConfig builds the platform-wide fee schedule from configuration.
func ScheduleFromConfig(cfg config.FeeConfig) (FeeSchedule, error) {
	mode, err := enums.ParseFeeMode(cfg.Mode)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("fee schedule: %w", err)
	}
	return FeeSchedule{
		Mode:           mode,
		CommissionRate: cfg.CommissionRate,
		SurchargeRate:  cfg.SurchargeRate,
		SurchargeFixed: cfg.SurchargeFixed,
	}, nil
}

// Totals is the full money breakdown for one order.
//
// Invariants:
//   - Total = Subtotal + CustomerFee
//   - WholesalerNet + PlatformFee = Subtotal
type Totals struct {
	Subtotal      decimal.Decimal
	PlatformFee   decimal.Decimal
	CustomerFee   decimal.Decimal
	Total         decimal.Decimal
	WholesalerNet decimal.Decimal
	LineTotals    []decimal.Decimal
}

// ComputeOrderTotals prices a cart under the given schedule.
//
// Each line total is rounded to 2 dp before summing; the subtotal is the exact
// sum of rounded line totals and is never re-rounded. Fees are computed from
// the rounded subtotal and rounded once.
//
// Minimum order quantities are not checked here: the calculator never sees the
// product records. The order builder validates each line against its product's
// MOQ before handing the cart over.
func ComputeOrderTotals(lines []Line, schedule FeeSchedule) (*Totals, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "order has no line items")
	}
	if !schedule.Mode.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee schedule mode is invalid")
	}

	subtotal := decimal.Zero
	lineTotals := make([]decimal.Decimal, len(lines))
	for i, line := range lines {
		if line.Qty < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "line quantity must be at least 1").
				WithDetails(map[string]any{"product_id": line.ProductID, "qty": line.Qty})
		}
		if !line.UnitPrice.IsPositive() {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidLineItem, "line unit price must be positive").
				WithDetails(map[string]any{"product_id": line.ProductID, "unit_price": line.UnitPrice.String()})
		}
		lineTotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Qty))).Round(moneyScale)
		lineTotals[i] = lineTotal
		subtotal = subtotal.Add(lineTotal)
	}

	totals := &Totals{
		Subtotal:   subtotal,
		LineTotals: lineTotals,
	}

	switch schedule.Mode {
	case enums.FeeModeWholesalerFunded:
		totals.PlatformFee = subtotal.Mul(schedule.CommissionRate).Round(moneyScale)
		totals.CustomerFee = decimal.Zero.Round(moneyScale)
		totals.Total = subtotal
		totals.WholesalerNet = subtotal.Sub(totals.PlatformFee)

	case enums.FeeModeCustomerFunded:
		totals.CustomerFee = subtotal.Mul(schedule.SurchargeRate).Add(schedule.SurchargeFixed).Round(moneyScale)
		totals.PlatformFee = subtotal.Mul(schedule.CommissionRate).Round(moneyScale)
		totals.Total = subtotal.Add(totals.CustomerFee)
		totals.WholesalerNet = subtotal.Sub(totals.PlatformFee)

	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "fee schedule mode is invalid")
	}

	return totals, nil
}
