package notifications

import (
	"context"
	"fmt"

	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
	"github.com/tobiaseke/bulkroom-backend/pkg/mailer"
)

type mailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type textSender interface {
	SendText(ctx context.Context, phone, text string) error
}

// Dispatcher sends post-settlement notifications. Every method is
// best-effort: failures are logged and swallowed so notification outages can
// never affect settlement.
type Dispatcher struct {
	parties PartyRepository
	mail    mailSender
	text    textSender
	logg    *logger.Logger
}

// NewDispatcher builds the notification dispatcher. mail and text may be nil
// when the corresponding channel is not configured.
func NewDispatcher(parties PartyRepository, mail mailSender, text textSender, logg *logger.Logger) (*Dispatcher, error) {
	if parties == nil {
		return nil, fmt.Errorf("party repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Dispatcher{parties: parties, mail: mail, text: text, logg: logg}, nil
}

// OrderPaid notifies both sides of a settled order: a confirmation email to
// the retailer and a new-order text to the wholesaler.
func (d *Dispatcher) OrderPaid(ctx context.Context, order *models.Order) {
	if order == nil {
		return
	}
	ctx = d.logg.WithOrderID(ctx, order.ID.String())

	d.notifyRetailer(ctx, order)
	d.notifyWholesaler(ctx, order)
}

func (d *Dispatcher) notifyRetailer(ctx context.Context, order *models.Order) {
	if d.mail == nil {
		return
	}

	retailer, err := d.parties.FindRetailer(ctx, order.RetailerID)
	if err != nil {
		d.logg.Warn(ctx, "retailer lookup failed, skipping confirmation email")
		return
	}
	if retailer.Email == "" {
		return
	}

	msg := mailer.Message{
		To:      retailer.Email,
		Subject: fmt.Sprintf("Order confirmed: %s %s", order.Currency, order.Total.StringFixed(2)),
		PlainBody: fmt.Sprintf(
			"Hi %s,\n\nYour payment of %s %s was received and your order is confirmed.\nOrder reference: %s\n\nThank you for ordering on Bulkroom.",
			retailer.ContactName, order.Currency, order.Total.StringFixed(2), order.ID,
		),
	}
	if err := d.mail.Send(ctx, msg); err != nil {
		d.logg.Warn(ctx, "order confirmation email failed")
	}
}

func (d *Dispatcher) notifyWholesaler(ctx context.Context, order *models.Order) {
	if d.text == nil {
		return
	}

	wholesaler, err := d.parties.FindWholesaler(ctx, order.WholesalerID)
	if err != nil {
		d.logg.Warn(ctx, "wholesaler lookup failed, skipping new-order message")
		return
	}
	if wholesaler.Phone == "" {
		return
	}

	text := fmt.Sprintf(
		"New paid order on Bulkroom: %d item(s), payout %s %s. Order %s.",
		len(order.Items), order.Currency, order.WholesalerNet.StringFixed(2), order.ID,
	)
	if err := d.text.SendText(ctx, wholesaler.Phone, text); err != nil {
		d.logg.Warn(ctx, "new-order message failed")
	}
}
