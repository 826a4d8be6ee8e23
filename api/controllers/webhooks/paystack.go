package webhooks

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tobiaseke/bulkroom-backend/api/responses"
	"github.com/tobiaseke/bulkroom-backend/internal/settlement"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
	"github.com/tobiaseke/bulkroom-backend/pkg/metrics"
	"github.com/tobiaseke/bulkroom-backend/pkg/paystack"
)

const signatureHeader = "X-Paystack-Signature"

// maxWebhookBody caps what we read from the processor.
const maxWebhookBody = 1 << 20

type signatureValidator interface {
	ValidateSignature(body []byte, signature string) bool
}

type paystackGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// PaystackWebhook ingests payment events from Paystack. Deliveries are
// at-least-once, so anything the reconciler classifies as a duplicate or a
// permanently bad event is acknowledged with 200 to stop redelivery; only
// transient failures surface as errors so the processor retries.
func PaystackWebhook(svc settlement.Service, validator signatureValidator, guard paystackGuard, wm *metrics.WebhookMetrics, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "settlement service unavailable"))
			return
		}
		if validator == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "paystack client unavailable"))
			return
		}
		if guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "idempotency guard unavailable"))
			return
		}

		payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		signature := r.Header.Get(signatureHeader)
		if !validator.ValidateSignature(payload, signature) {
			wm.IncOutcome("bad_signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid paystack signature"))
			return
		}

		event, err := paystack.ParseEvent(payload)
		if err != nil {
			// Signed but undecodable; retrying will not help, so acknowledge.
			ackMalformed(ctx, logg, wm, w, "undecodable event envelope")
			return
		}
		charge, err := event.Charge()
		if err != nil {
			ackMalformed(ctx, logg, wm, w, "undecodable event payload")
			return
		}

		eventID := strings.TrimSpace(charge.Reference)
		if charge.ID != 0 {
			eventID = fmt.Sprintf("%d", charge.ID)
		}
		if eventID == "" {
			ackMalformed(ctx, logg, wm, w, "event carries no usable id")
			return
		}

		if logg != nil {
			ctx = logg.WithPaymentRef(ctx, charge.Reference)
		}

		alreadySeen, err := guard.CheckAndMark(ctx, eventID)
		if err != nil {
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "check idempotency"))
			return
		}
		if alreadySeen {
			wm.IncOutcome("duplicate")
			responses.WriteSuccess(w, nil)
			return
		}

		result, err := svc.Reconcile(ctx, settlement.PaymentEvent{
			EventID:        eventID,
			Type:           event.Type,
			Reference:      charge.Reference,
			AmountSubunits: charge.AmountSubunits,
			Currency:       charge.Currency,
			Metadata:       charge.Metadata,
		})
		if err != nil {
			if isPermanent(err) {
				// The mark stays so redeliveries of this event short-circuit.
				if logg != nil {
					logg.Warn(ctx, "payment event rejected permanently")
				}
				wm.IncOutcome(permanentOutcome(err))
				responses.WriteSuccess(w, nil)
				return
			}
			_ = guard.Delete(ctx, eventID)
			wm.IncOutcome("error")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		wm.IncOutcome(string(result.Outcome))
		if logg != nil && len(result.Shortfalls) > 0 {
			logg.Warn(ctx, "settlement applied with stock shortfalls")
		}
		responses.WriteSuccess(w, map[string]any{"outcome": result.Outcome})
	}
}

func ackMalformed(ctx context.Context, logg *logger.Logger, wm *metrics.WebhookMetrics, w http.ResponseWriter, reason string) {
	if logg != nil {
		logg.Warn(logg.WithField(ctx, "reason", reason), "malformed paystack event acknowledged")
	}
	wm.IncOutcome("malformed")
	responses.WriteSuccess(w, nil)
}

func isPermanent(err error) bool {
	typed := pkgerrors.As(err)
	if typed == nil {
		return false
	}
	switch typed.Code() {
	case pkgerrors.CodeUnresolvableEvent, pkgerrors.CodeAmountMismatch:
		return true
	}
	return false
}

func permanentOutcome(err error) string {
	typed := pkgerrors.As(err)
	if typed != nil && typed.Code() == pkgerrors.CodeAmountMismatch {
		return "amount_mismatch"
	}
	return "unresolvable"
}
