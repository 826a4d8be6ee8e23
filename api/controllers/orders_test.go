package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tobiaseke/bulkroom-backend/internal/orders"
	"github.com/tobiaseke/bulkroom-backend/pkg/db/models"
	"github.com/tobiaseke/bulkroom-backend/pkg/enums"
	pkgerrors "github.com/tobiaseke/bulkroom-backend/pkg/errors"
	"github.com/tobiaseke/bulkroom-backend/pkg/logger"
)

type fakeOrderService struct {
	built   *orders.BuildOrderInput
	order   *models.Order
	err     error
	lastID  uuid.UUID
	refunds []orders.RefundInput
}

func (f *fakeOrderService) BuildOrder(_ context.Context, input orders.BuildOrderInput) (*models.Order, error) {
	f.built = &input
	return f.order, f.err
}

func (f *fakeOrderService) GetOrder(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.lastID = id
	return f.order, f.err
}

func (f *fakeOrderService) Cancel(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.lastID = id
	return f.order, f.err
}

func (f *fakeOrderService) Fulfill(_ context.Context, id uuid.UUID) (*models.Order, error) {
	f.lastID = id
	return f.order, f.err
}

func (f *fakeOrderService) Refund(_ context.Context, id uuid.UUID, input orders.RefundInput) (*models.Order, error) {
	f.lastID = id
	f.refunds = append(f.refunds, input)
	return f.order, f.err
}

func controllerTestLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "controllers-test", Output: io.Discard})
}

func sampleOrder() *models.Order {
	return &models.Order{
		ID:     uuid.New(),
		Status: enums.OrderStatusPending,
	}
}

func routeWithOrderID(handler http.HandlerFunc, method, path string, body []byte) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	switch method {
	case http.MethodGet:
		r.Get("/orders/{orderId}", handler)
	default:
		r.Post("/orders/{orderId}", handler)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreateOrderReturnsCreated(t *testing.T) {
	svc := &fakeOrderService{order: sampleOrder()}
	handler := CreateOrder(svc, controllerTestLogger())

	body, _ := json.Marshal(map[string]any{
		"wholesaler_id": uuid.NewString(),
		"retailer_id":   uuid.NewString(),
		"lines": []map[string]any{
			{"product_id": uuid.NewString(), "qty": 5},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.built == nil || len(svc.built.Lines) != 1 || svc.built.Lines[0].Qty != 5 {
		t.Fatalf("unexpected build input %+v", svc.built)
	}
}

func TestCreateOrderRejectsMissingLines(t *testing.T) {
	svc := &fakeOrderService{order: sampleOrder()}
	handler := CreateOrder(svc, controllerTestLogger())

	body, _ := json.Marshal(map[string]any{
		"wholesaler_id": uuid.NewString(),
		"retailer_id":   uuid.NewString(),
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.built != nil {
		t.Fatal("service should not be called on validation failure")
	}
}

func TestCreateOrderMapsDomainErrors(t *testing.T) {
	svc := &fakeOrderService{err: pkgerrors.New(pkgerrors.CodeBelowMOQ, "minimum order quantity not met")}
	handler := CreateOrder(svc, controllerTestLogger())

	body, _ := json.Marshal(map[string]any{
		"wholesaler_id": uuid.NewString(),
		"retailer_id":   uuid.NewString(),
		"lines": []map[string]any{
			{"product_id": uuid.NewString(), "qty": 1},
		},
	})
	req := httptest.NewRequest(http.MethodPost, "/orders", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d (%s)", rec.Code, rec.Body.String())
	}
}

func TestOrderDetailRejectsInvalidID(t *testing.T) {
	svc := &fakeOrderService{order: sampleOrder()}
	rec := routeWithOrderID(OrderDetail(svc, controllerTestLogger()), http.MethodGet, "/orders/not-a-uuid", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestOrderDetailNotFound(t *testing.T) {
	svc := &fakeOrderService{err: pkgerrors.New(pkgerrors.CodeNotFound, "order not found")}
	rec := routeWithOrderID(OrderDetail(svc, controllerTestLogger()), http.MethodGet, "/orders/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestCancelOrderMapsIllegalTransition(t *testing.T) {
	svc := &fakeOrderService{err: pkgerrors.New(pkgerrors.CodeIllegalTransition, "state transition disallowed")}
	rec := routeWithOrderID(CancelOrder(svc, controllerTestLogger()), http.MethodPost, "/orders/"+uuid.NewString(), nil)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
}

func TestFulfillOrderReturnsOrder(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusFulfilled
	svc := &fakeOrderService{order: order}
	rec := routeWithOrderID(FulfillOrder(svc, controllerTestLogger()), http.MethodPost, "/orders/"+order.ID.String(), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if svc.lastID != order.ID {
		t.Fatalf("expected fulfill for %s, got %s", order.ID, svc.lastID)
	}
}

func TestRefundOrderPassesNote(t *testing.T) {
	order := sampleOrder()
	order.Status = enums.OrderStatusRefunded
	svc := &fakeOrderService{order: order}
	body, _ := json.Marshal(orders.RefundInput{Note: "damaged on arrival"})
	rec := routeWithOrderID(RefundOrder(svc, controllerTestLogger()), http.MethodPost, "/orders/"+order.ID.String(), body)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.refunds) != 1 || svc.refunds[0].Note != "damaged on arrival" {
		t.Fatalf("unexpected refund inputs %+v", svc.refunds)
	}
}

func TestRefundOrderAcceptsEmptyBody(t *testing.T) {
	order := sampleOrder()
	svc := &fakeOrderService{order: order}
	rec := routeWithOrderID(RefundOrder(svc, controllerTestLogger()), http.MethodPost, fmt.Sprintf("/orders/%s", order.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	if len(svc.refunds) != 1 || svc.refunds[0].Note != "" {
		t.Fatalf("expected empty refund note, got %+v", svc.refunds)
	}
}
