package resource

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/utafrali/ecommerce-admin/internal/domain"
	apperrors "github.com/utafrali/ecommerce-admin/pkg/errors"
	"github.com/utafrali/ecommerce-admin/pkg/pagination"
)

// OrdersConfig is the full order list.
func OrdersConfig() Config {
	return Config{
		Name:          "orders",
		Endpoint:      "/orders",
		Key:           "orders",
		Singular:      "order",
		DefaultParams: pagination.DefaultParams(),
	}
}

// PendingOrdersConfig is the queue of orders awaiting action.
func PendingOrdersConfig() Config {
	return Config{
		Name:          "pending orders",
		Endpoint:      "/orders/pending",
		Key:           "orders",
		Singular:      "order",
		DefaultParams: pagination.DefaultParams(),
	}
}

// OrderStore manages a list of orders.
type OrderStore struct {
	*Store[domain.Order]
}

// NewOrderStore creates the store behind the orders page.
func NewOrderStore(deps Deps) *OrderStore {
	return &OrderStore{Store: NewStore[domain.Order](OrdersConfig(), deps)}
}

// NewPendingOrderStore creates the store behind the pending orders widget.
func NewPendingOrderStore(deps Deps) *OrderStore {
	return &OrderStore{Store: NewStore[domain.Order](PendingOrdersConfig(), deps)}
}

type statusUpdate struct {
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus,omitempty"`
}

// UpdateStatus sets an order's status and, when paymentStatus is not empty,
// its payment status.
func (s *OrderStore) UpdateStatus(ctx context.Context, id, status, paymentStatus string) error {
	if !domain.IsValidOrderStatus(status) {
		return s.rejectInput(ctx, "invalid order status: "+status)
	}
	if paymentStatus != "" && !domain.IsValidPaymentStatus(paymentStatus) {
		return s.rejectInput(ctx, "invalid payment status: "+paymentStatus)
	}

	return s.Mutate(ctx, Mutation[domain.Order]{
		Method:          http.MethodPatch,
		Endpoint:        "/orders/" + url.PathEscape(id) + "/status",
		Body:            statusUpdate{Status: status, PaymentStatus: paymentStatus},
		ID:              id,
		UseServerRecord: true,
		Apply: PatchByID(id, func(o *domain.Order) {
			o.Status = status
			if paymentStatus != "" {
				o.PaymentStatus = paymentStatus
			}
		}),
		Success: "Order status updated",
		Failure: "Failed to update order status",
	})
}

// Delete removes an order.
func (s *OrderStore) Delete(ctx context.Context, id string) error {
	return s.Mutate(ctx, Mutation[domain.Order]{
		Method:   http.MethodDelete,
		Endpoint: "/orders/" + url.PathEscape(id),
		ID:       id,
		Apply:    RemoveByID[domain.Order](id),
		Success:  "Order deleted",
		Failure:  "Failed to delete order",
	})
}

// Statistics decodes the aggregate counters of the last fetch. It reports
// false when the backend sent none.
func (s *OrderStore) Statistics() (domain.OrderStatistics, bool) {
	var stats domain.OrderStatistics
	raw := s.Snapshot().Statistics
	if raw == nil || json.Unmarshal(raw, &stats) != nil {
		return stats, false
	}
	return stats, true
}

func (s *OrderStore) rejectInput(ctx context.Context, msg string) error {
	return s.mutationFailed(ctx, Mutation[domain.Order]{Method: http.MethodPatch}, apperrors.InvalidInput(msg))
}
