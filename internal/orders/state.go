package orders

import (
	"strings"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

var orderTransitions = map[enums.OrderStatus][]enums.OrderStatus{
	enums.OrderStatusPending:    {enums.OrderStatusProcessing, enums.OrderStatusCancelled},
	enums.OrderStatusProcessing: {enums.OrderStatusShipped, enums.OrderStatusCancelled},
	enums.OrderStatusShipped:    {enums.OrderStatusDelivered},
}

var paymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending: {enums.PaymentStatusPaid, enums.PaymentStatusFailed},
	enums.PaymentStatusPaid:    {enums.PaymentStatusFailed},
}

// CanTransition reports whether the lifecycle allows from -> to. Terminal
// states allow nothing.
func CanTransition(from, to enums.OrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionPayment reports whether the payment labels allow from -> to.
func CanTransitionPayment(from, to enums.PaymentStatus) bool {
	for _, next := range paymentTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition validates a status change that is not a self-transition.
func checkTransition(order *models.Order, to enums.OrderStatus, reason string) error {
	if !CanTransition(order.OrderStatus, to) {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "cannot move order from %s to %s", order.OrderStatus, to).
			WithDetails(map[string]any{"from": order.OrderStatus, "to": to})
	}
	switch to {
	case enums.OrderStatusCancelled:
		if strings.TrimSpace(reason) == "" {
			return pkgerrors.New(pkgerrors.CodeInvalidRequest, "cancellation reason is required")
		}
	case enums.OrderStatusDelivered:
		if order.PaymentStatus != enums.PaymentStatusPaid {
			return pkgerrors.New(pkgerrors.CodePreconditionFailed, "order must be paid before delivery").
				WithDetails(map[string]any{"payment_status": order.PaymentStatus})
		}
	}
	return nil
}

// checkPaymentTransition validates a payment change that is not a self-transition.
// Paid is accepted once the order has shipped so that delivery, which
// requires payment, stays reachable for cash on delivery.
func checkPaymentTransition(order *models.Order, to enums.PaymentStatus) error {
	if order.OrderStatus == enums.OrderStatusCancelled {
		return pkgerrors.New(pkgerrors.CodeForbidden, "payment status of a cancelled order cannot change")
	}
	if !CanTransitionPayment(order.PaymentStatus, to) {
		return pkgerrors.Newf(pkgerrors.CodeForbidden, "cannot move payment from %s to %s", order.PaymentStatus, to).
			WithDetails(map[string]any{"from": order.PaymentStatus, "to": to})
	}
	if to == enums.PaymentStatusPaid &&
		order.OrderStatus != enums.OrderStatusShipped &&
		order.OrderStatus != enums.OrderStatusDelivered {
		return pkgerrors.New(pkgerrors.CodePreconditionFailed, "order must be shipped or delivered before it is marked paid").
			WithDetails(map[string]any{"order_status": order.OrderStatus})
	}
	return nil
}

// timestampColumn names the column stamped on first entry into status.
func timestampColumn(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusProcessing:
		return "processed_at"
	case enums.OrderStatusShipped:
		return "shipped_at"
	case enums.OrderStatusDelivered:
		return "delivered_at"
	case enums.OrderStatusCancelled:
		return "cancelled_at"
	}
	return ""
}

func timestampSet(order *models.Order, status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusProcessing:
		return order.ProcessedAt != nil
	case enums.OrderStatusShipped:
		return order.ShippedAt != nil
	case enums.OrderStatusDelivered:
		return order.DeliveredAt != nil
	case enums.OrderStatusCancelled:
		return order.CancelledAt != nil
	}
	return true
}
