package orders

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type transitionResult struct {
	order    *models.Order
	previous enums.OrderStatus
	changed  bool
	restored int
}

// Transition moves an order along the lifecycle on behalf of a seller who owns
// at least one of its items, or an admin.
func (s *service) Transition(ctx context.Context, input TransitionInput) (*SellerOrderView, error) {
	principal := input.Principal
	if !principal.HasRole(enums.RoleSeller, enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller or admin role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "unknown order status %q", input.Status)
	}

	restoreFor := uuid.Nil
	if s.settings.CancellationScope == enums.CancellationScopeSellerItems && !principal.IsAdmin() {
		restoreFor = principal.UserID
	}

	var result transitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.loadOrder(ctx, s.repo.WithTx(tx), input.OrderID)
		if err != nil {
			return err
		}
		if !principal.IsAdmin() && !order.HasSellerItems(principal.UserID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		result, err = s.applyTransition(ctx, tx, order, input.Status, input.Reason, principal.UserID, restoreFor)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "transition order")
	}

	s.afterTransition(ctx, principal, result, input.Reason)
	view := NewSellerOrderView(*result.order, sellerScope(principal))
	return &view, nil
}

// Cancel lets a customer cancel their own order. Every item returns to stock.
func (s *service) Cancel(ctx context.Context, input CancelInput) (*OrderView, error) {
	principal := input.Principal
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal required")
	}

	var result transitionResult
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		order, err := s.loadOrder(ctx, s.repo.WithTx(tx), input.OrderID)
		if err != nil {
			return err
		}
		if !principal.IsAdmin() && order.CustomerID != principal.UserID {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		result, err = s.applyTransition(ctx, tx, order, enums.OrderStatusCancelled, input.Reason, principal.UserID, uuid.Nil)
		return err
	})
	if err != nil {
		return nil, asAppError(err, "cancel order")
	}

	s.afterTransition(ctx, principal, result, input.Reason)
	view := NewOrderView(*result.order)
	return &view, nil
}

// applyTransition validates and persists one status change inside tx. A
// self-transition returns the order unchanged.
func (s *service) applyTransition(ctx context.Context, tx *gorm.DB, order *models.Order, to enums.OrderStatus, reason string, actor, restoreFor uuid.UUID) (transitionResult, error) {
	result := transitionResult{order: order, previous: order.OrderStatus}
	if order.OrderStatus == to {
		return result, nil
	}
	if err := checkTransition(order, to, reason); err != nil {
		return result, err
	}

	now := s.now().UTC()
	updates := map[string]any{
		"order_status": to,
		"updated_at":   now,
	}
	if column := timestampColumn(to); column != "" && !timestampSet(order, to) {
		updates[column] = now
	}
	if to == enums.OrderStatusCancelled {
		updates["cancel_reason"] = strings.TrimSpace(reason)
		updates["cancelled_by"] = actor
	}

	repo := s.repo.WithTx(tx)
	ok, err := repo.UpdateStatusIf(ctx, order.ID, order.OrderStatus, updates)
	if err != nil {
		return result, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order status")
	}
	if !ok {
		return result, pkgerrors.New(pkgerrors.CodeConflict, "order status changed concurrently")
	}

	if to == enums.OrderStatusCancelled {
		restored, err := s.restoreStock(ctx, tx, order, restoreFor)
		if err != nil {
			return result, err
		}
		result.restored = restored
	}

	reloaded, err := s.loadOrder(ctx, repo, order.ID)
	if err != nil {
		return result, err
	}
	result.order = reloaded
	result.changed = true
	return result, nil
}

// restoreStock returns the quantities of order's items to stock. uuid.Nil
// restores every item, otherwise only sellerID's items. Each item is claimed
// through restocked_at so it is restored at most once.
func (s *service) restoreStock(ctx context.Context, tx *gorm.DB, order *models.Order, sellerID uuid.UUID) (int, error) {
	repo := s.repo.WithTx(tx)
	products := s.catalog.WithTx(tx)
	now := s.now().UTC()

	units := 0
	for _, item := range order.Items {
		if sellerID != uuid.Nil && item.SellerID != sellerID {
			continue
		}
		claimed, err := repo.MarkItemRestocked(ctx, item.ID, now)
		if err != nil {
			return units, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark item restocked")
		}
		if !claimed {
			continue
		}
		if err := products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				logCtx := s.logg.WithFields(ctx, map[string]any{
					"product_id": item.ProductID.String(),
					"quantity":   item.Quantity,
				})
				s.logg.Warn(s.logg.WithOrderID(logCtx, order.ID.String()), "restock skipped: product no longer exists")
				continue
			}
			return units, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
		}
		units += item.Quantity
	}
	return units, nil
}

func (s *service) afterTransition(ctx context.Context, principal auth.Principal, result transitionResult, reason string) {
	if !result.changed {
		return
	}
	order := result.order
	if s.metrics != nil {
		s.metrics.IncTransition(string(result.previous), string(order.OrderStatus))
		s.metrics.AddRestocked(result.restored)
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithFields(logCtx, map[string]any{
		"from":     result.previous,
		"to":       order.OrderStatus,
		"restored": result.restored,
	})
	s.logg.Info(logCtx, "order status changed")

	event := notifications.Event{
		Type:           notifications.EventOrderStatusChanged,
		OrderID:        order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerID:     order.CustomerID,
		SellerIDs:      sellerIDs(order),
		ActorID:        principal.UserID,
		PreviousStatus: string(result.previous),
		Status:         string(order.OrderStatus),
	}
	if order.OrderStatus == enums.OrderStatusCancelled {
		event.Type = notifications.EventOrderCancelled
		trimmed := strings.TrimSpace(reason)
		event.Reason = &trimmed
	}
	s.dispatch(ctx, event)
}

// UpdatePaymentStatus changes the payment label of an order the seller takes part in.
func (s *service) UpdatePaymentStatus(ctx context.Context, input PaymentStatusInput) (*SellerOrderView, error) {
	principal := input.Principal
	if !principal.HasRole(enums.RoleSeller, enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller or admin role required")
	}
	if !input.Status.IsValid() {
		return nil, pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "unknown payment status %q", input.Status)
	}

	var (
		order    *models.Order
		previous enums.PaymentStatus
		changed  bool
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := s.loadOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if !principal.IsAdmin() && !current.HasSellerItems(principal.UserID) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		order = current
		previous = current.PaymentStatus
		if current.PaymentStatus == input.Status {
			return nil
		}
		if err := checkPaymentTransition(current, input.Status); err != nil {
			return err
		}

		now := s.now().UTC()
		updates := map[string]any{
			"payment_status": input.Status,
			"updated_at":     now,
		}
		if input.Status == enums.PaymentStatusPaid && current.PaidAt == nil {
			updates["paid_at"] = now
		}
		ok, err := repo.UpdatePaymentIf(ctx, current.ID, current.OrderStatus, current.PaymentStatus, updates)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if !ok {
			return pkgerrors.New(pkgerrors.CodeConflict, "order changed concurrently")
		}
		order, err = s.loadOrder(ctx, repo, current.ID)
		if err != nil {
			return err
		}
		changed = true
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "update payment status")
	}

	if changed {
		if s.metrics != nil {
			s.metrics.IncPaymentTransition(string(previous), string(order.PaymentStatus))
		}
		logCtx := s.logg.WithOrderID(ctx, order.ID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"from": previous, "to": order.PaymentStatus})
		s.logg.Info(logCtx, "order payment status changed")

		s.dispatch(ctx, notifications.Event{
			Type:           notifications.EventOrderPaymentStatusChanged,
			OrderID:        order.ID,
			OrderNumber:    order.OrderNumber,
			CustomerID:     order.CustomerID,
			SellerIDs:      sellerIDs(order),
			ActorID:        principal.UserID,
			PreviousStatus: string(previous),
			Status:         string(order.PaymentStatus),
		})
	}

	view := NewSellerOrderView(*order, sellerScope(principal))
	return &view, nil
}

func sellerScope(principal auth.Principal) uuid.UUID {
	if principal.IsAdmin() {
		return uuid.Nil
	}
	return principal.UserID
}
