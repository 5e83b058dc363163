package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

// Totals are the derived money fields of an order, in cents.
type Totals struct {
	Total    int64
	Shipping int64
	Tax      int64
	Discount int64
	Final    int64
}

// ComputeTotals applies the shipping and tax policy to an item total. The
// discount is clamped to [0, total].
func ComputeTotals(total, discount int64, settings Settings) Totals {
	shipping := settings.FlatShippingCents
	if total >= settings.FreeShippingThresholdCents {
		shipping = 0
	}
	if discount < 0 {
		discount = 0
	}
	if discount > total {
		discount = total
	}
	tax := money.ApplyRate(total, settings.TaxRate)
	return Totals{
		Total:    total,
		Shipping: shipping,
		Tax:      tax,
		Discount: discount,
		Final:    total + shipping + tax - discount,
	}
}

// CreateOrder prices the requested items, decrements stock and persists the
// order in one transaction. Any failure leaves stock and the cart untouched.
func (s *service) CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error) {
	start := s.now()
	view, err := s.createOrder(ctx, input)
	if s.metrics != nil {
		code := ""
		if err != nil {
			code = string(pkgerrors.CodeInternal)
			if typed := pkgerrors.As(err); typed != nil {
				code = string(typed.Code())
			}
		}
		s.metrics.ObserveCreate(s.now().Sub(start), code)
	}
	return view, err
}

func (s *service) createOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error) {
	customerID := input.Principal.UserID
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal required")
	}
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}
	address := input.ShippingAddress.Normalize()

	var order *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		requested := input.Items
		fromCart := len(requested) == 0
		if fromCart {
			lines, err := s.cart.CheckoutLines(ctx, tx, customerID)
			if err != nil {
				return err
			}
			if len(lines) == 0 {
				return pkgerrors.New(pkgerrors.CodeInvalidRequest, "cart is empty")
			}
			for _, line := range lines {
				requested = append(requested, ItemInput{ProductID: line.ProductID, Quantity: line.Quantity})
			}
		}

		items, total, err := s.reserveItems(ctx, tx, mergeItems(requested))
		if err != nil {
			return err
		}

		now := s.now().UTC()
		totals := ComputeTotals(total, input.DiscountCents, s.settings)
		order = &models.Order{
			ID:                  uuid.New(),
			OrderNumber:         NewOrderNumber(now),
			CustomerID:          customerID,
			ShippingAddress:     address,
			PaymentMethod:       input.PaymentMethod,
			PaymentStatus:       enums.PaymentStatusPending,
			OrderStatus:         enums.OrderStatusPending,
			TotalAmountCents:    totals.Total,
			ShippingChargeCents: totals.Shipping,
			TaxAmountCents:      totals.Tax,
			DiscountAmountCents: totals.Discount,
			FinalAmountCents:    totals.Final,
			Items:               items,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		for i := range order.Items {
			order.Items[i].OrderID = order.ID
			order.Items[i].CreatedAt = now
		}
		if err := s.repo.WithTx(tx).Create(ctx, order); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "order number collision, retry")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "persist order")
		}

		if fromCart {
			if err := s.cart.ClearForCheckout(ctx, tx, customerID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, asAppError(err, "create order")
	}

	logCtx := s.logg.WithOrderID(ctx, order.ID.String())
	logCtx = s.logg.WithField(logCtx, "order_number", order.OrderNumber)
	s.logg.Info(logCtx, "order created")

	s.dispatch(ctx, notifications.Event{
		Type:        notifications.EventOrderCreated,
		OrderID:     order.ID,
		OrderNumber: order.OrderNumber,
		CustomerID:  order.CustomerID,
		SellerIDs:   sellerIDs(order),
		ActorID:     customerID,
		Status:      string(order.OrderStatus),
	})

	view := NewOrderView(*order)
	return &view, nil
}

// reserveItems decrements stock item by item and returns the frozen lines.
func (s *service) reserveItems(ctx context.Context, tx *gorm.DB, requested []ItemInput) ([]models.OrderItem, int64, error) {
	products := s.catalog.WithTx(tx)
	items := make([]models.OrderItem, 0, len(requested))
	var total int64
	for _, req := range requested {
		product, err := products.FindByID(ctx, req.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, 0, productNotFound(req.ProductID)
			}
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return nil, 0, productNotFound(req.ProductID)
		}

		ok, err := products.DecrementStock(ctx, req.ProductID, req.Quantity)
		if err != nil {
			return nil, 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decrement stock")
		}
		if !ok {
			return nil, 0, pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
				WithDetails(map[string]any{
					"product_id": req.ProductID.String(),
					"requested":  req.Quantity,
					"available":  product.Stock,
				})
		}

		price := product.EffectivePriceCents()
		total += price * int64(req.Quantity)
		items = append(items, models.OrderItem{
			ID:           uuid.New(),
			ProductID:    product.ID,
			SellerID:     product.SellerID,
			ProductTitle: product.Title,
			ProductImage: product.ImageURL,
			Quantity:     req.Quantity,
			PriceCents:   price,
		})
	}
	return items, total, nil
}

func validateCreateInput(input CreateOrderInput) error {
	if len(input.Items) == 0 && !input.FromCart {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, "order must contain at least one item")
	}
	for i, item := range input.Items {
		if item.ProductID == uuid.Nil {
			return pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "items[%d]: product id is required", i)
		}
		if item.Quantity < 1 {
			return pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "items[%d]: quantity must be at least 1", i)
		}
	}
	if missing := input.ShippingAddress.MissingFields(); len(missing) > 0 {
		return pkgerrors.New(pkgerrors.CodeInvalidRequest, "shipping address is incomplete").
			WithDetails(map[string]any{"missing_fields": missing})
	}
	if !input.PaymentMethod.IsValid() {
		return pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "unknown payment method %q", input.PaymentMethod)
	}
	return nil
}

// mergeItems sums quantities per product, keeping first-seen order.
func mergeItems(items []ItemInput) []ItemInput {
	index := make(map[uuid.UUID]int, len(items))
	merged := make([]ItemInput, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.ProductID]; ok {
			merged[i].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(merged)
		merged = append(merged, item)
	}
	return merged
}

func productNotFound(id uuid.UUID) error {
	return pkgerrors.New(pkgerrors.CodeNotFound, "product not found").
		WithDetails(map[string]any{"product_id": id.String()})
}

func sellerIDs(order *models.Order) []uuid.UUID {
	seen := map[uuid.UUID]struct{}{}
	out := []uuid.UUID{}
	for _, item := range order.Items {
		if _, ok := seen[item.SellerID]; ok {
			continue
		}
		seen[item.SellerID] = struct{}{}
		out = append(out, item.SellerID)
	}
	return out
}
