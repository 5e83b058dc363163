package orders

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// ItemInput is one requested product and quantity.
type ItemInput struct {
	ProductID uuid.UUID
	Quantity  int
}

// CreateOrderInput captures a checkout request. When Items is empty and
// FromCart is set, the customer's cart lines are ordered and the cart cleared.
// Explicit Items never touch the cart.
type CreateOrderInput struct {
	Principal       auth.Principal
	Items           []ItemInput
	FromCart        bool
	ShippingAddress types.Address
	PaymentMethod   enums.PaymentMethod
	DiscountCents   int64
}

// TransitionInput asks for a seller-driven status change.
type TransitionInput struct {
	OrderID   uuid.UUID
	Principal auth.Principal
	Status    enums.OrderStatus
	Reason    string
}

// PaymentStatusInput asks for a payment label change.
type PaymentStatusInput struct {
	OrderID   uuid.UUID
	Principal auth.Principal
	Status    enums.PaymentStatus
}

// CancelInput is a customer cancelling their own order.
type CancelInput struct {
	OrderID   uuid.UUID
	Principal auth.Principal
	Reason    string
}

// ListParams configures order list pagination and filtering.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.OrderStatus
}

// ItemView is one frozen order line.
type ItemView struct {
	ID            uuid.UUID  `json:"id"`
	ProductID     uuid.UUID  `json:"product_id"`
	SellerID      uuid.UUID  `json:"seller_id"`
	ProductTitle  string     `json:"product_title"`
	ProductImage  *string    `json:"product_image,omitempty"`
	Quantity      int        `json:"quantity"`
	PriceCents    int64      `json:"price_cents"`
	Price         string     `json:"price"`
	SubtotalCents int64      `json:"subtotal_cents"`
	Subtotal      string     `json:"subtotal"`
	RestockedAt   *time.Time `json:"restocked_at,omitempty"`
}

// Timestamps groups the lifecycle stamps of an order.
type Timestamps struct {
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
}

// OrderView is the full order as seen by its customer or an admin.
type OrderView struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	ShippingAddress     types.Address       `json:"shipping_address"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	PaymentStatus       enums.PaymentStatus `json:"payment_status"`
	OrderStatus         enums.OrderStatus   `json:"order_status"`
	CancelReason        *string             `json:"cancel_reason,omitempty"`
	CancelledBy         *uuid.UUID          `json:"cancelled_by,omitempty"`
	TotalAmountCents    int64               `json:"total_amount_cents"`
	ShippingChargeCents int64               `json:"shipping_charge_cents"`
	TaxAmountCents      int64               `json:"tax_amount_cents"`
	DiscountAmountCents int64               `json:"discount_amount_cents"`
	FinalAmountCents    int64               `json:"final_amount_cents"`
	TotalAmount         string              `json:"total_amount"`
	ShippingCharge      string              `json:"shipping_charge"`
	TaxAmount           string              `json:"tax_amount"`
	DiscountAmount      string              `json:"discount_amount"`
	FinalAmount         string              `json:"final_amount"`
	Items               []ItemView          `json:"items"`
	Timestamps
}

// SellerOrderView is an order projected onto one seller's items.
type SellerOrderView struct {
	ID                  uuid.UUID           `json:"id"`
	OrderNumber         string              `json:"order_number"`
	CustomerID          uuid.UUID           `json:"customer_id"`
	ShippingAddress     types.Address       `json:"shipping_address"`
	PaymentMethod       enums.PaymentMethod `json:"payment_method"`
	PaymentStatus       enums.PaymentStatus `json:"payment_status"`
	OrderStatus         enums.OrderStatus   `json:"order_status"`
	CancelReason        *string             `json:"cancel_reason,omitempty"`
	Items               []ItemView          `json:"items"`
	SellerSubtotalCents int64               `json:"seller_subtotal_cents"`
	SellerSubtotal      string              `json:"seller_subtotal"`
	Timestamps
}

// NewOrderView projects the full order.
func NewOrderView(order models.Order) OrderView {
	items := make([]ItemView, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, newItemView(item))
	}
	return OrderView{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CustomerID:          order.CustomerID,
		ShippingAddress:     order.ShippingAddress,
		PaymentMethod:       order.PaymentMethod,
		PaymentStatus:       order.PaymentStatus,
		OrderStatus:         order.OrderStatus,
		CancelReason:        order.CancelReason,
		CancelledBy:         order.CancelledBy,
		TotalAmountCents:    order.TotalAmountCents,
		ShippingChargeCents: order.ShippingChargeCents,
		TaxAmountCents:      order.TaxAmountCents,
		DiscountAmountCents: order.DiscountAmountCents,
		FinalAmountCents:    order.FinalAmountCents,
		TotalAmount:         money.FormatCents(order.TotalAmountCents),
		ShippingCharge:      money.FormatCents(order.ShippingChargeCents),
		TaxAmount:           money.FormatCents(order.TaxAmountCents),
		DiscountAmount:      money.FormatCents(order.DiscountAmountCents),
		FinalAmount:         money.FormatCents(order.FinalAmountCents),
		Items:               items,
		Timestamps:          timestampsOf(order),
	}
}

// NewSellerOrderView keeps only sellerID's items. uuid.Nil keeps every item.
func NewSellerOrderView(order models.Order, sellerID uuid.UUID) SellerOrderView {
	items := []ItemView{}
	var subtotal int64
	for _, item := range order.Items {
		if sellerID != uuid.Nil && item.SellerID != sellerID {
			continue
		}
		items = append(items, newItemView(item))
		subtotal += item.SubtotalCents()
	}
	return SellerOrderView{
		ID:                  order.ID,
		OrderNumber:         order.OrderNumber,
		CustomerID:          order.CustomerID,
		ShippingAddress:     order.ShippingAddress,
		PaymentMethod:       order.PaymentMethod,
		PaymentStatus:       order.PaymentStatus,
		OrderStatus:         order.OrderStatus,
		CancelReason:        order.CancelReason,
		Items:               items,
		SellerSubtotalCents: subtotal,
		SellerSubtotal:      money.FormatCents(subtotal),
		Timestamps:          timestampsOf(order),
	}
}

func newItemView(item models.OrderItem) ItemView {
	subtotal := item.SubtotalCents()
	return ItemView{
		ID:            item.ID,
		ProductID:     item.ProductID,
		SellerID:      item.SellerID,
		ProductTitle:  item.ProductTitle,
		ProductImage:  item.ProductImage,
		Quantity:      item.Quantity,
		PriceCents:    item.PriceCents,
		Price:         money.FormatCents(item.PriceCents),
		SubtotalCents: subtotal,
		Subtotal:      money.FormatCents(subtotal),
		RestockedAt:   item.RestockedAt,
	}
}

func timestampsOf(order models.Order) Timestamps {
	return Timestamps{
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		ProcessedAt: order.ProcessedAt,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		CancelledAt: order.CancelledAt,
		PaidAt:      order.PaidAt,
	}
}
