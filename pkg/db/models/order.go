package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/types"
)

// Order is one checkout, possibly spanning several sellers.
type Order struct {
	ID                  uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	OrderNumber         string              `gorm:"column:order_number;not null;uniqueIndex"`
	CustomerID          uuid.UUID           `gorm:"column:customer_id;type:uuid;not null;index"`
	ShippingAddress     types.Address       `gorm:"column:shipping_address;type:jsonb;not null"`
	PaymentMethod       enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	PaymentStatus       enums.PaymentStatus `gorm:"column:payment_status;type:text;not null"`
	OrderStatus         enums.OrderStatus   `gorm:"column:order_status;type:text;not null;index"`
	CancelReason        *string             `gorm:"column:cancel_reason"`
	CancelledBy         *uuid.UUID          `gorm:"column:cancelled_by;type:uuid"`
	TotalAmountCents    int64               `gorm:"column:total_amount_cents;not null"`
	ShippingChargeCents int64               `gorm:"column:shipping_charge_cents;not null"`
	TaxAmountCents      int64               `gorm:"column:tax_amount_cents;not null"`
	DiscountAmountCents int64               `gorm:"column:discount_amount_cents;not null"`
	FinalAmountCents    int64               `gorm:"column:final_amount_cents;not null"`
	ProcessedAt         *time.Time          `gorm:"column:processed_at"`
	ShippedAt           *time.Time          `gorm:"column:shipped_at"`
	DeliveredAt         *time.Time          `gorm:"column:delivered_at"`
	CancelledAt         *time.Time          `gorm:"column:cancelled_at"`
	PaidAt              *time.Time          `gorm:"column:paid_at"`
	Items               []OrderItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:RESTRICT"`
	CreatedAt           time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (Order) TableName() string { return "orders" }

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// ComputedFinalCents recomputes the final amount from its components.
func (o Order) ComputedFinalCents() int64 {
	return o.TotalAmountCents + o.ShippingChargeCents + o.TaxAmountCents - o.DiscountAmountCents
}

// HasSellerItems reports whether at least one item belongs to sellerID.
func (o Order) HasSellerItems(sellerID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.SellerID == sellerID {
			return true
		}
	}
	return false
}

// OrderItem is a frozen line; price, title and image never follow the catalog.
type OrderItem struct {
	ID           uuid.UUID  `gorm:"column:id;type:uuid;primaryKey"`
	OrderID      uuid.UUID  `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID    uuid.UUID  `gorm:"column:product_id;type:uuid;not null"`
	SellerID     uuid.UUID  `gorm:"column:seller_id;type:uuid;not null;index"`
	ProductTitle string     `gorm:"column:product_title;not null"`
	ProductImage *string    `gorm:"column:product_image"`
	Quantity     int        `gorm:"column:quantity;not null;check:quantity >= 1"`
	PriceCents   int64      `gorm:"column:price_cents;not null"`
	RestockedAt  *time.Time `gorm:"column:restocked_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
}

func (OrderItem) TableName() string { return "order_items" }

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}

// SubtotalCents is price times quantity.
func (i OrderItem) SubtotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}
