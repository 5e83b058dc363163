package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Product is the catalog listing. This service only ever writes Stock.
type Product struct {
	ID                 uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	SellerID           uuid.UUID `gorm:"column:seller_id;type:uuid;not null;index"`
	Title              string    `gorm:"column:title;not null"`
	ImageURL           *string   `gorm:"column:image_url"`
	PriceCents         int64     `gorm:"column:price_cents;not null"`
	DiscountPriceCents *int64    `gorm:"column:discount_price_cents"`
	Stock              int       `gorm:"column:stock;not null;check:stock >= 0"`
	IsActive           bool      `gorm:"column:is_active;not null"`
	CreatedAt          time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Product) TableName() string { return "products" }

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// EffectivePriceCents is the discount price when set, otherwise the list price.
func (p Product) EffectivePriceCents() int64 {
	if p.DiscountPriceCents != nil {
		return *p.DiscountPriceCents
	}
	return p.PriceCents
}
