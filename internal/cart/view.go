package cart

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/money"
)

// View is the customer-facing cart. Totals use the snapshot prices of the
// visible lines only.
type View struct {
	CustomerID uuid.UUID  `json:"customer_id"`
	Items      []ItemView `json:"items"`
	ItemCount  int        `json:"item_count"`
	TotalCents int64      `json:"total_cents"`
	Total      string     `json:"total"`
}

// ItemView is one visible cart line.
type ItemView struct {
	ProductID      uuid.UUID `json:"product_id"`
	SellerID       uuid.UUID `json:"seller_id"`
	Title          string    `json:"title"`
	ImageURL       *string   `json:"image_url,omitempty"`
	Quantity       int       `json:"quantity"`
	UnitPriceCents int64     `json:"unit_price_cents"`
	UnitPrice      string    `json:"unit_price"`
	SubtotalCents  int64     `json:"subtotal_cents"`
	Subtotal       string    `json:"subtotal"`
	Stock          int       `json:"stock"`
	AddedAt        time.Time `json:"added_at"`
}

func emptyView(customerID uuid.UUID) *View {
	return &View{
		CustomerID: customerID,
		Items:      []ItemView{},
		Total:      money.FormatCents(0),
	}
}

func (s *service) buildView(ctx context.Context, cart *models.Cart) (*View, error) {
	view := emptyView(cart.CustomerID)
	if len(cart.Items) == 0 {
		return view, nil
	}

	ids := make([]uuid.UUID, 0, len(cart.Items))
	for _, item := range cart.Items {
		ids = append(ids, item.ProductID)
	}
	products, err := s.catalog.FindByIDs(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart products")
	}

	for _, item := range cart.Items {
		product, ok := products[item.ProductID]
		if !ok || !product.IsActive {
			continue
		}
		subtotal := item.PriceSnapshotCents * int64(item.Quantity)
		view.Items = append(view.Items, ItemView{
			ProductID:      item.ProductID,
			SellerID:       product.SellerID,
			Title:          product.Title,
			ImageURL:       product.ImageURL,
			Quantity:       item.Quantity,
			UnitPriceCents: item.PriceSnapshotCents,
			UnitPrice:      money.FormatCents(item.PriceSnapshotCents),
			SubtotalCents:  subtotal,
			Subtotal:       money.FormatCents(subtotal),
			Stock:          product.Stock,
			AddedAt:        item.CreatedAt,
		})
		view.ItemCount += item.Quantity
		view.TotalCents += subtotal
	}
	view.Total = money.FormatCents(view.TotalCents)
	return view, nil
}
