package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/catalog"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service exposes the customer cart operations.
type Service interface {
	GetCart(ctx context.Context, customerID uuid.UUID) (*View, error)
	AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*View, error)
	UpdateItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*View, error)
	Clear(ctx context.Context, customerID uuid.UUID) (*View, error)

	// CheckoutLines returns the stored cart lines using the caller's transaction.
	CheckoutLines(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]Line, error)
	// ClearForCheckout empties the cart inside the caller's transaction.
	ClearForCheckout(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
}

// Line is a product and quantity taken from the cart for checkout.
type Line struct {
	ProductID uuid.UUID
	Quantity  int
}

type service struct {
	repo    Repository
	catalog catalog.Repository
	tx      txRunner
}

// NewService builds a cart service backed by the provided stack.
func NewService(repo Repository, products catalog.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if products == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, catalog: products, tx: tx}, nil
}

func (s *service) GetCart(ctx context.Context, customerID uuid.UUID) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "customer id is required")
	}
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return emptyView(customerID), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return s.buildView(ctx, cart)
}

// AddItem adds quantity units of productID, merging with an existing line. The
// snapshot price is refreshed to the product's current effective price.
func (s *service) AddItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*View, error) {
	if customerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "customer id and product id are required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "quantity must be at least 1")
	}
	if _, err := s.loadActiveProduct(ctx, s.catalog, productID); err != nil {
		return nil, err
	}

	cart, err := s.repo.EnsureCart(ctx, customerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "ensure cart")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		product, err := s.loadActiveProductForUpdate(ctx, s.catalog.WithTx(tx), productID)
		if err != nil {
			return err
		}
		price := product.EffectivePriceCents()

		existing, err := repo.FindItem(ctx, cart.ID, productID)
		switch {
		case err == nil:
			next := existing.Quantity + quantity
			if next > product.Stock {
				return insufficientStock(productID, product.Stock, existing.Quantity, quantity)
			}
			if err := repo.UpdateItem(ctx, existing.ID, map[string]any{
				"quantity":             next,
				"price_snapshot_cents": price,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return nil
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}

		if quantity > product.Stock {
			return insufficientStock(productID, product.Stock, 0, quantity)
		}
		position, err := repo.NextPosition(ctx, cart.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "next cart position")
		}
		item := &models.CartItem{
			CartID:             cart.ID,
			ProductID:          productID,
			Quantity:           quantity,
			PriceSnapshotCents: price,
			Position:           position,
		}
		if err := repo.InsertItem(ctx, item); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "cart item was modified concurrently")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "insert cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

// UpdateItem replaces the quantity of an existing line.
func (s *service) UpdateItem(ctx context.Context, customerID, productID uuid.UUID, quantity int) (*View, error) {
	if customerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "customer id and product id are required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "quantity must be at least 1")
	}

	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}

	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := repo.FindItem(ctx, cart.ID, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		product, err := s.catalog.WithTx(tx).FindByIDForUpdate(ctx, productID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if quantity > product.Stock {
			return insufficientStock(productID, product.Stock, 0, quantity)
		}
		if err := repo.UpdateItem(ctx, item.ID, map[string]any{"quantity": quantity}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.GetCart(ctx, customerID)
}

func (s *service) RemoveItem(ctx context.Context, customerID, productID uuid.UUID) (*View, error) {
	if customerID == uuid.Nil || productID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "customer id and product id are required")
	}
	cart, err := s.repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	removed, err := s.repo.DeleteItem(ctx, cart.ID, productID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
	}
	if !removed {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return s.GetCart(ctx, customerID)
}

// Clear empties the cart. Clearing a missing or empty cart succeeds.
func (s *service) Clear(ctx context.Context, customerID uuid.UUID) (*View, error) {
	if customerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "customer id is required")
	}
	if err := s.clear(ctx, s.repo, customerID); err != nil {
		return nil, err
	}
	return emptyView(customerID), nil
}

func (s *service) CheckoutLines(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]Line, error) {
	cart, err := s.repo.WithTx(tx).FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	lines := make([]Line, 0, len(cart.Items))
	for _, item := range cart.Items {
		lines = append(lines, Line{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

func (s *service) ClearForCheckout(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error {
	return s.clear(ctx, s.repo.WithTx(tx), customerID)
}

func (s *service) clear(ctx context.Context, repo Repository, customerID uuid.UUID) error {
	cart, err := repo.FindByCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if err := repo.ClearItems(ctx, cart.ID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
	}
	return nil
}

func (s *service) loadActiveProduct(ctx context.Context, products catalog.Repository, productID uuid.UUID) (*models.Product, error) {
	return activeProduct(products.FindByID(ctx, productID))
}

func (s *service) loadActiveProductForUpdate(ctx context.Context, products catalog.Repository, productID uuid.UUID) (*models.Product, error) {
	return activeProduct(products.FindByIDForUpdate(ctx, productID))
}

func activeProduct(product *models.Product, err error) (*models.Product, error) {
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	if !product.IsActive {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return product, nil
}

func insufficientStock(productID uuid.UUID, available, inCart, requested int) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientStock, "requested quantity exceeds available stock").
		WithDetails(map[string]any{
			"product_id": productID.String(),
			"available":  available,
			"in_cart":    inCart,
			"requested":  requested,
		})
}
