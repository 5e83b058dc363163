package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/catalog"
	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/config"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/logger"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Service exposes order creation, the status lifecycle and order reads.
type Service interface {
	CreateOrder(ctx context.Context, input CreateOrderInput) (*OrderView, error)
	Get(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderView, error)
	ListForCustomer(ctx context.Context, principal auth.Principal, params ListParams) (*pagination.Page[OrderView], error)
	ListForSeller(ctx context.Context, principal auth.Principal, params ListParams) (*pagination.Page[SellerOrderView], error)
	Transition(ctx context.Context, input TransitionInput) (*SellerOrderView, error)
	UpdatePaymentStatus(ctx context.Context, input PaymentStatusInput) (*SellerOrderView, error)
	Cancel(ctx context.Context, input CancelInput) (*OrderView, error)
}

// Settings holds the pricing and cancellation policy.
type Settings struct {
	FreeShippingThresholdCents int64
	FlatShippingCents          int64
	TaxRate                    decimal.Decimal
	CancellationScope          enums.CancellationScope
}

// SettingsFromConfig derives Settings from the loaded configuration.
func SettingsFromConfig(pricing config.PricingConfig, orders config.OrdersConfig) (Settings, error) {
	rate, err := pricing.TaxRateDecimal()
	if err != nil {
		return Settings{}, err
	}
	return Settings{
		FreeShippingThresholdCents: pricing.FreeShippingThresholdCents,
		FlatShippingCents:          pricing.FlatShippingCents,
		TaxRate:                    rate,
		CancellationScope:          orders.Scope(),
	}, nil
}

// DefaultSettings is 5000 cents free-shipping threshold, 1000 cents flat fee,
// 10% tax and whole-order cancellation.
func DefaultSettings() Settings {
	return Settings{
		FreeShippingThresholdCents: 5000,
		FlatShippingCents:          1000,
		TaxRate:                    decimal.RequireFromString("0.10"),
		CancellationScope:          enums.CancellationScopeWholeOrder,
	}
}

// ServiceParams wires the order service collaborators. Dispatcher and Metrics are optional.
type ServiceParams struct {
	Repo       Repository
	Catalog    catalog.Repository
	Cart       cartCheckout
	Tx         txRunner
	Dispatcher eventDispatcher
	Metrics    metricsRecorder
	Logger     *logger.Logger
	Settings   Settings
}

type service struct {
	repo       Repository
	catalog    catalog.Repository
	cart       cartCheckout
	tx         txRunner
	dispatcher eventDispatcher
	metrics    metricsRecorder
	logg       *logger.Logger
	settings   Settings
	now        func() time.Time
}

// NewService builds the order service.
func NewService(params ServiceParams) (Service, error) {
	if params.Repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if params.Catalog == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	if params.Cart == nil {
		return nil, fmt.Errorf("cart service required")
	}
	if params.Tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if !params.Settings.CancellationScope.IsValid() {
		return nil, fmt.Errorf("invalid cancellation scope %q", params.Settings.CancellationScope)
	}
	if params.Settings.TaxRate.IsNegative() {
		return nil, fmt.Errorf("tax rate must not be negative")
	}
	return &service{
		repo:       params.Repo,
		catalog:    params.Catalog,
		cart:       params.Cart,
		tx:         params.Tx,
		dispatcher: params.Dispatcher,
		metrics:    params.Metrics,
		logg:       params.Logger,
		settings:   params.Settings,
		now:        time.Now,
	}, nil
}

// Get returns an order to its customer or to an admin.
func (s *service) Get(ctx context.Context, principal auth.Principal, orderID uuid.UUID) (*OrderView, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if !principal.IsAdmin() && order.CustomerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	view := NewOrderView(*order)
	return &view, nil
}

func (s *service) ListForCustomer(ctx context.Context, principal auth.Principal, params ListParams) (*pagination.Page[OrderView], error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal required")
	}
	query, err := listQuery(params)
	if err != nil {
		return nil, err
	}
	orders, next, err := s.repo.ListByCustomer(ctx, principal.UserID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	page := &pagination.Page[OrderView]{Items: make([]OrderView, 0, len(orders)), NextCursor: pagination.EncodeNext(next)}
	for _, order := range orders {
		page.Items = append(page.Items, NewOrderView(order))
	}
	return page, nil
}

// ListForSeller lists the seller's orders projected onto their items. Admins
// see every order unprojected.
func (s *service) ListForSeller(ctx context.Context, principal auth.Principal, params ListParams) (*pagination.Page[SellerOrderView], error) {
	if principal.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "principal required")
	}
	query, err := listQuery(params)
	if err != nil {
		return nil, err
	}
	sellerID := principal.UserID
	if principal.IsAdmin() {
		sellerID = uuid.Nil
	}
	orders, next, err := s.repo.ListBySeller(ctx, sellerID, query)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list seller orders")
	}
	page := &pagination.Page[SellerOrderView]{Items: make([]SellerOrderView, 0, len(orders)), NextCursor: pagination.EncodeNext(next)}
	for _, order := range orders {
		page.Items = append(page.Items, NewSellerOrderView(order, sellerID))
	}
	return page, nil
}

func listQuery(params ListParams) (ListQuery, error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return ListQuery{}, pkgerrors.Wrap(pkgerrors.CodeInvalidRequest, err, "invalid cursor")
	}
	if params.Status != nil && !params.Status.IsValid() {
		return ListQuery{}, pkgerrors.Newf(pkgerrors.CodeInvalidRequest, "unknown order status %q", *params.Status)
	}
	return ListQuery{Limit: params.Limit, Cursor: cursor, Status: params.Status}, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidRequest, "order id is required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

// asAppError passes service errors through and wraps anything else as a dependency failure.
func asAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, message)
}

func (s *service) dispatch(ctx context.Context, event notifications.Event) {
	if s.dispatcher == nil {
		return
	}
	s.dispatcher.Dispatch(ctx, event)
}
