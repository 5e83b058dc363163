package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/cart"
	"github.com/angelmondragon/marketplace-backend/internal/notifications"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error)
	UpdatePaymentIf(ctx context.Context, id uuid.UUID, expectedOrder enums.OrderStatus, expectedPayment enums.PaymentStatus, updates map[string]any) (bool, error)
	MarkItemRestocked(ctx context.Context, itemID uuid.UUID, at time.Time) (bool, error)
	ListByCustomer(ctx context.Context, customerID uuid.UUID, query ListQuery) ([]models.Order, *pagination.Cursor, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID, query ListQuery) ([]models.Order, *pagination.Cursor, error)
}

// ListQuery narrows an order list. A nil status lists every status.
type ListQuery struct {
	Limit  int
	Cursor *pagination.Cursor
	Status *enums.OrderStatus
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cartCheckout interface {
	CheckoutLines(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) ([]cart.Line, error)
	ClearForCheckout(ctx context.Context, tx *gorm.DB, customerID uuid.UUID) error
}

type eventDispatcher interface {
	Dispatch(ctx context.Context, event notifications.Event)
}

type metricsRecorder interface {
	ObserveCreate(duration time.Duration, code string)
	IncTransition(from, to string)
	IncPaymentTransition(from, to string)
	AddRestocked(units int)
}
