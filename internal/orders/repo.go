package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Where("id = ?", id).
		First(&order).Error
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// UpdateStatusIf applies updates only while the order still has the expected
// status. It reports whether the row was updated.
func (r *repository) UpdateStatusIf(ctx context.Context, id uuid.UUID, expected enums.OrderStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ?", id, expected).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdatePaymentIf applies updates only while both statuses are unchanged.
func (r *repository) UpdatePaymentIf(ctx context.Context, id uuid.UUID, expectedOrder enums.OrderStatus, expectedPayment enums.PaymentStatus, updates map[string]any) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Order{}).
		Where("id = ? AND order_status = ? AND payment_status = ?", id, expectedOrder, expectedPayment).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// MarkItemRestocked claims an item for stock restoration. Only the first
// caller for a given item gets true.
func (r *repository) MarkItemRestocked(ctx context.Context, itemID uuid.UUID, at time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.OrderItem{}).
		Where("id = ? AND restocked_at IS NULL", itemID).
		Update("restocked_at", at)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) ListByCustomer(ctx context.Context, customerID uuid.UUID, query ListQuery) ([]models.Order, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{}).Where("customer_id = ?", customerID)
	return r.list(ctx, q, query)
}

// ListBySeller lists orders holding at least one item of sellerID. uuid.Nil
// lists every order.
func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID, query ListQuery) ([]models.Order, *pagination.Cursor, error) {
	q := r.db.WithContext(ctx).Model(&models.Order{})
	if sellerID != uuid.Nil {
		sub := r.db.Model(&models.OrderItem{}).Select("order_id").Where("seller_id = ?", sellerID)
		q = q.Where("id IN (?)", sub)
	}
	return r.list(ctx, q, query)
}

func (r *repository) list(ctx context.Context, q *gorm.DB, query ListQuery) ([]models.Order, *pagination.Cursor, error) {
	if query.Status != nil {
		q = q.Where("order_status = ?", *query.Status)
	}
	if query.Cursor != nil {
		q = q.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			query.Cursor.CreatedAt, query.Cursor.CreatedAt, query.Cursor.ID)
	}

	var orders []models.Order
	err := q.
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("created_at ASC, id ASC")
		}).
		Order("created_at DESC, id DESC").
		Limit(pagination.LimitWithBuffer(query.Limit)).
		Find(&orders).Error
	if err != nil {
		return nil, nil, err
	}

	orders, next := pagination.Trim(orders, query.Limit, func(o models.Order) pagination.Cursor {
		return pagination.Cursor{CreatedAt: o.CreatedAt, ID: o.ID}
	})
	return orders, next, nil
}
