package cart

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-backend/internal/catalog"
	"github.com/angelmondragon/marketplace-backend/pkg/db"
	"github.com/angelmondragon/marketplace-backend/pkg/db/dbtest"
	"github.com/angelmondragon/marketplace-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

func newTestService(t *testing.T) (Service, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t)
	svc, err := NewService(NewRepository(conn), catalog.NewRepository(conn), db.Wrap(conn))
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, conn
}

func seed(t *testing.T, conn *gorm.DB, stock int, price int64) models.Product {
	t.Helper()
	return dbtest.SeedProduct(t, conn, models.Product{
		SellerID:   uuid.New(),
		Title:      "Ceramic mug",
		PriceCents: price,
		Stock:      stock,
		IsActive:   true,
	})
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	conn := dbtest.Open(t)
	_, err := NewService(nil, catalog.NewRepository(conn), db.Wrap(conn))
	require.Error(t, err)
	_, err = NewService(NewRepository(conn), nil, db.Wrap(conn))
	require.Error(t, err)
	_, err = NewService(NewRepository(conn), catalog.NewRepository(conn), nil)
	require.Error(t, err)
}

func TestGetCartWithoutCartIsEmpty(t *testing.T) {
	svc, conn := newTestService(t)
	customer := uuid.New()

	view, err := svc.GetCart(context.Background(), customer)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	assert.Equal(t, int64(0), view.TotalCents)
	assert.Equal(t, "0.00", view.Total)

	var count int64
	require.NoError(t, conn.Model(&models.Cart{}).Count(&count).Error)
	assert.Zero(t, count, "reading must not create a cart")
}

func TestAddItemStockCeiling(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	product := seed(t, conn, 5, 1250)

	view, err := svc.AddItem(ctx, customer, product.ID, 3)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)

	_, err = svc.AddItem(ctx, customer, product.ID, 3)
	require.Error(t, err)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	view, err = svc.GetCart(ctx, customer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, 5, dbtest.Stock(t, conn, product.ID), "carts never reserve stock")
}

func TestAddItemMergesAndRefreshesSnapshot(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	product := seed(t, conn, 10, 1000)

	_, err := svc.AddItem(ctx, customer, product.ID, 2)
	require.NoError(t, err)

	discount := int64(800)
	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", product.ID).
		Update("discount_price_cents", discount).Error)

	view, err := svc.AddItem(ctx, customer, product.ID, 1)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 3, view.Items[0].Quantity)
	assert.Equal(t, int64(800), view.Items[0].UnitPriceCents)
	assert.Equal(t, int64(2400), view.TotalCents)
	assert.Equal(t, "24.00", view.Total)
}

func TestAddItemRejectsInvalidInput(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	product := seed(t, conn, 5, 100)

	_, err := svc.AddItem(ctx, uuid.New(), product.ID, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))

	_, err = svc.AddItem(ctx, uuid.New(), uuid.New(), 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	inactive := dbtest.SeedProduct(t, conn, models.Product{
		SellerID:   uuid.New(),
		Title:      "Retired",
		PriceCents: 100,
		Stock:      3,
	})
	_, err = svc.AddItem(ctx, uuid.New(), inactive.ID, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))
}

func TestGetCartIsIdempotentAndOrdered(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	first := seed(t, conn, 5, 300)
	second := seed(t, conn, 5, 700)

	_, err := svc.AddItem(ctx, customer, first.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, customer, second.ID, 2)
	require.NoError(t, err)

	a, err := svc.GetCart(ctx, customer)
	require.NoError(t, err)
	b, err := svc.GetCart(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	require.Len(t, a.Items, 2)
	assert.Equal(t, first.ID, a.Items[0].ProductID)
	assert.Equal(t, second.ID, a.Items[1].ProductID)
	assert.Equal(t, int64(1700), a.TotalCents)
	assert.Equal(t, 3, a.ItemCount)
}

func TestGetCartHidesInactiveProducts(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	kept := seed(t, conn, 5, 500)
	hidden := seed(t, conn, 5, 900)

	_, err := svc.AddItem(ctx, customer, kept.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, customer, hidden.ID, 1)
	require.NoError(t, err)

	require.NoError(t, conn.Model(&models.Product{}).Where("id = ?", hidden.ID).
		Update("is_active", false).Error)

	view, err := svc.GetCart(ctx, customer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, kept.ID, view.Items[0].ProductID)
	assert.Equal(t, int64(500), view.TotalCents)

	var stored int64
	require.NoError(t, conn.Model(&models.CartItem{}).Count(&stored).Error)
	assert.Equal(t, int64(2), stored, "hidden lines stay stored")
}

func TestUpdateItem(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	product := seed(t, conn, 4, 250)

	_, err := svc.UpdateItem(ctx, customer, product.ID, 1)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	_, err = svc.AddItem(ctx, customer, product.ID, 1)
	require.NoError(t, err)

	view, err := svc.UpdateItem(ctx, customer, product.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, view.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, customer, product.ID, 5)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInsufficientStock))

	_, err = svc.UpdateItem(ctx, customer, product.ID, 0)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeInvalidRequest))
}

func TestRemoveItemAndClear(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	a := seed(t, conn, 5, 100)
	b := seed(t, conn, 5, 200)

	_, err := svc.AddItem(ctx, customer, a.ID, 1)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, customer, b.ID, 1)
	require.NoError(t, err)

	view, err := svc.RemoveItem(ctx, customer, a.ID)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)

	_, err = svc.RemoveItem(ctx, customer, a.ID)
	assert.True(t, pkgerrors.HasCode(err, pkgerrors.CodeNotFound))

	view, err = svc.Clear(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	_, err = svc.Clear(ctx, customer)
	require.NoError(t, err)
	_, err = svc.Clear(ctx, uuid.New())
	require.NoError(t, err)
}

func TestCheckoutLinesAndClearForCheckout(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	customer := uuid.New()
	product := seed(t, conn, 5, 100)

	_, err := svc.AddItem(ctx, customer, product.ID, 2)
	require.NoError(t, err)

	err = db.Wrap(conn).WithTx(ctx, func(tx *gorm.DB) error {
		lines, err := svc.CheckoutLines(ctx, tx, customer)
		if err != nil {
			return err
		}
		require.Equal(t, []Line{{ProductID: product.ID, Quantity: 2}}, lines)
		return svc.ClearForCheckout(ctx, tx, customer)
	})
	require.NoError(t, err)

	view, err := svc.GetCart(ctx, customer)
	require.NoError(t, err)
	assert.Empty(t, view.Items)

	lines, err := svc.CheckoutLines(ctx, conn, uuid.New())
	require.NoError(t, err)
	assert.Empty(t, lines)
}
