package seller

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/marketplace-backend/api/middleware"
	"github.com/angelmondragon/marketplace-backend/internal/analytics"
	internalorders "github.com/angelmondragon/marketplace-backend/internal/orders"
	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
	"github.com/angelmondragon/marketplace-backend/pkg/pagination"
)

type stubOrdersService struct {
	transitions []internalorders.TransitionInput
	payments    []internalorders.PaymentStatusInput
	listed      internalorders.ListParams
	err         error
}

func (s *stubOrdersService) CreateOrder(context.Context, internalorders.CreateOrderInput) (*internalorders.OrderView, error) {
	panic("not implemented")
}

func (s *stubOrdersService) Get(context.Context, auth.Principal, uuid.UUID) (*internalorders.OrderView, error) {
	panic("not implemented")
}

func (s *stubOrdersService) ListForCustomer(context.Context, auth.Principal, internalorders.ListParams) (*pagination.Page[internalorders.OrderView], error) {
	panic("not implemented")
}

func (s *stubOrdersService) ListForSeller(_ context.Context, _ auth.Principal, params internalorders.ListParams) (*pagination.Page[internalorders.SellerOrderView], error) {
	s.listed = params
	return &pagination.Page[internalorders.SellerOrderView]{Items: []internalorders.SellerOrderView{}}, s.err
}

func (s *stubOrdersService) Transition(_ context.Context, input internalorders.TransitionInput) (*internalorders.SellerOrderView, error) {
	s.transitions = append(s.transitions, input)
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.SellerOrderView{ID: input.OrderID, OrderStatus: input.Status}, nil
}

func (s *stubOrdersService) UpdatePaymentStatus(_ context.Context, input internalorders.PaymentStatusInput) (*internalorders.SellerOrderView, error) {
	s.payments = append(s.payments, input)
	if s.err != nil {
		return nil, s.err
	}
	return &internalorders.SellerOrderView{ID: input.OrderID, PaymentStatus: input.Status}, nil
}

func (s *stubOrdersService) Cancel(context.Context, internalorders.CancelInput) (*internalorders.OrderView, error) {
	panic("not implemented")
}

type stubStatsService struct {
	sellerID uuid.UUID
	err      error
}

func (s *stubStatsService) SellerStats(_ context.Context, principal auth.Principal, sellerID uuid.UUID, _ time.Time) (*analytics.SellerStats, error) {
	s.sellerID = sellerID
	if s.err != nil {
		return nil, s.err
	}
	return &analytics.SellerStats{SellerID: principal.UserID}, nil
}

func sellerRequest(method, target, body string, orderID uuid.UUID) (*http.Request, auth.Principal) {
	principal := auth.Principal{UserID: uuid.New(), Role: enums.RoleSeller}
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rc := chi.NewRouteContext()
	if orderID != uuid.Nil {
		rc.URLParams.Add(orderIDParam, orderID.String())
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rc)
	return req.WithContext(middleware.WithPrincipal(ctx, principal)), principal
}

func TestUpdateStatusPassesTransition(t *testing.T) {
	stub := &stubOrdersService{}
	orderID := uuid.New()
	req, principal := sellerRequest(http.MethodPut, "/", `{"status":"cancelled","reason":" out of stock "}`, orderID)
	resp := httptest.NewRecorder()
	UpdateStatus(stub, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, stub.transitions, 1)
	got := stub.transitions[0]
	assert.Equal(t, orderID, got.OrderID)
	assert.Equal(t, principal, got.Principal)
	assert.Equal(t, enums.OrderStatusCancelled, got.Status)
	assert.Equal(t, "out of stock", got.Reason)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	stub := &stubOrdersService{}
	req, _ := sellerRequest(http.MethodPut, "/", `{"status":"teleported"}`, uuid.New())
	resp := httptest.NewRecorder()
	UpdateStatus(stub, nil).ServeHTTP(resp, req)

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Empty(t, stub.transitions)
}

func TestUpdateStatusMapsStateMachineErrors(t *testing.T) {
	cases := map[pkgerrors.Code]int{
		pkgerrors.CodeForbidden:          http.StatusForbidden,
		pkgerrors.CodePreconditionFailed: http.StatusPreconditionFailed,
		pkgerrors.CodeConflict:           http.StatusConflict,
		pkgerrors.CodeNotFound:           http.StatusNotFound,
	}
	for code, status := range cases {
		stub := &stubOrdersService{err: pkgerrors.New(code, "rejected")}
		req, _ := sellerRequest(http.MethodPut, "/", `{"status":"delivered"}`, uuid.New())
		resp := httptest.NewRecorder()
		UpdateStatus(stub, nil).ServeHTTP(resp, req)
		assert.Equal(t, status, resp.Code, string(code))
	}
}

func TestUpdatePaymentStatus(t *testing.T) {
	stub := &stubOrdersService{}
	orderID := uuid.New()
	req, _ := sellerRequest(http.MethodPut, "/", `{"payment_status":"paid"}`, orderID)
	resp := httptest.NewRecorder()
	UpdatePaymentStatus(stub, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	require.Len(t, stub.payments, 1)
	assert.Equal(t, enums.PaymentStatusPaid, stub.payments[0].Status)

	req, _ = sellerRequest(http.MethodPut, "/", `{"payment_status":"refunded"}`, orderID)
	resp = httptest.NewRecorder()
	UpdatePaymentStatus(stub, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestListOrdersParsesFilters(t *testing.T) {
	stub := &stubOrdersService{}
	req, _ := sellerRequest(http.MethodGet, "/api/v1/seller/orders?status=shipped&limit=10", "", uuid.Nil)
	resp := httptest.NewRecorder()
	ListOrders(stub, nil).ServeHTTP(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 10, stub.listed.Limit)
	require.NotNil(t, stub.listed.Status)
	assert.Equal(t, enums.OrderStatusShipped, *stub.listed.Status)
}

func TestStatsForwardsSellerFilter(t *testing.T) {
	stub := &stubStatsService{}
	target := uuid.New()
	req, _ := sellerRequest(http.MethodGet, "/api/v1/seller/stats?seller_id="+target.String(), "", uuid.Nil)
	resp := httptest.NewRecorder()
	Stats(stub, nil).ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, target, stub.sellerID)

	stub = &stubStatsService{err: pkgerrors.New(pkgerrors.CodeForbidden, "sellers can only view their own stats")}
	req, _ = sellerRequest(http.MethodGet, "/api/v1/seller/stats?seller_id="+target.String(), "", uuid.Nil)
	resp = httptest.NewRecorder()
	Stats(stub, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusForbidden, resp.Code)

	req, _ = sellerRequest(http.MethodGet, "/api/v1/seller/stats?seller_id=nope", "", uuid.Nil)
	resp = httptest.NewRecorder()
	Stats(&stubStatsService{}, nil).ServeHTTP(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}
