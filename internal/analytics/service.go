package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/marketplace-backend/pkg/auth"
	"github.com/angelmondragon/marketplace-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/marketplace-backend/pkg/errors"
)

// Service provides per-seller revenue statistics.
type Service interface {
	SellerStats(ctx context.Context, principal auth.Principal, sellerID uuid.UUID, now time.Time) (*SellerStats, error)
}

type service struct {
	repo   Repository
	window time.Duration
}

// NewService builds the analytics service. A non-positive window falls back to DefaultWindow.
func NewService(repo Repository, window time.Duration) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("analytics repository required")
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &service{repo: repo, window: window}, nil
}

// SellerStats aggregates sellerID's orders. Sellers may only query
// themselves; admins may query any seller.
func (s *service) SellerStats(ctx context.Context, principal auth.Principal, sellerID uuid.UUID, now time.Time) (*SellerStats, error) {
	if !principal.HasRole(enums.RoleSeller, enums.RoleAdmin) {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "seller or admin role required")
	}
	if sellerID == uuid.Nil {
		sellerID = principal.UserID
	}
	if !principal.IsAdmin() && sellerID != principal.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "sellers can only view their own stats")
	}

	orders, err := s.repo.OrdersForSeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load seller orders")
	}
	stats := Aggregate(sellerID, orders, now, s.window)
	return &stats, nil
}
