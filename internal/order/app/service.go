package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rasamarket/fulfillment/internal/order/domain"
	routing "github.com/rasamarket/fulfillment/internal/routing/domain"
)

type Service struct {
	repo          OrderRepo
	reservations  ReservationReleaser
	commitTimeout time.Duration
	log           *slog.Logger
}

func NewService(repo OrderRepo, reservations ReservationReleaser, commitTimeout time.Duration, log *slog.Logger) *Service {
	if commitTimeout <= 0 {
		commitTimeout = 10 * time.Second
	}

	return &Service{
		repo:          repo,
		reservations:  reservations,
		commitTimeout: commitTimeout,
		log:           log,
	}
}

// Commit turns a successful routing result into persisted orders, one per
// fulfiller group, with the hard stock decrement applied atomically. On
// success the session's soft reservations are released; on any failure
// nothing is persisted and the reservations stay until they expire.
func (s *Service) Commit(ctx context.Context, result routing.Result, req domain.CommitRequest) ([]domain.Order, error) {
	if !result.Success || len(result.Groups) == 0 {
		return nil, ErrNotRoutable
	}
	if strings.TrimSpace(req.SessionID) == "" {
		return nil, ErrMissingSession
	}

	checkoutGroupID := uuid.NewString()
	orders := make([]domain.Order, 0, len(result.Groups))
	for _, g := range result.Groups {
		lines := make([]domain.OrderLine, 0, len(g.Lines))
		for _, ln := range g.Lines {
			lines = append(lines, domain.OrderLine{
				ItemID:     ln.ItemID,
				Name:       ln.Name,
				UnitAmount: ln.UnitPrice,
				Quantity:   ln.Quantity,
				LineTotal:  ln.LineTotal,
				TrackStock: ln.TrackStock,
			})
		}

		orders = append(orders, domain.Order{
			CheckoutGroupID: checkoutGroupID,
			SessionID:       req.SessionID,
			CustomerID:      req.CustomerID,
			FulfillerID:     g.FulfillerID,
			Status:          domain.StatusPending,
			Currency:        req.Currency,
			SubtotalAmount:  g.Subtotal,
			DeliveryFee:     g.DeliveryFee,
			TotalAmount:     g.Subtotal + g.DeliveryFee,
			EstimatedAt:     result.Totals.EstimatedDelivery,
			DeliveryAddress: req.DeliveryAddress,
			ContactPhone:    req.ContactPhone,
			Lines:           lines,
		})
	}

	ctx, cancel := context.WithTimeout(ctx, s.commitTimeout)
	defer cancel()

	created, err := s.repo.CreateOrdersTx(ctx, orders)
	if err != nil {
		return nil, err
	}

	if s.reservations != nil {
		s.reservations.ReleaseAll(req.SessionID)
	}
	if s.log != nil {
		s.log.Info("order committed",
			slog.String("checkout_group", checkoutGroupID),
			slog.Int("orders", len(created)),
		)
	}
	return created, nil
}
