package service

import (
	"context"
	"fmt"
	"strings"

	"stockroom/internal/events"
	"stockroom/internal/model"
	"stockroom/internal/repository"

	"github.com/rs/zerolog"
)

// orderService implements OrderService.
type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	userRepo    repository.UserRepository
	reports     ReportInvalidator
	publisher   events.Publisher
	logger      zerolog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orderRepo repository.OrderRepository,
	productRepo repository.ProductRepository,
	userRepo repository.UserRepository,
	reports ReportInvalidator,
	publisher events.Publisher,
	logger zerolog.Logger,
) OrderService {
	return &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		userRepo:    userRepo,
		reports:     reports,
		publisher:   publisher,
		logger:      logger.With().Str("service", "order").Logger(),
	}
}

// Create validates and stores a new order.
func (s *orderService) Create(ctx context.Context, req *model.CreateOrderRequest) (*model.Order, error) {
	if req.TotalAmount <= 0 {
		return nil, model.ErrValidationFailed.WithMessage("Total amount must be positive")
	}

	productIDs := model.ProductIDs(req.Products)
	if len(productIDs) == 0 {
		return nil, model.ErrValidationFailed.WithMessage("Order must contain at least one product")
	}

	if err := s.requireUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	sum, err := s.priceSum(ctx, productIDs)
	if err != nil {
		return nil, err
	}

	if sum != req.TotalAmount {
		s.logger.Warn().
			Int("total_amount", req.TotalAmount).
			Int("price_sum", sum).
			Msg("order total mismatch")
		return nil, totalMismatch(req.TotalAmount, sum)
	}

	order, err := s.orderRepo.Create(ctx, model.NewOrder{
		TotalAmount: req.TotalAmount,
		UserID:      req.UserID,
		ProductIDs:  productIDs,
	})
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", req.UserID).Msg("failed to create order")
		return nil, wrapErr(err, "create order")
	}

	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.OrderCreated, events.Key("order", order.ID), order)

	s.logger.Info().
		Int64("order_id", order.ID).
		Int64("user_id", req.UserID).
		Int("total_amount", order.TotalAmount).
		Int("product_count", len(order.Products)).
		Msg("order created successfully")

	return order, nil
}

// GetAll retrieves orders with pagination.
func (s *orderService) GetAll(ctx context.Context, limit, offset int) ([]model.Order, error) {
	limit, offset = clampPage(limit, offset)

	orders, err := s.orderRepo.GetAll(ctx, limit, offset)
	if err != nil {
		s.logger.Error().Err(err).
			Int("limit", limit).
			Int("offset", offset).
			Msg("failed to get all orders")
		return nil, wrapErr(err, "get orders")
	}

	return orders, nil
}

// GetByID retrieves an order by its ID.
func (s *orderService) GetByID(ctx context.Context, id int64) (*model.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to get order by ID")
		return nil, wrapErr(err, "get order")
	}

	if order == nil {
		return nil, model.ErrOrderNotFound
	}

	return order, nil
}

// GetByIDs retrieves orders by their IDs.
func (s *orderService) GetByIDs(ctx context.Context, ids []int64) ([]model.Order, error) {
	if len(ids) == 0 {
		return []model.Order{}, nil
	}

	orders, err := s.orderRepo.GetByIDs(ctx, ids)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(ids)).Msg("failed to get orders by IDs")
		return nil, wrapErr(err, "get orders")
	}

	return orders, nil
}

// Update validates and applies a partial update. Supplying products without
// a total recomputes the total from their prices.
func (s *orderService) Update(ctx context.Context, id int64, req *model.UpdateOrderRequest) (*model.Order, error) {
	if req.TotalAmount == nil && req.UserID == nil && req.Products == nil {
		return nil, model.ErrValidationFailed.WithMessage("No fields to update")
	}
	if req.TotalAmount != nil && *req.TotalAmount <= 0 {
		return nil, model.ErrValidationFailed.WithMessage("Total amount must be positive")
	}
	if req.Products != nil && len(req.Products) == 0 {
		return nil, model.ErrValidationFailed.WithMessage("Order must contain at least one product")
	}

	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.UserID != nil {
		if err := s.requireUser(ctx, *req.UserID); err != nil {
			return nil, err
		}
	}

	changes := model.OrderChanges{
		TotalAmount: req.TotalAmount,
		UserID:      req.UserID,
		ProductIDs:  model.ProductIDs(req.Products),
	}

	switch {
	case changes.ProductIDs != nil:
		sum, err := s.priceSum(ctx, changes.ProductIDs)
		if err != nil {
			return nil, err
		}
		if changes.TotalAmount == nil {
			changes.TotalAmount = &sum
		} else if *changes.TotalAmount != sum {
			return nil, totalMismatch(*changes.TotalAmount, sum)
		}
	case changes.TotalAmount != nil:
		sum := 0
		for _, p := range existing.Products {
			sum += p.Price
		}
		if *changes.TotalAmount != sum {
			return nil, totalMismatch(*changes.TotalAmount, sum)
		}
	}

	order, err := s.orderRepo.Update(ctx, id, changes)
	if err != nil {
		s.logger.Error().Err(err).Int64("order_id", id).Msg("failed to update order")
		return nil, wrapErr(err, "update order")
	}

	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.OrderUpdated, events.Key("order", order.ID), order)

	s.logger.Info().
		Int64("order_id", order.ID).
		Int("total_amount", order.TotalAmount).
		Msg("order updated")

	return order, nil
}

// Remove deletes an order.
func (s *orderService) Remove(ctx context.Context, id int64) error {
	if err := s.orderRepo.Remove(ctx, id); err != nil {
		s.logger.Warn().Err(err).Int64("order_id", id).Msg("failed to remove order")
		return wrapErr(err, "remove order")
	}

	s.reports.Invalidate(ctx)
	publish(ctx, s.publisher, s.logger, events.OrderDeleted, events.Key("order", id), events.Deleted{ID: id})

	s.logger.Info().Int64("order_id", id).Msg("order removed")

	return nil
}

// requireUser returns ErrInvalidUser when the user does not exist.
func (s *orderService) requireUser(ctx context.Context, userID int64) error {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to look up user")
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if user == nil {
		return model.ErrInvalidUser.WithMessage(fmt.Sprintf("User %d does not exist", userID))
	}

	return nil
}

// priceSum resolves every product id and returns the sum of their prices.
func (s *orderService) priceSum(ctx context.Context, productIDs []int64) (int, error) {
	seen := make(map[int64]struct{}, len(productIDs))
	for _, id := range productIDs {
		if _, dup := seen[id]; dup {
			return 0, model.ErrInvalidProducts.WithMessage(fmt.Sprintf("Product %d is listed more than once", id))
		}
		seen[id] = struct{}{}
	}

	products, err := s.productRepo.GetByIDs(ctx, productIDs)
	if err != nil {
		s.logger.Error().Err(err).Int("count", len(productIDs)).Msg("failed to load order products")
		return 0, fmt.Errorf("failed to load products: %w", err)
	}

	sum := 0
	for _, p := range products {
		delete(seen, p.ID)
		sum += p.Price
	}

	if len(seen) > 0 {
		missing := make([]string, 0, len(seen))
		for _, id := range productIDs {
			if _, ok := seen[id]; ok {
				missing = append(missing, fmt.Sprint(id))
			}
		}
		return 0, model.ErrInvalidProducts.WithMessage(
			fmt.Sprintf("Products with IDs [%s] not found", strings.Join(missing, ", ")),
		)
	}

	return sum, nil
}

func totalMismatch(total, sum int) error {
	return model.ErrTotalMismatch.WithMessage(
		fmt.Sprintf("Total amount %d does not match the sum of product prices %d", total, sum),
	)
}
