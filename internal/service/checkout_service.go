package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"pos-checkout-service/internal/broker"
	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	phasePreflight = "preflight"
	phasePersist   = "persist"
	phaseDebit     = "debit"
)

// CheckoutService commits a cart to the record store in three phases:
// a stock pre-flight, the order write and the per-line stock debit.
type CheckoutService struct {
	stock     StockStore
	orders    OrderWriter
	publisher EventPublisher
	mirror    StockMirror
	logger    *zap.Logger
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(
	stock StockStore,
	orders OrderWriter,
	publisher EventPublisher,
	mirror StockMirror,
) *CheckoutService {
	return &CheckoutService{
		stock:     stock,
		orders:    orders,
		publisher: publisher,
		mirror:    mirror,
		logger:    util.GetLogger(),
	}
}

// Receipt is a committed sale
type Receipt struct {
	Order *models.Order      `json:"order"`
	Items []models.OrderItem `json:"items"`
}

// Commit writes order and debits stock for lines. order carries the priced header;
// its id, number, source and creation time are filled in here.
func (s *CheckoutService) Commit(ctx context.Context, sessionID string, order *models.Order, lines []cart.Line) (*Receipt, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.Commit",
		attribute.String("session.id", sessionID),
		attribute.Int("cart.lines", len(lines)))
	defer span.End()

	logger := s.logger.With(zap.String("session_id", sessionID))

	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// Phase 1
	if err := s.preflight(ctx, lines); err != nil {
		var short *ShortfallError
		if errors.As(err, &short) {
			util.CheckoutsTotal.WithLabelValues("shortfall").Inc()
			logger.Info("Checkout aborted on stock shortfall", zap.Error(err))
		} else {
			util.CheckoutsTotal.WithLabelValues("aborted").Inc()
			logger.Error("Checkout pre-flight failed", zap.Error(err))
		}
		util.FailSpan(span, err)
		return nil, err
	}

	// Phase 2
	items, err := s.persist(ctx, order, lines)
	if err != nil {
		util.CheckoutsTotal.WithLabelValues("aborted").Inc()
		logger.Error("Checkout aborted while saving order", zap.Error(err))
		util.FailSpan(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))

	s.publishOrderCreated(ctx, sessionID, order, items)

	// Phase 3
	if err := s.debit(ctx, order, items); err != nil {
		util.CheckoutsTotal.WithLabelValues("partial_failure").Inc()
		util.StockDebitsFailed.Inc()
		logger.Error("Stock debit stopped after order was saved",
			zap.Int64("order_id", order.ID),
			zap.String("order_number", order.OrderNumber),
			zap.Error(err))
		util.FailSpan(span, err)
		s.publishPartialFailure(ctx, sessionID, err)
		return nil, err
	}

	util.CheckoutsTotal.WithLabelValues("completed").Inc()
	logger.Info("Checkout completed",
		zap.Int64("order_id", order.ID),
		zap.String("order_number", order.OrderNumber),
		zap.Int64("total", order.Total))

	s.publishCompleted(ctx, sessionID, order, items)
	return &Receipt{Order: order, Items: items}, nil
}

// preflight re-reads live stock for every line and reports all shortfalls at once
func (s *CheckoutService) preflight(ctx context.Context, lines []cart.Line) error {
	ctx, span := util.StartSpan(ctx, "CheckoutService.preflight")
	defer span.End()
	defer observePhase(phasePreflight, time.Now())

	var short []Shortfall
	for _, line := range lines {
		ref := line.Selection.StockRef()
		current, err := s.stock.GetStock(ctx, ref)
		if err != nil {
			return &AbortError{Phase: phasePreflight, Err: fmt.Errorf("failed to read stock of %s %s: %w", ref.Kind, ref.ID, err)}
		}
		if current < line.Quantity {
			short = append(short, Shortfall{
				Name:      cart.Describe(line.Selection),
				Stock:     ref,
				Requested: line.Quantity,
				Available: current,
			})
		}
	}

	if len(short) > 0 {
		return &ShortfallError{Lines: short}
	}
	return nil
}

// persist writes the order header and its lines at the cart's unit prices
func (s *CheckoutService) persist(ctx context.Context, order *models.Order, lines []cart.Line) ([]models.OrderItem, error) {
	ctx, span := util.StartSpan(ctx, "CheckoutService.persist")
	defer span.End()
	defer observePhase(phasePersist, time.Now())

	order.Source = models.OrderSourcePOS
	if order.OrderNumber == "" {
		order.OrderNumber = NewOrderNumber(time.Now())
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, &AbortError{Phase: phasePersist, Err: fmt.Errorf("failed to create order: %w", err)}
	}

	items := make([]models.OrderItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.OrderItem{
			OrderID:         order.ID,
			ProductID:       line.Selection.Base().ID,
			VariantID:       cart.VariantID(line.Selection),
			Quantity:        line.Quantity,
			PriceAtPurchase: line.UnitPrice,
		})
	}

	if err := s.orders.CreateOrderLines(ctx, order.ID, items); err != nil {
		s.logger.Warn("Order header written without lines",
			zap.Int64("order_id", order.ID),
			zap.String("order_number", order.OrderNumber))
		return nil, &AbortError{Phase: phasePersist, OrderID: order.ID, Err: fmt.Errorf("failed to create order lines: %w", err)}
	}

	return items, nil
}

// debit decrements stock line by line and stops at the first failure.
// Earlier debits are not rolled back.
func (s *CheckoutService) debit(ctx context.Context, order *models.Order, items []models.OrderItem) error {
	ctx, span := util.StartSpan(ctx, "CheckoutService.debit")
	defer span.End()
	defer observePhase(phaseDebit, time.Now())

	for i, item := range items {
		ref := stockRef(item)

		current, err := s.stock.GetStock(ctx, ref)
		if err == nil {
			err = s.stock.SetStock(ctx, ref, current-item.Quantity)
		}
		if err != nil {
			return &PartialCommitError{
				OrderID:     order.ID,
				OrderNumber: order.OrderNumber,
				Debited:     items[:i],
				Failed:      item,
				Pending:     items[i+1:],
				Err:         err,
			}
		}

		if s.mirror != nil {
			if err := s.mirror.MirrorStock(ctx, ref, current-item.Quantity); err != nil {
				s.logger.Warn("Failed to mirror stock level",
					zap.String("kind", string(ref.Kind)),
					zap.String("id", ref.ID),
					zap.Error(err))
			}
		}
	}
	return nil
}

func (s *CheckoutService) publishOrderCreated(ctx context.Context, sessionID string, order *models.Order, items []models.OrderItem) {
	event := &models.OrderCreatedEvent{
		BaseEvent:     broker.NewBaseEvent(models.EventTypeOrderCreated),
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		SessionID:     sessionID,
		CashierID:     order.CashierID,
		Total:         order.Total,
		PaymentMethod: order.PaymentMethod,
		Items:         itemData(items),
	}
	if err := s.publisher.PublishOrderCreated(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCreated event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (s *CheckoutService) publishCompleted(ctx context.Context, sessionID string, order *models.Order, items []models.OrderItem) {
	event := &models.CheckoutCompletedEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeCheckoutCompleted),
		OrderID:   order.ID,
		SessionID: sessionID,
		Items:     itemData(items),
	}
	if err := s.publisher.PublishCheckoutCompleted(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutCompleted event", zap.Int64("order_id", order.ID), zap.Error(err))
	}
}

func (s *CheckoutService) publishPartialFailure(ctx context.Context, sessionID string, err error) {
	var pce *PartialCommitError
	if !errors.As(err, &pce) {
		return
	}

	failed := itemData([]models.OrderItem{pce.Failed})
	event := &models.CheckoutPartialFailureEvent{
		BaseEvent: broker.NewBaseEvent(models.EventTypeCheckoutPartialFailure),
		OrderID:   pce.OrderID,
		SessionID: sessionID,
		Debited:   itemData(pce.Debited),
		Failed:    failed[0],
		Pending:   itemData(pce.Pending),
		Reason:    pce.Err.Error(),
	}
	if err := s.publisher.PublishCheckoutPartialFailure(ctx, event); err != nil {
		s.logger.Error("Failed to publish CheckoutPartialFailure event", zap.Int64("order_id", pce.OrderID), zap.Error(err))
	}
}

// NewOrderNumber generates a human-readable POS order number
func NewOrderNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("POS-%s-%s", now.Format("20060102"), suffix)
}

func stockRef(item models.OrderItem) models.StockRef {
	if item.VariantID != nil {
		return models.StockRef{Kind: models.StockKindVariant, ID: *item.VariantID}
	}
	return models.StockRef{Kind: models.StockKindProduct, ID: item.ProductID}
}

func itemData(items []models.OrderItem) []models.OrderItemData {
	out := make([]models.OrderItemData, 0, len(items))
	for _, item := range items {
		out = append(out, models.OrderItemData{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
			UnitPrice: item.PriceAtPurchase,
		})
	}
	return out
}

func observePhase(phase string, start time.Time) {
	util.CheckoutPhaseLatency.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
