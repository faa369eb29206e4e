package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/pricing"
	"pos-checkout-service/internal/promotion"
	"pos-checkout-service/internal/shipping"
	"pos-checkout-service/internal/util"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ShippingForm is the courier part of the checkout form
type ShippingForm struct {
	Courier       shipping.CourierKind `json:"courier" validate:"required,oneof=pickup manual courier"`
	CourierID     string               `json:"courier_id" validate:"required_if=Courier courier"`
	DestinationID string               `json:"destination_id" validate:"required_if=Courier courier"`
	ManualCost    *int64               `json:"manual_cost,omitempty" validate:"omitempty,gte=0"`
}

// CheckoutForm carries the recipient details captured at checkout
type CheckoutForm struct {
	RecipientName   string `json:"recipient_name" validate:"required_if=Delivery true,max=120"`
	RecipientPhone  string `json:"recipient_phone" validate:"required_if=Delivery true,max=32"`
	ShippingAddress string `json:"shipping_address" validate:"required_if=Delivery true,max=500"`
	Notes           string `json:"notes" validate:"max=500"`
	// Delivery is derived from the session's courier selection
	Delivery bool `json:"-"`
}

// State is what the terminal renders after every operation
type State struct {
	ID             string          `json:"id"`
	CashierID      string          `json:"cashier_id"`
	Lines          []cart.Line     `json:"lines"`
	PromoCode      string          `json:"promo_code,omitempty"`
	Shipping       ShippingForm    `json:"shipping"`
	ShippingQuote  shipping.Cost   `json:"shipping_quote"`
	Payment        pricing.Payment `json:"payment"`
	Pricing        pricing.Result  `json:"pricing"`
	PromotionsAt   time.Time       `json:"promotions_loaded_at"`
	CatalogStale   bool            `json:"catalog_stale"`
	CheckoutActive bool            `json:"checkout_active"`
}

// SessionDeps are the collaborators shared by every session
type SessionDeps struct {
	Store    RecordStore
	Catalog  *CatalogService
	Checkout *CheckoutService
	Locker   Locker
	LockTTL  time.Duration
	Clock    func() time.Time
}

// Session is the state of one cashier terminal between mount and close.
// All mutating operations re-derive shipping and pricing before returning.
type Session struct {
	ID        string
	CashierID string

	deps   SessionDeps
	now    func() time.Time
	logger *zap.Logger

	mu             sync.Mutex
	committing     bool
	lastActive     time.Time
	catalog        []models.ProductWithVariants
	catalogStale   bool
	cart           *cart.Cart
	promos         *promotion.Cache
	manualPromo    *models.Promotion
	courier        shipping.Selection
	destinationID  string
	quote          shipping.Cost
	manualShipping *int64
	payment        pricing.Payment
	result         pricing.Result
}

func newSession(ctx context.Context, deps SessionDeps, cashierID string) (*Session, error) {
	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	id := uuid.NewString()
	s := &Session{
		ID:        id,
		CashierID: cashierID,
		deps:      deps,
		now:       now,
		logger:    util.SessionLogger(id, cashierID),
		cart:      cart.New(),
		promos:    promotion.NewCache(deps.Store),
	}
	s.resetFormLocked()

	catalog, err := deps.Catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}
	s.catalog = catalog

	if err := s.promos.Refresh(ctx, now()); err != nil {
		return nil, err
	}

	s.lastActive = now()
	s.recomputeLocked()
	return s, nil
}

// State returns a snapshot of the session
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// Catalog returns the catalog snapshot the session sells from
func (s *Session) Catalog() []models.ProductWithVariants {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.catalog
}

// Pricing returns the latest pricing result
func (s *Session) Pricing() pricing.Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result
}

// AddLine adds one unit of a product, or of one of its variants when variantID is set
func (s *Session) AddLine(ctx context.Context, productID, variantID string) (State, error) {
	ctx, span := util.StartSpan(ctx, "Session.AddLine",
		attribute.String("product.id", productID),
		attribute.String("variant.id", variantID))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	sel, err := s.selectLocked(productID, variantID)
	if err != nil {
		return s.stateLocked(), err
	}

	if err := s.cart.Add(sel); err != nil {
		rejected(err)
		util.FailSpan(span, err)
		return s.stateLocked(), err
	}

	s.cartChangedLocked(ctx)
	return s.stateLocked(), nil
}

// ChangeQuantity adjusts a line by delta. Reaching zero removes the line.
func (s *Session) ChangeQuantity(ctx context.Context, key cart.LineKey, delta int) (State, error) {
	ctx, span := util.StartSpan(ctx, "Session.ChangeQuantity", attribute.String("line.key", string(key)))
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	if err := s.cart.ChangeQuantity(key, delta); err != nil {
		rejected(err)
		return s.stateLocked(), err
	}

	s.cartChangedLocked(ctx)
	return s.stateLocked(), nil
}

// RemoveLine drops a line from the cart
func (s *Session) RemoveLine(ctx context.Context, key cart.LineKey) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	s.cart.Remove(key)
	s.cartChangedLocked(ctx)
	return s.stateLocked(), nil
}

// ClearCart empties the cart
func (s *Session) ClearCart(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	s.cart.Clear()
	s.cartChangedLocked(ctx)
	return s.stateLocked(), nil
}

// ApplyPromoCode pins a promotion by its code. The code is checked against the current cart
// and rejected with the first failing eligibility condition.
func (s *Session) ApplyPromoCode(ctx context.Context, code string) (State, error) {
	ctx, span := util.StartSpan(ctx, "Session.ApplyPromoCode")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	code = promotion.NormalizeCode(code)
	if code == "" {
		util.PromoCodeAttemptsTotal.WithLabelValues("empty").Inc()
		return s.stateLocked(), promotion.ErrCodeRequired
	}

	promo, err := s.deps.Store.FindPromotionByCode(ctx, code)
	if err != nil {
		util.FailSpan(span, err)
		return s.stateLocked(), fmt.Errorf("failed to look up promotion code: %w", err)
	}

	if promo != nil && promo.DiscountType == models.DiscountBuyMoreSaveMore {
		tiers, err := s.deps.Store.ListPromotionTiers(ctx, []string{promo.ID})
		if err != nil {
			return s.stateLocked(), fmt.Errorf("failed to load promotion tiers: %w", err)
		}
		s.promos.AddTiers(promo.ID, tiers)
	}

	lines := s.cart.Lines()
	err = promotion.Validate(promo, promotion.Input{
		Lines:    lines,
		Subtotal: cart.Subtotal(lines),
		Tiers:    s.promos.Tiers(),
		Now:      s.now(),
	})
	if err != nil {
		util.PromoCodeAttemptsTotal.WithLabelValues(promoRejection(err)).Inc()
		s.logger.Info("Promotion code rejected", zap.String("code", code), zap.Error(err))
		return s.stateLocked(), err
	}

	util.PromoCodeAttemptsTotal.WithLabelValues("accepted").Inc()
	s.manualPromo = promo
	s.recomputeLocked()
	return s.stateLocked(), nil
}

// ClearPromoCode returns to automatic promotion selection
func (s *Session) ClearPromoCode(ctx context.Context) (State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	s.manualPromo = nil
	s.recomputeLocked()
	return s.stateLocked(), nil
}

// SetShipping selects the courier and destination and prices the shipment
func (s *Session) SetShipping(ctx context.Context, form ShippingForm) (State, error) {
	ctx, span := util.StartSpan(ctx, "Session.SetShipping", attribute.String("courier", string(form.Courier)))
	defer span.End()

	if err := util.ValidateStruct(form); err != nil {
		return s.State(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	s.courier = shipping.Selection{Kind: form.Courier, CourierID: form.CourierID}
	s.destinationID = form.DestinationID
	s.manualShipping = form.ManualCost

	err := s.quoteLocked(ctx)
	s.recomputeLocked()
	if err != nil {
		util.FailSpan(span, err)
	}
	return s.stateLocked(), err
}

// SetPayment records the payment method and cash received
func (s *Session) SetPayment(ctx context.Context, payment pricing.Payment) (State, error) {
	if err := util.ValidateStruct(payment); err != nil {
		return s.State(), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.guardLocked(); err != nil {
		return s.stateLocked(), err
	}

	if payment.Method != models.PaymentCash {
		payment.CashReceived = 0
	}
	s.payment = payment
	s.recomputeLocked()
	return s.stateLocked(), nil
}

// RefreshPromotions reloads the session's promotion cache
func (s *Session) RefreshPromotions(ctx context.Context) (State, error) {
	ctx, span := util.StartSpan(ctx, "Session.RefreshPromotions")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.promos.Refresh(ctx, s.now()); err != nil {
		util.FailSpan(span, err)
		return s.stateLocked(), err
	}
	s.recomputeLocked()
	return s.stateLocked(), nil
}

// ReloadCatalog fetches a fresh catalog snapshot. Lines already in the cart keep the
// price and stock captured when they were added.
func (s *Session) ReloadCatalog(ctx context.Context) ([]models.ProductWithVariants, error) {
	catalog, err := s.deps.Catalog.LoadCatalog(ctx)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.catalog = catalog
	s.catalogStale = false
	s.touchLocked()
	return catalog, nil
}

// Checkout commits the cart. On success the cart and form are reset and the catalog reloaded.
func (s *Session) Checkout(ctx context.Context, form CheckoutForm) (*Receipt, error) {
	ctx, span := util.StartSpan(ctx, "Session.Checkout", attribute.String("session.id", s.ID))
	defer span.End()

	order, lines, applied, err := s.beginCheckout(form)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}
	defer s.endCheckout()

	lockName := "checkout:" + s.ID
	owner := uuid.NewString()
	if s.deps.Locker != nil {
		ok, err := s.deps.Locker.AcquireLock(ctx, lockName, owner, s.deps.LockTTL)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire checkout lock: %w", err)
		}
		if !ok {
			return nil, ErrCheckoutInProgress
		}
		defer func() {
			if err := s.deps.Locker.ReleaseLock(context.WithoutCancel(ctx), lockName, owner); err != nil {
				s.logger.Warn("Failed to release checkout lock", zap.Error(err))
			}
		}()
	}

	receipt, err := s.deps.Checkout.Commit(ctx, s.ID, order, lines)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	if applied != nil {
		util.PromotionsAppliedTotal.WithLabelValues(string(applied.Promotion.DiscountType)).Inc()
	}

	catalog, catErr := s.deps.Catalog.LoadCatalog(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.cart.Clear()
	s.resetFormLocked()
	if catErr != nil {
		s.logger.Warn("Failed to reload catalog after checkout", zap.Error(catErr))
		s.catalogStale = true
	} else {
		s.catalog = catalog
		s.catalogStale = false
	}
	s.recomputeLocked()
	return receipt, nil
}

func (s *Session) beginCheckout(form CheckoutForm) (*models.Order, []cart.Line, *promotion.Applied, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.guardLocked(); err != nil {
		return nil, nil, nil, err
	}
	if s.cart.IsEmpty() {
		return nil, nil, nil, ErrEmptyCart
	}

	form.Delivery = s.courier.Kind != shipping.CourierPickup
	if err := util.ValidateStruct(form); err != nil {
		return nil, nil, nil, err
	}

	res := s.recomputeLocked()
	if !res.CanComplete {
		return nil, nil, nil, fmt.Errorf("%w: %s", ErrNotReady, s.blockerLocked(res))
	}

	s.committing = true
	return s.orderLocked(res, form), s.cart.Lines(), res.Promotion, nil
}

func (s *Session) endCheckout() {
	s.mu.Lock()
	s.committing = false
	s.mu.Unlock()
}

func (s *Session) orderLocked(res pricing.Result, form CheckoutForm) *models.Order {
	status := models.OrderStatusProcessing
	courier := s.courier.CourierID
	if s.courier.Kind != shipping.CourierRated {
		courier = string(s.courier.Kind)
	}
	if s.courier.Kind == shipping.CourierPickup {
		status = models.OrderStatusCompleted
	}

	order := &models.Order{
		Status:           status,
		CashierID:        s.CashierID,
		Subtotal:         res.Subtotal,
		DiscountAmount:   res.Discount,
		ShippingFee:      res.ShippingCost,
		Total:            res.Total,
		PaymentMethod:    s.payment.Method,
		ChangeAmount:     res.Change,
		RecipientName:    form.RecipientName,
		RecipientPhone:   form.RecipientPhone,
		ShippingAddress:  form.ShippingAddress,
		ShippingCourier:  courier,
		DestinationID:    s.destinationID,
		TotalWeightGrams: res.TotalWeightGrams,
		Notes:            form.Notes,
	}
	if s.payment.Method == models.PaymentCash {
		cash := s.payment.CashReceived
		order.CashReceived = &cash
	}
	if res.Promotion != nil {
		id := res.Promotion.Promotion.ID
		order.PromotionID = &id
	}
	return order
}

func (s *Session) blockerLocked(res pricing.Result) string {
	switch {
	case res.ShippingPending:
		return "shipping cost is pending"
	case s.payment.Method == "":
		return "payment method is required"
	case s.payment.Method == models.PaymentCash && s.payment.CashReceived < res.Total:
		return "cash received does not cover the total"
	default:
		return "cart cannot be completed"
	}
}

func (s *Session) selectLocked(productID, variantID string) (cart.Selection, error) {
	for _, p := range s.catalog {
		if p.ID != productID {
			continue
		}
		if variantID == "" {
			return cart.BaseProduct{Product: p.Product}, nil
		}
		for _, v := range p.Variants {
			if v.ID == variantID {
				return cart.VariantOf{Product: p.Product, Variant: v}, nil
			}
		}
		return nil, ErrVariantNotFound
	}
	return nil, ErrProductNotFound
}

// cartChangedLocked re-prices the shipment, whose weight may have changed, then the cart
func (s *Session) cartChangedLocked(ctx context.Context) {
	if err := s.quoteLocked(ctx); err != nil {
		s.logger.Warn("Shipping quote failed", zap.Error(err))
	}
	s.recomputeLocked()
}

func (s *Session) quoteLocked(ctx context.Context) error {
	if s.courier.Kind != shipping.CourierRated {
		s.quote = shipping.Cost{Status: shipping.StatusBypassed}
		return nil
	}

	cost, err := shipping.Compute(ctx, s.deps.Store, s.courier, s.destinationID, s.cart.TotalWeightGrams())
	if err != nil {
		util.ShippingLookupsTotal.WithLabelValues("error").Inc()
		s.quote = shipping.Cost{}
		return err
	}
	util.ShippingLookupsTotal.WithLabelValues(string(cost.Status)).Inc()
	s.quote = cost
	return nil
}

func (s *Session) recomputeLocked() pricing.Result {
	s.touchLocked()
	s.result = pricing.Recompute(pricing.Input{
		Cart:            s.cart,
		Promotions:      s.promos.Promotions(),
		Tiers:           s.promos.Tiers(),
		ManualPromotion: s.manualPromo,
		Courier:         s.courier,
		Shipping:        s.quote,
		ManualShipping:  s.manualShipping,
		Payment:         s.payment,
		Now:             s.now(),
	})
	return s.result
}

func (s *Session) resetFormLocked() {
	s.manualPromo = nil
	s.courier = shipping.Selection{Kind: shipping.CourierPickup}
	s.destinationID = ""
	s.quote = shipping.Cost{Status: shipping.StatusBypassed}
	s.manualShipping = nil
	s.payment = pricing.Payment{}
}

func (s *Session) guardLocked() error {
	if s.committing {
		return ErrCheckoutInProgress
	}
	return nil
}

func (s *Session) touchLocked() {
	s.lastActive = s.now()
}

func (s *Session) idleSince() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

func (s *Session) markCatalogStale() {
	s.mu.Lock()
	s.catalogStale = true
	s.mu.Unlock()
}

func (s *Session) stateLocked() State {
	st := State{
		ID:        s.ID,
		CashierID: s.CashierID,
		Lines:     s.cart.Lines(),
		Shipping: ShippingForm{
			Courier:       s.courier.Kind,
			CourierID:     s.courier.CourierID,
			DestinationID: s.destinationID,
			ManualCost:    s.manualShipping,
		},
		ShippingQuote:  s.quote,
		Payment:        s.payment,
		Pricing:        s.result,
		PromotionsAt:   s.promos.LoadedAt(),
		CatalogStale:   s.catalogStale,
		CheckoutActive: s.committing,
	}
	if s.manualPromo != nil {
		st.PromoCode = s.manualPromo.Code
	}
	return st
}

func rejected(err error) {
	switch {
	case errors.Is(err, cart.ErrOutOfStock):
		util.CartRejectionsTotal.WithLabelValues("out_of_stock").Inc()
	case errors.Is(err, cart.ErrStockExceeded):
		util.CartRejectionsTotal.WithLabelValues("stock_exceeded").Inc()
	case errors.Is(err, cart.ErrLineNotFound):
		util.CartRejectionsTotal.WithLabelValues("line_not_found").Inc()
	}
}

func promoRejection(err error) string {
	switch {
	case errors.Is(err, promotion.ErrCodeNotFound):
		return "not_found"
	case errors.Is(err, promotion.ErrNotStarted):
		return "not_started"
	case errors.Is(err, promotion.ErrExpired):
		return "expired"
	case errors.Is(err, promotion.ErrMinPurchase):
		return "min_purchase"
	case errors.Is(err, promotion.ErrScopeMismatch):
		return "scope"
	default:
		return "error"
	}
}
