package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"pos-checkout-service/internal/models"
)

var errNotFound = errors.New("record not found")

type fakeStore struct {
	mu sync.Mutex

	products   []models.Product
	variants   []models.Variant
	stock      map[models.StockRef]int
	promotions []models.Promotion
	tiers      []models.PromotionTier
	rates      map[string]models.ShippingRate

	orders      []*models.Order
	orderLines  map[int64][]models.OrderItem
	nextOrderID int64

	listErr        error
	variantsErr    error
	getStockErr    map[models.StockRef]error
	setStockErr    map[models.StockRef]error
	createOrderErr error
	createLinesErr error

	createOrderCalls int
	setStockCalls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		stock:       map[models.StockRef]int{},
		rates:       map[string]models.ShippingRate{},
		orderLines:  map[int64][]models.OrderItem{},
		getStockErr: map[models.StockRef]error{},
		setStockErr: map[models.StockRef]error{},
		nextOrderID: 100,
	}
}

func productRef(id string) models.StockRef {
	return models.StockRef{Kind: models.StockKindProduct, ID: id}
}

func variantRef(id string) models.StockRef {
	return models.StockRef{Kind: models.StockKindVariant, ID: id}
}

func (f *fakeStore) addProduct(p models.Product, variants ...models.Variant) {
	f.mu.Lock()
	defer f.mu.Unlock()

	p.IsActive = true
	p.HasVariants = len(variants) > 0
	f.products = append(f.products, p)
	f.stock[productRef(p.ID)] = p.StockQuantity
	for _, v := range variants {
		v.ProductID = p.ID
		f.variants = append(f.variants, v)
		f.stock[variantRef(v.ID)] = v.StockQuantity
	}
}

func (f *fakeStore) setLiveStock(ref models.StockRef, qty int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stock[ref] = qty
}

func (f *fakeStore) liveStock(ref models.StockRef) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stock[ref]
}

func (f *fakeStore) ListActiveProducts(ctx context.Context) ([]models.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}

	out := make([]models.Product, 0, len(f.products))
	for _, p := range f.products {
		if !p.IsActive {
			continue
		}
		p.StockQuantity = f.stock[productRef(p.ID)]
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) ListVariantsForProducts(ctx context.Context, productIDs []string) ([]models.Variant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.variantsErr != nil {
		return nil, f.variantsErr
	}

	want := map[string]bool{}
	for _, id := range productIDs {
		want[id] = true
	}
	var out []models.Variant
	for _, v := range f.variants {
		if want[v.ProductID] {
			v.StockQuantity = f.stock[variantRef(v.ID)]
			out = append(out, v)
		}
	}
	return out, nil
}

func (f *fakeStore) GetStock(ctx context.Context, ref models.StockRef) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.getStockErr[ref]; err != nil {
		return 0, err
	}
	qty, ok := f.stock[ref]
	if !ok {
		return 0, errNotFound
	}
	return qty, nil
}

func (f *fakeStore) SetStock(ctx context.Context, ref models.StockRef, value int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.setStockCalls++
	if err := f.setStockErr[ref]; err != nil {
		return err
	}
	if _, ok := f.stock[ref]; !ok {
		return errNotFound
	}
	f.stock[ref] = value
	return nil
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.createOrderCalls++
	if f.createOrderErr != nil {
		return f.createOrderErr
	}
	f.nextOrderID++
	order.ID = f.nextOrderID
	order.CreatedAt = time.Now()
	f.orders = append(f.orders, order)
	return nil
}

func (f *fakeStore) CreateOrderLines(ctx context.Context, orderID int64, items []models.OrderItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createLinesErr != nil {
		return f.createLinesErr
	}
	f.orderLines[orderID] = append(f.orderLines[orderID], items...)
	return nil
}

func (f *fakeStore) ListActivePromotions(ctx context.Context, posOnly bool, now time.Time) ([]models.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []models.Promotion
	for _, p := range f.promotions {
		if !p.IsActive || (posOnly && !p.AvailableInPOS) {
			continue
		}
		if p.EndDate != nil && p.EndDate.Before(now) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeStore) ListPromotionTiers(ctx context.Context, promotionIDs []string) ([]models.PromotionTier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	want := map[string]bool{}
	for _, id := range promotionIDs {
		want[id] = true
	}
	var out []models.PromotionTier
	for _, t := range f.tiers {
		if want[t.PromotionID] {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeStore) FindPromotionByCode(ctx context.Context, code string) (*models.Promotion, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	for _, p := range f.promotions {
		if p.Code != "" && strings.EqualFold(p.Code, code) {
			promo := p
			return &promo, nil
		}
	}
	return nil, nil
}

func (f *fakeStore) GetShippingRate(ctx context.Context, courierID, destinationID string) (*models.ShippingRate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	rate, ok := f.rates[courierID+"|"+destinationID]
	if !ok {
		return nil, nil
	}
	return &rate, nil
}

type fakePublisher struct {
	mu        sync.Mutex
	err       error
	created   []*models.OrderCreatedEvent
	completed []*models.CheckoutCompletedEvent
	partial   []*models.CheckoutPartialFailureEvent
}

func (p *fakePublisher) PublishOrderCreated(ctx context.Context, event *models.OrderCreatedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.created = append(p.created, event)
	return p.err
}

func (p *fakePublisher) PublishCheckoutCompleted(ctx context.Context, event *models.CheckoutCompletedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.completed = append(p.completed, event)
	return p.err
}

func (p *fakePublisher) PublishCheckoutPartialFailure(ctx context.Context, event *models.CheckoutPartialFailureEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.partial = append(p.partial, event)
	return p.err
}

type fakeMirror struct {
	mu     sync.Mutex
	levels map[models.StockRef]int
}

func (m *fakeMirror) MirrorStock(ctx context.Context, ref models.StockRef, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.levels == nil {
		m.levels = map[models.StockRef]int{}
	}
	m.levels[ref] = qty
	return nil
}

type fakeLocker struct {
	mu   sync.Mutex
	held map[string]string
}

func (l *fakeLocker) AcquireLock(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[name]; ok {
		return false, nil
	}
	l.held[name] = owner
	return true, nil
}

func (l *fakeLocker) ReleaseLock(ctx context.Context, name, owner string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[name] == owner {
		delete(l.held, name)
	}
	return nil
}
