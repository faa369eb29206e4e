package worker

import (
	"context"
	"time"

	"pos-checkout-service/internal/broker"
	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/util"

	"go.uber.org/zap"
)

// SessionRefresher is the part of the session registry catalog events act on
type SessionRefresher interface {
	RefreshAllPromotions(ctx context.Context) error
	MarkCatalogsStale()
}

// CatalogWorker keeps live sessions in step with back-office catalog changes
type CatalogWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	sessions     SessionRefresher
	logger       *zap.Logger
}

// NewCatalogWorker creates a new catalog worker
func NewCatalogWorker(consumer *broker.Consumer, sessions SessionRefresher) *CatalogWorker {
	w := &CatalogWorker{
		consumer: consumer,
		sessions: sessions,
		logger:   util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnPromotionsChanged(w.handlePromotionsChanged)
	eventHandler.OnCatalogChanged(w.handleCatalogChanged)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *CatalogWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting catalog worker...")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *CatalogWorker) Stop() error {
	w.logger.Info("Stopping catalog worker...")
	return w.consumer.Close()
}

func (w *CatalogWorker) handlePromotionsChanged(ctx context.Context, event *models.CatalogChangedEvent) error {
	ctx, span := util.StartSpan(ctx, "CatalogWorker.handlePromotionsChanged")
	defer span.End()

	w.logger.Info("Promotions changed, refreshing sessions",
		zap.String("event_id", event.EventID),
		zap.Strings("promotion_ids", event.EntityIDs))

	// Failing sessions keep their previous promotions; redelivery would not help them.
	if err := w.sessions.RefreshAllPromotions(ctx); err != nil {
		w.logger.Warn("Some sessions failed to refresh promotions", zap.Error(err))
	}
	return nil
}

func (w *CatalogWorker) handleCatalogChanged(ctx context.Context, event *models.CatalogChangedEvent) error {
	w.logger.Info("Catalog changed, marking session snapshots stale",
		zap.String("event_id", event.EventID),
		zap.Strings("product_ids", event.EntityIDs))

	w.sessions.MarkCatalogsStale()
	return nil
}

// IdleExpirer is the part of the session registry the sweeper acts on
type IdleExpirer interface {
	ExpireIdle(now time.Time, ttl time.Duration) int
}

// SessionSweeper periodically closes abandoned terminal sessions
type SessionSweeper struct {
	sessions IdleExpirer
	interval time.Duration
	ttl      time.Duration
	logger   *zap.Logger
}

// NewSessionSweeper creates a sweeper that checks every interval for sessions idle longer than ttl
func NewSessionSweeper(sessions IdleExpirer, interval, ttl time.Duration) *SessionSweeper {
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		ttl:      ttl,
		logger:   util.GetLogger(),
	}
}

// Start runs the sweeper until ctx is done
func (s *SessionSweeper) Start(ctx context.Context) error {
	s.logger.Info("Starting session sweeper...", zap.Duration("ttl", s.ttl))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			s.sweep(now)
		}
	}
}

func (s *SessionSweeper) sweep(now time.Time) int {
	return s.sessions.ExpireIdle(now, s.ttl)
}
