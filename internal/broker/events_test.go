package broker

import (
	"context"
	"encoding/json"
	"testing"

	"pos-checkout-service/internal/models"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func message(t *testing.T, event interface{}) kafka.Message {
	t.Helper()
	b, err := json.Marshal(event)
	require.NoError(t, err)
	return kafka.Message{Value: b}
}

func TestHandleMessageRoutesByType(t *testing.T) {
	h := NewEventHandler()

	var promos, catalog []string
	h.OnPromotionsChanged(func(_ context.Context, e *models.CatalogChangedEvent) error {
		promos = append(promos, e.EntityIDs...)
		return nil
	})
	h.OnCatalogChanged(func(_ context.Context, e *models.CatalogChangedEvent) error {
		catalog = append(catalog, e.EntityIDs...)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, h.HandleMessage(ctx, message(t, models.CatalogChangedEvent{
		BaseEvent: NewBaseEvent(models.EventTypePromotionsChanged),
		EntityIDs: []string{"promo-1"},
	})))
	require.NoError(t, h.HandleMessage(ctx, message(t, models.CatalogChangedEvent{
		BaseEvent: NewBaseEvent(models.EventTypeCatalogChanged),
		EntityIDs: []string{"prod-1"},
	})))

	assert.Equal(t, []string{"promo-1"}, promos)
	assert.Equal(t, []string{"prod-1"}, catalog)
}

func TestHandleMessageIgnoresUnknownTypes(t *testing.T) {
	h := NewEventHandler()
	err := h.HandleMessage(context.Background(), message(t, NewBaseEvent(models.EventTypeOrderCreated)))
	assert.NoError(t, err)
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	h := NewEventHandler()
	err := h.HandleMessage(context.Background(), kafka.Message{Value: []byte("{not json")})
	assert.Error(t, err)
}
