package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"pos-checkout-service/config"
	"pos-checkout-service/internal/cart"
	"pos-checkout-service/internal/models"
	"pos-checkout-service/internal/pricing"
	"pos-checkout-service/internal/service"
	"pos-checkout-service/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OrderReader loads committed orders for receipts
type OrderReader interface {
	GetOrderByID(ctx context.Context, id int64) (*models.Order, error)
	GetOrderItemsByOrderID(ctx context.Context, orderID int64) ([]models.OrderItem, error)
}

// StockLevels reads the stock levels mirrored after each checkout
type StockLevels interface {
	GetMirroredStock(ctx context.Context, ref models.StockRef) (qty int, ok bool, err error)
}

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	sessions *service.Registry
	orders   OrderReader
	levels   StockLevels
	payment  config.PaymentInstructions
	probes   map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(
	sessions *service.Registry,
	orders OrderReader,
	levels StockLevels,
	payment config.PaymentInstructions,
	probes map[string]Pinger,
) *Handler {
	return &Handler{
		sessions: sessions,
		orders:   orders,
		levels:   levels,
		payment:  payment,
		probes:   probes,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/payment-instructions", h.paymentInstructions)
		v1.GET("/orders/:id", h.getOrder)
		v1.GET("/stock/:kind/:id", h.getStockLevel)

		v1.POST("/sessions", h.openSession)

		s := v1.Group("/sessions/:id")
		{
			s.DELETE("", h.closeSession)
			s.GET("", h.getSession)
			s.GET("/catalog", h.getCatalog)
			s.POST("/catalog/reload", h.reloadCatalog)
			s.POST("/promotions/refresh", h.refreshPromotions)

			s.POST("/lines", h.addLine)
			s.PATCH("/lines/:key", h.changeQuantity)
			s.DELETE("/lines/:key", h.removeLine)
			s.DELETE("/lines", h.clearCart)

			s.POST("/promo-code", h.applyPromoCode)
			s.DELETE("/promo-code", h.clearPromoCode)

			s.PUT("/shipping", h.setShipping)
			s.PUT("/payment", h.setPayment)
			s.GET("/pricing", h.getPricing)

			s.POST("/checkout", h.checkout)
		}
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck pings every dependency
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	failed := gin.H{}
	for name, p := range h.probes {
		if err := p.Ping(ctx); err != nil {
			failed[name] = err.Error()
		}
	}

	if len(failed) > 0 {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "not ready",
			"failed": failed,
			"time":   time.Now().Unix(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) paymentInstructions(c *gin.Context) {
	c.JSON(http.StatusOK, h.payment)
}

// getOrder returns a committed order with its lines
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid order ID",
		})
		return
	}

	order, err := h.orders.GetOrderByID(c.Request.Context(), orderID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"error":   "Order not found",
			"details": err.Error(),
		})
		return
	}

	items, err := h.orders.GetOrderItemsByOrderID(c.Request.Context(), orderID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
		"items": items,
	})
}

// getStockLevel returns the last stock level written by a checkout on this service
func (h *Handler) getStockLevel(c *gin.Context) {
	kind := models.StockKind(c.Param("kind"))
	if kind != models.StockKindProduct && kind != models.StockKindVariant {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid stock kind",
		})
		return
	}

	ref := models.StockRef{Kind: kind, ID: c.Param("id")}
	qty, ok, err := h.levels.GetMirroredStock(c.Request.Context(), ref)
	if err != nil {
		h.writeError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "No stock level recorded",
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stock":    ref,
		"quantity": qty,
	})
}

type openSessionRequest struct {
	CashierID string `json:"cashier_id" binding:"required"`
}

func (h *Handler) openSession(c *gin.Context) {
	var req openSessionRequest
	if !bind(c, &req) {
		return
	}

	s, err := h.sessions.Open(c.Request.Context(), req.CashierID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"session": s.State(),
		"catalog": s.Catalog(),
	})
}

func (h *Handler) closeSession(c *gin.Context) {
	if err := h.sessions.Close(c.Param("id")); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getSession(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) getCatalog(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": s.Catalog()})
}

func (h *Handler) reloadCatalog(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	catalog, err := s.ReloadCatalog(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"catalog": catalog})
}

func (h *Handler) refreshPromotions(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, func() (service.State, error) { return s.RefreshPromotions(c.Request.Context()) })
}

type addLineRequest struct {
	ProductID string `json:"product_id" binding:"required"`
	VariantID string `json:"variant_id"`
}

func (h *Handler) addLine(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req addLineRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, func() (service.State, error) { return s.AddLine(c.Request.Context(), req.ProductID, req.VariantID) })
}

type changeQuantityRequest struct {
	Delta int `json:"delta" binding:"required"`
}

func (h *Handler) changeQuantity(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req changeQuantityRequest
	if !bind(c, &req) {
		return
	}
	key := cart.LineKey(c.Param("key"))
	h.respond(c, func() (service.State, error) { return s.ChangeQuantity(c.Request.Context(), key, req.Delta) })
}

func (h *Handler) removeLine(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	key := cart.LineKey(c.Param("key"))
	h.respond(c, func() (service.State, error) { return s.RemoveLine(c.Request.Context(), key) })
}

func (h *Handler) clearCart(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, func() (service.State, error) { return s.ClearCart(c.Request.Context()) })
}

type promoCodeRequest struct {
	Code string `json:"code"`
}

func (h *Handler) applyPromoCode(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var req promoCodeRequest
	if !bind(c, &req) {
		return
	}
	h.respond(c, func() (service.State, error) { return s.ApplyPromoCode(c.Request.Context(), req.Code) })
}

func (h *Handler) clearPromoCode(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}
	h.respond(c, func() (service.State, error) { return s.ClearPromoCode(c.Request.Context()) })
}

func (h *Handler) setShipping(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var form service.ShippingForm
	if !bind(c, &form) {
		return
	}
	h.respond(c, func() (service.State, error) { return s.SetShipping(c.Request.Context(), form) })
}

func (h *Handler) setPayment(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var payment pricing.Payment
	if !bind(c, &payment) {
		return
	}
	h.respond(c, func() (service.State, error) { return s.SetPayment(c.Request.Context(), payment) })
}

func (h *Handler) getPricing(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	state := s.State()
	body := gin.H{"pricing": state.Pricing}
	if state.Payment.Method != "" && state.Payment.Method != models.PaymentCash {
		body["payment_instructions"] = h.payment
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) checkout(c *gin.Context) {
	s, ok := h.session(c)
	if !ok {
		return
	}

	var form service.CheckoutForm
	if c.Request.ContentLength != 0 && !bind(c, &form) {
		return
	}

	receipt, err := s.Checkout(c.Request.Context(), form)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"receipt": receipt,
		"session": s.State(),
	})
}

func (h *Handler) session(c *gin.Context) (*service.Session, bool) {
	s, err := h.sessions.Get(c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) respond(c *gin.Context, op func() (service.State, error)) {
	state, err := op()
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return false
	}
	return true
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
