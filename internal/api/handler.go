// Package api exposes the marketplace ledger over HTTP. Handlers bind and
// validate request shapes, resolve the acting identity, and delegate to
// the services; all business rules live below this layer.
package api

import (
	"net/http"
	"strconv"
	"time"

	"marketplace-service/internal/service"
	"marketplace-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler contains HTTP handlers
type Handler struct {
	store       store.Store
	purchases   *service.PurchaseService
	refunds     *service.RefundService
	withdrawals *service.WithdrawalService
	wallet      *service.WalletService
	settings    *service.SettingsService
}

// NewHandler creates a new HTTP handler
func NewHandler(
	st store.Store,
	purchases *service.PurchaseService,
	refunds *service.RefundService,
	withdrawals *service.WithdrawalService,
	wallet *service.WalletService,
	settings *service.SettingsService,
) *Handler {
	return &Handler{
		store:       st,
		purchases:   purchases,
		refunds:     refunds,
		withdrawals: withdrawals,
		wallet:      wallet,
		settings:    settings,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(h.identityMiddleware())
	{
		v1.POST("/wallet/topup", h.topUp)

		v1.POST("/orders", h.createOrder)
		v1.GET("/orders/:id", h.getOrder)

		v1.GET("/me", h.getMe)
		v1.GET("/me/orders", h.listMyOrders)
		v1.GET("/me/withdrawals", h.listMyWithdrawals)
		v1.POST("/me/payout-cpf", h.registerPayoutCPF)

		v1.POST("/withdrawals", h.createWithdrawal)

		v1.GET("/vip/status", h.vipStatus)
		v1.POST("/vip/buy", h.buyVip)

		admin := v1.Group("/admin")
		{
			admin.GET("/transactions", h.listAllOrders)
			admin.POST("/orders/:id/refund", h.refundOrder)
			admin.GET("/settings/fees", h.getFeeSettings)
			admin.PUT("/settings/fees", h.updateFeeSettings)
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

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

type topUpRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

// topUp credits the caller's wallet
func (h *Handler) topUp(c *gin.Context) {
	var req topUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}

	ident := getIdentity(c)
	if err := h.wallet.TopUp(c.Request.Context(), ident, req.AmountCents); err != nil {
		respondError(c, err)
		return
	}

	user, err := h.wallet.GetMe(c.Request.Context(), ident)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"wallet_balance_cents": user.WalletBalanceCents})
}

type createOrderRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Qty       int   `json:"qty"`
}

// createOrder executes a purchase into escrow
func (h *Handler) createOrder(c *gin.Context) {
	var req createOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}
	if req.Qty == 0 {
		req.Qty = 1
	}

	result, err := h.purchases.Purchase(c.Request.Context(), getIdentity(c), req.ProductID, req.Qty)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

// getOrder returns one order visible to the caller
func (h *Handler) getOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}

	order, err := h.purchases.GetOrder(c.Request.Context(), getIdentity(c), orderID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// getMe returns the caller's ledger view
func (h *Handler) getMe(c *gin.Context) {
	user, err := h.wallet.GetMe(c.Request.Context(), getIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// listMyOrders returns the caller's purchase history
func (h *Handler) listMyOrders(c *gin.Context) {
	orders, err := h.purchases.ListMyOrders(c.Request.Context(), getIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// listMyWithdrawals returns the caller's payout history
func (h *Handler) listMyWithdrawals(c *gin.Context) {
	withdrawals, err := h.withdrawals.ListMyWithdrawals(c.Request.Context(), getIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"withdrawals": withdrawals})
}

type payoutCPFRequest struct {
	CPF string `json:"cpf" binding:"required"`
}

// registerPayoutCPF stores the caller's payout CPF
func (h *Handler) registerPayoutCPF(c *gin.Context) {
	var req payoutCPFRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}

	if err := h.withdrawals.RegisterPayoutCPF(c.Request.Context(), getIdentity(c), req.CPF); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

type withdrawRequest struct {
	AmountCents int64 `json:"amount_cents" binding:"required"`
}

// createWithdrawal pays out available seller balance
func (h *Handler) createWithdrawal(c *gin.Context) {
	var req withdrawRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}

	w, err := h.withdrawals.Withdraw(c.Request.Context(), getIdentity(c), req.AmountCents)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

// vipStatus reports the caller's VIP flag and both fee tiers
func (h *Handler) vipStatus(c *gin.Context) {
	status, err := h.wallet.GetVipStatus(c.Request.Context(), getIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, status)
}

// buyVip upgrades the caller to VIP
func (h *Handler) buyVip(c *gin.Context) {
	ident := getIdentity(c)
	if err := h.wallet.BuyVip(c.Request.Context(), ident); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"is_vip": true})
}

// listAllOrders returns the admin transactions view
func (h *Handler) listAllOrders(c *gin.Context) {
	orders, err := h.purchases.ListAllOrders(c.Request.Context(), getIdentity(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders})
}

// refundOrder fully reverses a still-held order
func (h *Handler) refundOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}

	if err := h.refunds.Refund(c.Request.Context(), getIdentity(c), orderID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "refunded"})
}

// getFeeSettings returns the current platform fee configuration
func (h *Handler) getFeeSettings(c *gin.Context) {
	ident := getIdentity(c)
	if !ident.IsAdmin() {
		c.JSON(http.StatusForbidden, gin.H{"error": CodeAdminRequired})
		return
	}

	settings, err := h.settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

type updateFeesRequest struct {
	FeeBps    int `json:"fee_bps"`
	VipFeeBps int `json:"vip_fee_bps"`
}

// updateFeeSettings writes a new fee settings version
func (h *Handler) updateFeeSettings(c *gin.Context) {
	var req updateFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": CodeInvalidInput})
		return
	}

	settings, err := h.settings.UpdateFees(c.Request.Context(), getIdentity(c), req.FeeBps, req.VipFeeBps)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}
