package api

import (
	"errors"
	"net/http"

	"marketplace-service/internal/store"
	"marketplace-service/internal/util"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Stable error codes returned in every failure payload. Clients branch on
// the code, never on the message.
const (
	CodeNotFound                  = "NOT_FOUND"
	CodeOutOfStock                = "OUT_OF_STOCK"
	CodeInsufficientFunds         = "INSUFFICIENT_FUNDS"
	CodeInsufficientSellerBalance = "INSUFFICIENT_SELLER_BALANCE"
	CodeNotRefundable             = "NOT_REFUNDABLE"
	CodeHoldExpired               = "HOLD_EXPIRED"
	CodeCPFRequired               = "CPF_REQUIRED"
	CodeAlreadyVip                = "ALREADY_VIP"
	CodeBanned                    = "BANNED"
	CodeCannotBuyOwnProduct       = "CANNOT_BUY_OWN_PRODUCT"
	CodeInvalidInput              = "INVALID_INPUT"
	CodeAdminRequired             = "ADMIN_REQUIRED"
	CodeDuplicateRequest          = "DUPLICATE_REQUEST"
	CodeServerError               = "SERVER_ERROR"
)

var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{store.ErrNotFound, http.StatusNotFound, CodeNotFound},
	{store.ErrOutOfStock, http.StatusConflict, CodeOutOfStock},
	{store.ErrInsufficientFunds, http.StatusConflict, CodeInsufficientFunds},
	{store.ErrInsufficientSellerBalance, http.StatusConflict, CodeInsufficientSellerBalance},
	{store.ErrNotRefundable, http.StatusConflict, CodeNotRefundable},
	{store.ErrHoldExpired, http.StatusConflict, CodeHoldExpired},
	{store.ErrCPFRequired, http.StatusConflict, CodeCPFRequired},
	{store.ErrAlreadyVip, http.StatusConflict, CodeAlreadyVip},
	{store.ErrBanned, http.StatusForbidden, CodeBanned},
	{store.ErrCannotBuyOwnProduct, http.StatusForbidden, CodeCannotBuyOwnProduct},
	{store.ErrInvalidInput, http.StatusBadRequest, CodeInvalidInput},
	{store.ErrAdminRequired, http.StatusForbidden, CodeAdminRequired},
	{store.ErrDuplicateRequest, http.StatusConflict, CodeDuplicateRequest},
}

// respondError maps a service error to its stable code. Unknown errors
// are infrastructure failures: logged with their cause, surfaced only as
// SERVER_ERROR.
func respondError(c *gin.Context, err error) {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			c.JSON(ec.status, gin.H{"error": ec.code})
			return
		}
	}
	util.GetLogger().Error("Unhandled service error",
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": CodeServerError})
}
