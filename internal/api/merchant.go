package api

import (
	"net/http"
	"strconv"

	"geohunt/internal/model"
	"geohunt/internal/service"
	"geohunt/pkg/auth"
	"geohunt/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-gonic/gin"
)

type merchantRoutes struct {
	rs service.RedemptionServiceI
}

func NewMerchantRoutes(handler *gin.RouterGroup, rs service.RedemptionServiceI, ma *auth.MerchantAuth) {
	r := &merchantRoutes{rs: rs}

	h := handler.Group("/merchant")
	h.Use(ma.MerchantAuthMiddleware())
	{
		h.POST("/redeem", r.Redeem)
		h.GET("/redemptions", r.ListRedemptions)
	}
}

type RedeemRequest struct {
	ScannedPayload string `json:"scanned_payload" binding:"required"`
}

type redemptionResponse struct {
	RedemptionID   string `json:"redemption_id"`
	HuntID         string `json:"hunt_id"`
	UserTelegramID int64  `json:"user_telegram_id"`
	CouponCode     string `json:"coupon_code"`
	MerchantID     string `json:"merchant_id"`
	RedeemedAt     int64  `json:"redeemed_at"`
}

type redeemResponse struct {
	Success            bool               `json:"success"`
	AlreadyRedeemed    bool               `json:"already_redeemed"`
	HuntName           string             `json:"hunt_name"`
	DiscountPercentage int                `json:"discount_percentage"`
	Redemption         redemptionResponse `json:"redemption"`
}

func (r *merchantRoutes) Redeem(c *gin.Context) {
	log := logger.Logger()

	merchantID, ok := auth.MerchantFromContext(c)
	if !ok {
		log.Error("merchant identity not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var req RedeemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "scanned_payload is required"})
		return
	}

	result, err := r.rs.Redeem(c.Request.Context(), merchantID, req.ScannedPayload)
	if err != nil {
		log.Info("redemption rejected", zap.String("merchant_id", merchantID), zap.Error(err))
		writeError(c, err, "redeem credential")
		return
	}

	c.JSON(http.StatusOK, redeemResponse{
		Success:            !result.AlreadyRedeemed,
		AlreadyRedeemed:    result.AlreadyRedeemed,
		HuntName:           result.HuntName,
		DiscountPercentage: result.DiscountPercentage,
		Redemption:         newRedemptionResponse(result.Redemption),
	})
}

func (r *merchantRoutes) ListRedemptions(c *gin.Context) {
	merchantID, ok := auth.MerchantFromContext(c)
	if !ok {
		logger.Logger().Error("merchant identity not found in context")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	var limit uint64
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = parsed
	}

	redemptions, err := r.rs.History(c.Request.Context(), merchantID, limit)
	if err != nil {
		writeError(c, err, "list redemptions")
		return
	}

	response := make([]redemptionResponse, len(redemptions))
	for i, red := range redemptions {
		response[i] = newRedemptionResponse(red)
	}

	c.JSON(http.StatusOK, response)
}

func newRedemptionResponse(red *model.Redemption) redemptionResponse {
	return redemptionResponse{
		RedemptionID:   red.RedemptionID.String(),
		HuntID:         red.HuntID.String(),
		UserTelegramID: red.UserTelegramID,
		CouponCode:     red.CouponCode,
		MerchantID:     red.MerchantID,
		RedeemedAt:     red.RedeemedAt.Unix(),
	}
}
