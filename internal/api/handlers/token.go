package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/langchou/carlink/internal/models"
	"github.com/langchou/carlink/internal/repository"
	"github.com/langchou/carlink/pkg/ws"
)

// tokenTTL 令牌有效期，固定从写入时刻起算
// Smartcar 返回的 expires_in 不用于持久化
const tokenTTL = 2 * time.Hour

// Exchange 用授权码换取令牌并绑定车辆
// GET /exchange?code=xxx
func (h *Handler) Exchange(c *gin.Context) {
	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing authorization code"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	token, err := h.smartcar.ExchangeCode(ctx, code)
	if err != nil {
		h.integrationError(c, "Failed to exchange authorization code", err)
		return
	}

	if token.AccessToken == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authorization session expired"})
		return
	}

	vehicles, err := h.smartcar.ListVehicles(ctx, token.AccessToken)
	if err != nil {
		h.integrationError(c, "Failed to list vehicles", err)
		return
	}

	if len(vehicles) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No vehicles found"})
		return
	}

	// 多辆车时取第一辆
	vehicleID := vehicles[0]

	record := &models.VehicleToken{
		VehicleID:    vehicleID,
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    time.Now().Add(tokenTTL),
	}
	if err := h.tokens.Upsert(ctx, record); err != nil {
		h.integrationError(c, "Failed to store vehicle token", err)
		return
	}

	h.logger.Info("Vehicle connected", zap.String("vehicle_id", vehicleID))
	h.wsHub.BroadcastMessage(ws.MsgTypeVehicleConnected, gin.H{
		"vehicle_id": vehicleID,
		"expires_at": record.ExpiresAt,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Successfully connected vehicle",
		"vehicleId":   vehicleID,
		"accessToken": token.AccessToken,
	})
}

// RefreshToken 手动刷新指定车辆的令牌
// POST /refresh-token {"vehicleId": "..."}
func (h *Handler) RefreshToken(c *gin.Context) {
	var req struct {
		VehicleID string `json:"vehicleId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}
	if req.VehicleID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing vehicle ID"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	record, err := h.tokens.GetByVehicleID(ctx, req.VehicleID)
	if errors.Is(err, repository.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Vehicle not found"})
		return
	}
	if err != nil {
		h.integrationError(c, "Failed to load vehicle token", err)
		return
	}

	token, err := h.smartcar.ExchangeRefreshToken(ctx, record.RefreshToken)
	if err != nil {
		h.integrationError(c, "Failed to refresh token", err)
		return
	}

	expiresAt := time.Now().Add(tokenTTL)
	if err := h.tokens.UpdateTokens(ctx, req.VehicleID, token.AccessToken, token.RefreshToken, expiresAt); err != nil {
		h.integrationError(c, "Failed to update vehicle token", err)
		return
	}

	h.logger.Info("Token refreshed", zap.String("vehicle_id", req.VehicleID))
	h.wsHub.BroadcastMessage(ws.MsgTypeTokenRefreshed, gin.H{
		"vehicle_id": req.VehicleID,
		"expires_at": expiresAt,
	})

	c.JSON(http.StatusOK, gin.H{
		"message":     "Token refreshed successfully",
		"accessToken": token.AccessToken,
	})
}

// integrationError 下游调用失败统一按 500 返回
func (h *Handler) integrationError(c *gin.Context, msg string, err error) {
	h.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{
		"error":   "Integration error",
		"details": err.Error(),
	})
}
