package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/langchou/carlink/internal/api/smartcar"
	"github.com/langchou/carlink/internal/models"
	"github.com/langchou/carlink/pkg/ws"
)

// TokenStore 车辆令牌存储
type TokenStore interface {
	Upsert(ctx context.Context, token *models.VehicleToken) error
	GetByVehicleID(ctx context.Context, vehicleID string) (*models.VehicleToken, error)
	UpdateTokens(ctx context.Context, vehicleID, accessToken, refreshToken string, expiresAt time.Time) error
}

// AuthClient Smartcar 授权客户端
type AuthClient interface {
	AuthURL(state string) string
	ExchangeCode(ctx context.Context, code string) (*smartcar.Token, error)
	ExchangeRefreshToken(ctx context.Context, refreshToken string) (*smartcar.Token, error)
	ListVehicles(ctx context.Context, accessToken string) ([]string, error)
}

// Handler HTTP 处理器
type Handler struct {
	logger   *zap.Logger
	tokens   TokenStore
	smartcar AuthClient
	wsHub    *ws.Hub
	timeout  time.Duration
	upgrader websocket.Upgrader
}

// NewHandler 创建处理器
func NewHandler(
	logger *zap.Logger,
	tokens TokenStore,
	smartcarClient AuthClient,
	wsHub *ws.Hub,
	timeout time.Duration,
) *Handler {
	return &Handler{
		logger:   logger,
		tokens:   tokens,
		smartcar: smartcarClient,
		wsHub:    wsHub,
		timeout:  timeout,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes 注册路由
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	// 授权
	r.GET("/login", h.Login)
	r.GET("/exchange", h.Exchange)
	r.POST("/refresh-token", h.RefreshToken)

	// WebSocket
	r.GET("/ws", h.HandleWebSocket)

	// 健康检查
	r.GET("/health", h.HealthCheck)
}

// Login 重定向到 Smartcar Connect 授权页
func (h *Handler) Login(c *gin.Context) {
	c.Redirect(http.StatusFound, h.smartcar.AuthURL(c.Query("state")))
}

// HandleWebSocket WebSocket 处理
func (h *Handler) HandleWebSocket(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Failed to upgrade websocket", zap.Error(err))
		return
	}

	client := ws.NewClient(h.wsHub, conn)
	client.Register()

	// 启动读写协程
	go client.ReadPump()
	go client.WritePump()
}

// HealthCheck 健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"ws_clients": h.wsHub.ClientCount(),
	})
}
