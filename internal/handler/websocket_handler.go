package handler

import (
	"net/http"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/aitachi/medical-agent-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		// TODO: 生产环境应该检查 Origin 白名单
		return true
	},
}

// WebSocketHandler WebSocket 处理器，一条连接对应一个会话
type WebSocketHandler struct {
	agent  *service.AgentService
	logger *zap.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(agent *service.AgentService, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		agent:  agent,
		logger: logger,
	}
}

// HandleWebSocket WebSocket 连接入口。
// sessionId 缺省时为本次连接生成，消息在读循环内串行处理，写无并发。
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	sessionID := c.Query("sessionId")
	if sessionID == "" {
		sessionID = uuid.New().String()
	}
	userID := c.Query("userId")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket 升级失败", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Info("WebSocket 连接建立",
		zap.String("sessionId", sessionID),
		zap.String("userId", userID),
		zap.String("clientIp", c.ClientIP()))

	for {
		var msg model.ChatMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.logger.Error("WebSocket 读取错误", zap.Error(err))
			}
			break
		}

		switch msg.Type {
		case "CHAT":
			h.handleChat(c, conn, sessionID, userID, &msg)

		case "HEARTBEAT":
			h.logger.Debug("收到心跳", zap.String("sessionId", sessionID))

		default:
			h.logger.Warn("未知消息类型",
				zap.String("sessionId", sessionID),
				zap.String("type", msg.Type))
		}
	}

	h.logger.Info("WebSocket 连接断开", zap.String("sessionId", sessionID))
}

// handleChat 处理聊天消息并把结果推回连接
func (h *WebSocketHandler) handleChat(c *gin.Context, conn *websocket.Conn, sessionID, userID string, msg *model.ChatMessage) {
	resp := model.WSResponse{
		MessageID: uuid.New().String(),
		Timestamp: time.Now(),
	}

	result, err := h.agent.Process(c.Request.Context(), sessionID, userID, msg.Content, false)
	if err != nil {
		h.logger.Error("对话处理失败",
			zap.String("sessionId", sessionID),
			zap.Error(err))
		resp.Response = "处理失败，请稍后重试。"
	} else {
		resp.Response = result.Response
		resp.Intent = result.Intent
		resp.Confidence = result.Confidence
	}

	if err := conn.WriteJSON(resp); err != nil {
		h.logger.Error("WebSocket 推送失败",
			zap.String("sessionId", sessionID),
			zap.Error(err))
	}
}
