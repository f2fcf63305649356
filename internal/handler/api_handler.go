package handler

import (
	"errors"
	"strings"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/cache"
	"github.com/aitachi/medical-agent-sub000/internal/dialogue"
	"github.com/aitachi/medical-agent-sub000/internal/intent"
	"github.com/aitachi/medical-agent-sub000/internal/metrics"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/aitachi/medical-agent-sub000/internal/service"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// APIHandler HTTP API 处理器
type APIHandler struct {
	agent      *service.AgentService
	sessions   *dialogue.Manager
	classifier *intent.Classifier
	registry   *metrics.Registry
	caches     *cache.Manager
	logger     *zap.Logger
}

// NewAPIHandler 创建 API 处理器
func NewAPIHandler(agent *service.AgentService, sessions *dialogue.Manager, classifier *intent.Classifier, registry *metrics.Registry, caches *cache.Manager, logger *zap.Logger) *APIHandler {
	return &APIHandler{
		agent:      agent,
		sessions:   sessions,
		classifier: classifier,
		registry:   registry,
		caches:     caches,
		logger:     logger,
	}
}

// Chat 处理一轮对话
func (h *APIHandler) Chat(c *gin.Context) {
	var req model.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "invalid request"})
		return
	}

	result, err := h.agent.Process(c.Request.Context(), req.SessionID, req.UserID, req.Message, req.UseLLM)
	if err != nil {
		h.logger.Error("对话处理失败",
			zap.String("sessionId", req.SessionID),
			zap.Error(err))
		c.JSON(500, gin.H{"error": "处理失败，请稍后重试"})
		return
	}

	resp := model.ChatResponse{
		Response:     result.Response,
		Intent:       result.Intent,
		Confidence:   result.Confidence,
		SkillInvoked: result.Skill,
		Timestamp:    time.Now(),
	}
	if result.Emergency != nil && result.Emergency.Detected {
		resp.Emergency = strings.ToUpper(string(result.Emergency.Level))
	}

	c.JSON(200, resp)
}

// ClearSession 清除会话上下文
func (h *APIHandler) ClearSession(c *gin.Context) {
	var req struct {
		SessionID string `json:"sessionId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "sessionId 不能为空"})
		return
	}

	if err := h.agent.ClearSession(c.Request.Context(), req.SessionID); err != nil {
		if errors.Is(err, dialogue.ErrSessionNotFound) {
			c.JSON(404, gin.H{"success": false, "message": "会话不存在"})
			return
		}
		h.logger.Error("清除会话失败",
			zap.String("sessionId", req.SessionID),
			zap.Error(err))
		c.JSON(500, gin.H{"success": false, "message": "清除失败"})
		return
	}

	c.JSON(200, gin.H{"success": true, "message": "会话已清除"})
}

// Sessions 列出活跃会话
func (h *APIHandler) Sessions(c *gin.Context) {
	ids := h.sessions.ActiveSessions()
	infos := make([]model.SessionInfo, 0, len(ids))
	for _, id := range ids {
		dctx, ok := h.sessions.Get(id)
		if !ok {
			continue
		}
		infos = append(infos, model.SessionInfo{
			SessionID:    dctx.SessionID,
			UserID:       dctx.UserID,
			MessageCount: dctx.TurnCount,
			CreatedAt:    dctx.StartTime,
		})
	}

	c.JSON(200, gin.H{"sessions": infos, "count": len(infos)})
}

// Status 系统状态
func (h *APIHandler) Status(c *gin.Context) {
	c.JSON(200, model.SystemStatus{
		Status:         "running",
		Uptime:         h.registry.Uptime().Round(time.Second).String(),
		ActiveSessions: h.sessions.ActiveCount(),
		TotalRequests:  h.registry.RequestTotal(),
		ClassifierType: h.classifier.Mode(),
	})
}

// Health 健康检查
func (h *APIHandler) Health(c *gin.Context) {
	c.JSON(200, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    h.registry.Uptime().Round(time.Second).String(),
	})
}

// Metrics 运行指标。流水线计数来自指标注册表，
// 缓存命中率由各缓存自身统计，活跃会话数来自会话管理器。
func (h *APIHandler) Metrics(c *gin.Context) {
	c.JSON(200, gin.H{
		"pipeline":       h.registry.Snapshot(),
		"cache":          h.caches.AllStats(),
		"activeSessions": h.sessions.ActiveCount(),
	})
}
