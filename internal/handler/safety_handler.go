package handler

import (
	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/knowledge"
	"github.com/aitachi/medical-agent-sub000/internal/metrics"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/aitachi/medical-agent-sub000/internal/profile"
	"github.com/aitachi/medical-agent-sub000/internal/safety"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SafetyHandler 用药安全与紧急模式管理处理器
type SafetyHandler struct {
	checker  *safety.Checker
	profiles *profile.Store
	detector *emergency.Detector
	kb       *knowledge.Service
	registry *metrics.Registry
	logger   *zap.Logger
}

// NewSafetyHandler 创建安全检查处理器，profiles 可为 nil（无画像检查）
func NewSafetyHandler(checker *safety.Checker, profiles *profile.Store, detector *emergency.Detector, kb *knowledge.Service, registry *metrics.Registry, logger *zap.Logger) *SafetyHandler {
	return &SafetyHandler{
		checker:  checker,
		profiles: profiles,
		detector: detector,
		kb:       kb,
		registry: registry,
		logger:   logger,
	}
}

// CheckSafety 用药安全检查。带 userId 时结合该用户画像检查过敏与禁忌。
func (h *SafetyHandler) CheckSafety(c *gin.Context) {
	var req model.SafetyCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(400, gin.H{"error": "drugs 参数不能为空"})
		return
	}

	var userProfile *model.UserProfile
	if h.profiles != nil && req.UserID != "" {
		p, err := h.profiles.Load(c.Request.Context(), req.UserID)
		if err != nil {
			h.logger.Warn("读取用户画像失败，按无画像检查",
				zap.String("userId", req.UserID),
				zap.Error(err))
		} else {
			userProfile = p
		}
	}

	report := h.checker.Check(req.Drugs, userProfile, safety.DefaultOptions())
	if h.registry != nil {
		for _, w := range report.Warnings {
			h.registry.RecordSafetyWarning(w.Type)
		}
	}

	h.logger.Info("用药安全检查完成",
		zap.Strings("drugs", req.Drugs),
		zap.Bool("safe", report.Safe),
		zap.Int("warnings", len(report.Warnings)))

	c.JSON(200, gin.H{
		"report":    report,
		"formatted": safety.FormatReport(report),
	})
}

// ReloadEmergency 重新加载知识库并应用紧急模式与药物安全数据。
// 知识库文件损坏时保留当前数据，返回 500。
func (h *SafetyHandler) ReloadEmergency(c *gin.Context) {
	if err := h.kb.Reload(); err != nil {
		h.logger.Error("知识库重载失败", zap.Error(err))
		c.JSON(500, gin.H{"success": false, "message": "知识库重载失败"})
		return
	}

	if err := h.detector.ReloadPatterns(h.kb.EmergencyOverrides()); err != nil {
		h.logger.Error("紧急模式重载失败", zap.Error(err))
		c.JSON(500, gin.H{"success": false, "message": "紧急模式重载失败"})
		return
	}
	h.checker.MergeKnowledge(h.kb.SafetyData())

	c.JSON(200, gin.H{
		"success": true,
		"message": "紧急模式已重载",
		"version": h.kb.Version(),
	})
}
