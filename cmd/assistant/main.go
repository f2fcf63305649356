package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/appointment"
	"github.com/aitachi/medical-agent-sub000/internal/cache"
	"github.com/aitachi/medical-agent-sub000/internal/client"
	"github.com/aitachi/medical-agent-sub000/internal/config"
	"github.com/aitachi/medical-agent-sub000/internal/dialogue"
	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/handler"
	"github.com/aitachi/medical-agent-sub000/internal/intent"
	"github.com/aitachi/medical-agent-sub000/internal/knowledge"
	"github.com/aitachi/medical-agent-sub000/internal/metrics"
	"github.com/aitachi/medical-agent-sub000/internal/middleware"
	"github.com/aitachi/medical-agent-sub000/internal/profile"
	"github.com/aitachi/medical-agent-sub000/internal/safety"
	"github.com/aitachi/medical-agent-sub000/internal/service"
	"github.com/aitachi/medical-agent-sub000/internal/skill"
	"github.com/aitachi/medical-agent-sub000/pkg/logger"
	"github.com/aitachi/medical-agent-sub000/pkg/redis"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// 用户画像在 Redis 中的过期时间，每次保存时刷新
const profileTTL = 30 * 24 * time.Hour

func main() {
	// 加载配置
	cfg, err := config.LoadConfig("configs/assistant.yaml")
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	// 初始化日志
	zapLogger, err := logger.NewLogger(cfg.Log.Level)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer zapLogger.Sync()

	zapLogger.Info("medical-assistant 服务启动中...")

	// 初始化 Redis
	redisClient, err := redis.NewRedisClient(cfg.Redis)
	if err != nil {
		zapLogger.Fatal("连接 Redis 失败", zap.Error(err))
	}

	// 会话存储与管理
	store, err := dialogue.NewStore(cfg.Session.StorePath, zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化会话存储失败", zap.Error(err))
	}
	defer store.Close()
	sessions := dialogue.NewManager(store, cfg.Session, zapLogger)

	// 知识库：内置数据立即可用，外部文件按需覆盖
	kb := knowledge.NewService(cfg.Knowledge.Path, zapLogger)
	if err := kb.Load(); err != nil {
		zapLogger.Fatal("加载知识库失败", zap.Error(err))
	}

	// 紧急检测器。流水线中停用时热重载接口仍需要它，故始终构建
	detector, err := emergency.NewDetector(zapLogger)
	if err != nil {
		zapLogger.Fatal("初始化紧急检测器失败", zap.Error(err))
	}
	if err := detector.ReloadPatterns(kb.EmergencyOverrides()); err != nil {
		zapLogger.Fatal("加载紧急模式失败", zap.Error(err))
	}

	// 用药安全检查，严格模式下所有检查强制开启
	checker := safety.NewChecker(zapLogger)
	checker.MergeKnowledge(kb.SafetyData())
	opts := safety.Options{
		CheckInteraction:      cfg.Safety.DrugInteractionCheck,
		CheckAllergy:          cfg.Safety.AllergyCheck,
		CheckDose:             cfg.Safety.DoseCheck,
		CheckContraindication: cfg.Safety.ContraindicationCheck,
	}
	if cfg.Safety.StrictMode {
		opts = safety.DefaultOptions()
	}

	// 缓存与用户画像
	caches := cache.NewManager(cfg.Cache, zapLogger)
	profiles := profile.NewStore(redisClient, profileTTL, zapLogger)

	// 技能注册
	appointments := appointment.NewService(zapLogger)
	invoker := skill.NewInvoker(zapLogger)
	skill.RegisterBuiltin(invoker, kb, checker, opts, appointments, zapLogger)

	// 意图识别：配置了统计分类服务时走混合模式，否则纯规则
	var predictor intent.Predictor
	if cfg.Intent.ClassifierURL != "" {
		predictor = client.NewIntentClient(cfg.Intent.ClassifierURL,
			time.Duration(cfg.Intent.ClassifierTimeoutMS)*time.Millisecond, zapLogger)
	}
	classifier := intent.NewClassifier(cfg.Intent, predictor, zapLogger)

	// LLM 生成：未配置 API Key 时只走内置技能
	var llm *service.LLMService
	if cfg.DashScope.APIKey != "" {
		chatClient := client.NewDashScopeClient(cfg.DashScope.APIKey, cfg.DashScope.Model, zapLogger)
		llm = service.NewLLMService(chatClient, zapLogger)
	}

	registry := metrics.NewRegistry()

	deps := service.AgentDeps{
		Classifier: classifier,
		Rewriter:   service.NewQueryRewriter(),
		Invoker:    invoker,
		LLM:        llm,
		Sessions:   sessions,
		Profiles:   profiles,
		Caches:     caches,
		Metrics:    registry,
	}
	if cfg.Safety.EmergencyDetectionEnabled {
		deps.Detector = detector
	}
	agent := service.NewAgentService(deps, zapLogger)

	// 初始化处理器
	apiHandler := handler.NewAPIHandler(agent, sessions, classifier, registry, caches, zapLogger)
	safetyHandler := handler.NewSafetyHandler(checker, profiles, detector, kb, registry, zapLogger)
	wsHandler := handler.NewWebSocketHandler(agent, zapLogger)

	// 初始化路由
	r := gin.Default()
	r.Use(middleware.CORS())

	// API 路由
	r.POST("/api/chat", apiHandler.Chat)
	r.POST("/api/session/clear", apiHandler.ClearSession)
	r.GET("/api/sessions", apiHandler.Sessions)
	r.GET("/api/status", apiHandler.Status)
	r.GET("/api/health", apiHandler.Health)
	r.GET("/api/metrics", apiHandler.Metrics)
	r.POST("/api/safety/check", safetyHandler.CheckSafety)
	r.POST("/api/emergency/reload", safetyHandler.ReloadEmergency)

	// WebSocket 路由
	r.GET("/ws", wsHandler.HandleWebSocket)

	// 后台维护：清理过期会话与缓存，按需热重载知识库
	go maintenanceLoop(cfg, sessions, caches, kb, detector, checker, zapLogger)

	// 启动服务
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zapLogger.Info("medical-assistant 服务启动成功",
		zap.Int("port", cfg.Server.Port),
		zap.String("classifier", classifier.Mode()),
		zap.Bool("llm", llm != nil),
		zap.Bool("emergencyDetection", cfg.Safety.EmergencyDetectionEnabled))

	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("服务启动失败", zap.Error(err))
	}
}

// maintenanceLoop 周期性清理过期会话与缓存。
// 开启自动重载时同步刷新知识库，并把新模式推给检测器与安全检查器。
func maintenanceLoop(cfg *config.Config, sessions *dialogue.Manager, caches *cache.Manager,
	kb *knowledge.Service, detector *emergency.Detector, checker *safety.Checker, logger *zap.Logger) {

	interval := time.Duration(cfg.Knowledge.ReloadIntervalSeconds) * time.Second
	retention := time.Duration(cfg.Session.TTLSeconds) * time.Second

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if n, err := sessions.CleanupExpired(ctx, retention); err != nil {
			logger.Warn("清理过期会话失败", zap.Error(err))
		} else if n > 0 {
			logger.Info("已清理过期会话", zap.Int64("count", n))
		}
		cancel()

		if n := caches.CleanupExpired(); n > 0 {
			logger.Debug("已清理过期缓存条目", zap.Int("count", n))
		}

		if cfg.Knowledge.AutoReload {
			if err := kb.Reload(); err != nil {
				logger.Warn("知识库自动重载失败", zap.Error(err))
				continue
			}
			if err := detector.ReloadPatterns(kb.EmergencyOverrides()); err != nil {
				logger.Warn("紧急模式重载失败", zap.Error(err))
			}
			checker.MergeKnowledge(kb.SafetyData())
		}
	}
}
