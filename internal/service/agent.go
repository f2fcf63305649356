package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/cache"
	"github.com/aitachi/medical-agent-sub000/internal/dialogue"
	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/intent"
	"github.com/aitachi/medical-agent-sub000/internal/metrics"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/aitachi/medical-agent-sub000/internal/profile"
	"github.com/aitachi/medical-agent-sub000/internal/skill"
	"go.uber.org/zap"
)

// 异步落盘的超时时间
const persistTimeout = 5 * time.Second

// ProcessResult 一轮对话的处理结果
type ProcessResult struct {
	Response   string            `json:"response"`
	Intent     model.IntentType  `json:"intent"`
	Confidence float64           `json:"confidence"`
	Skill      string            `json:"skill"`
	Emergency  *emergency.Result `json:"emergency,omitempty"`
	FollowUps  []string          `json:"followUps,omitempty"`
}

// AgentDeps AgentService 的依赖集合。
// Classifier、Invoker、Sessions 必备，其余可为 nil：
// Detector 缺席则跳过紧急检测，Rewriter 缺席则不重写，
// LLM 缺席则只走内置技能，Profiles 缺席则无画像，
// Caches/Metrics 缺席则直连计算、不记指标。
type AgentDeps struct {
	Detector   *emergency.Detector
	Classifier *intent.Classifier
	Rewriter   *QueryRewriter
	Invoker    *skill.Invoker
	LLM        *LLMService
	Sessions   *dialogue.Manager
	Profiles   *profile.Store
	Caches     *cache.Manager
	Metrics    *metrics.Registry
}

// AgentService 对话处理服务，承载一轮对话的完整流水线：
// 紧急检测 → 查询重写 → 意图识别 → 技能调用 → 画像采集 → 上下文落盘。
type AgentService struct {
	detector   *emergency.Detector
	classifier *intent.Classifier
	rewriter   *QueryRewriter
	invoker    *skill.Invoker
	llm        *LLMService
	sessions   *dialogue.Manager
	profiles   *profile.Store
	caches     *cache.Manager
	metrics    *metrics.Registry
	logger     *zap.Logger
}

// NewAgentService 创建对话处理服务
func NewAgentService(deps AgentDeps, logger *zap.Logger) *AgentService {
	return &AgentService{
		detector:   deps.Detector,
		classifier: deps.Classifier,
		rewriter:   deps.Rewriter,
		invoker:    deps.Invoker,
		llm:        deps.LLM,
		sessions:   deps.Sessions,
		profiles:   deps.Profiles,
		caches:     deps.Caches,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Process 处理一轮用户输入。
// 同一会话串行处理（会话锁），不同会话并发互不影响。
// 危急级紧急情况无条件覆盖技能与大模型路径，这一轮仍会记入上下文。
func (s *AgentService) Process(ctx context.Context, sessionID, userID, text string, useLLM bool) (*ProcessResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("输入不能为空")
	}
	if sessionID == "" {
		sessionID = "default"
	}
	if userID == "" {
		userID = "anonymous"
	}
	if s.metrics != nil {
		s.metrics.RecordRequest()
	}

	unlock := s.sessions.Lock(sessionID)
	defer unlock()

	dctx, err := s.sessions.GetOrCreate(ctx, sessionID, userID)
	if err != nil {
		return nil, fmt.Errorf("加载会话失败: %w", err)
	}

	// 紧急检测最先执行
	var emResult *emergency.Result
	if s.detector != nil {
		emResult = s.detector.Detect(text)
	}
	critical := emResult != nil && emResult.Detected && emResult.Level == emergency.LevelCritical
	if emResult != nil && emResult.Detected {
		if s.metrics != nil {
			s.metrics.RecordEmergency(string(emResult.Level))
		}
		s.logger.Warn("检测到紧急情况",
			zap.String("sessionId", sessionID),
			zap.String("level", string(emResult.Level)),
			zap.Strings("symptoms", emResult.Symptoms))
	}

	// 重写只影响意图识别，技能收到的仍是原始输入
	query := text
	if s.rewriter != nil {
		if rw := s.rewriter.Rewrite(text); rw.Changed {
			query = rw.Rewritten
			s.logger.Info("查询已重写",
				zap.String("original", rw.Original),
				zap.String("rewritten", rw.Rewritten),
				zap.String("reason", rw.Reason))
		}
	}

	result := s.classify(ctx, query, dctx)
	dctx.CurrentIntent = &result
	if s.metrics != nil {
		s.metrics.RecordIntent(string(result.Intent))
	}
	s.logger.Info("意图识别完成",
		zap.String("sessionId", sessionID),
		zap.String("intent", string(result.Intent)),
		zap.Float64("confidence", result.Confidence))

	// 置信度不足时先反问澄清；这一轮不记入历史，等用户补充后重新识别。
	// 危急情况不反问，直接进入紧急响应。
	if result.RequiresClarification && !critical {
		return &ProcessResult{
			Response:   result.ClarificationQuestion,
			Intent:     result.Intent,
			Confidence: result.Confidence,
			Skill:      result.TargetSkill,
			Emergency:  emResult,
		}, nil
	}

	dctx.UpdateEntities(result.Entities)

	// 画像采集先于技能调用，本轮声明的病史/过敏/用药立即对技能可见。
	// 采集失败不影响本轮响应。
	if s.profiles != nil {
		updated, err := s.profiles.UpdateFromEntities(ctx, userID, result.Entities)
		if err != nil {
			s.logger.Warn("更新用户画像失败", zap.String("userId", userID), zap.Error(err))
		} else if updated {
			s.caches.InvalidateProfile(userID)
		}
	}
	userProfile := s.loadProfile(ctx, userID)

	var resp skill.Response
	if useLLM && s.llm != nil && !critical && llmEligible(result.Intent) {
		resp = s.generateWithLLM(ctx, text, result.Intent, dctx, userID)
		if s.metrics != nil {
			s.metrics.RecordSkill("llm-generator", resp.Success)
		}
	} else {
		resp = s.invoker.Invoke(ctx, skill.Request{
			Skill:     result.TargetSkill,
			Intent:    result.Intent,
			Entities:  dctx.AccumulatedEntities.Merge(result.Entities),
			Context:   dctx,
			UserInput: text,
			Profile:   userProfile,
			Emergency: emResult,
		})
		if s.metrics != nil {
			s.metrics.RecordSkill(result.TargetSkill, resp.Success)
		}
	}

	dctx.AddTurn(text, resp.Content, &result)
	dctx.TrimHistory(s.sessions.MaxHistory())
	s.persistAsync(dctx.Clone(), text)

	return &ProcessResult{
		Response:   resp.Content,
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Skill:      result.TargetSkill,
		Emergency:  emResult,
		FollowUps:  resp.FollowUps,
	}, nil
}

// ClearSession 清除会话上下文
func (s *AgentService) ClearSession(ctx context.Context, sessionID string) error {
	unlock := s.sessions.Lock(sessionID)
	defer unlock()
	return s.sessions.Clear(ctx, sessionID)
}

// classify 带缓存的意图识别，缓存键包含上一轮意图
func (s *AgentService) classify(ctx context.Context, query string, dctx *model.DialogueContext) model.IntentResult {
	if !s.caches.Enabled() {
		return s.classifier.Classify(ctx, query, dctx)
	}

	key := cache.IntentKey(query, dctx.LastIntent())
	result, err := s.caches.Intent.GetOrCompute(ctx, key, func(ctx context.Context) (model.IntentResult, error) {
		return s.classifier.Classify(ctx, query, dctx), nil
	})
	if err != nil {
		return s.classifier.Classify(ctx, query, dctx)
	}
	return result
}

// loadProfile 读取用户画像，读取失败时按无画像处理
func (s *AgentService) loadProfile(ctx context.Context, userID string) *model.UserProfile {
	if s.profiles == nil {
		return nil
	}

	if s.caches.Enabled() {
		p, err := s.caches.Profile.GetOrCompute(ctx, cache.Key("profile", userID), func(ctx context.Context) (*model.UserProfile, error) {
			return s.profiles.GetOrCreate(ctx, userID)
		})
		if err == nil {
			return p
		}
		s.logger.Warn("读取用户画像缓存失败", zap.String("userId", userID), zap.Error(err))
	}

	p, err := s.profiles.GetOrCreate(ctx, userID)
	if err != nil {
		s.logger.Warn("读取用户画像失败", zap.String("userId", userID), zap.Error(err))
		return nil
	}
	return p
}

// generateWithLLM 大模型生成路径。新会话首轮附带用户跨会话的近期咨询作为背景。
func (s *AgentService) generateWithLLM(ctx context.Context, text string, intentType model.IntentType, dctx *model.DialogueContext, userID string) skill.Response {
	var recent []string
	if s.profiles != nil && len(dctx.History) == 0 {
		items, err := s.profiles.RecentUtterances(ctx, userID, 3)
		if err != nil {
			s.logger.Debug("读取近期发言失败", zap.String("userId", userID), zap.Error(err))
		} else {
			recent = items
		}
	}

	content := s.llm.Generate(ctx, text, intentType, dctx, recent)
	return skill.Response{
		Success: true,
		Content: skill.AddDisclaimer(content),
	}
}

// persistAsync 异步持久化会话快照与本轮发言，失败只记日志。
// 快照在会话锁内克隆完成，后续轮次的修改不会影响本次落盘。
func (s *AgentService) persistAsync(snapshot *model.DialogueContext, utterance string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
		defer cancel()

		if err := s.sessions.Save(ctx, snapshot); err != nil {
			s.logger.Warn("会话持久化失败",
				zap.String("sessionId", snapshot.SessionID),
				zap.Error(err))
		}
		if len(snapshot.History) > 0 {
			last := snapshot.History[len(snapshot.History)-1]
			if err := s.sessions.RecordTurn(ctx, snapshot.SessionID, last); err != nil {
				s.logger.Warn("轮次持久化失败",
					zap.String("sessionId", snapshot.SessionID),
					zap.Error(err))
			}
		}
		if s.profiles != nil {
			if err := s.profiles.RecordUtterance(ctx, snapshot.UserID, utterance); err != nil {
				s.logger.Warn("记录用户发言失败",
					zap.String("userId", snapshot.UserID),
					zap.Error(err))
			}
		}
	}()
}

// llmEligible 适合交给大模型生成的意图。
// 依赖本地数据的意图（预约记录、健康档案、报告解读）仍走内置技能。
func llmEligible(intentType model.IntentType) bool {
	switch intentType {
	case model.IntentSymptomInquiry,
		model.IntentDepartmentQuery,
		model.IntentMedicationConsult,
		model.IntentAppointment,
		model.IntentHealthEducation:
		return true
	}
	return false
}
