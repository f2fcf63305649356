package service

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/appointment"
	"github.com/aitachi/medical-agent-sub000/internal/cache"
	"github.com/aitachi/medical-agent-sub000/internal/config"
	"github.com/aitachi/medical-agent-sub000/internal/dialogue"
	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/intent"
	"github.com/aitachi/medical-agent-sub000/internal/knowledge"
	"github.com/aitachi/medical-agent-sub000/internal/metrics"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/aitachi/medical-agent-sub000/internal/safety"
	"github.com/aitachi/medical-agent-sub000/internal/skill"
	"go.uber.org/zap"
)

func newTestAgent(t *testing.T, llm *LLMService, store *dialogue.Store) *AgentService {
	t.Helper()
	logger := zap.NewNop()

	detector, err := emergency.NewDetector(logger)
	if err != nil {
		t.Fatalf("创建紧急检测器失败: %v", err)
	}

	kb := knowledge.NewService("", logger)
	inv := skill.NewInvoker(logger)
	skill.RegisterBuiltin(inv, kb, safety.NewChecker(logger), safety.DefaultOptions(), appointment.NewService(logger), logger)

	classifier := intent.NewClassifier(config.IntentConfig{
		ConfidenceThreshold: 0.6,
		FallbackThreshold:   0.3,
		EnableContextBoost:  true,
		ContextBoost:        0.3,
		ContextBoostDelta:   0.25,
		ShortTextLen:        20,
	}, nil, logger)

	sessions := dialogue.NewManager(store, config.SessionConfig{
		TTLSeconds:       3600,
		MaxHistoryLength: 10,
	}, logger)

	caches := cache.NewManager(config.CacheConfig{
		Enabled:           true,
		IntentTTLSeconds:  60,
		KBTTLSeconds:      60,
		ProfileTTLSeconds: 60,
		MaxSize:           100,
	}, logger)

	return NewAgentService(AgentDeps{
		Detector:   detector,
		Classifier: classifier,
		Rewriter:   NewQueryRewriter(),
		Invoker:    inv,
		LLM:        llm,
		Sessions:   sessions,
		Caches:     caches,
		Metrics:    metrics.NewRegistry(),
	}, logger)
}

func TestProcessGreeting(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	resp, err := svc.Process(context.Background(), "s1", "u1", "你好", false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if resp.Intent != model.IntentGreeting {
		t.Errorf("意图 = %s, 期望 greeting", resp.Intent)
	}
	if resp.Confidence != 0.95 {
		t.Errorf("置信度 = %.2f, 期望 0.95", resp.Confidence)
	}
	if resp.Skill != "greeting-handler" {
		t.Errorf("技能 = %s", resp.Skill)
	}
	if resp.Response == "" {
		t.Error("问候响应不应为空")
	}
	if strings.Contains(resp.Response, "免责声明") {
		t.Error("问候响应不应带免责声明")
	}

	dctx, ok := svc.sessions.Get("s1")
	if !ok {
		t.Fatal("会话应已创建")
	}
	if dctx.TurnCount != 1 {
		t.Errorf("轮次计数 = %d, 期望 1", dctx.TurnCount)
	}
}

func TestProcessSymptomFlow(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	resp, err := svc.Process(context.Background(), "s2", "u2", "我最近头痛头晕，已经3天了", false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if resp.Intent != model.IntentSymptomInquiry {
		t.Fatalf("意图 = %s (%.2f), 期望 symptom_inquiry", resp.Intent, resp.Confidence)
	}
	if !strings.Contains(resp.Response, "头痛") {
		t.Errorf("响应应包含症状分析: %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "免责声明") {
		t.Error("医疗建议应带免责声明")
	}
	if len(resp.FollowUps) == 0 {
		t.Error("症状分析应给出追问建议")
	}

	dctx, _ := svc.sessions.Get("s2")
	if dctx.AccumulatedEntities.Symptom != "头痛" {
		t.Errorf("累积症状实体 = %q, 期望 头痛", dctx.AccumulatedEntities.Symptom)
	}
	if dctx.AccumulatedEntities.Duration != "3天" {
		t.Errorf("持续时间实体 = %q, 期望 3天", dctx.AccumulatedEntities.Duration)
	}
	if len(dctx.History) != 1 || dctx.History[0].Intent != model.IntentSymptomInquiry {
		t.Errorf("历史记录 = %+v", dctx.History)
	}
}

func TestProcessCriticalEmergencyOverride(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	resp, err := svc.Process(context.Background(), "s3", "u3", "我突然胸痛，呼吸困难，大汗", false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if resp.Emergency == nil || resp.Emergency.Level != emergency.LevelCritical {
		t.Fatalf("应检出危急级别: %+v", resp.Emergency)
	}
	if !strings.Contains(resp.Response, "120") {
		t.Errorf("危急响应应提示拨打 120: %q", resp.Response)
	}

	// 危急覆盖一切，包括澄清反问；这一轮仍计入上下文
	dctx, _ := svc.sessions.Get("s3")
	if len(dctx.History) != 1 {
		t.Errorf("历史长度 = %d, 期望 1", len(dctx.History))
	}
}

func TestProcessClarificationNotRecorded(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	resp, err := svc.Process(context.Background(), "s4", "u4", "想看医生", false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if resp.Response != "您是想了解预约挂号相关的内容吗？" {
		t.Fatalf("应返回澄清问题: %q", resp.Response)
	}

	dctx, _ := svc.sessions.Get("s4")
	if dctx.TurnCount != 0 {
		t.Errorf("澄清问题不应计入轮次: %d", dctx.TurnCount)
	}
}

func TestProcessEmptyInput(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	if _, err := svc.Process(context.Background(), "s5", "u5", "   ", false); err == nil {
		t.Fatal("空输入应返回错误")
	}
}

func TestProcessDefaultSessionAndUser(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	if _, err := svc.Process(context.Background(), "", "", "你好", false); err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	dctx, ok := svc.sessions.Get("default")
	if !ok {
		t.Fatal("缺省会话应为 default")
	}
	if dctx.UserID != "anonymous" {
		t.Errorf("缺省用户 = %q, 期望 anonymous", dctx.UserID)
	}
}

func TestProcessLLMPath(t *testing.T) {
	fake := &fakeChatClient{reply: "多休息，多喝温水，避免熬夜。"}
	svc := newTestAgent(t, NewLLMService(fake, zap.NewNop()), nil)

	resp, err := svc.Process(context.Background(), "s6", "u6", "我头痛怎么办", true)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if fake.calls != 1 {
		t.Fatalf("大模型调用次数 = %d, 期望 1", fake.calls)
	}
	if !strings.Contains(resp.Response, "多休息，多喝温水") {
		t.Errorf("响应应包含大模型回答: %q", resp.Response)
	}
	if !strings.Contains(resp.Response, "免责声明") {
		t.Error("大模型回答也应带免责声明")
	}

	snap := svc.metrics.Snapshot()
	if snap.SkillInvocations["llm-generator"].Success != 1 {
		t.Errorf("大模型路径技能计数 = %+v", snap.SkillInvocations)
	}
}

func TestProcessLLMSkippedOnCritical(t *testing.T) {
	fake := &fakeChatClient{reply: "不该出现的回答"}
	svc := newTestAgent(t, NewLLMService(fake, zap.NewNop()), nil)

	resp, err := svc.Process(context.Background(), "s7", "u7", "我突然胸痛，呼吸困难，大汗", true)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("危急情况不应调用大模型: %d 次", fake.calls)
	}
	if !strings.Contains(resp.Response, "120") {
		t.Errorf("响应 = %q", resp.Response)
	}

	snap := svc.metrics.Snapshot()
	if snap.EmergencyTotal["critical"] != 1 {
		t.Errorf("紧急检出计数 = %+v", snap.EmergencyTotal)
	}
}

func TestProcessLLMSkippedForLocalIntents(t *testing.T) {
	fake := &fakeChatClient{reply: "不该出现的回答"}
	svc := newTestAgent(t, NewLLMService(fake, zap.NewNop()), nil)

	// 问候走内置技能，不浪费大模型调用
	resp, err := svc.Process(context.Background(), "s8", "u8", "你好", true)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if fake.calls != 0 {
		t.Errorf("问候不应调用大模型: %d 次", fake.calls)
	}
	if strings.Contains(resp.Response, "不该出现的回答") {
		t.Errorf("响应 = %q", resp.Response)
	}
}

func TestProcessIntentCacheShared(t *testing.T) {
	svc := newTestAgent(t, nil, nil)
	text := "我最近头痛头晕，已经3天了"

	r1, err := svc.Process(context.Background(), "s9a", "u9", text, false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	r2, err := svc.Process(context.Background(), "s9b", "u9", text, false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}

	if r1.Intent != r2.Intent || r1.Confidence != r2.Confidence {
		t.Errorf("相同输入的分类结果不一致: %+v vs %+v", r1, r2)
	}
	if hits := svc.caches.Intent.Stats().Hits; hits == 0 {
		t.Error("第二次相同输入应命中意图缓存")
	}
}

func TestProcessRewritesQuery(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	// "头痛挂啥科" 重写为标准科室问法后应识别为科室查询
	resp, err := svc.Process(context.Background(), "s10", "u10", "头痛挂啥科", false)
	if err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if resp.Intent != model.IntentDepartmentQuery {
		t.Fatalf("意图 = %s (%.2f), 期望 department_query", resp.Intent, resp.Confidence)
	}
	if !strings.Contains(resp.Response, "科室") {
		t.Errorf("响应 = %q", resp.Response)
	}

	// 技能与历史记录使用原始输入
	dctx, _ := svc.sessions.Get("s10")
	if len(dctx.History) != 1 || dctx.History[0].UserInput != "头痛挂啥科" {
		t.Errorf("历史应保存原始输入: %+v", dctx.History)
	}
}

func TestProcessPersistsSessionAsync(t *testing.T) {
	store, err := dialogue.NewStore(filepath.Join(t.TempDir(), "sessions.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("创建会话存储失败: %v", err)
	}
	defer store.Close()

	svc := newTestAgent(t, nil, store)
	if _, err := svc.Process(context.Background(), "s-persist", "u1", "你好", false); err != nil {
		t.Fatalf("处理失败: %v", err)
	}

	// 落盘是异步的，轮询等待
	deadline := time.Now().Add(2 * time.Second)
	for {
		loaded, err := store.LoadSession(context.Background(), "s-persist")
		if err != nil {
			t.Fatalf("读取会话失败: %v", err)
		}
		if loaded != nil && len(loaded.History) == 1 {
			if loaded.History[0].UserInput != "你好" {
				t.Errorf("落盘历史 = %+v", loaded.History)
			}
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("会话未在期限内落盘")
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestClearSession(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	if _, err := svc.Process(context.Background(), "s11", "u11", "你好", false); err != nil {
		t.Fatalf("处理失败: %v", err)
	}
	if err := svc.ClearSession(context.Background(), "s11"); err != nil {
		t.Fatalf("清除会话失败: %v", err)
	}
	if _, ok := svc.sessions.Get("s11"); ok {
		t.Error("清除后会话不应存在")
	}
}

func TestProcessRecordsMetrics(t *testing.T) {
	svc := newTestAgent(t, nil, nil)

	svc.Process(context.Background(), "s12", "u12", "你好", false)
	svc.Process(context.Background(), "s12", "u12", "我最近头痛头晕，已经3天了", false)

	snap := svc.metrics.Snapshot()
	if snap.RequestTotal != 2 {
		t.Errorf("请求计数 = %d, 期望 2", snap.RequestTotal)
	}
	if snap.IntentTotal["greeting"] != 1 || snap.IntentTotal["symptom_inquiry"] != 1 {
		t.Errorf("意图计数 = %+v", snap.IntentTotal)
	}
	if snap.SkillInvocations["greeting-handler"].Success != 1 {
		t.Errorf("技能计数 = %+v", snap.SkillInvocations)
	}
}

func TestLLMEligible(t *testing.T) {
	eligible := []model.IntentType{
		model.IntentSymptomInquiry,
		model.IntentDepartmentQuery,
		model.IntentMedicationConsult,
		model.IntentAppointment,
		model.IntentHealthEducation,
	}
	for _, it := range eligible {
		if !llmEligible(it) {
			t.Errorf("意图 %s 应允许大模型生成", it)
		}
	}

	local := []model.IntentType{
		model.IntentGreeting,
		model.IntentMyAppointment,
		model.IntentFollowup,
		model.IntentRecords,
		model.IntentReportInterpret,
		model.IntentUnknown,
	}
	for _, it := range local {
		if llmEligible(it) {
			t.Errorf("意图 %s 不应走大模型", it)
		}
	}
}
