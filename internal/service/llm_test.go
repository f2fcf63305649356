package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aitachi/medical-agent-sub000/internal/client"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// fakeChatClient 固定应答的大模型客户端
type fakeChatClient struct {
	reply        string
	err          error
	calls        int
	lastMessages []client.Message
}

func (f *fakeChatClient) Chat(ctx context.Context, messages []client.Message) (string, error) {
	f.calls++
	f.lastMessages = append([]client.Message(nil), messages...)
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestGenerateUsesIntentPrompt(t *testing.T) {
	fake := &fakeChatClient{reply: "这是生成的回答"}
	svc := NewLLMService(fake, zap.NewNop())

	got := svc.Generate(context.Background(), "我头痛三天了", model.IntentSymptomInquiry, nil, nil)

	if got != "这是生成的回答" {
		t.Fatalf("回答 = %q", got)
	}
	if fake.calls != 1 {
		t.Fatalf("调用次数 = %d, 期望 1", fake.calls)
	}
	if len(fake.lastMessages) != 2 {
		t.Fatalf("消息数 = %d, 期望 2（system + user）", len(fake.lastMessages))
	}
	if fake.lastMessages[0].Role != "system" || !strings.Contains(fake.lastMessages[0].Content, "症状分析专家") {
		t.Errorf("系统提示词不匹配意图: %q", fake.lastMessages[0].Content)
	}
	if fake.lastMessages[1].Role != "user" || fake.lastMessages[1].Content != "我头痛三天了" {
		t.Errorf("用户消息 = %+v", fake.lastMessages[1])
	}
}

func TestGenerateDefaultPromptForUnknownIntent(t *testing.T) {
	fake := &fakeChatClient{reply: "回答"}
	svc := NewLLMService(fake, zap.NewNop())

	svc.Generate(context.Background(), "随便聊聊", model.IntentUnknown, nil, nil)

	if !strings.Contains(fake.lastMessages[0].Content, "医小助") {
		t.Errorf("未覆盖的意图应使用默认系统提示词: %q", fake.lastMessages[0].Content)
	}
}

func TestGenerateIncludesHistory(t *testing.T) {
	fake := &fakeChatClient{reply: "回答"}
	svc := NewLLMService(fake, zap.NewNop())

	dctx := model.NewDialogueContext("s1", "u1")
	dctx.AddTurn("我头痛", "建议休息", nil)
	dctx.AddTurn("还在痛", "建议就医", nil)

	svc.Generate(context.Background(), "需要吃什么药", model.IntentMedicationConsult, dctx, nil)

	// system + 2轮×2条 + user
	if len(fake.lastMessages) != 6 {
		t.Fatalf("消息数 = %d, 期望 6", len(fake.lastMessages))
	}
	if fake.lastMessages[1].Role != "user" || fake.lastMessages[1].Content != "我头痛" {
		t.Errorf("首条历史 = %+v", fake.lastMessages[1])
	}
	if fake.lastMessages[2].Role != "assistant" || fake.lastMessages[2].Content != "建议休息" {
		t.Errorf("首条回复 = %+v", fake.lastMessages[2])
	}
	if fake.lastMessages[5].Content != "需要吃什么药" {
		t.Errorf("末条消息 = %+v", fake.lastMessages[5])
	}
}

func TestGenerateHistoryCapped(t *testing.T) {
	fake := &fakeChatClient{reply: "回答"}
	svc := NewLLMService(fake, zap.NewNop())

	dctx := model.NewDialogueContext("s1", "u1")
	for i := 0; i < 8; i++ {
		dctx.AddTurn("输入", "响应", nil)
	}

	svc.Generate(context.Background(), "新问题", model.IntentSymptomInquiry, dctx, nil)

	// system + 5轮×2条 + user
	if len(fake.lastMessages) != 12 {
		t.Fatalf("消息数 = %d, 期望 12", len(fake.lastMessages))
	}
}

func TestGenerateInjectsRecentUtterances(t *testing.T) {
	fake := &fakeChatClient{reply: "回答"}
	svc := NewLLMService(fake, zap.NewNop())

	svc.Generate(context.Background(), "我该注意什么", model.IntentHealthEducation, nil, []string{"高血压怎么预防", "血压高不能吃什么"})

	system := fake.lastMessages[0].Content
	if !strings.Contains(system, "用户近期咨询过") {
		t.Errorf("系统提示词缺少近期咨询背景: %q", system)
	}
	if !strings.Contains(system, "高血压怎么预防") || !strings.Contains(system, "血压高不能吃什么") {
		t.Errorf("近期发言未注入: %q", system)
	}
}

func TestGenerateFallbackOnError(t *testing.T) {
	fake := &fakeChatClient{err: errors.New("接口超时")}
	svc := NewLLMService(fake, zap.NewNop())

	got := svc.Generate(context.Background(), "我头痛", model.IntentSymptomInquiry, nil, nil)

	if !strings.Contains(got, "关于您的症状") {
		t.Errorf("调用失败应返回症状兜底: %q", got)
	}
	if !strings.Contains(got, "「我头痛」") {
		t.Errorf("兜底回答应引用用户输入: %q", got)
	}
}

func TestGenerateNilClientFallbacks(t *testing.T) {
	svc := NewLLMService(nil, zap.NewNop())

	tests := []struct {
		intent model.IntentType
		want   string
	}{
		{model.IntentSymptomInquiry, "关于您的症状"},
		{model.IntentDepartmentQuery, "科室推荐"},
		{model.IntentMedicationConsult, "用药咨询"},
		{model.IntentAppointment, "预约挂号"},
		{model.IntentHealthEducation, "健康知识"},
	}
	for _, tt := range tests {
		got := svc.Generate(context.Background(), "测试输入", tt.intent, nil, nil)
		if !strings.Contains(got, tt.want) {
			t.Errorf("意图 %s 的兜底回答 = %q, 期望包含 %q", tt.intent, got, tt.want)
		}
	}

	if got := svc.Generate(context.Background(), "测试", model.IntentUnknown, nil, nil); got != fallbackDefault {
		t.Errorf("未知意图兜底 = %q", got)
	}
}
