package skill

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"go.uber.org/zap"
)

// stubSkill 测试用技能，按配置返回固定响应、错误或 panic
type stubSkill struct {
	name    string
	content string
	err     error
	panics  bool
}

func (s *stubSkill) Name() string { return s.name }

func (s *stubSkill) Handle(ctx context.Context, req Request) (Response, error) {
	if s.panics {
		panic("boom")
	}
	if s.err != nil {
		return Response{}, s.err
	}
	return Response{Success: true, Content: s.content}, nil
}

func TestInvokeUnknownSkill(t *testing.T) {
	inv := NewInvoker(zap.NewNop())

	resp := inv.Invoke(context.Background(), Request{Skill: "no-such-skill"})
	if resp.Success {
		t.Fatalf("未注册技能不应成功")
	}
	if resp.Content != "抱歉，该功能暂未开放。" {
		t.Errorf("兜底话术不符: %q", resp.Content)
	}
	if !strings.Contains(resp.Error, "no-such-skill") {
		t.Errorf("错误信息应包含技能名: %q", resp.Error)
	}
}

func TestLookup(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "echo-skill"})

	if _, err := inv.Lookup("echo-skill"); err != nil {
		t.Fatalf("查找已注册技能失败: %v", err)
	}

	_, err := inv.Lookup("no-such-skill")
	if !errors.Is(err, ErrSkillNotFound) {
		t.Errorf("未注册技能应返回 ErrSkillNotFound, got %v", err)
	}
}

func TestInvokeAddsDisclaimer(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "echo-skill", content: "这是回复内容。"})

	resp := inv.Invoke(context.Background(), Request{Skill: "echo-skill"})
	if !resp.Success {
		t.Fatalf("调用应成功: %+v", resp)
	}
	if !strings.Contains(resp.Content, "免责声明") {
		t.Errorf("成功响应应追加免责声明: %q", resp.Content)
	}
}

func TestInvokeGreetingSkipsDisclaimer(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "greeting-handler", content: "您好！"})

	resp := inv.Invoke(context.Background(), Request{Skill: "greeting-handler"})
	if strings.Contains(resp.Content, "免责声明") {
		t.Errorf("问候响应不应追加免责声明: %q", resp.Content)
	}
}

func TestInvokeHandlerError(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "bad-skill", err: errors.New("数据库连接失败")})

	resp := inv.Invoke(context.Background(), Request{Skill: "bad-skill"})
	if resp.Success {
		t.Fatalf("出错技能不应成功")
	}
	if resp.Content != "处理请求时出错，请稍后重试。" {
		t.Errorf("错误兜底话术不符: %q", resp.Content)
	}
	if !strings.Contains(resp.Error, "数据库连接失败") {
		t.Errorf("应保留原始错误: %q", resp.Error)
	}
}

func TestInvokePanicRecovered(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "panic-skill", panics: true})

	resp := inv.Invoke(context.Background(), Request{Skill: "panic-skill"})
	if resp.Success {
		t.Fatalf("panic 技能不应成功")
	}
	if !strings.Contains(resp.Error, "技能内部错误") {
		t.Errorf("panic 应折叠为内部错误: %q", resp.Error)
	}
}

func TestInvokeCriticalEmergencyBypass(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "echo-skill", content: "普通回复"})

	result := &emergency.Result{
		Detected:        true,
		Level:           emergency.LevelCritical,
		MatchedPatterns: []string{"胸痛"},
		Description:     "危及生命的紧急情况",
	}

	resp := inv.Invoke(context.Background(), Request{Skill: "echo-skill", Emergency: result})
	if !resp.Success {
		t.Fatalf("紧急响应应标记成功: %+v", resp)
	}
	if strings.Contains(resp.Content, "普通回复") {
		t.Errorf("危急情况应跳过技能处理: %q", resp.Content)
	}
	if !strings.Contains(resp.Content, "120") {
		t.Errorf("危急响应应包含急救指引: %q", resp.Content)
	}
}

func TestInvokeUrgentEmergencyNotBypassed(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "echo-skill", content: "普通回复"})

	result := &emergency.Result{
		Detected:    true,
		Level:       emergency.LevelUrgent,
		Description: "检测到需要当天就医的情况！",
		SuggestedAction: emergency.Action{
			Action:      "visit_today",
			Urgency:     "same_day",
			Description: "请于今天内前往医院就诊，不要延误",
		},
	}

	resp := inv.Invoke(context.Background(), Request{Skill: "echo-skill", Emergency: result})
	if !strings.Contains(resp.Content, "普通回复") {
		t.Errorf("紧急但非危急时应正常走技能: %q", resp.Content)
	}
	if !strings.HasPrefix(resp.Content, "⚠️ **健康警示**") {
		t.Errorf("非危急检测结果应在正文前附加警示横幅: %q", resp.Content)
	}
	if banner, body := strings.Index(resp.Content, "健康警示"), strings.Index(resp.Content, "普通回复"); banner > body {
		t.Errorf("警示横幅应位于技能正文之前: %q", resp.Content)
	}
}

func TestInvokeAttentionEmergencyBanner(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "echo-skill", content: "普通回复"})

	result := &emergency.Result{
		Detected:    true,
		Level:       emergency.LevelAttention,
		Description: "检测到需要关注的健康问题！",
		SuggestedAction: emergency.Action{
			Action:      "monitor",
			Urgency:     "monitor",
			Description: "建议您尽快就医检查，同时密切观察症状变化",
		},
	}

	resp := inv.Invoke(context.Background(), Request{Skill: "echo-skill", Emergency: result})
	if !strings.HasPrefix(resp.Content, "ℹ️") {
		t.Errorf("attention 级别应使用提示标记开头: %q", resp.Content)
	}
	if !strings.Contains(resp.Content, "免责声明") {
		t.Errorf("加横幅后免责声明应保留: %q", resp.Content)
	}
}

func TestSkillsSorted(t *testing.T) {
	inv := NewInvoker(zap.NewNop())
	inv.Register(&stubSkill{name: "zebra"})
	inv.Register(&stubSkill{name: "alpha"})
	inv.Register(&stubSkill{name: "mango"})

	got := inv.Skills()
	want := []string{"alpha", "mango", "zebra"}
	if len(got) != len(want) {
		t.Fatalf("技能数量不符: got %d want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("技能[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
