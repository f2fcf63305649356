package skill

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// Request 一次技能调用的输入。Context 按引用传入，技能只读不持有。
type Request struct {
	Skill     string
	Intent    model.IntentType
	Entities  model.Entities
	Context   *model.DialogueContext
	UserInput string
	Profile   *model.UserProfile
	Emergency *emergency.Result
}

// Response 技能调用的结果
type Response struct {
	Success   bool     `json:"success"`
	Content   string   `json:"content"`
	FollowUps []string `json:"follow_up_suggestions,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// Handler 技能处理器，每个技能一个实现
type Handler interface {
	Name() string
	Handle(ctx context.Context, req Request) (Response, error)
}

// ErrSkillNotFound 请求的技能未注册
var ErrSkillNotFound = fmt.Errorf("技能未注册")

// Invoker 技能调用器，按技能名分发请求
type Invoker struct {
	mu       sync.RWMutex
	handlers map[string]Handler
	logger   *zap.Logger
}

// NewInvoker 创建技能调用器
func NewInvoker(logger *zap.Logger) *Invoker {
	return &Invoker{
		handlers: make(map[string]Handler),
		logger:   logger,
	}
}

// Register 注册技能处理器，同名覆盖
func (inv *Invoker) Register(h Handler) {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	inv.handlers[h.Name()] = h
}

// Lookup 按名称查找技能处理器，未注册时返回 ErrSkillNotFound
func (inv *Invoker) Lookup(name string) (Handler, error) {
	inv.mu.RLock()
	defer inv.mu.RUnlock()
	if h, ok := inv.handlers[name]; ok {
		return h, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrSkillNotFound, name)
}

// Skills 返回已注册技能名，按名称排序
func (inv *Invoker) Skills() []string {
	inv.mu.RLock()
	defer inv.mu.RUnlock()

	names := make([]string, 0, len(inv.handlers))
	for name := range inv.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke 调用技能并统一收尾。
// 危急级紧急结果绕过所有技能，直接返回紧急提醒，这是系统中唯一的无条件覆盖；
// 处理器报错或 panic 都折叠成兜底响应，单个技能的故障不会中断本轮对话。
func (inv *Invoker) Invoke(ctx context.Context, req Request) Response {
	if req.Emergency != nil && req.Emergency.Detected && req.Emergency.Level == emergency.LevelCritical {
		inv.logger.Warn("检测到危急情况，跳过技能处理",
			zap.String("skill", req.Skill),
			zap.Strings("patterns", req.Emergency.MatchedPatterns))
		return Response{Success: true, Content: emergency.FormatEmergencyMessage(req.Emergency)}
	}

	handler, err := inv.Lookup(req.Skill)
	if err != nil {
		inv.logger.Warn("技能未注册", zap.String("skill", req.Skill))
		return Response{
			Success: false,
			Content: "抱歉，该功能暂未开放。",
			Error:   err.Error(),
		}
	}

	resp, err := inv.safeHandle(ctx, handler, req)
	if err != nil {
		inv.logger.Error("技能执行失败",
			zap.String("skill", req.Skill),
			zap.Error(err))
		return Response{
			Success: false,
			Content: "处理请求时出错，请稍后重试。",
			Error:   err.Error(),
		}
	}

	// 问候不加免责声明，其余成功响应统一收尾
	if resp.Success && req.Skill != "greeting-handler" {
		resp.Content = AddDisclaimer(resp.Content)
	}
	// 非危急级别的检测结果在正文前附加警示横幅
	if resp.Success && req.Emergency != nil && req.Emergency.Detected {
		resp.Content = AddEmergencyWarning(resp.Content, req.Emergency)
	}
	return resp
}

// safeHandle 将处理器 panic 折叠为错误
func (inv *Invoker) safeHandle(ctx context.Context, h Handler, req Request) (resp Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("技能内部错误: %v", r)
		}
	}()
	return h.Handle(ctx, req)
}
