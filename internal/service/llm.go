package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/aitachi/medical-agent-sub000/internal/client"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// ChatClient 大模型对话客户端
type ChatClient interface {
	Chat(ctx context.Context, messages []client.Message) (string, error)
}

// 注入的历史轮数上限，每轮展开为 user/assistant 两条消息
const maxHistoryTurns = 5

// medicalSystemPrompt 医疗助手默认系统提示词
const medicalSystemPrompt = `你是一个专业的医疗健康助手，名为"医小助"。你的职责是：

## 核心原则
1. **安全第一**: 始终优先考虑用户健康安全
2. **专业准确**: 提供基于医学知识的准确信息
3. **温馨友好**: 用温暖、关怀的语气与用户交流
4. **不诊断**: 明确说明不能替代专业医疗诊断

## 回答规范
- 对症状分析，提供可能的原因和建议
- 对科室查询，给出明确的科室推荐
- 对用药咨询，说明用法、注意事项、副作用
- 对健康问题，提供预防建议和生活指导
- 对预约请求，引导用户提供必要信息

## 免责声明
每次涉及医疗建议时，都要加上："以上信息仅供参考，不能替代专业医疗诊断和治疗。如有不适请及时就医。"

## 格式要求
- 使用Markdown格式
- 用emoji增加可读性 (🩺症状、🏥科室、💊药品、📅预约、📚健康)
- 重要信息用加粗或引用块突出
- 条理清晰，分点说明`

// intentPrompts 按意图定制的系统提示词，未覆盖的意图使用默认提示词
var intentPrompts = map[model.IntentType]string{
	model.IntentSymptomInquiry: `你是症状分析专家。请分析用户描述的症状，提供：
1. 可能的原因分析
2. 需要注意的危险信号（红旗征）
3. 建议的就诊科室
4. 自我护理建议
5. 何时需要立即就医`,
	model.IntentDepartmentQuery: `你是科室推荐专家。根据用户症状，推荐最合适的就诊科室：
1. 首选科室及理由
2. 备选科室（如有）
3. 该科室的诊疗范围`,
	model.IntentMedicationConsult: `你是用药咨询专家。提供药品相关信息：
1. 药品用途和适应症
2. 正确用法用量
3. 常见副作用
4. 重要注意事项和禁忌
5. 用药提醒`,
	model.IntentAppointment: `你是预约挂号助手。引导用户完成预约：
1. 确认用户需求
2. 询问缺失信息（科室、时间、医生类型）
3. 说明预约流程
4. 提供温馨提示`,
	model.IntentHealthEducation: `你是健康教育专家。提供专业的健康指导：
1. 疾病预防知识
2. 健康生活方式建议
3. 饮食运动指导
4. 长期管理建议`,
}

// 兜底回答模板
const (
	fallbackSymptom = `## 关于您的症状

感谢您描述的症状「%s」。

为了给您更准确的建议，请告诉我：
- 症状持续多长时间了？
- 有没有其他伴随症状？
- 症状的严重程度如何？

> ⚠️ **免责声明**: 以上信息仅供参考，不能替代专业医疗诊断和治疗。如有不适请及时就医。`

	fallbackDepartment = `## 科室推荐

根据您提到的「%s」，建议您挂号前先明确具体症状。

常见科室参考：
- 头痛头晕 → 神经内科
- 咳嗽发热 → 呼吸内科/发热门诊
- 腹痛恶心 → 消化内科
- 心悸胸痛 → 心血管内科

> ⚠️ **免责声明**: 以上信息仅供参考，不能替代专业医疗诊断和治疗。如有不适请及时就医。`

	fallbackMedication = `## 用药咨询

关于药品使用，请咨询：
1. 查阅药品说明书
2. 咨询医院药师
3. 咨询开药医生

> ⚠️ **重要提醒**: 请严格按医嘱或说明书使用药品，不要自行调整剂量。`

	fallbackAppointment = `## 预约挂号

请提供以下信息：
1. 挂号科室
2. 就诊时间
3. 医生类型（专家/普通）

> 💡 **提示**: 如果不确定挂什么科，可以先告诉我您的症状。`

	fallbackHealth = `## 健康知识

保持健康的生活方式：
- 均衡饮食，少盐少油
- 适量运动，每周150分钟
- 充足睡眠，规律作息
- 戒烟限酒，保持好心情

> ⚠️ **免责声明**: 以上信息仅供参考，不能替代专业医疗诊断和治疗。`

	fallbackDefault = "抱歉，我暂时无法处理您的请求，请稍后重试。"
)

// LLMService 大模型回答生成服务。
// 意图识别仍由分类器负责，大模型只负责把回答说得更自然；
// 客户端缺失或调用失败时降级到按意图定制的兜底模板，不影响主流程。
type LLMService struct {
	client ChatClient
	logger *zap.Logger
}

// NewLLMService 创建大模型服务，chatClient 可为 nil（纯兜底模式）
func NewLLMService(chatClient ChatClient, logger *zap.Logger) *LLMService {
	return &LLMService{
		client: chatClient,
		logger: logger,
	}
}

// Generate 生成回答。
// recent 为跨会话的近期发言（可空），作为背景注入系统提示词。
func (s *LLMService) Generate(ctx context.Context, userMessage string, intentType model.IntentType, dctx *model.DialogueContext, recent []string) string {
	if s.client == nil {
		return fallbackResponse(intentType, userMessage)
	}

	system := medicalSystemPrompt
	if p, ok := intentPrompts[intentType]; ok {
		system = p
	}
	if len(recent) > 0 {
		var b strings.Builder
		b.WriteString(system)
		b.WriteString("\n\n用户近期咨询过：\n")
		for _, u := range recent {
			b.WriteString("- ")
			b.WriteString(u)
			b.WriteString("\n")
		}
		system = b.String()
	}

	messages := make([]client.Message, 0, maxHistoryTurns*2+2)
	messages = append(messages, client.Message{Role: "system", Content: system})
	messages = append(messages, historyMessages(dctx)...)
	messages = append(messages, client.Message{Role: "user", Content: userMessage})

	response, err := s.client.Chat(ctx, messages)
	if err != nil {
		s.logger.Warn("大模型生成失败，使用兜底回答",
			zap.String("intent", string(intentType)),
			zap.Error(err))
		return fallbackResponse(intentType, userMessage)
	}
	return response
}

// historyMessages 将最近几轮对话展开成消息对。
// 调用发生在本轮 AddTurn 之前，历史里只有之前的轮次。
func historyMessages(dctx *model.DialogueContext) []client.Message {
	if dctx == nil || len(dctx.History) == 0 {
		return nil
	}
	history := dctx.History
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]client.Message, 0, len(history)*2)
	for _, turn := range history {
		messages = append(messages, client.Message{Role: "user", Content: turn.UserInput})
		messages = append(messages, client.Message{Role: "assistant", Content: turn.AgentResponse})
	}
	return messages
}

// fallbackResponse 按意图返回兜底回答
func fallbackResponse(intentType model.IntentType, userMessage string) string {
	switch intentType {
	case model.IntentSymptomInquiry:
		return fmt.Sprintf(fallbackSymptom, userMessage)
	case model.IntentDepartmentQuery:
		return fmt.Sprintf(fallbackDepartment, userMessage)
	case model.IntentMedicationConsult:
		return fallbackMedication
	case model.IntentAppointment:
		return fallbackAppointment
	case model.IntentHealthEducation:
		return fallbackHealth
	default:
		return fallbackDefault
	}
}
