package model

import "time"

// Turn 单轮对话记录
type Turn struct {
	Turn          int        `json:"turn"`
	Timestamp     time.Time  `json:"timestamp"`
	UserInput     string     `json:"user_input"`
	AgentResponse string     `json:"agent_response"`
	Intent        IntentType `json:"intent"`
	Confidence    float64    `json:"confidence"`
	Entities      Entities   `json:"entities"`
}

// DialogueContext 对话上下文（每会话一份可变状态）。
// 不支持并发写，同一会话的轮次必须串行处理，由调用方保证。
type DialogueContext struct {
	SessionID           string            `json:"session_id"`
	UserID              string            `json:"user_id"`
	History             []Turn            `json:"history"`
	CurrentIntent       *IntentResult     `json:"current_intent,omitempty"`
	AccumulatedEntities Entities          `json:"accumulated_entities"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	TurnCount           int               `json:"turn_count"`
	StartTime           time.Time         `json:"start_time"`
}

// NewDialogueContext 创建对话上下文
func NewDialogueContext(sessionID, userID string) *DialogueContext {
	return &DialogueContext{
		SessionID: sessionID,
		UserID:    userID,
		StartTime: time.Now(),
	}
}

// AddTurn 追加一轮对话并递增轮次计数
func (c *DialogueContext) AddTurn(userInput, agentResponse string, intent *IntentResult) {
	turn := Turn{
		Turn:          c.TurnCount,
		Timestamp:     time.Now(),
		UserInput:     userInput,
		AgentResponse: agentResponse,
	}
	if intent != nil {
		turn.Intent = intent.Intent
		turn.Confidence = intent.Confidence
		turn.Entities = intent.Entities
	}
	c.History = append(c.History, turn)
	c.TurnCount++
}

// LastIntent 返回上一轮的意图，无历史时返回空串
func (c *DialogueContext) LastIntent() IntentType {
	if len(c.History) == 0 {
		return ""
	}
	return c.History[len(c.History)-1].Intent
}

// UpdateEntities 合并累积实体（只增不清，除非显式重置）
func (c *DialogueContext) UpdateEntities(fresh Entities) {
	c.AccumulatedEntities = c.AccumulatedEntities.Merge(fresh)
}

// TrimHistory 将历史裁剪到最近 max 轮
func (c *DialogueContext) TrimHistory(max int) {
	if max > 0 && len(c.History) > max {
		c.History = c.History[len(c.History)-max:]
	}
}

// Clone 返回上下文快照，供持久化等异步读取。
// History 独立复制，之后的轮次追加不影响副本。
func (c *DialogueContext) Clone() *DialogueContext {
	cp := *c
	cp.History = append([]Turn(nil), c.History...)
	if c.CurrentIntent != nil {
		intent := *c.CurrentIntent
		cp.CurrentIntent = &intent
	}
	if c.Metadata != nil {
		cp.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}
