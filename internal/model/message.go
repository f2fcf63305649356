package model

import "time"

// ChatMessage WebSocket 聊天消息
type ChatMessage struct {
	MessageID  string    `json:"messageId"`
	Type       string    `json:"type"` // CHAT, HEARTBEAT, AI_RESPONSE
	Content    string    `json:"content"`
	SessionID  string    `json:"sessionId,omitempty"`
	UserID     string    `json:"userId,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ChatRequest 聊天请求
type ChatRequest struct {
	Message   string `json:"message" binding:"required"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	UseLLM    bool   `json:"useLlm"`
}

// ChatResponse 聊天响应
type ChatResponse struct {
	Response     string     `json:"response"`
	Intent       IntentType `json:"intent,omitempty"`
	Confidence   float64    `json:"confidence"`
	SkillInvoked string     `json:"skillInvoked,omitempty"`
	Emergency    string     `json:"emergency,omitempty"` // CRITICAL / URGENT / ATTENTION
	Timestamp    time.Time  `json:"timestamp"`
}

// WSResponse WebSocket 推送响应
type WSResponse struct {
	MessageID  string     `json:"messageId"`
	Response   string     `json:"response"`
	Intent     IntentType `json:"intent,omitempty"`
	Confidence float64    `json:"confidence"`
	Timestamp  time.Time  `json:"timestamp"`
}

// SessionInfo 会话信息
type SessionInfo struct {
	SessionID    string    `json:"sessionId"`
	UserID       string    `json:"userId"`
	MessageCount int       `json:"messageCount"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SafetyCheckRequest 用药安全检查请求
type SafetyCheckRequest struct {
	Drugs  []string `json:"drugs" binding:"required"`
	UserID string   `json:"userId"`
}

// SystemStatus 系统状态
type SystemStatus struct {
	Status         string `json:"status"`
	Uptime         string `json:"uptime"`
	ActiveSessions int    `json:"activeSessions"`
	TotalRequests  int64  `json:"totalRequests"`
	ClassifierType string `json:"classifierType"`
}
