package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config 应用配置
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Redis     RedisConfig     `yaml:"redis"`
	DashScope DashScopeConfig `yaml:"dashscope"`
	Intent    IntentConfig    `yaml:"intent"`
	Safety    SafetyConfig    `yaml:"safety"`
	Session   SessionConfig   `yaml:"session"`
	Knowledge KnowledgeConfig `yaml:"knowledge"`
	Cache     CacheConfig     `yaml:"cache"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port int    `yaml:"port"`
	Name string `yaml:"name"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// DashScopeConfig 通义千问配置
type DashScopeConfig struct {
	APIKey string `yaml:"apiKey"`
	Model  string `yaml:"model"`
}

// IntentConfig 意图识别配置
type IntentConfig struct {
	ConfidenceThreshold float64 `yaml:"confidenceThreshold"` // 正常接受阈值
	FallbackThreshold   float64 `yaml:"fallbackThreshold"`   // 低于此值强制降级为 unknown
	EnableContextBoost  bool    `yaml:"enableContextBoost"`
	ContextBoost        float64 `yaml:"contextBoost"`      // 上下文关联加分
	ContextBoostDelta   float64 `yaml:"contextBoostDelta"` // 得分差在此范围内视为意图模糊
	ShortTextLen        int     `yaml:"shortTextLen"`      // 简短回复判定长度（字符数）
	MaxHistoryTurns     int     `yaml:"maxHistoryTurns"`
	ClassifierURL       string  `yaml:"classifierUrl"`     // 统计分类服务地址，空则仅用规则
	ClassifierTimeoutMS int     `yaml:"classifierTimeoutMs"`
}

// SafetyConfig 用药安全配置
type SafetyConfig struct {
	StrictMode                bool `yaml:"strictMode"`
	EmergencyDetectionEnabled bool `yaml:"emergencyDetectionEnabled"`
	DrugInteractionCheck      bool `yaml:"drugInteractionCheck"`
	AllergyCheck              bool `yaml:"allergyCheck"`
	DoseCheck                 bool `yaml:"doseCheck"`
	ContraindicationCheck     bool `yaml:"contraindicationCheck"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	TTLSeconds       int    `yaml:"ttlSeconds"`
	MaxHistoryLength int    `yaml:"maxHistoryLength"`
	StorePath        string `yaml:"storePath"`
}

// KnowledgeConfig 知识库配置
type KnowledgeConfig struct {
	Path                  string `yaml:"path"`
	AutoReload            bool   `yaml:"autoReload"`
	ReloadIntervalSeconds int    `yaml:"reloadIntervalSeconds"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Enabled           bool `yaml:"enabled"`
	IntentTTLSeconds  int  `yaml:"intentTtlSeconds"`
	KBTTLSeconds      int  `yaml:"kbTtlSeconds"`
	ProfileTTLSeconds int  `yaml:"profileTtlSeconds"`
	MaxSize           int  `yaml:"maxSize"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// LoadConfig 加载配置文件
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// applyDefaults 填充未设置的默认值
func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.Name == "" {
		c.Server.Name = "medical-assistant"
	}
	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}
	if c.DashScope.Model == "" {
		c.DashScope.Model = "qwen-plus"
	}
	if c.Intent.ConfidenceThreshold == 0 {
		c.Intent.ConfidenceThreshold = 0.6
	}
	if c.Intent.FallbackThreshold == 0 {
		c.Intent.FallbackThreshold = 0.3
	}
	if c.Intent.ContextBoost == 0 {
		c.Intent.ContextBoost = 0.3
	}
	if c.Intent.ContextBoostDelta == 0 {
		c.Intent.ContextBoostDelta = 0.25
	}
	if c.Intent.ShortTextLen == 0 {
		c.Intent.ShortTextLen = 20
	}
	if c.Intent.MaxHistoryTurns == 0 {
		c.Intent.MaxHistoryTurns = 5
	}
	if c.Intent.ClassifierTimeoutMS == 0 {
		c.Intent.ClassifierTimeoutMS = 2000
	}
	if c.Session.TTLSeconds == 0 {
		c.Session.TTLSeconds = 86400
	}
	if c.Session.MaxHistoryLength == 0 {
		c.Session.MaxHistoryLength = 50
	}
	if c.Session.StorePath == "" {
		c.Session.StorePath = "data/sessions.db"
	}
	if c.Knowledge.Path == "" {
		c.Knowledge.Path = "data/knowledge_base.json"
	}
	if c.Knowledge.ReloadIntervalSeconds == 0 {
		c.Knowledge.ReloadIntervalSeconds = 300
	}
	if c.Cache.IntentTTLSeconds == 0 {
		c.Cache.IntentTTLSeconds = 300
	}
	if c.Cache.KBTTLSeconds == 0 {
		c.Cache.KBTTLSeconds = 3600
	}
	if c.Cache.ProfileTTLSeconds == 0 {
		c.Cache.ProfileTTLSeconds = 1800
	}
	if c.Cache.MaxSize == 0 {
		c.Cache.MaxSize = 1000
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
