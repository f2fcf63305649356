package cache

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/config"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// 各命名空间的容量，TTL 由配置给出
const (
	intentCacheSize  = 1000
	kbCacheSize      = 500
	profileCacheSize = 200
)

// Manager 管理各业务命名空间的缓存实例
type Manager struct {
	Intent  *Cache[model.IntentResult]
	KB      *Cache[string]
	Profile *Cache[*model.UserProfile]

	enabled bool
	logger  *zap.Logger
}

// NewManager 按配置创建缓存管理器
func NewManager(cfg config.CacheConfig, logger *zap.Logger) *Manager {
	intentSize, kbSize, profileSize := intentCacheSize, kbCacheSize, profileCacheSize
	if cfg.MaxSize > 0 {
		intentSize = cfg.MaxSize
	}

	m := &Manager{
		Intent:  New[model.IntentResult](intentSize, time.Duration(cfg.IntentTTLSeconds)*time.Second),
		KB:      New[string](kbSize, time.Duration(cfg.KBTTLSeconds)*time.Second),
		Profile: New[*model.UserProfile](profileSize, time.Duration(cfg.ProfileTTLSeconds)*time.Second),
		enabled: cfg.Enabled,
		logger:  logger,
	}
	if cfg.Enabled {
		logger.Info("缓存已启用",
			zap.Int("intentTTL", cfg.IntentTTLSeconds),
			zap.Int("kbTTL", cfg.KBTTLSeconds),
			zap.Int("profileTTL", cfg.ProfileTTLSeconds))
	}
	return m
}

// Enabled 缓存是否启用
func (m *Manager) Enabled() bool {
	return m != nil && m.enabled
}

// Key 拼接缓存键，过长时用 MD5 摘要缩短
func Key(parts ...string) string {
	key := strings.Join(parts, ":")
	if len(key) > 100 {
		sum := md5.Sum([]byte(key))
		return hex.EncodeToString(sum[:])
	}
	return key
}

// IntentKey 意图分类缓存键，包含上一轮意图以区分上下文相关结果
func IntentKey(text string, lastIntent model.IntentType) string {
	return Key("intent", text, string(lastIntent))
}

// InvalidateProfile 用户画像更新后使其缓存失效
func (m *Manager) InvalidateProfile(userID string) {
	if m == nil {
		return
	}
	m.Profile.Delete(Key("profile", userID))
}

// AllStats 返回各命名空间的统计
func (m *Manager) AllStats() map[string]Stats {
	if m == nil {
		return nil
	}
	return map[string]Stats{
		"intent":  m.Intent.Stats(),
		"kb":      m.KB.Stats(),
		"profile": m.Profile.Stats(),
	}
}

// CleanupExpired 清理所有命名空间的过期条目
func (m *Manager) CleanupExpired() int {
	if m == nil {
		return 0
	}
	return m.Intent.CleanupExpired() + m.KB.CleanupExpired() + m.Profile.CleanupExpired()
}
