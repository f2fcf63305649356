package dialogue

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/config"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// ErrSessionNotFound 会话在内存与存储中都不存在
var ErrSessionNotFound = fmt.Errorf("会话不存在")

// Manager 会话管理器。活跃上下文驻留内存，落盘由 SQLite 存储负责。
// 上下文本身不支持并发写，同一会话的轮次必须串行处理：
// 调用方先 Lock(sessionID) 拿到会话锁，再读写上下文。
type Manager struct {
	contexts   map[string]*model.DialogueContext
	locks      map[string]*sync.Mutex
	mu         sync.RWMutex
	store      *Store
	ttl        time.Duration
	maxHistory int
	logger     *zap.Logger
}

// NewManager 创建会话管理器，store 为 nil 时退化为纯内存模式
func NewManager(store *Store, cfg config.SessionConfig, logger *zap.Logger) *Manager {
	return &Manager{
		contexts:   make(map[string]*model.DialogueContext),
		locks:      make(map[string]*sync.Mutex),
		store:      store,
		ttl:        time.Duration(cfg.TTLSeconds) * time.Second,
		maxHistory: cfg.MaxHistoryLength,
		logger:     logger,
	}
}

// Lock 获取会话级互斥锁，返回解锁函数。
// 锁条目不回收，同一会话 ID 始终对应同一把锁。
func (m *Manager) Lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

// GetOrCreate 返回会话上下文：先查内存，再查存储，都没有则新建
func (m *Manager) GetOrCreate(ctx context.Context, sessionID, userID string) (*model.DialogueContext, error) {
	m.mu.RLock()
	dctx, ok := m.contexts[sessionID]
	m.mu.RUnlock()
	if ok {
		return dctx, nil
	}

	if m.store != nil {
		loaded, err := m.store.LoadSession(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		if loaded != nil {
			m.mu.Lock()
			if existing, ok := m.contexts[sessionID]; ok {
				loaded = existing
			} else {
				m.contexts[sessionID] = loaded
			}
			m.mu.Unlock()
			m.logger.Info("会话已从存储恢复",
				zap.String("sessionId", sessionID),
				zap.Int("turnCount", loaded.TurnCount))
			return loaded, nil
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.contexts[sessionID]; ok {
		return existing, nil
	}
	dctx = model.NewDialogueContext(sessionID, userID)
	m.contexts[sessionID] = dctx
	m.logger.Info("创建新会话",
		zap.String("sessionId", sessionID),
		zap.String("userId", userID))
	return dctx, nil
}

// Get 返回内存中的会话上下文
func (m *Manager) Get(sessionID string) (*model.DialogueContext, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	dctx, ok := m.contexts[sessionID]
	return dctx, ok
}

// Save 持久化会话上下文
func (m *Manager) Save(ctx context.Context, dctx *model.DialogueContext) error {
	if m.store == nil {
		return nil
	}
	return m.store.SaveSession(ctx, dctx, m.ttl)
}

// RecordTurn 持久化单轮对话
func (m *Manager) RecordTurn(ctx context.Context, sessionID string, turn model.Turn) error {
	if m.store == nil {
		return nil
	}
	return m.store.AddTurn(ctx, sessionID, turn)
}

// Clear 清除会话（内存与存储），两处都没有时返回 ErrSessionNotFound
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	_, inMemory := m.contexts[sessionID]
	delete(m.contexts, sessionID)
	m.mu.Unlock()

	inStore := false
	if m.store != nil {
		deleted, err := m.store.DeleteSession(ctx, sessionID)
		if err != nil {
			return err
		}
		inStore = deleted
	}

	if !inMemory && !inStore {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	m.logger.Info("会话已清除", zap.String("sessionId", sessionID))
	return nil
}

// ActiveSessions 返回内存中活跃会话的 ID 列表，按 ID 排序
func (m *Manager) ActiveSessions() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	ids := make([]string, 0, len(m.contexts))
	for id := range m.contexts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ActiveCount 内存中的活跃会话数
func (m *Manager) ActiveCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.contexts)
}

// MaxHistory 单会话保留的最大历史轮数
func (m *Manager) MaxHistory() int {
	return m.maxHistory
}

// CleanupExpired 清理存储中过期超过 retention 的会话
func (m *Manager) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	if m.store == nil {
		return 0, nil
	}
	return m.store.CleanupExpired(ctx, retention)
}

// StoreStats 返回存储统计，纯内存模式返回零值
func (m *Manager) StoreStats(ctx context.Context) (StoreStats, error) {
	if m.store == nil {
		return StoreStats{}, nil
	}
	return m.store.Stats(ctx)
}
