package dialogue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/model"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SessionRecord 会话列表项
type SessionRecord struct {
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	TurnCount int       `json:"turn_count"`
	StartTime time.Time `json:"start_time"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StoreStats 存储统计信息
type StoreStats struct {
	TotalSessions  int   `json:"total_sessions"`
	ActiveSessions int   `json:"active_sessions"`
	TotalTurns     int   `json:"total_turns"`
	DBSizeBytes    int64 `json:"db_size_bytes"`
}

// Store 会话持久化存储，上下文以 JSON 列落在 SQLite
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	history TEXT,
	entities TEXT,
	current_intent TEXT,
	metadata TEXT,
	turn_count INTEGER DEFAULT 0,
	start_time TEXT,
	updated_at TEXT,
	expires_at TEXT
);
CREATE TABLE IF NOT EXISTS turns (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id TEXT NOT NULL,
	turn INTEGER NOT NULL,
	timestamp TEXT NOT NULL,
	user_input TEXT NOT NULL,
	agent_response TEXT NOT NULL,
	intent TEXT,
	confidence REAL,
	entities TEXT
);
CREATE INDEX IF NOT EXISTS idx_sessions_user_id ON sessions (user_id);
CREATE INDEX IF NOT EXISTS idx_turns_session_id ON turns (session_id);
CREATE INDEX IF NOT EXISTS idx_turns_timestamp ON turns (timestamp);
`

// NewStore 打开（必要时创建）会话数据库并建表
func NewStore(path string, logger *zap.Logger) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("创建数据目录失败: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("打开会话数据库失败: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("初始化会话表失败: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close 关闭数据库连接
func (s *Store) Close() error {
	return s.db.Close()
}

// formatTime 统一用 UTC RFC3339，保证字符串比较与时间顺序一致
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SaveSession 保存会话上下文，expires_at = now + ttl；ttl <= 0 表示不过期
func (s *Store) SaveSession(ctx context.Context, dctx *model.DialogueContext, ttl time.Duration) error {
	historyJSON, err := json.Marshal(dctx.History)
	if err != nil {
		return fmt.Errorf("序列化会话历史失败: %w", err)
	}
	entitiesJSON, err := json.Marshal(dctx.AccumulatedEntities)
	if err != nil {
		return fmt.Errorf("序列化累积实体失败: %w", err)
	}
	metadataJSON, err := json.Marshal(dctx.Metadata)
	if err != nil {
		return fmt.Errorf("序列化会话元数据失败: %w", err)
	}

	var intentJSON sql.NullString
	if dctx.CurrentIntent != nil {
		data, err := json.Marshal(dctx.CurrentIntent)
		if err != nil {
			return fmt.Errorf("序列化当前意图失败: %w", err)
		}
		intentJSON = sql.NullString{String: string(data), Valid: true}
	}

	now := time.Now()
	var expiresAt sql.NullString
	if ttl > 0 {
		expiresAt = sql.NullString{String: formatTime(now.Add(ttl)), Valid: true}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO sessions
		(session_id, user_id, history, entities, current_intent, metadata, turn_count, start_time, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		dctx.SessionID,
		dctx.UserID,
		string(historyJSON),
		string(entitiesJSON),
		intentJSON,
		string(metadataJSON),
		dctx.TurnCount,
		formatTime(dctx.StartTime),
		formatTime(now),
		expiresAt,
	)
	if err != nil {
		return fmt.Errorf("保存会话失败: %w", err)
	}
	return nil
}

// LoadSession 加载会话上下文，不存在或已过期返回 (nil, nil)
func (s *Store) LoadSession(ctx context.Context, sessionID string) (*model.DialogueContext, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT user_id, history, entities, current_intent, metadata, turn_count, start_time
		FROM sessions
		WHERE session_id = ? AND (expires_at IS NULL OR expires_at > ?)`,
		sessionID, formatTime(time.Now()))

	var (
		userID       string
		historyJSON  sql.NullString
		entitiesJSON sql.NullString
		intentJSON   sql.NullString
		metadataJSON sql.NullString
		turnCount    int
		startTime    sql.NullString
	)
	if err := row.Scan(&userID, &historyJSON, &entitiesJSON, &intentJSON, &metadataJSON, &turnCount, &startTime); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}

	dctx := &model.DialogueContext{
		SessionID: sessionID,
		UserID:    userID,
		TurnCount: turnCount,
	}
	if historyJSON.Valid && historyJSON.String != "" {
		if err := json.Unmarshal([]byte(historyJSON.String), &dctx.History); err != nil {
			return nil, fmt.Errorf("解析会话历史失败: %w", err)
		}
	}
	if entitiesJSON.Valid && entitiesJSON.String != "" {
		if err := json.Unmarshal([]byte(entitiesJSON.String), &dctx.AccumulatedEntities); err != nil {
			return nil, fmt.Errorf("解析累积实体失败: %w", err)
		}
	}
	if intentJSON.Valid && intentJSON.String != "" {
		var intent model.IntentResult
		if err := json.Unmarshal([]byte(intentJSON.String), &intent); err != nil {
			return nil, fmt.Errorf("解析当前意图失败: %w", err)
		}
		dctx.CurrentIntent = &intent
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &dctx.Metadata); err != nil {
			return nil, fmt.Errorf("解析会话元数据失败: %w", err)
		}
	}
	if startTime.Valid {
		if t, err := time.Parse(time.RFC3339, startTime.String); err == nil {
			dctx.StartTime = t
		}
	}
	return dctx, nil
}

// DeleteSession 删除会话及其轮次记录，返回会话是否存在
func (s *Store) DeleteSession(ctx context.Context, sessionID string) (bool, error) {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE session_id = ?", sessionID)
	if err != nil {
		return false, fmt.Errorf("删除会话失败: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM turns WHERE session_id = ?", sessionID); err != nil {
		return false, fmt.Errorf("删除会话轮次失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// AddTurn 追加一轮对话记录
func (s *Store) AddTurn(ctx context.Context, sessionID string, turn model.Turn) error {
	entitiesJSON, err := json.Marshal(turn.Entities)
	if err != nil {
		return fmt.Errorf("序列化轮次实体失败: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO turns
		(session_id, turn, timestamp, user_input, agent_response, intent, confidence, entities)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		turn.Turn,
		formatTime(turn.Timestamp),
		turn.UserInput,
		turn.AgentResponse,
		string(turn.Intent),
		turn.Confidence,
		string(entitiesJSON),
	)
	if err != nil {
		return fmt.Errorf("保存对话轮次失败: %w", err)
	}
	return nil
}

// SessionHistory 按轮次顺序返回会话的轮次记录，limit <= 0 返回全部
func (s *Store) SessionHistory(ctx context.Context, sessionID string, limit int) ([]model.Turn, error) {
	query := `
		SELECT turn, timestamp, user_input, agent_response, intent, confidence, entities
		FROM turns
		WHERE session_id = ?
		ORDER BY turn ASC`
	args := []interface{}{sessionID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询会话历史失败: %w", err)
	}
	defer rows.Close()

	var turns []model.Turn
	for rows.Next() {
		var (
			t            model.Turn
			ts           string
			intent       sql.NullString
			entitiesJSON sql.NullString
		)
		if err := rows.Scan(&t.Turn, &ts, &t.UserInput, &t.AgentResponse, &intent, &t.Confidence, &entitiesJSON); err != nil {
			return nil, fmt.Errorf("读取轮次记录失败: %w", err)
		}
		if parsed, err := time.Parse(time.RFC3339, ts); err == nil {
			t.Timestamp = parsed
		}
		t.Intent = model.IntentType(intent.String)
		if entitiesJSON.Valid && entitiesJSON.String != "" {
			if err := json.Unmarshal([]byte(entitiesJSON.String), &t.Entities); err != nil {
				return nil, fmt.Errorf("解析轮次实体失败: %w", err)
			}
		}
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// UserSessions 返回用户最近的会话，按更新时间倒序，limit <= 0 时取 10 条
func (s *Store) UserSessions(ctx context.Context, userID string, limit int, activeOnly bool) ([]SessionRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	query := "SELECT session_id, user_id, turn_count, start_time, updated_at FROM sessions WHERE user_id = ?"
	args := []interface{}{userID}
	if activeOnly {
		query += " AND (expires_at IS NULL OR expires_at > ?)"
		args = append(args, formatTime(time.Now()))
	}
	query += " ORDER BY updated_at DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("查询用户会话失败: %w", err)
	}
	defer rows.Close()

	var records []SessionRecord
	for rows.Next() {
		var (
			rec       SessionRecord
			startTime sql.NullString
			updatedAt sql.NullString
		)
		if err := rows.Scan(&rec.SessionID, &rec.UserID, &rec.TurnCount, &startTime, &updatedAt); err != nil {
			return nil, fmt.Errorf("读取会话记录失败: %w", err)
		}
		if startTime.Valid {
			if t, err := time.Parse(time.RFC3339, startTime.String); err == nil {
				rec.StartTime = t
			}
		}
		if updatedAt.Valid {
			if t, err := time.Parse(time.RFC3339, updatedAt.String); err == nil {
				rec.UpdatedAt = t
			}
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// CleanupExpired 删除过期超过 retention 的会话及其轮次，返回清理的会话数
func (s *Store) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := formatTime(time.Now().Add(-retention))

	if _, err := s.db.ExecContext(ctx, `
		DELETE FROM turns WHERE session_id IN
		(SELECT session_id FROM sessions WHERE expires_at IS NOT NULL AND expires_at < ?)`,
		cutoff); err != nil {
		return 0, fmt.Errorf("清理过期轮次失败: %w", err)
	}

	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sessions WHERE expires_at IS NOT NULL AND expires_at < ?", cutoff)
	if err != nil {
		return 0, fmt.Errorf("清理过期会话失败: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	if n > 0 && s.logger != nil {
		s.logger.Info("已清理过期会话", zap.Int64("count", n))
	}
	return n, nil
}

// Stats 返回存储统计信息
func (s *Store) Stats(ctx context.Context) (StoreStats, error) {
	var st StoreStats
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM sessions").Scan(&st.TotalSessions); err != nil {
		return st, fmt.Errorf("统计会话总数失败: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sessions WHERE expires_at IS NULL OR expires_at > ?",
		formatTime(time.Now())).Scan(&st.ActiveSessions); err != nil {
		return st, fmt.Errorf("统计活跃会话失败: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM turns").Scan(&st.TotalTurns); err != nil {
		return st, fmt.Errorf("统计轮次总数失败: %w", err)
	}
	if err := s.db.QueryRowContext(ctx,
		"SELECT page_count * page_size FROM pragma_page_count(), pragma_page_size()").Scan(&st.DBSizeBytes); err != nil {
		return st, fmt.Errorf("统计数据库大小失败: %w", err)
	}
	return st, nil
}
