package dialogue

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "sessions.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("创建会话存储失败: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// expireSession 将会话的过期时间改写到过去
func expireSession(t *testing.T, store *Store, sessionID string) {
	t.Helper()
	_, err := store.db.Exec("UPDATE sessions SET expires_at = ? WHERE session_id = ?",
		formatTime(time.Now().Add(-time.Hour)), sessionID)
	if err != nil {
		t.Fatalf("改写过期时间失败: %v", err)
	}
}

func TestStoreSaveLoadRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dctx := model.NewDialogueContext("sess_001", "user_001")
	dctx.AddTurn("我头痛", "建议您注意休息。", &model.IntentResult{
		Intent:     model.IntentSymptomInquiry,
		Confidence: 0.8,
		Entities:   model.Entities{Symptom: "头痛"},
	})
	dctx.AddTurn("需要吃什么药", "请咨询医生后用药。", &model.IntentResult{
		Intent:     model.IntentMedicationConsult,
		Confidence: 0.6,
	})
	dctx.UpdateEntities(model.Entities{Symptom: "头痛", Duration: "3天"})
	dctx.CurrentIntent = &model.IntentResult{
		Intent:      model.IntentMedicationConsult,
		Confidence:  0.6,
		TargetSkill: "medication-advisor",
	}
	dctx.Metadata = map[string]string{"channel": "web"}

	if err := store.SaveSession(ctx, dctx, time.Hour); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}

	loaded, err := store.LoadSession(ctx, "sess_001")
	if err != nil {
		t.Fatalf("加载会话失败: %v", err)
	}
	if loaded == nil {
		t.Fatal("会话应存在")
	}
	if loaded.UserID != "user_001" {
		t.Errorf("UserID = %q, 期望 user_001", loaded.UserID)
	}
	if loaded.TurnCount != 2 {
		t.Errorf("TurnCount = %d, 期望 2", loaded.TurnCount)
	}
	if len(loaded.History) != 2 {
		t.Fatalf("历史轮数 = %d, 期望 2", len(loaded.History))
	}
	if loaded.History[0].UserInput != "我头痛" || loaded.History[0].Intent != model.IntentSymptomInquiry {
		t.Errorf("第一轮记录不符: %+v", loaded.History[0])
	}
	if loaded.History[0].Entities.Symptom != "头痛" {
		t.Errorf("第一轮实体 = %+v, 期望 Symptom=头痛", loaded.History[0].Entities)
	}
	if loaded.AccumulatedEntities.Duration != "3天" {
		t.Errorf("累积实体 Duration = %q, 期望 3天", loaded.AccumulatedEntities.Duration)
	}
	if loaded.CurrentIntent == nil || loaded.CurrentIntent.TargetSkill != "medication-advisor" {
		t.Errorf("当前意图 = %+v, 期望 medication-advisor", loaded.CurrentIntent)
	}
	if loaded.Metadata["channel"] != "web" {
		t.Errorf("元数据 = %v, 期望 channel=web", loaded.Metadata)
	}
	if loaded.StartTime.Unix() != dctx.StartTime.Unix() {
		t.Errorf("StartTime = %v, 期望 %v", loaded.StartTime, dctx.StartTime)
	}
}

func TestStoreLoadMissing(t *testing.T) {
	store := newTestStore(t)

	loaded, err := store.LoadSession(context.Background(), "no_such_session")
	if err != nil {
		t.Fatalf("加载不存在的会话不应报错: %v", err)
	}
	if loaded != nil {
		t.Errorf("不存在的会话应返回 nil, 实际 %+v", loaded)
	}
}

func TestStoreExpiredSessionNotLoaded(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dctx := model.NewDialogueContext("sess_exp", "user_001")
	if err := store.SaveSession(ctx, dctx, time.Hour); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}
	expireSession(t, store, "sess_exp")

	loaded, err := store.LoadSession(ctx, "sess_exp")
	if err != nil {
		t.Fatalf("加载过期会话不应报错: %v", err)
	}
	if loaded != nil {
		t.Error("过期会话应返回 nil")
	}

	n, err := store.CleanupExpired(ctx, 0)
	if err != nil {
		t.Fatalf("清理过期会话失败: %v", err)
	}
	if n != 1 {
		t.Errorf("清理数 = %d, 期望 1", n)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("读取统计失败: %v", err)
	}
	if stats.TotalSessions != 0 {
		t.Errorf("清理后会话总数 = %d, 期望 0", stats.TotalSessions)
	}
}

func TestStoreNoTTLNeverExpires(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dctx := model.NewDialogueContext("sess_forever", "user_001")
	if err := store.SaveSession(ctx, dctx, 0); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}

	loaded, err := store.LoadSession(ctx, "sess_forever")
	if err != nil {
		t.Fatalf("加载会话失败: %v", err)
	}
	if loaded == nil {
		t.Fatal("无 TTL 的会话应始终可加载")
	}

	n, err := store.CleanupExpired(ctx, 0)
	if err != nil {
		t.Fatalf("清理失败: %v", err)
	}
	if n != 0 {
		t.Errorf("无 TTL 会话不应被清理, 清理数 = %d", n)
	}
}

func TestStoreDeleteSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	dctx := model.NewDialogueContext("sess_del", "user_001")
	if err := store.SaveSession(ctx, dctx, time.Hour); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}
	if err := store.AddTurn(ctx, "sess_del", model.Turn{Turn: 0, Timestamp: time.Now(), UserInput: "你好", AgentResponse: "您好"}); err != nil {
		t.Fatalf("保存轮次失败: %v", err)
	}

	ok, err := store.DeleteSession(ctx, "sess_del")
	if err != nil {
		t.Fatalf("删除会话失败: %v", err)
	}
	if !ok {
		t.Error("删除已存在的会话应返回 true")
	}

	loaded, _ := store.LoadSession(ctx, "sess_del")
	if loaded != nil {
		t.Error("删除后会话不应可加载")
	}
	turns, err := store.SessionHistory(ctx, "sess_del", 0)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	if len(turns) != 0 {
		t.Errorf("删除后轮次记录数 = %d, 期望 0", len(turns))
	}

	ok, err = store.DeleteSession(ctx, "sess_del")
	if err != nil {
		t.Fatalf("重复删除不应报错: %v", err)
	}
	if ok {
		t.Error("删除不存在的会话应返回 false")
	}
}

func TestStoreSessionHistoryOrderAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	inputs := []string{"我头痛", "持续3天了", "需要挂号吗"}
	for i, input := range inputs {
		turn := model.Turn{
			Turn:       i,
			Timestamp:  time.Now(),
			UserInput:  input,
			Intent:     model.IntentSymptomInquiry,
			Confidence: 0.7,
			Entities:   model.Entities{Symptom: "头痛"},
		}
		if err := store.AddTurn(ctx, "sess_hist", turn); err != nil {
			t.Fatalf("保存轮次 %d 失败: %v", i, err)
		}
	}

	turns, err := store.SessionHistory(ctx, "sess_hist", 0)
	if err != nil {
		t.Fatalf("查询历史失败: %v", err)
	}
	if len(turns) != 3 {
		t.Fatalf("轮次数 = %d, 期望 3", len(turns))
	}
	for i, turn := range turns {
		if turn.Turn != i {
			t.Errorf("第 %d 条轮次号 = %d, 期望按轮次升序", i, turn.Turn)
		}
		if turn.UserInput != inputs[i] {
			t.Errorf("第 %d 条输入 = %q, 期望 %q", i, turn.UserInput, inputs[i])
		}
	}
	if turns[0].Entities.Symptom != "头痛" {
		t.Errorf("轮次实体 = %+v, 期望 Symptom=头痛", turns[0].Entities)
	}

	limited, err := store.SessionHistory(ctx, "sess_hist", 2)
	if err != nil {
		t.Fatalf("限量查询失败: %v", err)
	}
	if len(limited) != 2 || limited[1].UserInput != "持续3天了" {
		t.Errorf("限量结果 = %+v, 期望前两轮", limited)
	}
}

func TestStoreUserSessions(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"sess_a1", "sess_a2"} {
		if err := store.SaveSession(ctx, model.NewDialogueContext(id, "user_a"), time.Hour); err != nil {
			t.Fatalf("保存会话 %s 失败: %v", id, err)
		}
	}
	if err := store.SaveSession(ctx, model.NewDialogueContext("sess_b1", "user_b"), time.Hour); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}
	// 保证 updated_at 顺序确定
	if _, err := store.db.Exec("UPDATE sessions SET updated_at = ? WHERE session_id = ?",
		formatTime(time.Now().Add(time.Minute)), "sess_a2"); err != nil {
		t.Fatalf("改写更新时间失败: %v", err)
	}

	records, err := store.UserSessions(ctx, "user_a", 10, false)
	if err != nil {
		t.Fatalf("查询用户会话失败: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("会话数 = %d, 期望 2", len(records))
	}
	if records[0].SessionID != "sess_a2" {
		t.Errorf("第一条 = %s, 期望最近更新的 sess_a2", records[0].SessionID)
	}

	expireSession(t, store, "sess_a1")
	active, err := store.UserSessions(ctx, "user_a", 10, true)
	if err != nil {
		t.Fatalf("查询活跃会话失败: %v", err)
	}
	if len(active) != 1 || active[0].SessionID != "sess_a2" {
		t.Errorf("活跃会话 = %+v, 期望仅 sess_a2", active)
	}
}

func TestStoreStats(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if err := store.SaveSession(ctx, model.NewDialogueContext("sess_s1", "user_a"), time.Hour); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}
	if err := store.SaveSession(ctx, model.NewDialogueContext("sess_s2", "user_a"), time.Hour); err != nil {
		t.Fatalf("保存会话失败: %v", err)
	}
	expireSession(t, store, "sess_s2")
	if err := store.AddTurn(ctx, "sess_s1", model.Turn{Turn: 0, Timestamp: time.Now(), UserInput: "你好", AgentResponse: "您好"}); err != nil {
		t.Fatalf("保存轮次失败: %v", err)
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("读取统计失败: %v", err)
	}
	if stats.TotalSessions != 2 {
		t.Errorf("会话总数 = %d, 期望 2", stats.TotalSessions)
	}
	if stats.ActiveSessions != 1 {
		t.Errorf("活跃会话数 = %d, 期望 1", stats.ActiveSessions)
	}
	if stats.TotalTurns != 1 {
		t.Errorf("轮次总数 = %d, 期望 1", stats.TotalTurns)
	}
	if stats.DBSizeBytes <= 0 {
		t.Errorf("数据库大小 = %d, 期望为正", stats.DBSizeBytes)
	}
}
