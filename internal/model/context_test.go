package model

import "testing"

func TestAddTurnNumbering(t *testing.T) {
	dctx := NewDialogueContext("s1", "u1")

	dctx.AddTurn("头痛", "建议休息", &IntentResult{Intent: IntentSymptomInquiry, Confidence: 0.9})
	dctx.AddTurn("谢谢", "不客气", &IntentResult{Intent: IntentGreeting, Confidence: 0.95})

	if dctx.TurnCount != 2 {
		t.Fatalf("轮次计数 = %d, 期望 2", dctx.TurnCount)
	}
	if dctx.History[0].Turn != 0 || dctx.History[1].Turn != 1 {
		t.Errorf("轮次编号 = %d, %d, 期望 0, 1", dctx.History[0].Turn, dctx.History[1].Turn)
	}
	if got := dctx.LastIntent(); got != IntentGreeting {
		t.Errorf("上一轮意图 = %s, 期望 %s", got, IntentGreeting)
	}
}

func TestLastIntentEmptyHistory(t *testing.T) {
	dctx := NewDialogueContext("s1", "u1")
	if got := dctx.LastIntent(); got != "" {
		t.Errorf("空历史的上一轮意图 = %q, 期望空串", got)
	}
}

func TestTrimHistory(t *testing.T) {
	dctx := NewDialogueContext("s1", "u1")
	for i := 0; i < 8; i++ {
		dctx.AddTurn("输入", "响应", nil)
	}

	dctx.TrimHistory(5)

	if len(dctx.History) != 5 {
		t.Fatalf("裁剪后历史长度 = %d, 期望 5", len(dctx.History))
	}
	// 保留的是最近的轮次
	if dctx.History[0].Turn != 3 {
		t.Errorf("裁剪后首轮编号 = %d, 期望 3", dctx.History[0].Turn)
	}
	if dctx.TurnCount != 8 {
		t.Errorf("裁剪不应改变轮次计数: %d", dctx.TurnCount)
	}
}

func TestCloneIsolatesHistory(t *testing.T) {
	dctx := NewDialogueContext("s1", "u1")
	dctx.AddTurn("头痛", "建议休息", &IntentResult{Intent: IntentSymptomInquiry})
	dctx.Metadata = map[string]string{"channel": "web"}

	snap := dctx.Clone()
	dctx.AddTurn("还在痛", "建议就医", &IntentResult{Intent: IntentSymptomInquiry})
	dctx.Metadata["channel"] = "ws"

	if len(snap.History) != 1 {
		t.Errorf("副本历史长度 = %d, 期望 1", len(snap.History))
	}
	if snap.Metadata["channel"] != "web" {
		t.Errorf("副本元数据被修改: %q", snap.Metadata["channel"])
	}
	if snap.SessionID != "s1" || snap.UserID != "u1" {
		t.Errorf("副本会话标识不一致: %s/%s", snap.SessionID, snap.UserID)
	}
}

func TestEntitiesMerge(t *testing.T) {
	old := Entities{Symptom: "头痛", Duration: "三天"}
	fresh := Entities{Symptom: "发热", DrugName: "布洛芬"}

	merged := old.Merge(fresh)

	if merged.Symptom != "发热" {
		t.Errorf("新症状应覆盖旧值: %q", merged.Symptom)
	}
	if merged.Duration != "三天" {
		t.Errorf("未更新的字段应保留: %q", merged.Duration)
	}
	if merged.DrugName != "布洛芬" {
		t.Errorf("新字段应并入: %q", merged.DrugName)
	}
	if old.Symptom != "头痛" {
		t.Errorf("Merge 不应修改原值: %q", old.Symptom)
	}
}

func TestEntitiesMergeOtherNotShared(t *testing.T) {
	old := Entities{Other: map[string]string{"a": "1"}}
	merged := old.Merge(Entities{Other: map[string]string{"b": "2"}})

	if merged.Other["a"] != "1" || merged.Other["b"] != "2" {
		t.Fatalf("Other 合并结果 = %v", merged.Other)
	}
	if _, ok := old.Other["b"]; ok {
		t.Errorf("Merge 不应写入原 Other 映射")
	}
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		label string
		want  IntentType
	}{
		{"symptom_inquiry", IntentSymptomInquiry},
		{"greeting", IntentGreeting},
		{"不存在的意图", IntentUnknown},
		{"", IntentUnknown},
	}
	for _, tt := range tests {
		if got := ParseIntent(tt.label); got != tt.want {
			t.Errorf("ParseIntent(%q) = %s, 期望 %s", tt.label, got, tt.want)
		}
	}
}
