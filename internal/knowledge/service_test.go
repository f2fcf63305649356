package knowledge

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"go.uber.org/zap"
)

const testKB = `{
  "version": "2.1",
  "symptoms": {
    "头痛": {
      "description": "外部知识库的头痛描述",
      "aliases": ["头疼", "脑壳痛"],
      "department": "神经内科"
    },
    "皮疹": {
      "description": "皮肤出现的异常改变",
      "department": "皮肤科"
    }
  },
  "drugs": {
    "氯雷他定": {
      "generic_name": "氯雷他定",
      "english_name": "Loratadine",
      "category": "抗组胺药"
    }
  },
  "synonyms": {
    "头痛": ["头疼", "脑壳痛"]
  },
  "emergency_patterns": {
    "critical": [
      {"patterns": ["中毒性休克"], "description": "外部严重模式", "action": "立即拨打120"}
    ],
    "bogus_level": [
      {"patterns": ["无效级别"], "description": "", "action": ""}
    ]
  },
  "drug_safety": {
    "氯雷他定": {"english_name": "Loratadine", "max_dose_daily": 10, "max_dose_single": 10}
  },
  "drug_interactions": {
    "moderate": [
      {"drugs": ["氯雷他定", "酮康唑"], "description": "升高氯雷他定血药浓度"}
    ]
  }
}`

func newBuiltinService(t *testing.T) *Service {
	t.Helper()
	return NewService(filepath.Join(t.TempDir(), "missing.json"), zap.NewNop())
}

func newLoadedService(t *testing.T) *Service {
	t.Helper()
	path := filepath.Join(t.TempDir(), "knowledge_base.json")
	if err := os.WriteFile(path, []byte(testKB), 0o644); err != nil {
		t.Fatalf("写入测试知识库失败: %v", err)
	}
	svc := NewService(path, zap.NewNop())
	if err := svc.Load(); err != nil {
		t.Fatalf("加载知识库失败: %v", err)
	}
	return svc
}

func TestLoadMissingFileFallsBackToBuiltin(t *testing.T) {
	svc := newBuiltinService(t)

	if err := svc.Load(); err != nil {
		t.Fatalf("文件缺失不应报错: %v", err)
	}
	if svc.Loaded() {
		t.Errorf("文件缺失时 Loaded 应为 false")
	}

	info, match := svc.QuerySymptom("头痛")
	if !match.Found || match.MatchType != "exact" {
		t.Fatalf("内置症状应可精确查询: %+v", match)
	}
	if info.Department != "神经内科" {
		t.Errorf("头痛推荐科室 = %s, 期望 神经内科", info.Department)
	}
}

func TestQuerySymptomMatchOrder(t *testing.T) {
	svc := newLoadedService(t)

	// 外部数据覆盖内置条目
	info, match := svc.QuerySymptom("头痛")
	if !match.Found || info.Description != "外部知识库的头痛描述" {
		t.Errorf("外部条目应覆盖内置条目: %+v", info)
	}

	// 别名匹配
	info, match = svc.QuerySymptom("头疼")
	if !match.Found || match.MatchType != "alias" || match.CanonicalName != "头痛" {
		t.Errorf("头疼应通过别名命中头痛: %+v", match)
	}

	// 模糊匹配
	_, match = svc.QuerySymptom("腹")
	if !match.Found || match.MatchType != "fuzzy" || match.CanonicalName != "腹痛" {
		t.Errorf("腹应模糊命中腹痛: %+v", match)
	}

	// 未命中带建议
	_, match = svc.QuerySymptom("完全不存在的症状")
	if match.Found {
		t.Errorf("不应命中")
	}
	if len(match.Suggestions) == 0 {
		t.Errorf("未命中时应返回候选列表")
	}
}

func TestQueryDrug(t *testing.T) {
	svc := newLoadedService(t)

	tests := []struct {
		name          string
		input         string
		wantCanonical string
		wantMatchType string
	}{
		{"精确匹配", "布洛芬", "布洛芬", "exact"},
		{"英文名匹配", "ibuprofen", "布洛芬", "english_name"},
		{"外部新增药品", "氯雷他定", "氯雷他定", "exact"},
		{"外部药品英文名", "Loratadine", "氯雷他定", "english_name"},
		{"模糊匹配", "阿莫西林胶囊", "阿莫西林", "fuzzy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, match := svc.QueryDrug(tt.input)
			if !match.Found {
				t.Fatalf("QueryDrug(%q) 未命中", tt.input)
			}
			if match.CanonicalName != tt.wantCanonical || match.MatchType != tt.wantMatchType {
				t.Errorf("QueryDrug(%q) = (%s, %s), 期望 (%s, %s)",
					tt.input, match.CanonicalName, match.MatchType, tt.wantCanonical, tt.wantMatchType)
			}
		})
	}
}

func TestQueryDepartment(t *testing.T) {
	svc := newBuiltinService(t)

	_, match := svc.QueryDepartment("内科")
	if !match.Found || match.MatchType != "exact" {
		t.Errorf("内科应精确命中: %+v", match)
	}

	_, match = svc.QueryDepartment("心血管内科")
	if !match.Found {
		t.Fatalf("心血管内科应通过子科室命中")
	}
	if match.CanonicalName != "内科" {
		t.Errorf("心血管内科应归入内科, 得到 %s", match.CanonicalName)
	}
}

func TestDepartmentBySymptom(t *testing.T) {
	svc := newBuiltinService(t)

	recs := svc.DepartmentBySymptom("头痛")
	if len(recs) == 0 {
		t.Fatalf("头痛应有科室推荐")
	}

	var depts []string
	for _, r := range recs {
		depts = append(depts, r.Department)
	}
	found := false
	for _, d := range depts {
		if d == "神经内科" {
			found = true
		}
	}
	if !found {
		t.Errorf("头痛推荐应包含神经内科: %v", depts)
	}

	if recs := svc.DepartmentBySymptom("不存在的症状"); len(recs) != 0 {
		t.Errorf("未知症状不应有推荐: %v", recs)
	}
}

func TestSynonyms(t *testing.T) {
	svc := newLoadedService(t)

	// 主词查询
	syns := svc.Synonyms("头痛")
	if len(syns) != 2 {
		t.Fatalf("头痛的同义词应有2个: %v", syns)
	}

	// 反向查询：同义词返回主词+其余同义词
	syns = svc.Synonyms("头疼")
	if len(syns) != 2 || syns[0] != "头痛" {
		t.Errorf("头疼的同义词应以主词开头: %v", syns)
	}

	if syns := svc.Synonyms("没有同义词"); len(syns) != 0 {
		t.Errorf("未收录词条应返回空: %v", syns)
	}
}

func TestSearch(t *testing.T) {
	svc := newBuiltinService(t)

	results := svc.Search("痛", nil)
	symptoms := results["symptoms"]
	if len(symptoms) != 3 {
		t.Fatalf("含痛的症状应有3个: %v", symptoms)
	}
	want := []string{"头痛", "腹痛", "胸痛"}
	for i, w := range want {
		if symptoms[i] != w {
			t.Errorf("symptoms[%d] = %s, 期望 %s", i, symptoms[i], w)
		}
	}

	results = svc.Search("洛", []string{"drugs"})
	if len(results["drugs"]) != 1 || results["drugs"][0] != "布洛芬" {
		t.Errorf("含洛的药品应为布洛芬: %v", results["drugs"])
	}
}

func TestEmergencyOverridesWiring(t *testing.T) {
	svc := newLoadedService(t)

	overrides := svc.EmergencyOverrides()
	if len(overrides[emergency.LevelCritical]) != 1 {
		t.Fatalf("应解析出1组critical覆盖: %+v", overrides)
	}
	if _, ok := overrides[emergency.Level("bogus_level")]; ok {
		t.Errorf("未知级别应被忽略")
	}

	detector, err := emergency.NewDetector(zap.NewNop())
	if err != nil {
		t.Fatalf("创建检测器失败: %v", err)
	}
	if err := detector.ReloadPatterns(overrides); err != nil {
		t.Fatalf("应用知识库覆盖失败: %v", err)
	}

	result := detector.Detect("患者疑似中毒性休克")
	if result == nil || result.Level != emergency.LevelCritical {
		t.Fatalf("外部严重模式应生效: %+v", result)
	}
	if result.Description != "外部严重模式" {
		t.Errorf("应使用外部描述, 得到 %s", result.Description)
	}
}

func TestSafetyData(t *testing.T) {
	svc := newLoadedService(t)

	drugs, interactions := svc.SafetyData()
	if _, ok := drugs["氯雷他定"]; !ok {
		t.Errorf("应包含外部药物安全数据: %v", drugs)
	}
	if len(interactions["moderate"]) != 1 {
		t.Errorf("应包含外部相互作用记录: %v", interactions)
	}
}

func TestDiseasePreventionAndRestrictions(t *testing.T) {
	svc := newBuiltinService(t)

	info, canonical, ok := svc.DiseasePrevention("高血压")
	if !ok || canonical != "高血压" {
		t.Fatalf("高血压预防知识应存在")
	}
	if len(info.Prevention.Diet) == 0 {
		t.Errorf("高血压预防应含饮食建议")
	}

	// 模糊匹配
	_, canonical, ok = svc.DiseasePrevention("心血管")
	if !ok || canonical != "心血管疾病" {
		t.Errorf("心血管应命中心血管疾病, 得到 %s", canonical)
	}

	items, canonical, ok := svc.FoodRestrictions("痛风")
	if !ok || canonical != "痛风" || len(items) != 5 {
		t.Errorf("痛风饮食禁忌应有5项: %v", items)
	}

	if _, _, ok := svc.FoodRestrictions("不存在"); ok {
		t.Errorf("未收录疾病不应命中")
	}
}

func TestGetStats(t *testing.T) {
	svc := newLoadedService(t)

	stats := svc.GetStats()
	if !stats.Loaded {
		t.Errorf("Loaded 应为 true")
	}
	if stats.Version != "2.1" {
		t.Errorf("Version = %s, 期望 2.1", stats.Version)
	}
	// 内置5个症状 + 外部新增皮疹（头痛为覆盖）
	if stats.Symptoms != 6 {
		t.Errorf("Symptoms = %d, 期望 6", stats.Symptoms)
	}
	// 内置6个药品 + 氯雷他定
	if stats.Drugs != 7 {
		t.Errorf("Drugs = %d, 期望 7", stats.Drugs)
	}
	if stats.EmergencyPatterns != 1 {
		t.Errorf("EmergencyPatterns = %d, 期望 1", stats.EmergencyPatterns)
	}
}

func TestReloadPicksUpChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "knowledge_base.json")
	if err := os.WriteFile(path, []byte(`{"version":"1.0"}`), 0o644); err != nil {
		t.Fatalf("写入失败: %v", err)
	}

	svc := NewService(path, zap.NewNop())
	if err := svc.Load(); err != nil {
		t.Fatalf("首次加载失败: %v", err)
	}
	if svc.Version() != "1.0" {
		t.Fatalf("Version = %s", svc.Version())
	}

	if err := os.WriteFile(path, []byte(testKB), 0o644); err != nil {
		t.Fatalf("覆盖写入失败: %v", err)
	}
	if err := svc.Reload(); err != nil {
		t.Fatalf("重载失败: %v", err)
	}
	if svc.Version() != "2.1" {
		t.Errorf("重载后 Version = %s, 期望 2.1", svc.Version())
	}
	if _, match := svc.QueryDrug("氯雷他定"); !match.Found {
		t.Errorf("重载后应包含新药品")
	}
}
