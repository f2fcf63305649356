package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/emergency"
	"github.com/aitachi/medical-agent-sub000/internal/safety"
	"go.uber.org/zap"
)

// externalKB 外部知识库文件结构
type externalKB struct {
	Version           string                              `json:"version"`
	Symptoms          map[string]SymptomInfo              `json:"symptoms"`
	Drugs             map[string]DrugEntry                `json:"drugs"`
	Departments       map[string]DepartmentInfo           `json:"departments"`
	Synonyms          map[string][]string                 `json:"synonyms"`
	EmergencyPatterns map[string][]emergency.PatternGroup `json:"emergency_patterns"`
	DrugSafety        map[string]safety.DrugInfo          `json:"drug_safety"`
	DrugInteractions  map[string][]safety.InteractionEntry `json:"drug_interactions"`
	DiseasePrevention map[string]PreventionInfo           `json:"disease_prevention"`
	FoodRestrictions  map[string][]string                 `json:"food_restrictions"`
}

// Match 查询匹配信息
type Match struct {
	Found         bool     `json:"found"`
	CanonicalName string   `json:"canonicalName,omitempty"`
	MatchType     string   `json:"matchType,omitempty"` // exact, alias, english_name, fuzzy
	Suggestions   []string `json:"suggestions,omitempty"`
}

// DeptRecommendation 科室推荐结果
type DeptRecommendation struct {
	Department  string `json:"department"`
	Symptom     string `json:"symptom"`
	Description string `json:"description,omitempty"`
}

// Stats 知识库统计
type Stats struct {
	Version           string    `json:"version"`
	Loaded            bool      `json:"loaded"`
	LoadTime          time.Time `json:"loadTime,omitempty"`
	Symptoms          int       `json:"symptoms"`
	Drugs             int       `json:"drugs"`
	Departments       int       `json:"departments"`
	Prevention        int       `json:"prevention"`
	EmergencyPatterns int       `json:"emergencyPatterns"`
}

// Service 医疗知识库服务。
// 内置表提供兜底数据，外部 JSON 知识库按名覆盖或追加；
// 查询顺序固定：精确 → 别名/英文名 → 双向子串模糊匹配。
type Service struct {
	mu       sync.RWMutex
	path     string
	loaded   bool
	loadTime time.Time
	version  string

	symptoms        map[string]SymptomInfo
	symptomNames    []string
	diseases        map[string]DiseaseInfo
	diseaseNames    []string
	drugs           map[string]DrugEntry
	drugNames       []string
	departments     map[string]DepartmentInfo
	departmentNames []string
	synonyms        map[string][]string

	emergencyOverrides map[emergency.Level][]emergency.PatternGroup
	safetyDrugs        map[string]safety.DrugInfo
	safetyInteractions map[string][]safety.InteractionEntry

	prevention       map[string]PreventionInfo
	preventionNames  []string
	restrictions     map[string][]string
	restrictionNames []string

	logger *zap.Logger
}

// NewService 创建知识库服务，仅装载内置数据；外部知识库由 Load 加载
func NewService(path string, logger *zap.Logger) *Service {
	s := &Service{
		path:   path,
		logger: logger,
	}
	s.resetToBuiltin()
	return s
}

// resetToBuiltin 重建内置视图，调用方需持有写锁（或处于构造期）
func (s *Service) resetToBuiltin() {
	s.symptoms = make(map[string]SymptomInfo, len(builtinSymptoms))
	s.symptomNames = append([]string(nil), builtinSymptomOrder...)
	for name, info := range builtinSymptoms {
		s.symptoms[name] = info
	}

	s.diseases = make(map[string]DiseaseInfo, len(builtinDiseases))
	s.diseaseNames = []string{"高血压", "糖尿病"}
	for name, info := range builtinDiseases {
		s.diseases[name] = info
	}

	s.drugs = make(map[string]DrugEntry, len(builtinDrugs))
	s.drugNames = append([]string(nil), builtinDrugOrder...)
	for name, entry := range builtinDrugs {
		s.drugs[name] = entry
	}

	s.departments = make(map[string]DepartmentInfo, len(builtinDepartments))
	s.departmentNames = append([]string(nil), builtinDepartmentOrder...)
	for name, info := range builtinDepartments {
		s.departments[name] = info
	}

	s.synonyms = make(map[string][]string)

	s.emergencyOverrides = nil
	s.safetyDrugs = nil
	s.safetyInteractions = nil

	s.prevention = make(map[string]PreventionInfo, len(diseasePrevention))
	s.preventionNames = append([]string(nil), diseasePreventionOrder...)
	for name, info := range diseasePrevention {
		s.prevention[name] = info
	}

	s.restrictions = make(map[string][]string, len(foodRestrictions))
	s.restrictionNames = append([]string(nil), foodRestrictionOrder...)
	for name, items := range foodRestrictions {
		s.restrictions[name] = items
	}
}

// Load 加载外部知识库。文件不存在时仅告警，服务以内置数据运行。
func (s *Service) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			if s.logger != nil {
				s.logger.Warn("知识库文件不存在，使用内置数据", zap.String("path", s.path))
			}
			return nil
		}
		return fmt.Errorf("读取知识库文件失败: %w", err)
	}

	var kb externalKB
	if err := json.Unmarshal(data, &kb); err != nil {
		return fmt.Errorf("解析知识库文件失败: %w", err)
	}

	s.resetToBuiltin()
	s.mergeExternal(&kb)

	s.loaded = true
	s.loadTime = time.Now()
	s.version = kb.Version
	if s.version == "" {
		s.version = "unknown"
	}

	if s.logger != nil {
		s.logger.Info("知识库已加载",
			zap.String("path", s.path),
			zap.String("version", s.version),
			zap.Int("symptoms", len(s.symptoms)),
			zap.Int("drugs", len(s.drugs)),
			zap.Int("departments", len(s.departments)))
	}
	return nil
}

// Reload 重新加载外部知识库
func (s *Service) Reload() error {
	return s.Load()
}

// mergeExternal 合并外部数据：已有条目覆盖，新增条目按名称排序追加
func (s *Service) mergeExternal(kb *externalKB) {
	s.symptomNames = mergeNamed(s.symptoms, s.symptomNames, kb.Symptoms)
	s.drugNames = mergeNamed(s.drugs, s.drugNames, kb.Drugs)
	s.departmentNames = mergeNamed(s.departments, s.departmentNames, kb.Departments)
	s.preventionNames = mergeNamed(s.prevention, s.preventionNames, kb.DiseasePrevention)
	s.restrictionNames = mergeNamed(s.restrictions, s.restrictionNames, kb.FoodRestrictions)

	for term, list := range kb.Synonyms {
		s.synonyms[term] = list
	}

	if len(kb.EmergencyPatterns) > 0 {
		s.emergencyOverrides = make(map[emergency.Level][]emergency.PatternGroup)
		for label, groups := range kb.EmergencyPatterns {
			level := emergency.Level(label)
			switch level {
			case emergency.LevelCritical, emergency.LevelUrgent, emergency.LevelAttention:
				s.emergencyOverrides[level] = groups
			default:
				if s.logger != nil {
					s.logger.Warn("忽略未知的紧急级别", zap.String("level", label))
				}
			}
		}
	}

	s.safetyDrugs = kb.DrugSafety
	s.safetyInteractions = kb.DrugInteractions
}

// mergeNamed 覆盖同名条目，新名称排序后追加，保持既有顺序稳定
func mergeNamed[V any](dst map[string]V, order []string, src map[string]V) []string {
	var added []string
	for name, value := range src {
		if _, exists := dst[name]; !exists {
			added = append(added, name)
		}
		dst[name] = value
	}
	sort.Strings(added)
	return append(order, added...)
}

// Loaded 外部知识库是否已加载
func (s *Service) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// Version 外部知识库版本
func (s *Service) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// QuerySymptom 查询症状：精确 → 别名 → 模糊
func (s *Service) QuerySymptom(name string) (SymptomInfo, Match) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if info, ok := s.symptoms[name]; ok {
		return info, Match{Found: true, CanonicalName: name, MatchType: "exact"}
	}

	for _, canonical := range s.symptomNames {
		for _, alias := range s.symptoms[canonical].Aliases {
			if alias == name {
				return s.symptoms[canonical], Match{Found: true, CanonicalName: canonical, MatchType: "alias"}
			}
		}
	}

	var matches []string
	for _, canonical := range s.symptomNames {
		if containsEither(canonical, name) {
			matches = append(matches, canonical)
			continue
		}
		for _, alias := range s.symptoms[canonical].Aliases {
			if containsEither(alias, name) {
				matches = append(matches, canonical)
				break
			}
		}
	}
	if len(matches) > 0 {
		return s.symptoms[matches[0]], Match{
			Found:         true,
			CanonicalName: matches[0],
			MatchType:     "fuzzy",
			Suggestions:   capList(matches[1:], 4),
		}
	}

	return SymptomInfo{}, Match{Found: false, Suggestions: capList(s.symptomNames, 10)}
}

// QueryDisease 查询疾病知识
func (s *Service) QueryDisease(name string) (DiseaseInfo, Match) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if info, ok := s.diseases[name]; ok {
		return info, Match{Found: true, CanonicalName: name, MatchType: "exact"}
	}
	for _, canonical := range s.diseaseNames {
		if containsEither(canonical, name) {
			return s.diseases[canonical], Match{Found: true, CanonicalName: canonical, MatchType: "fuzzy"}
		}
	}
	return DiseaseInfo{}, Match{Found: false, Suggestions: capList(s.diseaseNames, 10)}
}

// QueryDrug 查询药品：精确 → 英文名 → 模糊
func (s *Service) QueryDrug(name string) (DrugEntry, Match) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entry, ok := s.drugs[name]; ok {
		return entry, Match{Found: true, CanonicalName: name, MatchType: "exact"}
	}

	lower := strings.ToLower(name)
	for _, canonical := range s.drugNames {
		if english := s.drugs[canonical].EnglishName; english != "" && strings.ToLower(english) == lower {
			return s.drugs[canonical], Match{Found: true, CanonicalName: canonical, MatchType: "english_name"}
		}
	}

	var matches []string
	for _, canonical := range s.drugNames {
		if containsEither(canonical, name) {
			matches = append(matches, canonical)
		}
	}
	if len(matches) > 0 {
		return s.drugs[matches[0]], Match{
			Found:         true,
			CanonicalName: matches[0],
			MatchType:     "fuzzy",
			Suggestions:   capList(matches[1:], 4),
		}
	}

	return DrugEntry{}, Match{Found: false, Suggestions: capList(s.drugNames, 10)}
}

// QueryDepartment 查询科室：精确 → 科室名/子科室模糊
func (s *Service) QueryDepartment(name string) (DepartmentInfo, Match) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if info, ok := s.departments[name]; ok {
		return info, Match{Found: true, CanonicalName: name, MatchType: "exact"}
	}

	var matches []string
	for _, canonical := range s.departmentNames {
		if containsEither(canonical, name) {
			matches = append(matches, canonical)
			continue
		}
		for _, sub := range s.departments[canonical].SubDepartments {
			if containsEither(sub, name) {
				matches = append(matches, canonical)
				break
			}
		}
	}
	if len(matches) > 0 {
		return s.departments[matches[0]], Match{
			Found:         true,
			CanonicalName: matches[0],
			MatchType:     "fuzzy",
			Suggestions:   capList(matches[1:], 2),
		}
	}

	return DepartmentInfo{}, Match{Found: false, Suggestions: capList(s.departmentNames, 10)}
}

// DepartmentBySymptom 根据症状推荐科室。
// 先扫描科室的常见症状表，再补充症状科室映射表中未覆盖的科室。
func (s *Service) DepartmentBySymptom(symptom string) []DeptRecommendation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var recs []DeptRecommendation
	recommended := make(map[string]bool)

	for _, name := range s.departmentNames {
		info := s.departments[name]
		for _, common := range info.CommonSymptoms {
			if containsEither(common, symptom) {
				recs = append(recs, DeptRecommendation{
					Department:  name,
					Symptom:     common,
					Description: info.Description,
				})
				recommended[name] = true
				break
			}
		}
	}

	for _, entry := range symptomDepartmentMap {
		if !containsEither(entry.Symptom, symptom) {
			continue
		}
		if recommended[entry.Department] {
			continue
		}
		recs = append(recs, DeptRecommendation{
			Department: entry.Department,
			Symptom:    entry.Symptom,
		})
		recommended[entry.Department] = true
	}

	return recs
}

// AllDepartments 返回科室名称列表
func (s *Service) AllDepartments() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.departmentNames...)
}

// Department 按名取科室详情
func (s *Service) Department(name string) (DepartmentInfo, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	info, ok := s.departments[name]
	return info, ok
}

// DiseasePrevention 查询疾病预防知识，双向子串模糊匹配
func (s *Service) DiseasePrevention(topic string) (PreventionInfo, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, canonical := range s.preventionNames {
		if containsEither(canonical, topic) {
			return s.prevention[canonical], canonical, true
		}
	}
	return PreventionInfo{}, "", false
}

// FoodRestrictions 查询饮食禁忌，双向子串模糊匹配
func (s *Service) FoodRestrictions(condition string) ([]string, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, canonical := range s.restrictionNames {
		if containsEither(canonical, condition) {
			return s.restrictions[canonical], canonical, true
		}
	}
	return nil, "", false
}

// RestrictionConditions 返回有饮食禁忌记录的疾病列表
func (s *Service) RestrictionConditions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.restrictionNames...)
}

// Synonyms 查询同义词。词条为主词时返回其同义词；
// 词条为同义词时返回主词及其余同义词。
func (s *Service) Synonyms(term string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if list, ok := s.synonyms[term]; ok {
		return append([]string(nil), list...)
	}

	mains := make([]string, 0, len(s.synonyms))
	for main := range s.synonyms {
		mains = append(mains, main)
	}
	sort.Strings(mains)

	for _, main := range mains {
		for _, syn := range s.synonyms[main] {
			if syn != term {
				continue
			}
			result := []string{main}
			for _, other := range s.synonyms[main] {
				if other != term {
					result = append(result, other)
				}
			}
			return result
		}
	}
	return nil
}

// Search 按关键词搜索各类别，每类最多返回 10 条
func (s *Service) Search(keyword string, categories []string) map[string][]string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(categories) == 0 {
		categories = []string{"symptoms", "drugs", "departments"}
	}

	results := make(map[string][]string, len(categories))
	for _, category := range categories {
		var names []string
		switch category {
		case "symptoms":
			names = s.symptomNames
		case "drugs":
			names = s.drugNames
		case "departments":
			names = s.departmentNames
		default:
			continue
		}

		var matches []string
		for _, name := range names {
			if strings.Contains(name, keyword) {
				matches = append(matches, name)
			}
		}
		results[category] = capList(matches, 10)
	}
	return results
}

// EmergencyOverrides 返回外部知识库定义的紧急模式覆盖
func (s *Service) EmergencyOverrides() map[emergency.Level][]emergency.PatternGroup {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.emergencyOverrides
}

// SafetyData 返回外部知识库中的药物安全数据与相互作用记录
func (s *Service) SafetyData() (map[string]safety.DrugInfo, map[string][]safety.InteractionEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.safetyDrugs, s.safetyInteractions
}

// GetStats 返回知识库统计信息
func (s *Service) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	patterns := 0
	for _, groups := range s.emergencyOverrides {
		patterns += len(groups)
	}

	return Stats{
		Version:           s.version,
		Loaded:            s.loaded,
		LoadTime:          s.loadTime,
		Symptoms:          len(s.symptoms),
		Drugs:             len(s.drugs),
		Departments:       len(s.departments),
		Prevention:        len(s.prevention),
		EmergencyPatterns: patterns,
	}
}

func containsEither(a, b string) bool {
	if a == "" || b == "" {
		return false
	}
	return strings.Contains(a, b) || strings.Contains(b, a)
}

func capList(items []string, n int) []string {
	if len(items) <= n {
		return append([]string(nil), items...)
	}
	return append([]string(nil), items[:n]...)
}
