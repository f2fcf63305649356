package safety

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// Severity 安全风险严重程度，数值越大越严重
type Severity int

const (
	SeveritySafe Severity = iota
	SeverityInfo
	SeverityLow
	SeverityModerate
	SeverityHigh
	SeverityCritical
)

// String 返回严重程度的字符串表示
func (s Severity) String() string {
	switch s {
	case SeveritySafe:
		return "safe"
	case SeverityInfo:
		return "info"
	case SeverityLow:
		return "low"
	case SeverityModerate:
		return "moderate"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

// MarshalJSON 按字符串标签序列化
func (s Severity) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON 从字符串标签反序列化
func (s *Severity) UnmarshalJSON(data []byte) error {
	var label string
	if err := json.Unmarshal(data, &label); err != nil {
		return err
	}
	*s = ParseSeverity(label)
	return nil
}

// ParseSeverity 解析严重程度标签，未知标签按低风险处理
func ParseSeverity(label string) Severity {
	switch label {
	case "safe":
		return SeveritySafe
	case "info":
		return SeverityInfo
	case "low":
		return SeverityLow
	case "moderate":
		return SeverityModerate
	case "high":
		return SeverityHigh
	case "critical":
		return SeverityCritical
	default:
		return SeverityLow
	}
}

// Warning 安全警告
type Warning struct {
	Type       string            `json:"type"` // duplicate, similar, interaction, allergy, allergy_cross, contraindication, dose, alcohol_interaction
	Severity   Severity          `json:"severity"`
	Message    string            `json:"message"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
}

// Report 安全检查报告，每次检查新建一份
type Report struct {
	Safe         bool      `json:"safe"`
	Warnings     []Warning `json:"warnings"`
	CheckedDrugs []string  `json:"checkedDrugs"`
	Timestamp    time.Time `json:"timestamp"`
}

// CriticalWarnings 返回严重级别警告
func (r *Report) CriticalWarnings() []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Severity == SeverityCritical {
			out = append(out, w)
		}
	}
	return out
}

// HighSeverityWarnings 返回高风险及以上警告
func (r *Report) HighSeverityWarnings() []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Severity >= SeverityHigh {
			out = append(out, w)
		}
	}
	return out
}

// Options 各项检查开关
type Options struct {
	CheckInteraction      bool
	CheckAllergy          bool
	CheckDose             bool
	CheckContraindication bool
}

// DefaultOptions 默认全部开启
func DefaultOptions() Options {
	return Options{
		CheckInteraction:      true,
		CheckAllergy:          true,
		CheckDose:             true,
		CheckContraindication: true,
	}
}

type severityEntry struct {
	Severity Severity
	Entry    InteractionEntry
}

var doseToken = regexp.MustCompile(`(?i)\d+(\.\d+)?\s*(mg|g|ml|片|粒)`)

// Checker 药物安全检查器。
// 检查重复用药、相互作用、过敏风险、禁忌症、剂量问题。
// 对非法输入不报错：未知药名原样通过，不产生警告。
type Checker struct {
	mu           sync.RWMutex
	drugs        map[string]DrugInfo
	drugOrder    []string
	interactions []severityEntry
	logger       *zap.Logger
}

// NewChecker 创建药物安全检查器（内置数据表）
func NewChecker(logger *zap.Logger) *Checker {
	c := &Checker{
		drugs:  make(map[string]DrugInfo, len(defaultDrugs)),
		logger: logger,
	}
	for _, name := range defaultDrugOrder {
		c.drugs[name] = defaultDrugs[name]
		c.drugOrder = append(c.drugOrder, name)
	}
	c.interactions = append(c.interactions, defaultInteractions...)
	return c
}

// MergeKnowledge 合并外部知识库数据。
// 数据表从内置默认值加最新知识库快照整体重建后替换，而非在现有表上追加，
// 因此每轮热重载都传入同一份知识库也不会让表无限增长或重复告警。
// 药物按名覆盖默认值，新药名按字典序排在默认顺序之后，模糊匹配结果保持确定。
func (c *Checker) MergeKnowledge(drugs map[string]DrugInfo, interactions map[string][]InteractionEntry) {
	rebuiltDrugs := make(map[string]DrugInfo, len(defaultDrugs)+len(drugs))
	order := make([]string, 0, len(defaultDrugOrder)+len(drugs))
	for _, name := range defaultDrugOrder {
		rebuiltDrugs[name] = defaultDrugs[name]
		order = append(order, name)
	}
	var extra []string
	for name, info := range drugs {
		if _, exists := rebuiltDrugs[name]; !exists {
			extra = append(extra, name)
		}
		rebuiltDrugs[name] = info
	}
	sort.Strings(extra)
	order = append(order, extra...)

	rebuiltInteractions := make([]severityEntry, 0, len(defaultInteractions)+len(interactions))
	rebuiltInteractions = append(rebuiltInteractions, defaultInteractions...)
	labels := make([]string, 0, len(interactions))
	for label := range interactions {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	for _, label := range labels {
		severity := ParseSeverity(label)
		for _, e := range interactions[label] {
			rebuiltInteractions = append(rebuiltInteractions, severityEntry{severity, e})
		}
	}

	c.mu.Lock()
	c.drugs = rebuiltDrugs
	c.drugOrder = order
	c.interactions = rebuiltInteractions
	c.mu.Unlock()

	if c.logger != nil {
		c.logger.Info("药物知识库已合并",
			zap.Int("drugs", len(rebuiltDrugs)),
			zap.Int("interactions", len(rebuiltInteractions)))
	}
}

// Check 执行全面的安全检查。
// 检查顺序固定：标准化 → 重复 → 相互作用 → 过敏 → 禁忌症 → 剂量。
// safe 当且仅当不存在 critical 级别警告。
func (c *Checker) Check(drugs []string, profile *model.UserProfile, opts Options) *Report {
	c.mu.RLock()
	defer c.mu.RUnlock()

	normalized := c.normalizeDrugNames(drugs)

	var warnings []Warning
	warnings = append(warnings, c.checkDuplicates(normalized)...)

	if opts.CheckInteraction {
		warnings = append(warnings, c.checkInteractions(normalized)...)
	}
	if opts.CheckAllergy && profile != nil {
		warnings = append(warnings, c.checkAllergies(normalized, profile)...)
	}
	if opts.CheckContraindication && profile != nil {
		warnings = append(warnings, c.checkContraindications(normalized, profile)...)
	}
	if opts.CheckDose && profile != nil {
		warnings = append(warnings, c.checkDoses(normalized, profile)...)
	}

	safe := true
	for _, w := range warnings {
		if w.Severity == SeverityCritical {
			safe = false
			break
		}
	}

	return &Report{
		Safe:         safe,
		Warnings:     warnings,
		CheckedDrugs: dedup(normalized),
		Timestamp:    time.Now(),
	}
}

// normalizeDrugNames 标准化药物名称：去除剂量信息后解析标准名
func (c *Checker) normalizeDrugNames(drugs []string) []string {
	normalized := make([]string, 0, len(drugs))
	for _, drug := range drugs {
		drug = strings.TrimSpace(drug)
		drug = strings.TrimSpace(doseToken.ReplaceAllString(drug, ""))
		if drug == "" {
			continue
		}
		normalized = append(normalized, c.findStandardName(drug))
	}
	return normalized
}

// findStandardName 解析标准药名：精确匹配 → 双向子串匹配 → 英文名匹配。
// 精确匹配优先；模糊匹配按注册顺序取第一个命中。未收录的药名原样返回。
func (c *Checker) findStandardName(name string) string {
	if _, ok := c.drugs[name]; ok {
		return name
	}

	for _, standard := range c.drugOrder {
		if strings.Contains(standard, name) || strings.Contains(name, standard) {
			return standard
		}
	}

	lower := strings.ToLower(name)
	for _, standard := range c.drugOrder {
		if english := c.drugs[standard].EnglishName; english != "" && strings.ToLower(english) == lower {
			return standard
		}
	}

	return name
}

// checkDuplicates 检查重复用药与同类药物
func (c *Checker) checkDuplicates(drugs []string) []Warning {
	var warnings []Warning

	seen := make(map[string]bool)
	var duplicates []string
	dupSeen := make(map[string]bool)
	for _, drug := range drugs {
		if seen[drug] && !dupSeen[drug] {
			duplicates = append(duplicates, drug)
			dupSeen[drug] = true
		}
		seen[drug] = true
	}

	if len(duplicates) > 0 {
		warnings = append(warnings, Warning{
			Type:       "duplicate",
			Severity:   SeverityHigh,
			Message:    fmt.Sprintf("检测到重复用药: %s", strings.Join(duplicates, ", ")),
			Details:    map[string]string{"drugs": strings.Join(duplicates, ",")},
			Suggestion: "请确认是否需要同时使用相同药物，避免过量",
		})
	}

	for _, pair := range findSimilarDrugs(dedup(drugs)) {
		warnings = append(warnings, Warning{
			Type:       "similar",
			Severity:   SeverityModerate,
			Message:    fmt.Sprintf("%s和%s属于同类药物，可能产生重复效果", pair[0], pair[1]),
			Details:    map[string]string{"drugs": pair[0] + "," + pair[1]},
			Suggestion: "请咨询医生或药师是否可以同时使用",
		})
	}

	return warnings
}

// findSimilarDrugs 在同类药物表内找出无序对
func findSimilarDrugs(drugs []string) [][2]string {
	var pairs [][2]string
	for _, class := range similarClasses {
		var inClass []string
		for _, member := range class {
			for _, d := range drugs {
				if d == member {
					inClass = append(inClass, d)
					break
				}
			}
		}
		for i := 0; i < len(inClass); i++ {
			for j := i + 1; j < len(inClass); j++ {
				pairs = append(pairs, [2]string{inClass[i], inClass[j]})
			}
		}
	}
	return pairs
}

// checkInteractions 检查药物相互作用。
// 一条记录中至少有两种不同成分被输入药物覆盖时告警；
// 匹配允许记录内药名为输入药名的子串。含酒精的记录跳过。
func (c *Checker) checkInteractions(drugs []string) []Warning {
	var warnings []Warning
	input := dedup(drugs)

	for _, se := range c.interactions {
		entry := se.Entry

		skip := false
		for _, d := range entry.Drugs {
			if d == "酒精" {
				skip = true
				break
			}
		}
		if skip {
			continue
		}

		var matched []string
		coveredEntryDrugs := 0
		for _, entryDrug := range entry.Drugs {
			hit := false
			for _, d := range input {
				if d == entryDrug || strings.Contains(d, entryDrug) {
					matched = appendUnique(matched, d)
					hit = true
				}
			}
			if hit {
				coveredEntryDrugs++
			}
		}

		if coveredEntryDrugs >= 2 {
			warnings = append(warnings, Warning{
				Type:     "interaction",
				Severity: se.Severity,
				Message:  fmt.Sprintf("药物相互作用警告: %s", strings.Join(matched, ", ")),
				Details: map[string]string{
					"drugs":       strings.Join(matched, ","),
					"interaction": entry.Description,
				},
				Suggestion: "请咨询医生或药师",
			})
		}
	}

	return warnings
}

// checkAllergies 检查过敏风险：直接过敏与交叉过敏均为严重级别
func (c *Checker) checkAllergies(drugs []string, profile *model.UserProfile) []Warning {
	if len(profile.Allergies) == 0 {
		return nil
	}

	var warnings []Warning
	for _, drug := range dedup(drugs) {
		if profile.HasAllergy(drug) {
			warnings = append(warnings, Warning{
				Type:       "allergy",
				Severity:   SeverityCritical,
				Message:    fmt.Sprintf("用户对%s过敏，禁用此药！", drug),
				Details:    map[string]string{"drug": drug, "allergen": drug},
				Suggestion: "请勿使用此药物，立即告知医生",
			})
		}

		for _, allergen := range c.drugs[drug].CommonAllergens {
			if profile.HasAllergy(allergen) {
				warnings = append(warnings, Warning{
					Type:       "allergy_cross",
					Severity:   SeverityCritical,
					Message:    fmt.Sprintf("可能对%s存在交叉过敏（对%s过敏）", drug, allergen),
					Details:    map[string]string{"drug": drug, "allergen": allergen},
					Suggestion: "请咨询医生或药师",
				})
			}
		}
	}

	return warnings
}

// checkContraindications 检查禁忌症：禁忌与病史/慢性病双向子串匹配
func (c *Checker) checkContraindications(drugs []string, profile *model.UserProfile) []Warning {
	conditions := profile.Conditions()
	if len(conditions) == 0 {
		return nil
	}

	var warnings []Warning
	for _, drug := range dedup(drugs) {
		for _, contraindication := range c.drugs[drug].Contraindications {
			ctLower := strings.ToLower(contraindication)
			for _, condition := range conditions {
				condLower := strings.ToLower(condition)
				if strings.Contains(condLower, ctLower) || strings.Contains(ctLower, condLower) {
					warnings = append(warnings, Warning{
						Type:     "contraindication",
						Severity: SeverityHigh,
						Message:  fmt.Sprintf("%s禁用于%s", drug, contraindication),
						Details: map[string]string{
							"drug":             drug,
							"contraindication": contraindication,
							"condition":        condition,
						},
						Suggestion: fmt.Sprintf("有%s的患者应避免使用%s", condition, drug),
					})
				}
			}
		}
	}

	return warnings
}

// checkDoses 检查剂量：超单次上限为高风险，超日上限为严重风险
func (c *Checker) checkDoses(drugs []string, profile *model.UserProfile) []Warning {
	if len(profile.CurrentMedications) == 0 {
		return nil
	}

	var warnings []Warning
	for _, drug := range dedup(drugs) {
		info, known := c.drugs[drug]
		if !known {
			continue
		}
		medication, taking := profile.CurrentMedications[drug]
		if !taking {
			continue
		}

		if info.MaxDoseSingle > 0 && medication.DoseSingleMG > info.MaxDoseSingle {
			warnings = append(warnings, Warning{
				Type:     "dose",
				Severity: SeverityHigh,
				Message:  fmt.Sprintf("%s单次剂量可能过高", drug),
				Details: map[string]string{
					"drug":            drug,
					"actual_dose":     fmt.Sprintf("%.0f", medication.DoseSingleMG),
					"max_dose_single": fmt.Sprintf("%.0f", info.MaxDoseSingle),
				},
				Suggestion: fmt.Sprintf("单次剂量不应超过%.0fmg", info.MaxDoseSingle),
			})
		}

		if info.MaxDoseDaily > 0 && medication.DoseDailyMG > info.MaxDoseDaily {
			warnings = append(warnings, Warning{
				Type:     "dose",
				Severity: SeverityCritical,
				Message:  fmt.Sprintf("%s日剂量超过安全上限！", drug),
				Details: map[string]string{
					"drug":           drug,
					"daily_dose":     fmt.Sprintf("%.0f", medication.DoseDailyMG),
					"max_dose_daily": fmt.Sprintf("%.0f", info.MaxDoseDaily),
				},
				Suggestion: fmt.Sprintf("日剂量不应超过%.0fmg", info.MaxDoseDaily),
			})
		}
	}

	return warnings
}

// CheckAlcoholInteraction 检查药物与酒精的相互作用
func (c *Checker) CheckAlcoholInteraction(drugs []string) []Warning {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var warnings []Warning
	for _, drug := range dedup(c.normalizeDrugNames(drugs)) {
		for _, ai := range alcoholInteractions {
			if strings.Contains(drug, ai.Drug) || strings.Contains(ai.Drug, drug) {
				warnings = append(warnings, Warning{
					Type:       "alcohol_interaction",
					Severity:   SeverityCritical,
					Message:    fmt.Sprintf("%s与酒精同用可能产生严重反应", drug),
					Details:    map[string]string{"drug": drug, "effect": ai.Effect},
					Suggestion: "用药期间及停药后7天内禁止饮酒",
				})
				break
			}
		}
	}
	return warnings
}

// FormatReport 格式化安全检查报告为用户可读文本。
// 警告按严重程度分组输出，末尾固定附带免责声明。
func FormatReport(report *Report) string {
	var lines []string

	if report.Safe {
		lines = append(lines, "✅ 用药安全检查通过，未发现严重问题。\n")
	} else {
		lines = append(lines, "⚠️ **用药安全检查发现以下问题**\n")
	}

	groups := []struct {
		severity Severity
		title    string
	}{
		{SeverityCritical, "🚨 **严重警告**"},
		{SeverityHigh, "⚠️ **高风险**"},
		{SeverityModerate, "⚡ **中度风险**"},
	}

	for _, g := range groups {
		var grouped []Warning
		for _, w := range report.Warnings {
			if w.Severity == g.severity {
				grouped = append(grouped, w)
			}
		}
		if len(grouped) == 0 {
			continue
		}
		lines = append(lines, g.title)
		for _, w := range grouped {
			lines = append(lines, fmt.Sprintf("- %s", w.Message))
			if w.Suggestion != "" {
				lines = append(lines, fmt.Sprintf("  建议: %s", w.Suggestion))
			}
		}
		lines = append(lines, "")
	}

	lines = append(lines, fmt.Sprintf("\n已检查药物: %s", strings.Join(report.CheckedDrugs, ", ")))
	lines = append(lines, "\n---\n")
	lines = append(lines, "> ⚠️ **免责声明**: 以上安全检查仅供参考，不能替代专业医疗建议。")
	lines = append(lines, "> 用药前请咨询医生或药师，严格按医嘱使用。")

	return strings.Join(lines, "\n")
}

func dedup(items []string) []string {
	seen := make(map[string]bool, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if !seen[item] {
			out = append(out, item)
			seen[item] = true
		}
	}
	return out
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}
