package emergency

import (
	"fmt"
	"regexp"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"
)

// Level 紧急级别，按优先级从高到低
type Level string

const (
	LevelCritical  Level = "critical"
	LevelUrgent    Level = "urgent"
	LevelAttention Level = "attention"
)

// scanOrder 检测时的扫描顺序，高级别优先，命中即停
var scanOrder = []Level{LevelCritical, LevelUrgent, LevelAttention}

// Action 建议行动
type Action struct {
	Action      string `json:"action"`
	Urgency     string `json:"urgency"`
	Description string `json:"description"`
}

// Result 检测结果，每次调用新建，由调度层立即消费
type Result struct {
	Detected        bool     `json:"detected"`
	Level           Level    `json:"level"`
	MatchedPatterns []string `json:"matchedPatterns"`
	Description     string   `json:"description"`
	SuggestedAction Action   `json:"suggestedAction"`
	Symptoms        []string `json:"symptoms"`
}

// PatternGroup 外部知识库中的一组紧急模式
type PatternGroup struct {
	Patterns    []string `json:"patterns"`
	Description string   `json:"description"`
	Action      string   `json:"action"`
}

// 内置紧急模式
var defaultPatterns = map[Level][]string{
	LevelCritical: {
		`(胸痛|心悸).+(呼吸困难|大汗|放射)`,
		`(意识|昏迷|晕厥|抽搐|癫痫)`,
		`呕血|便血|咳血|大出血`,
		`呼吸.{0,5}困难|呼吸.{0,5}急促|喘.{0,3}不`,
		`((剧烈|突发).{0,3}|雷击.{0,2})头痛|剧烈突发头痛`,
		`板状.{0,2}腹|腹痛.{0,3}(冷汗|板状)|剧烈突发.{0,3}腹痛`,
		`窒息|气管.{0,3}堵塞|气道.{0,3}梗阻`,
	},
	LevelUrgent: {
		`(高烧|发热|体温).{0,3}(39度|39℃|39C|三天|3天)`,
		`(持续|严重|频繁).{0,3}(呕吐|腹泻)`,
		`剧烈.{0,3}腹痛|腹痛.{0,3}(剧烈|严重)`,
		`(外伤).{0,3}(出血|骨折|脱臼|受伤)`,
		`心悸.{0,3}胸闷|心跳.{0,3}快|心律.{0,3}不齐`,
		`(烧|烫)伤`,
	},
	LevelAttention: {
		`头痛.{0,10}(几天|一周|持续|反复)`,
		`头晕.{0,10}(几天|一周|持续|反复)`,
		`(体重|体形).{0,3}下降|消瘦`,
		`盗汗|低热|下午.{0,2}热`,
		`食欲.{0,3}不振|乏力.{0,3}明显`,
	},
}

// 各级别默认建议行动
var defaultActions = map[Level]Action{
	LevelCritical: {
		Action:      "call_120",
		Urgency:     "immediate",
		Description: "请立即停止活动，保持镇静，立即拨打120急救电话",
	},
	LevelUrgent: {
		Action:      "visit_today",
		Urgency:     "same_day",
		Description: "请于今天内前往医院就诊，不要延误",
	},
	LevelAttention: {
		Action:      "monitor",
		Urgency:     "monitor",
		Description: "建议您尽快就医检查，同时密切观察症状变化",
	},
}

var levelDescriptions = map[Level]string{
	LevelCritical:  "检测到需要立即处理的紧急情况！",
	LevelUrgent:    "检测到需要当天就医的情况！",
	LevelAttention: "检测到需要关注的健康问题！",
}

// 症状关键词库
var symptomKeywords = []string{
	"胸痛", "头痛", "腹痛", "呼吸困难", "昏迷", "晕厥",
	"抽搐", "呕血", "便血", "咳血", "高烧", "发热",
	"呕吐", "腹泻", "心悸", "外伤", "骨折", "出血",
}

var cjkRun = regexp.MustCompile(`[\x{4e00}-\x{9fff}]+`)

// tierSet 一次编译完成的只读模式集。
// 热更新时整体重建后原子替换，进行中的检测不受影响。
type tierSet struct {
	compiled map[Level][]*regexp.Regexp
	raw      map[Level][]string
	kbGroups map[Level][]PatternGroup
}

// Detector 紧急症状检测器
type Detector struct {
	current atomic.Pointer[tierSet]
	logger  *zap.Logger
}

// NewDetector 创建紧急症状检测器（仅内置模式）
func NewDetector(logger *zap.Logger) (*Detector, error) {
	d := &Detector{logger: logger}
	set, err := buildTierSet(nil, logger)
	if err != nil {
		return nil, err
	}
	d.current.Store(set)
	return d, nil
}

// ReloadPatterns 重建模式集并原子发布。
// overrides 中出现的级别整体替换内置模式，未出现的级别保持内置。
// 重建失败时保留上一份可用模式集。
func (d *Detector) ReloadPatterns(overrides map[Level][]PatternGroup) error {
	set, err := buildTierSet(overrides, d.logger)
	if err != nil {
		return fmt.Errorf("重建紧急模式失败: %w", err)
	}
	d.current.Store(set)
	d.logger.Info("紧急模式已重载",
		zap.Int("critical", len(set.compiled[LevelCritical])),
		zap.Int("urgent", len(set.compiled[LevelUrgent])),
		zap.Int("attention", len(set.compiled[LevelAttention])))
	return nil
}

func buildTierSet(overrides map[Level][]PatternGroup, logger *zap.Logger) (*tierSet, error) {
	set := &tierSet{
		compiled: make(map[Level][]*regexp.Regexp, len(scanOrder)),
		raw:      make(map[Level][]string, len(scanOrder)),
		kbGroups: make(map[Level][]PatternGroup, len(overrides)),
	}

	for _, level := range scanOrder {
		patterns := defaultPatterns[level]
		overridden := false
		if groups, ok := overrides[level]; ok && len(groups) > 0 {
			patterns = nil
			for _, g := range groups {
				patterns = append(patterns, g.Patterns...)
			}
			set.kbGroups[level] = groups
			overridden = true
		}

		for _, p := range patterns {
			re, err := regexp.Compile("(?i)" + p)
			if err != nil {
				if !overridden {
					// 内置模式编译失败属于程序错误
					return nil, fmt.Errorf("编译内置模式失败 %q: %w", p, err)
				}
				if logger != nil {
					logger.Warn("跳过无效的外部紧急模式",
						zap.String("pattern", p),
						zap.Error(err))
				}
				continue
			}
			set.compiled[level] = append(set.compiled[level], re)
			set.raw[level] = append(set.raw[level], p)
		}
	}

	return set, nil
}

// Detect 检测文本中的紧急症状。
// 按 critical → urgent → attention 的顺序扫描，命中的最高级别立即返回，
// 低级别不再评估。空文本或无命中返回 nil，从不报错。
func (d *Detector) Detect(text string) *Result {
	if text == "" {
		return nil
	}

	set := d.current.Load()

	for _, level := range scanOrder {
		var matched []string
		for i, re := range set.compiled[level] {
			if re.MatchString(text) {
				matched = append(matched, set.raw[level][i])
			}
		}
		if len(matched) == 0 {
			continue
		}

		return &Result{
			Detected:        true,
			Level:           level,
			MatchedPatterns: matched,
			Description:     set.description(level, matched),
			SuggestedAction: set.action(level, matched),
			Symptoms:        extractSymptoms(text, matched),
		}
	}

	return nil
}

// DetectLevel 快速获取文本的紧急级别，非紧急返回空串
func (d *Detector) DetectLevel(text string) Level {
	if r := d.Detect(text); r != nil {
		return r.Level
	}
	return ""
}

// description 优先使用知识库中与命中模式对应的描述
func (s *tierSet) description(level Level, matched []string) string {
	for _, g := range s.kbGroups[level] {
		if g.Description == "" {
			continue
		}
		for _, p := range g.Patterns {
			for _, m := range matched {
				if strings.Contains(m, p) {
					return g.Description
				}
			}
		}
	}
	return levelDescriptions[level]
}

// action 优先使用知识库中与命中模式对应的建议，紧迫度保持级别默认
func (s *tierSet) action(level Level, matched []string) Action {
	base := defaultActions[level]
	for _, g := range s.kbGroups[level] {
		if g.Action == "" {
			continue
		}
		for _, p := range g.Patterns {
			for _, m := range matched {
				if strings.Contains(m, p) {
					return Action{
						Action:      "follow_advice",
						Urgency:     base.Urgency,
						Description: g.Action,
					}
				}
			}
		}
	}
	return base
}

// extractSymptoms 从文本提取症状词；无命中时退化为从模式字面量
// 中抽取中文词段。结果按首次出现顺序去重，最多 5 个。
func extractSymptoms(text string, matched []string) []string {
	var symptoms []string
	seen := make(map[string]bool)

	for _, keyword := range symptomKeywords {
		if strings.Contains(text, keyword) && !seen[keyword] {
			symptoms = append(symptoms, keyword)
			seen[keyword] = true
		}
	}

	if len(symptoms) == 0 {
		for _, p := range matched {
			words := cjkRun.FindAllString(p, -1)
			if len(words) > 3 {
				words = words[:3]
			}
			for _, w := range words {
				if !seen[w] {
					symptoms = append(symptoms, w)
					seen[w] = true
				}
			}
		}
	}

	if len(symptoms) > 5 {
		symptoms = symptoms[:5]
	}
	return symptoms
}

// FormatEmergencyMessage 渲染面向用户的紧急提醒消息
func FormatEmergencyMessage(result *Result) string {
	levelEmoji := map[Level]string{
		LevelCritical:  "🚨",
		LevelUrgent:    "⚠️",
		LevelAttention: "ℹ️",
	}

	emoji, ok := levelEmoji[result.Level]
	if !ok {
		emoji = "⚠️"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s **紧急提醒**\n\n", emoji)
	fmt.Fprintf(&b, "**描述**: %s\n\n", result.Description)

	if len(result.Symptoms) > 0 {
		fmt.Fprintf(&b, "**检测到的症状**: %s\n\n", strings.Join(result.Symptoms, ", "))
	}

	fmt.Fprintf(&b, "**建议行动**: %s\n\n", result.SuggestedAction.Description)

	switch result.Level {
	case LevelCritical:
		b.WriteString("\n---\n\n")
		b.WriteString("> 📞 **请立即拨打 120 急救电话**\n")
		b.WriteString("> 📍 请告知您的具体位置和患者情况\n")
		b.WriteString("> ⏱️ 在救护车到达前，请保持患者平静，避免移动")
	case LevelUrgent:
		b.WriteString("\n---\n\n")
		b.WriteString("> 🏥 请尽快前往最近的医院急诊科就诊\n")
		b.WriteString("> 👨‍⚕️ 如情况加重，请立即拨打120")
	case LevelAttention:
		b.WriteString("\n---\n\n")
		b.WriteString("> 📅 建议预约医生进行详细检查\n")
		b.WriteString("> 👀 请密切观察症状变化，如有加重请及时就医")
	}

	return b.String()
}
