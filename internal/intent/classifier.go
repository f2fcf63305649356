package intent

import (
	"context"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/aitachi/medical-agent-sub000/internal/config"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"go.uber.org/zap"
)

// Prediction 统计分类器的单条预测
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Predictor 统计分类器预测接口，实现方可缺席（仅用规则）
type Predictor interface {
	PredictTopK(ctx context.Context, text string, k int) ([]Prediction, error)
}

// Classifier 意图分类器。
// 统计分类优先，失败或缺席时降级到规则打分；Classify 不返回错误，
// 任何异常都归于 unknown 或规则结果。
type Classifier struct {
	cfg       config.IntentConfig
	predictor Predictor
	logger    *zap.Logger
}

// NewClassifier 创建意图分类器，predictor 为 nil 时仅使用规则
func NewClassifier(cfg config.IntentConfig, predictor Predictor, logger *zap.Logger) *Classifier {
	return &Classifier{
		cfg:       cfg,
		predictor: predictor,
		logger:    logger,
	}
}

// Mode 返回当前分类模式
func (c *Classifier) Mode() string {
	if c.predictor != nil {
		return "hybrid"
	}
	return "rule"
}

// Classify 分类用户意图。
// 顺序：问候 → 否定检测 → 无意义输入 → 统计分类 → 规则打分。
func (c *Classifier) Classify(ctx context.Context, text string, dctx *model.DialogueContext) model.IntentResult {
	text = strings.TrimSpace(text)
	if text == "" {
		return clarifyUnknown()
	}

	// 问候语优先级最高
	lower := strings.ToLower(text)
	for _, greeting := range greetings {
		if strings.Contains(lower, greeting) {
			return model.IntentResult{
				Intent:      model.IntentGreeting,
				Confidence:  0.95,
				TargetSkill: SkillForIntent(model.IntentGreeting),
			}
		}
	}

	// 否定句不计症状得分，其余意图照常参与
	negated := false
	for _, p := range negationPatterns {
		if p.MatchString(text) {
			negated = true
			break
		}
	}

	runes := utf8.RuneCountInString(text)

	// 重复字符等无意义输入：字符种类极少且大量重复
	if unique := uniqueRunes(text); runes < 20 && unique <= 3 && runes >= unique*3 {
		return unknownResult(0)
	}

	// 显式健康声明独立于意图提取，附在任一阶段的识别结果上
	decls := extractDeclarations(text)

	// 统计分类优先；否定句与极短输入直接走规则
	if c.predictor != nil && !negated && runes >= 3 {
		if result, ok := c.classifyWithML(ctx, text); ok {
			return withDeclarations(result, decls)
		}
	}

	return withDeclarations(c.classifyWithRules(text, dctx, negated), decls)
}

// withDeclarations 把显式健康声明并入识别结果。
// 常规意图带着声明一起返回；规则无法归类或需澄清的纯声明
// （如“我有高血压病史”）转入健康档案意图，由档案技能应答。
func withDeclarations(r model.IntentResult, decls map[string]string) model.IntentResult {
	if len(decls) == 0 {
		return r
	}
	if r.Intent == model.IntentUnknown || r.RequiresClarification {
		return model.IntentResult{
			Intent:      model.IntentRecords,
			Confidence:  0.85,
			TargetSkill: SkillForIntent(model.IntentRecords),
			Entities:    model.Entities{Action: "records", Other: decls},
		}
	}
	if r.Entities.Other == nil {
		r.Entities.Other = decls
		return r
	}
	for k, v := range decls {
		r.Entities.Other[k] = v
	}
	return r
}

// classifyWithML 统计分类。失败时返回 ok=false，由调用方降级到规则。
func (c *Classifier) classifyWithML(ctx context.Context, text string) (model.IntentResult, bool) {
	preds, err := c.predictor.PredictTopK(ctx, text, 3)
	if err != nil || len(preds) == 0 {
		if c.logger != nil {
			c.logger.Warn("统计分类失败，降级到规则分类", zap.Error(err))
		}
		return model.IntentResult{}, false
	}

	intent := model.ParseIntent(preds[0].Label)
	confidence := preds[0].Confidence

	// 标签不在枚举内视为模型异常，交给规则分类
	if intent == model.IntentUnknown && preds[0].Label != string(model.IntentUnknown) {
		if c.logger != nil {
			c.logger.Warn("统计分类返回未知标签，降级到规则分类", zap.String("label", preds[0].Label))
		}
		return model.IntentResult{}, false
	}

	// 低于兜底阈值一律归于 unknown
	if confidence < c.cfg.FallbackThreshold {
		return unknownResult(confidence), true
	}

	var alternatives []model.Alternative
	for _, p := range preds[1:] {
		alternatives = append(alternatives, model.Alternative{
			Intent:     model.ParseIntent(p.Label),
			Confidence: p.Confidence,
		})
	}

	if confidence < c.threshold(intent) {
		return model.IntentResult{
			Intent:                intent,
			Confidence:            confidence,
			TargetSkill:           SkillForIntent(intent),
			RequiresClarification: true,
			ClarificationQuestion: "您是想了解" + describeIntent(intent) + "相关的内容吗？",
			Alternatives:          alternatives,
		}, true
	}

	return model.IntentResult{
		Intent:       intent,
		Confidence:   confidence,
		TargetSkill:  SkillForIntent(intent),
		Entities:     extractEntities(text, intent),
		Alternatives: alternatives,
	}, true
}

// classifyWithRules 规则打分分类
func (c *Classifier) classifyWithRules(text string, dctx *model.DialogueContext, negated bool) model.IntentResult {
	scores := make(map[model.IntentType]float64)
	longest := make(map[model.IntentType]int)
	lower := strings.ToLower(text)

	// 1. 规则匹配：每条命中模式累加组权重，按组数归一化
	for _, intentType := range ruleOrder {
		if negated && intentType == model.IntentSymptomInquiry {
			continue
		}
		groups := intentRules[intentType]
		score := 0.0
		for _, g := range groups {
			for i, p := range g.patterns {
				if p.MatchString(text) {
					score += g.weight
					if n := len(g.raw[i]); n > longest[intentType] {
						longest[intentType] = n
					}
				}
			}
		}
		if score > 0 {
			normalized := score / float64(len(groups))
			if normalized > 1.0 {
				normalized = 1.0
			}
			scores[intentType] = normalized
		}
	}

	// 2. 关键词加分
	if !negated {
		for _, kw := range symptomKeywords {
			if strings.Contains(text, kw) {
				scores[model.IntentSymptomInquiry] += symptomBoost
			}
		}
		for _, eng := range englishSymptoms {
			if strings.Contains(lower, eng) {
				scores[model.IntentSymptomInquiry] += englishBoost
			}
		}
	}
	for _, kw := range drugKeywords {
		if strings.Contains(text, kw) {
			scores[model.IntentMedicationConsult] += drugBoost
		}
	}
	if medicationUsePattern.MatchString(text) {
		scores[model.IntentMedicationConsult] += medicationBoost
	}
	for _, kw := range departmentKeywords {
		if strings.Contains(text, kw) {
			scores[model.IntentDepartmentQuery] += departmentBoost
		}
	}
	for _, kw := range healthKeywords {
		if strings.Contains(text, kw) {
			scores[model.IntentHealthEducation] += healthBoost
		}
	}

	// 3. 上下文关联：症状/用药话题下的简短模糊追问延续上一轮意图。
	// 仅当上一轮意图与当前最高分差距不大（即本轮本身分类模糊）时加分，
	// 避免明确的新意图被历史意图覆盖。
	if c.cfg.EnableContextBoost && dctx != nil {
		last := dctx.LastIntent()
		if last == model.IntentSymptomInquiry || last == model.IntentMedicationConsult {
			if !(negated && last == model.IntentSymptomInquiry) &&
				utf8.RuneCountInString(text) < c.cfg.ShortTextLen {
				top := 0.0
				for _, s := range scores {
					if s > top {
						top = s
					}
				}
				if top-scores[last] <= c.cfg.ContextBoostDelta {
					scores[last] += c.cfg.ContextBoost
				}
			}
		}
	}

	if len(scores) == 0 {
		return clarifyUnknown()
	}

	// 4. 选择最高分，同分取命中模式更长者
	var best model.IntentType
	bestScore := -1.0
	for _, intentType := range ruleOrder {
		score, ok := scores[intentType]
		if !ok {
			continue
		}
		if score > bestScore || (score == bestScore && longest[intentType] > longest[best]) {
			best = intentType
			bestScore = score
		}
	}
	if bestScore > 1.0 {
		bestScore = 1.0
	}

	// 5. 置信度门控
	if bestScore < c.cfg.FallbackThreshold {
		return unknownResult(bestScore)
	}
	if bestScore < c.threshold(best) {
		return model.IntentResult{
			Intent:                best,
			Confidence:            bestScore,
			TargetSkill:           SkillForIntent(best),
			RequiresClarification: true,
			ClarificationQuestion: "您是想了解" + describeIntent(best) + "相关的内容吗？",
			Alternatives:          topAlternatives(scores, "", 3),
		}
	}

	return model.IntentResult{
		Intent:       best,
		Confidence:   bestScore,
		TargetSkill:  SkillForIntent(best),
		Entities:     extractEntities(text, best),
		Alternatives: topAlternatives(scores, best, 3),
	}
}

// threshold 返回意图的接受阈值，未配置的意图用默认阈值
func (c *Classifier) threshold(intent model.IntentType) float64 {
	if t, ok := intentThresholds[intent]; ok {
		return t
	}
	return c.cfg.ConfidenceThreshold
}

// topAlternatives 按得分取前 n 个意图后剔除已选意图，exclude 为空时保留全部
func topAlternatives(scores map[model.IntentType]float64, exclude model.IntentType, n int) []model.Alternative {
	type entry struct {
		intent model.IntentType
		score  float64
		order  int
	}
	var entries []entry
	for i, intentType := range ruleOrder {
		if score, ok := scores[intentType]; ok {
			entries = append(entries, entry{intentType, score, i})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].score != entries[j].score {
			return entries[i].score > entries[j].score
		}
		return entries[i].order < entries[j].order
	})
	if len(entries) > n {
		entries = entries[:n]
	}
	out := make([]model.Alternative, 0, len(entries))
	for _, e := range entries {
		if e.intent == exclude {
			continue
		}
		score := e.score
		if score > 1.0 {
			score = 1.0
		}
		out = append(out, model.Alternative{Intent: e.intent, Confidence: score})
	}
	return out
}

func unknownResult(confidence float64) model.IntentResult {
	return model.IntentResult{
		Intent:      model.IntentUnknown,
		Confidence:  confidence,
		TargetSkill: SkillForIntent(model.IntentUnknown),
	}
}

func clarifyUnknown() model.IntentResult {
	r := unknownResult(0)
	r.RequiresClarification = true
	r.ClarificationQuestion = "抱歉，我没有完全理解您的意思，可以换个说法吗？"
	return r
}

func uniqueRunes(text string) int {
	seen := make(map[rune]bool)
	for _, r := range text {
		seen[r] = true
	}
	return len(seen)
}
