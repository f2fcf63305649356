package service

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// RewriteResult 查询重写结果
type RewriteResult struct {
	Original  string `json:"original"`
	Rewritten string `json:"rewritten"`
	Changed   bool   `json:"changed"`
	Reason    string `json:"reason,omitempty"`
}

// 错别字替换表。按序应用，长词在前避免被短词截胡（咋样 先于 咋）。
// 只收单义的口语别字，一词多义的不收，避免把正常词改坏。
var typoPairs = []struct{ typo, correct string }{
	{"啥子", "什么"},
	{"咋样", "怎么样"},
	{"咋", "怎么"},
	{"啥", "什么"},
	{"木有", "没有"},
}

// 混合问法中的症状关键词 → 规范症状名
var mixedSymptoms = []struct{ keyword, symptom string }{
	{"头痛", "头痛"},
	{"头疼", "头痛"},
	{"牙痛", "牙痛"},
	{"肚子痛", "腹痛"},
	{"胃痛", "胃痛"},
	{"发烧", "发热"},
	{"咳嗽", "咳嗽"},
	{"感冒", "感冒"},
}

// 过短输入的定向补全
var (
	shortSymptoms    = []string{"头痛", "头疼", "牙痛", "胃痛", "肚子痛", "发烧", "咳嗽"}
	shortDepartments = []string{"内科", "外科", "儿科"}
)

// QueryRewriter 规则查询重写器。
// 在意图识别前规整用户输入：纠正口语别字、明确"症状+挂号"的混合问法、
// 补全过短的省略表达。规则不命中时原样返回，不做兜底改写。
type QueryRewriter struct{}

// NewQueryRewriter 创建查询重写器
func NewQueryRewriter() *QueryRewriter {
	return &QueryRewriter{}
}

// Rewrite 重写用户输入，返回重写结果
func (r *QueryRewriter) Rewrite(text string) RewriteResult {
	original := text
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return RewriteResult{Original: original, Rewritten: original}
	}

	var reasons []string
	rewritten := trimmed

	corrected := false
	for _, p := range typoPairs {
		if strings.Contains(rewritten, p.typo) {
			rewritten = strings.ReplaceAll(rewritten, p.typo, p.correct)
			corrected = true
		}
	}
	if corrected {
		reasons = append(reasons, "错别字纠正")
	}

	switch {
	case hasDepartmentAsk(rewritten):
		// "头痛挂什么科" 这类混合问法统一改成标准的科室咨询句式
		for _, m := range mixedSymptoms {
			if strings.Contains(rewritten, m.keyword) {
				rewritten = fmt.Sprintf("我%s，请问应该挂什么科？", m.symptom)
				reasons = append(reasons, "混合意图明确化")
				break
			}
		}
	case utf8.RuneCountInString(trimmed) < 5:
		if expanded, ok := expandShort(trimmed); ok {
			rewritten = expanded
			reasons = append(reasons, "短输入补全")
		}
	}

	if len(reasons) == 0 {
		return RewriteResult{Original: original, Rewritten: original}
	}
	return RewriteResult{
		Original:  original,
		Rewritten: rewritten,
		Changed:   true,
		Reason:    strings.Join(reasons, "、"),
	}
}

func hasDepartmentAsk(text string) bool {
	return strings.Contains(text, "挂什么科") ||
		strings.Contains(text, "挂哪个科") ||
		strings.Contains(text, "看什么科")
}

// expandShort 补全过短输入。只补全能判断意图的输入，
// 判断不了的保持原样交给分类器（上一轮意图会参与打分）。
func expandShort(text string) (string, bool) {
	for _, s := range shortSymptoms {
		if text == s {
			return fmt.Sprintf("我%s，请问应该怎么办？", text), true
		}
	}
	for _, d := range shortDepartments {
		if text == d {
			return fmt.Sprintf("我想挂%s，请问看什么病？", text), true
		}
	}
	if text == "阿莫西林" {
		return "请问阿莫西林怎么吃？有什么注意事项？", true
	}
	return "", false
}
