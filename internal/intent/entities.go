package intent

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aitachi/medical-agent-sub000/internal/model"
)

var (
	durationPattern = regexp.MustCompile(`(\d+)(天|周|个月|小时|日)`)
	phonePattern    = regexp.MustCompile(`1[3-9]\d{9}`)
)

// 显式健康声明模式：病史、过敏原、在用药。命中结果进入 Other 桶，
// 由画像采集入档；咨询类提问不会触发这些模式
var (
	historyDeclPattern    = regexp.MustCompile(`(?:我|本人)(?:有|患有|得过|得了)([\p{Han}a-zA-Z0-9]{1,12}?)(?:病史|史)`)
	allergyDeclPattern    = regexp.MustCompile(`(?:我|本人)?对([\p{Han}a-zA-Z0-9]{1,12}?)(?:类药物|类)?过敏`)
	medicationDeclPattern = regexp.MustCompile(`(?:我|本人)(?:正在|长期|在)(?:吃|服用|服|用)([\p{Han}a-zA-Z0-9]{2,12})`)
	dosageDeclPattern     = regexp.MustCompile(`每[日天]\d+次|\d+(?:\.\d+)?\s*(?:mg|g|ml|片|粒)(?:/[日天次])?`)
)

// 严重程度关键词，按先后顺序取第一个命中
var severityKeywords = []struct {
	keyword string
	level   string
}{
	{"剧烈", "severe"},
	{"非常", "severe"},
	{"特别", "severe"},
	{"比较", "moderate"},
	{"挺", "moderate"},
	{"有点", "mild"},
	{"轻微", "mild"},
	{"稍微", "mild"},
}

// 常用药品名，优先于泛化药品关键词匹配
var canonicalDrugs = []string{
	"阿莫西林", "布洛芬", "对乙酰氨基酚", "二甲双胍", "硝苯地平", "奥美拉唑",
}

// 健康话题
var healthTopics = []string{"高血压", "糖尿病", "感冒", "心血管"}

// 挂号可选科室
var appointmentDepartments = []string{
	"内科", "外科", "儿科", "妇科", "骨科", "眼科", "皮肤科", "神经内科", "心血管内科",
}

// extractEntities 按意图从文本中提取结构化实体
func extractEntities(text string, intent model.IntentType) model.Entities {
	var e model.Entities

	switch intent {
	case model.IntentSymptomInquiry:
		for _, kw := range symptomKeywords {
			if utf8.RuneCountInString(kw) > 1 && strings.Contains(text, kw) {
				e.Symptom = kw
				break
			}
		}
		if m := durationPattern.FindString(text); m != "" {
			e.Duration = m
		}
		for _, s := range severityKeywords {
			if strings.Contains(text, s.keyword) {
				e.Severity = s.level
				break
			}
		}

	case model.IntentDepartmentQuery:
		e.Query = text

	case model.IntentMedicationConsult:
		for _, drug := range canonicalDrugs {
			if strings.Contains(text, drug) {
				e.DrugName = drug
				break
			}
		}
		if e.DrugName == "" {
			for _, drug := range drugKeywords {
				if utf8.RuneCountInString(drug) > 1 && strings.Contains(text, drug) {
					e.DrugName = drug
					break
				}
			}
		}
		switch {
		case strings.Contains(text, "副作用") || strings.Contains(text, "不良反应"):
			e.QueryType = "side_effects"
		case strings.Contains(text, "怎么吃") || strings.Contains(text, "用法") || strings.Contains(text, "用量"):
			e.QueryType = "dosage"
		case strings.Contains(text, "禁忌"):
			e.QueryType = "contraindication"
		case strings.Contains(text, "一起吃") || strings.Contains(text, "相互作用"):
			e.QueryType = "interaction"
		default:
			e.QueryType = "info"
		}

	case model.IntentHealthEducation:
		for _, topic := range healthTopics {
			if strings.Contains(text, topic) {
				e.HealthTopic = topic
				break
			}
		}
		switch {
		case strings.Contains(text, "预防"):
			e.QueryType = "prevention"
		case strings.Contains(text, "吃") || strings.Contains(text, "饮食"):
			e.QueryType = "diet"
		case strings.Contains(text, "运动"):
			e.QueryType = "exercise"
		default:
			e.QueryType = "general"
		}

	case model.IntentAppointment:
		e.Action = "book"
		for _, dept := range appointmentDepartments {
			if strings.Contains(text, dept) {
				e.Department = dept
				break
			}
		}

	case model.IntentMyAppointment:
		e.Action = "query"
		if m := phonePattern.FindString(text); m != "" {
			e.Phone = m
		}

	case model.IntentFollowup:
		e.Action = "followup"
		if m := phonePattern.FindString(text); m != "" {
			e.Phone = m
		}
		switch {
		case strings.Contains(text, "添加") || strings.Contains(text, "新增") || strings.Contains(text, "记录"):
			e.Operation = "add"
		case strings.Contains(text, "查看") || strings.Contains(text, "查询") || strings.Contains(text, "显示"):
			e.Operation = "query"
		}

	case model.IntentRecords:
		e.Action = "records"
		if m := phonePattern.FindString(text); m != "" {
			e.Phone = m
		}
	}

	return e
}

// extractDeclarations 识别显式健康声明（病史、过敏、在用药及剂量）。
// 疑问句中的泛指（“对什么过敏”）不算声明。无命中返回 nil。
func extractDeclarations(text string) map[string]string {
	decls := make(map[string]string)
	put := func(key, value string) {
		if value == "" || strings.ContainsAny(value, "什么哪谁") {
			return
		}
		decls[key] = value
	}

	if m := historyDeclPattern.FindStringSubmatch(text); m != nil {
		put("disease", m[1])
	}
	if m := allergyDeclPattern.FindStringSubmatch(text); m != nil {
		put("allergy", m[1])
	}
	if m := medicationDeclPattern.FindStringSubmatch(text); m != nil {
		put("drug", trimToKnownDrug(m[1]))
		if d := dosageDeclPattern.FindString(text); d != "" {
			put("dosage", d)
		}
	}

	if len(decls) == 0 {
		return nil
	}
	return decls
}

// trimToKnownDrug 把声明中捕获的药名截断到已知药品，
// 避免“我在吃二甲双胍控制血糖”把后续描述一并入档
func trimToKnownDrug(captured string) string {
	for _, drug := range canonicalDrugs {
		if strings.HasPrefix(captured, drug) {
			return drug
		}
	}
	for _, drug := range drugKeywords {
		if utf8.RuneCountInString(drug) > 1 && strings.HasPrefix(captured, drug) {
			return drug
		}
	}
	return captured
}
