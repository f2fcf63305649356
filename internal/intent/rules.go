package intent

import (
	"regexp"

	"github.com/aitachi/medical-agent-sub000/internal/model"
)

// ruleGroup 一组同权重的匹配模式
type ruleGroup struct {
	patterns []*regexp.Regexp
	raw      []string
	weight   float64
}

func newRuleGroup(weight float64, patterns ...string) ruleGroup {
	g := ruleGroup{weight: weight, raw: patterns}
	for _, p := range patterns {
		g.patterns = append(g.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return g
}

// ruleOrder 规则意图的固定评估顺序，保证同分时结果稳定
var ruleOrder = []model.IntentType{
	model.IntentSymptomInquiry,
	model.IntentDepartmentQuery,
	model.IntentMedicationConsult,
	model.IntentAppointment,
	model.IntentReportInterpret,
	model.IntentHealthEducation,
}

// 意图匹配规则，每条命中的模式按组权重累加，再按组数归一化
var intentRules = map[model.IntentType][]ruleGroup{
	model.IntentSymptomInquiry: {
		newRuleGroup(1.0, `(我|最近)(.+?)(疼|痛|难受|不舒服|症状)`, `(.+?)怎么回事`),
		newRuleGroup(0.9, `(.+?)是什么症状`, `(.+?)是什么病`, `(.+?)是啥病`),
		newRuleGroup(0.8, `如果(.+?)(应该|要|该)怎么办`, `如果(.+?)(痛|病|难受)`),
		newRuleGroup(0.7, `我(.+?)怎么样了`, `(.+?)怎么样`, `(.+?)怎么办`),
	},
	model.IntentDepartmentQuery: {
		newRuleGroup(1.0, `(.+?)挂什么科`, `(.+?)去哪个科`, `(.+?)看什么科`, `(.+?)哪个科`),
		newRuleGroup(0.9, `哪个科(.+?)`, `有(.+?)科吗`),
		newRuleGroup(0.8, `(.+?)是(.+?)科(吗)?`, `(.+?)应该挂(.+?)科`),
	},
	model.IntentMedicationConsult: {
		newRuleGroup(1.0, `(.+?药)(怎么吃|怎么用|用量|用法|服用)`),
		newRuleGroup(1.0, `(.+?)有什么副作用`, `(.+?)副作用`, `(.+?)禁忌`, `(.+?)能一起吃`),
		newRuleGroup(0.8, `吃(.+?)(可以|行)吗`),
	},
	model.IntentAppointment: {
		newRuleGroup(1.0, `想?挂(个)?号`, `预约(.+?)(号|门诊)`, `帮我挂号`, `我要挂号`),
		newRuleGroup(0.9, `排号`, `想看医生`),
	},
	model.IntentReportInterpret: {
		newRuleGroup(1.0, `看看(.+?)报告`, `(.+?)报告(怎么|如何)`, `(.+?)结果(.+?)(正常|异常)`),
		newRuleGroup(0.9, `(.+?)指标(.+?)`, `化验(.+?)`, `体检(.+?)`),
	},
	model.IntentHealthEducation: {
		newRuleGroup(1.0, `怎么预防(.+?)`, `如何(保持|预防)(.+?)`, `(.+?)怎么预防`),
		newRuleGroup(0.8, `(.+?)不能吃什么`, `(.+?)(要注意|注意|禁忌)`, `(.+?)饮食`),
		newRuleGroup(0.8, `有什么运动建议`, `运动建议`, `锻炼建议`, `(.+?)运动`, `(.+?)健身`),
	},
}

// 症状关键词库
var symptomKeywords = []string{
	"头痛", "头晕", "发热", "发烧", "咳嗽", "腹痛", "胸痛",
	"恶心", "呕吐", "腹泻", "失眠", "乏力", "疼痛", "痒",
	"不适", "难受", "不舒服",
	"好痛", "很痛", "特痛", "剧痛", "酸痛", "胀痛",
}

// 药品关键词库
var drugKeywords = []string{
	"药", "胶囊", "片", "颗粒", "口服液", "注射",
	"阿莫西林", "布洛芬", "对乙酰氨基酚", "二甲双胍", "硝苯地平",
	"奥美拉唑", "头孢", "青霉素", "感冒药", "退烧药",
}

// 科室关键词库
var departmentKeywords = []string{
	"科", "挂号", "预约", "门诊", "专家", "医生",
}

// 问候语，子串命中即判定为问候
var greetings = []string{
	"你好", "您好", "嗨", "hello", "hi",
	"早上好", "下午好", "晚上好", "晚安",
	"谢谢", "感谢", "再见", "拜拜",
}

// 健康关键词
var healthKeywords = []string{
	"预防", "怎么预防", "如何预防", "如何保持", "怎么保持",
	"不能吃什么", "禁忌", "注意事项", "健康", "养生",
	"运动", "锻炼", "活动", "健身", "建议", "推荐",
}

// 中英混合输入的英文症状词
var englishSymptoms = []string{
	"headache", "fever", "cough", "stomach ache", "nausea", "pain", "ache",
}

// 用药行为模式，如“吃了三天药”
var medicationUsePattern = regexp.MustCompile(`吃.*?药|服用.*?|.*?药.*?[天次]`)

// 否定表达，命中则本轮不计症状意图得分
var negationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(不|没|没有|别|无)(.)*?(痛|病|难受|不舒服|症状)($|，|。)`),
	regexp.MustCompile(`^(不|没|没有|别|无).+?(痛|病|难受|不舒服)`),
}

// 各关键词组的加分值
const (
	symptomBoost    = 0.2
	drugBoost       = 0.3
	medicationBoost = 0.5
	englishBoost    = 0.2
	departmentBoost = 0.2
	healthBoost     = 0.3
)

// 意图接受阈值，未列出的意图使用配置的默认阈值
var intentThresholds = map[model.IntentType]float64{
	model.IntentAppointment:       0.70,
	model.IntentMedicationConsult: 0.30,
	model.IntentSymptomInquiry:    0.50,
	model.IntentDepartmentQuery:   0.60,
	model.IntentHealthEducation:   0.40,
	model.IntentReportInterpret:   0.60,
	model.IntentMyAppointment:     0.60,
	model.IntentFollowup:          0.60,
	model.IntentRecords:           0.60,
}

// skillMap 意图到技能的全映射，覆盖全部枚举值
var skillMap = map[model.IntentType]string{
	model.IntentSymptomInquiry:    "symptom-analyzer",
	model.IntentDepartmentQuery:   "department-recommender",
	model.IntentMedicationConsult: "medication-advisor",
	model.IntentAppointment:       "appointment-service",
	model.IntentMyAppointment:     "my-appointment-handler",
	model.IntentFollowup:          "followup-handler",
	model.IntentRecords:           "records-handler",
	model.IntentReportInterpret:   "report-interpreter",
	model.IntentHealthEducation:   "health-educator",
	model.IntentGreeting:          "greeting-handler",
	model.IntentUnknown:           "fallback-handler",
}

// SkillForIntent 返回意图对应的技能标识
func SkillForIntent(intent model.IntentType) string {
	if skill, ok := skillMap[intent]; ok {
		return skill
	}
	return "fallback-handler"
}

// 意图的中文描述，用于澄清话术
var intentDescriptions = map[model.IntentType]string{
	model.IntentSymptomInquiry:    "症状",
	model.IntentDepartmentQuery:   "挂号科室",
	model.IntentMedicationConsult: "用药",
	model.IntentAppointment:       "预约挂号",
	model.IntentMyAppointment:     "预约查询",
	model.IntentFollowup:          "预约随访",
	model.IntentRecords:           "治疗档案",
	model.IntentReportInterpret:   "报告解读",
	model.IntentHealthEducation:   "健康知识",
}

func describeIntent(intent model.IntentType) string {
	if desc, ok := intentDescriptions[intent]; ok {
		return desc
	}
	return "相关"
}
