package safety

// DrugInfo 单个药物的安全数据
type DrugInfo struct {
	EnglishName       string   `json:"english_name,omitempty"`
	Contraindications []string `json:"contraindications,omitempty"`
	MaxDoseDaily      float64  `json:"max_dose_daily,omitempty"`  // mg
	MaxDoseSingle     float64  `json:"max_dose_single,omitempty"` // mg
	CommonAllergens   []string `json:"common_allergens,omitempty"`
}

// InteractionEntry 一条相互作用记录
type InteractionEntry struct {
	Drugs       []string `json:"drugs"`
	Description string   `json:"description"`
}

// 内置药物数据
var defaultDrugs = map[string]DrugInfo{
	"阿莫西林": {
		EnglishName:       "Amoxicillin",
		Contraindications: []string{"青霉素过敏"},
		MaxDoseDaily:      4000,
		MaxDoseSingle:     1000,
		CommonAllergens:   []string{"青霉素", "抗生素"},
	},
	"布洛芬": {
		EnglishName:       "Ibuprofen",
		Contraindications: []string{"活动性消化道溃疡", "阿司匹林过敏", "严重心衰"},
		MaxDoseDaily:      1200,
		MaxDoseSingle:     400,
		CommonAllergens:   []string{"阿司匹林", "NSAID"},
	},
	"对乙酰氨基酚": {
		EnglishName:       "Paracetamol",
		Contraindications: []string{"严重肝肾功能不全"},
		MaxDoseDaily:      2000,
		MaxDoseSingle:     1000,
	},
	"二甲双胍": {
		EnglishName:       "Metformin",
		Contraindications: []string{"严重肾功能不全", "酮症酸中毒"},
		MaxDoseDaily:      2550,
		MaxDoseSingle:     1000,
	},
	"硝苯地平": {
		EnglishName:       "Nifedipine",
		Contraindications: []string{"严重主动脉瓣狭窄", "心源性休克"},
		MaxDoseDaily:      60,
		MaxDoseSingle:     20,
	},
	"奥美拉唑": {
		EnglishName:       "Omeprazole",
		Contraindications: []string{"对本品过敏"},
		MaxDoseDaily:      40,
		MaxDoseSingle:     40,
		CommonAllergens:   []string{"苯并咪唑"},
	},
	"头孢氨苄": {
		EnglishName:       "Cefalexin",
		Contraindications: []string{"对头孢类抗生素过敏"},
		MaxDoseDaily:      4000,
		MaxDoseSingle:     1000,
		CommonAllergens:   []string{"头孢类", "抗生素"},
	},
}

// 药物表的固定遍历顺序，保证模糊匹配结果稳定
var defaultDrugOrder = []string{
	"阿莫西林", "布洛芬", "对乙酰氨基酚", "二甲双胍", "硝苯地平", "奥美拉唑", "头孢氨苄",
}

// 内置相互作用数据。含酒精的条目不参与两两检查，由酒精检查单独处理。
var defaultInteractions = []severityEntry{
	{SeverityCritical, InteractionEntry{[]string{"阿司匹林", "布洛芬"}, "增加出血风险，可能导致胃肠道出血"}},
	{SeverityCritical, InteractionEntry{[]string{"华法林", "阿司匹林"}, "显著增加出血风险"}},
	{SeverityCritical, InteractionEntry{[]string{"硝苯地平", "β受体阻滞剂"}, "可能导致严重低血压和心动过缓"}},
	{SeverityCritical, InteractionEntry{[]string{"头孢类抗生素", "酒精"}, "双硫仑样反应：面部潮红、头痛、胸闷、呼吸困难"}},
	{SeverityModerate, InteractionEntry{[]string{"奥美拉唑", "氯吡格雷"}, "降低氯吡格雷抗血小板效果"}},
	{SeverityModerate, InteractionEntry{[]string{"二甲双胍", "碘造影剂"}, "增加乳酸酸中毒风险"}},
	{SeverityModerate, InteractionEntry{[]string{"地高辛", "胺碘酮"}, "增加地高辛血药浓度，可能导致中毒"}},
}

// 同类药物分类表
var similarClasses = [][]string{
	{"阿司匹林", "布洛芬", "对乙酰氨基酚", "双氯芬酸钠"}, // 解热镇痛药
	{"阿莫西林", "头孢氨苄", "阿奇霉素"},         // 抗生素
}

// 酒精相互作用表
var alcoholInteractions = []struct {
	Drug   string
	Effect string
}{
	{"头孢氨苄", "双硫仑样反应：面部潮红、头痛、胸闷、呼吸困难"},
	{"头孢类抗生素", "双硫仑样反应"},
	{"甲硝唑", "双硫仑样反应"},
	{"对乙酰氨基酚", "增加肝毒性风险"},
	{"布洛芬", "增加胃肠道出血风险"},
	{"阿司匹林", "增加胃肠道出血风险"},
}
