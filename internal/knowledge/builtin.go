package knowledge

// SymptomInfo 症状知识条目
type SymptomInfo struct {
	Description  string   `json:"description"`
	Aliases      []string `json:"aliases,omitempty"`
	CommonCauses []string `json:"common_causes,omitempty"`
	RedFlags     []string `json:"red_flags,omitempty"`
	Department   string   `json:"department,omitempty"`
	SelfCare     []string `json:"self_care,omitempty"`
	Tip          string   `json:"tip,omitempty"`
}

// DiseaseInfo 疾病知识条目
type DiseaseInfo struct {
	Description   string   `json:"description"`
	Symptoms      []string `json:"symptoms,omitempty"`
	Complications []string `json:"complications,omitempty"`
	Department    string   `json:"department,omitempty"`
	Lifestyle     []string `json:"lifestyle,omitempty"`
}

// DepartmentInfo 科室条目
type DepartmentInfo struct {
	SubDepartments []string `json:"sub_departments,omitempty"`
	CommonSymptoms []string `json:"common_symptoms,omitempty"`
	Description    string   `json:"description"`
}

// DrugDosage 用法用量
type DrugDosage struct {
	Adult    string `json:"adult,omitempty"`
	Children string `json:"children,omitempty"`
}

// DrugEntry 药品知识条目
type DrugEntry struct {
	GenericName       string     `json:"generic_name,omitempty"`
	EnglishName       string     `json:"english_name,omitempty"`
	Category          string     `json:"category,omitempty"`
	SubCategory       string     `json:"sub_category,omitempty"`
	Indications       []string   `json:"indications,omitempty"`
	Dosage            DrugDosage `json:"dosage,omitempty"`
	Contraindications []string   `json:"contraindications,omitempty"`
	SideEffects       []string   `json:"side_effects,omitempty"`
	Interactions      []string   `json:"interactions,omitempty"`
	Warnings          string     `json:"warnings,omitempty"`
}

// 内置症状知识
var builtinSymptoms = map[string]SymptomInfo{
	"头痛": {
		Description:  "头部疼痛是一种常见的症状",
		CommonCauses: []string{"紧张性头痛", "偏头痛", "颈椎病", "高血压"},
		RedFlags:     []string{"剧烈突发头痛", "伴有发热颈强", "意识改变", "神经功能缺损"},
		Department:   "神经内科",
		SelfCare:     []string{"休息", "避免刺激", "适当按摩"},
	},
	"发热": {
		Description:  "体温升高超过正常范围（腋温>37.3℃）",
		CommonCauses: []string{"感染性疾病", "炎症反应", "肿瘤", "内分泌疾病"},
		RedFlags:     []string{"体温>39℃", "持续高烧>3天", "意识模糊", "惊厥"},
		Department:   "发热门诊/内科",
		SelfCare:     []string{"多饮水", "物理降温", "注意休息"},
	},
	"咳嗽": {
		Description:  "呼吸道常见的防御性反射",
		CommonCauses: []string{"感冒", "咽炎", "支气管炎", "肺炎", "过敏"},
		RedFlags:     []string{"咳血", "呼吸困难", "持续>2周", "胸痛"},
		Department:   "呼吸内科",
		SelfCare:     []string{"多饮温水", "避免刺激", "保持空气湿润"},
	},
	"腹痛": {
		Description:  "腹部疼痛",
		CommonCauses: []string{"消化不良", "胃炎", "肠炎", "阑尾炎", "胆结石"},
		RedFlags:     []string{"剧烈疼痛", "板状腹", "呕血便血", "高热"},
		Department:   "消化内科/急诊",
		SelfCare:     []string{"禁食", "观察", "及时就医"},
	},
	"胸痛": {
		Description:  "胸部疼痛",
		CommonCauses: []string{"心绞痛", "心肌梗死", "肺炎", "气胸", "肋间神经痛"},
		RedFlags:     []string{"压榨性疼痛", "放射痛", "呼吸困难", "大汗淋漓"},
		Department:   "心血管内科/急诊",
		SelfCare:     []string{"立即就医", "休息", "呼叫120"},
	},
}

var builtinSymptomOrder = []string{"头痛", "发热", "咳嗽", "腹痛", "胸痛"}

// 内置疾病知识
var builtinDiseases = map[string]DiseaseInfo{
	"高血压": {
		Description:   "血压持续升高（收缩压≥140mmHg或舒张压≥90mmHg）",
		Symptoms:      []string{"头痛头晕", "心悸", "视力模糊"},
		Complications: []string{"心脏病", "脑卒中", "肾衰竭"},
		Department:    "心血管内科",
		Lifestyle:     []string{"低盐饮食", "规律运动", "控制体重", "戒烟限酒"},
	},
	"糖尿病": {
		Description:   "代谢性疾病，以高血糖为特征",
		Symptoms:      []string{"多饮多尿", "多食", "体重下降"},
		Complications: []string{"视网膜病变", "肾病", "神经病变"},
		Department:    "内分泌科",
		Lifestyle:     []string{"控制饮食", "规律运动", "监测血糖", "规范用药"},
	},
}

// 内置科室目录
var builtinDepartments = map[string]DepartmentInfo{
	"内科": {
		SubDepartments: []string{"心血管内科", "消化内科", "呼吸内科", "内分泌科", "神经内科", "肾内科", "血液科", "风湿免疫科"},
		CommonSymptoms: []string{"胸闷", "腹痛", "咳嗽", "多饮多尿", "头痛", "水肿"},
		Description:    "主要治疗内脏器官疾病",
	},
	"外科": {
		SubDepartments: []string{"普外科", "骨科", "神经外科", "胸外科", "泌尿外科", "整形外科"},
		CommonSymptoms: []string{"外伤", "骨折", "肿瘤", "结石"},
		Description:    "主要需要手术治疗的疾病",
	},
	"妇产科": {
		SubDepartments: []string{"产科", "妇科", "生殖医学科"},
		CommonSymptoms: []string{"怀孕", "月经不调", "下腹痛"},
		Description:    "女性生殖系统相关疾病",
	},
	"儿科": {
		SubDepartments: []string{"新生儿科", "小儿内科", "小儿外科"},
		CommonSymptoms: []string{"发热", "咳嗽", "腹泻"},
		Description:    "14岁以下儿童疾病",
	},
	"眼科": {
		SubDepartments: []string{"屈光科", "眼底病科", "白内障科", "青光眼科"},
		CommonSymptoms: []string{"视力下降", "眼痛", "眼红", "流泪"},
		Description:    "眼部疾病诊治",
	},
	"耳鼻喉科": {
		SubDepartments: []string{"耳科", "鼻科", "喉科"},
		CommonSymptoms: []string{"耳鸣", "鼻塞", "咽痛", "声音嘶哑"},
		Description:    "耳鼻咽喉疾病诊治",
	},
	"口腔科": {
		SubDepartments: []string{"牙体牙髓科", "牙周科", "口腔颌面外科"},
		CommonSymptoms: []string{"牙痛", "牙龈出血", "口腔溃疡"},
		Description:    "口腔及牙齿疾病诊治",
	},
	"皮肤科": {
		SubDepartments: []string{"皮肤内科", "皮肤外科", "美容皮肤科"},
		CommonSymptoms: []string{"皮疹", "瘙痒", "脱发"},
		Description:    "皮肤疾病诊治",
	},
	"精神科": {
		SubDepartments: []string{"精神科", "心理科", "心身医学科"},
		CommonSymptoms: []string{"失眠", "焦虑", "抑郁"},
		Description:    "精神心理疾病诊治",
	},
	"急诊科": {
		SubDepartments: []string{"内科急诊", "外科急诊", "儿科急诊"},
		CommonSymptoms: []string{"高热", "剧烈疼痛", "大出血", "呼吸困难", "意识丧失"},
		Description:    "急危重症救治",
	},
}

var builtinDepartmentOrder = []string{
	"内科", "外科", "妇产科", "儿科", "眼科", "耳鼻喉科", "口腔科", "皮肤科", "精神科", "急诊科",
}

// 症状到科室的映射
var symptomDepartmentMap = []struct {
	Symptom    string
	Department string
}{
	{"头痛", "神经内科"},
	{"头晕", "神经内科"},
	{"失眠", "神经内科/精神科"},
	{"胸痛", "心血管内科"},
	{"心悸", "心血管内科"},
	{"腹痛", "消化内科"},
	{"恶心", "消化内科"},
	{"呕吐", "消化内科"},
	{"咳嗽", "呼吸内科"},
	{"气促", "呼吸内科"},
	{"发热", "发热门诊"},
	{"多饮多尿", "内分泌科"},
	{"关节痛", "风湿免疫科/骨科"},
	{"皮疹", "皮肤科"},
	{"牙痛", "口腔科"},
	{"眼痛", "眼科"},
	{"耳鸣", "耳鼻喉科"},
	{"咽痛", "耳鼻喉科"},
	{"月经不调", "妇科"},
	{"乳房肿块", "乳腺外科"},
	{"外伤", "急诊科/外科"},
	{"骨折", "骨科"},
}

// 内置药品数据
var builtinDrugs = map[string]DrugEntry{
	"阿莫西林": {
		GenericName: "阿莫西林",
		EnglishName: "Amoxicillin",
		Category:    "抗生素",
		SubCategory: "青霉素类",
		Indications: []string{"呼吸道感染", "尿路感染", "皮肤软组织感染", "消化道感染"},
		Dosage: DrugDosage{
			Adult:    "0.5g, 每6-8小时一次",
			Children: "按体重20-40mg/kg/日，分3-4次",
		},
		Contraindications: []string{"青霉素过敏史"},
		SideEffects:       []string{"恶心", "呕吐", "腹泻", "皮疹"},
		Interactions:      []string{"丙磺舒可延缓排泄", "与避孕药合用可降低避孕药效果"},
		Warnings:          "青霉素过敏者禁用，使用前需做皮试",
	},
	"布洛芬": {
		GenericName: "布洛芬",
		EnglishName: "Ibuprofen",
		Category:    "解热镇痛药",
		SubCategory: "非甾体抗炎药",
		Indications: []string{"发热", "头痛", "牙痛", "关节痛", "痛经"},
		Dosage: DrugDosage{
			Adult:    "0.2-0.4g, 每4-6小时一次，每日不超过1.2g",
			Children: "5-10mg/kg/次，每6-8小时一次",
		},
		Contraindications: []string{"活动性消化道溃疡", "阿司匹林过敏", "严重心衰"},
		SideEffects:       []string{"胃肠道反应", "头晕", "皮疹", "肾损害"},
		Interactions:      []string{"与阿司匹林合用增加出血风险", "与抗凝药合用需监测"},
		Warnings:          "饭后服用，有胃病史慎用",
	},
	"对乙酰氨基酚": {
		GenericName: "对乙酰氨基酚",
		EnglishName: "Paracetamol",
		Category:    "解热镇痛药",
		Indications: []string{"发热", "头痛", "关节痛", "痛经"},
		Dosage: DrugDosage{
			Adult:    "0.5g, 每4-6小时一次，每日不超过2g",
			Children: "10-15mg/kg/次，每4-6小时一次",
		},
		Contraindications: []string{"严重肝肾功能不全"},
		SideEffects:       []string{"偶见皮疹", "过量可致肝损害"},
		Interactions:      []string{"与酒精同用增加肝毒性"},
		Warnings:          "超量使用可致严重肝损害，注意其他含对乙酰氨基酚的复方制剂",
	},
	"二甲双胍": {
		GenericName: "二甲双胍",
		EnglishName: "Metformin",
		Category:    "降糖药",
		SubCategory: "双胍类",
		Indications: []string{"2型糖尿病"},
		Dosage: DrugDosage{
			Adult: "起始0.5g每日2次，维持1-1.5g每日2次",
		},
		Contraindications: []string{"严重肾功能不全", "酮症酸中毒", "严重感染"},
		SideEffects:       []string{"恶心", "腹泻", "乳酸酸中毒（罕见但严重）"},
		Interactions:      []string{"与碘造影剂合用需停药"},
		Warnings:          "定期检查肾功能，避免饮酒",
	},
	"硝苯地平": {
		GenericName: "硝苯地平",
		EnglishName: "Nifedipine",
		Category:    "降压药",
		SubCategory: "钙通道阻滞剂",
		Indications: []string{"高血压", "心绞痛"},
		Dosage: DrugDosage{
			Adult: "10mg, 每日2-3次",
		},
		Contraindications: []string{"严重主动脉瓣狭窄", "心源性休克"},
		SideEffects:       []string{"面部潮红", "头痛", "下肢水肿", "心悸"},
		Interactions:      []string{"与β受体阻滞剂合用需谨慎"},
		Warnings:          "避免突然停药，定期监测血压",
	},
	"奥美拉唑": {
		GenericName: "奥美拉唑",
		EnglishName: "Omeprazole",
		Category:    "抑酸药",
		SubCategory: "质子泵抑制剂",
		Indications: []string{"胃溃疡", "十二指肠溃疡", "反流性食管炎", "幽门螺杆菌根除"},
		Dosage: DrugDosage{
			Adult: "20mg, 每日1次，晨起空腹服用",
		},
		Contraindications: []string{"对本品过敏", "严重肾功能不全"},
		SideEffects:       []string{"头痛", "腹泻", "便秘"},
		Interactions:      []string{"可降低氯吡格雷效果"},
		Warnings:          "长期使用需定期检查",
	},
}

var builtinDrugOrder = []string{
	"阿莫西林", "布洛芬", "对乙酰氨基酚", "二甲双胍", "硝苯地平", "奥美拉唑",
}
