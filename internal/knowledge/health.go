package knowledge

// PreventionMeasures 预防措施，按饮食/运动/生活方式分组
type PreventionMeasures struct {
	Diet      []string `json:"diet,omitempty"`
	Exercise  []string `json:"exercise,omitempty"`
	Lifestyle []string `json:"lifestyle,omitempty"`
}

// PreventionInfo 疾病预防知识条目
type PreventionInfo struct {
	Description   string             `json:"description,omitempty"`
	RiskFactors   []string           `json:"risk_factors,omitempty"`
	Prevention    PreventionMeasures `json:"prevention,omitempty"`
	Symptoms      []string           `json:"symptoms,omitempty"`
	Complications []string           `json:"complications,omitempty"`
	SelfCare      []string           `json:"self_care,omitempty"`
}

// 疾病预防知识
var diseasePrevention = map[string]PreventionInfo{
	"高血压": {
		Description: "血压持续升高（收缩压≥140mmHg或舒张压≥90mmHg）",
		RiskFactors: []string{"高盐饮食", "肥胖", "缺乏运动", "吸烟饮酒", "精神紧张"},
		Prevention: PreventionMeasures{
			Diet:      []string{"低盐饮食（每日<6g）", "低脂饮食", "多吃蔬菜水果", "限制饮酒"},
			Exercise:  []string{"每周3-5次运动", "每次30分钟以上", "有氧运动为主"},
			Lifestyle: []string{"控制体重", "戒烟限酒", "管理压力", "规律作息"},
		},
		Symptoms:      []string{"头痛头晕", "心悸", "视力模糊", "耳鸣"},
		Complications: []string{"心脏病", "脑卒中", "肾衰竭", "眼底病变"},
	},
	"糖尿病": {
		Description: "代谢性疾病，以高血糖为特征",
		RiskFactors: []string{"肥胖", "家族史", "不良饮食习惯", "缺乏运动", "年龄因素"},
		Prevention: PreventionMeasures{
			Diet:      []string{"控制碳水化合物", "低糖饮食", "高纤维饮食", "少量多餐"},
			Exercise:  []string{"每周150分钟运动", "饭后散步", "避免久坐"},
			Lifestyle: []string{"控制体重", "定期监测血糖", "规律作息"},
		},
		Symptoms:      []string{"多饮多尿", "多食", "体重下降", "乏力"},
		Complications: []string{"视网膜病变", "肾病", "神经病变", "心血管疾病"},
	},
	"感冒": {
		Description: "病毒性上呼吸道感染",
		Prevention: PreventionMeasures{
			Diet:      []string{"多喝水", "多吃维生素C", "清淡饮食"},
			Exercise:  []string{"适度运动增强免疫"},
			Lifestyle: []string{"勤洗手", "戴口罩", "避免接触病人", "注意保暖"},
		},
		SelfCare: []string{"休息", "多喝温水", "盐水漱口", "注意通风"},
	},
	"心血管疾病": {
		Description: "心脏和血管系统疾病",
		Prevention: PreventionMeasures{
			Diet:      []string{"低盐低脂", "地中海饮食", "多吃鱼类", "控制胆固醇"},
			Exercise:  []string{"有氧运动", "避免剧烈运动", "循序渐进"},
			Lifestyle: []string{"戒烟", "控制三高", "管理压力", "定期体检"},
		},
	},
}

var diseasePreventionOrder = []string{"高血压", "糖尿病", "感冒", "心血管疾病"}

// 食物禁忌
var foodRestrictions = map[string][]string{
	"高血压": {"腌制品", "方便面", "动物内脏", "油炸食品", "浓茶咖啡"},
	"糖尿病": {"糖果", "蛋糕", "甜饮料", "白米饭/面", "高糖水果"},
	"痛风":  {"海鲜", "动物内脏", "啤酒", "浓汤", "豆制品"},
	"胃病":  {"辛辣食物", "生冷食物", "咖啡", "酒精", "过硬食物"},
}

var foodRestrictionOrder = []string{"高血压", "糖尿病", "痛风", "胃病"}
