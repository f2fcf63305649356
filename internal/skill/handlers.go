package skill

import (
	"context"
	"fmt"
	"strings"

	"github.com/aitachi/medical-agent-sub000/internal/appointment"
	"github.com/aitachi/medical-agent-sub000/internal/knowledge"
	"github.com/aitachi/medical-agent-sub000/internal/model"
	"github.com/aitachi/medical-agent-sub000/internal/safety"
	"go.uber.org/zap"
)

// SymptomAnalyzer 症状分析技能
type SymptomAnalyzer struct {
	kb *knowledge.Service
}

// NewSymptomAnalyzer 创建症状分析技能
func NewSymptomAnalyzer(kb *knowledge.Service) *SymptomAnalyzer {
	return &SymptomAnalyzer{kb: kb}
}

func (s *SymptomAnalyzer) Name() string { return "symptom-analyzer" }

func (s *SymptomAnalyzer) Handle(ctx context.Context, req Request) (Response, error) {
	symptom := req.Entities.Symptom
	if symptom == "" {
		symptom = "不适"
	}

	info, match := s.kb.QuerySymptom(symptom)
	name := symptom
	if match.Found && match.CanonicalName != "" {
		name = match.CanonicalName
	}

	return Response{
		Success: true,
		Content: FormatSymptom(name, info, match.Found),
		FollowUps: []string{
			"还有其他不适吗？",
			"需要帮您推荐科室吗？",
		},
	}, nil
}

// DepartmentRecommender 科室推荐技能
type DepartmentRecommender struct {
	kb *knowledge.Service
}

// NewDepartmentRecommender 创建科室推荐技能
func NewDepartmentRecommender(kb *knowledge.Service) *DepartmentRecommender {
	return &DepartmentRecommender{kb: kb}
}

func (d *DepartmentRecommender) Name() string { return "department-recommender" }

func (d *DepartmentRecommender) Handle(ctx context.Context, req Request) (Response, error) {
	query := req.Entities.Query
	if query == "" {
		query = req.UserInput
	}

	recs := d.kb.DepartmentBySymptom(query)
	if len(recs) == 0 {
		return Response{Success: true, Content: FormatDepartment(departmentList())}, nil
	}

	var b strings.Builder
	b.WriteString("## 🏥 科室推荐\n\n")
	b.WriteString("根据您描述的症状，建议挂以下科室：\n\n")
	if len(recs) > 3 {
		recs = recs[:3]
	}
	for _, rec := range recs {
		b.WriteString(fmt.Sprintf("### 🏥 %s\n", rec.Department))
		b.WriteString(fmt.Sprintf("- 适用症状: %s\n\n", rec.Symptom))
	}

	return Response{Success: true, Content: FormatDepartment(b.String())}, nil
}

// departmentList 全科室一览表
func departmentList() string {
	departments := [][2]string{
		{"内科", "头痛、胸闷、腹痛等内脏器官疾病"},
		{"外科", "需要手术治疗的外科疾病"},
		{"神经内科", "头痛、头晕、失眠等神经系统症状"},
		{"心血管内科", "胸痛、心悸、高血压等"},
		{"呼吸内科", "咳嗽、气促、发热等呼吸系统症状"},
		{"消化内科", "腹痛、恶心、呕吐等消化系统症状"},
		{"内分泌科", "糖尿病、甲状腺疾病等"},
		{"皮肤科", "皮疹、瘙痒等皮肤问题"},
		{"眼科", "视力问题、眼痛、眼红"},
		{"耳鼻喉科", "耳鸣、鼻塞、咽痛"},
	}

	var b strings.Builder
	b.WriteString("## 🏥 本院科室\n\n")
	b.WriteString("| 科室 | 适用范围 |\n")
	b.WriteString("|------|---------|\n")
	for _, dept := range departments {
		b.WriteString(fmt.Sprintf("| %s | %s |\n", dept[0], dept[1]))
	}
	b.WriteString("\n> 💡 请告诉我您的症状，我可以帮您推荐合适的科室。")
	return b.String()
}

// MedicationAdvisor 用药咨询技能。
// 查询药品信息前先结合用户画像做安全检查，高危警告置于响应最前。
type MedicationAdvisor struct {
	kb      *knowledge.Service
	checker *safety.Checker
	opts    safety.Options
}

// NewMedicationAdvisor 创建用药咨询技能，checker 可为 nil（跳过安全检查）
func NewMedicationAdvisor(kb *knowledge.Service, checker *safety.Checker, opts safety.Options) *MedicationAdvisor {
	return &MedicationAdvisor{kb: kb, checker: checker, opts: opts}
}

func (m *MedicationAdvisor) Name() string { return "medication-advisor" }

func (m *MedicationAdvisor) Handle(ctx context.Context, req Request) (Response, error) {
	drugName := req.Entities.DrugName
	if drugName == "" {
		return Response{Success: true, Content: medicationPrompt}, nil
	}

	queryType := req.Entities.QueryType
	if queryType == "" {
		queryType = "info"
	}

	entry, match := m.kb.QueryDrug(drugName)
	name := drugName
	if match.Found && match.CanonicalName != "" {
		name = match.CanonicalName
	}

	var content string
	if match.Found {
		content = FormatDrug(name, queryType, entry, true)
	} else {
		content = formatDrugNotFound(drugName)
	}

	// 画像中有在用药或过敏史时，把该药放进全量清单一起查
	if m.checker != nil && req.Profile != nil {
		drugs := append([]string{name}, req.Profile.MedicationNames()...)
		report := m.checker.Check(drugs, req.Profile, m.opts)
		if warnings := report.HighSeverityWarnings(); len(warnings) > 0 {
			content = formatSafetySection(warnings) + content
		}
	}

	return Response{Success: true, Content: content}, nil
}

// formatSafetySection 高危用药警告段，置于药品信息之前
func formatSafetySection(warnings []safety.Warning) string {
	var b strings.Builder
	b.WriteString("### 🚨 用药安全警告\n\n")
	for _, w := range warnings {
		b.WriteString(fmt.Sprintf("- **【%s】** %s\n", severityLabel(w.Severity), w.Message))
		if w.Suggestion != "" {
			b.WriteString(fmt.Sprintf("  - 建议: %s\n", w.Suggestion))
		}
	}
	b.WriteString("\n")
	return b.String()
}

func severityLabel(s safety.Severity) string {
	switch s {
	case safety.SeverityCritical:
		return "严重"
	case safety.SeverityHigh:
		return "高风险"
	default:
		return "注意"
	}
}

const medicationPrompt = `## 💊 用药咨询

请告诉我您想了解哪种药品的信息，包括：

- 用法用量
- 副作用
- 禁忌症
- 药物相互作用

---

> ⚠️ **免责声明**: 用药请遵医嘱，不要自行用药。`

// formatDrugNotFound 药品未收录时的提示
func formatDrugNotFound(drugName string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## 💊 %s\n\n", drugName))
	b.WriteString("抱歉，暂未收录该药品的详细信息。\n\n")
	b.WriteString("### 建议\n\n")
	b.WriteString("- 请确认药品名称是否正确\n")
	b.WriteString("- 咨询医生或药师\n")
	b.WriteString("- 参考药品说明书\n\n")
	b.WriteString("---\n\n")
	b.WriteString(Disclaimer)
	return b.String()
}

// AppointmentSkill 预约挂号技能
type AppointmentSkill struct {
	appointments *appointment.Service
}

// NewAppointmentSkill 创建预约挂号技能
func NewAppointmentSkill(appointments *appointment.Service) *AppointmentSkill {
	return &AppointmentSkill{appointments: appointments}
}

func (a *AppointmentSkill) Name() string { return "appointment-service" }

func (a *AppointmentSkill) Handle(ctx context.Context, req Request) (Response, error) {
	department := req.Entities.Department

	var content string
	if department != "" {
		var b strings.Builder
		b.WriteString("## 📅 预约挂号\n\n")
		b.WriteString(fmt.Sprintf("您想预约 **%s**，请确认以下信息：\n\n", department))

		if a.appointments != nil {
			if doctors, err := a.appointments.Availability(department); err == nil && len(doctors) > 0 {
				b.WriteString("### 出诊安排\n\n")
				b.WriteString("| 医生 | 职称 | 专长 | 出诊时间 |\n")
				b.WriteString("|------|------|------|---------|\n")
				for _, doc := range doctors {
					b.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n",
						doc.Name, doc.Title, doc.Specialty, strings.Join(doc.Schedule, "、")))
				}
				b.WriteString("\n")
			}
		}

		b.WriteString("### 预约流程\n")
		b.WriteString(fmt.Sprintf("1. 选择科室：%s\n", department))
		b.WriteString("2. 选择医生：专家/普通\n")
		b.WriteString("3. 选择时间：请提供方便的日期和时间\n")
		b.WriteString("4. 确认预约：核对信息后确认\n\n")
		b.WriteString("### 温馨提示\n")
		b.WriteString("- 请提前1-3天预约\n")
		b.WriteString("- 就诊时请携带身份证和医保卡\n")
		b.WriteString("- 如需取消，请提前4小时\n\n")
		b.WriteString("请告诉我您希望的就诊时间，我来帮您安排。\n\n")
		b.WriteString("---\n\n")
		b.WriteString("> ⚠️ **免责声明**: 预约成功后，请按时就诊。如需改期或取消，请提前联系医院。")
		content = b.String()
	} else {
		content = appointmentGuide
	}

	return Response{
		Success: true,
		Content: content,
		FollowUps: []string{
			"请问您希望什么时候就诊？",
			"需要帮您推荐科室吗？",
		},
	}, nil
}

const appointmentGuide = `## 📅 预约挂号

请告诉我以下信息，我来帮您预约：

### 需要的信息
1. **挂号科室** - 您想挂哪个科？
   - 内科、外科、妇科、儿科、骨科、眼科、耳鼻喉科等
2. **医生类型** - 专家门诊 / 普通门诊
3. **就诊时间** - 您希望什么时候来？

### 我可以帮您
- 推荐合适的科室（告诉我您的症状）
- 查看医生排班
- 协助预约挂号

请问您想挂哪个科？

---

> 💡 **提示**: 如果不确定挂什么科，可以先告诉我您的症状，我帮您推荐合适的科室。`

// MyAppointmentSkill 预约查询技能
type MyAppointmentSkill struct {
	appointments *appointment.Service
}

// NewMyAppointmentSkill 创建预约查询技能
func NewMyAppointmentSkill(appointments *appointment.Service) *MyAppointmentSkill {
	return &MyAppointmentSkill{appointments: appointments}
}

func (m *MyAppointmentSkill) Name() string { return "my-appointment-handler" }

func (m *MyAppointmentSkill) Handle(ctx context.Context, req Request) (Response, error) {
	patient := req.Entities.Phone
	if patient == "" && req.Context != nil {
		patient = req.Context.UserID
	}

	var appts []appointment.Appointment
	if m.appointments != nil && patient != "" {
		appts = m.appointments.ListByPatient(patient)
	}

	if len(appts) == 0 {
		return Response{
			Success:   true,
			Content:   myAppointmentEmpty,
			FollowUps: []string{"需要现在预约挂号吗？"},
		}, nil
	}

	var b strings.Builder
	b.WriteString("## 📋 我的预约\n\n")
	b.WriteString(fmt.Sprintf("为您查询到 %d 条预约记录：\n\n", len(appts)))
	b.WriteString("| 预约号 | 科室 | 医生 | 就诊时间 | 状态 |\n")
	b.WriteString("|--------|------|------|---------|------|\n")
	for _, appt := range appts {
		b.WriteString(fmt.Sprintf("| %s | %s | %s | %s | %s |\n",
			appt.ID, appt.Department, appt.Doctor, appt.Time, statusLabel(appt.Status)))
	}
	b.WriteString("\n### 温馨提示\n\n")
	b.WriteString("- 就诊时请携带身份证和医保卡\n")
	b.WriteString("- 如需取消或改期，请提前4小时告诉我\n")

	return Response{Success: true, Content: b.String()}, nil
}

func statusLabel(status string) string {
	switch status {
	case appointment.StatusConfirmed:
		return "已确认"
	case appointment.StatusCancelled:
		return "已取消"
	default:
		return status
	}
}

const myAppointmentEmpty = `## 📋 我的预约

暂未查询到您的预约记录。

### 查询方式

- 提供预约时登记的手机号，例如："查一下 13800138000 的预约"
- 预约成功后，也可以直接问"我的预约"

---

> 💡 **提示**: 如需挂号，告诉我科室或症状即可开始预约。`

// FollowupSkill 复诊管理技能
type FollowupSkill struct {
	appointments *appointment.Service
}

// NewFollowupSkill 创建复诊管理技能
func NewFollowupSkill(appointments *appointment.Service) *FollowupSkill {
	return &FollowupSkill{appointments: appointments}
}

func (f *FollowupSkill) Name() string { return "followup-handler" }

func (f *FollowupSkill) Handle(ctx context.Context, req Request) (Response, error) {
	if req.Entities.Operation == "add" {
		return Response{Success: true, Content: followupAddGuide}, nil
	}

	patient := req.Entities.Phone
	if patient == "" && req.Context != nil {
		patient = req.Context.UserID
	}

	var appts []appointment.Appointment
	if f.appointments != nil && patient != "" {
		for _, appt := range f.appointments.ListByPatient(patient) {
			if appt.Status == appointment.StatusConfirmed {
				appts = append(appts, appt)
			}
		}
	}

	if len(appts) == 0 {
		return Response{Success: true, Content: followupEmpty}, nil
	}

	var b strings.Builder
	b.WriteString("## 🩺 复诊安排\n\n")
	b.WriteString("您近期的复诊安排如下：\n\n")
	for _, appt := range appts {
		b.WriteString(fmt.Sprintf("- **%s** %s（%s）\n", appt.Time, appt.Department, appt.Doctor))
	}
	b.WriteString("\n---\n\n")
	b.WriteString("> 💡 **提示**: 按时复诊有助于医生掌握恢复情况，及时调整治疗方案。")

	return Response{Success: true, Content: b.String()}, nil
}

const followupAddGuide = `## 🩺 复诊管理

好的，我来帮您记录复诊安排。

### 需要的信息

1. **复诊科室** - 上次就诊的科室
2. **复诊时间** - 医生建议的复诊日期
3. **联系电话** - 方便查询和提醒

例如："下周三上午复诊心血管内科，电话13800138000"

---

> 💡 **提示**: 按时复诊有助于医生掌握恢复情况，及时调整治疗方案。`

const followupEmpty = `## 🩺 复诊安排

暂未查询到您的复诊安排。

### 我可以帮您

- **记录复诊**: 告诉我医生建议的复诊时间和科室
- **查询复诊**: 提供预约时登记的手机号

---

> 💡 **提示**: 按时复诊有助于医生掌握恢复情况，及时调整治疗方案。`

// RecordsSkill 健康档案技能，汇总画像中的病史、过敏史和在用药
type RecordsSkill struct{}

// NewRecordsSkill 创建健康档案技能
func NewRecordsSkill() *RecordsSkill { return &RecordsSkill{} }

func (r *RecordsSkill) Name() string { return "records-handler" }

func (r *RecordsSkill) Handle(ctx context.Context, req Request) (Response, error) {
	profile := req.Profile
	if profile == nil || profileEmpty(profile) {
		return Response{Success: true, Content: recordsEmpty}, nil
	}

	var b strings.Builder
	b.WriteString("## 📋 健康档案\n\n")

	b.WriteString("### 病史记录\n\n")
	if conditions := profile.Conditions(); len(conditions) > 0 {
		b.WriteString(strings.Join(conditions, "、") + "\n\n")
	} else {
		b.WriteString("暂无记录\n\n")
	}

	b.WriteString("### 过敏史\n\n")
	if len(profile.Allergies) > 0 {
		b.WriteString(strings.Join(profile.Allergies, "、") + "\n\n")
	} else {
		b.WriteString("暂无记录\n\n")
	}

	b.WriteString("### 在用药物\n\n")
	if names := profile.MedicationNames(); len(names) > 0 {
		for _, name := range names {
			info := profile.CurrentMedications[name]
			if info.Dosage != "" {
				b.WriteString(fmt.Sprintf("- %s（%s）\n", name, info.Dosage))
			} else {
				b.WriteString(fmt.Sprintf("- %s\n", name))
			}
		}
		b.WriteString("\n")
	} else {
		b.WriteString("暂无记录\n\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("> 💡 档案信息来自您的历史对话，如有出入请告诉我。")

	return Response{Success: true, Content: b.String()}, nil
}

func profileEmpty(p *model.UserProfile) bool {
	return len(p.MedicalHistory) == 0 && len(p.ChronicConditions) == 0 &&
		len(p.Allergies) == 0 && len(p.CurrentMedications) == 0
}

const recordsEmpty = `## 📋 健康档案

暂未建立您的健康档案。

### 如何建立

在对话中告诉我您的健康情况，我会自动记录，例如：

- "我有高血压病史"
- "我对青霉素过敏"
- "我在吃二甲双胍"

---

> 💡 **提示**: 完善健康档案后，用药咨询时我会自动为您做药物安全检查。`

// ReportInterpreter 报告解读技能
type ReportInterpreter struct{}

// NewReportInterpreter 创建报告解读技能
func NewReportInterpreter() *ReportInterpreter { return &ReportInterpreter{} }

func (r *ReportInterpreter) Name() string { return "report-interpreter" }

func (r *ReportInterpreter) Handle(ctx context.Context, req Request) (Response, error) {
	return Response{
		Success:   true,
		Content:   reportGuide,
		FollowUps: []string{"报告里有哪些指标标了箭头或异常提示？"},
	}, nil
}

const reportGuide = `## 📄 报告解读

请把报告中的指标名称和数值告诉我，例如："血压 150/95"、"空腹血糖 7.8"。

### 常见指标参考范围

| 指标 | 参考范围 |
|------|---------|
| 血压 | 90-139 / 60-89 mmHg |
| 空腹血糖 | 3.9-6.1 mmol/L |
| 总胆固醇 | <5.2 mmol/L |
| 血红蛋白 | 男 120-160 / 女 110-150 g/L |
| 白细胞计数 | 4-10 ×10⁹/L |

### 温馨提示

- 单项指标轻度异常不一定代表患病，需结合临床判断
- 检验结果会受饮食、运动、作息影响
- 建议携带报告原件咨询开单医生`

// HealthEducator 健康教育技能，根据查询类型分发到对应知识模板
type HealthEducator struct {
	kb *knowledge.Service
}

// NewHealthEducator 创建健康教育技能
func NewHealthEducator(kb *knowledge.Service) *HealthEducator {
	return &HealthEducator{kb: kb}
}

func (h *HealthEducator) Name() string { return "health-educator" }

func (h *HealthEducator) Handle(ctx context.Context, req Request) (Response, error) {
	topic := req.Entities.HealthTopic
	input := req.UserInput

	var content string
	switch {
	case topic != "":
		if prevention, canonical, ok := h.kb.DiseasePrevention(topic); ok {
			content = formatDiseasePrevention(canonical, prevention)
		} else {
			content = generalHealthInfo
		}

	case strings.Contains(input, "不能吃") || strings.Contains(input, "饮食"):
		content = generalDietAdvice
		for _, condition := range h.kb.RestrictionConditions() {
			if strings.Contains(input, condition) {
				if restrictions, canonical, ok := h.kb.FoodRestrictions(condition); ok {
					content = formatFoodRestrictions(canonical, restrictions)
				}
				break
			}
		}

	case strings.Contains(input, "运动"):
		content = exerciseAdvice

	case strings.Contains(input, "生活") || strings.Contains(input, "习惯"):
		content = lifestyleAdvice

	default:
		content = generalHealthInfo
	}

	return Response{
		Success: true,
		Content: content,
		FollowUps: []string{
			"还有什么健康问题想了解的吗？",
			"需要了解更多疾病预防知识吗？",
		},
	}, nil
}

// formatDiseasePrevention 疾病预防指南
func formatDiseasePrevention(disease string, prevention knowledge.PreventionInfo) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## 📋 %s预防指南\n\n", disease))

	if prevention.Description != "" {
		b.WriteString(fmt.Sprintf("**疾病概述**: %s\n\n", prevention.Description))
	}

	if len(prevention.RiskFactors) > 0 {
		b.WriteString("### ⚠️ 风险因素\n\n")
		for _, factor := range prevention.RiskFactors {
			b.WriteString(fmt.Sprintf("- %s\n", factor))
		}
		b.WriteString("\n")
	}

	measures := prevention.Prevention
	if len(measures.Diet) > 0 || len(measures.Exercise) > 0 || len(measures.Lifestyle) > 0 {
		b.WriteString("### ✅ 预防措施\n\n")
		if len(measures.Diet) > 0 {
			b.WriteString("**饮食建议**:\n")
			for _, advice := range measures.Diet {
				b.WriteString(fmt.Sprintf("- %s\n", advice))
			}
			b.WriteString("\n")
		}
		if len(measures.Exercise) > 0 {
			b.WriteString("**运动建议**:\n")
			for _, advice := range measures.Exercise {
				b.WriteString(fmt.Sprintf("- %s\n", advice))
			}
			b.WriteString("\n")
		}
		if len(measures.Lifestyle) > 0 {
			b.WriteString("**生活方式**:\n")
			for _, advice := range measures.Lifestyle {
				b.WriteString(fmt.Sprintf("- %s\n", advice))
			}
			b.WriteString("\n")
		}
	}

	if len(prevention.Symptoms) > 0 {
		b.WriteString("### 🩺 常见症状\n\n")
		b.WriteString(strings.Join(prevention.Symptoms, ", ") + "\n\n")
	}

	if len(prevention.Complications) > 0 {
		b.WriteString("### ⚠️ 可能并发症\n\n")
		b.WriteString("如不及时控制，可能导致：\n")
		for _, comp := range prevention.Complications {
			b.WriteString(fmt.Sprintf("- %s\n", comp))
		}
		b.WriteString("\n")
	}

	b.WriteString("---\n\n")
	b.WriteString("> 💡 **提示**: 预防胜于治疗，保持健康生活方式是最好的预防方法。")
	return b.String()
}

// formatFoodRestrictions 饮食禁忌
func formatFoodRestrictions(condition string, restrictions []string) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## 🚫 %s饮食禁忌\n\n", condition))

	b.WriteString("### ❌ 需要避免的食物\n\n")
	for _, item := range restrictions {
		b.WriteString(fmt.Sprintf("- **%s**\n", item))
	}
	b.WriteString("\n")

	b.WriteString("### ✅ 饮食建议\n\n")
	switch condition {
	case "高血压":
		b.WriteString("- 选择低盐食品\n")
		b.WriteString("- 多吃新鲜蔬菜水果\n")
		b.WriteString("- 限制加工食品\n")
		b.WriteString("- 控制总热量\n")
	case "糖尿病":
		b.WriteString("- 选择低升糖指数食物\n")
		b.WriteString("- 控制碳水化合物摄入\n")
		b.WriteString("- 少量多餐\n")
		b.WriteString("- 增加膳食纤维\n")
	case "痛风":
		b.WriteString("- 低嘌呤饮食\n")
		b.WriteString("- 多喝水\n")
		b.WriteString("- 限制酒精\n")
		b.WriteString("- 减少高蛋白食物\n")
	case "胃病":
		b.WriteString("- 规律饮食\n")
		b.WriteString("- 细嚼慢咽\n")
		b.WriteString("- 避免刺激性食物\n")
		b.WriteString("- 选择易消化食物\n")
	}

	b.WriteString("\n---\n\n")
	b.WriteString("> 💡 **提示**: 饮食调整需长期坚持，建议在医生或营养师指导下进行。")
	return b.String()
}

const exerciseAdvice = `## 🏃 运动健康指南

### 运动原则
- **持之以恒**: 形成习惯比强度更重要
- **循序渐进**: 从小强度开始，逐渐增加
- **量力而行**: 根据自身情况调整
- **全面发展**: 有氧+力量+柔韧

### 推荐运动类型

**有氧运动** (每周150分钟):
- 快走、慢跑、游泳、骑自行车
- 跳绳、有氧操、舞蹈

**力量训练** (每周2-3次):
- 俯卧撑、深蹲、平板支撑
- 弹力带训练、哑铃训练

**柔韧性训练**:
- 瑜伽、太极、拉伸运动

### 注意事项
- 运动前热身5-10分钟
- 运动后拉伸放松
- 身体不适时停止
- 饭后1小时再运动

---

> 💡 找到自己喜欢的运动方式，才能长期坚持！
`

const lifestyleAdvice = `## 🌟 健康生活方式

### 🥗 饮食习惯
- 三餐规律，不暴饮暴食
- 低盐低脂，多吃蔬菜水果
- 充足饮水，每日1.5-2升
- 细嚼慢咽，每餐20分钟以上

### 😴 睡眠健康
- 成人每日7-9小时睡眠
- 固定作息时间
- 睡前1小时远离电子产品
- 营造良好睡眠环境

### 🏃 适量运动
- 每周至少150分钟中等强度运动
- 选择自己喜欢的运动方式
- 循序渐进，持之以恒

### 💆 心理调节
- 学会管理压力
- 保持社交活动
- 培养兴趣爱好
- 必要时寻求专业帮助

### 🚫 戒除不良习惯
- 戒烟
- 限酒
- 避免熬夜
- 减少久坐

---

> 💡 健康是一种习惯，从小事做起！
`

const generalDietAdvice = `## 🥗 饮食健康指南

### 基本原则
- 食物多样，每天12种以上
- 谷类为主，粗细搭配
- 多吃蔬果（每日500克）
- 适量蛋白质
- 少盐少油少糖

### 三餐建议
- **早餐**: 要吃好（鸡蛋、牛奶、全麦面包）
- **午餐**: 要吃饱（荤素搭配）
- **晚餐**: 要吃少（清淡、七分饱）

### 注意事项
- 细嚼慢咽，每口嚼20-30次
- 定时定量，不暴饮暴食
- 饭后适度活动
- 充足饮水

---

> 💡 饮食是健康的基础，吃对了一切都对！
`

const generalHealthInfo = `## 📚 健康知识

### 常见疾病预防

**高血压**
- 低盐饮食，控制体重
- 规律运动，戒烟限酒
- 定期监测血压

**糖尿病**
- 控制碳水化合物摄入
- 增加运动量
- 定期检测血糖

**心血管疾病**
- 低脂低盐饮食
- 适量运动
- 控制三高（血压、血糖、血脂）

### 健康生活方式

**饮食**: 三餐规律，低盐低脂，多吃蔬果

**运动**: 每周150分钟中等强度运动

**睡眠**: 成人7-9小时，固定作息

**心理**: 管理压力，保持积极心态

---

> 💡 **提示**: 预防胜于治疗，定期体检是关键！
`

// GreetingSkill 问候技能
type GreetingSkill struct{}

// NewGreetingSkill 创建问候技能
func NewGreetingSkill() *GreetingSkill { return &GreetingSkill{} }

func (g *GreetingSkill) Name() string { return "greeting-handler" }

func (g *GreetingSkill) Handle(ctx context.Context, req Request) (Response, error) {
	input := req.UserInput

	var content string
	switch {
	case strings.Contains(input, "你好") || strings.Contains(input, "您好"):
		content = greetingFull
	case strings.Contains(input, "谢谢") || strings.Contains(input, "感谢"):
		content = greetingThanks
	default:
		content = greetingShort
	}

	return Response{Success: true, Content: content}, nil
}

const greetingFull = `## 👋 您好！

我是您的医疗健康助手，可以帮您：

- 🩺 **症状咨询** - 告诉我您的不适，我帮您分析
- 🏥 **科室推荐** - 不确定挂什么科，我来推荐
- 💊 **用药咨询** - 了解药品用法、副作用等
- 📅 **预约挂号** - 帮您预约医生
- 📚 **健康知识** - 疾病预防、健康生活方式

请问有什么可以帮您的？`

const greetingThanks = `## 😊 不客气！

很高兴能帮到您。如果还有其他健康问题，随时可以问我。

祝您身体健康！🌟`

const greetingShort = `## 👋 您好！

我是医疗健康助手，有什么可以帮您的？

我可以帮您：
- 分析症状
- 推荐科室
- 用药咨询
- 健康指导`

// FallbackSkill 兜底技能
type FallbackSkill struct{}

// NewFallbackSkill 创建兜底技能
func NewFallbackSkill() *FallbackSkill { return &FallbackSkill{} }

func (f *FallbackSkill) Name() string { return "fallback-handler" }

func (f *FallbackSkill) Handle(ctx context.Context, req Request) (Response, error) {
	content := fallbackTemplate

	var suggestions []string
	input := req.UserInput
	if strings.Contains(input, "疼") || strings.Contains(input, "痛") || strings.Contains(input, "难受") {
		suggestions = append(suggestions, "您可以描述一下具体的症状和部位吗？")
	}
	if strings.Contains(input, "药") {
		suggestions = append(suggestions, "请问您想了解哪种药品的信息？")
	}
	if strings.Contains(input, "预防") || strings.Contains(input, "怎么") {
		suggestions = append(suggestions, "我可以提供健康生活方式的建议。")
	}

	if len(suggestions) > 0 {
		lines := make([]string, 0, len(suggestions))
		for _, s := range suggestions {
			lines = append(lines, "> 💡 "+s)
		}
		content += "\n\n" + strings.Join(lines, "\n")
	}

	return Response{Success: true, Content: content}, nil
}

const fallbackTemplate = `## 🤔 抱歉

我没有完全理解您的意思，可以试试：

1. **描述症状**: "我头痛"、"最近一直咳嗽"
2. **询问科室**: "头痛挂什么科"
3. **用药咨询**: "阿莫西林怎么吃"
4. **健康问题**: "怎么预防高血压"

或者换个说法再试试？

---

> 💡 **提示**: 您也可以直接告诉我您想了解什么，我会尽力帮助您。`

// RegisterBuiltin 注册全部内置技能
func RegisterBuiltin(inv *Invoker, kb *knowledge.Service, checker *safety.Checker, opts safety.Options, appointments *appointment.Service, logger *zap.Logger) {
	inv.Register(NewSymptomAnalyzer(kb))
	inv.Register(NewDepartmentRecommender(kb))
	inv.Register(NewMedicationAdvisor(kb, checker, opts))
	inv.Register(NewAppointmentSkill(appointments))
	inv.Register(NewMyAppointmentSkill(appointments))
	inv.Register(NewFollowupSkill(appointments))
	inv.Register(NewRecordsSkill())
	inv.Register(NewReportInterpreter())
	inv.Register(NewHealthEducator(kb))
	inv.Register(NewGreetingSkill())
	inv.Register(NewFallbackSkill())

	logger.Info("内置技能已注册", zap.Int("count", len(inv.Skills())))
}
