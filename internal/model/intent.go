package model

// IntentType 意图类型
type IntentType string

const (
	IntentSymptomInquiry    IntentType = "symptom_inquiry"
	IntentDepartmentQuery   IntentType = "department_query"
	IntentMedicationConsult IntentType = "medication_consult"
	IntentAppointment       IntentType = "appointment"
	IntentMyAppointment     IntentType = "my_appointment"
	IntentFollowup          IntentType = "followup"
	IntentRecords           IntentType = "records"
	IntentReportInterpret   IntentType = "report_interpret"
	IntentHealthEducation   IntentType = "health_education"
	IntentGreeting          IntentType = "greeting"
	IntentUnknown           IntentType = "unknown"
)

// AllIntents 全部意图枚举值
var AllIntents = []IntentType{
	IntentSymptomInquiry,
	IntentDepartmentQuery,
	IntentMedicationConsult,
	IntentAppointment,
	IntentMyAppointment,
	IntentFollowup,
	IntentRecords,
	IntentReportInterpret,
	IntentHealthEducation,
	IntentGreeting,
	IntentUnknown,
}

// ParseIntent 解析意图标签，未知标签返回 unknown
func ParseIntent(label string) IntentType {
	for _, it := range AllIntents {
		if string(it) == label {
			return it
		}
	}
	return IntentUnknown
}

// Alternative 备选意图
type Alternative struct {
	Intent     IntentType `json:"intent"`
	Confidence float64    `json:"confidence"`
}

// IntentResult 意图识别结果（每轮新建，产出后不再修改）
type IntentResult struct {
	Intent                IntentType    `json:"intent"`
	Confidence            float64       `json:"confidence"`
	TargetSkill           string        `json:"targetSkill"`
	Entities              Entities      `json:"entities"`
	RequiresClarification bool          `json:"requiresClarification,omitempty"`
	ClarificationQuestion string        `json:"clarificationQuestion,omitempty"`
	Alternatives          []Alternative `json:"alternatives,omitempty"`
}

// Entities 从单轮文本中提取的结构化信息。
// 已知实体种类为封闭集合，Other 作为扩展兜底。
type Entities struct {
	Symptom     string            `json:"symptom,omitempty"`
	Duration    string            `json:"duration,omitempty"`
	Severity    string            `json:"severity,omitempty"`
	DrugName    string            `json:"drugName,omitempty"`
	QueryType   string            `json:"queryType,omitempty"`
	Department  string            `json:"department,omitempty"`
	HealthTopic string            `json:"healthTopic,omitempty"`
	Query       string            `json:"query,omitempty"`
	Action      string            `json:"action,omitempty"`
	Operation   string            `json:"operation,omitempty"`
	Phone       string            `json:"phone,omitempty"`
	Other       map[string]string `json:"other,omitempty"`
}

// IsEmpty 判断是否未提取到任何实体
func (e Entities) IsEmpty() bool {
	return e.Symptom == "" && e.Duration == "" && e.Severity == "" &&
		e.DrugName == "" && e.QueryType == "" && e.Department == "" &&
		e.HealthTopic == "" && e.Query == "" && e.Action == "" &&
		e.Operation == "" && e.Phone == "" && len(e.Other) == 0
}

// Merge 合并新提取的实体，非空字段覆盖旧值，旧值保留
func (e Entities) Merge(fresh Entities) Entities {
	out := e
	if fresh.Symptom != "" {
		out.Symptom = fresh.Symptom
	}
	if fresh.Duration != "" {
		out.Duration = fresh.Duration
	}
	if fresh.Severity != "" {
		out.Severity = fresh.Severity
	}
	if fresh.DrugName != "" {
		out.DrugName = fresh.DrugName
	}
	if fresh.QueryType != "" {
		out.QueryType = fresh.QueryType
	}
	if fresh.Department != "" {
		out.Department = fresh.Department
	}
	if fresh.HealthTopic != "" {
		out.HealthTopic = fresh.HealthTopic
	}
	if fresh.Query != "" {
		out.Query = fresh.Query
	}
	if fresh.Action != "" {
		out.Action = fresh.Action
	}
	if fresh.Operation != "" {
		out.Operation = fresh.Operation
	}
	if fresh.Phone != "" {
		out.Phone = fresh.Phone
	}
	if len(fresh.Other) > 0 {
		if out.Other == nil {
			out.Other = make(map[string]string, len(fresh.Other))
		} else {
			merged := make(map[string]string, len(out.Other)+len(fresh.Other))
			for k, v := range out.Other {
				merged[k] = v
			}
			out.Other = merged
		}
		for k, v := range fresh.Other {
			out.Other[k] = v
		}
	}
	return out
}
