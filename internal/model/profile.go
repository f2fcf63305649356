package model

import (
	"sort"
	"time"
)

// MedicationInfo 在用药品信息
type MedicationInfo struct {
	Dosage       string    `json:"dosage,omitempty"`
	Frequency    string    `json:"frequency,omitempty"`
	DoseSingleMG float64   `json:"doseSingleMg,omitempty"` // 单次剂量
	DoseDailyMG  float64   `json:"doseDailyMg,omitempty"`  // 日剂量
	Started      time.Time `json:"started"`
}

// UserProfile 用户健康画像。
// 安全检查只读该结构；更新走 Add* 方法，保持集合语义（无重复）。
type UserProfile struct {
	UserID             string                    `json:"user_id"`
	CreatedAt          time.Time                 `json:"created_at"`
	UpdatedAt          time.Time                 `json:"updated_at"`
	BasicInfo          map[string]string         `json:"basic_info,omitempty"`
	MedicalHistory     []string                  `json:"medical_history,omitempty"`
	Allergies          []string                  `json:"allergies,omitempty"`
	CurrentMedications map[string]MedicationInfo `json:"current_medications,omitempty"`
	ChronicConditions  []string                  `json:"chronic_conditions,omitempty"`
	Preferences        map[string]string         `json:"preferences,omitempty"`
}

// NewUserProfile 创建默认用户画像
func NewUserProfile(userID string) *UserProfile {
	now := time.Now()
	return &UserProfile{
		UserID:    userID,
		CreatedAt: now,
		UpdatedAt: now,
		Preferences: map[string]string{
			"language": "zh-CN",
			"timezone": "Asia/Shanghai",
		},
	}
}

// HasAllergy 判断是否对指定过敏原过敏
func (p *UserProfile) HasAllergy(allergen string) bool {
	for _, a := range p.Allergies {
		if a == allergen {
			return true
		}
	}
	return false
}

// AddAllergy 添加过敏原（去重）
func (p *UserProfile) AddAllergy(allergen string) bool {
	if allergen == "" || p.HasAllergy(allergen) {
		return false
	}
	p.Allergies = append(p.Allergies, allergen)
	p.UpdatedAt = time.Now()
	return true
}

// AddMedicalHistory 添加病史记录（去重）
func (p *UserProfile) AddMedicalHistory(condition string) bool {
	if condition == "" {
		return false
	}
	for _, c := range p.MedicalHistory {
		if c == condition {
			return false
		}
	}
	p.MedicalHistory = append(p.MedicalHistory, condition)
	p.UpdatedAt = time.Now()
	return true
}

// AddChronicCondition 添加慢性病（去重）
func (p *UserProfile) AddChronicCondition(condition string) bool {
	if condition == "" {
		return false
	}
	for _, c := range p.ChronicConditions {
		if c == condition {
			return false
		}
	}
	p.ChronicConditions = append(p.ChronicConditions, condition)
	p.UpdatedAt = time.Now()
	return true
}

// AddMedication 记录在用药品
func (p *UserProfile) AddMedication(drug string, info MedicationInfo) {
	if drug == "" {
		return
	}
	if p.CurrentMedications == nil {
		p.CurrentMedications = make(map[string]MedicationInfo)
	}
	if info.Started.IsZero() {
		info.Started = time.Now()
	}
	p.CurrentMedications[drug] = info
	p.UpdatedAt = time.Now()
}

// MedicationNames 返回当前在用药品名称列表（按名称排序）
func (p *UserProfile) MedicationNames() []string {
	if len(p.CurrentMedications) == 0 {
		return nil
	}
	names := make([]string, 0, len(p.CurrentMedications))
	for name := range p.CurrentMedications {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Conditions 返回病史与慢性病的并集，供禁忌检查使用
func (p *UserProfile) Conditions() []string {
	out := make([]string, 0, len(p.MedicalHistory)+len(p.ChronicConditions))
	out = append(out, p.MedicalHistory...)
	for _, c := range p.ChronicConditions {
		dup := false
		for _, existing := range out {
			if existing == c {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, c)
		}
	}
	return out
}
