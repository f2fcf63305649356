package metrics

import (
	"sync"
	"time"
)

// SkillCount 单个技能的调用计数
type SkillCount struct {
	Success int64 `json:"success"`
	Failure int64 `json:"failure"`
}

// Snapshot 指标快照，可直接序列化为接口响应
type Snapshot struct {
	StartTime        time.Time             `json:"startTime"`
	UptimeSeconds    int64                 `json:"uptimeSeconds"`
	RequestTotal     int64                 `json:"requestTotal"`
	IntentTotal      map[string]int64      `json:"intentClassifications"`
	SkillInvocations map[string]SkillCount `json:"skillInvocations"`
	EmergencyTotal   map[string]int64      `json:"emergencyDetections"`
	SafetyWarnings   map[string]int64      `json:"safetyWarnings"`
}

// Registry 进程内运行指标。
// 计数随进程重启清零，缓存命中率由缓存自身统计，不在此重复计数。
type Registry struct {
	mu        sync.RWMutex
	startTime time.Time

	requestTotal   int64
	intentTotal    map[string]int64 // 按意图
	skillSuccess   map[string]int64
	skillFailure   map[string]int64
	emergencyTotal map[string]int64 // 按级别
	safetyTotal    map[string]int64 // 按警告类型
}

// NewRegistry 创建指标注册表
func NewRegistry() *Registry {
	return &Registry{
		startTime:      time.Now(),
		intentTotal:    make(map[string]int64),
		skillSuccess:   make(map[string]int64),
		skillFailure:   make(map[string]int64),
		emergencyTotal: make(map[string]int64),
		safetyTotal:    make(map[string]int64),
	}
}

// RecordRequest 记录一次对话请求
func (r *Registry) RecordRequest() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requestTotal++
}

// RecordIntent 记录一次意图分类结果
func (r *Registry) RecordIntent(intent string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.intentTotal[intent]++
}

// RecordSkill 记录一次技能调用
func (r *Registry) RecordSkill(skill string, success bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if success {
		r.skillSuccess[skill]++
	} else {
		r.skillFailure[skill]++
	}
}

// RecordEmergency 记录一次紧急情况检出
func (r *Registry) RecordEmergency(level string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.emergencyTotal[level]++
}

// RecordSafetyWarning 记录一次用药安全警告
func (r *Registry) RecordSafetyWarning(warningType string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.safetyTotal[warningType]++
}

// RequestTotal 累计请求数
func (r *Registry) RequestTotal() int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.requestTotal
}

// Uptime 进程运行时长
func (r *Registry) Uptime() time.Duration {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return time.Since(r.startTime)
}

// Snapshot 返回当前指标快照
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	skills := make(map[string]SkillCount, len(r.skillSuccess)+len(r.skillFailure))
	for name, n := range r.skillSuccess {
		sc := skills[name]
		sc.Success = n
		skills[name] = sc
	}
	for name, n := range r.skillFailure {
		sc := skills[name]
		sc.Failure = n
		skills[name] = sc
	}

	return Snapshot{
		StartTime:        r.startTime,
		UptimeSeconds:    int64(time.Since(r.startTime).Seconds()),
		RequestTotal:     r.requestTotal,
		IntentTotal:      copyCounts(r.intentTotal),
		SkillInvocations: skills,
		EmergencyTotal:   copyCounts(r.emergencyTotal),
		SafetyWarnings:   copyCounts(r.safetyTotal),
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
