package appointment

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 预约状态
const (
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// Doctor 医生排班信息
type Doctor struct {
	Name      string   `json:"name"`
	Title     string   `json:"title"`
	Specialty string   `json:"specialty"`
	Schedule  []string `json:"schedule"`
}

// Appointment 预约记录
type Appointment struct {
	ID         string    `json:"appointment_id"`
	Department string    `json:"department"`
	Doctor     string    `json:"doctor"`
	Patient    string    `json:"patient_name"`
	Phone      string    `json:"phone,omitempty"`
	Time       string    `json:"appointment_time"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// BookRequest 预约请求
type BookRequest struct {
	Department string `json:"department"`
	Doctor     string `json:"doctor"`
	Patient    string `json:"patient_name"`
	Phone      string `json:"phone,omitempty"`
	Time       string `json:"appointment_time"`
}

// 各科室医生排班
var doctorSchedules = map[string][]Doctor{
	"内科": {
		{Name: "张医生", Title: "主任医师", Specialty: "心血管疾病", Schedule: []string{"周一上午", "周三下午", "周五上午"}},
		{Name: "李医生", Title: "副主任医师", Specialty: "消化系统疾病", Schedule: []string{"周二上午", "周四下午"}},
		{Name: "王医生", Title: "主治医师", Specialty: "内分泌疾病", Schedule: []string{"周一下午", "周三上午", "周五下午"}},
	},
	"外科": {
		{Name: "赵医生", Title: "主任医师", Specialty: "普外科", Schedule: []string{"周一全天", "周四上午"}},
		{Name: "钱医生", Title: "副主任医师", Specialty: "骨科", Schedule: []string{"周二全天", "周五上午"}},
	},
	"神经内科": {
		{Name: "孙医生", Title: "主任医师", Specialty: "脑血管病", Schedule: []string{"周三上午", "周五下午"}},
		{Name: "周医生", Title: "主治医师", Specialty: "头痛头晕", Schedule: []string{"周二下午", "周四上午"}},
	},
	"呼吸内科": {
		{Name: "吴医生", Title: "副主任医师", Specialty: "慢性咳嗽", Schedule: []string{"周一上午", "周三下午"}},
		{Name: "郑医生", Title: "主治医师", Specialty: "哮喘", Schedule: []string{"周二上午", "周四下午"}},
	},
	"皮肤科": {
		{Name: "冯医生", Title: "主任医师", Specialty: "湿疹皮炎", Schedule: []string{"周三上午", "周五上午"}},
		{Name: "陈医生", Title: "主治医师", Specialty: "痤疮", Schedule: []string{"周一下午", "周四下午"}},
	},
}

var departmentOrder = []string{"内科", "外科", "神经内科", "呼吸内科", "皮肤科"}

// Service 预约挂号服务，记录保存在内存中
type Service struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
	order        []string // 预约号的写入顺序，保证列表输出稳定
	logger       *zap.Logger
}

// NewService 创建预约服务
func NewService(logger *zap.Logger) *Service {
	return &Service{
		appointments: make(map[string]*Appointment),
		logger:       logger,
	}
}

// Departments 返回可预约科室列表
func (s *Service) Departments() []string {
	out := make([]string, len(departmentOrder))
	copy(out, departmentOrder)
	return out
}

// Availability 查询科室号源
func (s *Service) Availability(department string) ([]Doctor, error) {
	if department == "" {
		return nil, fmt.Errorf("请提供科室名称")
	}
	doctors, ok := doctorSchedules[department]
	if !ok {
		return nil, fmt.Errorf("暂未开通%s预约", department)
	}
	out := make([]Doctor, len(doctors))
	copy(out, doctors)
	return out, nil
}

// Book 预约挂号。科室与医生必须在排班表中，预约时间不做校验。
func (s *Service) Book(req BookRequest) (Appointment, error) {
	if req.Department == "" || req.Doctor == "" || req.Patient == "" || req.Time == "" {
		return Appointment{}, fmt.Errorf("请提供完整的预约信息")
	}

	doctors, ok := doctorSchedules[req.Department]
	if !ok {
		return Appointment{}, fmt.Errorf("科室%s不存在", req.Department)
	}
	found := false
	for _, d := range doctors {
		if d.Name == req.Doctor {
			found = true
			break
		}
	}
	if !found {
		return Appointment{}, fmt.Errorf("%s没有%s医生", req.Department, req.Doctor)
	}

	apt := &Appointment{
		ID:         "APT" + strings.ToUpper(uuid.New().String()[:8]),
		Department: req.Department,
		Doctor:     req.Doctor,
		Patient:    req.Patient,
		Phone:      req.Phone,
		Time:       req.Time,
		Status:     StatusConfirmed,
		CreatedAt:  time.Now(),
	}

	s.mu.Lock()
	s.appointments[apt.ID] = apt
	s.order = append(s.order, apt.ID)
	s.mu.Unlock()

	s.logger.Info("预约成功",
		zap.String("appointmentId", apt.ID),
		zap.String("department", apt.Department),
		zap.String("doctor", apt.Doctor))

	return *apt, nil
}

// Cancel 取消预约
func (s *Service) Cancel(appointmentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	apt, ok := s.appointments[appointmentID]
	if !ok {
		return fmt.Errorf("预约号不存在")
	}
	apt.Status = StatusCancelled

	s.logger.Info("预约已取消", zap.String("appointmentId", appointmentID))
	return nil
}

// Get 查询单条预约
func (s *Service) Get(appointmentID string) (Appointment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	apt, ok := s.appointments[appointmentID]
	if !ok {
		return Appointment{}, false
	}
	return *apt, true
}

// ListByPatient 查询患者的全部预约，patient 可为姓名或手机号
func (s *Service) ListByPatient(patient string) []Appointment {
	if patient == "" {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Appointment
	for _, id := range s.order {
		apt := s.appointments[id]
		if apt.Patient == patient || (apt.Phone != "" && apt.Phone == patient) {
			out = append(out, *apt)
		}
	}
	return out
}

// Count 当前预约记录总数
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.appointments)
}
