package appointment

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func newTestService() *Service {
	return NewService(zap.NewNop())
}

func TestAvailability(t *testing.T) {
	s := newTestService()

	doctors, err := s.Availability("内科")
	if err != nil {
		t.Fatalf("查询内科号源失败: %v", err)
	}
	if len(doctors) != 3 {
		t.Fatalf("内科应有 3 位医生, 实际 %d", len(doctors))
	}
	if doctors[0].Name != "张医生" || doctors[0].Title != "主任医师" {
		t.Errorf("内科首位医生应为张医生(主任医师), 实际 %s(%s)", doctors[0].Name, doctors[0].Title)
	}
	if len(doctors[0].Schedule) != 3 {
		t.Errorf("张医生应有 3 个出诊时段, 实际 %d", len(doctors[0].Schedule))
	}
}

func TestAvailabilityErrors(t *testing.T) {
	s := newTestService()

	if _, err := s.Availability(""); err == nil {
		t.Error("空科室名应返回错误")
	}

	_, err := s.Availability("口腔科")
	if err == nil {
		t.Fatal("未开通的科室应返回错误")
	}
	if !strings.Contains(err.Error(), "暂未开通") {
		t.Errorf("错误信息应说明未开通, 实际 %q", err.Error())
	}
}

func TestBookAndGet(t *testing.T) {
	s := newTestService()

	apt, err := s.Book(BookRequest{
		Department: "内科",
		Doctor:     "张医生",
		Patient:    "王小明",
		Phone:      "13812345678",
		Time:       "周一上午",
	})
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}
	if !strings.HasPrefix(apt.ID, "APT") {
		t.Errorf("预约号应以 APT 开头, 实际 %q", apt.ID)
	}
	if apt.Status != StatusConfirmed {
		t.Errorf("新预约状态应为 confirmed, 实际 %q", apt.Status)
	}

	got, ok := s.Get(apt.ID)
	if !ok {
		t.Fatal("应能按预约号查到记录")
	}
	if got.Doctor != "张医生" || got.Department != "内科" {
		t.Errorf("预约记录内容错误: %+v", got)
	}
}

func TestBookValidation(t *testing.T) {
	s := newTestService()

	tests := []struct {
		name    string
		req     BookRequest
		wantErr string
	}{
		{
			name:    "缺少患者姓名",
			req:     BookRequest{Department: "内科", Doctor: "张医生", Time: "周一上午"},
			wantErr: "请提供完整的预约信息",
		},
		{
			name:    "科室不存在",
			req:     BookRequest{Department: "口腔科", Doctor: "张医生", Patient: "王小明", Time: "周一上午"},
			wantErr: "科室口腔科不存在",
		},
		{
			name:    "医生不在该科室",
			req:     BookRequest{Department: "外科", Doctor: "张医生", Patient: "王小明", Time: "周一上午"},
			wantErr: "外科没有张医生医生",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Book(tt.req)
			if err == nil {
				t.Fatal("应返回错误")
			}
			if err.Error() != tt.wantErr {
				t.Errorf("错误信息应为 %q, 实际 %q", tt.wantErr, err.Error())
			}
		})
	}
	if s.Count() != 0 {
		t.Errorf("校验失败不应产生预约记录, 实际 %d 条", s.Count())
	}
}

func TestCancel(t *testing.T) {
	s := newTestService()

	apt, err := s.Book(BookRequest{
		Department: "皮肤科",
		Doctor:     "冯医生",
		Patient:    "李华",
		Time:       "周三上午",
	})
	if err != nil {
		t.Fatalf("预约失败: %v", err)
	}

	if err := s.Cancel(apt.ID); err != nil {
		t.Fatalf("取消预约失败: %v", err)
	}
	got, _ := s.Get(apt.ID)
	if got.Status != StatusCancelled {
		t.Errorf("取消后状态应为 cancelled, 实际 %q", got.Status)
	}

	if err := s.Cancel("APT00000000"); err == nil {
		t.Error("取消不存在的预约应返回错误")
	}
}

func TestListByPatient(t *testing.T) {
	s := newTestService()

	first, _ := s.Book(BookRequest{
		Department: "内科", Doctor: "张医生",
		Patient: "王小明", Phone: "13812345678", Time: "周一上午",
	})
	second, _ := s.Book(BookRequest{
		Department: "神经内科", Doctor: "周医生",
		Patient: "王小明", Phone: "13812345678", Time: "周二下午",
	})
	s.Book(BookRequest{
		Department: "外科", Doctor: "赵医生",
		Patient: "李华", Time: "周一全天",
	})

	byName := s.ListByPatient("王小明")
	if len(byName) != 2 {
		t.Fatalf("王小明应有 2 条预约, 实际 %d", len(byName))
	}
	// 按预约先后排列
	if byName[0].ID != first.ID || byName[1].ID != second.ID {
		t.Error("预约列表应按创建顺序排列")
	}

	byPhone := s.ListByPatient("13812345678")
	if len(byPhone) != 2 {
		t.Errorf("按手机号应查到 2 条预约, 实际 %d", len(byPhone))
	}

	if got := s.ListByPatient("不存在的人"); len(got) != 0 {
		t.Errorf("无预约的患者应返回空列表, 实际 %d 条", len(got))
	}
	if got := s.ListByPatient(""); got != nil {
		t.Error("空标识应返回 nil")
	}
}

func TestDepartments(t *testing.T) {
	s := newTestService()

	depts := s.Departments()
	if len(depts) != 5 {
		t.Fatalf("应有 5 个可预约科室, 实际 %d", len(depts))
	}
	if depts[0] != "内科" {
		t.Errorf("科室列表首位应为内科, 实际 %s", depts[0])
	}

	// 返回的是副本，修改不影响服务内部状态
	depts[0] = "改过的科室"
	if s.Departments()[0] != "内科" {
		t.Error("Departments 应返回副本")
	}
}
