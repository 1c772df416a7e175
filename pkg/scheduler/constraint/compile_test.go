package constraint

import (
	"testing"

	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

func testGrid(days, classSlots int) *model.Grid {
	dayNames := []string{"周一", "周二", "周三", "周四", "周五", "周六", "周日"}
	var slots []model.Slot
	for i := 0; i < classSlots; i++ {
		slots = append(slots, model.Slot{ID: slotID(i), Kind: model.SlotClass})
	}
	return model.NewGrid(dayNames[:days], slots)
}

func slotID(i int) string {
	return string(rune('A' + i))
}

func testTeacher(id string, subjects, grades []string) *model.Teacher {
	return &model.Teacher{ID: id, Name: id, Subjects: subjects, Grades: grades}
}

func TestCompileCapacityExceeded(t *testing.T) {
	// 5天 × 每天8节里只开1节 → 容量5，需求9 → 配置错误
	grid := testGrid(5, 1)
	grades := []*model.Grade{{
		ID:      "一班",
		Segment: "小学部",
		Demands: []model.SubjectDemand{{Subject: "数学", Category: model.CategoryCore, Periods: 9}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"数学"}, []string{"一班"})}

	_, err := Compile(grid, grades, teachers, nil, nil)
	if err == nil {
		t.Fatal("需求超容量应返回配置错误")
	}
	if !apperrors.Is(err, apperrors.CodeConfigError) {
		t.Errorf("错误码 = %s, 期望 CONFIG_ERROR", apperrors.GetCode(err))
	}
}

func TestCompileNoEligibleTeacher(t *testing.T) {
	grid := testGrid(5, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "音乐", Periods: 2}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"数学"}, []string{"一班"})}

	_, err := Compile(grid, grades, teachers, nil, nil)
	if !apperrors.Is(err, apperrors.CodeConfigError) {
		t.Errorf("无可任教教师应返回 CONFIG_ERROR, got %v", err)
	}
}

func TestCompileNegativePeriods(t *testing.T) {
	grid := testGrid(5, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: -1}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"数学"}, []string{"一班"})}

	_, err := Compile(grid, grades, teachers, nil, nil)
	if !apperrors.Is(err, apperrors.CodeConfigError) {
		t.Errorf("负课时应返回 CONFIG_ERROR, got %v", err)
	}
}

func TestCompileUnknownBudgetTeacher(t *testing.T) {
	grid := testGrid(5, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 2}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"数学"}, []string{"一班"})}

	_, err := Compile(grid, grades, teachers, nil, map[string]int{"不存在": 5})
	if !apperrors.Is(err, apperrors.CodeConfigError) {
		t.Errorf("未知教师预算应返回 CONFIG_ERROR, got %v", err)
	}
}

func TestCompileDomainsAndQuota(t *testing.T) {
	grid := testGrid(5, 2) // 容量10
	grades := []*model.Grade{{
		ID: "一班",
		Demands: []model.SubjectDemand{
			{Subject: "语文", Category: model.CategoryCore, Periods: 4},
			{Subject: "数学", Category: model.CategoryCore, Periods: 4},
		},
	}}
	teachers := []*model.Teacher{
		testTeacher("T1", []string{"语文"}, []string{"一班"}),
		testTeacher("T2", []string{"数学"}, []string{"一班"}),
	}

	m, err := Compile(grid, grades, teachers, nil, nil)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}

	if len(m.Cells) != 10 {
		t.Errorf("格子数 = %d, 期望 10", len(m.Cells))
	}

	// 需求8 + 自习补位2
	quota := m.Quota["一班"]
	if quota["语文"] != 4 || quota["数学"] != 4 {
		t.Errorf("科目配额 = %v", quota)
	}
	if quota["自习"] != 2 {
		t.Errorf("自习配额 = %d, 期望 2", quota["自习"])
	}

	// 每格域：语文×T1、数学×T2、自习
	dom := m.Domains[m.Cells[0]]
	if len(dom) != 3 {
		t.Fatalf("域大小 = %d, 期望 3", len(dom))
	}
	if dom[0] != (Value{Subject: "语文", Teacher: "T1"}) {
		t.Errorf("域首元素 = %+v", dom[0])
	}
	if dom[2] != (Value{Subject: "自习"}) {
		t.Errorf("自习取值 = %+v", dom[2])
	}
}

func TestCompileDayWindowPruning(t *testing.T) {
	grid := testGrid(2, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "体育", Periods: 1}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"体育"}, []string{"一班"})}
	settings := DefaultSettings()
	settings.SubjectWindows = map[string][]string{"体育": {"周二"}}

	m, err := Compile(grid, grades, teachers, settings, nil)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}

	// 周一的格子不应含体育
	for _, cell := range m.Cells {
		for _, v := range m.Domains[cell] {
			if cell.Day == "周一" && v.Subject == "体育" {
				t.Errorf("周一格子 %v 不应含体育", cell)
			}
		}
	}

	// 剪枝记录应含 day_window
	found := false
	for _, p := range m.Pruned {
		if p.Rule == PruneDayWindow && p.Value.Subject == "体育" {
			found = true
		}
	}
	if !found {
		t.Error("缺少时间窗剪枝记录")
	}
}

func TestCompileFixedSubjectPin(t *testing.T) {
	grid := model.NewGrid([]string{"周一"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass, FixedSubject: "班会"},
	})
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 1}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"数学"}, []string{"一班"})}

	m, err := Compile(grid, grades, teachers, nil, nil)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}
	if len(m.Cells) != 1 {
		t.Errorf("待求解格子数 = %d, 期望 1", len(m.Cells))
	}
	if len(m.Fixed) != 1 || m.Fixed[0].Subject != "班会" || !m.Fixed[0].Fixed {
		t.Errorf("固定分配 = %+v", m.Fixed)
	}
}

func TestCompileBudgetMerge(t *testing.T) {
	grid := testGrid(5, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 2}},
	}}
	teacher := testTeacher("T1", []string{"数学"}, []string{"一班"})
	teacher.MaxLoad = 16
	settings := DefaultSettings()
	settings.TeacherWeeklyCaps = map[string]int{"T1": 12}

	m, err := Compile(grid, grades, []*model.Teacher{teacher}, settings, map[string]int{"T1": 8})
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}
	if m.Budgets["T1"] != 8 {
		t.Errorf("预算 = %d, 期望三者最小值 8", m.Budgets["T1"])
	}
}

func TestCompileZeroBudgetTeacherPruned(t *testing.T) {
	grid := testGrid(1, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 1}},
	}}
	teachers := []*model.Teacher{
		testTeacher("T1", []string{"数学"}, []string{"一班"}),
		testTeacher("T2", []string{"数学"}, []string{"一班"}),
	}

	m, err := Compile(grid, grades, teachers, nil, map[string]int{"T1": 0})
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}

	// 预算为零的教师不应出现在任何取值域
	for _, cell := range m.Cells {
		for _, v := range m.Domains[cell] {
			if v.Teacher == "T1" {
				t.Errorf("格子 %v 含预算为零的教师", cell)
			}
		}
	}

	found := false
	for _, p := range m.Pruned {
		if p.Rule == PruneZeroBudget && p.Value.Teacher == "T1" {
			found = true
		}
	}
	if !found {
		t.Error("缺少零预算剪枝记录")
	}
}

func TestModelClone(t *testing.T) {
	grid := testGrid(2, 2)
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 4}},
	}}
	teachers := []*model.Teacher{testTeacher("T1", []string{"数学"}, []string{"一班"})}

	m, err := Compile(grid, grades, teachers, nil, nil)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}

	c := m.Clone()
	c.Quota["一班"]["数学"] = 0
	c.Domains[m.Cells[0]] = nil

	if m.Quota["一班"]["数学"] != 4 {
		t.Error("克隆配额不应影响原模型")
	}
	if len(m.Domains[m.Cells[0]]) == 0 {
		t.Error("克隆取值域不应影响原模型")
	}
}
