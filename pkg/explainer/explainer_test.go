package explainer

import (
	"context"
	"strings"
	"testing"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/solver"
)

func explainGrid() *model.Grid {
	return model.NewGrid([]string{"周一", "周二"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass, FixedSubject: "班会"},
		{ID: "C", Kind: model.SlotClass},
	})
}

func TestExplainPlacementsAndOccupied(t *testing.T) {
	grid := explainGrid()
	tt := model.NewTimetable()
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "C", Subject: "语文", Teacher: "T2"})

	trace := &solver.Trace{Decisions: []solver.Decision{
		{Step: 3, Cell: model.CellKey{Grade: "一班", Day: "周一", SlotID: "A"}, Chosen: constraint.Value{Subject: "数学", Teacher: "T1"}},
	}}

	ex := Explain(tt, trace, grid, "一班", "数学")

	if len(ex.Placements) != 1 {
		t.Fatalf("落位数 = %d, 期望 1", len(ex.Placements))
	}
	p := ex.Placements[0]
	if p.Day != "周一" || p.SlotID != "A" || p.Teacher != "T1" || p.Step != 3 {
		t.Errorf("落位信息不符: %+v", p)
	}

	// 其余5个授课格均应有落选原因
	if len(ex.Rejections) != 5 {
		t.Fatalf("落选数 = %d, 期望 5", len(ex.Rejections))
	}
	byCell := make(map[string]Rejection)
	for _, r := range ex.Rejections {
		byCell[r.Day+r.SlotID] = r
	}
	if r := byCell["周一B"]; r.Reason != ReasonFixedSubject || r.Subject != "班会" {
		t.Errorf("固定时段归因错误: %+v", r)
	}
	if r := byCell["周一C"]; r.Reason != ReasonOccupied || r.Subject != "语文" {
		t.Errorf("被占用归因错误: %+v", r)
	}
	if r := byCell["周二A"]; r.Reason != ReasonQuotaSatisfied {
		t.Errorf("空格应归因配额已满: %+v", r)
	}
}

func TestExplainPrunedBeatsEmpty(t *testing.T) {
	grid := explainGrid()
	tt := model.NewTimetable()

	cell := model.CellKey{Grade: "一班", Day: "周二", SlotID: "A"}
	trace := &solver.Trace{
		CompilePruned: []constraint.Pruning{
			{Cell: cell, Value: constraint.Value{Subject: "数学", Teacher: "T1"}, Rule: constraint.PruneDayWindow},
		},
		Decisions: []solver.Decision{
			{Step: 1, Cell: model.CellKey{Grade: "二班", Day: "周一", SlotID: "A"},
				Chosen: constraint.Value{Subject: "数学", Teacher: "T1"},
				Pruned: []constraint.Pruning{
					{Cell: model.CellKey{Grade: "一班", Day: "周一", SlotID: "A"},
						Value: constraint.Value{Subject: "数学", Teacher: "T1"},
						Rule:  solver.PruneTeacherBusy},
				}},
		},
	}

	ex := Explain(tt, trace, grid, "一班", "数学")
	byCell := make(map[string]Rejection)
	for _, r := range ex.Rejections {
		byCell[r.Day+r.SlotID] = r
	}

	if r := byCell["周二A"]; r.Reason != ReasonPruned || r.Rule != constraint.PruneDayWindow {
		t.Errorf("编译期剪枝归因错误: %+v", r)
	}
	if r := byCell["周一A"]; r.Reason != ReasonPruned || r.Rule != solver.PruneTeacherBusy {
		t.Errorf("搜索期剪枝归因错误: %+v", r)
	}
}

func TestExplainEndToEnd(t *testing.T) {
	// 跑一次真实搜索，解释结果应自洽：落位+落选 = 全部授课格
	grid := model.NewGrid([]string{"周一", "周二"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass},
	})
	grades := []*model.Grade{{ID: "一班", Demands: []model.SubjectDemand{
		{Subject: "数学", Periods: 2},
		{Subject: "语文", Periods: 2},
	}}}
	teachers := []*model.Teacher{
		{ID: "T1", Subjects: []string{"数学"}, Grades: []string{"一班"}},
		{ID: "T2", Subjects: []string{"语文"}, Grades: []string{"一班"}},
	}

	m, err := constraint.Compile(grid, grades, teachers, nil, nil)
	if err != nil {
		t.Fatalf("编译失败: %v", err)
	}
	sol, err := solver.Search(context.Background(), m, solver.ModeJoint, nil)
	if err != nil || !sol.Feasible {
		t.Fatalf("搜索失败: %v", err)
	}

	ex := Explain(sol.Timetable, sol.Trace, grid, "一班", "数学")
	if len(ex.Placements) != 2 {
		t.Errorf("数学落位数 = %d, 期望 2", len(ex.Placements))
	}
	if len(ex.Placements)+len(ex.Rejections) != 4 {
		t.Errorf("落位+落选 = %d, 期望覆盖全部4格", len(ex.Placements)+len(ex.Rejections))
	}
	for _, p := range ex.Placements {
		if p.Teacher != "T1" {
			t.Errorf("数学应由T1任教: %+v", p)
		}
	}
}

func TestRender(t *testing.T) {
	ex := &Explanation{
		Grade:   "一班",
		Subject: "数学",
		Placements: []Placement{
			{Day: "周一", SlotID: "A", Teacher: "T1"},
		},
		Rejections: []Rejection{
			{Day: "周一", SlotID: "B", Reason: ReasonOccupied, Subject: "语文"},
			{Day: "周二", SlotID: "A", Reason: ReasonPruned, Rule: solver.PruneTeacherBusy},
		},
	}

	out := ex.Render()
	for _, want := range []string{"一班 数学", "✓ 周一 A T1", "已排 语文", "教师该时段在其它年级上课"} {
		if !strings.Contains(out, want) {
			t.Errorf("渲染缺少 %q:\n%s", want, out)
		}
	}
}

func TestRenderUnplaced(t *testing.T) {
	ex := &Explanation{Grade: "一班", Subject: "音乐"}
	if !strings.Contains(ex.Render(), "本周未排") {
		t.Error("无落位时应提示未排")
	}
}
