package builtin

import (
	"testing"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

func testContext() *constraint.Context {
	grid := model.NewGrid([]string{"周一", "周二"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass},
		{ID: "R", Kind: model.SlotBreak},
		{ID: "C", Kind: model.SlotClass},
	})
	grades := []*model.Grade{
		{ID: "一班", Demands: []model.SubjectDemand{{Subject: "数学", Periods: 3}}},
		{ID: "二班", Demands: []model.SubjectDemand{{Subject: "数学", Periods: 3}}},
	}
	teachers := []*model.Teacher{
		{ID: "T1", Name: "王老师", Subjects: []string{"数学"}, Grades: []string{"一班", "二班"}},
	}
	return constraint.NewContext(grid, grades, teachers)
}

func TestTeacherClashRule(t *testing.T) {
	ctx := testContext()
	tt := model.NewTimetable()
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "二班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"})
	ctx.SetTimetable(tt)

	rule := NewTeacherClashRule()
	valid, penalty, violations := rule.Evaluate(ctx)
	if valid {
		t.Error("教师同时段双排应无效")
	}
	if len(violations) != 1 {
		t.Fatalf("违规数 = %d, 期望 1", len(violations))
	}
	if violations[0].Kind != model.ViolationTeacherClash {
		t.Errorf("违规类型 = %s", violations[0].Kind)
	}
	if penalty == 0 {
		t.Error("应有惩罚")
	}
}

func TestAdjacencyCapRuleExactlyOne(t *testing.T) {
	ctx := testContext()
	tt := model.NewTimetable()
	// 周一 A/B 连排数学，一处违规；周二不违规
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "B", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "一班", Day: "周二", SlotID: "A", Subject: "数学", Teacher: "T1"})
	ctx.SetTimetable(tt)

	rule := NewAdjacencyCapRule(6, 1)
	_, penalty, violations := rule.Evaluate(ctx)
	if len(violations) != 1 {
		t.Fatalf("相邻违规数 = %d, 期望恰好 1", len(violations))
	}
	if violations[0].Kind != model.ViolationAdjacencyCap {
		t.Errorf("违规类型 = %s", violations[0].Kind)
	}
	if penalty != 6 {
		t.Errorf("惩罚 = %d, 期望 6", penalty)
	}
}

func TestAdjacencyIgnoresBreakGap(t *testing.T) {
	ctx := testContext()
	tt := model.NewTimetable()
	// B 与 C 之间隔休息时段，连排计数照样延续
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "B", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "C", Subject: "数学", Teacher: "T1"})
	ctx.SetTimetable(tt)

	rule := NewAdjacencyCapRule(6, 1)
	_, _, violations := rule.Evaluate(ctx)
	if len(violations) != 1 {
		t.Errorf("隔休息连排违规数 = %d, 期望 1", len(violations))
	}
}

func TestSameSlotCapRule(t *testing.T) {
	grid := model.NewGrid([]string{"周一", "周二", "周三"}, []model.Slot{{ID: "A", Kind: model.SlotClass}})
	grades := []*model.Grade{{ID: "一班", Demands: []model.SubjectDemand{{Subject: "数学", Periods: 3}}}}
	ctx := constraint.NewContext(grid, grades, nil)

	tt := model.NewTimetable()
	for _, day := range grid.Days {
		tt.Place(&model.Assignment{Grade: "一班", Day: day, SlotID: "A", Subject: "数学", Teacher: "T1"})
	}
	ctx.SetTimetable(tt)

	rule := NewSameSlotCapRule(2, 2)
	_, penalty, violations := rule.Evaluate(ctx)
	if len(violations) != 1 {
		t.Fatalf("同时段违规数 = %d, 期望 1", len(violations))
	}
	// 3次出现，上限2，超出1次 × 权重2
	if penalty != 2 {
		t.Errorf("惩罚 = %d, 期望 2", penalty)
	}
}

func TestStaffingBudgetRule(t *testing.T) {
	ctx := testContext()
	ctx.Budgets = map[string]int{"T1": 1}

	// 预算1节，实排2节
	tt := model.NewTimetable()
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "二班", Day: "周二", SlotID: "A", Subject: "数学", Teacher: "T1"})
	ctx.SetTimetable(tt)

	rule := NewStaffingBudgetRule()
	valid, _, violations := rule.Evaluate(ctx)
	if valid {
		t.Error("超预算课表应无效")
	}
	if len(violations) != 1 || violations[0].Kind != model.ViolationStaffingBudget {
		t.Errorf("违规 = %+v", violations)
	}
}

func TestEligibilityRule(t *testing.T) {
	ctx := testContext()
	tt := model.NewTimetable()
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "语文", Teacher: "T1"})
	ctx.SetTimetable(tt)

	rule := NewEligibilityRule()
	valid, _, violations := rule.Evaluate(ctx)
	if valid {
		t.Error("资质不符应无效")
	}
	if len(violations) != 1 || violations[0].Kind != model.ViolationEligibility {
		t.Errorf("违规 = %+v", violations)
	}

	// 自习无需教师，不计资质违规
	tt.Place(&model.Assignment{Grade: "一班", Day: "周二", SlotID: "A", Subject: "自习"})
	ctx.SetTimetable(tt)
	_, _, violations = rule.Evaluate(ctx)
	if len(violations) != 1 {
		t.Errorf("自习分配后违规数 = %d, 期望仍为 1", len(violations))
	}
}

func TestSoftRuleScoreAssignment(t *testing.T) {
	ctx := testContext()
	tt := model.NewTimetable()
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"})
	tt.Place(&model.Assignment{Grade: "一班", Day: "周二", SlotID: "A", Subject: "数学", Teacher: "T1"})
	ctx.SetTimetable(tt)

	next := &model.Assignment{Grade: "一班", Day: "周一", SlotID: "B", Subject: "数学", Teacher: "T1"}

	// 周一 A 已是数学，放 B 产生一次相邻
	if got := NewAdjacencyCapRule(6, 1).ScoreAssignment(ctx, next); got != 6 {
		t.Errorf("相邻增量 = %d, 期望 6", got)
	}
	// T1 已带2节，均衡增量与当前负荷成正比
	if got := NewWorkloadBalanceRule(1, 2).ScoreAssignment(ctx, next); got != 2 {
		t.Errorf("均衡增量 = %d, 期望 2", got)
	}
	// 周一 A 已是数学，周二再放 A 超出上限1
	rep := &model.Assignment{Grade: "一班", Day: "周二", SlotID: "A", Subject: "数学", Teacher: "T1"}
	if got := NewSameSlotCapRule(2, 1).ScoreAssignment(ctx, rep); got != 2 {
		t.Errorf("同时段增量 = %d, 期望 2", got)
	}
	filler := &model.Assignment{Grade: "一班", Day: "周一", SlotID: "B", Subject: "自习"}
	if got := NewFillerPenaltyRule(10000, "自习").ScoreAssignment(ctx, filler); got != 10000 {
		t.Errorf("自习增量 = %d, 期望 10000", got)
	}
}

func TestFillerPenaltyRule(t *testing.T) {
	ctx := testContext()
	tt := model.NewTimetable()
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "自习"})
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "B", Subject: "数学", Teacher: "T1"})
	ctx.SetTimetable(tt)

	rule := NewFillerPenaltyRule(10000, "自习")
	_, penalty, violations := rule.Evaluate(ctx)
	if penalty != 10000 {
		t.Errorf("惩罚 = %d, 期望 10000", penalty)
	}
	if violations != nil {
		t.Error("自习补位不应产生违规条目")
	}
}

func TestWorkloadBalanceRule(t *testing.T) {
	grid := model.NewGrid([]string{"周一", "周二", "周三", "周四", "周五"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass},
	})
	teachers := []*model.Teacher{
		{ID: "T1", Name: "王老师", Subjects: []string{"数学"}, Grades: []string{"一班"}},
		{ID: "T2", Name: "李老师", Subjects: []string{"数学"}, Grades: []string{"一班"}},
	}
	ctx := constraint.NewContext(grid, []*model.Grade{{ID: "一班"}}, teachers)

	// T1 排10节、T2 排1节，偏差远超容忍
	tt := model.NewTimetable()
	for _, day := range grid.Days {
		tt.Place(&model.Assignment{Grade: "一班", Day: day, SlotID: "A", Subject: "数学", Teacher: "T1"})
		tt.Place(&model.Assignment{Grade: "二班", Day: day, SlotID: "A", Subject: "数学", Teacher: "T1"})
	}
	tt.Place(&model.Assignment{Grade: "一班", Day: "周一", SlotID: "B", Subject: "数学", Teacher: "T2"})
	ctx.SetTimetable(tt)

	rule := NewWorkloadBalanceRule(1, 2)
	_, penalty, violations := rule.Evaluate(ctx)
	if penalty == 0 {
		t.Error("严重失衡应有惩罚")
	}
	hasSkew := false
	for _, v := range violations {
		if v.Kind == model.ViolationWorkloadSkew {
			hasSkew = true
		}
	}
	if !hasSkew {
		t.Error("应报告负荷失衡违规")
	}
}

func TestDefaultsOrdering(t *testing.T) {
	m := constraint.NewManager()
	RegisterDefaults(m, nil)

	all := m.All()
	if len(all) != 9 {
		t.Fatalf("内置约束数 = %d, 期望 9", len(all))
	}
	// 硬约束应排在软约束之前
	sawSoft := false
	for _, r := range all {
		if r.Category() == constraint.CategorySoft {
			sawSoft = true
		} else if sawSoft {
			t.Fatal("硬约束不应出现在软约束之后")
		}
	}
}
