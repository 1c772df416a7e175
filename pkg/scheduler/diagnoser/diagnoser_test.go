package diagnoser

import (
	"context"
	"testing"
	"time"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

func diagGrid() *model.Grid {
	return model.NewGrid([]string{"周一", "周二"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass},
	})
}

func TestDiagnoseFeasibleInput(t *testing.T) {
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 2}},
	}}
	teachers := []*model.Teacher{{ID: "T1", Subjects: []string{"数学"}, Grades: []string{"一班"}}}

	d := New(diagGrid(), grades, teachers, nil, nil, time.Second)
	diag := d.Diagnose(context.Background())

	if !diag.Feasible {
		t.Fatal("可行输入的诊断应直接通过")
	}
	if len(diag.Core) != 0 {
		t.Errorf("可行输入不应有放松集: %+v", diag.Core)
	}
	if !diag.MinimalityProven {
		t.Error("未超时应证明最小性")
	}
}

func TestDiagnoseBudgetShortfall(t *testing.T) {
	// 唯一可任教教师预算2，需求4 → 最小核应为预算加2
	grades := []*model.Grade{{
		ID:      "一班",
		Demands: []model.SubjectDemand{{Subject: "数学", Periods: 4}},
	}}
	teachers := []*model.Teacher{{ID: "T1", Subjects: []string{"数学"}, Grades: []string{"一班"}}}

	d := New(diagGrid(), grades, teachers, nil, map[string]int{"T1": 2}, time.Second)
	diag := d.Diagnose(context.Background())

	if !diag.Feasible {
		t.Fatalf("放松后应可行, 初始缺口 %d", diag.InitialDeficit)
	}
	if diag.InitialDeficit != 2 {
		t.Errorf("初始缺口 = %d, 期望 2", diag.InitialDeficit)
	}

	hasBudget := false
	for _, r := range diag.Core {
		if r.Kind == RelaxRaiseBudget && r.Teacher == "T1" {
			hasBudget = true
			if r.Amount != 2 {
				t.Errorf("预算放松量 = %d, 期望 2", r.Amount)
			}
		}
	}
	if !hasBudget {
		t.Errorf("核应包含预算放松: %+v", diag.Core)
	}
}

func TestDiagnoseCoreMinimality(t *testing.T) {
	// 需求6超过容量4：最小核应恰好减2节，不含多余动作
	grades := []*model.Grade{{
		ID: "一班",
		Demands: []model.SubjectDemand{
			{Subject: "数学", Category: model.CategoryCore, Periods: 4},
			{Subject: "体育", Category: model.CategoryStandard, Periods: 2},
		},
	}}
	teachers := []*model.Teacher{
		{ID: "T1", Subjects: []string{"数学"}, Grades: []string{"一班"}},
		{ID: "T2", Subjects: []string{"体育"}, Grades: []string{"一班"}},
	}

	d := New(diagGrid(), grades, teachers, nil, nil, time.Second)
	diag := d.Diagnose(context.Background())

	if !diag.Feasible || !diag.MinimalityProven {
		t.Fatalf("应可行且最小性已证明: %+v", diag)
	}

	totalReduced := 0
	for _, r := range diag.Core {
		if r.Kind != RelaxReduceDemand {
			t.Errorf("容量超限只需减需求, 出现 %s", r.Kind)
		}
		totalReduced += r.Amount
	}
	if totalReduced != 2 {
		t.Errorf("总削减 = %d, 期望恰好 2", totalReduced)
	}

	// 核中任一成员再削减都应破坏可行性之外——即每个成员都必要
	for _, r := range diag.Core {
		if r.Amount == 0 {
			t.Errorf("核不应包含零量成员: %+v", r)
		}
	}
}

func TestDiagnoseRelaxNonCoreOnly(t *testing.T) {
	grades := []*model.Grade{{
		ID: "一班",
		Demands: []model.SubjectDemand{
			{Subject: "数学", Category: model.CategoryCore, Periods: 4},
			{Subject: "体育", Category: model.CategoryStandard, Periods: 2},
		},
	}}
	teachers := []*model.Teacher{
		{ID: "T1", Subjects: []string{"数学"}, Grades: []string{"一班"}},
		{ID: "T2", Subjects: []string{"体育"}, Grades: []string{"一班"}},
	}
	settings := constraint.DefaultSettings()
	settings.RelaxNonCoreMinima = true

	d := New(diagGrid(), grades, teachers, settings, nil, time.Second)
	diag := d.Diagnose(context.Background())

	if !diag.Feasible {
		t.Fatal("削减体育2节即可行")
	}
	for _, r := range diag.Core {
		if r.Kind == RelaxReduceDemand && r.Subject == "数学" {
			t.Error("开启 RelaxNonCoreMinima 后不应削减核心科目")
		}
	}
}

func TestDiagnoseEligibilityRelaxation(t *testing.T) {
	// 一班数学无人任教，但 T2 会教数学（带二班）→ 核应放开 T2 的资质
	grades := []*model.Grade{
		{ID: "一班", Demands: []model.SubjectDemand{{Subject: "数学", Category: model.CategoryCore, Periods: 2}}},
		{ID: "二班", Demands: []model.SubjectDemand{{Subject: "数学", Category: model.CategoryCore, Periods: 2}}},
	}
	teachers := []*model.Teacher{{ID: "T2", Subjects: []string{"数学"}, Grades: []string{"二班"}}}
	settings := constraint.DefaultSettings()
	settings.RelaxNonCoreMinima = true // 核心科目不可削减，只能放资质

	d := New(diagGrid(), grades, teachers, settings, nil, time.Second)
	diag := d.Diagnose(context.Background())

	if !diag.Feasible {
		t.Fatalf("放开资质后应可行: %+v", diag)
	}
	found := false
	for _, r := range diag.Core {
		if r.Kind == RelaxAddEligibility && r.Teacher == "T2" && r.Grade == "一班" {
			found = true
		}
	}
	if !found {
		t.Errorf("核应包含资质放松: %+v", diag.Core)
	}
}

func TestDiagnoseTimeoutReturnsPartial(t *testing.T) {
	// 超短超时：必须立刻返回且标记未证明最小性
	var demands []model.SubjectDemand
	subjects := []string{"语文", "数学", "英语", "物理", "化学", "生物", "历史", "地理"}
	for _, s := range subjects {
		demands = append(demands, model.SubjectDemand{Subject: s, Periods: 3})
	}
	grades := []*model.Grade{{ID: "一班", Demands: demands}} // 需求24 >> 容量4
	var teachers []*model.Teacher
	for _, s := range subjects {
		teachers = append(teachers, &model.Teacher{ID: "T" + s, Subjects: []string{s}, Grades: []string{"一班"}})
	}

	d := New(diagGrid(), grades, teachers, nil, nil, time.Nanosecond)
	start := time.Now()
	diag := d.Diagnose(context.Background())

	if time.Since(start) > 2*time.Second {
		t.Fatal("超时后不应继续运行")
	}
	if diag.MinimalityProven {
		t.Error("超时中断应标记 MinimalityProven=false")
	}
}
