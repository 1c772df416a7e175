package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// StaffingBudgetRule 教师课时预算约束：教师周课时不得超过预算
// 预算来自 MaxLoad、配置的周上限与段级预算的最小值
type StaffingBudgetRule struct {
	*BaseRule
}

// NewStaffingBudgetRule 创建教师课时预算约束
func NewStaffingBudgetRule() *StaffingBudgetRule {
	return &StaffingBudgetRule{
		BaseRule: NewBaseRule("教师课时预算", constraint.KindBudget, constraint.CategoryHard, 100),
	}
}

// Evaluate 评估整张课表
func (r *StaffingBudgetRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	isValid := true

	for _, t := range ctx.Teachers {
		budget, ok := ctx.Budget(t.ID)
		if !ok {
			continue
		}
		load := ctx.TeacherLoad(t.ID)
		if load > budget {
			isValid = false
			penalty := r.Weight() * (load - budget)
			violations = append(violations, model.Violation{
				Kind:     model.ViolationStaffingBudget,
				Severity: r.severity(),
				Teacher:  t.ID,
				Message:  fmt.Sprintf("教师 %s 周课时 %d 超过预算 %d", t.Name, load, budget),
				Penalty:  penalty,
			})
		}
	}

	return isValid, sumPenalty(violations), violations
}

// EligibilityRule 资质约束：分配的教师必须可教该年级该科目
// 自习补位分配不需要教师
type EligibilityRule struct {
	*BaseRule
}

// NewEligibilityRule 创建资质约束
func NewEligibilityRule() *EligibilityRule {
	return &EligibilityRule{
		BaseRule: NewBaseRule("教师资质", constraint.KindEligibility, constraint.CategoryHard, 100),
	}
}

// Evaluate 评估整张课表
func (r *EligibilityRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	isValid := true

	for _, a := range ctx.Timetable.All() {
		if a.Teacher == "" || a.Fixed {
			continue
		}
		t := ctx.Teacher(a.Teacher)
		if t == nil || !t.CanTeach(a.Subject, a.Grade) {
			isValid = false
			violations = append(violations, model.Violation{
				Kind:     model.ViolationEligibility,
				Severity: r.severity(),
				Teacher:  a.Teacher,
				Grade:    a.Grade,
				Day:      a.Day,
				SlotID:   a.SlotID,
				Subject:  a.Subject,
				Message:  fmt.Sprintf("教师 %s 无年级 %s 科目 %s 的任教资质", a.Teacher, a.Grade, a.Subject),
				Penalty:  r.Weight(),
			})
		}
	}

	return isValid, sumPenalty(violations), violations
}

// sumPenalty 违规惩罚求和
func sumPenalty(violations []model.Violation) int {
	total := 0
	for _, v := range violations {
		total += v.Penalty
	}
	return total
}
