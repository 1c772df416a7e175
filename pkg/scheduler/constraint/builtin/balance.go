package builtin

import (
	"fmt"
	"math"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// WorkloadBalanceRule 教师负荷均衡约束：周课时尽量接近平均值
type WorkloadBalanceRule struct {
	*BaseRule
	tolerance float64 // 允许偏离平均值的课时数
}

// NewWorkloadBalanceRule 创建负荷均衡约束
func NewWorkloadBalanceRule(weight int, tolerance float64) *WorkloadBalanceRule {
	if tolerance <= 0 {
		tolerance = 2
	}
	return &WorkloadBalanceRule{
		BaseRule:  NewBaseRule("教师负荷均衡", constraint.KindWorkloadBalance, constraint.CategorySoft, weight),
		tolerance: tolerance,
	}
}

// Evaluate 评估整张课表
func (r *WorkloadBalanceRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	totalPenalty := 0

	// 只统计实际带课的教师
	loads := make(map[string]int)
	for _, t := range ctx.Teachers {
		if load := ctx.TeacherLoad(t.ID); load > 0 {
			loads[t.ID] = load
		}
	}
	if len(loads) < 2 {
		return true, 0, nil
	}

	total := 0
	for _, load := range loads {
		total += load
	}
	avg := float64(total) / float64(len(loads))

	for _, t := range ctx.Teachers {
		load, ok := loads[t.ID]
		if !ok {
			continue
		}
		deviation := float64(load) - avg
		if math.Abs(deviation) > r.tolerance {
			penalty := int(math.Abs(deviation)-r.tolerance) * r.Weight()
			if penalty <= 0 {
				continue
			}
			totalPenalty += penalty
			violations = append(violations, model.Violation{
				Kind:     model.ViolationWorkloadSkew,
				Severity: r.severity(),
				Teacher:  t.ID,
				Message:  fmt.Sprintf("教师 %s 周课时 %d，偏离平均 %.1f 节", t.Name, load, deviation),
				Penalty:  penalty,
			})
		}
	}

	return true, totalPenalty, violations
}

// ScoreAssignment 偏向负荷较轻的教师：增量与当前负荷成正比
func (r *WorkloadBalanceRule) ScoreAssignment(ctx *constraint.Context, a *model.Assignment) int {
	if a.Teacher == "" {
		return 0
	}
	return r.Weight() * ctx.TeacherLoad(a.Teacher)
}
