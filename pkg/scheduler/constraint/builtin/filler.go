package builtin

import (
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// FillerPenaltyRule 自习补位惩罚：容量超出需求时用自习填充，但每节自习计入重惩罚
// 迫使求解器优先消耗真实科目需求
type FillerPenaltyRule struct {
	*BaseRule
	subject string
}

// NewFillerPenaltyRule 创建自习补位惩罚
func NewFillerPenaltyRule(weight int, subject string) *FillerPenaltyRule {
	return &FillerPenaltyRule{
		BaseRule: NewBaseRule("自习补位", constraint.KindFillerPenalty, constraint.CategorySoft, weight),
		subject:  subject,
	}
}

// Evaluate 评估整张课表：惩罚与自习节数成正比，不产生违规条目
func (r *FillerPenaltyRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	n := 0
	for _, a := range ctx.Timetable.All() {
		if a.Subject == r.subject && !a.Fixed {
			n++
		}
	}
	return true, n * r.Weight(), nil
}

// ScoreAssignment 每节自习补位计一次重惩罚
func (r *FillerPenaltyRule) ScoreAssignment(ctx *constraint.Context, a *model.Assignment) int {
	if a.Subject == r.subject && !a.Fixed {
		return r.Weight()
	}
	return 0
}
