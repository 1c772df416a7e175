package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// SameSlotCapRule 同时段重复约束：同一年级同一科目一周内出现在同一时段的次数不超过上限
// 防止某科目每天都排在同一节
type SameSlotCapRule struct {
	*BaseRule
	maxRepeat int
}

// NewSameSlotCapRule 创建同时段重复约束
func NewSameSlotCapRule(weight, maxRepeat int) *SameSlotCapRule {
	if maxRepeat < 1 {
		maxRepeat = 1
	}
	return &SameSlotCapRule{
		BaseRule:  NewBaseRule("同科目同时段重复", constraint.KindSameSlotCap, constraint.CategorySoft, weight),
		maxRepeat: maxRepeat,
	}
}

// Evaluate 评估整张课表
func (r *SameSlotCapRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	totalPenalty := 0

	for _, g := range ctx.Grades {
		for _, slot := range ctx.Grid.ClassSlots() {
			counts := make(map[string]int)
			for _, day := range ctx.Grid.Days {
				if a := ctx.Timetable.Get(g.ID, day, slot.ID); a != nil {
					counts[a.Subject]++
				}
			}
			for subject, n := range counts {
				if n > r.maxRepeat {
					penalty := r.Weight() * (n - r.maxRepeat)
					totalPenalty += penalty
					violations = append(violations, model.Violation{
						Kind:     model.ViolationSameSlotCap,
						Severity: r.severity(),
						Grade:    g.ID,
						SlotID:   slot.ID,
						Subject:  subject,
						Message:  fmt.Sprintf("年级 %s 科目 %s 一周内在时段 %s 出现 %d 次，超过上限 %d", g.ID, subject, slot.ID, n, r.maxRepeat),
						Penalty:  penalty,
					})
				}
			}
		}
	}

	return true, totalPenalty, violations
}

// ScoreAssignment 统计放入后同时段重复的超限量
func (r *SameSlotCapRule) ScoreAssignment(ctx *constraint.Context, a *model.Assignment) int {
	n := 0
	for _, day := range ctx.Grid.Days {
		if day == a.Day {
			continue
		}
		if existing := ctx.Timetable.Get(a.Grade, day, a.SlotID); existing != nil && existing.Subject == a.Subject {
			n++
		}
	}
	if n+1 > r.maxRepeat {
		return r.Weight() * (n + 1 - r.maxRepeat)
	}
	return 0
}
