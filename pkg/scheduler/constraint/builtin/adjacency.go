package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// AdjacencyCapRule 相邻重复约束：同一年级同一天内，同科目连排长度不超过上限
// 上限为1时即禁止同科目背靠背
type AdjacencyCapRule struct {
	*BaseRule
	maxRun int
}

// NewAdjacencyCapRule 创建相邻重复约束
func NewAdjacencyCapRule(weight, maxRun int) *AdjacencyCapRule {
	if maxRun < 1 {
		maxRun = 1
	}
	return &AdjacencyCapRule{
		BaseRule: NewBaseRule("同科目相邻重复", constraint.KindAdjacencyCap, constraint.CategorySoft, weight),
		maxRun:   maxRun,
	}
}

// Evaluate 评估整张课表
func (r *AdjacencyCapRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	totalPenalty := 0

	for _, g := range ctx.Grades {
		for _, day := range ctx.Grid.Days {
			slots := ctx.Grid.ClassSlots()
			run := 1
			for i := 1; i < len(slots); i++ {
				prev := ctx.Timetable.Get(g.ID, day, slots[i-1].ID)
				cur := ctx.Timetable.Get(g.ID, day, slots[i].ID)
				if prev != nil && cur != nil && prev.Subject == cur.Subject {
					run++
					if run > r.maxRun {
						totalPenalty += r.Weight()
						violations = append(violations, model.Violation{
							Kind:     model.ViolationAdjacencyCap,
							Severity: r.severity(),
							Grade:    g.ID,
							Day:      day,
							SlotID:   slots[i].ID,
							Subject:  cur.Subject,
							Message:  fmt.Sprintf("年级 %s %s 科目 %s 连排 %d 节，超过上限 %d", g.ID, day, cur.Subject, run, r.maxRun),
							Penalty:  r.Weight(),
						})
					}
				} else {
					run = 1
				}
			}
		}
	}

	return true, totalPenalty, violations
}

// ScoreAssignment 统计放入后新增的相邻同科目
func (r *AdjacencyCapRule) ScoreAssignment(ctx *constraint.Context, a *model.Assignment) int {
	penalty := 0
	slots := ctx.Grid.ClassSlots()
	for i, slot := range slots {
		if slot.ID != a.SlotID {
			continue
		}
		if i > 0 {
			if prev := ctx.Timetable.Get(a.Grade, a.Day, slots[i-1].ID); prev != nil && prev.Subject == a.Subject {
				penalty += r.Weight()
			}
		}
		if i+1 < len(slots) {
			if next := ctx.Timetable.Get(a.Grade, a.Day, slots[i+1].ID); next != nil && next.Subject == a.Subject {
				penalty += r.Weight()
			}
		}
		break
	}
	return penalty
}
