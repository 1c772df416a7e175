package builtin

import (
	"fmt"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// TeacherClashRule 教师冲突约束：同一（天,时段）一名教师只能出现在一个年级
type TeacherClashRule struct {
	*BaseRule
}

// NewTeacherClashRule 创建教师冲突约束
func NewTeacherClashRule() *TeacherClashRule {
	return &TeacherClashRule{
		BaseRule: NewBaseRule("教师冲突", constraint.KindTeacherClash, constraint.CategoryHard, 100),
	}
}

// Evaluate 评估整张课表
func (r *TeacherClashRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	isValid := true

	for _, day := range ctx.Grid.Days {
		for _, slot := range ctx.Grid.ClassSlots() {
			seen := make(map[string]string) // 教师 -> 首个年级
			for _, a := range ctx.SlotAssignments(day, slot.ID) {
				if a.Teacher == "" {
					continue
				}
				if first, dup := seen[a.Teacher]; dup {
					isValid = false
					violations = append(violations, model.Violation{
						Kind:     model.ViolationTeacherClash,
						Severity: r.severity(),
						Teacher:  a.Teacher,
						Grade:    a.Grade,
						Day:      day,
						SlotID:   slot.ID,
						Message:  fmt.Sprintf("教师 %s 在 %s/%s 同时被排到年级 %s 和 %s", a.Teacher, day, slot.ID, first, a.Grade),
						Penalty:  r.Weight(),
					})
				} else {
					seen[a.Teacher] = a.Grade
				}
			}
		}
	}

	return isValid, len(violations) * r.Weight(), violations
}

// GradeClashRule 年级冲突约束：同一年级同一（天,时段）只能有一个分配
// 课表结构按键存储本已排除重复键，此约束兜底检查外部输入的分配列表
type GradeClashRule struct {
	*BaseRule
}

// NewGradeClashRule 创建年级冲突约束
func NewGradeClashRule() *GradeClashRule {
	return &GradeClashRule{
		BaseRule: NewBaseRule("年级冲突", constraint.KindGradeClash, constraint.CategoryHard, 100),
	}
}

// Evaluate 评估整张课表
func (r *GradeClashRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	isValid := true

	for _, day := range ctx.Grid.Days {
		for _, slot := range ctx.Grid.ClassSlots() {
			seen := make(map[string]bool)
			for _, a := range ctx.SlotAssignments(day, slot.ID) {
				if seen[a.Grade] {
					isValid = false
					violations = append(violations, model.Violation{
						Kind:     model.ViolationGradeClash,
						Severity: r.severity(),
						Grade:    a.Grade,
						Day:      day,
						SlotID:   slot.ID,
						Message:  fmt.Sprintf("年级 %s 在 %s/%s 有多个分配", a.Grade, day, slot.ID),
						Penalty:  r.Weight(),
					})
				}
				seen[a.Grade] = true
			}
		}
	}

	return isValid, len(violations) * r.Weight(), violations
}

// BlankSlotRule 空档约束：每个年级的每个授课时段必须有分配
type BlankSlotRule struct {
	*BaseRule
}

// NewBlankSlotRule 创建空档约束
func NewBlankSlotRule() *BlankSlotRule {
	return &BlankSlotRule{
		BaseRule: NewBaseRule("授课时段留空", constraint.KindBlankSlot, constraint.CategoryHard, 100),
	}
}

// Evaluate 评估整张课表
func (r *BlankSlotRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	var violations []model.Violation
	isValid := true

	for _, g := range ctx.Grades {
		for _, day := range ctx.Grid.Days {
			for _, slot := range ctx.Grid.ClassSlots() {
				if !ctx.Timetable.Occupied(g.ID, day, slot.ID) {
					isValid = false
					violations = append(violations, model.Violation{
						Kind:     model.ViolationBlankSlot,
						Severity: r.severity(),
						Grade:    g.ID,
						Day:      day,
						SlotID:   slot.ID,
						Message:  fmt.Sprintf("年级 %s 在 %s/%s 留空", g.ID, day, slot.ID),
						Penalty:  r.Weight(),
					})
				}
			}
		}
	}

	return isValid, len(violations) * r.Weight(), violations
}
