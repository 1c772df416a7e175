// Package explainer 基于搜索轨迹解释排课结果：某科目为何排在这些格子、为何不在其它格子
package explainer

import (
	"fmt"
	"strings"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/solver"
)

// 落选原因标识
const (
	ReasonFixedSubject   = "fixed_subject"   // 时段被固定科目占用
	ReasonNotAssignable  = "not_assignable"  // 休息/午餐时段
	ReasonPruned         = "pruned"          // 候选在编译期或搜索期被剪掉
	ReasonOccupied       = "occupied"        // 格子被其它科目占用
	ReasonQuotaSatisfied = "quota_satisfied" // 科目周课时已排满，无需此格
)

// Placement 科目的一次实际落位
type Placement struct {
	Day     string `json:"day"`
	SlotID  string `json:"slot_id"`
	Teacher string `json:"teacher,omitempty"`
	Step    int    `json:"step,omitempty"` // 搜索第几步决定，固定格为0
}

// Rejection 某格子落选的原因
type Rejection struct {
	Day     string `json:"day"`
	SlotID  string `json:"slot_id"`
	Reason  string `json:"reason"`
	Rule    string `json:"rule,omitempty"`    // Reason 为 pruned 时的剪枝规则
	Subject string `json:"subject,omitempty"` // Reason 为 occupied 时占用的科目
}

// Explanation 对（年级,科目）的完整解释
type Explanation struct {
	Grade      string      `json:"grade"`
	Subject    string      `json:"subject"`
	Placements []Placement `json:"placements"`
	Rejections []Rejection `json:"rejections"`
}

// Explain 解释某年级某科目的排布
// 只读操作：落位来自课表，落选原因按 固定占用 > 剪枝记录 > 被占用 > 配额已满 归因
func Explain(tt *model.Timetable, trace *solver.Trace, grid *model.Grid, grade, subject string) *Explanation {
	ex := &Explanation{Grade: grade, Subject: subject}

	for _, day := range grid.Days {
		for i := range grid.Slots {
			slot := &grid.Slots[i]
			if slot.Kind != model.SlotClass {
				continue
			}
			cell := model.CellKey{Grade: grade, Day: day, SlotID: slot.ID}
			a := tt.Get(grade, day, slot.ID)

			if a != nil && a.Subject == subject {
				p := Placement{Day: day, SlotID: slot.ID, Teacher: a.Teacher}
				if trace != nil {
					if d := trace.DecisionFor(cell); d != nil {
						p.Step = d.Step
					}
				}
				ex.Placements = append(ex.Placements, p)
				continue
			}

			ex.Rejections = append(ex.Rejections, rejection(cell, slot, a, trace, subject))
		}
	}
	return ex
}

// rejection 归因单个落选格子
func rejection(cell model.CellKey, slot *model.Slot, a *model.Assignment, trace *solver.Trace, subject string) Rejection {
	r := Rejection{Day: cell.Day, SlotID: cell.SlotID}

	if slot.FixedSubject != "" {
		r.Reason = ReasonFixedSubject
		r.Subject = slot.FixedSubject
		return r
	}

	if trace != nil {
		for _, p := range trace.PrunedAt(cell) {
			if p.Value.Subject != subject {
				continue
			}
			r.Reason = ReasonPruned
			r.Rule = p.Rule
			return r
		}
	}

	if a != nil {
		r.Reason = ReasonOccupied
		r.Subject = a.Subject
		return r
	}

	r.Reason = ReasonQuotaSatisfied
	return r
}

// Render 渲染为人类可读的多行文本
func (e *Explanation) Render() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", e.Grade, e.Subject)

	if len(e.Placements) == 0 {
		b.WriteString("  本周未排\n")
	}
	for _, p := range e.Placements {
		fmt.Fprintf(&b, "  ✓ %s %s", p.Day, p.SlotID)
		if p.Teacher != "" {
			fmt.Fprintf(&b, " %s", p.Teacher)
		}
		b.WriteString("\n")
	}

	for _, r := range e.Rejections {
		fmt.Fprintf(&b, "  ✗ %s %s: %s", r.Day, r.SlotID, describe(r))
		b.WriteString("\n")
	}
	return b.String()
}

// describe 单条落选原因的中文描述
func describe(r Rejection) string {
	switch r.Reason {
	case ReasonFixedSubject:
		return fmt.Sprintf("固定科目 %s 占用", r.Subject)
	case ReasonPruned:
		switch r.Rule {
		case solver.PruneTeacherBusy:
			return "教师该时段在其它年级上课"
		case solver.PruneQuotaExhausted:
			return "科目周课时配额已用完"
		case solver.PruneBudgetExhausted:
			return "教师周课时预算已用完"
		default:
			return fmt.Sprintf("被规则 %s 剪除", r.Rule)
		}
	case ReasonOccupied:
		return fmt.Sprintf("已排 %s", r.Subject)
	case ReasonQuotaSatisfied:
		return "周课时已排满，无需此格"
	default:
		return r.Reason
	}
}
