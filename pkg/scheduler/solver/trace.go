package solver

import (
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// 搜索期剪枝原因标识
const (
	PruneTeacherBusy     = "teacher_busy"     // 教师该时段已被其它年级占用
	PruneQuotaExhausted  = "quota_exhausted"  // 科目周配额已用完
	PruneBudgetExhausted = "budget_exhausted" // 教师预算已用完
)

// Decision 一次搜索决策：选中的格子、取值与因此被剪掉的候选
type Decision struct {
	Step   int                  `json:"step"`
	Cell   model.CellKey        `json:"cell"`
	Chosen constraint.Value     `json:"chosen"`
	Pruned []constraint.Pruning `json:"pruned,omitempty"`
}

// Trace 搜索轨迹：编译期剪枝加按序决策，供解释器回答"为何/为何不"
type Trace struct {
	CompilePruned []constraint.Pruning `json:"compile_pruned,omitempty"`
	Decisions     []Decision           `json:"decisions"`
	Backtracks    int                  `json:"backtracks"`
}

// DecisionFor 返回决定某格子的决策，未决策返回 nil
func (t *Trace) DecisionFor(cell model.CellKey) *Decision {
	for i := range t.Decisions {
		if t.Decisions[i].Cell == cell {
			return &t.Decisions[i]
		}
	}
	return nil
}

// PrunedAt 返回某格子的全部剪枝记录（编译期 + 搜索期）
func (t *Trace) PrunedAt(cell model.CellKey) []constraint.Pruning {
	var out []constraint.Pruning
	for _, p := range t.CompilePruned {
		if p.Cell == cell {
			out = append(out, p)
		}
	}
	for _, d := range t.Decisions {
		for _, p := range d.Pruned {
			if p.Cell == cell {
				out = append(out, p)
			}
		}
	}
	return out
}
