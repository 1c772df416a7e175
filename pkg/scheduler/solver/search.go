// Package solver 实现传播引导的回溯搜索与多工作器组合求解
package solver

import (
	"context"
	"math/rand"
	"sort"

	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/constraint/builtin"
)

// Mode 求解模式
type Mode string

const (
	ModeJoint    Mode = "joint"     // 整段联合求解
	ModeDayFirst Mode = "day_first" // 按天推进：第k天排满才进入第k+1天
)

// Solution 一次搜索的结果
type Solution struct {
	Timetable *model.Timetable `json:"-"`
	Penalty   int              `json:"penalty"`
	Feasible  bool             `json:"feasible"`
	Steps     int              `json:"steps"`
	Trace     *Trace           `json:"-"`
}

// searcher 单次回溯搜索的可变状态
type searcher struct {
	ctx  context.Context
	m    *constraint.Model
	mode Mode
	rng  *rand.Rand // nil 表示完全确定性（0号工作器）

	domains  map[model.CellKey][]constraint.Value
	assigned map[model.CellKey]bool
	tt       *model.Timetable
	quota    map[string]map[string]int
	load     map[string]int
	mgr      *constraint.Manager
	ectx     *constraint.Context
	trace    *Trace
	steps    int

	// 最深到达状态的快照（诊断无解时返回）
	deepest  *model.Timetable
	deepestN int
}

// Search 对已编译模型执行一次回溯搜索
// 模型会被就地消耗，调用方需传入独享的克隆
func Search(ctx context.Context, m *constraint.Model, mode Mode, rng *rand.Rand) (*Solution, error) {
	mgr := constraint.NewManager()
	builtin.RegisterDefaults(mgr, m.Settings)
	ectx := constraint.NewContext(m.Grid, m.Grades, m.Teachers)
	ectx.Budgets = m.Budgets
	ectx.FillerSubject = m.Settings.FillerSubject

	s := &searcher{
		ctx:      ctx,
		m:        m,
		mode:     mode,
		rng:      rng,
		domains:  m.Domains,
		assigned: make(map[model.CellKey]bool, len(m.Cells)),
		tt:       ectx.Timetable,
		quota:    m.Quota,
		load:     make(map[string]int),
		mgr:      mgr,
		ectx:     ectx,
		trace:    &Trace{CompilePruned: m.Pruned},
	}

	for _, fixed := range m.Fixed {
		s.ectx.Place(fixed)
	}

	done, err := s.solve()
	if err != nil {
		return nil, err
	}

	sol := &Solution{
		Steps: s.steps,
		Trace: s.trace,
	}
	if !done {
		sol.Timetable = s.deepest
		if sol.Timetable == nil {
			sol.Timetable = s.tt.Clone()
		}
		return sol, nil
	}

	sol.Timetable = s.tt
	sol.Feasible = true
	sol.Penalty = s.mgr.Evaluate(s.ectx).TotalPenalty
	return sol, nil
}

// solve 递归回溯
func (s *searcher) solve() (bool, error) {
	s.steps++
	if s.steps%256 == 0 {
		select {
		case <-s.ctx.Done():
			return false, s.ctx.Err()
		default:
		}
	}

	cell, ok := s.pickCell()
	if !ok {
		return true, nil // 全部格子已分配
	}

	domain := s.domains[cell]
	if len(domain) == 0 {
		return false, nil
	}

	for _, v := range s.orderValues(cell, domain) {
		saved, pruned, wipeout := s.assign(cell, v)

		if !wipeout {
			s.trace.Decisions = append(s.trace.Decisions, Decision{
				Step:   s.steps,
				Cell:   cell,
				Chosen: v,
				Pruned: pruned,
			})
			if n := len(s.assigned); n > s.deepestN {
				s.deepestN = n
				s.deepest = s.tt.Clone()
			}

			done, err := s.solve()
			if err != nil {
				return false, err
			}
			if done {
				return true, nil
			}
			s.trace.Decisions = s.trace.Decisions[:len(s.trace.Decisions)-1]
		}

		s.unassign(cell, v, saved)
		s.trace.Backtracks++
	}

	return false, nil
}

// pickCell 选择下一个待分配格子：最小剩余域优先（MRV），平局按声明顺序
// 按天模式下只在最早的未排满天中选择
func (s *searcher) pickCell() (model.CellKey, bool) {
	minDay := -1
	if s.mode == ModeDayFirst {
		for _, c := range s.m.Cells {
			if s.assigned[c] {
				continue
			}
			d := s.m.Grid.DayIndex(c.Day)
			if minDay < 0 || d < minDay {
				minDay = d
			}
		}
	}

	var best model.CellKey
	bestSize := -1
	var ties []model.CellKey
	for _, c := range s.m.Cells {
		if s.assigned[c] {
			continue
		}
		if minDay >= 0 && s.m.Grid.DayIndex(c.Day) != minDay {
			continue
		}
		size := len(s.domains[c])
		switch {
		case bestSize < 0 || size < bestSize:
			best, bestSize = c, size
			ties = ties[:0]
			ties = append(ties, c)
		case size == bestSize:
			ties = append(ties, c)
		}
	}
	if bestSize < 0 {
		return model.CellKey{}, false
	}
	if s.rng != nil && len(ties) > 1 {
		return ties[s.rng.Intn(len(ties))], true
	}
	return best, true
}

// orderValues 取值排序：软惩罚增量小的在前，平局按域内声明顺序
// 随机化工作器在平局组内洗牌
func (s *searcher) orderValues(cell model.CellKey, domain []constraint.Value) []constraint.Value {
	type scored struct {
		v     constraint.Value
		delta int
		idx   int
	}
	items := make([]scored, len(domain))
	for i, v := range domain {
		items[i] = scored{v: v, delta: s.penaltyDelta(cell, v), idx: i}
	}
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].delta < items[j].delta
	})
	if s.rng != nil {
		// 同惩罚组内洗牌
		for lo := 0; lo < len(items); {
			hi := lo + 1
			for hi < len(items) && items[hi].delta == items[lo].delta {
				hi++
			}
			s.rng.Shuffle(hi-lo, func(i, j int) {
				items[lo+i], items[lo+j] = items[lo+j], items[lo+i]
			})
			lo = hi
		}
	}
	out := make([]constraint.Value, len(items))
	for i, it := range items {
		out[i] = it.v
	}
	return out
}

// penaltyDelta 放入某取值的即时软惩罚增量，由软约束的增量计分给出
func (s *searcher) penaltyDelta(cell model.CellKey, v constraint.Value) int {
	return s.mgr.Penalty(s.ectx, &model.Assignment{
		Grade:   cell.Grade,
		Day:     cell.Day,
		SlotID:  cell.SlotID,
		Subject: v.Subject,
		Teacher: v.Teacher,
	})
}

// assign 执行分配并传播，返回被修改格子的原始域、剪枝记录与是否出现域清空
func (s *searcher) assign(cell model.CellKey, v constraint.Value) (map[model.CellKey][]constraint.Value, []constraint.Pruning, bool) {
	s.assigned[cell] = true
	s.ectx.Place(&model.Assignment{
		Grade:   cell.Grade,
		Day:     cell.Day,
		SlotID:  cell.SlotID,
		Subject: v.Subject,
		Teacher: v.Teacher,
	})

	saved := make(map[model.CellKey][]constraint.Value)
	var pruned []constraint.Pruning
	wipeout := false

	filter := func(target model.CellKey, drop func(constraint.Value) bool, rule string) {
		dom := s.domains[target]
		var kept []constraint.Value
		changed := false
		for _, val := range dom {
			if drop(val) {
				changed = true
				pruned = append(pruned, constraint.Pruning{Cell: target, Value: val, Rule: rule})
			} else {
				kept = append(kept, val)
			}
		}
		if changed {
			if _, ok := saved[target]; !ok {
				saved[target] = dom
			}
			s.domains[target] = kept
			if len(kept) == 0 {
				wipeout = true
			}
		}
	}

	// 配额递减；用完后从同年级其它格子剪掉该科目
	s.quota[cell.Grade][v.Subject]--
	if s.quota[cell.Grade][v.Subject] == 0 {
		for _, c := range s.m.Cells {
			if s.assigned[c] || c.Grade != cell.Grade {
				continue
			}
			filter(c, func(val constraint.Value) bool { return val.Subject == v.Subject }, PruneQuotaExhausted)
		}
	}

	if v.Teacher != "" {
		// 同（天,时段）的其它年级不能再用该教师
		for _, c := range s.m.Cells {
			if s.assigned[c] || c.Grade == cell.Grade || c.Day != cell.Day || c.SlotID != cell.SlotID {
				continue
			}
			filter(c, func(val constraint.Value) bool { return val.Teacher == v.Teacher }, PruneTeacherBusy)
		}

		// 预算用完后该教师整周不可再排
		s.load[v.Teacher]++
		if budget, ok := s.m.Budgets[v.Teacher]; ok && s.load[v.Teacher] >= budget {
			for _, c := range s.m.Cells {
				if s.assigned[c] {
					continue
				}
				filter(c, func(val constraint.Value) bool { return val.Teacher == v.Teacher }, PruneBudgetExhausted)
			}
		}
	}

	return saved, pruned, wipeout
}

// unassign 撤销分配并恢复传播前的域
func (s *searcher) unassign(cell model.CellKey, v constraint.Value, saved map[model.CellKey][]constraint.Value) {
	for c, dom := range saved {
		s.domains[c] = dom
	}
	s.quota[cell.Grade][v.Subject]++
	if v.Teacher != "" {
		s.load[v.Teacher]--
	}
	s.ectx.Remove(cell.Grade, cell.Day, cell.SlotID)
	delete(s.assigned, cell)
}
