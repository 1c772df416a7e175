// Package planner 负责多学段编排：互不相干的段并行求解，
// 共享教师或消耗例外预算的段按声明顺序串行收尾
package planner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/solver"
	"github.com/paike/paike/pkg/validator"
)

// SegmentAll 表示按声明顺序编排全部段
const SegmentAll = "ALL"

// PruneCrossSegment 跨段剪枝原因：教师在先行段已占用该时段
const PruneCrossSegment = "cross_segment_busy"

// Segment 学段：一组年级与该段的求解方式
type Segment struct {
	Name   string      `json:"name" yaml:"name"`
	Grades []string    `json:"grades" yaml:"grades"`
	Mode   solver.Mode `json:"mode" yaml:"mode"`

	// 跨段例外教师在本段的课时预算
	ExceptionBudget map[string]int `json:"exception_budget,omitempty" yaml:"exception_budget,omitempty"`
}

// daySlot (天, 时段) 复合键
type daySlot struct {
	day    string
	slotID string
}

// TeacherLedger 教师负荷账本：记录先行段已提交的周课时与时段占用
// 只在段求解完成后写入，求解期间只读
type TeacherLedger struct {
	committed map[string]int
	busy      map[string]map[daySlot]bool
}

// NewTeacherLedger 创建空账本
func NewTeacherLedger() *TeacherLedger {
	return &TeacherLedger{
		committed: make(map[string]int),
		busy:      make(map[string]map[daySlot]bool),
	}
}

// Committed 某教师已提交的周课时
func (l *TeacherLedger) Committed(teacher string) int {
	return l.committed[teacher]
}

// BusyAt 某教师是否已在某（天,时段）被先行段占用
func (l *TeacherLedger) BusyAt(teacher, day, slotID string) bool {
	return l.busy[teacher][daySlot{day: day, slotID: slotID}]
}

// Commit 将一张课表的教师负荷计入账本
func (l *TeacherLedger) Commit(tt *model.Timetable) {
	for _, a := range tt.All() {
		if a.Teacher == "" {
			continue
		}
		l.committed[a.Teacher]++
		if l.busy[a.Teacher] == nil {
			l.busy[a.Teacher] = make(map[daySlot]bool)
		}
		l.busy[a.Teacher][daySlot{day: a.Day, slotID: a.SlotID}] = true
	}
}

// Remaining 扣除已提交负荷后的剩余预算，不为负
func (l *TeacherLedger) Remaining(budget int, teacher string) int {
	r := budget - l.committed[teacher]
	if r < 0 {
		return 0
	}
	return r
}

// SegmentResult 单段结果
type SegmentResult struct {
	Segment  string           `json:"segment"`
	Feasible bool             `json:"feasible"`
	Penalty  int              `json:"penalty"`
	Error    string           `json:"error,omitempty"`
	Solution *solver.Solution `json:"-"`
}

// RunResult 一次完整编排的结果，无全局可变状态
type RunResult struct {
	RunID     uuid.UUID         `json:"run_id"`
	StartedAt time.Time         `json:"started_at"`
	Duration  time.Duration     `json:"duration"`
	Segments  []*SegmentResult  `json:"segments"`
	Merged    *model.Timetable  `json:"-"`
	Report    *validator.Report `json:"report"`
	Feasible  bool              `json:"feasible"`
}

// Planner 多段编排器
type Planner struct {
	grid     *model.Grid
	grades   []*model.Grade
	teachers []*model.Teacher
	settings *constraint.Settings
	opts     *solver.Options
}

// NewPlanner 创建编排器
func NewPlanner(grid *model.Grid, grades []*model.Grade, teachers []*model.Teacher, settings *constraint.Settings, opts *solver.Options) *Planner {
	if settings == nil {
		settings = constraint.DefaultSettings()
	}
	if opts == nil {
		opts = solver.DefaultOptions()
	}
	return &Planner{
		grid:     grid,
		grades:   grades,
		teachers: teachers,
		settings: settings,
		opts:     opts,
	}
}

// Plan 编排指定的段集合
// 不与其它段共享教师且无例外预算的段并行求解；其余段按声明顺序串行，
// 预算扣除账本已提交负荷，教师已占用的时段从取值域中剪除。
// 单段失败不会中止其它段。
func (p *Planner) Plan(ctx context.Context, segments []Segment) (*RunResult, error) {
	if err := p.check(segments); err != nil {
		return nil, err
	}

	run := &RunResult{
		RunID:     uuid.New(),
		StartedAt: time.Now(),
	}

	independent, dependent := p.split(segments)
	ledger := NewTeacherLedger()
	results := make(map[string]*SegmentResult, len(segments))

	// 第一批：互不相干的段并行求解
	var wg sync.WaitGroup
	var mu sync.Mutex
	for _, seg := range independent {
		wg.Add(1)
		go func(seg Segment) {
			defer wg.Done()
			res := p.solveSegment(ctx, seg, NewTeacherLedger())
			mu.Lock()
			results[seg.Name] = res
			mu.Unlock()
		}(seg)
	}
	wg.Wait()

	// 账本提交串行进行
	for _, seg := range independent {
		if res := results[seg.Name]; res.Feasible {
			ledger.Commit(res.Solution.Timetable)
		}
	}

	// 第二批：共享教师/消耗预算的段按声明顺序串行求解
	for _, seg := range dependent {
		res := p.solveSegment(ctx, seg, ledger)
		results[seg.Name] = res
		if res.Feasible {
			ledger.Commit(res.Solution.Timetable)
		}
	}

	// 按声明顺序汇总并合并
	merged := model.NewTimetable()
	allFeasible := true
	for _, seg := range segments {
		res := results[seg.Name]
		run.Segments = append(run.Segments, res)
		if res.Feasible {
			merged.Merge(res.Solution.Timetable)
		} else {
			allFeasible = false
		}
	}
	run.Merged = merged
	run.Feasible = allFeasible

	// 合并后的独立复核（跨段教师冲突与周课时超限在这里兜底检出）
	auditor := validator.NewAuditor(p.grid, p.activeGrades(segments), p.teachers, p.settings, p.weeklyCaps(), nil)
	run.Report = auditor.Validate(merged)
	if !run.Report.Pass {
		run.Feasible = false
	}

	run.Duration = time.Since(run.StartedAt)
	logger.Get().Info().
		Str("run_id", run.RunID.String()).
		Int("segments", len(run.Segments)).
		Bool("feasible", run.Feasible).
		Dur("duration", run.Duration).
		Msg("编排完成")
	return run, nil
}

// split 把段分为可并行与需串行两批
// 与其它段共享教师、或声明了例外预算的段必须串行
func (p *Planner) split(segments []Segment) (independent, dependent []Segment) {
	segGrades := make(map[string]map[string]bool, len(segments))
	for _, seg := range segments {
		set := make(map[string]bool, len(seg.Grades))
		for _, g := range seg.Grades {
			set[g] = true
		}
		segGrades[seg.Name] = set
	}

	shares := func(seg Segment) bool {
		for _, t := range p.teachers {
			in := false
			for _, g := range t.Grades {
				if segGrades[seg.Name][g] {
					in = true
					break
				}
			}
			if !in {
				continue
			}
			for _, other := range segments {
				if other.Name == seg.Name {
					continue
				}
				for _, g := range t.Grades {
					if segGrades[other.Name][g] {
						return true
					}
				}
			}
		}
		return false
	}

	for _, seg := range segments {
		if len(seg.ExceptionBudget) == 0 && !shares(seg) {
			independent = append(independent, seg)
		} else {
			dependent = append(dependent, seg)
		}
	}
	return independent, dependent
}

// solveSegment 求解单段，账本提供先行段的预算扣减与时段占用
func (p *Planner) solveSegment(ctx context.Context, seg Segment, ledger *TeacherLedger) *SegmentResult {
	res := &SegmentResult{Segment: seg.Name}

	// 有周上限的教师扣除账本已提交负荷后进入本段预算；
	// 例外教师另有段级预算，与剩余周上限取较小
	budgets := make(map[string]int)
	for _, t := range p.teachers {
		if wc, ok := p.weeklyCap(t); ok {
			budgets[t.ID] = ledger.Remaining(wc, t.ID)
		}
	}
	for teacher, budget := range seg.ExceptionBudget {
		r := ledger.Remaining(budget, teacher)
		if cur, ok := budgets[teacher]; !ok || r < cur {
			budgets[teacher] = r
		}
	}

	grades := p.gradesOf(seg)
	m, err := constraint.Compile(p.grid, grades, p.teachers, p.settings, budgets)
	if err != nil {
		res.Error = err.Error()
		return res
	}

	// 先行段已占用的（教师,天,时段）从取值域剪除
	for cell, dom := range m.Domains {
		kept := dom[:0]
		for _, v := range dom {
			if v.Teacher != "" && ledger.BusyAt(v.Teacher, cell.Day, cell.SlotID) {
				m.Pruned = append(m.Pruned, constraint.Pruning{Cell: cell, Value: v, Rule: PruneCrossSegment})
				continue
			}
			kept = append(kept, v)
		}
		m.Domains[cell] = kept
	}

	opts := *p.opts
	opts.Segment = seg.Name
	if seg.Mode != "" {
		opts.Mode = seg.Mode
	}

	sol, err := solver.Solve(ctx, m, &opts)
	if err != nil {
		res.Error = err.Error()
		res.Solution = sol // 可能携带最深部分解
		return res
	}

	res.Feasible = true
	res.Penalty = sol.Penalty
	res.Solution = sol
	return res
}

// weeklyCap 教师的周课时上限：MaxLoad 与 TeacherWeeklyCaps 取较小
func (p *Planner) weeklyCap(t *model.Teacher) (int, bool) {
	limit, has := 0, false
	if t.MaxLoad > 0 {
		limit, has = t.MaxLoad, true
	}
	if wc, ok := p.settings.TeacherWeeklyCaps[t.ID]; ok && (!has || wc < limit) {
		limit, has = wc, true
	}
	return limit, has
}

// weeklyCaps 全体教师的周课时上限表（无上限的教师不在表中）
func (p *Planner) weeklyCaps() map[string]int {
	caps := make(map[string]int)
	for _, t := range p.teachers {
		if wc, ok := p.weeklyCap(t); ok {
			caps[t.ID] = wc
		}
	}
	return caps
}

// check 段定义预检
func (p *Planner) check(segments []Segment) error {
	gradeSet := make(map[string]bool, len(p.grades))
	for _, g := range p.grades {
		gradeSet[g.ID] = true
	}
	teacherSet := make(map[string]*model.Teacher, len(p.teachers))
	for _, t := range p.teachers {
		teacherSet[t.ID] = t
	}

	seen := make(map[string]bool, len(segments))
	gradeSeg := make(map[string]string)
	for _, seg := range segments {
		if seg.Name == "" {
			return apperrors.ConfigError("段名不能为空")
		}
		if seen[seg.Name] {
			return apperrors.ConfigError(fmt.Sprintf("段 '%s' 重复定义", seg.Name))
		}
		seen[seg.Name] = true
		if len(seg.Grades) == 0 {
			return apperrors.ConfigError(fmt.Sprintf("段 '%s' 没有年级", seg.Name))
		}
		for _, gid := range seg.Grades {
			if !gradeSet[gid] {
				return apperrors.ConfigError(fmt.Sprintf("段 '%s' 引用了未知年级 '%s'", seg.Name, gid))
			}
			if prev, dup := gradeSeg[gid]; dup {
				return apperrors.ConfigError(fmt.Sprintf("年级 '%s' 同时属于段 '%s' 和 '%s'", gid, prev, seg.Name))
			}
			gradeSeg[gid] = seg.Name
		}
		for teacher := range seg.ExceptionBudget {
			t, ok := teacherSet[teacher]
			if !ok {
				return apperrors.ConfigError(fmt.Sprintf("段 '%s' 的预算引用了未知教师 '%s'", seg.Name, teacher))
			}
			if !t.Exception {
				return apperrors.ConfigError(fmt.Sprintf("教师 '%s' 不是跨段例外教师，不能设置段预算", teacher))
			}
		}
	}

	// 跨段带课的教师必须标记为例外教师
	for _, t := range p.teachers {
		segs := make(map[string]bool)
		for _, g := range t.Grades {
			if s, ok := gradeSeg[g]; ok {
				segs[s] = true
			}
		}
		if len(segs) > 1 && !t.Exception {
			return apperrors.ConfigError(fmt.Sprintf("教师 '%s' 跨段带课但未标记为例外教师", t.ID))
		}
	}
	return nil
}

// gradesOf 返回段内年级，保持全局声明顺序
func (p *Planner) gradesOf(seg Segment) []*model.Grade {
	want := make(map[string]bool, len(seg.Grades))
	for _, id := range seg.Grades {
		want[id] = true
	}
	var out []*model.Grade
	for _, g := range p.grades {
		if want[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

// activeGrades 返回参与本次编排的年级
func (p *Planner) activeGrades(segments []Segment) []*model.Grade {
	want := make(map[string]bool)
	for _, seg := range segments {
		for _, id := range seg.Grades {
			want[id] = true
		}
	}
	var out []*model.Grade
	for _, g := range p.grades {
		if want[g.ID] {
			out = append(out, g)
		}
	}
	return out
}

// Resolve 按名称解析段集合；name 为 SegmentAll 时返回全部段（声明顺序）
func Resolve(segments []Segment, name string) ([]Segment, error) {
	if name == "" || name == SegmentAll {
		return segments, nil
	}
	for _, seg := range segments {
		if seg.Name == name {
			return []Segment{seg}, nil
		}
	}
	return nil, apperrors.New(apperrors.CodeSegmentUnknown, fmt.Sprintf("未知的段 '%s'", name))
}
