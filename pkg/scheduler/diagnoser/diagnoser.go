// Package diagnoser 在无可行解时定位最小放松集：
// 迭代尝试放松动作直到快速可行性检查通过，再收缩为最小核
package diagnoser

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// RelaxationKind 放松动作类型
type RelaxationKind string

const (
	RelaxReduceDemand   RelaxationKind = "reduce_demand"   // 某年级某科目周课时减一
	RelaxAddEligibility RelaxationKind = "add_eligibility" // 放开一条教师资质限制
	RelaxRaiseBudget    RelaxationKind = "raise_budget"    // 某教师预算加一
)

// Relaxation 一个放松动作；Amount 表示同一动作的累计次数
type Relaxation struct {
	Kind    RelaxationKind `json:"kind"`
	Grade   string         `json:"grade,omitempty"`
	Subject string         `json:"subject,omitempty"`
	Teacher string         `json:"teacher,omitempty"`
	Amount  int            `json:"amount"`
}

// String 可读描述
func (r *Relaxation) String() string {
	switch r.Kind {
	case RelaxReduceDemand:
		return fmt.Sprintf("年级 %s 科目 %s 周课时减 %d", r.Grade, r.Subject, r.Amount)
	case RelaxAddEligibility:
		return fmt.Sprintf("允许教师 %s 任教 %s/%s", r.Teacher, r.Grade, r.Subject)
	case RelaxRaiseBudget:
		return fmt.Sprintf("教师 %s 预算加 %d", r.Teacher, r.Amount)
	}
	return string(r.Kind)
}

// key 同一动作的聚合键
func (r *Relaxation) key() string {
	return fmt.Sprintf("%s|%s|%s|%s", r.Kind, r.Grade, r.Subject, r.Teacher)
}

// Diagnosis 诊断结论
type Diagnosis struct {
	Feasible         bool          `json:"feasible"`          // 应用放松集后是否通过快速可行性检查
	Core             []Relaxation  `json:"core"`              // 放松集（可行时为最小核）
	MinimalityProven bool          `json:"minimality_proven"` // 超时中断时为 false
	InitialDeficit   int           `json:"initial_deficit"`
	Checked          int           `json:"checked"` // 可行性检查执行次数
	Elapsed          time.Duration `json:"elapsed"`
}

// Diagnoser 不可行性诊断器，持有自己的超时
type Diagnoser struct {
	grid     *model.Grid
	grades   []*model.Grade
	teachers []*model.Teacher
	settings *constraint.Settings
	budgets  map[string]int
	timeout  time.Duration
	checked  int
}

// New 创建诊断器
func New(grid *model.Grid, grades []*model.Grade, teachers []*model.Teacher, settings *constraint.Settings, budgets map[string]int, timeout time.Duration) *Diagnoser {
	if settings == nil {
		settings = constraint.DefaultSettings()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Diagnoser{
		grid:     grid,
		grades:   grades,
		teachers: teachers,
		settings: settings,
		budgets:  budgets,
		timeout:  timeout,
	}
}

// Diagnose 运行诊断
// 贪心添加最能降低缺口的放松动作直到可行，再逐个尝试剔除；
// 超时返回已有的部分放松集并标记 MinimalityProven=false，绝不悬挂
func (d *Diagnoser) Diagnose(ctx context.Context) *Diagnosis {
	start := time.Now()
	deadline := start.Add(d.timeout)
	d.checked = 0

	diag := &Diagnosis{MinimalityProven: true}
	core := make(map[string]*Relaxation)

	deficit := d.deficit(core)
	diag.InitialDeficit = deficit

	expired := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
		}
		return time.Now().After(deadline)
	}

	// 贪心扩张
	for deficit > 0 {
		if expired() {
			diag.MinimalityProven = false
			break
		}

		best, bestDeficit := (*Relaxation)(nil), deficit
		for _, cand := range d.candidates() {
			trial := addRelaxation(core, cand)
			trialDeficit := d.deficit(trial)
			if trialDeficit < bestDeficit {
				best, bestDeficit = cand, trialDeficit
			}
			if expired() {
				break
			}
		}
		if best == nil {
			// 没有任何动作能降低缺口
			break
		}
		core = addRelaxation(core, best)
		deficit = bestDeficit
	}

	diag.Feasible = deficit == 0

	// 收缩为最小核：剔除任何去掉后仍可行的成员
	if diag.Feasible {
		for _, k := range sortedKeys(core) {
			if expired() {
				diag.MinimalityProven = false
				break
			}
			member := core[k]
			// 逐次回退累计量
			for member.Amount > 0 {
				trial := cloneCore(core)
				if trial[k].Amount == 1 {
					delete(trial, k)
				} else {
					trial[k].Amount--
				}
				if d.deficit(trial) != 0 {
					break
				}
				core = trial
				if m, ok := core[k]; ok {
					member = m
				} else {
					break
				}
			}
		}
	} else if len(core) > 0 {
		diag.MinimalityProven = false
	}

	for _, k := range sortedKeys(core) {
		diag.Core = append(diag.Core, *core[k])
	}
	diag.Checked = d.checked
	diag.Elapsed = time.Since(start)

	logger.Get().Info().
		Bool("feasible", diag.Feasible).
		Int("core_size", len(diag.Core)).
		Bool("minimal", diag.MinimalityProven).
		Int("checks", diag.Checked).
		Msg("不可行性诊断完成")
	return diag
}

// candidates 生成候选放松动作，顺序确定
// 侵入性小的动作在前：加预算 < 放资质 < 砍课时
func (d *Diagnoser) candidates() []*Relaxation {
	var out []*Relaxation

	// 预算加一
	for _, t := range d.teachers {
		if _, ok := d.effectiveBudget(t); ok {
			out = append(out, &Relaxation{Kind: RelaxRaiseBudget, Teacher: t.ID, Amount: 1})
		}
	}

	// 放开资质：会教该科目但不带该年级的教师
	for _, g := range d.grades {
		for _, dem := range g.Demands {
			if dem.Periods <= 0 {
				continue
			}
			for _, t := range d.teachers {
				if t.CanTeach(dem.Subject, g.ID) {
					continue
				}
				if !teaches(t, dem.Subject) {
					continue
				}
				out = append(out, &Relaxation{Kind: RelaxAddEligibility, Grade: g.ID, Subject: dem.Subject, Teacher: t.ID, Amount: 1})
			}
		}
	}

	// 需求减一：RelaxNonCoreMinima 开启时只动非核心科目
	for _, g := range d.grades {
		for _, dem := range g.Demands {
			if dem.Periods <= 0 {
				continue
			}
			if d.settings.RelaxNonCoreMinima && dem.Category == model.CategoryCore {
				continue
			}
			out = append(out, &Relaxation{Kind: RelaxReduceDemand, Grade: g.ID, Subject: dem.Subject, Amount: 1})
		}
	}

	return out
}

// deficit 快速可行性检查：返回缺口总量，0 表示通过
// 只做域一致性与计数传播，不做搜索
func (d *Diagnoser) deficit(core map[string]*Relaxation) int {
	d.checked++
	grades, teachers, budgets := d.applied(core)

	capacity := d.grid.Capacity()
	total := 0

	eligible := func(subject, grade string) []*model.Teacher {
		var out []*model.Teacher
		for _, t := range teachers {
			if t.CanTeach(subject, grade) {
				out = append(out, t)
			}
		}
		return out
	}

	for _, g := range grades {
		sum := 0
		for _, dem := range g.Demands {
			if dem.Periods <= 0 {
				continue
			}
			sum += dem.Periods

			elig := eligible(dem.Subject, g.ID)
			if len(elig) == 0 {
				total += dem.Periods
				continue
			}

			// 时间窗限制下该科目可用的格子数
			allowed := capacity
			if window, ok := d.settings.SubjectWindows[dem.Subject]; ok {
				allowed = len(window) * len(d.grid.AssignableSlots())
			}
			if dem.Periods > allowed {
				total += dem.Periods - allowed
			}
		}
		if sum > capacity {
			total += sum - capacity
		}
	}

	// 唯一可任教教师的需求总和不得超过其预算
	for _, t := range teachers {
		budget, ok := budgets[t.ID]
		if !ok {
			continue
		}
		need := 0
		for _, g := range grades {
			for _, dem := range g.Demands {
				if dem.Periods <= 0 {
					continue
				}
				elig := eligible(dem.Subject, g.ID)
				if len(elig) == 1 && elig[0].ID == t.ID {
					need += dem.Periods
				}
			}
		}
		if need > budget {
			total += need - budget
		}
	}

	return total
}

// applied 应用放松集后的输入副本
func (d *Diagnoser) applied(core map[string]*Relaxation) ([]*model.Grade, []*model.Teacher, map[string]int) {
	grades := make([]*model.Grade, len(d.grades))
	for i, g := range d.grades {
		cp := *g
		cp.Demands = append([]model.SubjectDemand(nil), g.Demands...)
		grades[i] = &cp
	}
	teachers := make([]*model.Teacher, len(d.teachers))
	for i, t := range d.teachers {
		cp := *t
		cp.Subjects = append([]string(nil), t.Subjects...)
		cp.Grades = append([]string(nil), t.Grades...)
		teachers[i] = &cp
	}
	budgets := make(map[string]int)
	for _, t := range d.teachers {
		if b, ok := d.effectiveBudget(t); ok {
			budgets[t.ID] = b
		}
	}

	for _, r := range core {
		switch r.Kind {
		case RelaxReduceDemand:
			for _, g := range grades {
				if g.ID != r.Grade {
					continue
				}
				for i := range g.Demands {
					if g.Demands[i].Subject == r.Subject {
						g.Demands[i].Periods -= r.Amount
						if g.Demands[i].Periods < 0 {
							g.Demands[i].Periods = 0
						}
					}
				}
			}
		case RelaxAddEligibility:
			for _, t := range teachers {
				if t.ID != r.Teacher {
					continue
				}
				if !teaches(t, r.Subject) {
					t.Subjects = append(t.Subjects, r.Subject)
				}
				has := false
				for _, g := range t.Grades {
					if g == r.Grade {
						has = true
					}
				}
				if !has {
					t.Grades = append(t.Grades, r.Grade)
				}
			}
		case RelaxRaiseBudget:
			if b, ok := budgets[r.Teacher]; ok {
				budgets[r.Teacher] = b + r.Amount
			}
		}
	}

	return grades, teachers, budgets
}

// effectiveBudget MaxLoad、周上限与段预算的最小值
func (d *Diagnoser) effectiveBudget(t *model.Teacher) (int, bool) {
	limit, has := 0, false
	apply := func(v int) {
		if !has || v < limit {
			limit, has = v, true
		}
	}
	if t.MaxLoad > 0 {
		apply(t.MaxLoad)
	}
	if wc, ok := d.settings.TeacherWeeklyCaps[t.ID]; ok {
		apply(wc)
	}
	if b, ok := d.budgets[t.ID]; ok {
		apply(b)
	}
	return limit, has
}

// addRelaxation 把一个动作并入集合（同键累加），不修改原集合
func addRelaxation(core map[string]*Relaxation, r *Relaxation) map[string]*Relaxation {
	out := cloneCore(core)
	k := r.key()
	if existing, ok := out[k]; ok {
		cp := *existing
		cp.Amount += r.Amount
		out[k] = &cp
	} else {
		cp := *r
		out[k] = &cp
	}
	return out
}

// cloneCore 深拷贝放松集
func cloneCore(core map[string]*Relaxation) map[string]*Relaxation {
	out := make(map[string]*Relaxation, len(core))
	for k, v := range core {
		cp := *v
		out[k] = &cp
	}
	return out
}

// sortedKeys 键排序保证遍历确定性
func sortedKeys(core map[string]*Relaxation) []string {
	keys := make([]string, 0, len(core))
	for k := range core {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// teaches 教师科目表中是否含某科目
func teaches(t *model.Teacher, subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}
