package constraint

import (
	"fmt"

	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
)

// 编译期剪枝原因标识
const (
	PruneEligibility = "teacher_eligibility" // 教师资质不符
	PruneDayWindow   = "subject_day_window"  // 科目不在允许的天
	PruneFixedPin    = "fixed_subject"       // 时段被固定科目占用
	PruneZeroBudget  = "teacher_budget_zero" // 教师周课时预算为零
)

// Settings 约束参数
type Settings struct {
	AdjacencyCap    int    `json:"adjacency_cap" yaml:"adjacency_cap"`       // 同科目当日相邻重复上限
	SameSlotCap     int    `json:"same_slot_cap" yaml:"same_slot_cap"`       // 同科目一周内同时段重复上限
	AdjacencyWeight int    `json:"adjacency_weight" yaml:"adjacency_weight"` // 相邻超限惩罚权重
	SameSlotWeight  int    `json:"same_slot_weight" yaml:"same_slot_weight"` // 同时段超限惩罚权重
	BalanceWeight   int    `json:"balance_weight" yaml:"balance_weight"`     // 负荷均衡惩罚权重
	FillerWeight    int    `json:"filler_weight" yaml:"filler_weight"`       // 自习补位惩罚权重
	FillerSubject   string `json:"filler_subject" yaml:"filler_subject"`     // 补位科目名

	// 非核心科目需求可裁减（诊断器放松时只动非核心科目）
	RelaxNonCoreMinima bool `json:"relax_non_core_minima" yaml:"relax_non_core_minima"`

	// 科目允许出现的天（缺省表示不限）
	SubjectWindows map[string][]string `json:"subject_windows,omitempty" yaml:"subject_windows,omitempty"`

	// 教师周课时上限（在 MaxLoad 之外额外收紧）
	TeacherWeeklyCaps map[string]int `json:"teacher_weekly_caps,omitempty" yaml:"teacher_weekly_caps,omitempty"`
}

// DefaultSettings 默认约束参数
func DefaultSettings() *Settings {
	return &Settings{
		AdjacencyCap:    1,
		SameSlotCap:     2,
		AdjacencyWeight: 6,
		SameSlotWeight:  2,
		BalanceWeight:   1,
		FillerWeight:    10000,
		FillerSubject:   "自习",
	}
}

// Value 格子域中的候选取值：(科目, 教师)
// 自习补位取值的教师为空
type Value struct {
	Subject string `json:"subject"`
	Teacher string `json:"teacher,omitempty"`
}

// Pruning 一次剪枝记录：某格子的某候选取值被哪条规则排除
type Pruning struct {
	Cell  model.CellKey `json:"cell"`
	Value Value         `json:"value"`
	Rule  string        `json:"rule"`
}

// Model 编译后的约束模型：格子、取值域、剩余配额、预算与剪枝记录
type Model struct {
	Grid     *model.Grid
	Grades   []*model.Grade
	Teachers []*model.Teacher
	Settings *Settings

	// 待求解格子，按（年级声明序, 天序, 时段序）排列
	Cells []model.CellKey

	// 各格子的候选取值域，域内按（科目声明序, 教师声明序）排列
	Domains map[model.CellKey][]Value

	// 年级 -> 科目 -> 周剩余课时（含补位科目）
	Quota map[string]map[string]int

	// 教师 -> 周课时预算（缺省表示不限）
	Budgets map[string]int

	// 固定科目产生的预置分配
	Fixed []*model.Assignment

	// 编译期剪枝记录（供解释器回答"为何不在某时段"）
	Pruned []Pruning
}

// Clone 深拷贝模型（组合求解的各工作器独享一份）
func (m *Model) Clone() *Model {
	c := &Model{
		Grid:     m.Grid,
		Grades:   m.Grades,
		Teachers: m.Teachers,
		Settings: m.Settings,
		Cells:    make([]model.CellKey, len(m.Cells)),
		Domains:  make(map[model.CellKey][]Value, len(m.Domains)),
		Quota:    make(map[string]map[string]int, len(m.Quota)),
		Budgets:  make(map[string]int, len(m.Budgets)),
		Fixed:    m.Fixed,
		Pruned:   m.Pruned,
	}
	copy(c.Cells, m.Cells)
	for k, dom := range m.Domains {
		d := make([]Value, len(dom))
		copy(d, dom)
		c.Domains[k] = d
	}
	for g, q := range m.Quota {
		qc := make(map[string]int, len(q))
		for s, n := range q {
			qc[s] = n
		}
		c.Quota[g] = qc
	}
	for t, b := range m.Budgets {
		c.Budgets[t] = b
	}
	return c
}

// Eligible 返回可教某年级某科目的教师，按教师声明顺序
func Eligible(teachers []*model.Teacher, subject, grade string) []*model.Teacher {
	var out []*model.Teacher
	for _, t := range teachers {
		if t.CanTeach(subject, grade) {
			out = append(out, t)
		}
	}
	return out
}

// Compile 将网格、年级需求、教师资质与参数编译为约束模型
// budgets 为段级教师预算（已扣除其它段已提交的负荷），可为 nil
// 输入矛盾返回 CONFIG_ERROR，求解不会启动
func Compile(grid *model.Grid, grades []*model.Grade, teachers []*model.Teacher, settings *Settings, budgets map[string]int) (*Model, error) {
	if settings == nil {
		settings = DefaultSettings()
	}
	if len(grid.Days) == 0 || len(grid.ClassSlots()) == 0 {
		return nil, apperrors.ConfigError("时间网格没有可用的授课时段")
	}

	teacherSet := make(map[string]*model.Teacher, len(teachers))
	for _, t := range teachers {
		teacherSet[t.ID] = t
	}

	// 预检：预算引用的教师必须存在
	for id := range budgets {
		if _, ok := teacherSet[id]; !ok {
			return nil, apperrors.ConfigError(fmt.Sprintf("预算引用了未知教师 '%s'", id))
		}
	}
	for id := range settings.TeacherWeeklyCaps {
		if _, ok := teacherSet[id]; !ok {
			return nil, apperrors.ConfigError(fmt.Sprintf("周课时上限引用了未知教师 '%s'", id))
		}
	}

	// 预检：科目时间窗引用的天必须在网格中
	for subject, days := range settings.SubjectWindows {
		for _, d := range days {
			if grid.DayIndex(d) < 0 {
				return nil, apperrors.ConfigError(fmt.Sprintf("科目 '%s' 的时间窗引用了未知的天 '%s'", subject, d))
			}
		}
	}

	capacity := grid.Capacity()
	m := &Model{
		Grid:     grid,
		Grades:   grades,
		Teachers: teachers,
		Settings: settings,
		Domains:  make(map[model.CellKey][]Value),
		Quota:    make(map[string]map[string]int, len(grades)),
		Budgets:  make(map[string]int),
	}

	// 教师预算：MaxLoad、周上限与段预算三者取最小
	for _, t := range teachers {
		limit, has := 0, false
		apply := func(v int) {
			if !has || v < limit {
				limit, has = v, true
			}
		}
		if t.MaxLoad > 0 {
			apply(t.MaxLoad)
		}
		if wc, ok := settings.TeacherWeeklyCaps[t.ID]; ok {
			apply(wc)
		}
		if b, ok := budgets[t.ID]; ok {
			apply(b)
		}
		if has {
			m.Budgets[t.ID] = limit
		}
	}

	for _, g := range grades {
		// 预检：需求非负、不超容量、每个科目有可任教教师
		total := 0
		for _, d := range g.Demands {
			if d.Periods < 0 {
				return nil, apperrors.ConfigError(fmt.Sprintf("年级 '%s' 科目 '%s' 周课时为负: %d", g.ID, d.Subject, d.Periods))
			}
			total += d.Periods
			if d.Periods > 0 && len(Eligible(teachers, d.Subject, g.ID)) == 0 {
				return nil, apperrors.ConfigError(fmt.Sprintf("年级 '%s' 科目 '%s' 没有可任教的教师", g.ID, d.Subject))
			}
		}
		if total > capacity {
			return nil, apperrors.ConfigError(fmt.Sprintf("年级 '%s' 周需求 %d 课时超过网格容量 %d", g.ID, total, capacity))
		}

		// 配额：声明需求 + 自习补位填满剩余容量
		quota := make(map[string]int)
		for _, d := range g.Demands {
			quota[d.Subject] += d.Periods
		}
		if filler := capacity - total; filler > 0 {
			quota[settings.FillerSubject] += filler
		}
		m.Quota[g.ID] = quota

		// 格子与取值域
		for _, day := range grid.Days {
			for _, slot := range grid.ClassSlots() {
				if slot.FixedSubject != "" {
					m.Fixed = append(m.Fixed, &model.Assignment{
						Grade:   g.ID,
						Day:     day,
						SlotID:  slot.ID,
						Subject: slot.FixedSubject,
						Fixed:   true,
					})
					continue
				}

				cell := model.CellKey{Grade: g.ID, Day: day, SlotID: slot.ID}
				var domain []Value

				for _, d := range g.Demands {
					if d.Periods <= 0 {
						continue
					}
					elig := Eligible(teachers, d.Subject, g.ID)

					// 时间窗外的天整体剪掉
					if window, ok := settings.SubjectWindows[d.Subject]; ok && !containsDay(window, day) {
						for _, t := range elig {
							m.Pruned = append(m.Pruned, Pruning{Cell: cell, Value: Value{Subject: d.Subject, Teacher: t.ID}, Rule: PruneDayWindow})
						}
						continue
					}

					for _, t := range elig {
						// 预算为零的教师一节课也排不了，编译期即剪除
						if b, ok := m.Budgets[t.ID]; ok && b <= 0 {
							m.Pruned = append(m.Pruned, Pruning{Cell: cell, Value: Value{Subject: d.Subject, Teacher: t.ID}, Rule: PruneZeroBudget})
							continue
						}
						domain = append(domain, Value{Subject: d.Subject, Teacher: t.ID})
					}
					// 会教该科目但不带该年级的教师，记录资质剪枝
					for _, t := range teachers {
						if !t.CanTeach(d.Subject, g.ID) && teachesSubject(t, d.Subject) {
							m.Pruned = append(m.Pruned, Pruning{Cell: cell, Value: Value{Subject: d.Subject, Teacher: t.ID}, Rule: PruneEligibility})
						}
					}
				}

				// 自习补位无需教师
				if quota[settings.FillerSubject] > 0 {
					domain = append(domain, Value{Subject: settings.FillerSubject})
				}

				if len(domain) == 0 {
					return nil, apperrors.ConfigError(fmt.Sprintf("格子 %s/%s/%s 没有任何候选取值", g.ID, day, slot.ID))
				}

				m.Cells = append(m.Cells, cell)
				m.Domains[cell] = domain
			}
		}
	}

	return m, nil
}

// containsDay 天是否在时间窗内
func containsDay(window []string, day string) bool {
	for _, d := range window {
		if d == day {
			return true
		}
	}
	return false
}

// teachesSubject 教师科目表中是否含某科目
func teachesSubject(t *model.Teacher, subject string) bool {
	for _, s := range t.Subjects {
		if s == subject {
			return true
		}
	}
	return false
}
