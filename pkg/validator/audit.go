// Package validator 独立复核课表：从零重查全部约束，不信任求解器的自报结果
package validator

import (
	"fmt"
	"sort"

	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/constraint/builtin"
)

// Mode 校验模式
type Mode string

const (
	ModeLenient Mode = "lenient" // 软违规仅告警
	ModeStrict  Mode = "strict"  // 硬违规或软惩罚超阈值即判失败
)

// Config 校验配置
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`

	// 严格模式下允许的软惩罚上限，0 表示不限
	SoftPenaltyThreshold int `json:"soft_penalty_threshold" yaml:"soft_penalty_threshold"`
}

// DefaultConfig 默认校验配置
func DefaultConfig() *Config {
	return &Config{Mode: ModeLenient}
}

// AuditEntry 审计轨迹条目：执行过的每一项检查
type AuditEntry struct {
	Seq        int    `json:"seq"`
	Check      string `json:"check"`
	Detail     string `json:"detail"`
	Violations int    `json:"violations"`
}

// String 文本行渲染
func (e *AuditEntry) String() string {
	return fmt.Sprintf("[%03d] %s: %s (违规 %d)", e.Seq, e.Check, e.Detail, e.Violations)
}

// Report 校验报告
type Report struct {
	Pass         bool              `json:"pass"`
	Mode         Mode              `json:"mode"`
	Violations   []model.Violation `json:"violations"`
	HardCount    int               `json:"hard_count"`
	SoftCount    int               `json:"soft_count"`
	TotalPenalty int               `json:"total_penalty"`

	// 负荷统计：年级 -> 科目 -> 节数；教师 -> 周节数
	GradeLoads   map[string]map[string]int `json:"grade_loads"`
	TeacherLoads map[string]int            `json:"teacher_loads"`

	Summary string       `json:"summary"`
	Audit   []AuditEntry `json:"audit"`
}

// ExitCode 退出状态：0 通过，硬违规返回约定的非零值
func (r *Report) ExitCode() int {
	if r.Pass {
		return apperrors.ExitOK
	}
	return apperrors.ExitHardViolation
}

// Auditor 课表复核器
type Auditor struct {
	grid     *model.Grid
	grades   []*model.Grade
	teachers []*model.Teacher
	settings *constraint.Settings
	budgets  map[string]int
	manager  *constraint.Manager
	config   *Config
}

// NewAuditor 创建复核器，约束集与求解器相同但独立实例化
func NewAuditor(grid *model.Grid, grades []*model.Grade, teachers []*model.Teacher, settings *constraint.Settings, budgets map[string]int, cfg *Config) *Auditor {
	if settings == nil {
		settings = constraint.DefaultSettings()
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	mgr := constraint.NewManager()
	builtin.RegisterDefaults(mgr, settings)
	return &Auditor{
		grid:     grid,
		grades:   grades,
		teachers: teachers,
		settings: settings,
		budgets:  budgets,
		manager:  mgr,
		config:   cfg,
	}
}

// Validate 复核课表
// 同一课表多次复核产生逐字节相同的违规列表（稳定排序）
func (a *Auditor) Validate(tt *model.Timetable) *Report {
	return a.validate(tt, nil)
}

// ValidateAssignments 复核外部提供的分配列表
// 课表结构按键去重，重复键在这里先行检出为年级冲突
func (a *Auditor) ValidateAssignments(list []*model.Assignment) *Report {
	var dups []model.Violation
	tt := model.NewTimetable()
	for _, asn := range list {
		if tt.Occupied(asn.Grade, asn.Day, asn.SlotID) {
			dups = append(dups, model.Violation{
				Kind:     model.ViolationGradeClash,
				Severity: model.SeverityHard,
				Grade:    asn.Grade,
				Day:      asn.Day,
				SlotID:   asn.SlotID,
				Subject:  asn.Subject,
				Message:  fmt.Sprintf("年级 %s 在 %s/%s 有重复分配", asn.Grade, asn.Day, asn.SlotID),
				Penalty:  100,
			})
			continue
		}
		tt.Place(asn)
	}
	return a.validate(tt, dups)
}

func (a *Auditor) validate(tt *model.Timetable, extra []model.Violation) *Report {
	ctx := constraint.NewContext(a.grid, a.grades, a.teachers)
	ctx.Budgets = a.budgets
	ctx.FillerSubject = a.settings.FillerSubject
	ctx.SetTimetable(tt)

	report := &Report{
		Mode:         a.config.Mode,
		GradeLoads:   make(map[string]map[string]int),
		TeacherLoads: make(map[string]int),
	}

	violations := append([]model.Violation{}, extra...)
	seq := 0
	for _, rule := range a.manager.All() {
		_, penalty, vs := rule.Evaluate(ctx)
		report.TotalPenalty += penalty
		violations = append(violations, vs...)
		seq++
		report.Audit = append(report.Audit, AuditEntry{
			Seq:        seq,
			Check:      rule.Name(),
			Detail:     fmt.Sprintf("类别=%s 权重=%d 惩罚=%d", rule.Category(), rule.Weight(), penalty),
			Violations: len(vs),
		})
	}

	a.sortViolations(violations)
	report.Violations = violations
	for _, v := range violations {
		if v.IsHard() {
			report.HardCount++
		} else {
			report.SoftCount++
		}
	}

	// 负荷统计
	for _, asn := range tt.All() {
		if report.GradeLoads[asn.Grade] == nil {
			report.GradeLoads[asn.Grade] = make(map[string]int)
		}
		report.GradeLoads[asn.Grade][asn.Subject]++
		if asn.Teacher != "" {
			report.TeacherLoads[asn.Teacher]++
		}
	}

	report.Pass = report.HardCount == 0
	if a.config.Mode == ModeStrict && a.config.SoftPenaltyThreshold > 0 && report.TotalPenalty > a.config.SoftPenaltyThreshold {
		report.Pass = false
	}
	report.Summary = fmt.Sprintf("硬违规 %d，软违规 %d，软惩罚 %d，结论 %s",
		report.HardCount, report.SoftCount, report.TotalPenalty, passWord(report.Pass))

	return report
}

// sortViolations 稳定排序：硬在前，再按类型与位置排序
func (a *Auditor) sortViolations(vs []model.Violation) {
	sort.SliceStable(vs, func(i, j int) bool {
		vi, vj := vs[i], vs[j]
		if vi.IsHard() != vj.IsHard() {
			return vi.IsHard()
		}
		if vi.Kind != vj.Kind {
			return vi.Kind < vj.Kind
		}
		if vi.Grade != vj.Grade {
			return vi.Grade < vj.Grade
		}
		di, dj := a.grid.DayIndex(vi.Day), a.grid.DayIndex(vj.Day)
		if di != dj {
			return di < dj
		}
		si, sj := a.grid.SlotOrder(vi.SlotID), a.grid.SlotOrder(vj.SlotID)
		if si != sj {
			return si < sj
		}
		if vi.Teacher != vj.Teacher {
			return vi.Teacher < vj.Teacher
		}
		return vi.Message < vj.Message
	})
}

func passWord(pass bool) string {
	if pass {
		return "通过"
	}
	return "不通过"
}
