// Package constraint 定义排课约束接口、管理器与约束模型编译
package constraint

import (
	"github.com/paike/paike/pkg/model"
)

// Kind 约束类型标识
type Kind string

const (
	// 硬约束类型
	KindTeacherClash Kind = "teacher_clash"   // 教师同时段唯一
	KindGradeClash   Kind = "grade_clash"     // 年级同时段唯一
	KindBlankSlot    Kind = "blank_slot"      // 授课时段不留空
	KindEligibility  Kind = "eligibility"     // 教师资质匹配
	KindBudget       Kind = "staffing_budget" // 教师课时预算

	// 软约束类型
	KindAdjacencyCap    Kind = "adjacency_cap"    // 同科目当日相邻上限
	KindSameSlotCap     Kind = "same_slot_cap"    // 同科目一周同时段上限
	KindWorkloadBalance Kind = "workload_balance" // 教师负荷均衡
	KindFillerPenalty   Kind = "filler_penalty"   // 自习补位惩罚
)

// Category 约束类别
type Category string

const (
	CategoryHard Category = "hard" // 硬约束（必须满足）
	CategorySoft Category = "soft" // 软约束（尽量满足）
)

// Rule 约束接口
type Rule interface {
	// Name 返回约束名称
	Name() string

	// Kind 返回约束类型
	Kind() Kind

	// Category 返回约束类别
	Category() Category

	// Weight 返回约束权重
	Weight() int

	// Evaluate 评估整张课表
	// 返回：是否满足、惩罚值、违反详情
	Evaluate(ctx *Context) (valid bool, penalty int, violations []model.Violation)
}

// AssignmentScorer 支持增量计分的约束
// 实现此接口的软约束参与搜索期的取值排序
type AssignmentScorer interface {
	// ScoreAssignment 返回把 a 放入当前课表产生的惩罚增量
	ScoreAssignment(ctx *Context, a *model.Assignment) int
}

// daySlot (天, 时段) 复合键
type daySlot struct {
	day    string
	slotID string
}

// Context 排课评估上下文
type Context struct {
	// 输入数据
	Grid     *model.Grid      `json:"-"`
	Grades   []*model.Grade   `json:"grades"`
	Teachers []*model.Teacher `json:"teachers"`

	// 当前课表
	Timetable *model.Timetable `json:"-"`

	// 教师周课时预算（缺省表示不限）
	Budgets map[string]int `json:"budgets,omitempty"`

	// 自习补位科目名
	FillerSubject string `json:"filler_subject,omitempty"`

	// 索引缓存
	gradeMap   map[string]*model.Grade
	teacherMap map[string]*model.Teacher
	bySlot     map[daySlot][]*model.Assignment
	byTeacher  map[string][]*model.Assignment
}

// NewContext 创建评估上下文
func NewContext(grid *model.Grid, grades []*model.Grade, teachers []*model.Teacher) *Context {
	c := &Context{
		Grid:       grid,
		Grades:     grades,
		Teachers:   teachers,
		Timetable:  model.NewTimetable(),
		Budgets:    make(map[string]int),
		gradeMap:   make(map[string]*model.Grade, len(grades)),
		teacherMap: make(map[string]*model.Teacher, len(teachers)),
		bySlot:     make(map[daySlot][]*model.Assignment),
		byTeacher:  make(map[string][]*model.Assignment),
	}
	for _, g := range grades {
		c.gradeMap[g.ID] = g
	}
	for _, t := range teachers {
		c.teacherMap[t.ID] = t
	}
	return c
}

// SetTimetable 设置当前课表并重建索引
func (c *Context) SetTimetable(tt *model.Timetable) {
	c.Timetable = tt
	c.rebuildIndexes()
}

// rebuildIndexes 重建时段/教师索引
func (c *Context) rebuildIndexes() {
	c.bySlot = make(map[daySlot][]*model.Assignment)
	c.byTeacher = make(map[string][]*model.Assignment)
	for _, a := range c.Timetable.All() {
		key := daySlot{day: a.Day, slotID: a.SlotID}
		c.bySlot[key] = append(c.bySlot[key], a)
		if a.Teacher != "" {
			c.byTeacher[a.Teacher] = append(c.byTeacher[a.Teacher], a)
		}
	}
}

// Place 将分配加入课表并增量维护索引
func (c *Context) Place(a *model.Assignment) {
	c.Timetable.Place(a)
	key := daySlot{day: a.Day, slotID: a.SlotID}
	c.bySlot[key] = append(c.bySlot[key], a)
	if a.Teacher != "" {
		c.byTeacher[a.Teacher] = append(c.byTeacher[a.Teacher], a)
	}
}

// Remove 将分配从课表移除并增量维护索引
func (c *Context) Remove(grade, day, slotID string) {
	a := c.Timetable.Get(grade, day, slotID)
	if a == nil {
		return
	}
	c.Timetable.Remove(grade, day, slotID)
	key := daySlot{day: day, slotID: slotID}
	c.bySlot[key] = dropAssignment(c.bySlot[key], a)
	if a.Teacher != "" {
		c.byTeacher[a.Teacher] = dropAssignment(c.byTeacher[a.Teacher], a)
	}
}

// dropAssignment 从切片中移除指定分配，后放入的在后，倒序找更快
func dropAssignment(list []*model.Assignment, a *model.Assignment) []*model.Assignment {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i] == a {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// Grade 获取年级
func (c *Context) Grade(id string) *model.Grade {
	return c.gradeMap[id]
}

// Teacher 获取教师
func (c *Context) Teacher(id string) *model.Teacher {
	return c.teacherMap[id]
}

// SlotAssignments 获取某（天,时段）的全部分配
func (c *Context) SlotAssignments(day, slotID string) []*model.Assignment {
	return c.bySlot[daySlot{day: day, slotID: slotID}]
}

// TeacherAssignments 获取某教师的全部分配
func (c *Context) TeacherAssignments(id string) []*model.Assignment {
	return c.byTeacher[id]
}

// TeacherLoad 某教师的周课时
func (c *Context) TeacherLoad(id string) int {
	return len(c.byTeacher[id])
}

// Budget 某教师的周课时预算，ok=false 表示不限
func (c *Context) Budget(id string) (int, bool) {
	b, ok := c.Budgets[id]
	return b, ok
}

// Result 约束评估结果
type Result struct {
	IsValid        bool              `json:"is_valid"`
	TotalPenalty   int               `json:"total_penalty"`
	HardViolations []model.Violation `json:"hard_violations"`
	SoftViolations []model.Violation `json:"soft_violations"`
}

// Violations 按硬在前的顺序返回全部违反
func (r *Result) Violations() []model.Violation {
	out := make([]model.Violation, 0, len(r.HardViolations)+len(r.SoftViolations))
	out = append(out, r.HardViolations...)
	out = append(out, r.SoftViolations...)
	return out
}
