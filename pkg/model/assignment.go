package model

import "sort"

// CellKey 课表格子的键：（年级、天、时段）
type CellKey struct {
	Grade  string `json:"grade"`
	Day    string `json:"day"`
	SlotID string `json:"slot_id"`
}

// Assignment 课表的输出单元：某年级某时段上什么课、由谁授课
// Fixed 表示该格子由网格中的固定科目预先占用
type Assignment struct {
	Grade   string `json:"grade"`
	Day     string `json:"day"`
	SlotID  string `json:"slot_id"`
	Subject string `json:"subject"`
	Teacher string `json:"teacher,omitempty"`
	Fixed   bool   `json:"fixed,omitempty"`
}

// Key 返回格子键
func (a *Assignment) Key() CellKey {
	return CellKey{Grade: a.Grade, Day: a.Day, SlotID: a.SlotID}
}

// Timetable 课表：格子到分配的映射
// 同一格子只能有一个分配（年级冲突由结构本身排除）
type Timetable struct {
	cells map[CellKey]*Assignment
}

// NewTimetable 创建空课表
func NewTimetable() *Timetable {
	return &Timetable{cells: make(map[CellKey]*Assignment)}
}

// Place 放置一个分配，同键覆盖
func (t *Timetable) Place(a *Assignment) {
	t.cells[a.Key()] = a
}

// Get 获取某格子的分配
func (t *Timetable) Get(grade, day, slotID string) *Assignment {
	return t.cells[CellKey{Grade: grade, Day: day, SlotID: slotID}]
}

// Occupied 格子是否已占用
func (t *Timetable) Occupied(grade, day, slotID string) bool {
	_, ok := t.cells[CellKey{Grade: grade, Day: day, SlotID: slotID}]
	return ok
}

// Remove 移除某格子的分配
func (t *Timetable) Remove(grade, day, slotID string) {
	delete(t.cells, CellKey{Grade: grade, Day: day, SlotID: slotID})
}

// Len 已占用格子数
func (t *Timetable) Len() int {
	return len(t.cells)
}

// All 返回全部分配，按（年级、天、时段）字典序排序以保证遍历确定性
func (t *Timetable) All() []*Assignment {
	out := make([]*Assignment, 0, len(t.cells))
	for _, a := range t.cells {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Grade != out[j].Grade {
			return out[i].Grade < out[j].Grade
		}
		if out[i].Day != out[j].Day {
			return out[i].Day < out[j].Day
		}
		return out[i].SlotID < out[j].SlotID
	})
	return out
}

// Grade 返回某年级的全部分配（排序同 All）
func (t *Timetable) GradeAssignments(grade string) []*Assignment {
	var out []*Assignment
	for _, a := range t.All() {
		if a.Grade == grade {
			out = append(out, a)
		}
	}
	return out
}

// TeacherLoad 统计某教师的周课时
func (t *Timetable) TeacherLoad(teacher string) int {
	if teacher == "" {
		return 0
	}
	n := 0
	for _, a := range t.cells {
		if a.Teacher == teacher {
			n++
		}
	}
	return n
}

// Merge 将另一张课表合并进来（用于多段合并），同键覆盖
func (t *Timetable) Merge(other *Timetable) {
	for _, a := range other.cells {
		t.cells[a.Key()] = a
	}
}

// Clone 深拷贝课表
func (t *Timetable) Clone() *Timetable {
	c := NewTimetable()
	for _, a := range t.cells {
		cp := *a
		c.cells[cp.Key()] = &cp
	}
	return c
}
