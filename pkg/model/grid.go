// Package model 定义排课引擎的核心数据模型
package model

// SlotKind 时段类型
type SlotKind string

const (
	SlotClass SlotKind = "class" // 授课时段
	SlotBreak SlotKind = "break" // 课间休息
	SlotLunch SlotKind = "lunch" // 午餐
)

// Slot 周课表中的一个时段
// 休息/午餐时段不可排课；FixedSubject 表示该时段被固定科目占用
type Slot struct {
	ID           string   `json:"id" yaml:"id"`
	Start        string   `json:"start" yaml:"start"` // HH:MM
	End          string   `json:"end" yaml:"end"`     // HH:MM
	Kind         SlotKind `json:"kind" yaml:"kind"`
	FixedSubject string   `json:"fixed_subject,omitempty" yaml:"fixed_subject,omitempty"`
}

// Assignable 时段是否可自由排课
func (s *Slot) Assignable() bool {
	return s.Kind == SlotClass && s.FixedSubject == ""
}

// Grid 每周固定的时间网格（天 × 时段），加载后不可变
type Grid struct {
	Days  []string `json:"days" yaml:"days"`
	Slots []Slot   `json:"slots" yaml:"slots"`

	order map[string]int
	byID  map[string]*Slot
}

// NewGrid 创建时间网格
func NewGrid(days []string, slots []Slot) *Grid {
	g := &Grid{
		Days:  days,
		Slots: slots,
		order: make(map[string]int, len(slots)),
		byID:  make(map[string]*Slot, len(slots)),
	}
	for i := range g.Slots {
		g.order[g.Slots[i].ID] = i
		g.byID[g.Slots[i].ID] = &g.Slots[i]
	}
	return g
}

// Slot 根据ID获取时段
func (g *Grid) Slot(id string) *Slot {
	return g.byID[id]
}

// SlotOrder 返回时段在一天内的序号（用于相邻性判断），未知时段返回 -1
func (g *Grid) SlotOrder(id string) int {
	if i, ok := g.order[id]; ok {
		return i
	}
	return -1
}

// ClassSlots 返回全部授课时段（含固定科目时段）
func (g *Grid) ClassSlots() []Slot {
	var out []Slot
	for _, s := range g.Slots {
		if s.Kind == SlotClass {
			out = append(out, s)
		}
	}
	return out
}

// AssignableSlots 返回可自由排课的时段
func (g *Grid) AssignableSlots() []Slot {
	var out []Slot
	for _, s := range g.Slots {
		if s.Assignable() {
			out = append(out, s)
		}
	}
	return out
}

// Capacity 每个年级一周可自由排课的格子数
func (g *Grid) Capacity() int {
	return len(g.Days) * len(g.AssignableSlots())
}

// DayIndex 返回天的序号，未知返回 -1
func (g *Grid) DayIndex(day string) int {
	for i, d := range g.Days {
		if d == day {
			return i
		}
	}
	return -1
}

// Adjacent 判断同一天内两个时段是否相邻（忽略中间的休息/午餐）
func (g *Grid) Adjacent(slotA, slotB string) bool {
	ia, ib := g.SlotOrder(slotA), g.SlotOrder(slotB)
	if ia < 0 || ib < 0 || ia == ib {
		return false
	}
	lo, hi := ia, ib
	if lo > hi {
		lo, hi = hi, lo
	}
	// 中间若存在授课时段则不相邻
	for i := lo + 1; i < hi; i++ {
		if g.Slots[i].Kind == SlotClass {
			return false
		}
	}
	return true
}
