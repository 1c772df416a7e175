package constraint

import (
	"testing"

	"github.com/paike/paike/pkg/model"
)

// fakeRule 测试用约束
type fakeRule struct {
	name     string
	kind     Kind
	category Category
	weight   int
	valid    bool
	penalty  int
}

func (f *fakeRule) Name() string       { return f.name }
func (f *fakeRule) Kind() Kind         { return f.kind }
func (f *fakeRule) Category() Category { return f.category }
func (f *fakeRule) Weight() int        { return f.weight }

func (f *fakeRule) Evaluate(ctx *Context) (bool, int, []model.Violation) {
	if f.valid {
		return true, f.penalty, nil
	}
	return false, f.penalty, []model.Violation{{
		Kind:     model.ViolationTeacherClash,
		Severity: model.SeverityHard,
		Message:  f.name,
		Penalty:  f.penalty,
	}}
}

// fakeScorer 测试用可增量计分的软约束
type fakeScorer struct {
	fakeRule
	delta int
}

func (f *fakeScorer) ScoreAssignment(ctx *Context, a *model.Assignment) int {
	return f.delta
}

func TestManagerRegisterOrder(t *testing.T) {
	m := NewManager()
	m.Register(&fakeRule{name: "软A", kind: Kind("soft_a"), category: CategorySoft, weight: 10, valid: true})
	m.Register(&fakeRule{name: "硬B", kind: Kind("hard_b"), category: CategoryHard, weight: 50, valid: true})
	m.Register(&fakeRule{name: "硬A", kind: Kind("hard_a"), category: CategoryHard, weight: 100, valid: true})

	all := m.All()
	if len(all) != 3 {
		t.Fatalf("约束数 = %d, 期望 3", len(all))
	}
	// 硬约束在前，权重高的在前
	if all[0].Name() != "硬A" || all[1].Name() != "硬B" || all[2].Name() != "软A" {
		t.Errorf("排序 = %s, %s, %s", all[0].Name(), all[1].Name(), all[2].Name())
	}
}

func TestManagerRegisterReplace(t *testing.T) {
	m := NewManager()
	m.Register(&fakeRule{name: "旧", kind: Kind("x"), category: CategorySoft, weight: 1, valid: true})
	m.Register(&fakeRule{name: "新", kind: Kind("x"), category: CategorySoft, weight: 2, valid: true})

	if m.Count() != 1 {
		t.Errorf("同类型注册应替换，数量 = %d", m.Count())
	}
	if m.Get(Kind("x")).Name() != "新" {
		t.Error("应保留后注册的约束")
	}
}

func TestManagerEvaluate(t *testing.T) {
	m := NewManager()
	m.Register(&fakeRule{name: "硬", kind: Kind("h"), category: CategoryHard, weight: 100, valid: false, penalty: 100})
	m.Register(&fakeRule{name: "软", kind: Kind("s"), category: CategorySoft, weight: 5, valid: true, penalty: 5})

	ctx := NewContext(model.NewGrid([]string{"周一"}, []model.Slot{{ID: "A", Kind: model.SlotClass}}), nil, nil)
	result := m.Evaluate(ctx)

	if result.IsValid {
		t.Error("硬约束违反时结果应无效")
	}
	if result.TotalPenalty != 105 {
		t.Errorf("总惩罚 = %d, 期望 105", result.TotalPenalty)
	}
	if len(result.HardViolations) != 1 {
		t.Errorf("硬违规数 = %d, 期望 1", len(result.HardViolations))
	}
}

func TestManagerPenalty(t *testing.T) {
	m := NewManager()
	m.Register(&fakeScorer{fakeRule: fakeRule{name: "软计分", kind: Kind("s1"), category: CategorySoft, weight: 5, valid: true}, delta: 7})
	m.Register(&fakeRule{name: "软无计分", kind: Kind("s2"), category: CategorySoft, weight: 3, valid: true, penalty: 99})
	m.Register(&fakeScorer{fakeRule: fakeRule{name: "硬", kind: Kind("h"), category: CategoryHard, weight: 100, valid: true}, delta: 1000})

	ctx := NewContext(model.NewGrid([]string{"周一"}, []model.Slot{{ID: "A", Kind: model.SlotClass}}), nil, nil)
	got := m.Penalty(ctx, &model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学"})

	// 只有实现增量计分的软约束参与
	if got != 7 {
		t.Errorf("惩罚增量 = %d, 期望 7", got)
	}
}

func TestContextIncrementalIndexes(t *testing.T) {
	grid := model.NewGrid([]string{"周一"}, []model.Slot{
		{ID: "A", Kind: model.SlotClass},
		{ID: "B", Kind: model.SlotClass},
	})
	ctx := NewContext(grid, nil, nil)

	a := &model.Assignment{Grade: "一班", Day: "周一", SlotID: "A", Subject: "数学", Teacher: "T1"}
	ctx.Place(a)
	if ctx.TeacherLoad("T1") != 1 {
		t.Errorf("教师负荷 = %d, 期望 1", ctx.TeacherLoad("T1"))
	}
	if len(ctx.SlotAssignments("周一", "A")) != 1 {
		t.Error("时段索引应含新放入的分配")
	}

	ctx.Remove("一班", "周一", "A")
	if ctx.TeacherLoad("T1") != 0 || len(ctx.SlotAssignments("周一", "A")) != 0 {
		t.Error("移除后索引应回到空")
	}
	if ctx.Timetable.Len() != 0 {
		t.Errorf("课表格子数 = %d, 期望 0", ctx.Timetable.Len())
	}
}
