package constraint

import (
	"sort"
	"sync"

	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/model"
)

// Manager 约束管理器
type Manager struct {
	rules  []Rule
	mu     sync.RWMutex
	logger *logger.SolverLogger
}

// NewManager 创建约束管理器
func NewManager() *Manager {
	return &Manager{
		rules:  make([]Rule, 0),
		logger: logger.NewSolverLogger(),
	}
}

// Register 注册约束，同类型替换
func (m *Manager) Register(r Rule) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, existing := range m.rules {
		if existing.Kind() == r.Kind() {
			m.rules[i] = r
			return
		}
	}

	m.rules = append(m.rules, r)

	// 按类别和权重排序：硬约束在前，权重高的在前
	sort.Slice(m.rules, func(i, j int) bool {
		ri, rj := m.rules[i], m.rules[j]
		if ri.Category() != rj.Category() {
			return ri.Category() == CategoryHard
		}
		return ri.Weight() > rj.Weight()
	})
}

// Unregister 注销约束
func (m *Manager) Unregister(k Kind) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i, r := range m.rules {
		if r.Kind() == k {
			m.rules = append(m.rules[:i], m.rules[i+1:]...)
			return
		}
	}
}

// Get 获取约束
func (m *Manager) Get(k Kind) Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.rules {
		if r.Kind() == k {
			return r
		}
	}
	return nil
}

// All 获取所有约束
func (m *Manager) All() []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Rule, len(m.rules))
	copy(out, m.rules)
	return out
}

// ByCategory 按类别获取约束
func (m *Manager) ByCategory(cat Category) []Rule {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Rule
	for _, r := range m.rules {
		if r.Category() == cat {
			out = append(out, r)
		}
	}
	return out
}

// Evaluate 评估所有约束
func (m *Manager) Evaluate(ctx *Context) *Result {
	rules := m.All()

	result := &Result{
		IsValid:        true,
		HardViolations: make([]model.Violation, 0),
		SoftViolations: make([]model.Violation, 0),
	}

	for _, r := range rules {
		valid, penalty, violations := r.Evaluate(ctx)
		result.TotalPenalty += penalty

		for _, v := range violations {
			if r.Category() == CategoryHard {
				result.HardViolations = append(result.HardViolations, v)
				m.logger.ConstraintViolation(r.Name(), v.Message)
			} else {
				result.SoftViolations = append(result.SoftViolations, v)
			}
		}
		if !valid && r.Category() == CategoryHard {
			result.IsValid = false
		}
	}

	return result
}

// Penalty 计算把某分配放入当前课表的软惩罚增量
// 只有实现 AssignmentScorer 的软约束参与计分
func (m *Manager) Penalty(ctx *Context, a *model.Assignment) int {
	total := 0
	for _, r := range m.ByCategory(CategorySoft) {
		if s, ok := r.(AssignmentScorer); ok {
			total += s.ScoreAssignment(ctx, a)
		}
	}
	return total
}

// Clear 清除所有约束
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rules = make([]Rule, 0)
}

// Count 返回约束数量
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.rules)
}

// Summary 返回约束摘要
func (m *Manager) Summary() map[string]interface{} {
	m.mu.RLock()
	defer m.mu.RUnlock()

	hard := 0
	soft := 0
	for _, r := range m.rules {
		if r.Category() == CategoryHard {
			hard++
		} else {
			soft++
		}
	}

	return map[string]interface{}{
		"total": len(m.rules),
		"hard":  hard,
		"soft":  soft,
	}
}
