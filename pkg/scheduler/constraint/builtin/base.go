// Package builtin 提供内置排课约束实现
package builtin

import (
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// BaseRule 约束基类
type BaseRule struct {
	name     string
	kind     constraint.Kind
	category constraint.Category
	weight   int
}

// NewBaseRule 创建基础约束
func NewBaseRule(name string, kind constraint.Kind, cat constraint.Category, weight int) *BaseRule {
	return &BaseRule{
		name:     name,
		kind:     kind,
		category: cat,
		weight:   weight,
	}
}

// Name 返回约束名称
func (r *BaseRule) Name() string { return r.name }

// Kind 返回约束类型
func (r *BaseRule) Kind() constraint.Kind { return r.kind }

// Category 返回约束类别
func (r *BaseRule) Category() constraint.Category { return r.category }

// Weight 返回约束权重
func (r *BaseRule) Weight() int { return r.weight }

// severity 约束类别对应的违规级别
func (r *BaseRule) severity() model.Severity {
	if r.category == constraint.CategoryHard {
		return model.SeverityHard
	}
	return model.SeveritySoft
}

// Evaluate 默认评估实现（子类需覆盖）
func (r *BaseRule) Evaluate(ctx *constraint.Context) (bool, int, []model.Violation) {
	return true, 0, nil
}
