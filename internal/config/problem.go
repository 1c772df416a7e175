package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/planner"
)

// Problem 一次排课运行的完整问题描述
type Problem struct {
	Days     []string             `yaml:"days" json:"days"`
	Slots    []model.Slot         `yaml:"slots" json:"slots"`
	Grades   []*model.Grade       `yaml:"grades" json:"grades"`
	Teachers []*model.Teacher     `yaml:"teachers" json:"teachers"`
	Settings *constraint.Settings `yaml:"constraints,omitempty" json:"constraints,omitempty"`
	Segments []planner.Segment    `yaml:"segments,omitempty" json:"segments,omitempty"`
}

// LoadProblem 从YAML文件加载问题描述并做结构校验
func LoadProblem(path string) (*Problem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperrors.ConfigError(fmt.Sprintf("读取问题文件失败: %v", err))
	}
	return ParseProblem(data)
}

// ParseProblem 解析YAML问题描述
func ParseProblem(data []byte) (*Problem, error) {
	var p Problem
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, apperrors.ConfigError(fmt.Sprintf("解析问题文件失败: %v", err))
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Grid 构建时间网格
func (p *Problem) Grid() *model.Grid {
	return model.NewGrid(p.Days, p.Slots)
}

// DefaultSegments 返回段定义；未声明时把全部年级归入单一默认段
func (p *Problem) DefaultSegments() []planner.Segment {
	if len(p.Segments) > 0 {
		return p.Segments
	}
	grades := make([]string, 0, len(p.Grades))
	for _, g := range p.Grades {
		grades = append(grades, g.ID)
	}
	return []planner.Segment{{Name: "默认", Grades: grades}}
}

// Validate 结构校验：天/时段/年级/教师的基本完整性
// 深层矛盾（容量超限、资质缺失等）由约束编译检出
func (p *Problem) Validate() error {
	if len(p.Days) == 0 {
		return apperrors.ConfigError("问题描述未声明任何天")
	}
	seenDay := make(map[string]bool, len(p.Days))
	for _, d := range p.Days {
		if d == "" {
			return apperrors.ConfigError("天名称不可为空")
		}
		if seenDay[d] {
			return apperrors.ConfigError(fmt.Sprintf("天 %s 重复声明", d))
		}
		seenDay[d] = true
	}

	if len(p.Slots) == 0 {
		return apperrors.ConfigError("问题描述未声明任何时段")
	}
	seenSlot := make(map[string]bool, len(p.Slots))
	for _, s := range p.Slots {
		if s.ID == "" {
			return apperrors.ConfigError("时段ID不可为空")
		}
		if seenSlot[s.ID] {
			return apperrors.ConfigError(fmt.Sprintf("时段 %s 重复声明", s.ID))
		}
		seenSlot[s.ID] = true
		switch s.Kind {
		case model.SlotClass, model.SlotBreak, model.SlotLunch:
		default:
			return apperrors.ConfigError(fmt.Sprintf("时段 %s 类型未知: %s", s.ID, s.Kind))
		}
		if s.FixedSubject != "" && s.Kind != model.SlotClass {
			return apperrors.ConfigError(fmt.Sprintf("时段 %s 为非授课时段，不可固定科目", s.ID))
		}
	}

	if len(p.Grades) == 0 {
		return apperrors.ConfigError("问题描述未声明任何年级")
	}
	seenGrade := make(map[string]bool, len(p.Grades))
	for _, g := range p.Grades {
		if g.ID == "" {
			return apperrors.ConfigError("年级ID不可为空")
		}
		if seenGrade[g.ID] {
			return apperrors.ConfigError(fmt.Sprintf("年级 %s 重复声明", g.ID))
		}
		seenGrade[g.ID] = true
		seenSubject := make(map[string]bool, len(g.Demands))
		for _, d := range g.Demands {
			if d.Subject == "" {
				return apperrors.ConfigError(fmt.Sprintf("年级 %s 存在空科目", g.ID))
			}
			if seenSubject[d.Subject] {
				return apperrors.ConfigError(fmt.Sprintf("年级 %s 科目 %s 重复声明", g.ID, d.Subject))
			}
			seenSubject[d.Subject] = true
		}
	}

	seenTeacher := make(map[string]bool, len(p.Teachers))
	for _, t := range p.Teachers {
		if t.ID == "" {
			return apperrors.ConfigError("教师ID不可为空")
		}
		if seenTeacher[t.ID] {
			return apperrors.ConfigError(fmt.Sprintf("教师 %s 重复声明", t.ID))
		}
		seenTeacher[t.ID] = true
		for _, g := range t.Grades {
			if !seenGrade[g] {
				return apperrors.ConfigError(fmt.Sprintf("教师 %s 引用未知年级 %s", t.ID, g))
			}
		}
		if t.MaxLoad < 0 {
			return apperrors.ConfigError(fmt.Sprintf("教师 %s 周课时上限为负", t.ID))
		}
	}

	// 段内年级引用与段归属一致性由编排器复核，这里只查引用存在性
	for _, seg := range p.Segments {
		for _, g := range seg.Grades {
			if !seenGrade[g] {
				return apperrors.ConfigError(fmt.Sprintf("段 %s 引用未知年级 %s", seg.Name, g))
			}
		}
	}

	return nil
}
