package stats

import (
	"sort"

	"github.com/paike/paike/pkg/model"
)

// CoverageMetrics 课表覆盖指标
type CoverageMetrics struct {
	// 整体覆盖
	TotalCells      int     `json:"total_cells"`      // 全部年级可排格子数
	AssignedCells   int     `json:"assigned_cells"`   // 已排格子数
	OverallCoverage float64 `json:"overall_coverage"` // 整体覆盖率 (%)
	FillerCells     int     `json:"filler_cells"`     // 自习补位格子数

	// 按年级统计
	GradeCoverage map[string]GradeCoverage `json:"grade_coverage"`

	// 问题识别
	BlankCells         []model.CellKey    `json:"blank_cells,omitempty"`          // 空档格子
	ShortfallBySubject []SubjectShortfall `json:"shortfall_by_subject,omitempty"` // 排课不足的科目
}

// GradeCoverage 单个年级的覆盖情况
type GradeCoverage struct {
	Grade        string         `json:"grade"`
	TotalCells   int            `json:"total_cells"`
	Assigned     int            `json:"assigned"`
	CoverageRate float64        `json:"coverage_rate"`
	BySubject    map[string]int `json:"by_subject"` // 各科目实际课时
}

// SubjectShortfall 科目排课缺口
type SubjectShortfall struct {
	Grade    string `json:"grade"`
	Subject  string `json:"subject"`
	Demanded int    `json:"demanded"`
	Placed   int    `json:"placed"`
}

// CoverageAnalyzer 覆盖率分析器
type CoverageAnalyzer struct {
	fillerSubject string
}

// NewCoverageAnalyzer 创建覆盖率分析器
func NewCoverageAnalyzer(fillerSubject string) *CoverageAnalyzer {
	return &CoverageAnalyzer{fillerSubject: fillerSubject}
}

// Analyze 对比课表与需求，计算覆盖率与科目缺口
func (ca *CoverageAnalyzer) Analyze(tt *model.Timetable, grid *model.Grid, grades []*model.Grade) *CoverageMetrics {
	metrics := &CoverageMetrics{
		GradeCoverage: make(map[string]GradeCoverage),
	}

	perGrade := grid.Capacity()
	for _, g := range grades {
		gc := GradeCoverage{
			Grade:      g.ID,
			TotalCells: perGrade,
			BySubject:  make(map[string]int),
		}

		for _, day := range grid.Days {
			for _, slot := range grid.AssignableSlots() {
				a := tt.Get(g.ID, day, slot.ID)
				if a == nil {
					metrics.BlankCells = append(metrics.BlankCells,
						model.CellKey{Grade: g.ID, Day: day, SlotID: slot.ID})
					continue
				}
				gc.Assigned++
				gc.BySubject[a.Subject]++
				if ca.fillerSubject != "" && a.Subject == ca.fillerSubject {
					metrics.FillerCells++
				}
			}
		}
		if gc.TotalCells > 0 {
			gc.CoverageRate = float64(gc.Assigned) / float64(gc.TotalCells) * 100
		}

		for _, dem := range g.Demands {
			if placed := gc.BySubject[dem.Subject]; placed < dem.Periods {
				metrics.ShortfallBySubject = append(metrics.ShortfallBySubject, SubjectShortfall{
					Grade:    g.ID,
					Subject:  dem.Subject,
					Demanded: dem.Periods,
					Placed:   placed,
				})
			}
		}

		metrics.TotalCells += gc.TotalCells
		metrics.AssignedCells += gc.Assigned
		metrics.GradeCoverage[g.ID] = gc
	}

	if metrics.TotalCells > 0 {
		metrics.OverallCoverage = float64(metrics.AssignedCells) / float64(metrics.TotalCells) * 100
	}
	sort.Slice(metrics.ShortfallBySubject, func(i, j int) bool {
		a, b := metrics.ShortfallBySubject[i], metrics.ShortfallBySubject[j]
		if a.Grade != b.Grade {
			return a.Grade < b.Grade
		}
		return a.Subject < b.Subject
	})

	return metrics
}
