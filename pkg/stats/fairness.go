// Package stats 提供课表统计分析功能
package stats

import (
	"math"
	"sort"

	"github.com/paike/paike/pkg/model"
)

// FairnessMetrics 教师负荷公平性指标
type FairnessMetrics struct {
	// 负荷公平性
	LoadGini     float64 `json:"load_gini"`     // 课时基尼系数 (0=完全公平, 1=完全不公平)
	LoadVariance float64 `json:"load_variance"` // 课时方差
	LoadStdDev   float64 `json:"load_std_dev"`  // 课时标准差
	AvgLoad      float64 `json:"avg_load"`      // 人均周课时
	MaxLoad      int     `json:"max_load"`      // 最大周课时
	MinLoad      int     `json:"min_load"`      // 最小周课时
	LoadRange    int     `json:"load_range"`    // 课时极差

	// 教师级别统计
	TeacherStats []TeacherStat `json:"teacher_stats"`

	// 综合评分
	OverallFairnessScore float64 `json:"overall_fairness_score"` // 综合公平性评分 (0-100)
}

// TeacherStat 单个教师统计
type TeacherStat struct {
	TeacherID   string         `json:"teacher_id"`
	TeacherName string         `json:"teacher_name"`
	Load        int            `json:"load"`             // 周课时
	Budget      int            `json:"budget,omitempty"` // 周预算（0表示无上限）
	BySubject   map[string]int `json:"by_subject"`       // 分科目课时
	ByGrade     map[string]int `json:"by_grade"`         // 分年级课时
	Deviation   float64        `json:"deviation"`        // 与平均值的偏差百分比
}

// FairnessAnalyzer 教师负荷公平性分析器
type FairnessAnalyzer struct{}

// NewFairnessAnalyzer 创建公平性分析器
func NewFairnessAnalyzer() *FairnessAnalyzer {
	return &FairnessAnalyzer{}
}

// Analyze 分析课表的教师负荷分布
// 只统计实际有课的教师；budgets 可为 nil
func (fa *FairnessAnalyzer) Analyze(tt *model.Timetable, teachers []*model.Teacher, budgets map[string]int) *FairnessMetrics {
	metrics := &FairnessMetrics{
		TeacherStats: []TeacherStat{},
	}
	if tt == nil || tt.Len() == 0 {
		return metrics
	}

	names := make(map[string]string, len(teachers))
	for _, t := range teachers {
		names[t.ID] = t.Name
	}

	byTeacher := make(map[string]*TeacherStat)
	for _, a := range tt.All() {
		if a.Teacher == "" {
			continue // 自习补位无教师
		}
		st, ok := byTeacher[a.Teacher]
		if !ok {
			st = &TeacherStat{
				TeacherID:   a.Teacher,
				TeacherName: names[a.Teacher],
				BySubject:   make(map[string]int),
				ByGrade:     make(map[string]int),
			}
			if budgets != nil {
				st.Budget = budgets[a.Teacher]
			}
			byTeacher[a.Teacher] = st
		}
		st.Load++
		st.BySubject[a.Subject]++
		st.ByGrade[a.Grade]++
	}
	if len(byTeacher) == 0 {
		return metrics
	}

	loads := make([]float64, 0, len(byTeacher))
	total := 0
	metrics.MinLoad = math.MaxInt
	for _, st := range byTeacher {
		loads = append(loads, float64(st.Load))
		total += st.Load
		if st.Load > metrics.MaxLoad {
			metrics.MaxLoad = st.Load
		}
		if st.Load < metrics.MinLoad {
			metrics.MinLoad = st.Load
		}
	}
	metrics.AvgLoad = float64(total) / float64(len(byTeacher))
	metrics.LoadRange = metrics.MaxLoad - metrics.MinLoad
	metrics.LoadVariance = variance(loads, metrics.AvgLoad)
	metrics.LoadStdDev = math.Sqrt(metrics.LoadVariance)
	metrics.LoadGini = gini(loads)

	for _, st := range byTeacher {
		if metrics.AvgLoad > 0 {
			st.Deviation = (float64(st.Load) - metrics.AvgLoad) / metrics.AvgLoad * 100
		}
		metrics.TeacherStats = append(metrics.TeacherStats, *st)
	}
	sort.Slice(metrics.TeacherStats, func(i, j int) bool {
		if metrics.TeacherStats[i].Load != metrics.TeacherStats[j].Load {
			return metrics.TeacherStats[i].Load > metrics.TeacherStats[j].Load
		}
		return metrics.TeacherStats[i].TeacherID < metrics.TeacherStats[j].TeacherID
	})

	// 基尼系数越低越公平，映射到0-100评分
	metrics.OverallFairnessScore = math.Round((1-metrics.LoadGini)*100*10) / 10

	return metrics
}

// gini 计算基尼系数
func gini(values []float64) float64 {
	n := len(values)
	if n <= 1 {
		return 0
	}
	sorted := make([]float64, n)
	copy(sorted, values)
	sort.Float64s(sorted)

	var cum, total float64
	for i, v := range sorted {
		cum += float64(i+1) * v
		total += v
	}
	if total == 0 {
		return 0
	}
	return (2*cum)/(float64(n)*total) - float64(n+1)/float64(n)
}

// variance 计算方差
func variance(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(values))
}
