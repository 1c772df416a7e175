package handler

import (
	"net/http"

	"github.com/paike/paike/internal/config"
	"github.com/paike/paike/internal/metrics"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/stats"
)

// StatsRequest 统计分析请求：问题描述加一份课表
type StatsRequest struct {
	config.Problem
	Assignments []*model.Assignment `json:"assignments"`
}

// timetable 由分配列表构建课表
func (r *StatsRequest) timetable() *model.Timetable {
	tt := model.NewTimetable()
	for _, a := range r.Assignments {
		tt.Place(a)
	}
	return tt
}

// FairnessHandler 教师负荷公平性分析
func FairnessHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req StatsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	m := stats.NewFairnessAnalyzer().Analyze(req.timetable(), req.Teachers, nil)
	metrics.SetFairnessGini(m.LoadGini)

	respondJSON(w, http.StatusOK, m)
}

// CoverageHandler 课表覆盖率分析
func CoverageHandler(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req StatsRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	filler := constraint.DefaultSettings().FillerSubject
	if req.Settings != nil && req.Settings.FillerSubject != "" {
		filler = req.Settings.FillerSubject
	}

	m := stats.NewCoverageAnalyzer(filler).Analyze(req.timetable(), req.Grid(), req.Grades)
	metrics.SetCoverageRate(m.OverallCoverage)

	respondJSON(w, http.StatusOK, m)
}
