package handler

import (
	"net/http"
	"time"

	"github.com/paike/paike/internal/config"
	"github.com/paike/paike/internal/metrics"
	"github.com/paike/paike/internal/repository"
	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/explainer"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/constraint"
	"github.com/paike/paike/pkg/scheduler/diagnoser"
	"github.com/paike/paike/pkg/scheduler/planner"
	"github.com/paike/paike/pkg/scheduler/solver"
	"github.com/paike/paike/pkg/validator"
)

// TimetableHandler 排课处理器
type TimetableHandler struct {
	cfg  *config.Config
	runs *repository.RunRepository // 可为 nil（未接数据库时不持久化）
}

// NewTimetableHandler 创建排课处理器
func NewTimetableHandler(cfg *config.Config, runs *repository.RunRepository) *TimetableHandler {
	return &TimetableHandler{cfg: cfg, runs: runs}
}

// GenerateOptions 生成选项
type GenerateOptions struct {
	Segment string `json:"segment,omitempty"` // 段名或 ALL，缺省为 ALL
	Workers int    `json:"workers,omitempty"`
	Timeout int    `json:"timeout_seconds,omitempty"`
	Mode    string `json:"mode,omitempty"` // joint / day_first
	Persist bool   `json:"persist,omitempty"`
}

// GenerateRequest 排课生成请求
type GenerateRequest struct {
	config.Problem
	Options *GenerateOptions `json:"options,omitempty"`
}

// GenerateResponse 排课生成响应
type GenerateResponse struct {
	RunID       string                   `json:"run_id"`
	Feasible    bool                     `json:"feasible"`
	Duration    string                   `json:"duration"`
	Segments    []*planner.SegmentResult `json:"segments"`
	Assignments []*model.Assignment      `json:"assignments"`
	Report      *validator.Report        `json:"report"`
	ExitCode    int                      `json:"exit_code"`
}

// Generate 生成课表
func (h *TimetableHandler) Generate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req GenerateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	opts := h.solverOptions(req.Options)
	segments, err := planner.Resolve(req.DefaultSegments(), h.segmentName(req.Options))
	if err != nil {
		respondError(w, err)
		return
	}

	p := planner.NewPlanner(req.Grid(), req.Grades, req.Teachers, req.Settings, opts)
	run, err := p.Plan(r.Context(), segments)
	if err != nil {
		respondError(w, err)
		return
	}

	backtracks := 0
	for _, seg := range run.Segments {
		if seg.Solution != nil && seg.Solution.Trace != nil {
			backtracks += seg.Solution.Trace.Backtracks
		}
		metrics.SetSolutionPenalty(seg.Segment, seg.Penalty)
	}
	metrics.RecordTimetableRun(h.segmentName(req.Options), run.Feasible, run.Duration, backtracks)

	if req.Options != nil && req.Options.Persist && h.runs != nil {
		if err := h.runs.Save(r.Context(), run); err != nil {
			respondError(w, err)
			return
		}
	}

	respondJSON(w, http.StatusOK, &GenerateResponse{
		RunID:       run.RunID.String(),
		Feasible:    run.Feasible,
		Duration:    run.Duration.String(),
		Segments:    run.Segments,
		Assignments: run.Merged.All(),
		Report:      run.Report,
		ExitCode:    run.Report.ExitCode(),
	})
}

// ValidateRequest 课表复核请求
type ValidateRequest struct {
	config.Problem
	Assignments          []*model.Assignment `json:"assignments"`
	Mode                 string              `json:"mode,omitempty"` // lenient / strict
	SoftPenaltyThreshold int                 `json:"soft_penalty_threshold,omitempty"`
}

// ValidateResponse 复核响应
type ValidateResponse struct {
	Report   *validator.Report `json:"report"`
	ExitCode int               `json:"exit_code"`
}

// Validate 独立复核一份课表（幂等，只读）
func (h *TimetableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req ValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	vcfg := &validator.Config{
		Mode:                 validator.ModeLenient,
		SoftPenaltyThreshold: req.SoftPenaltyThreshold,
	}
	if req.Mode == string(validator.ModeStrict) {
		vcfg.Mode = validator.ModeStrict
	} else if h.cfg != nil && h.cfg.Validator.Mode == string(validator.ModeStrict) {
		vcfg.Mode = validator.ModeStrict
	}

	a := validator.NewAuditor(req.Grid(), req.Grades, req.Teachers, req.Settings, nil, vcfg)
	report := a.ValidateAssignments(req.Assignments)
	metrics.RecordValidation(report.Pass)

	respondJSON(w, http.StatusOK, &ValidateResponse{
		Report:   report,
		ExitCode: report.ExitCode(),
	})
}

// ExplainRequest 解释请求
type ExplainRequest struct {
	config.Problem
	Grade   string `json:"grade"`
	Subject string `json:"subject"`
}

// ExplainResponse 解释响应
type ExplainResponse struct {
	Feasible    bool                   `json:"feasible"`
	Explanation *explainer.Explanation `json:"explanation"`
	Text        string                 `json:"text"`
}

// Explain 解释某年级某科目的排布：确定性重解一次并回放搜索轨迹
func (h *TimetableHandler) Explain(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req ExplainRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}
	if req.Grade == "" || req.Subject == "" {
		respondError(w, apperrors.InvalidInput("grade/subject", "不可为空"))
		return
	}

	grid := req.Grid()
	m, err := constraint.Compile(grid, req.Grades, req.Teachers, req.Settings, nil)
	if err != nil {
		respondError(w, err)
		return
	}

	sol, err := solver.Search(r.Context(), m, solver.ModeJoint, nil)
	if err != nil {
		respondError(w, err)
		return
	}

	ex := explainer.Explain(sol.Timetable, sol.Trace, grid, req.Grade, req.Subject)
	respondJSON(w, http.StatusOK, &ExplainResponse{
		Feasible:    sol.Feasible,
		Explanation: ex,
		Text:        ex.Render(),
	})
}

// DiagnoseRequest 不可行诊断请求
type DiagnoseRequest struct {
	config.Problem
	TimeoutSeconds int `json:"timeout_seconds,omitempty"`
}

// Diagnose 诊断不可行输入，给出最小放松集
func (h *TimetableHandler) Diagnose(w http.ResponseWriter, r *http.Request) {
	if !requirePost(w, r) {
		return
	}

	var req DiagnoseRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, err)
		return
	}

	timeout := time.Duration(0)
	if req.TimeoutSeconds > 0 {
		timeout = time.Duration(req.TimeoutSeconds) * time.Second
	} else if h.cfg != nil {
		timeout = h.cfg.Diagnoser.Timeout
	}

	d := diagnoser.New(req.Grid(), req.Grades, req.Teachers, req.Settings, nil, timeout)
	diag := d.Diagnose(r.Context())
	metrics.RecordDiagnosis(diag.MinimalityProven)

	respondJSON(w, http.StatusOK, diag)
}

// solverOptions 合并请求选项与进程配置
func (h *TimetableHandler) solverOptions(opts *GenerateOptions) *solver.Options {
	out := solver.DefaultOptions()
	if h.cfg != nil {
		if h.cfg.Solver.Workers > 0 {
			out.Workers = h.cfg.Solver.Workers
		}
		if h.cfg.Solver.DefaultTimeout > 0 {
			out.Timeout = h.cfg.Solver.DefaultTimeout
		}
		if h.cfg.Solver.Mode != "" {
			out.Mode = solver.Mode(h.cfg.Solver.Mode)
		}
	}
	if opts == nil {
		return out
	}
	if opts.Workers > 0 {
		out.Workers = opts.Workers
	}
	if opts.Timeout > 0 {
		out.Timeout = time.Duration(opts.Timeout) * time.Second
	}
	if opts.Mode != "" {
		out.Mode = solver.Mode(opts.Mode)
	}
	return out
}

// segmentName 返回请求的段名，缺省为 ALL
func (h *TimetableHandler) segmentName(opts *GenerateOptions) string {
	if opts != nil && opts.Segment != "" {
		return opts.Segment
	}
	return planner.SegmentAll
}
