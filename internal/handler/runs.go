package handler

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/repository"
	apperrors "github.com/paike/paike/pkg/errors"
)

// RunsHandler 历史运行查询处理器
type RunsHandler struct {
	runs *repository.RunRepository
}

// NewRunsHandler 创建历史运行处理器
func NewRunsHandler(runs *repository.RunRepository) *RunsHandler {
	return &RunsHandler{runs: runs}
}

// available 未接数据库时直接报错
func (h *RunsHandler) available(w http.ResponseWriter) bool {
	if h.runs == nil {
		respondError(w, apperrors.New(apperrors.CodeDatabaseError, "未启用运行持久化"))
		return false
	}
	return true
}

// List 分页列出历史运行
// GET /api/v1/runs?limit=20&offset=0&segment=小学部&feasible=true
func (h *RunsHandler) List(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	filter := repository.DefaultListFilter()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		filter = filter.WithLimit(v)
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil && v >= 0 {
		filter = filter.WithOffset(v)
	}
	if s := q.Get("segment"); s != "" {
		filter = filter.WithSegment(s)
	}
	if f := q.Get("feasible"); f != "" {
		b, err := strconv.ParseBool(f)
		if err != nil {
			respondError(w, apperrors.InvalidInput("feasible", "应为布尔值"))
			return
		}
		filter = filter.WithFeasible(b)
	}

	items, total, err := h.runs.List(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"items":  items,
		"total":  total,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}

// Get 读取单次运行（含课表与复核报告）
// GET /api/v1/runs/{id}
func (h *RunsHandler) Get(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, apperrors.InvalidInput("id", "无效的运行ID格式"))
		return
	}

	rec, err := h.runs.Get(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"run":         rec,
		"assignments": rec.Timetable.All(),
	})
}

// Delete 删除单次运行
// DELETE /api/v1/runs/{id}
func (h *RunsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if !h.available(w) {
		return
	}

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		respondError(w, apperrors.InvalidInput("id", "无效的运行ID格式"))
		return
	}

	if err := h.runs.Delete(r.Context(), id); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"deleted": id.String()})
}
