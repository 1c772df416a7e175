package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/paike/paike/internal/database"
	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/model"
	"github.com/paike/paike/pkg/scheduler/planner"
	"github.com/paike/paike/pkg/validator"
)

// RunSummary 运行列表项
type RunSummary struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"started_at"`
	Duration  int64     `json:"duration_ms"`
	Feasible  bool      `json:"feasible"`
	Segments  int       `json:"segments"`
	Cells     int       `json:"cells"`
}

// RunRecord 持久化的完整运行记录
type RunRecord struct {
	RunSummary
	Report         *validator.Report        `json:"report,omitempty"`
	SegmentResults []*planner.SegmentResult `json:"segment_results"`
	Timetable      *model.Timetable         `json:"-"`
}

// RunRepository 排课运行仓储
type RunRepository struct {
	db *database.DB
}

// NewRunRepository 创建运行仓储
func NewRunRepository(db *database.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Migrate 创建表结构
func (r *RunRepository) Migrate(ctx context.Context) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			started_at TIMESTAMPTZ NOT NULL,
			duration_ms BIGINT NOT NULL,
			feasible BOOLEAN NOT NULL,
			report JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS run_segments (
			run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			segment TEXT NOT NULL,
			feasible BOOLEAN NOT NULL,
			penalty INT NOT NULL,
			error TEXT,
			PRIMARY KEY (run_id, segment)
		)`,
		`CREATE TABLE IF NOT EXISTS run_assignments (
			run_id UUID NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			grade TEXT NOT NULL,
			day TEXT NOT NULL,
			slot_id TEXT NOT NULL,
			subject TEXT NOT NULL,
			teacher TEXT,
			fixed BOOLEAN NOT NULL DEFAULT false,
			PRIMARY KEY (run_id, grade, day, slot_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_run_assignments_teacher
			ON run_assignments (run_id, teacher)`,
	}
	for _, q := range ddl {
		if _, err := r.db.ExecContext(ctx, q); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "建表失败")
		}
	}
	return nil
}

// Save 持久化一次编排运行：头记录、分段结果、课表格子与复核报告
func (r *RunRepository) Save(ctx context.Context, run *planner.RunResult) error {
	report, err := json.Marshal(run.Report)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeInternal, "序列化复核报告失败")
	}

	ctx = database.WithRun(ctx, run.RunID)
	return r.db.Transaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO runs (id, started_at, duration_ms, feasible, report)
			 VALUES ($1, $2, $3, $4, $5)`,
			run.RunID, run.StartedAt, run.Duration.Milliseconds(), run.Feasible, report,
		); err != nil {
			return apperrors.Wrap(err, apperrors.CodeDatabaseError, "写入运行记录失败")
		}

		for _, seg := range run.Segments {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO run_segments (run_id, segment, feasible, penalty, error)
				 VALUES ($1, $2, $3, $4, $5)`,
				run.RunID, seg.Segment, seg.Feasible, seg.Penalty, seg.Error,
			); err != nil {
				return apperrors.Wrap(err, apperrors.CodeDatabaseError, "写入段结果失败")
			}
		}

		if run.Merged != nil {
			for _, a := range run.Merged.All() {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO run_assignments (run_id, grade, day, slot_id, subject, teacher, fixed)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					run.RunID, a.Grade, a.Day, a.SlotID, a.Subject, a.Teacher, a.Fixed,
				); err != nil {
					return apperrors.Wrap(err, apperrors.CodeDatabaseError, "写入课表格子失败")
				}
			}
		}

		return nil
	})
}

// Get 读取完整运行记录（含课表与报告）
func (r *RunRepository) Get(ctx context.Context, id uuid.UUID) (*RunRecord, error) {
	ctx = database.WithRun(ctx, id)
	rec := &RunRecord{}
	var report []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT id, started_at, duration_ms, feasible, report FROM runs WHERE id = $1`, id,
	).Scan(&rec.ID, &rec.StartedAt, &rec.Duration, &rec.Feasible, &report)
	if err == sql.ErrNoRows {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取运行记录失败")
	}
	if len(report) > 0 {
		rec.Report = &validator.Report{}
		if err := json.Unmarshal(report, rec.Report); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeInternal, "反序列化复核报告失败")
		}
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT segment, feasible, penalty, COALESCE(error, '')
		 FROM run_segments WHERE run_id = $1 ORDER BY segment`, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取段结果失败")
	}
	defer rows.Close()
	for rows.Next() {
		seg := &planner.SegmentResult{}
		if err := rows.Scan(&seg.Segment, &seg.Feasible, &seg.Penalty, &seg.Error); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描段结果失败")
		}
		rec.SegmentResults = append(rec.SegmentResults, seg)
	}
	rec.Segments = len(rec.SegmentResults)

	tt, err := r.Timetable(ctx, id)
	if err != nil {
		return nil, err
	}
	rec.Timetable = tt
	rec.Cells = tt.Len()

	return rec, nil
}

// Timetable 读取某次运行的合并课表
func (r *RunRepository) Timetable(ctx context.Context, id uuid.UUID) (*model.Timetable, error) {
	rows, err := r.db.QueryContext(database.WithRun(ctx, id),
		`SELECT grade, day, slot_id, subject, COALESCE(teacher, ''), fixed
		 FROM run_assignments WHERE run_id = $1`, id)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "读取课表失败")
	}
	defer rows.Close()

	tt := model.NewTimetable()
	for rows.Next() {
		a := &model.Assignment{}
		if err := rows.Scan(&a.Grade, &a.Day, &a.SlotID, &a.Subject, &a.Teacher, &a.Fixed); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描课表格子失败")
		}
		tt.Place(a)
	}
	return tt, rows.Err()
}

// List 分页列出运行记录
func (r *RunRepository) List(ctx context.Context, filter ListFilter) ([]*RunSummary, int, error) {
	where := "WHERE 1=1"
	args := []interface{}{}
	idx := 1

	if filter.Feasible != nil {
		where += fmt.Sprintf(" AND r.feasible = $%d", idx)
		args = append(args, *filter.Feasible)
		idx++
	}
	if filter.Segment != "" {
		where += fmt.Sprintf(" AND EXISTS (SELECT 1 FROM run_segments s WHERE s.run_id = r.id AND s.segment = $%d)", idx)
		args = append(args, filter.Segment)
		idx++
	}
	if filter.StartDate != "" {
		where += fmt.Sprintf(" AND r.started_at >= $%d", idx)
		args = append(args, filter.StartDate)
		idx++
	}
	if filter.EndDate != "" {
		where += fmt.Sprintf(" AND r.started_at <= $%d", idx)
		args = append(args, filter.EndDate)
		idx++
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM runs r "+where, args...,
	).Scan(&total); err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "统计运行记录失败")
	}

	dir := "DESC"
	if filter.OrderDir == "asc" {
		dir = "ASC"
	}
	query := fmt.Sprintf(
		`SELECT r.id, r.started_at, r.duration_ms, r.feasible,
		        (SELECT COUNT(*) FROM run_segments s WHERE s.run_id = r.id),
		        (SELECT COUNT(*) FROM run_assignments a WHERE a.run_id = r.id)
		 FROM runs r %s ORDER BY r.started_at %s LIMIT $%d OFFSET $%d`,
		where, dir, idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "查询运行列表失败")
	}
	defer rows.Close()

	var out []*RunSummary
	for rows.Next() {
		s := &RunSummary{}
		if err := rows.Scan(&s.ID, &s.StartedAt, &s.Duration, &s.Feasible, &s.Segments, &s.Cells); err != nil {
			return nil, 0, apperrors.Wrap(err, apperrors.CodeDatabaseError, "扫描运行列表失败")
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

// Delete 删除运行记录（级联删除段结果与课表）
func (r *RunRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(database.WithRun(ctx, id), `DELETE FROM runs WHERE id = $1`, id)
	if err != nil {
		return apperrors.Wrap(err, apperrors.CodeDatabaseError, "删除运行记录失败")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}
