package config

import (
	"os"
	"testing"
	"time"

	apperrors "github.com/paike/paike/pkg/errors"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("加载默认配置失败: %v", err)
	}
	if cfg.App.Name != "paike" || cfg.App.Port != 7012 {
		t.Errorf("应用默认值错误: %+v", cfg.App)
	}
	if cfg.Solver.Workers != 4 || cfg.Solver.Mode != "joint" {
		t.Errorf("求解默认值错误: %+v", cfg.Solver)
	}
	if cfg.Diagnoser.Timeout != 10*time.Second {
		t.Errorf("诊断超时默认值 = %v", cfg.Diagnoser.Timeout)
	}
	if !cfg.IsDevelopment() {
		t.Error("默认应为开发环境")
	}
}

func TestLoadFromEnv(t *testing.T) {
	os.Setenv("SOLVER_WORKERS", "8")
	os.Setenv("SOLVER_MODE", "day_first")
	os.Setenv("VALIDATOR_MODE", "strict")
	defer func() {
		os.Unsetenv("SOLVER_WORKERS")
		os.Unsetenv("SOLVER_MODE")
		os.Unsetenv("VALIDATOR_MODE")
	}()

	cfg, _ := Load()
	if cfg.Solver.Workers != 8 || cfg.Solver.Mode != "day_first" {
		t.Errorf("环境变量覆盖失败: %+v", cfg.Solver)
	}
	if cfg.Validator.Mode != "strict" {
		t.Errorf("复核模式 = %s", cfg.Validator.Mode)
	}
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "h", Port: 5432, User: "u", Password: "p", Name: "d", SSLMode: "disable"}
	want := "host=h port=5432 user=u password=p dbname=d sslmode=disable"
	if got := db.DSN(); got != want {
		t.Errorf("DSN = %q, 期望 %q", got, want)
	}
}

const validProblemYAML = `
days: [周一, 周二]
slots:
  - {id: A, kind: class}
  - {id: R, kind: break}
  - {id: B, kind: class}
grades:
  - id: 一班
    segment: 小学部
    demands:
      - {subject: 数学, category: core, periods: 2}
      - {subject: 语文, periods: 2}
teachers:
  - {id: T1, name: 王老师, subjects: [数学], grades: [一班]}
  - {id: T2, name: 李老师, subjects: [语文], grades: [一班], max_load: 10}
constraints:
  adjacency_cap: 1
  filler_subject: 自习
segments:
  - {name: 小学部, grades: [一班]}
`

func TestParseProblem(t *testing.T) {
	p, err := ParseProblem([]byte(validProblemYAML))
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if len(p.Days) != 2 || len(p.Slots) != 3 {
		t.Errorf("网格解析错误: days=%d slots=%d", len(p.Days), len(p.Slots))
	}
	if p.Grades[0].Demands[0].Subject != "数学" || p.Grades[0].Demands[0].Periods != 2 {
		t.Errorf("需求解析错误: %+v", p.Grades[0].Demands)
	}
	if p.Teachers[1].MaxLoad != 10 {
		t.Errorf("教师解析错误: %+v", p.Teachers[1])
	}
	if p.Settings == nil || p.Settings.AdjacencyCap != 1 {
		t.Errorf("约束参数解析错误: %+v", p.Settings)
	}

	grid := p.Grid()
	if grid.Capacity() != 4 {
		t.Errorf("网格容量 = %d, 期望 4", grid.Capacity())
	}
}

func TestDefaultSegments(t *testing.T) {
	p, _ := ParseProblem([]byte(validProblemYAML))
	if segs := p.DefaultSegments(); len(segs) != 1 || segs[0].Name != "小学部" {
		t.Errorf("已声明段应原样返回: %+v", segs)
	}

	p.Segments = nil
	segs := p.DefaultSegments()
	if len(segs) != 1 || segs[0].Name != "默认" || len(segs[0].Grades) != 1 {
		t.Errorf("未声明段应生成默认段: %+v", segs)
	}
}

func TestProblemValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		yaml string
	}{
		{"无天", `
slots: [{id: A, kind: class}]
grades: [{id: 一班}]
`},
		{"时段重复", `
days: [周一]
slots: [{id: A, kind: class}, {id: A, kind: class}]
grades: [{id: 一班}]
`},
		{"时段类型未知", `
days: [周一]
slots: [{id: A, kind: nap}]
grades: [{id: 一班}]
`},
		{"休息时段固定科目", `
days: [周一]
slots: [{id: R, kind: break, fixed_subject: 班会}]
grades: [{id: 一班}]
`},
		{"年级重复", `
days: [周一]
slots: [{id: A, kind: class}]
grades: [{id: 一班}, {id: 一班}]
`},
		{"科目重复", `
days: [周一]
slots: [{id: A, kind: class}]
grades:
  - id: 一班
    demands: [{subject: 数学, periods: 1}, {subject: 数学, periods: 1}]
`},
		{"教师引用未知年级", `
days: [周一]
slots: [{id: A, kind: class}]
grades: [{id: 一班}]
teachers: [{id: T1, subjects: [数学], grades: [不存在]}]
`},
		{"段引用未知年级", `
days: [周一]
slots: [{id: A, kind: class}]
grades: [{id: 一班}]
segments: [{name: X, grades: [不存在]}]
`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseProblem([]byte(tc.yaml))
			if !apperrors.Is(err, apperrors.CodeConfigError) {
				t.Errorf("期望 CONFIG_ERROR, got %v", err)
			}
		})
	}
}

func TestLoadProblemMissingFile(t *testing.T) {
	_, err := LoadProblem("/不存在/problem.yaml")
	if !apperrors.Is(err, apperrors.CodeConfigError) {
		t.Errorf("文件缺失应返回 CONFIG_ERROR, got %v", err)
	}
}
