package solver

import (
	"context"
	"math/rand"
	"sync"
	"time"

	apperrors "github.com/paike/paike/pkg/errors"
	"github.com/paike/paike/pkg/logger"
	"github.com/paike/paike/pkg/scheduler/constraint"
)

// Options 组合求解参数
type Options struct {
	Workers int           `json:"workers"` // 工作器数量，0号不随机化
	Timeout time.Duration `json:"timeout"`
	Mode    Mode          `json:"mode"`
	Segment string        `json:"segment"` // 仅用于日志与错误信息
}

// DefaultOptions 默认求解参数
func DefaultOptions() *Options {
	return &Options{
		Workers: 4,
		Timeout: 30 * time.Second,
		Mode:    ModeJoint,
	}
}

// Solve 组合求解：多工作器各持独享模型克隆并行搜索
// 0号工作器完全确定性，i号工作器以 i 为随机种子（结果可复现）
// 出现零惩罚可行解立即返回；超时返回已知最优可行解；全部失败返回 INFEASIBLE
func Solve(ctx context.Context, m *constraint.Model, opts *Options) (*Solution, error) {
	if opts == nil {
		opts = DefaultOptions()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}
	mode := opts.Mode
	if mode == "" {
		mode = ModeJoint
	}

	log := logger.NewSolverLogger()
	log.StartSolve(opts.Segment, len(m.Grades), len(m.Cells), workers)
	start := time.Now()

	solveCtx := ctx
	var cancel context.CancelFunc
	if opts.Timeout > 0 {
		solveCtx, cancel = context.WithTimeout(ctx, opts.Timeout)
	} else {
		solveCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	resultChan := make(chan *Solution, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			var rng *rand.Rand
			if id > 0 {
				rng = rand.New(rand.NewSource(int64(id)))
			}
			sol, err := Search(solveCtx, m.Clone(), mode, rng)
			if err != nil {
				return // 超时或取消，该工作器无产出
			}
			resultChan <- sol
		}(i)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	var best *Solution
	var bestPartial *Solution
	for sol := range resultChan {
		if sol.Feasible {
			if best == nil || sol.Penalty < best.Penalty {
				best = sol
			}
			if best.Penalty == 0 {
				cancel() // 已是最优，提前收工
				break
			}
		} else if bestPartial == nil || sol.Timetable.Len() > bestPartial.Timetable.Len() {
			bestPartial = sol
		}
	}
	// 提前返回后清空剩余结果，避免工作器阻塞
	go func() {
		for range resultChan {
		}
	}()

	elapsed := time.Since(start)
	if best != nil {
		log.SolveComplete(opts.Segment, elapsed, best.Penalty, true)
		return best, nil
	}

	log.Infeasible(opts.Segment, elapsed)
	err := apperrors.Infeasible(opts.Segment, "所有工作器均未找到可行课表")
	if bestPartial != nil {
		return bestPartial, err
	}
	return nil, err
}
