// Package batch 以固定寬度分組、組內並行的方式執行一串任務。
//
// 每組全部結束 (成功或失敗) 後才開始下一組；組內任一任務失敗不會取消同組其他任務，
// 但該組結束後即停止，不再啟動後續組別。結果依提交順序回傳。
package batch

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

// ErrBatchFailed 有任一組出現失敗任務
var ErrBatchFailed = errors.New("batch: 有任務執行失敗")

// Outcome 單一任務的結果，Index 為該任務在輸入中的位置
type Outcome[R any] struct {
	Index int
	Value R
	Err   error
}

// Func 處理單一任務
type Func[T, R any] func(ctx context.Context, task T) (R, error)

// Groups 把 n 個任務切成連續的 [start, end) 區間，每段最多 width 個
func Groups(n, width int) [][2]int {
	if width <= 0 {
		width = 1
	}
	groups := make([][2]int, 0, (n+width-1)/width)
	for start := 0; start < n; start += width {
		end := start + width
		if end > n {
			end = n
		}
		groups = append(groups, [2]int{start, end})
	}
	return groups
}

// Run 依序處理每一組。
//
// 回傳的 outcomes 只包含實際啟動過的任務，順序與 tasks 相同。
// 失敗時 error 同時符合 errors.Is(err, ErrBatchFailed) 與各任務原始錯誤。
// ctx 只在組與組之間檢查；已啟動的組不會被中斷。
func Run[T, R any](ctx context.Context, tasks []T, width int, fn Func[T, R]) ([]Outcome[R], error) {
	return RunWithLogger(ctx, logrus.StandardLogger(), tasks, width, fn)
}

// RunWithLogger 同 Run，使用指定的 logger 記錄每個任務結果
func RunWithLogger[T, R any](ctx context.Context, logger logrus.FieldLogger, tasks []T, width int, fn Func[T, R]) ([]Outcome[R], error) {
	log := logger.WithField("component", "Batch")
	groups := Groups(len(tasks), width)
	outcomes := make([]Outcome[R], 0, len(tasks))

	for gi, g := range groups {
		if err := ctx.Err(); err != nil {
			return outcomes, fmt.Errorf("batch: 第 %d/%d 組開始前已取消: %w", gi+1, len(groups), err)
		}
		start, end := g[0], g[1]
		group := make([]Outcome[R], end-start)

		var eg errgroup.Group
		for i := start; i < end; i++ {
			eg.Go(func() error {
				v, err := fn(ctx, tasks[i])
				group[i-start] = Outcome[R]{Index: i, Value: v, Err: err}
				return err
			})
		}
		failed := eg.Wait() != nil

		var groupErr error
		for _, o := range group {
			if o.Err != nil {
				log.WithField("index", o.Index).WithError(o.Err).Warn("警告：任務執行失敗")
				groupErr = multierr.Append(groupErr, fmt.Errorf("任務 %d: %w", o.Index, o.Err))
				continue
			}
			log.WithField("index", o.Index).Debug("資訊：任務完成")
		}
		outcomes = append(outcomes, group...)
		log.WithFields(logrus.Fields{"group": gi + 1, "groups": len(groups), "range": fmt.Sprintf("[%d,%d)", start, end)}).
			Info("資訊：批次組別處理完成")

		if failed {
			return outcomes, fmt.Errorf("%w: 第 %d/%d 組 [%d,%d): %w", ErrBatchFailed, gi+1, len(groups), start, end, groupErr)
		}
	}
	return outcomes, nil
}

// Values 取出全部成功結果的值 (依順序)
func Values[R any](outcomes []Outcome[R]) []R {
	vals := make([]R, 0, len(outcomes))
	for _, o := range outcomes {
		if o.Err == nil {
			vals = append(vals, o.Value)
		}
	}
	return vals
}
