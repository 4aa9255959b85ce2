package recall

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/playrec/core"
	"github.com/rushteam/playrec/pipeline"
)

// ErrorHandler 决定单个召回源失败时的处理方式：返回 nil 表示把该源视为空结果，
// 返回非 nil 则中断整个 Fanout。
type ErrorHandler func(source string, err error) error

// IgnoreErrors 忽略所有召回源错误（默认行为）。
func IgnoreErrors(string, error) error { return nil }

// FailFast 冷启动类错误（未知用户等）视为空结果，其余错误中断 Fanout。
func FailFast(source string, err error) error {
	if core.IsColdStart(err) {
		return nil
	}
	return fmt.Errorf("recall %s: %w", source, err)
}

// Fanout 是一个 Recall Node：并发执行多个召回源，并按 MergeStrategy 合并结果。
// 支持超时、并发限制与错误处理策略。
type Fanout struct {
	Sources       []Source
	Timeout       time.Duration // 每个召回源的超时时间
	MaxConcurrent int           // 最大并发数（0 表示无限制）
	MergeStrategy MergeStrategy // 为空时使用 FirstMergeStrategy
	ErrorHandler  ErrorHandler  // 为空时使用 IgnoreErrors
}

func (n *Fanout) Name() string        { return "recall.fanout" }
func (n *Fanout) Kind() pipeline.Kind { return pipeline.KindRecall }

func (n *Fanout) Process(
	ctx context.Context,
	rctx *core.RecommendContext,
	_ []*core.Item,
) ([]*core.Item, error) {
	if len(n.Sources) == 0 {
		return nil, nil
	}
	onError := n.ErrorHandler
	if onError == nil {
		onError = IgnoreErrors
	}

	// 每个源写入自己的槽位，合并顺序与 Sources 顺序一致，和完成先后无关
	batches := make([]Batch, len(n.Sources))
	eg, egCtx := errgroup.WithContext(ctx)
	if n.MaxConcurrent > 0 {
		eg.SetLimit(n.MaxConcurrent)
	}

	for i, src := range n.Sources {
		eg.Go(func() error {
			recallCtx := egCtx
			if n.Timeout > 0 {
				var cancel context.CancelFunc
				recallCtx, cancel = context.WithTimeout(egCtx, n.Timeout)
				defer cancel()
			}

			items, err := src.Recall(recallCtx, rctx)
			if err != nil {
				return onError(src.Name(), err)
			}
			batches[i] = Batch{Source: src.Name(), Priority: i, Items: items}
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	strategy := n.MergeStrategy
	if strategy == nil {
		strategy = &FirstMergeStrategy{}
	}
	return strategy.Merge(batches), nil
}
