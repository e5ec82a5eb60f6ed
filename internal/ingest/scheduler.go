// 包 ingest：后台定期重建索引
package ingest

import (
	"context"
	"time"

	"poi-cluster/internal/logger"
)

// StartReloader：每隔 interval 调用一次 fn，直到 ctx 结束
// 背景：数据集更新后无需重启即可生效；错误由日志记录，任务继续调度
// 约束：interval 非正时不启动；fn 在单个后台协程中串行执行，不会重叠
func StartReloader(ctx context.Context, interval time.Duration, fn func(context.Context) error) {
	if interval <= 0 {
		return
	}
	l := logger.L()
	go func() {
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				l.Debug("reload_stop")
				return
			case <-t.C:
				l.Info("reload_start", "interval_s", int(interval.Seconds()))
				if err := fn(ctx); err != nil {
					l.Error("reload_error", "err", err)
				} else {
					l.Info("reload_done")
				}
			}
		}
	}()
}
