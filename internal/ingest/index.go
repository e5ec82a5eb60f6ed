package ingest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"poi-cluster/internal/catalog"
	"poi-cluster/internal/cluster"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/metrics"
	"poi-cluster/internal/quadtree"
)

// DefaultBounds 覆盖美国本土、阿拉斯加与夏威夷的索引范围（经度 X，纬度 Y）
var DefaultBounds = quadtree.Box(-166, 19, -50, 72)

// Source：索引的数据来源；返回被丢弃的格式错误行数
type Source interface {
	Each(ctx context.Context, fn func(catalog.Record)) (malformed int, err error)
}

// FileSource 从本地 CSV（可为 .zst）读取
type FileSource struct{ Path string }

func (s FileSource) Each(_ context.Context, fn func(catalog.Record)) (int, error) {
	rep, err := ReadFile(s.Path, fn)
	return rep.Malformed, err
}

func (s FileSource) String() string { return "file:" + s.Path }

// PlaceReader 由 store.Store 实现
type PlaceReader interface {
	EachPlace(ctx context.Context, fn func(catalog.Record)) (int, error)
}

// DBSource 从 _places 表读取
type DBSource struct{ Store PlaceReader }

func (s DBSource) Each(ctx context.Context, fn func(catalog.Record)) (int, error) {
	return s.Store.EachPlace(ctx, fn)
}

func (s DBSource) String() string { return "db:_places" }

// IndexConfig：索引构建参数
type IndexConfig struct {
	Bounds   quadtree.BoundingBox
	MaxDepth int
	MaxCells int
}

// 文档注释：从数据来源构建一个新索引
// 背景：构建在调用方协程内完成，结束后才对外发布；越界点计入 Rejected，格式错误计入 Malformed。
// 异常：来源读取失败时返回错误且不产出索引，调用方保留旧索引。
func BuildIndex(ctx context.Context, src Source, cfg IndexConfig, generation int64) (*catalog.Index, error) {
	start := time.Now()
	var opts []cluster.Option
	if cfg.MaxCells > 0 {
		opts = append(opts, cluster.WithMaxCells(cfg.MaxCells))
	}
	b := catalog.NewBuilder(cfg.Bounds, cfg.MaxDepth, opts...)
	malformed, err := src.Each(ctx, func(r catalog.Record) { b.Add(r) })
	if err != nil {
		return nil, fmt.Errorf("read %v: %w", src, err)
	}
	b.Malformed(malformed)
	idx := b.Finish(generation)
	rep := idx.Report
	metrics.IndexPoints.Set(float64(idx.Tree.Len()))
	metrics.IndexRejected.Set(float64(rep.Rejected))
	metrics.IndexMalformed.Set(float64(rep.Malformed))
	logger.L().Info("index_built",
		"source", fmt.Sprint(src),
		"generation", generation,
		"total", rep.Total,
		"imported", rep.Imported,
		"rejected", rep.Rejected,
		"malformed", rep.Malformed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	if rep.Imported > 0 {
		logger.L().Debug("index_extent", "min_lat", rep.MinLat, "max_lat", rep.MaxLat, "min_lon", rep.MinLon, "max_lon", rep.MaxLon)
	}
	return idx, nil
}

// Rebuild 构建并发布到 holder；失败时 holder 保持不变
func Rebuild(ctx context.Context, h *catalog.Holder, src Source, cfg IndexConfig) (*catalog.Index, error) {
	idx, err := BuildIndex(ctx, src, cfg, h.NextGeneration())
	if err != nil {
		metrics.ReloadsTotal.WithLabelValues("error").Inc()
		return nil, err
	}
	if !h.Set(idx) {
		metrics.ReloadsTotal.WithLabelValues("stale").Inc()
		logger.L().Warn("index_publish_stale", "generation", idx.Generation)
		return h.Load(), nil
	}
	metrics.ReloadsTotal.WithLabelValues("ok").Inc()
	return idx, nil
}

var ErrBadBounds = errors.New("bounds must be west,south,east,north with west<=east and south<=north")

// ParseBounds 解析 "west,south,east,north"；空串返回 DefaultBounds
func ParseBounds(s string) (quadtree.BoundingBox, error) {
	if strings.TrimSpace(s) == "" {
		return DefaultBounds, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) != 4 {
		return quadtree.BoundingBox{}, ErrBadBounds
	}
	var v [4]float64
	for i, p := range parts {
		f, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return quadtree.BoundingBox{}, fmt.Errorf("%w: %v", ErrBadBounds, err)
		}
		v[i] = f
	}
	if v[0] > v[2] || v[1] > v[3] {
		return quadtree.BoundingBox{}, ErrBadBounds
	}
	return quadtree.Box(v[0], v[1], v[2], v[3]), nil
}
