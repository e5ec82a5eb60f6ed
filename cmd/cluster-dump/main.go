// 离线工具：由 CSV 构建索引，按视口计算聚合并以 GeoJSON 输出到标准输出
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"poi-cluster/internal/api"
	"poi-cluster/internal/cluster"
	"poi-cluster/internal/ingest"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/mapproj"
	"poi-cluster/internal/utils"

	"github.com/joho/godotenv"
)

const usage = "usage: cluster-dump <dataset.csv[.zst]> <west,south,east,north> [width_px]"

// 背景：用于核对数据集与聚合参数，不依赖数据库与 Redis；日志写入标准错误，GeoJSON 写入标准输出
func main() {
	_ = godotenv.Load(".env")
	l := logger.Setup()
	if len(os.Args) < 3 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	view, err := ingest.ParseBounds(os.Args[2])
	if err != nil {
		l.Error("viewport_parse_error", "err", err)
		os.Exit(2)
	}
	width := 1024.0
	if len(os.Args) > 3 {
		if width, err = strconv.ParseFloat(os.Args[3], 64); err != nil || width <= 0 {
			l.Error("width_parse_error", "value", os.Args[3])
			os.Exit(2)
		}
	}
	bounds, err := ingest.ParseBounds(os.Getenv("INDEX_BOUNDS"))
	if err != nil {
		l.Error("config_bounds_error", "err", err)
		os.Exit(1)
	}
	cfg := ingest.IndexConfig{
		Bounds:   bounds,
		MaxDepth: utils.EnvInt("INDEX_MAX_DEPTH", 0),
		MaxCells: utils.EnvInt("CLUSTER_MAX_CELLS", 0),
	}
	idx, err := ingest.BuildIndex(context.Background(), ingest.FileSource{Path: os.Args[1]}, cfg, 1)
	if err != nil {
		l.Error("index_build_error", "err", err)
		os.Exit(1)
	}

	rect := mapproj.RectFromBound(view.Bound())
	scale := mapproj.ZoomScale(width, rect)
	g, err := idx.Engine.GridFor(rect, scale)
	if err != nil {
		l.Error("grid_error", "err", err)
		os.Exit(1)
	}
	ds, err := idx.Engine.Compute(rect, scale)
	if err != nil {
		l.Error("compute_error", "err", err)
		os.Exit(1)
	}
	points := 0
	for _, d := range ds {
		points += d.Count
	}
	l.Info("cluster_dump", "zoom", g.ZoomLevel, "cell_size", cluster.CellSize(g.ZoomLevel), "cells", g.Cells(), "clusters", len(ds), "points", points)
	b, err := api.FeatureCollection(api.FromDescriptors(ds)).MarshalJSON()
	if err != nil {
		l.Error("geojson_error", "err", err)
		os.Exit(1)
	}
	_, _ = os.Stdout.Write(append(b, '\n'))
}

