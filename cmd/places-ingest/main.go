// 数据导入工具：解析地点 CSV（可为 .zst）并批量写入 PostgreSQL 的 _places 表
package main

import (
	"context"
	"os"
	"strings"

	"poi-cluster/internal/ingest"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/migrate"
	"poi-cluster/internal/store"
	"poi-cluster/internal/utils"

	"github.com/joho/godotenv"
)

// 用法：places-ingest [--env file.env] [dataset.csv|dataset.csv.zst]
// 约束：INGEST_REPLACE=true 时先删除同一 source 的旧行；source 默认取文件路径，可用 INGEST_SOURCE_TAG 覆盖
func main() {
	envFile := ".env"
	path := ""
	for i := 1; i < len(os.Args); i++ {
		switch {
		case os.Args[i] == "--env" && i+1 < len(os.Args):
			envFile = os.Args[i+1]
			i++
		case strings.HasSuffix(os.Args[i], ".env"):
			envFile = os.Args[i]
		default:
			path = os.Args[i]
		}
	}
	_ = godotenv.Load(envFile)
	l := logger.Setup()
	if path == "" {
		path = os.Getenv("DATASET_PATH")
	}
	if path == "" {
		l.Error("dataset_path_missing")
		os.Exit(1)
	}
	tag := utils.EnvString("INGEST_SOURCE_TAG", path)

	st, err := store.Open(utils.BuildPostgresDSNFromEnv())
	if err != nil {
		l.Error("db_open_error", "err", err)
		os.Exit(1)
	}
	defer st.Close()
	if err := migrate.EnsureSchema(st.DB()); err != nil {
		l.Error("schema_error", "err", err)
		os.Exit(1)
	}
	rc, err := ingest.Open(path)
	if err != nil {
		l.Error("dataset_open_error", "path", path, "err", err)
		os.Exit(1)
	}
	defer rc.Close()

	rep, err := ingest.ImportToDB(context.Background(), st.DB(), rc, tag, os.Getenv("INGEST_REPLACE") == "true")
	if err != nil {
		l.Error("ingest_error", "err", err)
		os.Exit(1)
	}
	l.Info("ingest_summary",
		"source", tag,
		"total", rep.Total,
		"imported", rep.Imported,
		"malformed", rep.Malformed,
		"min_lat", rep.MinLat,
		"max_lat", rep.MaxLat,
		"min_lon", rep.MinLon,
		"max_lon", rep.MaxLon,
	)
}
