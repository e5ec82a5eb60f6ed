// 程序入口：读取配置、构建索引并启动 HTTP 服务；路由注册在 internal/api
package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"poi-cluster/internal/api"
	"poi-cluster/internal/catalog"
	"poi-cluster/internal/ingest"
	"poi-cluster/internal/locate"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/metrics"
	"poi-cluster/internal/middleware"
	"poi-cluster/internal/migrate"
	"poi-cluster/internal/store"
	"poi-cluster/internal/utils"
	"poi-cluster/internal/viewsync"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join("data", "env", ".env"))
	l := logger.Setup()
	l.Debug("log_init_ok")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	apiBase := utils.EnvString("API_BASE", "/api")
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
	datasetPath := utils.EnvString("DATASET_PATH", filepath.Join("data", "places.csv"))
	sourceKind := strings.ToLower(utils.EnvString("DATASET_SOURCE", "file"))
	l.Debug("config_index", "bounds", bounds.String(), "max_depth", cfg.MaxDepth, "max_cells", cfg.MaxCells, "source", sourceKind)

	// 背景：Postgres 仅在 DATASET_SOURCE=db 或需要查询统计时使用；连接失败不阻断文件数据源
	var (
		db *sql.DB
		st *store.Store
	)
	if sourceKind == "db" || os.Getenv("PG_HOST") != "" {
		db, err = utils.OpenPostgresFromEnv()
		if err != nil {
			l.Error("db_open_error", "err", err)
			os.Exit(1)
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			l.Error("db_ping_error", "err", err)
			if sourceKind == "db" {
				os.Exit(1)
			}
			db = nil
		} else {
			l.Info("db_ping_ok")
			if err := migrate.EnsureSchema(db); err != nil {
				l.Error("schema_error", "err", err)
				os.Exit(1)
			}
			st = store.AttachDB(db)
		}
	}

	var src ingest.Source = ingest.FileSource{Path: datasetPath}
	if sourceKind == "db" {
		if os.Getenv("INGEST_ON_EMPTY") != "false" {
			if err := ingest.EnsureInitialized(ctx, st, datasetPath); err != nil {
				l.Error("ingest_init_error", "err", err)
			}
		}
		src = ingest.DBSource{Store: st}
	}

	var holder catalog.Holder
	rebuild := func(ctx context.Context) (*catalog.Index, error) {
		return ingest.Rebuild(ctx, &holder, src, cfg)
	}
	if _, err := rebuild(ctx); err != nil {
		l.Error("index_build_error", "err", err)
		os.Exit(1)
	}
	ingest.StartReloader(ctx, time.Duration(utils.EnvInt("RELOAD_INTERVAL_S", 0))*time.Second, func(ctx context.Context) error {
		_, err := rebuild(ctx)
		return err
	})

	rc := utils.OpenRedisFromEnv()
	if rc == nil {
		l.Info("redis_disabled")
	} else if err := rc.Ping(ctx).Err(); err != nil {
		l.Error("redis_ping_error", "err", err)
		rc = nil
	} else {
		l.Info("redis_ping_ok")
	}

	loc, closeGeo, err := locate.Open(os.Getenv("GEOIP_DB_PATH"), float64(utils.EnvInt("VIEWPORT_EXTENT_M", locate.DefaultExtentMeters)))
	if err != nil {
		l.Error("geoip_open_error", "err", err)
		loc, closeGeo = locate.New(nil, 0), func() error { return nil }
	}
	defer closeGeo()

	srv := &api.Server{
		Holder:     &holder,
		Sessions:   viewsync.NewSessions[api.Cluster](utils.EnvInt("SESSION_CAPACITY", 10000), time.Duration(utils.EnvInt("SESSION_TTL_S", 1800))*time.Second),
		Redis:      rc,
		CacheTTL:   time.Duration(utils.EnvInt("CLUSTER_CACHE_TTL_S", 600)) * time.Second,
		Locator:    loc,
		Reload:     rebuild,
		AdminToken: os.Getenv("ADMIN_TOKEN"),
	}
	if st != nil {
		srv.Stats = st
	}

	mux := http.NewServeMux()
	mux.Handle(apiBase+"/", http.StripPrefix(apiBase, api.BuildRoutes(srv)))
	mux.Handle(apiBase+"/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if holder.Load() == nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	addr := utils.EnvString("ADDR", ":8080")
	handler := logger.AccessMiddleware(l)(mux)
	handler = middleware.Wrap(handler)
	s := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	if os.Getenv("TLS_ENABLE") == "true" {
		certPath := utils.EnvString("TLS_CERT_PATH", filepath.Join("data", "certs", "server.crt"))
		keyPath := utils.EnvString("TLS_KEY_PATH", filepath.Join("data", "certs", "server.key"))
		if err := utils.EnsureSelfSignedCert(certPath, keyPath, utils.EnvString("TLS_CN", "poi-cluster.local")); err != nil {
			l.Error("tls_cert_error", "err", err)
			os.Exit(1)
		}
		l.Info("listening_tls", "addr", addr, "cert", certPath)
		if err := s.ListenAndServeTLS(certPath, keyPath); err != nil && err != http.ErrServerClosed {
			l.Error("server_error", "err", err)
		}
		return
	}
	l.Info("listening", "addr", addr, "api_base", apiBase)
	if err := s.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		l.Error("server_error", "err", err)
	}
}
