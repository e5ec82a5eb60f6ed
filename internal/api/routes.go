// 包 api：集中注册 HTTP API 路由，主入口只负责挂载
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"poi-cluster/internal/catalog"
	"poi-cluster/internal/cluster"
	"poi-cluster/internal/locate"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/metrics"
	"poi-cluster/internal/store"
	"poi-cluster/internal/viewsync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/redis/go-redis/v9"
)

// StatsStore 由 store.Store 实现；为 nil 时不记录查询统计
type StatsStore interface {
	IncrStats(ctx context.Context, newSession bool) error
	GetTotals(ctx context.Context) (*store.Totals, error)
}

// Server：路由依赖；除 Holder 与 Sessions 外均可为零值
type Server struct {
	Holder     *catalog.Holder
	Sessions   *viewsync.Sessions[Cluster]
	Redis      *redis.Client
	CacheTTL   time.Duration
	Locator    *locate.Locator
	Stats      StatsStore
	Reload     func(ctx context.Context) (*catalog.Index, error)
	AdminToken string
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.Header().Set("cache-control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

var errNoIndex = errors.New("index not loaded")

type computed struct {
	clusters   []Cluster
	zoom       int
	generation int64
}

// 文档注释：计算视口内的簇
// 背景：先查 redis，未命中再逐格聚合；缓存只保存簇列表，会话差分始终在进程内完成。
// 异常：参数错误与网格过大返回 400；索引尚未加载返回 503。
func (s *Server) clusters(ctx context.Context, q viewportQuery) (computed, int, error) {
	idx := s.Holder.Load()
	if idx == nil {
		return computed{}, http.StatusServiceUnavailable, errNoIndex
	}
	rect, scale := q.rect()
	g, err := idx.Engine.GridFor(rect, scale)
	if err != nil {
		metrics.BadRequestsTotal.WithLabelValues(reason(err)).Inc()
		return computed{}, http.StatusBadRequest, err
	}
	out := computed{zoom: g.ZoomLevel, generation: idx.Generation}
	cache := clusterCache{rc: s.Redis, ttl: s.CacheTTL}
	key := cacheKey(idx.Generation, q)
	if cs, ok := cache.get(ctx, key); ok {
		out.clusters = cs
		return out, http.StatusOK, nil
	}
	start := time.Now()
	ds, err := idx.Engine.Compute(rect, scale)
	if err != nil {
		return computed{}, http.StatusBadRequest, err
	}
	metrics.ComputeDurationMs.Observe(float64(time.Since(start).Milliseconds()))
	metrics.CellsScanned.Observe(float64(g.Cells()))
	metrics.DescriptorsEmitted.Observe(float64(len(ds)))
	out.clusters = FromDescriptors(ds)
	cache.set(ctx, key, out.clusters)
	logger.L().Debug("clusters_computed", "zoom", g.ZoomLevel, "cells", g.Cells(), "clusters", len(out.clusters), "generation", idx.Generation)
	return out, http.StatusOK, nil
}

func reason(err error) string {
	switch {
	case errors.Is(err, cluster.ErrTooManyCells):
		return "too_many_cells"
	case errors.Is(err, cluster.ErrBadScale):
		return "bad_scale"
	}
	return "bad_viewport"
}

// 构建并返回 API 路由：独立 ServeMux 便于在主入口挂载到 API_BASE 前缀
func BuildRoutes(s *Server) *http.ServeMux {
	if s.Locator == nil {
		s.Locator = locate.New(nil, 0)
	}
	apiMux := http.NewServeMux()

	apiMux.HandleFunc("/clusters", func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		metrics.RequestsTotal.WithLabelValues("json").Inc()
		q, err := parseViewport(r)
		if err != nil {
			metrics.BadRequestsTotal.WithLabelValues("bad_viewport").Inc()
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, status, err := s.clusters(ctx, q)
		if err != nil {
			writeError(w, status, err)
			return
		}
		sid := r.URL.Query().Get("session")
		newSession := sid == ""
		if newSession {
			sid = viewsync.NewSessionID()
		}
		diff := s.Sessions.Swap(sid, res.clusters, clusterKey)
		metrics.SessionsActive.Set(float64(s.Sessions.Len()))
		if s.Stats != nil {
			if err := s.Stats.IncrStats(ctx, newSession); err != nil {
				logger.L().Warn("stats_incr_error", "err", err)
			}
		}
		writeJSON(w, http.StatusOK, clustersResponse{
			Session:    sid,
			Zoom:       res.zoom,
			Generation: res.generation,
			Clusters:   orEmpty(res.clusters),
			Add:        orEmpty(diff.Add),
			Remove:     orEmpty(diff.Remove),
			Keep:       orEmpty(diff.Keep),
		})
	})

	apiMux.HandleFunc("/clusters.geojson", func(w http.ResponseWriter, r *http.Request) {
		metrics.RequestsTotal.WithLabelValues("geojson").Inc()
		q, err := parseViewport(r)
		if err != nil {
			metrics.BadRequestsTotal.WithLabelValues("bad_viewport").Inc()
			writeError(w, http.StatusBadRequest, err)
			return
		}
		res, status, err := s.clusters(r.Context(), q)
		if err != nil {
			writeError(w, status, err)
			return
		}
		b, err := FeatureCollection(res.clusters).MarshalJSON()
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("content-type", "application/geo+json")
		w.Header().Set("cache-control", "no-store")
		_, _ = w.Write(b)
	})

	apiMux.HandleFunc("/viewport", func(w http.ResponseWriter, r *http.Request) {
		ip := r.URL.Query().Get("ip")
		if ip == "" {
			ip = locate.ClientIP(r)
		}
		writeJSON(w, http.StatusOK, s.Locator.Locate(ip))
	})

	apiMux.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		var resp statsResponse
		if idx := s.Holder.Load(); idx != nil {
			st := idx.Tree.Stats()
			resp.Generation = idx.Generation
			resp.BuiltAt = idx.BuiltAt.UTC().Format(time.RFC3339)
			resp.Points = idx.Tree.Len()
			resp.Report = idx.Report
			resp.Tree = treeStats{Nodes: st.Nodes, Leaves: st.Leaves, MaxDepth: st.MaxDepth, Overfull: st.Overfull}
		}
		resp.Sessions = s.Sessions.Len()
		if s.Stats != nil {
			if t, err := s.Stats.GetTotals(r.Context()); err != nil {
				logger.L().Warn("stats_totals_error", "err", err)
			} else if t != nil {
				resp.Total, resp.Today = t.Total, t.Today
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	apiMux.HandleFunc("/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		t := r.Header.Get("x-admin-token")
		if s.AdminToken == "" || t != s.AdminToken {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if s.Reload == nil {
			w.WriteHeader(http.StatusNotImplemented)
			return
		}
		idx, err := s.Reload(r.Context())
		if err != nil {
			logger.L().Error("reload_error", "err", err)
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		logger.L().Info("reload_ok", "generation", idx.Generation, "points", idx.Tree.Len())
		writeJSON(w, http.StatusOK, map[string]any{"generation": idx.Generation, "report": idx.Report})
	})

	return apiMux
}

// FeatureCollection 簇转 GeoJSON 点要素集合
func FeatureCollection(cs []Cluster) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, c := range cs {
		f := geojson.NewFeature(orb.Point{c.Lon, c.Lat})
		f.Properties["count"] = c.Count
		f.Properties["size"] = c.Size
		f.Properties["title"] = c.Title
		f.Properties["subtitle"] = c.Subtitle
		if c.Country != "" {
			f.Properties["country"] = c.Country
		}
		fc.Append(f)
	}
	return fc
}
