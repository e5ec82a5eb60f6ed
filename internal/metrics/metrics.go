package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poicluster_requests_total",
		Help: "Total number of cluster requests by output format",
	}, []string{"format"})
	BadRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poicluster_bad_requests_total",
		Help: "Total number of rejected cluster requests by reason",
	}, []string{"reason"})
	ComputeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poicluster_compute_duration_ms",
		Help:    "Cluster computation duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	})
	CellsScanned = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poicluster_cells_scanned",
		Help:    "Grid cells scanned per computation",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	DescriptorsEmitted = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "poicluster_descriptors_emitted",
		Help:    "Cluster descriptors returned per computation",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	})
	RedisHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poicluster_redis_hits_total",
		Help: "Total redis cache hits",
	})
	RedisMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "poicluster_redis_misses_total",
		Help: "Total redis cache misses",
	})
	IndexPoints = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poicluster_index_points",
		Help: "Points held by the active index",
	})
	IndexRejected = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poicluster_index_rejected",
		Help: "Records rejected while building the active index",
	})
	IndexMalformed = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poicluster_index_malformed",
		Help: "Malformed dataset rows skipped while building the active index",
	})
	ReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poicluster_reloads_total",
		Help: "Index rebuilds by status",
	}, []string{"status"})
	SessionsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "poicluster_sessions_active",
		Help: "View sessions currently remembered",
	})
	GeoIPLookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "poicluster_geoip_lookups_total",
		Help: "Initial viewport lookups by result",
	}, []string{"result"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(BadRequestsTotal)
	prometheus.MustRegister(ComputeDurationMs)
	prometheus.MustRegister(CellsScanned)
	prometheus.MustRegister(DescriptorsEmitted)
	prometheus.MustRegister(RedisHitsTotal)
	prometheus.MustRegister(RedisMissesTotal)
	prometheus.MustRegister(IndexPoints)
	prometheus.MustRegister(IndexRejected)
	prometheus.MustRegister(IndexMalformed)
	prometheus.MustRegister(ReloadsTotal)
	prometheus.MustRegister(SessionsActive)
	prometheus.MustRegister(GeoIPLookupsTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
