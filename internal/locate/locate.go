// 包 locate：按客户端 IP 推算初始视口；查不到时回退到美国中部
package locate

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"poi-cluster/internal/logger"
	"poi-cluster/internal/metrics"

	"github.com/oschwald/geoip2-golang"
	"github.com/oschwald/maxminddb-golang"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

const (
	// DefaultLat / DefaultLon 美国本土几何中心附近
	DefaultLat = 41.225884
	DefaultLon = -97.942760
	// DefaultExtentMeters 初始视口边长
	DefaultExtentMeters = 5_000_000
)

// CityLookup 由 *geoip2.Reader 实现
type CityLookup interface {
	City(ip net.IP) (*geoip2.City, error)
}

// Viewport：建议的初始视口
type Viewport struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	West    float64 `json:"west"`
	South   float64 `json:"south"`
	East    float64 `json:"east"`
	North   float64 `json:"north"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Source  string  `json:"source"`
}

// Locator：db 为 nil 时始终返回默认视口
type Locator struct {
	db       CityLookup
	extent   float64
	fallback orb.Point
}

func New(db CityLookup, extentMeters float64) *Locator {
	if extentMeters <= 0 {
		extentMeters = DefaultExtentMeters
	}
	return &Locator{db: db, extent: extentMeters, fallback: orb.Point{DefaultLon, DefaultLat}}
}

// Open 打开 GeoLite2/GeoIP2 City 数据库；path 为空时返回不带数据库的 Locator
func Open(path string, extentMeters float64) (*Locator, func() error, error) {
	if path == "" {
		return New(nil, extentMeters), func() error { return nil }, nil
	}
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if err := checkMetadata(r.Metadata()); err != nil {
		r.Close()
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}
	return New(r, extentMeters), r.Close, nil
}

// checkMetadata 只接受带坐标的 City 库；Country/ASN 库没有 location 字段
func checkMetadata(md maxminddb.Metadata) error {
	if !strings.Contains(md.DatabaseType, "City") {
		return fmt.Errorf("unsupported database type %q", md.DatabaseType)
	}
	logger.L().Info("geoip_open_ok",
		"type", md.DatabaseType,
		"build", time.Unix(int64(md.BuildEpoch), 0).UTC().Format("2006-01-02"),
		"ip_version", md.IPVersion,
	)
	return nil
}

// 文档注释：按 IP 计算视口
// 背景：城市库命中且坐标非零时以其为中心，否则使用默认中心；视口为中心周围 extent 见方。
// 约束：非法 IP 与查询错误均视为未命中，不返回错误。
func (l *Locator) Locate(ip string) Viewport {
	center, vp := l.fallback, Viewport{Source: "default"}
	if l.db != nil {
		if parsed := net.ParseIP(strings.TrimSpace(ip)); parsed != nil {
			rec, err := l.db.City(parsed)
			switch {
			case err != nil:
				logger.L().Debug("geoip_lookup_error", "ip", ip, "err", err)
			case rec.Location.Latitude == 0 && rec.Location.Longitude == 0:
				logger.L().Debug("geoip_lookup_miss", "ip", ip)
			default:
				center = orb.Point{rec.Location.Longitude, rec.Location.Latitude}
				vp.Source = "geoip"
				vp.City = rec.City.Names["en"]
				vp.Country = rec.Country.IsoCode
			}
		}
	}
	metrics.GeoIPLookupsTotal.WithLabelValues(vp.Source).Inc()
	b := geo.NewBoundAroundPoint(center, l.extent/2)
	vp.Lat, vp.Lon = center.Lat(), center.Lon()
	vp.West, vp.South, vp.East, vp.North = b.Left(), b.Bottom(), b.Right(), b.Top()
	return vp
}

// ClientIP 优先取 X-Forwarded-For 的第一个地址，其次 X-Real-IP，最后 RemoteAddr
func ClientIP(r *http.Request) string {
	if v := r.Header.Get("X-Forwarded-For"); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}
	if v := r.Header.Get("X-Real-IP"); v != "" {
		return strings.TrimSpace(v)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
