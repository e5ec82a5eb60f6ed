// 包 mapproj：地图平面坐标（Web Mercator 地图点）与经纬度互转，以及缩放级别推导
package mapproj

import (
	"math"

	"poi-cluster/internal/quadtree"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/project"
)

const (
	// TileSize 单张瓦片像素边长
	TileSize = 256.0
	// LevelAtMaxZoom 最大缩放下的级别：世界宽度为 256·2^20 地图点
	LevelAtMaxZoom = 20
	// WorldSize 世界平面边长（地图点）
	WorldSize = TileSize * (1 << LevelAtMaxZoom)
	// MaxLatitude Web Mercator 可表示的最大纬度
	MaxLatitude = 85.05112877980659

	earthRadius     = 6378137.0
	mercatorExtent  = math.Pi * earthRadius
	mercatorToWorld = WorldSize / (2 * mercatorExtent)
)

// MapPoint：平面地图点，原点在西北角，Y 向南增长
type MapPoint struct {
	X float64
	Y float64
}

// 文档注释：经纬度转地图点
// 背景：借助 orb/project 计算 EPSG:3857 米制坐标，再平移缩放到 [0, WorldSize] 平面。
// 约束：纬度截断到 ±MaxLatitude，避免两极处投影发散。
func FromLatLon(lat, lon float64) MapPoint {
	lat = math.Max(-MaxLatitude, math.Min(MaxLatitude, lat))
	m := project.WGS84.ToMercator(orb.Point{lon, lat})
	return MapPoint{
		X: (m.X() + mercatorExtent) * mercatorToWorld,
		Y: (mercatorExtent - m.Y()) * mercatorToWorld,
	}
}

// LatLon 地图点转回经纬度
func (p MapPoint) LatLon() (lat, lon float64) {
	m := orb.Point{p.X/mercatorToWorld - mercatorExtent, mercatorExtent - p.Y/mercatorToWorld}
	g := project.Mercator.ToWGS84(m)
	return g.Lat(), g.Lon()
}

// MapRect：地图点平面上的矩形，(X,Y) 为西北角
type MapRect struct {
	X float64
	Y float64
	W float64
	H float64
}

func (r MapRect) MinX() float64 { return r.X }
func (r MapRect) MinY() float64 { return r.Y }
func (r MapRect) MaxX() float64 { return r.X + r.W }
func (r MapRect) MaxY() float64 { return r.Y + r.H }

// 文档注释：投影视口矩形转经纬度包围盒
// 背景：西北角给出最大纬度与最小经度，东南角给出最小纬度与最大经度；经度为 X、纬度为 Y。
// 约束：不处理跨越 180° 经线的矩形，调用方需自行拆分。
func (r MapRect) BoundingBox() quadtree.BoundingBox {
	maxLat, minLon := MapPoint{X: r.MinX(), Y: r.MinY()}.LatLon()
	minLat, maxLon := MapPoint{X: r.MaxX(), Y: r.MaxY()}.LatLon()
	return quadtree.Box(minLon, minLat, maxLon, maxLat)
}

// RectFromBound 经纬度范围（X 经度，Y 纬度）转地图矩形
func RectFromBound(b orb.Bound) MapRect {
	nw := FromLatLon(b.Max.Lat(), b.Min.Lon())
	se := FromLatLon(b.Min.Lat(), b.Max.Lon())
	return MapRect{X: nw.X, Y: nw.Y, W: se.X - nw.X, H: se.Y - nw.Y}
}

// ZoomScale 屏幕像素与地图点之比
func ZoomScale(pixelWidth float64, r MapRect) float64 {
	if r.W <= 0 {
		return 0
	}
	return pixelWidth / r.W
}

// ZoomLevel：max(0, LevelAtMaxZoom + round(log2(scale)))
func ZoomLevel(scale float64) int {
	if !(scale > 0) || math.IsInf(scale, 1) {
		return 0
	}
	z := LevelAtMaxZoom + int(math.Floor(math.Log2(scale)+0.5))
	if z < 0 {
		return 0
	}
	return z
}
