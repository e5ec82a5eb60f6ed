// 包 quadtree：静态点集的四叉树空间索引，仅支持插入与矩形范围收集
package quadtree

import (
	"fmt"

	"github.com/paulmach/orb"
)

// Point：二维坐标值类型；地理数据约定 X 为经度、Y 为纬度
type Point struct {
	X float64
	Y float64
}

// BoundingBox：轴对齐矩形 [X0,Y0]–[XF,YF]
// 约束：调用方保证 X0<=XF 且 Y0<=YF，此处不做防御性校验
type BoundingBox struct {
	X0 float64
	Y0 float64
	XF float64
	YF float64
}

// Box 按坐标顺序构造矩形
func Box(x0, y0, xf, yf float64) BoundingBox {
	return BoundingBox{X0: x0, Y0: y0, XF: xf, YF: yf}
}

func (b BoundingBox) String() string {
	return fmt.Sprintf("%.5f,%.5f - %.5f,%.5f", b.X0, b.Y0, b.XF, b.YF)
}

// Contains：四条边均为闭区间
func (b BoundingBox) Contains(p Point) bool {
	return b.X0 <= p.X && p.X <= b.XF && b.Y0 <= p.Y && p.Y <= b.YF
}

// Intersects：两轴投影均重叠即相交，边界接触也算相交
func (b BoundingBox) Intersects(o BoundingBox) bool {
	return b.X0 <= o.XF && b.XF >= o.X0 && b.Y0 <= o.YF && b.YF >= o.Y0
}

// 文档注释：按中点二分为四个等面积象限
// 约束：相邻象限共享边界线；由于闭区间判定，边界上的点会被多个象限同时包含，插入顺序决定归属
func (b BoundingBox) Quadrants() (nw, ne, sw, se BoundingBox) {
	xMid := (b.X0 + b.XF) / 2.0
	yMid := (b.Y0 + b.YF) / 2.0
	nw = BoundingBox{X0: b.X0, Y0: yMid, XF: xMid, YF: b.YF}
	ne = BoundingBox{X0: xMid, Y0: yMid, XF: b.XF, YF: b.YF}
	sw = BoundingBox{X0: b.X0, Y0: b.Y0, XF: xMid, YF: yMid}
	se = BoundingBox{X0: xMid, Y0: b.Y0, XF: b.XF, YF: yMid}
	return
}

// Bound 转换为 orb.Bound，便于与 orb 生态互通
func (b BoundingBox) Bound() orb.Bound {
	return orb.Bound{Min: orb.Point{b.X0, b.Y0}, Max: orb.Point{b.XF, b.YF}}
}

func FromBound(ob orb.Bound) BoundingBox {
	return BoundingBox{X0: ob.Min.X(), Y0: ob.Min.Y(), XF: ob.Max.X(), YF: ob.Max.Y()}
}
