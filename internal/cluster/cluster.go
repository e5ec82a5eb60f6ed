// 包 cluster：基于网格的分级聚合，把四叉树中的点按视口网格汇总为单点或质心簇
package cluster

import (
	"errors"
	"math"

	"poi-cluster/internal/mapproj"
	"poi-cluster/internal/quadtree"
)

// DefaultMaxCells 单次计算允许的最大网格数
const DefaultMaxCells = 16384

// maxGridIndex 网格下标的绝对值上限
const maxGridIndex = 1 << 62

var (
	ErrBadScale     = errors.New("cluster: zoom scale must be positive and finite")
	ErrTooManyCells = errors.New("cluster: viewport covers too many grid cells")
)

// Descriptor：一次聚合的输出单元
// 约束：Count==1 时 Item 指向该点负载且 Coordinate 为原始坐标；Count>1 时 Item 为 nil，Coordinate 为平面质心
type Descriptor[T any] struct {
	Coordinate quadtree.Point
	Count      int
	Item       *T
}

// Single 是否为单点描述
func (d Descriptor[T]) Single() bool { return d.Count == 1 }

// CellSize：按缩放级别分段的网格边长（地图点），非插值
func CellSize(zoomLevel int) float64 {
	switch zoomLevel {
	case 13, 14, 15:
		return 64
	case 16, 17, 18:
		return 32
	case 19:
		return 16
	default:
		return 88
	}
}

// 文档注释：聚合引擎
// 背景：网格分桶 + 空间索引范围查询，避免全量渲染与距离聚类的开销；每次调用从零重算。
// 约束：引擎本身无可变状态；树构建完成后可并发调用 Compute。
type Engine[T any] struct {
	tree     *quadtree.Tree[T]
	maxCells int
}

type Option func(*options)

type options struct {
	maxCells int
}

func WithMaxCells(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCells = n
		}
	}
}

func NewEngine[T any](tree *quadtree.Tree[T], opts ...Option) *Engine[T] {
	o := options{maxCells: DefaultMaxCells}
	for _, fn := range opts {
		fn(&o)
	}
	return &Engine[T]{tree: tree, maxCells: o.maxCells}
}

func (e *Engine[T]) Tree() *quadtree.Tree[T] { return e.tree }

// Grid：一次计算的网格范围（闭区间）
type Grid struct {
	MinX, MaxX  int
	MinY, MaxY  int
	ScaleFactor float64
	ZoomLevel   int
}

// Cells 网格总数
func (g Grid) Cells() int { return (g.MaxX - g.MinX + 1) * (g.MaxY - g.MinY + 1) }

// Cell 第 (ix,iy) 个网格对应的地图矩形
func (g Grid) Cell(ix, iy int) mapproj.MapRect {
	return mapproj.MapRect{
		X: float64(ix) / g.ScaleFactor,
		Y: float64(iy) / g.ScaleFactor,
		W: 1.0 / g.ScaleFactor,
		H: 1.0 / g.ScaleFactor,
	}
}

// 文档注释：计算视口的网格划分
// 背景：scaleFactor = zoomScale / cellSize；视口四条边乘以 scaleFactor 后向下取整得到网格下标。
func (e *Engine[T]) GridFor(rect mapproj.MapRect, zoomScale float64) (Grid, error) {
	if !(zoomScale > 0) || math.IsInf(zoomScale, 1) {
		return Grid{}, ErrBadScale
	}
	zl := mapproj.ZoomLevel(zoomScale)
	sf := zoomScale / CellSize(zl)
	for _, v := range [...]float64{rect.MinX(), rect.MaxX(), rect.MinY(), rect.MaxY()} {
		// 超出该范围时 int 转换溢出，网格下标失真
		if c := math.Abs(v * sf); !(c < maxGridIndex) {
			return Grid{}, ErrTooManyCells
		}
	}
	g := Grid{
		MinX:        int(math.Floor(rect.MinX() * sf)),
		MaxX:        int(math.Floor(rect.MaxX() * sf)),
		MinY:        int(math.Floor(rect.MinY() * sf)),
		MaxY:        int(math.Floor(rect.MaxY() * sf)),
		ScaleFactor: sf,
		ZoomLevel:   zl,
	}
	if g.MaxX < g.MinX || g.MaxY < g.MinY {
		return Grid{}, ErrBadScale
	}
	if float64(g.MaxX-g.MinX+1)*float64(g.MaxY-g.MinY+1) > float64(e.maxCells) {
		return g, ErrTooManyCells
	}
	return g, nil
}

// 文档注释：按视口与缩放比例计算聚合结果
// 背景：逐格查询索引；空格跳过，单点保留原始坐标与负载，多点取坐标算术平均（平面近似，非测地质心）。
// 返回：当前可见网格的全部描述；无增量计算。
func (e *Engine[T]) Compute(rect mapproj.MapRect, zoomScale float64) ([]Descriptor[T], error) {
	g, err := e.GridFor(rect, zoomScale)
	if err != nil {
		return nil, err
	}
	var out []Descriptor[T]
	for x := g.MinX; x <= g.MaxX; x++ {
		for y := g.MinY; y <= g.MaxY; y++ {
			if d, ok := e.Aggregate(g.Cell(x, y).BoundingBox()); ok {
				out = append(out, d)
			}
		}
	}
	return out, nil
}

// Aggregate 汇总单个网格；空格返回 false
func (e *Engine[T]) Aggregate(box quadtree.BoundingBox) (Descriptor[T], bool) {
	var (
		sumX, sumY float64
		count      int
		last       T
	)
	e.tree.Gather(box, func(data T, p quadtree.Point) {
		sumX += p.X
		sumY += p.Y
		count++
		last = data
	})
	switch {
	case count == 0:
		return Descriptor[T]{}, false
	case count == 1:
		item := last
		return Descriptor[T]{Coordinate: quadtree.Point{X: sumX, Y: sumY}, Count: 1, Item: &item}, true
	default:
		n := float64(count)
		return Descriptor[T]{Coordinate: quadtree.Point{X: sumX / n, Y: sumY / n}, Count: count}, true
	}
}

// 文档注释：标记显示尺寸（像素）
// 背景：S 形曲线 1/(1+e^(-0.3·n^0.4)) 乘以 44 像素；仅用于显示，不参与索引语义。
func MarkerSize(count int) int {
	v := 1.0 / (1.0 + math.Exp(-0.3*math.Pow(float64(count), 0.4)))
	return int(math.Round(44 * v))
}
