// 包 catalog：地点负载定义、索引构建与运行期原子切换
package catalog

import (
	"math"
	"sync/atomic"
	"time"

	"poi-cluster/internal/cluster"
	"poi-cluster/internal/logger"
	"poi-cluster/internal/quadtree"
)

// Place：地点负载，索引本身不读取其内容
type Place struct {
	Name    string `json:"name"`
	Country string `json:"country"`
	Phone   string `json:"phone"`
}

// Record：数据集中的一行
type Record struct {
	Lat   float64
	Lon   float64
	Place Place
}

// Point 以经度为 X、纬度为 Y
func (r Record) Point() quadtree.Point { return quadtree.Point{X: r.Lon, Y: r.Lat} }

// Report：导入汇总；逐行问题只计数不终止
type Report struct {
	Total     int `json:"total"`
	Malformed int `json:"malformed"`
	Rejected  int `json:"rejected"`
	Imported  int `json:"imported"`

	MinLat float64 `json:"min_lat"`
	MaxLat float64 `json:"max_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLon float64 `json:"max_lon"`
}

func NewReport() Report {
	return Report{MinLat: math.Inf(1), MaxLat: math.Inf(-1), MinLon: math.Inf(1), MaxLon: math.Inf(-1)}
}

// Observe 扩展经纬度范围
func (r *Report) Observe(rec Record) {
	r.MinLat = math.Min(r.MinLat, rec.Lat)
	r.MaxLat = math.Max(r.MaxLat, rec.Lat)
	r.MinLon = math.Min(r.MinLon, rec.Lon)
	r.MaxLon = math.Max(r.MaxLon, rec.Lon)
}

// ClearEmptyRange 未观察到任何坐标时将范围归零，避免 JSON 编码 ±Inf
func (r *Report) ClearEmptyRange() {
	if r.MinLat > r.MaxLat {
		r.MinLat, r.MaxLat, r.MinLon, r.MaxLon = 0, 0, 0, 0
	}
}

// Index：一次构建的只读快照
type Index struct {
	Tree       *quadtree.Tree[Place]
	Engine     *cluster.Engine[Place]
	Report     Report
	Generation int64
	BuiltAt    time.Time
}

// Builder 顺序插入记录，构建阶段不可与查询并发
type Builder struct {
	tree   *quadtree.Tree[Place]
	report Report
	opts   []cluster.Option
}

func NewBuilder(bounds quadtree.BoundingBox, maxDepth int, opts ...cluster.Option) *Builder {
	return &Builder{
		tree:   quadtree.New[Place](bounds, quadtree.WithMaxDepth(maxDepth)),
		report: NewReport(),
		opts:   opts,
	}
}

// Add 插入一条记录；越界记入 Rejected
func (b *Builder) Add(rec Record) bool {
	b.report.Total++
	b.report.Observe(rec)
	if !b.tree.Insert(rec.Point(), rec.Place) {
		b.report.Rejected++
		logger.L().Debug("index_insert_rejected", "lat", rec.Lat, "lon", rec.Lon, "name", rec.Place.Name)
		return false
	}
	b.report.Imported++
	return true
}

// Malformed 记录解析阶段被丢弃的行
func (b *Builder) Malformed(n int) {
	b.report.Total += n
	b.report.Malformed += n
}

func (b *Builder) Finish(generation int64) *Index {
	b.report.ClearEmptyRange()
	return &Index{
		Tree:       b.tree,
		Engine:     cluster.NewEngine(b.tree, b.opts...),
		Report:     b.report,
		Generation: generation,
		BuiltAt:    time.Now(),
	}
}

// Build 由记录切片直接构建
func Build(bounds quadtree.BoundingBox, maxDepth int, records []Record, generation int64, opts ...cluster.Option) *Index {
	b := NewBuilder(bounds, maxDepth, opts...)
	for _, r := range records {
		b.Add(r)
	}
	return b.Finish(generation)
}

// 文档注释：索引持有者
// 背景：通过 atomic.Pointer 无锁切换新旧索引；进行中的请求继续使用旧快照，读路径不阻塞。
// 约束：Set 之后不得再向该索引插入。
type Holder struct {
	v   atomic.Pointer[Index]
	gen atomic.Int64
}

func (h *Holder) Load() *Index { return h.v.Load() }

// Set 发布 idx；当前索引的代号不小于 idx 时放弃并返回 false
// 约束：并发重建按代号取最新者，较慢完成的旧代号构建不会覆盖新索引
func (h *Holder) Set(idx *Index) bool {
	for {
		cur := h.v.Load()
		if cur != nil && cur.Generation >= idx.Generation {
			return false
		}
		if h.v.CompareAndSwap(cur, idx) {
			return true
		}
	}
}

// NextGeneration 单调递增的构建代号，用于缓存键
func (h *Holder) NextGeneration() int64 { return h.gen.Add(1) }
