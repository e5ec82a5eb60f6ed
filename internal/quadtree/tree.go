package quadtree

// DefaultMaxDepth 默认最大划分深度；经纬度范围下约对应厘米级网格
const DefaultMaxDepth = 32

// Region：可转换为查询矩形的区域（例如投影坐标下的视口）
type Region interface {
	BoundingBox() BoundingBox
}

// 文档注释：四叉树门面
// 背景：持有根节点与固定的整体边界；先顺序插入构建，再只读查询。
// 约束：内部无锁；构建完成且不再插入后可被多个 goroutine 并发查询，插入与查询交错属于未定义行为。
type Tree[T any] struct {
	root     *Node[T]
	maxDepth int
	count    int
}

type Option func(*config)

type config struct {
	maxDepth int
}

// WithMaxDepth 设置最大划分深度，非正值忽略
func WithMaxDepth(d int) Option {
	return func(c *config) {
		if d > 0 {
			c.maxDepth = d
		}
	}
}

// New 以 bounds 创建空树；bounds 需覆盖全部待插入与待查询的坐标
func New[T any](bounds BoundingBox, opts ...Option) *Tree[T] {
	c := config{maxDepth: DefaultMaxDepth}
	for _, o := range opts {
		o(&c)
	}
	return &Tree[T]{root: newNode[T](bounds, 0), maxDepth: c.maxDepth}
}

// Insert：越界或无子节点认领时返回 false
func (t *Tree[T]) Insert(p Point, data T) bool {
	ok := t.root.insert(Leaf[T]{Point: p, Data: data}, t.maxDepth)
	if ok {
		t.count++
	}
	return ok
}

func (t *Tree[T]) InsertXY(x, y float64, data T) bool {
	return t.Insert(Point{X: x, Y: y}, data)
}

// Gather 对落在 box 内的每个点调用 visit，顺序为本节点桶优先、再 NW/NE/SW/SE 递归
func (t *Tree[T]) Gather(box BoundingBox, visit func(T, Point)) {
	t.root.gather(box, visit)
}

// GatherRegion 先把区域换算为矩形再收集
func (t *Tree[T]) GatherRegion(r Region, visit func(T, Point)) {
	t.Gather(r.BoundingBox(), visit)
}

func (t *Tree[T]) Bounds() BoundingBox { return t.root.box }
func (t *Tree[T]) Root() *Node[T]      { return t.root }
func (t *Tree[T]) MaxDepth() int       { return t.maxDepth }

// Len 返回成功插入的叶子数
func (t *Tree[T]) Len() int { return t.count }

// Stats：结构统计，用于日志与指标
type Stats struct {
	Nodes    int
	Leaves   int
	MaxDepth int
	// Overfull 为达到深度上限后桶超过 Capacity 的节点数
	Overfull int
}

func (t *Tree[T]) Stats() Stats {
	var s Stats
	t.root.walk(func(n *Node[T]) {
		s.Nodes++
		s.Leaves += len(n.leaves)
		if n.depth > s.MaxDepth {
			s.MaxDepth = n.depth
		}
		if len(n.leaves) > Capacity {
			s.Overfull++
		}
	})
	return s
}
