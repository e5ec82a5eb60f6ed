package quadtree

// Capacity 单个节点桶内最多直接存放的叶子数
const Capacity = 4

// Leaf：坐标与不透明负载的组合，创建后不可变
type Leaf[T any] struct {
	Point Point
	Data  T
}

// 文档注释：递归空间划分节点
// 背景：桶未满时直接存放；首次溢出时一次性创建四个子节点，此后只增不减。
// 约束：桶内每个叶子都满足 box.Contains(leaf.Point)；子节点创建后不会被销毁或重建。
type Node[T any] struct {
	box    BoundingBox
	depth  int
	leaves []Leaf[T]

	northWest *Node[T]
	northEast *Node[T]
	southWest *Node[T]
	southEast *Node[T]
}

func newNode[T any](box BoundingBox, depth int) *Node[T] {
	return &Node[T]{box: box, depth: depth, leaves: make([]Leaf[T], 0, Capacity)}
}

func (n *Node[T]) Box() BoundingBox { return n.box }
func (n *Node[T]) Depth() int       { return n.depth }

// Leaves 返回桶内叶子（按插入顺序），调用方不得修改
func (n *Node[T]) Leaves() []Leaf[T] { return n.leaves }

func (n *Node[T]) Subdivided() bool { return n.northWest != nil }

// Children 按 NW、NE、SW、SE 顺序返回子节点；未划分时全部为 nil
func (n *Node[T]) Children() (nw, ne, sw, se *Node[T]) {
	return n.northWest, n.northEast, n.southWest, n.southEast
}

func (n *Node[T]) subdivide() {
	nw, ne, sw, se := n.box.Quadrants()
	n.northWest = newNode[T](nw, n.depth+1)
	n.northEast = newNode[T](ne, n.depth+1)
	n.southWest = newNode[T](sw, n.depth+1)
	n.southEast = newNode[T](se, n.depth+1)
}

// 文档注释：插入叶子
// 背景：越界直接拒绝；桶未满则追加；否则按需划分并依 NW→NE→SW→SE 顺序交给第一个接受的子节点。
// 约束：达到 maxDepth 的节点不再划分，桶无限增长，从而保证重合点不会无限细分。
// 返回：false 表示点不属于本节点或没有子节点认领，失败时不会写入任何子节点。
func (n *Node[T]) insert(leaf Leaf[T], maxDepth int) bool {
	if !n.box.Contains(leaf.Point) {
		return false
	}
	if len(n.leaves) < Capacity || n.depth >= maxDepth {
		n.leaves = append(n.leaves, leaf)
		return true
	}
	if n.northWest == nil {
		n.subdivide()
	}
	return n.northWest.insert(leaf, maxDepth) ||
		n.northEast.insert(leaf, maxDepth) ||
		n.southWest.insert(leaf, maxDepth) ||
		n.southEast.insert(leaf, maxDepth)
}

// 文档注释：范围收集（深度优先）
// 背景：与查询框不相交的子树直接剪枝；先访问本节点桶再依 NW、NE、SW、SE 递归，顺序稳定可复现。
func (n *Node[T]) gather(search BoundingBox, visit func(T, Point)) {
	if !n.box.Intersects(search) {
		return
	}
	for _, l := range n.leaves {
		if search.Contains(l.Point) {
			visit(l.Data, l.Point)
		}
	}
	if n.northWest == nil {
		return
	}
	n.northWest.gather(search, visit)
	n.northEast.gather(search, visit)
	n.southWest.gather(search, visit)
	n.southEast.gather(search, visit)
}

// walk 前序遍历所有节点，供统计使用
func (n *Node[T]) walk(fn func(*Node[T])) {
	fn(n)
	if n.northWest == nil {
		return
	}
	n.northWest.walk(fn)
	n.northEast.walk(fn)
	n.southWest.walk(fn)
	n.southEast.walk(fn)
}
