// 包 viewsync：视口刷新前后的标记集合差分，按显示坐标判定同一实体以减少标记抖动
package viewsync

import (
	"fmt"

	"poi-cluster/internal/quadtree"
)

// KeyDigits 判定相等时保留的小数位数
const KeyDigits = 5

// Key：按显示坐标四舍五入后的相等键，仅用于差分，与负载身份无关
type Key string

// KeyOf 以"纬度+经度"顺序格式化；quadtree.Point 约定 Y 为纬度、X 为经度
func KeyOf(p quadtree.Point) Key {
	return Key(fmt.Sprintf("%.*f%.*f", KeyDigits, p.Y, KeyDigits, p.X))
}

// Result：keep = 前∩后（取前一次的值），add = 后−keep，remove = 前−后
type Result[D any] struct {
	Keep   []D
	Add    []D
	Remove []D
}

// 文档注释：集合差分
// 背景：同一位置的簇在两次刷新之间视为同一实体，保留已有标记即可，不必重建。
// 约束：输出顺序跟随输入顺序；同一侧出现重复键时只保留第一次出现。
func Diff[D any](previous, current []D, key func(D) Key) Result[D] {
	prevKeys := make(map[Key]struct{}, len(previous))
	prev := make([]D, 0, len(previous))
	for _, d := range previous {
		k := key(d)
		if _, dup := prevKeys[k]; dup {
			continue
		}
		prevKeys[k] = struct{}{}
		prev = append(prev, d)
	}
	currKeys := make(map[Key]struct{}, len(current))
	var res Result[D]
	for _, d := range current {
		k := key(d)
		if _, dup := currKeys[k]; dup {
			continue
		}
		currKeys[k] = struct{}{}
		if _, kept := prevKeys[k]; !kept {
			res.Add = append(res.Add, d)
		}
	}
	for _, d := range prev {
		if _, ok := currKeys[key(d)]; ok {
			res.Keep = append(res.Keep, d)
		} else {
			res.Remove = append(res.Remove, d)
		}
	}
	return res
}
