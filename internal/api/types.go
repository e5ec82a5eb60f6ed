package api

import (
	"fmt"

	"poi-cluster/internal/catalog"
	"poi-cluster/internal/cluster"
	"poi-cluster/internal/quadtree"
	"poi-cluster/internal/viewsync"
)

// 文档注释：对外的簇模型
// 背景：单点簇携带名称与电话，多点簇只有数量；size 为建议的标记像素尺寸。
// 约束：字段稳定；lat/lon 即差分所用的显示坐标。
type Cluster struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Count    int     `json:"count"`
	Size     int     `json:"size"`
	Title    string  `json:"title"`
	Subtitle string  `json:"subtitle"`
	Country  string  `json:"country,omitempty"`
}

func (c Cluster) point() quadtree.Point { return quadtree.Point{X: c.Lon, Y: c.Lat} }

// clusterKey 差分键：按显示坐标四舍五入
func clusterKey(c Cluster) viewsync.Key { return viewsync.KeyOf(c.point()) }

func fromDescriptor(d cluster.Descriptor[catalog.Place]) Cluster {
	c := Cluster{
		Lat:   d.Coordinate.Y,
		Lon:   d.Coordinate.X,
		Count: d.Count,
		Size:  cluster.MarkerSize(d.Count),
	}
	if d.Single() && d.Item != nil {
		c.Title = d.Item.Name
		c.Subtitle = d.Item.Phone
		c.Country = d.Item.Country
		return c
	}
	c.Title = fmt.Sprintf("%d places in this area", d.Count)
	return c
}

// FromDescriptors 引擎输出转对外模型
func FromDescriptors(ds []cluster.Descriptor[catalog.Place]) []Cluster {
	out := make([]Cluster, 0, len(ds))
	for _, d := range ds {
		out = append(out, fromDescriptor(d))
	}
	return out
}

type clustersResponse struct {
	Session    string    `json:"session"`
	Zoom       int       `json:"zoom"`
	Generation int64     `json:"generation"`
	Clusters   []Cluster `json:"clusters"`
	Add        []Cluster `json:"add"`
	Remove     []Cluster `json:"remove"`
	Keep       []Cluster `json:"keep"`
}

type statsResponse struct {
	Generation int64          `json:"generation"`
	BuiltAt    string         `json:"built_at"`
	Points     int            `json:"points"`
	Report     catalog.Report `json:"report"`
	Tree       treeStats      `json:"tree"`
	Sessions   int            `json:"sessions"`
	Total      int64          `json:"total"`
	Today      int64          `json:"today"`
}

type treeStats struct {
	Nodes    int `json:"nodes"`
	Leaves   int `json:"leaves"`
	MaxDepth int `json:"max_depth"`
	Overfull int `json:"overfull"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func orEmpty(cs []Cluster) []Cluster {
	if cs == nil {
		return []Cluster{}
	}
	return cs
}
