package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"poi-cluster/internal/mapproj"

	"github.com/paulmach/orb"
)

var errBadViewport = errors.New("bad viewport")

// viewportQuery：一次聚合请求的视口（经纬度）与视口像素宽度
type viewportQuery struct {
	West, South, East, North float64
	Width                    float64
}

func (q viewportQuery) bound() orb.Bound {
	return orb.Bound{Min: orb.Point{q.West, q.South}, Max: orb.Point{q.East, q.North}}
}

// rect 视口的地图点矩形与缩放比例
func (q viewportQuery) rect() (mapproj.MapRect, float64) {
	r := mapproj.RectFromBound(q.bound())
	return r, mapproj.ZoomScale(q.Width, r)
}

// 文档注释：解析视口参数
// 约束：west<east、south<north 且均为有限值；纬度限制在 ±90，经度限制在 ±180；width 为正。
func parseViewport(r *http.Request) (viewportQuery, error) {
	v := r.URL.Query()
	var q viewportQuery
	fields := []struct {
		name string
		dst  *float64
	}{
		{"west", &q.West}, {"south", &q.South}, {"east", &q.East}, {"north", &q.North}, {"width", &q.Width},
	}
	for _, f := range fields {
		s := v.Get(f.name)
		if s == "" {
			return q, fmt.Errorf("%w: missing %s", errBadViewport, f.name)
		}
		n, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return q, fmt.Errorf("%w: %s=%q", errBadViewport, f.name, s)
		}
		*f.dst = n
	}
	switch {
	case q.West < -180 || q.East > 180 || q.South < -90 || q.North > 90:
		return q, fmt.Errorf("%w: out of range", errBadViewport)
	case !(q.West < q.East) || !(q.South < q.North):
		return q, fmt.Errorf("%w: empty or inverted", errBadViewport)
	case !(q.Width > 0):
		return q, fmt.Errorf("%w: width must be positive", errBadViewport)
	}
	return q, nil
}
