package mapproj

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorldSize(t *testing.T) {
	assert.Equal(t, 268435456.0, WorldSize)
}

func TestFromLatLonOriginAndCorners(t *testing.T) {
	c := FromLatLon(0, 0)
	assert.InDelta(t, WorldSize/2, c.X, 1e-6)
	assert.InDelta(t, WorldSize/2, c.Y, 1e-6)

	nw := FromLatLon(MaxLatitude, -180)
	assert.InDelta(t, 0, nw.X, 1e-6)
	assert.InDelta(t, 0, nw.Y, 1e-3)

	se := FromLatLon(-90, 180)
	assert.InDelta(t, WorldSize, se.X, 1e-6)
	assert.InDelta(t, WorldSize, se.Y, 1e-3, "latitude clamps at the projection limit")
}

func TestLatLonRoundTrip(t *testing.T) {
	for _, c := range [][2]float64{{41.225884, -97.942760}, {-33.8688, 151.2093}, {0, 0}, {64.1466, -21.9426}} {
		lat, lon := FromLatLon(c[0], c[1]).LatLon()
		assert.InDelta(t, c[0], lat, 1e-9)
		assert.InDelta(t, c[1], lon, 1e-9)
	}
}

func TestRectBoundingBoxOrdering(t *testing.T) {
	b := orb.Bound{Min: orb.Point{-100, 30}, Max: orb.Point{-90, 40}}
	r := RectFromBound(b)
	require.Greater(t, r.W, 0.0)
	require.Greater(t, r.H, 0.0, "north is at the smaller y")

	box := r.BoundingBox()
	assert.InDelta(t, -100, box.X0, 1e-9)
	assert.InDelta(t, 30, box.Y0, 1e-9)
	assert.InDelta(t, -90, box.XF, 1e-9)
	assert.InDelta(t, 40, box.YF, 1e-9)
}

func TestZoomLevel(t *testing.T) {
	cases := []struct {
		scale float64
		want  int
	}{
		{1, 20},
		{2, 21},
		{0.5, 19},
		{math.Pow(2, -6.4), 14},
		{math.Pow(2, -6.6), 13},
		{math.Pow(2, -20), 0},
		{math.Pow(2, -25), 0},
		{0, 0},
		{-1, 0},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, ZoomLevel(c.scale), "scale %v", c.scale)
	}
}

func TestZoomScale(t *testing.T) {
	assert.Equal(t, 0.5, ZoomScale(512, MapRect{W: 1024, H: 700}))
	assert.Equal(t, 0.0, ZoomScale(512, MapRect{}))
}
