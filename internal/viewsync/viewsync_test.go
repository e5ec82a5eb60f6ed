package viewsync

import (
	"testing"
	"time"

	"poi-cluster/internal/quadtree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type marker struct {
	name string
	at   quadtree.Point
}

func markerKey(m marker) Key { return KeyOf(m.at) }

func TestKeyOfRoundsToFiveDigits(t *testing.T) {
	assert.Equal(t, Key("1.000002.00000"), KeyOf(quadtree.Point{X: 2, Y: 1}))
	assert.Equal(t, KeyOf(quadtree.Point{X: 1.000001, Y: 1.000004}), KeyOf(quadtree.Point{X: 1, Y: 1}))
	assert.NotEqual(t, KeyOf(quadtree.Point{X: 1.00001, Y: 1}), KeyOf(quadtree.Point{X: 1, Y: 1}))
}

func TestDiffKeepsVisuallyIdenticalMarkers(t *testing.T) {
	a := marker{"A", quadtree.Point{X: 1, Y: 1}}
	a2 := marker{"A'", quadtree.Point{X: 1.000001, Y: 0.999999}}
	b := marker{"B", quadtree.Point{X: 2, Y: 2}}

	res := Diff([]marker{a}, []marker{a2, b}, markerKey)
	assert.Equal(t, []marker{b}, res.Add)
	assert.Empty(t, res.Remove)
	assert.Equal(t, []marker{a}, res.Keep)
}

func TestDiffRemovesVanished(t *testing.T) {
	a := marker{"A", quadtree.Point{X: 1, Y: 1}}
	b := marker{"B", quadtree.Point{X: 2, Y: 2}}
	c := marker{"C", quadtree.Point{X: 3, Y: 3}}

	res := Diff([]marker{a, b}, []marker{c, b}, markerKey)
	assert.Equal(t, []marker{c}, res.Add)
	assert.Equal(t, []marker{a}, res.Remove)
	assert.Equal(t, []marker{b}, res.Keep)
}

func TestDiffFirstRefreshAddsEverything(t *testing.T) {
	cur := []marker{{"A", quadtree.Point{X: 1, Y: 1}}, {"B", quadtree.Point{X: 2, Y: 2}}}
	res := Diff(nil, cur, markerKey)
	assert.Equal(t, cur, res.Add)
	assert.Empty(t, res.Keep)
	assert.Empty(t, res.Remove)
}

func TestDiffCollapsesDuplicateKeys(t *testing.T) {
	a := marker{"A", quadtree.Point{X: 1, Y: 1}}
	a2 := marker{"A2", quadtree.Point{X: 1, Y: 1}}
	res := Diff(nil, []marker{a, a2}, markerKey)
	assert.Equal(t, []marker{a}, res.Add)
}

func TestSessionsSwap(t *testing.T) {
	s := NewSessions[marker](8, time.Minute)
	id := NewSessionID()
	require.NotEmpty(t, id)

	a := marker{"A", quadtree.Point{X: 1, Y: 1}}
	b := marker{"B", quadtree.Point{X: 2, Y: 2}}

	first := s.Swap(id, []marker{a}, markerKey)
	assert.Equal(t, []marker{a}, first.Add)

	second := s.Swap(id, []marker{b}, markerKey)
	assert.Equal(t, []marker{b}, second.Add)
	assert.Equal(t, []marker{a}, second.Remove)
}

func TestSessionsExpireAndEvict(t *testing.T) {
	s := NewSessions[marker](2, time.Minute)
	now := time.Unix(1000, 0)
	s.now = func() time.Time { return now }

	s.Set("a", []marker{{name: "a"}})
	s.Set("b", []marker{{name: "b"}})
	s.Set("c", []marker{{name: "c"}})
	assert.Equal(t, 2, s.Len())
	_, ok := s.Get("a")
	assert.False(t, ok, "oldest session is evicted")

	now = now.Add(2 * time.Minute)
	_, ok = s.Get("b")
	assert.False(t, ok, "expired session is dropped")
}
