package catalog

import (
	"encoding/json"
	"sync"
	"testing"

	"poi-cluster/internal/quadtree"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var usBounds = quadtree.Box(-166, 19, -50, 72)

func TestBuildCountsRejected(t *testing.T) {
	recs := []Record{
		{Lat: 40.7128, Lon: -74.0060, Place: Place{Name: "Manhattan Inn"}},
		{Lat: 34.0522, Lon: -118.2437, Place: Place{Name: "LA Motel"}},
		{Lat: 48.8566, Lon: 2.3522, Place: Place{Name: "Paris"}},
	}
	idx := Build(usBounds, 0, recs, 3)
	assert.Equal(t, 3, idx.Report.Total)
	assert.Equal(t, 2, idx.Report.Imported)
	assert.Equal(t, 1, idx.Report.Rejected)
	assert.Equal(t, 2, idx.Tree.Len())
	assert.Equal(t, int64(3), idx.Generation)
	assert.InDelta(t, 34.0522, idx.Report.MinLat, 1e-9)
	assert.InDelta(t, 48.8566, idx.Report.MaxLat, 1e-9)
	require.NotNil(t, idx.Engine)
	assert.Same(t, idx.Tree, idx.Engine.Tree())
	assert.Equal(t, quadtree.DefaultMaxDepth, idx.Tree.MaxDepth())
}

func TestRecordPointUsesLonAsX(t *testing.T) {
	r := Record{Lat: 1, Lon: 2}
	assert.Equal(t, quadtree.Point{X: 2, Y: 1}, r.Point())
}

func TestBuilderMalformed(t *testing.T) {
	b := NewBuilder(usBounds, 8)
	b.Malformed(2)
	b.Add(Record{Lat: 40, Lon: -100})
	idx := b.Finish(1)
	assert.Equal(t, 3, idx.Report.Total)
	assert.Equal(t, 2, idx.Report.Malformed)
	assert.Equal(t, 1, idx.Report.Imported)
	assert.Equal(t, 8, idx.Tree.MaxDepth())
}

func TestHolderSwap(t *testing.T) {
	var h Holder
	assert.Nil(t, h.Load())
	a := Build(usBounds, 0, nil, h.NextGeneration())
	h.Set(a)
	assert.Same(t, a, h.Load())
	b := Build(usBounds, 0, nil, h.NextGeneration())
	h.Set(b)
	assert.Same(t, b, h.Load())
	assert.Greater(t, b.Generation, a.Generation)
}

func TestHolderKeepsNewestGeneration(t *testing.T) {
	var h Holder
	older := Build(usBounds, 0, nil, h.NextGeneration())
	newer := Build(usBounds, 0, nil, h.NextGeneration())

	require.True(t, h.Set(newer))
	assert.False(t, h.Set(older))
	assert.Same(t, newer, h.Load())
	assert.False(t, h.Set(newer))
}

func TestHolderConcurrentSet(t *testing.T) {
	var h Holder
	idxs := make([]*Index, 64)
	for i := range idxs {
		idxs[i] = Build(usBounds, 0, nil, h.NextGeneration())
	}
	var wg sync.WaitGroup
	for i := len(idxs) - 1; i >= 0; i-- {
		wg.Add(1)
		go func(idx *Index) {
			defer wg.Done()
			h.Set(idx)
		}(idxs[i])
	}
	wg.Wait()
	assert.Same(t, idxs[len(idxs)-1], h.Load())
}

func TestEmptyReportEncodes(t *testing.T) {
	idx := Build(usBounds, 0, nil, 1)
	assert.Zero(t, idx.Report.MinLat)
	assert.Zero(t, idx.Report.MaxLon)
	_, err := json.Marshal(idx.Report)
	require.NoError(t, err)
}
