package collect

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

func span1(a, b int) datafile.Slice { return datafile.Slice{Start: a, Stop: b, Step: 1} }

func TestExtractWithoutGuards(t *testing.T) {
	tp := &topology{nxpe: 2, nype: 2, mxsub: 4, mysub: 4, mxg: 2, myg: 2, upperTarget: -1}

	tests := []struct {
		proc   int
		x, y   datafile.Slice
		ok     bool
		lx, ly datafile.Slice
		gx, gy int
	}{
		{0, span1(0, 8), span1(0, 8), true, span1(2, 6), span1(2, 6), 0, 0},
		{1, span1(0, 8), span1(0, 8), true, span1(2, 6), span1(2, 6), 4, 0},
		{2, span1(0, 8), span1(0, 8), true, span1(2, 6), span1(2, 6), 0, 4},
		{3, span1(0, 8), span1(0, 8), true, span1(2, 6), span1(2, 6), 4, 4},
		{3, span1(5, 7), span1(3, 6), true, span1(3, 5), span1(2, 4), 0, 1},
		{0, span1(4, 8), span1(0, 8), false, datafile.Slice{}, datafile.Slice{}, 0, 0},
		{1, span1(0, 4), span1(0, 8), false, datafile.Slice{}, datafile.Slice{}, 0, 0},
		{2, span1(0, 8), span1(0, 4), false, datafile.Slice{}, datafile.Slice{}, 0, 0},
	}
	for _, tt := range tests {
		s, ok := tp.extract(tt.proc, tt.x, tt.y)
		assert.Equal(t, tt.ok, ok, "proc %d x %s y %s", tt.proc, tt.x, tt.y)
		if !ok || !tt.ok {
			continue
		}
		assert.Equal(t, tt.lx, s.x, "proc %d local x", tt.proc)
		assert.Equal(t, tt.ly, s.y, "proc %d local y", tt.proc)
		assert.Equal(t, tt.gx, s.gx, "proc %d global x", tt.proc)
		assert.Equal(t, tt.gy, s.gy, "proc %d global y", tt.proc)
	}
}

func TestExtractWithGuards(t *testing.T) {
	tp := &topology{nxpe: 2, nype: 1, mxsub: 4, mysub: 4, mxg: 2, myg: 2, upperTarget: -1, xguards: true, yguards: true}

	s, ok := tp.extract(0, span1(0, 12), span1(0, 8))
	assert.True(t, ok)
	assert.Equal(t, span1(0, 6), s.x)
	assert.Equal(t, span1(0, 8), s.y)
	assert.Equal(t, 0, s.gx)

	s, ok = tp.extract(1, span1(0, 12), span1(0, 8))
	assert.True(t, ok)
	assert.Equal(t, span1(2, 8), s.x)
	assert.Equal(t, 6, s.gx)

	// Only the outer boundary of the last column.
	_, ok = tp.extract(0, span1(10, 12), span1(0, 8))
	assert.False(t, ok)
	s, ok = tp.extract(1, span1(10, 12), span1(0, 8))
	assert.True(t, ok)
	assert.Equal(t, span1(6, 8), s.x)
	assert.Equal(t, 0, s.gx)
}

func TestExtractUpperTarget(t *testing.T) {
	tp := &topology{nxpe: 1, nype: 4, mxsub: 4, mysub: 4, mxg: 2, myg: 2, upperTarget: 1, xguards: true, yguards: true}
	all := span1(0, 8)

	want := []struct {
		local  datafile.Slice
		global int
	}{
		{span1(0, 6), 0},
		{span1(2, 8), 6},
		{span1(0, 6), 12},
		{span1(2, 8), 18},
	}
	for i, w := range want {
		s, ok := tp.extract(i, all, span1(0, 24))
		assert.True(t, ok)
		assert.Equal(t, w.local, s.y, "row %d", i)
		assert.Equal(t, w.global, s.gy, "row %d", i)
	}
}
