package collect

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectFrom(t *testing.T, files []*fakeFile, name string, opts ...Option) *Array {
	t.Helper()
	opts = append([]Option{WithCache(cacheOf(files, false))}, opts...)
	arr, err := Collect(name, opts...)
	require.NoError(t, err)
	return arr
}

func TestCollectGuards(t *testing.T) {
	files := defaultRun().files()

	plain := collectFrom(t, files, "Pe", WithXGuards(false))
	require.Equal(t, []int{8, 8, 3}, plain.Shape)
	assert.Equal(t, DimsXYZ, plain.Dims)

	guarded := collectFrom(t, files, "Pe", WithYGuards(YGuardsInclude))
	require.Equal(t, []int{12, 12, 3}, guarded.Shape)

	for i := 0; i < 12; i++ {
		for j := 0; j < 12; j++ {
			for k := 0; k < 3; k++ {
				require.Equal(t, value(0, i, j, k), guarded.At(i, j, k), "guarded [%d %d %d]", i, j, k)
			}
		}
	}
	for i := 0; i < 8; i++ {
		for j := 0; j < 8; j++ {
			for k := 0; k < 3; k++ {
				require.Equal(t, guarded.At(i+2, j+2, k), plain.At(i, j, k), "interior [%d %d %d]", i, j, k)
			}
		}
	}
}

func TestCollectDefaultGuards(t *testing.T) {
	arr := collectFrom(t, defaultRun().files(), "g11")
	require.Equal(t, []int{12, 8}, arr.Shape)
	assert.Equal(t, "float64", arr.DType)
	for i := 0; i < 12; i++ {
		for j := 0; j < 8; j++ {
			require.Equal(t, value(0, i, j+2, 0), arr.At(i, j))
		}
	}
}

func TestCollectSubranges(t *testing.T) {
	files := defaultRun().files()

	arr := collectFrom(t, files, "flux", WithXRange(Bounded(3, 9)), WithYRange(Single(5)), WithTRange(Single(-1)))
	require.Equal(t, []int{1, 7, 1}, arr.Shape)
	for i := 0; i < 7; i++ {
		assert.Equal(t, value(1, 3+i, 5+2, 0), arr.At(0, i, 0))
	}

	arr = collectFrom(t, files, "n", WithXGuards(false), WithXRange(Bounded(2, -3)), WithZRange(Seq(1, 2)))
	require.Equal(t, []int{2, 4, 8, 2}, arr.Shape)
	for ti := 0; ti < 2; ti++ {
		for i := 0; i < 4; i++ {
			for j := 0; j < 8; j++ {
				for k := 0; k < 2; k++ {
					require.Equal(t, value(ti, i+4, j+2, k+1), arr.At(ti, i, j, k))
				}
			}
		}
	}
}

func TestCollectStrides(t *testing.T) {
	files := defaultRun().files()

	arr := collectFrom(t, files, "g11", WithXGuards(false), WithXRange(Stepped(0, 8, 3)), WithYRange(Stepped(1, 8, 2)))
	require.Equal(t, []int{3, 4}, arr.Shape)
	for a := 0; a < 3; a++ {
		for b := 0; b < 4; b++ {
			assert.Equal(t, value(0, 3*a+2, 1+2*b+2, 0), arr.At(a, b))
		}
	}

	arr = collectFrom(t, files, "n", WithZRange(Stepped(0, 3, 2)), WithTRange(Stepped(0, 2, 5)))
	require.Equal(t, []int{1, 12, 8, 2}, arr.Shape)
	assert.Equal(t, value(0, 11, 9, 2), arr.At(0, 11, 7, 1))
}

func TestCollectUpperTarget(t *testing.T) {
	r := defaultRun()
	r.nype, r.upper = 4, 1
	files := r.files()
	for _, f := range files {
		f.scalar("jyseps2_1", 7).scalar("jyseps1_2", 11).scalar("ny_inner", 8)
	}

	arr := collectFrom(t, files, "g11", WithYGuards(YGuardsIncludeUpper))
	require.Equal(t, []int{12, 24}, arr.Shape)
	for i := 0; i < 12; i++ {
		for j := 0; j < 24; j++ {
			require.Equal(t, value(0, i, j, 0), arr.At(i, j), "[%d %d]", i, j)
		}
	}

	for _, f := range files {
		f.scalar("ny_inner", 6)
	}
	_, err := Collect("g11", WithCache(cacheOf(files, false)), WithYGuards(YGuardsIncludeUpper))
	assert.ErrorIs(t, err, ErrTopology)
}

func TestCollectSingleTarget(t *testing.T) {
	files := defaultRun().files()
	for _, f := range files {
		f.scalar("jyseps2_1", 7).scalar("jyseps1_2", 7)
	}
	upper := collectFrom(t, files, "g11", WithYGuards(YGuardsIncludeUpper))
	include := collectFrom(t, files, "g11", WithYGuards(YGuardsInclude))
	assert.Equal(t, include.Shape, upper.Shape)
	assert.Equal(t, include.Data, upper.Data)
}

func TestCollectNonSpatialFromFirstFile(t *testing.T) {
	files := defaultRun().files()

	arr := collectFrom(t, files, "dt")
	assert.Equal(t, DimsNone, arr.Dims)
	v, err := arr.Scalar()
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	arr = collectFrom(t, files, "wall_flux", WithTRange(Bounded(1, 1)))
	assert.Equal(t, DimsT, arr.Dims)
	assert.Equal(t, []float64{10}, arr.Data)

	assert.Equal(t, 1, files[0].reads["dt"])
	assert.Equal(t, 1, files[0].reads["wall_flux"])
	for _, f := range files[1:] {
		assert.Zero(t, f.reads["dt"])
		assert.Zero(t, f.reads["wall_flux"])
	}
}

func addFieldPerp(r run, files []*fakeFile, yindex func(peY int) int) {
	lx := r.mxsub + 2*r.mxg
	for i, f := range files {
		peX, peY := i%r.nxpe, i/r.nxpe
		yi := yindex(peY)
		v := f.field("perp", []string{"x", "z"}, []int{lx, r.mz}, func(idx []int) float64 {
			return value(0, peX*r.mxsub+idx[0], yi, idx[1])
		})
		v.attrs["yindex_global"] = yi
		v.attrs["cell_location"] = "CELL_CENTRE"
	}
}

func TestCollectFieldPerp(t *testing.T) {
	r := defaultRun()
	files := r.files()
	addFieldPerp(r, files, func(peY int) int {
		if peY == 1 {
			return 5
		}
		return -1
	})

	arr := collectFrom(t, files, "perp")
	require.Equal(t, []int{12, 3}, arr.Shape)
	assert.Equal(t, DimsXZ, arr.Dims)
	for i := 0; i < 12; i++ {
		for k := 0; k < 3; k++ {
			assert.Equal(t, value(0, i, 5, k), arr.At(i, k))
		}
	}
	assert.Equal(t, 5, arr.Attributes["yindex_global"])
	assert.Zero(t, files[0].reads["perp"])
	assert.Equal(t, 1, files[2].reads["perp"])
}

func TestCollectFieldPerpInconsistent(t *testing.T) {
	tests := []struct {
		name   string
		yindex func(peY int) int
	}{
		{"different planes", func(peY int) int { return 3 + 2*peY }},
		{"different rows", func(int) int { return 4 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := defaultRun()
			files := r.files()
			addFieldPerp(r, files, tt.yindex)
			_, err := Collect("perp", WithCache(cacheOf(files, false)))
			assert.ErrorIs(t, err, ErrInconsistentFieldPerp)
		})
	}
}

func TestCollectAutoTimeTruncation(t *testing.T) {
	files := defaultRun().files()
	files[3].field("t_array", []string{"t"}, []int{1}, func([]int) float64 { return 0 })

	arr := collectFrom(t, files, "flux", WithAutoTimeTruncation(true))
	assert.Equal(t, []int{1, 12, 8}, arr.Shape)

	arr = collectFrom(t, files, "flux")
	assert.Equal(t, []int{2, 12, 8}, arr.Shape)
}

func TestCollectLegacyVersion(t *testing.T) {
	files := defaultRun().files()
	for _, f := range files {
		delete(f.vars, "BOUT_VERSION")
	}
	var buf bytes.Buffer
	arr := collectFrom(t, files, "Pe", WithLogger(zerolog.New(&buf)))
	assert.Equal(t, []int{12, 8, 2}, arr.Shape)
	assert.Contains(t, buf.String(), "BOUT_VERSION")
}

func TestCollectGridDefaults(t *testing.T) {
	r := defaultRun()
	r.nxpe = 1
	files := r.files()
	for _, f := range files {
		delete(f.vars, "NXPE")
		delete(f.vars, "NYPE")
	}
	var buf bytes.Buffer
	arr := collectFrom(t, files, "g11", WithXGuards(false), WithLogger(zerolog.New(&buf)))
	assert.Equal(t, []int{4, 8}, arr.Shape)
	assert.Equal(t, value(0, 2, 2, 0), arr.At(0, 0))
	assert.Contains(t, buf.String(), `"scalar":"NXPE"`)
	assert.Contains(t, buf.String(), `"scalar":"NYPE"`)
	assert.Contains(t, buf.String(), `"default":2`)
}

func TestCollectMissingFiles(t *testing.T) {
	files := defaultRun().files()
	var buf bytes.Buffer
	_, err := Collect("Pe", WithCache(cacheOf(files[:3], false)), WithLogger(zerolog.New(&buf)))
	assert.ErrorIs(t, err, ErrLayoutConflict)
	assert.Contains(t, buf.String(), "some files missing")
}

func TestCollectMissingScalar(t *testing.T) {
	files := defaultRun().files()
	delete(files[0].vars, "MXSUB")
	_, err := Collect("Pe", WithCache(cacheOf(files, false)))
	assert.ErrorIs(t, err, ErrMissingScalar)
}

func TestCollectNames(t *testing.T) {
	files := defaultRun().files()

	var buf bytes.Buffer
	arr := collectFrom(t, files, "pe", WithLogger(zerolog.New(&buf)))
	assert.Equal(t, "Pe", arr.Name)
	assert.Contains(t, buf.String(), `"substitute":"Pe"`)

	arr = collectFrom(t, files, "wall")
	assert.Equal(t, "wall_flux", arr.Name)

	_, err := Collect("pe", WithCache(cacheOf(files, false)), WithStrict(true))
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = Collect("MX", WithCache(cacheOf(files, false)))
	assert.ErrorIs(t, err, ErrAmbiguous)
	_, err = Collect("nothing", WithCache(cacheOf(files, false)))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCollectCastsToTimeType(t *testing.T) {
	files := defaultRun().files()
	for _, f := range files {
		f.vars["t_array"].dtype = "float32"
		for i := range f.vars["g11"].data {
			f.vars["g11"].data[i] += 0.1
		}
	}
	arr := collectFrom(t, files, "g11")
	assert.Equal(t, "float32", arr.DType)
	assert.Equal(t, float64(float32(value(0, 0, 2, 0)+0.1)), arr.At(0, 0))
}

func TestCollectLeavesCacheOpen(t *testing.T) {
	files := defaultRun().files()
	collectFrom(t, files, "Pe")
	for _, f := range files {
		assert.False(t, f.closed)
	}
}

func TestCollectErrors(t *testing.T) {
	files := defaultRun().files()
	files[0].field("big", []string{"t", "x", "y", "z", "w"}, []int{1, 1, 1, 1, 1}, func([]int) float64 { return 0 })
	files[0].field("late", []string{"x", "t"}, []int{1, 1}, func([]int) float64 { return 0 })

	_, err := Collect("big", WithCache(cacheOf(files, false)))
	assert.ErrorIs(t, err, ErrDimensionality)
	_, err = Collect("late", WithCache(cacheOf(files, false)))
	assert.ErrorIs(t, err, ErrDimensionality)
	_, err = Collect("Pe", WithCache(cacheOf(files, false)), WithXRange(Single(100)))
	assert.ErrorIs(t, err, ErrOutOfRange)
	_, err = Collect("Pe", WithCache(cacheOf(files, false)), WithYRange(Bounded(5, 2)))
	assert.ErrorIs(t, err, ErrMalformedRange)
	_, err = Collect("Pe", WithCache(cacheOf(files, false)), WithZRange(Seq(1, 2, 3, 4)))
	assert.ErrorIs(t, err, ErrMalformedRange)
}

func mergedFile() *fakeFile {
	f := newFakeFile("BOUT.dmp.nc")
	f.scalar("nx", 12).scalar("ny", 8).scalar("MXG", 2).scalar("MYG", 2).scalar("MZ", 3).
		scalar("jyseps2_1", 3).scalar("jyseps1_2", 5)
	f.field("t_array", []string{"t"}, []int{2}, func(idx []int) float64 { return float64(idx[0]) })
	f.field("Pe", []string{"x", "y", "z"}, []int{12, 16, 3}, func(idx []int) float64 {
		return value(0, idx[0], idx[1], idx[2])
	})
	f.field("flux", []string{"t", "x", "y"}, []int{2, 12, 16}, func(idx []int) float64 {
		return value(idx[0], idx[1], idx[2], 0)
	})
	return f
}

func TestCollectMerged(t *testing.T) {
	files := []*fakeFile{mergedFile()}
	collectMerged := func(name string, opts ...Option) *Array {
		t.Helper()
		arr, err := Collect(name, append([]Option{WithCache(cacheOf(files, true))}, opts...)...)
		require.NoError(t, err)
		return arr
	}

	arr := collectMerged("Pe", WithXGuards(false))
	require.Equal(t, []int{8, 8, 3}, arr.Shape)
	assert.Equal(t, value(0, 2, 2, 0), arr.At(0, 0, 0))
	assert.Equal(t, value(0, 9, 9, 2), arr.At(7, 7, 2))

	arr = collectMerged("Pe")
	require.Equal(t, []int{12, 8, 3}, arr.Shape)
	assert.Equal(t, value(0, 0, 2, 1), arr.At(0, 0, 1))

	arr = collectMerged("Pe", WithYGuards(YGuardsInclude))
	assert.Equal(t, []int{12, 12, 3}, arr.Shape)

	arr = collectMerged("Pe", WithYGuards(YGuardsIncludeUpper))
	require.Equal(t, []int{12, 16, 3}, arr.Shape)
	assert.Equal(t, value(0, 11, 15, 2), arr.At(11, 15, 2))

	arr = collectMerged("flux", WithTRange(Single(1)), WithXRange(Stepped(0, 12, 4)))
	require.Equal(t, []int{1, 3, 8}, arr.Shape)
	assert.Equal(t, value(1, 8, 2, 0), arr.At(0, 2, 0))
}
