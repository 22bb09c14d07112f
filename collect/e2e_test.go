package collect

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-boutdata/datafile"
	"github.com/robert-malhotra/go-boutdata/internal/filter"
	"github.com/robert-malhotra/go-boutdata/internal/testdump"
)

// writeRun writes a 2x2 run with 4x4 interiors, two guard cells and one z
// point. The interior of process p holds 1000*p + 10*x + y.
func writeRun(t *testing.T, suffix string, opts testdump.HDF5Options) string {
	t.Helper()
	dir := t.TempDir()
	for p := 0; p < 4; p++ {
		d := &testdump.Dump{}
		d.Add(
			testdump.IntScalar("MXSUB", 4),
			testdump.IntScalar("MYSUB", 4),
			testdump.IntScalar("MXG", 2),
			testdump.IntScalar("MYG", 2),
			testdump.IntScalar("MZ", 1),
			testdump.IntScalar("NXPE", 2),
			testdump.IntScalar("NYPE", 2),
			testdump.Scalar("BOUT_VERSION", 4.3),
			testdump.Field("t_array", []string{"t"}, []int{1}, func([]int) float64 { return 0 }),
			testdump.Field("n", []string{"x", "y", "z"}, []int{8, 8, 1}, func(idx []int) float64 {
				x, y := idx[0]-2, idx[1]-2
				if x < 0 || x >= 4 || y < 0 || y >= 4 {
					return -1
				}
				return float64(1000*p + 10*x + y)
			}),
		)
		path := filepath.Join(dir, fmt.Sprintf("BOUT.dmp.%d%s", p, suffix))
		require.NoError(t, d.WriteFile(path, opts))
	}
	return dir
}

func TestCollectEndToEnd(t *testing.T) {
	tests := []struct {
		name   string
		suffix string
		opts   testdump.HDF5Options
	}{
		{"netcdf classic", ".nc", testdump.HDF5Options{}},
		{"netcdf4", ".nc", testdump.HDF5Options{NetCDF4: true, Modern: true}},
		{"hdf5 chunked", ".h5", testdump.HDF5Options{Storage: testdump.Chunked, Filters: []uint16{filter.IDShuffle, filter.IDDeflate}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeRun(t, tt.suffix, tt.opts)

			arr, err := Collect("n", WithPath(dir), WithXGuards(false), WithInfo(false))
			require.NoError(t, err)
			require.Equal(t, []int{8, 8, 1}, arr.Shape)
			assert.Equal(t, "Field3D", arr.Attributes["bout_type"])

			for p := 0; p < 4; p++ {
				ox, oy := 4*(p%2), 4*(p/2)
				for x := 0; x < 4; x++ {
					for y := 0; y < 4; y++ {
						require.Equal(t, float64(1000*p+10*x+y), arr.At(ox+x, oy+y, 0), "process %d [%d %d]", p, x, y)
					}
				}
			}

			dims, err := Dimensions("n", dir, "BOUT.dmp")
			require.NoError(t, err)
			assert.Equal(t, []string{"x", "y", "z"}, dims)

			attrs, err := Attributes("n", dir, "BOUT.dmp")
			require.NoError(t, err)
			assert.Equal(t, "Field3D", attrs["bout_type"])
		})
	}
}

func TestCollectEndToEndCache(t *testing.T) {
	dir := writeRun(t, ".h5", testdump.HDF5Options{Modern: true})
	cache, err := datafile.CreateCache(dir, "BOUT.dmp")
	require.NoError(t, err)
	defer cache.Close()

	for i := 0; i < 2; i++ {
		arr, err := Collect("n", WithCache(cache), WithXGuards(false), WithXRange(Bounded(3, 4)), WithYRange(Single(-1)))
		require.NoError(t, err)
		require.Equal(t, []int{2, 1, 1}, arr.Shape)
		assert.Equal(t, float64(2000+10*3+3), arr.At(0, 0, 0))
		assert.Equal(t, float64(3000+0+3), arr.At(1, 0, 0))
	}

	mxsub, err := Collect("MXSUB", WithCache(cache))
	require.NoError(t, err)
	v, err := mxsub.Scalar()
	require.NoError(t, err)
	assert.Equal(t, 4.0, v)
	assert.Equal(t, "int32", mxsub.DType)
}

func TestCollectNoFiles(t *testing.T) {
	_, err := Collect("n", WithPath(t.TempDir()))
	assert.ErrorIs(t, err, ErrLayoutConflict)
}
