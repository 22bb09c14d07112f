package datafile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-boutdata/internal/filter"
	"github.com/robert-malhotra/go-boutdata/internal/testdump"
)

func sampleDump() *testdump.Dump {
	n := testdump.Field("n", []string{"t", "x", "y", "z"}, []int{3, 4, 5, 2}, func(i []int) float64 {
		return float64(1000*i[0] + 100*i[1] + 10*i[2] + i[3])
	})
	n.Attrs = append(n.Attrs,
		testdump.Attr{Name: "scale", Value: 2.5},
		testdump.Attr{Name: "yindex_global", Value: 3},
	)
	d := &testdump.Dump{}
	return d.Add(
		testdump.IntScalar("MXSUB", 4),
		testdump.Field("t_array", []string{"t"}, []int{3}, func(i []int) float64 { return float64(i[0]) / 2 }),
		n,
		testdump.Text("name", "hello"),
	)
}

func writeDump(t *testing.T, dir, name string, d *testdump.Dump, opts testdump.HDF5Options) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, d.WriteFile(path, opts))
	return path
}

var formats = []struct {
	name string
	file string
	opts testdump.HDF5Options
}{
	{"netcdf classic", "BOUT.dmp.0.nc", testdump.HDF5Options{}},
	{"hdf5 contiguous", "BOUT.dmp.0.h5", testdump.HDF5Options{}},
	{"hdf5 compact", "BOUT.dmp.0.h5", testdump.HDF5Options{Storage: testdump.Compact}},
	{"hdf5 modern chunked", "BOUT.dmp.0.hdf5", testdump.HDF5Options{Modern: true, Storage: testdump.Chunked}},
	{"hdf5 deflate shuffle", "BOUT.dmp.0.h5", testdump.HDF5Options{Storage: testdump.Chunked,
		Filters: []uint16{filter.IDShuffle, filter.IDDeflate, filter.IDFletcher32}}},
	{"hdf5 lz4", "BOUT.dmp.0.h5", testdump.HDF5Options{Storage: testdump.Chunked, Filters: []uint16{filter.IDLZ4}}},
	{"hdf5 zstd", "BOUT.dmp.0.h5", testdump.HDF5Options{Modern: true, Storage: testdump.Chunked, Filters: []uint16{filter.IDZstd}}},
	{"netcdf4", "BOUT.dmp.0.nc", testdump.HDF5Options{NetCDF4: true, Modern: true, Storage: testdump.Chunked}},
	{"user block", "BOUT.dmp.0.h5", testdump.HDF5Options{UserBlock: 512}},
}

func TestOpenFormats(t *testing.T) {
	for _, tt := range formats {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDump(t, t.TempDir(), tt.file, sampleDump(), tt.opts)

			f, err := Open(path)
			require.NoError(t, err)
			defer f.Close()

			assert.Equal(t, path, f.Path())
			assert.ElementsMatch(t, []string{"MXSUB", "t_array", "n", "name"}, f.Names())

			dims, err := f.Dimensions("n")
			require.NoError(t, err)
			assert.Equal(t, []string{"t", "x", "y", "z"}, dims)

			dims, err = f.Dimensions("t_array")
			require.NoError(t, err)
			assert.Equal(t, []string{"t"}, dims)

			dims, err = f.Dimensions("MXSUB")
			require.NoError(t, err)
			assert.Empty(t, dims)

			shape, err := f.Shape("n")
			require.NoError(t, err)
			assert.Equal(t, []int{3, 4, 5, 2}, shape)

			attrs, err := f.Attributes("n")
			require.NoError(t, err)
			assert.Equal(t, "Field3D_t", attrs["bout_type"])
			assert.Equal(t, 2.5, attrs["scale"])
			assert.Equal(t, int64(3), attrs["yindex_global"])
			assert.NotContains(t, attrs, "DIMENSION_LIST")

			mxsub, err := f.ReadScalar("MXSUB")
			require.NoError(t, err)
			assert.Equal(t, 4.0, mxsub)

			arr, err := f.Read("t_array", nil)
			require.NoError(t, err)
			assert.Equal(t, "float64", arr.DType)
			assert.Equal(t, []float64{0, 0.5, 1}, arr.Data)

			text, err := f.Read("name", nil)
			require.NoError(t, err)
			assert.Equal(t, []string{"hello"}, text.Strings)
		})
	}
}

func TestReadRanges(t *testing.T) {
	for _, tt := range formats {
		t.Run(tt.name, func(t *testing.T) {
			path := writeDump(t, t.TempDir(), tt.file, sampleDump(), tt.opts)
			f, err := Open(path)
			require.NoError(t, err)
			defer f.Close()

			arr, err := f.Read("n", []*Slice{nil, {1, 3, 1}, {0, 5, 2}, {1, 2, 1}})
			require.NoError(t, err)
			require.Equal(t, []int{3, 2, 3, 1}, arr.Shape)
			require.Len(t, arr.Data, 18)

			k := 0
			for ti := 0; ti < 3; ti++ {
				for xi := 0; xi < 2; xi++ {
					for yi := 0; yi < 3; yi++ {
						want := float64(1000*ti + 100*(1+xi) + 10*(2*yi) + 1)
						assert.Equal(t, want, arr.Data[k], "t=%d x=%d y=%d", ti, xi, yi)
						k++
					}
				}
			}

			empty, err := f.Read("n", []*Slice{{0, 0, 1}, nil, nil, nil})
			require.NoError(t, err)
			assert.Equal(t, []int{0, 4, 5, 2}, empty.Shape)
			assert.Empty(t, empty.Data)
		})
	}
}

func TestReadErrors(t *testing.T) {
	path := writeDump(t, t.TempDir(), "BOUT.dmp.0.h5", sampleDump(), testdump.HDF5Options{})
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.ReadScalar("missing")
	assert.ErrorIs(t, err, ErrNotPresent)
	_, err = f.ReadScalar("n")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = f.ReadScalar("name")
	assert.ErrorIs(t, err, ErrWrongType)
	_, err = f.Dimensions("missing")
	assert.ErrorIs(t, err, ErrNotPresent)
	_, err = f.Attributes("missing")
	assert.ErrorIs(t, err, ErrNotPresent)

	_, err = f.Read("n", []*Slice{nil, nil})
	assert.Error(t, err)
	_, err = f.Read("n", []*Slice{nil, {0, 9, 1}, nil, nil})
	assert.Error(t, err)
}

func TestNetCDF4HidesDimensions(t *testing.T) {
	path := writeDump(t, t.TempDir(), "BOUT.dmp.nc", sampleDump(), testdump.HDF5Options{NetCDF4: true})
	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	for _, dim := range []string{"t", "x", "y", "z"} {
		assert.NotContains(t, f.Names(), dim)
	}
}

func TestDimensionsWithoutBoutType(t *testing.T) {
	d := &testdump.Dump{}
	d.Add(testdump.Var{Name: "grid", Dims: []string{"a", "b"}, Shape: []int{2, 2}, Data: []float64{1, 2, 3, 4}})
	path := writeDump(t, t.TempDir(), "grid.h5", d, testdump.HDF5Options{})

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()

	dims, err := f.Dimensions("grid")
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y"}, dims)
}

func TestOpenUnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "junk.nc")
	require.NoError(t, os.WriteFile(path, []byte("not a dump file at all"), 0o644))

	_, err := Open(path)
	assert.ErrorIs(t, err, ErrUnknownFormat)

	_, err = Open(filepath.Join(t.TempDir(), "absent.nc"))
	assert.Error(t, err)
}

func TestSliceLen(t *testing.T) {
	tests := []struct {
		s    Slice
		want int
	}{
		{Slice{0, 10, 1}, 10},
		{Slice{0, 10, 3}, 4},
		{Slice{2, 3, 1}, 1},
		{Slice{5, 5, 1}, 0},
		{Slice{6, 5, 1}, 0},
		{Slice{0, 5, 0}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.s.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.s.Len())
		})
	}
}
