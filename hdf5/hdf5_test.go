package hdf5

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-boutdata/internal/filter"
	"github.com/robert-malhotra/go-boutdata/internal/testdump"
)

func sample() *testdump.Dump {
	d := &testdump.Dump{Attrs: []testdump.Attr{{Name: "title", Value: "run 7"}}}
	d.Add(
		testdump.IntScalar("MZ", 16),
		testdump.Scalar("dt", 0.25),
		testdump.Text("grid", "circle.grd.nc"),
		testdump.Field("n", []string{"x", "y", "z"}, []int{4, 6, 2}, func(idx []int) float64 {
			return float64(100*idx[0] + 10*idx[1] + idx[2])
		}),
	)
	d.Vars[3].Attrs = append(d.Vars[3].Attrs,
		testdump.Attr{Name: "cell_location", Value: "CELL_CENTRE"},
		testdump.Attr{Name: "scale", Value: 1.5},
		testdump.Attr{Name: "yindex_global", Value: 3},
	)
	return d
}

func open(t *testing.T, d *testdump.Dump, o testdump.HDF5Options) *File {
	t.Helper()
	img, err := d.HDF5(o)
	require.NoError(t, err)
	f, err := OpenReaderAt(bytes.NewReader(img))
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

var layouts = []struct {
	name string
	opts testdump.HDF5Options
}{
	{"classic contiguous", testdump.HDF5Options{}},
	{"classic compact", testdump.HDF5Options{Storage: testdump.Compact}},
	{"modern contiguous", testdump.HDF5Options{Modern: true}},
	{"modern chunked", testdump.HDF5Options{Modern: true, Storage: testdump.Chunked}},
	{"chunked deflate", testdump.HDF5Options{Storage: testdump.Chunked, Filters: []uint16{filter.IDShuffle, filter.IDDeflate, filter.IDFletcher32}}},
	{"chunked lz4", testdump.HDF5Options{Storage: testdump.Chunked, Chunk: 2, Filters: []uint16{filter.IDLZ4}}},
	{"chunked zstd", testdump.HDF5Options{Storage: testdump.Chunked, Filters: []uint16{filter.IDZstd}}},
	{"user block", testdump.HDF5Options{UserBlock: 512}},
	{"netcdf4", testdump.HDF5Options{Modern: true, NetCDF4: true}},
}

func TestOpen(t *testing.T) {
	for _, tt := range layouts {
		t.Run(tt.name, func(t *testing.T) {
			f := open(t, sample(), tt.opts)

			want := 0
			if tt.opts.Modern {
				want = 2
			}
			assert.Equal(t, want, f.Version())
			assert.Equal(t, "/", f.Root().Name())

			members, err := f.Root().Members()
			require.NoError(t, err)
			assert.Subset(t, members, []string{"MZ", "dt", "grid", "n"})

			n, err := f.OpenDataset("/n")
			require.NoError(t, err)
			assert.Equal(t, "n", n.Name())
			assert.Equal(t, []uint64{4, 6, 2}, n.Shape())
			assert.Equal(t, 3, n.Rank())
			assert.Equal(t, uint64(48), n.NumElements())
			assert.Equal(t, "float64", n.DType())

			all, err := n.ReadFloat64()
			require.NoError(t, err)
			require.Len(t, all, 48)
			assert.Equal(t, 351.0, all[47])

			slab, err := n.ReadSlab([]uint64{1, 0, 1}, []uint64{2, 3, 1}, []uint64{2, 2, 1})
			require.NoError(t, err)
			assert.Equal(t, []float64{101, 121, 141, 301, 321, 341}, slab)
		})
	}
}

func TestScalarsAndText(t *testing.T) {
	f := open(t, sample(), testdump.HDF5Options{})

	mz, err := f.OpenDataset("MZ")
	require.NoError(t, err)
	assert.Nil(t, mz.Shape())
	assert.Equal(t, "int32", mz.DType())
	ints, err := mz.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{16}, ints)

	grid, err := f.OpenDataset("grid")
	require.NoError(t, err)
	assert.True(t, grid.IsString())
	assert.Equal(t, "string", grid.DType())
	s, err := grid.ReadStrings()
	require.NoError(t, err)
	assert.Equal(t, []string{"circle.grd.nc"}, s)
}

func TestAttributes(t *testing.T) {
	for _, tt := range []struct {
		name string
		opts testdump.HDF5Options
	}{
		{"classic", testdump.HDF5Options{}},
		{"modern", testdump.HDF5Options{Modern: true}},
	} {
		t.Run(tt.name, func(t *testing.T) {
			f := open(t, sample(), tt.opts)
			n, err := f.OpenDataset("n")
			require.NoError(t, err)

			attrs, err := n.Attrs()
			require.NoError(t, err)
			names := make([]string, len(attrs))
			for i, a := range attrs {
				names[i] = a.Name()
			}
			assert.ElementsMatch(t, []string{"bout_type", "cell_location", "scale", "yindex_global"}, names)

			for name, want := range map[string]any{
				"bout_type":     "Field3D",
				"cell_location": "CELL_CENTRE",
				"scale":         1.5,
				"yindex_global": int64(3),
			} {
				a, err := n.Attr(name)
				require.NoError(t, err, name)
				assert.True(t, a.IsScalar(), name)
				v, err := a.Value()
				require.NoError(t, err, name)
				assert.Equal(t, want, v, name)
			}

			a, err := n.Attr("scale")
			require.NoError(t, err)
			assert.Equal(t, "float64", a.DType())

			_, err = n.Attr("units")
			assert.ErrorIs(t, err, ErrNotFound)

			root, err := f.Root().Attr("title")
			require.NoError(t, err)
			v, err := root.Value()
			require.NoError(t, err)
			assert.Equal(t, "run 7", v)
		})
	}
}

func TestDimensionScales(t *testing.T) {
	f := open(t, sample(), testdump.HDF5Options{Modern: true, NetCDF4: true})

	n, err := f.OpenDataset("n")
	require.NoError(t, err)
	dims, err := n.DimensionNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "y", "z"}, dims)
	assert.False(t, n.IsDimensionScale())

	x, err := f.OpenDataset("x")
	require.NoError(t, err)
	assert.True(t, x.IsDimensionScale())
	dims, err = x.DimensionNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, dims)

	// NetCDF-4 stores attributes as one element arrays.
	a, err := n.Attr("scale")
	require.NoError(t, err)
	assert.False(t, a.IsScalar())
	assert.Equal(t, []uint64{1}, a.Shape())
	v, err := a.Value()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5}, v)

	plain := open(t, sample(), testdump.HDF5Options{})
	n, err = plain.OpenDataset("n")
	require.NoError(t, err)
	dims, err = n.DimensionNames()
	require.NoError(t, err)
	assert.Nil(t, dims)
}

func TestLookupErrors(t *testing.T) {
	f := open(t, sample(), testdump.HDF5Options{})

	_, err := f.OpenDataset("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.OpenGroup("n")
	assert.ErrorIs(t, err, ErrNotGroup)

	_, err = f.OpenDataset("n/deeper")
	assert.Error(t, err)

	n, err := f.OpenDataset("n")
	require.NoError(t, err)
	_, err = n.ReadSlab([]uint64{3, 0, 0}, []uint64{2, 1, 1}, nil)
	assert.Error(t, err)

	require.NoError(t, f.Close())
	require.NoError(t, f.Close())
	_, err = f.OpenDataset("n")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = n.ReadFloat64()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "BOUT.dmp.0.h5")
	require.NoError(t, sample().WriteFile(path, testdump.HDF5Options{Modern: true}))

	f, err := Open(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, path, f.Path())

	_, err = Open(filepath.Join(t.TempDir(), "absent.h5"))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	junk := filepath.Join(t.TempDir(), "junk.h5")
	require.NoError(t, os.WriteFile(junk, bytes.Repeat([]byte("BOUT"), 600), 0o644))
	_, err = Open(junk)
	assert.ErrorIs(t, err, ErrNotHDF5)
}

func TestWalk(t *testing.T) {
	f := open(t, sample(), testdump.HDF5Options{Modern: true, NetCDF4: true})

	var paths []string
	err := Walk(f.Root(), func(p string, obj any, err error) error {
		require.NoError(t, err)
		switch obj.(type) {
		case *Group:
			paths = append(paths, "group "+p)
		case *Dataset:
			paths = append(paths, p)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"group /", "/MZ", "/dt", "/grid", "/n", "/x", "/y", "/z"}, paths)

	visited := 0
	err = Walk(f.Root(), func(string, any, error) error {
		visited++
		return ErrSkipGroup
	})
	require.NoError(t, err)
	assert.Equal(t, 1, visited)

	stop := errors.New("stop")
	err = Walk(f.Root(), func(p string, _ any, _ error) error {
		if p == "/grid" {
			return stop
		}
		return nil
	})
	assert.ErrorIs(t, err, stop)
}
