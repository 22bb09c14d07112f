package datafile

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/go-boutdata/internal/testdump"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
}

func TestFindFilesPerProcess(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "BOUT.dmp.0.nc", "BOUT.dmp.1.nc", "BOUT.dmp.2.nc", "BOUT.dmp.10.nc",
		"BOUT.dmp.3.nc", "BOUT.dmp.4.nc", "BOUT.dmp.5.nc", "BOUT.dmp.6.nc",
		"BOUT.dmp.7.nc", "BOUT.dmp.8.nc", "BOUT.dmp.9.nc", "other.txt")

	files, parallel, suffix, err := FindFiles(dir, "BOUT.dmp.")
	require.NoError(t, err)
	assert.False(t, parallel)
	assert.Equal(t, ".nc", suffix)
	require.Len(t, files, 11)
	for i, f := range files {
		assert.Equal(t, filepath.Join(dir, "BOUT.dmp."+strconv.Itoa(i)+".nc"), f)
	}
}

func TestFindFilesParallel(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "BOUT.dmp.h5")

	files, parallel, suffix, err := FindFiles(dir, "BOUT.dmp")
	require.NoError(t, err)
	assert.True(t, parallel)
	assert.Equal(t, ".h5", suffix)
	assert.Equal(t, []string{filepath.Join(dir, "BOUT.dmp.h5")}, files)
}

func TestFindFilesConflicts(t *testing.T) {
	tests := []struct {
		name  string
		files []string
	}{
		{"none", nil},
		{"mixed families", []string{"BOUT.dmp.0.nc", "BOUT.dmp.0.h5"}},
		{"mixed parallel families", []string{"BOUT.dmp.nc", "BOUT.dmp.hdf5"}},
		{"both layouts", []string{"BOUT.dmp.nc", "BOUT.dmp.0.nc"}},
		{"mixed suffixes", []string{"BOUT.dmp.0.nc", "BOUT.dmp.1.nc", "BOUT.dmp.0.ncdf"}},
		{"mixed parallel suffixes", []string{"BOUT.dmp.nc", "BOUT.dmp.ncdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			touch(t, dir, tt.files...)
			_, _, _, err := FindFiles(dir, "BOUT.dmp")
			assert.ErrorIs(t, err, ErrLayoutConflict)
		})
	}
}

func TestCreateCache(t *testing.T) {
	dir := t.TempDir()
	for i := 0; i < 3; i++ {
		d := &testdump.Dump{}
		d.Add(testdump.IntScalar("MYPE", i))
		writeDump(t, dir, "BOUT.dmp."+strconv.Itoa(i)+".nc", d, testdump.HDF5Options{})
	}

	c, err := CreateCache(dir, "BOUT.dmp")
	require.NoError(t, err)
	defer c.Close()

	assert.False(t, c.Parallel)
	assert.Equal(t, ".nc", c.Suffix)
	require.Len(t, c.Handles, 3)
	for i, name := range c.Files {
		f, ok := c.Lookup(name)
		require.True(t, ok)
		assert.Same(t, c.Handles[i], f)
		v, err := f.ReadScalar("MYPE")
		require.NoError(t, err)
		assert.Equal(t, float64(i), v)
	}
	_, ok := c.Lookup(filepath.Join(dir, "BOUT.dmp.9.nc"))
	assert.False(t, ok)
}

func TestNewCacheLookup(t *testing.T) {
	c := NewCache([]string{"a.nc", "b.nc"}, false, ".nc", []File{nil})
	_, ok := c.Lookup("a.nc")
	assert.True(t, ok)
	// b.nc has no open handle.
	_, ok = c.Lookup("b.nc")
	assert.False(t, ok)
	_, ok = c.Lookup("c.nc")
	assert.False(t, ok)
}

func TestCreateCacheNoFiles(t *testing.T) {
	_, err := CreateCache(t.TempDir(), "BOUT.dmp")
	assert.ErrorIs(t, err, ErrLayoutConflict)
}
