package collect

import (
	"fmt"
	"slices"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

type fakeVar struct {
	dims  []string
	shape []int
	data  []float64
	dtype string
	attrs map[string]any
}

// fakeFile is an in-memory dump file.
type fakeFile struct {
	path   string
	vars   map[string]*fakeVar
	reads  map[string]int
	closed bool
}

func newFakeFile(path string) *fakeFile {
	return &fakeFile{path: path, vars: map[string]*fakeVar{}, reads: map[string]int{}}
}

func (f *fakeFile) scalar(name string, v float64) *fakeFile {
	f.vars[name] = &fakeVar{dims: []string{}, shape: []int{}, data: []float64{v}, dtype: "float64", attrs: map[string]any{}}
	return f
}

func (f *fakeFile) field(name string, dims []string, shape []int, fn func(idx []int) float64) *fakeVar {
	v := &fakeVar{dims: dims, shape: shape, data: make([]float64, product(shape)), dtype: "float64", attrs: map[string]any{}}
	idx := make([]int, len(shape))
	for k := range v.data {
		v.data[k] = fn(idx)
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < shape[d] {
				break
			}
			idx[d] = 0
		}
	}
	f.vars[name] = v
	return v
}

func (f *fakeFile) Path() string { return f.path }

func (f *fakeFile) Names() []string {
	var names []string
	for n := range f.vars {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (f *fakeFile) get(name string) (*fakeVar, error) {
	if f.closed {
		return nil, datafile.ErrClosed
	}
	v, ok := f.vars[name]
	if !ok {
		return nil, fmt.Errorf("%s: %q: %w", f.path, name, datafile.ErrNotPresent)
	}
	return v, nil
}

func (f *fakeFile) Dimensions(name string) ([]string, error) {
	v, err := f.get(name)
	if err != nil {
		return nil, err
	}
	return v.dims, nil
}

func (f *fakeFile) Attributes(name string) (map[string]any, error) {
	v, err := f.get(name)
	if err != nil {
		return nil, err
	}
	return v.attrs, nil
}

func (f *fakeFile) ReadScalar(name string) (float64, error) {
	v, err := f.get(name)
	if err != nil {
		return 0, err
	}
	if len(v.data) != 1 {
		return 0, datafile.ErrWrongType
	}
	return v.data[0], nil
}

func (f *fakeFile) Shape(name string) ([]int, error) {
	v, err := f.get(name)
	if err != nil {
		return nil, err
	}
	return v.shape, nil
}

func (f *fakeFile) Read(name string, ranges []*datafile.Slice) (*datafile.Array, error) {
	v, err := f.get(name)
	if err != nil {
		return nil, err
	}
	f.reads[name]++
	if ranges == nil {
		return &datafile.Array{DType: v.dtype, Shape: v.shape, Data: append([]float64(nil), v.data...)}, nil
	}
	if len(ranges) != len(v.shape) {
		return nil, fmt.Errorf("%d ranges for %v", len(ranges), v.dims)
	}
	sel := make([]datafile.Slice, len(ranges))
	out := make([]int, len(ranges))
	for d, r := range ranges {
		sel[d] = datafile.Slice{Start: 0, Stop: v.shape[d], Step: 1}
		if r != nil {
			sel[d] = *r
		}
		if sel[d].Start < 0 || sel[d].Stop > v.shape[d] || sel[d].Step <= 0 {
			return nil, fmt.Errorf("range %s outside %v", sel[d], v.shape)
		}
		out[d] = sel[d].Len()
	}
	data := make([]float64, product(out))
	ss := strides(v.shape)
	idx := make([]int, len(out))
	for k := range data {
		o := 0
		for d, i := range idx {
			o += (sel[d].Start + i*sel[d].Step) * ss[d]
		}
		data[k] = v.data[o]
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < out[d] {
				break
			}
			idx[d] = 0
		}
	}
	return &datafile.Array{DType: v.dtype, Shape: out, Data: data}, nil
}

func (f *fakeFile) Close() error {
	f.closed = true
	return nil
}

// value is the global field used by every synthetic run; x and y are
// global indices counting every guard cell.
func value(t, x, y, z int) float64 {
	return float64(1_000_000*t + 10_000*z + 100*x + y)
}

// run describes a synthetic decomposed simulation.
type run struct {
	nxpe, nype   int
	mxsub, mysub int
	mxg, myg     int
	mz, nt       int
	// upper is the process row below the upper target, or -1.
	upper int
}

func defaultRun() run {
	return run{nxpe: 2, nype: 2, mxsub: 4, mysub: 4, mxg: 2, myg: 2, mz: 3, nt: 2, upper: -1}
}

// globalY maps a local y index of a process row to the global index with
// every guard cell, the upper target's included.
func (r run) globalY(peY, ly int) int {
	y := peY*r.mysub + ly
	if r.upper >= 0 && peY > r.upper {
		y += 2 * r.myg
	}
	return y
}

// files builds one file per process holding the header scalars, t_array
// and fields of every layout derived from value.
func (r run) files() []*fakeFile {
	var files []*fakeFile
	lx, ly := r.mxsub+2*r.mxg, r.mysub+2*r.myg
	for i := 0; i < r.nxpe*r.nype; i++ {
		peX, peY := i%r.nxpe, i/r.nxpe
		f := newFakeFile(fmt.Sprintf("BOUT.dmp.%d.nc", i))
		f.scalar("MXSUB", float64(r.mxsub)).
			scalar("MYSUB", float64(r.mysub)).
			scalar("MXG", float64(r.mxg)).
			scalar("MYG", float64(r.myg)).
			scalar("MZ", float64(r.mz)).
			scalar("NXPE", float64(r.nxpe)).
			scalar("NYPE", float64(r.nype)).
			scalar("BOUT_VERSION", 4.0).
			scalar("dt", 0.5)
		f.field("t_array", []string{"t"}, []int{r.nt}, func(idx []int) float64 { return float64(idx[0]) })
		gx := func(l int) int { return peX*r.mxsub + l }
		f.field("n", []string{"t", "x", "y", "z"}, []int{r.nt, lx, ly, r.mz}, func(idx []int) float64 {
			return value(idx[0], gx(idx[1]), r.globalY(peY, idx[2]), idx[3])
		})
		f.field("Pe", []string{"x", "y", "z"}, []int{lx, ly, r.mz}, func(idx []int) float64 {
			return value(0, gx(idx[0]), r.globalY(peY, idx[1]), idx[2])
		})
		f.field("g11", []string{"x", "y"}, []int{lx, ly}, func(idx []int) float64 {
			return value(0, gx(idx[0]), r.globalY(peY, idx[1]), 0)
		})
		f.field("flux", []string{"t", "x", "y"}, []int{r.nt, lx, ly}, func(idx []int) float64 {
			return value(idx[0], gx(idx[1]), r.globalY(peY, idx[2]), 0)
		})
		f.field("wall_flux", []string{"t"}, []int{r.nt}, func(idx []int) float64 { return float64(10 * idx[0]) })
		files = append(files, f)
	}
	return files
}

func cacheOf(files []*fakeFile, parallel bool) *datafile.Cache {
	names := make([]string, len(files))
	handles := make([]datafile.File, len(files))
	for i, f := range files {
		names[i], handles[i] = f.path, f
	}
	return datafile.NewCache(names, parallel, ".nc", handles)
}
