// Package collect reassembles variables from the dump files of a BOUT++
// run. Each process of a run writes its own sub-domain, with guard cells,
// to its own file; Collect stitches the requested part of a variable back
// into one array over the global grid.
//
// A run that was merged into a single file is read directly.
package collect

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

// Version is the version of this module.
const Version = "0.4.0"

// Collect reads the variable name from the dump files of a run.
func Collect(name string, opts ...Option) (*Array, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	src, err := o.source()
	if err != nil {
		return nil, err
	}
	c := &collector{o: o, src: src, log: o.logger.With().Str("variable", name).Logger()}
	if src.parallel {
		c.progress().Str("file", src.files[0]).Msg("single (parallel) data file")
		return c.merged(name)
	}
	return c.decomposed(name)
}

// Attributes returns the attributes of a variable in the first dump file.
func Attributes(name, path, prefix string) (map[string]any, error) {
	f, err := firstFile(path, prefix)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Attributes(name)
}

// Dimensions returns the dimension names of a variable in the first dump
// file.
func Dimensions(name, path, prefix string) ([]string, error) {
	f, err := firstFile(path, prefix)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return f.Dimensions(name)
}

func firstFile(path, prefix string) (datafile.File, error) {
	files, _, _, err := datafile.FindFiles(path, prefix)
	if err != nil {
		return nil, err
	}
	return datafile.Open(files[0])
}

// source is where a collection reads from: freshly opened files or the
// handles of a cache.
type source struct {
	files    []string
	parallel bool
	cache    *datafile.Cache
}

func (o *options) source() (*source, error) {
	if o.cache != nil {
		return &source{files: o.cache.Files, parallel: o.cache.Parallel, cache: o.cache}, nil
	}
	files, parallel, _, err := datafile.FindFiles(o.path, o.prefix)
	if err != nil {
		return nil, err
	}
	return &source{files: files, parallel: parallel}, nil
}

// open returns file i and the function that releases it. Cached files are
// left open.
func (s *source) open(i int) (datafile.File, func(), error) {
	if i >= len(s.files) {
		return nil, nil, fmt.Errorf("%w: no dump file for process %d of %d files", ErrLayoutConflict, i, len(s.files))
	}
	if s.cache != nil {
		if f, ok := s.cache.Lookup(s.files[i]); ok {
			return f, func() {}, nil
		}
	}
	f, err := datafile.Open(s.files[i])
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}

type collector struct {
	o   *options
	src *source
	log zerolog.Logger
}

// progress returns an info event, or nil when progress is turned off.
func (c *collector) progress() *zerolog.Event {
	if !c.o.info {
		return nil
	}
	return c.log.Info()
}

func (c *collector) resolve(f datafile.File, name string) (string, error) {
	names := f.Names()
	if slices.Contains(names, name) {
		return name, nil
	}
	if c.o.strict {
		return "", fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	resolved, err := ResolveName(name, names)
	if err != nil {
		return "", err
	}
	c.log.Warn().Str("substitute", resolved).Msg("variable not found, using substitute")
	return resolved, nil
}

func (c *collector) variable(f datafile.File, name string) (string, Dims, map[string]any, error) {
	name, err := c.resolve(f, name)
	if err != nil {
		return "", DimsOther, nil, err
	}
	names, err := f.Dimensions(name)
	if err != nil {
		return "", DimsOther, nil, err
	}
	dims, err := ParseDims(names)
	if err != nil {
		return "", DimsOther, nil, fmt.Errorf("%s: %w", name, err)
	}
	attrs, err := f.Attributes(name)
	if err != nil {
		return "", DimsOther, nil, err
	}
	return name, dims, attrs, nil
}

func requireScalar(f datafile.File, name string) (int, error) {
	v, err := f.ReadScalar(name)
	if errors.Is(err, datafile.ErrNotPresent) {
		return 0, fmt.Errorf("%w: %s in %s", ErrMissingScalar, name, f.Path())
	}
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (c *collector) optionalScalar(f datafile.File, name string, def int) (int, error) {
	v, err := f.ReadScalar(name)
	if errors.Is(err, datafile.ErrNotPresent) {
		c.log.Warn().Str("scalar", name).Int("default", def).Msg("scalar not found, using default")
		return def, nil
	}
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// twoTargets reports whether the grid has a second (upper) target, which
// brings a second set of y boundary cells.
func twoTargets(f datafile.File) (bool, error) {
	a, err := requireScalar(f, "jyseps2_1")
	if err != nil {
		return false, err
	}
	b, err := requireScalar(f, "jyseps1_2")
	if err != nil {
		return false, err
	}
	return a != b, nil
}

// timeLength returns the length and type of the time array. A file
// without one, or with a scalar one, has a single time point.
func timeLength(f datafile.File) (n int, dtype string, present bool, err error) {
	arr, err := f.Read("t_array", nil)
	if errors.Is(err, datafile.ErrNotPresent) {
		return 1, "float64", false, nil
	}
	if err != nil {
		return 0, "", false, err
	}
	if len(arr.Shape) == 0 {
		return 1, arr.DType, true, nil
	}
	return arr.Shape[0], arr.DType, true, nil
}

func (c *collector) normalize(nx, ny, nz, nt int) (x, y, z, t datafile.Slice, err error) {
	if x, err = Normalize(c.o.x, nx, "xind"); err != nil {
		return
	}
	if y, err = Normalize(c.o.y, ny, "yind"); err != nil {
		return
	}
	if z, err = Normalize(c.o.z, nz, "zind"); err != nil {
		return
	}
	t, err = Normalize(c.o.t, nt, "tind")
	return
}

// axisRanges orders the per-axis ranges by the variable's dimensions.
func axisRanges(dims Dims, x, y, z, t datafile.Slice) []*datafile.Slice {
	if dims == DimsOther || dims == DimsNone {
		return nil
	}
	var ranges []*datafile.Slice
	for _, d := range dims.Names() {
		switch d {
		case "t":
			ranges = append(ranges, &t)
		case "x":
			ranges = append(ranges, &x)
		case "y":
			ranges = append(ranges, &y)
		case "z":
			ranges = append(ranges, &z)
		}
	}
	return ranges
}

func newArray(name string, dims Dims, arr *datafile.Array, attrs map[string]any) *Array {
	return &Array{
		Name:       name,
		Dims:       dims,
		Shape:      arr.Shape,
		Data:       arr.Data,
		Strings:    arr.Strings,
		DType:      arr.DType,
		Attributes: attrs,
	}
}

// merged reads from a run merged into one file, which holds the global
// grid with every guard cell.
func (c *collector) merged(name string) (*Array, error) {
	f, release, err := c.src.open(0)
	if err != nil {
		return nil, err
	}
	defer release()

	name, dims, attrs, err := c.variable(f, name)
	if err != nil {
		return nil, err
	}
	mxg, err := c.optionalScalar(f, "MXG", 0)
	if err != nil {
		return nil, err
	}
	myg, err := c.optionalScalar(f, "MYG", 0)
	if err != nil {
		return nil, err
	}

	nx, err := requireScalar(f, "nx")
	if err != nil {
		return nil, err
	}
	if !c.o.xguards {
		nx -= 2 * mxg
	}
	ny, err := requireScalar(f, "ny")
	if err != nil {
		return nil, err
	}
	if c.o.yguards != YGuardsNone {
		ny += 2 * myg
		if c.o.yguards == YGuardsIncludeUpper {
			upper, err := twoTargets(f)
			if err != nil {
				return nil, err
			}
			if upper {
				ny += 2 * myg
			}
		}
	}
	nz, err := requireScalar(f, "MZ")
	if err != nil {
		return nil, err
	}
	nt, _, _, err := timeLength(f)
	if err != nil {
		return nil, err
	}

	x, y, z, t, err := c.normalize(nx, ny, nz, nt)
	if err != nil {
		return nil, err
	}
	if !c.o.xguards {
		x.Start, x.Stop = x.Start+mxg, x.Stop+mxg
	}
	if c.o.yguards == YGuardsNone {
		y.Start, y.Stop = y.Start+myg, y.Stop+myg
	}

	arr, err := f.Read(name, axisRanges(dims, x, y, z, t))
	if err != nil {
		return nil, err
	}
	return newArray(name, dims, arr, attrs), nil
}

// decomposed assembles a variable from one file per process.
func (c *collector) decomposed(name string) (*Array, error) {
	f, release, err := c.src.open(0)
	if err != nil {
		return nil, err
	}
	defer release()

	name, dims, attrs, err := c.variable(f, name)
	if err != nil {
		return nil, err
	}
	// Values without dimensions are the same on every process.
	if dims == DimsNone || dims == DimsOther {
		arr, err := f.Read(name, nil)
		if err != nil {
			return nil, err
		}
		return newArray(name, dims, arr, attrs), nil
	}

	var header [5]int
	for i, s := range []string{"MXSUB", "MYSUB", "MZ", "MXG", "MYG"} {
		if header[i], err = requireScalar(f, s); err != nil {
			return nil, err
		}
	}
	tp := &topology{
		mxsub:       header[0],
		mysub:       header[1],
		mxg:         header[3],
		myg:         header[4],
		upperTarget: -1,
		xguards:     c.o.xguards,
		yguards:     c.o.yguards != YGuardsNone,
	}
	mz := header[2]

	nt, tdtype, present, err := timeLength(f)
	if err != nil {
		return nil, err
	}
	if present && c.o.tindAuto {
		if nt, err = c.shortestTime(nt); err != nil {
			return nil, err
		}
	}
	c.progress().Int("mxsub", tp.mxsub).Int("mysub", tp.mysub).Int("mz", mz).Msg("topology")

	version, err := f.ReadScalar("BOUT_VERSION")
	if errors.Is(err, datafile.ErrNotPresent) {
		c.log.Warn().Str("scalar", "BOUT_VERSION").Msg("BOUT++ version: pre-0.2")
		version, err = 0, nil
	}
	if err != nil {
		return nil, err
	}
	// Before 3.5 the z axis stored an extra, periodic point.
	nz := mz
	if version < 3.5 {
		nz = mz - 1
	}

	if tp.nxpe, err = c.optionalScalar(f, "NXPE", 1); err != nil {
		return nil, err
	}
	if tp.nype, err = c.optionalScalar(f, "NYPE", len(c.src.files)); err != nil {
		return nil, err
	}
	npe := tp.nxpe * tp.nype
	c.progress().Int("nxpe", tp.nxpe).Int("nype", tp.nype).Int("npe", npe).Msg("process grid")
	switch {
	case npe < len(c.src.files):
		c.log.Warn().Int("npe", npe).Int("files", len(c.src.files)).Msg("more files than expected")
	case npe > len(c.src.files):
		c.log.Warn().Int("npe", npe).Int("files", len(c.src.files)).Msg("some files missing")
	}

	nx := tp.nxpe * tp.mxsub
	if tp.xguards {
		nx += 2 * tp.mxg
	}
	ny := tp.mysub * tp.nype
	if tp.yguards {
		ny += 2 * tp.myg
		if c.o.yguards == YGuardsIncludeUpper {
			upper, err := twoTargets(f)
			if err != nil {
				return nil, err
			}
			if upper {
				ny += 2 * tp.myg
				nyInner, err := requireScalar(f, "ny_inner")
				if err != nil {
					return nil, err
				}
				if nyInner%tp.mysub != 0 {
					return nil, fmt.Errorf("%w: keeping upper boundary cells but mysub=%d does not divide ny_inner=%d",
						ErrTopology, tp.mysub, nyInner)
				}
				tp.upperTarget = nyInner/tp.mysub - 1
			}
		}
	}

	x, y, z, t, err := c.normalize(nx, ny, nz, nt)
	if err != nil {
		return nil, err
	}

	if !dims.IsSpatial() {
		arr, err := f.Read(name, []*datafile.Slice{&t})
		if err != nil {
			return nil, err
		}
		return newArray(name, dims, arr, attrs), nil
	}

	sizes := map[string]int{"t": t.Len(), "x": x.Stop - x.Start, "y": y.Stop - y.Start, "z": z.Len()}
	var shape, steps []int
	for _, d := range dims.Names() {
		shape = append(shape, sizes[d])
		switch d {
		case "x":
			steps = append(steps, x.Step)
		case "y":
			steps = append(steps, y.Step)
		default:
			steps = append(steps, 1)
		}
	}
	out := &Array{Name: name, Dims: dims, Shape: shape, Data: make([]float64, product(shape)), DType: tdtype, Attributes: attrs}

	// Overlaps are computed on contiguous ranges; x and y steps are
	// applied once everything is in place.
	xr, yr := x, y
	xr.Step, yr.Step = 1, 1

	yindex, perpRow := 0, -1
	for i := 0; i < npe; i++ {
		fi, rel := f, func() {}
		if i > 0 {
			if fi, rel, err = c.src.open(i); err != nil {
				return nil, err
			}
		}
		sh, err := c.readShard(fi, name, dims, tp, i, xr, yr, z, t, out)
		rel()
		if err != nil {
			return nil, err
		}
		if !sh.perp {
			continue
		}
		if perpRow >= 0 && sh.yindex != yindex {
			return nil, fmt.Errorf("%w: found FieldPerp %s at different global y-indices, %d and %d",
				ErrInconsistentFieldPerp, name, sh.yindex, yindex)
		}
		yindex = sh.yindex
		if peY := i / tp.nxpe; perpRow >= 0 && perpRow != peY {
			return nil, fmt.Errorf("%w: found FieldPerp %s on different y-processor indices, %d and %d",
				ErrInconsistentFieldPerp, name, perpRow, peY)
		}
		perpRow = i / tp.nxpe
		out.Attributes = sh.attrs
	}

	out.Data, out.Shape = decimate(out.Data, out.Shape, steps)
	if len(out.Shape) > 1 {
		castTo(out.Data, tdtype)
	}
	return out, nil
}

// shortestTime is the length of the shortest time array among the files.
func (c *collector) shortestTime(nt int) (int, error) {
	for i := range c.src.files {
		f, release, err := c.src.open(i)
		if err != nil {
			return 0, err
		}
		n, _, present, err := timeLength(f)
		release()
		if err != nil {
			return 0, err
		}
		if present {
			nt = min(nt, n)
		}
	}
	return nt, nil
}

// shardResult describes the FieldPerp plane found in one file.
type shardResult struct {
	perp   bool
	yindex int
	attrs  map[string]any
}

// readShard copies the part of the requested region held by process i
// into out.
func (c *collector) readShard(f datafile.File, name string, dims Dims, tp *topology, i int,
	x, y, z, t datafile.Slice, out *Array) (shardResult, error) {
	var res shardResult
	s, ok := tp.extract(i, x, y)
	if !ok {
		return res, nil
	}
	if dims.has("x") && s.x.Len() == 0 || dims.has("y") && s.y.Len() == 0 {
		return res, nil
	}

	var (
		local []*datafile.Slice
		off   []int
	)
	for _, d := range dims.Names() {
		switch d {
		case "t":
			local, off = append(local, &t), append(off, 0)
		case "x":
			local, off = append(local, &s.x), append(off, s.gx)
		case "y":
			local, off = append(local, &s.y), append(off, s.gy)
		case "z":
			local, off = append(local, &z), append(off, 0)
		}
	}
	c.progress().
		Int("proc", i).
		Str("x_local", span(s.x.Start, s.x.Stop)).
		Str("y_local", span(s.y.Start, s.y.Stop)).
		Str("x_global", span(s.gx, s.gx+s.x.Stop-s.x.Start)).
		Str("y_global", span(s.gy, s.gy+s.y.Stop-s.y.Start)).
		Msg("reading")

	if dims.IsFieldPerp() {
		attrs, err := f.Attributes(name)
		if err != nil {
			return res, err
		}
		v, ok := attrs["yindex_global"]
		if !ok {
			return res, fmt.Errorf("%w: %s has no yindex_global in %s", ErrInconsistentFieldPerp, name, f.Path())
		}
		yi, ok := toInt(v)
		if !ok {
			return res, fmt.Errorf("%w: %s has yindex_global %v in %s", ErrInconsistentFieldPerp, name, v, f.Path())
		}
		if yi < 0 {
			return res, nil
		}
		res = shardResult{perp: true, yindex: yi, attrs: attrs}
	}

	arr, err := f.Read(name, local)
	if err != nil {
		return res, err
	}
	if err := place(out.Data, out.Shape, arr.Data, arr.Shape, off); err != nil {
		return res, fmt.Errorf("%s: process %d: %w", name, i, err)
	}
	return res, nil
}

func span(start, stop int) string { return fmt.Sprintf("%d-%d", start, stop-1) }

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	}
	return 0, false
}

// castTo rounds data to the precision of dtype.
func castTo(data []float64, dtype string) {
	switch {
	case dtype == "float32":
		for i, v := range data {
			data[i] = float64(float32(v))
		}
	case strings.HasPrefix(dtype, "int"), strings.HasPrefix(dtype, "uint"):
		for i, v := range data {
			data[i] = math.Trunc(v)
		}
	}
}
