package collect

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

// YGuards chooses which y boundary cells to keep.
type YGuards int

const (
	// YGuardsNone drops the y guard cells.
	YGuardsNone YGuards = iota
	// YGuardsInclude keeps the guard cells at both ends of the y axis.
	YGuardsInclude
	// YGuardsIncludeUpper also keeps the boundary cells of a second
	// (upper) target in double-null topologies.
	YGuardsIncludeUpper
)

func (g YGuards) String() string {
	switch g {
	case YGuardsNone:
		return "none"
	case YGuardsInclude:
		return "include"
	case YGuardsIncludeUpper:
		return "include_upper"
	}
	return fmt.Sprintf("YGuards(%d)", int(g))
}

// ParseYGuards reads "none", "include" or "include_upper". "false" and
// "true" are accepted for the first two.
func ParseYGuards(s string) (YGuards, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "false", "":
		return YGuardsNone, nil
	case "include", "true":
		return YGuardsInclude, nil
	case "include_upper":
		return YGuardsIncludeUpper, nil
	}
	return YGuardsNone, fmt.Errorf("unknown y guard mode %q", s)
}

// Option configures a collection.
type Option func(*options)

type options struct {
	path     string
	prefix   string
	x, y     Range
	z, t     Range
	xguards  bool
	yguards  YGuards
	strict   bool
	tindAuto bool
	info     bool
	cache    *datafile.Cache
	logger   zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		path:    ".",
		prefix:  "BOUT.dmp",
		xguards: true,
		info:    true,
		logger:  zerolog.Nop(),
	}
}

// WithPath sets the directory holding the dump files. Default ".".
func WithPath(path string) Option {
	return func(o *options) { o.path = path }
}

// WithPrefix sets the dump file prefix. Default "BOUT.dmp".
func WithPrefix(prefix string) Option {
	return func(o *options) { o.prefix = prefix }
}

// WithXRange selects the x indices.
func WithXRange(r Range) Option {
	return func(o *options) { o.x = r }
}

// WithYRange selects the y indices.
func WithYRange(r Range) Option {
	return func(o *options) { o.y = r }
}

// WithZRange selects the z indices.
func WithZRange(r Range) Option {
	return func(o *options) { o.z = r }
}

// WithTRange selects the time indices.
func WithTRange(r Range) Option {
	return func(o *options) { o.t = r }
}

// WithXGuards keeps or drops the x boundary cells. Default true.
func WithXGuards(keep bool) Option {
	return func(o *options) { o.xguards = keep }
}

// WithYGuards chooses the y boundary cells to keep. Default YGuardsNone.
func WithYGuards(g YGuards) Option {
	return func(o *options) { o.yguards = g }
}

// WithStrict disables name resolution: the variable name must match
// exactly.
func WithStrict(strict bool) Option {
	return func(o *options) { o.strict = strict }
}

// WithAutoTimeTruncation limits the time axis to the shortest time array
// among the files, for runs that stopped while writing.
func WithAutoTimeTruncation(auto bool) Option {
	return func(o *options) { o.tindAuto = auto }
}

// WithInfo turns the progress events on or off. Default true.
func WithInfo(info bool) Option {
	return func(o *options) { o.info = info }
}

// WithCache reads from already open files instead of discovering and
// opening them. The cache stays open.
func WithCache(c *datafile.Cache) Option {
	return func(o *options) { o.cache = c }
}

// WithLogger sets the logger for warnings and progress events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}
