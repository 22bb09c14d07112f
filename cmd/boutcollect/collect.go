package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-boutdata/collect"
)

type collectFlags struct {
	x, y, z, t string
	out        string
	digest     bool
}

func (a *app) collectCmd() *cobra.Command {
	var cf collectFlags
	cmd := &cobra.Command{
		Use:   "collect VARIABLE",
		Short: "Reassemble a variable from all dump files",
		Long: `Reassemble a variable from the per-process dump files of a run and
write it as text or msgpack. A range start:stop includes stop, while
start:stop:step excludes it like a slice; a single integer selects one
index and -1 the last.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := a.collectOptions(cf)
			if err != nil {
				return err
			}
			arr, err := collect.Collect(args[0], opts...)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if cf.out != "" {
				f, err := os.Create(cf.out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			if err := writeArray(w, arr, a.cfg.Format); err != nil {
				return err
			}
			if cf.digest {
				fmt.Fprintf(cmd.OutOrStdout(), "xxh64 %016x\n", digest(arr))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVar(&cf.x, "x", "", "x range")
	f.StringVar(&cf.y, "y", "", "y range")
	f.StringVar(&cf.z, "z", "", "z range")
	f.StringVar(&cf.t, "t", "", "t range")
	f.StringVarP(&cf.out, "out", "o", "", "write the array to this file instead of stdout")
	f.BoolVar(&cf.digest, "digest", false, "print an xxh64 digest of the values")
	f.BoolVar(&a.cfg.XGuards, "xguards", a.cfg.XGuards, "keep the x boundary guard cells")
	f.StringVar(&a.cfg.YGuards, "yguards", a.cfg.YGuards, "y guard cells (none|include|include_upper)")
	f.BoolVar(&a.cfg.Info, "info", a.cfg.Info, "log progress while reading")
	f.BoolVar(&a.cfg.Strict, "strict", a.cfg.Strict, "require an exact variable name")
	f.BoolVar(&a.cfg.TindAuto, "tind-auto", a.cfg.TindAuto, "truncate time to the shortest file")
	f.StringVar(&a.cfg.Format, "format", a.cfg.Format, "output format (text|msgpack)")
	return cmd
}

// collectOptions turns the settings into collect options, parsing the
// range flags.
func (a *app) collectOptions(cf collectFlags) ([]collect.Option, error) {
	yg, err := collect.ParseYGuards(a.cfg.YGuards)
	if err != nil {
		return nil, err
	}
	if a.cfg.Format != "text" && a.cfg.Format != "msgpack" {
		return nil, fmt.Errorf("--format: unknown format %q", a.cfg.Format)
	}

	opts := []collect.Option{
		collect.WithPath(a.cfg.Path),
		collect.WithPrefix(a.cfg.Prefix),
		collect.WithXGuards(a.cfg.XGuards),
		collect.WithYGuards(yg),
		collect.WithStrict(a.cfg.Strict),
		collect.WithAutoTimeTruncation(a.cfg.TindAuto),
		collect.WithInfo(a.cfg.Info),
		collect.WithLogger(a.log),
	}
	ranges := []struct {
		flag, value string
		with        func(collect.Range) collect.Option
	}{
		{"x", cf.x, collect.WithXRange},
		{"y", cf.y, collect.WithYRange},
		{"z", cf.z, collect.WithZRange},
		{"t", cf.t, collect.WithTRange},
	}
	for _, r := range ranges {
		rng, err := collect.ParseRange(r.value)
		if err != nil {
			return nil, fmt.Errorf("--%s: %w", r.flag, err)
		}
		opts = append(opts, r.with(rng))
	}
	return opts, nil
}

func writeArray(w io.Writer, arr *collect.Array, format string) error {
	if format == "msgpack" {
		return writeMsgpack(w, arr)
	}
	return writeText(w, arr)
}
