package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/robert-malhotra/go-boutdata/datafile"
)

// headerScalars are the per-file values that must agree across a run.
var headerScalars = []string{"MXSUB", "MYSUB", "MXG", "MYG", "MZ", "NXPE", "NYPE", "BOUT_VERSION"}

// header is what scan reads from one file. A missing value is "-".
type header struct {
	file   string
	values []string
	nt     string
}

func (a *app) scanCmd() *cobra.Command {
	var jobs int
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Summarize the decomposition scalars of every dump file",
		Long: `Read the decomposition scalars and time length of every dump file of a
run and print them as a table. Values that differ from the first file are
highlighted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			files, _, _, err := datafile.FindFiles(a.cfg.Path, a.cfg.Prefix)
			if err != nil {
				return err
			}
			headers, err := scanHeaders(cmd.Context(), files, jobs)
			if err != nil {
				return err
			}
			t := renderHeaders(headers)
			if err := t.render(cmd.OutOrStdout()); err != nil {
				return err
			}
			if t.count > 0 {
				a.log.Warn().Int("cells", t.count).Msg("files disagree with the first file")
			}
			return summarize(cmd.OutOrStdout(), headers)
		},
	}
	cmd.Flags().IntVarP(&jobs, "jobs", "j", runtime.NumCPU(), "files read at once")
	return cmd
}

func scanHeaders(ctx context.Context, files []string, jobs int) ([]header, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	headers := make([]header, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(jobs, 1))
	for i, path := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			h, err := readHeader(path)
			if err != nil {
				return err
			}
			headers[i] = h
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return headers, nil
}

func readHeader(path string) (header, error) {
	f, err := datafile.Open(path)
	if err != nil {
		return header{}, err
	}
	defer f.Close()

	h := header{file: filepath.Base(path), values: make([]string, len(headerScalars)), nt: "-"}
	for i, name := range headerScalars {
		v, err := f.ReadScalar(name)
		switch {
		case errors.Is(err, datafile.ErrNotPresent):
			h.values[i] = "-"
		case err != nil:
			return header{}, fmt.Errorf("%s: %s: %w", path, name, err)
		default:
			h.values[i] = formatValue(v)
		}
	}
	shape, err := f.Shape("t_array")
	switch {
	case errors.Is(err, datafile.ErrNotPresent):
	case err != nil:
		return header{}, fmt.Errorf("%s: t_array: %w", path, err)
	case len(shape) > 0:
		h.nt = strconv.Itoa(shape[0])
	}
	return h, nil
}

type headerTable struct {
	*table
	count int
}

// renderHeaders lays the headers out in a table, marking every value that
// differs from the first file.
func renderHeaders(headers []header) headerTable {
	cols := append([]string{"FILE"}, headerScalars...)
	t := headerTable{table: newTable(append(cols, "NT")...)}
	for _, h := range headers {
		t.add(append(append([]string{h.file}, h.values...), h.nt)...)
		for i, v := range h.values {
			if v != headers[0].values[i] {
				t.mark(i + 1)
				t.count++
			}
		}
		if h.nt != headers[0].nt {
			t.mark(len(cols))
			t.count++
		}
	}
	return t
}

// summarize checks the file count against the process grid of the first
// file.
func summarize(w io.Writer, headers []header) error {
	nxpe, err1 := strconv.Atoi(headers[0].values[5])
	nype, err2 := strconv.Atoi(headers[0].values[6])
	if err1 != nil || err2 != nil {
		_, err := fmt.Fprintf(w, "%d files\n", len(headers))
		return err
	}
	if nxpe*nype != len(headers) {
		_, err := fmt.Fprintf(w, "%d files, expected %d x %d = %d\n", len(headers), nxpe, nype, nxpe*nype)
		return err
	}
	_, err := fmt.Fprintf(w, "%d files, %d x %d processes\n", len(headers), nxpe, nype)
	return err
}
