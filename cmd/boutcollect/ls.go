package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/go-boutdata/datafile"
	"github.com/robert-malhotra/go-boutdata/hdf5"
)

func (a *app) lsCmd() *cobra.Command {
	var (
		tree  bool
		depth int
	)
	cmd := &cobra.Command{
		Use:   "ls FILE",
		Short: "List the variables of one dump file",
		Long: `List the variables of one dump file with their dimensions and shapes.
With --tree an HDF5 file is walked group by group instead, showing every
object including the hidden NetCDF-4 dimension scales.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if tree {
				return listTree(cmd.OutOrStdout(), args[0], depth)
			}
			return listVariables(cmd.OutOrStdout(), args[0])
		},
	}
	cmd.Flags().BoolVar(&tree, "tree", false, "walk the HDF5 group tree")
	cmd.Flags().IntVar(&depth, "depth", 20, "deepest group level to descend into with --tree")
	return cmd
}

func listVariables(w io.Writer, path string) error {
	f, err := datafile.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	t := newTable("NAME", "DIMS", "SHAPE", "ATTRS")
	for _, name := range f.Names() {
		dims, err := f.Dimensions(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		shape, err := f.Shape(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		attrs, err := f.Attributes(name)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		t.add(name, "("+strings.Join(dims, ", ")+")", fmt.Sprint(shape), strconv.Itoa(len(attrs)))
	}
	return t.render(w)
}

func listTree(w io.Writer, path string, maxDepth int) error {
	f, err := hdf5.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fmt.Fprintf(w, "%s (superblock v%d)\n", path, f.Version())
	return hdf5.Walk(f.Root(), func(p string, obj any, err error) error {
		level := strings.Count(strings.Trim(p, "/"), "/")
		if p != "/" {
			level++
		}
		indent := strings.Repeat("  ", level)
		if err != nil {
			fmt.Fprintf(w, "%s%s: %v\n", indent, p, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			members, err := o.Members()
			if err != nil {
				fmt.Fprintf(w, "%sgroup %s: %v\n", indent, p, err)
				return hdf5.ErrSkipGroup
			}
			fmt.Fprintf(w, "%sgroup %s (%d members)%s\n", indent, p, len(members), attrNames(o.Attrs()))
			if level >= maxDepth {
				return hdf5.ErrSkipGroup
			}
		case *hdf5.Dataset:
			kind := "dataset"
			if o.IsDimensionScale() {
				kind = "dimension"
			}
			fmt.Fprintf(w, "%s%s %s %v %s%s\n", indent, kind, o.Name(), o.Shape(), o.DType(), attrNames(o.Attrs()))
		}
		return nil
	})
}

func attrNames(attrs []*hdf5.Attribute, err error) string {
	if err != nil {
		return " attrs: " + err.Error()
	}
	if len(attrs) == 0 {
		return ""
	}
	names := make([]string, len(attrs))
	for i, a := range attrs {
		names[i] = a.Name()
	}
	return " {" + strings.Join(names, ", ") + "}"
}
